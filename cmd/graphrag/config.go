package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/poiesic/graphrag/ai"
	"github.com/poiesic/graphrag/storage/neo4j"
	"gopkg.in/yaml.v3"
)

// Store backends.
const (
	storeBadger = "badger"
	storeNeo4j  = "neo4j"
)

// Neo4jConfig holds the Neo4j connection settings.
type Neo4jConfig struct {
	URI      string `yaml:"uri"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	Database string `yaml:"database"`
}

// AIConfig configures the OpenAI-compatible services and the reranker.
type AIConfig struct {
	EmbeddingHost   string `yaml:"embedding_host"`
	CompletionHost  string `yaml:"completion_host"`
	EmbeddingModel  string `yaml:"embedding_model"`
	CompletionModel string `yaml:"completion_model"`
	VisionModel     string `yaml:"vision_model"`
	APIKey          string `yaml:"api_key"`
	RerankerURL     string `yaml:"reranker_url"`
	TimeoutSecs     int    `yaml:"timeout_secs"`
	MaxRetries      int    `yaml:"max_retries"`
}

// Config is the root CLI configuration.
type Config struct {
	// DataDir holds the Badger database and the per-space file library.
	DataDir     string      `yaml:"data_dir"`
	Store       string      `yaml:"store"`
	Neo4j       Neo4jConfig `yaml:"neo4j"`
	AI          AIConfig    `yaml:"ai"`
	Workers     int         `yaml:"workers"`
	MetricsFile string      `yaml:"metrics_file"`
}

func defaultConfig() *Config {
	aiDefaults := ai.DefaultConfig()
	neoDefaults := neo4j.DefaultConfig()
	return &Config{
		DataDir: "graphrag-data",
		Store:   storeBadger,
		Neo4j: Neo4jConfig{
			URI:      neoDefaults.URI,
			Username: neoDefaults.Username,
		},
		AI: AIConfig{
			EmbeddingHost:   aiDefaults.EmbeddingHost,
			CompletionHost:  aiDefaults.CompletionHost,
			EmbeddingModel:  aiDefaults.EmbeddingModel,
			CompletionModel: aiDefaults.CompletionModel,
			TimeoutSecs:     int(aiDefaults.Timeout / time.Second),
			MaxRetries:      aiDefaults.MaxRetries,
		},
		Workers: 2,
	}
}

// loadConfig reads path over the defaults. A missing file yields the
// defaults unless required is set.
func loadConfig(path string, required bool) (*Config, error) {
	cfg := defaultConfig()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) && !required {
			return cfg, nil
		}
		return nil, fmt.Errorf("reading config: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}
	return cfg, nil
}

// applyEnv overrides cfg with GRAPHRAG_* environment variables.
func (cfg *Config) applyEnv(getenv func(string) string) error {
	str := func(key string, dst *string) {
		if v := strings.TrimSpace(getenv(key)); v != "" {
			*dst = v
		}
	}
	num := func(key string, dst *int) error {
		v := strings.TrimSpace(getenv(key))
		if v == "" {
			return nil
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
		*dst = n
		return nil
	}

	str("GRAPHRAG_DATA_DIR", &cfg.DataDir)
	str("GRAPHRAG_STORE", &cfg.Store)
	str("GRAPHRAG_NEO4J_URI", &cfg.Neo4j.URI)
	str("GRAPHRAG_NEO4J_USERNAME", &cfg.Neo4j.Username)
	str("GRAPHRAG_NEO4J_PASSWORD", &cfg.Neo4j.Password)
	str("GRAPHRAG_NEO4J_DATABASE", &cfg.Neo4j.Database)
	if host := strings.TrimSpace(getenv("GRAPHRAG_LLM_HOST")); host != "" {
		cfg.AI.EmbeddingHost = host
		cfg.AI.CompletionHost = host
	}
	str("GRAPHRAG_EMBEDDING_HOST", &cfg.AI.EmbeddingHost)
	str("GRAPHRAG_COMPLETION_HOST", &cfg.AI.CompletionHost)
	str("GRAPHRAG_EMBEDDING_MODEL", &cfg.AI.EmbeddingModel)
	str("GRAPHRAG_COMPLETION_MODEL", &cfg.AI.CompletionModel)
	str("GRAPHRAG_VISION_MODEL", &cfg.AI.VisionModel)
	str("GRAPHRAG_API_KEY", &cfg.AI.APIKey)
	str("GRAPHRAG_RERANKER_URL", &cfg.AI.RerankerURL)
	str("GRAPHRAG_METRICS_FILE", &cfg.MetricsFile)
	if err := num("GRAPHRAG_TIMEOUT_SECS", &cfg.AI.TimeoutSecs); err != nil {
		return err
	}
	if err := num("GRAPHRAG_MAX_RETRIES", &cfg.AI.MaxRetries); err != nil {
		return err
	}
	return num("GRAPHRAG_WORKERS", &cfg.Workers)
}

// Validate checks the settings the CLI relies on.
func (cfg *Config) Validate() error {
	cfg.Store = strings.ToLower(strings.TrimSpace(cfg.Store))
	switch cfg.Store {
	case storeBadger:
		if cfg.DataDir == "" {
			return errors.New("config: data_dir is required")
		}
	case storeNeo4j:
		if cfg.Neo4j.URI == "" {
			return errors.New("config: neo4j.uri is required")
		}
	default:
		return fmt.Errorf("config: unknown store %q: must be badger or neo4j", cfg.Store)
	}
	if cfg.Workers < 1 {
		return errors.New("config: workers must be positive")
	}
	return cfg.aiConfig().Validate()
}

func (cfg *Config) aiConfig() *ai.Config {
	return ai.NewConfig(
		ai.WithEmbeddingHost(cfg.AI.EmbeddingHost),
		ai.WithCompletionHost(cfg.AI.CompletionHost),
		ai.WithEmbeddingModel(cfg.AI.EmbeddingModel),
		ai.WithCompletionModel(cfg.AI.CompletionModel),
		ai.WithVisionModel(cfg.AI.VisionModel),
		ai.WithAPIKey(cfg.AI.APIKey),
		ai.WithRerankerURL(cfg.AI.RerankerURL),
		ai.WithTimeout(time.Duration(cfg.AI.TimeoutSecs)*time.Second),
		ai.WithMaxRetries(cfg.AI.MaxRetries),
	)
}

func (cfg *Config) neo4jConfig() neo4j.Config {
	nc := neo4j.DefaultConfig()
	nc.URI = cfg.Neo4j.URI
	nc.Username = cfg.Neo4j.Username
	nc.Password = cfg.Neo4j.Password
	nc.Database = cfg.Neo4j.Database
	return nc
}

func (cfg *Config) badgerDir() string {
	return filepath.Join(cfg.DataDir, "db")
}

func (cfg *Config) libraryDir() string {
	return filepath.Join(cfg.DataDir, "files")
}
