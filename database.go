// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package graphrag

import (
	"context"
	"log/slog"

	"github.com/poiesic/graphrag/ai"
	"github.com/poiesic/graphrag/ai/crossencoder"
	"github.com/poiesic/graphrag/ai/openai"
	"github.com/poiesic/graphrag/extract"
	"github.com/poiesic/graphrag/ingestion"
	"github.com/poiesic/graphrag/metrics"
	"github.com/poiesic/graphrag/storage"
	"github.com/poiesic/graphrag/storage/badger"
	"github.com/poiesic/graphrag/storage/neo4j"
)

// Database owns a graph store, the AI services and the Engine built on them.
type Database struct {
	backend  *badger.Backend
	store    storage.GraphStore
	provider ai.AIProvider
	engine   *Engine
	logger   *slog.Logger
}

// DatabaseOption configures a Database.
type DatabaseOption func(*databaseOptions)

type databaseOptions struct {
	aiConfig   *ai.Config
	neo4j      *neo4j.Config
	provider   ai.AIProvider
	metrics    *metrics.Collector
	engineOpts []Option
}

// WithAIConfig sets the AI service configuration. Default is ai.DefaultConfig().
func WithAIConfig(cfg *ai.Config) DatabaseOption {
	return func(o *databaseOptions) {
		o.aiConfig = cfg
	}
}

// WithNeo4j stores the graph in Neo4j instead of the embedded Badger store.
func WithNeo4j(cfg neo4j.Config) DatabaseOption {
	return func(o *databaseOptions) {
		o.neo4j = &cfg
	}
}

// WithProvider uses provider instead of building OpenAI-compatible services.
// The Database takes ownership and closes it.
func WithProvider(provider ai.AIProvider) DatabaseOption {
	return func(o *databaseOptions) {
		o.provider = provider
	}
}

// WithDatabaseMetrics records engine activity on c.
func WithDatabaseMetrics(c *metrics.Collector) DatabaseOption {
	return func(o *databaseOptions) {
		o.metrics = c
	}
}

// WithEngineOptions passes options to the Engine.
func WithEngineOptions(opts ...Option) DatabaseOption {
	return func(o *databaseOptions) {
		o.engineOpts = append(o.engineOpts, opts...)
	}
}

// NewDatabase opens the graph store and connects the AI services. filePath is
// the Badger directory and is ignored when WithNeo4j is given. A store that
// cannot be reached is an error.
func NewDatabase(ctx context.Context, filePath string, opts ...DatabaseOption) (*Database, error) {
	// Apply options
	options := &databaseOptions{
		aiConfig: ai.DefaultConfig(),
	}
	for _, opt := range opts {
		opt(options)
	}

	db := &Database{logger: slog.Default().With("component", "database")}

	// Open store
	if options.neo4j != nil {
		store, err := neo4j.Open(ctx, *options.neo4j)
		if err != nil {
			return nil, err
		}
		db.store = store
	} else {
		backend, err := badger.OpenBackend(filePath, false)
		if err != nil {
			return nil, err
		}
		store, err := badger.NewGraphStore(backend)
		if err != nil {
			backend.Close()
			return nil, err
		}
		db.backend = backend
		db.store = store
	}

	// Create AI provider with configured settings
	db.provider = options.provider
	if db.provider == nil {
		provider, err := openai.NewProvider(options.aiConfig)
		if err != nil {
			db.Close()
			return nil, err
		}
		db.provider = provider
	}

	engineOpts := []Option{
		WithCompleter(db.provider.Completer()),
		WithMetrics(options.metrics),
		WithPipelineOptions(ingestion.WithTextExtractor(
			extract.New(extract.WithImageReader(db.provider.ImageReader())),
		)),
	}
	if url := options.aiConfig.RerankerURL; url != "" {
		reranker, err := crossencoder.New(url, options.aiConfig.Timeout)
		if err != nil {
			db.Close()
			return nil, err
		}
		engineOpts = append(engineOpts, WithReranker(reranker))
	}

	engine, err := NewEngine(db.store, db.provider.Embedder(), append(engineOpts, options.engineOpts...)...)
	if err != nil {
		db.Close()
		return nil, err
	}
	db.engine = engine
	return db, nil
}

// Engine returns the engine over this database.
func (db *Database) Engine() *Engine {
	return db.engine
}

// Store returns the graph store.
func (db *Database) Store() storage.GraphStore {
	return db.store
}

// Close releases the AI services, the store and the Badger backend.
func (db *Database) Close() error {
	// Close AI provider first
	if db.provider != nil {
		if err := db.provider.Close(); err != nil {
			db.logger.Error("error closing AI provider", "err", err)
		}
	}

	if db.store != nil {
		if err := db.store.Close(); err != nil {
			db.logger.Error("error closing graph store", "err", err)
			return err
		}
	}

	// Close backend
	if db.backend != nil {
		if err := db.backend.Close(); err != nil {
			db.logger.Error("error closing backend storage", "err", err)
			return err
		}
	}
	return nil
}
