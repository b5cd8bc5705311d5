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

// Package neo4j implements storage.GraphStore on a Neo4j server.
//
// Schema:
//
//	(:Chunk {space, chunk_id, text, embedding, seq, created_at})
//	(:Concept {space, name, created_at})
//	(:Concept)-[:RELATED_TO {relation, strength}]->(:Concept)
//	(:Concept)-[:EXPLAINED_BY]->(:Chunk)
//
// Vector search uses vector.similarity.cosine and needs Neo4j 5.11 or later.
package neo4j

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	neo4jdrv "github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/poiesic/graphrag/storage"
)

var (
	// ErrURIRequired is returned by Open when no server URI is configured.
	ErrURIRequired = errors.New("neo4j uri is required")
)

// Config holds connection settings.
type Config struct {
	URI            string
	Username       string
	Password       string
	Database       string
	MaxPoolSize    int
	ConnectTimeout time.Duration
}

// DefaultConfig returns a Config for a local server.
func DefaultConfig() Config {
	return Config{
		URI:            "neo4j://localhost:7687",
		Username:       "neo4j",
		MaxPoolSize:    50,
		ConnectTimeout: 10 * time.Second,
	}
}

// GraphStore implements storage.GraphStore for Neo4j.
type GraphStore struct {
	driver   neo4jdrv.DriverWithContext
	database string
	logger   *slog.Logger
}

var _ storage.GraphStore = (*GraphStore)(nil)

// Open connects to the server and verifies connectivity.
// Schema constraints are created best-effort.
func Open(ctx context.Context, cfg Config) (*GraphStore, error) {
	cfg.URI = strings.TrimSpace(cfg.URI)
	if cfg.URI == "" {
		return nil, ErrURIRequired
	}
	if cfg.Username == "" {
		cfg.Username = "neo4j"
	}
	if cfg.ConnectTimeout <= 0 {
		cfg.ConnectTimeout = 10 * time.Second
	}

	auth := neo4jdrv.BasicAuth(cfg.Username, cfg.Password, "")
	driver, err := neo4jdrv.NewDriverWithContext(cfg.URI, auth, func(c *neo4jdrv.Config) {
		if cfg.MaxPoolSize > 0 {
			c.MaxConnectionPoolSize = cfg.MaxPoolSize
		}
		c.SocketConnectTimeout = cfg.ConnectTimeout
	})
	if err != nil {
		return nil, fmt.Errorf("neo4j: init driver: %w", err)
	}

	verifyCtx, cancel := context.WithTimeout(ctx, cfg.ConnectTimeout)
	defer cancel()
	if err := driver.VerifyConnectivity(verifyCtx); err != nil {
		_ = driver.Close(ctx)
		return nil, fmt.Errorf("neo4j: verify connectivity: %w", err)
	}

	s := &GraphStore{
		driver:   driver,
		database: cfg.Database,
		logger:   slog.Default().With("component", "neo4j"),
	}
	s.ensureSchema(ctx)
	return s, nil
}

var schemaStatements = []string{
	`CREATE CONSTRAINT concept_space_name IF NOT EXISTS FOR (c:Concept) REQUIRE (c.space, c.name) IS UNIQUE`,
	`CREATE INDEX chunk_space_idx IF NOT EXISTS FOR (c:Chunk) ON (c.space)`,
	`CREATE INDEX chunk_space_id_idx IF NOT EXISTS FOR (c:Chunk) ON (c.space, c.chunk_id)`,
}

// ensureSchema may fail for restricted users; the store works without it.
func (s *GraphStore) ensureSchema(ctx context.Context) {
	session := s.session(ctx, neo4jdrv.AccessModeWrite)
	defer session.Close(ctx)

	for _, stmt := range schemaStatements {
		res, err := session.Run(ctx, stmt, nil)
		if err == nil {
			_, err = res.Consume(ctx)
		}
		if err != nil {
			s.logger.Warn("neo4j schema init failed (continuing)", "error", err)
		}
	}
}

// Close closes the driver.
func (s *GraphStore) Close() error {
	if s.driver == nil {
		return nil
	}
	err := s.driver.Close(context.Background())
	s.driver = nil
	return err
}

// Ping verifies the server is reachable.
func (s *GraphStore) Ping(ctx context.Context) error {
	if s.driver == nil {
		return storage.ErrStorageClosed
	}
	return s.driver.VerifyConnectivity(ctx)
}

func (s *GraphStore) session(ctx context.Context, mode neo4jdrv.AccessMode) neo4jdrv.SessionWithContext {
	return s.driver.NewSession(ctx, neo4jdrv.SessionConfig{
		AccessMode:   mode,
		DatabaseName: s.database,
	})
}

// write runs one statement in a managed write transaction and collects its records.
func (s *GraphStore) write(ctx context.Context, cypher string, params map[string]any) ([]*neo4jdrv.Record, error) {
	return s.execute(ctx, neo4jdrv.AccessModeWrite, cypher, params)
}

// read runs one statement in a managed read transaction and collects its records.
func (s *GraphStore) read(ctx context.Context, cypher string, params map[string]any) ([]*neo4jdrv.Record, error) {
	return s.execute(ctx, neo4jdrv.AccessModeRead, cypher, params)
}

func (s *GraphStore) execute(ctx context.Context, mode neo4jdrv.AccessMode, cypher string, params map[string]any) ([]*neo4jdrv.Record, error) {
	if s.driver == nil {
		return nil, storage.ErrStorageClosed
	}
	session := s.session(ctx, mode)
	defer session.Close(ctx)

	work := func(tx neo4jdrv.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, cypher, params)
		if err != nil {
			return nil, err
		}
		return res.Collect(ctx)
	}

	var out any
	var err error
	if mode == neo4jdrv.AccessModeWrite {
		out, err = session.ExecuteWrite(ctx, work)
	} else {
		out, err = session.ExecuteRead(ctx, work)
	}
	if err != nil {
		return nil, err
	}
	records, _ := out.([]*neo4jdrv.Record)
	return records, nil
}
