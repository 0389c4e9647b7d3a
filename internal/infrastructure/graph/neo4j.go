// Package graph mirrors concept ledger entries into a property graph:
// (:Article)-[:MENTIONS {phrase}]->(:Concept {uri, description}).
package graph

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"ConceptEnricher/internal/config"
	"ConceptEnricher/internal/domain"
	"ConceptEnricher/internal/ports"
)

const mergeConceptsQuery = `
MERGE (a:Article {id: $id})
SET a.title = $title
WITH a
UNWIND $links AS link
MERGE (c:Concept {uri: link.uri})
SET c.description = link.description
MERGE (a)-[m:MENTIONS {phrase: link.phrase}]->(c)
`

var schemaQueries = []string{
	"CREATE CONSTRAINT article_id IF NOT EXISTS FOR (a:Article) REQUIRE a.id IS UNIQUE",
	"CREATE CONSTRAINT concept_uri IF NOT EXISTS FOR (c:Concept) REQUIRE c.uri IS UNIQUE",
}

// Executor runs a single Cypher statement.
type Executor interface {
	ExecuteQuery(ctx context.Context, query string, params map[string]any) (*neo4j.EagerResult, error)
	Close(ctx context.Context) error
}

type driverExecutor struct {
	driver neo4j.DriverWithContext
}

func (d *driverExecutor) ExecuteQuery(ctx context.Context, query string, params map[string]any) (*neo4j.EagerResult, error) {
	return neo4j.ExecuteQuery(ctx, d.driver, query, params, neo4j.EagerResultTransformer)
}

func (d *driverExecutor) Close(ctx context.Context) error {
	return d.driver.Close(ctx)
}

// Sink is a ports.ConceptSink writing to Neo4j or Memgraph.
type Sink struct {
	exec   Executor
	logger *slog.Logger
}

var _ ports.ConceptSink = (*Sink)(nil)

// Connect opens a driver and verifies connectivity.
func Connect(ctx context.Context, cfg config.GraphConfig, logger *slog.Logger) (*Sink, error) {
	driver, err := neo4j.NewDriverWithContext(cfg.URI, neo4j.BasicAuth(cfg.User, cfg.Password, ""))
	if err != nil {
		return nil, fmt.Errorf("neo4j driver: %w", err)
	}
	if err := driver.VerifyConnectivity(ctx); err != nil {
		_ = driver.Close(ctx)
		return nil, fmt.Errorf("neo4j connectivity: %w", err)
	}
	return NewSink(&driverExecutor{driver: driver}, logger), nil
}

func NewSink(exec Executor, logger *slog.Logger) *Sink {
	if logger == nil {
		logger = slog.Default()
	}
	return &Sink{exec: exec, logger: logger.With("component", "graph-sink")}
}

func (s *Sink) Name() string { return "neo4j" }

// EnsureSchema creates uniqueness constraints; failures are logged since they may already exist.
func (s *Sink) EnsureSchema(ctx context.Context) {
	for _, q := range schemaQueries {
		if _, err := s.exec.ExecuteQuery(ctx, q, nil); err != nil {
			s.logger.Warn("schema statement failed", "query", q, "error", err)
		}
	}
}

// PublishConcepts merges the article and all its linked concepts in one statement.
func (s *Sink) PublishConcepts(ctx context.Context, entry domain.ConceptEntry) error {
	if entry.Concepts.Len() == 0 {
		return nil
	}
	params := conceptParams(entry)
	if _, err := s.exec.ExecuteQuery(ctx, mergeConceptsQuery, params); err != nil {
		return fmt.Errorf("merge concepts for %s: %w", entry.ID, err)
	}
	s.logger.Debug("concepts merged", "article_id", entry.ID, "links", entry.Concepts.Len())
	return nil
}

func (s *Sink) Close(ctx context.Context) error {
	return s.exec.Close(ctx)
}

func conceptParams(entry domain.ConceptEntry) map[string]any {
	links := make([]map[string]any, 0, entry.Concepts.Len())
	entry.Concepts.Each(func(phrase string, link domain.Link) {
		links = append(links, map[string]any{
			"phrase":      phrase,
			"uri":         link.URI,
			"description": link.Description,
		})
	})
	return map[string]any{
		"id":    entry.ID,
		"title": entry.Title,
		"links": links,
	}
}
