package storage

import (
	"context"
	"database/sql"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/lib/pq"

	"ConceptEnricher/internal/domain"
	"ConceptEnricher/internal/ports"
)

const conceptLinksTable = "concept_links"

const createConceptLinks = `CREATE TABLE IF NOT EXISTS concept_links (
    article_id  TEXT NOT NULL,
    title       TEXT NOT NULL,
    phrase      TEXT NOT NULL,
    uri         TEXT NOT NULL,
    description TEXT NOT NULL,
    created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at  TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    PRIMARY KEY (article_id, phrase)
)`

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

// PostgresRepository mirrors the concept ledger into Postgres for ad-hoc querying.
type PostgresRepository struct {
	db *sql.DB
}

var _ ports.ConceptSink = (*PostgresRepository)(nil)

// NewPostgresRepository wires a sql.DB implementation.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// OpenPostgres connects through lib/pq and verifies the connection.
func OpenPostgres(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return db, nil
}

func (r *PostgresRepository) Name() string { return "postgres" }

// EnsureSchema creates the mirror table when missing.
func (r *PostgresRepository) EnsureSchema(ctx context.Context) error {
	if r.db == nil {
		return nil
	}
	if _, err := r.db.ExecContext(ctx, createConceptLinks); err != nil {
		return fmt.Errorf("create %s: %w", conceptLinksTable, err)
	}
	return nil
}

// PublishConcepts upserts one row per resolved phrase.
func (r *PostgresRepository) PublishConcepts(ctx context.Context, entry domain.ConceptEntry) error {
	if r.db == nil || entry.Concepts.Len() == 0 {
		return nil
	}

	query, args, err := buildConceptUpsert(entry)
	if err != nil {
		return fmt.Errorf("build upsert: %w", err)
	}
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("upsert concepts of %s: %w", entry.ID, err)
	}
	return nil
}

// MirroredArticles returns the subset of ids that already have rows.
func (r *PostgresRepository) MirroredArticles(ctx context.Context, ids []string) (map[string]bool, error) {
	if r.db == nil || len(ids) == 0 {
		return map[string]bool{}, nil
	}

	query, args, err := psql.Select("DISTINCT article_id").
		From(conceptLinksTable).
		Where("article_id = ANY(?)", pq.StringArray(ids)).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query mirrored: %w", err)
	}

	result := make(map[string]bool)
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			_ = rows.Close()
			return nil, fmt.Errorf("scan id: %w", err)
		}
		result[id] = true
	}

	if rowsErr := rows.Err(); rowsErr != nil {
		_ = rows.Close()
		return nil, fmt.Errorf("rows iteration: %w", rowsErr)
	}

	if closeErr := rows.Close(); closeErr != nil {
		return nil, fmt.Errorf("close rows: %w", closeErr)
	}

	return result, nil
}

func buildConceptUpsert(entry domain.ConceptEntry) (string, []interface{}, error) {
	insert := psql.Insert(conceptLinksTable).
		Columns("article_id", "title", "phrase", "uri", "description")
	entry.Concepts.Each(func(phrase string, link domain.Link) {
		insert = insert.Values(entry.ID, entry.Title, phrase, link.URI, link.Description)
	})
	return insert.Suffix(`ON CONFLICT (article_id, phrase) DO UPDATE
              SET title = EXCLUDED.title,
                  uri = EXCLUDED.uri,
                  description = EXCLUDED.description,
                  updated_at = NOW()`).ToSql()
}
