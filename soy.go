package noesis

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/zoobzio/astql/postgres"
	"github.com/zoobzio/soy"
)

// Archive defines optional persistence for term embeddings and completed
// optimization results. The engine runs fully in-memory without one.
type Archive interface {
	// SaveEmbedding persists one term embedding, replacing any stored copy.
	SaveEmbedding(ctx context.Context, embedding TermEmbedding) error

	// LoadEmbeddings loads every persisted term embedding.
	LoadEmbeddings(ctx context.Context) ([]TermEmbedding, error)

	// SaveResult persists one completed optimization result.
	SaveResult(ctx context.Context, result *OptimizationResult) error

	// RecentResults loads the most recent run records, newest first.
	RecentResults(ctx context.Context, limit int) ([]RunRecord, error)
}

// RunRecord is the persisted shape of one optimization run.
type RunRecord struct {
	ID         string    `db:"id" type:"uuid" constraints:"primarykey" default:"gen_random_uuid()"`
	TraceID    string    `db:"trace_id" type:"text" constraints:"notnull"`
	Expression string    `db:"expression" type:"text" constraints:"notnull"`
	Optimized  string    `db:"optimized" type:"text" constraints:"notnull"`
	Psi        float64   `db:"psi" type:"double precision" constraints:"notnull"`
	Health     string    `db:"health" type:"text" constraints:"notnull"`
	Created    time.Time `db:"created" type:"timestamp" constraints:"notnull"`
}

// SoyArchive implements Archive using soy for PostgreSQL persistence, with
// term vectors in a pgvector column.
type SoyArchive struct {
	terms *soy.Soy[TermEmbedding]
	runs  *soy.Soy[RunRecord]
	db    *sqlx.DB
}

// NewSoyArchive creates a new soy-backed Archive implementation.
func NewSoyArchive(db *sqlx.DB) (*SoyArchive, error) {
	renderer := postgres.New()

	terms, err := soy.New[TermEmbedding](db, "term_embeddings", renderer)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize term_embeddings table: %w", err)
	}

	runs, err := soy.New[RunRecord](db, "optimizations", renderer)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize optimizations table: %w", err)
	}

	return &SoyArchive{
		terms: terms,
		runs:  runs,
		db:    db,
	}, nil
}

// SaveEmbedding persists one term embedding. The term is the primary key, so
// any stored copy is removed first.
func (a *SoyArchive) SaveEmbedding(ctx context.Context, embedding TermEmbedding) error {
	_, err := a.terms.Remove().
		Where("term", "=", "term").
		Exec(ctx, map[string]any{"term": embedding.Term})
	if err != nil {
		return fmt.Errorf("failed to clear term embedding: %w", err)
	}

	if _, err := a.terms.Insert().Exec(ctx, &embedding); err != nil {
		return fmt.Errorf("failed to insert term embedding: %w", err)
	}
	return nil
}

// LoadEmbeddings loads every persisted term embedding.
func (a *SoyArchive) LoadEmbeddings(ctx context.Context) ([]TermEmbedding, error) {
	rows, err := a.terms.Query().
		OrderBy("term", "asc").
		Exec(ctx, map[string]any{})
	if err != nil {
		return nil, fmt.Errorf("failed to load term embeddings: %w", err)
	}

	embeddings := make([]TermEmbedding, len(rows))
	for i, r := range rows {
		embeddings[i] = *r
	}
	return embeddings, nil
}

// SaveResult persists one completed optimization result.
func (a *SoyArchive) SaveResult(ctx context.Context, result *OptimizationResult) error {
	record := &RunRecord{
		TraceID:    result.TraceID,
		Expression: result.Expression,
		Optimized:  result.Optimized,
		Psi:        result.Psi,
		Health:     result.Meta.Health.String(),
		Created:    time.Now(),
	}

	if _, err := a.runs.Insert().Exec(ctx, record); err != nil {
		return fmt.Errorf("failed to insert run record: %w", err)
	}
	return nil
}

// RecentResults loads the most recent run records, newest first.
func (a *SoyArchive) RecentResults(ctx context.Context, limit int) ([]RunRecord, error) {
	rows, err := a.runs.Query().
		OrderBy("created", "desc").
		Limit(limit).
		Exec(ctx, map[string]any{})
	if err != nil {
		return nil, fmt.Errorf("failed to load run records: %w", err)
	}

	records := make([]RunRecord, len(rows))
	for i, r := range rows {
		records[i] = *r
	}
	return records, nil
}

// Close closes the underlying database connection.
func (a *SoyArchive) Close() error {
	return a.db.Close()
}

// HydrateEmbeddings loads archived embeddings into the session's store.
func (s *Session) HydrateEmbeddings(ctx context.Context) error {
	if s.archive == nil {
		return nil
	}

	embeddings, err := s.archive.LoadEmbeddings(ctx)
	if err != nil {
		return fmt.Errorf("failed to hydrate embeddings: %w", err)
	}

	for _, e := range embeddings {
		if err := s.embeddings.Restore(e); err != nil {
			return fmt.Errorf("failed to hydrate term %q: %w", e.Term, err)
		}
	}
	return nil
}

// PersistEmbeddings writes the session's current embedding table to the
// archive.
func (s *Session) PersistEmbeddings(ctx context.Context) error {
	if s.archive == nil {
		return nil
	}

	for _, e := range s.embeddings.Snapshot() {
		if err := s.archive.SaveEmbedding(ctx, e); err != nil {
			return fmt.Errorf("failed to persist term %q: %w", e.Term, err)
		}
	}
	return nil
}
