package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/JakeFAU/boxoffice-crawler/internal/movie"
)

const defaultMovieTable = "movies"

// MovieStore upserts extracted records keyed by movie_url.
type MovieStore struct {
	pool  pool
	table string
}

// NewMovieStore wraps an open pool. An empty table defaults to "movies".
func NewMovieStore(p pool, table string) (*MovieStore, error) {
	if p == nil {
		return nil, errors.New("pool is required")
	}
	name, err := checkTable(table, defaultMovieTable)
	if err != nil {
		return nil, err
	}
	return &MovieStore{pool: p, table: name}, nil
}


// EnsureSchema creates the movie table when it does not exist.
func (s *MovieStore) EnsureSchema(ctx context.Context) error {
	cols := make([]string, 0, len(movie.Columns)+2)
	for _, c := range movie.Columns {
		switch c {
		case "movie_url":
			cols = append(cols, "movie_url TEXT PRIMARY KEY")
		case "lead_ensemble_members", "production_technical_credits":
			cols = append(cols, c+" JSONB NOT NULL")
		default:
			cols = append(cols, c+" TEXT NOT NULL DEFAULT ''")
		}
	}
	cols = append(cols, "run_id UUID NOT NULL", "updated_at TIMESTAMPTZ NOT NULL DEFAULT now()")
	ddl := fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (\n\t%s\n)", s.table, strings.Join(cols, ",\n\t"))
	if _, err := s.pool.Exec(ctx, ddl); err != nil {
		return fmt.Errorf("create %s: %w", s.table, err)
	}
	return nil
}

// Upsert writes records in one transaction. A later record for the same
// movie_url replaces the stored row.
func (s *MovieStore) Upsert(ctx context.Context, runID uuid.UUID, records []movie.Record) (err error) {
	if s == nil || s.pool == nil {
		return errors.New("movie store is not configured")
	}
	if len(records) == 0 {
		return nil
	}
	query := s.upsertQuery()

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin upsert: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	for _, rec := range records {
		args, argErr := upsertArgs(runID, rec)
		if argErr != nil {
			return argErr
		}
		if _, err = tx.Exec(ctx, query, args...); err != nil {
			return fmt.Errorf("upsert %s: %w", rec.MovieURL, err)
		}
	}
	if err = tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit upsert: %w", err)
	}
	return nil
}

func (s *MovieStore) upsertQuery() string {
	cols := append(append([]string(nil), movie.Columns...), "run_id")
	placeholders := make([]string, len(cols))
	updates := make([]string, 0, len(cols))
	for i, c := range cols {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
		if c != "movie_url" {
			updates = append(updates, fmt.Sprintf("%s = EXCLUDED.%s", c, c))
		}
	}
	updates = append(updates, "updated_at = now()")
	return fmt.Sprintf(
		"INSERT INTO %s (%s) VALUES (%s) ON CONFLICT (movie_url) DO UPDATE SET %s",
		s.table,
		strings.Join(cols, ", "),
		strings.Join(placeholders, ", "),
		strings.Join(updates, ", "),
	)
}

func upsertArgs(runID uuid.UUID, rec movie.Record) ([]any, error) {
	cast := rec.LeadEnsembleMembers
	if cast == nil {
		cast = []movie.CastMember{}
	}
	castJSON, err := json.Marshal(cast)
	if err != nil {
		return nil, fmt.Errorf("marshal cast for %s: %w", rec.MovieURL, err)
	}
	credits := rec.ProductionTechnicalCredits
	if credits == nil {
		credits = movie.Credits{}
	}
	creditsJSON, err := json.Marshal(credits)
	if err != nil {
		return nil, fmt.Errorf("marshal credits for %s: %w", rec.MovieURL, err)
	}

	scalars := rec.ScalarFields()
	args := make([]any, 0, len(movie.Columns)+1)
	for _, c := range movie.Columns {
		switch c {
		case "lead_ensemble_members":
			args = append(args, castJSON)
		case "production_technical_credits":
			args = append(args, creditsJSON)
		default:
			args = append(args, scalars[c])
		}
	}
	return append(args, runID), nil
}
