package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

const defaultRunTable = "crawl_runs"

// Run status values.
const (
	RunRunning   = "running"
	RunSucceeded = "succeeded"
	RunPartial   = "partial"
)

// RunStore keeps one row per pipeline run and one per crawled year.
type RunStore struct {
	pool  pool
	table string
}

// NewRunStore wraps an open pool. Year rows live in "<table>_years".
func NewRunStore(p pool, table string) (*RunStore, error) {
	if p == nil {
		return nil, errors.New("pool is required")
	}
	name, err := checkTable(table, defaultRunTable)
	if err != nil {
		return nil, err
	}
	return &RunStore{pool: p, table: name}, nil
}

// EnsureSchema creates the run tables when they do not exist.
func (s *RunStore) EnsureSchema(ctx context.Context) error {
	stmts := []string{
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
	run_id UUID PRIMARY KEY,
	started_at TIMESTAMPTZ NOT NULL,
	finished_at TIMESTAMPTZ,
	status TEXT NOT NULL,
	records INTEGER NOT NULL DEFAULT 0,
	failures INTEGER NOT NULL DEFAULT 0
)`, s.table),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s_years (
	run_id UUID NOT NULL,
	year INTEGER NOT NULL,
	records INTEGER NOT NULL,
	failures INTEGER NOT NULL,
	listing_error TEXT NOT NULL DEFAULT '',
	duration_ms BIGINT NOT NULL,
	PRIMARY KEY (run_id, year)
)`, s.table),
	}
	for _, stmt := range stmts {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("create run tables: %w", err)
		}
	}
	return nil
}

// StartRun inserts the run row in the running state.
func (s *RunStore) StartRun(ctx context.Context, runID uuid.UUID, startedAt time.Time) error {
	query := fmt.Sprintf(`INSERT INTO %s (run_id, started_at, status) VALUES ($1, $2, $3)
ON CONFLICT (run_id) DO NOTHING`, s.table)
	if _, err := s.pool.Exec(ctx, query, runID, startedAt, RunRunning); err != nil {
		return fmt.Errorf("start run %s: %w", runID, err)
	}
	return nil
}

// RecordYear stores the outcome of one crawled year.
func (s *RunStore) RecordYear(
	ctx context.Context,
	runID uuid.UUID,
	year, records, failures int,
	listingErr string,
	dur time.Duration,
) error {
	query := fmt.Sprintf(`INSERT INTO %s_years (run_id, year, records, failures, listing_error, duration_ms)
VALUES ($1, $2, $3, $4, $5, $6)
ON CONFLICT (run_id, year) DO UPDATE SET records = EXCLUDED.records, failures = EXCLUDED.failures,
listing_error = EXCLUDED.listing_error, duration_ms = EXCLUDED.duration_ms`, s.table)
	if _, err := s.pool.Exec(ctx, query, runID, year, records, failures, listingErr, dur.Milliseconds()); err != nil {
		return fmt.Errorf("record year %d: %w", year, err)
	}
	return nil
}

// FinishRun closes the run row. Any failure marks the run partial.
func (s *RunStore) FinishRun(ctx context.Context, runID uuid.UUID, finishedAt time.Time, records, failures int) error {
	status := RunSucceeded
	if failures > 0 {
		status = RunPartial
	}
	query := fmt.Sprintf(`UPDATE %s SET finished_at = $2, status = $3, records = $4, failures = $5
WHERE run_id = $1`, s.table)
	if _, err := s.pool.Exec(ctx, query, runID, finishedAt, status, records, failures); err != nil {
		return fmt.Errorf("finish run %s: %w", runID, err)
	}
	return nil
}

