// Package export serializes movie records as CSV with one header row.
package export

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/JakeFAU/boxoffice-crawler/internal/movie"
)

// Options tune the writer.
type Options struct {
	// Dedupe drops records whose movie URL was already written.
	Dedupe bool
}

// Writer streams records to a CSV destination.
type Writer struct {
	csv     *csv.Writer
	opts    Options
	seen    map[string]struct{}
	written int
	skipped int
}

// NewWriter writes the header row to w and returns a Writer.
func NewWriter(w io.Writer, opts Options) (*Writer, error) {
	cw := csv.NewWriter(w)
	if err := cw.Write(movie.Columns); err != nil {
		return nil, fmt.Errorf("write header: %w", err)
	}
	return &Writer{csv: cw, opts: opts, seen: make(map[string]struct{})}, nil
}

// Write appends one row per record. With Dedupe set the first occurrence of a
// movie URL wins.
func (w *Writer) Write(records ...movie.Record) error {
	for _, rec := range records {
		if w.opts.Dedupe {
			if _, dup := w.seen[rec.MovieURL]; dup {
				w.skipped++
				continue
			}
			w.seen[rec.MovieURL] = struct{}{}
		}
		row, err := Row(rec)
		if err != nil {
			return err
		}
		if err := w.csv.Write(row); err != nil {
			return fmt.Errorf("write row for %s: %w", rec.MovieURL, err)
		}
		w.written++
	}
	return nil
}

// Flush flushes buffered rows to the destination.
func (w *Writer) Flush() error {
	w.csv.Flush()
	if err := w.csv.Error(); err != nil {
		return fmt.Errorf("flush csv: %w", err)
	}
	return nil
}

// Written reports rows written, excluding the header.
func (w *Writer) Written() int { return w.written }

// Skipped reports records dropped as duplicates.
func (w *Writer) Skipped() int { return w.skipped }

// Row renders rec in column order. The cast list and credit mapping are
// encoded as JSON.
func Row(rec movie.Record) ([]string, error) {
	cast := rec.LeadEnsembleMembers
	if cast == nil {
		cast = []movie.CastMember{}
	}
	castJSON, err := json.Marshal(cast)
	if err != nil {
		return nil, fmt.Errorf("encode cast for %s: %w", rec.MovieURL, err)
	}
	credits := rec.ProductionTechnicalCredits
	if credits == nil {
		credits = movie.Credits{}
	}
	creditsJSON, err := json.Marshal(credits)
	if err != nil {
		return nil, fmt.Errorf("encode credits for %s: %w", rec.MovieURL, err)
	}

	scalars := rec.ScalarFields()
	row := make([]string, len(movie.Columns))
	for i, col := range movie.Columns {
		switch col {
		case "lead_ensemble_members":
			row[i] = string(castJSON)
		case "production_technical_credits":
			row[i] = string(creditsJSON)
		default:
			row[i] = scalars[col]
		}
	}
	return row, nil
}

// Stats summarizes a WriteFile call.
type Stats struct {
	Path    string
	Rows    int
	Skipped int
}

// WriteFile writes records to path through a temp file in the same directory
// and renames it into place.
func WriteFile(path string, records []movie.Record, opts Options) (stats Stats, err error) {
	if path == "" {
		return stats, errors.New("output path is required")
	}
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return stats, fmt.Errorf("create output directory: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".movies-*.csv")
	if err != nil {
		return stats, fmt.Errorf("create temp output: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tmp.Close()
			_ = os.Remove(tmp.Name())
		}
	}()

	w, err := NewWriter(tmp, opts)
	if err != nil {
		return stats, err
	}
	if err = w.Write(records...); err != nil {
		return stats, err
	}
	if err = w.Flush(); err != nil {
		return stats, err
	}
	if err = tmp.Close(); err != nil {
		return stats, fmt.Errorf("close output: %w", err)
	}
	if err = os.Rename(tmp.Name(), path); err != nil {
		return stats, fmt.Errorf("rename output: %w", err)
	}
	return Stats{Path: path, Rows: w.Written(), Skipped: w.Skipped()}, nil
}
