// Package publisher announces finished crawl runs to downstream consumers.
package publisher

import (
	"context"
	"time"
)

// RunNotification is the JSON payload published when a run completes.
type RunNotification struct {
	RunID           string    `json:"run_id"`
	StartYear       int       `json:"start_year"`
	EndYear         int       `json:"end_year"`
	Records         int       `json:"records"`
	DetailFailures  int       `json:"detail_failures"`
	ListingFailures int       `json:"listing_failures"`
	Output          string    `json:"output"`
	FinishedAt      time.Time `json:"finished_at"`
}

// Publisher delivers a RunNotification and returns the broker message ID.
type Publisher interface {
	Publish(ctx context.Context, n RunNotification) (string, error)
}
