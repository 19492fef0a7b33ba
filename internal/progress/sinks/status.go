package sinks

import (
	"context"
	"sync"
	"time"

	"github.com/JakeFAU/boxoffice-crawler/internal/progress"
)

// Snapshot is the live view of a run served on /status.
type Snapshot struct {
	RunID           string    `json:"run_id,omitempty"`
	CurrentYear     int       `json:"current_year,omitempty"`
	CurrentListed   int       `json:"current_listed"`
	CurrentDone     int       `json:"current_done"`
	YearsDone       int       `json:"years_done"`
	Records         int       `json:"records"`
	DetailFailures  int       `json:"detail_failures"`
	ListingFailures int       `json:"listing_failures"`
	Finished        bool      `json:"finished"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// StatusSink folds events into a Snapshot.
type StatusSink struct {
	mu   sync.RWMutex
	snap Snapshot
}

// NewStatusSink returns an empty StatusSink.
func NewStatusSink() *StatusSink {
	return &StatusSink{}
}

// Consume applies the batch to the snapshot.
func (s *StatusSink) Consume(_ context.Context, batch []progress.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, evt := range batch {
		s.apply(evt)
	}
	return nil
}

func (s *StatusSink) apply(evt progress.Event) {
	snap := &s.snap
	snap.RunID = evt.RunUUID().String()
	if evt.TS.After(snap.UpdatedAt) {
		snap.UpdatedAt = evt.TS
	}
	switch evt.Stage {
	case progress.StageRunStart:
		*snap = Snapshot{RunID: snap.RunID, UpdatedAt: snap.UpdatedAt}
	case progress.StageYearStart:
		snap.CurrentYear = evt.Year
		snap.CurrentListed = evt.Count
		snap.CurrentDone = 0
	case progress.StageMovieDone:
		snap.CurrentDone++
		snap.Records++
	case progress.StageMovieError:
		snap.CurrentDone++
		snap.DetailFailures++
	case progress.StageYearDone:
		snap.YearsDone++
	case progress.StageYearError:
		snap.YearsDone++
		snap.ListingFailures++
	case progress.StageRunDone:
		snap.Finished = true
	}
}

// Snapshot returns a copy of the current state.
func (s *StatusSink) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snap
}

// Close implements the Sink interface; it performs no action.
func (s *StatusSink) Close(context.Context) error {
	return nil
}
