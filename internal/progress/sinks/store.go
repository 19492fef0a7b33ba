package sinks

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/JakeFAU/boxoffice-crawler/internal/progress"
)

// RunRecorder persists run and year outcomes.
type RunRecorder interface {
	StartRun(ctx context.Context, runID uuid.UUID, startedAt time.Time) error
	RecordYear(ctx context.Context, runID uuid.UUID, year, records, failures int, listingErr string, dur time.Duration) error
	FinishRun(ctx context.Context, runID uuid.UUID, finishedAt time.Time, records, failures int) error
}

// StoreSink writes run-level and year-level events to a RunRecorder.
// Movie-level events are ignored.
type StoreSink struct {
	recorder RunRecorder
}

// NewStoreSink wraps recorder.
func NewStoreSink(recorder RunRecorder) *StoreSink {
	return &StoreSink{recorder: recorder}
}

// Consume persists each relevant event. Errors are joined so one bad row does
// not hide the rest of the batch.
func (s *StoreSink) Consume(ctx context.Context, batch []progress.Event) error {
	if s.recorder == nil {
		return nil
	}
	var errs []error
	for _, evt := range batch {
		if err := s.consumeEvent(ctx, evt); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (s *StoreSink) consumeEvent(ctx context.Context, evt progress.Event) error {
	runID := evt.RunUUID()
	switch evt.Stage {
	case progress.StageRunStart:
		return s.recorder.StartRun(ctx, runID, evt.TS)
	case progress.StageYearDone:
		return s.recorder.RecordYear(ctx, runID, evt.Year, evt.Count, evt.Failures, "", evt.Dur)
	case progress.StageYearError:
		return s.recorder.RecordYear(ctx, runID, evt.Year, 0, 0, evt.Note, evt.Dur)
	case progress.StageRunDone:
		return s.recorder.FinishRun(ctx, runID, evt.TS, evt.Count, evt.Failures)
	default:
		return nil
	}
}

// Close implements the Sink interface; it performs no action.
func (s *StoreSink) Close(context.Context) error {
	return nil
}
