package sinks

import (
	"context"

	"go.uber.org/zap"

	"github.com/JakeFAU/boxoffice-crawler/internal/progress"
)

// LogSink writes year and run milestones to a zap logger. Movie-level events
// are logged at debug to keep the output readable for large years.
type LogSink struct {
	logger *zap.Logger
}

// NewLogSink wires a Zap logger to the sink interface.
func NewLogSink(logger *zap.Logger) *LogSink {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogSink{logger: logger}
}

// Consume logs each event in the batch using structured fields.
func (s *LogSink) Consume(_ context.Context, batch []progress.Event) error {
	for _, evt := range batch {
		fields := []zap.Field{
			zap.String("run_id", evt.RunUUID().String()),
			zap.String("stage", string(evt.Stage)),
			zap.Int("year", evt.Year),
			zap.String("title", evt.Title),
			zap.String("url", evt.URL),
			zap.Int("count", evt.Count),
			zap.Int("failures", evt.Failures),
			zap.Duration("dur", evt.Dur),
			zap.String("note", evt.Note),
		}
		switch evt.Stage {
		case progress.StageMovieDone, progress.StageMovieError:
			s.logger.Debug("progress event", fields...)
		default:
			s.logger.Info("progress event", fields...)
		}
	}
	return nil
}

// Close implements the Sink interface; it performs no action.
func (s *LogSink) Close(context.Context) error {
	return nil
}
