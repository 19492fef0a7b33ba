package crawler

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/JakeFAU/boxoffice-crawler/internal/movie"
	"github.com/JakeFAU/boxoffice-crawler/internal/progress"
)

// YearSummary is the per-year line of a run report.
type YearSummary struct {
	Year           int
	Listed         int
	Records        int
	DetailFailures int
	// ListingErr is set when the year's listing could not be fetched.
	ListingErr error
}

// Result accumulates a run. Records are ordered by year; order within a
// year follows completion order.
type Result struct {
	Records         []movie.Record
	Years           []YearSummary
	DetailFailures  []DetailFailure
	ListingFailures []ListingFailure
}

// FailureCount reports detail plus listing failures.
func (r Result) FailureCount() int {
	return len(r.DetailFailures) + len(r.ListingFailures)
}

// Pipeline runs years sequentially through a YearRunner.
type Pipeline struct {
	years  YearRunner
	deps   Deps
	logger *zap.Logger
}

// NewPipeline wraps years. Only Clock, Progress, Logger and RunID are read
// from deps.
func NewPipeline(years YearRunner, deps Deps) (*Pipeline, error) {
	if years == nil {
		return nil, errors.New("year runner is required")
	}
	deps = deps.withDefaults()
	return &Pipeline{years: years, deps: deps, logger: deps.Logger.Named("pipeline")}, nil
}

// Run crawls start through end inclusive. A listing failure skips its year
// and the run continues. Cancellation stops the run after the in-flight
// year drains; the records gathered so far are returned with the error.
func (p *Pipeline) Run(ctx context.Context, start, end int) (Result, error) {
	var result Result
	if err := ValidateYearRange(start, end); err != nil {
		return result, err
	}
	started := p.deps.Clock.Now()
	p.emit(progress.Event{Stage: progress.StageRunStart, Note: fmt.Sprintf("%d-%d", start, end)})
	p.logger.Info("run started", zap.Int("start_year", start), zap.Int("end_year", end))

	var runErr error
	for year := start; year <= end; year++ {
		if err := ctx.Err(); err != nil {
			runErr = err
			break
		}
		yr, err := p.years.CrawlYear(ctx, year)
		summary := YearSummary{
			Year:           year,
			Listed:         yr.Listed,
			Records:        len(yr.Records),
			DetailFailures: len(yr.Failures),
		}
		result.Records = append(result.Records, yr.Records...)
		result.DetailFailures = append(result.DetailFailures, yr.Failures...)

		var listingErr ListingFailure
		switch {
		case err == nil:
		case errors.As(err, &listingErr):
			summary.ListingErr = listingErr
			result.ListingFailures = append(result.ListingFailures, listingErr)
		default:
			runErr = err
		}
		result.Years = append(result.Years, summary)
		if runErr != nil {
			break
		}
	}

	p.emit(progress.Event{
		Stage:    progress.StageRunDone,
		Count:    len(result.Records),
		Failures: result.FailureCount(),
		Dur:      max(p.deps.Clock.Now().Sub(started), 0),
	})
	p.logger.Info("run finished",
		zap.Int("records", len(result.Records)),
		zap.Int("detail_failures", len(result.DetailFailures)),
		zap.Int("listing_failures", len(result.ListingFailures)),
	)
	if runErr != nil {
		return result, fmt.Errorf("run interrupted: %w", runErr)
	}
	return result, nil
}

func (p *Pipeline) emit(evt progress.Event) {
	evt.RunID = p.deps.RunID
	evt.TS = p.deps.Clock.Now()
	p.deps.Progress.Emit(evt)
}
