package crawler

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/JakeFAU/boxoffice-crawler/internal/extract"
	"github.com/JakeFAU/boxoffice-crawler/internal/movie"
	"github.com/JakeFAU/boxoffice-crawler/internal/progress"
)

// DefaultMaxConcurrency bounds in-flight detail fetches per year.
const DefaultMaxConcurrency = 100

// YearConfig controls one year's crawl.
type YearConfig struct {
	BaseURL        string
	MaxConcurrency int
}

// Deps carries the collaborators shared by YearCrawler and Pipeline. Only
// Fetcher is required by the YearCrawler.
type Deps struct {
	Fetcher  Fetcher
	Archive  BlobStore
	Hasher   Hasher
	Clock    Clock
	Progress progress.Emitter
	Logger   *zap.Logger
	RunID    [16]byte
}

func (d Deps) withDefaults() Deps {
	if d.Clock == nil {
		d.Clock = utcClock{}
	}
	if d.Progress == nil {
		d.Progress = progress.NopEmitter{}
	}
	if d.Logger == nil {
		d.Logger = zap.NewNop()
	}
	return d
}

type utcClock struct{}

func (utcClock) Now() time.Time { return time.Now().UTC() }

// YearResult is the outcome of one year. Records are in completion order.
type YearResult struct {
	Year     int
	Listed   int
	Records  []movie.Record
	Failures []DetailFailure
}

// YearCrawler fetches a year's listing and fans out over its detail pages.
type YearCrawler struct {
	cfg     YearConfig
	deps    Deps
	archive *archiver
	logger  *zap.Logger
}

// NewYearCrawler validates cfg and returns a ready crawler.
func NewYearCrawler(cfg YearConfig, deps Deps) (*YearCrawler, error) {
	if deps.Fetcher == nil {
		return nil, errors.New("fetcher is required")
	}
	if strings.TrimSpace(cfg.BaseURL) == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.MaxConcurrency <= 0 {
		cfg.MaxConcurrency = DefaultMaxConcurrency
	}
	deps = deps.withDefaults()
	logger := deps.Logger.Named("year_crawler")
	return &YearCrawler{
		cfg:     cfg,
		deps:    deps,
		archive: newArchiver(deps.Archive, deps.Hasher, logger),
		logger:  logger,
	}, nil
}

// CrawlYear fetches the listing for year and extracts every listed movie
// with at most MaxConcurrency detail fetches in flight. A listing failure is
// returned as ListingFailure; detail failures are reported in the result.
// When ctx is cancelled the partial result is returned with ctx's error.
func (c *YearCrawler) CrawlYear(ctx context.Context, year int) (YearResult, error) {
	result := YearResult{Year: year}
	logger := c.logger.With(zap.Int("year", year))
	started := c.deps.Clock.Now()

	listingURL := ListingURL(c.cfg.BaseURL, year)
	listing, err := c.fetchListing(ctx, year, listingURL)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return result, ctxErr
		}
		failure := ListingFailure{Year: year, URL: listingURL, Err: err}
		logger.Error("listing fetch failed", zap.String("url", listingURL), zap.Error(err))
		c.emit(progress.Event{
			Stage: progress.StageYearError,
			Year:  year,
			URL:   listingURL,
			Dur:   c.since(started),
			Note:  err.Error(),
		})
		return result, failure
	}

	links := listing.Links()
	result.Listed = len(links)
	c.emit(progress.Event{Stage: progress.StageYearStart, Year: year, URL: listingURL, Count: len(links)})
	logger.Info("listing parsed", zap.Int("movies", len(links)))

	var (
		mu sync.Mutex
		g  errgroup.Group
	)
	g.SetLimit(c.cfg.MaxConcurrency)
	for _, link := range links {
		if ctx.Err() != nil {
			break
		}
		g.Go(func() error {
			rec, failure := c.crawlMovie(ctx, year, link)
			mu.Lock()
			defer mu.Unlock()
			if failure != nil {
				result.Failures = append(result.Failures, *failure)
				return nil
			}
			result.Records = append(result.Records, rec)
			return nil
		})
	}
	// Tasks never return errors; failures are captured per movie.
	_ = g.Wait()

	dur := c.since(started)
	c.emit(progress.Event{
		Stage:    progress.StageYearDone,
		Year:     year,
		URL:      listingURL,
		Count:    len(result.Records),
		Failures: len(result.Failures),
		Dur:      dur,
	})
	logger.Info("year complete",
		zap.Int("listed", result.Listed),
		zap.Int("records", len(result.Records)),
		zap.Int("failures", len(result.Failures)),
		zap.Duration("dur", dur),
	)
	if err := ctx.Err(); err != nil {
		return result, err
	}
	return result, nil
}

func (c *YearCrawler) fetchListing(ctx context.Context, year int, listingURL string) (*movie.Listing, error) {
	body, err := c.deps.Fetcher.Fetch(ctx, listingURL)
	if err != nil {
		return nil, err
	}
	doc, err := extract.Parse(body)
	if err != nil {
		return nil, fmt.Errorf("parse listing: %w", err)
	}
	c.archive.save(ctx, year, listingURL, body)
	return extract.Listing(doc), nil
}

func (c *YearCrawler) crawlMovie(ctx context.Context, year int, link movie.Link) (movie.Record, *DetailFailure) {
	detailURL := DetailURL(c.cfg.BaseURL, link.DetailPath)
	started := c.deps.Clock.Now()

	fail := func(err error) (movie.Record, *DetailFailure) {
		c.logger.Warn("movie failed",
			zap.Int("year", year),
			zap.String("title", link.Title),
			zap.String("url", detailURL),
			zap.Error(err),
		)
		c.emit(progress.Event{
			Stage: progress.StageMovieError,
			Year:  year,
			Title: link.Title,
			URL:   detailURL,
			Dur:   c.since(started),
			Note:  err.Error(),
		})
		return movie.Record{}, &DetailFailure{Year: year, Title: link.Title, URL: detailURL, Err: err}
	}

	body, err := c.deps.Fetcher.Fetch(ctx, detailURL)
	if err != nil {
		return fail(err)
	}
	doc, err := extract.Parse(body)
	if err != nil {
		return fail(fmt.Errorf("parse detail: %w", err))
	}
	rec := extract.Details(doc)
	rec.MovieURL = detailURL
	rec.MovieTitle = link.Title
	c.archive.save(ctx, year, detailURL, body)

	c.emit(progress.Event{
		Stage: progress.StageMovieDone,
		Year:  year,
		Title: link.Title,
		URL:   detailURL,
		Bytes: int64(len(body)),
		Dur:   c.since(started),
	})
	return rec, nil
}

func (c *YearCrawler) emit(evt progress.Event) {
	evt.RunID = c.deps.RunID
	evt.TS = c.deps.Clock.Now()
	c.deps.Progress.Emit(evt)
}

func (c *YearCrawler) since(start time.Time) time.Duration {
	d := c.deps.Clock.Now().Sub(start)
	if d < 0 {
		return 0
	}
	return d
}
