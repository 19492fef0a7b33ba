// Package app builds the long-lived services of a crawl run from
// configuration and drives the run end to end.
package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"cloud.google.com/go/pubsub"
	"cloud.google.com/go/storage"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/JakeFAU/boxoffice-crawler/internal/clock/system"
	"github.com/JakeFAU/boxoffice-crawler/internal/config"
	"github.com/JakeFAU/boxoffice-crawler/internal/crawler"
	"github.com/JakeFAU/boxoffice-crawler/internal/export"
	collyfetcher "github.com/JakeFAU/boxoffice-crawler/internal/fetcher/colly"
	"github.com/JakeFAU/boxoffice-crawler/internal/hash/sha256"
	idgen "github.com/JakeFAU/boxoffice-crawler/internal/id/uuid"
	"github.com/JakeFAU/boxoffice-crawler/internal/movie"
	"github.com/JakeFAU/boxoffice-crawler/internal/policy/ratelimit"
	"github.com/JakeFAU/boxoffice-crawler/internal/progress"
	"github.com/JakeFAU/boxoffice-crawler/internal/progress/sinks"
	"github.com/JakeFAU/boxoffice-crawler/internal/publisher"
	gcppublisher "github.com/JakeFAU/boxoffice-crawler/internal/publisher/pubsub"
	"github.com/JakeFAU/boxoffice-crawler/internal/server"
	gcsstorage "github.com/JakeFAU/boxoffice-crawler/internal/storage/gcs"
	localstorage "github.com/JakeFAU/boxoffice-crawler/internal/storage/local"
	pgstore "github.com/JakeFAU/boxoffice-crawler/internal/storage/postgres"
)

// finalizeTimeout bounds the post-crawl steps, which run even after the
// crawl itself was interrupted.
const finalizeTimeout = 2 * time.Minute

// MovieStore persists the run's records.
type MovieStore interface {
	Upsert(ctx context.Context, runID uuid.UUID, records []movie.Record) error
}

// Services are the collaborators of a run. Only Fetcher is required.
type Services struct {
	Fetcher   crawler.Fetcher
	Archive   crawler.BlobStore
	Upload    crawler.BlobStore
	Movies    MovieStore
	Runs      sinks.RunRecorder
	Publisher publisher.Publisher
	Clock     crawler.Clock
	// Registerer receives the progress collectors; nil skips the Prometheus sink.
	Registerer prometheus.Registerer
}

// Report summarizes a finished run.
type Report struct {
	RunID     uuid.UUID
	Result    crawler.Result
	CSV       export.Stats
	UploadURI string
	MessageID string
}

// App owns every service of one run.
type App struct {
	cfg      config.Config
	logger   *zap.Logger
	svc      Services
	runID    uuid.UUID
	hub      *progress.Hub
	status   *sinks.StatusSink
	pipeline *crawler.Pipeline
	closers  []func()
}

// New connects the services enabled in cfg and returns a ready App.
func New(ctx context.Context, cfg config.Config, logger *zap.Logger) (*App, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	var (
		svc     Services
		closers []func()
		err     error
	)
	closeAll := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	svc.Fetcher, err = collyfetcher.New(collyfetcher.Config{
		UserAgent:      cfg.HTTP.UserAgent,
		Timeout:        cfg.HTTP.Timeout(),
		MaxConcurrency: cfg.Crawl.MaxConcurrency,
		RespectRobots:  cfg.HTTP.RespectRobots,
		Retry: collyfetcher.RetryConfig{
			MaxRetries:    cfg.HTTP.MaxRetries,
			BackoffFactor: cfg.HTTP.BackoffFactor(),
			MaxBackoff:    cfg.HTTP.BackoffMax(),
			Jitter:        250 * time.Millisecond,
			Statuses:      cfg.HTTP.RetryStatuses,
		},
	}, ratelimit.New(ratelimit.Config{RequestsPerSecond: cfg.HTTP.RequestsPerSecond}), logger)
	if err != nil {
		return nil, fmt.Errorf("init fetcher: %w", err)
	}

	var gcsClient *storage.Client
	if cfg.Archive.GCSBucket != "" || cfg.Output.GCSBucket != "" {
		gcsClient, err = storage.NewClient(ctx)
		if err != nil {
			return nil, fmt.Errorf("init gcs client: %w", err)
		}
		closers = append(closers, func() { _ = gcsClient.Close() })
	}

	switch {
	case cfg.Archive.Dir != "":
		store, err := localstorage.New(cfg.Archive.Dir)
		if err != nil {
			closeAll()
			return nil, fmt.Errorf("init archive: %w", err)
		}
		svc.Archive = store
	case cfg.Archive.GCSBucket != "":
		store, err := gcsstorage.New(gcsClient, gcsstorage.Config{
			Bucket: cfg.Archive.GCSBucket,
			Prefix: cfg.Archive.GCSPrefix,
		})
		if err != nil {
			closeAll()
			return nil, fmt.Errorf("init archive: %w", err)
		}
		svc.Archive = store
	}

	if cfg.Output.GCSBucket != "" {
		store, err := gcsstorage.New(gcsClient, gcsstorage.Config{Bucket: cfg.Output.GCSBucket})
		if err != nil {
			closeAll()
			return nil, fmt.Errorf("init csv upload: %w", err)
		}
		svc.Upload = store
	}

	if cfg.DB.DSN != "" {
		pool, err := pgstore.Connect(ctx, pgstore.PoolConfig{DSN: cfg.DB.DSN, MaxConns: cfg.DB.MaxConns})
		if err != nil {
			closeAll()
			return nil, err
		}
		closers = append(closers, pool.Close)
		movies, err := pgstore.NewMovieStore(pool, cfg.DB.Table)
		if err != nil {
			closeAll()
			return nil, err
		}
		runs, err := pgstore.NewRunStore(pool, cfg.DB.RunTable)
		if err != nil {
			closeAll()
			return nil, err
		}
		if err := movies.EnsureSchema(ctx); err != nil {
			closeAll()
			return nil, err
		}
		if err := runs.EnsureSchema(ctx); err != nil {
			closeAll()
			return nil, err
		}
		svc.Movies, svc.Runs = movies, runs
	}

	if cfg.PubSub.TopicName != "" {
		client, err := pubsub.NewClient(ctx, cfg.PubSub.ProjectID)
		if err != nil {
			closeAll()
			return nil, fmt.Errorf("init pubsub client: %w", err)
		}
		closers = append(closers, func() { _ = client.Close() })
		pub, err := gcppublisher.New(client, cfg.PubSub.TopicName)
		if err != nil {
			closeAll()
			return nil, err
		}
		closers = append(closers, pub.Stop)
		svc.Publisher = pub
	}

	svc.Clock = system.New()
	svc.Registerer = prometheus.DefaultRegisterer

	a, err := NewWithServices(cfg, logger, svc)
	if err != nil {
		closeAll()
		return nil, err
	}
	a.closers = closers
	return a, nil
}

// NewWithServices builds an App around caller-supplied services.
func NewWithServices(cfg config.Config, logger *zap.Logger, svc Services) (*App, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if svc.Fetcher == nil {
		return nil, errors.New("fetcher is required")
	}
	if svc.Clock == nil {
		svc.Clock = system.New()
	}
	runID, err := idgen.NewGenerator().NewRunID()
	if err != nil {
		return nil, err
	}

	status := sinks.NewStatusSink()
	sinkList := []progress.Sink{sinks.NewLogSink(logger.Named("progress")), status}
	if svc.Registerer != nil {
		promSink, err := sinks.NewPrometheusSink(svc.Registerer)
		if err != nil {
			return nil, err
		}
		sinkList = append(sinkList, promSink)
	}
	if svc.Runs != nil {
		sinkList = append(sinkList, sinks.NewStoreSink(svc.Runs))
	}
	hub := progress.NewHub(progress.Config{Logger: logger}, sinkList...)

	deps := crawler.Deps{
		Fetcher:  svc.Fetcher,
		Archive:  svc.Archive,
		Hasher:   sha256.New(),
		Clock:    svc.Clock,
		Progress: hub,
		Logger:   logger,
		RunID:    progress.UUIDToBytes(runID),
	}
	years, err := crawler.NewYearCrawler(crawler.YearConfig{
		BaseURL:        cfg.Crawl.BaseURL,
		MaxConcurrency: cfg.Crawl.MaxConcurrency,
	}, deps)
	if err != nil {
		return nil, err
	}
	pipeline, err := crawler.NewPipeline(years, deps)
	if err != nil {
		return nil, err
	}

	return &App{
		cfg:      cfg,
		logger:   logger.With(zap.String("run_id", runID.String())),
		svc:      svc,
		runID:    runID,
		hub:      hub,
		status:   status,
		pipeline: pipeline,
	}, nil
}

// RunID identifies this App's run.
func (a *App) RunID() uuid.UUID { return a.runID }

// Status exposes the live snapshot for the observability server.
func (a *App) Status() *sinks.StatusSink { return a.status }

// Run crawls the configured year range, writes the CSV and then fans the
// result out to the optional outputs. Records gathered before an
// interruption are still written.
func (a *App) Run(ctx context.Context) (Report, error) {
	report := Report{RunID: a.runID}

	if addr := a.cfg.Metrics.ListenAddr; addr != "" {
		srvCtx, stopServer := context.WithCancel(ctx)
		defer stopServer()
		srv := server.New(a.status, a.logger)
		go func() {
			if err := srv.ListenAndServe(srvCtx, addr); err != nil {
				a.logger.Error("observability server failed", zap.Error(err))
			}
		}()
	}

	result, runErr := a.pipeline.Run(ctx, a.cfg.Crawl.StartYear, a.cfg.Crawl.EndYear)
	report.Result = result
	a.logYears(result)

	finalCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), finalizeTimeout)
	defer cancel()

	var errs []error
	if runErr != nil {
		errs = append(errs, runErr)
	}
	if errors.Is(runErr, crawler.ErrInvalidYearRange) {
		a.closeHub(finalCtx)
		return report, runErr
	}

	stats, err := export.WriteFile(a.cfg.Output.Path, result.Records, export.Options{Dedupe: a.cfg.Output.Dedupe})
	if err != nil {
		errs = append(errs, fmt.Errorf("write csv: %w", err))
	} else {
		report.CSV = stats
		a.logger.Info("csv written",
			zap.String("path", stats.Path),
			zap.Int("rows", stats.Rows),
			zap.Int("duplicates", stats.Skipped),
		)
		if a.svc.Upload != nil {
			uri, err := a.upload(finalCtx, stats.Path)
			if err != nil {
				errs = append(errs, err)
			}
			report.UploadURI = uri
		}
	}

	if a.svc.Movies != nil {
		if err := a.svc.Movies.Upsert(finalCtx, a.runID, result.Records); err != nil {
			errs = append(errs, fmt.Errorf("store records: %w", err))
		}
	}

	// The hub is drained before notifying so run bookkeeping is complete.
	a.closeHub(finalCtx)

	if a.svc.Publisher != nil {
		output := report.UploadURI
		if output == "" {
			output = a.cfg.Output.Path
		}
		id, err := a.svc.Publisher.Publish(finalCtx, publisher.RunNotification{
			RunID:           a.runID.String(),
			StartYear:       a.cfg.Crawl.StartYear,
			EndYear:         a.cfg.Crawl.EndYear,
			Records:         report.CSV.Rows,
			DetailFailures:  len(result.DetailFailures),
			ListingFailures: len(result.ListingFailures),
			Output:          output,
			FinishedAt:      a.svc.Clock.Now(),
		})
		if err != nil {
			errs = append(errs, fmt.Errorf("publish notification: %w", err))
		}
		report.MessageID = id
	}

	return report, errors.Join(errs...)
}

func (a *App) upload(ctx context.Context, path string) (string, error) {
	// #nosec G304 -- path is the CSV this process just wrote.
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("open csv for upload: %w", err)
	}
	defer f.Close()
	uri, err := a.svc.Upload.PutObject(ctx, a.cfg.Output.OutputObject(), "text/csv", f)
	if err != nil {
		return "", fmt.Errorf("upload csv: %w", err)
	}
	a.logger.Info("csv uploaded", zap.String("uri", uri))
	return uri, nil
}

func (a *App) logYears(result crawler.Result) {
	for _, y := range result.Years {
		fields := []zap.Field{
			zap.Int("year", y.Year),
			zap.Int("listed", y.Listed),
			zap.Int("records", y.Records),
			zap.Int("failures", y.DetailFailures),
		}
		if y.ListingErr != nil {
			a.logger.Warn("year skipped", append(fields, zap.Error(y.ListingErr))...)
			continue
		}
		a.logger.Info("year summary", fields...)
	}
}

func (a *App) closeHub(ctx context.Context) {
	if err := a.hub.Close(ctx); err != nil {
		a.logger.Warn("progress hub close failed", zap.Error(err))
	}
}

// Close releases every client opened by New. It is safe to call after Run.
func (a *App) Close() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	a.closeHub(ctx)
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
	_ = a.logger.Sync()
}
