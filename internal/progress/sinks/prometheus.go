package sinks

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/JakeFAU/boxoffice-crawler/internal/progress"
)

// PrometheusSink exports pipeline progress: years, movies and per-year runtime.
type PrometheusSink struct {
	runsStarted    prometheus.Counter
	yearsCompleted *prometheus.CounterVec
	yearRuntime    *prometheus.HistogramVec
	moviesTotal    *prometheus.CounterVec
	detailBytes    prometheus.Counter
	detailDuration prometheus.Histogram
	currentYear    prometheus.Gauge
}

// NewPrometheusSink registers the collectors against the provided registry.
func NewPrometheusSink(reg prometheus.Registerer) (*PrometheusSink, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	s := &PrometheusSink{
		runsStarted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "boxoffice_runs_started_total",
			Help: "Pipeline runs started.",
		}),
		yearsCompleted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "boxoffice_years_completed_total",
			Help: "Years finished, partitioned by result (success or listing_error).",
		}, []string{"result"}),
		yearRuntime: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "boxoffice_year_runtime_seconds",
			Help:    "Wall time per crawled year.",
			Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600, 1200},
		}, []string{"result"}),
		moviesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "boxoffice_movies_total",
			Help: "Movie detail extractions, partitioned by result.",
		}, []string{"result"}),
		detailBytes: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "boxoffice_detail_bytes_total",
			Help: "Bytes of detail pages extracted.",
		}),
		detailDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "boxoffice_detail_duration_seconds",
			Help:    "Fetch plus extraction time per movie.",
			Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60},
		}),
		currentYear: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "boxoffice_current_year",
			Help: "Release year currently being crawled.",
		}),
	}
	for _, collector := range []prometheus.Collector{
		s.runsStarted,
		s.yearsCompleted,
		s.yearRuntime,
		s.moviesTotal,
		s.detailBytes,
		s.detailDuration,
		s.currentYear,
	} {
		if err := reg.Register(collector); err != nil {
			return nil, fmt.Errorf("register progress collector: %w", err)
		}
	}
	return s, nil
}

// Consume updates the collectors from the batch.
func (s *PrometheusSink) Consume(_ context.Context, batch []progress.Event) error {
	for _, evt := range batch {
		s.consumeEvent(evt)
	}
	return nil
}

func (s *PrometheusSink) consumeEvent(evt progress.Event) {
	switch evt.Stage {
	case progress.StageRunStart:
		s.runsStarted.Inc()
	case progress.StageYearStart:
		s.currentYear.Set(float64(evt.Year))
	case progress.StageYearDone:
		s.observeYear(evt, "success")
	case progress.StageYearError:
		s.observeYear(evt, "listing_error")
	case progress.StageMovieDone:
		s.moviesTotal.WithLabelValues("success").Inc()
		if evt.Bytes > 0 {
			s.detailBytes.Add(float64(evt.Bytes))
		}
		if evt.Dur > 0 {
			s.detailDuration.Observe(evt.Dur.Seconds())
		}
	case progress.StageMovieError:
		s.moviesTotal.WithLabelValues("error").Inc()
	}
}

func (s *PrometheusSink) observeYear(evt progress.Event, result string) {
	s.yearsCompleted.WithLabelValues(result).Inc()
	if evt.Dur > 0 {
		s.yearRuntime.WithLabelValues(result).Observe(evt.Dur.Seconds())
	}
}

// Close implements the Sink interface; it performs no action.
func (s *PrometheusSink) Close(context.Context) error {
	return nil
}
