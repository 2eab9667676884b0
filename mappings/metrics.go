package mappings

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.opentelemetry.io/otel"
)

var (
	// differentiateTotal counts differentiations by mode and outcome
	differentiateTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "depview_differentiate_total",
		Help: "Total delta differentiations by mode and outcome",
	}, []string{"mode", "outcome"})

	// affectedFiles tracks the number of extra files scheduled per incremental round
	affectedFiles = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "depview_affected_files",
		Help:    "Number of additional files to recompile per incremental differentiation",
		Buckets: []float64{0, 1, 5, 10, 50, 100, 500, 1000},
	})

	// integrateDuration tracks delta integration latency
	integrateDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "depview_integrate_duration_seconds",
		Help:    "Delta integration duration in seconds",
		Buckets: prometheus.ExponentialBuckets(0.001, 2, 14),
	})

	// constantQueries counts constant affection lookups by result
	constantQueries = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "depview_constant_queries_total",
		Help: "Total constant affection lookups by result",
	}, []string{"result"})

	tracer = otel.Tracer("depview.mappings")
)

const (
	modeRebuild        = "rebuild"
	modeNonIncremental = "non_incremental"
	modeIncremental    = "incremental"
)
