package analysis

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	outcomeReady         = "ready"
	outcomeGeometryError = "geometry_error"
	outcomeSuperseded    = "superseded"
	outcomeIgnored       = "ignored"
	outcomeCancelled     = "cancelled"
)

var (
	// analysisRuns counts selections by how they ended.
	analysisRuns = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "opintel",
		Subsystem: "analysis",
		Name:      "runs_total",
		Help:      "Analysis runs by outcome",
	}, []string{"outcome"})

	analysisDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "opintel",
		Subsystem: "analysis",
		Name:      "duration_seconds",
		Help:      "Time from selection to committed result",
		Buckets:   []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
	})

	featuresTested = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "opintel",
		Name:      "features_tested_total",
		Help:      "Features tested against impact buffers",
	})

	featuresSkipped = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "opintel",
		Name:      "features_skipped_total",
		Help:      "Features left out of an analysis because of invalid geometry",
	})
)
