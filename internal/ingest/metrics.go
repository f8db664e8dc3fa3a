package ingest

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	cyclesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "oi_ingest_cycles_total",
			Help: "Total number of ingestion cycles by result",
		},
		[]string{"result"},
	)

	cycleDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "oi_ingest_cycle_duration_seconds",
			Help:    "Duration of ingestion cycles in seconds",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 10),
		},
	)

	observationsRecorded = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "oi_observations_recorded_total",
			Help: "Total number of observations recorded into the store",
		},
	)

	observationsRejected = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "oi_observations_rejected_total",
			Help: "Total number of observations rejected as malformed or out of order",
		},
	)

	trackedInstruments = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "oi_tracked_instruments",
			Help: "Number of instruments currently holding data in the store",
		},
	)
)
