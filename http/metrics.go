package http

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	httpRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "anemia_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "route", "status"},
	)

	httpLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "anemia_http_request_duration_seconds",
			Help:    "HTTP request latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	// predictionsTotal counts prediction outcomes: anemia, no_anemia,
	// invalid or error.
	predictionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "anemia_predictions_total",
			Help: "Total number of predictions by outcome",
		},
		[]string{"outcome"},
	)

	predictionProbability = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "anemia_prediction_probability",
			Help:    "Distribution of the predicted anemia probability",
			Buckets: prometheus.LinearBuckets(0, 0.1, 11),
		},
	)

	cacheLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "anemia_prediction_cache_lookups_total",
			Help: "Prediction cache lookups by result",
		},
		[]string{"result"},
	)
)
