// Package metrics holds the Prometheus collectors shared by the CLI and the HTTP server.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "bookrec"

var (
	QueriesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "queries_total",
			Help:      "Total number of similarity queries",
		},
		[]string{"entry", "status"},
	)

	QueryDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "query_duration_seconds",
			Help:      "Similarity query duration in seconds",
			Buckets:   []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
		},
		[]string{"entry"},
	)

	TrainingDuration = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "training_duration_seconds",
			Help:      "Wall time of the last training run",
		},
		[]string{"provider"},
	)

	ModelDocuments = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "model_documents",
			Help:      "Documents in the loaded model",
		},
	)
)

func init() {
	prometheus.MustRegister(QueriesTotal, QueryDuration, TrainingDuration, ModelDocuments)
	prometheus.MustRegister(httpRequestDuration, httpRequestsTotal)
}

// ObserveQuery records one query for entry. A nil err counts as "ok".
func ObserveQuery(entry string, start time.Time, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	QueriesTotal.WithLabelValues(entry, status).Inc()
	QueryDuration.WithLabelValues(entry).Observe(time.Since(start).Seconds())
}
