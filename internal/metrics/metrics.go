// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package metrics registers the recommender's Prometheus instruments.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Pipeline
	StageDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "recommender_stage_duration_seconds",
			Help:    "Duration of recommendation pipeline stages in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"stage"},
	)

	StageErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "recommender_stage_errors_total",
			Help: "Total number of pipeline stage failures",
		},
		[]string{"stage", "kind"},
	)

	RunOutcomes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "recommender_runs_total",
			Help: "Total number of pipeline runs by terminal event",
		},
		[]string{"outcome"}, // "papers", "out_of_scope", "no_results", "error"
	)

	QCDecisions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "recommender_qc_decisions_total",
			Help: "Total number of QC decisions by label",
		},
		[]string{"decision"},
	)

	Replacements = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "recommender_replacements_total",
			Help: "Total number of rating-triggered replacement searches by status",
		},
		[]string{"status"},
	)

	// Upstream services
	UpstreamRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "recommender_upstream_requests_total",
			Help: "Total number of upstream requests by service and result",
		},
		[]string{"service", "result"}, // result: "success", "failure", "rejected"
	)

	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "recommender_circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	// HTTP transport
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "recommender_http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route", "status"},
	)

	ActiveStreams = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "recommender_active_streams",
			Help: "Current number of open event streams",
		},
	)
)

// ObserveStage records the time elapsed since start for stage.
func ObserveStage(stage string, start time.Time) {
	StageDuration.WithLabelValues(stage).Observe(time.Since(start).Seconds())
}

// Handler serves the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
