// Package metrics holds the prometheus collectors exposed on /metrics.
// Every name carries the streamgrab_ prefix.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// HTTP metrics
var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "streamgrab_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "route", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "streamgrab_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: []float64{0.05, 0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 300, 900},
		},
		[]string{"method", "route"},
	)

	HTTPRequestsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "streamgrab_http_requests_in_flight",
			Help: "Number of HTTP requests currently being processed",
		},
	)
)

// Extraction metrics
var (
	ExtractionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "streamgrab_extractions_total",
			Help: "Total number of metadata extractions by outcome",
		},
		[]string{"outcome"},
	)

	ExtractionDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "streamgrab_extraction_duration_seconds",
			Help:    "Metadata extraction duration in seconds",
			Buckets: []float64{0.25, 0.5, 1, 2, 4, 8, 15, 30, 60},
		},
		[]string{"outcome"},
	)
)

// Relay metrics
var (
	RelayProcessesActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "streamgrab_relay_processes_active",
			Help: "Number of transcoder processes currently running",
		},
	)

	RelayOutcomesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "streamgrab_relay_outcomes_total",
			Help: "Relays by terminal state and output kind",
		},
		[]string{"state", "kind"},
	)

	RelayBytesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "streamgrab_relay_bytes_total",
			Help: "Bytes relayed from transcoder stdout",
		},
		[]string{"kind"},
	)
)

// Outcome label values shared by extraction metrics.
const (
	OutcomeSuccess = "success"
	OutcomeError   = "error"
	OutcomeTimeout = "timeout"
)
