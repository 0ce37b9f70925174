package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	HTTPRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "trackstream",
		Name:      "http_requests_total",
		Help:      "Total HTTP requests by method, path and status code.",
	}, []string{"method", "path", "status"})

	HTTPRequestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "trackstream",
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request duration in seconds.",
		Buckets:   []float64{0.05, 0.1, 0.3, 0.5, 1, 2, 5, 10, 30},
	}, []string{"method", "path"})

	ActiveSessions = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "trackstream",
		Name:      "active_sessions",
		Help:      "Number of track sessions currently held by the manager.",
	})

	StreamsCreatedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "trackstream",
		Name:      "streams_created_total",
		Help:      "Total number of byte-range streams created.",
	})

	StreamsReusedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "trackstream",
		Name:      "streams_reused_total",
		Help:      "Total number of range requests served by an existing stream.",
	})

	StreamAcquireFailuresTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "trackstream",
		Name:      "stream_acquire_failures_total",
		Help:      "Total number of stream acquisitions failed for lack of a stream source.",
	})

	RateLimitActivationsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "trackstream",
		Name:      "rate_limit_activations_total",
		Help:      "Total number of times a whole-track stream was paused in favor of priority streams.",
	})

	PlaybackStartedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "trackstream",
		Name:      "playback_started_total",
		Help:      "Total number of playback sessions started.",
	})

	PlaybackEndedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "trackstream",
		Name:      "playback_ended_total",
		Help:      "Total number of playback sessions ended.",
	})

	StreamBytesServedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "trackstream",
		Name:      "stream_bytes_served_total",
		Help:      "Total bytes copied from stream buffers to HTTP clients.",
	})

	SetupDurationSeconds = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "trackstream",
		Name:      "setup_duration_seconds",
		Help:      "Duration of session setup (metadata fetch plus source resolution).",
		Buckets:   []float64{0.05, 0.1, 0.3, 0.5, 1, 2, 5, 10},
	})
)

func Register(reg prometheus.Registerer) {
	reg.MustRegister(
		HTTPRequestsTotal,
		HTTPRequestDuration,
		ActiveSessions,
		StreamsCreatedTotal,
		StreamsReusedTotal,
		StreamAcquireFailuresTotal,
		RateLimitActivationsTotal,
		PlaybackStartedTotal,
		PlaybackEndedTotal,
		StreamBytesServedTotal,
		SetupDurationSeconds,
	)
}
