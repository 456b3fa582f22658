// Package metrics exports live session telemetry to Prometheus.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/vango-go/agriguard-live/pkg/core/live"
)

// Metrics holds all Prometheus metrics for the assistant. It implements
// live.Observer.
type Metrics struct {
	registry *prometheus.Registry

	// Session metrics
	SessionAttempts prometheus.Counter
	SessionsActive  prometheus.Gauge
	SessionsTotal   *prometheus.CounterVec
	SessionDuration prometheus.Histogram

	// Outbound media
	ChunksSent    *prometheus.CounterVec
	BytesSent     *prometheus.CounterVec
	FramesSkipped prometheus.Counter

	// Playback
	BuffersScheduled   prometheus.Counter
	AudioScheduled     prometheus.Counter
	Interruptions      prometheus.Counter
	BuffersInterrupted prometheus.Counter
}

var _ live.Observer = (*Metrics)(nil)

// New creates a Metrics instance on its own registry.
func New(namespace string) *Metrics {
	if namespace == "" {
		namespace = "agriguard"
	}

	registry := prometheus.NewRegistry()

	m := &Metrics{
		registry: registry,
		SessionAttempts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "live_session_attempts_total",
			Help:      "Live sessions started, including ones that never opened",
		}),
		SessionsActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "live_sessions_active",
			Help:      "Number of open live sessions",
		}),
		SessionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "live_sessions_total",
			Help:      "Finished live sessions by end reason",
		}, []string{"reason"}),
		SessionDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "live_session_duration_seconds",
			Help:      "Live session duration in seconds",
			Buckets:   []float64{1, 5, 10, 30, 60, 120, 300, 600},
		}),
		ChunksSent: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "live_chunks_sent_total",
			Help:      "Media chunks handed to the transport",
		}, []string{"kind"}),
		BytesSent: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "live_bytes_sent_total",
			Help:      "Encoded media bytes handed to the transport",
		}, []string{"kind"}),
		FramesSkipped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "live_frames_skipped_total",
			Help:      "Frame ticks skipped because the camera had no size yet",
		}),
		BuffersScheduled: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "live_buffers_scheduled_total",
			Help:      "Synthesized audio buffers scheduled for playback",
		}),
		AudioScheduled: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "live_audio_scheduled_seconds_total",
			Help:      "Seconds of synthesized audio scheduled for playback",
		}),
		Interruptions: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "live_interruptions_total",
			Help:      "Server interruption signals handled",
		}),
		BuffersInterrupted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "live_buffers_interrupted_total",
			Help:      "Playback buffers stopped by interruptions",
		}),
	}

	registry.MustRegister(
		m.SessionAttempts,
		m.SessionsActive,
		m.SessionsTotal,
		m.SessionDuration,
		m.ChunksSent,
		m.BytesSent,
		m.FramesSkipped,
		m.BuffersScheduled,
		m.AudioScheduled,
		m.Interruptions,
		m.BuffersInterrupted,
	)
	return m
}

// Registry returns the registry the metrics are registered on.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler returns an HTTP handler for the metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// SessionStarted implements live.Observer.
func (m *Metrics) SessionStarted(string) {
	m.SessionAttempts.Inc()
}

// SessionOpened implements live.Observer.
func (m *Metrics) SessionOpened(string) {
	m.SessionsActive.Inc()
}

// SessionEnded implements live.Observer.
func (m *Metrics) SessionEnded(summary live.Summary) {
	if summary.Opened {
		m.SessionsActive.Dec()
	}
	m.SessionsTotal.WithLabelValues(string(summary.Reason)).Inc()
	m.SessionDuration.Observe(summary.Duration().Seconds())
}

// ChunkSent implements live.Observer.
func (m *Metrics) ChunkSent(kind string, bytes int) {
	m.ChunksSent.WithLabelValues(kind).Inc()
	if bytes > 0 {
		m.BytesSent.WithLabelValues(kind).Add(float64(bytes))
	}
}

// FrameSkipped implements live.Observer.
func (m *Metrics) FrameSkipped() {
	m.FramesSkipped.Inc()
}

// BufferScheduled implements live.Observer.
func (m *Metrics) BufferScheduled(seconds float64) {
	m.BuffersScheduled.Inc()
	if seconds > 0 {
		m.AudioScheduled.Add(seconds)
	}
}

// Interrupted implements live.Observer.
func (m *Metrics) Interrupted(stopped int) {
	m.Interruptions.Inc()
	if stopped > 0 {
		m.BuffersInterrupted.Add(float64(stopped))
	}
}

// Server serves the metrics endpoint on addr until Shutdown.
func (m *Metrics) Server(addr string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	return &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
}
