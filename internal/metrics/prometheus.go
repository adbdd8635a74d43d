package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics contains all Prometheus metrics for the dictation service.
type Metrics struct {
	// Audio ingestion
	FramesAccepted prometheus.Counter
	FramesDropped  prometheus.Counter

	// Transcription
	TranscriptionRequests prometheus.Counter
	TranscriptionFailures prometheus.Counter
	TranscriptionDuration prometheus.Histogram

	// Command grammar
	Actions *prometheus.CounterVec

	// Relay
	RelayDeliveries prometheus.Counter
	RelayFailures   prometheus.Counter
}

// NewMetrics creates and registers all metrics with the default registry.
func NewMetrics() *Metrics {
	return &Metrics{
		FramesAccepted: promauto.NewCounter(prometheus.CounterOpts{
			Name: "kirovoice_frames_accepted_total",
			Help: "Total number of audio frames forwarded to the transcription backend",
		}),
		FramesDropped: promauto.NewCounter(prometheus.CounterOpts{
			Name: "kirovoice_frames_dropped_total",
			Help: "Total number of audio frames dropped while muted or shutting down",
		}),
		TranscriptionRequests: promauto.NewCounter(prometheus.CounterOpts{
			Name: "kirovoice_transcription_requests_total",
			Help: "Total number of recognition requests submitted",
		}),
		TranscriptionFailures: promauto.NewCounter(prometheus.CounterOpts{
			Name: "kirovoice_transcription_failures_total",
			Help: "Total number of failed recognition requests",
		}),
		TranscriptionDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "kirovoice_transcription_duration_seconds",
			Help:    "Duration of recognition requests",
			Buckets: prometheus.ExponentialBuckets(0.05, 2, 10), // 50ms to ~25s
		}),
		Actions: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "kirovoice_actions_total",
			Help: "Total number of classified transcript actions",
		}, []string{"kind"}),
		RelayDeliveries: promauto.NewCounter(prometheus.CounterOpts{
			Name: "kirovoice_relay_deliveries_total",
			Help: "Total number of buffers delivered to the tmux target",
		}),
		RelayFailures: promauto.NewCounter(prometheus.CounterOpts{
			Name: "kirovoice_relay_failures_total",
			Help: "Total number of failed relay deliveries",
		}),
	}
}

// RecordFrameAccepted increments the accepted frames counter.
func (m *Metrics) RecordFrameAccepted() {
	m.FramesAccepted.Inc()
}

// RecordFrameDropped increments the dropped frames counter.
func (m *Metrics) RecordFrameDropped() {
	m.FramesDropped.Inc()
}

// RecordTranscription records one recognition request and its outcome.
func (m *Metrics) RecordTranscription(durationSeconds float64, err error) {
	m.TranscriptionRequests.Inc()
	m.TranscriptionDuration.Observe(durationSeconds)
	if err != nil {
		m.TranscriptionFailures.Inc()
	}
}

// RecordAction counts a classified action by kind.
func (m *Metrics) RecordAction(kind string) {
	m.Actions.WithLabelValues(kind).Inc()
}

// RecordRelayDelivery increments the relay deliveries counter.
func (m *Metrics) RecordRelayDelivery() {
	m.RelayDeliveries.Inc()
}

// RecordRelayFailure increments the relay failures counter.
func (m *Metrics) RecordRelayFailure() {
	m.RelayFailures.Inc()
}
