package transcribe

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/donnieprakoso/kiro-voice/internal/audio"
	"github.com/donnieprakoso/kiro-voice/internal/metrics"
	"github.com/donnieprakoso/kiro-voice/internal/vad"
)

// Recognizer turns one window of normalized samples into text. Implemented
// by Client; tests substitute fakes.
type Recognizer interface {
	Recognize(ctx context.Context, samples []float32, sampleRate int) (string, error)
}

// WindowedConfig contains windowed backend configuration.
type WindowedConfig struct {
	SampleRate    int
	WindowSeconds float64 // ring capacity, default 5
	MinSeconds    float64 // minimum audio before a recognizer call, default 1
}

// Windowed accumulates samples in a fixed-capacity ring and, once at least
// MinSeconds of audio is buffered, drains the whole window and submits it
// synchronously to the recognizer. Oldest samples are evicted on overflow.
type Windowed struct {
	recognizer Recognizer
	gate       *vad.Gate
	logger     *slog.Logger
	metrics    *metrics.Metrics // may be nil
	sampleRate int
	minSamples int

	mu   sync.Mutex
	ring *audio.Ring
}

// NewWindowed creates a windowed backend. The gate may be nil to disable
// client-side silence filtering.
func NewWindowed(config WindowedConfig, recognizer Recognizer, gate *vad.Gate, logger *slog.Logger) *Windowed {
	if config.SampleRate <= 0 {
		config.SampleRate = audio.DefaultSampleRate
	}
	if config.WindowSeconds <= 0 {
		config.WindowSeconds = 5
	}
	if config.MinSeconds <= 0 {
		config.MinSeconds = 1
	}

	return &Windowed{
		recognizer: recognizer,
		gate:       gate,
		logger:     logger,
		sampleRate: config.SampleRate,
		minSamples: int(config.MinSeconds * float64(config.SampleRate)),
		ring:       audio.NewRing(int(config.WindowSeconds * float64(config.SampleRate))),
	}
}

// SetMetrics attaches Prometheus instrumentation for recognition calls.
func (w *Windowed) SetMetrics(m *metrics.Metrics) {
	w.metrics = m
}

// Start is a no-op; the windowed backend holds no background resources.
func (w *Windowed) Start() error {
	return nil
}

// Stop discards buffered audio. Safe to call repeatedly.
func (w *Windowed) Stop() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.ring.Reset()
	return nil
}

// AcceptFrame appends samples to the window, evicting the oldest on overflow.
func (w *Windowed) AcceptFrame(samples []float32) {
	w.mu.Lock()
	evicted := w.ring.Write(samples)
	w.mu.Unlock()

	if evicted > 0 {
		w.logger.Debug("Window full, evicted oldest samples", slog.Int("evicted", evicted))
	}
}

// PollText returns finalized text for the buffered window, or empty when less
// than the minimum audio is available. The whole window is drained before the
// recognizer call, so audio arriving during recognition lands in a fresh
// window.
func (w *Windowed) PollText() string {
	w.mu.Lock()
	if w.ring.Len() < w.minSamples {
		w.mu.Unlock()
		return ""
	}
	samples := w.ring.Drain()
	w.mu.Unlock()

	if w.gate != nil && !w.gate.HasVoice(samples) {
		w.logger.Debug("Window skipped, no voice energy", slog.Int("samples", len(samples)))
		return ""
	}

	start := time.Now()
	text, err := w.recognizer.Recognize(context.Background(), samples, w.sampleRate)
	if w.metrics != nil {
		w.metrics.RecordTranscription(time.Since(start).Seconds(), err)
	}
	if err != nil {
		w.logger.Error("Recognition failed", slog.String("error", err.Error()))
		return ""
	}
	if text != "" {
		w.logger.Debug("Window transcribed",
			slog.Int("samples", len(samples)),
			slog.String("text", text),
		)
	}
	return text
}
