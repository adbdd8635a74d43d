package transcribe

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/donnieprakoso/kiro-voice/internal/audio"
)

// StreamConfig contains streaming backend configuration.
type StreamConfig struct {
	URL             string
	APIKey          string
	SampleRate      int
	SendQueueSize   int // outbound frame FIFO capacity, default 256
	ResultQueueSize int // finalized text queue capacity, default 10
}

// streamMessage is the inbound transcription event wire format.
type streamMessage struct {
	IsFinal bool `json:"is_final"`
	Channel struct {
		Alternatives []struct {
			Transcript string  `json:"transcript"`
			Confidence float64 `json:"confidence"`
		} `json:"alternatives"`
	} `json:"channel"`
}

// Stream runs a persistent bidirectional websocket transcription session.
// AcceptFrame enqueues PCM bytes onto a bounded outbound FIFO drained by a
// writer goroutine; a reader goroutine collects finalized results into a
// bounded output queue popped by PollText. Both queues drop their oldest
// entry on overflow, never the newest, and drops are always counted and
// logged.
type Stream struct {
	config StreamConfig
	logger *slog.Logger

	mu      sync.Mutex
	started bool
	stopped bool
	conn    *websocket.Conn
	cancel  context.CancelFunc
	sendq   chan []byte
	results chan string
	wg      sync.WaitGroup

	framesDropped  atomic.Uint64
	resultsDropped atomic.Uint64
}

// NewStream creates a streaming backend for the given endpoint.
func NewStream(config StreamConfig, logger *slog.Logger) (*Stream, error) {
	if config.URL == "" {
		return nil, fmt.Errorf("stream URL cannot be empty")
	}
	if config.SampleRate <= 0 {
		config.SampleRate = audio.DefaultSampleRate
	}
	if config.SendQueueSize <= 0 {
		config.SendQueueSize = 256
	}
	if config.ResultQueueSize <= 0 {
		config.ResultQueueSize = 10
	}

	return &Stream{
		config:  config,
		logger:  logger,
		sendq:   make(chan []byte, config.SendQueueSize),
		results: make(chan string, config.ResultQueueSize),
	}, nil
}

// Start dials the transcription endpoint and launches the writer and reader
// goroutines. Idempotent.
func (s *Stream) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started || s.stopped {
		return nil
	}

	header := http.Header{}
	if s.config.APIKey != "" {
		header.Set("Authorization", "Token "+s.config.APIKey)
	}

	conn, _, err := websocket.DefaultDialer.Dial(s.config.URL, header)
	if err != nil {
		return fmt.Errorf("failed to dial transcription endpoint: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	s.conn = conn
	s.cancel = cancel
	s.started = true

	s.wg.Add(2)
	go s.writeLoop(ctx)
	go s.readLoop()

	s.logger.Info("Streaming transcription session started",
		slog.String("url", s.config.URL),
		slog.Int("sample_rate", s.config.SampleRate),
	)
	return nil
}

// AcceptFrame converts samples to 16-bit PCM and enqueues them for the
// writer. On a full queue the oldest frame is discarded to make room.
func (s *Stream) AcceptFrame(samples []float32) {
	s.mu.Lock()
	ready := s.started && !s.stopped
	s.mu.Unlock()
	if !ready {
		return
	}

	data := audio.SamplesToBytes(samples)
	select {
	case s.sendq <- data:
		return
	default:
	}

	// Queue full: drop the oldest frame, then retry once.
	select {
	case <-s.sendq:
	default:
	}
	dropped := s.framesDropped.Add(1)
	if dropped == 1 || dropped%100 == 0 {
		s.logger.Warn("Outbound audio queue full, dropping oldest frame",
			slog.Uint64("total_dropped", dropped),
		)
	}
	select {
	case s.sendq <- data:
	default:
		// Writer raced us back to full; the new frame is lost too.
		s.framesDropped.Add(1)
	}
}

// PollText pops one finalized transcript if available.
func (s *Stream) PollText() string {
	select {
	case text := <-s.results:
		return text
	default:
		return ""
	}
}

func (s *Stream) writeLoop(ctx context.Context) {
	defer s.wg.Done()

	for {
		select {
		case <-ctx.Done():
			closeMsg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "session ended")
			if err := s.conn.WriteMessage(websocket.CloseMessage, closeMsg); err != nil {
				s.logger.Debug("Failed to send close message", slog.String("error", err.Error()))
			}
			return
		case data := <-s.sendq:
			if err := s.conn.WriteMessage(websocket.BinaryMessage, data); err != nil {
				s.logger.Error("Failed to write audio frame", slog.String("error", err.Error()))
				return
			}
		}
	}
}

func (s *Stream) readLoop() {
	defer s.wg.Done()

	for {
		_, message, err := s.conn.ReadMessage()
		if err != nil {
			s.mu.Lock()
			stopping := s.stopped
			s.mu.Unlock()
			if !stopping && !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				s.logger.Error("Failed to read transcription event", slog.String("error", err.Error()))
			}
			return
		}

		var event streamMessage
		if err := json.Unmarshal(message, &event); err != nil {
			s.logger.Warn("Skipping malformed transcription event", slog.String("error", err.Error()))
			continue
		}
		if !event.IsFinal || len(event.Channel.Alternatives) == 0 {
			continue
		}

		text := strings.TrimSpace(event.Channel.Alternatives[0].Transcript)
		if text == "" {
			continue
		}
		s.pushResult(text)
	}
}

// pushResult appends finalized text to the bounded output queue, dropping
// the oldest entry on overflow.
func (s *Stream) pushResult(text string) {
	select {
	case s.results <- text:
		return
	default:
	}

	select {
	case <-s.results:
	default:
	}
	dropped := s.resultsDropped.Add(1)
	s.logger.Warn("Result queue full, dropping oldest transcript",
		slog.Uint64("total_dropped", dropped),
	)
	select {
	case s.results <- text:
	default:
	}
}

// Stop signals the writer to close the outbound stream, forces the
// connection shut, and waits for both goroutines with a bounded timeout.
// Safe to call repeatedly and before Start.
func (s *Stream) Stop() error {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return nil
	}
	s.stopped = true
	started := s.started
	s.mu.Unlock()

	if !started {
		return nil
	}

	s.cancel()

	// Give the writer a moment to send the close frame before tearing the
	// connection down, which unblocks the reader.
	if !s.waitDone(500 * time.Millisecond) {
		_ = s.conn.Close()
	}
	if !s.waitDone(2 * time.Second) {
		s.logger.Warn("Streaming session goroutines did not stop within timeout")
	}
	_ = s.conn.Close()

	s.logger.Info("Streaming transcription session stopped",
		slog.Uint64("frames_dropped", s.framesDropped.Load()),
		slog.Uint64("results_dropped", s.resultsDropped.Load()),
	)
	return nil
}

func (s *Stream) waitDone(timeout time.Duration) bool {
	finished := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(finished)
	}()

	select {
	case <-finished:
		return true
	case <-time.After(timeout):
		return false
	}
}
