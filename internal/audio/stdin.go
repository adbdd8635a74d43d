package audio

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"
)

// stdinChunkSamples is the number of samples read per frame in piped mode,
// matching the device capture frame granularity closely enough.
const stdinChunkSamples = 1024

// PipeSource reads 16-bit little-endian signed PCM from a reader (normally
// stdin) and delivers normalized frames. Used for remote capture where audio
// is piped over SSH.
type PipeSource struct {
	r      io.Reader
	frames FrameFunc
	logger *slog.Logger

	mu      sync.Mutex
	started bool
	done    chan struct{}
	wg      sync.WaitGroup
}

// NewPipeSource creates a source reading raw PCM frames from r.
func NewPipeSource(r io.Reader, frames FrameFunc, logger *slog.Logger) *PipeSource {
	return &PipeSource{r: r, frames: frames, logger: logger}
}

// Start launches the reader goroutine. Idempotent.
func (s *PipeSource) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}
	s.started = true
	s.done = make(chan struct{})

	s.wg.Add(1)
	go s.readLoop()

	s.logger.Info("Audio capture started from pipe")
	return nil
}

func (s *PipeSource) readLoop() {
	defer s.wg.Done()

	buf := make([]byte, stdinChunkSamples*2)
	for {
		select {
		case <-s.done:
			return
		default:
		}

		n, err := io.ReadFull(s.r, buf)
		if n > 0 {
			s.frames(BytesToSamples(buf[:n]))
		}
		if err != nil {
			if !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) {
				s.logger.Error("Pipe read failed", slog.String("error", err.Error()))
			}
			s.logger.Info("Pipe capture ended")
			return
		}
	}
}

// Stop signals the reader goroutine and waits for it with a bounded timeout.
// A read blocked on an open pipe cannot be interrupted, so Stop gives up
// after two seconds rather than hang shutdown.
func (s *PipeSource) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return nil
	}
	s.started = false
	close(s.done)

	finished := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(finished)
	}()

	select {
	case <-finished:
		return nil
	case <-time.After(2 * time.Second):
		return fmt.Errorf("pipe reader did not stop within timeout")
	}
}
