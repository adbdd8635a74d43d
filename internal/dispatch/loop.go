package dispatch

import (
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/donnieprakoso/kiro-voice/internal/audio"
	"github.com/donnieprakoso/kiro-voice/internal/grammar"
	"github.com/donnieprakoso/kiro-voice/internal/metrics"
	"github.com/donnieprakoso/kiro-voice/internal/relay"
	"github.com/donnieprakoso/kiro-voice/internal/session"
	"github.com/donnieprakoso/kiro-voice/internal/transcribe"
)

// State is the dispatch loop lifecycle state.
type State int32

const (
	StateIdle State = iota
	StateRunning
	StateMuted
	StateShuttingDown
)

// String returns a human-readable state name.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRunning:
		return "running"
	case StateMuted:
		return "muted"
	case StateShuttingDown:
		return "shutting_down"
	default:
		return "unknown"
	}
}

// Command is a discrete control delivered by the front end.
type Command int

const (
	// CommandMute toggles between Running and Muted.
	CommandMute Command = iota
	// CommandExit requests shutdown.
	CommandExit
)

// DefaultPollInterval is the backend polling cadence.
const DefaultPollInterval = 500 * time.Millisecond

// Config contains dispatch loop configuration.
type Config struct {
	PollInterval time.Duration
}

// Loop ties the audio source, transcription backend, command grammar,
// session buffer, and relay sink together. All cross-component communication
// goes through their public contracts; the loop never reaches into backend
// internals.
type Loop struct {
	source  audio.Source
	backend transcribe.Backend
	buffer  *session.Buffer
	sink    relay.Sink
	logger  *slog.Logger
	metrics *metrics.Metrics // may be nil
	tick    time.Duration

	state    atomic.Int32
	commands chan Command
	done     chan struct{}
	wg       sync.WaitGroup
	stopOnce sync.Once
}

// NewLoop wires a dispatch loop from its collaborators. metrics may be nil.
func NewLoop(config Config, source audio.Source, backend transcribe.Backend,
	buffer *session.Buffer, sink relay.Sink, m *metrics.Metrics, logger *slog.Logger) *Loop {

	if config.PollInterval <= 0 {
		config.PollInterval = DefaultPollInterval
	}

	return &Loop{
		source:   source,
		backend:  backend,
		buffer:   buffer,
		sink:     sink,
		logger:   logger,
		metrics:  m,
		tick:     config.PollInterval,
		commands: make(chan Command, 4),
		done:     make(chan struct{}),
	}
}

// State returns the current lifecycle state.
func (l *Loop) State() State {
	return State(l.state.Load())
}

// Buffer exposes the session buffer for read-only status surfaces.
func (l *Loop) Buffer() *session.Buffer {
	return l.buffer
}

// Done is closed when shutdown begins, letting the caller wait for an exit
// requested through SubmitCommand.
func (l *Loop) Done() <-chan struct{} {
	return l.done
}

// HandleFrame is the audio source callback. Frames are forwarded to the
// backend only while the loop is Running; while muted they are dropped
// before reaching the backend.
func (l *Loop) HandleFrame(samples []float32) {
	if l.State() != StateRunning {
		if l.metrics != nil {
			l.metrics.RecordFrameDropped()
		}
		return
	}
	l.backend.AcceptFrame(samples)
	if l.metrics != nil {
		l.metrics.RecordFrameAccepted()
	}
}

// SubmitCommand delivers a front-end control command. Never blocks; commands
// submitted after shutdown are discarded.
func (l *Loop) SubmitCommand(cmd Command) {
	select {
	case l.commands <- cmd:
	case <-l.done:
	}
}

// Start transitions Idle to Running: starts the backend, then the audio
// source, then the tick goroutine. A partial failure rolls back what was
// started.
func (l *Loop) Start() error {
	if !l.state.CompareAndSwap(int32(StateIdle), int32(StateRunning)) {
		return fmt.Errorf("dispatch loop already started")
	}

	if err := l.backend.Start(); err != nil {
		l.state.Store(int32(StateIdle))
		return fmt.Errorf("failed to start transcription backend: %w", err)
	}
	if err := l.source.Start(); err != nil {
		if stopErr := l.backend.Stop(); stopErr != nil {
			l.logger.Error("Failed to stop backend during rollback", slog.String("error", stopErr.Error()))
		}
		l.state.Store(int32(StateIdle))
		return fmt.Errorf("failed to start audio source: %w", err)
	}

	l.wg.Add(1)
	go l.run()

	l.logger.Info("Dispatch loop started", slog.Duration("poll_interval", l.tick))
	return nil
}

func (l *Loop) run() {
	defer l.wg.Done()

	ticker := time.NewTicker(l.tick)
	defer ticker.Stop()

	for {
		select {
		case <-l.done:
			return
		case cmd := <-l.commands:
			l.handleCommand(cmd)
		case <-ticker.C:
			if l.State() == StateRunning {
				l.processTick()
			}
		}
	}
}

func (l *Loop) handleCommand(cmd Command) {
	switch cmd {
	case CommandMute:
		switch l.State() {
		case StateRunning:
			l.state.Store(int32(StateMuted))
			l.logger.Info("Muted")
		case StateMuted:
			l.state.Store(int32(StateRunning))
			l.logger.Info("Resumed")
		}
	case CommandExit:
		l.logger.Info("Exit requested")
		go l.Stop()
	}
}

// processTick polls the backend once and applies the classified action to
// the session buffer. Buffer mutation happens under the buffer's lock, so
// each chunk's action is atomic with respect to concurrent readers.
func (l *Loop) processTick() {
	text := l.backend.PollText()
	if text == "" {
		return
	}

	action := grammar.Classify(text)
	if l.metrics != nil {
		l.metrics.RecordAction(action.Kind.String())
	}
	l.logger.Debug("Transcript classified",
		slog.String("text", text),
		slog.String("action", action.Kind.String()),
	)

	switch action.Kind {
	case grammar.KindClear:
		l.buffer.Clear()
	case grammar.KindDelete:
		l.buffer.DeleteLastWord()
	case grammar.KindLiteral:
		l.buffer.Append(action.Text)
	case grammar.KindExecute:
		l.buffer.Append(action.Text)
		l.execute()
	}
}

// execute relays the buffer to the sink. The buffer is cleared before
// delivery is confirmed: relay failures are logged, not retried.
func (l *Loop) execute() {
	text := l.buffer.TakeAndReset()
	if text == "" {
		return
	}

	if err := l.sink.Send(text); err != nil {
		if l.metrics != nil {
			l.metrics.RecordRelayFailure()
		}
		l.logger.Error("Relay delivery failed",
			slog.String("error", err.Error()),
			slog.Int("text_length", len(text)),
		)
		return
	}
	if l.metrics != nil {
		l.metrics.RecordRelayDelivery()
	}
	l.logger.Info("Relayed buffer to target", slog.Int("text_length", len(text)))
}

// Stop shuts the loop down from any state. Every release step runs even if
// an earlier one fails; the first error is returned. Safe to call
// repeatedly and concurrently.
func (l *Loop) Stop() error {
	var firstErr error

	l.stopOnce.Do(func() {
		l.state.Store(int32(StateShuttingDown))
		close(l.done)

		finished := make(chan struct{})
		go func() {
			l.wg.Wait()
			close(finished)
		}()
		select {
		case <-finished:
		case <-time.After(2 * l.tick):
			l.logger.Warn("Tick goroutine did not stop within timeout")
		}

		if err := l.source.Stop(); err != nil {
			l.logger.Error("Failed to stop audio source", slog.String("error", err.Error()))
			firstErr = err
		}
		if err := l.backend.Stop(); err != nil {
			l.logger.Error("Failed to stop transcription backend", slog.String("error", err.Error()))
			if firstErr == nil {
				firstErr = err
			}
		}

		l.logger.Info("Dispatch loop stopped")
	})

	return firstErr
}
