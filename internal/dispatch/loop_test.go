package dispatch

import (
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/donnieprakoso/kiro-voice/internal/session"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fakeSource struct {
	mu       sync.Mutex
	started  int
	stopped  int
	startErr error
}

func (f *fakeSource) Start() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.startErr != nil {
		return f.startErr
	}
	f.started++
	return nil
}

func (f *fakeSource) Stop() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stopped++
	return nil
}

type fakeBackend struct {
	mu       sync.Mutex
	frames   int
	pending  []string
	started  int
	stopped  int
	startErr error
}

func (f *fakeBackend) Start() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.startErr != nil {
		return f.startErr
	}
	f.started++
	return nil
}

func (f *fakeBackend) Stop() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stopped++
	return nil
}

func (f *fakeBackend) AcceptFrame(samples []float32) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.frames++
}

func (f *fakeBackend) PollText() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.pending) == 0 {
		return ""
	}
	text := f.pending[0]
	f.pending = f.pending[1:]
	return text
}

func (f *fakeBackend) queue(texts ...string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pending = append(f.pending, texts...)
}

func (f *fakeBackend) frameCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.frames
}

func (f *fakeBackend) drained() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.pending) == 0
}

type fakeSink struct {
	mu    sync.Mutex
	sends []string
	err   error
}

func (f *fakeSink) Send(text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.sends = append(f.sends, text)
	return nil
}

func (f *fakeSink) sent() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.sends...)
}

func newTestLoop(backend *fakeBackend, sink *fakeSink) (*Loop, *fakeSource) {
	source := &fakeSource{}
	loop := NewLoop(Config{PollInterval: 10 * time.Millisecond},
		source, backend, session.NewBuffer(), sink, nil, testLogger())
	return loop, source
}

func waitFor(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not reached within timeout")
}

func TestLoopDictationAndExecute(t *testing.T) {
	backend := &fakeBackend{}
	sink := &fakeSink{}
	loop, _ := newTestLoop(backend, sink)

	if err := loop.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer loop.Stop()

	backend.queue("hello world", "period", "ship it enter")

	waitFor(t, 2*time.Second, func() bool { return len(sink.sent()) == 1 })

	if got := sink.sent()[0]; got != "hello world . ship it" {
		t.Errorf("expected %q relayed, got %q", "hello world . ship it", got)
	}
	if loop.Buffer().String() != "" {
		t.Errorf("expected buffer cleared after execute, got %q", loop.Buffer().String())
	}
}

func TestLoopClearAndDelete(t *testing.T) {
	backend := &fakeBackend{}
	sink := &fakeSink{}
	loop, _ := newTestLoop(backend, sink)

	if err := loop.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer loop.Stop()

	backend.queue("take out the trash", "delete")
	waitFor(t, 2*time.Second, func() bool {
		return backend.drained() && loop.Buffer().String() == "take out the"
	})

	backend.queue("some more words", "please clear this")
	waitFor(t, 2*time.Second, func() bool {
		return backend.drained() && loop.Buffer().String() == ""
	})
}

func TestLoopExecuteOnEmptyBufferSkipsRelay(t *testing.T) {
	backend := &fakeBackend{}
	sink := &fakeSink{}
	loop, _ := newTestLoop(backend, sink)

	if err := loop.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer loop.Stop()

	backend.queue("enter")
	waitFor(t, 2*time.Second, func() bool { return backend.drained() })
	time.Sleep(30 * time.Millisecond)

	if len(sink.sent()) != 0 {
		t.Errorf("expected no relay for empty buffer, got %v", sink.sent())
	}
}

func TestLoopRelayFailureClearsBuffer(t *testing.T) {
	backend := &fakeBackend{}
	sink := &fakeSink{err: errors.New("pane gone")}
	loop, _ := newTestLoop(backend, sink)

	if err := loop.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer loop.Stop()

	backend.queue("doomed text enter")
	waitFor(t, 2*time.Second, func() bool {
		return backend.drained() && loop.Buffer().String() == ""
	})

	// At-most-once: the text is gone even though delivery failed, and the
	// loop keeps running.
	sink.mu.Lock()
	sink.err = nil
	sink.mu.Unlock()

	backend.queue("next command enter")
	waitFor(t, 2*time.Second, func() bool { return len(sink.sent()) == 1 })
	if got := sink.sent()[0]; got != "next command" {
		t.Errorf("expected %q, got %q", "next command", got)
	}
}

func TestLoopMuteDropsFrames(t *testing.T) {
	backend := &fakeBackend{}
	sink := &fakeSink{}
	loop, _ := newTestLoop(backend, sink)

	if err := loop.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer loop.Stop()

	loop.HandleFrame(make([]float32, 160))
	if backend.frameCount() != 1 {
		t.Fatalf("expected 1 frame while running, got %d", backend.frameCount())
	}

	loop.SubmitCommand(CommandMute)
	waitFor(t, 2*time.Second, func() bool { return loop.State() == StateMuted })

	// Frames delivered while muted never reach the backend.
	for i := 0; i < 5; i++ {
		loop.HandleFrame(make([]float32, 160))
	}
	if backend.frameCount() != 1 {
		t.Errorf("expected frames dropped while muted, backend saw %d", backend.frameCount())
	}

	loop.SubmitCommand(CommandMute)
	waitFor(t, 2*time.Second, func() bool { return loop.State() == StateRunning })

	loop.HandleFrame(make([]float32, 160))
	if backend.frameCount() != 2 {
		t.Errorf("expected frame accepted after resume, backend saw %d", backend.frameCount())
	}
}

func TestLoopMuteSkipsPolling(t *testing.T) {
	backend := &fakeBackend{}
	sink := &fakeSink{}
	loop, _ := newTestLoop(backend, sink)

	if err := loop.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer loop.Stop()

	loop.SubmitCommand(CommandMute)
	waitFor(t, 2*time.Second, func() bool { return loop.State() == StateMuted })

	backend.queue("text while muted")
	time.Sleep(50 * time.Millisecond)

	if backend.drained() {
		t.Error("expected poll skipped while muted")
	}
	if loop.Buffer().String() != "" {
		t.Errorf("buffer mutated while muted: %q", loop.Buffer().String())
	}
}

func TestLoopStop(t *testing.T) {
	backend := &fakeBackend{}
	sink := &fakeSink{}
	loop, source := newTestLoop(backend, sink)

	if err := loop.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if err := loop.Stop(); err != nil {
		t.Errorf("Stop failed: %v", err)
	}
	if err := loop.Stop(); err != nil {
		t.Errorf("repeated Stop failed: %v", err)
	}

	if loop.State() != StateShuttingDown {
		t.Errorf("expected shutting_down state, got %s", loop.State())
	}
	source.mu.Lock()
	stopped := source.stopped
	source.mu.Unlock()
	if stopped != 1 {
		t.Errorf("expected source stopped once, got %d", stopped)
	}
	backend.mu.Lock()
	backendStopped := backend.stopped
	backend.mu.Unlock()
	if backendStopped != 1 {
		t.Errorf("expected backend stopped once, got %d", backendStopped)
	}
}

func TestLoopExitCommand(t *testing.T) {
	backend := &fakeBackend{}
	sink := &fakeSink{}
	loop, _ := newTestLoop(backend, sink)

	if err := loop.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	loop.SubmitCommand(CommandExit)

	select {
	case <-loop.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("exit command did not shut the loop down")
	}
	waitFor(t, 2*time.Second, func() bool { return loop.State() == StateShuttingDown })
}

func TestLoopStartFailureRollsBack(t *testing.T) {
	backend := &fakeBackend{}
	sink := &fakeSink{}
	source := &fakeSource{startErr: errors.New("no device")}
	loop := NewLoop(Config{PollInterval: 10 * time.Millisecond},
		source, backend, session.NewBuffer(), sink, nil, testLogger())

	if err := loop.Start(); err == nil {
		t.Fatal("expected Start to fail")
	}
	if loop.State() != StateIdle {
		t.Errorf("expected idle state after failed start, got %s", loop.State())
	}
	backend.mu.Lock()
	defer backend.mu.Unlock()
	if backend.stopped != 1 {
		t.Errorf("expected backend rolled back, stopped=%d", backend.stopped)
	}
}
