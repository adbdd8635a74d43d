package relay

import (
	"fmt"
	"log/slog"
	"os/exec"
	"strings"
)

// Sink delivers finalized buffer contents to the terminal target.
type Sink interface {
	Send(text string) error
}

// Pane describes one tmux pane candidate.
type Pane struct {
	Target  string `json:"target"`  // session:window.pane
	Command string `json:"command"` // current command in the pane
	Title   string `json:"title"`
}

// runFunc executes an external command and returns its combined output.
// Injectable for tests.
type runFunc func(name string, args ...string) ([]byte, error)

func execRun(name string, args ...string) ([]byte, error) {
	return exec.Command(name, args...).Output()
}

const listPanesFormat = "#{session_name}:#{window_index}.#{pane_index}|#{pane_current_command}|#{pane_title}"

// ListPanes enumerates all tmux panes across sessions.
func ListPanes() ([]Pane, error) {
	return listPanes(execRun)
}

func listPanes(run runFunc) ([]Pane, error) {
	out, err := run("tmux", "list-panes", "-a", "-F", listPanesFormat)
	if err != nil {
		return nil, fmt.Errorf("tmux is not running or not installed: %w", err)
	}
	return parsePanes(string(out)), nil
}

func parsePanes(output string) []Pane {
	panes := make([]Pane, 0)
	for _, line := range strings.Split(strings.TrimSpace(output), "\n") {
		if line == "" {
			continue
		}
		parts := strings.SplitN(line, "|", 3)
		if len(parts) < 2 {
			continue
		}
		pane := Pane{Target: parts[0], Command: parts[1]}
		if len(parts) > 2 {
			pane.Title = parts[2]
		}
		panes = append(panes, pane)
	}
	return panes
}

// TmuxSink sends text to a fixed tmux pane: the literal text first, then an
// Enter keystroke to submit it.
type TmuxSink struct {
	target string
	logger *slog.Logger
	run    runFunc
}

// NewTmuxSink creates a sink for the given pane target (session:window.pane).
func NewTmuxSink(target string, logger *slog.Logger) (*TmuxSink, error) {
	if target == "" {
		return nil, fmt.Errorf("tmux target cannot be empty")
	}
	return &TmuxSink{target: target, logger: logger, run: execRun}, nil
}

// Target returns the pane this sink delivers to.
func (s *TmuxSink) Target() string {
	return s.target
}

// Send delivers text to the pane and submits it.
func (s *TmuxSink) Send(text string) error {
	if _, err := s.run("tmux", "send-keys", "-t", s.target, "-l", text); err != nil {
		return fmt.Errorf("failed to send text to pane %s: %w", s.target, err)
	}
	if _, err := s.run("tmux", "send-keys", "-t", s.target, "Enter"); err != nil {
		return fmt.Errorf("failed to send Enter to pane %s: %w", s.target, err)
	}

	s.logger.Debug("Sent text to tmux pane",
		slog.String("target", s.target),
		slog.Int("text_length", len(text)),
	)
	return nil
}
