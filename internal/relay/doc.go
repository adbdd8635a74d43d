// Package relay delivers finalized dictation text to a tmux pane. It covers
// the target boundary only: listing candidate panes and sending literal text
// followed by an Enter keystroke. Pane selection policy lives with the
// caller.
package relay
