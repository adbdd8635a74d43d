package grammar

import (
	"strings"
)

// Kind identifies the type of action a transcript was classified into.
type Kind int

const (
	// KindLiteral carries dictation text to append to the session buffer.
	KindLiteral Kind = iota
	// KindDelete removes the last word from the session buffer.
	KindDelete
	// KindClear resets the session buffer.
	KindClear
	// KindExecute relays the session buffer to the target. Text, if
	// non-empty, must be appended before relaying.
	KindExecute
)

// String returns a human-readable name for the action kind.
func (k Kind) String() string {
	switch k {
	case KindLiteral:
		return "literal"
	case KindDelete:
		return "delete"
	case KindClear:
		return "clear"
	case KindExecute:
		return "execute"
	default:
		return "unknown"
	}
}

// Action is the result of classifying one transcript chunk.
type Action struct {
	Kind Kind
	Text string
}

// substitution maps a spoken phrase to its literal replacement. The table is
// ordered; replacements are applied top to bottom. Control words (clear,
// delete, enter) are handled before substitution and never reach this table.
type substitution struct {
	phrase      string
	replacement string
}

var substitutions = []substitution{
	{"period", "."},
	{"comma", ","},
	{"question mark", "?"},
	{"exclamation mark", "!"},
	{"new line", "\n"},
}

// Classify maps raw transcript text to an Action. Matching is
// case-insensitive on trimmed input, and control words take priority over
// dictation: clear wins over delete, delete over enter. Control words match
// by containment, so any remainder in the same chunk is discarded for clear
// and delete, and preserved as pending dictation for enter.
func Classify(raw string) Action {
	text := strings.ToLower(strings.TrimSpace(raw))
	if text == "" {
		return Action{Kind: KindLiteral, Text: ""}
	}

	if strings.Contains(text, "clear") {
		return Action{Kind: KindClear}
	}

	if strings.Contains(text, "delete") {
		return Action{Kind: KindDelete}
	}

	if strings.Contains(text, "enter") {
		remainder := strings.TrimSpace(strings.ReplaceAll(text, "enter", ""))
		return Action{Kind: KindExecute, Text: remainder}
	}

	for _, sub := range substitutions {
		text = strings.ReplaceAll(text, sub.phrase, sub.replacement)
	}

	return Action{Kind: KindLiteral, Text: strings.TrimSpace(text)}
}
