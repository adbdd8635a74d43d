package session

import (
	"strings"
	"sync"
)

// Buffer is the shared dictation text accumulator. Content is kept trimmed
// with words joined by single spaces; line breaks produced by the "new line"
// voice command are preserved.
type Buffer struct {
	mu   sync.RWMutex
	text string
}

// NewBuffer creates an empty session buffer.
func NewBuffer() *Buffer {
	return &Buffer{}
}

// Append concatenates text to the buffer with a single separating space.
// Empty input is a no-op.
func (b *Buffer) Append(text string) {
	if text == "" {
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	b.text = collapseSpaces(strings.TrimSpace(b.text + " " + text))
}

// DeleteLastWord drops the last whitespace-separated token. No-op on an
// empty buffer.
func (b *Buffer) DeleteLastWord() {
	b.mu.Lock()
	defer b.mu.Unlock()

	words := strings.Fields(b.text)
	if len(words) == 0 {
		return
	}

	b.text = strings.Join(words[:len(words)-1], " ")
}

// Clear resets the buffer to empty.
func (b *Buffer) Clear() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.text = ""
}

// TakeAndReset atomically returns the current content and empties the buffer.
// The returned text and any subsequent accumulation never overlap.
func (b *Buffer) TakeAndReset() string {
	b.mu.Lock()
	defer b.mu.Unlock()

	text := b.text
	b.text = ""
	return text
}

// String returns the current buffer content.
func (b *Buffer) String() string {
	b.mu.RLock()
	defer b.mu.RUnlock()

	return b.text
}

// Len returns the current buffer length in bytes.
func (b *Buffer) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()

	return len(b.text)
}

// collapseSpaces replaces runs of consecutive spaces with a single space.
// Other whitespace (line breaks) is left alone.
func collapseSpaces(s string) string {
	for strings.Contains(s, "  ") {
		s = strings.ReplaceAll(s, "  ", " ")
	}
	return s
}
