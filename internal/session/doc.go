// Package session holds the shared dictation buffer. The buffer is the single
// text accumulator mutated by the dispatch loop and read by status surfaces,
// so every operation takes the buffer lock for its full duration.
package session
