// Package audio handles audio capture and sample plumbing. It provides the
// capture sources (microphone device via malgo, or raw PCM piped on stdin),
// PCM format conversion between 16-bit signed samples and normalized float32
// amplitudes, a fixed-capacity sample ring for the windowed backend, and WAV
// encoding for recognizer uploads.
package audio
