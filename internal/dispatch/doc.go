// Package dispatch runs the transcript-to-action loop. On a fixed tick it
// polls the transcription backend for finalized text, classifies it through
// the command grammar, mutates the session buffer, and relays the buffer to
// the terminal target on execute. The loop owns the mute/run/shutdown state
// machine and the lifecycle of the audio source and backend.
package dispatch
