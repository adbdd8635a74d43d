// Package metrics defines the Prometheus instrumentation for the dictation
// pipeline: frame ingestion, transcription calls, classified actions, and
// relay deliveries.
package metrics
