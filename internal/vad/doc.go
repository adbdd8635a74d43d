// Package vad provides a lightweight energy-based voice activity gate. The
// windowed transcription backend uses it to skip recognizer calls for windows
// that contain no speech; fine-grained silence segmentation is left to the
// recognizer's own VAD filter.
package vad
