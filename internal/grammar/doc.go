// Package grammar classifies recognized speech into dictation text and
// control actions. It implements the voice command vocabulary: buffer control
// words (clear, delete, enter) and literal punctuation substitutions.
package grammar
