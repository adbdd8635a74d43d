package vad

import (
	"fmt"
	"math"
	"sync"
)

// DefaultThreshold is the default RMS energy threshold for normalized
// amplitudes. Quiet room noise on typical microphones sits well below it.
const DefaultThreshold = 0.01

// Gate detects the presence of voice energy in a window of normalized
// samples. It applies light exponential smoothing across windows so a single
// quiet frame inside continuous speech does not flap the decision.
type Gate struct {
	threshold float32
	smoothing float32

	mu           sync.Mutex
	lastEnergy   float32
	totalWindows uint64
	voiceWindows uint64
}

// NewGate creates a gate with the given RMS threshold in (0, 1).
func NewGate(threshold float32) (*Gate, error) {
	if threshold <= 0 || threshold >= 1 {
		return nil, fmt.Errorf("threshold must be between 0 and 1, got %f", threshold)
	}
	return &Gate{
		threshold: threshold,
		smoothing: 0.3,
	}, nil
}

// HasVoice reports whether the window's smoothed RMS energy crosses the
// threshold. Empty windows never have voice.
func (g *Gate) HasVoice(samples []float32) bool {
	if len(samples) == 0 {
		return false
	}

	var sum float64
	for _, s := range samples {
		sum += float64(s) * float64(s)
	}
	energy := float32(math.Sqrt(sum / float64(len(samples))))

	g.mu.Lock()
	defer g.mu.Unlock()

	if g.totalWindows > 0 {
		energy = g.smoothing*energy + (1-g.smoothing)*g.lastEnergy
	}
	g.lastEnergy = energy
	g.totalWindows++

	hasVoice := energy >= g.threshold
	if hasVoice {
		g.voiceWindows++
	}
	return hasVoice
}

// Stats returns how many windows were inspected and how many carried voice.
func (g *Gate) Stats() (total, voice uint64) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.totalWindows, g.voiceWindows
}

// Reset clears the smoothing state and statistics.
func (g *Gate) Reset() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.lastEnergy = 0
	g.totalWindows = 0
	g.voiceWindows = 0
}
