package audio

// Ring is a fixed-capacity sample buffer that evicts the oldest samples on
// overflow. It backs the windowed transcription backend, which keeps the most
// recent few seconds of audio and drains the whole window at once.
//
// Ring is not safe for concurrent use; callers hold their own lock.
type Ring struct {
	buf  []float32
	head int // index of the oldest sample
	size int
}

// NewRing creates a ring holding up to capacity samples.
func NewRing(capacity int) *Ring {
	if capacity <= 0 {
		capacity = 1
	}
	return &Ring{buf: make([]float32, capacity)}
}

// Write appends samples, evicting the oldest on overflow. It returns the
// number of samples evicted so callers can account for the loss.
func (r *Ring) Write(samples []float32) int {
	evicted := 0

	// If the input alone exceeds capacity, only its tail survives.
	if len(samples) > len(r.buf) {
		evicted += r.size + len(samples) - len(r.buf)
		r.head = 0
		r.size = len(r.buf)
		copy(r.buf, samples[len(samples)-len(r.buf):])
		return evicted
	}

	for _, s := range samples {
		if r.size == len(r.buf) {
			r.buf[r.head] = s
			r.head = (r.head + 1) % len(r.buf)
			evicted++
		} else {
			r.buf[(r.head+r.size)%len(r.buf)] = s
			r.size++
		}
	}
	return evicted
}

// Len returns the number of buffered samples.
func (r *Ring) Len() int {
	return r.size
}

// Cap returns the ring capacity in samples.
func (r *Ring) Cap() int {
	return len(r.buf)
}

// Drain returns all buffered samples in arrival order and resets the ring.
func (r *Ring) Drain() []float32 {
	out := make([]float32, r.size)
	for i := 0; i < r.size; i++ {
		out[i] = r.buf[(r.head+i)%len(r.buf)]
	}
	r.head = 0
	r.size = 0
	return out
}

// Reset discards all buffered samples.
func (r *Ring) Reset() {
	r.head = 0
	r.size = 0
}
