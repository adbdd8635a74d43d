package audio

// DefaultSampleRate is the capture sample rate expected by the transcription
// backends: 16 kHz mono.
const DefaultSampleRate = 16000

// BytesToSamples converts 16-bit little-endian signed PCM bytes to normalized
// float32 samples in [-1.0, 1.0]. A trailing odd byte is ignored.
func BytesToSamples(data []byte) []float32 {
	samples := make([]float32, len(data)/2)
	for i := range samples {
		raw := int16(data[i*2]) | int16(data[i*2+1])<<8
		samples[i] = float32(raw) / 32768.0
	}
	return samples
}

// SamplesToPCM16 converts normalized float32 samples to 16-bit signed PCM,
// clamping out-of-range amplitudes.
func SamplesToPCM16(samples []float32) []int16 {
	pcm := make([]int16, len(samples))
	for i, s := range samples {
		if s > 1.0 {
			s = 1.0
		} else if s < -1.0 {
			s = -1.0
		}
		pcm[i] = int16(s * 32767.0)
	}
	return pcm
}

// SamplesToBytes converts normalized float32 samples to 16-bit little-endian
// signed PCM bytes, the wire format of the streaming backend.
func SamplesToBytes(samples []float32) []byte {
	data := make([]byte, len(samples)*2)
	for i, s := range SamplesToPCM16(samples) {
		data[i*2] = byte(s)
		data[i*2+1] = byte(s >> 8)
	}
	return data
}
