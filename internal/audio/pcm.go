package audio

import "math"

// FloatToPCM16 converts normalized float32 samples in [-1, 1] to signed
// 16-bit PCM. Out-of-range input is clamped rather than allowed to wrap;
// a hot microphone should saturate, not flip sign.
func FloatToPCM16(samples []float32) []int16 {
	out := make([]int16, len(samples))
	for i, s := range samples {
		if s > 1.0 {
			s = 1.0
		} else if s < -1.0 {
			s = -1.0
		}
		out[i] = int16(s * 32767)
	}
	return out
}

// PCM16ToFloat converts signed 16-bit PCM back to normalized float32
// samples. The round trip through FloatToPCM16 is lossy but bounded within
// one quantization step.
func PCM16ToFloat(samples []int16) []float32 {
	out := make([]float32, len(samples))
	for i, s := range samples {
		out[i] = float32(s) / 32767.0
	}
	return out
}

// PCM16ToBytes packs 16-bit PCM samples as little-endian bytes, the layout
// expected by WAV payloads and streaming transcription APIs.
func PCM16ToBytes(samples []int16) []byte {
	out := make([]byte, len(samples)*2)
	for i, s := range samples {
		out[i*2] = byte(s)
		out[i*2+1] = byte(s >> 8)
	}
	return out
}

// BytesToPCM16 unpacks little-endian 16-bit PCM bytes into samples. Odd
// trailing bytes are ignored.
func BytesToPCM16(data []byte) []int16 {
	out := make([]int16, len(data)/2)
	for i := range out {
		out[i] = int16(data[i*2]) | int16(data[i*2+1])<<8
	}
	return out
}

// RMS returns the root mean square amplitude of a frame of 16-bit PCM
// samples. Used by the energy-based voice activity detector.
func RMS(samples []int16) float64 {
	if len(samples) == 0 {
		return 0.0
	}
	sum := 0.0
	for _, s := range samples {
		sum += float64(s) * float64(s)
	}
	return math.Sqrt(sum / float64(len(samples)))
}
