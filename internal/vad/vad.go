// Package vad defines the voice activity detection boundary. A detector is a
// pure, synchronous, per-frame classifier; all hangover and segmentation
// state lives in the segmenter that calls it.
package vad

import (
	"fmt"

	"github.com/voxlab/utterance-gateway/internal/audio"
)

// Detector classifies a single fixed-duration frame of 16-bit PCM as speech
// or non-speech.
//
// HasSpeech must be fast and bounded-time: it is called on the engine's tick
// goroutine. The frame must be exactly one frame's worth of samples for the
// detector's configured sample rate and frame duration; anything else is a
// caller error.
type Detector interface {
	HasSpeech(frame []int16, sampleRate int) (bool, error)
}

// EnergyConfig configures the RMS energy detector.
type EnergyConfig struct {
	Threshold float64 // RMS amplitude above which a frame counts as speech
	FrameSize int     // expected samples per frame
}

// DefaultEnergyConfig returns thresholds suitable for 10ms frames at 16kHz
// from a typical close microphone.
func DefaultEnergyConfig() EnergyConfig {
	return EnergyConfig{
		Threshold: 500.0,
		FrameSize: 160, // 10ms at 16kHz
	}
}

// EnergyDetector is a stateless RMS threshold detector. It is the built-in
// fallback; heavier model-based detectors plug in behind the same interface.
type EnergyDetector struct {
	config EnergyConfig
}

// NewEnergyDetector creates an energy detector.
func NewEnergyDetector(config EnergyConfig) (*EnergyDetector, error) {
	if config.Threshold <= 0 {
		return nil, fmt.Errorf("energy threshold must be positive, got %f", config.Threshold)
	}
	if config.FrameSize <= 0 {
		return nil, fmt.Errorf("frame size must be positive, got %d", config.FrameSize)
	}
	return &EnergyDetector{config: config}, nil
}

// HasSpeech reports whether the frame's RMS amplitude exceeds the threshold.
func (d *EnergyDetector) HasSpeech(frame []int16, sampleRate int) (bool, error) {
	if len(frame) != d.config.FrameSize {
		return false, fmt.Errorf("expected %d samples per frame, got %d", d.config.FrameSize, len(frame))
	}
	return audio.RMS(frame) > d.config.Threshold, nil
}
