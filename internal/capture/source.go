// Package capture defines the boundary to the live capture device: a
// producer that writes interleaved float samples into a fixed-length buffer
// it recycles, exposing only a wrapping write position and positional reads.
package capture

import (
	"fmt"
	"sync"
	"time"
)

// Source is the capture collaborator. Positions and offsets are in
// interleaved samples, in [0, ClipLength).
type Source interface {
	// Position returns the device's current write position. It wraps to 0
	// when the device recycles its buffer. An error is terminal for the
	// capture session (device unplugged, driver stopped).
	Position() (int, error)

	// ReadAt copies len(dst) interleaved samples starting at offset into
	// dst, wrapping past the end of the clip as needed.
	ReadAt(offset int, dst []float32) error

	// ClipLength is the total capacity of the wrapping buffer in samples.
	ClipLength() int

	// SampleRate is the fixed capture rate in Hz.
	SampleRate() int

	// Channels is the fixed interleaved channel count.
	Channels() int
}

// MemorySource is a Source backed by an in-memory clip that loops forever,
// advancing its write position with wall-clock time exactly the way a
// hardware capture ring does. Used in synthetic mode and in tests.
type MemorySource struct {
	clip       []float32
	sampleRate int
	channels   int

	mu      sync.Mutex
	started time.Time
	now     func() time.Time // swappable for tests
}

// NewMemorySource creates a looping source over clip. The clip length must
// be a whole number of interleaved frames.
func NewMemorySource(clip []float32, sampleRate, channels int) (*MemorySource, error) {
	if len(clip) == 0 {
		return nil, fmt.Errorf("clip must not be empty")
	}
	if sampleRate <= 0 {
		return nil, fmt.Errorf("sample rate must be positive, got %d", sampleRate)
	}
	if channels <= 0 {
		return nil, fmt.Errorf("channel count must be positive, got %d", channels)
	}
	if len(clip)%channels != 0 {
		return nil, fmt.Errorf("clip length %d is not a whole number of %d-channel frames", len(clip), channels)
	}
	return &MemorySource{
		clip:       clip,
		sampleRate: sampleRate,
		channels:   channels,
		started:    time.Now(),
		now:        time.Now,
	}, nil
}

// Position derives the write position from elapsed wall-clock time, modulo
// the clip length, mirroring a device that records in real time.
func (m *MemorySource) Position() (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	elapsed := m.now().Sub(m.started)
	written := int(elapsed.Seconds() * float64(m.sampleRate) * float64(m.channels))
	return written % len(m.clip), nil
}

// ReadAt copies samples starting at offset, wrapping around the clip end.
func (m *MemorySource) ReadAt(offset int, dst []float32) error {
	if offset < 0 || offset >= len(m.clip) {
		return fmt.Errorf("offset %d out of range [0, %d)", offset, len(m.clip))
	}
	for i := range dst {
		dst[i] = m.clip[(offset+i)%len(m.clip)]
	}
	return nil
}

// ClipLength returns the clip capacity in samples.
func (m *MemorySource) ClipLength() int { return len(m.clip) }

// SampleRate returns the configured capture rate.
func (m *MemorySource) SampleRate() int { return m.sampleRate }

// Channels returns the configured channel count.
func (m *MemorySource) Channels() int { return m.channels }

// Restart rewinds the synthetic clock, as if capture had been restarted.
func (m *MemorySource) Restart() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.started = m.now()
}
