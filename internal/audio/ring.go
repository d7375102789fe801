package audio

import "fmt"

// RingBuffer is a fixed-capacity circular buffer of float32 audio samples.
// When the buffer is full, each write advances the head and the oldest sample
// is overwritten. This bounds memory for arbitrarily long speech: we trade old
// context for the ability to keep accepting the newest audio.
//
// The buffer is not synchronized. It is owned by the segmenter and only ever
// touched from the engine's tick goroutine.
type RingBuffer struct {
	storage []float32
	head    int // index of the oldest retained sample
	tail    int // index of the next write slot
	size    int // number of occupied samples, 0..capacity
	dropped uint64
}

// NewRingBuffer creates a ring buffer holding up to capacity samples.
// Capacity must be positive; a zero or negative capacity is a configuration
// error and is rejected at construction time.
func NewRingBuffer(capacity int) (*RingBuffer, error) {
	if capacity <= 0 {
		return nil, fmt.Errorf("ring buffer capacity must be positive, got %d", capacity)
	}
	return &RingBuffer{
		storage: make([]float32, capacity),
	}, nil
}

// Write appends samples in order. It always succeeds: once the buffer is
// full, every stored sample silently displaces the oldest one. Overwritten
// samples are counted and reported by Dropped.
func (rb *RingBuffer) Write(samples []float32) {
	capacity := len(rb.storage)
	for _, s := range samples {
		rb.storage[rb.tail] = s
		rb.tail = (rb.tail + 1) % capacity
		if rb.size < capacity {
			rb.size++
		} else {
			// Full: the slot we just wrote was the oldest sample.
			rb.head = (rb.head + 1) % capacity
			rb.dropped++
		}
	}
}

// Snapshot returns a newly allocated, linear, oldest-to-newest copy of the
// buffer contents. The copy is independent of later writes; callers may hand
// it off without worrying about the buffer being cleared or overwritten.
func (rb *RingBuffer) Snapshot() []float32 {
	out := make([]float32, rb.size)
	if rb.size == 0 {
		return out
	}
	if rb.head < rb.tail {
		copy(out, rb.storage[rb.head:rb.tail])
	} else {
		// Wrapped: [head, capacity) then [0, tail).
		n := copy(out, rb.storage[rb.head:])
		copy(out[n:], rb.storage[:rb.tail])
	}
	return out
}

// Clear resets the buffer to empty. Storage is retained, not reallocated, so
// Clear is safe to call once per utterance without heap churn.
func (rb *RingBuffer) Clear() {
	rb.head = 0
	rb.tail = 0
	rb.size = 0
}

// Len returns the number of samples currently held.
func (rb *RingBuffer) Len() int {
	return rb.size
}

// Cap returns the fixed capacity in samples.
func (rb *RingBuffer) Cap() int {
	return len(rb.storage)
}

// Dropped returns the total number of samples overwritten before they were
// snapshotted. Overwrite loss is silent at write time, so the count is the
// only place it surfaces.
func (rb *RingBuffer) Dropped() uint64 {
	return rb.dropped
}
