package audio

import "fmt"

// CaptureCursor tracks the write position of a capture device that recycles a
// fixed-length buffer. Each call to Advance turns the device's wrapping
// position into a linear count of newly written samples.
//
// The wrap correction assumes at most one full wrap between calls. If the
// caller ticks slower than the device wraps, the delta is wrong by a multiple
// of the clip length; tick frequency must exceed wrap frequency. This is a
// documented precondition, not a runtime-checked invariant.
type CaptureCursor struct {
	lastPosition int
	clipLength   int
}

// NewCaptureCursor creates a cursor for a capture buffer of clipLength
// samples per channel.
func NewCaptureCursor(clipLength int) (*CaptureCursor, error) {
	if clipLength <= 0 {
		return nil, fmt.Errorf("clip length must be positive, got %d", clipLength)
	}
	return &CaptureCursor{clipLength: clipLength}, nil
}

// Advance returns the number of samples written since the previous call,
// given the device's current position in [0, clipLength). A position lower
// than the previous one is a wrap event, not a decrease.
//
// A zero delta means no new data; callers must skip processing for the tick
// rather than treat the empty read as silence.
func (c *CaptureCursor) Advance(currentPosition int) int {
	delta := currentPosition - c.lastPosition
	if delta < 0 {
		delta += c.clipLength
	}
	c.lastPosition = currentPosition
	return delta
}

// Position returns the last observed device position.
func (c *CaptureCursor) Position() int {
	return c.lastPosition
}

// ClipLength returns the capacity of the wrapping capture buffer.
func (c *CaptureCursor) ClipLength() int {
	return c.clipLength
}

// Reset clears the tracked position. Call it whenever capture restarts so a
// stale position is not misread as a huge first delta.
func (c *CaptureCursor) Reset() {
	c.lastPosition = 0
}
