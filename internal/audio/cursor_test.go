package audio

import (
	"testing"
)

func TestCaptureCursor_InvalidClipLength(t *testing.T) {
	if _, err := NewCaptureCursor(0); err == nil {
		t.Error("Expected error for zero clip length")
	}
}

func TestCaptureCursor_LinearAdvance(t *testing.T) {
	c, err := NewCaptureCursor(25)
	if err != nil {
		t.Fatalf("NewCaptureCursor failed: %v", err)
	}

	if got := c.Advance(10); got != 10 {
		t.Errorf("Expected delta 10, got %d", got)
	}
	if got := c.Advance(20); got != 10 {
		t.Errorf("Expected delta 10, got %d", got)
	}
}

func TestCaptureCursor_WrapAround(t *testing.T) {
	c, _ := NewCaptureCursor(25)

	c.Advance(10)
	c.Advance(20)

	// Device wrapped: position dropped from 20 to 5, i.e. 5 - 20 + 25 = 10 new samples.
	if got := c.Advance(5); got != 10 {
		t.Errorf("Expected wrap-corrected delta 10, got %d", got)
	}
}

func TestCaptureCursor_ZeroDelta(t *testing.T) {
	c, _ := NewCaptureCursor(100)

	c.Advance(40)
	if got := c.Advance(40); got != 0 {
		t.Errorf("Expected zero delta for unchanged position, got %d", got)
	}
}

func TestCaptureCursor_Reset(t *testing.T) {
	c, _ := NewCaptureCursor(100)

	c.Advance(60)
	c.Reset()

	if c.Position() != 0 {
		t.Errorf("Expected position 0 after Reset, got %d", c.Position())
	}
	if got := c.Advance(15); got != 15 {
		t.Errorf("Expected delta 15 after Reset, got %d", got)
	}
}
