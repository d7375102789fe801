package audio

import (
	"testing"
)

func TestRingBuffer_InvalidCapacity(t *testing.T) {
	if _, err := NewRingBuffer(0); err == nil {
		t.Error("Expected error for zero capacity")
	}
	if _, err := NewRingBuffer(-4); err == nil {
		t.Error("Expected error for negative capacity")
	}
}

func TestRingBuffer_RoundTrip(t *testing.T) {
	rb, err := NewRingBuffer(8)
	if err != nil {
		t.Fatalf("NewRingBuffer failed: %v", err)
	}

	rb.Write([]float32{0.1, 0.2, 0.3})
	rb.Write([]float32{0.4, 0.5})

	got := rb.Snapshot()
	want := []float32{0.1, 0.2, 0.3, 0.4, 0.5}
	if len(got) != len(want) {
		t.Fatalf("Expected %d samples, got %d", len(want), len(got))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Sample %d: expected %v, got %v", i, want[i], got[i])
		}
	}
	if rb.Len() != 5 {
		t.Errorf("Expected Len 5, got %d", rb.Len())
	}
}

func TestRingBuffer_OverwriteOldest(t *testing.T) {
	rb, err := NewRingBuffer(4)
	if err != nil {
		t.Fatalf("NewRingBuffer failed: %v", err)
	}

	// Write capacity + 3 samples; snapshot must hold the last 4, oldest first.
	rb.Write([]float32{1, 2, 3, 4, 5, 6, 7})

	got := rb.Snapshot()
	want := []float32{4, 5, 6, 7}
	if len(got) != len(want) {
		t.Fatalf("Expected %d samples, got %d", len(want), len(got))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Sample %d: expected %v, got %v", i, want[i], got[i])
		}
	}
	if rb.Dropped() != 3 {
		t.Errorf("Expected 3 dropped samples, got %d", rb.Dropped())
	}
}

func TestRingBuffer_SnapshotIsIndependent(t *testing.T) {
	rb, _ := NewRingBuffer(4)
	rb.Write([]float32{1, 2})

	snap := rb.Snapshot()
	rb.Write([]float32{9, 9, 9, 9})
	rb.Clear()

	if snap[0] != 1 || snap[1] != 2 {
		t.Errorf("Snapshot mutated by later buffer activity: %v", snap)
	}
}

func TestRingBuffer_ClearThenReuse(t *testing.T) {
	rb, _ := NewRingBuffer(4)
	rb.Write([]float32{1, 2, 3, 4, 5, 6})
	rb.Clear()

	if got := rb.Snapshot(); len(got) != 0 {
		t.Errorf("Expected empty snapshot after Clear, got %d samples", len(got))
	}
	if rb.Len() != 0 {
		t.Errorf("Expected Len 0 after Clear, got %d", rb.Len())
	}

	// Post-clear writes behave as if the buffer were newly constructed.
	rb.Write([]float32{7, 8})
	got := rb.Snapshot()
	if len(got) != 2 || got[0] != 7 || got[1] != 8 {
		t.Errorf("Unexpected snapshot after reuse: %v", got)
	}
}

func TestRingBuffer_WrappedSnapshot(t *testing.T) {
	rb, _ := NewRingBuffer(5)

	// Advance tail past the physical end so head > tail.
	rb.Write([]float32{1, 2, 3, 4, 5})
	rb.Write([]float32{6, 7})

	got := rb.Snapshot()
	want := []float32{3, 4, 5, 6, 7}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Sample %d: expected %v, got %v", i, want[i], got[i])
		}
	}
}
