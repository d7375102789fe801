package resilience

import (
	"errors"
	"testing"
	"time"
)

func failing() error { return errors.New("boom") }
func succeeding() error { return nil }

func TestCircuitBreaker_OpensAfterMaxFailures(t *testing.T) {
	cb := NewCircuitBreaker("test", 3, time.Minute)

	for i := 0; i < 3; i++ {
		if err := cb.Call(failing); err == nil {
			t.Fatal("Expected call to fail")
		}
	}

	if cb.State() != StateOpen {
		t.Errorf("Expected StateOpen after 3 failures, got %v", cb.State())
	}

	// While open, calls fail fast without invoking fn.
	invoked := false
	err := cb.Call(func() error {
		invoked = true
		return nil
	})
	if !errors.Is(err, ErrCircuitOpen) {
		t.Errorf("Expected ErrCircuitOpen, got %v", err)
	}
	if invoked {
		t.Error("Open circuit must not invoke the protected function")
	}
}

func TestCircuitBreaker_SuccessResetsFailureCount(t *testing.T) {
	cb := NewCircuitBreaker("test", 3, time.Minute)

	cb.Call(failing)
	cb.Call(failing)
	cb.Call(succeeding)
	cb.Call(failing)
	cb.Call(failing)

	if cb.State() != StateClosed {
		t.Errorf("Expected StateClosed (failures interrupted by success), got %v", cb.State())
	}
}

func TestCircuitBreaker_HalfOpenRecovery(t *testing.T) {
	cb := NewCircuitBreaker("test", 1, 10*time.Millisecond)

	cb.Call(failing)
	if cb.State() != StateOpen {
		t.Fatalf("Expected StateOpen, got %v", cb.State())
	}

	time.Sleep(15 * time.Millisecond)

	// Enough successful probes close the circuit again.
	for i := 0; i < 3; i++ {
		if err := cb.Call(succeeding); err != nil {
			t.Fatalf("Probe call %d failed: %v", i, err)
		}
	}
	if cb.State() != StateClosed {
		t.Errorf("Expected StateClosed after successful probes, got %v", cb.State())
	}
}

func TestCircuitBreaker_HalfOpenFailureReopens(t *testing.T) {
	cb := NewCircuitBreaker("test", 1, 10*time.Millisecond)

	cb.Call(failing)
	time.Sleep(15 * time.Millisecond)

	cb.Call(failing)
	if cb.State() != StateOpen {
		t.Errorf("Expected failure during half-open to reopen circuit, got %v", cb.State())
	}
}

func TestCircuitBreaker_Reset(t *testing.T) {
	cb := NewCircuitBreaker("test", 1, time.Minute)

	cb.Call(failing)
	cb.Reset()

	if cb.State() != StateClosed {
		t.Errorf("Expected StateClosed after Reset, got %v", cb.State())
	}
	if err := cb.Call(succeeding); err != nil {
		t.Errorf("Expected call to succeed after Reset, got %v", err)
	}
}

func TestCircuitBreaker_Stats(t *testing.T) {
	cb := NewCircuitBreaker("test", 5, time.Minute)

	cb.Call(succeeding)
	cb.Call(failing)
	cb.Call(failing)

	requests, failures := cb.Stats()
	if requests != 3 {
		t.Errorf("Expected 3 requests, got %d", requests)
	}
	if failures != 2 {
		t.Errorf("Expected 2 failures, got %d", failures)
	}
}
