package transcribe

import (
	"testing"

	"github.com/rs/zerolog"

	"github.com/voxlab/utterance-gateway/internal/config"
)

func testDeepgramConfig() *config.Config {
	return &config.Config{
		SampleRate:                 16000,
		Channels:                   1,
		DeepgramAPIKey:             "test-key",
		DeepgramModel:              "nova-2",
		DeepgramLanguage:           "en",
		CircuitBreakerMaxFailures:  5,
		CircuitBreakerResetTimeout: 30,
		ReconnectMaxAttempts:       1,
		ReconnectBackoff:           10,
	}
}

func TestDeepgramTranscriber_PublishDeliversResults(t *testing.T) {
	d := NewDeepgramTranscriber(testDeepgramConfig(), zerolog.Nop())
	defer d.Close()

	d.publishResult(&Result{Text: "hello", IsFinal: true, Confidence: 0.9})

	select {
	case result := <-d.Results():
		if result.Text != "hello" {
			t.Errorf("Expected text 'hello', got '%s'", result.Text)
		}
		if !result.IsFinal {
			t.Error("Expected IsFinal true")
		}
	default:
		t.Fatal("Expected a buffered result")
	}
}

func TestDeepgramTranscriber_PublishAfterCloseIsDropped(t *testing.T) {
	d := NewDeepgramTranscriber(testDeepgramConfig(), zerolog.Nop())

	if err := d.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	// A transcript callback landing after shutdown must be discarded, not
	// sent on the closed channel.
	d.publishResult(&Result{Text: "late"})

	if _, ok := <-d.Results(); ok {
		t.Error("Expected results channel closed and empty after Close")
	}
}

func TestDeepgramTranscriber_CloseIsIdempotent(t *testing.T) {
	d := NewDeepgramTranscriber(testDeepgramConfig(), zerolog.Nop())

	if err := d.Close(); err != nil {
		t.Fatalf("First Close failed: %v", err)
	}
	if err := d.Close(); err != nil {
		t.Fatalf("Second Close failed: %v", err)
	}
}
