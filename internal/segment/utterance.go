package segment

import (
	"time"
)

// Utterance is an immutable snapshot of one contiguous span of detected
// speech. The samples slice is an owned copy; once handed to a sink it is
// never touched by the segmenter again.
type Utterance struct {
	// ID uniquely identifies the utterance across the process lifetime.
	ID string

	// Samples are interleaved float32 samples, oldest first.
	Samples []float32

	// SampleRate is the capture sample rate in Hz.
	SampleRate int

	// Channels is the interleaved channel count.
	Channels int

	// CapturedAt is when the utterance was closed.
	CapturedAt time.Time

	// Duration is the audio length represented by Samples.
	Duration time.Duration
}

// Sink receives finished utterances. OnUtterance is invoked synchronously on
// the engine's tick goroutine the instant an utterance closes; sinks that do
// expensive work (remote transcription, disk export) must dispatch to their
// own goroutine rather than block the tick loop.
type Sink interface {
	OnUtterance(u Utterance)
}

// SinkFunc adapts a plain function to the Sink interface.
type SinkFunc func(u Utterance)

// OnUtterance calls f(u).
func (f SinkFunc) OnUtterance(u Utterance) {
	f(u)
}
