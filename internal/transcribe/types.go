package transcribe

import (
	"github.com/voxlab/utterance-gateway/internal/segment"
)

// Result is one transcript produced by the remote ASR service.
type Result struct {
	// Text is the transcribed text.
	Text string

	// IsFinal indicates a final transcript rather than an interim guess.
	IsFinal bool

	// Confidence is the service's confidence score (0.0 to 1.0) if provided.
	Confidence float64

	// Duration is the audio duration covered, in seconds, if provided.
	Duration float64
}

// Transcriber is the boundary to the transcription collaborator. The core
// pipeline only ever hands it finished utterances; how the audio travels and
// how results come back is the implementation's business.
type Transcriber interface {
	// Start establishes the transcription session.
	Start() error

	// SendUtterance submits one finished utterance's audio.
	SendUtterance(u segment.Utterance) error

	// Results returns the stream of transcripts.
	Results() <-chan *Result

	// Stop ends the session, flushing any pending audio.
	Stop() error

	// Close releases all resources.
	Close() error
}
