// Package segment implements the utterance segmentation state machine: a
// per-tick consumer of capture chunks that drives a voice activity detector,
// a silence hangover timer, and a bounded ring buffer to produce emit-once
// utterance boundaries.
package segment

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/voxlab/utterance-gateway/internal/audio"
	"github.com/voxlab/utterance-gateway/internal/observability"
	"github.com/voxlab/utterance-gateway/internal/vad"
)

// Config holds segmenter construction parameters.
type Config struct {
	// SampleRate is the capture sample rate in Hz.
	SampleRate int

	// Channels is the interleaved channel count of the capture stream.
	Channels int

	// FrameDuration is the fixed frame length the detector requires,
	// typically 10ms.
	FrameDuration time.Duration

	// SilenceDuration is how much contiguous non-speech closes an utterance.
	SilenceDuration time.Duration

	// BufferCapacity is the ring buffer size in samples. Size it to the
	// longest tolerable utterance: seconds * SampleRate * Channels.
	BufferCapacity int
}

// Segmenter is the two-state (idle/speaking) segmentation machine. All state
// is owned by one goroutine; none of its methods are safe for concurrent use.
type Segmenter struct {
	config   Config
	detector vad.Detector
	sink     Sink
	logger   zerolog.Logger

	ring      *audio.RingBuffer
	frameSize int // samples per detector frame, interleaved

	// pending assembles incoming chunks into exact detector frames so the
	// detector is never called with a malformed frame, regardless of the
	// chunk sizes the capture delta happens to produce. Samples wait here
	// until their frame completes and are retained or discarded with that
	// frame's verdict.
	pending []float32

	speaking       bool
	silenceElapsed time.Duration
	startedAt      time.Time
	emitted        uint64
}

// NewSegmenter validates the configuration and creates a segmenter. The sink
// must be non-nil; a segmenter with nowhere to deliver utterances is a wiring
// error, not a runtime condition.
func NewSegmenter(config Config, detector vad.Detector, sink Sink, logger zerolog.Logger) (*Segmenter, error) {
	if config.SampleRate <= 0 {
		return nil, fmt.Errorf("sample rate must be positive, got %d", config.SampleRate)
	}
	if config.Channels <= 0 {
		return nil, fmt.Errorf("channel count must be positive, got %d", config.Channels)
	}
	if config.FrameDuration <= 0 {
		return nil, fmt.Errorf("frame duration must be positive, got %v", config.FrameDuration)
	}
	if config.SilenceDuration <= 0 {
		return nil, fmt.Errorf("silence duration must be positive, got %v", config.SilenceDuration)
	}
	if detector == nil {
		return nil, fmt.Errorf("detector is required")
	}
	if sink == nil {
		return nil, fmt.Errorf("sink is required")
	}

	frameSize := int(int64(config.SampleRate) * int64(config.Channels) * int64(config.FrameDuration) / int64(time.Second))
	if frameSize <= 0 {
		return nil, fmt.Errorf("frame duration %v too short for sample rate %d", config.FrameDuration, config.SampleRate)
	}

	ring, err := audio.NewRingBuffer(config.BufferCapacity)
	if err != nil {
		return nil, err
	}

	return &Segmenter{
		config:    config,
		detector:  detector,
		sink:      sink,
		logger:    logger,
		ring:      ring,
		frameSize: frameSize,
		pending:   make([]float32, 0, frameSize*2),
	}, nil
}

// Process consumes one tick's worth of newly captured samples. dt is the
// wall-clock time since the previous tick; the silence hangover accumulates
// real elapsed time, not a nominal frame duration, so it tracks the actual
// scheduling cadence.
//
// Callers must skip the call entirely on a zero capture delta: an empty
// chunk carries no voice activity evidence and must not advance the silence
// timer.
func (s *Segmenter) Process(chunk []float32, dt time.Duration) error {
	if len(chunk) == 0 {
		return nil
	}

	sawSpeech, evaluated, err := s.classify(chunk)
	if err != nil {
		return err
	}

	if sawSpeech {
		if !s.speaking {
			s.speaking = true
			s.startedAt = time.Now()
			s.logger.Debug().Msg("speech started")
		}
		s.silenceElapsed = 0
		observability.SetRingDropped(s.ring.Dropped())
		return nil
	}

	// No complete frame was assembled this tick, so there is no VAD verdict
	// to act on. Treat it like a zero-delta tick.
	if evaluated == 0 {
		return nil
	}

	if !s.speaking {
		// Idle silence: no buffering, no timer movement.
		return nil
	}

	s.silenceElapsed += dt
	if s.silenceElapsed < s.config.SilenceDuration {
		return nil
	}

	// Edge-triggered close: exactly one utterance per silence episode.
	s.emit()
	return nil
}

// classify runs the detector over every complete frame assembled from the
// pending sub-buffer plus this chunk, writing each speech-classified frame's
// samples into the ring. Retention is frame-granular: samples arriving in
// sub-frame chunks wait in the sub-buffer until their frame completes, then
// are kept or dropped with that frame's verdict, so no sample that
// contributed to a speech frame is ever lost to a chunk boundary. Returns
// whether any frame had speech and how many frames were evaluated.
func (s *Segmenter) classify(chunk []float32) (bool, int, error) {
	s.pending = append(s.pending, chunk...)

	sawSpeech := false
	evaluated := 0
	for len(s.pending) >= s.frameSize {
		frame := s.pending[:s.frameSize]
		s.pending = s.pending[s.frameSize:]

		has, err := s.detector.HasSpeech(audio.FloatToPCM16(frame), s.config.SampleRate)
		if err != nil {
			return false, evaluated, fmt.Errorf("vad frame classification failed: %w", err)
		}
		evaluated++
		observability.RecordVADFrame(has)
		if has {
			sawSpeech = true
			s.ring.Write(frame)
		}
	}

	// The loop re-slices forward through the backing array, so reclaim it
	// before repeated appends let it creep. The remainder is always shorter
	// than one frame.
	if cap(s.pending) > s.frameSize*8 {
		fresh := make([]float32, len(s.pending), s.frameSize*2)
		copy(fresh, s.pending)
		s.pending = fresh
	}

	return sawSpeech, evaluated, nil
}

// emit closes the current utterance: snapshot, clear, hand off, go idle.
func (s *Segmenter) emit() {
	samples := s.ring.Snapshot()
	s.ring.Clear()
	s.speaking = false
	s.silenceElapsed = 0
	s.emitted++

	duration := time.Duration(int64(len(samples)) * int64(time.Second) / int64(s.config.SampleRate*s.config.Channels))
	u := Utterance{
		ID:         uuid.New().String(),
		Samples:    samples,
		SampleRate: s.config.SampleRate,
		Channels:   s.config.Channels,
		CapturedAt: time.Now(),
		Duration:   duration,
	}

	s.logger.Info().
		Str("utterance_id", u.ID).
		Dur("duration", u.Duration).
		Int("samples", len(u.Samples)).
		Msg("utterance closed")
	observability.RecordUtterance(u.Duration)

	s.sink.OnUtterance(u)
}

// Reset discards any in-flight utterance and returns the segmenter to idle.
// Called on capture stop; the unflushed buffer is dropped, not emitted.
func (s *Segmenter) Reset() {
	if s.speaking {
		s.logger.Info().Int("samples", s.ring.Len()).Msg("discarding open utterance on reset")
	}
	s.ring.Clear()
	s.pending = s.pending[:0]
	s.speaking = false
	s.silenceElapsed = 0
}

// Speaking reports whether the machine is currently inside an utterance.
func (s *Segmenter) Speaking() bool {
	return s.speaking
}

// Emitted returns the number of utterances closed so far.
func (s *Segmenter) Emitted() uint64 {
	return s.emitted
}

// DroppedSamples returns how many buffered samples have been lost to the
// ring's overwrite-oldest policy.
func (s *Segmenter) DroppedSamples() uint64 {
	return s.ring.Dropped()
}
