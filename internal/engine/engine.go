// Package engine drives the capture pipeline: a single-goroutine tick loop
// that polls the capture source, computes the wrap-aware sample delta, and
// feeds the segmenter. There is no internal parallelism and no locking; the
// ring buffer, cursor, and segmenter state are all owned by this loop.
package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/voxlab/utterance-gateway/internal/audio"
	"github.com/voxlab/utterance-gateway/internal/capture"
	"github.com/voxlab/utterance-gateway/internal/observability"
	"github.com/voxlab/utterance-gateway/internal/segment"
)

// Engine owns one capture session: source, cursor, segmenter.
type Engine struct {
	source    capture.Source
	cursor    *audio.CaptureCursor
	segmenter *segment.Segmenter
	interval  time.Duration
	logger    zerolog.Logger

	// scratch is reused across ticks so the steady-state loop does not
	// allocate per chunk.
	scratch []float32

	lastTick time.Time
}

// New creates an engine ticking every interval. The interval must be short
// relative to the source's wrap period; the cursor's single-wrap assumption
// depends on it.
func New(source capture.Source, segmenter *segment.Segmenter, interval time.Duration, logger zerolog.Logger) (*Engine, error) {
	if source == nil {
		return nil, fmt.Errorf("capture source is required")
	}
	if segmenter == nil {
		return nil, fmt.Errorf("segmenter is required")
	}
	if interval <= 0 {
		return nil, fmt.Errorf("tick interval must be positive, got %v", interval)
	}

	cursor, err := audio.NewCaptureCursor(source.ClipLength())
	if err != nil {
		return nil, err
	}

	return &Engine{
		source:    source,
		cursor:    cursor,
		segmenter: segmenter,
		interval:  interval,
		logger:    logger,
		scratch:   make([]float32, source.ClipLength()),
	}, nil
}

// Run ticks until the context is cancelled or the source reports a terminal
// device error. On exit the segmenter is reset: an in-flight utterance is
// discarded, not flushed, leaving all state quiescent.
func (e *Engine) Run(ctx context.Context) error {
	e.logger.Info().
		Dur("tick_interval", e.interval).
		Int("clip_length", e.source.ClipLength()).
		Int("sample_rate", e.source.SampleRate()).
		Int("channels", e.source.Channels()).
		Msg("capture engine starting")

	ticker := time.NewTicker(e.interval)
	defer ticker.Stop()
	defer e.segmenter.Reset()

	e.lastTick = time.Now()
	for {
		select {
		case <-ctx.Done():
			e.logger.Info().Msg("capture engine stopping")
			return nil
		case now := <-ticker.C:
			dt := now.Sub(e.lastTick)
			e.lastTick = now
			if err := e.step(dt); err != nil {
				e.logger.Error().Err(err).Msg("capture tick failed")
				return err
			}
		}
	}
}

// step processes one tick: read the device position, derive the new-sample
// delta, copy that span out of the wrapping clip, and hand it to the
// segmenter along with the wall-clock time since the previous tick.
func (e *Engine) step(dt time.Duration) error {
	readOffset := e.cursor.Position()

	pos, err := e.source.Position()
	if err != nil {
		return fmt.Errorf("capture device error: %w", err)
	}

	delta := e.cursor.Advance(pos)
	if delta == 0 {
		// No new data. Skip entirely: an empty read is not evidence of
		// silence and must not advance the segmenter's hangover timer.
		return nil
	}

	chunk := e.scratch[:delta]
	if err := e.source.ReadAt(readOffset, chunk); err != nil {
		return fmt.Errorf("capture read failed: %w", err)
	}

	observability.ObserveTick(dt, delta)
	return e.segmenter.Process(chunk, dt)
}
