package transcribe

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/voxlab/utterance-gateway/internal/observability"
	"github.com/voxlab/utterance-gateway/internal/segment"
)

// QueueSink decouples utterance emission from transcription. OnUtterance is
// called on the pipeline's tick goroutine and must never block, so finished
// utterances are handed to a buffered queue and a worker drains it. When the
// queue is full the utterance is dropped and counted.
type QueueSink struct {
	transcriber Transcriber
	queue       chan segment.Utterance
	logger      zerolog.Logger
}

// NewQueueSink creates a sink feeding the given transcriber.
func NewQueueSink(transcriber Transcriber, queueSize int, logger zerolog.Logger) *QueueSink {
	if queueSize <= 0 {
		queueSize = 1
	}
	return &QueueSink{
		transcriber: transcriber,
		queue:       make(chan segment.Utterance, queueSize),
		logger:      logger,
	}
}

// OnUtterance enqueues the utterance without blocking the caller.
func (q *QueueSink) OnUtterance(u segment.Utterance) {
	select {
	case q.queue <- u:
	default:
		observability.RecordSinkQueueDrop()
		q.logger.Warn().
			Str("utterance_id", u.ID).
			Dur("duration", u.Duration).
			Msg("transcription queue full, dropping utterance")
	}
}

// Run drains the queue until the context is cancelled. Queued utterances
// still pending at cancellation are discarded.
func (q *QueueSink) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			q.logger.Info().Int("discarded", len(q.queue)).Msg("transcription sink stopped")
			return
		case u := <-q.queue:
			q.dispatch(u)
		}
	}
}

func (q *QueueSink) dispatch(u segment.Utterance) {
	if err := q.transcriber.SendUtterance(u); err != nil {
		q.logger.Error().
			Err(err).
			Str("utterance_id", u.ID).
			Msg("failed to send utterance for transcription")
		return
	}

	q.logger.Debug().
		Str("utterance_id", u.ID).
		Dur("duration", u.Duration).
		Int("samples", len(u.Samples)).
		Msg("utterance sent for transcription")
}

// QueueDepth reports the number of utterances waiting to be sent.
func (q *QueueSink) QueueDepth() int {
	return len(q.queue)
}
