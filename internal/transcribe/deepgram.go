package transcribe

import (
	"context"
	"fmt"
	"sync"
	"time"

	websocketv1api "github.com/deepgram/deepgram-go-sdk/v3/pkg/api/listen/v1/websocket"
	msginterfaces "github.com/deepgram/deepgram-go-sdk/v3/pkg/api/listen/v1/websocket/interfaces"
	interfaces "github.com/deepgram/deepgram-go-sdk/v3/pkg/client/interfaces"
	listenClient "github.com/deepgram/deepgram-go-sdk/v3/pkg/client/listen"
	"github.com/rs/zerolog"

	"github.com/voxlab/utterance-gateway/internal/audio"
	"github.com/voxlab/utterance-gateway/internal/config"
	"github.com/voxlab/utterance-gateway/internal/observability"
	"github.com/voxlab/utterance-gateway/internal/resilience"
	"github.com/voxlab/utterance-gateway/internal/segment"
)

// messageCallbackHandler implements the SDK's LiveMessageCallback interface.
// It embeds the default handler and overrides only the methods we customize.
type messageCallbackHandler struct {
	*websocketv1api.DefaultCallbackHandler
	handler      func(*msginterfaces.MessageResponse)
	errorHandler func(*msginterfaces.ErrorResponse) error
}

// Message routes transcription messages to our handler.
func (m *messageCallbackHandler) Message(message *msginterfaces.MessageResponse) error {
	m.handler(message)
	return nil
}

// Error routes SDK errors to our handler, falling back to the default.
func (m *messageCallbackHandler) Error(errorResponse *msginterfaces.ErrorResponse) error {
	if m.errorHandler != nil {
		return m.errorHandler(errorResponse)
	}
	return m.DefaultCallbackHandler.Error(errorResponse)
}

// DeepgramTranscriber implements Transcriber over Deepgram's streaming API.
// It holds one persistent websocket session; each finished utterance's PCM
// is written into it as linear16 audio. The connection is guarded by a
// circuit breaker and reconnects with backoff when it drops.
type DeepgramTranscriber struct {
	config  *config.Config
	logger  zerolog.Logger
	client  *listenClient.WSCallback
	results chan *Result

	mu       sync.RWMutex
	isActive bool
	closed   bool
	lastSend time.Time

	ctx            context.Context
	cancel         context.CancelFunc
	circuitBreaker *resilience.CircuitBreaker
}

// NewDeepgramTranscriber creates a Deepgram streaming transcriber.
func NewDeepgramTranscriber(cfg *config.Config, logger zerolog.Logger) *DeepgramTranscriber {
	ctx, cancel := context.WithCancel(context.Background())

	circuitBreaker := resilience.NewCircuitBreaker(
		"deepgram",
		cfg.CircuitBreakerMaxFailures,
		time.Duration(cfg.CircuitBreakerResetTimeout)*time.Second,
	)

	return &DeepgramTranscriber{
		config:         cfg,
		logger:         logger,
		results:        make(chan *Result, 100),
		ctx:            ctx,
		cancel:         cancel,
		circuitBreaker: circuitBreaker,
	}
}

// Start opens the streaming session.
func (d *DeepgramTranscriber) Start() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.isActive {
		return fmt.Errorf("deepgram transcriber is already active")
	}

	tOptions := &interfaces.LiveTranscriptionOptions{
		Model:      d.config.DeepgramModel,
		Language:   d.config.DeepgramLanguage,
		Punctuate:  true,
		Encoding:   "linear16",
		Channels:   d.config.Channels,
		SampleRate: d.config.SampleRate,
	}

	callback := &messageCallbackHandler{
		DefaultCallbackHandler: websocketv1api.NewDefaultCallbackHandler(),
		handler:                d.handleMessage,
		errorHandler: func(errorResponse *msginterfaces.ErrorResponse) error {
			d.logger.Error().Interface("response", errorResponse).Msg("deepgram error")

			d.circuitBreaker.RecordResult(false)
			observability.UpdateCircuitBreakerState("deepgram", int(d.circuitBreaker.State()))
			observability.IncrementCircuitBreakerFailures("deepgram")

			select {
			case <-d.ctx.Done():
				return nil
			default:
				d.mu.Lock()
				d.isActive = false
				d.mu.Unlock()
				go d.attemptReconnect()
			}
			return nil
		},
	}

	client, err := listenClient.NewWSUsingCallback(
		d.ctx,
		d.config.DeepgramAPIKey,
		nil, // client options: defaults
		tOptions,
		callback,
	)
	if err != nil {
		return fmt.Errorf("failed to create deepgram client: %w", err)
	}

	d.client = client
	d.isActive = true
	d.circuitBreaker.RecordResult(true)
	observability.UpdateCircuitBreakerState("deepgram", int(d.circuitBreaker.State()))

	d.logger.Info().
		Str("model", d.config.DeepgramModel).
		Str("language", d.config.DeepgramLanguage).
		Msg("deepgram streaming session started")
	return nil
}

// handleMessage processes transcription messages from the SDK callback.
func (d *DeepgramTranscriber) handleMessage(msg *msginterfaces.MessageResponse) {
	if msg == nil {
		return
	}

	switch msg.Type {
	case "Results", "Message":
		if len(msg.Channel.Alternatives) == 0 {
			return
		}
		alt := msg.Channel.Alternatives[0]
		if alt.Transcript == "" {
			return
		}

		result := &Result{
			Text:       alt.Transcript,
			IsFinal:    msg.IsFinal,
			Confidence: alt.Confidence,
			Duration:   msg.Duration,
		}

		if msg.IsFinal {
			d.mu.RLock()
			sent := d.lastSend
			d.mu.RUnlock()
			if !sent.IsZero() {
				observability.RecordTranscription(true, time.Since(sent))
			}
			d.logger.Info().
				Str("transcript", alt.Transcript).
				Float64("confidence", alt.Confidence).
				Msg("final transcript")
		}

		d.publishResult(result)

	case "Metadata", "SpeechStarted", "UtteranceEnd":
		d.logger.Debug().Str("type", msg.Type).Msg("deepgram event")

	default:
		d.logger.Debug().Str("type", msg.Type).Msg("unhandled deepgram message")
	}
}

// publishResult delivers one result to the Results channel. The read lock is
// held across the send so it cannot interleave with Close closing the
// channel; SDK callbacks arriving after Close are dropped.
func (d *DeepgramTranscriber) publishResult(result *Result) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		return
	}
	select {
	case d.results <- result:
	default:
		d.logger.Warn().Msg("results channel full, dropping transcript")
	}
}

// SendUtterance converts the utterance to linear16 PCM and writes it to the
// session under circuit breaker protection.
func (d *DeepgramTranscriber) SendUtterance(u segment.Utterance) error {
	data := audio.PCM16ToBytes(audio.FloatToPCM16(u.Samples))

	err := d.circuitBreaker.Call(func() error {
		d.mu.RLock()
		active := d.isActive
		client := d.client
		d.mu.RUnlock()

		if !active || client == nil {
			return fmt.Errorf("deepgram transcriber is not active")
		}

		if _, err := client.Write(data); err != nil {
			go d.attemptReconnect()
			return fmt.Errorf("failed to send audio to deepgram: %w", err)
		}

		d.mu.Lock()
		d.lastSend = time.Now()
		d.mu.Unlock()
		return nil
	})

	observability.UpdateCircuitBreakerState("deepgram", int(d.circuitBreaker.State()))
	if err != nil {
		observability.IncrementCircuitBreakerFailures("deepgram")
		observability.RecordTranscription(false, 0)
	}
	return err
}

// attemptReconnect re-establishes the session with exponential backoff.
func (d *DeepgramTranscriber) attemptReconnect() {
	select {
	case <-d.ctx.Done():
		return
	default:
	}

	d.mu.RLock()
	alreadyActive := d.isActive
	d.mu.RUnlock()
	if alreadyActive {
		return
	}

	reconnectConfig := &resilience.ReconnectConfig{
		MaxAttempts: d.config.ReconnectMaxAttempts,
		Backoff:     time.Duration(d.config.ReconnectBackoff) * time.Millisecond,
		Multiplier:  2.0,
		MaxBackoff:  30 * time.Second,
	}

	if err := resilience.Reconnect(d.ctx, d.Start, reconnectConfig, d.logger); err != nil {
		d.logger.Error().Err(err).Msg("failed to reconnect deepgram session")
	}
}

// Results returns the transcript stream.
func (d *DeepgramTranscriber) Results() <-chan *Result {
	return d.results
}

// Stop ends the streaming session, asking the service to flush.
func (d *DeepgramTranscriber) Stop() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.isActive {
		return nil
	}

	d.client.Finish()
	d.isActive = false
	d.logger.Info().Msg("deepgram streaming session stopped")
	return nil
}

// Close cancels reconnection attempts, tears the session down, and closes
// the results channel. The write lock excludes any in-flight publishResult,
// so a transcript callback racing with shutdown is dropped rather than sent
// on a closed channel.
func (d *DeepgramTranscriber) Close() error {
	d.cancel()

	if err := d.Stop(); err != nil {
		return err
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.closed {
		d.closed = true
		close(d.results)
	}
	return nil
}

// IsActive reports whether the session is up.
func (d *DeepgramTranscriber) IsActive() bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.isActive
}
