package main

import (
	"context"
	"fmt"
	"math"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/voxlab/utterance-gateway/internal/capture"
	"github.com/voxlab/utterance-gateway/internal/config"
	"github.com/voxlab/utterance-gateway/internal/engine"
	"github.com/voxlab/utterance-gateway/internal/observability"
	"github.com/voxlab/utterance-gateway/internal/resilience"
	"github.com/voxlab/utterance-gateway/internal/segment"
	"github.com/voxlab/utterance-gateway/internal/stream"
	"github.com/voxlab/utterance-gateway/internal/transcribe"
	"github.com/voxlab/utterance-gateway/internal/vad"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		// Use fmt for fatal errors before logger is initialized
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize structured logger
	observability.InitLogger(cfg.LogLevel, cfg.LogPretty)
	logger := observability.GetLogger()

	logger.Info().
		Str("port", cfg.Port).
		Int("sample_rate", cfg.SampleRate).
		Int("channels", cfg.Channels).
		Str("log_level", cfg.LogLevel).
		Bool("metrics_enabled", cfg.MetricsEnabled).
		Msg("Utterance Gateway Service starting")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Transcription backend
	transcriber := transcribe.NewDeepgramTranscriber(cfg, logger)
	retryConfig := &resilience.RetryConfig{
		MaxAttempts:    cfg.RetryMaxAttempts,
		InitialBackoff: time.Duration(cfg.RetryInitialBackoff) * time.Millisecond,
		MaxBackoff:     10 * time.Second,
		Multiplier:     2.0,
	}
	if err := resilience.Retry(ctx, transcriber.Start, retryConfig, resilience.IsRetryableNetworkError); err != nil {
		logger.Fatal().Err(err).Msg("Failed to start transcription session")
	}
	defer transcriber.Close()

	// Event stream for UI subscribers
	hub := stream.NewHub(logger)
	defer hub.Close()

	// Utterance delivery: the transcription queue plus the event stream
	queueSink := transcribe.NewQueueSink(transcriber, cfg.SinkQueueSize, logger)
	go queueSink.Run(ctx)
	sink := segment.SinkFunc(func(u segment.Utterance) {
		queueSink.OnUtterance(u)
		hub.OnUtterance(u)
	})

	// Forward transcripts to stream subscribers
	go func() {
		for result := range transcriber.Results() {
			hub.BroadcastTranscript(result)
		}
	}()

	// Segmentation pipeline
	detector, err := vad.NewEnergyDetector(vad.EnergyConfig{
		Threshold: cfg.VADThreshold,
		FrameSize: cfg.FrameSize(),
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to create VAD detector")
	}

	segmenter, err := segment.NewSegmenter(segment.Config{
		SampleRate:      cfg.SampleRate,
		Channels:        cfg.Channels,
		FrameDuration:   cfg.FrameDuration(),
		SilenceDuration: cfg.SilenceDuration(),
		BufferCapacity:  cfg.RingBufferCapacity(),
	}, detector, sink, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to create segmenter")
	}

	// Capture source. The in-memory looping clip stands in for a capture
	// device until a hardware-backed Source is wired in.
	source, err := capture.NewMemorySource(syntheticClip(cfg.SampleRate, cfg.Channels), cfg.SampleRate, cfg.Channels)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to create capture source")
	}

	captureEngine, err := engine.New(source, segmenter, cfg.TickInterval(), logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to create capture engine")
	}

	engineErr := make(chan error, 1)
	go func() {
		engineErr <- captureEngine.Run(ctx)
	}()

	// Create HTTP server
	mux := http.NewServeMux()

	// Event stream endpoint
	mux.HandleFunc("/stream", hub.Handler())

	// Health check endpoint
	mux.HandleFunc("/health", observability.HealthCheckHandler())

	// Readiness endpoint
	mux.HandleFunc("/ready", observability.ReadinessHandler(map[string]observability.HealthCheckFunc{
		"deepgram": func(ctx context.Context) (bool, error) {
			if !transcriber.IsActive() {
				return false, fmt.Errorf("transcription session is not active")
			}
			return true, nil
		},
		"capture": func(ctx context.Context) (bool, error) {
			if _, err := source.Position(); err != nil {
				return false, err
			}
			return true, nil
		},
	}))

	// Metrics endpoint (Prometheus)
	if cfg.MetricsEnabled {
		mux.Handle("/metrics", promhttp.Handler())
		logger.Info().Msg("Prometheus metrics enabled at /metrics")
	}

	// Create HTTP server with timeouts
	server := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Port),
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		logger.Info().
			Str("port", cfg.Port).
			Str("endpoint", fmt.Sprintf("ws://localhost:%s/stream", cfg.Port)).
			Msg("Server listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("Server failed to start")
		}
	}()

	// Wait for interrupt signal or a terminal capture error
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-quit:
		logger.Info().Msg("Shutting down server...")
	case err := <-engineErr:
		if err != nil {
			logger.Error().Err(err).Msg("Capture engine failed, shutting down")
		}
	}

	// Stop the pipeline first. An in-flight utterance is discarded, not flushed.
	cancel()
	if err := transcriber.Stop(); err != nil {
		logger.Error().Err(err).Msg("Failed to stop transcription session")
	}

	// Graceful shutdown with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Fatal().Err(err).Msg("Server forced to shutdown")
	}

	logger.Info().Msg("Server exited gracefully")
}

// syntheticClip builds the looping test signal for the in-memory source: two
// seconds of a 440Hz tone followed by 1.5 seconds of silence, so the pipeline
// produces one utterance per loop.
func syntheticClip(sampleRate, channels int) []float32 {
	toneFrames := 2 * sampleRate
	silenceFrames := 3 * sampleRate / 2
	clip := make([]float32, (toneFrames+silenceFrames)*channels)
	for i := 0; i < toneFrames; i++ {
		sample := float32(0.5 * math.Sin(2*math.Pi*440*float64(i)/float64(sampleRate)))
		for ch := 0; ch < channels; ch++ {
			clip[i*channels+ch] = sample
		}
	}
	return clip
}
