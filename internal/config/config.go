package config

import (
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config holds all configuration for the utterance gateway service.
type Config struct {
	// Server configuration
	Port string `envconfig:"PORT" default:"8080"`

	// Audio format. Fixed at session start; the VAD frame contract depends
	// on these, so they are validated together below.
	SampleRate int `envconfig:"SAMPLE_RATE" default:"16000"` // Hz
	Channels   int `envconfig:"CHANNELS" default:"1"`

	// Segmentation configuration
	FrameDurationMs   int     `envconfig:"FRAME_DURATION_MS" default:"10"`      // VAD frame length
	SilenceDurationMs int     `envconfig:"SILENCE_DURATION_MS" default:"700"`   // hangover before an utterance closes
	RingBufferSeconds int     `envconfig:"RING_BUFFER_SECONDS" default:"30"`    // longest retained utterance
	VADThreshold      float64 `envconfig:"VAD_ENERGY_THRESHOLD" default:"500"`  // RMS threshold for the energy detector
	TickIntervalMs    int     `envconfig:"TICK_INTERVAL_MS" default:"10"`       // capture poll cadence

	// Deepgram transcription configuration
	DeepgramAPIKey   string `envconfig:"DEEPGRAM_API_KEY" required:"true"`
	DeepgramModel    string `envconfig:"DEEPGRAM_MODEL" default:"nova-2"`
	DeepgramLanguage string `envconfig:"DEEPGRAM_LANGUAGE" default:"en"`

	// Sink configuration
	SinkQueueSize int `envconfig:"SINK_QUEUE_SIZE" default:"16"` // utterances buffered ahead of transcription

	// Resilience configuration
	CircuitBreakerMaxFailures  int `envconfig:"CIRCUIT_BREAKER_MAX_FAILURES" default:"5"`
	CircuitBreakerResetTimeout int `envconfig:"CIRCUIT_BREAKER_RESET_TIMEOUT" default:"30"` // seconds
	RetryMaxAttempts           int `envconfig:"RETRY_MAX_ATTEMPTS" default:"3"`
	RetryInitialBackoff        int `envconfig:"RETRY_INITIAL_BACKOFF" default:"100"` // milliseconds
	ReconnectMaxAttempts       int `envconfig:"RECONNECT_MAX_ATTEMPTS" default:"5"`
	ReconnectBackoff           int `envconfig:"RECONNECT_BACKOFF" default:"1000"` // milliseconds

	// Observability configuration
	LogLevel       string `envconfig:"LOG_LEVEL" default:"info"`
	LogPretty      bool   `envconfig:"LOG_PRETTY" default:"false"`
	MetricsEnabled bool   `envconfig:"METRICS_ENABLED" default:"true"`
}

// Load reads configuration from a .env file (if present) and the
// environment, then validates it. Configuration errors are fatal at startup.
func Load() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate enforces the construction-time invariants of the audio pipeline.
func (c *Config) Validate() error {
	if c.SampleRate <= 0 {
		return fmt.Errorf("SAMPLE_RATE must be positive, got %d", c.SampleRate)
	}
	if c.Channels <= 0 {
		return fmt.Errorf("CHANNELS must be positive, got %d", c.Channels)
	}
	if c.FrameDurationMs <= 0 {
		return fmt.Errorf("FRAME_DURATION_MS must be positive, got %d", c.FrameDurationMs)
	}
	// The VAD contract needs a whole number of samples per frame.
	if c.SampleRate*c.FrameDurationMs%1000 != 0 {
		return fmt.Errorf("FRAME_DURATION_MS %d does not yield whole samples at %d Hz", c.FrameDurationMs, c.SampleRate)
	}
	if c.SilenceDurationMs <= 0 {
		return fmt.Errorf("SILENCE_DURATION_MS must be positive, got %d", c.SilenceDurationMs)
	}
	if c.RingBufferSeconds <= 0 {
		return fmt.Errorf("RING_BUFFER_SECONDS must be positive, got %d", c.RingBufferSeconds)
	}
	if c.TickIntervalMs <= 0 {
		return fmt.Errorf("TICK_INTERVAL_MS must be positive, got %d", c.TickIntervalMs)
	}
	if c.DeepgramAPIKey == "" {
		return fmt.Errorf("DEEPGRAM_API_KEY is required")
	}
	return nil
}

// FrameDuration returns the VAD frame length.
func (c *Config) FrameDuration() time.Duration {
	return time.Duration(c.FrameDurationMs) * time.Millisecond
}

// SilenceDuration returns the hangover threshold.
func (c *Config) SilenceDuration() time.Duration {
	return time.Duration(c.SilenceDurationMs) * time.Millisecond
}

// TickInterval returns the capture poll cadence.
func (c *Config) TickInterval() time.Duration {
	return time.Duration(c.TickIntervalMs) * time.Millisecond
}

// RingBufferCapacity returns the ring size in interleaved samples.
func (c *Config) RingBufferCapacity() int {
	return c.RingBufferSeconds * c.SampleRate * c.Channels
}

// FrameSize returns the interleaved samples per VAD frame.
func (c *Config) FrameSize() int {
	return c.SampleRate * c.Channels * c.FrameDurationMs / 1000
}
