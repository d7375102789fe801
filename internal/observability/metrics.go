package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Segmentation metrics
	utterancesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "utterance_gateway_utterances_total",
		Help: "Total number of utterances closed and emitted",
	})

	utteranceDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "utterance_gateway_utterance_duration_seconds",
		Help:    "Audio duration of emitted utterances in seconds",
		Buckets: []float64{0.25, 0.5, 1, 2, 5, 10, 20, 30},
	})

	vadFrames = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "utterance_gateway_vad_frames_total",
		Help: "Total VAD frames classified",
	}, []string{"decision"}) // decision: "speech" or "silence"

	ringDroppedSamples = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "utterance_gateway_ring_dropped_samples",
		Help: "Samples lost to the ring buffer's overwrite-oldest policy",
	})

	// Engine metrics
	tickInterval = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "utterance_gateway_tick_interval_seconds",
		Help:    "Observed wall-clock interval between capture ticks",
		Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25},
	})

	tickSamples = promauto.NewCounter(prometheus.CounterOpts{
		Name: "utterance_gateway_captured_samples_total",
		Help: "Total samples consumed from the capture source",
	})

	// Transcription metrics
	transcriptionRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "utterance_gateway_transcription_requests_total",
		Help: "Total transcription requests by outcome",
	}, []string{"status"})

	transcriptionLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "utterance_gateway_transcription_latency_seconds",
		Help:    "Latency from utterance close to final transcript",
		Buckets: []float64{0.1, 0.25, 0.5, 1.0, 2.0, 5.0, 10.0},
	})

	sinkQueueDropped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "utterance_gateway_sink_queue_dropped_total",
		Help: "Utterances dropped because the transcription queue was full",
	})

	// Stream metrics
	streamClients = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "utterance_gateway_stream_clients",
		Help: "Connected websocket event-stream clients",
	})

	// Circuit breaker metrics
	circuitBreakerState = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "utterance_gateway_circuit_breaker_state",
		Help: "Circuit breaker state (0=closed, 1=open, 2=half-open)",
	}, []string{"service"})

	circuitBreakerFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "utterance_gateway_circuit_breaker_failures_total",
		Help: "Total circuit breaker failures",
	}, []string{"service"})
)

// RecordUtterance records one emitted utterance and its audio duration.
func RecordUtterance(duration time.Duration) {
	utterancesTotal.Inc()
	utteranceDuration.Observe(duration.Seconds())
}

// RecordVADFrame records one classified VAD frame.
func RecordVADFrame(hasSpeech bool) {
	decision := "silence"
	if hasSpeech {
		decision = "speech"
	}
	vadFrames.WithLabelValues(decision).Inc()
}

// SetRingDropped publishes the ring buffer's cumulative overwrite loss.
func SetRingDropped(samples uint64) {
	ringDroppedSamples.Set(float64(samples))
}

// ObserveTick records one engine tick: its wall-clock spacing and the number
// of samples it consumed.
func ObserveTick(dt time.Duration, samples int) {
	tickInterval.Observe(dt.Seconds())
	tickSamples.Add(float64(samples))
}

// RecordTranscription records a transcription attempt outcome and latency.
func RecordTranscription(success bool, latency time.Duration) {
	status := "success"
	if !success {
		status = "error"
	}
	transcriptionRequests.WithLabelValues(status).Inc()
	if success {
		transcriptionLatency.Observe(latency.Seconds())
	}
}

// RecordSinkQueueDrop records an utterance dropped at the sink queue.
func RecordSinkQueueDrop() {
	sinkQueueDropped.Inc()
}

// SetStreamClients publishes the connected event-stream client count.
func SetStreamClients(n int) {
	streamClients.Set(float64(n))
}

// UpdateCircuitBreakerState updates the circuit breaker state metric.
func UpdateCircuitBreakerState(service string, state int) {
	circuitBreakerState.WithLabelValues(service).Set(float64(state))
}

// IncrementCircuitBreakerFailures increments the failure counter.
func IncrementCircuitBreakerFailures(service string) {
	circuitBreakerFailures.WithLabelValues(service).Inc()
}
