package stream

import (
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/voxlab/utterance-gateway/internal/observability"
	"github.com/voxlab/utterance-gateway/internal/segment"
	"github.com/voxlab/utterance-gateway/internal/transcribe"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		// In production, validate origin against a configured allowlist
		// For now, allow all origins (development only)
		return true
	},
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
}

// Event is one message pushed to stream subscribers.
type Event struct {
	Type      string `json:"type"` // "utterance" or "transcript"
	Timestamp string `json:"timestamp"`

	// Utterance fields
	UtteranceID string `json:"utteranceId,omitempty"`
	DurationMs  int64  `json:"durationMs,omitempty"`
	Samples     int    `json:"samples,omitempty"`
	SampleRate  int    `json:"sampleRate,omitempty"`

	// Transcript fields
	Text       string  `json:"text,omitempty"`
	IsFinal    bool    `json:"isFinal,omitempty"`
	Confidence float64 `json:"confidence,omitempty"`
}

// client is one connected subscriber with its own outbound queue.
type client struct {
	id   string
	conn *websocket.Conn
	send chan Event
}

// Hub fans utterance and transcript events out to websocket subscribers.
// Slow subscribers are disconnected rather than allowed to back-pressure
// the pipeline.
type Hub struct {
	mu      sync.RWMutex
	clients map[string]*client
	logger  zerolog.Logger
}

// NewHub creates an empty hub.
func NewHub(logger zerolog.Logger) *Hub {
	return &Hub{
		clients: make(map[string]*client),
		logger:  logger,
	}
}

// Handler upgrades the request and subscribes the connection until it closes.
func (h *Hub) Handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			h.logger.Error().Err(err).Msg("failed to upgrade stream connection")
			return
		}

		c := &client{
			id:   uuid.New().String(),
			conn: conn,
			send: make(chan Event, 32),
		}
		h.register(c)

		go h.writeLoop(c)
		h.readLoop(c)
	}
}

func (h *Hub) register(c *client) {
	h.mu.Lock()
	h.clients[c.id] = c
	count := len(h.clients)
	h.mu.Unlock()

	observability.SetStreamClients(count)
	h.logger.Info().Str("client_id", c.id).Int("clients", count).Msg("stream client connected")
}

func (h *Hub) unregister(c *client) {
	h.mu.Lock()
	if _, ok := h.clients[c.id]; !ok {
		h.mu.Unlock()
		return
	}
	delete(h.clients, c.id)
	count := len(h.clients)
	h.mu.Unlock()

	close(c.send)
	c.conn.Close()
	observability.SetStreamClients(count)
	h.logger.Info().Str("client_id", c.id).Int("clients", count).Msg("stream client disconnected")
}

// readLoop drains inbound frames so close and ping handling work; subscribers
// never send application data.
func (h *Hub) readLoop(c *client) {
	defer h.unregister(c)
	c.conn.SetReadLimit(512)
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *Hub) writeLoop(c *client) {
	for event := range c.send {
		c.conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
		if err := c.conn.WriteJSON(event); err != nil {
			h.logger.Warn().Str("client_id", c.id).Err(err).Msg("stream write failed")
			h.unregister(c)
			return
		}
	}
}

// broadcast queues the event for every subscriber, dropping it for clients
// whose queues are full.
func (h *Hub) broadcast(event Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, c := range h.clients {
		select {
		case c.send <- event:
		default:
			h.logger.Warn().Str("client_id", c.id).Msg("stream client too slow, dropping event")
		}
	}
}

// OnUtterance implements segment.Sink, announcing each closed utterance.
// Audio samples are not forwarded, only segmentation metadata.
func (h *Hub) OnUtterance(u segment.Utterance) {
	h.broadcast(Event{
		Type:        "utterance",
		Timestamp:   time.Now().UTC().Format(time.RFC3339Nano),
		UtteranceID: u.ID,
		DurationMs:  u.Duration.Milliseconds(),
		Samples:     len(u.Samples),
		SampleRate:  u.SampleRate,
	})
}

// BroadcastTranscript announces one transcription result.
func (h *Hub) BroadcastTranscript(result *transcribe.Result) {
	h.broadcast(Event{
		Type:       "transcript",
		Timestamp:  time.Now().UTC().Format(time.RFC3339Nano),
		Text:       result.Text,
		IsFinal:    result.IsFinal,
		Confidence: result.Confidence,
	})
}

// ClientCount reports the number of connected subscribers.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Close disconnects every subscriber.
func (h *Hub) Close() {
	h.mu.Lock()
	clients := make([]*client, 0, len(h.clients))
	for _, c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.Unlock()

	for _, c := range clients {
		h.unregister(c)
	}
}
