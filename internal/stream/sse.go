// Package stream serves dashboard events as Server-Sent Events. Clients
// connect via GET /api/v1/stream and receive every event the session
// publishes: clock strings each second and current positions after each
// refresh.
//
// SSE message format:
//
//	data: {"type":"clock","t":"2024-06-22T04:00:00Z","data":{"ut":"04:00:00",...}}\n\n
//
// First message is always a "hello" carrying the current view summary.
// Keep-alive comments (:\n\n) are sent every KeepaliveInterval of silence.
package stream

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"math/rand"
	"net/http"
	"sync"
	"time"

	"github.com/obscode/magdash/internal/httputil"
	"github.com/obscode/magdash/internal/metrics"
)

// subscriberBuffer is the number of messages queued per client before
// new ones are dropped for it.
const subscriberBuffer = 32

// Config holds streaming configuration loaded from environment variables.
type Config struct {
	MaxConcurrentPerIP int           // Max concurrent streams per IP (default: 10).
	KeepaliveInterval  time.Duration // Keep-alive ping interval (default: 30s).
	TrustProxy         bool          // Take the client IP from proxy headers.
}

// Hub fans published events out to connected SSE clients.
type Hub struct {
	config  Config
	limiter *streamLimiter
	initial func() any
	logger  *slog.Logger

	mu   sync.Mutex
	subs map[chan []byte]struct{}
}

// NewHub creates a hub. initial, if non-nil, supplies the payload of the
// hello message sent on each new connection.
func NewHub(config Config, initial func() any, logger *slog.Logger) *Hub {
	return &Hub{
		config:  config,
		limiter: newStreamLimiter(config.MaxConcurrentPerIP),
		initial: initial,
		logger:  logger,
		subs:    make(map[chan []byte]struct{}),
	}
}

type envelope struct {
	Type string `json:"type"`
	T    string `json:"t"`
	Data any    `json:"data,omitempty"`
}

func encode(event string, payload any) ([]byte, error) {
	return json.Marshal(envelope{
		Type: event,
		T:    time.Now().UTC().Format(time.RFC3339),
		Data: payload,
	})
}

// Publish sends an event to every client. It never blocks: a client whose
// queue is full misses the event.
func (h *Hub) Publish(event string, payload any) {
	data, err := encode(event, payload)
	if err != nil {
		h.logger.Warn("stream marshal error", "event", event, "error", err)
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for ch := range h.subs {
		select {
		case ch <- data:
		default:
			h.logger.Debug("stream client lagging, event dropped", "event", event)
		}
	}
}

// Subscribers returns the number of connected clients.
func (h *Hub) Subscribers() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}

func (h *Hub) subscribe() chan []byte {
	ch := make(chan []byte, subscriberBuffer)
	h.mu.Lock()
	h.subs[ch] = struct{}{}
	h.mu.Unlock()
	return ch
}

func (h *Hub) unsubscribe(ch chan []byte) {
	h.mu.Lock()
	delete(h.subs, ch)
	h.mu.Unlock()
}

func writeJSONError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

// HandleStream serves the SSE event stream.
// GET /api/v1/stream
func (h *Hub) HandleStream(w http.ResponseWriter, r *http.Request) {
	// Rate limiting: enforce concurrent stream limit per IP.
	ip := httputil.ClientIP(r, h.config.TrustProxy)
	if !h.limiter.acquire(ip) {
		metrics.IncStreamRejected()
		h.logger.Warn("stream rate limit exceeded",
			"remote_ip", ip,
			"current_count", h.limiter.count(ip),
		)
		w.Header().Set("Retry-After", "30")
		writeJSONError(w, http.StatusTooManyRequests, "too many concurrent streams")
		return
	}

	metrics.IncStreamConnections()
	startTime := time.Now()
	h.logger.Info("stream connected",
		"remote_ip", ip,
		"user_agent", r.Header.Get("User-Agent"),
	)

	defer func() {
		h.limiter.release(ip)
		metrics.DecStreamConnections()
		h.logger.Info("stream disconnected",
			"remote_ip", ip,
			"duration_seconds", int(time.Since(startTime).Seconds()),
		)
	}()

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeJSONError(w, http.StatusInternalServerError, "streaming not supported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no") // Disable nginx buffering.
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	// Clear the server's WriteTimeout for this long-lived connection.
	rc := http.NewResponseController(w)
	if err := rc.SetWriteDeadline(time.Time{}); err != nil {
		h.logger.Debug("could not clear write deadline", "error", err)
	}

	c := &client{
		w:       w,
		flusher: flusher,
		rc:      rc,
		logger:  h.logger,
	}

	// Jittered retry interval (3-7s) spreads reconnections after a restart.
	fmt.Fprintf(w, "retry: %d\n\n", 3000+rand.Intn(4000))
	flusher.Flush()

	ch := h.subscribe()
	defer h.unsubscribe(ch)

	var hello any
	if h.initial != nil {
		hello = h.initial()
	}
	data, err := encode("hello", hello)
	if err == nil {
		err = c.sendRaw(data)
	}
	if err != nil {
		h.logger.Warn("stream send error (hello)", "remote_ip", ip, "error", err)
		return
	}

	keepalive := time.NewTicker(h.config.KeepaliveInterval)
	defer keepalive.Stop()

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return

		case data := <-ch:
			if err := c.sendRaw(data); err != nil {
				h.logger.Warn("stream send error", "remote_ip", ip, "error", err)
				return
			}
			keepalive.Reset(h.config.KeepaliveInterval)

		case <-keepalive.C:
			if err := c.sendKeepalive(); err != nil {
				h.logger.Warn("stream keepalive error", "remote_ip", ip, "error", err)
				return
			}
		}
	}
}
