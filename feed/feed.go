// Package feed streams memory.saved events to live HTTP clients over
// Server-Sent Events or WebSocket.
//
// Each connection owns its own bus subscription, so a slow client only
// loses its own events. Close ends every open stream; wire it to
// http.Server.RegisterOnShutdown so long-lived connections do not hold up
// a graceful shutdown.
package feed

import (
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/vinayprograms/reverie/bus"
	"github.com/vinayprograms/reverie/errors"
	"github.com/vinayprograms/reverie/logging"
)

// Config holds feed configuration.
type Config struct {
	// HeartbeatInterval sends SSE comments as keepalive (0 = disabled).
	HeartbeatInterval time.Duration

	// PingInterval for WebSocket keepalive pings (0 = disabled).
	PingInterval time.Duration

	// WriteTimeout for WebSocket writes.
	WriteTimeout time.Duration

	// AllowAnyOrigin skips the WebSocket same-origin check.
	AllowAnyOrigin bool
}

// DefaultConfig returns configuration with sensible defaults.
func DefaultConfig() Config {
	return Config{
		HeartbeatInterval: 30 * time.Second,
		PingInterval:      30 * time.Second,
		WriteTimeout:      10 * time.Second,
	}
}

// Feed serves the live event streams.
type Feed struct {
	bus      bus.MessageBus
	config   Config
	logger   *logging.Logger
	upgrader *websocket.Upgrader

	mu     sync.Mutex
	closed bool
	done   chan struct{}
	once   sync.Once
	wg     sync.WaitGroup
}

// New creates a feed over b. A nil logger discards output.
func New(b bus.MessageBus, cfg Config, logger *logging.Logger) *Feed {
	if logger == nil {
		logger = logging.Discard()
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = DefaultConfig().WriteTimeout
	}

	upgrader := &websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
	}
	if cfg.AllowAnyOrigin {
		upgrader.CheckOrigin = func(r *http.Request) bool { return true }
	}

	return &Feed{
		bus:      b,
		config:   cfg,
		logger:   logger.WithComponent("feed"),
		upgrader: upgrader,
		done:     make(chan struct{}),
	}
}

// Close ends every open stream and refuses new ones. It does not close
// the bus.
func (f *Feed) Close() {
	f.mu.Lock()
	f.closed = true
	f.mu.Unlock()
	f.once.Do(func() { close(f.done) })
}

// Wait blocks until every open stream has returned. Streams that start
// while Wait runs are only possible before Close.
func (f *Feed) Wait() {
	f.wg.Wait()
}

// subscribe registers the stream and opens its subscription, or writes a
// 503. On success the caller must call f.wg.Done when the stream ends.
func (f *Feed) subscribe(w http.ResponseWriter) (bus.Subscription, bool) {
	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		writeUnavailable(w, "feed closed")
		return nil, false
	}
	f.wg.Add(1)
	f.mu.Unlock()

	sub, err := f.bus.Subscribe(bus.SubjectMemorySaved)
	if err != nil {
		f.wg.Done()
		f.logger.Warn("subscribe failed", map[string]interface{}{"error": err.Error()})
		writeUnavailable(w, "event bus unavailable")
		return nil, false
	}
	return sub, true
}

func writeUnavailable(w http.ResponseWriter, msg string) {
	errors.WriteJSON(w, errors.New(errors.ErrCodeUnavailable, msg))
}
