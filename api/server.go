// Package api serves memory records over HTTP.
//
// Writes go through POST /action. Reads either return raw entries
// (/memories) or render them into prose (/reflect, /interpret, /stream,
// /insight, /dream). Live saves stream over /events (SSE) and /ws
// (WebSocket) when a feed is configured.
package api

import (
	"math/rand/v2"
	"net/http"
	"sync"

	"github.com/google/uuid"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/vinayprograms/reverie/bus"
	"github.com/vinayprograms/reverie/errors"
	"github.com/vinayprograms/reverie/feed"
	"github.com/vinayprograms/reverie/logging"
	"github.com/vinayprograms/reverie/memory"
	"github.com/vinayprograms/reverie/ratelimit"
	"github.com/vinayprograms/reverie/telemetry"
)

// WriteResource is the rate limit resource charged by POST /action.
const WriteResource = "writes"

// maxBodyBytes caps POST /action bodies.
const maxBodyBytes = 1 << 20

// Config wires a Server. Only Store is required.
type Config struct {
	Store memory.Store

	// Bus receives a memory.saved event per save (nil = no events).
	Bus bus.MessageBus

	// Feed serves /events and /ws (nil = not mounted).
	Feed *feed.Feed

	// Limiter throttles POST /action (nil = unlimited).
	Limiter ratelimit.RateLimiter

	Logger *logging.Logger
	Tracer *telemetry.Tracer

	// Rand drives /dream (default: randomly seeded PCG).
	Rand *rand.Rand

	// NewID generates record IDs (default: uuid.NewString).
	NewID func() string
}

// Server is the HTTP API.
type Server struct {
	store   memory.Store
	bus     bus.MessageBus
	feed    *feed.Feed
	limiter ratelimit.RateLimiter
	logger  *logging.Logger
	tracer  *telemetry.Tracer
	newID   func() string

	randMu sync.Mutex
	rand   *rand.Rand

	handler http.Handler
}

// New builds the server and its routes.
func New(cfg Config) (*Server, error) {
	if cfg.Store == nil {
		return nil, errors.InvalidInput("api: store is required")
	}
	if cfg.Logger == nil {
		cfg.Logger = logging.Discard()
	}
	if cfg.Tracer == nil {
		cfg.Tracer = telemetry.GetTracer()
	}
	if cfg.Rand == nil {
		cfg.Rand = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	if cfg.NewID == nil {
		cfg.NewID = uuid.NewString
	}

	s := &Server{
		store:   cfg.Store,
		bus:     cfg.Bus,
		feed:    cfg.Feed,
		limiter: cfg.Limiter,
		logger:  cfg.Logger.WithComponent("api"),
		tracer:  cfg.Tracer,
		newID:   cfg.NewID,
		rand:    cfg.Rand,
	}
	s.handler = s.routes()
	return s, nil
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}

func (s *Server) routes() http.Handler {
	api := http.NewServeMux()

	var action http.Handler = http.HandlerFunc(s.handleAction)
	if s.limiter != nil {
		action = ratelimit.Middleware(s.limiter, WriteResource, s.rejectRateLimited)(action)
	}
	api.Handle("POST /action", action)
	api.HandleFunc("GET /reflect", s.handleReflect)
	api.HandleFunc("GET /interpret/{id}", s.handleInterpret)
	api.HandleFunc("GET /stream", s.handleStream)
	api.HandleFunc("GET /insight", s.handleInsight)
	api.HandleFunc("GET /dream", s.handleDream)
	api.HandleFunc("GET /memories", s.handleListMemories)
	api.HandleFunc("GET /memories/all", s.handleAllMemories)
	api.HandleFunc("GET /memories/{key}", s.handleGetMemory)
	api.HandleFunc("GET /healthz", s.handleHealth)

	root := http.NewServeMux()
	root.Handle("/", otelhttp.NewHandler(api, "reverie",
		otelhttp.WithSpanNameFormatter(func(_ string, r *http.Request) string {
			return r.Method + " " + r.URL.Path
		}),
	))
	// Streams stay outside the per-request span.
	if s.feed != nil {
		root.HandleFunc("GET /events", s.feed.ServeSSE)
		root.HandleFunc("GET /ws", s.feed.ServeWebSocket)
	}

	return s.logRequests(s.recoverPanics(root))
}

// randSource locks the shared random source; call the returned func to release it.
func (s *Server) randSource() (*rand.Rand, func()) {
	s.randMu.Lock()
	return s.rand, s.randMu.Unlock
}
