package apihttp

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"sync"

	"trackstream/internal/domain"
	"trackstream/internal/track"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// SessionManager is the track-session surface the API depends on.
type SessionManager interface {
	Session(uri string) *track.Session
	Lookup(uri string) (*track.Session, bool)
	States() []domain.SessionState
}

// PlaybackHistoryStore lists recently recorded playback boundaries.
type PlaybackHistoryStore interface {
	ListRecent(ctx context.Context, limit int) ([]domain.PlaybackEvent, error)
}

type Server struct {
	manager        SessionManager
	history        PlaybackHistoryStore
	allowedOrigins []string
	logger         *slog.Logger
	handler        http.Handler
	wsHub          *wsHub

	// baseCtx bounds the lifetime of stream transfers started on behalf of
	// clients; cancelled on Close.
	baseCtx context.Context
	cancel  context.CancelFunc

	watchMu sync.Mutex
	watched map[string]*track.Subscription
}

type ServerOption func(*Server)

func WithLogger(logger *slog.Logger) ServerOption {
	return func(s *Server) {
		s.logger = logger
	}
}

func WithPlaybackHistory(store PlaybackHistoryStore) ServerOption {
	return func(s *Server) {
		s.history = store
	}
}

// WithAllowedOrigins configures the CORS allowed origins whitelist. When
// empty (default), any origin is permitted.
func WithAllowedOrigins(origins []string) ServerOption {
	return func(s *Server) {
		s.allowedOrigins = origins
	}
}

func NewServer(manager SessionManager, opts ...ServerOption) *Server {
	ctx, cancel := context.WithCancel(context.Background())
	s := &Server{
		manager: manager,
		baseCtx: ctx,
		cancel:  cancel,
		watched: make(map[string]*track.Subscription),
	}
	for _, opt := range opts {
		opt(s)
	}

	if s.logger == nil {
		s.logger = slog.Default()
	}

	s.wsHub = newWSHub(s.logger)
	go s.wsHub.run()

	mux := http.NewServeMux()
	mux.HandleFunc("/tracks", s.handleTracks)
	mux.HandleFunc("/tracks/", s.handleTrackByURI)
	mux.HandleFunc("/playback-history", s.handlePlaybackHistory)
	mux.HandleFunc("/internal/health", s.handleHealth)
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/ws", s.handleWS)

	traced := otelhttp.NewHandler(loggingMiddleware(s.logger, mux), "trackstream",
		otelhttp.WithFilter(func(r *http.Request) bool {
			p := r.URL.Path
			return p != "/metrics" && p != "/internal/health"
		}),
	)
	s.handler = recoveryMiddleware(s.logger, rateLimitMiddleware(100, 200, metricsMiddleware(corsMiddleware(s.allowedOrigins, traced))))
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}

// Close cancels in-flight stream transfers, detaches session subscriptions
// and shuts down the WebSocket hub.
func (s *Server) Close() {
	s.cancel()

	s.watchMu.Lock()
	watched := s.watched
	s.watched = make(map[string]*track.Subscription)
	s.watchMu.Unlock()
	for uri, sub := range watched {
		if session, ok := s.manager.Lookup(uri); ok {
			session.Unsubscribe(sub)
		}
	}

	if s.wsHub != nil {
		s.wsHub.Close()
	}
}

// BroadcastStates pushes session states to all WebSocket clients; driven by
// the main process on a ticker.
func (s *Server) BroadcastStates(states []domain.SessionState) {
	if s.wsHub != nil {
		s.wsHub.BroadcastStates(states)
	}
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := wsUpgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error("ws upgrade failed", slog.String("error", err.Error()))
		return
	}
	client := &wsClient{
		hub:  s.wsHub,
		conn: conn,
		send: make(chan []byte, 256),
	}
	s.wsHub.register <- client
	go client.writePump()
	go client.readPump()
}

// watchSession attaches a session event subscription (once per URI) and pumps
// its events to the WebSocket hub.
func (s *Server) watchSession(uri string, session *track.Session) {
	s.watchMu.Lock()
	if _, ok := s.watched[uri]; ok {
		s.watchMu.Unlock()
		return
	}
	sub := session.Subscribe()
	s.watched[uri] = sub
	s.watchMu.Unlock()

	go func() {
		for {
			select {
			case event := <-sub.Metadata:
				s.wsHub.Broadcast("metadata", event)
			case event := <-sub.Source:
				s.wsHub.Broadcast("source", event)
			case event := <-sub.Started:
				s.wsHub.Broadcast("started", event)
			case event := <-sub.Ended:
				s.wsHub.Broadcast("ended", event)
			case <-sub.Done:
				return
			}
		}
	}()
}

// trackRoute splits "/tracks/{uri}[/stream|/end]" into the track URI and the
// trailing action. Track URIs themselves carry no slashes.
func trackRoute(path string) (uri, action string) {
	rest := strings.TrimPrefix(path, "/tracks/")
	if idx := strings.LastIndexByte(rest, '/'); idx >= 0 {
		switch rest[idx+1:] {
		case "stream", "end":
			return rest[:idx], rest[idx+1:]
		}
	}
	return rest, ""
}
