// Package gateway is the HTTP surface: the webhook receiving WhatsApp
// events plus the authenticated dashboard endpoints.
package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/linsalefe/mega-api-whatsapp-ai/internal/config"
	"github.com/linsalefe/mega-api-whatsapp-ai/internal/domain"
	"github.com/linsalefe/mega-api-whatsapp-ai/internal/llm"
	"github.com/linsalefe/mega-api-whatsapp-ai/internal/logging"
	"github.com/linsalefe/mega-api-whatsapp-ai/internal/version"
)

// ChatResponder generates replies for dashboard chat sessions.
type ChatResponder interface {
	Respond(ctx context.Context, userID, text string) domain.Reply
	RespondStream(ctx context.Context, userID, text string, cb func(llm.StreamEvent)) domain.Reply
}

// Messenger sends messages through the WhatsApp gateway and reports its
// connectivity.
type Messenger interface {
	SendText(ctx context.Context, to, text string) error
	InstanceStatus(ctx context.Context) (map[string]any, error)
}

// EventSink accepts inbound webhook events for background processing.
type EventSink interface {
	Dispatch(event domain.Event)
}

// DocumentIngester adds documents to the knowledge base.
type DocumentIngester interface {
	IngestText(ctx context.Context, name, text string) (int, error)
}

// IndexStats reports the size of the passage index.
type IndexStats interface {
	Count() (int, error)
}

// Deps are the collaborators the server routes requests to. Responder,
// messenger, and sink are required; ingester may be nil when document
// upload is unavailable.
type Deps struct {
	Responder ChatResponder
	Messenger Messenger
	Sink      EventSink
	Ingester  DocumentIngester
	Index     IndexStats

	// RAGReady reports whether replies can be grounded in the
	// passage index, surfaced through /health.
	RAGReady bool
}

// Server is the megabot HTTP server.
type Server struct {
	cfg  config.Config
	deps Deps
	log  *logging.Logger

	startedAt  time.Time
	httpServer *http.Server
	upgrader   websocket.Upgrader
}

// NewServer creates the HTTP server.
func NewServer(cfg config.Config, deps Deps, log *logging.Logger) *Server {
	s := &Server{
		cfg:  cfg,
		deps: deps,
		log:  log.Sub("gateway"),
	}
	s.upgrader = websocket.Upgrader{
		ReadBufferSize:  4096,
		WriteBufferSize: 4096,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			return origin == "" || isOriginAllowed(origin, cfg.Server.AllowedOrigins)
		},
	}
	return s
}

// resolveBindAddr computes the listen address from config.
func resolveBindAddr(cfg config.ServerConfig) string {
	switch cfg.Bind {
	case "loopback":
		return fmt.Sprintf("127.0.0.1:%d", cfg.Port)
	case "lan":
		return fmt.Sprintf("0.0.0.0:%d", cfg.Port)
	case "custom":
		host := cfg.CustomBindHost
		if host == "" {
			host = "0.0.0.0"
		}
		return fmt.Sprintf("%s:%d", host, cfg.Port)
	default:
		return fmt.Sprintf("127.0.0.1:%d", cfg.Port)
	}
}

// Start listens and serves until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) Start(ctx context.Context) error {
	addr := resolveBindAddr(s.cfg.Server)

	mux := http.NewServeMux()
	s.registerRoutes(mux)

	handler := withMiddleware(mux, s.log, s.cfg.Server.AllowedOrigins)

	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  120 * time.Second,
		BaseContext:  func(l net.Listener) context.Context { return ctx },
	}

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}

	s.startedAt = time.Now()
	s.log.Info().
		Str("addr", ln.Addr().String()).
		Str("bind", s.cfg.Server.Bind).
		Bool("rag", s.deps.RAGReady).
		Msg("server ready")

	go func() {
		<-ctx.Done()
		s.log.Info().Msg("shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		s.httpServer.Shutdown(shutdownCtx)
	}()

	if err := s.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Addr returns the bound address once Start has been called.
func (s *Server) Addr() string {
	if s.httpServer == nil {
		return ""
	}
	return s.httpServer.Addr
}

func (s *Server) registerRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /", s.handleBanner)
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("POST /webhook", s.handleWebhook)
	mux.HandleFunc("POST /chat", s.requireAuth(s.handleChat))
	mux.HandleFunc("GET /chat/ws", s.requireAuth(s.handleChatWS))
	mux.HandleFunc("POST /documents", s.requireAuth(s.handleDocuments))
	mux.HandleFunc("POST /send", s.requireAuth(s.handleSend))
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

func (s *Server) handleBanner(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		writeError(w, http.StatusNotFound, "not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"service":    "megabot",
		"version":    version.Version,
		"status":     "online",
		"ragEnabled": s.deps.RAGReady,
		"passages":   s.passageCount(),
		"time":       time.Now().UTC().Format(time.RFC3339),
	})
}

// passageCount returns the index size, or 0 when unavailable.
func (s *Server) passageCount() int {
	if s.deps.Index == nil {
		return 0
	}
	count, err := s.deps.Index.Count()
	if err != nil {
		s.log.Warn().Err(err).Msg("passage count unavailable")
		return 0
	}
	return count
}
