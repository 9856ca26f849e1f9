// Package httpapi implements spec.md §6's HTTP transport: every tool call
// is a POST to /api/tools/{name} dispatched through the shared
// tools.Registry, normalized to the same {success, result}/{success:false,
// error} envelope the stdio transport returns. It is adapted from the
// teacher's internal/infrastructure/http/server.go (one ServeMux, one
// logging/CORS middleware chain, graceful shutdown on context
// cancellation) generalized from three fixed routes to the full tool
// surface, plus a session manager the teacher never needed.
package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/ingestgraph/corpus/internal/domain/ports"
	"github.com/ingestgraph/corpus/internal/domain/usecases"
	"github.com/ingestgraph/corpus/internal/infrastructure/tools"
)

// SessionIDHeader carries the caller's session id; callers that omit it
// are folded onto usecases.LocalSessionID, the same well-known id the
// stdio transport's single caller uses (spec.md §4.5).
const SessionIDHeader = "X-Session-Id"

// Server is the HTTP transport over one process-wide Session and tool
// Registry (spec.md §4.5: a single selectable database per process, so
// unlike the teacher's Server this never constructs per-request state
// beyond which ToolSession a call is attributed to).
type Server struct {
	registry *tools.Registry
	sess     *usecases.Session
	clock    ports.Clock
	log      zerolog.Logger
	addr     string
	manager  *sessionManager
}

// NewServer builds a Server bound to registry/sess, listening on addr.
func NewServer(registry *tools.Registry, sess *usecases.Session, clock ports.Clock, log zerolog.Logger, addr string) *Server {
	return &Server{
		registry: registry,
		sess:     sess,
		clock:    clock,
		log:      log,
		addr:     addr,
		manager:  newSessionManager(sess, clock, 30*time.Minute),
	}
}

// Start runs the HTTP server until ctx is canceled, then drains within 5s
// the same way the teacher's Start does.
func (s *Server) Start(ctx context.Context) error {
	stopReaper := s.manager.startReaper(ctx, 5*time.Minute)
	defer stopReaper()

	mux := http.NewServeMux()
	mux.HandleFunc("/api/health", s.handleHealth)
	mux.HandleFunc("/api/tools", s.handleListTools)
	mux.HandleFunc("/api/tools/", s.handleDispatch)

	server := &http.Server{
		Addr:         s.addr,
		Handler:      corsMiddleware(s.loggingMiddleware(mux)),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 300 * time.Second,
	}

	s.log.Info().Str("addr", s.addr).Msg("httpapi server starting")

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		server.Shutdown(shutdownCtx)
	}()

	err := server.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleListTools(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"tools": s.registry.Names()})
}

// handleDispatch maps POST /api/tools/{name} onto Registry.Dispatch,
// attributing the call to the caller's ToolSession (spec.md §6's HTTP
// transport session manager).
func (s *Server) handleDispatch(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	name := strings.TrimPrefix(r.URL.Path, "/api/tools/")
	if name == "" {
		http.Error(w, "tool name required", http.StatusBadRequest)
		return
	}

	sessionID := r.Header.Get(SessionIDHeader)
	if sessionID == "" {
		sessionID = usecases.LocalSessionID
	}
	s.manager.touch(sessionID)

	var args json.RawMessage
	if r.Body != nil {
		_ = json.NewDecoder(r.Body).Decode(&args)
	}

	resp := s.registry.Dispatch(r.Context(), s.sess, name, args)
	status := http.StatusOK
	if !resp.Success {
		status = statusForCategory(resp.Error.Category)
	}
	writeJSON(w, status, resp)
}

func statusForCategory(category string) int {
	switch category {
	case "VALIDATION_ERROR":
		return http.StatusBadRequest
	case "DATABASE_NOT_SELECTED", "DOCUMENT_NOT_FOUND", "DATABASE_NOT_FOUND", "PATH_NOT_FOUND":
		return http.StatusNotFound
	case "DATABASE_ALREADY_EXISTS":
		return http.StatusConflict
	case "SWITCH_BLOCKED", "STALE_DATABASE_REFERENCE":
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		s.log.Info().Str("method", r.Method).Str("path", r.URL.Path).Dur("elapsed", time.Since(start)).Msg("request")
	})
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, "+SessionIDHeader)
		if r.Method == http.MethodOptions {
			return
		}
		next.ServeHTTP(w, r)
	})
}
