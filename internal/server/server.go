// Package server exposes the workspace manager over a JSON HTTP API.
// One daemon serves one session. A bearer token proves the caller is
// whoever unlocked the workspace; there are no user accounts behind it.
package server

import (
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/avinashreddy333/Lockspace/internal/audit"
	"github.com/avinashreddy333/Lockspace/internal/auth"
	"github.com/avinashreddy333/Lockspace/internal/logging"
	"github.com/avinashreddy333/Lockspace/internal/metrics"
	"github.com/avinashreddy333/Lockspace/internal/workspace"
)

type Options struct {
	// MaxUploadBytes bounds a single file's plaintext size. The HTTP
	// body limit is derived from it with room for base64 and envelope.
	MaxUploadBytes int64

	// MetricsEnabled registers the Prometheus handler on /metrics.
	MetricsEnabled bool
}

func (o *Options) setDefaults() {
	if o.MaxUploadBytes <= 0 {
		o.MaxUploadBytes = workspace.DefaultMaxUploadBytes
	}
}

type Server struct {
	mgr    *workspace.Manager
	signer *auth.Signer
	audit  *audit.Log
	mux    *http.ServeMux

	maxBody        int64
	metricsEnabled bool

	rlUnlockIP *multiLimiter
	rlCreateIP *multiLimiter
}

func New(mgr *workspace.Manager, signer *auth.Signer, auditLog *audit.Log, opts Options) *Server {
	opts.setDefaults()

	s := &Server{
		mgr:            mgr,
		signer:         signer,
		audit:          auditLog,
		mux:            http.NewServeMux(),
		maxBody:        opts.MaxUploadBytes/3*4 + 64<<10,
		metricsEnabled: opts.MetricsEnabled,
	}

	s.rlUnlockIP = newMultiLimiter(perWindow(10, time.Minute), 10, time.Hour)
	s.rlCreateIP = newMultiLimiter(perWindow(30, time.Minute), 30, time.Hour)

	s.routes()
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}

	defer func() {
		if rec := recover(); rec != nil {
			logging.Error("handler panic",
				zap.Any("panic", rec),
				zap.String("path", r.URL.Path))
			http.Error(sw, "internal error", http.StatusInternalServerError)
		}
		metrics.RecordHTTPRequest(r.Method, routeLabel(r.URL.Path), sw.status, time.Since(start))
	}()

	s.addDefaultHeaders(sw, r)
	if r.Method == http.MethodOptions {
		sw.WriteHeader(http.StatusNoContent)
		return
	}

	r.Body = http.MaxBytesReader(sw, r.Body, s.maxBody)

	path := r.URL.Path
	if strings.HasPrefix(path, "/api/") && !s.isPublic(r.Method, path) {
		handler := auth.RequireSession(s.signer)(http.HandlerFunc(s.serveAuthed))
		handler.ServeHTTP(sw, r)
		return
	}
	s.mux.ServeHTTP(sw, r)
}

func (s *Server) Handler() http.Handler {
	return s
}

// serveAuthed runs after token verification. The token must name the
// workspace that is unlocked right now: locking the workspace or
// unlocking a different one invalidates every outstanding token.
func (s *Server) serveAuthed(w http.ResponseWriter, r *http.Request) {
	id, ok := auth.WorkspaceFromContext(r.Context())
	if !ok || id == "" || id != s.mgr.WorkspaceID() {
		writeError(w, http.StatusUnauthorized, "session expired")
		return
	}
	s.mux.ServeHTTP(w, r)
}

func (s *Server) isPublic(method, path string) bool {
	switch path {
	case "/api/health":
		return true
	case "/api/workspaces":
		return method == http.MethodPost
	case "/api/workspaces/unlock":
		return true
	default:
		return false
	}
}

func (s *Server) addDefaultHeaders(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Headers", "Authorization, Content-Type")
	w.Header().Set("Access-Control-Allow-Methods", "GET,POST,DELETE,OPTIONS")
	if strings.HasPrefix(r.URL.Path, "/api/") {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
	}
}

// routeLabel collapses entity ids out of paths so metric label
// cardinality stays bounded.
func routeLabel(path string) string {
	switch {
	case strings.HasPrefix(path, "/api/folders/"):
		rest := strings.TrimPrefix(path, "/api/folders/")
		if _, action, found := strings.Cut(rest, "/"); found {
			return "/api/folders/:id/" + action
		}
		return "/api/folders/:id"
	case strings.HasPrefix(path, "/api/files/"):
		return "/api/files/:id"
	default:
		return path
	}
}

type statusWriter struct {
	http.ResponseWriter
	status int
	wrote  bool
}

func (w *statusWriter) WriteHeader(code int) {
	if !w.wrote {
		w.status = code
		w.wrote = true
	}
	w.ResponseWriter.WriteHeader(code)
}

func (w *statusWriter) Write(b []byte) (int, error) {
	w.wrote = true
	return w.ResponseWriter.Write(b)
}
