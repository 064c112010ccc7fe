package server

import (
	"net/http"

	"github.com/avinashreddy333/Lockspace/internal/metrics"
)

func (s *Server) routes() {
	s.mux.HandleFunc("/healthz", s.handleHealth)
	s.mux.HandleFunc("/api/health", s.handleHealth)
	if s.metricsEnabled {
		s.mux.Handle("/metrics", metrics.Handler())
	}

	s.mux.HandleFunc("/api/workspaces", s.handleWorkspaces)
	s.mux.HandleFunc("/api/workspaces/unlock", s.handleWorkspaceUnlock)
	s.mux.HandleFunc("/api/workspaces/lock", s.handleWorkspaceLock)
	s.mux.HandleFunc("/api/session", s.handleSession)
	s.mux.HandleFunc("/api/audit", s.handleAudit)

	s.mux.HandleFunc("/api/folders", s.handleFolders)
	s.mux.HandleFunc("/api/folders/", s.handleFolderByID)
	s.mux.HandleFunc("/api/files/", s.handleFileByID)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}
