package server

import (
	"net/http"

	"github.com/avinashreddy333/Lockspace/internal/audit"
)

type auditResp struct {
	Entries []audit.Entry `json:"entries"`
	Intact  bool          `json:"intact"`
}

func (s *Server) handleAudit(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	writeJSON(w, auditResp{
		Entries: s.audit.Entries(),
		Intact:  s.audit.Verify() == nil,
	})
}
