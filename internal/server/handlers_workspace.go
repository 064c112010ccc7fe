package server

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"
)

type createWorkspaceReq struct {
	Name     string `json:"name"`
	Password string `json:"password"`
}

type createWorkspaceResp struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type unlockWorkspaceReq struct {
	Password string `json:"password"`
}

type unlockWorkspaceResp struct {
	Token     string    `json:"token"`
	Name      string    `json:"name"`
	ExpiresAt time.Time `json:"expires_at"`
}

type sessionResp struct {
	WorkspaceID     string   `json:"workspace_id"`
	Name            string   `json:"name"`
	State           string   `json:"state"`
	ActiveFolder    string   `json:"active_folder,omitempty"`
	UnlockedFolders []string `json:"unlocked_folders"`
}

func (s *Server) handleWorkspaces(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		s.createWorkspace(w, r)
	case http.MethodDelete:
		s.destroyWorkspace(w, r)
	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (s *Server) createWorkspace(w http.ResponseWriter, r *http.Request) {
	if !s.rlCreateIP.allow(getClientIP(r)) {
		tooMany(w, 60)
		return
	}

	var req createWorkspaceReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad json")
		return
	}
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "name required")
		return
	}
	if err := validateNewPassword(req.Password); err != nil {
		writeError(w, http.StatusBadRequest, "weak password: "+err.Error())
		return
	}

	id, err := s.mgr.CreateWorkspace(r.Context(), req.Name, req.Password)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	s.audit.Append("workspace.created")
	writeJSONStatus(w, http.StatusCreated, createWorkspaceResp{ID: id, Name: req.Name})
}

func (s *Server) handleWorkspaceUnlock(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	if !s.rlUnlockIP.allow(getClientIP(r)) {
		tooMany(w, 60)
		return
	}

	var req unlockWorkspaceReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad json")
		return
	}
	if req.Password == "" {
		writeError(w, http.StatusBadRequest, "password required")
		return
	}

	id, err := s.mgr.UnlockWorkspace(r.Context(), req.Password)
	if err != nil {
		s.audit.Append("workspace.unlock_failed")
		writeDomainError(w, err)
		return
	}

	token, exp, err := s.signer.Issue(id)
	if err != nil {
		s.mgr.LockWorkspace()
		writeError(w, http.StatusInternalServerError, "token issue failed")
		return
	}
	s.audit.Append("workspace.unlocked")
	writeJSON(w, unlockWorkspaceResp{
		Token:     token,
		Name:      s.mgr.WorkspaceName(),
		ExpiresAt: exp,
	})
}

func (s *Server) handleWorkspaceLock(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	s.mgr.LockWorkspace()
	s.audit.Append("workspace.locked")
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) destroyWorkspace(w http.ResponseWriter, r *http.Request) {
	if err := s.mgr.DeleteWorkspace(r.Context()); err != nil {
		writeDomainError(w, err)
		return
	}
	s.audit.Append("workspace.deleted")
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleSession(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	writeJSON(w, sessionResp{
		WorkspaceID:     s.mgr.WorkspaceID(),
		Name:            s.mgr.WorkspaceName(),
		State:           s.mgr.State().String(),
		ActiveFolder:    s.mgr.ActiveFolder(),
		UnlockedFolders: s.mgr.UnlockedFolders(),
	})
}
