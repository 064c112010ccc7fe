package server

import (
	"encoding/json"
	"net/http"
	"strings"
)

type createFolderReq struct {
	Name     string `json:"name"`
	Password string `json:"password"`
}

type createdResp struct {
	ID string `json:"id"`
}

type unlockFolderReq struct {
	Password string `json:"password"`
}

type unlockFolderResp struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

func (s *Server) handleFolders(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		s.createFolder(w, r)
	case http.MethodGet:
		s.listFolders(w, r)
	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (s *Server) createFolder(w http.ResponseWriter, r *http.Request) {
	var req createFolderReq
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

	id, err := s.mgr.CreateFolder(r.Context(), req.Name, req.Password)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	s.audit.Append("folder.created")
	writeJSONStatus(w, http.StatusCreated, createdResp{ID: id})
}

func (s *Server) listFolders(w http.ResponseWriter, r *http.Request) {
	infos, err := s.mgr.ListFolders(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, infos)
}

// handleFolderByID routes /api/folders/{id} and its subresources.
func (s *Server) handleFolderByID(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/api/folders/")
	id, action, _ := strings.Cut(rest, "/")
	if id == "" {
		http.NotFound(w, r)
		return
	}

	switch action {
	case "":
		if r.Method != http.MethodDelete {
			writeError(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}
		s.deleteFolder(w, r, id)
	case "unlock":
		if r.Method != http.MethodPost {
			writeError(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}
		s.unlockFolder(w, r, id)
	case "lock":
		if r.Method != http.MethodPost {
			writeError(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}
		s.mgr.LockFolder(id)
		w.WriteHeader(http.StatusNoContent)
	case "activate":
		if r.Method != http.MethodPost {
			writeError(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}
		if err := s.mgr.SetActiveFolder(id); err != nil {
			writeDomainError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	case "files":
		switch r.Method {
		case http.MethodPost:
			s.uploadFile(w, r, id)
		case http.MethodGet:
			s.listFiles(w, r, id)
		default:
			writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		}
	default:
		http.NotFound(w, r)
	}
}

func (s *Server) unlockFolder(w http.ResponseWriter, r *http.Request, id string) {
	if !s.rlUnlockIP.allow(getClientIP(r)) {
		tooMany(w, 60)
		return
	}

	var req unlockFolderReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad json")
		return
	}
	if req.Password == "" {
		writeError(w, http.StatusBadRequest, "password required")
		return
	}

	if err := s.mgr.UnlockFolder(r.Context(), id, req.Password); err != nil {
		s.audit.Append("folder.unlock_failed")
		writeDomainError(w, err)
		return
	}
	name, _ := s.mgr.FolderName(id)
	s.audit.Append("folder.unlocked")
	writeJSON(w, unlockFolderResp{ID: id, Name: name})
}

func (s *Server) deleteFolder(w http.ResponseWriter, r *http.Request, id string) {
	if err := s.mgr.DeleteFolder(r.Context(), id); err != nil {
		writeDomainError(w, err)
		return
	}
	s.audit.Append("folder.deleted")
	w.WriteHeader(http.StatusNoContent)
}
