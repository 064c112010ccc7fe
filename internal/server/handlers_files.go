package server

import (
	"encoding/base64"
	"encoding/json"
	"net/http"
	"strings"
)

type uploadFileReq struct {
	Name     string `json:"name"`
	MimeType string `json:"mime_type,omitempty"`
	Data     string `json:"data"`
}

type fileResp struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Size      int64  `json:"size"`
	MimeType  string `json:"mime_type"`
	Data      string `json:"data"`
	CreatedAt int64  `json:"created_at"`
}

func (s *Server) uploadFile(w http.ResponseWriter, r *http.Request, folderID string) {
	var req uploadFileReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad json")
		return
	}
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "name required")
		return
	}
	data, err := base64.StdEncoding.DecodeString(req.Data)
	if err != nil {
		writeError(w, http.StatusBadRequest, "data must be base64")
		return
	}

	id, err := s.mgr.UploadFile(r.Context(), folderID, req.Name, req.MimeType, data)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	s.audit.Append("file.uploaded")
	writeJSONStatus(w, http.StatusCreated, createdResp{ID: id})
}

func (s *Server) listFiles(w http.ResponseWriter, r *http.Request, folderID string) {
	infos, err := s.mgr.ListFiles(r.Context(), folderID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, infos)
}

func (s *Server) handleFileByID(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimPrefix(r.URL.Path, "/api/files/")
	if id == "" || strings.Contains(id, "/") {
		http.NotFound(w, r)
		return
	}

	switch r.Method {
	case http.MethodGet:
		s.downloadFile(w, r, id)
	case http.MethodDelete:
		s.deleteFile(w, r, id)
	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (s *Server) downloadFile(w http.ResponseWriter, r *http.Request, id string) {
	f, err := s.mgr.DownloadFile(r.Context(), id)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	s.audit.Append("file.downloaded")
	writeJSON(w, fileResp{
		ID:        f.ID,
		Name:      f.Name,
		Size:      f.Size,
		MimeType:  f.MimeType,
		Data:      base64.StdEncoding.EncodeToString(f.Data),
		CreatedAt: f.CreatedAt,
	})
}

func (s *Server) deleteFile(w http.ResponseWriter, r *http.Request, id string) {
	if err := s.mgr.DeleteFile(r.Context(), id); err != nil {
		writeDomainError(w, err)
		return
	}
	s.audit.Append("file.deleted")
	w.WriteHeader(http.StatusNoContent)
}
