package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"regexp"
	"strconv"
	"strings"

	"github.com/avinashreddy333/Lockspace/internal/crypto"
	"github.com/avinashreddy333/Lockspace/internal/metrics"
	"github.com/avinashreddy333/Lockspace/internal/session"
	"github.com/avinashreddy333/Lockspace/internal/store"
	"github.com/avinashreddy333/Lockspace/internal/workspace"
)

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, v any) {
	writeJSONStatus(w, http.StatusOK, v)
}

func writeJSONStatus(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSONStatus(w, code, errorResponse{Error: msg})
}

// writeDomainError maps manager errors onto HTTP statuses. Unlock
// failures stay a single opaque 401 no matter which step failed.
func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, workspace.ErrUnlockFailed), crypto.IsAuthenticationError(err):
		writeError(w, http.StatusUnauthorized, "unlock failed")
	case errors.Is(err, session.ErrWorkspaceLocked):
		writeError(w, http.StatusConflict, "workspace is locked")
	case errors.Is(err, session.ErrFolderNotUnlocked):
		writeError(w, http.StatusConflict, "folder is not unlocked")
	case workspace.IsValidation(err):
		writeError(w, http.StatusBadRequest, err.Error())
	case workspace.IsNotFound(err):
		writeError(w, http.StatusNotFound, err.Error())
	case store.IsConflict(err):
		writeError(w, http.StatusConflict, err.Error())
	case store.IsPersistence(err):
		writeError(w, http.StatusBadGateway, "storage unavailable")
	default:
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func tooMany(w http.ResponseWriter, retryAfterSeconds int) {
	metrics.RecordRateLimitHit()
	if retryAfterSeconds > 0 {
		w.Header().Set("Retry-After", strconv.Itoa(retryAfterSeconds))
	}
	writeError(w, http.StatusTooManyRequests, "too many requests")
}

var (
	reUpper = regexp.MustCompile(`[A-Z]`)
	reLower = regexp.MustCompile(`[a-z]`)
	reDigit = regexp.MustCompile(`[0-9]`)
	reSym   = regexp.MustCompile(`[^A-Za-z0-9]`)
)

// validateNewPassword enforces the creation policy. Unlock paths never
// call this: a password that was accepted once must keep working.
func validateNewPassword(pw string) error {
	switch {
	case len(pw) < 12:
		return errors.New("password must be at least 12 characters")
	case strings.Contains(pw, " "):
		return errors.New("password must not contain spaces")
	case !reUpper.MatchString(pw):
		return errors.New("password must include an uppercase letter")
	case !reLower.MatchString(pw):
		return errors.New("password must include a lowercase letter")
	case !reDigit.MatchString(pw):
		return errors.New("password must include a digit")
	case !reSym.MatchString(pw):
		return errors.New("password must include a special character")
	default:
		return nil
	}
}
