package auth

import (
	"context"
	"net/http"
	"strings"
)

type ctxKey int

const workspaceKey ctxKey = 1

// WithWorkspace stores the token's workspace id in the context.
func WithWorkspace(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, workspaceKey, id)
}

// WorkspaceFromContext returns the workspace id a verified token bound
// to this request.
func WorkspaceFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(workspaceKey).(string)
	return id, ok
}

// TokenVerifier validates a bearer token and returns the workspace id
// it is bound to.
type TokenVerifier interface {
	Verify(tokenStr string) (string, error)
}

// RequireSession checks the Bearer token and adds the workspace id to
// the request context.
func RequireSession(verifier TokenVerifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			h := r.Header.Get("Authorization")
			if !strings.HasPrefix(h, "Bearer ") {
				http.Error(w, "missing bearer token", http.StatusUnauthorized)
				return
			}
			id, err := verifier.Verify(strings.TrimPrefix(h, "Bearer "))
			if err != nil {
				http.Error(w, "invalid token", http.StatusUnauthorized)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithWorkspace(r.Context(), id)))
		})
	}
}
