package server

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/avinashreddy333/Lockspace/internal/audit"
	"github.com/avinashreddy333/Lockspace/internal/auth"
	"github.com/avinashreddy333/Lockspace/internal/crypto"
	"github.com/avinashreddy333/Lockspace/internal/store"
	"github.com/avinashreddy333/Lockspace/internal/workspace"
)

const (
	testPassword       = "Correct#Horse99battery"
	testFolderPassword = "f0lder!Pass1"
)

func newTestServer(t *testing.T, opts Options) *Server {
	t.Helper()
	priv, err := crypto.NewSigningKey()
	if err != nil {
		t.Fatalf("signing key: %v", err)
	}
	mgr := workspace.New(store.NewMemory())
	if opts.MaxUploadBytes > 0 {
		mgr.SetMaxUploadBytes(opts.MaxUploadBytes)
	}
	signer := auth.NewSigner(priv, "lockspaced-test", time.Minute)
	return New(mgr, signer, audit.New(), opts)
}

func doJSON(t *testing.T, srv *Server, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode request: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rr := httptest.NewRecorder()
	srv.ServeHTTP(rr, req)
	return rr
}

func decodeBody(t *testing.T, rr *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.NewDecoder(rr.Body).Decode(v); err != nil {
		t.Fatalf("decode response: %v", err)
	}
}

// unlockedServer creates a workspace, unlocks it, and returns the
// server plus a valid bearer token.
func unlockedServer(t *testing.T, opts Options) (*Server, string) {
	t.Helper()
	srv := newTestServer(t, opts)

	rr := doJSON(t, srv, http.MethodPost, "/api/workspaces", "",
		createWorkspaceReq{Name: "Vault", Password: testPassword})
	if rr.Code != http.StatusCreated {
		t.Fatalf("create workspace: code = %d, body %s", rr.Code, rr.Body)
	}

	rr = doJSON(t, srv, http.MethodPost, "/api/workspaces/unlock", "",
		unlockWorkspaceReq{Password: testPassword})
	if rr.Code != http.StatusOK {
		t.Fatalf("unlock workspace: code = %d, body %s", rr.Code, rr.Body)
	}
	var resp unlockWorkspaceResp
	decodeBody(t, rr, &resp)
	if resp.Token == "" {
		t.Fatal("unlock returned an empty token")
	}
	return srv, resp.Token
}

func TestHealth(t *testing.T) {
	srv := newTestServer(t, Options{})
	rr := doJSON(t, srv, http.MethodGet, "/healthz", "", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("code = %d", rr.Code)
	}
	if got := rr.Body.String(); got != "ok" {
		t.Fatalf("body = %q", got)
	}
}

func TestWorkspaceFileLifecycle(t *testing.T) {
	srv := newTestServer(t, Options{})

	rr := doJSON(t, srv, http.MethodPost, "/api/workspaces", "",
		createWorkspaceReq{Name: "Vault", Password: testPassword})
	if rr.Code != http.StatusCreated {
		t.Fatalf("create: code = %d, body %s", rr.Code, rr.Body)
	}
	var created createWorkspaceResp
	decodeBody(t, rr, &created)
	if created.ID == "" {
		t.Fatal("create returned an empty id")
	}

	rr = doJSON(t, srv, http.MethodPost, "/api/workspaces/unlock", "",
		unlockWorkspaceReq{Password: testPassword})
	if rr.Code != http.StatusOK {
		t.Fatalf("unlock: code = %d, body %s", rr.Code, rr.Body)
	}
	var unlocked unlockWorkspaceResp
	decodeBody(t, rr, &unlocked)
	if unlocked.Name != "Vault" {
		t.Fatalf("unlock name = %q, want Vault", unlocked.Name)
	}
	token := unlocked.Token

	rr = doJSON(t, srv, http.MethodGet, "/api/session", token, nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("session: code = %d", rr.Code)
	}
	var sess sessionResp
	decodeBody(t, rr, &sess)
	if sess.WorkspaceID != created.ID {
		t.Fatalf("session workspace = %q, want %q", sess.WorkspaceID, created.ID)
	}

	rr = doJSON(t, srv, http.MethodPost, "/api/folders", token,
		createFolderReq{Name: "Photos", Password: testFolderPassword})
	if rr.Code != http.StatusCreated {
		t.Fatalf("create folder: code = %d, body %s", rr.Code, rr.Body)
	}
	var folder createdResp
	decodeBody(t, rr, &folder)

	// Still locked: the listing must not leak the name.
	rr = doJSON(t, srv, http.MethodGet, "/api/folders", token, nil)
	var folders []workspace.FolderInfo
	decodeBody(t, rr, &folders)
	if len(folders) != 1 {
		t.Fatalf("folders = %d, want 1", len(folders))
	}
	if folders[0].Unlocked || folders[0].Name != "" {
		t.Fatalf("locked folder leaked: %+v", folders[0])
	}

	rr = doJSON(t, srv, http.MethodPost, "/api/folders/"+folder.ID+"/unlock", token,
		unlockFolderReq{Password: testFolderPassword})
	if rr.Code != http.StatusOK {
		t.Fatalf("unlock folder: code = %d, body %s", rr.Code, rr.Body)
	}
	var fu unlockFolderResp
	decodeBody(t, rr, &fu)
	if fu.Name != "Photos" {
		t.Fatalf("folder name = %q, want Photos", fu.Name)
	}

	content := []byte("0123456789")
	rr = doJSON(t, srv, http.MethodPost, "/api/folders/"+folder.ID+"/files", token,
		uploadFileReq{Name: "a.txt", Data: base64.StdEncoding.EncodeToString(content)})
	if rr.Code != http.StatusCreated {
		t.Fatalf("upload: code = %d, body %s", rr.Code, rr.Body)
	}
	var file createdResp
	decodeBody(t, rr, &file)

	rr = doJSON(t, srv, http.MethodGet, "/api/files/"+file.ID, token, nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("download: code = %d, body %s", rr.Code, rr.Body)
	}
	var got fileResp
	decodeBody(t, rr, &got)
	if got.Name != "a.txt" {
		t.Fatalf("file name = %q, want a.txt", got.Name)
	}
	if got.MimeType != "application/octet-stream" {
		t.Fatalf("mime = %q", got.MimeType)
	}
	data, err := base64.StdEncoding.DecodeString(got.Data)
	if err != nil {
		t.Fatalf("decode content: %v", err)
	}
	if !bytes.Equal(data, content) {
		t.Fatalf("content = %q, want %q", data, content)
	}

	rr = doJSON(t, srv, http.MethodDelete, "/api/folders/"+folder.ID, token, nil)
	if rr.Code != http.StatusNoContent {
		t.Fatalf("delete folder: code = %d", rr.Code)
	}
	rr = doJSON(t, srv, http.MethodGet, "/api/files/"+file.ID, token, nil)
	if rr.Code != http.StatusNotFound {
		t.Fatalf("download after folder delete: code = %d, want 404", rr.Code)
	}
}

func TestUnlockWrongPassword(t *testing.T) {
	srv := newTestServer(t, Options{})
	rr := doJSON(t, srv, http.MethodPost, "/api/workspaces", "",
		createWorkspaceReq{Name: "Vault", Password: testPassword})
	if rr.Code != http.StatusCreated {
		t.Fatalf("create: code = %d", rr.Code)
	}

	rr = doJSON(t, srv, http.MethodPost, "/api/workspaces/unlock", "",
		unlockWorkspaceReq{Password: "wrong"})
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("code = %d, want 401", rr.Code)
	}
	var resp errorResponse
	decodeBody(t, rr, &resp)
	if resp.Error != "unlock failed" {
		t.Fatalf("error = %q, want the opaque message", resp.Error)
	}
}

func TestCreateRejectsWeakPassword(t *testing.T) {
	srv := newTestServer(t, Options{})
	rr := doJSON(t, srv, http.MethodPost, "/api/workspaces", "",
		createWorkspaceReq{Name: "Vault", Password: "short1!"})
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("code = %d, want 400", rr.Code)
	}
	var resp errorResponse
	decodeBody(t, rr, &resp)
	if !strings.HasPrefix(resp.Error, "weak password") {
		t.Fatalf("error = %q", resp.Error)
	}
}

func TestCreateDuplicateWorkspace(t *testing.T) {
	srv := newTestServer(t, Options{})
	body := createWorkspaceReq{Name: "Vault", Password: testPassword}
	if rr := doJSON(t, srv, http.MethodPost, "/api/workspaces", "", body); rr.Code != http.StatusCreated {
		t.Fatalf("first create: code = %d", rr.Code)
	}
	if rr := doJSON(t, srv, http.MethodPost, "/api/workspaces", "", body); rr.Code != http.StatusConflict {
		t.Fatalf("second create: code = %d, want 409", rr.Code)
	}
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	srv := newTestServer(t, Options{})
	for _, tc := range []struct {
		method, path string
	}{
		{http.MethodGet, "/api/folders"},
		{http.MethodGet, "/api/session"},
		{http.MethodGet, "/api/audit"},
		{http.MethodPost, "/api/workspaces/lock"},
		{http.MethodDelete, "/api/workspaces"},
		{http.MethodGet, "/api/files/abc"},
	} {
		rr := doJSON(t, srv, tc.method, tc.path, "", nil)
		if rr.Code != http.StatusUnauthorized {
			t.Errorf("%s %s: code = %d, want 401", tc.method, tc.path, rr.Code)
		}
	}

	rr := doJSON(t, srv, http.MethodGet, "/api/folders", "not-a-token", nil)
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("garbage token: code = %d, want 401", rr.Code)
	}
}

func TestTokenDiesWithTheSession(t *testing.T) {
	srv, token := unlockedServer(t, Options{})

	rr := doJSON(t, srv, http.MethodPost, "/api/workspaces/lock", token, nil)
	if rr.Code != http.StatusNoContent {
		t.Fatalf("lock: code = %d", rr.Code)
	}

	rr = doJSON(t, srv, http.MethodGet, "/api/session", token, nil)
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("session after lock: code = %d, want 401", rr.Code)
	}
}

func TestUploadRequiresUnlockedFolder(t *testing.T) {
	srv, token := unlockedServer(t, Options{})

	rr := doJSON(t, srv, http.MethodPost, "/api/folders", token,
		createFolderReq{Name: "Docs", Password: testFolderPassword})
	if rr.Code != http.StatusCreated {
		t.Fatalf("create folder: code = %d", rr.Code)
	}
	var folder createdResp
	decodeBody(t, rr, &folder)

	rr = doJSON(t, srv, http.MethodPost, "/api/folders/"+folder.ID+"/files", token,
		uploadFileReq{Name: "a.txt", Data: base64.StdEncoding.EncodeToString([]byte("x"))})
	if rr.Code != http.StatusConflict {
		t.Fatalf("upload into locked folder: code = %d, want 409", rr.Code)
	}
}

func TestUploadSizeLimit(t *testing.T) {
	srv, token := unlockedServer(t, Options{MaxUploadBytes: 16})

	rr := doJSON(t, srv, http.MethodPost, "/api/folders", token,
		createFolderReq{Name: "Docs", Password: testFolderPassword})
	var folder createdResp
	decodeBody(t, rr, &folder)
	rr = doJSON(t, srv, http.MethodPost, "/api/folders/"+folder.ID+"/unlock", token,
		unlockFolderReq{Password: testFolderPassword})
	if rr.Code != http.StatusOK {
		t.Fatalf("unlock folder: code = %d", rr.Code)
	}

	big := bytes.Repeat([]byte("x"), 64)
	rr = doJSON(t, srv, http.MethodPost, "/api/folders/"+folder.ID+"/files", token,
		uploadFileReq{Name: "big.bin", Data: base64.StdEncoding.EncodeToString(big)})
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("oversized upload: code = %d, want 400", rr.Code)
	}
}

func TestUnlockRateLimited(t *testing.T) {
	srv := newTestServer(t, Options{})

	// Burst is 10 per client. Malformed bodies burn tokens without
	// touching the manager, so the loop stays fast.
	for i := 0; i < 10; i++ {
		req := httptest.NewRequest(http.MethodPost, "/api/workspaces/unlock", strings.NewReader("{not json"))
		rr := httptest.NewRecorder()
		srv.ServeHTTP(rr, req)
		if rr.Code != http.StatusBadRequest {
			t.Fatalf("attempt %d: code = %d, want 400", i, rr.Code)
		}
	}

	req := httptest.NewRequest(http.MethodPost, "/api/workspaces/unlock", strings.NewReader("{not json"))
	rr := httptest.NewRecorder()
	srv.ServeHTTP(rr, req)
	if rr.Code != http.StatusTooManyRequests {
		t.Fatalf("code = %d, want 429", rr.Code)
	}
	if rr.Header().Get("Retry-After") == "" {
		t.Fatal("missing Retry-After header")
	}
}

func TestPreflightRequest(t *testing.T) {
	srv := newTestServer(t, Options{})
	rr := doJSON(t, srv, http.MethodOptions, "/api/folders", "", nil)
	if rr.Code != http.StatusNoContent {
		t.Fatalf("code = %d, want 204", rr.Code)
	}
	if rr.Header().Get("Access-Control-Allow-Origin") == "" {
		t.Fatal("missing CORS headers")
	}
}

func TestMethodNotAllowed(t *testing.T) {
	srv, token := unlockedServer(t, Options{})
	rr := doJSON(t, srv, http.MethodPut, "/api/folders", token, nil)
	if rr.Code != http.StatusMethodNotAllowed {
		t.Fatalf("code = %d, want 405", rr.Code)
	}
}

func TestRouteLabel(t *testing.T) {
	for _, tc := range []struct {
		path, want string
	}{
		{"/healthz", "/healthz"},
		{"/api/folders", "/api/folders"},
		{"/api/folders/abc123", "/api/folders/:id"},
		{"/api/folders/abc123/unlock", "/api/folders/:id/unlock"},
		{"/api/folders/abc123/files", "/api/folders/:id/files"},
		{"/api/files/def456", "/api/files/:id"},
	} {
		if got := routeLabel(tc.path); got != tc.want {
			t.Errorf("routeLabel(%q) = %q, want %q", tc.path, got, tc.want)
		}
	}
}

func TestMetricsEndpoint(t *testing.T) {
	srv := newTestServer(t, Options{MetricsEnabled: true})
	rr := doJSON(t, srv, http.MethodGet, "/metrics", "", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("code = %d", rr.Code)
	}
}

func TestAuditEndpoint(t *testing.T) {
	srv, token := unlockedServer(t, Options{})

	rr := doJSON(t, srv, http.MethodGet, "/api/audit", token, nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("code = %d, body %s", rr.Code, rr.Body)
	}
	var resp auditResp
	decodeBody(t, rr, &resp)
	if !resp.Intact {
		t.Fatal("fresh chain reported broken")
	}
	want := []string{"workspace.created", "workspace.unlocked"}
	if len(resp.Entries) != len(want) {
		t.Fatalf("got %d entries, want %d: %+v", len(resp.Entries), len(want), resp.Entries)
	}
	for i, event := range want {
		if resp.Entries[i].Event != event {
			t.Fatalf("entry %d: got %q, want %q", i, resp.Entries[i].Event, event)
		}
		if resp.Entries[i].Hash == "" {
			t.Fatalf("entry %d has no hash", i)
		}
	}

	rr = doJSON(t, srv, http.MethodPost, "/api/audit", token, nil)
	if rr.Code != http.StatusMethodNotAllowed {
		t.Fatalf("POST: code = %d, want 405", rr.Code)
	}
}
