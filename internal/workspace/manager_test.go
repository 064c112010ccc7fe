package workspace

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/avinashreddy333/Lockspace/internal/crypto"
	"github.com/avinashreddy333/Lockspace/internal/keys"
	"github.com/avinashreddy333/Lockspace/internal/session"
	"github.com/avinashreddy333/Lockspace/internal/store"
	"github.com/avinashreddy333/Lockspace/internal/throttle"
)

const (
	testPassword       = "Correct#Horse99battery"
	testFolderPassword = "f0lder!Pass1"
)

func newTestManager(t *testing.T) (*Manager, *store.Memory) {
	t.Helper()
	mem := store.NewMemory()
	return New(mem), mem
}

// unlockedManager creates and unlocks a workspace named "Vault".
func unlockedManager(t *testing.T) (*Manager, *store.Memory, string) {
	t.Helper()
	m, mem := newTestManager(t)
	ctx := context.Background()
	if _, err := m.CreateWorkspace(ctx, "Vault", testPassword); err != nil {
		t.Fatalf("create workspace: %v", err)
	}
	id, err := m.UnlockWorkspace(ctx, testPassword)
	if err != nil {
		t.Fatalf("unlock workspace: %v", err)
	}
	return m, mem, id
}

func TestWorkspaceCreateAndUnlock(t *testing.T) {
	m, _ := newTestManager(t)
	ctx := context.Background()

	created, err := m.CreateWorkspace(ctx, "Vault", testPassword)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if created != keys.WorkspaceID(testPassword) {
		t.Fatalf("identifier is not derived from the password: %q", created)
	}
	if m.State() != session.Locked {
		t.Fatal("creating a workspace must not unlock it")
	}

	unlocked, err := m.UnlockWorkspace(ctx, testPassword)
	if err != nil {
		t.Fatalf("unlock: %v", err)
	}
	if unlocked != created {
		t.Fatalf("unlock returned %q, create returned %q", unlocked, created)
	}
	if m.State() != session.WorkspaceUnlocked {
		t.Fatalf("state: got %v", m.State())
	}
	if m.WorkspaceName() != "Vault" {
		t.Fatalf("decrypted name: got %q, want %q", m.WorkspaceName(), "Vault")
	}
}

func TestWorkspaceUnlockWrongPassword(t *testing.T) {
	m, _ := newTestManager(t)
	ctx := context.Background()

	if _, err := m.CreateWorkspace(ctx, "Vault", testPassword); err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := m.UnlockWorkspace(ctx, "wrong"); !errors.Is(err, ErrUnlockFailed) {
		t.Fatalf("wrong password: got %v, want %v", err, ErrUnlockFailed)
	}
	if m.State() != session.Locked {
		t.Fatal("failed unlock left the session unlocked")
	}
}

func TestWorkspaceUnlockUnknownIsSameFailure(t *testing.T) {
	m, _ := newTestManager(t)
	// No workspace exists at all: the outcome must be identical to a
	// wrong password against an existing one.
	if _, err := m.UnlockWorkspace(context.Background(), "anything-at-all1"); !errors.Is(err, ErrUnlockFailed) {
		t.Fatalf("got %v, want %v", err, ErrUnlockFailed)
	}
}

func TestWorkspaceCreateConflict(t *testing.T) {
	m, _ := newTestManager(t)
	ctx := context.Background()

	if _, err := m.CreateWorkspace(ctx, "Vault", testPassword); err != nil {
		t.Fatalf("create: %v", err)
	}
	// Same password means same identifier, whatever the name says.
	if _, err := m.CreateWorkspace(ctx, "Another", testPassword); !store.IsConflict(err) {
		t.Fatalf("duplicate create: got %v, want conflict", err)
	}
}

func TestWorkspaceCreateValidation(t *testing.T) {
	m, _ := newTestManager(t)
	ctx := context.Background()

	if _, err := m.CreateWorkspace(ctx, "Vault", ""); !IsValidation(err) {
		t.Fatalf("empty password: got %v", err)
	}
	if _, err := m.CreateWorkspace(ctx, "", testPassword); !IsValidation(err) {
		t.Fatalf("empty name: got %v", err)
	}
	if _, err := m.CreateWorkspace(ctx, strings.Repeat("n", 256), testPassword); !IsValidation(err) {
		t.Fatalf("overlong name: got %v", err)
	}
}

func TestUnlockThrottleAccumulatesAndResets(t *testing.T) {
	if testing.Short() {
		t.Skip("waits out a real throttle delay")
	}
	m, _ := newTestManager(t)
	ctx := context.Background()

	if _, err := m.CreateWorkspace(ctx, "Vault", testPassword); err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := m.UnlockWorkspace(ctx, "wrong"); !errors.Is(err, ErrUnlockFailed) {
		t.Fatalf("wrong password: got %v", err)
	}
	if d := m.gate.Delay(workspaceGateKey); d != throttle.Step {
		t.Fatalf("delay after one failure: got %v, want %v", d, throttle.Step)
	}

	// The retry pays the delay, succeeds, and resets the counter.
	start := time.Now()
	if _, err := m.UnlockWorkspace(ctx, testPassword); err != nil {
		t.Fatalf("retry: %v", err)
	}
	if elapsed := time.Since(start); elapsed < throttle.Step {
		t.Fatalf("retry ran after %v, want at least %v", elapsed, throttle.Step)
	}
	if d := m.gate.Delay(workspaceGateKey); d != 0 {
		t.Fatalf("delay after success: got %v, want 0", d)
	}
}

func TestFolderCreateStartsLocked(t *testing.T) {
	m, _, _ := unlockedManager(t)
	ctx := context.Background()

	folderID, err := m.CreateFolder(ctx, "Photos", testFolderPassword)
	if err != nil {
		t.Fatalf("create folder: %v", err)
	}
	if m.IsFolderUnlocked(folderID) {
		t.Fatal("creating a folder must not unlock it")
	}
	if m.ActiveFolder() != "" {
		t.Fatalf("active folder: got %q", m.ActiveFolder())
	}

	infos, err := m.ListFolders(ctx)
	if err != nil {
		t.Fatalf("list folders: %v", err)
	}
	if len(infos) != 1 || infos[0].ID != folderID {
		t.Fatalf("list: got %+v", infos)
	}
	if infos[0].Unlocked || infos[0].Name != "" {
		t.Fatalf("locked folder leaked its name: %+v", infos[0])
	}
}

func TestFolderUnlockRevealsName(t *testing.T) {
	m, _, _ := unlockedManager(t)
	ctx := context.Background()

	folderID, err := m.CreateFolder(ctx, "Photos", testFolderPassword)
	if err != nil {
		t.Fatalf("create folder: %v", err)
	}
	if err := m.UnlockFolder(ctx, folderID, testFolderPassword); err != nil {
		t.Fatalf("unlock folder: %v", err)
	}
	if !m.IsFolderUnlocked(folderID) {
		t.Fatal("folder not unlocked")
	}
	if m.ActiveFolder() != folderID {
		t.Fatalf("active folder: got %q, want %q", m.ActiveFolder(), folderID)
	}

	infos, err := m.ListFolders(ctx)
	if err != nil {
		t.Fatalf("list folders: %v", err)
	}
	if infos[0].Name != "Photos" || !infos[0].Unlocked {
		t.Fatalf("unlocked folder: got %+v", infos[0])
	}
}

func TestFolderUnlockWrongPassword(t *testing.T) {
	m, _, _ := unlockedManager(t)
	ctx := context.Background()

	folderID, err := m.CreateFolder(ctx, "Photos", testFolderPassword)
	if err != nil {
		t.Fatalf("create folder: %v", err)
	}
	if err := m.UnlockFolder(ctx, folderID, "not-the-password"); !errors.Is(err, ErrUnlockFailed) {
		t.Fatalf("wrong password: got %v", err)
	}
	if m.IsFolderUnlocked(folderID) {
		t.Fatal("failed unlock left the folder unlocked")
	}
	if d := m.gate.Delay(folderGateKey(folderID)); d != throttle.Step {
		t.Fatalf("throttle after one failure: got %v", d)
	}
}

func TestFolderUnlockUnknownID(t *testing.T) {
	m, _, _ := unlockedManager(t)
	if err := m.UnlockFolder(context.Background(), "no-such-folder", testFolderPassword); !errors.Is(err, ErrUnlockFailed) {
		t.Fatalf("got %v, want %v", err, ErrUnlockFailed)
	}
}

func TestUploadDownloadRoundTrip(t *testing.T) {
	m, mem, _ := unlockedManager(t)
	ctx := context.Background()

	folderID, err := m.CreateFolder(ctx, "Photos", testFolderPassword)
	if err != nil {
		t.Fatalf("create folder: %v", err)
	}
	if err := m.UnlockFolder(ctx, folderID, testFolderPassword); err != nil {
		t.Fatalf("unlock folder: %v", err)
	}

	content := []byte("0123456789")
	fileID, err := m.UploadFile(ctx, folderID, "a.txt", "", content)
	if err != nil {
		t.Fatalf("upload: %v", err)
	}

	file, err := m.DownloadFile(ctx, fileID)
	if err != nil {
		t.Fatalf("download: %v", err)
	}
	if !bytes.Equal(file.Data, content) {
		t.Fatalf("content: got %q, want %q", file.Data, content)
	}
	if file.Name != "a.txt" {
		t.Fatalf("name: got %q", file.Name)
	}
	if file.Size != 10 {
		t.Fatalf("size: got %d", file.Size)
	}
	if file.MimeType != "application/octet-stream" {
		t.Fatalf("default mime type: got %q", file.MimeType)
	}

	infos, err := m.ListFiles(ctx, folderID)
	if err != nil {
		t.Fatalf("list files: %v", err)
	}
	if len(infos) != 1 || infos[0].Name != "a.txt" || infos[0].Size != 10 {
		t.Fatalf("list: got %+v", infos)
	}

	// What actually hit the store must be ciphertext.
	rec, err := mem.FindFileByID(ctx, fileID)
	if err != nil || rec == nil {
		t.Fatalf("row lookup: %+v, %v", rec, err)
	}
	rawContent, err := crypto.DecodeString(rec.ContentCiphertext)
	if err != nil {
		t.Fatalf("stored content is not valid base64: %v", err)
	}
	if bytes.Contains(rawContent, content) {
		t.Fatal("stored content contains the plaintext")
	}
	rawName, err := crypto.DecodeString(rec.MetadataCiphertext)
	if err != nil {
		t.Fatalf("stored metadata is not valid base64: %v", err)
	}
	if bytes.Contains(rawName, []byte("a.txt")) {
		t.Fatal("stored metadata contains the plaintext name")
	}
}

func TestUploadRequiresFolderKey(t *testing.T) {
	m, _, _ := unlockedManager(t)
	ctx := context.Background()

	folderID, err := m.CreateFolder(ctx, "Photos", testFolderPassword)
	if err != nil {
		t.Fatalf("create folder: %v", err)
	}
	if _, err := m.UploadFile(ctx, folderID, "a.txt", "", []byte("data")); !errors.Is(err, session.ErrFolderNotUnlocked) {
		t.Fatalf("upload to locked folder: got %v", err)
	}

	m.LockWorkspace()
	if _, err := m.UploadFile(ctx, folderID, "a.txt", "", []byte("data")); !errors.Is(err, session.ErrWorkspaceLocked) {
		t.Fatalf("upload while locked: got %v", err)
	}
}

func TestUploadValidation(t *testing.T) {
	m, _, _ := unlockedManager(t)
	ctx := context.Background()

	folderID, err := m.CreateFolder(ctx, "Photos", testFolderPassword)
	if err != nil {
		t.Fatalf("create folder: %v", err)
	}
	if err := m.UnlockFolder(ctx, folderID, testFolderPassword); err != nil {
		t.Fatalf("unlock folder: %v", err)
	}

	if _, err := m.UploadFile(ctx, folderID, "", "", []byte("data")); !IsValidation(err) {
		t.Fatalf("empty name: got %v", err)
	}

	m.SetMaxUploadBytes(4)
	if _, err := m.UploadFile(ctx, folderID, "big.bin", "", []byte("12345")); !IsValidation(err) {
		t.Fatalf("oversize: got %v", err)
	}
	if _, err := m.UploadFile(ctx, folderID, "ok.bin", "", []byte("1234")); err != nil {
		t.Fatalf("at the limit: %v", err)
	}
}

func TestDownloadAfterFolderDelete(t *testing.T) {
	m, _, _ := unlockedManager(t)
	ctx := context.Background()

	folderID, err := m.CreateFolder(ctx, "Photos", testFolderPassword)
	if err != nil {
		t.Fatalf("create folder: %v", err)
	}
	if err := m.UnlockFolder(ctx, folderID, testFolderPassword); err != nil {
		t.Fatalf("unlock folder: %v", err)
	}
	fileID, err := m.UploadFile(ctx, folderID, "a.txt", "", []byte("0123456789"))
	if err != nil {
		t.Fatalf("upload: %v", err)
	}

	if err := m.DeleteFolder(ctx, folderID); err != nil {
		t.Fatalf("delete folder: %v", err)
	}
	if m.IsFolderUnlocked(folderID) {
		t.Fatal("deleted folder still unlocked")
	}
	if _, err := m.DownloadFile(ctx, fileID); !IsNotFound(err) {
		t.Fatalf("download after cascade: got %v, want not found", err)
	}

	infos, err := m.ListFolders(ctx)
	if err != nil {
		t.Fatalf("list folders: %v", err)
	}
	if len(infos) != 0 {
		t.Fatalf("folders after delete: got %+v", infos)
	}
}

func TestDownloadFromLockedFolder(t *testing.T) {
	m, _, _ := unlockedManager(t)
	ctx := context.Background()

	folderID, err := m.CreateFolder(ctx, "Photos", testFolderPassword)
	if err != nil {
		t.Fatalf("create folder: %v", err)
	}
	if err := m.UnlockFolder(ctx, folderID, testFolderPassword); err != nil {
		t.Fatalf("unlock folder: %v", err)
	}
	fileID, err := m.UploadFile(ctx, folderID, "a.txt", "", []byte("0123456789"))
	if err != nil {
		t.Fatalf("upload: %v", err)
	}

	m.LockFolder(folderID)
	if _, err := m.DownloadFile(ctx, fileID); !errors.Is(err, session.ErrFolderNotUnlocked) {
		t.Fatalf("download from locked folder: got %v", err)
	}
	if _, err := m.ListFiles(ctx, folderID); !errors.Is(err, session.ErrFolderNotUnlocked) {
		t.Fatalf("list of locked folder: got %v", err)
	}
}

func TestLockWorkspaceWipesFolderUnlocks(t *testing.T) {
	m, _, _ := unlockedManager(t)
	ctx := context.Background()

	folderID, err := m.CreateFolder(ctx, "Photos", testFolderPassword)
	if err != nil {
		t.Fatalf("create folder: %v", err)
	}
	if err := m.UnlockFolder(ctx, folderID, testFolderPassword); err != nil {
		t.Fatalf("unlock folder: %v", err)
	}

	m.LockWorkspace()

	if m.State() != session.Locked {
		t.Fatalf("state: got %v", m.State())
	}
	if m.IsFolderUnlocked(folderID) {
		t.Fatal("folder key survived the workspace lock")
	}
	if m.ActiveFolder() != "" || m.WorkspaceID() != "" || m.WorkspaceName() != "" {
		t.Fatal("session fields survived the workspace lock")
	}
	if _, err := m.ListFolders(ctx); !errors.Is(err, session.ErrWorkspaceLocked) {
		t.Fatalf("list after lock: got %v", err)
	}
}

func TestDeleteWorkspaceCascades(t *testing.T) {
	m, mem, wsID := unlockedManager(t)
	ctx := context.Background()

	folderID, err := m.CreateFolder(ctx, "Photos", testFolderPassword)
	if err != nil {
		t.Fatalf("create folder: %v", err)
	}
	if err := m.UnlockFolder(ctx, folderID, testFolderPassword); err != nil {
		t.Fatalf("unlock folder: %v", err)
	}
	if _, err := m.UploadFile(ctx, folderID, "a.txt", "", []byte("0123456789")); err != nil {
		t.Fatalf("upload: %v", err)
	}

	if err := m.DeleteWorkspace(ctx); err != nil {
		t.Fatalf("delete workspace: %v", err)
	}
	if m.State() != session.Locked {
		t.Fatal("session survived workspace deletion")
	}
	if rec, _ := mem.FindWorkspaceByID(ctx, wsID); rec != nil {
		t.Fatal("workspace row survived")
	}
	if rec, _ := mem.FindFolderByID(ctx, folderID); rec != nil {
		t.Fatal("folder row survived")
	}

	// The identifier is free again: the same password can create a
	// fresh workspace.
	if _, err := m.CreateWorkspace(ctx, "Vault", testPassword); err != nil {
		t.Fatalf("re-create after delete: %v", err)
	}
}

func TestDeleteRequiresUnlockedWorkspace(t *testing.T) {
	m, _ := newTestManager(t)
	ctx := context.Background()

	if err := m.DeleteWorkspace(ctx); !errors.Is(err, session.ErrWorkspaceLocked) {
		t.Fatalf("delete workspace while locked: got %v", err)
	}
	if err := m.DeleteFolder(ctx, "f1"); !errors.Is(err, session.ErrWorkspaceLocked) {
		t.Fatalf("delete folder while locked: got %v", err)
	}
	if err := m.DeleteFile(ctx, "f1"); !errors.Is(err, session.ErrWorkspaceLocked) {
		t.Fatalf("delete file while locked: got %v", err)
	}
}

func TestDeleteFile(t *testing.T) {
	m, _, _ := unlockedManager(t)
	ctx := context.Background()

	folderID, err := m.CreateFolder(ctx, "Photos", testFolderPassword)
	if err != nil {
		t.Fatalf("create folder: %v", err)
	}
	if err := m.UnlockFolder(ctx, folderID, testFolderPassword); err != nil {
		t.Fatalf("unlock folder: %v", err)
	}
	fileID, err := m.UploadFile(ctx, folderID, "a.txt", "", []byte("0123456789"))
	if err != nil {
		t.Fatalf("upload: %v", err)
	}

	if err := m.DeleteFile(ctx, fileID); err != nil {
		t.Fatalf("delete file: %v", err)
	}
	if _, err := m.DownloadFile(ctx, fileID); !IsNotFound(err) {
		t.Fatalf("download after delete: got %v", err)
	}
	if err := m.DeleteFile(ctx, fileID); !IsNotFound(err) {
		t.Fatalf("double delete: got %v", err)
	}
}

func TestDeleteUnknownFolder(t *testing.T) {
	m, _, _ := unlockedManager(t)
	if err := m.DeleteFolder(context.Background(), "no-such-folder"); !IsNotFound(err) {
		t.Fatalf("got %v, want not found", err)
	}
}

func TestWorkspaceRowIsOpaque(t *testing.T) {
	_, mem, wsID := unlockedManager(t)
	ctx := context.Background()

	rec, err := mem.FindWorkspaceByID(ctx, wsID)
	if err != nil || rec == nil {
		t.Fatalf("row lookup: %+v, %v", rec, err)
	}
	if strings.Contains(rec.MetadataCiphertext, "Vault") {
		t.Fatal("workspace name visible in the row")
	}
	salt, err := crypto.DecodeString(rec.Salt)
	if err != nil {
		t.Fatalf("salt is not valid base64: %v", err)
	}
	if len(salt) != crypto.SaltSize {
		t.Fatalf("salt length: got %d, want %d", len(salt), crypto.SaltSize)
	}
	if rec.ID == testPassword || strings.Contains(rec.ID, testPassword) {
		t.Fatal("identifier leaks the password")
	}
}
