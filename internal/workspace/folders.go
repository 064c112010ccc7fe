package workspace

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/avinashreddy333/Lockspace/internal/crypto"
	"github.com/avinashreddy333/Lockspace/internal/keys"
	"github.com/avinashreddy333/Lockspace/internal/logging"
	"github.com/avinashreddy333/Lockspace/internal/metrics"
	"github.com/avinashreddy333/Lockspace/internal/session"
	"github.com/avinashreddy333/Lockspace/internal/store"
)

// FolderInfo describes one folder in the unlocked workspace. Name is
// readable only while the folder is unlocked; for a locked folder it
// is empty, because nothing in the session can decrypt it.
type FolderInfo struct {
	ID        string `json:"id"`
	Name      string `json:"name,omitempty"`
	Unlocked  bool   `json:"unlocked"`
	CreatedAt int64  `json:"created_at"`
}

// CreateFolder stores a new folder whose name is encrypted under a key
// derived from its own password. The folder comes back locked;
// creating proves nothing about intent to use it now.
func (m *Manager) CreateFolder(ctx context.Context, name, folderPassword string) (string, error) {
	if m.session.State() != session.WorkspaceUnlocked {
		return "", session.ErrWorkspaceLocked
	}
	if err := validatePassword(folderPassword); err != nil {
		return "", err
	}
	if err := validateName("folder name", name); err != nil {
		return "", err
	}

	salt, err := keys.NewSalt()
	if err != nil {
		return "", err
	}
	key := keys.DeriveFolderKey(folderPassword, salt)
	defer key.Zero()

	nonce, ciphertext, err := seal(key, []byte(name))
	if err != nil {
		return "", err
	}
	rec := store.FolderRecord{
		ID:                 keys.NewEntityID(),
		WorkspaceID:        m.session.WorkspaceID(),
		Salt:               crypto.EncodeToString(salt),
		MetadataNonce:      nonce,
		MetadataCiphertext: ciphertext,
		CreatedAt:          time.Now().UnixMilli(),
	}
	if err := m.store.CreateFolder(ctx, rec); err != nil {
		return "", err
	}
	logging.Info("folder created",
		zap.String("workspace_id", rec.WorkspaceID),
		zap.String("folder_id", rec.ID))
	return rec.ID, nil
}

// UnlockFolder derives the folder key from its password and proves it
// by decrypting the folder name. Success caches the key and name in
// the session and makes the folder active. Failures are throttled per
// folder id and collapse into ErrUnlockFailed.
func (m *Manager) UnlockFolder(ctx context.Context, folderID, folderPassword string) error {
	if m.session.State() != session.WorkspaceUnlocked {
		return session.ErrWorkspaceLocked
	}
	if err := validatePassword(folderPassword); err != nil {
		return err
	}
	if err := m.gate.Wait(ctx, folderGateKey(folderID)); err != nil {
		return err
	}

	rec, err := m.store.FindFolderByID(ctx, folderID)
	if err != nil {
		return err
	}
	// A folder belonging to some other workspace is treated exactly
	// like one that does not exist.
	if rec == nil || rec.WorkspaceID != m.session.WorkspaceID() {
		return m.failUnlock("folder", folderGateKey(folderID))
	}
	salt, err := crypto.DecodeString(rec.Salt)
	if err != nil {
		return m.failUnlock("folder", folderGateKey(folderID))
	}

	key := keys.DeriveFolderKey(folderPassword, salt)
	name, err := openString(key, rec.MetadataNonce, rec.MetadataCiphertext)
	if err != nil {
		key.Zero()
		return m.failUnlock("folder", folderGateKey(folderID))
	}

	if err := m.session.UnlockFolder(folderID, name, key); err != nil {
		key.Zero()
		return err
	}
	m.gate.Reset(folderGateKey(folderID))
	metrics.RecordUnlockAttempt("folder", true)
	logging.Info("folder unlocked", zap.String("folder_id", folderID))
	return nil
}

// LockFolder forgets one folder's key. A folder that was never
// unlocked is a no-op.
func (m *Manager) LockFolder(folderID string) {
	m.session.LockFolder(folderID)
	logging.Debug("folder locked", zap.String("folder_id", folderID))
}

// ListFolders returns every folder in the unlocked workspace, sorted
// by creation time. Names appear only for folders whose keys are held.
func (m *Manager) ListFolders(ctx context.Context) ([]FolderInfo, error) {
	if m.session.State() != session.WorkspaceUnlocked {
		return nil, session.ErrWorkspaceLocked
	}
	recs, err := m.store.ListFoldersByWorkspace(ctx, m.session.WorkspaceID())
	if err != nil {
		return nil, err
	}
	infos := make([]FolderInfo, 0, len(recs))
	for _, rec := range recs {
		info := FolderInfo{ID: rec.ID, CreatedAt: rec.CreatedAt}
		if name, err := m.session.FolderName(rec.ID); err == nil {
			info.Name = name
			info.Unlocked = true
		}
		infos = append(infos, info)
	}
	return infos, nil
}

// DeleteFolder removes a folder and every file in it, then forgets its
// key if it was unlocked. Workspace possession is the required
// authorization; the folder's own password is not re-checked.
func (m *Manager) DeleteFolder(ctx context.Context, folderID string) error {
	if m.session.State() != session.WorkspaceUnlocked {
		return session.ErrWorkspaceLocked
	}
	rec, err := m.store.FindFolderByID(ctx, folderID)
	if err != nil {
		return err
	}
	if rec == nil || rec.WorkspaceID != m.session.WorkspaceID() {
		return &NotFoundError{Kind: "folder", ID: folderID}
	}
	if err := m.store.DeleteFolder(ctx, folderID); err != nil {
		return err
	}
	m.session.LockFolder(folderID)
	logging.Info("folder deleted", zap.String("folder_id", folderID))
	return nil
}

// SetActiveFolder points the session at one unlocked folder, or clears
// the pointer when id is empty.
func (m *Manager) SetActiveFolder(folderID string) error {
	return m.session.SetActiveFolder(folderID)
}

// ActiveFolder returns the active folder id, or "".
func (m *Manager) ActiveFolder() string {
	return m.session.ActiveFolder()
}

// IsFolderUnlocked reports whether the folder's key is held.
func (m *Manager) IsFolderUnlocked(folderID string) bool {
	return m.session.IsFolderUnlocked(folderID)
}

// FolderName returns the decrypted name of an unlocked folder.
func (m *Manager) FolderName(folderID string) (string, error) {
	return m.session.FolderName(folderID)
}

// UnlockedFolders returns the sorted ids of all unlocked folders.
func (m *Manager) UnlockedFolders() []string {
	return m.session.UnlockedFolders()
}
