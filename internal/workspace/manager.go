// Package workspace implements the zero-knowledge storage flows on top
// of the crypto, keys, session, throttle, and store packages. The
// server knows nothing here: every password stays inside a single call
// frame, every key lives only in the session, and everything that
// reaches the store is ciphertext or bookkeeping.
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
	"github.com/avinashreddy333/Lockspace/internal/throttle"
)

const (
	// DefaultMaxUploadBytes bounds a single file's plaintext size.
	DefaultMaxUploadBytes = 32 << 20

	maxNameLen = 255

	// workspaceGateKey pools all workspace unlock failures of this
	// manager into one throttle counter, whatever identifier the
	// attempt resolves to.
	workspaceGateKey = "workspace"
)

// folderGateKey accumulates unlock failures per folder.
func folderGateKey(id string) string { return "folder:" + id }

// Manager drives one session's worth of workspace operations. It is
// safe for concurrent use; the session serializes its own state.
type Manager struct {
	store     store.Store
	session   *session.Session
	gate      *throttle.Gate
	maxUpload int64
}

// New returns a manager with a locked session.
func New(st store.Store) *Manager {
	return &Manager{
		store:     st,
		session:   session.New(),
		gate:      throttle.NewGate(),
		maxUpload: DefaultMaxUploadBytes,
	}
}

// SetMaxUploadBytes overrides the upload size bound. Values below one
// are ignored.
func (m *Manager) SetMaxUploadBytes(n int64) {
	if n > 0 {
		m.maxUpload = n
	}
}

// CreateWorkspace derives the workspace identity from the password,
// refuses identifiers that already exist, and stores the encrypted
// name. The password itself is never stored in any form; the salt and
// ciphertext row are all that persists. Creating does not unlock.
func (m *Manager) CreateWorkspace(ctx context.Context, name, password string) (string, error) {
	if err := validatePassword(password); err != nil {
		return "", err
	}
	if err := validateName("workspace name", name); err != nil {
		return "", err
	}

	id := keys.WorkspaceID(password)

	// The conflict check runs before key derivation so a duplicate
	// password costs nothing expensive.
	existing, err := m.store.FindWorkspaceByID(ctx, id)
	if err != nil {
		return "", err
	}
	if existing != nil {
		return "", &store.ConflictError{Kind: "workspace", ID: id}
	}

	salt, err := keys.NewSalt()
	if err != nil {
		return "", err
	}
	key := keys.DeriveWorkspaceKey(password, salt)
	defer key.Zero()

	nonce, ciphertext, err := seal(key, []byte(name))
	if err != nil {
		return "", err
	}
	rec := store.WorkspaceRecord{
		ID:                 id,
		Salt:               crypto.EncodeToString(salt),
		MetadataNonce:      nonce,
		MetadataCiphertext: ciphertext,
		CreatedAt:          time.Now().UnixMilli(),
	}
	if err := m.store.CreateWorkspace(ctx, rec); err != nil {
		return "", err
	}
	logging.Info("workspace created", zap.String("workspace_id", id))
	return id, nil
}

// UnlockWorkspace re-derives the identity and key from the password
// and proves possession by decrypting the stored name. Success fills
// the session and returns the workspace id. All failure modes collapse
// into ErrUnlockFailed after the throttle has recorded them.
func (m *Manager) UnlockWorkspace(ctx context.Context, password string) (string, error) {
	if err := validatePassword(password); err != nil {
		return "", err
	}

	if err := m.gate.Wait(ctx, workspaceGateKey); err != nil {
		return "", err
	}

	id := keys.WorkspaceID(password)
	rec, err := m.store.FindWorkspaceByID(ctx, id)
	if err != nil {
		return "", err
	}
	if rec == nil {
		return "", m.failUnlock("workspace", workspaceGateKey)
	}
	salt, err := crypto.DecodeString(rec.Salt)
	if err != nil {
		return "", m.failUnlock("workspace", workspaceGateKey)
	}

	key := keys.DeriveWorkspaceKey(password, salt)
	name, err := openString(key, rec.MetadataNonce, rec.MetadataCiphertext)
	if err != nil {
		key.Zero()
		return "", m.failUnlock("workspace", workspaceGateKey)
	}

	// The session takes ownership of the key handle.
	m.session.UnlockWorkspace(id, name, key)
	m.gate.Reset(workspaceGateKey)
	metrics.RecordUnlockAttempt("workspace", true)
	logging.Info("workspace unlocked", zap.String("workspace_id", id))
	return id, nil
}

// failUnlock records the failure for the throttle and returns the
// normalized error. The log line carries no identifier: on a failed
// workspace attempt the id is derived from whatever password was
// guessed, and logging it would hand out an offline-crackable digest.
func (m *Manager) failUnlock(level, throttleKey string) error {
	m.gate.Fail(throttleKey)
	metrics.RecordUnlockAttempt(level, false)
	logging.Warn("unlock failed", zap.String("level", level))
	return ErrUnlockFailed
}

// LockWorkspace wipes the session: workspace key, folder keys, active
// folder, cached names. Safe to call however the session got here.
func (m *Manager) LockWorkspace() {
	m.session.LockWorkspace()
	logging.Info("workspace locked")
}

// DeleteWorkspace removes the unlocked workspace and everything under
// it, then wipes the session. Possession of the password, proven by
// the unlocked state, is the only authorization.
func (m *Manager) DeleteWorkspace(ctx context.Context) error {
	id := m.session.WorkspaceID()
	if m.session.State() != session.WorkspaceUnlocked {
		return session.ErrWorkspaceLocked
	}
	if err := m.store.DeleteWorkspace(ctx, id); err != nil {
		return err
	}
	m.session.LockWorkspace()
	logging.Info("workspace deleted", zap.String("workspace_id", id))
	return nil
}

// State reports the session's lifecycle position.
func (m *Manager) State() session.State {
	return m.session.State()
}

// WorkspaceID returns the unlocked workspace identifier, or "".
func (m *Manager) WorkspaceID() string {
	return m.session.WorkspaceID()
}

// WorkspaceName returns the decrypted workspace name, or "".
func (m *Manager) WorkspaceName() string {
	return m.session.WorkspaceName()
}

// seal encrypts plaintext under key and returns the encoded pair.
func seal(key *crypto.Key, plaintext []byte) (nonce, ciphertext string, err error) {
	n, ct, err := crypto.Encrypt(key, plaintext)
	if err != nil {
		return "", "", err
	}
	return crypto.EncodeToString(n), crypto.EncodeToString(ct), nil
}

// openBytes decodes the pair and decrypts. A row that fails to decode
// is reported the same way as one that fails its tag: it cannot be
// authenticated.
func openBytes(key *crypto.Key, nonceB64, ciphertextB64 string) ([]byte, error) {
	nonce, err := crypto.DecodeString(nonceB64)
	if err != nil {
		return nil, &crypto.AuthenticationError{Op: "decrypt"}
	}
	ciphertext, err := crypto.DecodeString(ciphertextB64)
	if err != nil {
		return nil, &crypto.AuthenticationError{Op: "decrypt"}
	}
	return crypto.Decrypt(key, nonce, ciphertext)
}

func openString(key *crypto.Key, nonceB64, ciphertextB64 string) (string, error) {
	b, err := openBytes(key, nonceB64, ciphertextB64)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func validatePassword(password string) error {
	if password == "" {
		return &ValidationError{Field: "password", Message: "must not be empty"}
	}
	return nil
}

func validateName(field, name string) error {
	if name == "" {
		return &ValidationError{Field: field, Message: "must not be empty"}
	}
	if len(name) > maxNameLen {
		return &ValidationError{Field: field, Message: "must be at most 255 bytes"}
	}
	return nil
}
