// Package session holds the in-memory unlock state for one workspace:
// which keys are currently usable and which folder is active. Nothing
// here touches the store; locking is forgetting key material, not a
// persisted fact.
package session

import (
	"errors"
	"sort"
	"sync"

	"github.com/avinashreddy333/Lockspace/internal/crypto"
)

// State is the coarse position in the unlock lifecycle.
type State int

const (
	// Locked means no key material is held at all.
	Locked State = iota
	// WorkspaceUnlocked means the workspace key is held; folders may
	// additionally be unlocked on top of it.
	WorkspaceUnlocked
)

func (s State) String() string {
	switch s {
	case Locked:
		return "locked"
	case WorkspaceUnlocked:
		return "workspace-unlocked"
	default:
		return "unknown"
	}
}

var (
	// ErrWorkspaceLocked is returned by operations that need an
	// unlocked workspace.
	ErrWorkspaceLocked = errors.New("session: workspace is locked")
	// ErrFolderNotUnlocked is returned by operations that need the
	// folder's key in the session.
	ErrFolderNotUnlocked = errors.New("session: folder is not unlocked")
)

type folderEntry struct {
	key  *crypto.Key
	name string
}

// Session is the mutable unlock state. It owns every key handle given
// to it: locking any level zeroes the handles in place, so copies of
// the pointers held elsewhere go dark at the same moment.
type Session struct {
	mu      sync.Mutex
	state   State
	wsID    string
	wsName  string
	wsKey   *crypto.Key
	folders map[string]folderEntry
	active  string
}

// New returns a locked session.
func New() *Session {
	return &Session{state: Locked, folders: make(map[string]folderEntry)}
}

// State reports the current lifecycle position.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// UnlockWorkspace installs the workspace key and takes ownership of it.
// Any previously held state is wiped first, so unlocking a second
// workspace implicitly locks the first.
func (s *Session) UnlockWorkspace(id, name string, key *crypto.Key) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.wipeLocked()
	// Advisory: keeps the key off swap where the platform allows it.
	_ = crypto.LockBuffer(key[:])
	s.state = WorkspaceUnlocked
	s.wsID = id
	s.wsName = name
	s.wsKey = key
}

// LockWorkspace wipes everything: workspace key, every folder key, the
// active-folder pointer, and the cached names.
func (s *Session) LockWorkspace() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.wipeLocked()
}

// wipeLocked zeroes all held key material and resets the session to
// Locked. Caller holds s.mu.
func (s *Session) wipeLocked() {
	if s.wsKey != nil {
		_ = crypto.UnlockBuffer(s.wsKey[:])
		s.wsKey.Zero()
		s.wsKey = nil
	}
	for _, entry := range s.folders {
		_ = crypto.UnlockBuffer(entry.key[:])
		entry.key.Zero()
	}
	s.folders = make(map[string]folderEntry)
	s.active = ""
	s.wsID = ""
	s.wsName = ""
	s.state = Locked
}

// UnlockFolder installs a folder key and makes the folder active. A
// folder already unlocked has its old handle zeroed and replaced.
func (s *Session) UnlockFolder(id, name string, key *crypto.Key) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != WorkspaceUnlocked {
		return ErrWorkspaceLocked
	}
	if prev, ok := s.folders[id]; ok {
		_ = crypto.UnlockBuffer(prev.key[:])
		prev.key.Zero()
	}
	_ = crypto.LockBuffer(key[:])
	s.folders[id] = folderEntry{key: key, name: name}
	s.active = id
	return nil
}

// LockFolder zeroes and forgets one folder key. Locking the active
// folder clears the active pointer; locking a folder that is not
// unlocked is a no-op.
func (s *Session) LockFolder(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.folders[id]
	if !ok {
		return
	}
	_ = crypto.UnlockBuffer(entry.key[:])
	entry.key.Zero()
	delete(s.folders, id)
	if s.active == id {
		s.active = ""
	}
}

// SetActiveFolder points the session at one unlocked folder. An empty
// id clears the pointer.
func (s *Session) SetActiveFolder(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if id == "" {
		s.active = ""
		return nil
	}
	if s.state != WorkspaceUnlocked {
		return ErrWorkspaceLocked
	}
	if _, ok := s.folders[id]; !ok {
		return ErrFolderNotUnlocked
	}
	s.active = id
	return nil
}

// ActiveFolder returns the active folder id, or "" when none is set.
func (s *Session) ActiveFolder() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active
}

// WorkspaceID returns the unlocked workspace identifier, or "" when
// locked.
func (s *Session) WorkspaceID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.wsID
}

// WorkspaceName returns the decrypted workspace name, or "" when
// locked.
func (s *Session) WorkspaceName() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.wsName
}

// WorkspaceKey returns the held workspace key handle.
func (s *Session) WorkspaceKey() (*crypto.Key, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != WorkspaceUnlocked {
		return nil, ErrWorkspaceLocked
	}
	return s.wsKey, nil
}

// FolderKey returns the held key handle for one unlocked folder.
func (s *Session) FolderKey(id string) (*crypto.Key, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != WorkspaceUnlocked {
		return nil, ErrWorkspaceLocked
	}
	entry, ok := s.folders[id]
	if !ok {
		return nil, ErrFolderNotUnlocked
	}
	return entry.key, nil
}

// FolderName returns the decrypted name cached for one unlocked
// folder.
func (s *Session) FolderName(id string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != WorkspaceUnlocked {
		return "", ErrWorkspaceLocked
	}
	entry, ok := s.folders[id]
	if !ok {
		return "", ErrFolderNotUnlocked
	}
	return entry.name, nil
}

// IsFolderUnlocked reports whether the folder's key is held.
func (s *Session) IsFolderUnlocked(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.folders[id]
	return ok
}

// UnlockedFolders returns the ids of all unlocked folders, sorted.
func (s *Session) UnlockedFolders() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := make([]string, 0, len(s.folders))
	for id := range s.folders {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
