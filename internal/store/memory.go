package store

import (
	"context"
	"sort"
	"sync"
)

// Memory is a map-backed Store. Used by tests and the daemon's dev
// mode; nothing survives the process.
type Memory struct {
	mu         sync.RWMutex
	workspaces map[string]WorkspaceRecord
	folders    map[string]FolderRecord
	files      map[string]FileRecord
}

func NewMemory() *Memory {
	return &Memory{
		workspaces: map[string]WorkspaceRecord{},
		folders:    map[string]FolderRecord{},
		files:      map[string]FileRecord{},
	}
}

func (m *Memory) CreateWorkspace(_ context.Context, rec WorkspaceRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.workspaces[rec.ID]; exists {
		return &ConflictError{Kind: "workspace", ID: rec.ID}
	}
	m.workspaces[rec.ID] = rec
	return nil
}

func (m *Memory) CreateFolder(_ context.Context, rec FolderRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.folders[rec.ID]; exists {
		return &ConflictError{Kind: "folder", ID: rec.ID}
	}
	m.folders[rec.ID] = rec
	return nil
}

func (m *Memory) CreateFile(_ context.Context, rec FileRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.files[rec.ID]; exists {
		return &ConflictError{Kind: "file", ID: rec.ID}
	}
	m.files[rec.ID] = rec
	return nil
}

func (m *Memory) FindWorkspaceByID(_ context.Context, id string) (*WorkspaceRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if rec, ok := m.workspaces[id]; ok {
		return &rec, nil
	}
	return nil, nil
}

func (m *Memory) FindFolderByID(_ context.Context, id string) (*FolderRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if rec, ok := m.folders[id]; ok {
		return &rec, nil
	}
	return nil, nil
}

func (m *Memory) FindFileByID(_ context.Context, id string) (*FileRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if rec, ok := m.files[id]; ok {
		return &rec, nil
	}
	return nil, nil
}

func (m *Memory) ListFoldersByWorkspace(_ context.Context, workspaceID string) ([]FolderRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := []FolderRecord{}
	for _, rec := range m.folders {
		if rec.WorkspaceID == workspaceID {
			out = append(out, rec)
		}
	}
	sortFolders(out)
	return out, nil
}

func (m *Memory) ListFilesByFolder(_ context.Context, folderID string) ([]FileRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := []FileRecord{}
	for _, rec := range m.files {
		if rec.FolderID == folderID {
			out = append(out, rec)
		}
	}
	sortFiles(out)
	return out, nil
}

func (m *Memory) DeleteWorkspace(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.workspaces, id)
	for fid, f := range m.folders {
		if f.WorkspaceID != id {
			continue
		}
		delete(m.folders, fid)
		m.deleteFilesOfLocked(fid)
	}
	return nil
}

func (m *Memory) DeleteFolder(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.folders, id)
	m.deleteFilesOfLocked(id)
	return nil
}

func (m *Memory) DeleteFile(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.files, id)
	return nil
}

func (m *Memory) Close(context.Context) error { return nil }

// deleteFilesOfLocked removes every file referencing folderID. Caller
// holds the write lock.
func (m *Memory) deleteFilesOfLocked(folderID string) {
	for id, f := range m.files {
		if f.FolderID == folderID {
			delete(m.files, id)
		}
	}
}

func sortFolders(recs []FolderRecord) {
	sort.Slice(recs, func(i, j int) bool {
		if recs[i].CreatedAt != recs[j].CreatedAt {
			return recs[i].CreatedAt < recs[j].CreatedAt
		}
		return recs[i].ID < recs[j].ID
	})
}

func sortFiles(recs []FileRecord) {
	sort.Slice(recs, func(i, j int) bool {
		if recs[i].CreatedAt != recs[j].CreatedAt {
			return recs[i].CreatedAt < recs[j].CreatedAt
		}
		return recs[i].ID < recs[j].ID
	})
}
