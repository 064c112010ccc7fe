package store

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"sync"
)

// snapshot is the on-disk layout: one JSON document holding every row.
// The document contains only ciphertext, salts, and bookkeeping, so the
// file needs no protection beyond ordinary permissions.
type snapshot struct {
	Workspaces []WorkspaceRecord `json:"workspaces"`
	Folders    []FolderRecord    `json:"folders"`
	Files      []FileRecord      `json:"files"`
}

// File is the Memory store persisted to a single JSON document,
// rewritten atomically on every mutation. It backs the CLI, which runs
// without a database server.
type File struct {
	mu   sync.Mutex
	path string
	mem  *Memory
}

// OpenFile loads the document at path, creating parent directories as
// needed. A missing file is an empty store.
func OpenFile(path string) (*File, error) {
	f := &File{path: path, mem: NewMemory()}
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		if dir := filepath.Dir(path); dir != "." {
			if err := os.MkdirAll(dir, 0o700); err != nil {
				return nil, &PersistenceError{Op: "open file store", Err: err}
			}
		}
		return f, nil
	}
	if err != nil {
		return nil, &PersistenceError{Op: "open file store", Err: err}
	}
	var doc snapshot
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, &PersistenceError{Op: "parse file store", Err: err}
	}
	for _, rec := range doc.Workspaces {
		f.mem.workspaces[rec.ID] = rec
	}
	for _, rec := range doc.Folders {
		f.mem.folders[rec.ID] = rec
	}
	for _, rec := range doc.Files {
		f.mem.files[rec.ID] = rec
	}
	return f, nil
}

func (f *File) CreateWorkspace(ctx context.Context, rec WorkspaceRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.mem.CreateWorkspace(ctx, rec); err != nil {
		return err
	}
	return f.saveLocked()
}

func (f *File) CreateFolder(ctx context.Context, rec FolderRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.mem.CreateFolder(ctx, rec); err != nil {
		return err
	}
	return f.saveLocked()
}

func (f *File) CreateFile(ctx context.Context, rec FileRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.mem.CreateFile(ctx, rec); err != nil {
		return err
	}
	return f.saveLocked()
}

func (f *File) FindWorkspaceByID(ctx context.Context, id string) (*WorkspaceRecord, error) {
	return f.mem.FindWorkspaceByID(ctx, id)
}

func (f *File) FindFolderByID(ctx context.Context, id string) (*FolderRecord, error) {
	return f.mem.FindFolderByID(ctx, id)
}

func (f *File) FindFileByID(ctx context.Context, id string) (*FileRecord, error) {
	return f.mem.FindFileByID(ctx, id)
}

func (f *File) ListFoldersByWorkspace(ctx context.Context, workspaceID string) ([]FolderRecord, error) {
	return f.mem.ListFoldersByWorkspace(ctx, workspaceID)
}

func (f *File) ListFilesByFolder(ctx context.Context, folderID string) ([]FileRecord, error) {
	return f.mem.ListFilesByFolder(ctx, folderID)
}

func (f *File) DeleteWorkspace(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.mem.DeleteWorkspace(ctx, id); err != nil {
		return err
	}
	return f.saveLocked()
}

func (f *File) DeleteFolder(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.mem.DeleteFolder(ctx, id); err != nil {
		return err
	}
	return f.saveLocked()
}

func (f *File) DeleteFile(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.mem.DeleteFile(ctx, id); err != nil {
		return err
	}
	return f.saveLocked()
}

func (f *File) Close(context.Context) error { return nil }

// saveLocked rewrites the document via temp file + rename so a crash
// never leaves a torn store. Caller holds f.mu.
func (f *File) saveLocked() error {
	doc := snapshot{Workspaces: []WorkspaceRecord{}, Folders: []FolderRecord{}, Files: []FileRecord{}}
	f.mem.mu.RLock()
	for _, rec := range f.mem.workspaces {
		doc.Workspaces = append(doc.Workspaces, rec)
	}
	for _, rec := range f.mem.folders {
		doc.Folders = append(doc.Folders, rec)
	}
	for _, rec := range f.mem.files {
		doc.Files = append(doc.Files, rec)
	}
	f.mem.mu.RUnlock()
	sort.Slice(doc.Workspaces, func(i, j int) bool { return doc.Workspaces[i].ID < doc.Workspaces[j].ID })
	sortFolders(doc.Folders)
	sortFiles(doc.Files)
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return &PersistenceError{Op: "encode file store", Err: err}
	}
	tmp := f.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return &PersistenceError{Op: "write file store", Err: err}
	}
	if err := os.Rename(tmp, f.path); err != nil {
		return &PersistenceError{Op: "replace file store", Err: err}
	}
	return nil
}
