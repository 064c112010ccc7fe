// Package store is the encrypted entity repository: three tables of
// opaque rows. It moves ciphertext and bookkeeping in and out of a
// backing store and never performs cryptographic transforms. Every
// backend permits unrestricted read, insert, and delete; access control
// is possession of the right key, not authorization here.
package store

import "context"

// WorkspaceRecord is a stored workspace row. Binary material is base64
// text; the store neither decodes nor decrypts it.
type WorkspaceRecord struct {
	ID                 string `json:"id"`
	Salt               string `json:"salt"`
	MetadataNonce      string `json:"metadata_nonce"`
	MetadataCiphertext string `json:"metadata_ciphertext"`
	CreatedAt          int64  `json:"created_at"` // epoch milliseconds
}

// FolderRecord is a stored folder row.
type FolderRecord struct {
	ID                 string `json:"id"`
	WorkspaceID        string `json:"workspace_id"`
	Salt               string `json:"salt"`
	MetadataNonce      string `json:"metadata_nonce"`
	MetadataCiphertext string `json:"metadata_ciphertext"`
	CreatedAt          int64  `json:"created_at"`
}

// FileRecord is a stored file row. Size and mime type are plaintext;
// byte length and media type are not secrets.
type FileRecord struct {
	ID                 string `json:"id"`
	FolderID           string `json:"folder_id"`
	MetadataNonce      string `json:"metadata_nonce"`
	MetadataCiphertext string `json:"metadata_ciphertext"`
	ContentNonce       string `json:"content_nonce"`
	ContentCiphertext  string `json:"content_ciphertext"`
	ContentWrappedKey  string `json:"content_wrapped_key"`
	ContentKeyNonce    string `json:"content_key_nonce"`
	Size               int64  `json:"size"`
	MimeType           string `json:"mime_type"`
	CreatedAt          int64  `json:"created_at"`
}

// Store is the repository protocol.
//
// Creates are insert-only and atomic at the row level; an existing
// primary id fails with *ConflictError. Point lookups return (nil, nil)
// for an absent row; absence is not an error at this layer. List
// operations return an empty slice as a valid result. Deleting a
// workspace or folder removes its dependents as part of the same
// logical operation; deletes of absent ids are no-ops. Backend failures
// surface as *PersistenceError.
type Store interface {
	CreateWorkspace(ctx context.Context, rec WorkspaceRecord) error
	CreateFolder(ctx context.Context, rec FolderRecord) error
	CreateFile(ctx context.Context, rec FileRecord) error

	FindWorkspaceByID(ctx context.Context, id string) (*WorkspaceRecord, error)
	FindFolderByID(ctx context.Context, id string) (*FolderRecord, error)
	FindFileByID(ctx context.Context, id string) (*FileRecord, error)

	ListFoldersByWorkspace(ctx context.Context, workspaceID string) ([]FolderRecord, error)
	ListFilesByFolder(ctx context.Context, folderID string) ([]FileRecord, error)

	DeleteWorkspace(ctx context.Context, id string) error
	DeleteFolder(ctx context.Context, id string) error
	DeleteFile(ctx context.Context, id string) error

	Close(ctx context.Context) error
}
