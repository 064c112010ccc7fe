package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/avinashreddy333/Lockspace/internal/metrics"
)

// schema is applied on startup. Rows are ciphertext and bookkeeping
// only, so the schema carries no plaintext columns beyond size and mime
// type. Cascading foreign keys keep dependents from outliving their
// parents.
const schema = `
CREATE TABLE IF NOT EXISTS workspaces (
	id                  TEXT PRIMARY KEY,
	salt                TEXT NOT NULL,
	metadata_nonce      TEXT NOT NULL,
	metadata_ciphertext TEXT NOT NULL,
	created_at          BIGINT NOT NULL
);

CREATE TABLE IF NOT EXISTS folders (
	id                  TEXT PRIMARY KEY,
	workspace_id        TEXT NOT NULL REFERENCES workspaces(id) ON DELETE CASCADE,
	salt                TEXT NOT NULL,
	metadata_nonce      TEXT NOT NULL,
	metadata_ciphertext TEXT NOT NULL,
	created_at          BIGINT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_folders_workspace_id ON folders (workspace_id);

CREATE TABLE IF NOT EXISTS files (
	id                  TEXT PRIMARY KEY,
	folder_id           TEXT NOT NULL REFERENCES folders(id) ON DELETE CASCADE,
	metadata_nonce      TEXT NOT NULL,
	metadata_ciphertext TEXT NOT NULL,
	content_nonce       TEXT NOT NULL,
	content_ciphertext  TEXT NOT NULL,
	content_wrapped_key TEXT NOT NULL,
	content_key_nonce   TEXT NOT NULL,
	size                BIGINT NOT NULL,
	mime_type           TEXT NOT NULL,
	created_at          BIGINT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_files_folder_id ON files (folder_id);
`

// Postgres is the production backend. Cascade deletes ride on the
// foreign keys, so DeleteWorkspace and DeleteFolder are single
// statements.
type Postgres struct {
	db *sql.DB
}

// NewPostgres connects, verifies the connection, and applies the
// schema.
func NewPostgres(databaseURL string) (*Postgres, error) {
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, &PersistenceError{Op: "open postgres", Err: err}
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, &PersistenceError{Op: "ping postgres", Err: err}
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, &PersistenceError{Op: "apply schema", Err: err}
	}
	return &Postgres{db: db}, nil
}

func (p *Postgres) CreateWorkspace(ctx context.Context, rec WorkspaceRecord) error {
	start := time.Now()
	defer func() { metrics.RecordStoreQuery("create_workspace", time.Since(start)) }()

	_, err := p.db.ExecContext(ctx,
		`INSERT INTO workspaces (id, salt, metadata_nonce, metadata_ciphertext, created_at)
		 VALUES ($1, $2, $3, $4, $5)`,
		rec.ID, rec.Salt, rec.MetadataNonce, rec.MetadataCiphertext, rec.CreatedAt)
	if isUniqueViolation(err) {
		return &ConflictError{Kind: "workspace", ID: rec.ID}
	}
	if err != nil {
		return &PersistenceError{Op: "insert workspace", Err: err}
	}
	return nil
}

func (p *Postgres) CreateFolder(ctx context.Context, rec FolderRecord) error {
	start := time.Now()
	defer func() { metrics.RecordStoreQuery("create_folder", time.Since(start)) }()

	_, err := p.db.ExecContext(ctx,
		`INSERT INTO folders (id, workspace_id, salt, metadata_nonce, metadata_ciphertext, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		rec.ID, rec.WorkspaceID, rec.Salt, rec.MetadataNonce, rec.MetadataCiphertext, rec.CreatedAt)
	if isUniqueViolation(err) {
		return &ConflictError{Kind: "folder", ID: rec.ID}
	}
	if err != nil {
		return &PersistenceError{Op: "insert folder", Err: err}
	}
	return nil
}

func (p *Postgres) CreateFile(ctx context.Context, rec FileRecord) error {
	start := time.Now()
	defer func() { metrics.RecordStoreQuery("create_file", time.Since(start)) }()

	_, err := p.db.ExecContext(ctx,
		`INSERT INTO files (id, folder_id, metadata_nonce, metadata_ciphertext,
		                    content_nonce, content_ciphertext, content_wrapped_key, content_key_nonce,
		                    size, mime_type, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		rec.ID, rec.FolderID, rec.MetadataNonce, rec.MetadataCiphertext,
		rec.ContentNonce, rec.ContentCiphertext, rec.ContentWrappedKey, rec.ContentKeyNonce,
		rec.Size, rec.MimeType, rec.CreatedAt)
	if isUniqueViolation(err) {
		return &ConflictError{Kind: "file", ID: rec.ID}
	}
	if err != nil {
		return &PersistenceError{Op: "insert file", Err: err}
	}
	return nil
}

func (p *Postgres) FindWorkspaceByID(ctx context.Context, id string) (*WorkspaceRecord, error) {
	start := time.Now()
	defer func() { metrics.RecordStoreQuery("find_workspace", time.Since(start)) }()

	var rec WorkspaceRecord
	err := p.db.QueryRowContext(ctx,
		`SELECT id, salt, metadata_nonce, metadata_ciphertext, created_at
		 FROM workspaces WHERE id = $1`, id).
		Scan(&rec.ID, &rec.Salt, &rec.MetadataNonce, &rec.MetadataCiphertext, &rec.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, &PersistenceError{Op: "select workspace", Err: err}
	}
	return &rec, nil
}

func (p *Postgres) FindFolderByID(ctx context.Context, id string) (*FolderRecord, error) {
	start := time.Now()
	defer func() { metrics.RecordStoreQuery("find_folder", time.Since(start)) }()

	var rec FolderRecord
	err := p.db.QueryRowContext(ctx,
		`SELECT id, workspace_id, salt, metadata_nonce, metadata_ciphertext, created_at
		 FROM folders WHERE id = $1`, id).
		Scan(&rec.ID, &rec.WorkspaceID, &rec.Salt, &rec.MetadataNonce, &rec.MetadataCiphertext, &rec.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, &PersistenceError{Op: "select folder", Err: err}
	}
	return &rec, nil
}

func (p *Postgres) FindFileByID(ctx context.Context, id string) (*FileRecord, error) {
	start := time.Now()
	defer func() { metrics.RecordStoreQuery("find_file", time.Since(start)) }()

	var rec FileRecord
	err := p.db.QueryRowContext(ctx,
		`SELECT id, folder_id, metadata_nonce, metadata_ciphertext,
		        content_nonce, content_ciphertext, content_wrapped_key, content_key_nonce,
		        size, mime_type, created_at
		 FROM files WHERE id = $1`, id).
		Scan(&rec.ID, &rec.FolderID, &rec.MetadataNonce, &rec.MetadataCiphertext,
			&rec.ContentNonce, &rec.ContentCiphertext, &rec.ContentWrappedKey, &rec.ContentKeyNonce,
			&rec.Size, &rec.MimeType, &rec.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, &PersistenceError{Op: "select file", Err: err}
	}
	return &rec, nil
}

func (p *Postgres) ListFoldersByWorkspace(ctx context.Context, workspaceID string) ([]FolderRecord, error) {
	start := time.Now()
	defer func() { metrics.RecordStoreQuery("list_folders", time.Since(start)) }()

	rows, err := p.db.QueryContext(ctx,
		`SELECT id, workspace_id, salt, metadata_nonce, metadata_ciphertext, created_at
		 FROM folders WHERE workspace_id = $1 ORDER BY created_at, id`, workspaceID)
	if err != nil {
		return nil, &PersistenceError{Op: "list folders", Err: err}
	}
	defer rows.Close()

	recs := []FolderRecord{}
	for rows.Next() {
		var rec FolderRecord
		if err := rows.Scan(&rec.ID, &rec.WorkspaceID, &rec.Salt, &rec.MetadataNonce, &rec.MetadataCiphertext, &rec.CreatedAt); err != nil {
			return nil, &PersistenceError{Op: "scan folder", Err: err}
		}
		recs = append(recs, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, &PersistenceError{Op: "list folders", Err: err}
	}
	return recs, nil
}

func (p *Postgres) ListFilesByFolder(ctx context.Context, folderID string) ([]FileRecord, error) {
	start := time.Now()
	defer func() { metrics.RecordStoreQuery("list_files", time.Since(start)) }()

	rows, err := p.db.QueryContext(ctx,
		`SELECT id, folder_id, metadata_nonce, metadata_ciphertext,
		        content_nonce, content_ciphertext, content_wrapped_key, content_key_nonce,
		        size, mime_type, created_at
		 FROM files WHERE folder_id = $1 ORDER BY created_at, id`, folderID)
	if err != nil {
		return nil, &PersistenceError{Op: "list files", Err: err}
	}
	defer rows.Close()

	recs := []FileRecord{}
	for rows.Next() {
		var rec FileRecord
		if err := rows.Scan(&rec.ID, &rec.FolderID, &rec.MetadataNonce, &rec.MetadataCiphertext,
			&rec.ContentNonce, &rec.ContentCiphertext, &rec.ContentWrappedKey, &rec.ContentKeyNonce,
			&rec.Size, &rec.MimeType, &rec.CreatedAt); err != nil {
			return nil, &PersistenceError{Op: "scan file", Err: err}
		}
		recs = append(recs, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, &PersistenceError{Op: "list files", Err: err}
	}
	return recs, nil
}

func (p *Postgres) DeleteWorkspace(ctx context.Context, id string) error {
	start := time.Now()
	defer func() { metrics.RecordStoreQuery("delete_workspace", time.Since(start)) }()

	if _, err := p.db.ExecContext(ctx, `DELETE FROM workspaces WHERE id = $1`, id); err != nil {
		return &PersistenceError{Op: "delete workspace", Err: err}
	}
	return nil
}

func (p *Postgres) DeleteFolder(ctx context.Context, id string) error {
	start := time.Now()
	defer func() { metrics.RecordStoreQuery("delete_folder", time.Since(start)) }()

	if _, err := p.db.ExecContext(ctx, `DELETE FROM folders WHERE id = $1`, id); err != nil {
		return &PersistenceError{Op: "delete folder", Err: err}
	}
	return nil
}

func (p *Postgres) DeleteFile(ctx context.Context, id string) error {
	start := time.Now()
	defer func() { metrics.RecordStoreQuery("delete_file", time.Since(start)) }()

	if _, err := p.db.ExecContext(ctx, `DELETE FROM files WHERE id = $1`, id); err != nil {
		return &PersistenceError{Op: "delete file", Err: err}
	}
	return nil
}

func (p *Postgres) Close(context.Context) error {
	if err := p.db.Close(); err != nil {
		return fmt.Errorf("close postgres: %w", err)
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}
