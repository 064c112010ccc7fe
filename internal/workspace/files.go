package workspace

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/avinashreddy333/Lockspace/internal/crypto"
	"github.com/avinashreddy333/Lockspace/internal/keys"
	"github.com/avinashreddy333/Lockspace/internal/logging"
	"github.com/avinashreddy333/Lockspace/internal/metrics"
	"github.com/avinashreddy333/Lockspace/internal/session"
	"github.com/avinashreddy333/Lockspace/internal/store"
)

// FileInfo describes one file in an unlocked folder, name decrypted.
type FileInfo struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Size      int64  `json:"size"`
	MimeType  string `json:"mime_type"`
	CreatedAt int64  `json:"created_at"`
}

// File is a downloaded file: decrypted metadata plus content.
type File struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Size      int64  `json:"size"`
	MimeType  string `json:"mime_type"`
	Data      []byte `json:"data"`
	CreatedAt int64  `json:"created_at"`
}

// UploadFile encrypts data under a fresh one-time content key, wraps
// that key under the folder key, and stores the sealed row. The
// content key is zeroed before this returns; afterwards the folder key
// is the only way back to the content.
func (m *Manager) UploadFile(ctx context.Context, folderID, name, mimeType string, data []byte) (string, error) {
	if err := validateName("file name", name); err != nil {
		return "", err
	}
	if int64(len(data)) > m.maxUpload {
		return "", &ValidationError{
			Field:   "file size",
			Message: fmt.Sprintf("exceeds the %d byte limit", m.maxUpload),
		}
	}

	folderKey, err := m.session.FolderKey(folderID)
	if err != nil {
		return "", err
	}

	fileKey, err := keys.NewFileKey()
	if err != nil {
		return "", err
	}
	defer fileKey.Zero()

	contentNonce, contentCiphertext, err := crypto.Encrypt(fileKey, data)
	if err != nil {
		return "", err
	}
	keyNonce, wrappedKey, err := crypto.WrapKey(fileKey, folderKey)
	if err != nil {
		return "", err
	}
	metaNonce, metaCiphertext, err := seal(folderKey, []byte(name))
	if err != nil {
		return "", err
	}

	if mimeType == "" {
		mimeType = "application/octet-stream"
	}
	rec := store.FileRecord{
		ID:                 keys.NewEntityID(),
		FolderID:           folderID,
		MetadataNonce:      metaNonce,
		MetadataCiphertext: metaCiphertext,
		ContentNonce:       crypto.EncodeToString(contentNonce),
		ContentCiphertext:  crypto.EncodeToString(contentCiphertext),
		ContentWrappedKey:  crypto.EncodeToString(wrappedKey),
		ContentKeyNonce:    crypto.EncodeToString(keyNonce),
		Size:               int64(len(data)),
		MimeType:           mimeType,
		CreatedAt:          time.Now().UnixMilli(),
	}
	if err := m.store.CreateFile(ctx, rec); err != nil {
		metrics.RecordUpload(0, false)
		return "", err
	}
	metrics.RecordUpload(rec.Size, true)
	logging.Info("file uploaded",
		zap.String("folder_id", folderID),
		zap.String("file_id", rec.ID),
		zap.Int64("size", rec.Size))
	return rec.ID, nil
}

// DownloadFile unwraps the stored content key with the folder key and
// returns the decrypted file. The unwrapped key is zeroed before this
// returns.
func (m *Manager) DownloadFile(ctx context.Context, fileID string) (*File, error) {
	if m.session.State() != session.WorkspaceUnlocked {
		return nil, session.ErrWorkspaceLocked
	}
	rec, err := m.store.FindFileByID(ctx, fileID)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, &NotFoundError{Kind: "file", ID: fileID}
	}
	// A file under another workspace's folder reads as not found, the
	// same as a file that was never stored.
	folder, err := m.store.FindFolderByID(ctx, rec.FolderID)
	if err != nil {
		return nil, err
	}
	if folder == nil || folder.WorkspaceID != m.session.WorkspaceID() {
		return nil, &NotFoundError{Kind: "file", ID: fileID}
	}
	folderKey, err := m.session.FolderKey(rec.FolderID)
	if err != nil {
		return nil, err
	}

	wrappedKey, err := crypto.DecodeString(rec.ContentWrappedKey)
	if err != nil {
		return nil, &crypto.AuthenticationError{Op: "unwrap"}
	}
	keyNonce, err := crypto.DecodeString(rec.ContentKeyNonce)
	if err != nil {
		return nil, &crypto.AuthenticationError{Op: "unwrap"}
	}
	fileKey, err := crypto.UnwrapKey(wrappedKey, keyNonce, folderKey)
	if err != nil {
		return nil, err
	}
	defer fileKey.Zero()

	data, err := openBytes(fileKey, rec.ContentNonce, rec.ContentCiphertext)
	if err != nil {
		metrics.RecordDownload(0, false)
		return nil, err
	}
	name, err := openString(folderKey, rec.MetadataNonce, rec.MetadataCiphertext)
	if err != nil {
		metrics.RecordDownload(0, false)
		return nil, err
	}

	metrics.RecordDownload(rec.Size, true)
	logging.Info("file downloaded",
		zap.String("folder_id", rec.FolderID),
		zap.String("file_id", rec.ID))
	return &File{
		ID:        rec.ID,
		Name:      name,
		Size:      rec.Size,
		MimeType:  rec.MimeType,
		Data:      data,
		CreatedAt: rec.CreatedAt,
	}, nil
}

// ListFiles returns the files of one unlocked folder, names decrypted,
// sorted by creation time. Content stays in the store.
func (m *Manager) ListFiles(ctx context.Context, folderID string) ([]FileInfo, error) {
	folderKey, err := m.session.FolderKey(folderID)
	if err != nil {
		return nil, err
	}
	recs, err := m.store.ListFilesByFolder(ctx, folderID)
	if err != nil {
		return nil, err
	}
	infos := make([]FileInfo, 0, len(recs))
	for _, rec := range recs {
		name, err := openString(folderKey, rec.MetadataNonce, rec.MetadataCiphertext)
		if err != nil {
			return nil, err
		}
		infos = append(infos, FileInfo{
			ID:        rec.ID,
			Name:      name,
			Size:      rec.Size,
			MimeType:  rec.MimeType,
			CreatedAt: rec.CreatedAt,
		})
	}
	return infos, nil
}

// DeleteFile removes one file row. Workspace possession authorizes the
// delete; the folder does not need to be unlocked to destroy data.
func (m *Manager) DeleteFile(ctx context.Context, fileID string) error {
	if m.session.State() != session.WorkspaceUnlocked {
		return session.ErrWorkspaceLocked
	}
	rec, err := m.store.FindFileByID(ctx, fileID)
	if err != nil {
		return err
	}
	if rec == nil {
		return &NotFoundError{Kind: "file", ID: fileID}
	}
	folder, err := m.store.FindFolderByID(ctx, rec.FolderID)
	if err != nil {
		return err
	}
	if folder == nil || folder.WorkspaceID != m.session.WorkspaceID() {
		return &NotFoundError{Kind: "file", ID: fileID}
	}
	if err := m.store.DeleteFile(ctx, fileID); err != nil {
		return err
	}
	logging.Info("file deleted", zap.String("file_id", fileID))
	return nil
}
