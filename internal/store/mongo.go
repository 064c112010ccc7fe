package store

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/avinashreddy333/Lockspace/internal/metrics"
)

// Mongo keeps the three tables as collections keyed by _id. Mongo has
// no referential integrity, so cascade deletes are issued here,
// dependents first.
type Mongo struct {
	client     *mongo.Client
	workspaces *mongo.Collection
	folders    *mongo.Collection
	files      *mongo.Collection
}

// Mirror documents. BSON field names match the row columns so the
// collections read the same as the SQL tables.
type workspaceDoc struct {
	ID                 string `bson:"_id"`
	Salt               string `bson:"salt"`
	MetadataNonce      string `bson:"metadata_nonce"`
	MetadataCiphertext string `bson:"metadata_ciphertext"`
	CreatedAt          int64  `bson:"created_at"`
}

type folderDoc struct {
	ID                 string `bson:"_id"`
	WorkspaceID        string `bson:"workspace_id"`
	Salt               string `bson:"salt"`
	MetadataNonce      string `bson:"metadata_nonce"`
	MetadataCiphertext string `bson:"metadata_ciphertext"`
	CreatedAt          int64  `bson:"created_at"`
}

type fileDoc struct {
	ID                 string `bson:"_id"`
	FolderID           string `bson:"folder_id"`
	MetadataNonce      string `bson:"metadata_nonce"`
	MetadataCiphertext string `bson:"metadata_ciphertext"`
	ContentNonce       string `bson:"content_nonce"`
	ContentCiphertext  string `bson:"content_ciphertext"`
	ContentWrappedKey  string `bson:"content_wrapped_key"`
	ContentKeyNonce    string `bson:"content_key_nonce"`
	Size               int64  `bson:"size"`
	MimeType           string `bson:"mime_type"`
	CreatedAt          int64  `bson:"created_at"`
}

// NewMongo connects, verifies the connection, and prepares the three
// collections.
func NewMongo(ctx context.Context, uri, dbName string) (*Mongo, error) {
	if uri == "" {
		return nil, &PersistenceError{Op: "open mongo", Err: errors.New("mongo uri is empty")}
	}
	cli, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, &PersistenceError{Op: "open mongo", Err: err}
	}
	pctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := cli.Ping(pctx, nil); err != nil {
		_ = cli.Disconnect(ctx)
		return nil, &PersistenceError{Op: "ping mongo", Err: err}
	}

	db := cli.Database(dbName)
	m := &Mongo{
		client:     cli,
		workspaces: db.Collection("workspaces"),
		folders:    db.Collection("folders"),
		files:      db.Collection("files"),
	}

	// Secondary indexes for the list and cascade queries. Best effort:
	// first insert still works without them.
	_, _ = m.folders.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "workspace_id", Value: 1}},
	})
	_, _ = m.files.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "folder_id", Value: 1}},
	})

	return m, nil
}

func (m *Mongo) CreateWorkspace(ctx context.Context, rec WorkspaceRecord) error {
	start := time.Now()
	defer func() { metrics.RecordStoreQuery("create_workspace", time.Since(start)) }()

	_, err := m.workspaces.InsertOne(ctx, workspaceDoc{
		ID:                 rec.ID,
		Salt:               rec.Salt,
		MetadataNonce:      rec.MetadataNonce,
		MetadataCiphertext: rec.MetadataCiphertext,
		CreatedAt:          rec.CreatedAt,
	})
	if mongo.IsDuplicateKeyError(err) {
		return &ConflictError{Kind: "workspace", ID: rec.ID}
	}
	if err != nil {
		return &PersistenceError{Op: "insert workspace", Err: err}
	}
	return nil
}

func (m *Mongo) CreateFolder(ctx context.Context, rec FolderRecord) error {
	start := time.Now()
	defer func() { metrics.RecordStoreQuery("create_folder", time.Since(start)) }()

	_, err := m.folders.InsertOne(ctx, folderDoc{
		ID:                 rec.ID,
		WorkspaceID:        rec.WorkspaceID,
		Salt:               rec.Salt,
		MetadataNonce:      rec.MetadataNonce,
		MetadataCiphertext: rec.MetadataCiphertext,
		CreatedAt:          rec.CreatedAt,
	})
	if mongo.IsDuplicateKeyError(err) {
		return &ConflictError{Kind: "folder", ID: rec.ID}
	}
	if err != nil {
		return &PersistenceError{Op: "insert folder", Err: err}
	}
	return nil
}

func (m *Mongo) CreateFile(ctx context.Context, rec FileRecord) error {
	start := time.Now()
	defer func() { metrics.RecordStoreQuery("create_file", time.Since(start)) }()

	_, err := m.files.InsertOne(ctx, fileDoc{
		ID:                 rec.ID,
		FolderID:           rec.FolderID,
		MetadataNonce:      rec.MetadataNonce,
		MetadataCiphertext: rec.MetadataCiphertext,
		ContentNonce:       rec.ContentNonce,
		ContentCiphertext:  rec.ContentCiphertext,
		ContentWrappedKey:  rec.ContentWrappedKey,
		ContentKeyNonce:    rec.ContentKeyNonce,
		Size:               rec.Size,
		MimeType:           rec.MimeType,
		CreatedAt:          rec.CreatedAt,
	})
	if mongo.IsDuplicateKeyError(err) {
		return &ConflictError{Kind: "file", ID: rec.ID}
	}
	if err != nil {
		return &PersistenceError{Op: "insert file", Err: err}
	}
	return nil
}

func (m *Mongo) FindWorkspaceByID(ctx context.Context, id string) (*WorkspaceRecord, error) {
	start := time.Now()
	defer func() { metrics.RecordStoreQuery("find_workspace", time.Since(start)) }()

	var doc workspaceDoc
	err := m.workspaces.FindOne(ctx, bson.M{"_id": id}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, &PersistenceError{Op: "find workspace", Err: err}
	}
	rec := workspaceFromDoc(doc)
	return &rec, nil
}

func (m *Mongo) FindFolderByID(ctx context.Context, id string) (*FolderRecord, error) {
	start := time.Now()
	defer func() { metrics.RecordStoreQuery("find_folder", time.Since(start)) }()

	var doc folderDoc
	err := m.folders.FindOne(ctx, bson.M{"_id": id}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, &PersistenceError{Op: "find folder", Err: err}
	}
	rec := folderFromDoc(doc)
	return &rec, nil
}

func (m *Mongo) FindFileByID(ctx context.Context, id string) (*FileRecord, error) {
	start := time.Now()
	defer func() { metrics.RecordStoreQuery("find_file", time.Since(start)) }()

	var doc fileDoc
	err := m.files.FindOne(ctx, bson.M{"_id": id}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, &PersistenceError{Op: "find file", Err: err}
	}
	rec := fileFromDoc(doc)
	return &rec, nil
}

func (m *Mongo) ListFoldersByWorkspace(ctx context.Context, workspaceID string) ([]FolderRecord, error) {
	start := time.Now()
	defer func() { metrics.RecordStoreQuery("list_folders", time.Since(start)) }()

	cur, err := m.folders.Find(ctx, bson.M{"workspace_id": workspaceID},
		options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}, {Key: "_id", Value: 1}}))
	if err != nil {
		return nil, &PersistenceError{Op: "list folders", Err: err}
	}
	defer cur.Close(ctx)

	recs := []FolderRecord{}
	for cur.Next(ctx) {
		var doc folderDoc
		if err := cur.Decode(&doc); err != nil {
			return nil, &PersistenceError{Op: "decode folder", Err: err}
		}
		recs = append(recs, folderFromDoc(doc))
	}
	if err := cur.Err(); err != nil {
		return nil, &PersistenceError{Op: "list folders", Err: err}
	}
	return recs, nil
}

func (m *Mongo) ListFilesByFolder(ctx context.Context, folderID string) ([]FileRecord, error) {
	start := time.Now()
	defer func() { metrics.RecordStoreQuery("list_files", time.Since(start)) }()

	cur, err := m.files.Find(ctx, bson.M{"folder_id": folderID},
		options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}, {Key: "_id", Value: 1}}))
	if err != nil {
		return nil, &PersistenceError{Op: "list files", Err: err}
	}
	defer cur.Close(ctx)

	recs := []FileRecord{}
	for cur.Next(ctx) {
		var doc fileDoc
		if err := cur.Decode(&doc); err != nil {
			return nil, &PersistenceError{Op: "decode file", Err: err}
		}
		recs = append(recs, fileFromDoc(doc))
	}
	if err := cur.Err(); err != nil {
		return nil, &PersistenceError{Op: "list files", Err: err}
	}
	return recs, nil
}

func (m *Mongo) DeleteWorkspace(ctx context.Context, id string) error {
	start := time.Now()
	defer func() { metrics.RecordStoreQuery("delete_workspace", time.Since(start)) }()

	folderIDs, err := m.folders.Distinct(ctx, "_id", bson.M{"workspace_id": id})
	if err != nil {
		return &PersistenceError{Op: "delete workspace", Err: err}
	}
	if len(folderIDs) > 0 {
		if _, err := m.files.DeleteMany(ctx, bson.M{"folder_id": bson.M{"$in": folderIDs}}); err != nil {
			return &PersistenceError{Op: "delete workspace files", Err: err}
		}
		if _, err := m.folders.DeleteMany(ctx, bson.M{"workspace_id": id}); err != nil {
			return &PersistenceError{Op: "delete workspace folders", Err: err}
		}
	}
	if _, err := m.workspaces.DeleteOne(ctx, bson.M{"_id": id}); err != nil {
		return &PersistenceError{Op: "delete workspace", Err: err}
	}
	return nil
}

func (m *Mongo) DeleteFolder(ctx context.Context, id string) error {
	start := time.Now()
	defer func() { metrics.RecordStoreQuery("delete_folder", time.Since(start)) }()

	if _, err := m.files.DeleteMany(ctx, bson.M{"folder_id": id}); err != nil {
		return &PersistenceError{Op: "delete folder files", Err: err}
	}
	if _, err := m.folders.DeleteOne(ctx, bson.M{"_id": id}); err != nil {
		return &PersistenceError{Op: "delete folder", Err: err}
	}
	return nil
}

func (m *Mongo) DeleteFile(ctx context.Context, id string) error {
	start := time.Now()
	defer func() { metrics.RecordStoreQuery("delete_file", time.Since(start)) }()

	if _, err := m.files.DeleteOne(ctx, bson.M{"_id": id}); err != nil {
		return &PersistenceError{Op: "delete file", Err: err}
	}
	return nil
}

func (m *Mongo) Close(ctx context.Context) error {
	if err := m.client.Disconnect(ctx); err != nil {
		return &PersistenceError{Op: "close mongo", Err: err}
	}
	return nil
}

func workspaceFromDoc(doc workspaceDoc) WorkspaceRecord {
	return WorkspaceRecord{
		ID:                 doc.ID,
		Salt:               doc.Salt,
		MetadataNonce:      doc.MetadataNonce,
		MetadataCiphertext: doc.MetadataCiphertext,
		CreatedAt:          doc.CreatedAt,
	}
}

func folderFromDoc(doc folderDoc) FolderRecord {
	return FolderRecord{
		ID:                 doc.ID,
		WorkspaceID:        doc.WorkspaceID,
		Salt:               doc.Salt,
		MetadataNonce:      doc.MetadataNonce,
		MetadataCiphertext: doc.MetadataCiphertext,
		CreatedAt:          doc.CreatedAt,
	}
}

func fileFromDoc(doc fileDoc) FileRecord {
	return FileRecord{
		ID:                 doc.ID,
		FolderID:           doc.FolderID,
		MetadataNonce:      doc.MetadataNonce,
		MetadataCiphertext: doc.MetadataCiphertext,
		ContentNonce:       doc.ContentNonce,
		ContentCiphertext:  doc.ContentCiphertext,
		ContentWrappedKey:  doc.ContentWrappedKey,
		ContentKeyNonce:    doc.ContentKeyNonce,
		Size:               doc.Size,
		MimeType:           doc.MimeType,
		CreatedAt:          doc.CreatedAt,
	}
}
