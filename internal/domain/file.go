package domain

import (
	"context"
	"io"
	"time"
)

// FileRecord is the persisted metadata row referencing a processed file.
// StoredPath is set once at creation and never rewritten.
type FileRecord struct {
	ID           string    `bson:"_id,omitempty" json:"id"`
	StoredPath   string    `bson:"stored_path" json:"stored_path"`
	OriginalName string    `bson:"original_name" json:"original_name"`
	ContentType  string    `bson:"content_type" json:"content_type"`
	Size         int64     `bson:"size" json:"size"`
	Checksum     string    `bson:"checksum" json:"checksum"` // hex sha256 of stored bytes
	Strategy     string    `bson:"strategy" json:"strategy"`
	UploadedBy   string    `bson:"uploaded_by" json:"uploaded_by"`
	Version      int64     `bson:"version" json:"version"`
	CreatedAt    time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt    time.Time `bson:"updated_at" json:"updated_at"`
}

// FileRecordPatch holds the metadata fields that may change after creation.
// Nil fields are left untouched.
type FileRecordPatch struct {
	OriginalName *string `json:"original_name,omitempty"`
	ContentType  *string `json:"content_type,omitempty"`
	// ExpectedVersion enables optimistic concurrency when set
	ExpectedVersion *int64 `json:"expected_version,omitempty"`
}

// IsEmpty reports whether the patch changes nothing
func (p FileRecordPatch) IsEmpty() bool {
	return p.OriginalName == nil && p.ContentType == nil
}

// FileFilter narrows List results
type FileFilter struct {
	UploadedBy string
	Strategy   string
	Limit      int64
}

// FileStore defines persistence operations for FileRecord
type FileStore interface {
	// Create assigns an ID when empty and persists the record.
	// Returns ErrConflict when an explicit ID already exists.
	Create(ctx context.Context, record *FileRecord) (*FileRecord, error)
	FindByID(ctx context.Context, id string) (*FileRecord, error)
	// Update applies a metadata patch; StoredPath is never modified
	Update(ctx context.Context, id string, patch FileRecordPatch) (*FileRecord, error)
	// Delete removes metadata only, backing bytes are left to the caller
	Delete(ctx context.Context, id string) error
	List(ctx context.Context, filter FileFilter) ([]*FileRecord, error)
}

// UploadPayload is the byte stream plus declared name/type submitted for processing.
// The strategy owns Body for the duration of the call.
type UploadPayload struct {
	Body        io.Reader
	Filename    string
	ContentType string
}

// ProcessResult describes where a strategy stored the processed bytes
type ProcessResult struct {
	Path        string // resolved path, readable through BlobStorage.Open
	ContentType string
	Size        int64
	Checksum    string
}

// FileProcessingStrategy converts an upload payload into a materialized file.
// Every call writes to a fresh location, so the operation is not idempotent.
// It never creates a FileRecord.
type FileProcessingStrategy interface {
	Name() string
	Process(ctx context.Context, payload UploadPayload) (*ProcessResult, error)
}

// BlobObject is the result of a successful BlobStorage.Put
type BlobObject struct {
	Path     string
	Size     int64
	Checksum string
}

// BlobStorage is the durable byte store strategies write into.
// Put either stores all bytes at path or nothing.
type BlobStorage interface {
	Put(ctx context.Context, key string, body io.Reader, contentType string) (*BlobObject, error)
	Open(ctx context.Context, path string) (io.ReadCloser, error)
	Delete(ctx context.Context, path string) error
}
