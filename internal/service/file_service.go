package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"time"

	"github.com/mansoorceksport/floorplan/internal/domain"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Actor identifies who is calling a service method
type Actor struct {
	UserID string
	Role   domain.Role
}

// UploadRequest carries a payload and the strategy chosen for it
type UploadRequest struct {
	Strategy string
	Payload  domain.UploadPayload
}

// FileService runs strategies and records their results in the FileStore
type FileService struct {
	store      domain.FileStore
	storage    domain.BlobStorage
	strategies *StrategyRegistry
	uploads    metric.Int64Counter
}

// NewFileService creates a new file service
func NewFileService(store domain.FileStore, storage domain.BlobStorage, strategies *StrategyRegistry) *FileService {
	uploads, err := otel.Meter("floorplan/files").Int64Counter("files.uploads",
		metric.WithDescription("Uploads processed, by strategy and outcome"),
	)
	if err != nil {
		log.Printf("Warning: failed to create upload counter: %v", err)
	}
	return &FileService{
		store:      store,
		storage:    storage,
		strategies: strategies,
		uploads:    uploads,
	}
}

// Strategies lists the registered strategy names
func (s *FileService) Strategies() []string {
	return s.strategies.Names()
}

// Upload processes the payload and persists a FileRecord for the resolved path.
// When persisting fails the written bytes are removed on a best-effort basis.
func (s *FileService) Upload(ctx context.Context, actor Actor, req UploadRequest) (*domain.FileRecord, error) {
	strategy, err := s.strategies.Get(req.Strategy)
	if err != nil {
		return nil, err
	}

	result, err := strategy.Process(ctx, req.Payload)
	if err != nil {
		s.countUpload(ctx, strategy.Name(), "failed")
		return nil, err
	}

	record, err := s.store.Create(ctx, &domain.FileRecord{
		StoredPath:   result.Path,
		OriginalName: req.Payload.Filename,
		ContentType:  result.ContentType,
		Size:         result.Size,
		Checksum:     result.Checksum,
		Strategy:     strategy.Name(),
		UploadedBy:   actor.UserID,
	})
	if err != nil {
		s.countUpload(ctx, strategy.Name(), "unrecorded")
		cleanupCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if purgeErr := s.purge(cleanupCtx, strategy.Name(), result.Path); purgeErr != nil {
			log.Printf("Warning: orphaned blob %s after failed record create: %v", result.Path, purgeErr)
		}
		return nil, fmt.Errorf("failed to record upload: %w", err)
	}

	s.countUpload(ctx, strategy.Name(), "stored")
	return record, nil
}

// Get returns a record visible to the actor
func (s *FileService) Get(ctx context.Context, actor Actor, id string) (*domain.FileRecord, error) {
	record, err := s.store.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !canAccess(actor, record) {
		return nil, domain.ErrForbidden
	}
	return record, nil
}

// List returns the actor's records; admins may list any uploader
func (s *FileService) List(ctx context.Context, actor Actor, filter domain.FileFilter) ([]*domain.FileRecord, error) {
	if actor.Role != domain.RoleAdmin {
		filter.UploadedBy = actor.UserID
	}
	return s.store.List(ctx, filter)
}

// UpdateMetadata patches informational fields of a record
func (s *FileService) UpdateMetadata(ctx context.Context, actor Actor, id string, patch domain.FileRecordPatch) (*domain.FileRecord, error) {
	if _, err := s.Get(ctx, actor, id); err != nil {
		return nil, err
	}
	if patch.IsEmpty() {
		return s.store.FindByID(ctx, id)
	}
	return s.store.Update(ctx, id, patch)
}

// Open returns the record and a reader over its stored bytes. The caller closes the reader.
func (s *FileService) Open(ctx context.Context, actor Actor, id string) (*domain.FileRecord, io.ReadCloser, error) {
	record, err := s.Get(ctx, actor, id)
	if err != nil {
		return nil, nil, err
	}
	rc, err := s.storage.Open(ctx, record.StoredPath)
	if err != nil {
		return nil, nil, err
	}
	return record, rc, nil
}

// Delete removes the record. Stored bytes are reclaimed only when purge is set.
func (s *FileService) Delete(ctx context.Context, actor Actor, id string, purge bool) error {
	record, err := s.Get(ctx, actor, id)
	if err != nil {
		return err
	}
	if err := s.store.Delete(ctx, id); err != nil {
		return err
	}
	if !purge {
		return nil
	}
	if err := s.purge(ctx, record.Strategy, record.StoredPath); err != nil {
		return fmt.Errorf("record deleted but storage not reclaimed: %w", err)
	}
	return nil
}

// purge lets multi-blob strategies clean up everything they wrote
func (s *FileService) purge(ctx context.Context, strategyName, resolvedPath string) error {
	if strategy, err := s.strategies.Get(strategyName); err == nil {
		if p, ok := strategy.(Purger); ok {
			return p.Purge(ctx, s.storage, resolvedPath)
		}
	}
	err := s.storage.Delete(ctx, resolvedPath)
	if errors.Is(err, domain.ErrNotFound) {
		return nil
	}
	return err
}

func (s *FileService) countUpload(ctx context.Context, strategy, outcome string) {
	if s.uploads == nil {
		return
	}
	s.uploads.Add(ctx, 1, metric.WithAttributes(
		attribute.String("strategy", strategy),
		attribute.String("outcome", outcome),
	))
}

func canAccess(actor Actor, record *domain.FileRecord) bool {
	return actor.Role == domain.RoleAdmin || record.UploadedBy == actor.UserID
}
