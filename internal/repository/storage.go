package repository

import (
	"context"
	"fmt"

	appConfig "github.com/mansoorceksport/floorplan/internal/config"
	"github.com/mansoorceksport/floorplan/internal/domain"
)

// NewBlobStorage opens the backend selected by STORAGE_BACKEND
func NewBlobStorage(ctx context.Context, cfg *appConfig.Config) (domain.BlobStorage, error) {
	switch cfg.Storage.Backend {
	case appConfig.StorageBackendLocal:
		return NewLocalDiskStorage(cfg.Storage.LocalDir)
	case appConfig.StorageBackendS3:
		return NewS3Storage(ctx, cfg.S3)
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Storage.Backend)
	}
}
