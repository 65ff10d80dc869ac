package repository

import (
	"context"
	"time"

	"github.com/mansoorceksport/floorplan/internal/domain"
)

const (
	fileByIDKeyPrefix = "file:id:"
	fileGenKeyPrefix  = "file:gen:"
	fileCacheTTL      = 10 * time.Minute
	fileGenerationTTL = 2 * fileCacheTTL
)

// CachedFileStore wraps a domain.FileStore with Redis read-through caching.
// Every write bumps a per-record generation; a read only fills the cache if
// the generation it saw before loading is still current.
type CachedFileStore struct {
	store domain.FileStore
	cache *RedisCache
}

// NewCachedFileStore creates a new cached file store
func NewCachedFileStore(store domain.FileStore, cache *RedisCache) *CachedFileStore {
	return &CachedFileStore{
		store: store,
		cache: cache,
	}
}

// Create persists the record and primes the cache
func (r *CachedFileStore) Create(ctx context.Context, record *domain.FileRecord) (*domain.FileRecord, error) {
	created, err := r.store.Create(ctx, record)
	if err != nil {
		return nil, err
	}

	if gen, err := r.cache.Generation(ctx, fileGenKeyPrefix+created.ID); err == nil {
		_ = r.cache.SetAtGeneration(ctx, fileByIDKeyPrefix+created.ID, created, fileCacheTTL, fileGenKeyPrefix+created.ID, gen)
	}
	return created, nil
}

// FindByID retrieves a record with caching
func (r *CachedFileStore) FindByID(ctx context.Context, id string) (*domain.FileRecord, error) {
	key := fileByIDKeyPrefix + id
	genKey := fileGenKeyPrefix + id

	var record domain.FileRecord
	if err := r.cache.Get(ctx, key, &record); err == nil {
		return &record, nil
	}

	// Read the generation before the row so a write in between is detected
	gen, genErr := r.cache.Generation(ctx, genKey)

	result, err := r.store.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	// Without a generation there is nothing to guard the fill with
	if genErr == nil {
		_ = r.cache.SetAtGeneration(ctx, key, result, fileCacheTTL, genKey, gen)
	}
	return result, nil
}

// Update writes through and invalidates any cached or in-flight copy
func (r *CachedFileStore) Update(ctx context.Context, id string, patch domain.FileRecordPatch) (*domain.FileRecord, error) {
	updated, err := r.store.Update(ctx, id, patch)
	if err != nil {
		return nil, err
	}

	r.invalidate(ctx, id)
	return updated, nil
}

// Delete removes the record and invalidates any cached or in-flight copy
func (r *CachedFileStore) Delete(ctx context.Context, id string) error {
	err := r.store.Delete(ctx, id)
	r.invalidate(ctx, id)
	return err
}

// List is not cached
func (r *CachedFileStore) List(ctx context.Context, filter domain.FileFilter) ([]*domain.FileRecord, error) {
	return r.store.List(ctx, filter)
}

func (r *CachedFileStore) invalidate(ctx context.Context, id string) {
	_ = r.cache.BumpGeneration(ctx, fileGenKeyPrefix+id, fileGenerationTTL, fileByIDKeyPrefix+id)
}
