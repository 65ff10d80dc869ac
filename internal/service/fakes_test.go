package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"path/filepath"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/mansoorceksport/floorplan/internal/domain"
	"github.com/mansoorceksport/floorplan/internal/repository"
	"github.com/stretchr/testify/require"
)

func newDiskStorage(t *testing.T) (*repository.LocalDiskStorage, string) {
	t.Helper()
	root := t.TempDir()
	storage, err := repository.NewLocalDiskStorage(root)
	require.NoError(t, err)
	return storage, root
}

// countFiles returns every regular file below root, temp files included
func countFiles(t *testing.T, root string) int {
	t.Helper()
	n := 0
	err := filepath.WalkDir(root, func(_ string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.Type().IsRegular() {
			n++
		}
		return nil
	})
	require.NoError(t, err)
	return n
}

// readBlob returns the stored bytes at path
func readBlob(t *testing.T, storage domain.BlobStorage, path string) []byte {
	t.Helper()
	rc, err := storage.Open(context.Background(), path)
	require.NoError(t, err)
	defer rc.Close()
	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	return data
}

// failingStorage wraps a real storage and fails Put after a number of successful calls
type failingStorage struct {
	domain.BlobStorage
	mu        sync.Mutex
	okPuts    int
	putCalls  int
	failWith  error
	deletions []string
}

func (s *failingStorage) Put(ctx context.Context, key string, body io.Reader, contentType string) (*domain.BlobObject, error) {
	s.mu.Lock()
	s.putCalls++
	fail := s.putCalls > s.okPuts
	s.mu.Unlock()
	if fail {
		// drain like a real transport would before failing
		_, _ = io.Copy(io.Discard, body)
		return nil, &domain.StorageIOError{Op: "put", Path: key, Err: s.failWith}
	}
	return s.BlobStorage.Put(ctx, key, body, contentType)
}

func (s *failingStorage) Delete(ctx context.Context, key string) error {
	s.mu.Lock()
	s.deletions = append(s.deletions, key)
	s.mu.Unlock()
	return s.BlobStorage.Delete(ctx, key)
}

// memFileStore is an in-memory domain.FileStore
type memFileStore struct {
	mu        sync.Mutex
	records   map[string]domain.FileRecord
	seq       int
	createErr error
}

func newMemFileStore() *memFileStore {
	return &memFileStore{records: make(map[string]domain.FileRecord)}
}

func (m *memFileStore) Create(ctx context.Context, record *domain.FileRecord) (*domain.FileRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.createErr != nil {
		return nil, m.createErr
	}
	stored := *record
	if stored.ID == "" {
		m.seq++
		stored.ID = fmt.Sprintf("file-%d", m.seq)
	}
	if _, exists := m.records[stored.ID]; exists {
		return nil, domain.ErrConflict
	}
	now := time.Now().UTC()
	stored.CreatedAt, stored.UpdatedAt, stored.Version = now, now, 1
	m.records[stored.ID] = stored
	out := stored
	return &out, nil
}

func (m *memFileStore) FindByID(ctx context.Context, id string) (*domain.FileRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.records[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &r, nil
}

func (m *memFileStore) Update(ctx context.Context, id string, patch domain.FileRecordPatch) (*domain.FileRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.records[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	if patch.ExpectedVersion != nil && *patch.ExpectedVersion != r.Version {
		return nil, domain.ErrConflict
	}
	if patch.OriginalName != nil {
		r.OriginalName = *patch.OriginalName
	}
	if patch.ContentType != nil {
		r.ContentType = *patch.ContentType
	}
	r.Version++
	r.UpdatedAt = time.Now().UTC()
	m.records[id] = r
	return &r, nil
}

func (m *memFileStore) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.records[id]; !ok {
		return domain.ErrNotFound
	}
	delete(m.records, id)
	return nil
}

func (m *memFileStore) List(ctx context.Context, filter domain.FileFilter) ([]*domain.FileRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*domain.FileRecord
	for _, r := range m.records {
		if filter.UploadedBy != "" && r.UploadedBy != filter.UploadedBy {
			continue
		}
		if filter.Strategy != "" && r.Strategy != filter.Strategy {
			continue
		}
		r := r
		out = append(out, &r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// memUserRepo is an in-memory domain.UserRepository
type memUserRepo struct {
	mu    sync.Mutex
	users map[string]domain.User
	seq   int
}

func newMemUserRepo() *memUserRepo {
	return &memUserRepo{users: make(map[string]domain.User)}
}

func (m *memUserRepo) Create(ctx context.Context, user *domain.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Email == user.Email {
			return domain.ErrConflict
		}
	}
	m.seq++
	user.ID = fmt.Sprintf("user-%d", m.seq)
	m.users[user.ID] = *user
	return nil
}

func (m *memUserRepo) GetByID(ctx context.Context, id string) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &u, nil
}

func (m *memUserRepo) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Email == email {
			return &u, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *memUserRepo) UpdateRole(ctx context.Context, id string, role domain.Role) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return domain.ErrNotFound
	}
	u.Role = role
	m.users[id] = u
	return nil
}

// memBuildingRepo is an in-memory domain.BuildingRepository
type memBuildingRepo struct {
	mu        sync.Mutex
	buildings map[string]domain.Building
	seq       int
}

func newMemBuildingRepo() *memBuildingRepo {
	return &memBuildingRepo{buildings: make(map[string]domain.Building)}
}

func (m *memBuildingRepo) Create(ctx context.Context, b *domain.Building) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seq++
	b.ID = fmt.Sprintf("bld-%d", m.seq)
	m.buildings[b.ID] = *b
	return nil
}

func (m *memBuildingRepo) GetByID(ctx context.Context, id string) (*domain.Building, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.buildings[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &b, nil
}

func (m *memBuildingRepo) GetAll(ctx context.Context) ([]*domain.Building, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*domain.Building, 0, len(m.buildings))
	for _, b := range m.buildings {
		b := b
		out = append(out, &b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (m *memBuildingRepo) Update(ctx context.Context, b *domain.Building) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.buildings[b.ID]; !ok {
		return domain.ErrNotFound
	}
	m.buildings[b.ID] = *b
	return nil
}

func (m *memBuildingRepo) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.buildings[id]; !ok {
		return domain.ErrNotFound
	}
	delete(m.buildings, id)
	return nil
}

var errDiskFull = errors.New("no space left on device")
