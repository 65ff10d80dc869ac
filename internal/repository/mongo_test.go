package repository

import (
	"context"
	"log"
	"testing"
	"time"

	"github.com/mansoorceksport/floorplan/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go/modules/mongodb"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// setupTestDB spins up a fresh MongoDB container and returns the database
// along with a cleanup function.
func setupTestDB(t *testing.T) (*mongo.Database, func()) {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping MongoDB container test in short mode")
	}
	ctx := context.Background()

	container, err := mongodb.Run(ctx, "mongo:7")
	if err != nil {
		t.Fatalf("failed to start container: %s", err)
	}

	endpoint, err := container.ConnectionString(ctx)
	if err != nil {
		t.Fatalf("failed to get connection string: %s", err)
	}

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(endpoint))
	if err != nil {
		t.Fatalf("failed to connect to mongo: %v", err)
	}

	return client.Database("test_db"), func() {
		if err := client.Disconnect(ctx); err != nil {
			log.Printf("failed to disconnect mongo: %v", err)
		}
		if err := container.Terminate(ctx); err != nil {
			log.Printf("failed to terminate container: %v", err)
		}
	}
}

func TestMongoFileStore(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewMongoFileStore(db)
	ctx := context.Background()

	newRecord := func(path, uploader string) *domain.FileRecord {
		return &domain.FileRecord{
			StoredPath:   path,
			OriginalName: "plan.pdf",
			ContentType:  "application/pdf",
			Size:         1234,
			Checksum:     "abc123",
			Strategy:     "copy",
			UploadedBy:   uploader,
		}
	}

	t.Run("create then find returns an equal record", func(t *testing.T) {
		created, err := store.Create(ctx, newRecord("copy/2026/01/01/one.pdf", "alice"))
		require.NoError(t, err)
		assert.NotEmpty(t, created.ID)
		assert.Equal(t, int64(1), created.Version)
		assert.WithinDuration(t, time.Now(), created.CreatedAt, time.Minute)

		found, err := store.FindByID(ctx, created.ID)
		require.NoError(t, err)
		assert.Equal(t, created, found)
	})

	t.Run("explicit duplicate id conflicts", func(t *testing.T) {
		rec := newRecord("copy/2026/01/01/two.pdf", "alice")
		rec.ID = "fixed-id"
		_, err := store.Create(ctx, rec)
		require.NoError(t, err)

		again := newRecord("copy/2026/01/01/three.pdf", "alice")
		again.ID = "fixed-id"
		_, err = store.Create(ctx, again)
		assert.ErrorIs(t, err, domain.ErrConflict)
	})

	t.Run("duplicate stored path conflicts", func(t *testing.T) {
		_, err := store.Create(ctx, newRecord("copy/2026/01/01/same.pdf", "alice"))
		require.NoError(t, err)
		_, err = store.Create(ctx, newRecord("copy/2026/01/01/same.pdf", "bob"))
		assert.ErrorIs(t, err, domain.ErrConflict)
	})

	t.Run("update never changes stored path", func(t *testing.T) {
		created, err := store.Create(ctx, newRecord("copy/2026/01/01/four.pdf", "alice"))
		require.NoError(t, err)

		name, ctype := "renamed.pdf", "application/x-pdf"
		updated, err := store.Update(ctx, created.ID, domain.FileRecordPatch{OriginalName: &name, ContentType: &ctype})
		require.NoError(t, err)
		assert.Equal(t, created.StoredPath, updated.StoredPath)
		assert.Equal(t, "renamed.pdf", updated.OriginalName)
		assert.Equal(t, "application/x-pdf", updated.ContentType)
		assert.Equal(t, int64(2), updated.Version)
		assert.Equal(t, created.CreatedAt, updated.CreatedAt)

		stale := int64(1)
		_, err = store.Update(ctx, created.ID, domain.FileRecordPatch{OriginalName: &name, ExpectedVersion: &stale})
		assert.ErrorIs(t, err, domain.ErrConflict)

		current := int64(2)
		_, err = store.Update(ctx, created.ID, domain.FileRecordPatch{OriginalName: &name, ExpectedVersion: &current})
		assert.NoError(t, err)

		_, err = store.Update(ctx, "missing", domain.FileRecordPatch{OriginalName: &name})
		assert.ErrorIs(t, err, domain.ErrNotFound)
		_, err = store.Update(ctx, "missing", domain.FileRecordPatch{OriginalName: &name, ExpectedVersion: &current})
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("delete then find is not found", func(t *testing.T) {
		created, err := store.Create(ctx, newRecord("copy/2026/01/01/five.pdf", "alice"))
		require.NoError(t, err)

		require.NoError(t, store.Delete(ctx, created.ID))
		_, err = store.FindByID(ctx, created.ID)
		assert.ErrorIs(t, err, domain.ErrNotFound)
		assert.ErrorIs(t, store.Delete(ctx, created.ID), domain.ErrNotFound)
	})

	t.Run("list filters by uploader newest first", func(t *testing.T) {
		first, err := store.Create(ctx, newRecord("image/2026/01/01/a.png", "carol"))
		require.NoError(t, err)
		time.Sleep(5 * time.Millisecond)
		second, err := store.Create(ctx, newRecord("image/2026/01/01/b.png", "carol"))
		require.NoError(t, err)

		records, err := store.List(ctx, domain.FileFilter{UploadedBy: "carol"})
		require.NoError(t, err)
		require.Len(t, records, 2)
		assert.Equal(t, second.ID, records[0].ID)
		assert.Equal(t, first.ID, records[1].ID)

		limited, err := store.List(ctx, domain.FileFilter{UploadedBy: "carol", Limit: 1})
		require.NoError(t, err)
		assert.Len(t, limited, 1)

		none, err := store.List(ctx, domain.FileFilter{UploadedBy: "nobody"})
		require.NoError(t, err)
		assert.Empty(t, none)
	})
}

func TestMongoUserRepository(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	repo := NewMongoUserRepository(db)
	ctx := context.Background()

	user := &domain.User{Email: "ana@example.com", Name: "Ana", PasswordHash: "hash", Role: domain.RoleUser}
	require.NoError(t, repo.Create(ctx, user))
	assert.NotEmpty(t, user.ID)

	err := repo.Create(ctx, &domain.User{Email: "ana@example.com", Name: "Other", Role: domain.RoleUser})
	assert.ErrorIs(t, err, domain.ErrConflict)

	byEmail, err := repo.GetByEmail(ctx, "ana@example.com")
	require.NoError(t, err)
	assert.Equal(t, user.ID, byEmail.ID)
	assert.Equal(t, domain.RoleUser, byEmail.Role)

	require.NoError(t, repo.UpdateRole(ctx, user.ID, domain.RoleAdmin))
	byID, err := repo.GetByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.RoleAdmin, byID.Role)

	assert.ErrorIs(t, repo.UpdateRole(ctx, "missing", domain.RoleAdmin), domain.ErrNotFound)
	_, err = repo.GetByEmail(ctx, "nobody@example.com")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestMongoBuildingRepository(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	repo := NewMongoBuildingRepository(db)
	ctx := context.Background()

	b := &domain.Building{
		Name:      "Tower B",
		Floors:    []domain.Floor{{Number: 0, Name: "Lobby", PlanFileID: "f1"}},
		CreatedBy: "root",
	}
	require.NoError(t, repo.Create(ctx, b))
	require.NoError(t, repo.Create(ctx, &domain.Building{Name: "Annex A", CreatedBy: "root"}))

	all, err := repo.GetAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "Annex A", all[0].Name)

	b.Name = "Tower B2"
	require.NoError(t, repo.Update(ctx, b))
	got, err := repo.GetByID(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, "Tower B2", got.Name)
	assert.Equal(t, "f1", got.Floors[0].PlanFileID)

	require.NoError(t, repo.Delete(ctx, b.ID))
	_, err = repo.GetByID(ctx, b.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.ErrorIs(t, repo.Delete(ctx, b.ID), domain.ErrNotFound)
}
