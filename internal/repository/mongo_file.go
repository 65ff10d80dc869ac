package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/mansoorceksport/floorplan/internal/domain"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const defaultFileListLimit = 100

// MongoFileStore implements domain.FileStore using MongoDB
type MongoFileStore struct {
	collection *mongo.Collection
}

// NewMongoFileStore creates a new MongoDB file store
func NewMongoFileStore(db *mongo.Database) *MongoFileStore {
	collection := db.Collection("files")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_, _ = collection.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "uploaded_by", Value: 1}, {Key: "created_at", Value: -1}}},
		{Keys: bson.D{{Key: "strategy", Value: 1}}},
		{
			Keys:    bson.D{{Key: "stored_path", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
	})

	return &MongoFileStore{
		collection: collection,
	}
}

// Create persists a record, assigning an ID when none is given
func (r *MongoFileStore) Create(ctx context.Context, record *domain.FileRecord) (*domain.FileRecord, error) {
	stored := *record
	if stored.ID == "" {
		stored.ID = primitive.NewObjectID().Hex()
	}
	now := time.Now().UTC().Truncate(time.Millisecond) // BSON dates are millisecond precision
	stored.CreatedAt = now
	stored.UpdatedAt = now
	stored.Version = 1

	if _, err := r.collection.InsertOne(ctx, &stored); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, fmt.Errorf("%w: file %s", domain.ErrConflict, stored.ID)
		}
		return nil, fmt.Errorf("failed to create file record: %w", err)
	}
	return &stored, nil
}

// FindByID retrieves a record by its ID
func (r *MongoFileStore) FindByID(ctx context.Context, id string) (*domain.FileRecord, error) {
	var record domain.FileRecord
	if err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&record); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get file record: %w", err)
	}
	return &record, nil
}

// Update applies a metadata patch. stored_path is never part of the update document.
func (r *MongoFileStore) Update(ctx context.Context, id string, patch domain.FileRecordPatch) (*domain.FileRecord, error) {
	set := bson.M{"updated_at": time.Now().UTC().Truncate(time.Millisecond)}
	if patch.OriginalName != nil {
		set["original_name"] = *patch.OriginalName
	}
	if patch.ContentType != nil {
		set["content_type"] = *patch.ContentType
	}

	filter := bson.M{"_id": id}
	if patch.ExpectedVersion != nil {
		filter["version"] = *patch.ExpectedVersion
	}

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var updated domain.FileRecord
	err := r.collection.FindOneAndUpdate(ctx, filter, bson.M{
		"$set": set,
		"$inc": bson.M{"version": 1},
	}, opts).Decode(&updated)
	if err != nil {
		if !errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("failed to update file record: %w", err)
		}
		if patch.ExpectedVersion == nil {
			return nil, domain.ErrNotFound
		}
		// Distinguish a missing record from a stale version
		if _, findErr := r.FindByID(ctx, id); findErr != nil {
			return nil, findErr
		}
		return nil, fmt.Errorf("%w: file %s is no longer at version %d", domain.ErrConflict, id, *patch.ExpectedVersion)
	}
	return &updated, nil
}

// Delete removes the metadata row
func (r *MongoFileStore) Delete(ctx context.Context, id string) error {
	result, err := r.collection.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("failed to delete file record: %w", err)
	}
	if result.DeletedCount == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// List returns records matching the filter, newest first
func (r *MongoFileStore) List(ctx context.Context, filter domain.FileFilter) ([]*domain.FileRecord, error) {
	query := bson.M{}
	if filter.UploadedBy != "" {
		query["uploaded_by"] = filter.UploadedBy
	}
	if filter.Strategy != "" {
		query["strategy"] = filter.Strategy
	}
	limit := filter.Limit
	if limit <= 0 || limit > defaultFileListLimit {
		limit = defaultFileListLimit
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}}).
		SetLimit(limit)

	cursor, err := r.collection.Find(ctx, query, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list file records: %w", err)
	}
	defer cursor.Close(ctx)

	records := make([]*domain.FileRecord, 0)
	if err := cursor.All(ctx, &records); err != nil {
		return nil, fmt.Errorf("failed to decode file records: %w", err)
	}
	return records, nil
}
