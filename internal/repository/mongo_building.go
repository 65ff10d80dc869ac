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

// MongoBuildingRepository implements domain.BuildingRepository
type MongoBuildingRepository struct {
	collection *mongo.Collection
}

func NewMongoBuildingRepository(db *mongo.Database) *MongoBuildingRepository {
	coll := db.Collection("buildings")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// Lookup of buildings that reference a given floor plan
	_, _ = coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "floors.plan_file_id", Value: 1}},
	})

	return &MongoBuildingRepository{collection: coll}
}

func (r *MongoBuildingRepository) Create(ctx context.Context, building *domain.Building) error {
	building.CreatedAt = time.Now().UTC()
	building.UpdatedAt = building.CreatedAt
	building.ID = primitive.NewObjectID().Hex()
	if building.Floors == nil {
		building.Floors = []domain.Floor{}
	}

	if _, err := r.collection.InsertOne(ctx, building); err != nil {
		return fmt.Errorf("failed to create building: %w", err)
	}
	return nil
}

func (r *MongoBuildingRepository) GetByID(ctx context.Context, id string) (*domain.Building, error) {
	var building domain.Building
	if err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&building); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get building: %w", err)
	}
	return &building, nil
}

func (r *MongoBuildingRepository) GetAll(ctx context.Context) ([]*domain.Building, error) {
	opts := options.Find().SetSort(bson.D{{Key: "name", Value: 1}})
	cursor, err := r.collection.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list buildings: %w", err)
	}
	defer cursor.Close(ctx)

	buildings := make([]*domain.Building, 0)
	if err := cursor.All(ctx, &buildings); err != nil {
		return nil, fmt.Errorf("failed to decode buildings: %w", err)
	}
	return buildings, nil
}

func (r *MongoBuildingRepository) Update(ctx context.Context, building *domain.Building) error {
	building.UpdatedAt = time.Now().UTC()
	result, err := r.collection.UpdateOne(ctx,
		bson.M{"_id": building.ID},
		bson.M{"$set": bson.M{
			"name":       building.Name,
			"address":    building.Address,
			"floors":     building.Floors,
			"updated_at": building.UpdatedAt,
		}},
	)
	if err != nil {
		return fmt.Errorf("failed to update building: %w", err)
	}
	if result.MatchedCount == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *MongoBuildingRepository) Delete(ctx context.Context, id string) error {
	result, err := r.collection.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("failed to delete building: %w", err)
	}
	if result.DeletedCount == 0 {
		return domain.ErrNotFound
	}
	return nil
}
