package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/mansoorceksport/floorplan/internal/domain"
	"golang.org/x/sync/errgroup"
)

const floorPlanLookupConcurrency = 8

// BuildingService manages buildings and their floor plan references
type BuildingService struct {
	buildingRepo domain.BuildingRepository
	fileStore    domain.FileStore
}

// NewBuildingService creates a new building service
func NewBuildingService(buildingRepo domain.BuildingRepository, fileStore domain.FileStore) *BuildingService {
	return &BuildingService{
		buildingRepo: buildingRepo,
		fileStore:    fileStore,
	}
}

// Create registers a building from a validated request
func (s *BuildingService) Create(ctx context.Context, actor Actor, req domain.BuildingUpdateRequest) (*domain.Building, error) {
	if err := s.prepare(ctx, &req); err != nil {
		return nil, err
	}

	building := &domain.Building{
		Name:      req.Name,
		Address:   req.Address,
		Floors:    req.ToFloors(),
		CreatedBy: actor.UserID,
	}
	if err := s.buildingRepo.Create(ctx, building); err != nil {
		return nil, err
	}
	return building, nil
}

// Get returns a building by ID
func (s *BuildingService) Get(ctx context.Context, id string) (*domain.Building, error) {
	return s.buildingRepo.GetByID(ctx, id)
}

// List returns every building
func (s *BuildingService) List(ctx context.Context) ([]*domain.Building, error) {
	return s.buildingRepo.GetAll(ctx)
}

// Update replaces the editable state of a building
func (s *BuildingService) Update(ctx context.Context, id string, req domain.BuildingUpdateRequest) (*domain.Building, error) {
	building, err := s.buildingRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.prepare(ctx, &req); err != nil {
		return nil, err
	}

	building.Name = req.Name
	building.Address = req.Address
	building.Floors = req.ToFloors()
	if err := s.buildingRepo.Update(ctx, building); err != nil {
		return nil, err
	}
	return building, nil
}

// Delete removes a building. Floor plan files are left untouched.
func (s *BuildingService) Delete(ctx context.Context, id string) error {
	return s.buildingRepo.Delete(ctx, id)
}

// prepare normalizes and validates the request and checks every referenced file exists
func (s *BuildingService) prepare(ctx context.Context, req *domain.BuildingUpdateRequest) error {
	req.Normalize()
	if err := req.Validate(); err != nil {
		return err
	}
	return s.verifyFloorPlans(ctx, req.PlanFileIDs())
}

// verifyFloorPlans looks the files up concurrently and fails on the first missing one
func (s *BuildingService) verifyFloorPlans(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(floorPlanLookupConcurrency)

	for _, id := range ids {
		g.Go(func() error {
			if _, err := s.fileStore.FindByID(gCtx, id); err != nil {
				if errors.Is(err, domain.ErrNotFound) {
					return fmt.Errorf("%w: floor plan file %s", domain.ErrNotFound, id)
				}
				return fmt.Errorf("failed to verify floor plan file %s: %w", id, err)
			}
			return nil
		})
	}
	return g.Wait()
}
