package service

import (
	"context"
	"testing"

	"github.com/mansoorceksport/floorplan/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestBuildingService(t *testing.T) (*BuildingService, *memFileStore) {
	t.Helper()
	files := newMemFileStore()
	return NewBuildingService(newMemBuildingRepo(), files), files
}

func seedPlan(t *testing.T, files *memFileStore) string {
	t.Helper()
	record, err := files.Create(context.Background(), &domain.FileRecord{
		StoredPath:  "image/2026/01/01/plan.png",
		ContentType: "image/png",
		Strategy:    ImageStrategyName,
		UploadedBy:  "root",
	})
	require.NoError(t, err)
	return record.ID
}

func TestBuildingServiceCreate(t *testing.T) {
	svc, files := newTestBuildingService(t)
	planID := seedPlan(t, files)

	building, err := svc.Create(context.Background(), admin, domain.BuildingUpdateRequest{
		Name:    "  North Tower ",
		Address: "1 Harbour Road",
		Floors: []domain.FloorUpdateRequest{
			{Number: 0, Name: "Lobby", PlanFileID: planID},
			{Number: 1, Name: "Offices"},
		},
	})
	require.NoError(t, err)

	assert.NotEmpty(t, building.ID)
	assert.Equal(t, "North Tower", building.Name)
	assert.Equal(t, "root", building.CreatedBy)
	require.Len(t, building.Floors, 2)
	assert.Equal(t, planID, building.Floors[0].PlanFileID)

	got, err := svc.Get(context.Background(), building.ID)
	require.NoError(t, err)
	assert.Equal(t, building.Name, got.Name)
}

func TestBuildingServiceRejectsInvalidRequests(t *testing.T) {
	svc, _ := newTestBuildingService(t)

	_, err := svc.Create(context.Background(), admin, domain.BuildingUpdateRequest{Name: "   "})
	assert.True(t, domain.IsValidationError(err), "got %v", err)

	_, err = svc.Create(context.Background(), admin, domain.BuildingUpdateRequest{
		Name:   "Annex",
		Floors: []domain.FloorUpdateRequest{{Number: 0, Name: "Ground", PlanFileID: "missing-file"}},
	})
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.Contains(t, err.Error(), "missing-file")

	all, err := svc.List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestBuildingServiceUpdateAndDelete(t *testing.T) {
	svc, files := newTestBuildingService(t)
	ctx := context.Background()

	building, err := svc.Create(ctx, admin, domain.BuildingUpdateRequest{Name: "Depot"})
	require.NoError(t, err)

	planID := seedPlan(t, files)
	updated, err := svc.Update(ctx, building.ID, domain.BuildingUpdateRequest{
		Name:   "Depot West",
		Floors: []domain.FloorUpdateRequest{{Number: -1, Name: "Basement", PlanFileID: planID}},
	})
	require.NoError(t, err)
	assert.Equal(t, "Depot West", updated.Name)
	assert.Equal(t, "root", updated.CreatedBy)
	assert.Len(t, updated.Floors, 1)

	_, err = svc.Update(ctx, "nope", domain.BuildingUpdateRequest{Name: "x"})
	assert.ErrorIs(t, err, domain.ErrNotFound)

	require.NoError(t, svc.Delete(ctx, building.ID))
	_, err = svc.Get(ctx, building.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	// Floor plans outlive the building
	_, err = files.FindByID(ctx, planID)
	assert.NoError(t, err)
}
