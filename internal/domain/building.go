package domain

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

const (
	MaxBuildingNameLength = 200
	MaxAddressLength      = 500
	MaxFloors             = 300
	MinFloorNumber        = -10 // basements
)

// Building is a registered building with its floors
type Building struct {
	ID        string    `bson:"_id,omitempty" json:"id"`
	Name      string    `bson:"name" json:"name"`
	Address   string    `bson:"address" json:"address"`
	Floors    []Floor   `bson:"floors" json:"floors"`
	CreatedBy string    `bson:"created_by" json:"created_by"`
	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}

// Floor references its floor plan by FileRecord ID
type Floor struct {
	Number     int    `bson:"number" json:"number"`
	Name       string `bson:"name" json:"name"`
	PlanFileID string `bson:"plan_file_id,omitempty" json:"plan_file_id,omitempty"`
}

// FloorUpdateRequest describes one floor inside a BuildingUpdateRequest
type FloorUpdateRequest struct {
	Number     int    `json:"number"`
	Name       string `json:"name"`
	PlanFileID string `json:"plan_file_id,omitempty"`
}

func (f FloorUpdateRequest) Validate() error {
	return validation.ValidateStruct(&f,
		validation.Field(&f.Number, validation.Min(MinFloorNumber)),
		validation.Field(&f.Name, validation.Required, validation.Length(1, MaxBuildingNameLength)),
	)
}

// BuildingUpdateRequest is the full replacement of a building's editable state.
// It is used both for creation and update.
type BuildingUpdateRequest struct {
	Name    string               `json:"name"`
	Address string               `json:"address"`
	Floors  []FloorUpdateRequest `json:"floors"`
}

// Normalize trims text fields in place
func (r *BuildingUpdateRequest) Normalize() {
	r.Name = strings.TrimSpace(r.Name)
	r.Address = strings.TrimSpace(r.Address)
	for i := range r.Floors {
		r.Floors[i].Name = strings.TrimSpace(r.Floors[i].Name)
		r.Floors[i].PlanFileID = strings.TrimSpace(r.Floors[i].PlanFileID)
	}
}

func (r BuildingUpdateRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Name, validation.Required, validation.Length(1, MaxBuildingNameLength)),
		validation.Field(&r.Address, validation.Length(0, MaxAddressLength)),
		validation.Field(&r.Floors, validation.Length(0, MaxFloors), validation.By(uniqueFloorNumbers)),
	)
}

// PlanFileIDs returns the distinct non-empty file references of the request
func (r BuildingUpdateRequest) PlanFileIDs() []string {
	seen := make(map[string]struct{}, len(r.Floors))
	ids := make([]string, 0, len(r.Floors))
	for _, f := range r.Floors {
		if f.PlanFileID == "" {
			continue
		}
		if _, ok := seen[f.PlanFileID]; ok {
			continue
		}
		seen[f.PlanFileID] = struct{}{}
		ids = append(ids, f.PlanFileID)
	}
	return ids
}

// ToFloors converts the requested floors into domain floors
func (r BuildingUpdateRequest) ToFloors() []Floor {
	floors := make([]Floor, 0, len(r.Floors))
	for _, f := range r.Floors {
		floors = append(floors, Floor{Number: f.Number, Name: f.Name, PlanFileID: f.PlanFileID})
	}
	return floors
}

func uniqueFloorNumbers(value interface{}) error {
	floors, _ := value.([]FloorUpdateRequest)
	seen := make(map[int]struct{}, len(floors))
	for _, f := range floors {
		if _, ok := seen[f.Number]; ok {
			return fmt.Errorf("duplicate floor number %d", f.Number)
		}
		seen[f.Number] = struct{}{}
	}
	return nil
}

// IsValidationError reports whether err came from DTO validation
func IsValidationError(err error) bool {
	var vErrs validation.Errors
	if errors.As(err, &vErrs) {
		return true
	}
	var vErr validation.Error
	return errors.As(err, &vErr)
}

// BuildingRepository defines operations for managing buildings
type BuildingRepository interface {
	Create(ctx context.Context, building *Building) error
	GetByID(ctx context.Context, id string) (*Building, error)
	GetAll(ctx context.Context) ([]*Building, error)
	Update(ctx context.Context, building *Building) error
	Delete(ctx context.Context, id string) error
}
