package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/mansoorceksport/floorplan/internal/domain"
	"github.com/mansoorceksport/floorplan/internal/service"
)

// BuildingHandler handles building endpoints
type BuildingHandler struct {
	buildingService *service.BuildingService
}

// NewBuildingHandler creates a new building handler
func NewBuildingHandler(buildingService *service.BuildingService) *BuildingHandler {
	return &BuildingHandler{buildingService: buildingService}
}

// Create handles POST /v1/buildings
func (h *BuildingHandler) Create(c *fiber.Ctx) error {
	actor, ok := actorFrom(c)
	if !ok {
		return unauthenticated(c)
	}

	var req domain.BuildingUpdateRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid request body")
	}

	building, err := h.buildingService.Create(c.UserContext(), actor, req)
	if err != nil {
		return respondError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success": true,
		"data":    building,
	})
}

// List handles GET /v1/buildings
func (h *BuildingHandler) List(c *fiber.Ctx) error {
	buildings, err := h.buildingService.List(c.UserContext())
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    buildings,
	})
}

// Get handles GET /v1/buildings/:id
func (h *BuildingHandler) Get(c *fiber.Ctx) error {
	building, err := h.buildingService.Get(c.UserContext(), c.Params("id"))
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    building,
	})
}

// Update handles PUT /v1/buildings/:id
func (h *BuildingHandler) Update(c *fiber.Ctx) error {
	var req domain.BuildingUpdateRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid request body")
	}

	building, err := h.buildingService.Update(c.UserContext(), c.Params("id"), req)
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    building,
	})
}

// Delete handles DELETE /v1/buildings/:id
func (h *BuildingHandler) Delete(c *fiber.Ctx) error {
	if err := h.buildingService.Delete(c.UserContext(), c.Params("id")); err != nil {
		return respondError(c, err)
	}

	return c.JSON(fiber.Map{
		"success": true,
		"message": "building deleted successfully",
	})
}
