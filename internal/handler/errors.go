package handler

import (
	"errors"
	"log"

	"github.com/gofiber/fiber/v2"
	"github.com/mansoorceksport/floorplan/internal/domain"
	"github.com/mansoorceksport/floorplan/internal/middleware"
	"github.com/mansoorceksport/floorplan/internal/service"
)

// respondError maps domain errors onto HTTP status codes
func respondError(c *fiber.Ctx, err error) error {
	status := fiber.StatusInternalServerError
	body := fiber.Map{
		"success": false,
		"error":   err.Error(),
	}

	var procErr *domain.ProcessingError
	switch {
	case domain.IsValidationError(err):
		status = fiber.StatusBadRequest
		body["error"] = "validation failed"
		body["details"] = err
	case errors.Is(err, domain.ErrUnknownStrategy), errors.Is(err, domain.ErrInvalidRole):
		status = fiber.StatusBadRequest
	case errors.Is(err, service.ErrInvalidCredentials):
		status = fiber.StatusUnauthorized
	case errors.As(err, &procErr):
		status = fiber.StatusUnprocessableEntity
		if domain.IsStorageIOError(err) {
			status = fiber.StatusServiceUnavailable
		}
	case domain.IsStorageIOError(err):
		status = fiber.StatusServiceUnavailable
	case errors.Is(err, domain.ErrNotFound):
		status = fiber.StatusNotFound
	case errors.Is(err, domain.ErrConflict):
		status = fiber.StatusConflict
	case errors.Is(err, domain.ErrForbidden):
		status = fiber.StatusForbidden
	}

	if status >= fiber.StatusInternalServerError {
		log.Printf("Error: %s %s: %v", c.Method(), c.Path(), err)
	}
	return c.Status(status).JSON(body)
}

// actorFrom builds the service actor from the verified token
func actorFrom(c *fiber.Ctx) (service.Actor, bool) {
	userID := middleware.GetUserID(c)
	if userID == "" {
		return service.Actor{}, false
	}
	return service.Actor{UserID: userID, Role: middleware.GetRole(c)}, true
}

func unauthenticated(c *fiber.Ctx) error {
	return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
		"success": false,
		"error":   "user not authenticated",
	})
}

func badRequest(c *fiber.Ctx, msg string) error {
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
		"success": false,
		"error":   msg,
	})
}
