package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/mansoorceksport/floorplan/internal/domain"
	"github.com/mansoorceksport/floorplan/internal/service"
)

// AuthHandler handles authentication endpoints
type AuthHandler struct {
	authService *service.AuthService
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(authService *service.AuthService) *AuthHandler {
	return &AuthHandler{authService: authService}
}

// SignUp handles POST /v1/auth/signup
func (h *AuthHandler) SignUp(c *fiber.Ctx) error {
	var req domain.SignUpRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid request body")
	}

	user, err := h.authService.SignUp(c.UserContext(), req)
	if err != nil {
		return respondError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success": true,
		"data": domain.UserSummary{
			ID:    user.ID,
			Email: user.Email,
			Name:  user.Name,
			Role:  user.Role,
		},
	})
}

// SignIn handles POST /v1/auth/signin
func (h *AuthHandler) SignIn(c *fiber.Ctx) error {
	var req domain.SignInRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid request body")
	}

	resp, err := h.authService.SignIn(c.UserContext(), req)
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(resp)
}

type updateRoleRequest struct {
	Role string `json:"role"`
}

// UpdateRole handles POST /v1/admin/users/:id/role
func (h *AuthHandler) UpdateRole(c *fiber.Ctx) error {
	var req updateRoleRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid request body")
	}

	role, err := domain.ParseRole(req.Role)
	if err != nil {
		return respondError(c, err)
	}

	user, err := h.authService.Promote(c.UserContext(), c.Params("id"), role)
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    user,
	})
}

// Me handles GET /v1/me
func (h *AuthHandler) Me(c *fiber.Ctx) error {
	actor, ok := actorFrom(c)
	if !ok {
		return unauthenticated(c)
	}

	user, err := h.authService.GetUser(c.UserContext(), actor.UserID)
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    user,
	})
}
