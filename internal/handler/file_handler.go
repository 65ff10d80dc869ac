package handler

import (
	"fmt"
	"mime"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/mansoorceksport/floorplan/internal/domain"
	"github.com/mansoorceksport/floorplan/internal/service"
	"github.com/mansoorceksport/floorplan/internal/telemetry"
)

// FileHandler handles HTTP requests for file operations
type FileHandler struct {
	fileService *service.FileService
	maxUploadMB int64
}

// NewFileHandler creates a new file handler
func NewFileHandler(fileService *service.FileService, maxUploadMB int64) *FileHandler {
	return &FileHandler{
		fileService: fileService,
		maxUploadMB: maxUploadMB,
	}
}

// Upload handles POST /v1/files?strategy=copy|image|archive
func (h *FileHandler) Upload(c *fiber.Ctx) error {
	actor, ok := actorFrom(c)
	if !ok {
		return unauthenticated(c)
	}

	strategy := c.Query("strategy", service.CopyStrategyName)
	telemetry.SetSpanAttribute(c, "file.strategy", strategy)

	fileHeader, err := c.FormFile("file")
	if err != nil {
		return badRequest(c, "missing 'file' field in form data")
	}

	maxBytes := h.maxUploadMB * 1024 * 1024
	if maxBytes > 0 && fileHeader.Size > maxBytes {
		return badRequest(c, fmt.Sprintf("file size exceeds maximum of %dMB", h.maxUploadMB))
	}

	fileHandle, err := fileHeader.Open()
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"success": false,
			"error":   "failed to open uploaded file",
		})
	}
	defer fileHandle.Close()

	record, err := h.fileService.Upload(c.UserContext(), actor, service.UploadRequest{
		Strategy: strategy,
		Payload: domain.UploadPayload{
			Body:        fileHandle,
			Filename:    fileHeader.Filename,
			ContentType: fileHeader.Header.Get(fiber.HeaderContentType),
		},
	})
	if err != nil {
		return respondError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success": true,
		"data":    record,
	})
}

// List handles GET /v1/files
func (h *FileHandler) List(c *fiber.Ctx) error {
	actor, ok := actorFrom(c)
	if !ok {
		return unauthenticated(c)
	}

	limit, _ := strconv.ParseInt(c.Query("limit", "0"), 10, 64)
	records, err := h.fileService.List(c.UserContext(), actor, domain.FileFilter{
		UploadedBy: c.Query("uploaded_by"),
		Strategy:   c.Query("strategy"),
		Limit:      limit,
	})
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    records,
	})
}

// Get handles GET /v1/files/:id
func (h *FileHandler) Get(c *fiber.Ctx) error {
	actor, ok := actorFrom(c)
	if !ok {
		return unauthenticated(c)
	}

	record, err := h.fileService.Get(c.UserContext(), actor, c.Params("id"))
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    record,
	})
}

// Content handles GET /v1/files/:id/content
func (h *FileHandler) Content(c *fiber.Ctx) error {
	actor, ok := actorFrom(c)
	if !ok {
		return unauthenticated(c)
	}

	record, rc, err := h.fileService.Open(c.UserContext(), actor, c.Params("id"))
	if err != nil {
		return respondError(c, err)
	}

	c.Set(fiber.HeaderContentType, record.ContentType)
	c.Set(fiber.HeaderContentDisposition, mime.FormatMediaType("attachment", map[string]string{
		"filename": record.OriginalName,
	}))
	// fasthttp closes rc once the body has been written
	return c.SendStream(rc, int(record.Size))
}

// Update handles PATCH /v1/files/:id
func (h *FileHandler) Update(c *fiber.Ctx) error {
	actor, ok := actorFrom(c)
	if !ok {
		return unauthenticated(c)
	}

	var patch domain.FileRecordPatch
	if err := c.BodyParser(&patch); err != nil {
		return badRequest(c, "invalid request body: "+err.Error())
	}
	if patch.ContentType != nil && *patch.ContentType == "" {
		return badRequest(c, "content_type cannot be empty")
	}

	record, err := h.fileService.UpdateMetadata(c.UserContext(), actor, c.Params("id"), patch)
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    record,
	})
}

// Delete handles DELETE /v1/files/:id?purge=true
func (h *FileHandler) Delete(c *fiber.Ctx) error {
	actor, ok := actorFrom(c)
	if !ok {
		return unauthenticated(c)
	}

	if err := h.fileService.Delete(c.UserContext(), actor, c.Params("id"), c.QueryBool("purge")); err != nil {
		return respondError(c, err)
	}

	return c.JSON(fiber.Map{
		"success": true,
		"message": "file deleted successfully",
	})
}

// Strategies handles GET /v1/files/strategies
func (h *FileHandler) Strategies(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"success": true,
		"data":    h.fileService.Strategies(),
	})
}
