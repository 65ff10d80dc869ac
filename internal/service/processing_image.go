package service

import (
	"bytes"
	"context"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	"image/png"
	"io"
	"strings"

	"github.com/mansoorceksport/floorplan/internal/domain"
)

const (
	ImageStrategyName = "image"

	defaultImageMaxPixels = 50_000_000
	// upper bound on the encoded upload accepted for decoding
	maxImageUploadBytes = 64 << 20
)

// ImageStrategy decodes JPEG, PNG or GIF uploads and re-encodes them as PNG
type ImageStrategy struct {
	storage   domain.BlobStorage
	maxPixels int64
}

// NewImageStrategy creates an image-transcoding strategy. maxPixels <= 0 uses the default.
func NewImageStrategy(storage domain.BlobStorage, maxPixels int64) *ImageStrategy {
	if maxPixels <= 0 {
		maxPixels = defaultImageMaxPixels
	}
	return &ImageStrategy{storage: storage, maxPixels: maxPixels}
}

func (s *ImageStrategy) Name() string { return ImageStrategyName }

func (s *ImageStrategy) Process(ctx context.Context, payload domain.UploadPayload) (result *domain.ProcessResult, err error) {
	ctx, span := startProcessSpan(ctx, ImageStrategyName, payload)
	defer func() { endProcessSpan(span, result, err) }()

	contentType := normalizeContentType(payload.ContentType)
	if !strings.HasPrefix(contentType, "image/") {
		return nil, domain.NewProcessingError(ImageStrategyName, fmt.Sprintf("content type %q is not an image", payload.ContentType), nil)
	}
	if payload.Body == nil {
		return nil, domain.NewProcessingError(ImageStrategyName, "empty payload", nil)
	}

	raw, err := io.ReadAll(newPayloadReader(payload.Body, maxImageUploadBytes))
	if err != nil {
		return nil, classifyPutError(ImageStrategyName, err)
	}

	cfg, format, err := image.DecodeConfig(bytes.NewReader(raw))
	if err != nil {
		return nil, domain.NewProcessingError(ImageStrategyName, "payload is not a decodable image", err)
	}
	if pixels := int64(cfg.Width) * int64(cfg.Height); pixels > s.maxPixels {
		return nil, domain.NewProcessingError(ImageStrategyName,
			fmt.Sprintf("image %dx%d exceeds %d pixels", cfg.Width, cfg.Height, s.maxPixels), nil)
	}

	img, _, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		return nil, domain.NewProcessingError(ImageStrategyName, "failed to decode "+format+" image", err)
	}

	if err := ctx.Err(); err != nil {
		return nil, domain.NewProcessingError(ImageStrategyName, "processing cancelled", err)
	}

	var encoded bytes.Buffer
	if err := png.Encode(&encoded, img); err != nil {
		return nil, domain.NewProcessingError(ImageStrategyName, "failed to encode png", err)
	}

	obj, err := s.storage.Put(ctx, newBlobKey(ImageStrategyName, ".png"), &encoded, "image/png")
	if err != nil {
		return nil, classifyPutError(ImageStrategyName, err)
	}

	return &domain.ProcessResult{
		Path:        obj.Path,
		ContentType: "image/png",
		Size:        obj.Size,
		Checksum:    obj.Checksum,
	}, nil
}
