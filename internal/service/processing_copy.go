package service

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"strings"

	"github.com/mansoorceksport/floorplan/internal/domain"
)

const CopyStrategyName = "copy"

// CopyOptions limits what the copy strategy accepts
type CopyOptions struct {
	// AllowedTypes holds exact types or "type/*" wildcards; empty allows all
	AllowedTypes []string
	// MaxBytes of 0 disables the size check
	MaxBytes int64
}

// CopyStrategy stores the payload bytes unchanged
type CopyStrategy struct {
	storage domain.BlobStorage
	opts    CopyOptions
}

// NewCopyStrategy creates a direct-copy strategy
func NewCopyStrategy(storage domain.BlobStorage, opts CopyOptions) *CopyStrategy {
	return &CopyStrategy{storage: storage, opts: opts}
}

func (s *CopyStrategy) Name() string { return CopyStrategyName }

// Process sniffs the content type when none was declared and writes the bytes as-is
func (s *CopyStrategy) Process(ctx context.Context, payload domain.UploadPayload) (result *domain.ProcessResult, err error) {
	ctx, span := startProcessSpan(ctx, CopyStrategyName, payload)
	defer func() { endProcessSpan(span, result, err) }()

	if payload.Body == nil {
		return nil, domain.NewProcessingError(CopyStrategyName, "empty payload", nil)
	}

	body := newPayloadReader(payload.Body, s.opts.MaxBytes)

	// Read the signature so the type can be detected without consuming the stream
	head := make([]byte, 512)
	n, readErr := io.ReadFull(body, head)
	if readErr != nil && readErr != io.EOF && readErr != io.ErrUnexpectedEOF {
		return nil, classifyPutError(CopyStrategyName, readErr)
	}
	head = head[:n]

	contentType := normalizeContentType(payload.ContentType)
	if contentType == "" || contentType == "application/octet-stream" {
		contentType = normalizeContentType(http.DetectContentType(head))
	}
	if !s.allowed(contentType) {
		return nil, domain.NewProcessingError(CopyStrategyName, "content type "+contentType+" is not allowed", nil)
	}

	key := newBlobKey(CopyStrategyName, safeExt(payload.Filename))
	obj, err := s.storage.Put(ctx, key, io.MultiReader(bytes.NewReader(head), body), contentType)
	if err != nil {
		return nil, classifyPutError(CopyStrategyName, err)
	}

	return &domain.ProcessResult{
		Path:        obj.Path,
		ContentType: contentType,
		Size:        obj.Size,
		Checksum:    obj.Checksum,
	}, nil
}

func (s *CopyStrategy) allowed(contentType string) bool {
	if len(s.opts.AllowedTypes) == 0 {
		return true
	}
	for _, allowed := range s.opts.AllowedTypes {
		allowed = strings.ToLower(allowed)
		if allowed == contentType {
			return true
		}
		if prefix, ok := strings.CutSuffix(allowed, "/*"); ok && strings.HasPrefix(contentType, prefix+"/") {
			return true
		}
	}
	return false
}

// normalizeContentType drops parameters such as charset and lower-cases the type
func normalizeContentType(contentType string) string {
	mediaType, _, _ := strings.Cut(contentType, ";")
	return strings.ToLower(strings.TrimSpace(mediaType))
}
