package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"sort"
	"strings"
	"time"

	"github.com/mansoorceksport/floorplan/internal/domain"
	"github.com/oklog/ulid/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const processingTracerName = "floorplan/processing"

// Purger is implemented by strategies whose resolved path owns more than one blob
type Purger interface {
	Purge(ctx context.Context, storage domain.BlobStorage, resolvedPath string) error
}

// StrategyRegistry resolves strategies by name
type StrategyRegistry struct {
	strategies map[string]domain.FileProcessingStrategy
}

// NewStrategyRegistry registers the given strategies. Later duplicates win.
func NewStrategyRegistry(strategies ...domain.FileProcessingStrategy) *StrategyRegistry {
	r := &StrategyRegistry{strategies: make(map[string]domain.FileProcessingStrategy, len(strategies))}
	for _, s := range strategies {
		r.strategies[s.Name()] = s
	}
	return r
}

// Get returns the strategy registered under name
func (r *StrategyRegistry) Get(name string) (domain.FileProcessingStrategy, error) {
	s, ok := r.strategies[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", domain.ErrUnknownStrategy, name)
	}
	return s, nil
}

// Names lists registered strategy names in sorted order
func (r *StrategyRegistry) Names() []string {
	names := make([]string, 0, len(r.strategies))
	for name := range r.strategies {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// newBlobKey builds a fresh key: <strategy>/<yyyy>/<mm>/<dd>/<ulid><ext>
func newBlobKey(strategy, ext string) string {
	return path.Join(strategy, time.Now().UTC().Format("2006/01/02"), ulid.Make().String()+ext)
}

// safeExt keeps a short lower-case alphanumeric extension of filename
func safeExt(filename string) string {
	ext := strings.ToLower(path.Ext(strings.ReplaceAll(filename, "\\", "/")))
	if len(ext) < 2 || len(ext) > 10 {
		return ""
	}
	for _, c := range ext[1:] {
		if (c < 'a' || c > 'z') && (c < '0' || c > '9') {
			return ""
		}
	}
	return ext
}

// payloadReadError marks failures that came from reading the upload itself
type payloadReadError struct {
	err error
}

func (e *payloadReadError) Error() string { return "read payload: " + e.err.Error() }
func (e *payloadReadError) Unwrap() error { return e.err }

var errPayloadTooLarge = errors.New("payload exceeds size limit")

// payloadReader tags non-EOF read errors so they are not mistaken for storage
// failures, and fails with errPayloadTooLarge once more than max bytes are read.
type payloadReader struct {
	r    io.Reader
	max  int64 // 0 means unlimited
	read int64
}

func newPayloadReader(r io.Reader, max int64) *payloadReader {
	return &payloadReader{r: r, max: max}
}

func (p *payloadReader) Read(b []byte) (int, error) {
	n, err := p.r.Read(b)
	p.read += int64(n)
	if p.max > 0 && p.read > p.max {
		return n, &payloadReadError{err: errPayloadTooLarge}
	}
	if err != nil && !errors.Is(err, io.EOF) {
		var tagged *payloadReadError
		if !errors.As(err, &tagged) {
			err = &payloadReadError{err: err}
		}
	}
	return n, err
}

// classifyPutError turns a BlobStorage.Put failure into a ProcessingError
func classifyPutError(strategy string, err error) error {
	var readErr *payloadReadError
	switch {
	case errors.As(err, &readErr):
		if errors.Is(readErr.err, errPayloadTooLarge) {
			return domain.NewProcessingError(strategy, "payload too large", readErr.err)
		}
		return domain.NewProcessingError(strategy, "payload unreadable", readErr.err)
	case errors.Is(err, context.Canceled):
		return domain.NewProcessingError(strategy, "processing cancelled", context.Canceled)
	case errors.Is(err, context.DeadlineExceeded):
		return domain.NewProcessingError(strategy, "processing cancelled", context.DeadlineExceeded)
	default:
		return domain.NewProcessingError(strategy, "storage write failed", err)
	}
}

// startProcessSpan opens a span around a strategy call
func startProcessSpan(ctx context.Context, strategy string, payload domain.UploadPayload) (context.Context, trace.Span) {
	return otel.Tracer(processingTracerName).Start(ctx, "processing."+strategy,
		trace.WithAttributes(
			attribute.String("upload.filename", payload.Filename),
			attribute.String("upload.content_type", payload.ContentType),
		),
	)
}

// endProcessSpan records the outcome and ends the span
func endProcessSpan(span trace.Span, result *domain.ProcessResult, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else if result != nil {
		span.SetAttributes(
			attribute.String("upload.path", result.Path),
			attribute.Int64("upload.size", result.Size),
		)
	}
	span.End()
}
