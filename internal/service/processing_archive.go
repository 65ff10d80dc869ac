package service

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"path"
	"strings"
	"time"

	"github.com/mansoorceksport/floorplan/internal/domain"
	"github.com/oklog/ulid/v2"
)

const (
	ArchiveStrategyName = "archive"

	defaultArchiveMaxEntries = 500
	defaultArchiveMaxBytes   = 512 << 20
	manifestName             = "manifest.json"
)

// ArchiveManifest is stored at the resolved path of an extracted archive
type ArchiveManifest struct {
	Source    string         `json:"source"`
	Extracted time.Time      `json:"extracted_at"`
	Entries   []ArchiveEntry `json:"entries"`
}

// ArchiveEntry describes one extracted file
type ArchiveEntry struct {
	Name        string `json:"name"`
	Path        string `json:"path"`
	ContentType string `json:"content_type"`
	Size        int64  `json:"size"`
	Checksum    string `json:"checksum"`
}

// ArchiveStrategy extracts zip uploads into one blob per entry plus a manifest.
// The resolved path is the manifest.
type ArchiveStrategy struct {
	storage    domain.BlobStorage
	maxEntries int
	maxBytes   int64
}

// NewArchiveStrategy creates an archive-extraction strategy. Zero limits use defaults.
func NewArchiveStrategy(storage domain.BlobStorage, maxEntries int, maxBytes int64) *ArchiveStrategy {
	if maxEntries <= 0 {
		maxEntries = defaultArchiveMaxEntries
	}
	if maxBytes <= 0 {
		maxBytes = defaultArchiveMaxBytes
	}
	return &ArchiveStrategy{storage: storage, maxEntries: maxEntries, maxBytes: maxBytes}
}

func (s *ArchiveStrategy) Name() string { return ArchiveStrategyName }

func (s *ArchiveStrategy) Process(ctx context.Context, payload domain.UploadPayload) (result *domain.ProcessResult, err error) {
	ctx, span := startProcessSpan(ctx, ArchiveStrategyName, payload)
	defer func() { endProcessSpan(span, result, err) }()

	if !isZip(payload) {
		return nil, domain.NewProcessingError(ArchiveStrategyName, fmt.Sprintf("content type %q is not a zip archive", payload.ContentType), nil)
	}
	if payload.Body == nil {
		return nil, domain.NewProcessingError(ArchiveStrategyName, "empty payload", nil)
	}

	raw, err := io.ReadAll(newPayloadReader(payload.Body, s.maxBytes))
	if err != nil {
		return nil, classifyPutError(ArchiveStrategyName, err)
	}

	zr, err := zip.NewReader(bytes.NewReader(raw), int64(len(raw)))
	if errors.Is(err, zip.ErrInsecurePath) {
		// reader is usable, checkEntries reports the offending name
		err = nil
	}
	if err != nil {
		return nil, domain.NewProcessingError(ArchiveStrategyName, "payload is not a valid zip archive", err)
	}

	files, err := s.checkEntries(zr)
	if err != nil {
		return nil, err
	}

	prefix := path.Join(ArchiveStrategyName, time.Now().UTC().Format("2006/01/02"), ulid.Make().String())
	manifest := ArchiveManifest{
		Source:    payload.Filename,
		Extracted: time.Now().UTC(),
		Entries:   make([]ArchiveEntry, 0, len(files)),
	}

	// Remove everything written so far when a later step fails
	defer func() {
		if err != nil {
			s.removeEntries(manifest.Entries)
		}
	}()

	var total int64
	for _, f := range files {
		entry, werr := s.extract(ctx, prefix, f, s.maxBytes-total)
		if werr != nil {
			return nil, werr
		}
		total += entry.Size
		manifest.Entries = append(manifest.Entries, *entry)
	}

	data, err := json.MarshalIndent(manifest, "", "  ")
	if err != nil {
		return nil, domain.NewProcessingError(ArchiveStrategyName, "failed to encode manifest", err)
	}
	obj, err := s.storage.Put(ctx, path.Join(prefix, manifestName), bytes.NewReader(data), "application/json")
	if err != nil {
		return nil, classifyPutError(ArchiveStrategyName, err)
	}

	return &domain.ProcessResult{
		Path:        obj.Path,
		ContentType: "application/json",
		Size:        obj.Size,
		Checksum:    obj.Checksum,
	}, nil
}

// Purge deletes the extracted entries listed in the manifest and the manifest itself
func (s *ArchiveStrategy) Purge(ctx context.Context, storage domain.BlobStorage, manifestPath string) error {
	manifest, err := ReadArchiveManifest(ctx, storage, manifestPath)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return err
	}
	if manifest != nil {
		for _, entry := range manifest.Entries {
			if err := storage.Delete(ctx, entry.Path); err != nil {
				return err
			}
		}
	}
	return storage.Delete(ctx, manifestPath)
}

// ReadArchiveManifest loads and decodes a manifest written by ArchiveStrategy
func ReadArchiveManifest(ctx context.Context, storage domain.BlobStorage, manifestPath string) (*ArchiveManifest, error) {
	rc, err := storage.Open(ctx, manifestPath)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	var manifest ArchiveManifest
	if err := json.NewDecoder(rc).Decode(&manifest); err != nil {
		return nil, fmt.Errorf("failed to decode manifest %s: %w", manifestPath, err)
	}
	return &manifest, nil
}

// checkEntries validates names and declared sizes before anything is written
func (s *ArchiveStrategy) checkEntries(zr *zip.Reader) ([]*zip.File, error) {
	files := make([]*zip.File, 0, len(zr.File))
	seen := make(map[string]struct{}, len(zr.File))
	var declared uint64
	for _, f := range zr.File {
		if f.FileInfo().IsDir() {
			continue
		}
		name, ok := cleanEntryName(f.Name)
		if !ok {
			return nil, domain.NewProcessingError(ArchiveStrategyName, fmt.Sprintf("unsafe entry name %q", f.Name), nil)
		}
		if _, dup := seen[name]; dup {
			return nil, domain.NewProcessingError(ArchiveStrategyName, fmt.Sprintf("duplicate entry %q", name), nil)
		}
		seen[name] = struct{}{}

		declared += f.UncompressedSize64
		if declared > uint64(s.maxBytes) {
			return nil, domain.NewProcessingError(ArchiveStrategyName, fmt.Sprintf("archive expands beyond %d bytes", s.maxBytes), nil)
		}
		files = append(files, f)
		if len(files) > s.maxEntries {
			return nil, domain.NewProcessingError(ArchiveStrategyName, fmt.Sprintf("archive has more than %d entries", s.maxEntries), nil)
		}
	}
	if len(files) == 0 {
		return nil, domain.NewProcessingError(ArchiveStrategyName, "archive contains no files", nil)
	}

	// "a" and "a/b" cannot both be files
	for _, f := range files {
		name, _ := cleanEntryName(f.Name)
		for dir := path.Dir(name); dir != "."; dir = path.Dir(dir) {
			if _, clash := seen[dir]; clash {
				return nil, domain.NewProcessingError(ArchiveStrategyName,
					fmt.Sprintf("entry %q conflicts with directory of %q", dir, name), nil)
			}
		}
	}
	return files, nil
}

// extract writes one entry, never reading more than budget bytes regardless of the header
func (s *ArchiveStrategy) extract(ctx context.Context, prefix string, f *zip.File, budget int64) (*ArchiveEntry, error) {
	name, _ := cleanEntryName(f.Name)
	if budget <= 0 {
		return nil, domain.NewProcessingError(ArchiveStrategyName, fmt.Sprintf("archive expands beyond %d bytes", s.maxBytes), nil)
	}

	rc, err := f.Open()
	if err != nil {
		return nil, domain.NewProcessingError(ArchiveStrategyName, "failed to open entry "+name, err)
	}
	defer rc.Close()

	contentType := mime.TypeByExtension(path.Ext(name))
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	obj, err := s.storage.Put(ctx, path.Join(prefix, "files", name), newPayloadReader(rc, budget), contentType)
	if err != nil {
		return nil, classifyPutError(ArchiveStrategyName, err)
	}

	return &ArchiveEntry{
		Name:        name,
		Path:        obj.Path,
		ContentType: contentType,
		Size:        obj.Size,
		Checksum:    obj.Checksum,
	}, nil
}

// removeEntries is best effort and runs detached from a possibly cancelled request
func (s *ArchiveStrategy) removeEntries(entries []ArchiveEntry) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	for _, entry := range entries {
		_ = s.storage.Delete(ctx, entry.Path)
	}
}

// cleanEntryName rejects absolute, backslash and parent-relative names
func cleanEntryName(name string) (string, bool) {
	if name == "" || strings.Contains(name, "\\") || strings.HasPrefix(name, "/") {
		return "", false
	}
	cleaned := path.Clean(name)
	if cleaned == "." || cleaned == ".." || strings.HasPrefix(cleaned, "../") {
		return "", false
	}
	return cleaned, true
}

func isZip(payload domain.UploadPayload) bool {
	switch normalizeContentType(payload.ContentType) {
	case "application/zip", "application/x-zip-compressed", "application/x-zip":
		return true
	case "", "application/octet-stream":
		return strings.EqualFold(path.Ext(payload.Filename), ".zip")
	}
	return false
}
