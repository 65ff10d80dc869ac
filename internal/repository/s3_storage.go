package repository

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
	appConfig "github.com/mansoorceksport/floorplan/internal/config"
	"github.com/mansoorceksport/floorplan/internal/domain"
)

// S3Storage implements domain.BlobStorage on an S3-compatible store (SeaweedFS, MinIO)
type S3Storage struct {
	client *s3.Client
	bucket string
}

// NewS3Storage creates a new S3 blob storage and ensures the bucket exists
func NewS3Storage(ctx context.Context, cfg appConfig.S3Config) (*S3Storage, error) {
	accessKey, secretKey := cfg.AccessKey, cfg.SecretKey
	if accessKey == "" {
		// SeaweedFS without IAM still expects signed requests
		accessKey, secretKey = "any", "any"
	}

	awsCfg, err := config.LoadDefaultConfig(ctx,
		config.WithRegion(cfg.Region),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(accessKey, secretKey, "")),
	)
	if err != nil {
		return nil, fmt.Errorf("unable to load SDK config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		o.UsePathStyle = true // Required for most S3-compatible stores
	})

	storage := &S3Storage{
		client: client,
		bucket: cfg.Bucket,
	}

	if err := storage.ensureBucket(ctx); err != nil {
		return nil, err
	}

	return storage, nil
}

// Put uploads body as a single object. PutObject is atomic, a failed call leaves nothing behind.
func (s *S3Storage) Put(ctx context.Context, key string, body io.Reader, contentType string) (*domain.BlobObject, error) {
	// Buffer so the SDK can sign a seekable payload
	var buf bytes.Buffer
	hasher := sha256.New()
	if _, err := io.Copy(&buf, io.TeeReader(body, hasher)); err != nil {
		return nil, &domain.StorageIOError{Op: "put", Path: key, Err: err}
	}
	checksum := hex.EncodeToString(hasher.Sum(nil))
	size := int64(buf.Len())

	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(buf.Bytes()),
		ContentLength: aws.Int64(size),
		ContentType:   aws.String(contentType),
		Metadata:      map[string]string{"sha256": checksum},
	})
	if err != nil {
		return nil, &domain.StorageIOError{Op: "put", Path: key, Err: err}
	}

	return &domain.BlobObject{
		Path:     key,
		Size:     size,
		Checksum: checksum,
	}, nil
}

// Open streams an object. The caller must close the reader.
func (s *S3Storage) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		if isMissingObject(err) {
			return nil, fmt.Errorf("%w: blob %s", domain.ErrNotFound, key)
		}
		return nil, &domain.StorageIOError{Op: "open", Path: key, Err: err}
	}
	return out.Body, nil
}

// Delete removes an object. S3 treats missing keys as success.
func (s *S3Storage) Delete(ctx context.Context, key string) error {
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return &domain.StorageIOError{Op: "delete", Path: key, Err: err}
	}
	return nil
}

// ensureBucket checks if bucket exists, creating it if necessary
func (s *S3Storage) ensureBucket(ctx context.Context) error {
	_, err := s.client.HeadBucket(ctx, &s3.HeadBucketInput{
		Bucket: aws.String(s.bucket),
	})
	if err == nil {
		return nil
	}

	_, err = s.client.CreateBucket(ctx, &s3.CreateBucketInput{
		Bucket: aws.String(s.bucket),
	})
	if err != nil {
		var owned *types.BucketAlreadyOwnedByYou
		if errors.As(err, &owned) {
			return nil
		}
		return fmt.Errorf("failed to create bucket %s: %w", s.bucket, err)
	}
	return nil
}

// isMissingObject also matches untyped codes, some S3-compatible stores
// return a bare NoSuchKey/NotFound that the SDK cannot map to types.NoSuchKey.
func isMissingObject(err error) bool {
	var noKey *types.NoSuchKey
	if errors.As(err, &noKey) {
		return true
	}
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "NoSuchKey", "NotFound":
			return true
		}
	}
	return false
}
