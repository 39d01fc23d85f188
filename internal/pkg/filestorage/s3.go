package filestorage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"

	"github.com/yigit/enrollplan/internal/pkg/apperrors"
	"github.com/yigit/enrollplan/internal/pkg/logger"
)

// S3Storage keeps documents in an S3 bucket.
type S3Storage struct {
	client   *s3.Client
	bucket   string
	prefix   string // Optional key prefix (e.g., "transcripts/")
	maxBytes int64
}

// S3Config holds configuration for S3Storage.
type S3Config struct {
	Bucket   string
	Region   string
	Endpoint string // Optional custom endpoint (for MinIO, LocalStack, etc.)
	Prefix   string
	MaxBytes int64 // Upload size limit; documents are buffered before upload
}

// NewS3Storage creates a new S3-backed document store.
func NewS3Storage(ctx context.Context, cfg S3Config) (*S3Storage, error) {
	if cfg.Bucket == "" {
		return nil, errors.New("s3 bucket is required")
	}
	awsCfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(cfg.Region))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true // Required for MinIO/LocalStack
		}
	})

	maxBytes := cfg.MaxBytes
	if maxBytes <= 0 {
		maxBytes = 10 << 20
	}
	return &S3Storage{client: client, bucket: cfg.Bucket, prefix: cfg.Prefix, maxBytes: maxBytes}, nil
}

// Save implements DocumentStore.
func (s *S3Storage) Save(ctx context.Context, name string, r io.Reader) (string, error) {
	data, err := io.ReadAll(io.LimitReader(r, s.maxBytes+1))
	if err != nil {
		return "", fmt.Errorf("failed to read upload: %w", err)
	}
	if int64(len(data)) > s.maxBytes {
		return "", apperrors.NewBadRequestError(fmt.Sprintf("document exceeds %d bytes", s.maxBytes))
	}

	ref := path.Join(s.prefix, uuid.New().String()+strings.ToLower(path.Ext(name)))
	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(ref),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(mimetype.Detect(data).String()),
	})
	if err != nil {
		return "", fmt.Errorf("s3 put failed: %w", err)
	}
	logger.Info().Str("filename", name).Str("ref", ref).Str("bucket", s.bucket).Msg("Document saved successfully")
	return ref, nil
}

// Open implements DocumentStore.
func (s *S3Storage) Open(ctx context.Context, ref string) (io.ReadCloser, error) {
	result, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(ref),
	})
	if err != nil {
		var nsk *types.NoSuchKey
		if errors.As(err, &nsk) {
			return nil, apperrors.ErrDocumentNotFound
		}
		return nil, fmt.Errorf("s3 get failed for %s: %w", ref, err)
	}
	return result.Body, nil
}

// Delete implements DocumentStore.
func (s *S3Storage) Delete(ctx context.Context, ref string) error {
	if ref == "" {
		return nil
	}
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(ref),
	})
	if err != nil {
		return fmt.Errorf("s3 delete failed for %s: %w", ref, err)
	}
	return nil
}
