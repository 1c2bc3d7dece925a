// Package storage hosts event images outside the database.
package storage

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"festregistration/internal/domain"
)

// S3Config configures the S3 (or S3-compatible) image bucket.
type S3Config struct {
	Bucket    string
	Region    string
	Endpoint  string // set for MinIO and other S3-compatible stores
	AccessKey string
	SecretKey string
	// PublicBaseURL overrides the URL prefix returned for uploaded objects.
	PublicBaseURL string
}

type s3API interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

type s3Store struct {
	client  s3API
	bucket  string
	baseURL string
}

// NewS3Store returns an ImageStore writing public objects to cfg.Bucket.
func NewS3Store(ctx context.Context, cfg S3Config) (domain.ImageStore, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("S3 bucket is required")
	}
	if cfg.Region == "" {
		return nil, fmt.Errorf("S3 region is required")
	}
	opts := []func(*config.LoadOptions) error{config.WithRegion(cfg.Region)}
	if cfg.AccessKey != "" && cfg.SecretKey != "" {
		opts = append(opts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		))
	}
	awsCfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})
	return newS3Store(client, cfg), nil
}

func newS3Store(client s3API, cfg S3Config) *s3Store {
	return &s3Store{client: client, bucket: cfg.Bucket, baseURL: objectBaseURL(cfg)}
}

func objectBaseURL(cfg S3Config) string {
	switch {
	case cfg.PublicBaseURL != "":
		return strings.TrimRight(cfg.PublicBaseURL, "/")
	case cfg.Endpoint != "":
		return strings.TrimRight(cfg.Endpoint, "/") + "/" + cfg.Bucket
	default:
		return fmt.Sprintf("https://%s.s3.%s.amazonaws.com", cfg.Bucket, cfg.Region)
	}
}

func (s *s3Store) Upload(ctx context.Context, key string, body io.Reader, contentType string) (string, error) {
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        body,
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return "", domain.WrapError(domain.KindServiceUnavailable, fmt.Errorf("put object %s: %w", key, err), "image storage is unavailable")
	}
	return s.baseURL + "/" + key, nil
}

func (s *s3Store) Delete(ctx context.Context, key string) error {
	if key == "" {
		return nil
	}
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("delete object %s: %w", key, err)
	}
	return nil
}

type noopStore struct {
	logger *slog.Logger
}

// NewNoopStore returns an ImageStore that keeps nothing. Uploads return a
// placeholder URL so local setups work without a bucket.
func NewNoopStore(logger *slog.Logger) domain.ImageStore {
	return &noopStore{logger: logger}
}

func (n *noopStore) Upload(ctx context.Context, key string, body io.Reader, contentType string) (string, error) {
	written, err := io.Copy(io.Discard, body)
	if err != nil {
		return "", fmt.Errorf("read image: %w", err)
	}
	n.logger.InfoContext(ctx, "image would be stored (noop)", "key", key, "bytes", written, "content_type", contentType)
	return "/images/" + key, nil
}

func (n *noopStore) Delete(ctx context.Context, key string) error {
	n.logger.InfoContext(ctx, "image would be deleted (noop)", "key", key)
	return nil
}
