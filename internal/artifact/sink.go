package artifact

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/koios/shotframe/internal/config"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"go.uber.org/zap"
)

// Sink stores downloaded artifacts
type Sink interface {
	Put(ctx context.Context, key, contentType string, body []byte) (string, error)
}

// LocalSink writes artifacts into a directory
type LocalSink struct {
	dir string
}

// NewLocalSink creates the directory if needed
func NewLocalSink(dir string) (*LocalSink, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create download directory %s: %w", dir, err)
	}
	return &LocalSink{dir: dir}, nil
}

// Put writes body to dir/key and returns the file path
func (s *LocalSink) Put(_ context.Context, key, _ string, body []byte) (string, error) {
	name := filepath.Base(key)
	if name == "." || name == string(filepath.Separator) || strings.HasPrefix(name, "..") {
		return "", fmt.Errorf("invalid artifact name %q", key)
	}

	path := filepath.Join(s.dir, name)
	if err := os.WriteFile(path, body, 0o644); err != nil {
		return "", fmt.Errorf("failed to write %s: %w", path, err)
	}
	return path, nil
}

// MinioSink uploads artifacts to an S3-compatible bucket
type MinioSink struct {
	client *minio.Client
	bucket string
	logger *zap.Logger
}

// NewMinioSink connects to the object store and makes sure the bucket exists
func NewMinioSink(ctx context.Context, cfg config.StorageConfig, logger *zap.Logger) (*MinioSink, error) {
	client, err := minio.New(cfg.MinioEndpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.MinioAccessKey, cfg.MinioSecretKey, ""),
		Secure: cfg.MinioUseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create object store client: %w", err)
	}

	exists, err := client.BucketExists(ctx, cfg.MinioBucket)
	if err != nil {
		return nil, fmt.Errorf("failed to check bucket %s: %w", cfg.MinioBucket, err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, cfg.MinioBucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("failed to create bucket %s: %w", cfg.MinioBucket, err)
		}
		logger.Info("Created artifact bucket", zap.String("bucket", cfg.MinioBucket))
	}

	return &MinioSink{client: client, bucket: cfg.MinioBucket, logger: logger}, nil
}

// Put uploads body under key and returns the object location
func (s *MinioSink) Put(ctx context.Context, key, contentType string, body []byte) (string, error) {
	info, err := s.client.PutObject(ctx, s.bucket, key, bytes.NewReader(body), int64(len(body)),
		minio.PutObjectOptions{ContentType: contentType})
	if err != nil {
		return "", fmt.Errorf("failed to upload %s: %w", key, err)
	}

	s.logger.Debug("Uploaded artifact",
		zap.String("bucket", info.Bucket),
		zap.String("key", info.Key),
		zap.Int64("size", info.Size))

	return fmt.Sprintf("s3://%s/%s", info.Bucket, info.Key), nil
}
