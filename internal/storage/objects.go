package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"path"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

type ObjectConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	Region    string
	UseSSL    bool
}

// UploadResult contains information about an uploaded object
type UploadResult struct {
	Bucket      string
	Key         string
	Size        int64
	ContentType string
	ETag        string
}

// URI is the s3:// location of the object.
func (u UploadResult) URI() string {
	return fmt.Sprintf("s3://%s/%s", u.Bucket, u.Key)
}

// ObjectSink stores result artifacts in an S3-compatible bucket.
type ObjectSink struct {
	client *minio.Client
	bucket string
	region string
	logger *slog.Logger
}

// NewObjectSink creates a MinIO client for cfg. It does not contact the server.
func NewObjectSink(cfg ObjectConfig, logger *slog.Logger) (*ObjectSink, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Endpoint == "" || cfg.Bucket == "" {
		return nil, fmt.Errorf("object store endpoint and bucket are required")
	}
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create S3 client: %w", err)
	}
	return &ObjectSink{client: client, bucket: cfg.Bucket, region: cfg.Region, logger: logger}, nil
}

// EnsureBucket creates the bucket if it doesn't exist
func (s *ObjectSink) EnsureBucket(ctx context.Context) error {
	exists, err := s.client.BucketExists(ctx, s.bucket)
	if err != nil {
		return fmt.Errorf("failed to check bucket existence: %w", err)
	}
	if !exists {
		if err := s.client.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{Region: s.region}); err != nil {
			return fmt.Errorf("failed to create bucket: %w", err)
		}
		s.logger.Info("created bucket", "bucket", s.bucket)
	}
	return nil
}

// Put uploads data under key.
func (s *ObjectSink) Put(ctx context.Context, key string, data []byte, contentType string) (UploadResult, error) {
	return s.Upload(ctx, key, bytes.NewReader(data), int64(len(data)), contentType)
}

// Upload streams reader to key.
func (s *ObjectSink) Upload(ctx context.Context, key string, reader io.Reader, size int64, contentType string) (UploadResult, error) {
	info, err := s.client.PutObject(ctx, s.bucket, key, reader, size, minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return UploadResult{}, fmt.Errorf("failed to upload %s: %w", key, err)
	}
	s.logger.Debug("object uploaded", "bucket", info.Bucket, "key", info.Key, "size", info.Size)
	return UploadResult{
		Bucket:      info.Bucket,
		Key:         info.Key,
		Size:        info.Size,
		ContentType: contentType,
		ETag:        info.ETag,
	}, nil
}

// Get downloads the object at key.
func (s *ObjectSink) Get(ctx context.Context, key string) ([]byte, error) {
	obj, err := s.client.GetObject(ctx, s.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to get %s: %w", key, err)
	}
	defer obj.Close()
	return io.ReadAll(obj)
}

// ResultKey joins key segments, dropping empty ones and stray slashes.
func ResultKey(parts ...string) string {
	clean := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.Trim(p, "/ "); p != "" {
			clean = append(clean, p)
		}
	}
	return path.Join(clean...)
}
