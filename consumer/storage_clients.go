package consumer

import (
	"bytes"
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"cloud.google.com/go/storage"
	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// StorageClient abstracts where columnar output files land.
type StorageClient interface {
	Write(ctx context.Context, key string, data []byte) error
	Close() error
}

func newStorageClient(storageType, localPath, bucket, region string) (StorageClient, error) {
	switch storageType {
	case "FS":
		return NewLocalFSClient(localPath)
	case "GCS":
		return NewGCSClient(bucket)
	case "S3":
		return NewS3Client(bucket, region)
	default:
		return nil, fmt.Errorf("unsupported storage type: %s", storageType)
	}
}

// LocalFSClient writes files under a base directory with atomic renames.
type LocalFSClient struct {
	basePath string
}

func NewLocalFSClient(basePath string) (*LocalFSClient, error) {
	if basePath == "~" || (len(basePath) > 1 && basePath[:2] == "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get home directory: %w", err)
		}
		basePath = filepath.Join(home, strings.TrimPrefix(basePath, "~/"))
	}
	absPath, err := filepath.Abs(basePath)
	if err != nil {
		return nil, fmt.Errorf("failed to get absolute path: %w", err)
	}
	if err := os.MkdirAll(absPath, 0755); err != nil {
		return nil, fmt.Errorf("failed to create base directory: %w", err)
	}
	return &LocalFSClient{basePath: absPath}, nil
}

func (c *LocalFSClient) Write(ctx context.Context, key string, data []byte) error {
	cleanKey := filepath.Clean(key)
	if filepath.IsAbs(cleanKey) {
		return fmt.Errorf("absolute paths not allowed in key: %s", key)
	}
	fullPath := filepath.Join(c.basePath, cleanKey)
	rel, err := filepath.Rel(c.basePath, fullPath)
	if err != nil || strings.HasPrefix(rel, "..") {
		return fmt.Errorf("invalid key path: %s", key)
	}

	if err := os.MkdirAll(filepath.Dir(fullPath), 0755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", filepath.Dir(fullPath), err)
	}

	tmpFile := fmt.Sprintf("%s.tmp.%d", fullPath, time.Now().UnixNano())
	if err := os.WriteFile(tmpFile, data, 0644); err != nil {
		return fmt.Errorf("failed to write temporary file: %w", err)
	}
	if err := os.Rename(tmpFile, fullPath); err != nil {
		os.Remove(tmpFile)
		return fmt.Errorf("failed to rename file: %w", err)
	}
	return nil
}

func (c *LocalFSClient) Close() error {
	return nil
}

// GCSClient writes objects to a Google Cloud Storage bucket.
type GCSClient struct {
	client *storage.Client
	bucket string
}

func NewGCSClient(bucket string) (*GCSClient, error) {
	client, err := storage.NewClient(context.Background())
	if err != nil {
		return nil, fmt.Errorf("failed to create GCS client: %w", err)
	}
	return &GCSClient{client: client, bucket: bucket}, nil
}

func (c *GCSClient) Write(ctx context.Context, key string, data []byte) error {
	w := c.client.Bucket(c.bucket).Object(key).NewWriter(ctx)
	w.ContentType = "application/octet-stream"
	if _, err := w.Write(data); err != nil {
		w.Close()
		return fmt.Errorf("failed to write GCS object %s: %w", key, err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("failed to finalize GCS object %s: %w", key, err)
	}
	return nil
}

func (c *GCSClient) Close() error {
	return c.client.Close()
}

// S3Client writes objects to an S3 bucket.
type S3Client struct {
	uploader *manager.Uploader
	bucket   string
}

func NewS3Client(bucket, region string) (*S3Client, error) {
	cfg, err := awsconfig.LoadDefaultConfig(context.Background(), awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}
	client := s3.NewFromConfig(cfg)
	return &S3Client{uploader: manager.NewUploader(client), bucket: bucket}, nil
}

func (c *S3Client) Write(ctx context.Context, key string, data []byte) error {
	_, err := c.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket: aws.String(c.bucket),
		Key:    aws.String(key),
		Body:   bytes.NewReader(data),
	})
	if err != nil {
		return fmt.Errorf("failed to upload s3://%s/%s: %w", c.bucket, key, err)
	}
	return nil
}

func (c *S3Client) Close() error {
	return nil
}

// RetryableStorageClient retries transient object-store write failures with
// a fixed backoff. Data validation failures never reach this layer.
type RetryableStorageClient struct {
	inner      StorageClient
	maxRetries int
}

func NewRetryableStorageClient(inner StorageClient, maxRetries int) *RetryableStorageClient {
	return &RetryableStorageClient{inner: inner, maxRetries: maxRetries}
}

func (c *RetryableStorageClient) Write(ctx context.Context, key string, data []byte) error {
	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			log.Printf("StorageClient: retrying write of %s (attempt %d/%d)", key, attempt, c.maxRetries)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(time.Duration(attempt) * time.Second):
			}
		}
		if lastErr = c.inner.Write(ctx, key, data); lastErr == nil {
			return nil
		}
	}
	return fmt.Errorf("write of %s failed after %d retries: %w", key, c.maxRetries, lastErr)
}

func (c *RetryableStorageClient) Close() error {
	return c.inner.Close()
}
