package render

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/ppiankov/wikigap/internal/model"
)

// ExportFilename is the dated download name of an export artifact
func ExportFilename(now time.Time) string {
	return fmt.Sprintf("gap-detector-export-%s.json", now.UTC().Format("2006-01-02"))
}

// EncodeExport renders an export artifact as indented JSON
func EncodeExport(a model.ExportArtifact) ([]byte, error) {
	data, err := json.MarshalIndent(a, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal export: %w", err)
	}
	return append(data, '\n'), nil
}

// WriteExport writes an export artifact to path
func WriteExport(a model.ExportArtifact, path string) error {
	data, err := EncodeExport(a)
	if err != nil {
		return err
	}
	return writeFile(path, data)
}

// Uploader stores an export artifact remotely and returns its location
type Uploader interface {
	Upload(ctx context.Context, name string, data []byte) (string, error)
}

// S3Uploader puts export artifacts into an S3-compatible bucket
type S3Uploader struct {
	client *minio.Client
	bucket string
	region string
}

// NewS3Uploader validates cfg and creates the bucket client
func NewS3Uploader(cfg model.ExportConfig) (*S3Uploader, error) {
	endpoint := strings.TrimSpace(cfg.S3Endpoint)
	if endpoint == "" {
		return nil, fmt.Errorf("s3 endpoint is required")
	}
	access := strings.TrimSpace(cfg.S3AccessKey)
	secret := strings.TrimSpace(cfg.S3SecretKey)
	if access == "" || secret == "" {
		return nil, fmt.Errorf("s3 access key and secret key are required")
	}
	bucket := strings.TrimSpace(cfg.S3Bucket)
	if bucket == "" {
		return nil, fmt.Errorf("s3 bucket is required")
	}
	region := strings.TrimSpace(cfg.S3Region)
	if region == "" {
		region = "us-east-1"
	}

	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(access, secret, ""),
		Secure: cfg.S3UseSSL,
		Region: region,
	})
	if err != nil {
		return nil, fmt.Errorf("init s3 client: %w", err)
	}
	return &S3Uploader{client: client, bucket: bucket, region: region}, nil
}

// Upload puts data under exports/name, creating the bucket when absent
func (u *S3Uploader) Upload(ctx context.Context, name string, data []byte) (string, error) {
	exists, err := u.client.BucketExists(ctx, u.bucket)
	if err != nil {
		return "", fmt.Errorf("check bucket: %w", err)
	}
	if !exists {
		if err := u.client.MakeBucket(ctx, u.bucket, minio.MakeBucketOptions{Region: u.region}); err != nil {
			return "", fmt.Errorf("create bucket: %w", err)
		}
	}

	key := "exports/" + strings.TrimLeft(name, "/")
	_, err = u.client.PutObject(ctx, u.bucket, key, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType: "application/json",
	})
	if err != nil {
		return "", fmt.Errorf("put object: %w", err)
	}
	return fmt.Sprintf("s3://%s/%s", u.bucket, key), nil
}
