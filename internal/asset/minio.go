package asset

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/erazemk/najdeno/internal/config"
	"github.com/erazemk/najdeno/internal/model"
)

// MinIOBackend keeps assets as objects in an S3-compatible bucket.
type MinIOBackend struct {
	client *minio.Client
	bucket string
}

// NewMinIOBackend connects to the configured endpoint and makes sure the
// bucket exists.
func NewMinIOBackend(ctx context.Context, cfg config.MinIO) (*MinIOBackend, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("creating minio client: %w", err)
	}

	exists, err := client.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return nil, fmt.Errorf("checking bucket %s: %w", cfg.Bucket, err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, cfg.Bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("creating bucket %s: %w", cfg.Bucket, err)
		}
	}

	return &MinIOBackend{client: client, bucket: cfg.Bucket}, nil
}

// Put uploads data as the object named key.
func (b *MinIOBackend) Put(ctx context.Context, key string, data []byte, contentType string) error {
	_, err := b.client.PutObject(ctx, b.bucket, key, bytes.NewReader(data), int64(len(data)),
		minio.PutObjectOptions{ContentType: contentType})
	if err != nil {
		return fmt.Errorf("uploading to minio: %w", err)
	}
	return nil
}

// Open streams the object named key.
func (b *MinIOBackend) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	// GetObject is lazy; stat first so a missing object surfaces here.
	if _, err := b.client.StatObject(ctx, b.bucket, key, minio.StatObjectOptions{}); err != nil {
		if isNoSuchKey(err) {
			return nil, fmt.Errorf("asset %s: %w", key, model.ErrNotFound)
		}
		return nil, fmt.Errorf("stat object: %w", err)
	}

	obj, err := b.client.GetObject(ctx, b.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("getting object: %w", err)
	}
	return obj, nil
}

// Delete removes the object named key. S3 treats missing objects as deleted.
func (b *MinIOBackend) Delete(ctx context.Context, key string) error {
	err := b.client.RemoveObject(ctx, b.bucket, key, minio.RemoveObjectOptions{})
	if err != nil && !isNoSuchKey(err) {
		return fmt.Errorf("deleting from minio: %w", err)
	}
	return nil
}

// Exists reports whether the object named key exists.
func (b *MinIOBackend) Exists(ctx context.Context, key string) (bool, error) {
	_, err := b.client.StatObject(ctx, b.bucket, key, minio.StatObjectOptions{})
	if isNoSuchKey(err) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("stat object: %w", err)
	}
	return true, nil
}

func isNoSuchKey(err error) bool {
	if err == nil {
		return false
	}
	return minio.ToErrorResponse(err).Code == "NoSuchKey"
}
