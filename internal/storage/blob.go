// Package storage wraps S3-compatible blob storage for original document
// bytes. Blob storage is optional: when unconfigured the pipeline keeps a
// local placeholder path and downloads are unavailable.
package storage

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/ragbase/ragbase/internal/log"
)

// Options configures the blob store connection.
type Options struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

// BlobStore stores and presigns document objects in one bucket.
type BlobStore struct {
	client *minio.Client
	bucket string
	logger log.Logger
}

// New connects to the S3 endpoint and ensures the bucket exists.
func New(ctx context.Context, opts Options, logger log.Logger) (*BlobStore, error) {
	client, err := minio.New(opts.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(opts.AccessKey, opts.SecretKey, ""),
		Secure: opts.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("connect blob storage: %w", err)
	}

	exists, err := client.BucketExists(ctx, opts.Bucket)
	if err != nil {
		return nil, fmt.Errorf("check bucket %s: %w", opts.Bucket, err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, opts.Bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("create bucket %s: %w", opts.Bucket, err)
		}
		logger.Info("created blob bucket", "bucket", opts.Bucket)
	}

	return &BlobStore{
		client: client,
		bucket: opts.Bucket,
		logger: logger.With("component", "blob-store"),
	}, nil
}

// Put uploads one object.
func (b *BlobStore) Put(ctx context.Context, key string, data []byte, contentType string) error {
	_, err := b.client.PutObject(ctx, b.bucket, key, bytes.NewReader(data), int64(len(data)),
		minio.PutObjectOptions{ContentType: contentType})
	if err != nil {
		return fmt.Errorf("put object %s: %w", key, err)
	}
	return nil
}

// PresignGet returns a time-limited download URL that serves the object as
// an attachment with the given filename.
func (b *BlobStore) PresignGet(ctx context.Context, key, filename string, ttl time.Duration) (string, error) {
	params := url.Values{}
	if filename != "" {
		params.Set("response-content-disposition", fmt.Sprintf("attachment; filename=%q", filename))
	}
	u, err := b.client.PresignedGetObject(ctx, b.bucket, key, ttl, params)
	if err != nil {
		return "", fmt.Errorf("presign object %s: %w", key, err)
	}
	return u.String(), nil
}

var keyUnsafe = regexp.MustCompile(`[^a-zA-Z0-9._-]+`)

// BuildKey returns the object key {project}/{category}/{filename}. The
// category is path-normalized so labels never introduce extra path
// segments; a missing category files under "uncategorized".
func (b *BlobStore) BuildKey(projectID, category, filename string) string {
	return BuildKey(projectID, category, filename)
}

// BuildKey is the package-level key convention, usable without a connection.
func BuildKey(projectID, category, filename string) string {
	cat := keyUnsafe.ReplaceAllString(strings.TrimSpace(category), "-")
	cat = strings.Trim(cat, "-")
	if cat == "" {
		cat = "uncategorized"
	}
	return fmt.Sprintf("%s/%s/%s", projectID, cat, filename)
}
