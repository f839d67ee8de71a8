package storage

import (
	"context"
	"errors"
	"io"
	"strings"

	"github.com/bioespinhanews/apiserver/config"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// MinioBucket archives mail into a MinIO (or any S3 compatible) bucket.
type MinioBucket struct {
	client *minio.Client
	bucket string
}

// NewMinioBucket constructs a MinioBucket from config.
func NewMinioBucket(cfg config.MinioConfig) (*MinioBucket, error) {
	if strings.TrimSpace(cfg.Endpoint) == "" {
		return nil, errors.New("minio endpoint is required")
	}
	if strings.TrimSpace(cfg.AccessKey) == "" || strings.TrimSpace(cfg.SecretKey) == "" {
		return nil, errors.New("minio access key and secret key are required")
	}
	if strings.TrimSpace(cfg.Bucket) == "" {
		return nil, errors.New("minio bucket is required")
	}

	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, err
	}

	return &MinioBucket{client: client, bucket: cfg.Bucket}, nil
}

// EnsureBucket creates the bucket when it does not exist yet.
func (m *MinioBucket) EnsureBucket(ctx context.Context) error {
	exists, err := m.client.BucketExists(ctx, m.bucket)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}
	return m.client.MakeBucket(ctx, m.bucket, minio.MakeBucketOptions{})
}

// PutObject uploads one object. Keys already present are left untouched and
// reported as ErrObjectExists.
func (m *MinioBucket) PutObject(ctx context.Context, key string, r io.Reader, size int64, meta ObjectMeta) error {
	if _, err := m.client.StatObject(ctx, m.bucket, key, minio.StatObjectOptions{}); err == nil {
		return ErrObjectExists
	} else if minio.ToErrorResponse(err).Code != "NoSuchKey" {
		return err
	}

	_, err := m.client.PutObject(ctx, m.bucket, key, r, size, minio.PutObjectOptions{
		ContentType:        meta.ContentType,
		ContentDisposition: meta.ContentDisposition,
		UserMetadata:       meta.Metadata,
	})
	return err
}

// Name returns the configured bucket name.
func (m *MinioBucket) Name() string {
	return m.bucket
}
