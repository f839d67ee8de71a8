package storage

import (
	"context"
	"fmt"
	"io"
	"path"

	"github.com/bioespinhanews/apiserver/config"
)

// Bucket is a single object-store bucket that archived mail is written to.
// Objects are write-once: a backend refuses to replace an existing key.
type Bucket interface {
	EnsureBucket(ctx context.Context) error
	PutObject(ctx context.Context, key string, r io.Reader, size int64, meta ObjectMeta) error
	Name() string
}

// ObjectMeta is stored alongside every archived object.
type ObjectMeta struct {
	ContentType        string
	ContentDisposition string
	Metadata           map[string]string
}

// MailArchive stores rendered outbound messages in a Bucket.
type MailArchive struct {
	bucket Bucket
	source string
}

// NewMailArchive constructs a MailArchive writing into bucket. source is
// recorded as object metadata to tell apart archives written by the API
// server and the mailer.
func NewMailArchive(bucket Bucket, source string) *MailArchive {
	return &MailArchive{bucket: bucket, source: source}
}

// Open connects to the backend named in cfg.Backend ("minio" or "gcs") and
// makes sure its bucket exists. It returns nil, nil for backend "none".
func Open(ctx context.Context, cfg config.MailArchiveConfig, source string) (*MailArchive, error) {
	var bucket Bucket
	switch cfg.Backend {
	case "", "none":
		return nil, nil
	case "minio":
		b, err := NewMinioBucket(cfg.Minio)
		if err != nil {
			return nil, fmt.Errorf("minio: %w", err)
		}
		bucket = b
	case "gcs":
		b, err := NewGCSBucket(ctx, cfg.GCS)
		if err != nil {
			return nil, fmt.Errorf("gcs: %w", err)
		}
		bucket = b
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Backend)
	}

	if err := bucket.EnsureBucket(ctx); err != nil {
		return nil, fmt.Errorf("ensure bucket %s: %w", bucket.Name(), err)
	}
	return NewMailArchive(bucket, source), nil
}

// Put writes one archived message under key.
func (a *MailArchive) Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error {
	return a.bucket.PutObject(ctx, key, r, size, a.meta(key, contentType))
}

// Bucket returns the name of the archive bucket.
func (a *MailArchive) Bucket() string {
	return a.bucket.Name()
}

func (a *MailArchive) meta(key, contentType string) ObjectMeta {
	meta := ObjectMeta{
		ContentType:        contentType,
		ContentDisposition: fmt.Sprintf("attachment; filename=%q", path.Base(key)),
	}
	if a.source != "" {
		meta.Metadata = map[string]string{"source": a.source}
	}
	return meta
}
