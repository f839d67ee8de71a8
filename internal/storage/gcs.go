package storage

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"

	"cloud.google.com/go/storage"
	"github.com/bioespinhanews/apiserver/config"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
)

// ErrObjectExists is returned when an archive key is already taken.
var ErrObjectExists = errors.New("object already exists")

// GCSBucket archives mail into a Google Cloud Storage bucket.
type GCSBucket struct {
	client    *storage.Client
	bucket    string
	projectID string
}

// NewGCSBucket constructs a GCSBucket from config.
func NewGCSBucket(ctx context.Context, cfg config.GCSConfig) (*GCSBucket, error) {
	if strings.TrimSpace(cfg.Bucket) == "" {
		return nil, errors.New("gcs bucket is required")
	}

	var opts []option.ClientOption
	if strings.TrimSpace(cfg.CredentialsFile) != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}

	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, err
	}

	return &GCSBucket{
		client:    client,
		bucket:    cfg.Bucket,
		projectID: cfg.ProjectID,
	}, nil
}

// EnsureBucket ensures the configured bucket exists, creating it in the
// configured project when missing.
func (g *GCSBucket) EnsureBucket(ctx context.Context) error {
	_, err := g.client.Bucket(g.bucket).Attrs(ctx)
	if err == nil {
		return nil
	}
	if !errors.Is(err, storage.ErrBucketNotExist) {
		return err
	}
	if strings.TrimSpace(g.projectID) == "" {
		return errors.New("gcs project id is required to create bucket")
	}
	return g.client.Bucket(g.bucket).Create(ctx, g.projectID, nil)
}

// PutObject uploads one object with a DoesNotExist precondition so an
// archived message is never replaced.
func (g *GCSBucket) PutObject(ctx context.Context, key string, r io.Reader, size int64, meta ObjectMeta) error {
	object := g.client.Bucket(g.bucket).Object(key).If(storage.Conditions{DoesNotExist: true})
	writer := object.NewWriter(ctx)
	writer.ContentType = meta.ContentType
	writer.ContentDisposition = meta.ContentDisposition
	writer.Metadata = meta.Metadata
	// Messages are small; upload in a single request.
	if size >= 0 && size < int64(googleapi.DefaultUploadChunkSize) {
		writer.ChunkSize = 0
	}
	if _, err := io.Copy(writer, r); err != nil {
		_ = writer.Close()
		return err
	}
	if err := writer.Close(); err != nil {
		var apiErr *googleapi.Error
		if errors.As(err, &apiErr) && apiErr.Code == http.StatusPreconditionFailed {
			return ErrObjectExists
		}
		return err
	}
	return nil
}

// Name returns the configured bucket name.
func (g *GCSBucket) Name() string {
	return g.bucket
}
