package assetstore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"cloud.google.com/go/storage"
	"google.golang.org/api/option"

	"github.com/transbraille/transbraille/internal/config"
)

const gcsPublicHost = "https://storage.googleapis.com"

// GCS stores objects in a Google Cloud Storage bucket, the same backing
// service Firebase Storage uses.
type GCS struct {
	client    *storage.Client
	bucket    string
	prefix    string
	publicURL string
}

// NewGCS authenticates with the service account file in cfg.Credentials, or
// with application default credentials when it is empty.
func NewGCS(ctx context.Context, cfg config.StoreConfig) (*GCS, error) {
	var opts []option.ClientOption
	if cfg.Credentials != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.Credentials))
	}

	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCS client: %w", err)
	}

	return &GCS{
		client:    client,
		bucket:    cfg.Bucket,
		prefix:    cfg.Prefix,
		publicURL: cfg.PublicURL,
	}, nil
}

func (g *GCS) Upload(ctx context.Context, localPath, displayName string) (Ref, error) {
	key, err := objectKey(g.prefix, displayName)
	if err != nil {
		return Ref{}, &UploadError{Name: displayName, Err: err}
	}

	file, err := os.Open(localPath)
	if err != nil {
		return Ref{}, &UploadError{Name: displayName, Err: err}
	}
	defer file.Close()

	// Cancelling ctx aborts the write; Close reports the final status.
	w := g.client.Bucket(g.bucket).Object(key).NewWriter(ctx)
	w.ContentType = contentTypeJPEG

	if _, err := io.Copy(w, file); err != nil {
		w.Close()
		return Ref{}, &UploadError{Name: displayName, Err: err}
	}
	if err := w.Close(); err != nil {
		return Ref{}, &UploadError{Name: displayName, Err: err}
	}

	slog.Debug("Stored object", "backend", "gcs", "bucket", g.bucket, "key", key)
	return Ref{Reference: key, URL: gcsObjectURL(g.publicURL, g.bucket, key)}, nil
}

func (g *GCS) Delete(ctx context.Context, reference string) error {
	if err := g.client.Bucket(g.bucket).Object(reference).Delete(ctx); err != nil {
		if errors.Is(err, storage.ErrObjectNotExist) {
			err = ErrNotFound
		}
		return &DeleteError{Reference: reference, Err: err}
	}
	return nil
}

// Close releases the underlying client.
func (g *GCS) Close() error {
	return g.client.Close()
}

func gcsObjectURL(publicURL, bucket, key string) string {
	if publicURL != "" {
		return joinURL(publicURL, key)
	}
	return joinURL(gcsPublicHost+"/"+bucket, key)
}
