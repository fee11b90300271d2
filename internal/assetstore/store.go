// Package assetstore uploads captured images to remote object storage and
// deletes them again by reference. Stores keep no client-side state.
package assetstore

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"

	"github.com/transbraille/transbraille/internal/config"
)

// ErrNotFound is wrapped by a DeleteError when the reference does not exist.
var ErrNotFound = errors.New("object not found")

// Ref identifies an uploaded object. Reference is the handle used to delete
// it and URL is where the translation service can fetch it.
type Ref struct {
	Reference string `json:"reference"`
	URL       string `json:"url"`
}

// Store is a stateless gateway to remote blob storage.
type Store interface {
	Upload(ctx context.Context, localPath, displayName string) (Ref, error)
	Delete(ctx context.Context, reference string) error
}

// UploadError reports a failed transfer or a rejection by the storage service.
type UploadError struct {
	Name string
	Err  error
}

func (e *UploadError) Error() string {
	return fmt.Sprintf("upload %s: %v", e.Name, e.Err)
}

func (e *UploadError) Unwrap() error { return e.Err }

// DeleteError reports a failed removal. Callers log it and move on.
type DeleteError struct {
	Reference string
	Err       error
}

func (e *DeleteError) Error() string {
	return fmt.Sprintf("delete %s: %v", e.Reference, e.Err)
}

func (e *DeleteError) Unwrap() error { return e.Err }

// New builds the store selected by cfg.Backend.
func New(ctx context.Context, cfg config.StoreConfig) (Store, error) {
	switch cfg.Backend {
	case "s3":
		return NewS3(ctx, cfg)
	case "gcs":
		return NewGCS(ctx, cfg)
	case "fs":
		return NewFilesystem(cfg.FSRoot, cfg.Prefix, cfg.PublicURL)
	default:
		return nil, fmt.Errorf("unsupported store backend: %s", cfg.Backend)
	}
}

// objectKey places displayName under prefix. Only the base name is kept so a
// display name can never climb out of the prefix.
func objectKey(prefix, displayName string) (string, error) {
	name := path.Base(strings.ReplaceAll(displayName, "\\", "/"))
	if name == "." || name == "/" || name == ".." || name == "" {
		return "", fmt.Errorf("invalid display name %q", displayName)
	}
	if prefix == "" {
		return name, nil
	}
	return strings.TrimSuffix(prefix, "/") + "/" + name, nil
}

func joinURL(base, key string) string {
	return strings.TrimSuffix(base, "/") + "/" + key
}
