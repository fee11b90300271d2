package assetstore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
)

// Filesystem stores objects under a local root directory. It stands in for
// remote storage during development and tests.
type Filesystem struct {
	root      string
	prefix    string
	publicURL string
}

// NewFilesystem creates root if needed. With an empty publicURL the returned
// URLs are file:// URLs.
func NewFilesystem(root, prefix, publicURL string) (*Filesystem, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve store root: %w", err)
	}
	if err := os.MkdirAll(abs, 0755); err != nil {
		return nil, fmt.Errorf("failed to create store root: %w", err)
	}
	return &Filesystem{root: abs, prefix: prefix, publicURL: publicURL}, nil
}

func (f *Filesystem) Upload(ctx context.Context, localPath, displayName string) (Ref, error) {
	key, err := objectKey(f.prefix, displayName)
	if err != nil {
		return Ref{}, &UploadError{Name: displayName, Err: err}
	}
	if err := ctx.Err(); err != nil {
		return Ref{}, &UploadError{Name: displayName, Err: err}
	}

	src, err := os.Open(localPath)
	if err != nil {
		return Ref{}, &UploadError{Name: displayName, Err: err}
	}
	defer src.Close()

	dstPath := f.path(key)
	if err := os.MkdirAll(filepath.Dir(dstPath), 0755); err != nil {
		return Ref{}, &UploadError{Name: displayName, Err: err}
	}

	dst, err := os.Create(dstPath)
	if err != nil {
		return Ref{}, &UploadError{Name: displayName, Err: err}
	}

	written, err := io.Copy(dst, src)
	if cerr := dst.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(dstPath)
		return Ref{}, &UploadError{Name: displayName, Err: err}
	}

	slog.Debug("Stored object", "backend", "fs", "key", key, "bytes", written)
	return Ref{Reference: key, URL: f.url(key, dstPath)}, nil
}

func (f *Filesystem) Delete(ctx context.Context, reference string) error {
	if err := ctx.Err(); err != nil {
		return &DeleteError{Reference: reference, Err: err}
	}
	if err := os.Remove(f.path(reference)); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			err = ErrNotFound
		}
		return &DeleteError{Reference: reference, Err: err}
	}
	return nil
}

func (f *Filesystem) path(key string) string {
	return filepath.Join(f.root, filepath.FromSlash(filepath.Clean("/"+key)))
}

func (f *Filesystem) url(key, fullPath string) string {
	if f.publicURL != "" {
		return joinURL(f.publicURL, key)
	}
	u := url.URL{Scheme: "file", Path: filepath.ToSlash(fullPath)}
	return u.String()
}
