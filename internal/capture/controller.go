// Package capture acquires raw images from a source and normalizes them into
// JPEG files ready for staging.
package capture

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"
)

// ErrNoAccess is returned for every capture once access has been denied.
var ErrNoAccess = errors.New("capture access denied for this session")

// CaptureError wraps a failure to acquire or normalize an image.
type CaptureError struct {
	Op  string
	Err error
}

func (e *CaptureError) Error() string {
	return fmt.Sprintf("capture %s failed: %v", e.Op, e.Err)
}

func (e *CaptureError) Unwrap() error { return e.Err }

// Controller turns frames from a Source into normalized files in WorkDir.
type Controller struct {
	source     Source
	workDir    string
	libraryDir string
	maxW, maxH int
	quality    int

	mu        sync.Mutex
	checked   bool
	accessErr error
}

type Option func(*Controller)

// WithLibraryDir also keeps a copy of every capture in dir.
func WithLibraryDir(dir string) Option {
	return func(c *Controller) {
		c.libraryDir = dir
	}
}

// WithBounds overrides the 1280x720 bounding box.
func WithBounds(maxW, maxH int) Option {
	return func(c *Controller) {
		c.maxW, c.maxH = maxW, maxH
	}
}

func NewController(source Source, workDir string, opts ...Option) (*Controller, error) {
	c := &Controller{
		source:  source,
		workDir: workDir,
		maxW:    MaxWidth,
		maxH:    MaxHeight,
		quality: JPEGQuality,
	}
	for _, opt := range opts {
		opt(c)
	}

	if err := os.MkdirAll(workDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create work directory: %w", err)
	}
	if c.libraryDir != "" {
		if err := os.MkdirAll(c.libraryDir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create library directory: %w", err)
		}
	}
	return c, nil
}

// CheckAccess asks the source for permission the first time it is called and
// remembers the answer. A refusal is final for this controller.
func (c *Controller) CheckAccess(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.checked {
		return c.accessErr
	}

	if checker, ok := c.source.(AccessChecker); ok {
		if err := checker.CheckAccess(ctx); err != nil {
			if !errors.Is(err, ErrPermissionDenied) {
				return err
			}
			slog.Warn("Capture access denied", "err", err)
			c.accessErr = ErrNoAccess
		}
	}
	c.checked = true
	return c.accessErr
}

// Capture acquires one frame from the controller's source.
func (c *Controller) Capture(ctx context.Context) (string, bool, error) {
	return c.CaptureFrom(ctx, c.source)
}

// CaptureFrom acquires one frame from src and writes it, normalized, to a
// new file named <uuid>.jpg in the work directory. A cancelled capture
// returns ok == false and no error.
func (c *Controller) CaptureFrom(ctx context.Context, src Source) (string, bool, error) {
	if err := c.CheckAccess(ctx); err != nil {
		return "", false, &CaptureError{Op: "access", Err: err}
	}

	frame, err := src.Acquire(ctx)
	if err != nil {
		if errors.Is(err, ErrCancelled) {
			slog.Debug("Capture cancelled")
			return "", false, nil
		}
		return "", false, &CaptureError{Op: "acquire", Err: err}
	}
	defer frame.Close()

	localPath := filepath.Join(c.workDir, uuid.NewString()+".jpg")
	out, err := os.OpenFile(localPath, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
	if err != nil {
		return "", false, &CaptureError{Op: "write", Err: err}
	}

	size, err := Normalize(frame, out, c.maxW, c.maxH, c.quality)
	if closeErr := out.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		os.Remove(localPath)
		return "", false, &CaptureError{Op: "normalize", Err: err}
	}

	slog.Info("Image captured", "source", frame.Name, "path", localPath, "width", size.X, "height", size.Y)

	if c.libraryDir != "" {
		if err := copyFile(localPath, filepath.Join(c.libraryDir, filepath.Base(localPath))); err != nil {
			slog.Warn("Failed to save capture to library", "path", localPath, "err", err)
		}
	}
	return localPath, true, nil
}

// Cleanup removes the work directory and every capture left in it. Library
// copies are kept.
func (c *Controller) Cleanup() error {
	return os.RemoveAll(c.workDir)
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		os.Remove(dst)
		return err
	}
	return out.Close()
}
