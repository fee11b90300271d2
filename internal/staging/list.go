// Package staging keeps the ordered list of captured images that have been
// uploaded and are waiting to be translated.
//
// A List has exactly one mutation in flight at a time: Append, RemoveAt and
// DrainAll queue on a single slot. Reads never wait on the network.
package staging

import (
	"context"
	"errors"
	"log/slog"
	"path/filepath"
	"sync"

	"github.com/google/uuid"

	"github.com/transbraille/transbraille/internal/assetstore"
)

// MIMEType is the content type of every staged image.
const MIMEType = "image/jpeg"

var (
	ErrIndexOutOfRange    = errors.New("staged image index out of range")
	ErrClosed             = errors.New("staging list is closed")
	ErrDuplicateReference = errors.New("remote reference already staged")
)

// State is the upload state of an Image: Uploading or Staged.
type State interface {
	isState()
}

// Uploading means the upload was started and has not resolved.
type Uploading struct{}

// Staged carries the reference and URL of a finished upload. Both are set
// together.
type Staged struct {
	Ref assetstore.Ref
}

func (Uploading) isState() {}
func (Staged) isState()    {}

// Image is one captured, normalized image.
type Image struct {
	ID          string
	LocalPath   string
	DisplayName string
	MIMEType    string
	State       State
}

// Ref returns the remote reference once the image is staged.
func (i Image) Ref() (assetstore.Ref, bool) {
	s, ok := i.State.(Staged)
	return s.Ref, ok
}

// List is the single owner of its images.
type List struct {
	store assetstore.Store
	slot  chan struct{}

	mu       sync.RWMutex
	entries  []Image
	deleting map[string]bool // ids whose remote delete has started
	pending  int
	closed   bool
}

// New returns an empty list backed by store.
func New(store assetstore.Store) *List {
	return &List{
		store:    store,
		slot:     make(chan struct{}, 1),
		deleting: make(map[string]bool),
	}
}

// Len is the number of staged images. Translation is possible when it is
// greater than zero.
func (l *List) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.entries)
}

// Entries returns a copy of the staged images in capture order.
func (l *List) Entries() []Image {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]Image, len(l.entries))
	copy(out, l.entries)
	return out
}

// Pending is the number of uploads that have started but not resolved.
func (l *List) Pending() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.pending
}

// Append uploads the image at localPath and, only if the upload succeeds,
// adds it to the end of the list. On failure the list is unchanged.
func (l *List) Append(ctx context.Context, localPath string) (Image, error) {
	if err := l.acquire(ctx); err != nil {
		return Image{}, err
	}
	defer l.release()

	img := Image{
		ID:          uuid.NewString(),
		LocalPath:   localPath,
		DisplayName: filepath.Base(localPath),
		MIMEType:    MIMEType,
		State:       Uploading{},
	}

	l.mu.Lock()
	l.pending++
	l.mu.Unlock()

	ref, err := l.store.Upload(ctx, localPath, img.DisplayName)

	l.mu.Lock()
	defer l.mu.Unlock()
	l.pending--

	if err != nil {
		return Image{}, err
	}
	if l.closed {
		slog.Warn("Upload finished after teardown, remote object orphaned", "reference", ref.Reference)
		return Image{}, ErrClosed
	}
	for _, e := range l.entries {
		if r, _ := e.Ref(); r.Reference == ref.Reference {
			return Image{}, ErrDuplicateReference
		}
	}

	img.State = Staged{Ref: ref}
	l.entries = append(l.entries, img)
	slog.Debug("Image staged", "id", img.ID, "reference", ref.Reference, "count", len(l.entries))
	return img, nil
}

// RemoveAt deletes the remote object of the image at index and removes the
// image from the list. The image is removed even if the remote delete fails.
func (l *List) RemoveAt(ctx context.Context, index int) error {
	if err := l.acquire(ctx); err != nil {
		return err
	}
	defer l.release()

	l.mu.Lock()
	if index < 0 || index >= len(l.entries) {
		l.mu.Unlock()
		return ErrIndexOutOfRange
	}
	img := l.entries[index]
	l.deleting[img.ID] = true
	l.mu.Unlock()

	l.deleteRemote(ctx, img)
	l.forget(img.ID)
	return nil
}

// DrainAll removes every staged image front to back. It always leaves the
// list empty; delete failures are logged.
func (l *List) DrainAll(ctx context.Context) error {
	if err := l.acquire(ctx); err != nil {
		return err
	}
	defer l.release()

	l.mu.Lock()
	victims := make([]Image, len(l.entries))
	copy(victims, l.entries)
	for _, img := range victims {
		l.deleting[img.ID] = true
	}
	l.mu.Unlock()

	for _, img := range victims {
		l.deleteRemote(ctx, img)
		l.forget(img.ID)
	}
	return nil
}

// Teardown closes the list and drains whatever has resolved so far. It does
// not wait for an in-flight Append; that upload's result is discarded. Images
// whose delete a running RemoveAt or DrainAll already started are left to it.
// Every later mutation returns ErrClosed. Calling it twice is a no-op.
func (l *List) Teardown(ctx context.Context) {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return
	}
	l.closed = true
	var victims []Image
	for _, img := range l.entries {
		if !l.deleting[img.ID] {
			victims = append(victims, img)
		}
	}
	l.entries = nil
	pending := l.pending
	l.mu.Unlock()

	if pending > 0 {
		slog.Info("Tearing down with uploads in flight", "pending", pending)
	}
	for _, img := range victims {
		l.deleteRemote(ctx, img)
	}
}

func (l *List) acquire(ctx context.Context) error {
	// A free slot is taken even if ctx is already done.
	select {
	case l.slot <- struct{}{}:
	default:
		select {
		case l.slot <- struct{}{}:
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	l.mu.RLock()
	closed := l.closed
	l.mu.RUnlock()
	if closed {
		l.release()
		return ErrClosed
	}
	return nil
}

func (l *List) release() {
	<-l.slot
}

func (l *List) deleteRemote(ctx context.Context, img Image) {
	ref, ok := img.Ref()
	if !ok {
		return
	}
	if err := l.store.Delete(ctx, ref.Reference); err != nil {
		slog.Warn("Failed to delete remote image", "reference", ref.Reference, "err", err)
	}
}

func (l *List) forget(id string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.deleting, id)
	for i, e := range l.entries {
		if e.ID == id {
			l.entries = append(l.entries[:i:i], l.entries[i+1:]...)
			return
		}
	}
}
