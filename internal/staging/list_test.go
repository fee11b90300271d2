package staging

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/transbraille/transbraille/internal/assetstore"
)

// fakeStore records calls and fails on demand.
type fakeStore struct {
	mu        sync.Mutex
	uploads   []string
	deletes   []string
	failNames map[string]error
	deleteErr error
	sameRef   bool
	block     chan struct{}
	started   chan struct{}

	deleteBlock   chan struct{}
	deleteStarted chan struct{}
}

func newFakeStore() *fakeStore {
	return &fakeStore{failNames: map[string]error{}}
}

func (f *fakeStore) Upload(ctx context.Context, localPath, displayName string) (assetstore.Ref, error) {
	if f.started != nil {
		f.started <- struct{}{}
	}
	if f.block != nil {
		<-f.block
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if err, ok := f.failNames[displayName]; ok {
		return assetstore.Ref{}, &assetstore.UploadError{Name: displayName, Err: err}
	}
	f.uploads = append(f.uploads, displayName)
	ref := "ref-" + displayName
	if f.sameRef {
		ref = "ref-shared"
	}
	return assetstore.Ref{Reference: ref, URL: "https://cdn.test/" + displayName}, nil
}

func (f *fakeStore) Delete(ctx context.Context, reference string) error {
	if f.deleteStarted != nil {
		f.deleteStarted <- struct{}{}
	}
	if f.deleteBlock != nil {
		<-f.deleteBlock
	}
	if err := ctx.Err(); err != nil {
		return &assetstore.DeleteError{Reference: reference, Err: err}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.deletes = append(f.deletes, reference)
	if f.deleteErr != nil {
		return &assetstore.DeleteError{Reference: reference, Err: f.deleteErr}
	}
	return nil
}

func (f *fakeStore) deleted() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.deletes...)
}

func appendN(t *testing.T, l *List, names ...string) {
	t.Helper()
	for _, name := range names {
		if _, err := l.Append(context.Background(), filepath.Join("/captures", name)); err != nil {
			t.Fatalf("Append(%s) unexpected error: %v", name, err)
		}
	}
}

func displayNames(images []Image) []string {
	names := make([]string, len(images))
	for i, img := range images {
		names[i] = img.DisplayName
	}
	return names
}

func equal(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestAppendPreservesCaptureOrder(t *testing.T) {
	for _, n := range []int{0, 1, 2, 5} {
		t.Run(fmt.Sprintf("%d images", n), func(t *testing.T) {
			l := New(newFakeStore())
			var want []string
			for i := 0; i < n; i++ {
				name := fmt.Sprintf("img%d.jpg", i)
				want = append(want, name)
				appendN(t, l, name)
			}

			if l.Len() != n {
				t.Errorf("Len() = %d, want %d", l.Len(), n)
			}
			if got := displayNames(l.Entries()); !equal(got, want) {
				t.Errorf("Entries() = %v, want %v", got, want)
			}
		})
	}
}

func TestAppendPopulatesStagedImage(t *testing.T) {
	l := New(newFakeStore())

	img, err := l.Append(context.Background(), "/captures/img1.jpg")
	if err != nil {
		t.Fatal(err)
	}

	if img.DisplayName != "img1.jpg" {
		t.Errorf("DisplayName = %s, want img1.jpg", img.DisplayName)
	}
	if img.MIMEType != MIMEType {
		t.Errorf("MIMEType = %s, want %s", img.MIMEType, MIMEType)
	}
	ref, ok := img.Ref()
	if !ok {
		t.Fatal("appended image is not staged")
	}
	if ref.Reference != "ref-img1.jpg" || ref.URL != "https://cdn.test/img1.jpg" {
		t.Errorf("Ref() = %+v", ref)
	}
	if img.ID == "" {
		t.Error("ID is empty")
	}
}

func TestAppendFailureLeavesListUnchanged(t *testing.T) {
	store := newFakeStore()
	store.failNames["bad.jpg"] = errors.New("network down")
	l := New(store)
	appendN(t, l, "good.jpg")

	_, err := l.Append(context.Background(), "/captures/bad.jpg")
	var upErr *assetstore.UploadError
	if !errors.As(err, &upErr) {
		t.Fatalf("Append() error = %v, want *assetstore.UploadError", err)
	}

	if l.Len() != 1 {
		t.Errorf("Len() = %d, want 1", l.Len())
	}
	if l.Pending() != 0 {
		t.Errorf("Pending() = %d, want 0", l.Pending())
	}
}

func TestAppendRejectsDuplicateReference(t *testing.T) {
	store := newFakeStore()
	store.sameRef = true
	l := New(store)
	appendN(t, l, "a.jpg")

	_, err := l.Append(context.Background(), "/captures/b.jpg")
	if !errors.Is(err, ErrDuplicateReference) {
		t.Fatalf("Append() error = %v, want ErrDuplicateReference", err)
	}
	if l.Len() != 1 {
		t.Errorf("Len() = %d, want 1", l.Len())
	}
	if len(store.deleted()) != 0 {
		t.Errorf("the existing object must not be deleted, got deletes %v", store.deleted())
	}
}

func TestRemoveAt(t *testing.T) {
	tests := []struct {
		name      string
		index     int
		deleteErr error
		want      []string
	}{
		{name: "first", index: 0, want: []string{"b.jpg", "c.jpg"}},
		{name: "middle", index: 1, want: []string{"a.jpg", "c.jpg"}},
		{name: "last", index: 2, want: []string{"a.jpg", "b.jpg"}},
		{name: "delete fails", index: 1, deleteErr: errors.New("storage unavailable"), want: []string{"a.jpg", "c.jpg"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newFakeStore()
			l := New(store)
			appendN(t, l, "a.jpg", "b.jpg", "c.jpg")
			store.deleteErr = tt.deleteErr

			before := l.Entries()
			if err := l.RemoveAt(context.Background(), tt.index); err != nil {
				t.Fatalf("RemoveAt(%d) unexpected error: %v", tt.index, err)
			}

			if l.Len() != len(before)-1 {
				t.Errorf("Len() = %d, want %d", l.Len(), len(before)-1)
			}
			if got := displayNames(l.Entries()); !equal(got, tt.want) {
				t.Errorf("Entries() = %v, want %v", got, tt.want)
			}

			removed, _ := before[tt.index].Ref()
			if d := store.deleted(); len(d) != 1 || d[0] != removed.Reference {
				t.Errorf("deletes = %v, want [%s]", d, removed.Reference)
			}
		})
	}
}

func TestRemoveAtOutOfRange(t *testing.T) {
	store := newFakeStore()
	l := New(store)
	appendN(t, l, "a.jpg")

	for _, index := range []int{-1, 1, 5} {
		if err := l.RemoveAt(context.Background(), index); !errors.Is(err, ErrIndexOutOfRange) {
			t.Errorf("RemoveAt(%d) error = %v, want ErrIndexOutOfRange", index, err)
		}
	}
	if l.Len() != 1 {
		t.Errorf("Len() = %d, want 1", l.Len())
	}
	if len(store.deleted()) != 0 {
		t.Errorf("no delete expected, got %v", store.deleted())
	}
}

func TestDrainAll(t *testing.T) {
	store := newFakeStore()
	l := New(store)
	appendN(t, l, "a.jpg", "b.jpg", "c.jpg")
	store.deleteErr = errors.New("flaky")

	if err := l.DrainAll(context.Background()); err != nil {
		t.Fatalf("DrainAll() unexpected error: %v", err)
	}

	if l.Len() != 0 {
		t.Errorf("Len() = %d, want 0", l.Len())
	}
	want := []string{"ref-a.jpg", "ref-b.jpg", "ref-c.jpg"}
	if got := store.deleted(); !equal(got, want) {
		t.Errorf("deletes = %v, want %v", got, want)
	}
}

func TestDrainAllWithCancelledContext(t *testing.T) {
	// A free slot is taken regardless of ctx, so the list always ends empty.
	for i := 0; i < 50; i++ {
		store := newFakeStore()
		l := New(store)
		appendN(t, l, "a.jpg", "b.jpg")

		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		if err := l.DrainAll(ctx); err != nil {
			t.Fatalf("DrainAll() unexpected error: %v", err)
		}
		if l.Len() != 0 {
			t.Fatalf("run %d: Len() = %d, want 0", i, l.Len())
		}
	}
}

func TestTeardownDuringDrainDeletesOnce(t *testing.T) {
	store := newFakeStore()
	l := New(store)
	appendN(t, l, "a.jpg", "b.jpg")

	store.deleteBlock = make(chan struct{})
	store.deleteStarted = make(chan struct{}, 2)
	drainDone := make(chan error, 1)
	go func() {
		drainDone <- l.DrainAll(context.Background())
	}()
	<-store.deleteStarted

	l.Teardown(context.Background())
	close(store.deleteBlock)
	if err := <-drainDone; err != nil {
		t.Fatalf("DrainAll() unexpected error: %v", err)
	}

	want := []string{"ref-a.jpg", "ref-b.jpg"}
	if got := store.deleted(); !equal(got, want) {
		t.Errorf("deletes = %v, want %v", got, want)
	}
}

func TestDrainAllEmptyIsNoop(t *testing.T) {
	store := newFakeStore()
	l := New(store)

	for i := 0; i < 2; i++ {
		if err := l.DrainAll(context.Background()); err != nil {
			t.Fatalf("DrainAll() unexpected error: %v", err)
		}
	}
	if len(store.deleted()) != 0 {
		t.Errorf("no delete expected, got %v", store.deleted())
	}
}

func TestMutationsAreSerialized(t *testing.T) {
	store := newFakeStore()
	store.block = make(chan struct{})
	store.started = make(chan struct{}, 1)
	l := New(store)

	appendDone := make(chan error, 1)
	go func() {
		_, err := l.Append(context.Background(), "/captures/slow.jpg")
		appendDone <- err
	}()
	<-store.started

	if l.Pending() != 1 {
		t.Errorf("Pending() = %d, want 1", l.Pending())
	}
	if l.Len() != 0 {
		t.Errorf("Len() = %d while upload in flight, want 0", l.Len())
	}

	// A second mutation waits for the slot; with a short deadline it gives up.
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if err := l.DrainAll(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("DrainAll() while busy error = %v, want context.DeadlineExceeded", err)
	}

	close(store.block)
	if err := <-appendDone; err != nil {
		t.Fatalf("Append() unexpected error: %v", err)
	}
	if l.Len() != 1 {
		t.Errorf("Len() = %d, want 1", l.Len())
	}
}

func TestTeardownDoesNotWaitForInFlightUpload(t *testing.T) {
	store := newFakeStore()
	l := New(store)
	appendN(t, l, "a.jpg", "b.jpg")

	store.block = make(chan struct{})
	store.started = make(chan struct{}, 1)
	appendDone := make(chan error, 1)
	go func() {
		_, err := l.Append(context.Background(), "/captures/late.jpg")
		appendDone <- err
	}()
	<-store.started

	l.Teardown(context.Background())

	if l.Len() != 0 {
		t.Errorf("Len() after teardown = %d, want 0", l.Len())
	}
	want := []string{"ref-a.jpg", "ref-b.jpg"}
	if got := store.deleted(); !equal(got, want) {
		t.Errorf("deletes = %v, want %v", got, want)
	}

	close(store.block)
	if err := <-appendDone; !errors.Is(err, ErrClosed) {
		t.Errorf("in-flight Append() error = %v, want ErrClosed", err)
	}
	if l.Len() != 0 {
		t.Errorf("late upload must be discarded, Len() = %d", l.Len())
	}

	if _, err := l.Append(context.Background(), "/captures/after.jpg"); !errors.Is(err, ErrClosed) {
		t.Errorf("Append() after teardown error = %v, want ErrClosed", err)
	}
	if err := l.DrainAll(context.Background()); !errors.Is(err, ErrClosed) {
		t.Errorf("DrainAll() after teardown error = %v, want ErrClosed", err)
	}

	// Idempotent.
	l.Teardown(context.Background())
	if got := store.deleted(); len(got) != 2 {
		t.Errorf("second teardown issued deletes: %v", got)
	}
}
