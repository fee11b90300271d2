package capture

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path"
	"strings"
	"sync"
	"time"
)

var (
	// ErrCancelled means the user backed out of a capture. It is not a failure.
	ErrCancelled = errors.New("capture cancelled")
	// ErrUnavailable means the source cannot produce a frame.
	ErrUnavailable = errors.New("capture source unavailable")
	// ErrPermissionDenied means access to the source was refused or withdrawn.
	ErrPermissionDenied = errors.New("capture permission denied")
)

// Frame is one raw capture. The caller closes it.
type Frame struct {
	io.ReadCloser
	Name string
}

// Source produces raw frames, one per Acquire.
type Source interface {
	Acquire(ctx context.Context) (Frame, error)
}

// AccessChecker is implemented by sources that gate access behind a
// permission. CheckAccess returns ErrPermissionDenied when refused.
type AccessChecker interface {
	CheckAccess(ctx context.Context) error
}

// FileSource yields a fixed list of image files in order.
type FileSource struct {
	mu    sync.Mutex
	paths []string
}

func NewFileSource(paths ...string) *FileSource {
	return &FileSource{paths: append([]string(nil), paths...)}
}

func (s *FileSource) Acquire(ctx context.Context) (Frame, error) {
	if err := ctx.Err(); err != nil {
		return Frame{}, err
	}

	s.mu.Lock()
	if len(s.paths) == 0 {
		s.mu.Unlock()
		return Frame{}, ErrUnavailable
	}
	p := s.paths[0]
	s.paths = s.paths[1:]
	s.mu.Unlock()

	return openFrame(p)
}

// Remaining is the number of paths not yet acquired.
func (s *FileSource) Remaining() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.paths)
}

func openFrame(p string) (Frame, error) {
	f, err := os.Open(p)
	if err != nil {
		if errors.Is(err, os.ErrPermission) {
			return Frame{}, fmt.Errorf("%w: %v", ErrPermissionDenied, err)
		}
		return Frame{}, fmt.Errorf("failed to open %s: %w", p, err)
	}
	return Frame{ReadCloser: f, Name: p}, nil
}

// PromptSource asks for a file path on every Acquire. An empty answer
// cancels the capture and end of input makes the source unavailable.
type PromptSource struct {
	in     *bufio.Scanner
	out    io.Writer
	prompt string
}

func NewPromptSource(in io.Reader, out io.Writer, prompt string) *PromptSource {
	return PromptFrom(bufio.NewScanner(in), out, prompt)
}

// PromptFrom shares a scanner that the caller also reads from.
func PromptFrom(in *bufio.Scanner, out io.Writer, prompt string) *PromptSource {
	return &PromptSource{in: in, out: out, prompt: prompt}
}

func (s *PromptSource) Acquire(ctx context.Context) (Frame, error) {
	if err := ctx.Err(); err != nil {
		return Frame{}, err
	}
	if s.out != nil && s.prompt != "" {
		fmt.Fprint(s.out, s.prompt)
	}
	if !s.in.Scan() {
		if err := s.in.Err(); err != nil {
			return Frame{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
		}
		return Frame{}, ErrUnavailable
	}
	line := strings.TrimSpace(s.in.Text())
	if line == "" {
		return Frame{}, ErrCancelled
	}
	return openFrame(line)
}

// ReaderSource yields a single in-memory frame, such as an HTTP upload.
type ReaderSource struct {
	mu   sync.Mutex
	name string
	r    io.Reader
}

func NewReaderSource(name string, r io.Reader) *ReaderSource {
	return &ReaderSource{name: name, r: r}
}

func (s *ReaderSource) Acquire(ctx context.Context) (Frame, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.r == nil {
		return Frame{}, ErrUnavailable
	}
	r := s.r
	s.r = nil
	return Frame{ReadCloser: io.NopCloser(r), Name: s.name}, nil
}

// URLSource downloads a single image over HTTP.
type URLSource struct {
	URL        string
	HTTPClient *http.Client
	MaxBytes   int64
}

func NewURLSource(url string) *URLSource {
	return &URLSource{
		URL: url,
		HTTPClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		MaxBytes: 20 * 1024 * 1024,
	}
}

func (s *URLSource) Acquire(ctx context.Context) (Frame, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.URL, nil)
	if err != nil {
		return Frame{}, fmt.Errorf("failed to create image request: %w", err)
	}

	resp, err := s.HTTPClient.Do(req)
	if err != nil {
		return Frame{}, fmt.Errorf("%w: failed to download image: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return Frame{}, fmt.Errorf("%w: HTTP %d", ErrPermissionDenied, resp.StatusCode)
	case resp.StatusCode != http.StatusOK:
		return Frame{}, fmt.Errorf("failed to download image: HTTP %d", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, s.MaxBytes+1))
	if err != nil {
		return Frame{}, fmt.Errorf("failed to read image data: %w", err)
	}
	if int64(len(data)) > s.MaxBytes {
		return Frame{}, fmt.Errorf("image larger than %d bytes", s.MaxBytes)
	}

	name := path.Base(req.URL.Path)
	if name == "" || name == "/" || name == "." {
		name = "image.jpg"
	}
	slog.Debug("Downloaded image", "url", s.URL, "bytes", len(data))
	return Frame{ReadCloser: io.NopCloser(bytes.NewReader(data)), Name: name}, nil
}
