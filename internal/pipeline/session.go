// Package pipeline drives one capture, stage and translate session.
package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/transbraille/transbraille/internal/capture"
	"github.com/transbraille/transbraille/internal/staging"
	"github.com/transbraille/transbraille/internal/translation"
)

// ErrBusy is returned when a mutating call arrives while another is pending.
var ErrBusy = errors.New("session is busy")

type State int

const (
	Idle State = iota
	Capturing
	Uploading
	Staged
	Translating
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Capturing:
		return "capturing"
	case Uploading:
		return "uploading"
	case Staged:
		return "staged"
	case Translating:
		return "translating"
	default:
		return "unknown"
	}
}

// Session owns a capture controller, a staging list and a translation
// coordinator. At most one of Capture, Remove, Translate and Close runs at a
// time; overlapping calls get ErrBusy.
type Session struct {
	ID        string
	CreatedAt time.Time

	controller  *capture.Controller
	list        *staging.List
	coordinator *translation.Coordinator

	mu         sync.Mutex
	state      State
	busy       bool
	language   translation.Language
	closed     bool
	lastActive time.Time
}

func NewSession(id string, controller *capture.Controller, list *staging.List, coordinator *translation.Coordinator) *Session {
	now := time.Now()
	return &Session{
		ID:          id,
		CreatedAt:   now,
		lastActive:  now,
		controller:  controller,
		list:        list,
		coordinator: coordinator,
		language:    translation.English,
	}
}

// IdleSince reports when the session last finished an operation. ok is false
// while an operation is pending or after Close.
func (s *Session) IdleSince() (t time.Time, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.busy || s.closed {
		return time.Time{}, false
	}
	return s.lastActive, true
}

// State reports the current state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Session) Language() translation.Language {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.language
}

// SetLanguage changes the target language. It is allowed while busy and
// takes effect on the next Translate.
func (s *Session) SetLanguage(lang translation.Language) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.language = lang
	s.lastActive = time.Now()
}

func (s *Session) Images() []staging.Image {
	return s.list.Entries()
}

// CanTranslate is true when at least one image is staged and nothing is
// pending.
func (s *Session) CanTranslate() bool {
	s.mu.Lock()
	busy := s.busy || s.closed
	s.mu.Unlock()
	return !busy && s.list.Len() > 0
}

// Capture acquires one image from the controller's source and stages it.
func (s *Session) Capture(ctx context.Context) (staging.Image, bool, error) {
	return s.capture(ctx, nil)
}

// CaptureFrom is Capture with an explicit source for this one image.
func (s *Session) CaptureFrom(ctx context.Context, src capture.Source) (staging.Image, bool, error) {
	return s.capture(ctx, src)
}

func (s *Session) capture(ctx context.Context, src capture.Source) (staging.Image, bool, error) {
	if err := s.begin(Capturing); err != nil {
		return staging.Image{}, false, err
	}
	defer s.end()

	var (
		localPath string
		ok        bool
		err       error
	)
	if src == nil {
		localPath, ok, err = s.controller.Capture(ctx)
	} else {
		localPath, ok, err = s.controller.CaptureFrom(ctx, src)
	}
	if err != nil || !ok {
		return staging.Image{}, false, err
	}

	s.setState(Uploading)
	img, err := s.list.Append(ctx, localPath)
	if err != nil {
		slog.Error("Failed to stage captured image", "path", localPath, "err", err)
		if rmErr := os.Remove(localPath); rmErr != nil {
			slog.Warn("Failed to discard captured image", "path", localPath, "err", rmErr)
		}
		return staging.Image{}, false, err
	}
	return img, true, nil
}

// Remove deletes the staged image at index.
func (s *Session) Remove(ctx context.Context, index int) error {
	if err := s.begin(s.State()); err != nil {
		return err
	}
	defer s.end()
	return s.list.RemoveAt(ctx, index)
}

// Translate sends every staged image for translation in the current
// language. On success the staging list is empty afterwards.
func (s *Session) Translate(ctx context.Context) (translation.Result, error) {
	if err := s.begin(Translating); err != nil {
		return translation.Result{}, err
	}
	defer s.end()
	return s.coordinator.Translate(ctx, s.list, s.Language())
}

// Close tears down the staging list. The session cannot be used afterwards.
// Close does not wait for a pending capture.
func (s *Session) Close(ctx context.Context) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.mu.Unlock()

	s.list.Teardown(ctx)
	if err := s.controller.Cleanup(); err != nil {
		slog.Warn("Failed to remove capture directory", "session_id", s.ID, "err", err)
	}
	slog.Debug("Session closed", "session_id", s.ID)
}

func (s *Session) begin(next State) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return staging.ErrClosed
	}
	if s.busy {
		return ErrBusy
	}
	s.busy = true
	s.state = next
	return nil
}

func (s *Session) setState(next State) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = next
}

func (s *Session) end() {
	n := s.list.Len()
	s.mu.Lock()
	defer s.mu.Unlock()
	s.busy = false
	s.lastActive = time.Now()
	if n > 0 {
		s.state = Staged
	} else {
		s.state = Idle
	}
}
