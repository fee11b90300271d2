package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/transbraille/transbraille/internal/assetstore"
	"github.com/transbraille/transbraille/internal/brailledb"
	"github.com/transbraille/transbraille/internal/capture"
	"github.com/transbraille/transbraille/internal/models"
	"github.com/transbraille/transbraille/internal/pipeline"
	"github.com/transbraille/transbraille/internal/staging"
	"github.com/transbraille/transbraille/internal/storage"
	"github.com/transbraille/transbraille/internal/translation"
)

// SessionFactory builds a new pipeline session with the given id.
type SessionFactory func(id string) (*pipeline.Session, error)

type Handler struct {
	sessionStore   *storage.SessionStore
	newSession     SessionFactory
	brailleDB      *brailledb.Client
	filesRoot      string
	allowedOrigins []string
}

type Option func(*Handler)

// WithFilesRoot serves the filesystem store's objects under /files/.
func WithFilesRoot(root string) Option {
	return func(h *Handler) {
		h.filesRoot = root
	}
}

func WithAllowedOrigins(origins ...string) Option {
	return func(h *Handler) {
		h.allowedOrigins = origins
	}
}

func New(newSession SessionFactory, brailleDB *brailledb.Client, opts ...Option) *Handler {
	h := &Handler{
		sessionStore: storage.New(),
		newSession:   newSession,
		brailleDB:    brailleDB,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// ExpireSessions closes sessions idle for longer than ttl every interval
// until ctx is done.
func (h *Handler) ExpireSessions(ctx context.Context, ttl, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			teardownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), interval)
			if ids := h.sessionStore.ExpireIdle(teardownCtx, now.Add(-ttl)); len(ids) > 0 {
				slog.Info("Expired idle sessions", "count", len(ids), "ttl", ttl)
			}
			cancel()
		}
	}
}

// Close tears down every open session.
func (h *Handler) Close(ctx context.Context) {
	h.sessionStore.CloseAll(ctx)
}

// Response helpers
func (h *Handler) writeJSON(w http.ResponseWriter, data interface{}) {
	h.writeJSONStatus(w, data, http.StatusOK)
}

func (h *Handler) writeJSONStatus(w http.ResponseWriter, data interface{}, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("Unable to encode JSON response", "err", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, message string, code int) {
	if code >= http.StatusInternalServerError {
		slog.Error(message)
	} else {
		slog.Debug(message, "status", code)
	}
	http.Error(w, message, code)
}

// writeErr maps a pipeline error to its HTTP status.
func (h *Handler) writeErr(w http.ResponseWriter, err error) {
	h.writeError(w, err.Error(), statusFor(err))
}

func statusFor(err error) int {
	var (
		captureErr     *capture.CaptureError
		uploadErr      *assetstore.UploadError
		translationErr *translation.TranslationError
	)
	switch {
	case errors.Is(err, translation.ErrNoImages), errors.Is(err, staging.ErrIndexOutOfRange):
		return http.StatusBadRequest
	case errors.Is(err, pipeline.ErrBusy), errors.Is(err, staging.ErrDuplicateReference):
		return http.StatusConflict
	case errors.Is(err, staging.ErrClosed):
		return http.StatusGone
	case errors.Is(err, capture.ErrNoAccess), errors.Is(err, capture.ErrPermissionDenied):
		return http.StatusForbidden
	case errors.As(err, &captureErr):
		return http.StatusUnprocessableEntity
	case errors.As(err, &uploadErr), errors.As(err, &translationErr):
		return http.StatusBadGateway
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// Session helpers
func (h *Handler) getSessionOrError(w http.ResponseWriter, sessionID string) (*pipeline.Session, bool) {
	session, exists := h.sessionStore.Get(sessionID)
	if !exists {
		h.writeError(w, "Session not found", http.StatusNotFound)
		return nil, false
	}
	return session, true
}

func sessionView(s *pipeline.Session) models.Session {
	entries := s.Images()
	images := make([]models.Image, 0, len(entries))
	for _, img := range entries {
		images = append(images, imageView(img))
	}
	return models.Session{
		ID:           s.ID,
		State:        s.State().String(),
		Language:     s.Language().Tag(),
		CanTranslate: s.CanTranslate(),
		Images:       images,
		CreatedAt:    s.CreatedAt,
	}
}

func imageView(img staging.Image) models.Image {
	ref, _ := img.Ref()
	return models.Image{
		ID:          img.ID,
		DisplayName: img.DisplayName,
		Reference:   ref.Reference,
		URL:         ref.URL,
		MIMEType:    img.MIMEType,
	}
}
