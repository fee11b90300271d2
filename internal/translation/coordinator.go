package translation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/transbraille/transbraille/internal/staging"
)

// ErrNoImages is returned when translation is requested with nothing staged.
var ErrNoImages = errors.New("no images staged for translation")

// drainTimeout bounds clearing the list after a successful translation.
const drainTimeout = 30 * time.Second

// Staged is the part of a staging list the coordinator needs.
type Staged interface {
	Len() int
	Entries() []staging.Image
	DrainAll(ctx context.Context) error
}

// Recorder keeps a record of completed translations.
type Recorder interface {
	RecordTranslation(ctx context.Context, lang Language, urls []string, result Result) error
}

// Coordinator turns a staging list into one translation request.
type Coordinator struct {
	translator Translator
	recorder   Recorder
}

type CoordinatorOption func(*Coordinator)

// WithRecorder records every successful translation.
func WithRecorder(r Recorder) CoordinatorOption {
	return func(c *Coordinator) {
		c.recorder = r
	}
}

func NewCoordinator(t Translator, opts ...CoordinatorOption) *Coordinator {
	c := &Coordinator{translator: t}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Translate sends every staged URL, in staging order, as a single request.
// On success the list is drained before the result is returned. On failure
// the list is left exactly as it was.
func (c *Coordinator) Translate(ctx context.Context, list Staged, lang Language) (Result, error) {
	if list.Len() == 0 {
		return Result{}, ErrNoImages
	}

	entries := list.Entries()
	urls := make([]string, 0, len(entries))
	for _, img := range entries {
		ref, ok := img.Ref()
		if !ok {
			return Result{}, fmt.Errorf("image %s is not staged", img.ID)
		}
		urls = append(urls, ref.URL)
	}
	if len(urls) == 0 {
		return Result{}, ErrNoImages
	}

	slog.Info("Translating staged images", "images", len(urls), "language", lang.Tag())

	result, err := c.translator.Translate(ctx, Request{URLs: urls, Language: lang})
	if err != nil {
		return Result{}, err
	}

	if c.recorder != nil {
		if err := c.recorder.RecordTranslation(ctx, lang, urls, result); err != nil {
			slog.Warn("Failed to record translation", "err", err)
		}
	}

	// The service has answered; a caller that went away must not leave the
	// translated images staged.
	drainCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), drainTimeout)
	defer cancel()
	if err := list.DrainAll(drainCtx); err != nil {
		return result, fmt.Errorf("translation succeeded but clearing staged images failed: %w", err)
	}
	return result, nil
}
