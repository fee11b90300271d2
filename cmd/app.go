package cmd

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"

	"github.com/transbraille/transbraille/internal/assetstore"
	"github.com/transbraille/transbraille/internal/capture"
	"github.com/transbraille/transbraille/internal/config"
	"github.com/transbraille/transbraille/internal/history"
	"github.com/transbraille/transbraille/internal/pipeline"
	"github.com/transbraille/transbraille/internal/staging"
	"github.com/transbraille/transbraille/internal/translation"
)

// app holds the long-lived dependencies shared by the sessions of one
// command invocation.
type app struct {
	cfg         *config.Config
	store       assetstore.Store
	history     *history.Store
	coordinator *translation.Coordinator
}

func newApp(ctx context.Context, cfg *config.Config, withHistory bool) (*app, error) {
	store, err := assetstore.New(ctx, cfg.Store)
	if err != nil {
		return nil, fmt.Errorf("failed to set up %s store: %w", cfg.Store.Backend, err)
	}

	a := &app{cfg: cfg, store: store}

	var opts []translation.CoordinatorOption
	if withHistory && cfg.HistoryDB != "" {
		h, err := history.Open(cfg.HistoryDB)
		if err != nil {
			slog.Warn("Translation history disabled", "path", cfg.HistoryDB, "err", err)
		} else {
			a.history = h
			opts = append(opts, translation.WithRecorder(h))
		}
	}
	a.coordinator = translation.NewCoordinator(translation.NewClient(cfg.APIURL), opts...)
	return a, nil
}

// newSession builds a pipeline session reading frames from src. Each session
// gets its own capture directory.
func (a *app) newSession(id string, src capture.Source) (*pipeline.Session, error) {
	var opts []capture.Option
	if a.cfg.Capture.LibraryDir != "" {
		opts = append(opts, capture.WithLibraryDir(a.cfg.Capture.LibraryDir))
	}
	controller, err := capture.NewController(src, filepath.Join(a.cfg.Capture.WorkDir, id), opts...)
	if err != nil {
		return nil, err
	}
	return pipeline.NewSession(id, controller, staging.New(a.store), a.coordinator), nil
}

func (a *app) Close() {
	if a.history != nil {
		if err := a.history.Close(); err != nil {
			slog.Warn("Failed to close history database", "err", err)
		}
	}
	if c, ok := a.store.(io.Closer); ok {
		if err := c.Close(); err != nil {
			slog.Warn("Failed to close store", "err", err)
		}
	}
}
