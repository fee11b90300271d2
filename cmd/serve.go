package cmd

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/transbraille/transbraille/internal/brailledb"
	"github.com/transbraille/transbraille/internal/capture"
	"github.com/transbraille/transbraille/internal/handlers"
	"github.com/transbraille/transbraille/internal/pipeline"
)

func newServeCmd(opts *rootOptions) *cobra.Command {
	var (
		port       string
		origins    []string
		sessionTTL time.Duration
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the capture and translate HTTP API",
		Long: `Starts the Transbraille HTTP API on the specified port.

Each API session owns its own staging list. Images are posted to a session,
staged in remote storage and translated together. Sessions idle for longer
than --session-ttl are torn down, and so is every open session when the
server stops.`,
		Example: `  # Start server on default port 8888
  transbraille serve

  # Start server on custom port
  transbraille serve --port 3000`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context(), opts.cfg, true)
			if err != nil {
				return err
			}
			defer a.Close()

			handlerOpts := []handlers.Option{handlers.WithAllowedOrigins(origins...)}
			if opts.cfg.Store.Backend == "fs" {
				handlerOpts = append(handlerOpts, handlers.WithFilesRoot(opts.cfg.Store.FSRoot))
			}
			handler := handlers.New(
				func(id string) (*pipeline.Session, error) {
					// API sessions always name their source per request.
					return a.newSession(id, capture.NewFileSource())
				},
				brailledb.NewClient(opts.cfg.APIURL),
				handlerOpts...,
			)

			addr := ":" + port
			server := &http.Server{
				Addr:              addr,
				Handler:           handler.Router(),
				ReadHeaderTimeout: 10 * time.Second,
			}

			if sessionTTL > 0 {
				go handler.ExpireSessions(cmd.Context(), sessionTTL, max(sessionTTL/4, time.Second))
			}

			// Start server in goroutine
			serverErr := make(chan error, 1)
			go func() {
				slog.Info("Transbraille API available", "addr", addr, "url", "http://localhost"+addr)
				if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					serverErr <- err
				}
			}()

			// Wait for context cancellation (Ctrl+C) or server error
			select {
			case <-cmd.Context().Done():
				slog.Info("Shutting down server...")
				// Give server 5 seconds to shut down gracefully
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				if err := server.Shutdown(shutdownCtx); err != nil {
					slog.Error("Server shutdown failed", "err", err)
				}
				teardownCtx, cancelTeardown := context.WithTimeout(context.Background(), teardownTimeout)
				defer cancelTeardown()
				handler.Close(teardownCtx)
				slog.Info("Server stopped")
				return nil
			case err := <-serverErr:
				handler.Close(context.Background())
				return err
			}
		},
	}

	cmd.Flags().StringVarP(&port, "port", "p", "8888", "Port to listen on")
	cmd.Flags().StringSliceVar(&origins, "allowed-origin", nil, "CORS allowed origin (repeatable, default *)")
	cmd.Flags().DurationVar(&sessionTTL, "session-ttl", 30*time.Minute, "Close sessions idle for this long (0 disables)")

	return cmd
}
