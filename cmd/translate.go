package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/transbraille/transbraille/internal/capture"
	"github.com/transbraille/transbraille/internal/pipeline"
	"github.com/transbraille/transbraille/internal/translation"
)

const teardownTimeout = 30 * time.Second

func newTranslateCmd(opts *rootOptions) *cobra.Command {
	var lang string

	cmd := &cobra.Command{
		Use:   "translate [flags] IMAGE...",
		Short: "Stage braille photos and translate them in one request",
		Long: `Captures every image in order, uploads each to remote storage and sends
all of them to the translation service as a single request. Uploaded
images are deleted afterwards, whether or not translation succeeds.`,
		Example: `  # Translate two pages into English
  transbraille translate page1.jpg page2.jpg

  # Translate into Filipino
  transbraille translate --lang filipino page.jpg`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			language, err := translation.ParseLanguage(lang)
			if err != nil {
				return err
			}

			a, err := newApp(cmd.Context(), opts.cfg, true)
			if err != nil {
				return err
			}
			defer a.Close()

			session, err := a.newSession(uuid.NewString(), capture.NewFileSource(args...))
			if err != nil {
				return err
			}
			defer closeSession(session)
			session.SetLanguage(language)

			for range args {
				img, ok, err := session.Capture(cmd.Context())
				if err != nil {
					return err
				}
				if ok {
					slog.Info("Staged", "image", img.DisplayName, "count", len(session.Images()))
				}
			}

			result, err := session.Translate(cmd.Context())
			if err != nil {
				return err
			}
			printResult(cmd, result)
			return nil
		},
	}

	cmd.Flags().StringVarP(&lang, "lang", "l", "english", "Target language (english, filipino)")

	return cmd
}

// closeSession tears the session down even when the command context has
// already been cancelled.
func closeSession(s *pipeline.Session) {
	ctx, cancel := context.WithTimeout(context.Background(), teardownTimeout)
	defer cancel()
	s.Close(ctx)
}

func printResult(cmd *cobra.Command, result translation.Result) {
	if result.Empty {
		fmt.Fprintln(cmd.ErrOrStderr(), "Nothing to translate.")
		return
	}
	fmt.Fprintln(cmd.OutOrStdout(), result.Text)
}
