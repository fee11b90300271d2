package cmd

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/transbraille/transbraille/internal/capture"
	"github.com/transbraille/transbraille/internal/pipeline"
	"github.com/transbraille/transbraille/internal/staging"
	"github.com/transbraille/transbraille/internal/translation"
)

const sessionHelp = `Commands:
  capture [PATH]   capture an image (asks for a path when none is given; empty cancels)
  list             show staged images
  remove N         remove staged image N
  lang LANGUAGE    set the target language (english, filipino)
  translate        translate every staged image
  help             show this help
  quit             tear down and exit`

func newSessionCmd(opts *rootOptions) *cobra.Command {
	var lang string

	cmd := &cobra.Command{
		Use:   "session",
		Short: "Interactive capture, stage and translate session",
		Long: `Starts an interactive session. Images are captured one at a time, each is
uploaded as soon as it is captured, and translate sends everything staged
so far. Staged images are deleted from remote storage when the session ends.

` + sessionHelp,
		Args: cobra.NoArgs,
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

			in := bufio.NewScanner(cmd.InOrStdin())
			out := cmd.OutOrStdout()
			session, err := a.newSession(uuid.NewString(), capture.PromptFrom(in, out, "path> "))
			if err != nil {
				return err
			}
			defer closeSession(session)
			session.SetLanguage(language)

			return runSession(cmd.Context(), session, in, out)
		},
	}

	cmd.Flags().StringVarP(&lang, "lang", "l", "english", "Initial target language (english, filipino)")

	return cmd
}

// runSession reads commands from in until quit, end of input or ctx ends.
func runSession(ctx context.Context, session *pipeline.Session, in *bufio.Scanner, out io.Writer) error {
	fmt.Fprintln(out, "Type 'help' for commands.")
	for {
		if ctx.Err() != nil {
			return nil
		}
		fmt.Fprintf(out, "[%s, %d staged]> ", session.Language().Tag(), len(session.Images()))
		if !in.Scan() {
			fmt.Fprintln(out)
			return in.Err()
		}

		fields := strings.Fields(in.Text())
		if len(fields) == 0 {
			continue
		}

		switch fields[0] {
		case "capture", "c":
			var (
				img staging.Image
				ok  bool
				err error
			)
			if len(fields) > 1 {
				img, ok, err = session.CaptureFrom(ctx, capture.NewFileSource(fields[1]))
			} else {
				img, ok, err = session.Capture(ctx)
			}
			switch {
			case err != nil:
				fmt.Fprintf(out, "capture failed: %v\n", err)
			case !ok:
				fmt.Fprintln(out, "capture cancelled")
			default:
				fmt.Fprintf(out, "staged %s\n", img.DisplayName)
			}

		case "list", "ls":
			images := session.Images()
			if len(images) == 0 {
				fmt.Fprintln(out, "no images staged")
			}
			for i, img := range images {
				ref, _ := img.Ref()
				fmt.Fprintf(out, "%d. %s  %s\n", i+1, img.DisplayName, ref.URL)
			}

		case "remove", "rm":
			if len(fields) != 2 {
				fmt.Fprintln(out, "usage: remove N")
				continue
			}
			n, err := strconv.Atoi(fields[1])
			if err != nil {
				fmt.Fprintf(out, "not a number: %s\n", fields[1])
				continue
			}
			if err := session.Remove(ctx, n-1); err != nil {
				fmt.Fprintf(out, "remove failed: %v\n", err)
				continue
			}
			fmt.Fprintf(out, "removed image %d\n", n)

		case "lang", "language":
			if len(fields) != 2 {
				fmt.Fprintln(out, "usage: lang english|filipino")
				continue
			}
			language, err := translation.ParseLanguage(fields[1])
			if err != nil {
				fmt.Fprintln(out, err)
				continue
			}
			session.SetLanguage(language)
			fmt.Fprintf(out, "language set to %s\n", language)

		case "translate", "t":
			result, err := session.Translate(ctx)
			switch {
			case errors.Is(err, translation.ErrNoImages):
				fmt.Fprintln(out, "capture at least one image first")
			case err != nil:
				fmt.Fprintf(out, "translation failed, staged images kept: %v\n", err)
			case result.Empty:
				fmt.Fprintln(out, "nothing to translate")
			default:
				fmt.Fprintln(out, result.Text)
			}

		case "help", "?":
			fmt.Fprintln(out, sessionHelp)

		case "quit", "exit", "q":
			return nil

		default:
			fmt.Fprintf(out, "unknown command %q, type 'help'\n", fields[0])
		}
	}
}
