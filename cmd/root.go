package cmd

import (
	"log/slog"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/transbraille/transbraille/internal/config"
)

// rootOptions carries the persistent flags and the loaded configuration to
// every subcommand.
type rootOptions struct {
	configPath string
	verbose    bool
	cfg        *config.Config
}

func NewRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "transbraille",
		Short: "Capture braille photos, stage them in cloud storage and translate them",
		Long: `Transbraille captures photos of embossed braille, normalizes them, stages
them in remote storage and sends them to the Transbraille service for
translation into English or Filipino.

Storage, the service URL and local paths are read from a YAML config file,
a .env file and TRANSBRAILLE_* environment variables.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// Load .env file if present (ignore errors)
			_ = godotenv.Load()

			cfg, err := config.Load(opts.configPath)
			if err != nil {
				return err
			}
			opts.cfg = cfg
			setupLogging(cfg.LogLevel, opts.verbose)
			return nil
		},
	}

	cmd.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "", "Path to YAML config file (default $TRANSBRAILLE_CONFIG)")
	cmd.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "Enable debug logging")

	// Add subcommands
	cmd.AddCommand(newTranslateCmd(opts))
	cmd.AddCommand(newSessionCmd(opts))
	cmd.AddCommand(newDatabaseCmd(opts))
	cmd.AddCommand(newHistoryCmd(opts))
	cmd.AddCommand(newServeCmd(opts))

	return cmd
}

func setupLogging(level string, verbose bool) {
	logLevel := slog.LevelInfo
	switch strings.ToLower(level) {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn", "warning":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	}
	if verbose {
		logLevel = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel}))
	slog.SetDefault(logger)
}
