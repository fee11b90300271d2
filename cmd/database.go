package cmd

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/transbraille/transbraille/internal/brailledb"
	"github.com/transbraille/transbraille/internal/translation"
)

func newDatabaseCmd(opts *rootOptions) *cobra.Command {
	var (
		kind string
		lang string
	)

	cmd := &cobra.Command{
		Use:   "database",
		Short: "Show the braille reference tables",
		Long: `Fetches a braille reference table (letters, numbers or words) from the
Transbraille service and prints every entry with its dot pattern.`,
		Example: `  transbraille database --kind letter --lang eng
  transbraille database --kind word --lang filipino`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			k, err := brailledb.ParseKind(kind)
			if err != nil {
				return err
			}
			language, err := translation.ParseLanguage(lang)
			if err != nil {
				return err
			}

			client := brailledb.NewClient(opts.cfg.APIURL)
			entries, err := client.Query(cmd.Context(), k, language.DBCode())
			if err != nil {
				return err
			}
			printEntries(cmd.OutOrStdout(), entries)
			return nil
		},
	}

	cmd.Flags().StringVarP(&kind, "kind", "k", "letter", "Table to show (letter, number, word)")
	cmd.Flags().StringVarP(&lang, "lang", "l", "eng", "Language (eng, fil)")

	return cmd
}

func printEntries(w io.Writer, entries []brailledb.Entry) {
	if len(entries) == 0 {
		fmt.Fprintln(w, "No entries.")
		return
	}
	for _, e := range entries {
		grid := e.Cell.Grid()
		fmt.Fprintf(w, "%s  %c  %s\n", grid[0], e.Cell.Rune(), e.Text)
		for _, row := range grid[1:] {
			fmt.Fprintf(w, "%s\n", row)
		}
		fmt.Fprintln(w, strings.Repeat("-", 12))
	}
}
