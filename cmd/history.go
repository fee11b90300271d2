package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/transbraille/transbraille/internal/history"
)

func newHistoryCmd(opts *rootOptions) *cobra.Command {
	var (
		limit  int
		format string
	)

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recent translations",
		Example: `  transbraille history
  transbraille history --limit 5 --format yaml`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := history.Open(opts.cfg.HistoryDB)
			if err != nil {
				return err
			}
			defer store.Close()

			entries, err := store.List(cmd.Context(), limit)
			if err != nil {
				return err
			}
			return printHistory(cmd.OutOrStdout(), entries, format)
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Number of translations to show (0 for all)")
	cmd.Flags().StringVarP(&format, "format", "f", "table", "Output format (table, yaml, json)")

	return cmd
}

func printHistory(w io.Writer, entries []history.Entry, format string) error {
	switch format {
	case "table":
		tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
		fmt.Fprintln(tw, "ID\tWHEN\tLANGUAGE\tIMAGES\tRESULT")
		for _, e := range entries {
			result := e.Result
			if e.Empty {
				result = "(nothing to translate)"
			}
			fmt.Fprintf(tw, "%d\t%s\t%s\t%d\t%s\n", e.ID, e.CreatedAt.Local().Format("2006-01-02 15:04"), e.Language, e.ImageCount, truncate(result, 60))
		}
		return tw.Flush()
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(entries); err != nil {
			return err
		}
		return enc.Close()
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(entries)
	default:
		return fmt.Errorf("unsupported format: %s", format)
	}
}

func truncate(s string, n int) string {
	s = strings.ReplaceAll(s, "\n", " ")
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
