package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/at-ishikawa/popdict/internal/cli"
	"github.com/at-ishikawa/popdict/internal/export"
	"github.com/at-ishikawa/popdict/internal/history"
)

var _ pflag.Value = (*export.Format)(nil)

func newExportCommand() *cobra.Command {
	format := export.FormatMarkdown
	var output string
	command := &cobra.Command{
		Use:   "export [query]...",
		Short: "Export the history, optionally filtered by a query",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withHistory(cmd, func(ctx context.Context, store *history.Store, _ *cli.Printer) error {
				entries, err := store.Search(ctx, strings.Join(args, " "))
				if err != nil {
					return fmt.Errorf("store.Search > %w", err)
				}
				return exportEntries(cmd, entries, format, output)
			})
		},
	}
	command.Flags().VarP(&format, "format", "f", `output format: "markdown", "yaml", or "pdf"`)
	command.Flags().StringVarP(&output, "output", "o", "", "output file. Defaults to stdout, or history.pdf for pdf")
	return command
}

func exportEntries(cmd *cobra.Command, entries []history.Entry, format export.Format, output string) error {
	if format == export.FormatPDF {
		if output == "" {
			output = "history" + format.Extension()
		}
		path, err := export.PDF(output, entries)
		if err != nil {
			return fmt.Errorf("export.PDF > %w", err)
		}
		_, err = fmt.Fprintf(cmd.OutOrStdout(), "Exported %d entries to %s\n", len(entries), path)
		return err
	}

	w := cmd.OutOrStdout()
	if output != "" {
		file, err := os.Create(output)
		if err != nil {
			return fmt.Errorf("os.Create(%s) > %w", output, err)
		}
		defer func() {
			_ = file.Close()
		}()
		w = file
	}

	switch format {
	case export.FormatYAML:
		return export.YAML(w, entries)
	default:
		return export.Markdown(w, entries)
	}
}
