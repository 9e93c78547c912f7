package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/at-ishikawa/popdict/internal/cli"
	"github.com/at-ishikawa/popdict/internal/config"
	"github.com/at-ishikawa/popdict/internal/datasync"
	"github.com/at-ishikawa/popdict/internal/history"
	"github.com/at-ishikawa/popdict/internal/kvstore"
	"github.com/at-ishikawa/popdict/internal/statistics"
)

func newHistoryStatsCommand() *cobra.Command {
	var year, month int
	command := &cobra.Command{
		Use:   "stats",
		Short: "Show lookup counts per month and per language pair",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if month != 0 && year == 0 {
				return fmt.Errorf("--month requires --year")
			}
			if month < 0 || month > 12 {
				return fmt.Errorf("invalid month: %d", month)
			}
			return withHistory(cmd, func(ctx context.Context, store *history.Store, printer *cli.Printer) error {
				entries, err := store.List(ctx)
				if err != nil {
					return fmt.Errorf("store.List > %w", err)
				}
				return printer.PrintStatistics(statistics.CalculateStatistics(entries, year, month, time.Local))
			})
		},
	}
	command.Flags().IntVar(&year, "year", 0, "only count lookups in this year")
	command.Flags().IntVar(&month, "month", 0, "only count lookups in this month of --year")
	return command
}

func newHistoryImportCommand() *cobra.Command {
	var opts datasync.ImportOptions
	command := &cobra.Command{
		Use:   "import <file>",
		Short: "Import a history dump exported from the browser extension",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("os.ReadFile(%s) > %w", args[0], err)
			}
			entries, err := datasync.ParseDump(data)
			if err != nil {
				return fmt.Errorf("datasync.ParseDump(%s) > %w", args[0], err)
			}

			return withHistory(cmd, func(ctx context.Context, store *history.Store, printer *cli.Printer) error {
				out := cmd.OutOrStdout()
				result, err := datasync.NewImporter(store, out).Import(ctx, entries, opts)
				if err != nil {
					return fmt.Errorf("importer.Import > %w", err)
				}
				prefix := ""
				if opts.DryRun {
					prefix = "[dry run] "
				}
				fmt.Fprintf(out, "%s%d new, %d updated, %d skipped\n", prefix, result.New, result.Updated, result.Skipped)
				if result.Dropped > 0 {
					return printer.PrintWarning("%d entries did not fit in the history and were dropped", result.Dropped)
				}
				return nil
			})
		},
	}
	command.Flags().BoolVar(&opts.DryRun, "dry-run", false, "show what would be imported without writing")
	command.Flags().BoolVar(&opts.UpdateExisting, "update-existing", false, "overwrite entries that already exist")
	return command
}

func newHistoryMigrateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate <destination config>",
		Short: "Copy the history to the storage configured in another config file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			from, err := loadConfig()
			if err != nil {
				return err
			}
			loader, err := config.NewConfigLoader(args[0])
			if err != nil {
				return fmt.Errorf("failed to create config loader: %w", err)
			}
			to, err := loader.Load()
			if err != nil {
				return err
			}

			source, closeSource, err := kvstore.Open(ctx, from.Storage)
			if err != nil {
				return fmt.Errorf("kvstore.Open(%s) > %w", from.Storage.Driver, err)
			}
			defer func() {
				_ = closeSource()
			}()
			destination, closeDestination, err := kvstore.Open(ctx, to.Storage)
			if err != nil {
				return fmt.Errorf("kvstore.Open(%s) > %w", to.Storage.Driver, err)
			}
			defer func() {
				_ = closeDestination()
			}()

			store := history.NewStore(destination, history.WithMaxEntries(to.History.MaxEntries))
			result, err := datasync.Copy(ctx, source, store)
			if err != nil {
				return fmt.Errorf("datasync.Copy > %w", err)
			}
			out := cmd.OutOrStdout()
			if result == nil {
				fmt.Fprintln(out, "Nothing to migrate.")
				return nil
			}
			fmt.Fprintf(out, "Migrated %d entries from %s to %s.\n", result.Copied, from.Storage.Driver, to.Storage.Driver)
			if result.Dropped > 0 {
				return cli.NewPrinter(out).PrintWarning("%d entries did not fit in the destination history and were dropped", result.Dropped)
			}
			return nil
		},
	}
}
