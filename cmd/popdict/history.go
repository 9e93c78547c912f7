package main

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/at-ishikawa/popdict/internal/cli"
	"github.com/at-ishikawa/popdict/internal/history"
)

// withHistory opens the configured history for the duration of fn.
func withHistory(cmd *cobra.Command, fn func(ctx context.Context, store *history.Store, printer *cli.Printer) error) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	store, closeStore, err := openHistory(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		_ = closeStore()
	}()
	return fn(ctx, store, cli.NewPrinter(cmd.OutOrStdout()))
}

func newHistoryCommand() *cobra.Command {
	command := &cobra.Command{
		Use:   "history",
		Short: "Manage the lookup history",
	}
	command.AddCommand(
		newHistoryListCommand(),
		newHistoryShowCommand(),
		newHistoryRemoveCommand(),
		newHistoryPinCommand(),
		newHistoryClearCommand(),
		newHistoryUsageCommand(),
		newHistoryStatsCommand(),
		newHistoryImportCommand(),
		newHistoryMigrateCommand(),
	)
	return command
}

func newHistoryListCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "list [query]...",
		Aliases: []string{"search"},
		Short:   "List entries, optionally filtered by a query such as \"source:en target:vi hello\"",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withHistory(cmd, func(ctx context.Context, store *history.Store, printer *cli.Printer) error {
				entries, err := store.Search(ctx, strings.Join(args, " "))
				if err != nil {
					return fmt.Errorf("store.Search > %w", err)
				}
				return printer.PrintEntries(entries)
			})
		},
	}
}

func newHistoryShowCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show the full translation of an entry",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withHistory(cmd, func(ctx context.Context, store *history.Store, printer *cli.Printer) error {
				entry, ok, err := store.Get(ctx, args[0])
				if err != nil {
					return fmt.Errorf("store.Get > %w", err)
				}
				if !ok {
					return fmt.Errorf("%w: %s", history.ErrEntryNotFound, args[0])
				}
				return printer.PrintTranslation(entry.Translation)
			})
		},
	}
}

func newHistoryRemoveCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "remove <id>...",
		Short: "Remove entries",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withHistory(cmd, func(ctx context.Context, store *history.Store, _ *cli.Printer) error {
				if err := store.RemoveMany(ctx, args); err != nil {
					return fmt.Errorf("store.RemoveMany > %w", err)
				}
				return nil
			})
		},
	}
}

func newHistoryPinCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "pin <id>",
		Short: "Pin an entry, or unpin it if it is already pinned",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withHistory(cmd, func(ctx context.Context, store *history.Store, printer *cli.Printer) error {
				entry, err := store.TogglePin(ctx, args[0])
				if err != nil {
					return fmt.Errorf("store.TogglePin > %w", err)
				}
				return printer.PrintEntries([]history.Entry{entry})
			})
		},
	}
}

func newHistoryClearCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Remove every entry",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withHistory(cmd, func(ctx context.Context, store *history.Store, _ *cli.Printer) error {
				if err := store.Clear(ctx); err != nil {
					return fmt.Errorf("store.Clear > %w", err)
				}
				return nil
			})
		},
	}
}

func newHistoryUsageCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "usage",
		Short: "Show how much storage the history takes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withHistory(cmd, func(ctx context.Context, store *history.Store, printer *cli.Printer) error {
				usage, err := store.Usage(ctx)
				if err != nil {
					if errors.Is(err, history.ErrMalformedHistory) {
						return fmt.Errorf("stored history is unreadable, run \"popdict history clear\" to reset it: %w", err)
					}
					return fmt.Errorf("store.Usage > %w", err)
				}
				return printer.PrintUsage(usage, store.MaxEntries())
			})
		},
	}
}
