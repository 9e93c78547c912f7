package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/at-ishikawa/popdict/internal/cli"
)

func newLookupCommand() *cobra.Command {
	var targetLanguage string
	command := &cobra.Command{
		Use:   "lookup <text>...",
		Short: "Translate text and record it in the history",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
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
			service, closeClient, err := newLookupService(cfg, store)
			if err != nil {
				return err
			}
			defer func() {
				_ = closeClient()
			}()

			result, err := service.Lookup(ctx, strings.Join(args, " "), targetLanguage)
			if err != nil {
				return fmt.Errorf("service.Lookup > %w", err)
			}

			printer := cli.NewPrinter(cmd.OutOrStdout())
			if err := printer.PrintTranslation(result.Translation); err != nil {
				return err
			}
			if !result.Saved {
				return printer.PrintWarning("Not saved to the history: %s", result.SaveError)
			}
			return nil
		},
	}
	command.Flags().StringVarP(&targetLanguage, "target", "t", "", "target language code. Defaults to translation.default_target_language")
	return command
}

func newInteractiveCommand() *cobra.Command {
	var targetLanguage string
	command := &cobra.Command{
		Use:   "interactive",
		Short: "Look up each line typed on stdin",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
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
			service, closeClient, err := newLookupService(cfg, store)
			if err != nil {
				return err
			}
			defer func() {
				_ = closeClient()
			}()

			return cli.NewInteractiveLookupCLI(service, targetLanguage, os.Stdin, cmd.OutOrStdout()).Run(ctx)
		},
	}
	command.Flags().StringVarP(&targetLanguage, "target", "t", "", "target language code. Defaults to translation.default_target_language")
	return command
}
