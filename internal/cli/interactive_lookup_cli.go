package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"

	"github.com/at-ishikawa/popdict/internal/lookup"
)

var errEnd = errors.New("end")

//go:generate mockgen -source=interactive_lookup_cli.go -destination=../mocks/cli/mock_lookuper.go -package=mock_cli Lookuper

type Lookuper interface {
	Lookup(ctx context.Context, text, targetLanguage string) (lookup.Result, error)
}

// InteractiveLookupCLI reads one text per line and prints its translation until EOF or "exit".
type InteractiveLookupCLI struct {
	lookuper       Lookuper
	targetLanguage string
	stdinReader    *bufio.Reader
	stdoutWriter   io.Writer
	printer        *Printer
}

func NewInteractiveLookupCLI(lookuper Lookuper, targetLanguage string, stdin io.Reader, stdout io.Writer) *InteractiveLookupCLI {
	return &InteractiveLookupCLI{
		lookuper:       lookuper,
		targetLanguage: targetLanguage,
		stdinReader:    bufio.NewReader(stdin),
		stdoutWriter:   stdout,
		printer:        NewPrinter(stdout),
	}
}

func (cli *InteractiveLookupCLI) Run(ctx context.Context) error {
	ctx, cancel := signal.NotifyContext(
		ctx,
		os.Interrupt,
	)
	defer cancel()

	errCh := make(chan error, 1)
	go func() {
		defer close(errCh)

		for {
			select {
			case <-ctx.Done():
				return
			default:
			}

			if err := cli.session(ctx); err != nil {
				if !errors.Is(err, errEnd) {
					errCh <- err
				}
				return
			}
		}
	}()
	select {
	case <-ctx.Done():
		_, _ = fmt.Fprintln(cli.stdoutWriter, "Received interrupt signal, exiting...")
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("error: %w", err)
		}
	}
	return nil
}

func (cli *InteractiveLookupCLI) session(ctx context.Context) error {
	if _, err := fmt.Fprint(cli.stdoutWriter, "> "); err != nil {
		return fmt.Errorf("failed to write to stdout: %w", err)
	}
	line, err := cli.stdinReader.ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("stdinReader.ReadString > %w", err)
	}
	text := strings.TrimSpace(line)
	if text == "exit" || (text == "" && errors.Is(err, io.EOF)) {
		return errEnd
	}
	if text == "" {
		return nil
	}

	result, lookupErr := cli.lookuper.Lookup(ctx, text, cli.targetLanguage)
	if lookupErr != nil {
		return cli.printer.PrintWarning("Lookup failed: %v", lookupErr)
	}
	if err := cli.printer.PrintTranslation(result.Translation); err != nil {
		return err
	}
	if !result.Saved {
		if err := cli.printer.PrintWarning("Not saved to the history: %s", result.SaveError); err != nil {
			return err
		}
	}
	if errors.Is(err, io.EOF) {
		return errEnd
	}
	return nil
}
