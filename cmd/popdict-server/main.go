package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/at-ishikawa/popdict/internal/config"
	"github.com/at-ishikawa/popdict/internal/history"
	"github.com/at-ishikawa/popdict/internal/inference/openai"
	"github.com/at-ishikawa/popdict/internal/kvstore"
	"github.com/at-ishikawa/popdict/internal/lookup"
	"github.com/at-ishikawa/popdict/internal/server"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	setupLogger(os.Getenv("POPDICT_DEBUG") != "")

	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("loadConfig() > %w", err)
	}

	if cfg.OpenAI.APIKey == "" {
		return fmt.Errorf("OPENAI_API_KEY environment variable is required")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	openaiClient := openai.NewClient(cfg.OpenAI)
	defer func() {
		_ = openaiClient.Close()
	}()

	kv, closeStore, err := kvstore.Open(ctx, cfg.Storage)
	if err != nil {
		return fmt.Errorf("kvstore.Open() > %w", err)
	}
	defer func() {
		_ = closeStore()
	}()
	store := history.NewStore(kv, history.WithMaxEntries(cfg.History.MaxEntries))
	service := lookup.NewService(openaiClient, store, cfg.Translation.DefaultTargetLanguage)

	srv := server.NewServer(server.NewHandler(service, store), cfg.Server)
	errCh := make(chan error, 1)
	go func() {
		slog.Default().Info("Starting server", "addr", srv.Addr, "storage", cfg.Storage.Driver)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("srv.ListenAndServe() > %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("srv.Shutdown() > %w", err)
	}
	return nil
}

func loadConfig() (*config.Config, error) {
	configFile := os.Getenv("POPDICT_CONFIG")
	loader, err := config.NewConfigLoader(configFile)
	if err != nil {
		return nil, fmt.Errorf("config.NewConfigLoader() > %w", err)
	}
	return loader.Load()
}

// setupLogger configures the default logger based on debug mode
func setupLogger(debugMode bool) {
	logLevel := slog.LevelInfo
	if debugMode {
		logLevel = slog.LevelDebug
	}

	slog.SetDefault(
		slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
			Level:     logLevel,
			AddSource: true,
		})),
	)
}
