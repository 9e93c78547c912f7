package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/at-ishikawa/popdict/internal/config"
	"github.com/at-ishikawa/popdict/internal/history"
	"github.com/at-ishikawa/popdict/internal/inference/openai"
	"github.com/at-ishikawa/popdict/internal/kvstore"
	"github.com/at-ishikawa/popdict/internal/lookup"
)

func loadConfig() (*config.Config, error) {
	loader, err := config.NewConfigLoader(configFile)
	if err != nil {
		return nil, fmt.Errorf("failed to create config loader: %w", err)
	}
	return loader.Load()
}

// openHistory opens the configured storage. The returned function releases it.
func openHistory(ctx context.Context, cfg *config.Config) (*history.Store, func() error, error) {
	kv, closeStore, err := kvstore.Open(ctx, cfg.Storage)
	if err != nil {
		return nil, nil, fmt.Errorf("kvstore.Open() > %w", err)
	}
	return history.NewStore(kv, history.WithMaxEntries(cfg.History.MaxEntries)), closeStore, nil
}

// newLookupService builds the lookup service. The returned function releases the model client.
func newLookupService(cfg *config.Config, store *history.Store) (*lookup.Service, func() error, error) {
	if cfg.OpenAI.APIKey == "" {
		return nil, nil, errors.New("OPENAI_API_KEY environment variable is required")
	}
	client := openai.NewClient(cfg.OpenAI)
	return lookup.NewService(client, store, cfg.Translation.DefaultTargetLanguage), client.Close, nil
}
