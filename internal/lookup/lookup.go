// Package lookup answers a text selection with a translation and records it in the history.
package lookup

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/at-ishikawa/popdict/internal/history"
	"github.com/at-ishikawa/popdict/internal/inference"
	"github.com/at-ishikawa/popdict/internal/translation"
)

var ErrEmptyText = errors.New("text is empty")

// HistoryRecorder is the part of the history the lookup writes to.
type HistoryRecorder interface {
	Save(ctx context.Context, t translation.Translation) (history.Entry, error)
}

type Service struct {
	translator            inference.Client
	history               HistoryRecorder
	defaultTargetLanguage string
}

func NewService(translator inference.Client, recorder HistoryRecorder, defaultTargetLanguage string) *Service {
	return &Service{
		translator:            translator,
		history:               recorder,
		defaultTargetLanguage: defaultTargetLanguage,
	}
}

type Result struct {
	Translation translation.Translation `json:"translation"`
	Entry       history.Entry           `json:"entry"`
	// Saved is false when the lookup succeeded but could not be recorded in the history.
	Saved     bool   `json:"saved"`
	SaveError string `json:"saveError,omitempty"`
}

// Lookup translates the text into targetLanguage, or the default target language when empty.
// A failure to record the result does not fail the lookup.
func (s *Service) Lookup(ctx context.Context, text, targetLanguage string) (Result, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return Result{}, ErrEmptyText
	}
	if targetLanguage == "" {
		targetLanguage = s.defaultTargetLanguage
	}

	t, err := s.translator.Translate(ctx, inference.TranslateRequest{
		Text:           text,
		TargetLanguage: targetLanguage,
	})
	if err != nil {
		return Result{}, fmt.Errorf("translator.Translate(%s) > %w", text, err)
	}

	result := Result{Translation: t}
	entry, err := s.history.Save(ctx, t)
	if err != nil {
		slog.Default().Warn("lookup result was not saved to the history",
			"text", text,
			"error", err)
		result.SaveError = err.Error()
		return result, nil
	}
	result.Entry = entry
	result.Saved = true
	return result, nil
}
