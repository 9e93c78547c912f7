package inference

import (
	"context"

	"github.com/at-ishikawa/popdict/internal/translation"
)

//go:generate mockgen -source=interface.go -destination=../mocks/inference/mock_client.go -package=mock_inference

// Client interface defines the methods for AI inference operations
type Client interface {
	Translate(ctx context.Context, params TranslateRequest) (translation.Translation, error)
}

// TranslateRequest holds the text selected by the user
type TranslateRequest struct {
	Text string `json:"text"`
	// TargetLanguage is the language code the result is written in, e.g. "vi"
	TargetLanguage string `json:"target_language"`
	// SourceLanguage is optional; the model detects it when empty
	SourceLanguage string `json:"source_language,omitempty"`
}

const (
	DefaultMaxRetryAttempts = 3
)
