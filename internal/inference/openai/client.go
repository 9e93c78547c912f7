package openai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/avast/retry-go"
	"resty.dev/v3"

	"github.com/at-ishikawa/popdict/internal/config"
	"github.com/at-ishikawa/popdict/internal/inference"
	"github.com/at-ishikawa/popdict/internal/translation"
)

const defaultBaseURL = "https://api.openai.com/v1"

type Client struct {
	httpClient       *resty.Client
	model            string
	maxRetryAttempts uint
}

func NewClient(cfg config.OpenAIConfig) *Client {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	client := resty.New()
	client.SetBaseURL(baseURL)
	client.SetHeader("Authorization", "Bearer "+cfg.APIKey)
	client.SetHeader("Content-Type", "application/json")

	return &Client{
		httpClient:       client,
		model:            cfg.Model,
		maxRetryAttempts: cfg.MaxRetryAttempts,
	}
}

func (client Client) Close() error {
	return client.httpClient.Close()
}

// GetModel returns the model name configured for this client
func (client Client) GetModel() string {
	return client.model
}

type ChatCompletionRequest struct {
	Model          string          `json:"model"`
	Messages       []Message       `json:"messages"`
	Temperature    float32         `json:"temperature,omitempty"`
	ResponseFormat *ResponseFormat `json:"response_format,omitempty"`
}

type ResponseFormat struct {
	Type string `json:"type"`
}

type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

type ChatCompletionResponse struct {
	ID      string   `json:"id"`
	Object  string   `json:"object"`
	Created int64    `json:"created"`
	Model   string   `json:"model"`
	Choices []Choice `json:"choices"`
	Usage   Usage    `json:"usage"`
}

type Choice struct {
	Index        int           `json:"index"`
	Message      ChoiceMessage `json:"message"`
	FinishReason string        `json:"finish_reason"`
}

type ChoiceMessage struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// isRetryableError determines if an error should trigger a retry
func isRetryableError(err error) bool {
	if err == nil {
		return false
	}

	// The model sometimes answers with prose or an unclassifiable object; asking again usually helps
	if errors.Is(err, translation.ErrNoJSONPayload) || errors.Is(err, translation.ErrUnclassifiable) {
		return true
	}

	// Retry on JSON parsing errors as they might be due to incomplete responses
	errStr := err.Error()
	if strings.Contains(errStr, "json.Unmarshal") || strings.Contains(errStr, "unexpected end of JSON input") {
		return true
	}

	// Retry on network-related errors
	if strings.Contains(errStr, "connection refused") || strings.Contains(errStr, "i/o timeout") {
		return true
	}

	// Retry on 5xx errors (server errors)
	if strings.Contains(errStr, "response error 5") {
		return true
	}

	// Retry on rate limiting (429)
	if strings.Contains(errStr, "response error 429") {
		return true
	}

	return false
}

// Translate implements the inference.Client interface
func (client *Client) Translate(
	ctx context.Context,
	params inference.TranslateRequest,
) (translation.Translation, error) {
	if strings.TrimSpace(params.Text) == "" {
		return translation.Translation{}, errors.New("text to translate is empty")
	}

	var result translation.Translation
	if err := retry.Do(
		func() error {
			response, err := client.translate(ctx, params)
			if err != nil {
				if !isRetryableError(err) {
					return retry.Unrecoverable(err)
				}
				slog.Default().Warn("translation failed, will retry",
					"text", params.Text,
					"error", err)
				return err
			}
			result = response
			return nil
		},
		retry.Context(ctx),
		retry.Attempts(client.maxRetryAttempts+1),
		retry.LastErrorOnly(true),
		retry.DelayType(func(n uint, err error, config *retry.Config) time.Duration {
			return retry.BackOffDelay(n, err, config)
		}),
	); err != nil {
		return translation.Translation{}, err
	}
	return result, nil
}

const systemPrompt = `You are a bilingual dictionary. The user selects some text on a web page and wants to understand it.

Detect the language of the text. Answer in the target language given by the user.

Return ONLY one JSON object, without any text outside it, in one of these two shapes.

1. When the text is a single word, answer with a dictionary entry:
{
  "kind": "word",
  "word": "<the word in its dictionary form>",
  "verb_forms": ["<infinitive>", "<past>", "<past participle>"],
  "meanings": [
    {
      "pronunciation": "<IPA>" or {"US": {"ipa": "<IPA>", "tts_code": "en-US"}, "UK": {"ipa": "<IPA>", "tts_code": "en-GB"}},
      "part_of_speech": "<noun, verb, adjective, ...>",
      "definition": "<definition in the target language>",
      "synonyms": {"label": "<the word 'synonyms' in the target language>", "items": ["..."]},
      "examples": [{"text": "<example in the source language>", "translation": "<its translation>"}]
    }
  ],
  "source_language_code": "<code>",
  "target_language_code": "<code>",
  "source_tts_language_code": "<BCP 47 code for speech synthesis>",
  "target_tts_language_code": "<BCP 47 code for speech synthesis>"
}
Omit "verb_forms" unless the word is a verb. Use the dialect map for pronunciation only when dialects differ.

2. Otherwise, answer with a phrase translation:
{
  "kind": "phrase",
  "text": "<the original text>",
  "translation": "<the translation in the target language>",
  "source_language_code": "<code>",
  "target_language_code": "<code>",
  "source_tts_language_code": "<BCP 47 code>",
  "target_tts_language_code": "<BCP 47 code>"
}

Language codes are ISO 639-1 codes such as "en", "vi", or "ja".`

func (client *Client) getRequestBody(params inference.TranslateRequest) (ChatCompletionRequest, error) {
	userPrompt, err := json.Marshal(params)
	if err != nil {
		return ChatCompletionRequest{}, fmt.Errorf("json.Marshal > %w", err)
	}

	return ChatCompletionRequest{
		Model: client.model,
		Messages: []Message{
			{Role: RoleSystem, Content: systemPrompt},
			{Role: RoleUser, Content: string(userPrompt)},
		},
		Temperature:    0.2,
		ResponseFormat: &ResponseFormat{Type: "json_object"},
	}, nil
}

func (client *Client) translate(
	ctx context.Context,
	params inference.TranslateRequest,
) (translation.Translation, error) {
	requestBody, err := client.getRequestBody(params)
	if err != nil {
		return translation.Translation{}, fmt.Errorf("getRequestBody > %w", err)
	}

	response, err := client.httpClient.R().
		SetContext(ctx).
		SetBody(requestBody).
		SetResult(&ChatCompletionResponse{}).
		Post("/chat/completions")
	if err != nil {
		return translation.Translation{}, fmt.Errorf("httpClient.Post > %w", err)
	}
	if response.IsError() {
		return translation.Translation{}, fmt.Errorf("response error %d: %s", response.StatusCode(), response.String())
	}

	responseBody := response.Result().(*ChatCompletionResponse)
	if responseBody == nil || len(responseBody.Choices) == 0 {
		return translation.Translation{}, fmt.Errorf("empty response body or choices: %s", response.String())
	}

	content := responseBody.Choices[0].Message.Content
	if content == "" {
		return translation.Translation{}, fmt.Errorf("empty response content: %s", response.String())
	}
	slog.Default().Debug("openai response content",
		"text", params.Text,
		"targetLanguage", params.TargetLanguage,
		"content", content,
		"totalTokens", responseBody.Usage.TotalTokens,
	)

	payload, err := translation.ExtractJSON(content)
	if err != nil {
		return translation.Translation{}, fmt.Errorf("translation.ExtractJSON > %w", err)
	}
	decoded, err := translation.Decode([]byte(payload))
	if err != nil {
		slog.Default().Error("Failed to parse OpenAI response as JSON",
			"text", params.Text,
			"error", err)
		return translation.Translation{}, fmt.Errorf("json.Unmarshal(%s) > %w", payload, err)
	}
	if err := decoded.Validate(); err != nil {
		return translation.Translation{}, fmt.Errorf("translation.Validate(%s) > %w", payload, err)
	}
	return decoded, nil
}
