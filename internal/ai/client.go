// Package ai is the boundary to the external generative-language service: a single text prompt goes in and the
// reply text comes out. Interpreting the reply is the caller's job.
package ai

import (
	"context"
	"log/slog"
	"strings"

	"github.com/myrjola/rexcoach/internal/errors"
	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
)

// ErrEmptyReply is returned when the service answers without any text content.
var ErrEmptyReply = errors.NewSentinel("empty reply from generative service")

// ErrNotConfigured is returned by every call of a client without an API key.
var ErrNotConfigured = errors.NewSentinel("generative service not configured")

// Client completes a prompt.
type Client interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// Config configures the OpenAI-compatible client.
type Config struct {
	APIKey string
	// BaseURL overrides the API endpoint. Empty means the SDK default.
	BaseURL    string
	Model      string
	MaxRetries int
}

// OpenAIClient talks to an OpenAI-compatible chat completions API.
type OpenAIClient struct {
	client     openai.Client
	model      string
	configured bool
	logger     *slog.Logger
}

const systemPrompt = "You are an experienced strength and conditioning coach. " +
	"Reply with a single JSON object and nothing else."

// NewOpenAIClient creates a client. A missing API key yields a client that fails every call with ErrNotConfigured
// so that callers exercise their failure paths instead of the process refusing to start.
func NewOpenAIClient(cfg Config, logger *slog.Logger) *OpenAIClient {
	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithMaxRetries(cfg.MaxRetries),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(strings.TrimSuffix(cfg.BaseURL, "/")+"/"))
	}
	return &OpenAIClient{
		client:     openai.NewClient(opts...),
		model:      cfg.Model,
		configured: cfg.APIKey != "",
		logger:     logger,
	}
}

// Complete sends prompt as a user message and returns the content of the first choice.
func (c *OpenAIClient) Complete(ctx context.Context, prompt string) (string, error) {
	if !c.configured {
		return "", ErrNotConfigured
	}

	params := openai.ChatCompletionNewParams{ //nolint:exhaustruct // only need to set a few fields.
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(systemPrompt),
			openai.UserMessage(prompt),
		},
		Model: openai.ChatModel(c.model),
	}

	c.logger.LogAttrs(ctx, slog.LevelDebug, "sending chat completion request",
		slog.String("model", c.model), slog.Int("prompt_length", len(prompt)))

	completion, err := c.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return "", errors.Wrap(err, "chat completion", slog.String("model", c.model))
	}

	c.logger.LogAttrs(ctx, slog.LevelDebug, "received chat completion response",
		slog.Int64("completion_tokens", completion.Usage.CompletionTokens),
		slog.Int64("prompt_tokens", completion.Usage.PromptTokens),
		slog.Int("choices", len(completion.Choices)))

	if len(completion.Choices) == 0 || strings.TrimSpace(completion.Choices[0].Message.Content) == "" {
		return "", ErrEmptyReply
	}
	return completion.Choices[0].Message.Content, nil
}
