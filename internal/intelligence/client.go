// Package intelligence wraps the AI completion service used by the retrieval
// engine: query expansion, record summaries, description and safety
// generation, regulation and sustainability derivation, and missing-property
// estimation.
//
// Every operation here is a fallible external provider.  Failures are
// returned as errors for the caller to recover from; nothing in this package
// panics or blocks search on AI availability.
package intelligence

import (
	"context"

	"github.com/openai/openai-go/v2"
	"github.com/openai/openai-go/v2/option"

	"github.com/matsource/matsource/internal/config"
	"github.com/matsource/matsource/internal/infrastructure/monitoring/logging"
	"github.com/matsource/matsource/pkg/errors"
)

// Completer is the minimal completion contract every AI step depends on.
// Tests substitute a scripted fake; production wires the OpenAI-backed
// implementation.
type Completer interface {
	// Complete sends a system+user prompt pair and returns the raw
	// response text of the first choice.
	Complete(ctx context.Context, system, user string) (string, error)
}

// openAICompleter is the production Completer backed by the OpenAI chat
// completions API (or any compatible endpoint via BaseURL).
type openAICompleter struct {
	client      openai.Client
	model       string
	maxTokens   int64
	temperature float64
	logger      logging.Logger
}

// disabledCompleter is wired when no API credential is configured.  Every
// call fails with CodeCompletionDisabled, which callers treat like any other
// provider failure.
type disabledCompleter struct{}

func (disabledCompleter) Complete(context.Context, string, string) (string, error) {
	return "", errors.New(errors.CodeCompletionDisabled, "no completion credential configured")
}

// NewCompleter constructs a Completer from configuration.  An empty APIKey
// yields a disabled completer rather than an error: search must keep working
// with degraded richness when AI is not configured.
func NewCompleter(cfg config.IntelligenceConfig, logger logging.Logger) Completer {
	if cfg.APIKey == "" {
		return disabledCompleter{}
	}

	opts := []option.RequestOption{option.WithAPIKey(cfg.APIKey)}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	if cfg.Timeout > 0 {
		opts = append(opts, option.WithRequestTimeout(cfg.Timeout))
	}

	return &openAICompleter{
		client:      openai.NewClient(opts...),
		model:       cfg.Model,
		maxTokens:   int64(cfg.MaxTokens),
		temperature: cfg.Temperature,
		logger:      logger.Named("completer"),
	}
}

func (c *openAICompleter) Complete(ctx context.Context, system, user string) (string, error) {
	resp, err := c.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: openai.ChatModel(c.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(system),
			openai.UserMessage(user),
		},
		MaxTokens:   openai.Int(c.maxTokens),
		Temperature: openai.Float(c.temperature),
	})
	if err != nil {
		return "", errors.Wrap(err, errors.CodeCompletionError, "completion request failed")
	}
	if len(resp.Choices) == 0 {
		return "", errors.New(errors.CodeCompletionError, "completion returned no choices")
	}
	return resp.Choices[0].Message.Content, nil
}
