package openai

import (
	"context"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/kailas-cloud/askweb/internal/domain"
)

// Completer answers a single prompt through the chat completions API.
type Completer struct {
	client *openai.Client
	model  string
	user   string
	logger *zap.Logger
}

// NewCompleter creates a single-turn completion provider.
func NewCompleter(cfg *Config) *Completer {
	return &Completer{
		client: newClient(cfg),
		model:  cfg.Model,
		user:   cfg.User,
		logger: cfg.Logger,
	}
}

// Complete implements domain.Completer.
func (c *Completer) Complete(ctx context.Context, prompt string) (domain.Completion, error) {
	req := openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		Temperature: 0,
		User:        c.user,
	}

	start := time.Now()
	resp, err := c.client.CreateChatCompletion(ctx, req)
	observe("complete", start, err)
	if err != nil {
		observeFailure("complete", "api_error")
		return domain.Completion{}, parseAPIError(err)
	}

	if len(resp.Choices) == 0 || strings.TrimSpace(resp.Choices[0].Message.Content) == "" {
		observeFailure("complete", "empty_response")
		return domain.Completion{}, &domain.ExternalServiceError{Service: providerName, Detail: "empty completion"}
	}
	observeTokens(c.model, resp.Usage)

	return domain.Completion{
		Text:  strings.TrimSpace(resp.Choices[0].Message.Content),
		Usage: usageOf(resp.Usage),
	}, nil
}
