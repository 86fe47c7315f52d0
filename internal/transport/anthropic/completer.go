package anthropic

import (
	"context"
	"errors"
	"strings"
	"time"

	anthropic "github.com/anthropics/anthropic-sdk-go"
	anthropicopt "github.com/anthropics/anthropic-sdk-go/option"
	"go.uber.org/zap"

	"github.com/kailas-cloud/askweb/internal/domain"
	"github.com/kailas-cloud/askweb/internal/metrics"
)

const providerName = "anthropic"

// Config holds Anthropic Messages API settings.
type Config struct {
	APIKey    string
	BaseURL   string
	Model     string
	MaxTokens int64
	Timeout   time.Duration
	Logger    *zap.Logger
}

// Completer answers a single prompt through the Messages API.
type Completer struct {
	client    *anthropic.Client
	model     string
	maxTokens int64
	logger    *zap.Logger
}

// NewCompleter creates an Anthropic completion provider.
func NewCompleter(cfg *Config) *Completer {
	opts := []anthropicopt.RequestOption{
		anthropicopt.WithAPIKey(cfg.APIKey),
		anthropicopt.WithMaxRetries(0),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, anthropicopt.WithBaseURL(cfg.BaseURL))
	}
	if cfg.Timeout > 0 {
		opts = append(opts, anthropicopt.WithRequestTimeout(cfg.Timeout))
	}
	client := anthropic.NewClient(opts...)

	maxTokens := cfg.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 1024
	}
	return &Completer{
		client:    &client,
		model:     cfg.Model,
		maxTokens: maxTokens,
		logger:    cfg.Logger,
	}
}

// Complete implements domain.Completer.
func (c *Completer) Complete(ctx context.Context, prompt string) (domain.Completion, error) {
	req := anthropic.MessageNewParams{
		Model:     anthropic.Model(c.model),
		MaxTokens: c.maxTokens,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	}

	start := time.Now()
	rsp, err := c.client.Messages.New(ctx, req)
	status := "success"
	if err != nil {
		status = "error"
	}
	metrics.ProviderRequestsTotal.WithLabelValues(providerName, "complete", status).Inc()
	metrics.ProviderRequestDuration.WithLabelValues(providerName, "complete").Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.ProviderErrorsTotal.WithLabelValues(providerName, "complete", "api_error").Inc()
		return domain.Completion{}, parseAPIError(err)
	}

	var b strings.Builder
	for _, content := range rsp.Content {
		if text, ok := content.AsAny().(anthropic.TextBlock); ok {
			b.WriteString(text.Text)
		}
	}
	result := strings.TrimSpace(b.String())
	if result == "" {
		metrics.ProviderErrorsTotal.WithLabelValues(providerName, "complete", "empty_response").Inc()
		return domain.Completion{}, &domain.ExternalServiceError{Service: providerName, Detail: "no text in response"}
	}

	in, out := int(rsp.Usage.InputTokens), int(rsp.Usage.OutputTokens)
	metrics.ProviderTokensTotal.WithLabelValues(providerName, c.model, "prompt").Add(float64(in))
	metrics.ProviderTokensTotal.WithLabelValues(providerName, c.model, "completion").Add(float64(out))
	metrics.ProviderTokensTotal.WithLabelValues(providerName, c.model, "total").Add(float64(in + out))

	return domain.Completion{
		Text: result,
		Usage: domain.TokenUsage{
			PromptTokens:     in,
			CompletionTokens: out,
			TotalTokens:      in + out,
		},
	}, nil
}

func parseAPIError(err error) error {
	var apiErr *anthropic.Error
	if errors.As(err, &apiErr) {
		return &domain.ExternalServiceError{
			Service: providerName,
			Status:  apiErr.StatusCode,
			Detail:  apiErr.Error(),
		}
	}
	return domain.NewExternalServiceError(providerName, err)
}
