package openai

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/kailas-cloud/askweb/internal/domain"
	"github.com/kailas-cloud/askweb/internal/metrics"
)

const providerName = "openai"

// Config holds the OpenAI-compatible provider settings shared by all clients in this package.
type Config struct {
	APIKey     string
	BaseURL    string
	Model      string
	Dimensions int
	User       string
	Timeout    time.Duration
	Logger     *zap.Logger
}

func newClient(cfg *Config) *openai.Client {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	if cfg.Timeout > 0 {
		clientCfg.HTTPClient = &http.Client{Timeout: cfg.Timeout}
	}
	return openai.NewClientWithConfig(clientCfg)
}

func observe(operation string, start time.Time, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	metrics.ProviderRequestsTotal.WithLabelValues(providerName, operation, status).Inc()
	metrics.ProviderRequestDuration.WithLabelValues(providerName, operation).Observe(time.Since(start).Seconds())
}

func observeFailure(operation, errorType string) {
	metrics.ProviderErrorsTotal.WithLabelValues(providerName, operation, errorType).Inc()
}

func observeTokens(model string, u openai.Usage) {
	if u.TotalTokens <= 0 {
		return
	}
	metrics.ProviderTokensTotal.WithLabelValues(providerName, model, "prompt").Add(float64(u.PromptTokens))
	metrics.ProviderTokensTotal.WithLabelValues(providerName, model, "completion").Add(float64(u.CompletionTokens))
	metrics.ProviderTokensTotal.WithLabelValues(providerName, model, "total").Add(float64(u.TotalTokens))
}

func usageOf(u openai.Usage) domain.TokenUsage {
	return domain.TokenUsage{
		PromptTokens:     u.PromptTokens,
		CompletionTokens: u.CompletionTokens,
		TotalTokens:      u.TotalTokens,
	}
}

// parseAPIError converts a go-openai failure into a domain.ExternalServiceError
// with the provider status and a human-readable detail.
func parseAPIError(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return &domain.ExternalServiceError{
			Service: providerName,
			Status:  apiErr.HTTPStatusCode,
			Detail:  apiErr.Message,
		}
	}

	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		detail := extractDetail(reqErr.Body)
		if detail == "" {
			detail = string(reqErr.Body)
		}
		return &domain.ExternalServiceError{
			Service: providerName,
			Status:  reqErr.HTTPStatusCode,
			Detail:  detail,
		}
	}

	return domain.NewExternalServiceError(providerName, err)
}

// extractDetail extracts the "detail" or "error.message" field from a JSON error body.
func extractDetail(body []byte) string {
	var parsed struct {
		Detail string `json:"detail"`
		Error  struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if json.Unmarshal(body, &parsed) != nil {
		return ""
	}
	if parsed.Detail != "" {
		return parsed.Detail
	}
	return parsed.Error.Message
}
