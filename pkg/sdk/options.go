package askweb

import (
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Option configures the Client.
type Option interface {
	apply(*clientConfig)
}

// optionFunc adapts a function to the Option interface.
type optionFunc func(*clientConfig)

func (f optionFunc) apply(c *clientConfig) { f(c) }

type clientConfig struct {
	openAIKey      string
	openAIBaseURL  string
	chatModel      string
	embeddingModel string

	serpAPIKey     string
	serpAPIBaseURL string
	location       string
	language       string

	anthropicKey   string
	anthropicModel string

	topK          int
	maxContext    int
	maxIterations int
	systemPrompt  string
	timeout       time.Duration

	dailyTokenLimit   int64
	monthlyTokenLimit int64

	logger     *slog.Logger
	metricsReg prometheus.Registerer
}

// WithOpenAI sets the OpenAI API key used for chat, embeddings and, by default, synthesis.
func WithOpenAI(apiKey string) Option {
	return optionFunc(func(c *clientConfig) {
		c.openAIKey = apiKey
	})
}

// WithOpenAIBaseURL points the client at an OpenAI-compatible endpoint.
func WithOpenAIBaseURL(baseURL string) Option {
	return optionFunc(func(c *clientConfig) {
		c.openAIBaseURL = baseURL
	})
}

// WithModels overrides the chat and embedding models. Empty values keep the defaults
// (gpt-4, text-embedding-3-small).
func WithModels(chat, embedding string) Option {
	return optionFunc(func(c *clientConfig) {
		if chat != "" {
			c.chatModel = chat
		}
		if embedding != "" {
			c.embeddingModel = embedding
		}
	})
}

// WithSerpAPI sets the SerpAPI key for web search.
func WithSerpAPI(apiKey string) Option {
	return optionFunc(func(c *clientConfig) {
		c.serpAPIKey = apiKey
	})
}

// WithSerpAPIBaseURL overrides the SerpAPI endpoint.
func WithSerpAPIBaseURL(baseURL string) Option {
	return optionFunc(func(c *clientConfig) {
		c.serpAPIBaseURL = baseURL
	})
}

// WithSearchLocale sets the search location and interface language, e.g. ("Poland", "pl").
func WithSearchLocale(location, language string) Option {
	return optionFunc(func(c *clientConfig) {
		c.location = location
		c.language = language
	})
}

// WithAnthropic synthesizes retrieval answers with Claude instead of OpenAI.
func WithAnthropic(apiKey, model string) Option {
	return optionFunc(func(c *clientConfig) {
		c.anthropicKey = apiKey
		c.anthropicModel = model
	})
}

// WithTopK sets how many ranked documents ground an answer. Default: 5.
func WithTopK(k int) Option {
	return optionFunc(func(c *clientConfig) {
		c.topK = k
	})
}

// WithMaxContextChars caps the context passed to the synthesizer. Default: 6000.
func WithMaxContextChars(n int) Option {
	return optionFunc(func(c *clientConfig) {
		c.maxContext = n
	})
}

// WithMaxIterations bounds agent decisions per Ask. Default: 5.
func WithMaxIterations(n int) Option {
	return optionFunc(func(c *clientConfig) {
		c.maxIterations = n
	})
}

// WithSystemPrompt replaces the agent instruction.
func WithSystemPrompt(prompt string) Option {
	return optionFunc(func(c *clientConfig) {
		c.systemPrompt = prompt
	})
}

// WithTimeout sets the per-request provider timeout. Default: 30s.
func WithTimeout(d time.Duration) Option {
	return optionFunc(func(c *clientConfig) {
		c.timeout = d
	})
}

// WithTokenBudget caps tokens per day and per month. Calls fail with
// ErrBudgetExceeded once a cap is reached. Zero means unlimited.
func WithTokenBudget(daily, monthly int64) Option {
	return optionFunc(func(c *clientConfig) {
		c.dailyTokenLimit = daily
		c.monthlyTokenLimit = monthly
	})
}

// WithLogger enables structured logging for SDK operations.
// Pass nil to disable (default). Uses standard library slog.
func WithLogger(l *slog.Logger) Option {
	return optionFunc(func(c *clientConfig) {
		c.logger = l
	})
}

// WithPrometheus registers SDK metrics (operation counts and durations)
// on the given registerer. Pass nil to disable (default).
func WithPrometheus(reg prometheus.Registerer) Option {
	return optionFunc(func(c *clientConfig) {
		c.metricsReg = reg
	})
}
