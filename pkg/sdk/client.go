package askweb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/askweb/internal/config"
	"github.com/kailas-cloud/askweb/internal/domain"
	domagent "github.com/kailas-cloud/askweb/internal/domain/agent"
	domusage "github.com/kailas-cloud/askweb/internal/domain/usage"
	anthropicTransport "github.com/kailas-cloud/askweb/internal/transport/anthropic"
	openaiTransport "github.com/kailas-cloud/askweb/internal/transport/openai"
	"github.com/kailas-cloud/askweb/internal/transport/serpapi"
	agentuc "github.com/kailas-cloud/askweb/internal/usecase/agent"
	"github.com/kailas-cloud/askweb/internal/usecase/budget"
	embeddinguc "github.com/kailas-cloud/askweb/internal/usecase/embedding"
	healthuc "github.com/kailas-cloud/askweb/internal/usecase/health"
	"github.com/kailas-cloud/askweb/internal/usecase/llm"
	"github.com/kailas-cloud/askweb/internal/usecase/retrieval"
	"github.com/kailas-cloud/askweb/internal/usecase/tool"
	usageuc "github.com/kailas-cloud/askweb/internal/usecase/usage"
)

const (
	defaultChatModel      = "gpt-4"
	defaultEmbeddingModel = "text-embedding-3-small"
	defaultAnthropicModel = "claude-3-5-haiku-latest"
	defaultSerpAPIBaseURL = "https://serpapi.com"
	defaultSearchEngine   = "google"
	defaultTimeout        = 30 * time.Second
)

// Internal interfaces for substitution in tests.
type answerUseCase interface {
	Search(ctx context.Context, query string) (domain.Answer, error)
}

type agentUseCase interface {
	Run(ctx context.Context, req agentuc.Request) (agentuc.Result, error)
}

type healthUseCase interface {
	Check(ctx context.Context) healthuc.Report
}

type usageUseCase interface {
	GetReport(ctx context.Context, period domusage.Period) domusage.Report
}

// Client is the askweb SDK entry point. It is safe for concurrent use.
type Client struct {
	answerSvc answerUseCase
	agentSvc  agentUseCase
	healthSvc healthUseCase
	usageSvc  usageUseCase
	obs       *observer
}

// New creates a Client. WithOpenAI and WithSerpAPI are required.
func New(opts ...Option) (*Client, error) {
	cfg := &clientConfig{
		chatModel:      defaultChatModel,
		embeddingModel: defaultEmbeddingModel,
		serpAPIBaseURL: defaultSerpAPIBaseURL,
		timeout:        defaultTimeout,
		systemPrompt:   config.DefaultSystemPrompt,
	}
	for _, o := range opts {
		o.apply(cfg)
	}
	if cfg.anthropicKey != "" && cfg.anthropicModel == "" {
		cfg.anthropicModel = defaultAnthropicModel
	}

	if cfg.openAIKey == "" {
		return nil, errors.New("askweb: OpenAI API key required (use WithOpenAI)")
	}
	if cfg.serpAPIKey == "" {
		return nil, errors.New("askweb: SerpAPI key required (use WithSerpAPI)")
	}

	obs, err := newObserver(cfg.logger, cfg.metricsReg)
	if err != nil {
		return nil, err
	}
	return wireClient(cfg, obs)
}

func wireClient(cfg *clientConfig, obs *observer) (*Client, error) {
	// Provider internals log through zap; the SDK reports through its own observer.
	nop := zap.NewNop()

	tracker := budget.NewTracker(cfg.dailyTokenLimit, cfg.monthlyTokenLimit, budget.ActionReject, nop)

	embedder := embeddinguc.NewInstrumentedEmbedder(
		openaiTransport.NewEmbedder(&openaiTransport.Config{
			APIKey:  cfg.openAIKey,
			BaseURL: cfg.openAIBaseURL,
			Model:   cfg.embeddingModel,
			Timeout: cfg.timeout,
			Logger:  nop,
		}),
		"openai", cfg.embeddingModel, tracker, nop,
	)

	var completer *llm.InstrumentedCompleter
	if cfg.anthropicKey != "" {
		completer = llm.NewInstrumentedCompleter(anthropicTransport.NewCompleter(&anthropicTransport.Config{
			APIKey:  cfg.anthropicKey,
			Model:   cfg.anthropicModel,
			Timeout: cfg.timeout,
			Logger:  nop,
		}), "anthropic", tracker)
	} else {
		completer = llm.NewInstrumentedCompleter(openaiTransport.NewCompleter(&openaiTransport.Config{
			APIKey:  cfg.openAIKey,
			BaseURL: cfg.openAIBaseURL,
			Model:   cfg.chatModel,
			Timeout: cfg.timeout,
			Logger:  nop,
		}), "openai", tracker)
	}

	searcher := serpapi.NewClient(&serpapi.Config{
		APIKey:   cfg.serpAPIKey,
		BaseURL:  cfg.serpAPIBaseURL,
		Engine:   defaultSearchEngine,
		Location: cfg.location,
		Language: cfg.language,
		Timeout:  cfg.timeout,
		Logger:   nop,
	})

	answerSvc := retrieval.New(searcher, embedder, retrieval.NewSynthesizer(completer, cfg.maxContext), cfg.topK)

	registry := tool.NewRegistry()
	if err := registry.Register(tool.NewWebSearch(answerSvc)); err != nil {
		return nil, fmt.Errorf("askweb: register tools: %w", err)
	}

	chat := llm.NewInstrumentedChat(openaiTransport.NewChatModel(&openaiTransport.Config{
		APIKey:  cfg.openAIKey,
		BaseURL: cfg.openAIBaseURL,
		Model:   cfg.chatModel,
		Timeout: cfg.timeout,
		Logger:  nop,
	}), tracker)

	agentSvc := agentuc.New(chat, registry, agentuc.Config{
		MaxIterations: cfg.maxIterations,
		StepTimeout:   cfg.timeout,
		ToolTimeout:   2 * cfg.timeout,
		SystemPrompt:  cfg.systemPrompt,
	})

	return &Client{
		answerSvc: answerSvc,
		agentSvc:  agentSvc,
		healthSvc: healthuc.New(nil, embedder),
		usageSvc:  usageuc.New(tracker, 0),
		obs:       obs,
	}, nil
}

// Search answers query with one retrieval-synthesis pass.
func (c *Client) Search(ctx context.Context, query string) (ans Answer, err error) {
	start := time.Now()
	ctx, usage := domain.NewContextWithUsage(ctx)
	defer func() { c.obs.observe("search", start, usage.TotalTokens, err) }()

	res, err := c.answerSvc.Search(ctx, query)
	if err != nil {
		return Answer{}, fmt.Errorf("search: %w", err)
	}
	return toAnswer(res), nil
}

// Ask answers question through the tool-calling agent. history holds prior turns, oldest first.
func (c *Client) Ask(ctx context.Context, question string, history ...Message) (reply Reply, err error) {
	start := time.Now()
	ctx, usage := domain.NewContextWithUsage(ctx)
	defer func() { c.obs.observe("ask", start, usage.TotalTokens, err) }()

	msgs := make([]domagent.Message, len(history))
	for i, m := range history {
		msgs[i] = domagent.Message{Role: domagent.Role(m.Role), Content: m.Content}
	}

	res, err := c.agentSvc.Run(ctx, agentuc.Request{Question: question, History: msgs})
	if err != nil {
		return Reply{}, fmt.Errorf("ask: %w", err)
	}
	return toReply(res), nil
}

// Health checks provider reachability.
func (c *Client) Health(ctx context.Context) HealthStatus {
	start := time.Now()
	defer func() { c.obs.observe("health", start, 0, nil) }()

	report := c.healthSvc.Check(ctx)
	checks := make(map[string]string, len(report.Checks))
	for k, v := range report.Checks {
		checks[k] = string(v)
	}
	return HealthStatus{
		Status: string(report.Status),
		Checks: checks,
	}
}

// Usage returns token consumption for the given period since the Client was created.
// Unknown periods report the current month.
func (c *Client) Usage(ctx context.Context, period UsagePeriod) UsageReport {
	report := c.usageSvc.GetReport(ctx, domusage.Period(period))
	return UsageReport{
		Period:           UsagePeriod(report.Period()),
		PeriodStart:      time.UnixMilli(report.PeriodStart()).UTC(),
		PeriodEnd:        time.UnixMilli(report.PeriodEnd()).UTC(),
		Tokens:           report.TokensUsed(),
		CostMillidollars: report.CostMillidollars(),
		TokensLimit:      report.TokensLimit(),
		TokensRemaining:  report.TokensRemaining(),
		IsExhausted:      report.IsExhausted(),
	}
}

func toAnswer(a domain.Answer) Answer {
	sources := make([]Source, len(a.Sources))
	for i, s := range a.Sources {
		sources[i] = Source{
			Title: s.Document.Title,
			Link:  s.Document.Metadata.Link,
			Score: s.Score,
		}
	}
	return Answer{Text: a.Text, Sources: sources}
}

func toReply(r agentuc.Result) Reply {
	calls := make([]ToolCall, len(r.Steps))
	for i, s := range r.Steps {
		calls[i] = ToolCall{
			Tool:   s.Call.Name,
			Input:  string(s.Call.Input),
			Output: s.Observation.Content,
			Failed: s.Observation.Failed,
		}
	}
	return Reply{RunID: r.RunID, Text: r.Answer, ToolCalls: calls}
}
