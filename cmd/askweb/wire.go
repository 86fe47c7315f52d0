package main

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/askweb/internal/config"
	dbRedis "github.com/kailas-cloud/askweb/internal/db/redis"
	budgetrepo "github.com/kailas-cloud/askweb/internal/repository/budget"
	anthropicTransport "github.com/kailas-cloud/askweb/internal/transport/anthropic"
	chiTransport "github.com/kailas-cloud/askweb/internal/transport/chi"
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
	budgetDailyTTL   = 48 * time.Hour
	budgetMonthlyTTL = 62 * 24 * time.Hour
)

// app is the assembled service graph shared by every command.
type app struct {
	cfg       config.Config
	logger    *zap.Logger
	retrieval *retrieval.Service
	agent     *agentuc.Service
	server    *chiTransport.Server
	closers   []func()
}

// Close releases connections in reverse order of acquisition.
func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}

// buildApp is the composition root.
func buildApp(ctx context.Context, cfg config.Config, logger *zap.Logger) (*app, error) {
	a := &app{cfg: cfg, logger: logger}

	var store *dbRedis.Store
	if cfg.Database.Enabled() {
		s, err := dbRedis.NewStore(dbRedis.Config{
			Addrs:    cfg.Database.Addrs,
			Password: cfg.Database.Password,
		})
		if err != nil {
			return nil, fmt.Errorf("create %s store: %w", cfg.Database.Driver, err)
		}
		a.closers = append(a.closers, s.Close)
		if err := s.WaitForReady(ctx, time.Duration(cfg.Database.ReadinessTimeout)*time.Second); err != nil {
			a.Close()
			return nil, fmt.Errorf("database not ready: %w", err)
		}
		logger.Info("Connected to database", zap.String("driver", cfg.Database.Driver))
		store = s
	}

	// One tracker is shared by every provider. Zero limits still count tokens for /usage.
	tracker := budget.NewTracker(
		cfg.Budget.DailyTokenLimit, cfg.Budget.MonthlyTokenLimit,
		budget.ParseAction(cfg.Budget.Action), logger,
	)
	if store != nil {
		tracker.WithStore(ctx, budgetrepo.New(store, cfg.Storage.KeyPrefix, budgetDailyTTL, budgetMonthlyTTL))
	}

	openaiTimeout := time.Duration(cfg.OpenAI.TimeoutSec) * time.Second
	embedder := embeddinguc.NewInstrumentedEmbedder(
		openaiTransport.NewEmbedder(&openaiTransport.Config{
			APIKey:     cfg.OpenAI.APIKey,
			BaseURL:    cfg.OpenAI.BaseURL,
			Model:      cfg.OpenAI.EmbeddingModel,
			Dimensions: cfg.OpenAI.EmbeddingDimensions,
			Timeout:    openaiTimeout,
			Logger:     logger,
		}),
		"openai", cfg.OpenAI.EmbeddingModel, tracker, logger,
	)

	completer := buildCompleter(cfg, tracker, logger)

	searcher := serpapi.NewClient(&serpapi.Config{
		APIKey:   cfg.Search.APIKey,
		BaseURL:  cfg.Search.BaseURL,
		Engine:   cfg.Search.Engine,
		Location: cfg.Search.Location,
		Language: cfg.Search.Language,
		Timeout:  time.Duration(cfg.Search.TimeoutSec) * time.Second,
		Logger:   logger,
	})

	a.retrieval = retrieval.New(
		searcher, embedder,
		retrieval.NewSynthesizer(completer, cfg.Retrieval.MaxContextChars),
		cfg.Retrieval.TopK,
	)

	registry := tool.NewRegistry()
	if err := registry.Register(tool.NewWebSearch(a.retrieval)); err != nil {
		a.Close()
		return nil, fmt.Errorf("register tools: %w", err)
	}

	chat := llm.NewInstrumentedChat(openaiTransport.NewChatModel(&openaiTransport.Config{
		APIKey:  cfg.OpenAI.APIKey,
		BaseURL: cfg.OpenAI.BaseURL,
		Model:   cfg.OpenAI.ChatModel,
		Timeout: openaiTimeout,
		Logger:  logger,
	}), tracker)

	a.agent = agentuc.New(chat, registry, agentuc.Config{
		MaxIterations: cfg.Agent.MaxIterations,
		StepTimeout:   time.Duration(cfg.Agent.StepTimeoutSec) * time.Second,
		ToolTimeout:   time.Duration(cfg.Agent.ToolTimeoutSec) * time.Second,
		SystemPrompt:  cfg.Agent.SystemPrompt,
	})

	// Pass a nil interface, not a typed nil pointer, when no store is configured.
	var pinger healthuc.DBPinger
	if store != nil {
		pinger = store
	}
	healthSvc := healthuc.New(pinger, embedder)
	usageSvc := usageuc.New(tracker, cfg.Budget.CostPerMillionTokens)

	a.server = chiTransport.NewServer(
		a.retrieval, a.agent, usageSvc, healthSvc,
		time.Duration(cfg.HTTP.RequestTimeoutSec)*time.Second, logger,
	)

	logger.Info("Providers configured",
		zap.String("chat_model", cfg.OpenAI.ChatModel),
		zap.String("embedding_model", cfg.OpenAI.EmbeddingModel),
		zap.String("synthesizer", cfg.Retrieval.Synthesizer),
		zap.Int("top_k", cfg.Retrieval.TopK),
		zap.Int("max_iterations", cfg.Agent.MaxIterations),
	)
	return a, nil
}

// buildCompleter picks the synthesis provider and wraps it with budget accounting.
func buildCompleter(cfg config.Config, tracker *budget.Tracker, logger *zap.Logger) *llm.InstrumentedCompleter {
	if cfg.Retrieval.Synthesizer == "anthropic" {
		return llm.NewInstrumentedCompleter(anthropicTransport.NewCompleter(&anthropicTransport.Config{
			APIKey:    cfg.Anthropic.APIKey,
			BaseURL:   cfg.Anthropic.BaseURL,
			Model:     cfg.Anthropic.Model,
			MaxTokens: int64(cfg.Anthropic.MaxTokens),
			Timeout:   time.Duration(cfg.OpenAI.TimeoutSec) * time.Second,
			Logger:    logger,
		}), "anthropic", tracker)
	}
	return llm.NewInstrumentedCompleter(openaiTransport.NewCompleter(&openaiTransport.Config{
		APIKey:  cfg.OpenAI.APIKey,
		BaseURL: cfg.OpenAI.BaseURL,
		Model:   cfg.OpenAI.SynthesisModel,
		Timeout: time.Duration(cfg.OpenAI.TimeoutSec) * time.Second,
		Logger:  logger,
	}), "openai", tracker)
}
