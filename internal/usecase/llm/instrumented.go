// Package llm decorates model providers with budget enforcement and per-request usage.
package llm

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/askweb/internal/domain"
	"github.com/kailas-cloud/askweb/internal/domain/agent"
	"github.com/kailas-cloud/askweb/internal/logger"
)

// BudgetChecker is the local interface for budget enforcement.
type BudgetChecker interface {
	Check(ctx context.Context) error
	Record(tokens int64)
}

// ChatModel decides the next agent action.
type ChatModel interface {
	Decide(ctx context.Context, conv *agent.Conversation, tools []agent.ToolSpec) (agent.Decision, error)
}

// InstrumentedCompleter wraps a Completer with budget and usage accounting.
type InstrumentedCompleter struct {
	inner    domain.Completer
	provider string
	budget   BudgetChecker
}

// NewInstrumentedCompleter wraps inner. budget can be nil (unlimited).
func NewInstrumentedCompleter(inner domain.Completer, provider string, budget BudgetChecker) *InstrumentedCompleter {
	return &InstrumentedCompleter{inner: inner, provider: provider, budget: budget}
}

// Complete checks the budget, delegates and records token usage.
func (c *InstrumentedCompleter) Complete(ctx context.Context, prompt string) (domain.Completion, error) {
	if err := check(ctx, c.budget); err != nil {
		return domain.Completion{}, err
	}

	start := time.Now()
	res, err := c.inner.Complete(ctx, prompt)
	if err != nil {
		return domain.Completion{}, fmt.Errorf("complete: %w", err)
	}
	record(ctx, c.budget, res.Usage.TotalTokens)

	logger.FromContext(ctx).Debug("Completion finished",
		zap.String("provider", c.provider),
		zap.Duration("duration", time.Since(start)),
		zap.Int("prompt_chars", len(prompt)),
		zap.Int("total_tokens", res.Usage.TotalTokens),
	)
	return res, nil
}

// InstrumentedChat wraps a ChatModel with budget and usage accounting.
type InstrumentedChat struct {
	inner  ChatModel
	budget BudgetChecker
}

// NewInstrumentedChat wraps inner. budget can be nil (unlimited).
func NewInstrumentedChat(inner ChatModel, budget BudgetChecker) *InstrumentedChat {
	return &InstrumentedChat{inner: inner, budget: budget}
}

// Decide checks the budget, delegates and records token usage.
func (c *InstrumentedChat) Decide(
	ctx context.Context, conv *agent.Conversation, tools []agent.ToolSpec,
) (agent.Decision, error) {
	if err := check(ctx, c.budget); err != nil {
		return agent.Decision{}, err
	}

	d, err := c.inner.Decide(ctx, conv, tools)
	if err != nil {
		return agent.Decision{}, fmt.Errorf("decide: %w", err)
	}
	record(ctx, c.budget, d.Usage.TotalTokens)
	return d, nil
}

func check(ctx context.Context, b BudgetChecker) error {
	if b == nil {
		return nil
	}
	if err := b.Check(ctx); err != nil {
		return fmt.Errorf("budget check: %w", err)
	}
	return nil
}

func record(ctx context.Context, b BudgetChecker, tokens int) {
	domain.UsageFromContext(ctx).AddTokens(tokens)
	if b != nil {
		b.Record(int64(tokens))
	}
}
