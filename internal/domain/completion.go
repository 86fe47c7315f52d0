package domain

import "context"

// TokenUsage is the token accounting reported by a single model call.
type TokenUsage struct {
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
}

// Add returns the sum of two usages.
func (u TokenUsage) Add(o TokenUsage) TokenUsage {
	return TokenUsage{
		PromptTokens:     u.PromptTokens + o.PromptTokens,
		CompletionTokens: u.CompletionTokens + o.CompletionTokens,
		TotalTokens:      u.TotalTokens + o.TotalTokens,
	}
}

// Completion is a single text reply from a language model.
type Completion struct {
	Text  string
	Usage TokenUsage
}

// Completer turns a prompt into a model reply.
type Completer interface {
	Complete(ctx context.Context, prompt string) (Completion, error)
}
