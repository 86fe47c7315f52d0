package agent

import (
	"context"

	domagent "github.com/kailas-cloud/askweb/internal/domain/agent"
)

// ChatModel picks the next action for a conversation.
type ChatModel interface {
	Decide(ctx context.Context, conv *domagent.Conversation, tools []domagent.ToolSpec) (domagent.Decision, error)
}

// Tools declares and runs the tools available to the model.
type Tools interface {
	Specs() []domagent.ToolSpec
	Invoke(ctx context.Context, call domagent.ToolCall) (string, error)
}
