package openai

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"
	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/kailas-cloud/askweb/internal/domain"
	"github.com/kailas-cloud/askweb/internal/domain/agent"
)

// ChatModel drives the agent loop through the chat completions API with function tools.
type ChatModel struct {
	client *openai.Client
	model  string
	user   string
	logger *zap.Logger
}

// NewChatModel creates a tool-calling chat model.
func NewChatModel(cfg *Config) *ChatModel {
	return &ChatModel{
		client: newClient(cfg),
		model:  cfg.Model,
		user:   cfg.User,
		logger: cfg.Logger,
	}
}

// Decide sends the conversation and tool declarations and maps the reply to one agent action.
// The first tool call wins; a reply without tool calls is the final answer.
func (m *ChatModel) Decide(
	ctx context.Context, conv *agent.Conversation, tools []agent.ToolSpec,
) (agent.Decision, error) {
	req := openai.ChatCompletionRequest{
		Model:    m.model,
		Messages: buildMessages(conv),
		User:     m.user,
	}
	if len(tools) > 0 {
		req.Tools = buildTools(tools)
		req.ParallelToolCalls = false
	}

	start := time.Now()
	resp, err := m.client.CreateChatCompletion(ctx, req)
	observe("chat", start, err)
	if err != nil {
		observeFailure("chat", "api_error")
		return agent.Decision{}, parseAPIError(err)
	}
	if len(resp.Choices) == 0 {
		observeFailure("chat", "empty_response")
		return agent.Decision{}, &domain.ExternalServiceError{Service: providerName, Detail: "no choices in response"}
	}
	observeTokens(m.model, resp.Usage)

	msg := resp.Choices[0].Message
	usage := usageOf(resp.Usage)

	if len(msg.ToolCalls) > 0 {
		tc := msg.ToolCalls[0]
		id := tc.ID
		if id == "" {
			id = "call_" + uuid.NewString()
		}
		return agent.Decision{
			Action: agent.NewToolCall(agent.ToolCall{
				ID:    id,
				Name:  tc.Function.Name,
				Input: rawArguments(tc.Function.Arguments),
			}),
			Usage: usage,
		}, nil
	}

	content := strings.TrimSpace(msg.Content)
	if content == "" {
		observeFailure("chat", "empty_response")
		return agent.Decision{}, &domain.ExternalServiceError{
			Service: providerName,
			Detail:  "reply has neither content nor tool calls",
		}
	}
	return agent.Decision{Action: agent.NewFinalAnswer(content), Usage: usage}, nil
}

// buildMessages renders the conversation as system, history, user, then one
// assistant tool call and one tool result per scratchpad step.
func buildMessages(conv *agent.Conversation) []openai.ChatCompletionMessage {
	history := conv.History()
	steps := conv.Steps()
	msgs := make([]openai.ChatCompletionMessage, 0, 2+len(history)+2*len(steps))

	if s := conv.SystemInstruction(); s != "" {
		msgs = append(msgs, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleSystem, Content: s})
	}
	for _, h := range history {
		role := openai.ChatMessageRoleUser
		if h.Role == agent.RoleAssistant {
			role = openai.ChatMessageRoleAssistant
		}
		msgs = append(msgs, openai.ChatCompletionMessage{Role: role, Content: h.Content})
	}
	msgs = append(msgs, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, Content: conv.UserInput()})

	for _, st := range steps {
		msgs = append(msgs,
			openai.ChatCompletionMessage{
				Role: openai.ChatMessageRoleAssistant,
				ToolCalls: []openai.ToolCall{{
					ID:   st.Call.ID,
					Type: openai.ToolTypeFunction,
					Function: openai.FunctionCall{
						Name:      st.Call.Name,
						Arguments: string(st.Call.Input),
					},
				}},
			},
			openai.ChatCompletionMessage{
				Role:       openai.ChatMessageRoleTool,
				Content:    st.Observation.Content,
				ToolCallID: st.Call.ID,
			},
		)
	}
	return msgs
}

func buildTools(specs []agent.ToolSpec) []openai.Tool {
	tools := make([]openai.Tool, len(specs))
	for i, s := range specs {
		tools[i] = openai.Tool{
			Type: openai.ToolTypeFunction,
			Function: &openai.FunctionDefinition{
				Name:        s.Name,
				Description: s.Description,
				Parameters:  s.Parameters,
			},
		}
	}
	return tools
}

// rawArguments keeps the model's argument string as JSON. Invalid JSON is passed
// through as a JSON string so the tool registry reports it as a validation failure.
func rawArguments(args string) json.RawMessage {
	if json.Valid([]byte(args)) {
		return json.RawMessage(args)
	}
	quoted, _ := json.Marshal(args)
	return quoted
}
