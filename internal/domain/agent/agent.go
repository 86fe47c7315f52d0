// Package agent holds the value types of the tool-calling loop: the conversation,
// the model's decision at each step and the observations fed back to it.
package agent

import (
	"encoding/json"

	"github.com/kailas-cloud/askweb/internal/domain"
)

// Role is the author of a conversation message.
type Role string

// Message roles carried in prior history.
const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is a single prior turn of the conversation.
type Message struct {
	Role    Role
	Content string
}

// ToolSpec is how a tool is advertised to the model. Parameters is a JSON Schema object.
type ToolSpec struct {
	Name        string
	Description string
	Parameters  json.RawMessage
}

// ToolCall is the model's request to invoke a tool.
type ToolCall struct {
	ID    string
	Name  string
	Input json.RawMessage
}

// Kind discriminates the two possible model decisions.
type Kind int

const (
	// KindToolCall means the model asked for a tool invocation.
	KindToolCall Kind = iota + 1
	// KindFinalAnswer means the model answered the user.
	KindFinalAnswer
)

// Action is exactly one of a tool call or a final answer.
type Action struct {
	kind   Kind
	call   ToolCall
	answer string
}

// NewToolCall creates an action requesting a tool invocation.
func NewToolCall(call ToolCall) Action {
	return Action{kind: KindToolCall, call: call}
}

// NewFinalAnswer creates an action terminating the loop with text.
func NewFinalAnswer(text string) Action {
	return Action{kind: KindFinalAnswer, answer: text}
}

// Kind returns the action discriminator.
func (a Action) Kind() Kind { return a.kind }

// IsFinal reports whether the action ends the loop.
func (a Action) IsFinal() bool { return a.kind == KindFinalAnswer }

// Call returns the tool call. Only meaningful for KindToolCall.
func (a Action) Call() ToolCall { return a.call }

// Answer returns the final answer text. Only meaningful for KindFinalAnswer.
func (a Action) Answer() string { return a.answer }

// Observation is what a tool invocation produced, success or failure.
type Observation struct {
	CallID  string
	Content string
	Failed  bool
}

// Step is one completed tool round: the call and its observation.
type Step struct {
	Call        ToolCall
	Observation Observation
}

// Decision is one model turn: the chosen action and the tokens it cost.
type Decision struct {
	Action Action
	Usage  domain.TokenUsage
}

// Conversation is the state threaded through the loop. History and the user input are fixed
// at construction; the scratchpad only grows.
type Conversation struct {
	systemInstruction string
	history           []Message
	userInput         string
	scratchpad        []Step
}

// NewConversation creates a conversation with an empty scratchpad.
func NewConversation(systemInstruction string, history []Message, userInput string) *Conversation {
	h := make([]Message, len(history))
	copy(h, history)
	return &Conversation{
		systemInstruction: systemInstruction,
		history:           h,
		userInput:         userInput,
	}
}

// SystemInstruction returns the fixed instruction text.
func (c *Conversation) SystemInstruction() string { return c.systemInstruction }

// History returns a copy of the prior turns.
func (c *Conversation) History() []Message {
	out := make([]Message, len(c.history))
	copy(out, c.history)
	return out
}

// UserInput returns the question being answered.
func (c *Conversation) UserInput() string { return c.userInput }

// Append records a completed tool round.
func (c *Conversation) Append(step Step) {
	c.scratchpad = append(c.scratchpad, step)
}

// Steps returns a copy of the scratchpad.
func (c *Conversation) Steps() []Step {
	out := make([]Step, len(c.scratchpad))
	copy(out, c.scratchpad)
	return out
}
