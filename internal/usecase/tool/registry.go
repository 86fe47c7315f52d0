package tool

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/sashabaranov/go-openai/jsonschema"

	"github.com/kailas-cloud/askweb/internal/domain"
	"github.com/kailas-cloud/askweb/internal/domain/agent"
	"github.com/kailas-cloud/askweb/internal/metrics"
)

// Handler is one callable tool.
type Handler interface {
	Name() string
	Description() string
	Schema() jsonschema.Definition
	// Call runs the tool on input that already passed schema validation.
	Call(ctx context.Context, input json.RawMessage) (string, error)
}

// Registry holds the tools offered to the model, in registration order.
type Registry struct {
	mu       sync.RWMutex
	handlers map[string]Handler
	specs    []agent.ToolSpec
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{handlers: make(map[string]Handler)}
}

// Register adds a tool. Names must be unique and non-blank.
func (r *Registry) Register(h Handler) error {
	name := strings.TrimSpace(h.Name())
	if name == "" {
		return domain.NewValidationError("tool name must not be empty")
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.handlers[name]; ok {
		return domain.NewValidationError("tool %q already registered", name)
	}
	params, err := json.Marshal(h.Schema())
	if err != nil {
		return fmt.Errorf("marshal %s schema: %w", name, err)
	}
	r.handlers[name] = h
	r.specs = append(r.specs, agent.ToolSpec{
		Name:        name,
		Description: h.Description(),
		Parameters:  params,
	})
	return nil
}

// Specs returns the declarations of all registered tools.
func (r *Registry) Specs() []agent.ToolSpec {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]agent.ToolSpec, len(r.specs))
	copy(out, r.specs)
	return out
}

// Invoke validates the call input against the tool schema and runs the tool.
func (r *Registry) Invoke(ctx context.Context, call agent.ToolCall) (string, error) {
	r.mu.RLock()
	h, ok := r.handlers[call.Name]
	r.mu.RUnlock()
	if !ok {
		metrics.ToolCallsTotal.WithLabelValues("unknown", "invalid").Inc()
		return "", domain.NewValidationError("unknown tool %q", call.Name)
	}

	var args map[string]any
	if err := jsonschema.VerifySchemaAndUnmarshal(h.Schema(), call.Input, &args); err != nil {
		metrics.ToolCallsTotal.WithLabelValues(call.Name, "invalid").Inc()
		return "", domain.NewValidationError("invalid input for tool %q: %v", call.Name, err)
	}

	out, err := h.Call(ctx, call.Input)
	if err != nil {
		metrics.ToolCallsTotal.WithLabelValues(call.Name, "error").Inc()
		return "", fmt.Errorf("tool %s: %w", call.Name, err)
	}
	metrics.ToolCallsTotal.WithLabelValues(call.Name, "success").Inc()
	return out, nil
}
