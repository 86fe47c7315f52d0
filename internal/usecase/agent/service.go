package agent

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/kailas-cloud/askweb/internal/domain"
	domagent "github.com/kailas-cloud/askweb/internal/domain/agent"
	"github.com/kailas-cloud/askweb/internal/logger"
	"github.com/kailas-cloud/askweb/internal/metrics"
)

// DefaultMaxIterations bounds model decisions per run.
const DefaultMaxIterations = 5

// Config tunes the loop.
type Config struct {
	MaxIterations int
	StepTimeout   time.Duration
	ToolTimeout   time.Duration
	SystemPrompt  string
}

// Request is one question plus optional prior turns.
type Request struct {
	Question string
	History  []domagent.Message
}

// Result is the final answer and the tool rounds that led to it.
type Result struct {
	RunID  string
	Answer string
	Steps  []domagent.Step
}

// Service runs the tool-calling loop.
type Service struct {
	model ChatModel
	tools Tools
	cfg   Config
}

// New creates an agent service.
func New(model ChatModel, tools Tools, cfg Config) *Service {
	if cfg.MaxIterations <= 0 {
		cfg.MaxIterations = DefaultMaxIterations
	}
	return &Service{model: model, tools: tools, cfg: cfg}
}

// Run asks the model for decisions until it produces a final answer.
// Failed tool calls are fed back as observations; running out of iterations
// returns *domain.RecursionLimitError.
func (s *Service) Run(ctx context.Context, req Request) (Result, error) {
	question := strings.TrimSpace(req.Question)
	if question == "" {
		return Result{}, domain.NewValidationError("question must not be empty")
	}
	if err := validateHistory(req.History); err != nil {
		return Result{}, err
	}

	runID := uuid.NewString()
	ctx, log := logger.With(ctx, zap.String("run_id", runID))
	log.Debug("agent run started", zap.String("question", question), zap.Int("history", len(req.History)))

	conv := domagent.NewConversation(s.cfg.SystemPrompt, req.History, question)
	specs := s.tools.Specs()

	for i := 1; i <= s.cfg.MaxIterations; i++ {
		if err := ctx.Err(); err != nil {
			s.finish("error", i-1)
			return Result{}, domain.NewExternalServiceError("agent", err)
		}

		decision, err := s.decide(ctx, conv, specs)
		if err != nil {
			s.finish("error", i)
			if ctxErr := ctx.Err(); ctxErr != nil {
				return Result{}, domain.NewExternalServiceError("agent", ctxErr)
			}
			return Result{}, fmt.Errorf("agent step %d: %w", i, domain.AsExternal("llm", err))
		}

		if decision.Action.IsFinal() {
			s.finish("final_answer", i)
			log.Info("agent run finished", zap.Int("decisions", i), zap.Int("tool_calls", len(conv.Steps())))
			return Result{RunID: runID, Answer: decision.Action.Answer(), Steps: conv.Steps()}, nil
		}

		call := decision.Action.Call()
		obs := s.invoke(ctx, call)
		conv.Append(domagent.Step{Call: call, Observation: obs})
		log.Debug("tool round",
			zap.Int("step", i),
			zap.String("tool", call.Name),
			zap.Bool("failed", obs.Failed),
		)
	}

	s.finish("recursion_limit", s.cfg.MaxIterations)
	log.Warn("agent run hit the iteration limit", zap.Int("limit", s.cfg.MaxIterations))
	return Result{}, &domain.RecursionLimitError{Limit: s.cfg.MaxIterations}
}

func (s *Service) decide(
	ctx context.Context, conv *domagent.Conversation, specs []domagent.ToolSpec,
) (domagent.Decision, error) {
	if s.cfg.StepTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.StepTimeout)
		defer cancel()
	}
	return s.model.Decide(ctx, conv, specs)
}

// invoke never fails the run: errors become observations the model can react to.
func (s *Service) invoke(ctx context.Context, call domagent.ToolCall) domagent.Observation {
	if s.cfg.ToolTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.ToolTimeout)
		defer cancel()
	}

	out, err := s.tools.Invoke(ctx, call)
	if err != nil {
		msg := redactURLs(err)
		logger.FromContext(ctx).Warn("tool call failed", zap.String("tool", call.Name), zap.String("error", msg))
		return domagent.Observation{CallID: call.ID, Content: "error: " + msg, Failed: true}
	}
	return domagent.Observation{CallID: call.ID, Content: out}
}

func (s *Service) finish(outcome string, decisions int) {
	metrics.AgentRunsTotal.WithLabelValues(outcome).Inc()
	if decisions > 0 {
		metrics.AgentDecisions.Observe(float64(decisions))
	}
}

func validateHistory(history []domagent.Message) error {
	for i, m := range history {
		if m.Role != domagent.RoleUser && m.Role != domagent.RoleAssistant {
			return domain.NewValidationError("history[%d]: unsupported role %q", i, m.Role)
		}
	}
	return nil
}

// redactURLs renders err with query strings removed from any wrapped request URL.
// Observations are sent to the model provider and must not carry credentials.
func redactURLs(err error) string {
	msg := err.Error()
	var urlErr *url.Error
	if !errors.As(err, &urlErr) || urlErr.URL == "" {
		return msg
	}
	u, perr := url.Parse(urlErr.URL)
	if perr != nil {
		return strings.ReplaceAll(msg, urlErr.URL, "[redacted url]")
	}
	u.RawQuery = ""
	u.User = nil
	return strings.ReplaceAll(msg, urlErr.URL, u.String())
}
