package chi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/oapi-codegen/runtime"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/kailas-cloud/askweb/internal/domain"
	domagent "github.com/kailas-cloud/askweb/internal/domain/agent"
	domusage "github.com/kailas-cloud/askweb/internal/domain/usage"
	"github.com/kailas-cloud/askweb/internal/logger"
	agentuc "github.com/kailas-cloud/askweb/internal/usecase/agent"
	healthuc "github.com/kailas-cloud/askweb/internal/usecase/health"
)

const maxBodyBytes = 1 << 20

// ErrorCode is the machine-readable error code in error responses.
type ErrorCode string

// Error codes returned by the API.
const (
	ErrorCodeValidationFailed     ErrorCode = "validation_failed"
	ErrorCodeQuotaExceeded        ErrorCode = "quota_exceeded"
	ErrorCodeExternalServiceError ErrorCode = "external_service_error"
	ErrorCodeTimeout              ErrorCode = "timeout"
	ErrorCodeRecursionLimit       ErrorCode = "recursion_limit"
	ErrorCodeInternalError        ErrorCode = "internal_error"
)

// ErrorResponse is the body of every non-2xx JSON response.
type ErrorResponse struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
}

// SearchResponse is the body of GET /search.
type SearchResponse struct {
	Data string `json:"data"`
}

// AskRequest is the body of POST /.
type AskRequest struct {
	Question string           `json:"question"`
	History  []HistoryMessage `json:"history,omitempty"`
}

// HistoryMessage is one prior conversation turn.
type HistoryMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}

// UsageResponse is the body of GET /usage.
type UsageResponse struct {
	Period        string       `json:"period"`
	PeriodStartAt time.Time    `json:"period_start_at"`
	PeriodEndAt   time.Time    `json:"period_end_at"`
	Usage         UsageMetrics `json:"usage"`
	Budget        BudgetStatus `json:"budget"`
}

// UsageMetrics is token consumption for the period.
type UsageMetrics struct {
	Tokens           int64  `json:"tokens"`
	CostMillidollars *int64 `json:"cost_millidollars,omitempty"`
}

// BudgetStatus is the token cap state for the period.
type BudgetStatus struct {
	TokensLimit     int64     `json:"tokens_limit"`
	TokensRemaining int64     `json:"tokens_remaining"`
	IsExhausted     bool      `json:"is_exhausted"`
	ResetsAt        time.Time `json:"resets_at"`
}

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error, msg string) bool

// Server serves the question answering API.
type Server struct {
	answerer       Answerer
	agent          Agent
	usage          UsageReporter
	health         HealthChecker
	logger         *zap.Logger
	requestTimeout time.Duration
	errorHandlers  []errorHandler
}

// NewServer creates an HTTP API server. requestTimeout bounds each answering request; 0 disables it.
func NewServer(
	answerer Answerer,
	agent Agent,
	usage UsageReporter,
	health HealthChecker,
	requestTimeout time.Duration,
	logger *zap.Logger,
) *Server {
	s := &Server{
		answerer:       answerer,
		agent:          agent,
		usage:          usage,
		health:         health,
		logger:         logger,
		requestTimeout: requestTimeout,
	}
	s.errorHandlers = []errorHandler{
		sentinelHandler(context.DeadlineExceeded, http.StatusGatewayTimeout, ErrorCodeTimeout),
		sentinelHandler(domain.ErrValidation, http.StatusBadRequest, ErrorCodeValidationFailed),
		sentinelHandler(domain.ErrBudgetExceeded, http.StatusPaymentRequired, ErrorCodeQuotaExceeded),
		sentinelHandler(domain.ErrRecursionLimit, http.StatusLoopDetected, ErrorCodeRecursionLimit),
		sentinelHandler(domain.ErrExternalService, http.StatusBadGateway, ErrorCodeExternalServiceError),
	}
	return s
}

// Routes mounts all endpoints on r.
func (s *Server) Routes(r chi.Router) {
	r.Get("/search", s.Search)
	r.Post("/", s.Ask)
	r.Get("/health", s.HealthCheck)
	r.Get("/usage", s.GetUsage)
	r.Get("/metrics", s.Metrics)
}

// Search handles GET /search?q=.
func (s *Server) Search(w http.ResponseWriter, r *http.Request) {
	var q string
	if err := runtime.BindQueryParameter("form", true, true, "q", r.URL.Query(), &q); err != nil {
		writeError(w, http.StatusBadRequest, ErrorCodeValidationFailed, "Invalid format for parameter q: "+err.Error())
		return
	}
	if strings.TrimSpace(q) == "" {
		writeError(w, http.StatusBadRequest, ErrorCodeValidationFailed, "Parameter q must not be empty")
		return
	}

	ctx, cancel := s.withTimeout(r.Context())
	defer cancel()
	ctx, usage := domain.NewContextWithUsage(ctx)

	ans, err := s.answerer.Search(ctx, q)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	logger.FromContext(ctx).Info("search answered",
		zap.String("query", q),
		zap.Int("sources", len(ans.Sources)),
	)
	setTokenHeaders(w, usage)
	writeJSON(w, http.StatusOK, SearchResponse{Data: ans.Text})
}

// Ask handles POST / and answers through the agent loop.
func (s *Server) Ask(w http.ResponseWriter, r *http.Request) {
	var req AskRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, ErrorCodeValidationFailed, "Invalid request body: "+err.Error())
		return
	}
	if strings.TrimSpace(req.Question) == "" {
		writeError(w, http.StatusBadRequest, ErrorCodeValidationFailed, "Question is required")
		return
	}

	history := make([]domagent.Message, len(req.History))
	for i, h := range req.History {
		history[i] = domagent.Message{Role: domagent.Role(h.Role), Content: h.Content}
	}

	ctx, cancel := s.withTimeout(r.Context())
	defer cancel()
	ctx, usage := domain.NewContextWithUsage(ctx)

	res, err := s.agent.Run(ctx, agentuc.Request{Question: req.Question, History: history})
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	logger.FromContext(ctx).Info("question answered",
		zap.String("run_id", res.RunID),
		zap.Int("tool_calls", len(res.Steps)),
	)
	setTokenHeaders(w, usage)
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(res.Answer))
}

// GetUsage handles GET /usage.
func (s *Server) GetUsage(w http.ResponseWriter, r *http.Request) {
	var raw string
	if err := runtime.BindQueryParameter("form", true, false, "period", r.URL.Query(), &raw); err != nil {
		writeError(w, http.StatusBadRequest, ErrorCodeValidationFailed, "Invalid format for parameter period: "+err.Error())
		return
	}
	period, ok := domusage.ParsePeriod(raw)
	if !ok {
		writeError(w, http.StatusBadRequest, ErrorCodeValidationFailed, "period must be one of: day, month")
		return
	}

	report := s.usage.GetReport(r.Context(), period)

	resp := UsageResponse{
		Period:        string(report.Period()),
		PeriodStartAt: time.UnixMilli(report.PeriodStart()).UTC(),
		PeriodEndAt:   time.UnixMilli(report.PeriodEnd()).UTC(),
		Usage:         UsageMetrics{Tokens: report.TokensUsed()},
		Budget: BudgetStatus{
			TokensLimit:     report.TokensLimit(),
			TokensRemaining: report.TokensRemaining(),
			IsExhausted:     report.IsExhausted(),
			ResetsAt:        time.UnixMilli(report.PeriodEnd()).UTC(),
		},
	}
	if c := report.CostMillidollars(); c > 0 {
		resp.Usage.CostMillidollars = &c
	}

	writeJSON(w, http.StatusOK, resp)
}

// HealthCheck handles GET /health.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	checks := make(map[string]string, len(report.Checks))
	for k, v := range report.Checks {
		checks[k] = string(v)
	}

	httpStatus := http.StatusOK
	if report.Status != healthuc.Healthy {
		httpStatus = http.StatusServiceUnavailable
	}

	writeJSON(w, httpStatus, HealthResponse{
		Status: string(report.Status),
		Checks: checks,
	})
}

// Metrics handles GET /metrics.
func (s *Server) Metrics(w http.ResponseWriter, r *http.Request) {
	promhttp.Handler().ServeHTTP(w, r)
}

func (s *Server) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.requestTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.requestTimeout)
}

func setTokenHeaders(w http.ResponseWriter, usage *domain.Usage) {
	if usage.Used() {
		w.Header().Set("X-Tokens-Used", strconv.Itoa(usage.TotalTokens))
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code ErrorCode, message string) {
	writeJSON(w, status, ErrorResponse{
		Code:    code,
		Message: message,
	})
}

// safeDomainMessage returns a client-facing message without exposing provider internals.
// Validation and recursion errors describe the caller's request and are passed through.
func safeDomainMessage(err error) string {
	if errors.Is(err, domain.ErrValidation) || errors.Is(err, domain.ErrRecursionLimit) {
		return err.Error()
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return "request timed out"
	}
	var ext *domain.ExternalServiceError
	if errors.As(err, &ext) && ext.Service != "" {
		return ext.Service + ": " + domain.ErrExternalService.Error()
	}
	for _, s := range []error{domain.ErrBudgetExceeded, domain.ErrExternalService} {
		if errors.Is(err, s) {
			return s.Error()
		}
	}
	return "internal error"
}

// sentinelHandler returns an errorHandler that matches a single sentinel error.
func sentinelHandler(sentinel error, status int, code ErrorCode) errorHandler {
	return func(w http.ResponseWriter, err error, msg string) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		writeError(w, status, code, msg)
		return true
	}
}

func (s *Server) handleDomainError(w http.ResponseWriter, r *http.Request, err error) {
	log := logger.FromContext(r.Context())
	log.Warn("domain error", zap.Error(err))
	msg := safeDomainMessage(err)
	for _, h := range s.errorHandlers {
		if h(w, err, msg) {
			return
		}
	}
	log.Error("internal error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, ErrorCodeInternalError, "internal error")
}
