package askweb

import "github.com/kailas-cloud/askweb/internal/domain"

// Sentinel errors re-exported from the domain layer.
// Use errors.Is() to check.
var (
	ErrValidation      = domain.ErrValidation
	ErrExternalService = domain.ErrExternalService
	ErrRecursionLimit  = domain.ErrRecursionLimit
	ErrBudgetExceeded  = domain.ErrBudgetExceeded
)

// RecursionLimitError is returned by Ask when the agent runs out of iterations.
type RecursionLimitError = domain.RecursionLimitError

// ExternalServiceError names the failing provider and, when known, its HTTP status.
type ExternalServiceError = domain.ExternalServiceError
