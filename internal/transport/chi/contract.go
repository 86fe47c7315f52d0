package chi

import (
	"context"

	"github.com/kailas-cloud/askweb/internal/domain"
	domusage "github.com/kailas-cloud/askweb/internal/domain/usage"
	agentuc "github.com/kailas-cloud/askweb/internal/usecase/agent"
	healthuc "github.com/kailas-cloud/askweb/internal/usecase/health"
)

// Answerer runs the retrieval-synthesis pipeline.
type Answerer interface {
	Search(ctx context.Context, query string) (domain.Answer, error)
}

// Agent runs the tool-calling loop.
type Agent interface {
	Run(ctx context.Context, req agentuc.Request) (agentuc.Result, error)
}

// UsageReporter builds token budget reports.
type UsageReporter interface {
	GetReport(ctx context.Context, period domusage.Period) domusage.Report
}

// HealthChecker aggregates dependency health.
type HealthChecker interface {
	Check(ctx context.Context) healthuc.Report
}
