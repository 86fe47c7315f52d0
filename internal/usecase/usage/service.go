package usage

import (
	"context"
	"time"

	domusage "github.com/kailas-cloud/askweb/internal/domain/usage"
)

// Service handles usage reporting.
type Service struct {
	br             BudgetReader
	costPerMillion float64
	now            func() time.Time
}

// New creates a Service. br can be nil (unlimited mode). costPerMillion is the
// USD price of one million tokens used for the spend estimate; 0 disables it.
func New(br BudgetReader, costPerMillion float64) *Service {
	return &Service{br: br, costPerMillion: costPerMillion, now: time.Now}
}

// GetReport builds a usage report for the given period.
func (s *Service) GetReport(_ context.Context, period domusage.Period) domusage.Report {
	now := s.now().UTC()
	var start, end time.Time
	var limit, used, remaining int64 = 0, 0, -1

	switch period {
	case domusage.PeriodDay:
		start = time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
		end = start.AddDate(0, 0, 1)
		if s.br != nil {
			limit = s.br.DailyLimit()
			used = s.br.DailyUsed()
			remaining = s.br.RemainingDaily()
		}
	default:
		period = domusage.PeriodMonth
		start = time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
		end = start.AddDate(0, 1, 0)
		if s.br != nil {
			limit = s.br.MonthlyLimit()
			used = s.br.MonthlyUsed()
			remaining = s.br.RemainingMonthly()
		}
	}

	return domusage.NewReport(period, start.UnixMilli(), end.UnixMilli(), used, limit, remaining, s.cost(used))
}

// cost converts tokens to millidollars.
func (s *Service) cost(tokens int64) int64 {
	if s.costPerMillion <= 0 || tokens <= 0 {
		return 0
	}
	return int64(float64(tokens) * s.costPerMillion / 1000)
}
