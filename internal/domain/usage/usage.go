package usage

// Period is the aggregation granularity.
type Period string

// Aggregation period constants.
const (
	PeriodDay   Period = "day"
	PeriodMonth Period = "month"
)

// ParsePeriod maps a query value to a Period, defaulting to month.
func ParsePeriod(s string) (Period, bool) {
	switch Period(s) {
	case PeriodDay:
		return PeriodDay, true
	case PeriodMonth, "":
		return PeriodMonth, true
	default:
		return "", false
	}
}

// Report is a provider token usage report for one budget period.
type Report struct {
	period           Period
	periodStart      int64
	periodEnd        int64
	tokensUsed       int64
	tokensLimit      int64
	tokensRemaining  int64
	costMillidollars int64
}

// NewReport creates a usage report. A limit of 0 means unlimited; remaining is then -1.
func NewReport(period Period, start, end, used, limit, remaining, costMillidollars int64) Report {
	return Report{
		period:           period,
		periodStart:      start,
		periodEnd:        end,
		tokensUsed:       used,
		tokensLimit:      limit,
		tokensRemaining:  remaining,
		costMillidollars: costMillidollars,
	}
}

// Period returns the aggregation granularity.
func (r Report) Period() Period { return r.period }

// PeriodStart returns the period start timestamp (unix millis).
func (r Report) PeriodStart() int64 { return r.periodStart }

// PeriodEnd returns the period end timestamp (unix millis), which is also when the budget resets.
func (r Report) PeriodEnd() int64 { return r.periodEnd }

// TokensUsed returns tokens consumed in the period.
func (r Report) TokensUsed() int64 { return r.tokensUsed }

// TokensLimit returns the token cap (0 = unlimited).
func (r Report) TokensLimit() int64 { return r.tokensLimit }

// TokensRemaining returns tokens left (-1 = unlimited).
func (r Report) TokensRemaining() int64 { return r.tokensRemaining }

// IsExhausted reports whether the budget is spent.
func (r Report) IsExhausted() bool { return r.tokensLimit > 0 && r.tokensRemaining <= 0 }

// CostMillidollars returns the estimated spend (1 USD = 1000).
func (r Report) CostMillidollars() int64 { return r.costMillidollars }
