package askweb

import "time"

// Source is one ranked web result used to ground an answer.
type Source struct {
	Title string
	Link  string
	Score float64
}

// Answer is the result of a retrieval-synthesis pass.
type Answer struct {
	Text    string
	Sources []Source
}

// Role is the author of a prior conversation turn.
type Role string

// Role constants.
const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one prior conversation turn passed to Ask.
type Message struct {
	Role    Role
	Content string
}

// ToolCall records one tool invocation made by the agent.
type ToolCall struct {
	Tool   string
	Input  string
	Output string
	Failed bool
}

// Reply is the result of an agent run.
type Reply struct {
	RunID     string
	Text      string
	ToolCalls []ToolCall
}

// HealthStatus represents the aggregated provider health.
type HealthStatus struct {
	Status string            // "ok", "degraded"
	Checks map[string]string // component → "ok"/"error"
}

// UsagePeriod is the aggregation granularity for usage reports.
type UsagePeriod string

// UsagePeriod constants.
const (
	PeriodDay   UsagePeriod = "day"
	PeriodMonth UsagePeriod = "month"
)

// UsageReport contains token usage for a time period.
type UsageReport struct {
	Period           UsagePeriod
	PeriodStart      time.Time
	PeriodEnd        time.Time
	Tokens           int64
	CostMillidollars int64
	TokensLimit      int64
	TokensRemaining  int64 // -1 when unlimited
	IsExhausted      bool
}
