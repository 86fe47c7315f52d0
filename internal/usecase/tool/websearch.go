package tool

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/sashabaranov/go-openai/jsonschema"
	"go.uber.org/zap"

	"github.com/kailas-cloud/askweb/internal/domain"
	"github.com/kailas-cloud/askweb/internal/logger"
)

// WebSearchName is the tool name the model sees.
const WebSearchName = "web_search"

const queryDescription = `The information to look up on the internet.
Paraphrase it so that it is as easy as possible to find with a web search engine.
Always write it in the language of the conversation.
If the question is about the URL of a website, state explicitly that you mean the homepage of that site.`

// Answerer answers a search query from fresh web results.
type Answerer interface {
	Search(ctx context.Context, query string) (domain.Answer, error)
}

// WebSearch exposes the retrieval pipeline to the agent.
type WebSearch struct {
	answerer Answerer
}

// NewWebSearch creates the web search tool.
func NewWebSearch(a Answerer) *WebSearch {
	return &WebSearch{answerer: a}
}

func (w *WebSearch) Name() string { return WebSearchName }

func (w *WebSearch) Description() string {
	return "Looks up missing information on the internet."
}

func (w *WebSearch) Schema() jsonschema.Definition {
	return jsonschema.Definition{
		Type: jsonschema.Object,
		Properties: map[string]jsonschema.Definition{
			"query": {
				Type:        jsonschema.String,
				Description: queryDescription,
			},
		},
		Required: []string{"query"},
	}
}

type webSearchInput struct {
	Query string `json:"query"`
}

// Call runs the retrieval pipeline and returns the synthesized answer text.
func (w *WebSearch) Call(ctx context.Context, input json.RawMessage) (string, error) {
	var in webSearchInput
	if err := json.Unmarshal(input, &in); err != nil {
		return "", domain.NewValidationError("decode web_search input: %v", err)
	}
	q := strings.TrimSpace(in.Query)
	if q == "" {
		return "", domain.NewValidationError("query must not be empty")
	}

	log := logger.FromContext(ctx)
	log.Debug("asking the web", zap.String("query", q))

	ans, err := w.answerer.Search(ctx, q)
	if err != nil {
		return "", err
	}
	log.Debug("web answer", zap.String("query", q), zap.Int("sources", len(ans.Sources)))
	return ans.Text, nil
}
