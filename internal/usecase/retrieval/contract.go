package retrieval

import (
	"context"

	"github.com/kailas-cloud/askweb/internal/domain"
)

// Searcher fetches web results for a query.
type Searcher interface {
	Fetch(ctx context.Context, query string) ([]domain.Document, error)
}

// Embedder vectorizes documents and the query in one batch.
type Embedder interface {
	BatchEmbed(ctx context.Context, texts []string) (domain.BatchEmbeddingResult, error)
}

// Completer produces the grounded answer from a rendered prompt.
type Completer interface {
	Complete(ctx context.Context, prompt string) (domain.Completion, error)
}
