package retrieval

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/kailas-cloud/askweb/internal/domain"
	"github.com/kailas-cloud/askweb/internal/logger"
	"github.com/kailas-cloud/askweb/internal/metrics"
)

// DefaultTopK is how many documents reach the synthesizer.
const DefaultTopK = 5

// Service runs the retrieval-synthesis pipeline: search, embed, rank, answer.
type Service struct {
	search Searcher
	embed  Embedder
	synth  *Synthesizer
	topK   int
}

// New creates a retrieval service. topK <= 0 selects DefaultTopK.
func New(search Searcher, embed Embedder, synth *Synthesizer, topK int) *Service {
	if topK <= 0 {
		topK = DefaultTopK
	}
	return &Service{search: search, embed: embed, synth: synth, topK: topK}
}

// Search answers query from fresh web results. Every call builds its own index.
func (s *Service) Search(ctx context.Context, query string) (domain.Answer, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return domain.Answer{}, domain.NewValidationError("query must not be empty")
	}
	log := logger.FromContext(ctx)

	docs, err := s.search.Fetch(ctx, query)
	if err != nil {
		return domain.Answer{}, fmt.Errorf("web search: %w", domain.AsExternal("search", err))
	}
	metrics.RetrievedDocuments.Observe(float64(len(docs)))
	if len(docs) == 0 {
		log.Debug("no search results", zap.String("query", query))
		return domain.Answer{Text: domain.FallbackAnswer, Sources: domain.RetrievedSet{}}, nil
	}

	texts := make([]string, 0, len(docs)+1)
	for _, d := range docs {
		texts = append(texts, d.Content)
	}
	texts = append(texts, query)

	emb, err := s.embed.BatchEmbed(ctx, texts)
	if err != nil {
		return domain.Answer{}, fmt.Errorf("embed documents: %w", domain.AsExternal("embedding", err))
	}
	if len(emb.Embeddings) != len(texts) {
		return domain.Answer{}, &domain.ExternalServiceError{
			Service: "embedding",
			Detail:  fmt.Sprintf("expected %d embeddings, got %d", len(texts), len(emb.Embeddings)),
		}
	}

	index, err := NewVectorIndex(docs, emb.Embeddings[:len(docs)])
	if err != nil {
		return domain.Answer{}, fmt.Errorf("build index: %w", err)
	}
	top := index.TopK(emb.Embeddings[len(docs)], s.topK)

	log.Debug("retrieved documents",
		zap.String("query", query),
		zap.Int("fetched", len(docs)),
		zap.Int("selected", len(top)),
	)

	text, err := s.synth.Synthesize(ctx, top, query)
	if err != nil {
		return domain.Answer{}, err
	}
	return domain.Answer{Text: text, Sources: top}, nil
}
