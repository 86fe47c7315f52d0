package retrieval

import (
	"fmt"
	"math"
	"sort"

	"github.com/kailas-cloud/askweb/internal/domain"
)

// VectorIndex is a request-scoped, in-memory index of documents and their embeddings.
// It is built once and only read afterwards.
type VectorIndex struct {
	docs []domain.Document
	vecs [][]float32
	dim  int
}

// NewVectorIndex pairs documents with their vectors. All vectors must share one dimension;
// a mismatch means the embedding provider misbehaved.
func NewVectorIndex(docs []domain.Document, vecs [][]float32) (*VectorIndex, error) {
	if len(docs) != len(vecs) {
		return nil, &domain.ExternalServiceError{
			Service: "embedding",
			Detail:  fmt.Sprintf("%d documents but %d vectors", len(docs), len(vecs)),
		}
	}
	idx := &VectorIndex{docs: docs, vecs: vecs}
	for i, v := range vecs {
		if i == 0 {
			idx.dim = len(v)
			continue
		}
		if len(v) != idx.dim {
			return nil, &domain.ExternalServiceError{
				Service: "embedding",
				Detail:  fmt.Sprintf("vector %d has dimension %d, expected %d", i, len(v), idx.dim),
			}
		}
	}
	return idx, nil
}

// Len returns the number of indexed documents.
func (x *VectorIndex) Len() int { return len(x.docs) }

// TopK returns up to k documents ranked by cosine similarity to query, best first.
// Equal scores keep the original document order.
func (x *VectorIndex) TopK(query []float32, k int) domain.RetrievedSet {
	if k <= 0 || len(x.docs) == 0 {
		return domain.RetrievedSet{}
	}

	scored := make(domain.RetrievedSet, len(x.docs))
	for i, d := range x.docs {
		scored[i] = domain.Scored{Document: d, Score: cosine(query, x.vecs[i])}
	}

	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Score > scored[j].Score
	})

	if len(scored) > k {
		scored = scored[:k]
	}
	return scored
}

// cosine returns 0 for mismatched dimensions or a zero-norm operand.
func cosine(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		na += x * x
		nb += y * y
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
