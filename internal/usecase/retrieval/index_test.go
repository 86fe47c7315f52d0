package retrieval

import (
	"errors"
	"math"
	"testing"

	"github.com/kailas-cloud/askweb/internal/domain"
)

func doc(title string) domain.Document {
	return domain.NewDocument(title, "snippet", "https://"+title+".example", "", nil)
}

func TestCosine(t *testing.T) {
	tests := []struct {
		name string
		a, b []float32
		want float64
	}{
		{"identical", []float32{1, 2, 3}, []float32{1, 2, 3}, 1},
		{"orthogonal", []float32{1, 0}, []float32{0, 1}, 0},
		{"opposite", []float32{1, 0}, []float32{-1, 0}, -1},
		{"zero norm", []float32{0, 0}, []float32{1, 1}, 0},
		{"dimension mismatch", []float32{1, 0}, []float32{1, 0, 0}, 0},
		{"empty", nil, nil, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := cosine(tt.a, tt.b); math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("cosine() = %f, want %f", got, tt.want)
			}
		})
	}
}

func TestNewVectorIndex_DimensionMismatch(t *testing.T) {
	_, err := NewVectorIndex(
		[]domain.Document{doc("a"), doc("b")},
		[][]float32{{1, 0}, {1, 0, 0}},
	)
	if !errors.Is(err, domain.ErrExternalService) {
		t.Fatalf("expected ErrExternalService, got %v", err)
	}
}

func TestNewVectorIndex_CountMismatch(t *testing.T) {
	_, err := NewVectorIndex([]domain.Document{doc("a")}, nil)
	if !errors.Is(err, domain.ErrExternalService) {
		t.Fatalf("expected ErrExternalService, got %v", err)
	}
}

func TestTopK_RanksBySimilarity(t *testing.T) {
	idx, err := NewVectorIndex(
		[]domain.Document{doc("far"), doc("close"), doc("mid")},
		[][]float32{{0, 1}, {1, 0}, {1, 1}},
	)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got := idx.TopK([]float32{1, 0}, 2)
	if len(got) != 2 {
		t.Fatalf("expected 2 results, got %d", len(got))
	}
	if got[0].Document.Title != "close" || got[1].Document.Title != "mid" {
		t.Errorf("unexpected order: %s, %s", got[0].Document.Title, got[1].Document.Title)
	}
	if got[0].Score < got[1].Score {
		t.Error("scores must be non-increasing")
	}
}

func TestTopK_StableTies(t *testing.T) {
	idx, err := NewVectorIndex(
		[]domain.Document{doc("first"), doc("second"), doc("third")},
		[][]float32{{1, 0}, {2, 0}, {3, 0}},
	)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got := idx.TopK([]float32{1, 0}, 3)
	for i, want := range []string{"first", "second", "third"} {
		if got[i].Document.Title != want {
			t.Errorf("position %d = %s, want %s", i, got[i].Document.Title, want)
		}
	}
}

func TestTopK_Bounds(t *testing.T) {
	idx, err := NewVectorIndex([]domain.Document{doc("a"), doc("b")}, [][]float32{{1}, {1}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got := idx.TopK([]float32{1}, 0); len(got) != 0 {
		t.Errorf("k=0 must return empty set, got %d", len(got))
	}
	if got := idx.TopK([]float32{1}, -3); len(got) != 0 {
		t.Errorf("negative k must return empty set, got %d", len(got))
	}
	if got := idx.TopK([]float32{1}, 5); len(got) != 2 {
		t.Errorf("k above size must return all documents, got %d", len(got))
	}

	empty, _ := NewVectorIndex(nil, nil)
	if got := empty.TopK([]float32{1}, 5); got == nil || len(got) != 0 {
		t.Errorf("empty index must return an empty non-nil set, got %v", got)
	}
}
