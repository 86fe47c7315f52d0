package domain

import (
	"context"
	"errors"
	"testing"
)

type stubEmbedder struct {
	results map[string][]float32
	err     error
	calls   int
}

func (s *stubEmbedder) Embed(_ context.Context, text string) (EmbeddingResult, error) {
	s.calls++
	if s.err != nil {
		return EmbeddingResult{}, s.err
	}
	return EmbeddingResult{Embedding: s.results[text], PromptTokens: 2, TotalTokens: 3}, nil
}

func TestBatchFallback_PreservesOrderAndSumsUsage(t *testing.T) {
	inner := &stubEmbedder{results: map[string][]float32{
		"a": {1, 0},
		"b": {0, 1},
	}}

	res, err := BatchFallback(context.Background(), inner, []string{"a", "b"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if inner.calls != 2 {
		t.Errorf("expected 2 calls, got %d", inner.calls)
	}
	if res.Embeddings[0][0] != 1 || res.Embeddings[1][1] != 1 {
		t.Errorf("embeddings out of order: %v", res.Embeddings)
	}
	if res.PromptTokens != 4 || res.TotalTokens != 6 {
		t.Errorf("unexpected usage: prompt=%d total=%d", res.PromptTokens, res.TotalTokens)
	}
}

func TestBatchFallback_ErrorPropagation(t *testing.T) {
	innerErr := errors.New("provider down")
	inner := &stubEmbedder{err: innerErr}

	_, err := BatchFallback(context.Background(), inner, []string{"a"})
	if !errors.Is(err, innerErr) {
		t.Errorf("expected wrapped inner error, got %v", err)
	}
}

func TestNewDocument_ContentFormat(t *testing.T) {
	kw := []string{"go", "lang"}
	doc := NewDocument("Go", "A programming language", "https://go.dev", "go.dev", kw)

	want := "Go. A programming language. Link: https://go.dev"
	if doc.Content != want {
		t.Errorf("content = %q, want %q", doc.Content, want)
	}
	if doc.Metadata.Link != "https://go.dev" || doc.Metadata.Source != "go.dev" {
		t.Errorf("unexpected metadata: %+v", doc.Metadata)
	}

	kw[0] = "mutated"
	if doc.Metadata.Keywords[0] != "go" {
		t.Error("document keywords must not alias the caller's slice")
	}
}

func TestRetrievedSet_Documents(t *testing.T) {
	set := RetrievedSet{
		{Document: Document{Content: "first"}, Score: 0.9},
		{Document: Document{Content: "second"}, Score: 0.5},
	}
	docs := set.Documents()
	if len(docs) != 2 || docs[0].Content != "first" || docs[1].Content != "second" {
		t.Errorf("unexpected documents: %+v", docs)
	}
}

func TestExternalServiceError_Unwrap(t *testing.T) {
	cause := context.DeadlineExceeded
	err := error(&ExternalServiceError{Service: "serpapi", Status: 503, Err: cause})

	if !errors.Is(err, ErrExternalService) {
		t.Error("expected ErrExternalService")
	}
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Error("expected cause to be preserved")
	}

	var ese *ExternalServiceError
	if !errors.As(err, &ese) || ese.Status != 503 {
		t.Errorf("expected ExternalServiceError with status 503, got %v", err)
	}
}

func TestAsExternal_KeepsKnownSentinels(t *testing.T) {
	validation := NewValidationError("query is required")
	if got := AsExternal("openai", validation); got != validation {
		t.Errorf("validation error should pass through, got %v", got)
	}

	raw := errors.New("boom")
	got := AsExternal("openai", raw)
	if !errors.Is(got, ErrExternalService) || !errors.Is(got, raw) {
		t.Errorf("expected wrapped external error, got %v", got)
	}
}

func TestRecursionLimitError(t *testing.T) {
	err := error(&RecursionLimitError{Limit: 5})
	if !errors.Is(err, ErrRecursionLimit) {
		t.Error("expected ErrRecursionLimit")
	}
	if err.Error() != "recursion limit reached: no final answer after 5 iterations" {
		t.Errorf("unexpected message: %q", err.Error())
	}
}

func TestUsage_NilSafe(t *testing.T) {
	var u *Usage
	u.AddTokens(10)
	if u.Used() {
		t.Error("nil usage must report unused")
	}

	ctx, collector := NewContextWithUsage(context.Background())
	UsageFromContext(ctx).AddTokens(7)
	UsageFromContext(ctx).AddTokens(3)
	if collector.TotalTokens != 10 || collector.Calls != 2 || !collector.Used() {
		t.Errorf("unexpected usage: %+v", collector)
	}
}
