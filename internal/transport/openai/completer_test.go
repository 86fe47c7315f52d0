package openai

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"go.uber.org/zap"

	"github.com/kailas-cloud/askweb/internal/domain"
)

func newTestCompleter(baseURL string) *Completer {
	return NewCompleter(&Config{APIKey: "test-key", BaseURL: baseURL, Model: "gpt-4", Logger: zap.NewNop()})
}

func TestCompleter_Complete(t *testing.T) {
	var got capturedChat
	srv := chatServer(t, `{"choices":[{"index":0,"message":{"role":"assistant","content":" Paris. \n"}}],
		"usage":{"prompt_tokens":30,"completion_tokens":2,"total_tokens":32}}`, &got)

	res, err := newTestCompleter(srv.URL).Complete(context.Background(), "capital of France?")
	if err != nil {
		t.Fatalf("Complete failed: %v", err)
	}
	if res.Text != "Paris." {
		t.Errorf("unexpected text %q", res.Text)
	}
	if res.Usage.TotalTokens != 32 || res.Usage.PromptTokens != 30 || res.Usage.CompletionTokens != 2 {
		t.Errorf("unexpected usage %+v", res.Usage)
	}
	if got.Model != "gpt-4" || len(got.Messages) != 1 || got.Messages[0].Content != "capital of France?" {
		t.Errorf("unexpected request %+v", got)
	}
	if len(got.Tools) != 0 {
		t.Error("completion must not declare tools")
	}
}

func TestCompleter_EmptyCompletion(t *testing.T) {
	srv := chatServer(t, `{"choices":[{"index":0,"message":{"role":"assistant","content":""}}]}`, nil)

	_, err := newTestCompleter(srv.URL).Complete(context.Background(), "q")
	if !errors.Is(err, domain.ErrExternalService) {
		t.Fatalf("expected ErrExternalService, got %v", err)
	}
}

func TestCompleter_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte(`{"detail":"upstream down"}`))
	}))
	defer srv.Close()

	_, err := newTestCompleter(srv.URL).Complete(context.Background(), "q")
	var ext *domain.ExternalServiceError
	if !errors.As(err, &ext) {
		t.Fatalf("expected *ExternalServiceError, got %v", err)
	}
	if ext.Status != http.StatusBadGateway {
		t.Errorf("expected status 502, got %d", ext.Status)
	}
}
