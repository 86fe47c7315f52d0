package anthropic

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"go.uber.org/zap"

	"github.com/kailas-cloud/askweb/internal/domain"
	"github.com/kailas-cloud/askweb/internal/metrics"
)

func TestMain(m *testing.M) {
	metrics.Register()
	os.Exit(m.Run())
}

func newTestCompleter(baseURL string) *Completer {
	return NewCompleter(&Config{
		APIKey:  "test-key",
		BaseURL: baseURL,
		Model:   "claude-3-5-haiku-latest",
		Logger:  zap.NewNop(),
	})
}

func TestCompleter_Complete(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/messages" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		if r.Header.Get("X-Api-Key") != "test-key" {
			t.Errorf("unexpected api key header: %q", r.Header.Get("X-Api-Key"))
		}
		var body struct {
			Model     string `json:"model"`
			MaxTokens int    `json:"max_tokens"`
			Messages  []struct {
				Role string `json:"role"`
			} `json:"messages"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if body.MaxTokens != 1024 || len(body.Messages) != 1 || body.Messages[0].Role != "user" {
			t.Errorf("unexpected request %+v", body)
		}

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"id":"msg_1","type":"message","role":"assistant","model":"claude-3-5-haiku-latest",
			"content":[{"type":"text","text":"Warsaw "},{"type":"text","text":"is the capital."}],
			"stop_reason":"end_turn",
			"usage":{"input_tokens":40,"output_tokens":6}}`))
	}))
	defer srv.Close()

	res, err := newTestCompleter(srv.URL).Complete(context.Background(), "capital of Poland?")
	if err != nil {
		t.Fatalf("Complete failed: %v", err)
	}
	if res.Text != "Warsaw is the capital." {
		t.Errorf("unexpected text %q", res.Text)
	}
	if res.Usage.TotalTokens != 46 || res.Usage.PromptTokens != 40 {
		t.Errorf("unexpected usage %+v", res.Usage)
	}
}

func TestCompleter_EmptyContent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"msg_1","type":"message","role":"assistant","content":[],
			"usage":{"input_tokens":1,"output_tokens":0}}`))
	}))
	defer srv.Close()

	_, err := newTestCompleter(srv.URL).Complete(context.Background(), "q")
	if !errors.Is(err, domain.ErrExternalService) {
		t.Fatalf("expected ErrExternalService, got %v", err)
	}
}

func TestCompleter_APIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"type":"error","error":{"type":"authentication_error","message":"invalid x-api-key"}}`))
	}))
	defer srv.Close()

	_, err := newTestCompleter(srv.URL).Complete(context.Background(), "q")
	var ext *domain.ExternalServiceError
	if !errors.As(err, &ext) {
		t.Fatalf("expected *ExternalServiceError, got %v", err)
	}
	if ext.Status != http.StatusUnauthorized {
		t.Errorf("expected status 401, got %d", ext.Status)
	}
}
