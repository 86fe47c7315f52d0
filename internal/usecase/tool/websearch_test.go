package tool

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/kailas-cloud/askweb/internal/domain"
	"github.com/kailas-cloud/askweb/internal/logger"
)

func TestWebSearch_Call(t *testing.T) {
	a := &mockAnswerer{ans: domain.Answer{Text: "Warsaw"}}
	out, err := NewWebSearch(a).Call(context.Background(), json.RawMessage(`{"query":"  capital of Poland "}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out != "Warsaw" {
		t.Errorf("output = %q, want Warsaw", out)
	}
	if a.query != "capital of Poland" {
		t.Errorf("query = %q, want trimmed", a.query)
	}
}

func TestWebSearch_Call_QueryNotLoggedAtInfo(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	ctx := logger.ContextWithLogger(context.Background(), zap.New(core))

	a := &mockAnswerer{ans: domain.Answer{Text: "ok"}}
	if _, err := NewWebSearch(a).Call(ctx, json.RawMessage(`{"query":"private question"}`)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n := logs.FilterField(zap.String("query", "private question")).Len(); n != 0 {
		t.Errorf("query logged %d times at info or above", n)
	}
}

func TestWebSearch_Call_BlankQuery(t *testing.T) {
	a := &mockAnswerer{}
	_, err := NewWebSearch(a).Call(context.Background(), json.RawMessage(`{"query":"   "}`))
	if !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
	if a.calls != 0 {
		t.Errorf("pipeline must not run for a blank query, ran %d times", a.calls)
	}
}

func TestWebSearch_Call_BadJSON(t *testing.T) {
	_, err := NewWebSearch(&mockAnswerer{}).Call(context.Background(), json.RawMessage(`not json`))
	if !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
}

func TestWebSearch_Schema(t *testing.T) {
	s := NewWebSearch(nil).Schema()
	if len(s.Required) != 1 || s.Required[0] != "query" {
		t.Errorf("required = %v, want [query]", s.Required)
	}
	q, ok := s.Properties["query"]
	if !ok || q.Description == "" {
		t.Error("query property must carry a description")
	}
}
