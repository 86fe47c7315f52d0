package serpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/askweb/internal/domain"
	"github.com/kailas-cloud/askweb/internal/metrics"
)

const (
	providerName = "serpapi"

	// noResultsMessage is how SerpAPI reports an empty result page with HTTP 200.
	noResultsMessage = "hasn't returned any results"

	maxBodyBytes = 4 << 20
)

// Config holds SerpAPI settings.
type Config struct {
	APIKey   string
	BaseURL  string
	Engine   string
	Location string
	Language string
	Timeout  time.Duration
	Logger   *zap.Logger
}

// Client fetches organic web results from SerpAPI.
type Client struct {
	http     *http.Client
	baseURL  string
	apiKey   string
	engine   string
	location string
	language string
	logger   *zap.Logger
}

// NewClient creates a SerpAPI client.
func NewClient(cfg *Config) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		http:     &http.Client{Timeout: timeout},
		baseURL:  strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:   cfg.APIKey,
		engine:   cfg.Engine,
		location: cfg.Location,
		language: cfg.Language,
		logger:   logger,
	}
}

type searchResponse struct {
	Error          string          `json:"error"`
	OrganicResults []organicResult `json:"organic_results"`
}

type organicResult struct {
	Position                int      `json:"position"`
	Title                   string   `json:"title"`
	Link                    string   `json:"link"`
	Snippet                 string   `json:"snippet"`
	Source                  string   `json:"source"`
	SnippetHighlightedWords []string `json:"snippet_highlighted_words"`
}

// Fetch runs a web search and returns the organic hits as documents, in engine order.
func (c *Client) Fetch(ctx context.Context, query string) ([]domain.Document, error) {
	start := time.Now()
	docs, err := c.fetch(ctx, query)

	status := "success"
	if err != nil {
		status = "error"
	}
	metrics.ProviderRequestsTotal.WithLabelValues(providerName, "search", status).Inc()
	metrics.ProviderRequestDuration.WithLabelValues(providerName, "search").Observe(time.Since(start).Seconds())

	if err != nil {
		c.logger.Warn("web search failed", zap.String("query", query), zap.Error(err))
		return nil, err
	}
	c.logger.Debug("web search done", zap.String("query", query), zap.Int("results", len(docs)))
	return docs, nil
}

func (c *Client) fetch(ctx context.Context, query string) ([]domain.Document, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.searchURL(query), http.NoBody)
	if err != nil {
		return nil, domain.NewExternalServiceError(providerName, fmt.Errorf("build request: %w", c.stripQuery(err)))
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		metrics.ProviderErrorsTotal.WithLabelValues(providerName, "search", "transport").Inc()
		return nil, domain.NewExternalServiceError(providerName, c.stripQuery(err))
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		metrics.ProviderErrorsTotal.WithLabelValues(providerName, "search", "read_body").Inc()
		return nil, domain.NewExternalServiceError(providerName, fmt.Errorf("read body: %w", err))
	}

	var parsed searchResponse
	decodeErr := json.Unmarshal(body, &parsed)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		metrics.ProviderErrorsTotal.WithLabelValues(providerName, "search", "status").Inc()
		detail := parsed.Error
		if decodeErr != nil || detail == "" {
			detail = http.StatusText(resp.StatusCode)
		}
		return nil, &domain.ExternalServiceError{Service: providerName, Status: resp.StatusCode, Detail: detail}
	}
	if decodeErr != nil {
		metrics.ProviderErrorsTotal.WithLabelValues(providerName, "search", "decode").Inc()
		return nil, domain.NewExternalServiceError(providerName, fmt.Errorf("decode response: %w", decodeErr))
	}

	if parsed.Error != "" {
		if strings.Contains(parsed.Error, noResultsMessage) {
			return []domain.Document{}, nil
		}
		metrics.ProviderErrorsTotal.WithLabelValues(providerName, "search", "api_error").Inc()
		return nil, &domain.ExternalServiceError{Service: providerName, Status: resp.StatusCode, Detail: parsed.Error}
	}

	return toDocuments(parsed.OrganicResults), nil
}

func (c *Client) searchURL(query string) string {
	q := url.Values{}
	q.Set("engine", c.engine)
	if c.location != "" {
		q.Set("location", c.location)
	}
	if c.language != "" {
		q.Set("hl", c.language)
	}
	q.Set("api_key", c.apiKey)
	q.Set("q", query)
	return c.baseURL + "/search.json?" + q.Encode()
}

func toDocuments(hits []organicResult) []domain.Document {
	docs := make([]domain.Document, 0, len(hits))
	for _, h := range hits {
		if strings.TrimSpace(h.Title) == "" && strings.TrimSpace(h.Snippet) == "" {
			continue
		}
		docs = append(docs, domain.NewDocument(h.Title, h.Snippet, h.Link, h.Source, h.SnippetHighlightedWords))
	}
	return docs
}

// stripQuery drops the query string from transport errors; it carries api_key.
func (c *Client) stripQuery(err error) error {
	var urlErr *url.Error
	if !errors.As(err, &urlErr) {
		return err
	}
	return &url.Error{Op: urlErr.Op, URL: c.baseURL + "/search.json", Err: urlErr.Err}
}
