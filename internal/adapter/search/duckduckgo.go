// Package search provides web search backends behind domain.WebSearcher.
package search

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"parley/internal/domain"
)

// maxSearchBody caps how much of a search response we read.
const maxSearchBody = 4 * 1024 * 1024

// DuckDuckGo queries the DuckDuckGo instant answer API. It needs no API key,
// which makes it the default backend.
type DuckDuckGo struct {
	baseURL string
	client  *http.Client
	logger  *slog.Logger
}

// NewDuckDuckGo creates the backend. baseURL is overridable for tests;
// empty uses the public endpoint.
func NewDuckDuckGo(baseURL string, timeout time.Duration, logger *slog.Logger) *DuckDuckGo {
	if baseURL == "" {
		baseURL = "https://api.duckduckgo.com"
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &DuckDuckGo{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
		logger:  logger,
	}
}

type ddgResponse struct {
	AbstractText  string     `json:"AbstractText"`
	AbstractURL   string     `json:"AbstractURL"`
	Heading       string     `json:"Heading"`
	RelatedTopics []ddgTopic `json:"RelatedTopics"`
}

type ddgTopic struct {
	Text     string     `json:"Text"`
	FirstURL string     `json:"FirstURL"`
	Topics   []ddgTopic `json:"Topics"`
}

// Search implements domain.WebSearcher.
func (d *DuckDuckGo) Search(ctx context.Context, query string, maxResults int) ([]domain.SearchResult, error) {
	if maxResults <= 0 {
		maxResults = 5
	}

	endpoint := fmt.Sprintf("%s/?q=%s&format=json&no_html=1&skip_disambig=1",
		d.baseURL, url.QueryEscape(query))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := d.client.Do(req)
	if err != nil {
		return nil, domain.NewDomainError("DuckDuckGo.Search", domain.ErrTransport, err.Error())
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, domain.NewDomainError("DuckDuckGo.Search", domain.ErrTransport,
			fmt.Sprintf("status %d", resp.StatusCode))
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxSearchBody))
	if err != nil {
		return nil, domain.NewDomainError("DuckDuckGo.Search", domain.ErrTransport, err.Error())
	}

	var ddg ddgResponse
	if err := json.Unmarshal(body, &ddg); err != nil {
		return nil, domain.NewDomainError("DuckDuckGo.Search", domain.ErrParse, err.Error())
	}

	var results []domain.SearchResult
	if ddg.AbstractText != "" {
		results = append(results, domain.SearchResult{
			Title:   ddg.Heading,
			URL:     ddg.AbstractURL,
			Snippet: ddg.AbstractText,
		})
	}
	results = append(results, flattenTopics(ddg.RelatedTopics)...)

	if len(results) > maxResults {
		results = results[:maxResults]
	}
	d.logger.Debug("web search completed", "backend", "duckduckgo", "query", query, "results", len(results))
	return results, nil
}

// flattenTopics walks nested topic groups into a flat result list.
func flattenTopics(topics []ddgTopic) []domain.SearchResult {
	var results []domain.SearchResult
	for _, t := range topics {
		if len(t.Topics) > 0 {
			results = append(results, flattenTopics(t.Topics)...)
			continue
		}
		if t.Text == "" {
			continue
		}
		results = append(results, domain.SearchResult{
			Title:   firstSentence(t.Text),
			URL:     t.FirstURL,
			Snippet: t.Text,
		})
	}
	return results
}

func firstSentence(s string) string {
	if i := strings.IndexAny(s, ".!?"); i > 0 && i < 80 {
		return s[:i+1]
	}
	if len(s) > 80 {
		return s[:80]
	}
	return s
}

// Compile-time interface check.
var _ domain.WebSearcher = (*DuckDuckGo)(nil)
