package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"
)

const (
	tavilyBaseURL    = "https://api.tavily.com"
	tavilyMaxRetries = 3
	tavilyRetryDelay = 2 * time.Second
)

// Tavily is a client for the Tavily search API. Raw page content is
// requested and preferred over the pre-summarized snippet.
type Tavily struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
}

// NewTavily creates a client. baseURL is overridable for tests; empty
// selects the production endpoint.
func NewTavily(apiKey, baseURL string) *Tavily {
	if baseURL == "" {
		baseURL = tavilyBaseURL
	}
	return &Tavily{
		apiKey:  apiKey,
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
	}
}

type tavilyRequest struct {
	APIKey            string `json:"api_key"`
	Query             string `json:"query"`
	MaxResults        int    `json:"max_results"`
	IncludeAnswer     bool   `json:"include_answer"`
	IncludeImages     bool   `json:"include_images"`
	IncludeRawContent bool   `json:"include_raw_content"`
}

type tavilyResponse struct {
	Results []struct {
		Title      string  `json:"title"`
		URL        string  `json:"url"`
		Content    string  `json:"content"`
		RawContent string  `json:"raw_content"`
		Score      float64 `json:"score"`
	} `json:"results"`
}

// Search queries Tavily and returns up to limit results.
func (t *Tavily) Search(ctx context.Context, query string, limit int) ([]Result, error) {
	if t.apiKey == "" {
		return nil, fmt.Errorf("search: tavily api key not configured")
	}
	if limit <= 0 {
		limit = 10
	}

	body, err := json.Marshal(tavilyRequest{
		APIKey:            t.apiKey,
		Query:             query,
		MaxResults:        limit,
		IncludeRawContent: true,
	})
	if err != nil {
		return nil, fmt.Errorf("search: marshal tavily request: %w", err)
	}

	data, err := t.post(ctx, t.baseURL+"/search", body)
	if err != nil {
		return nil, err
	}

	var parsed tavilyResponse
	if err := json.Unmarshal(data, &parsed); err != nil {
		return nil, fmt.Errorf("search: decode tavily response: %w", err)
	}

	results := make([]Result, 0, len(parsed.Results))
	for _, item := range parsed.Results {
		content := item.RawContent
		if content == "" {
			content = item.Content
		}
		results = append(results, Result{
			Title:   item.Title,
			URL:     item.URL,
			Content: content,
			Score:   item.Score,
		})
	}
	slog.Debug("search: tavily query done", "query", query, "results", len(results))
	return results, nil
}

func (t *Tavily) post(ctx context.Context, url string, body []byte) ([]byte, error) {
	var lastErr error
	for attempt := 0; attempt < tavilyMaxRetries; attempt++ {
		if attempt > 0 {
			delay := tavilyRetryDelay * time.Duration(1<<(attempt-1))
			slog.Warn("search: retrying tavily request", "attempt", attempt, "delay", delay)
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
		if err != nil {
			return nil, fmt.Errorf("search: build tavily request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := t.httpClient.Do(req)
		if err != nil {
			lastErr = fmt.Errorf("search: tavily request: %w", err)
			continue
		}
		data, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			lastErr = fmt.Errorf("search: read tavily response: %w", err)
			continue
		}
		if resp.StatusCode == http.StatusOK {
			return data, nil
		}
		lastErr = fmt.Errorf("search: tavily status %d: %s", resp.StatusCode, truncate(string(data), 200))
		if !retryableStatus(resp.StatusCode) {
			return nil, lastErr
		}
	}
	return nil, lastErr
}

func retryableStatus(code int) bool {
	switch code {
	case http.StatusTooManyRequests,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout:
		return true
	}
	return false
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
