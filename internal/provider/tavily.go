package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/kestrelab/inquest/internal/research"
)

const tavilyEndpoint = "https://api.tavily.com/search"

// Tavily queries the Tavily search API.
type Tavily struct {
	apiKey string
	depth  string // "basic" or "advanced"
	client *http.Client
}

// NewTavily constructs a Tavily provider.
func NewTavily(apiKey, depth string) *Tavily {
	if depth == "" {
		depth = "basic"
	}
	return &Tavily{
		apiKey: apiKey,
		depth:  depth,
		client: &http.Client{Timeout: 15 * time.Second},
	}
}

// NewTavilyWithClient constructs a Tavily provider using the supplied
// HTTP client, useful for tests and timeout overrides.
func NewTavilyWithClient(apiKey, depth string, client *http.Client) *Tavily {
	t := NewTavily(apiKey, depth)
	t.client = client
	return t
}

func (t *Tavily) ID() string { return "tavily" }

// IsRelevant reports whether this provider can serve the goal: Tavily
// needs an API key, and an empty goal has nothing to search for.
func (t *Tavily) IsRelevant(goalText string) bool {
	return strings.TrimSpace(t.apiKey) != "" && strings.TrimSpace(goalText) != ""
}

// Query builds the provider query from the goal text.
func (t *Tavily) Query(goalText string) (Query, error) {
	return simpleQuery(goalText, 0)
}

// Execute posts the query to Tavily. The HTTP status is returned on
// failure so the caller can classify it.
func (t *Tavily) Execute(ctx context.Context, q Query, limit int) ([]research.Evidence, int, error) {
	if limit <= 0 {
		limit = 5
	}
	body := map[string]any{
		"api_key":     t.apiKey,
		"query":       q.Text,
		"depth":       t.depth,
		"max_results": limit,
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, 0, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, tavilyEndpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, 0, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.client.Do(req)
	if err != nil {
		return nil, 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, resp.StatusCode, fmt.Errorf("tavily http %d", resp.StatusCode)
	}

	var response struct {
		Results []struct {
			Title         string  `json:"title"`
			URL           string  `json:"url"`
			Content       string  `json:"content"`
			RawContent    string  `json:"raw_content"`
			PublishedDate string  `json:"published_date"`
			Score         float64 `json:"score"`
		} `json:"results"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return nil, resp.StatusCode, fmt.Errorf("decode tavily response: %w", err)
	}

	items := make([]research.Evidence, 0, len(response.Results))
	for _, r := range response.Results {
		raw := r.RawContent
		if raw == "" {
			raw = r.Content
		}
		items = append(items, research.Evidence{
			SourceID:   t.ID(),
			Title:      r.Title,
			URL:        r.URL,
			Snippet:    clampSnippet(r.Content),
			RawContent: raw,
			Date:       r.PublishedDate,
			Relevance:  r.Score,
		})
		if len(items) >= limit {
			break
		}
	}
	return items, resp.StatusCode, nil
}
