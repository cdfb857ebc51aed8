package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/kestrelab/inquest/internal/research"
)

const braveEndpoint = "https://api.search.brave.com/res/v1/web/search"

// Brave queries the Brave Search API. Requires an API key passed via the
// X-Subscription-Token header.
type Brave struct {
	apiKey string
	client *http.Client
}

// NewBrave constructs a Brave provider.
func NewBrave(apiKey string) *Brave {
	return &Brave{apiKey: apiKey, client: &http.Client{Timeout: 15 * time.Second}}
}

// NewBraveWithClient constructs a Brave provider using the supplied HTTP client.
func NewBraveWithClient(apiKey string, client *http.Client) *Brave {
	return &Brave{apiKey: apiKey, client: client}
}

func (b *Brave) ID() string { return "brave" }

// IsRelevant reports whether this provider can serve the goal.
func (b *Brave) IsRelevant(goalText string) bool {
	return strings.TrimSpace(b.apiKey) != "" && strings.TrimSpace(goalText) != ""
}

// Query builds the provider query from the goal text.
func (b *Brave) Query(goalText string) (Query, error) {
	return simpleQuery(goalText, 0)
}

// Execute issues one Brave search. Rate-limit pacing is left to the
// caller: a 429 comes back with its status for classification and retry.
func (b *Brave) Execute(ctx context.Context, q Query, limit int) ([]research.Evidence, int, error) {
	if limit <= 0 {
		limit = 5
	}
	endpoint := fmt.Sprintf("%s?q=%s&count=%d", braveEndpoint, url.QueryEscape(q.Text), limit)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, 0, err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Subscription-Token", b.apiKey)

	resp, err := b.client.Do(req)
	if err != nil {
		return nil, 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, resp.StatusCode, fmt.Errorf("brave http %d", resp.StatusCode)
	}

	var payload struct {
		Web struct {
			Results []struct {
				Title       string `json:"title"`
				URL         string `json:"url"`
				Description string `json:"description"`
				Age         string `json:"age"`
			} `json:"results"`
		} `json:"web"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, resp.StatusCode, fmt.Errorf("decode brave response: %w", err)
	}

	items := make([]research.Evidence, 0, len(payload.Web.Results))
	for _, r := range payload.Web.Results {
		items = append(items, research.Evidence{
			SourceID:   b.ID(),
			Title:      r.Title,
			URL:        r.URL,
			Snippet:    clampSnippet(r.Description),
			RawContent: r.Description,
			Date:       r.Age,
		})
		if len(items) >= limit {
			break
		}
	}
	return items, resp.StatusCode, nil
}
