package provider

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/kestrelab/inquest/internal/research"
)

const (
	ddgEndpoint  = "https://lite.duckduckgo.com/lite/"
	ddgUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

	// Snippets are bounded because they are embedded in oracle prompts.
	maxSnippetLen = 500
)

// DuckDuckGo scrapes DuckDuckGo's lite HTML interface. It needs no API
// key, so it serves as the always-available fallback provider.
type DuckDuckGo struct {
	client *http.Client
}

// NewDuckDuckGo creates a DuckDuckGo provider with a modest timeout.
func NewDuckDuckGo() *DuckDuckGo {
	return &DuckDuckGo{client: &http.Client{Timeout: 15 * time.Second}}
}

// NewDuckDuckGoWithClient creates a DuckDuckGo provider using the
// supplied HTTP client.
func NewDuckDuckGoWithClient(client *http.Client) *DuckDuckGo {
	return &DuckDuckGo{client: client}
}

func (d *DuckDuckGo) ID() string { return "duckduckgo" }

// IsRelevant is true for any non-empty goal: no key is required.
func (d *DuckDuckGo) IsRelevant(goalText string) bool {
	return strings.TrimSpace(goalText) != ""
}

// Query builds the provider query from the goal text.
func (d *DuckDuckGo) Query(goalText string) (Query, error) {
	return simpleQuery(goalText, 0)
}

// Execute posts the query to the lite endpoint and parses the HTML. A 429
// is returned with its status so the caller's retry policy applies.
func (d *DuckDuckGo) Execute(ctx context.Context, q Query, limit int) ([]research.Evidence, int, error) {
	if limit <= 0 {
		limit = 5
	}
	form := url.Values{}
	form.Set("q", q.Text)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, ddgEndpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, 0, err
	}
	req.Header.Set("User-Agent", ddgUserAgent)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := d.client.Do(req)
	if err != nil {
		return nil, 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, resp.StatusCode, fmt.Errorf("duckduckgo http %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, fmt.Errorf("read duckduckgo response: %w", err)
	}

	items := parseDDGResults(string(body))
	if len(items) > limit {
		items = items[:limit]
	}
	return items, resp.StatusCode, nil
}

// The lite page is a plain table: result links carry class "result-link"
// and snippets class "result-snippet".
var (
	ddgLinkPattern    = regexp.MustCompile(`<a[^>]*class=['"]result-link['"][^>]*href=['"]([^'"]+)['"][^>]*>([^<]+)</a>`)
	ddgLinkPatternAlt = regexp.MustCompile(`<a[^>]*href=['"]([^'"]+)['"][^>]*class=['"]result-link['"][^>]*>([^<]+)</a>`)
	ddgSnippetPattern = regexp.MustCompile(`(?s)<td[^>]*class=['"]result-snippet['"][^>]*>(.*?)</td>`)
	htmlTagPattern    = regexp.MustCompile(`<[^>]+>`)
)

func parseDDGResults(html string) []research.Evidence {
	links := ddgLinkPattern.FindAllStringSubmatch(html, -1)
	if len(links) == 0 {
		links = ddgLinkPatternAlt.FindAllStringSubmatch(html, -1)
	}
	snippets := ddgSnippetPattern.FindAllStringSubmatch(html, -1)

	var items []research.Evidence
	for i, m := range links {
		snippet := ""
		if i < len(snippets) {
			snippet = strings.TrimSpace(htmlTagPattern.ReplaceAllString(snippets[i][1], ""))
		}
		items = append(items, research.Evidence{
			SourceID:   "duckduckgo",
			Title:      strings.TrimSpace(m[2]),
			URL:        strings.TrimSpace(m[1]),
			Snippet:    clampSnippet(snippet),
			RawContent: snippet,
		})
	}
	return items
}

// clampSnippet truncates on a rune boundary so a multi-byte character is
// never split into invalid UTF-8.
func clampSnippet(s string) string {
	if len(s) <= maxSnippetLen {
		return s
	}
	cut := maxSnippetLen
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}
