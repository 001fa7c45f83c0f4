// File: internal/search/duckduckgo.go
package search

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/net/html"
	"golang.org/x/time/rate"

	"github.com/okazakidev/adjutant/internal/config"
)

// noResultsMessage is the non-throwing sentinel for an empty result set, so
// callers can tell "ran, found nothing" apart from "failed to run".
const noResultsMessage = "No results found. (The search engine might be rate-limiting or the query is too specific.)"

// result is one ranked snippet from the engine.
type result struct {
	Title   string
	URL     string
	Snippet string
}

// DuckDuckGo queries the DuckDuckGo HTML endpoint and formats ranked text
// snippets. Requests are throttled by a politeness limiter.
type DuckDuckGo struct {
	endpoint   string
	httpClient *http.Client
	limiter    *rate.Limiter
	logger     *zap.Logger
}

// New creates a search collaborator from configuration.
func New(cfg config.SearchConfig, logger *zap.Logger) *DuckDuckGo {
	limit := cfg.RateLimit
	if limit <= 0 {
		limit = 1.0
	}
	return &DuckDuckGo{
		endpoint:   cfg.Endpoint,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		limiter:    rate.NewLimiter(rate.Limit(limit), 1),
		logger:     logger.Named("search"),
	}
}

// Search runs the query and returns formatted result text. An empty result
// set yields the no-results sentinel, never an empty string.
func (d *DuckDuckGo) Search(ctx context.Context, query string, maxResults int) (string, error) {
	if err := d.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("search rate limiter: %w", err)
	}

	reqURL := fmt.Sprintf("%s?q=%s", strings.TrimSuffix(d.endpoint, "/"), url.QueryEscape(query))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return "", fmt.Errorf("failed to build search request: %w", err)
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (compatible; adjutant)")

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("search request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("search engine returned status %d", resp.StatusCode)
	}

	results, err := parseResults(resp.Body, maxResults)
	if err != nil {
		return "", fmt.Errorf("failed to parse search results: %w", err)
	}
	if len(results) == 0 {
		d.logger.Warn("Web search returned no results", zap.String("query", query))
		return noResultsMessage, nil
	}

	formatted := make([]string, 0, len(results))
	for _, r := range results {
		formatted = append(formatted,
			fmt.Sprintf("Title: %s\nURL: %s\nSnippet: %s\n", r.Title, r.URL, r.Snippet))
	}
	return strings.Join(formatted, "\n---\n"), nil
}

// parseResults walks the DuckDuckGo HTML for result anchors and snippets.
// Result titles are links classed "result__a"; snippets are classed
// "result__snippet".
func parseResults(r io.Reader, maxResults int) ([]result, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return nil, err
	}

	var results []result
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == "a" {
			class := nodeClass(n)
			switch {
			case strings.Contains(class, "result__a"):
				if len(results) < maxResults {
					results = append(results, result{
						Title: textContent(n),
						URL:   cleanHref(attrValue(n, "href")),
					})
				}
			case strings.Contains(class, "result__snippet"):
				if len(results) > 0 && results[len(results)-1].Snippet == "" {
					results[len(results)-1].Snippet = textContent(n)
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	return results, nil
}

func nodeClass(n *html.Node) string {
	if n.Type != html.ElementNode {
		return ""
	}
	return attrValue(n, "class")
}

func attrValue(n *html.Node, key string) string {
	for _, attr := range n.Attr {
		if attr.Key == key {
			return attr.Val
		}
	}
	return ""
}

func textContent(n *html.Node) string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return strings.TrimSpace(b.String())
}

// cleanHref unwraps DuckDuckGo's redirect links ("/l/?uddg=<encoded>") back
// to the destination URL.
func cleanHref(href string) string {
	parsed, err := url.Parse(href)
	if err != nil {
		return href
	}
	if uddg := parsed.Query().Get("uddg"); uddg != "" {
		if decoded, err := url.QueryUnescape(uddg); err == nil {
			return decoded
		}
	}
	if parsed.Scheme == "" && strings.HasPrefix(href, "//") {
		return "https:" + href
	}
	return href
}
