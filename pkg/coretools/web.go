package coretools

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/tidwall/gjson"

	"github.com/harun/redclaw/pkg/tools"
)

// BraveEndpoint is the Brave Search web endpoint.
const BraveEndpoint = "https://api.search.brave.com/res/v1/web/search"

const (
	maxSearchResults = 10
	fetchMaxBytes    = 5 * 1024 * 1024
	fetchMaxChars    = 5000
	fetchTruncNotice = "... (truncated)"
	userAgent        = "RedClaw/1.0 (+https://github.com/redclaw)"
)

func webSearchTool(opts Options) *tools.Definition {
	return &tools.Definition{
		ToolName: "web_search",
		Summary:  "Search the web using Brave Search API",
		Params: []tools.Parameter{
			{Name: "query", Type: "string", Description: "Search query", Required: true},
			{Name: "count", Type: "integer", Description: "Number of results",
				Minimum: tools.Float(1), Maximum: tools.Float(maxSearchResults)},
		},
		Handler: func(ctx context.Context, args map[string]interface{}) (string, error) {
			if opts.SearchAPIKey == "" {
				return "Error: Brave API key not configured", nil
			}

			query := stringArg(args, "query")
			count := opts.SearchMaxResults
			if v, ok := args["count"].(float64); ok {
				count = int(v)
			}

			return braveSearch(ctx, opts, query, count)
		},
	}
}

func braveSearch(ctx context.Context, opts Options, query string, count int) (string, error) {
	params := url.Values{}
	params.Set("q", query)
	params.Set("count", strconv.Itoa(count))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, opts.SearchEndpoint+"?"+params.Encode(), nil)
	if err != nil {
		return "", fmt.Errorf("invalid search request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Subscription-Token", opts.SearchAPIKey)

	resp, err := opts.HTTPClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("search request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, fetchMaxBytes))
	if err != nil {
		return "", fmt.Errorf("failed to read search response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("search API returned HTTP %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	if !gjson.ValidBytes(body) {
		return "", fmt.Errorf("search API returned invalid JSON")
	}

	results := gjson.GetBytes(body, "web.results")
	if !results.IsArray() {
		return "", fmt.Errorf("no results found")
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Results for: %s\n", query)
	for i, r := range results.Array() {
		fmt.Fprintf(&b, "%d. %s\n   %s\n   %s\n", i+1,
			r.Get("title").String(),
			r.Get("url").String(),
			r.Get("description").String(),
		)
	}
	return b.String(), nil
}

func webFetchTool(opts Options) *tools.Definition {
	return &tools.Definition{
		ToolName: "web_fetch",
		Summary:  "Fetch content from a URL",
		Params: []tools.Parameter{
			{Name: "url", Type: "string", Description: "URL to fetch", Required: true},
		},
		Handler: func(ctx context.Context, args map[string]interface{}) (string, error) {
			return fetchText(ctx, opts.HTTPClient, stringArg(args, "url"))
		},
	}
}

// fetchText downloads rawURL and returns its readable text, cut to
// fetchMaxChars characters.
func fetchText(ctx context.Context, client *http.Client, rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("invalid url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", fmt.Errorf("unsupported url scheme %q: only http and https are allowed", u.Scheme)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return "", fmt.Errorf("invalid url: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,text/plain;q=0.9,*/*;q=0.8")

	resp, err := client.Do(req)
	if err != nil {
		return "", fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, fetchMaxBytes))
	if err != nil {
		return "", fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode >= 400 {
		return "", fmt.Errorf("HTTP %d fetching %s", resp.StatusCode, u.String())
	}

	contentType := resp.Header.Get("Content-Type")
	var text string
	switch {
	case isHTML(contentType):
		title, content := extractHTML(string(body))
		text = content
		if title != "" {
			text = strings.TrimSpace(title) + "\n\n" + content
		}
	case utf8.Valid(body):
		text = cleanWhitespace(string(body))
	default:
		return fmt.Sprintf("Binary content (%s), %d bytes", contentType, len(body)), nil
	}

	return truncateChars(text, fetchMaxChars), nil
}

func isHTML(ct string) bool {
	ct = strings.ToLower(ct)
	return strings.Contains(ct, "text/html") || strings.Contains(ct, "application/xhtml")
}

// truncateChars cuts s to n characters and appends the truncation notice.
func truncateChars(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	runes := []rune(s)
	return string(runes[:n]) + fetchTruncNotice
}
