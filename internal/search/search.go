// Copyright (c) 2024-2025 Preetam
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package search implements web search against the DuckDuckGo HTML
// endpoint. No API key is required; results are scraped from the returned
// page and can be folded into a prompt as context.
package search

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/preetam-90/vidion-ai/internal/util"
)

// =============================================================================
// PARSING PATTERNS
// =============================================================================

var (
	ddgTitleRegex   = regexp.MustCompile(`(?s)<a[^>]+class="result__a"[^>]+href="([^"]+)"[^>]*>(.+?)</a>`)
	ddgSnippetRegex = regexp.MustCompile(`(?s)<a[^>]+class="result__snippet"[^>]*>(.+?)</a>`)

	tagRegex        = regexp.MustCompile(`<[^>]*>`)
	whitespaceRegex = regexp.MustCompile(`\s+`)
)

// =============================================================================
// CLIENT
// =============================================================================

const (
	// DefaultBaseURL is the DuckDuckGo HTML search endpoint.
	DefaultBaseURL = "https://html.duckduckgo.com/html/"

	// DefaultMaxResults bounds how many results a search returns.
	DefaultMaxResults = 5

	// DefaultTimeout caps the whole search round trip.
	DefaultTimeout = 15 * time.Second

	// maxBodySize limits how much of the result page is read.
	maxBodySize = 5 * 1024 * 1024
)

// Result is a single search hit.
type Result struct {
	Title   string
	URL     string
	Snippet string
}

// Client performs DuckDuckGo HTML searches.
type Client struct {
	BaseURL    string
	MaxResults int
	Timeout    time.Duration
	UserAgent  string

	httpClient *http.Client
	logger     *zap.Logger
}

// NewClient creates a search client with default settings.
func NewClient(logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		BaseURL:    DefaultBaseURL,
		MaxResults: DefaultMaxResults,
		Timeout:    DefaultTimeout,
		UserAgent:  "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
		httpClient: &http.Client{
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= 5 {
					return errors.New("too many redirects")
				}
				return nil
			},
		},
		logger: logger,
	}
}

// Search runs a query and returns up to MaxResults hits.
func (c *Client) Search(ctx context.Context, query string) ([]Result, error) {
	if strings.TrimSpace(query) == "" {
		return nil, errors.New("empty query")
	}

	ctx, cancel := context.WithTimeout(ctx, c.Timeout)
	defer cancel()

	searchURL := c.BaseURL + "?q=" + url.QueryEscape(query)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, searchURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", c.UserAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("HTTP error: %d %s", resp.StatusCode, resp.Status)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, err
	}

	results := parseHTML(string(body))
	if len(results) > c.MaxResults {
		results = results[:c.MaxResults]
	}
	c.logger.Debug("web search",
		zap.String("query", query),
		zap.Int("results", len(results)))
	return results, nil
}

// =============================================================================
// HTML PARSING
// =============================================================================

// parseHTML extracts results from a DuckDuckGo HTML page. Titles link
// through a redirect wrapper carrying the real URL in the uddg parameter.
func parseHTML(page string) []Result {
	titleMatches := ddgTitleRegex.FindAllStringSubmatch(page, 30)
	snippetMatches := ddgSnippetRegex.FindAllStringSubmatch(page, 30)

	var results []Result
	for i, match := range titleMatches {
		if len(match) < 3 {
			continue
		}

		rawURL := strings.ReplaceAll(match[1], "&amp;", "&")
		actualURL := extractActualURL(rawURL)
		if actualURL == "" {
			continue
		}

		title := strings.TrimSpace(cleanHTML(match[2]))
		if title == "" {
			continue
		}

		snippet := ""
		if i < len(snippetMatches) && len(snippetMatches[i]) >= 2 {
			snippet = strings.TrimSpace(cleanHTML(snippetMatches[i][1]))
		}

		results = append(results, Result{
			Title:   title,
			URL:     actualURL,
			Snippet: snippet,
		})
		if len(results) >= 20 {
			break
		}
	}
	return results
}

// extractActualURL unwraps DuckDuckGo's //duckduckgo.com/l/?uddg=... link.
func extractActualURL(ddgURL string) string {
	if strings.Contains(ddgURL, "uddg=") {
		if strings.HasPrefix(ddgURL, "//") {
			ddgURL = "https:" + ddgURL
		}
		parsed, err := url.Parse(ddgURL)
		if err != nil {
			return ""
		}
		if target := parsed.Query().Get("uddg"); target != "" {
			return target
		}
	}
	if strings.HasPrefix(ddgURL, "http://") || strings.HasPrefix(ddgURL, "https://") {
		return ddgURL
	}
	return ""
}

func cleanHTML(s string) string {
	text := tagRegex.ReplaceAllString(s, "")
	text = decodeHTMLEntities(text)
	text = whitespaceRegex.ReplaceAllString(text, " ")
	return strings.TrimSpace(text)
}

func decodeHTMLEntities(s string) string {
	replacements := []struct{ from, to string }{
		{"&amp;", "&"},
		{"&lt;", "<"},
		{"&gt;", ">"},
		{"&quot;", "\""},
		{"&#x27;", "'"},
		{"&#39;", "'"},
		{"&nbsp;", " "},
	}
	for _, r := range replacements {
		s = strings.ReplaceAll(s, r.from, r.to)
	}
	return s
}

// =============================================================================
// PROMPT CONTEXT
// =============================================================================

// FormatResults renders hits as readable text for the transcript.
func FormatResults(query string, results []Result) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Web results for: %s\n\n", query))
	if len(results) == 0 {
		sb.WriteString("No results found.\n")
		return sb.String()
	}
	for i, r := range results {
		sb.WriteString(fmt.Sprintf("[%d] %s\n", i+1, r.Title))
		sb.WriteString(fmt.Sprintf("    %s\n", r.URL))
		if r.Snippet != "" {
			sb.WriteString(fmt.Sprintf("    %s\n", util.TruncateWidth(r.Snippet, 300)))
		}
		sb.WriteString("\n")
	}
	return sb.String()
}

// AugmentPrompt folds search hits into a user prompt so the model can
// answer with current information.
func AugmentPrompt(prompt string, results []Result) string {
	if len(results) == 0 {
		return prompt
	}
	var sb strings.Builder
	sb.WriteString(prompt)
	sb.WriteString("\n\nRelevant web results:\n")
	for i, r := range results {
		sb.WriteString(fmt.Sprintf("%d. %s (%s)", i+1, r.Title, r.URL))
		if r.Snippet != "" {
			sb.WriteString(": " + r.Snippet)
		}
		sb.WriteString("\n")
	}
	return sb.String()
}
