// Copyright (c) 2024-2025 Preetam
// SPDX-License-Identifier: AGPL-3.0-or-later

package search

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const samplePage = `<html><body>
<div class="result">
  <a class="result__a" href="//duckduckgo.com/l/?uddg=https%3A%2F%2Fgo.dev%2Fdoc%2F&amp;rut=abc">The <b>Go</b> Documentation</a>
  <a class="result__snippet">Learn how to   install and use <b>Go</b>.</a>
</div>
<div class="result">
  <a class="result__a" href="https://pkg.go.dev/std">Standard library</a>
  <a class="result__snippet">Package index &amp; reference.</a>
</div>
</body></html>`

func newTestClient(serverURL string) *Client {
	c := NewClient(nil)
	c.BaseURL = serverURL
	return c
}

func TestSearch_ParsesResults(t *testing.T) {
	var gotQuery string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query().Get("q")
		w.Write([]byte(samplePage))
	}))
	defer server.Close()

	results, err := newTestClient(server.URL).Search(context.Background(), "golang docs")
	require.NoError(t, err)
	require.Len(t, results, 2)

	assert.Equal(t, "golang docs", gotQuery)
	assert.Equal(t, "The Go Documentation", results[0].Title)
	assert.Equal(t, "https://go.dev/doc/", results[0].URL)
	assert.Equal(t, "Learn how to install and use Go.", results[0].Snippet)
	assert.Equal(t, "https://pkg.go.dev/std", results[1].URL)
	assert.Equal(t, "Package index & reference.", results[1].Snippet)
}

func TestSearch_RespectsMaxResults(t *testing.T) {
	var page strings.Builder
	page.WriteString("<html><body>")
	for range 10 {
		page.WriteString(`<a class="result__a" href="https://example.com/x">Hit</a>`)
		page.WriteString(`<a class="result__snippet">text</a>`)
	}
	page.WriteString("</body></html>")

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(page.String()))
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	client.MaxResults = 3

	results, err := client.Search(context.Background(), "anything")
	require.NoError(t, err)
	assert.Len(t, results, 3)
}

func TestSearch_EmptyQuery(t *testing.T) {
	_, err := NewClient(nil).Search(context.Background(), "   ")
	assert.Error(t, err)
}

func TestSearch_HTTPError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	_, err := newTestClient(server.URL).Search(context.Background(), "golang")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "503")
}

func TestSearch_ContextCancelled(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := newTestClient(server.URL).Search(ctx, "golang")
	assert.Error(t, err)
}

func TestExtractActualURL(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"redirect wrapper", "//duckduckgo.com/l/?uddg=https%3A%2F%2Fgo.dev%2F&rut=x", "https://go.dev/"},
		{"direct https", "https://example.com/page", "https://example.com/page"},
		{"direct http", "http://example.com", "http://example.com"},
		{"relative junk", "/y.js?ad=1", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, extractActualURL(tt.in))
		})
	}
}

func TestCleanHTML(t *testing.T) {
	got := cleanHTML(`  <b>Hello</b> &amp; <i>world</i>,   &quot;ok&quot; `)
	assert.Equal(t, `Hello & world, "ok"`, got)
}

func TestFormatResults(t *testing.T) {
	out := FormatResults("golang", []Result{
		{Title: "Go", URL: "https://go.dev", Snippet: "The Go programming language."},
	})
	assert.Contains(t, out, "Web results for: golang")
	assert.Contains(t, out, "[1] Go")
	assert.Contains(t, out, "https://go.dev")

	empty := FormatResults("nothing", nil)
	assert.Contains(t, empty, "No results found.")
}

func TestAugmentPrompt(t *testing.T) {
	prompt := "What is new in Go?"
	out := AugmentPrompt(prompt, []Result{
		{Title: "Go Blog", URL: "https://go.dev/blog", Snippet: "Release notes."},
	})
	assert.True(t, strings.HasPrefix(out, prompt))
	assert.Contains(t, out, "Relevant web results:")
	assert.Contains(t, out, "1. Go Blog (https://go.dev/blog): Release notes.")

	assert.Equal(t, prompt, AugmentPrompt(prompt, nil))
}
