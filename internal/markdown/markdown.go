// Copyright (c) 2024-2025 Preetam
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package markdown converts a small markdown subset to HTML with ordered
// text substitutions: fenced code blocks, inline code, bold, italic, links,
// headers 1 through 3, dash bullets, and line breaks. Code spans are pulled
// out into placeholders before any emphasis pass so asterisks and backticks
// inside code survive untouched.
package markdown

import (
	"fmt"
	"regexp"
	"strings"
)

// =============================================================================
// SUBSTITUTION PATTERNS
// =============================================================================

var (
	fencedRe     = regexp.MustCompile("(?s)```(\\w+)?\\n(.*?)```")
	inlineCodeRe = regexp.MustCompile("`([^`]+)`")
	boldRe       = regexp.MustCompile(`\*\*([^*]+)\*\*`)
	italicRe     = regexp.MustCompile(`\*([^*]+)\*`)
	linkRe       = regexp.MustCompile(`\[([^\]]+)\]\(([^)]+)\)`)
	h3Re         = regexp.MustCompile(`(?m)^### (.*)$`)
	h2Re         = regexp.MustCompile(`(?m)^## (.*)$`)
	h1Re         = regexp.MustCompile(`(?m)^# (.*)$`)
	bulletRe     = regexp.MustCompile(`(?m)^\s*-\s(.+)$`)
)

// placeholder returns the stand-in token for extracted code span i. NUL
// bytes cannot appear in model output, so the token never collides with
// real text and never matches an emphasis pattern.
func placeholder(i int) string {
	return fmt.Sprintf("\x00code:%d\x00", i)
}

// =============================================================================
// RENDER
// =============================================================================

// Render converts markdown text to HTML. It is a pure function: same input,
// same output, no state between calls.
func Render(text string) string {
	if text == "" {
		return ""
	}

	// Pull code out first so later passes cannot mangle its contents.
	var spans []string
	text = fencedRe.ReplaceAllStringFunc(text, func(m string) string {
		sub := fencedRe.FindStringSubmatch(m)
		spans = append(spans, "<pre><code>"+sub[2]+"</code></pre>")
		return placeholder(len(spans) - 1)
	})
	text = inlineCodeRe.ReplaceAllStringFunc(text, func(m string) string {
		sub := inlineCodeRe.FindStringSubmatch(m)
		spans = append(spans, "<code>"+sub[1]+"</code>")
		return placeholder(len(spans) - 1)
	})

	// Bold before italic so ** pairs are not eaten as two italics.
	text = boldRe.ReplaceAllString(text, "<strong>$1</strong>")
	text = italicRe.ReplaceAllString(text, "<em>$1</em>")
	text = linkRe.ReplaceAllString(text, `<a href="$2" target="_blank" rel="noopener noreferrer">$1</a>`)

	// Longest header marker first so ### is not consumed by the # rule.
	text = h3Re.ReplaceAllString(text, "<h3>$1</h3>")
	text = h2Re.ReplaceAllString(text, "<h2>$1</h2>")
	text = h1Re.ReplaceAllString(text, "<h1>$1</h1>")

	text = bulletRe.ReplaceAllString(text, "<li>$1</li>")
	text = strings.ReplaceAll(text, "\n", "<br>")

	// Restore code spans, newlines inside fenced blocks intact.
	for i, span := range spans {
		text = strings.Replace(text, placeholder(i), span, 1)
	}
	return text
}
