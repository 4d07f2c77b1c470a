// Copyright (c) 2024-2025 Preetam
// SPDX-License-Identifier: AGPL-3.0-or-later

package export

import (
	"fmt"
	"html"
	"regexp"
	"strings"
	"time"

	"github.com/alecthomas/chroma/v2"
	chromahtml "github.com/alecthomas/chroma/v2/formatters/html"
	"github.com/alecthomas/chroma/v2/lexers"
	"github.com/alecthomas/chroma/v2/styles"

	"github.com/preetam-90/vidion-ai/internal/markdown"
	"github.com/preetam-90/vidion-ai/internal/model"
)

// =============================================================================
// HTML EXPORTER
// =============================================================================

// HTMLExporter renders chats as standalone HTML documents with embedded CSS
// and chroma-highlighted code blocks.
type HTMLExporter struct {
	options *Options
}

// NewHTMLExporter creates a new HTML exporter.
func NewHTMLExporter(opts *Options) *HTMLExporter {
	if opts == nil {
		opts = DefaultOptions()
	}
	return &HTMLExporter{options: opts}
}

// Export converts a chat to HTML.
func (e *HTMLExporter) Export(chat model.Chat) ([]byte, error) {
	messages := exportable(chat)
	if len(messages) == 0 {
		return nil, fmt.Errorf("chat has no messages to export")
	}

	var sb strings.Builder

	sb.WriteString("<!DOCTYPE html>\n")
	sb.WriteString("<html lang=\"en\">\n")
	sb.WriteString("<head>\n")
	sb.WriteString("    <meta charset=\"UTF-8\">\n")
	sb.WriteString("    <meta name=\"viewport\" content=\"width=device-width, initial-scale=1.0\">\n")
	sb.WriteString(fmt.Sprintf("    <title>%s</title>\n", html.EscapeString(chat.Title)))
	sb.WriteString("    <meta name=\"generator\" content=\"vidion\">\n")
	sb.WriteString(fmt.Sprintf("    <meta name=\"date\" content=\"%s\">\n", chat.CreatedAt.Format(time.RFC3339)))
	sb.WriteString(e.css())
	sb.WriteString("</head>\n")
	sb.WriteString(fmt.Sprintf("<body class=\"%s-theme\">\n", e.options.Theme))
	sb.WriteString("    <div class=\"container\">\n")

	if e.options.IncludeMetadata {
		sb.WriteString("        <header class=\"header\">\n")
		sb.WriteString(fmt.Sprintf("            <h1>%s</h1>\n", html.EscapeString(chat.Title)))
		sb.WriteString("            <div class=\"metadata\">\n")
		sb.WriteString(fmt.Sprintf("                <span class=\"meta-item\"><strong>Created:</strong> %s</span>\n", formatTimestamp(chat.CreatedAt)))
		sb.WriteString(fmt.Sprintf("                <span class=\"meta-item\"><strong>Messages:</strong> %d</span>\n", len(messages)))
		sb.WriteString("            </div>\n")
		sb.WriteString("        </header>\n")
	}

	sb.WriteString("        <main class=\"conversation\">\n")
	for _, msg := range messages {
		sb.WriteString(e.renderMessage(msg))
	}
	sb.WriteString("        </main>\n")

	sb.WriteString("        <footer class=\"footer\">\n")
	sb.WriteString(fmt.Sprintf("            <p>Exported from <strong>Vidion AI</strong> on %s</p>\n",
		time.Now().Format("January 2, 2006 at 3:04 PM")))
	sb.WriteString("        </footer>\n")
	sb.WriteString("    </div>\n")
	sb.WriteString("</body>\n")
	sb.WriteString("</html>\n")

	return []byte(sb.String()), nil
}

// FileExtension returns the file extension for HTML.
func (e *HTMLExporter) FileExtension() string {
	return ".html"
}

// MimeType returns the MIME type for HTML.
func (e *HTMLExporter) MimeType() string {
	return "text/html"
}

// =============================================================================
// RENDERING
// =============================================================================

func (e *HTMLExporter) renderMessage(msg model.Message) string {
	var sb strings.Builder

	roleClass := strings.ToLower(string(msg.Role))
	sb.WriteString(fmt.Sprintf("            <div class=\"message %s-message\">\n", roleClass))

	sb.WriteString("                <div class=\"message-header\">\n")
	sb.WriteString(fmt.Sprintf("                    <span class=\"role-label\">%s</span>\n", msg.Role.DisplayName()))
	if e.options.IncludeTimestamps {
		sb.WriteString(fmt.Sprintf("                    <span class=\"timestamp\">%s</span>\n", formatShortTimestamp(msg.Timestamp)))
	}
	sb.WriteString("                </div>\n")

	if e.options.IncludeThinking && msg.Thinking != "" {
		sb.WriteString("                <details class=\"thinking\">\n")
		sb.WriteString("                    <summary>Thinking</summary>\n")
		sb.WriteString("                    <pre>" + html.EscapeString(msg.Thinking) + "</pre>\n")
		sb.WriteString("                </details>\n")
	}

	sb.WriteString("                <div class=\"message-content\">\n")
	sb.WriteString(e.formatContent(msg.DisplayContent()))
	sb.WriteString("\n                </div>\n")
	sb.WriteString("            </div>\n")

	return sb.String()
}

// =============================================================================
// CONTENT FORMATTING
// =============================================================================

var codeBlockRe = regexp.MustCompile("(?s)```([a-zA-Z0-9_+-]*)\n(.*?)```")

// formatContent highlights fenced code blocks with chroma, then runs the
// remaining markdown through the transcript renderer.
func (e *HTMLExporter) formatContent(content string) string {
	var blocks []string
	content = codeBlockRe.ReplaceAllStringFunc(content, func(match string) string {
		parts := codeBlockRe.FindStringSubmatch(match)
		blocks = append(blocks, e.highlight(parts[1], parts[2]))
		return fmt.Sprintf("\x00block:%d\x00", len(blocks)-1)
	})

	content = markdown.Render(html.EscapeString(content))

	for i, block := range blocks {
		content = strings.Replace(content, fmt.Sprintf("\x00block:%d\x00", i), block, 1)
	}
	return content
}

// highlight renders one code block through chroma. Unknown languages fall
// back to plain-text tokens; a tokenizer failure falls back to escaped text.
func (e *HTMLExporter) highlight(lang, code string) string {
	lexer := lexers.Get(lang)
	if lexer == nil {
		lexer = lexers.Fallback
	}
	lexer = chroma.Coalesce(lexer)

	styleName := "github-dark"
	if e.options.Theme == "light" {
		styleName = "github"
	}
	style := styles.Get(styleName)
	if style == nil {
		style = styles.Fallback
	}

	iterator, err := lexer.Tokenise(nil, code)
	if err != nil {
		return "<pre><code>" + html.EscapeString(code) + "</code></pre>"
	}

	var sb strings.Builder
	if lang != "" {
		sb.WriteString(fmt.Sprintf("<div class=\"code-lang\">%s</div>", html.EscapeString(lang)))
	}
	formatter := chromahtml.New(chromahtml.WithClasses(false))
	if err := formatter.Format(&sb, style, iterator); err != nil {
		return "<pre><code>" + html.EscapeString(code) + "</code></pre>"
	}
	return "<div class=\"code-block\">" + sb.String() + "</div>"
}

// =============================================================================
// STYLES
// =============================================================================

func (e *HTMLExporter) css() string {
	return `    <style>
        * { margin: 0; padding: 0; box-sizing: border-box; }
        body {
            font-family: -apple-system, BlinkMacSystemFont, "Segoe UI", Roboto, sans-serif;
            line-height: 1.6;
        }
        body.dark-theme { background: #0f1117; color: #e6e6e6; }
        body.light-theme { background: #ffffff; color: #1a1a1a; }
        .container { max-width: 860px; margin: 0 auto; padding: 2rem 1rem; }
        .header { margin-bottom: 2rem; }
        .header h1 { font-size: 1.5rem; margin-bottom: 0.5rem; }
        .metadata { font-size: 0.85rem; opacity: 0.7; }
        .meta-item { margin-right: 1rem; }
        .message { margin-bottom: 1.5rem; border-radius: 8px; padding: 1rem; }
        .dark-theme .user-message { background: #1d2433; }
        .dark-theme .assistant-message { background: #161b26; }
        .light-theme .user-message { background: #eef2ff; }
        .light-theme .assistant-message { background: #f6f7f9; }
        .message-header { display: flex; justify-content: space-between; margin-bottom: 0.5rem; }
        .role-label { font-weight: 600; }
        .timestamp { font-size: 0.8rem; opacity: 0.6; }
        .thinking { margin-bottom: 0.75rem; font-size: 0.85rem; opacity: 0.8; }
        .thinking pre { white-space: pre-wrap; padding: 0.5rem; }
        .code-block { margin: 0.75rem 0; border-radius: 6px; overflow-x: auto; }
        .code-lang { font-size: 0.75rem; opacity: 0.6; padding: 0.25rem 0.5rem; }
        code { font-family: "SF Mono", Menlo, Consolas, monospace; font-size: 0.9em; }
        .footer { margin-top: 2rem; font-size: 0.8rem; opacity: 0.6; text-align: center; }
        a { color: #6b8afd; }
    </style>
`
}
