// Copyright (c) 2024-2025 Preetam
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package export writes chat transcripts to files.
//
// # Supported Formats
//
//   - Markdown: human-readable with YAML frontmatter
//   - HTML: standalone document with embedded CSS and highlighted code
//   - JSON: machine-readable copy of the full chat structure
//
// # Usage
//
// Export a chat:
//
//	path, err := export.Markdown(chat, export.DefaultOptions())
//
// Or with a specific exporter:
//
//	path, err := export.ToFile(chat, export.NewHTMLExporter(opts), opts)
package export
