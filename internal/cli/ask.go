// Copyright (c) 2024-2025 Preetam
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"fmt"

	"github.com/charmbracelet/glamour"
	"go.uber.org/zap"

	"github.com/preetam-90/vidion-ai/internal/model"
	"github.com/preetam-90/vidion-ai/internal/provider"
	"github.com/preetam-90/vidion-ai/internal/search"
)

// =============================================================================
// ONE-SHOT ASK
// =============================================================================

// AskOptions configures a single question-answer exchange with no session
// state. Suited to scripting and piped usage.
type AskOptions struct {
	Client *provider.Client
	Model  model.Model

	// Web, when set together with WithWeb, prepends live search results
	// to the prompt.
	Web     *search.Client
	WithWeb bool

	// Plain suppresses markdown rendering even on a terminal.
	Plain bool

	Logger *zap.Logger
}

// Ask sends one question and prints the answer to stdout. The exit contract
// is the returned error; nothing is persisted.
func Ask(ctx context.Context, question string, opts AskOptions) error {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	prompt := question
	if opts.WithWeb && opts.Web != nil {
		results, err := opts.Web.Search(ctx, question)
		if err != nil {
			logger.Warn("web search failed, answering without it", zap.Error(err))
		} else if len(results) > 0 {
			prompt = search.AugmentPrompt(question, results)
		}
	}

	messages := []provider.ChatMessage{
		{Role: string(model.RoleSystem), Content: model.SystemPrompt},
		{Role: string(model.RoleUser), Content: prompt},
	}
	messages = provider.ReduceHistory(opts.Model, messages)

	content, err := opts.Client.Complete(ctx, opts.Model, messages)
	if err != nil {
		return fmt.Errorf("completion failed: %w", err)
	}
	answer := provider.CleanResponse(content)

	fmt.Println(renderAnswer(answer, opts.Plain))
	return nil
}

// renderAnswer pretty-prints markdown when stdout is a terminal, and passes
// text through untouched for pipes.
func renderAnswer(answer string, plain bool) string {
	if plain || !IsStdoutTTY() {
		return answer
	}
	width := TerminalWidth()
	if width > 100 {
		width = 100
	}
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return answer
	}
	out, err := r.Render(answer)
	if err != nil {
		return answer
	}
	return out
}
