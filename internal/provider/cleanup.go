// Copyright (c) 2024-2025 Preetam
// SPDX-License-Identifier: AGPL-3.0-or-later

package provider

import (
	"regexp"
	"strings"
)

// =============================================================================
// RESPONSE CLEANUP
// =============================================================================

var (
	// Some endpoints echo a role label at the start of the completion.
	roleLabelRegex = regexp.MustCompile(`(?i)^\s*(assistant|ai)\s*:\s*`)

	// Runs of three or more blank lines read badly in a terminal.
	blankRunRegex = regexp.MustCompile(`\n{3,}`)
)

// CleanResponse normalizes a full (non-streamed) completion before it is
// revealed to the user. Thinking tags are stripped here because simulated
// streaming replays the text verbatim, one rune at a time.
func CleanResponse(content string) string {
	answer, _ := SplitThinking(content)
	answer = roleLabelRegex.ReplaceAllString(answer, "")
	answer = blankRunRegex.ReplaceAllString(answer, "\n\n")
	return strings.TrimSpace(answer)
}
