// Copyright (c) 2024-2025 Preetam
// SPDX-License-Identifier: AGPL-3.0-or-later

/*
Package styles provides the visual styling system for the vidion TUI.

All colors use Lip Gloss AdaptiveColor for automatic light/dark terminal
detection.

# Color System (colors.go)

  - Purple - Primary accent for assistant messages and selections
  - Cyan - Brand color for info and user highlights
  - Emerald - Success states
  - Amber - Warnings and the in-flight indicator
  - Rose - Errors

Text uses a hierarchical system:

	TextPrimary   - Main content text
	TextSecondary - Supporting text
	TextMuted     - De-emphasized text

# Theme System (theme.go)

The Theme struct groups every styled component (header, sidebar, message
bubbles, composer, status bar) and detects terminal capability once:

	theme := styles.NewTheme()
	if theme.IsDark {
		// Dark terminal detected
	}
*/
package styles
