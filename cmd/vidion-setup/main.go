// vidion-setup - guided first-run configuration for vidion.
//
// Copyright (c) 2024-2025 Preetam
// SPDX-License-Identifier: AGPL-3.0-or-later
package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/preetam-90/vidion-ai/internal/config"
	"github.com/preetam-90/vidion-ai/internal/model"
	"github.com/preetam-90/vidion-ai/internal/ui/styles"
)

var (
	titleStyle = lipgloss.NewStyle().Foreground(styles.Purple).Bold(true)
	stepStyle  = lipgloss.NewStyle().Foreground(styles.Cyan).Bold(true)
	hintStyle  = lipgloss.NewStyle().Foreground(styles.TextMuted)
)

func main() {
	for _, arg := range os.Args[1:] {
		if arg == "--help" || arg == "-h" {
			printHelp()
			return
		}
	}

	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "vidion-setup: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	in := bufio.NewReader(os.Stdin)

	fmt.Println(titleStyle.Render("vidion setup"))
	fmt.Println(hintStyle.Render("Answers are written to ~/.vidion/config.toml. Enter keeps the shown default.\n"))

	cfg, err := config.Load()
	if err != nil {
		// A broken config file should not block re-running setup.
		cfg = config.Default()
	}

	fmt.Println(stepStyle.Render("1. Provider API keys"))
	fmt.Println(hintStyle.Render("   Groq keys: https://console.groq.com  OpenRouter keys: https://openrouter.ai/keys"))
	cfg.Providers.GroqAPIKey = promptSecret(in, "Groq API key", cfg.Providers.GroqAPIKey)
	cfg.Providers.OpenRouterAPIKey = promptSecret(in, "OpenRouter API key", cfg.Providers.OpenRouterAPIKey)
	if cfg.Providers.GroqAPIKey == "" && cfg.Providers.OpenRouterAPIKey == "" {
		fmt.Println(styles.RenderWarning("No keys entered. vidion will start but every request will fail until a key is set."))
	}

	fmt.Println()
	fmt.Println(stepStyle.Render("2. Default model"))
	for _, m := range model.AvailableModels() {
		fmt.Printf("   %-24s %s\n", m.ID, hintStyle.Render(m.Name))
	}
	for {
		id := prompt(in, "Model ID", cfg.DefaultModel)
		if _, ok := model.GetModel(id); ok {
			cfg.DefaultModel = id
			break
		}
		fmt.Println(styles.RenderWarning("Unknown model, pick one from the list."))
	}

	fmt.Println()
	fmt.Println(stepStyle.Render("3. Appearance"))
	for {
		theme := strings.ToLower(prompt(in, "Theme (dark/light/auto)", cfg.UI.Theme))
		if theme == "dark" || theme == "light" || theme == "auto" {
			cfg.UI.Theme = theme
			break
		}
		fmt.Println(styles.RenderWarning("Theme must be dark, light, or auto."))
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration invalid: %w", err)
	}
	if err := config.Save(cfg); err != nil {
		return fmt.Errorf("save failed: %w", err)
	}

	path, _ := config.Path()
	fmt.Println()
	fmt.Println(styles.RenderInfo("Saved " + path))
	fmt.Println("Run " + stepStyle.Render("vidion") + " to start chatting.")
	return nil
}

// prompt reads one line, returning the default when the answer is empty.
func prompt(in *bufio.Reader, label, def string) string {
	if def != "" {
		fmt.Printf("%s [%s]: ", label, def)
	} else {
		fmt.Printf("%s: ", label)
	}
	line, err := in.ReadString('\n')
	if err != nil {
		return def
	}
	line = strings.TrimSpace(line)
	if line == "" {
		return def
	}
	return line
}

// promptSecret is prompt with the existing value masked instead of echoed.
func promptSecret(in *bufio.Reader, label, existing string) string {
	def := existing
	shown := ""
	if existing != "" {
		shown = mask(existing)
	}
	got := prompt(in, label, shown)
	if got == shown {
		return def
	}
	return got
}

func mask(key string) string {
	if len(key) <= 8 {
		return "********"
	}
	return key[:4] + "..." + key[len(key)-4:]
}

func printHelp() {
	fmt.Println(`vidion-setup - guided configuration for vidion

Usage:
  vidion-setup          interactive setup
  vidion-setup --help   this help

The resulting file lives at ~/.vidion/config.toml with owner-only
permissions. API keys can also be supplied via the GROQ_API_KEY and
OPENROUTER_API_KEY environment variables, which take precedence.`)
}
