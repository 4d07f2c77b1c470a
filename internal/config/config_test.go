// Copyright (c) 2024-2025 Preetam
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/preetam-90/vidion-ai/internal/model"
)

func TestDefault_IsValid(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
	if cfg.DefaultModel != model.DefaultModel.ID {
		t.Errorf("default model = %q", cfg.DefaultModel)
	}
}

func TestLoadFromPath(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	content := `
default_model = "groq-llama3-8b"

[providers]
groq_api_key = "gsk-test"
requests_per_second = 5.0

[streaming]
char_delay_ms = 25

[ui]
theme = "light"
`
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadFromPath(path)
	if err != nil {
		t.Fatalf("LoadFromPath failed: %v", err)
	}
	if cfg.DefaultModel != "groq-llama3-8b" {
		t.Errorf("default_model = %q", cfg.DefaultModel)
	}
	if cfg.Providers.GroqAPIKey != "gsk-test" {
		t.Errorf("groq key = %q", cfg.Providers.GroqAPIKey)
	}
	if cfg.Providers.RequestsPerSecond != 5 {
		t.Errorf("rps = %v", cfg.Providers.RequestsPerSecond)
	}
	if cfg.Streaming.CharDelayMs != 25 {
		t.Errorf("char_delay_ms = %d", cfg.Streaming.CharDelayMs)
	}
	if cfg.UI.Theme != "light" {
		t.Errorf("theme = %q", cfg.UI.Theme)
	}
	// Unset fields keep their defaults.
	if cfg.Providers.MaxRetries != 3 {
		t.Errorf("max_retries = %d, want default", cfg.Providers.MaxRetries)
	}
	if cfg.Logging.Level != "info" {
		t.Errorf("logging level = %q, want default", cfg.Logging.Level)
	}
}

func TestLoadFromPath_InvalidValues(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	content := `
default_model = "no-such-model"

[ui]
theme = "sepia"
`
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}

	_, err := LoadFromPath(path)
	if err == nil {
		t.Fatal("expected validation error")
	}
	if !strings.Contains(err.Error(), "default_model") {
		t.Errorf("error should name default_model: %v", err)
	}
	if !strings.Contains(err.Error(), "ui.theme") {
		t.Errorf("error should name ui.theme: %v", err)
	}
}

func TestApplyEnvOverrides(t *testing.T) {
	t.Setenv("GROQ_API_KEY", "gsk-env")
	t.Setenv("OPENROUTER_API_KEY", "sk-or-env")
	t.Setenv("VIDION_MODEL", "openrouter-sonar")
	t.Setenv("VIDION_CHAR_DELAY_MS", "42")

	cfg := Default()
	cfg.ApplyEnvOverrides()

	if cfg.Providers.GroqAPIKey != "gsk-env" {
		t.Errorf("groq key = %q", cfg.Providers.GroqAPIKey)
	}
	if cfg.Providers.OpenRouterAPIKey != "sk-or-env" {
		t.Errorf("openrouter key = %q", cfg.Providers.OpenRouterAPIKey)
	}
	if cfg.DefaultModel != "openrouter-sonar" {
		t.Errorf("model = %q", cfg.DefaultModel)
	}
	if cfg.Streaming.CharDelayMs != 42 {
		t.Errorf("char_delay_ms = %d", cfg.Streaming.CharDelayMs)
	}
}

func TestSaveAndReload(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")

	cfg := Default()
	cfg.Providers.OpenRouterAPIKey = "sk-or-saved"
	cfg.UI.CompactMode = true
	if err := SaveTOML(cfg, path); err != nil {
		t.Fatalf("SaveTOML failed: %v", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if info.Mode().Perm() != 0600 {
		t.Errorf("config file mode = %o, want 0600", info.Mode().Perm())
	}

	loaded, err := LoadFromPath(path)
	if err != nil {
		t.Fatalf("reload failed: %v", err)
	}
	if loaded.Providers.OpenRouterAPIKey != "sk-or-saved" {
		t.Errorf("key round-trip = %q", loaded.Providers.OpenRouterAPIKey)
	}
	if !loaded.UI.CompactMode {
		t.Error("compact_mode lost in round-trip")
	}
}

func TestValidate_Bounds(t *testing.T) {
	cfg := Default()
	cfg.Streaming.CharDelayMs = 0
	cfg.Providers.RequestsPerSecond = -1
	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected validation error")
	}
	msg := err.Error()
	if !strings.Contains(msg, "char_delay_ms") || !strings.Contains(msg, "requests_per_second") {
		t.Errorf("error should name both fields: %v", err)
	}
}
