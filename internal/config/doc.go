// Copyright (c) 2024-2025 Preetam
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config loads and manages vidion configuration.
//
// # Configuration Precedence
//
// Configuration is loaded from (in order of precedence):
//   - Environment variables (GROQ_API_KEY, OPENROUTER_API_KEY, VIDION_*)
//   - A .env file in the working directory or ~/.vidion
//   - ~/.vidion/config.toml
//   - Built-in defaults
//
// # Usage
//
// Load configuration:
//
//	cfg, err := config.Load()
//	if err != nil {
//	    log.Fatal(err)
//	}
//
// Watch for edits:
//
//	w, _ := config.NewWatcher(path, onChange, logger)
//	_ = w.Watch()
//	defer w.Close()
package config
