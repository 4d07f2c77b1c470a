// vidion - a terminal client for LLM chat over Groq and OpenRouter.
//
// Copyright (c) 2024-2025 Preetam
// SPDX-License-Identifier: AGPL-3.0-or-later
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/preetam-90/vidion-ai/internal/cli"
	"github.com/preetam-90/vidion-ai/internal/config"
	"github.com/preetam-90/vidion-ai/internal/index"
	"github.com/preetam-90/vidion-ai/internal/logging"
	"github.com/preetam-90/vidion-ai/internal/model"
	"github.com/preetam-90/vidion-ai/internal/provider"
	"github.com/preetam-90/vidion-ai/internal/search"
	"github.com/preetam-90/vidion-ai/internal/storage"
	"github.com/preetam-90/vidion-ai/internal/store"
	"github.com/preetam-90/vidion-ai/internal/stream"
	"github.com/preetam-90/vidion-ai/internal/ui/chat"
)

// version is stamped at build time via -ldflags.
var version = "dev"

func main() {
	var (
		askFlag     = flag.String("ask", "", "ask one question, print the answer, and exit")
		webFlag     = flag.Bool("web", false, "augment -ask with live web search results")
		plainFlag   = flag.Bool("plain", false, "use the line-based session instead of the full-screen interface")
		modelFlag   = flag.String("model", "", "select a model by catalog ID for this run")
		configFlag  = flag.String("config", "", "load configuration from this TOML file")
		versionFlag = flag.Bool("version", false, "print the version and exit")
	)
	flag.Parse()

	if *versionFlag {
		fmt.Printf("vidion %s\n", version)
		return
	}

	if err := run(*askFlag, *webFlag, *plainFlag, *modelFlag, *configFlag); err != nil {
		fmt.Fprintf(os.Stderr, "vidion: %v\n", err)
		os.Exit(1)
	}
}

func run(ask string, withWeb, plain bool, modelID, configPath string) error {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}
	if err := config.EnsureDir(); err != nil {
		return fmt.Errorf("config directory: %w", err)
	}

	logger := buildLogger(cfg)
	defer logger.Sync() //nolint:errcheck
	logger.Info("starting", zap.String("version", version))

	client := provider.NewClient(provider.Config{
		GroqAPIKey:        cfg.Providers.GroqAPIKey,
		OpenRouterAPIKey:  cfg.Providers.OpenRouterAPIKey,
		SiteURL:           cfg.Providers.SiteURL,
		SiteName:          cfg.Providers.SiteName,
		MaxRetries:        cfg.Providers.MaxRetries,
		RequestsPerSecond: cfg.Providers.RequestsPerSecond,
	}, logging.Named(logger, "provider"))

	// One-shot mode holds no session state at all.
	question, piped := oneShotQuestion(ask)
	if question != "" {
		return cli.Ask(context.Background(), question, cli.AskOptions{
			Client:  client,
			Model:   pickModel(modelID, cfg.DefaultModel),
			Web:     search.NewClient(logging.Named(logger, "search")),
			WithWeb: withWeb,
			Plain:   piped,
			Logger:  logger,
		})
	}

	stateStore, err := storage.NewStateStore(logging.Named(logger, "storage"))
	if err != nil {
		return fmt.Errorf("state store: %w", err)
	}
	chatStore := store.New(stateStore.Load(), stateStore, logging.Named(logger, "store"))
	if modelID != "" {
		chatStore.SelectModel(pickModel(modelID, cfg.DefaultModel).ID)
	} else if chatStore.SelectedModel().ID == model.DefaultModel.ID && cfg.DefaultModel != "" {
		chatStore.SelectModel(cfg.DefaultModel)
	}

	history := openHistory(chatStore, logger)
	if history != nil {
		defer history.Close()
	}

	// The engine outlives the surface that drives it, so notification is
	// routed through an indirection set once the surface exists.
	var notify func()
	engine := stream.New(stream.Config{
		Store:     chatStore,
		Client:    client,
		CharDelay: time.Duration(cfg.Streaming.CharDelayMs) * time.Millisecond,
		Cleanup:   provider.CleanResponse,
		Notify: func() {
			if notify != nil {
				notify()
			}
		},
		Logger: logging.Named(logger, "stream"),
	})

	if plain || !cli.IsTTY() || !cli.IsStdoutTTY() {
		printer := cli.NewStreamPrinter(chatStore, nil)
		notify = printer.Notify
		session := &cli.Session{
			Store:   chatStore,
			Engine:  engine,
			Client:  client,
			History: history,
			Web:     search.NewClient(logging.Named(logger, "search")),
			Printer: printer,
			Logger:  logger,
		}
		return session.Run(context.Background())
	}

	return runTUI(cfg, chatStore, engine, history, &notify, logger)
}

// =============================================================================
// FULL-SCREEN MODE
// =============================================================================

func runTUI(cfg *config.Config, chatStore *store.Store, engine *stream.Engine, history *index.HistoryIndex, notify *func(), logger *zap.Logger) error {
	m := chat.New(chat.Config{
		Store:        chatStore,
		Engine:       engine,
		History:      history,
		ShowThinking: cfg.UI.ShowThinking,
	})
	p := tea.NewProgram(m, tea.WithAltScreen())
	*notify = func() { p.Send(chat.StoreChangedMsg{}) }

	// Config edits apply on the fly where they can: a changed default model
	// takes effect for the next chat, everything structural waits for a
	// restart.
	if path, err := config.Path(); err == nil {
		watcher, werr := config.NewWatcher(path, func(fresh *config.Config) {
			if fresh.DefaultModel != cfg.DefaultModel {
				cfg.DefaultModel = fresh.DefaultModel
				chatStore.SelectModel(fresh.DefaultModel)
			}
			p.Send(chat.StoreChangedMsg{})
		}, logging.Named(logger, "config"))
		if werr == nil {
			if werr = watcher.Watch(); werr == nil {
				defer watcher.Close()
			} else {
				logger.Warn("config watch disabled", zap.Error(werr))
			}
		}
	}

	_, err := p.Run()
	engine.Stop()
	return err
}

// =============================================================================
// WIRING HELPERS
// =============================================================================

func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.LoadFromPath(path)
	}
	return config.Load()
}

func buildLogger(cfg *config.Config) *zap.Logger {
	file := cfg.Logging.File
	if file == "" {
		if dir, err := config.Dir(); err == nil {
			file = filepath.Join(dir, "vidion.log")
		} else {
			file = filepath.Join(os.TempDir(), "vidion.log")
		}
	}
	level, err := zapcore.ParseLevel(cfg.Logging.Level)
	if err != nil {
		level = zapcore.InfoLevel
	}
	return logging.New(logging.Options{
		Filename:   file,
		MaxSizeMB:  cfg.Logging.MaxSizeMB,
		MaxBackups: cfg.Logging.MaxBackups,
		MaxAgeDays: cfg.Logging.MaxAgeDays,
		Level:      level,
		Compress:   cfg.Logging.Compress,
	})
}

// oneShotQuestion decides whether this invocation is a single exchange.
// A piped stdin body is appended to the -ask question as context, or stands
// alone as the question itself.
func oneShotQuestion(ask string) (question string, piped bool) {
	question = strings.TrimSpace(ask)
	if cli.IsTTY() {
		return question, false
	}
	body, err := io.ReadAll(os.Stdin)
	if err != nil {
		return question, true
	}
	text := strings.TrimSpace(string(body))
	switch {
	case question == "":
		question = text
	case text != "":
		question = question + "\n\n" + text
	}
	return question, true
}

func pickModel(flagID, configID string) model.Model {
	if flagID != "" {
		if m, ok := model.GetModel(flagID); ok {
			return m
		}
		fmt.Fprintf(os.Stderr, "vidion: unknown model %q, using default\n", flagID)
	}
	return model.GetModelOrDefault(configID)
}

// openHistory opens the search index and refreshes it from the store in the
// background. The index is derived data; failure to open it disables
// search, nothing else.
func openHistory(chatStore *store.Store, logger *zap.Logger) *index.HistoryIndex {
	path, err := index.DefaultPath()
	if err != nil {
		return nil
	}
	idx, err := index.Open(path, logging.Named(logger, "index"))
	if err != nil {
		logger.Warn("history index unavailable", zap.Error(err))
		return nil
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := idx.Rebuild(ctx, chatStore.Chats()); err != nil {
			logger.Warn("history rebuild failed", zap.Error(err))
		}
	}()
	return idx
}
