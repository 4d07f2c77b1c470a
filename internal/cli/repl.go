// Copyright (c) 2024-2025 Preetam
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/peterh/liner"
	"go.uber.org/zap"

	"github.com/preetam-90/vidion-ai/internal/export"
	"github.com/preetam-90/vidion-ai/internal/index"
	"github.com/preetam-90/vidion-ai/internal/model"
	"github.com/preetam-90/vidion-ai/internal/provider"
	"github.com/preetam-90/vidion-ai/internal/search"
	"github.com/preetam-90/vidion-ai/internal/store"
	"github.com/preetam-90/vidion-ai/internal/stream"
	"github.com/preetam-90/vidion-ai/internal/ui/styles"
)

// =============================================================================
// REPL STYLES
// =============================================================================

var (
	promptStyle  = lipgloss.NewStyle().Foreground(styles.Cyan).Bold(true)
	bannerStyle  = lipgloss.NewStyle().Foreground(styles.Purple).Bold(true)
	subtleStyle  = lipgloss.NewStyle().Foreground(styles.TextMuted)
	commandStyle = lipgloss.NewStyle().Foreground(styles.Emerald)
)

const replPrompt = "vidion> "

// =============================================================================
// SESSION
// =============================================================================

// Session is the interactive plain-terminal chat loop. It is the fallback
// surface for terminals where the full-screen interface is unwanted, and
// shares the store and engine with it.
type Session struct {
	Store   *store.Store
	Engine  *stream.Engine
	Client  *provider.Client
	History *index.HistoryIndex // optional, nil disables /search
	Web     *search.Client      // optional, nil disables /web
	Printer *StreamPrinter
	Logger  *zap.Logger

	reader *LineReader
	turns  int
	start  time.Time
}

// Run drives the read-eval-print loop until the user quits or input ends.
func (s *Session) Run(ctx context.Context) error {
	if s.Logger == nil {
		s.Logger = zap.NewNop()
	}
	s.reader = NewLineReader()
	defer s.reader.Close()
	s.start = time.Now()

	// Ctrl+C during a generation stops the stream instead of the process.
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		for range sigCh {
			s.Engine.Stop()
		}
	}()

	s.printWelcome()

	for {
		line, err := s.reader.ReadInput(promptStyle.Render(replPrompt))
		if errors.Is(err, liner.ErrPromptAborted) {
			fmt.Println(subtleStyle.Render("(Ctrl+C again to quit, or type /quit)"))
			continue
		}
		if err != nil {
			// EOF or a closed terminal ends the session cleanly.
			break
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if line == "exit" || line == "quit" {
			break
		}
		if strings.HasPrefix(line, "/") {
			if quit := s.dispatch(ctx, line); quit {
				break
			}
			continue
		}

		s.sendMessage(ctx, line)
	}

	s.printExitSummary()
	return nil
}

// =============================================================================
// COMMANDS
// =============================================================================

// dispatch runs a slash command. Returns true when the session should end.
func (s *Session) dispatch(ctx context.Context, line string) bool {
	cmd, arg := parseCommand(line)

	switch cmd {
	case "/help":
		s.printHelp()
	case "/quit", "/exit":
		return true
	case "/new":
		chat := s.Store.CreateChat()
		_ = s.Store.SelectChat(chat.ID)
		fmt.Println(styles.RenderInfo("Started a new chat."))
	case "/model":
		s.cmdModel(arg)
	case "/models":
		s.printModels()
	case "/chats":
		s.printChats()
	case "/select":
		s.cmdSelect(arg)
	case "/history":
		s.printTranscript()
	case "/regen":
		s.cmdRegen(ctx)
	case "/search":
		s.cmdSearch(arg)
	case "/web":
		s.cmdWeb(ctx, arg)
	case "/export":
		s.cmdExport(arg)
	default:
		fmt.Println(styles.RenderWarning("Unknown command " + cmd + ". Type /help for the list."))
	}
	return false
}

// parseCommand splits "/cmd rest of line" into its command and argument.
func parseCommand(line string) (cmd, arg string) {
	parts := strings.SplitN(strings.TrimSpace(line), " ", 2)
	cmd = strings.ToLower(parts[0])
	if len(parts) == 2 {
		arg = strings.TrimSpace(parts[1])
	}
	return cmd, arg
}

func (s *Session) cmdModel(arg string) {
	if arg == "" {
		m := s.Store.SelectedModel()
		fmt.Printf("Current model: %s (%s)\n", commandStyle.Render(m.Name), m.ID)
		return
	}
	if _, ok := model.GetModel(arg); !ok {
		fmt.Println(styles.RenderWarning("Unknown model " + arg + ". Type /models for the catalog."))
		return
	}
	m := s.Store.SelectModel(arg)
	fmt.Println(styles.RenderInfo("Switched to " + m.Name))
}

func (s *Session) printModels() {
	selected := s.Store.SelectedModel()
	fmt.Println(bannerStyle.Render("Available models:"))
	for _, m := range model.AvailableModels() {
		marker := "  "
		if m.ID == selected.ID {
			marker = commandStyle.Render("* ")
		}
		configured := ""
		if s.Client != nil && !s.Client.IsConfigured(m.Provider) {
			configured = subtleStyle.Render(" (no API key)")
		}
		fmt.Printf("%s%-24s %s%s\n", marker, m.ID, m.Name, configured)
	}
}

func (s *Session) printChats() {
	chats := s.Store.Chats()
	current := s.Store.CurrentChatID()
	fmt.Println(bannerStyle.Render("Chats:"))
	for i, ch := range chats {
		marker := "  "
		if ch.ID == current {
			marker = commandStyle.Render("* ")
		}
		fmt.Printf("%s%2d. %-40s %s\n", marker, i+1, ch.Title, subtleStyle.Render(fmt.Sprintf("%d msgs", ch.MessageCount())))
	}
}

func (s *Session) cmdSelect(arg string) {
	n, err := strconv.Atoi(arg)
	chats := s.Store.Chats()
	if err != nil || n < 1 || n > len(chats) {
		fmt.Println(styles.RenderWarning("Usage: /select <n> where n is a number from /chats."))
		return
	}
	chat := chats[n-1]
	if err := s.Store.SelectChat(chat.ID); err != nil {
		fmt.Println(styles.RenderError("Select failed: " + err.Error()))
		return
	}
	fmt.Println(styles.RenderInfo("Switched to: " + chat.Title))
}

func (s *Session) printTranscript() {
	chat := s.Store.CurrentChat()
	if chat.IsBlank() {
		fmt.Println(subtleStyle.Render("This chat is empty."))
		return
	}
	for _, msg := range chat.Messages {
		if msg.Role == model.RoleSystem || msg.IsEmpty() {
			continue
		}
		label := "You"
		if msg.Role == model.RoleAssistant {
			label = "Vidion"
		}
		fmt.Printf("%s %s\n%s\n\n",
			promptStyle.Render(label+":"),
			subtleStyle.Render(msg.Timestamp.Format("Jan 2 15:04")),
			msg.Content)
	}
}

func (s *Session) cmdSearch(arg string) {
	if s.History == nil {
		fmt.Println(styles.RenderWarning("History search is unavailable (index disabled)."))
		return
	}
	if arg == "" {
		fmt.Println(styles.RenderWarning("Usage: /search <query>"))
		return
	}
	results, err := s.History.Search(arg, nil)
	if err != nil {
		fmt.Println(styles.RenderError("Search failed: " + err.Error()))
		return
	}
	if len(results) == 0 {
		fmt.Println(subtleStyle.Render("No matches for \"" + arg + "\"."))
		return
	}
	fmt.Println(bannerStyle.Render(fmt.Sprintf("%d matches:", len(results))))
	for i, r := range results {
		fmt.Printf("%2d. %s %s\n    %s\n",
			i+1,
			commandStyle.Render(r.ChatTitle),
			subtleStyle.Render("("+r.Timestamp.Format("Jan 2")+")"),
			r.Snippet)
	}
}

func (s *Session) cmdWeb(ctx context.Context, arg string) {
	if s.Web == nil {
		fmt.Println(styles.RenderWarning("Web search is unavailable."))
		return
	}
	if arg == "" {
		fmt.Println(styles.RenderWarning("Usage: /web <query>"))
		return
	}
	fmt.Println(subtleStyle.Render("Searching the web..."))
	results, err := s.Web.Search(ctx, arg)
	if err != nil {
		fmt.Println(styles.RenderError("Web search failed: " + err.Error()))
		return
	}
	fmt.Println(search.FormatResults(arg, results))
	if len(results) > 0 {
		// Feed the results to the model so the answer cites fresh context.
		s.sendMessage(ctx, search.AugmentPrompt(arg, results))
	}
}

func (s *Session) cmdExport(arg string) {
	chat := s.Store.CurrentChat()
	if chat.IsBlank() {
		fmt.Println(styles.RenderWarning("Nothing to export yet."))
		return
	}
	opts := export.DefaultOptions()
	var exporter export.Exporter
	switch strings.ToLower(arg) {
	case "", "md", "markdown":
		exporter = export.NewMarkdownExporter(opts)
	case "html":
		exporter = export.NewHTMLExporter(opts)
	case "json":
		exporter = export.NewJSONExporter()
	default:
		fmt.Println(styles.RenderWarning("Usage: /export [md|html|json]"))
		return
	}
	path, err := export.ToFile(chat, exporter, opts)
	if err != nil {
		fmt.Println(styles.RenderError("Export failed: " + err.Error()))
		return
	}
	fmt.Println(styles.RenderInfo("Exported to " + path))
}

// =============================================================================
// MESSAGE FLOW
// =============================================================================

// sendMessage appends the user turn and streams the reply to stdout.
func (s *Session) sendMessage(ctx context.Context, text string) {
	chatID := s.Store.CurrentChatID()
	if chatID == "" {
		chatID = s.Store.CreateChat().ID
	}
	s.Store.AppendMessage(chatID, model.NewUserMessage(text))
	s.generate(ctx, chatID)
}

// cmdRegen discards the newest assistant turn and asks the model again with
// the same history.
func (s *Session) cmdRegen(ctx context.Context) {
	chat := s.Store.CurrentChat()
	n := len(chat.Messages)
	if n == 0 || chat.Messages[n-1].Role != model.RoleAssistant {
		fmt.Println(styles.RenderWarning("No response to regenerate yet."))
		return
	}
	s.Store.ReplaceMessages(chat.ID, chat.Messages[:n-1])
	s.generate(ctx, chat.ID)
}

// generate streams a reply for the chat's current history to stdout.
func (s *Session) generate(ctx context.Context, chatID string) {
	chat, err := s.Store.Chat(chatID)
	if err != nil {
		fmt.Println(styles.RenderError(err.Error()))
		return
	}
	history := provider.MessagesFromChat(chat)
	m := s.Store.SelectedModel()

	if s.Printer != nil {
		s.Printer.Start(chatID)
		defer s.Printer.Stop()
	}

	err = s.Engine.Generate(ctx, chatID, m, history)
	fmt.Println()
	if err != nil && !errors.Is(err, context.Canceled) {
		fmt.Println(styles.RenderError(err.Error()))
		return
	}
	s.turns++

	if s.History != nil {
		if chat, err := s.Store.Chat(chatID); err == nil {
			if err := s.History.IndexChat(chat); err != nil {
				s.Logger.Debug("index update failed", zap.Error(err))
			}
		}
	}
}

// =============================================================================
// BANNERS
// =============================================================================

func (s *Session) printWelcome() {
	m := s.Store.SelectedModel()
	fmt.Println(bannerStyle.Render("Vidion AI") + subtleStyle.Render("  plain terminal mode"))
	fmt.Printf("Model: %s. Type %s for commands, %s to leave.\n\n",
		commandStyle.Render(m.Name),
		commandStyle.Render("/help"),
		commandStyle.Render("/quit"))
}

func (s *Session) printHelp() {
	rows := [][2]string{
		{"/help", "show this help"},
		{"/new", "start a new chat"},
		{"/chats", "list chats"},
		{"/select <n>", "switch to chat n"},
		{"/history", "print the current transcript"},
		{"/regen", "regenerate the last response"},
		{"/model [id]", "show or switch the model"},
		{"/models", "list the model catalog"},
		{"/search <query>", "full-text search across chat history"},
		{"/web <query>", "search the web and answer with the results"},
		{"/export [md|html|json]", "export the current chat to a file"},
		{"/quit", "leave"},
	}
	fmt.Println(bannerStyle.Render("Commands:"))
	for _, r := range rows {
		fmt.Printf("  %s %s\n", commandStyle.Render(fmt.Sprintf("%-24s", r[0])), r[1])
	}
	fmt.Println(subtleStyle.Render("\nCtrl+C stops a response in flight."))
}

func (s *Session) printExitSummary() {
	elapsed := time.Since(s.start).Round(time.Second)
	fmt.Printf("\n%s %d exchanges in %s. Bye.\n",
		subtleStyle.Render("Session:"), s.turns, elapsed)
}
