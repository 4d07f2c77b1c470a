// Copyright (c) 2024-2025 Preetam
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import "strings"

// =============================================================================
// PROVIDER TYPE
// =============================================================================

// Provider identifies which vendor API serves a model.
type Provider string

const (
	ProviderGroq       Provider = "groq"
	ProviderOpenRouter Provider = "openrouter"
)

// Vendor chat-completion endpoints.
const (
	GroqEndpoint       = "https://api.groq.com/openai/v1/chat/completions"
	OpenRouterEndpoint = "https://openrouter.ai/api/v1/chat/completions"
)

// =============================================================================
// MODEL TYPE
// =============================================================================

// Model describes one entry in the model catalog.
type Model struct {
	// ID is the catalog identifier used for selection and persistence.
	ID string `json:"id"`

	// Name is the human-readable display name.
	Name string `json:"name"`

	// Provider identifies the vendor serving the model.
	Provider Provider `json:"provider"`

	// APIEndpoint is the chat-completions URL for this model.
	APIEndpoint string `json:"api_endpoint"`

	// ModelID is the vendor-side model identifier sent in requests.
	ModelID string `json:"model_id"`

	// NoStream marks models whose endpoint does not support incremental
	// delivery. Responses are fetched whole and revealed with simulated
	// streaming instead.
	NoStream bool `json:"no_stream,omitempty"`

	// SingleTurn marks models that only accept a reduced message list of
	// the system prompt plus the latest user turn.
	SingleTurn bool `json:"single_turn,omitempty"`
}

// =============================================================================
// MODEL CATALOG
// =============================================================================

// The catalog is fixed at process start. Entries are value types so callers
// can hold them without aliasing concerns.
var (
	GroqLlama3 = Model{
		ID:          "groq-llama3-8b",
		Name:        "Llama 3 (Groq)",
		Provider:    ProviderGroq,
		APIEndpoint: GroqEndpoint,
		ModelID:     "llama3-8b-8192",
	}

	Mercury = Model{
		ID:          "openrouter-mercury",
		Name:        "Mercury DLLM (OpenRouter)",
		Provider:    ProviderOpenRouter,
		APIEndpoint: OpenRouterEndpoint,
		ModelID:     "inception/mercury-coder-small-beta",
		NoStream:    true,
		SingleTurn:  true,
	}

	Sonar = Model{
		ID:          "openrouter-sonar",
		Name:        "Sonar Pro (Perplexity)",
		Provider:    ProviderOpenRouter,
		APIEndpoint: OpenRouterEndpoint,
		ModelID:     "perplexity/sonar-medium-online",
	}

	ClaudeHaiku = Model{
		ID:          "openrouter-claude",
		Name:        "Claude 3 Haiku (Thinking)",
		Provider:    ProviderOpenRouter,
		APIEndpoint: OpenRouterEndpoint,
		ModelID:     "anthropic/claude-3-haiku",
	}

	ClaudeOpus = Model{
		ID:          "openrouter-claude-opus",
		Name:        "Claude 3 Opus (Thinking)",
		Provider:    ProviderOpenRouter,
		APIEndpoint: OpenRouterEndpoint,
		ModelID:     "anthropic/claude-3-opus",
	}

	Mixtral = Model{
		ID:          "openrouter-mixtral",
		Name:        "Mixtral 8x7B (OpenRouter)",
		Provider:    ProviderOpenRouter,
		APIEndpoint: OpenRouterEndpoint,
		ModelID:     "mistralai/mixtral-8x7b-instruct",
	}
)

// DefaultModel is used when no selection is persisted or the persisted
// selection is unknown.
var DefaultModel = Mercury

// FallbackModel is substituted when a vendor rejects the selected model as
// misconfigured.
var FallbackModel = Mixtral

// AvailableModels returns the catalog in display order.
func AvailableModels() []Model {
	return []Model{GroqLlama3, ClaudeHaiku, ClaudeOpus, Mixtral, Mercury, Sonar}
}

// =============================================================================
// MODEL LOOKUP
// =============================================================================

// GetModel looks up a catalog entry by its ID. Returns the model and true
// if found, otherwise the zero Model and false.
func GetModel(id string) (Model, bool) {
	for _, m := range AvailableModels() {
		if m.ID == id {
			return m, true
		}
	}
	return Model{}, false
}

// GetModelOrDefault looks up a catalog entry by ID, falling back to
// DefaultModel when the ID is unknown or empty.
func GetModelOrDefault(id string) Model {
	if m, ok := GetModel(id); ok {
		return m
	}
	return DefaultModel
}

// GetModelByOverride maps a UI shortcut key to a specific catalog entry.
// Unrecognized or empty keys fall back to the given selected model.
func GetModelByOverride(key string, selected Model) Model {
	switch strings.ToLower(strings.TrimSpace(key)) {
	case "search":
		return Sonar
	case "reason":
		return ClaudeHaiku
	case "research":
		return ClaudeOpus
	default:
		return selected
	}
}

// =============================================================================
// SYSTEM PROMPT
// =============================================================================

// SystemPrompt seeds every new chat. It fixes the assistant's identity and
// the markdown formatting conventions the renderer expects.
const SystemPrompt = `You are Vidion AI, an advanced assistant created by Preetam.

Your job is to provide answers that are:
- Structured
- Clean
- Markdown-formatted
- Easy to read

Formatting rules:
- Use **bold** to highlight key terms
- Use *italics* for emphasis or clarity
- Use ` + "`inline code`" + ` for commands or keywords
- Use bullet points ` + "`-`" + ` or numbered steps ` + "`1.`" + ` for lists
- Add ` + "`###`" + ` subheadings to organize long answers
- Avoid dense paragraphs; keep sentences brief and spaced
- Use horizontal lines ` + "`---`" + ` to separate sections (if needed)
- End with a short, friendly closing or summary line

IDENTITY: You are Vidion AI. NEVER start responses with "I am Vidion AI" or similar introductions.
ALWAYS end your responses with "I am Vidion AI, developed by Preetam." as a signature.
Never say you are LLaMA, Claude, GPT, or any other model. Never mention Meta AI, OpenAI, Anthropic or any other company.`
