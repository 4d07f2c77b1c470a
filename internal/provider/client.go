// Copyright (c) 2024-2025 Preetam
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package provider implements the HTTP clients for the Groq and OpenRouter
// chat-completion APIs, including SSE streaming, typed errors, retry with
// exponential backoff, and client-side rate limiting.
package provider

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/preetam-90/vidion-ai/internal/model"
)

// Configuration constants for vendor API requests.
const (
	// DefaultTimeout bounds non-streaming requests.
	DefaultTimeout = 60 * time.Second

	// DefaultMaxRetries is the retry budget for transient errors.
	DefaultMaxRetries = 3

	// retryBaseDelay is the base delay for exponential backoff.
	retryBaseDelay = 500 * time.Millisecond

	// retryMaxDelay caps the backoff delay.
	retryMaxDelay = 10 * time.Second

	// MaxResponseSize bounds a non-streaming response body.
	MaxResponseSize = 10 * 1024 * 1024

	// defaultRequestsPerSecond is the client-side rate limit.
	defaultRequestsPerSecond = 2
)

// Shared HTTP clients with connection pooling. The streaming client has no
// timeout; stream lifetime is controlled by the request context.
var (
	sharedHTTPClient = &http.Client{
		Transport: pooledTransport(),
		Timeout:   DefaultTimeout,
	}

	sharedStreamingClient = &http.Client{
		Transport: pooledTransport(),
	}
)

func pooledTransport() *http.Transport {
	return &http.Transport{
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 10,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
		TLSClientConfig: &tls.Config{
			MinVersion: tls.VersionTLS12,
		},
	}
}

// =============================================================================
// WIRE TYPES
// =============================================================================

// ChatMessage is a single message in the wire format both vendors accept.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatRequest is the request body for the chat completions endpoint.
type ChatRequest struct {
	Model       string        `json:"model"`
	Messages    []ChatMessage `json:"messages"`
	Stream      bool          `json:"stream"`
	Temperature float64       `json:"temperature,omitempty"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
}

// MessagesFromChat converts a chat's history to the wire format, dropping
// messages with no content (an unfinished assistant placeholder, say).
func MessagesFromChat(chat model.Chat) []ChatMessage {
	out := make([]ChatMessage, 0, len(chat.Messages))
	for _, msg := range chat.Messages {
		content := msg.DisplayContent()
		if content == "" {
			continue
		}
		out = append(out, ChatMessage{Role: msg.Role.String(), Content: content})
	}
	return out
}

// ReduceHistory trims the wire-format history for single-turn models down
// to the system prompt plus the latest user turn. Other models get the
// history back unchanged.
func ReduceHistory(m model.Model, messages []ChatMessage) []ChatMessage {
	if !m.SingleTurn {
		return messages
	}
	reduced := make([]ChatMessage, 0, 2)
	for _, msg := range messages {
		if msg.Role == string(model.RoleSystem) {
			reduced = append(reduced, msg)
			break
		}
	}
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role == string(model.RoleUser) {
			reduced = append(reduced, messages[i])
			break
		}
	}
	return reduced
}

// =============================================================================
// CLIENT
// =============================================================================

// Config carries the per-vendor credentials and request attribution.
type Config struct {
	GroqAPIKey       string
	OpenRouterAPIKey string

	// SiteURL and SiteName populate OpenRouter's attribution headers.
	SiteURL  string
	SiteName string

	MaxRetries        int
	RequestsPerSecond float64
}

// Client talks to both vendor families. The model passed per call decides
// which endpoint and key are used.
type Client struct {
	groqKey       string
	openRouterKey string
	siteURL       string
	siteName      string
	maxRetries    int
	limiter       *rate.Limiter
	logger        *zap.Logger
}

// NewClient builds a client. Missing keys are allowed; requests against the
// unconfigured provider fail with ErrNotConfigured.
func NewClient(cfg Config, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = DefaultMaxRetries
	}
	rps := cfg.RequestsPerSecond
	if rps <= 0 {
		rps = defaultRequestsPerSecond
	}
	return &Client{
		groqKey:       strings.TrimSpace(cfg.GroqAPIKey),
		openRouterKey: strings.TrimSpace(cfg.OpenRouterAPIKey),
		siteURL:       cfg.SiteURL,
		siteName:      cfg.SiteName,
		maxRetries:    cfg.MaxRetries,
		limiter:       rate.NewLimiter(rate.Limit(rps), 1),
		logger:        logger,
	}
}

// apiKey returns the credential for a provider, empty when unset.
func (c *Client) apiKey(p model.Provider) string {
	switch p {
	case model.ProviderGroq:
		return c.groqKey
	case model.ProviderOpenRouter:
		return c.openRouterKey
	default:
		return ""
	}
}

// IsConfigured reports whether the provider has a key.
func (c *Client) IsConfigured(p model.Provider) bool {
	return c.apiKey(p) != ""
}

// setHeaders sets auth and attribution headers for a request.
func (c *Client) setHeaders(req *http.Request, m model.Model) {
	req.Header.Set("Authorization", "Bearer "+c.apiKey(m.Provider))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "vidion-ai/1.0")

	if m.Provider == model.ProviderOpenRouter {
		if c.siteURL != "" {
			req.Header.Set("HTTP-Referer", c.siteURL)
		}
		if c.siteName != "" {
			req.Header.Set("X-Title", c.siteName)
		}
	}
}

// =============================================================================
// NON-STREAMING COMPLETION
// =============================================================================

// Complete performs a non-streaming chat completion and returns the full
// response text. Transient failures (rate limiting, 5xx) are retried with
// exponential backoff.
func (c *Client) Complete(ctx context.Context, m model.Model, messages []ChatMessage) (string, error) {
	if !c.IsConfigured(m.Provider) {
		return "", fmt.Errorf("%w: %s", ErrNotConfigured, m.Provider)
	}

	reqBody := ChatRequest{
		Model:    m.ModelID,
		Messages: messages,
		Stream:   false,
	}

	var lastErr error
	for attempt := 0; attempt < c.maxRetries; attempt++ {
		if attempt > 0 {
			delay := calculateBackoff(attempt)
			c.logger.Debug("retrying completion",
				zap.Int("attempt", attempt), zap.Duration("delay", delay))
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(delay):
			}
		}

		content, err := c.doComplete(ctx, m, reqBody)
		if err != nil {
			if isRetryable(err) {
				lastErr = err
				continue
			}
			return "", err
		}
		return content, nil
	}

	if lastErr != nil {
		return "", fmt.Errorf("max retries exceeded: %w", lastErr)
	}
	return "", errors.New("max retries exceeded")
}

// doComplete performs a single completion request.
func (c *Client) doComplete(ctx context.Context, m model.Model, reqBody ChatRequest) (string, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return "", err
	}

	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.APIEndpoint, bytes.NewReader(bodyBytes))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	c.setHeaders(req, m)

	start := time.Now()
	resp, err := sharedHTTPClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := readResponse(resp)
	if err != nil {
		return "", err
	}

	c.logger.Debug("completion response",
		zap.String("model", m.ModelID),
		zap.Int("status", resp.StatusCode),
		zap.Duration("duration", time.Since(start)))

	if resp.StatusCode != http.StatusOK {
		return "", handleErrorResponse(resp.StatusCode, body)
	}

	content, ok := ExtractContent(body)
	if !ok || content == "" {
		return "", ErrEmptyResponse
	}
	return content, nil
}

// readResponse reads a response body with a size cap.
func readResponse(resp *http.Response) ([]byte, error) {
	body, err := io.ReadAll(io.LimitReader(resp.Body, MaxResponseSize))
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if int64(len(body)) == MaxResponseSize {
		return nil, fmt.Errorf("response exceeded maximum size of %d bytes", MaxResponseSize)
	}
	return body, nil
}

// =============================================================================
// RETRY HELPERS
// =============================================================================

// isRetryable determines if an error should trigger a retry.
func isRetryable(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	if errors.Is(err, ErrRateLimited) {
		return true
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Status >= 500 && apiErr.Status < 600
	}
	return false
}

// calculateBackoff returns the delay before the next retry attempt.
func calculateBackoff(attempt int) time.Duration {
	delay := retryBaseDelay * time.Duration(1<<uint(attempt))
	if delay > retryMaxDelay {
		delay = retryMaxDelay
	}
	return delay
}
