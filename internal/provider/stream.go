// Copyright (c) 2024-2025 Preetam
// SPDX-License-Identifier: AGPL-3.0-or-later

package provider

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/preetam-90/vidion-ai/internal/model"
)

// MaxEventSize is the maximum allowed size for a single SSE event (64KB).
const MaxEventSize = 64 * 1024

// doneSentinel terminates an SSE stream.
var doneSentinel = []byte("[DONE]")

// DeltaCallback receives each extracted text fragment in arrival order.
type DeltaCallback func(delta string)

// =============================================================================
// SSE READER
// =============================================================================

// SSEReader parses Server-Sent Events from a response body.
type SSEReader struct {
	reader *bufio.Reader
}

// NewSSEReader creates a new SSE reader from an io.Reader.
func NewSSEReader(r io.Reader) *SSEReader {
	return &SSEReader{
		reader: bufio.NewReader(r),
	}
}

// ReadEvent reads the next SSE event and returns its event type and data.
// Multi-line data fields are joined with newlines. Returns io.EOF when the
// stream ends.
func (s *SSEReader) ReadEvent() (string, []byte, error) {
	var eventType string
	var dataLines [][]byte
	var size int

	for {
		line, err := s.reader.ReadBytes('\n')
		if err != nil {
			if err == io.EOF {
				if len(dataLines) > 0 {
					return eventType, bytes.Join(dataLines, []byte("\n")), nil
				}
				return "", nil, io.EOF
			}
			return "", nil, err
		}

		size += len(line)
		if size > MaxEventSize {
			return "", nil, fmt.Errorf("SSE event too large: %d bytes", size)
		}

		line = bytes.TrimRight(line, "\r\n")

		// Empty line signals end of event.
		if len(line) == 0 {
			if len(dataLines) > 0 {
				return eventType, bytes.Join(dataLines, []byte("\n")), nil
			}
			continue
		}

		if bytes.HasPrefix(line, []byte("event:")) {
			eventType = string(bytes.TrimSpace(line[6:]))
		} else if bytes.HasPrefix(line, []byte("data:")) {
			dataLines = append(dataLines, bytes.TrimSpace(line[5:]))
		}
		// Other fields (id:, retry:, comments) are ignored.
	}
}

// =============================================================================
// STREAMING COMPLETION
// =============================================================================

// StreamDeltas performs a streaming chat completion, invoking the callback
// for each text fragment as it arrives. The call returns when the vendor
// signals completion, the stream ends, or ctx is cancelled.
//
// Malformed records are logged and skipped; one bad record must not kill
// the stream.
func (c *Client) StreamDeltas(ctx context.Context, m model.Model, messages []ChatMessage, onDelta DeltaCallback) error {
	if !c.IsConfigured(m.Provider) {
		return fmt.Errorf("%w: %s", ErrNotConfigured, m.Provider)
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}

	reqBody := ChatRequest{
		Model:    m.ModelID,
		Messages: messages,
		Stream:   true,
	}

	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.APIEndpoint, bytes.NewReader(bodyBytes))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	c.setHeaders(req, m)
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("Cache-Control", "no-cache")

	resp, err := sharedStreamingClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, MaxResponseSize))
		if resp.StatusCode == http.StatusTooManyRequests {
			if rlErr := rateLimitFromHeader(resp); rlErr != nil {
				return rlErr
			}
		}
		return handleErrorResponse(resp.StatusCode, body)
	}

	return c.processStream(ctx, resp.Body, onDelta)
}

// processStream reads SSE records, extracts deltas, and forwards them until
// the [DONE] sentinel, a finish_reason, stream end, or cancellation.
func (c *Client) processStream(ctx context.Context, body io.Reader, onDelta DeltaCallback) error {
	reader := NewSSEReader(body)
	var received string

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		_, data, err := reader.ReadEvent()
		if err != nil {
			if err == io.EOF {
				return nil
			}
			return &StreamError{Partial: received, Err: err}
		}

		if bytes.Equal(data, doneSentinel) {
			return nil
		}

		delta, ok := ExtractDelta(data)
		switch {
		case ok:
			if delta != "" {
				received += delta
				onDelta(delta)
			}
		case json.Valid(data):
			// Role-only and keepalive records carry no content field.
			// They are expected, so they do not rate a warning, but they
			// may still carry the finish_reason.
		default:
			c.logger.Warn("skipping malformed stream record",
				zap.Int("size", len(data)))
			continue
		}

		if streamFinished(data) {
			return nil
		}
	}
}

// streamFinished reports whether a record carries a finish_reason.
func streamFinished(data []byte) bool {
	var v struct {
		Choices []struct {
			FinishReason string `json:"finish_reason"`
		} `json:"choices"`
	}
	if err := json.Unmarshal(data, &v); err != nil {
		return false
	}
	return len(v.Choices) > 0 && v.Choices[0].FinishReason != ""
}

// rateLimitFromHeader builds a RateLimitError from a Retry-After header.
func rateLimitFromHeader(resp *http.Response) error {
	retryAfter := strings.TrimSpace(resp.Header.Get("Retry-After"))
	if retryAfter == "" {
		return nil
	}
	if seconds, err := strconv.Atoi(retryAfter); err == nil {
		return &RateLimitError{RetryAfter: time.Duration(seconds) * time.Second}
	}
	if t, err := http.ParseTime(retryAfter); err == nil {
		return &RateLimitError{RetryAfter: time.Until(t)}
	}
	return ErrRateLimited
}

// =============================================================================
// ACCUMULATED STREAMING
// =============================================================================

// StreamAccumulate streams a completion but returns the assembled response.
// On a mid-stream failure the partial content is returned alongside the
// error so callers can keep what arrived.
func (c *Client) StreamAccumulate(ctx context.Context, m model.Model, messages []ChatMessage) (string, error) {
	var accumulated strings.Builder

	err := c.StreamDeltas(ctx, m, messages, func(delta string) {
		accumulated.WriteString(delta)
	})

	return accumulated.String(), err
}
