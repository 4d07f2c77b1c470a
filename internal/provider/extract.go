// Copyright (c) 2024-2025 Preetam
// SPDX-License-Identifier: AGPL-3.0-or-later

package provider

import (
	"encoding/json"
	"strings"
)

// Vendors do not all shape their payloads the same way, so extraction runs
// an ordered pipeline of typed extractors and takes the first hit. Each
// extractor unmarshals into its own narrow struct; a field must be present
// (not merely empty) to count as a hit, which is why the structs use
// pointers for the content leaf.

// extractor pulls a text fragment out of a decoded record.
type extractor func(data []byte) (string, bool)

// =============================================================================
// DELTA EXTRACTION (streaming records)
// =============================================================================

// deltaExtractors is the fallback order for streaming records:
// choices[0].delta.content, then a bare delta object, then a bare content
// field.
var deltaExtractors = []extractor{
	extractChoicesDelta,
	extractBareDelta,
	extractBareContent,
}

// ExtractDelta pulls the text fragment out of one streaming record.
// Returns false when no extractor recognizes the shape.
func ExtractDelta(data []byte) (string, bool) {
	for _, ex := range deltaExtractors {
		if s, ok := ex(data); ok {
			return s, true
		}
	}
	return "", false
}

func extractChoicesDelta(data []byte) (string, bool) {
	var v struct {
		Choices []struct {
			Delta struct {
				Content *string `json:"content"`
			} `json:"delta"`
		} `json:"choices"`
	}
	if err := json.Unmarshal(data, &v); err != nil {
		return "", false
	}
	if len(v.Choices) == 0 || v.Choices[0].Delta.Content == nil {
		return "", false
	}
	return *v.Choices[0].Delta.Content, true
}

func extractBareDelta(data []byte) (string, bool) {
	var v struct {
		Delta struct {
			Content *string `json:"content"`
		} `json:"delta"`
	}
	if err := json.Unmarshal(data, &v); err != nil {
		return "", false
	}
	if v.Delta.Content == nil {
		return "", false
	}
	return *v.Delta.Content, true
}

func extractBareContent(data []byte) (string, bool) {
	var v struct {
		Content *string `json:"content"`
	}
	if err := json.Unmarshal(data, &v); err != nil {
		return "", false
	}
	if v.Content == nil {
		return "", false
	}
	return *v.Content, true
}

// =============================================================================
// FULL-RESPONSE EXTRACTION
// =============================================================================

// contentExtractors is the fallback order for non-streaming responses:
// choices[0].message.content, then a bare message object, then a bare
// content field.
var contentExtractors = []extractor{
	extractChoicesMessage,
	extractBareMessage,
	extractBareContent,
}

// ExtractContent pulls the full response text out of a completion body.
func ExtractContent(data []byte) (string, bool) {
	for _, ex := range contentExtractors {
		if s, ok := ex(data); ok {
			return s, true
		}
	}
	return "", false
}

func extractChoicesMessage(data []byte) (string, bool) {
	var v struct {
		Choices []struct {
			Message struct {
				Content *string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.Unmarshal(data, &v); err != nil {
		return "", false
	}
	if len(v.Choices) == 0 || v.Choices[0].Message.Content == nil {
		return "", false
	}
	return *v.Choices[0].Message.Content, true
}

func extractBareMessage(data []byte) (string, bool) {
	var v struct {
		Message struct {
			Content *string `json:"content"`
		} `json:"message"`
	}
	if err := json.Unmarshal(data, &v); err != nil {
		return "", false
	}
	if v.Message.Content == nil {
		return "", false
	}
	return *v.Message.Content, true
}

// =============================================================================
// THINKING SIDE-CHANNEL
// =============================================================================

// SplitThinking separates <think>...</think> blocks from a response body.
// Some models interleave reasoning with the answer; the UI shows the answer
// and keeps the reasoning on the message's thinking field. An unclosed tag
// is treated as thinking to the end of the text.
func SplitThinking(content string) (answer, thinking string) {
	const openTag, closeTag = "<think>", "</think>"

	var answerParts, thinkingParts []string
	rest := content
	for {
		start := strings.Index(rest, openTag)
		if start < 0 {
			answerParts = append(answerParts, rest)
			break
		}
		answerParts = append(answerParts, rest[:start])
		rest = rest[start+len(openTag):]

		end := strings.Index(rest, closeTag)
		if end < 0 {
			thinkingParts = append(thinkingParts, rest)
			break
		}
		thinkingParts = append(thinkingParts, rest[:end])
		rest = rest[end+len(closeTag):]
	}

	answer = strings.TrimSpace(strings.Join(answerParts, ""))
	thinking = strings.TrimSpace(strings.Join(thinkingParts, "\n\n"))
	return answer, thinking
}
