// Package utils provides token counting utilities backed by tiktoken.
package utils

import (
	"fmt"
	"sync"

	"github.com/pkoukk/tiktoken-go"

	"github.com/biomedmcp/biomed/pkg/protocol"
)

// TokenCounter handles accurate token counting per model
type TokenCounter struct {
	encoding *tiktoken.Tiktoken
	model    string
	mu       sync.RWMutex
}

var (
	// Cache encodings to avoid repeated initialization
	encodingCache = make(map[string]*tiktoken.Tiktoken)
	cacheMu       sync.RWMutex
)

// NewTokenCounter creates a counter for a specific model
func NewTokenCounter(model string) (*TokenCounter, error) {
	cacheMu.RLock()
	cached, exists := encodingCache[model]
	cacheMu.RUnlock()

	if exists {
		return &TokenCounter{encoding: cached, model: model}, nil
	}

	encoding, err := tiktoken.EncodingForModel(model)
	if err != nil {
		// Fallback to cl100k_base (GPT-4, GPT-3.5-turbo)
		encoding, err = tiktoken.GetEncoding("cl100k_base")
		if err != nil {
			return nil, fmt.Errorf("failed to get encoding: %w", err)
		}
	}

	cacheMu.Lock()
	encodingCache[model] = encoding
	cacheMu.Unlock()

	return &TokenCounter{encoding: encoding, model: model}, nil
}

// Count returns the token count for text
func (tc *TokenCounter) Count(text string) int {
	tc.mu.RLock()
	defer tc.mu.RUnlock()

	return len(tc.encoding.Encode(text, nil, nil))
}

// CountMessages counts tokens in a message list (includes role overhead)
// Based on OpenAI's token counting format:
// https://github.com/openai/openai-cookbook/blob/main/examples/How_to_count_tokens_with_tiktoken.ipynb
func (tc *TokenCounter) CountMessages(messages []*protocol.Message) int {
	tc.mu.RLock()
	defer tc.mu.RUnlock()

	tokensPerMessage := 3 // <|start|>role|message<|end|>

	totalTokens := 0
	for _, msg := range messages {
		totalTokens += tokensPerMessage
		totalTokens += len(tc.encoding.Encode(string(msg.Role), nil, nil))
		totalTokens += len(tc.encoding.Encode(msg.Content, nil, nil))
	}

	// Every reply is primed with <|start|>assistant<|message|>
	totalTokens += 3

	return totalTokens
}

// TruncateToFit cuts text at a token boundary so it fits within maxTokens.
func (tc *TokenCounter) TruncateToFit(text string, maxTokens int) string {
	tc.mu.Lock()
	defer tc.mu.Unlock()

	tokens := tc.encoding.Encode(text, nil, nil)
	if len(tokens) <= maxTokens {
		return text
	}
	if maxTokens <= 0 {
		return ""
	}
	return tc.encoding.Decode(tokens[:maxTokens])
}

// GetModel returns the model name this counter is configured for
func (tc *TokenCounter) GetModel() string {
	return tc.model
}

// EstimateTokens provides a rough token estimation for when no counter
// is available (4 characters per token).
func EstimateTokens(text string) int {
	return len(text) / 4
}
