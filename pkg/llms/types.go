// Package llms provides chat completion providers with native tool
// calling behind a common interface.
package llms

import (
	"context"
	"errors"
	"strings"

	"github.com/biomedmcp/biomed/pkg/protocol"
)

// ToolDefinition describes a callable tool to the model.
type ToolDefinition struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	Parameters  map[string]interface{} `json:"parameters"`
}

// Provider is a chat completion backend.
//
// Generate returns the assistant text, any requested tool calls and the
// total token usage. An empty tool-call slice means the text is a final
// answer.
type Provider interface {
	Generate(ctx context.Context, messages []*protocol.Message, tools []ToolDefinition) (string, []*protocol.ToolCall, int, error)

	GetModelName() string

	GetMaxTokens() int

	Close() error
}

// TokenLimitError reports that the request exceeded the model's
// context window. The summarizer retries with truncated input when it
// sees this error.
type TokenLimitError struct {
	Model   string
	Message string
}

func (e *TokenLimitError) Error() string {
	return "token limit exceeded for " + e.Model + ": " + e.Message
}

// IsTokenLimitError reports whether err indicates a context-window
// overflow.
func IsTokenLimitError(err error) bool {
	if err == nil {
		return false
	}
	var tle *TokenLimitError
	if errors.As(err, &tle) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "context_length_exceeded") ||
		strings.Contains(msg, "maximum context length") ||
		strings.Contains(msg, "string_above_max_length") ||
		strings.Contains(msg, "token limit")
}
