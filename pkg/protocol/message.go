// Package protocol defines the chat message model shared between the
// reasoning engine, the LLM providers and the session stores.
package protocol

import "context"

// Role identifies the author of a message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// SessionIDKeyType is a custom type for context keys to avoid collisions
type SessionIDKeyType string

// SessionIDKey is the context key for storing session IDs across the application
const SessionIDKey SessionIDKeyType = "biomed:sessionID"

// ToolCall is a tool invocation requested by the model.
type ToolCall struct {
	ID   string                 `json:"id"`
	Name string                 `json:"name"`
	Args map[string]interface{} `json:"arguments"`
}

// Message is a single conversation turn.
//
// An assistant message carries ToolCalls when the model decided to act;
// an empty ToolCalls slice means the text is a final answer. Tool
// messages carry the observation for exactly one ToolCall, referenced
// by ToolCallID.
type Message struct {
	Role       Role        `json:"role"`
	Content    string      `json:"content"`
	ToolCalls  []*ToolCall `json:"tool_calls,omitempty"`
	ToolCallID string      `json:"tool_call_id,omitempty"`
	Name       string      `json:"name,omitempty"`
}

func NewSystemMessage(text string) *Message {
	return &Message{Role: RoleSystem, Content: text}
}

func NewUserMessage(text string) *Message {
	return &Message{Role: RoleUser, Content: text}
}

func NewAssistantMessage(text string, toolCalls []*ToolCall) *Message {
	return &Message{Role: RoleAssistant, Content: text, ToolCalls: toolCalls}
}

func NewToolMessage(toolCallID, toolName, content string) *Message {
	return &Message{Role: RoleTool, Content: content, ToolCallID: toolCallID, Name: toolName}
}

// HasToolCalls reports whether the message requests tool execution.
func (m *Message) HasToolCalls() bool {
	return m != nil && len(m.ToolCalls) > 0
}

// CallsTool reports whether the message requests the named tool.
func (m *Message) CallsTool(name string) bool {
	if m == nil {
		return false
	}
	for _, tc := range m.ToolCalls {
		if tc.Name == name {
			return true
		}
	}
	return false
}

// SessionIDFromContext returns the session ID carried by ctx, or
// "default" when none is set.
func SessionIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return "default"
	}
	if v := ctx.Value(SessionIDKey); v != nil {
		if sid, ok := v.(string); ok && sid != "" {
			return sid
		}
	}
	return "default"
}

// WithSessionID returns a context carrying the given session ID.
func WithSessionID(ctx context.Context, sessionID string) context.Context {
	return context.WithValue(ctx, SessionIDKey, sessionID)
}
