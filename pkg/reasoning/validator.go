package reasoning

import "github.com/biomedmcp/biomed/pkg/protocol"

// ValidateMessageSequence repairs a message history so it satisfies the
// chat completions API ordering rules: system messages may only lead,
// tool messages must follow the assistant message whose tool call they
// answer, and orphaned tool messages are dropped.
func ValidateMessageSequence(messages []*protocol.Message) []*protocol.Message {
	if len(messages) == 0 {
		return nil
	}

	validated := make([]*protocol.Message, 0, len(messages))
	i := 0

	for i < len(messages) {
		current := messages[i]

		// System messages are only valid at the head.
		if current.Role == protocol.RoleSystem && len(validated) > 0 {
			i++
			continue
		}

		if current.Role == protocol.RoleAssistant && current.HasToolCalls() {
			validated = append(validated, current)

			pending := make(map[string]bool, len(current.ToolCalls))
			for _, tc := range current.ToolCalls {
				pending[tc.ID] = true
			}

			// Collect the tool results answering this assistant turn.
			j := i + 1
			for j < len(messages) && len(pending) > 0 {
				next := messages[j]
				if next.Role != protocol.RoleTool {
					break
				}
				if pending[next.ToolCallID] {
					validated = append(validated, next)
					delete(pending, next.ToolCallID)
				}
				j++
			}
			i = j
			continue
		}

		switch current.Role {
		case protocol.RoleUser, protocol.RoleAssistant, protocol.RoleSystem:
			validated = append(validated, current)
			i++
		default:
			// Tool message with no preceding tool call.
			i++
		}
	}

	return validated
}

// WindowMessages bounds the history sent to the model. When the
// validated history exceeds the limit, it keeps the first user message
// for grounding plus the most recent limit-1 messages. The result
// still satisfies the ordering rules: tool results whose assistant
// turn fell outside the window are dropped with it.
func WindowMessages(messages []*protocol.Message, limit int) []*protocol.Message {
	if limit <= 0 || len(messages) <= limit {
		return messages
	}

	recent := messages[len(messages)-(limit-1):]

	// The cut can land inside an assistant tool-call turn, leaving its
	// tool results orphaned at the head of the window.
	for len(recent) > 0 && recent[0].Role == protocol.RoleTool {
		recent = recent[1:]
	}

	var firstUser *protocol.Message
	for _, msg := range messages {
		if msg.Role == protocol.RoleUser {
			firstUser = msg
			break
		}
	}

	if firstUser == nil {
		return recent
	}
	for _, msg := range recent {
		if msg == firstUser {
			return recent
		}
	}

	out := make([]*protocol.Message, 0, len(recent)+1)
	out = append(out, firstUser)
	out = append(out, recent...)
	return out
}
