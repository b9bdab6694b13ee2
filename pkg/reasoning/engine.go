// Package reasoning implements the bounded reason-act-observe loop the
// research agents run on, plus the message sequence validation and
// summarization that keep it inside model limits.
package reasoning

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/biomedmcp/biomed/pkg/config"
	"github.com/biomedmcp/biomed/pkg/llms"
	"github.com/biomedmcp/biomed/pkg/memory"
	"github.com/biomedmcp/biomed/pkg/observability"
	"github.com/biomedmcp/biomed/pkg/protocol"
	"github.com/biomedmcp/biomed/pkg/tools"
)

// Result is the outcome of one research call. Sources lists the
// external records the observations drew on; Notes records any
// degradation (failed adapters, truncated summaries) so a partial
// answer is never silent about being partial.
type Result struct {
	Summary    string               `json:"summary"`
	Sources    []tools.SourceRecord `json:"sources"`
	Notes      []string             `json:"notes,omitempty"`
	Iterations int                  `json:"iterations"`
	TokensUsed int                  `json:"tokens_used"`
	Duration   time.Duration        `json:"duration"`
	Degraded   bool                 `json:"degraded,omitempty"`
}

// Engine drives the research loop: it calls the model, dispatches the
// tool calls the model makes, feeds observations back, and stops on a
// completion signal, a plain answer, or the iteration cap.
type Engine struct {
	provider   llms.Provider
	tools      *tools.Registry
	sessions   memory.SessionService
	summarizer *Summarizer
	cfg        *config.ResearchConfig
	metrics    *observability.Metrics
	logger     *slog.Logger
}

func NewEngine(
	provider llms.Provider,
	toolRegistry *tools.Registry,
	sessions memory.SessionService,
	summarizer *Summarizer,
	cfg *config.ResearchConfig,
	metrics *observability.Metrics,
) *Engine {
	return &Engine{
		provider:   provider,
		tools:      toolRegistry,
		sessions:   sessions,
		summarizer: summarizer,
		cfg:        cfg,
		metrics:    metrics,
		logger:     slog.Default().With("component", "reasoning"),
	}
}

// Research runs the loop for one user prompt on the thread named by
// the session ID carried in ctx. History already stored under that
// thread carries into the model context, so follow-up calls on the
// same thread build on earlier findings.
func (e *Engine) Research(ctx context.Context, systemPrompt, userPrompt string) (*Result, error) {
	start := time.Now()
	threadID := protocol.SessionIDFromContext(ctx)

	history, err := e.sessions.GetMessages(ctx, threadID)
	if err != nil {
		return nil, fmt.Errorf("failed to load thread history: %w", err)
	}

	userMsg := protocol.NewUserMessage(userPrompt)
	history = append(history, userMsg)
	if err := e.sessions.AddMessage(ctx, threadID, userMsg); err != nil {
		return nil, fmt.Errorf("failed to persist message: %w", err)
	}

	defs := e.tools.Definitions()
	var findings []string
	result := &Result{Sources: []tools.SourceRecord{}}
	seen := make(map[string]bool)
	iterations := 0
	tokensUsed := 0

	for {
		validated := ValidateMessageSequence(history)
		windowed := WindowMessages(validated, e.cfg.MessageWindow)

		llmMessages := make([]*protocol.Message, 0, len(windowed)+1)
		llmMessages = append(llmMessages, protocol.NewSystemMessage(systemPrompt))
		llmMessages = append(llmMessages, windowed...)

		text, toolCalls, tokens, err := e.generateWithRetry(ctx, llmMessages, defs)
		if err != nil {
			return nil, fmt.Errorf("model call failed: %w", err)
		}
		tokensUsed += tokens

		assistant := protocol.NewAssistantMessage(text, toolCalls)
		history = append(history, assistant)
		if err := e.sessions.AddMessage(ctx, threadID, assistant); err != nil {
			return nil, fmt.Errorf("failed to persist message: %w", err)
		}
		if text != "" {
			findings = append(findings, text)
		}

		// A response without tool calls is the final answer.
		if !assistant.HasToolCalls() {
			e.logger.Info("Research completed with direct answer",
				"thread_id", threadID, "iterations", iterations, "tokens", tokensUsed)
			result.Summary = text
			result.Iterations = iterations
			result.TokensUsed = tokensUsed
			result.Duration = time.Since(start)
			return result, nil
		}

		if assistant.CallsTool(tools.ResearchCompleteName) {
			summary := e.completeResearch(ctx, threadID, assistant, &history)
			degraded := false
			if summary == "" {
				summary, degraded = e.summarizer.Summarize(ctx, userPrompt, findings)
			} else {
				e.logger.Info("Research completed via completion signal",
					"thread_id", threadID, "iterations", iterations+1, "tokens", tokensUsed)
			}
			return e.finish(ctx, threadID, &history, result, summary, iterations+1, tokensUsed, start, degraded)
		}

		// Dispatch the requested tools and feed back observations.
		for _, call := range assistant.ToolCalls {
			observation, sources, note := e.executeTool(ctx, call)
			toolMsg := protocol.NewToolMessage(call.ID, call.Name, observation)
			history = append(history, toolMsg)
			if err := e.sessions.AddMessage(ctx, threadID, toolMsg); err != nil {
				return nil, fmt.Errorf("failed to persist message: %w", err)
			}
			findings = append(findings, observation)

			for _, src := range sources {
				key := src.Source + "/" + src.ID
				if !seen[key] {
					seen[key] = true
					result.Sources = append(result.Sources, src)
				}
			}
			if note != "" {
				result.Notes = append(result.Notes, note)
			}
		}

		iterations++
		if iterations >= e.cfg.MaxToolCalls {
			e.logger.Info("Iteration cap reached, summarizing",
				"thread_id", threadID, "iterations", iterations)
			summary, degraded := e.summarizer.Summarize(ctx, userPrompt, findings)
			return e.finish(ctx, threadID, &history, result, summary, iterations, tokensUsed, start, degraded)
		}
	}
}

// finish persists the summary as the closing assistant message and
// assembles the result.
func (e *Engine) finish(
	ctx context.Context,
	threadID string,
	history *[]*protocol.Message,
	result *Result,
	summary string,
	iterations, tokensUsed int,
	start time.Time,
	degraded bool,
) (*Result, error) {
	final := protocol.NewAssistantMessage(summary, nil)
	*history = append(*history, final)
	if err := e.sessions.AddMessage(ctx, threadID, final); err != nil {
		return nil, fmt.Errorf("failed to persist message: %w", err)
	}
	if degraded {
		result.Notes = append(result.Notes, "Summary coverage is partial; some collected findings were not synthesized.")
	}
	result.Summary = summary
	result.Iterations = iterations
	result.TokensUsed = tokensUsed
	result.Duration = time.Since(start)
	result.Degraded = degraded
	return result, nil
}

// completeResearch answers the completion tool calls and composes the
// final summary from the call arguments. Returns "" when the model
// supplied no usable summary.
func (e *Engine) completeResearch(ctx context.Context, threadID string, assistant *protocol.Message, history *[]*protocol.Message) string {
	var summary strings.Builder

	for _, call := range assistant.ToolCalls {
		if call.Name != tools.ResearchCompleteName {
			continue
		}

		toolMsg := protocol.NewToolMessage(call.ID, call.Name,
			"Research completed successfully. Proceeding to final summary.")
		*history = append(*history, toolMsg)
		if err := e.sessions.AddMessage(ctx, threadID, toolMsg); err != nil {
			e.logger.Warn("Failed to persist completion message", "error", err)
		}

		if s, ok := call.Args["summary"].(string); ok && s != "" {
			summary.WriteString(s)
		}
		if kf, ok := call.Args["key_findings"].(string); ok && kf != "" {
			summary.WriteString("\n\nKey Findings:\n" + kf)
		}
		if rec, ok := call.Args["recommendations"].(string); ok && rec != "" {
			summary.WriteString("\n\nRecommendations:\n" + rec)
		}
	}

	return summary.String()
}

// executeTool runs one tool call under the per-call timeout. Failures
// and timeouts become error observations plus a degradation note so
// the loop degrades instead of aborting.
func (e *Engine) executeTool(ctx context.Context, call *protocol.ToolCall) (string, []tools.SourceRecord, string) {
	tool, ok := e.tools.GetTool(call.Name)
	if !ok {
		e.logger.Warn("Model requested unknown tool", "tool", call.Name)
		observation := fmt.Sprintf("Error: unknown tool %q", call.Name)
		return observation, nil, observation
	}

	toolCtx, cancel := context.WithTimeout(ctx, time.Duration(e.cfg.ToolTimeout)*time.Second)
	defer cancel()

	start := time.Now()
	result, err := tool.Execute(toolCtx, call.Args)
	elapsed := time.Since(start)
	e.metrics.RecordToolExecution(call.Name, elapsed, err)

	switch {
	case err != nil:
		e.logger.Warn("Tool execution failed", "tool", call.Name, "error", err, "duration", elapsed)
		observation := fmt.Sprintf("Error executing %s: %v", call.Name, err)
		return observation, nil, observation
	case !result.Success:
		e.logger.Warn("Tool returned error", "tool", call.Name, "error", result.Error, "duration", elapsed)
		return result.Error, nil, fmt.Sprintf("%s degraded: %s", call.Name, result.Error)
	default:
		e.logger.Debug("Tool executed", "tool", call.Name, "duration", elapsed)
		return result.Content, result.Sources, ""
	}
}

// generateWithRetry calls the model with a bounded retry budget for
// transient failures. Token limit errors are not retried here; the
// windowing upstream and the summarizer's truncation own that concern.
func (e *Engine) generateWithRetry(ctx context.Context, messages []*protocol.Message, defs []llms.ToolDefinition) (string, []*protocol.ToolCall, int, error) {
	var lastErr error

	attempts := e.cfg.LLMRetries + 1
	for attempt := 0; attempt < attempts; attempt++ {
		text, toolCalls, tokens, err := e.provider.Generate(ctx, messages, defs)
		if err == nil {
			return text, toolCalls, tokens, nil
		}
		lastErr = err

		if llms.IsTokenLimitError(err) || ctx.Err() != nil || attempt == attempts-1 {
			break
		}

		e.logger.Warn("Model call failed, retrying", "attempt", attempt+1, "max_attempts", attempts, "error", err)
		time.Sleep(time.Duration(attempt+1) * time.Second)
	}

	return "", nil, 0, lastErr
}
