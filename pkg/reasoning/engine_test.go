package reasoning

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/biomedmcp/biomed/pkg/config"
	"github.com/biomedmcp/biomed/pkg/llms"
	"github.com/biomedmcp/biomed/pkg/memory"
	"github.com/biomedmcp/biomed/pkg/protocol"
	"github.com/biomedmcp/biomed/pkg/tools"
)

// scriptedProvider returns canned responses in order, then repeats the
// last one.
type scriptedProvider struct {
	responses []scriptedResponse
	calls     int
}

type scriptedResponse struct {
	text      string
	toolCalls []*protocol.ToolCall
	err       error
}

func (p *scriptedProvider) Generate(_ context.Context, _ []*protocol.Message, _ []llms.ToolDefinition) (string, []*protocol.ToolCall, int, error) {
	idx := p.calls
	if idx >= len(p.responses) {
		idx = len(p.responses) - 1
	}
	p.calls++
	r := p.responses[idx]
	return r.text, r.toolCalls, 10, r.err
}

func (p *scriptedProvider) GetModelName() string { return "gpt-4o" }
func (p *scriptedProvider) GetMaxTokens() int    { return 4096 }
func (p *scriptedProvider) Close() error         { return nil }

// stubTool executes a canned function.
type stubTool struct {
	name string
	fn   func(ctx context.Context, args map[string]interface{}) (tools.ToolResult, error)
}

func (t *stubTool) GetName() string        { return t.name }
func (t *stubTool) GetDescription() string { return "stub" }
func (t *stubTool) GetInfo() tools.ToolInfo {
	return tools.ToolInfo{Name: t.name, Description: "stub"}
}
func (t *stubTool) Execute(ctx context.Context, args map[string]interface{}) (tools.ToolResult, error) {
	return t.fn(ctx, args)
}

func testResearchConfig() *config.ResearchConfig {
	return &config.ResearchConfig{
		MaxToolCalls:   4,
		ToolTimeout:    1,
		LLMRetries:     0,
		SummaryRetries: 1,
		MessageWindow:  10,
	}
}

func newTestEngine(t *testing.T, provider llms.Provider, testTools ...tools.Tool) (*Engine, memory.SessionService) {
	t.Helper()

	registry := tools.NewRegistry()
	for _, tool := range testTools {
		if err := registry.RegisterTool(tool); err != nil {
			t.Fatalf("RegisterTool() error = %v", err)
		}
	}
	if err := registry.RegisterTool(tools.NewResearchCompleteTool()); err != nil {
		t.Fatalf("RegisterTool() error = %v", err)
	}

	sessions := memory.NewInMemorySessionService()
	cfg := testResearchConfig()
	summarizer := NewSummarizer(provider, "test research", cfg.SummaryRetries)
	return NewEngine(provider, registry, sessions, summarizer, cfg, nil), sessions
}

func researchCtx(threadID string) context.Context {
	return protocol.WithSessionID(context.Background(), threadID)
}

func searchCall(id string) *protocol.ToolCall {
	return &protocol.ToolCall{
		ID:   id,
		Name: "stub_search",
		Args: map[string]interface{}{"query": "test"},
	}
}

func okSearchTool() *stubTool {
	return &stubTool{name: "stub_search", fn: func(_ context.Context, _ map[string]interface{}) (tools.ToolResult, error) {
		return tools.ToolResult{
			Success:  true,
			Content:  "found 3 results",
			Sources:  []tools.SourceRecord{{ID: "12345678", Source: "pubmed", Title: "A result"}},
			ToolName: "stub_search",
		}, nil
	}}
}

func TestEngine_DirectAnswerEndsLoop(t *testing.T) {
	provider := &scriptedProvider{responses: []scriptedResponse{
		{text: "the answer is 42"},
	}}
	engine, _ := newTestEngine(t, provider, okSearchTool())

	result, err := engine.Research(researchCtx("t1"), "system", "question")
	if err != nil {
		t.Fatalf("Research() error = %v", err)
	}
	if result.Summary != "the answer is 42" {
		t.Errorf("Summary = %q", result.Summary)
	}
	if result.Iterations != 0 {
		t.Errorf("Iterations = %d, want 0", result.Iterations)
	}
	if provider.calls != 1 {
		t.Errorf("provider calls = %d, want 1", provider.calls)
	}
}

func TestEngine_IterationCapNeverExceeded(t *testing.T) {
	// A model that always wants another tool call must be stopped at
	// the cap and summarized.
	provider := &scriptedProvider{responses: []scriptedResponse{
		{toolCalls: []*protocol.ToolCall{searchCall("c1")}},
		{toolCalls: []*protocol.ToolCall{searchCall("c2")}},
		{toolCalls: []*protocol.ToolCall{searchCall("c3")}},
		{toolCalls: []*protocol.ToolCall{searchCall("c4")}},
		{text: "summary of everything"},
	}}

	executions := 0
	counting := &stubTool{name: "stub_search", fn: func(_ context.Context, _ map[string]interface{}) (tools.ToolResult, error) {
		executions++
		return tools.ToolResult{Success: true, Content: fmt.Sprintf("result %d", executions), ToolName: "stub_search"}, nil
	}}

	engine, _ := newTestEngine(t, provider, counting)

	result, err := engine.Research(researchCtx("t2"), "system", "question")
	if err != nil {
		t.Fatalf("Research() error = %v", err)
	}
	if result.Iterations != 4 {
		t.Errorf("Iterations = %d, want 4", result.Iterations)
	}
	if executions != 4 {
		t.Errorf("tool executions = %d, want 4", executions)
	}
	if result.Summary != "summary of everything" {
		t.Errorf("Summary = %q, want the synthesized summary", result.Summary)
	}
}

func TestEngine_CompletionSignalUsesCallArguments(t *testing.T) {
	provider := &scriptedProvider{responses: []scriptedResponse{
		{toolCalls: []*protocol.ToolCall{searchCall("c1")}},
		{toolCalls: []*protocol.ToolCall{{
			ID:   "c2",
			Name: tools.ResearchCompleteName,
			Args: map[string]interface{}{
				"summary":         "concise research summary",
				"key_findings":    "finding one",
				"recommendations": "do more research",
			},
		}}},
	}}
	engine, _ := newTestEngine(t, provider, okSearchTool())

	result, err := engine.Research(researchCtx("t3"), "system", "question")
	if err != nil {
		t.Fatalf("Research() error = %v", err)
	}
	if !strings.Contains(result.Summary, "concise research summary") {
		t.Errorf("Summary missing completion text: %q", result.Summary)
	}
	if !strings.Contains(result.Summary, "finding one") {
		t.Errorf("Summary missing key findings: %q", result.Summary)
	}
	if result.Degraded {
		t.Error("completion signal result should not be degraded")
	}
}

func TestEngine_ToolFailureBecomesObservation(t *testing.T) {
	failing := &stubTool{name: "stub_search", fn: func(_ context.Context, _ map[string]interface{}) (tools.ToolResult, error) {
		return tools.ToolResult{}, errors.New("upstream unavailable")
	}}
	provider := &scriptedProvider{responses: []scriptedResponse{
		{toolCalls: []*protocol.ToolCall{searchCall("c1")}},
		{text: "partial results only"},
	}}
	engine, sessions := newTestEngine(t, provider, failing)

	result, err := engine.Research(researchCtx("t4"), "system", "question")
	if err != nil {
		t.Fatalf("Research() error = %v", err)
	}
	if result.Summary != "partial results only" {
		t.Errorf("Summary = %q", result.Summary)
	}
	if len(result.Sources) != 0 {
		t.Errorf("Sources = %v, want none from a failed tool", result.Sources)
	}
	if len(result.Notes) == 0 {
		t.Error("tool failure should leave a degradation note")
	}

	history, _ := sessions.GetMessages(context.Background(), "t4")
	foundObservation := false
	for _, msg := range history {
		if msg.Role == protocol.RoleTool && strings.Contains(msg.Content, "upstream unavailable") {
			foundObservation = true
		}
	}
	if !foundObservation {
		t.Error("tool failure was not recorded as an observation")
	}
}

func TestEngine_ToolTimeoutDegrades(t *testing.T) {
	slow := &stubTool{name: "stub_search", fn: func(ctx context.Context, _ map[string]interface{}) (tools.ToolResult, error) {
		select {
		case <-time.After(5 * time.Second):
			return tools.ToolResult{Success: true, Content: "too late"}, nil
		case <-ctx.Done():
			return tools.ToolResult{}, ctx.Err()
		}
	}}
	provider := &scriptedProvider{responses: []scriptedResponse{
		{toolCalls: []*protocol.ToolCall{searchCall("c1")}},
		{text: "answered without the slow source"},
	}}
	engine, _ := newTestEngine(t, provider, slow)

	start := time.Now()
	result, err := engine.Research(researchCtx("t5"), "system", "question")
	if err != nil {
		t.Fatalf("Research() error = %v", err)
	}
	if time.Since(start) > 3*time.Second {
		t.Error("tool timeout was not enforced")
	}
	if result.Summary != "answered without the slow source" {
		t.Errorf("Summary = %q", result.Summary)
	}
	if len(result.Sources) != 0 {
		t.Errorf("Sources = %v, want an empty source list", result.Sources)
	}
	if len(result.Notes) == 0 {
		t.Error("timed-out tool should leave a degradation note")
	}
}

func TestEngine_SourcesCollectedAndDeduplicated(t *testing.T) {
	provider := &scriptedProvider{responses: []scriptedResponse{
		{toolCalls: []*protocol.ToolCall{searchCall("c1")}},
		{toolCalls: []*protocol.ToolCall{searchCall("c2")}},
		{text: "synthesis"},
	}}
	engine, _ := newTestEngine(t, provider, okSearchTool())

	result, err := engine.Research(researchCtx("t8"), "system", "question")
	if err != nil {
		t.Fatalf("Research() error = %v", err)
	}
	if len(result.Sources) != 1 {
		t.Fatalf("Sources = %v, want the repeated record once", result.Sources)
	}
	if result.Sources[0].ID != "12345678" || result.Sources[0].Source != "pubmed" {
		t.Errorf("Sources[0] = %+v", result.Sources[0])
	}
	if len(result.Notes) != 0 {
		t.Errorf("Notes = %v, want none on a clean run", result.Notes)
	}
}

func TestEngine_UnknownToolBecomesErrorObservation(t *testing.T) {
	provider := &scriptedProvider{responses: []scriptedResponse{
		{toolCalls: []*protocol.ToolCall{{ID: "c1", Name: "no_such_tool"}}},
		{text: "done"},
	}}
	engine, sessions := newTestEngine(t, provider, okSearchTool())

	if _, err := engine.Research(researchCtx("t6"), "system", "question"); err != nil {
		t.Fatalf("Research() error = %v", err)
	}

	history, _ := sessions.GetMessages(context.Background(), "t6")
	found := false
	for _, msg := range history {
		if msg.Role == protocol.RoleTool && strings.Contains(msg.Content, "unknown tool") {
			found = true
		}
	}
	if !found {
		t.Error("unknown tool call did not produce an error observation")
	}
}

func TestEngine_LLMFailureReturnsError(t *testing.T) {
	provider := &scriptedProvider{responses: []scriptedResponse{
		{err: errors.New("bad gateway")},
	}}
	engine, _ := newTestEngine(t, provider, okSearchTool())

	start := time.Now()
	if _, err := engine.Research(researchCtx("t7"), "system", "question"); err == nil {
		t.Fatal("expected error when the model is unavailable")
	}
	// The final failed attempt must surface immediately, not after a
	// backoff that nothing will retry.
	if time.Since(start) > 500*time.Millisecond {
		t.Error("error surfaced only after a pointless backoff")
	}
}

func TestEngine_ThreadHistoryCarriesAcrossCalls(t *testing.T) {
	provider := &scriptedProvider{responses: []scriptedResponse{
		{text: "first answer"},
		{text: "second answer"},
	}}
	engine, sessions := newTestEngine(t, provider, okSearchTool())

	ctx := researchCtx("shared")
	if _, err := engine.Research(ctx, "system", "first question"); err != nil {
		t.Fatalf("Research() error = %v", err)
	}
	if _, err := engine.Research(ctx, "system", "follow-up"); err != nil {
		t.Fatalf("Research() error = %v", err)
	}

	history, _ := sessions.GetMessages(ctx, "shared")
	if len(history) != 4 {
		t.Errorf("history length = %d, want 4", len(history))
	}
}

func TestEngine_MissingSessionFallsBackToDefaultThread(t *testing.T) {
	provider := &scriptedProvider{responses: []scriptedResponse{
		{text: "an answer"},
	}}
	engine, sessions := newTestEngine(t, provider, okSearchTool())

	if _, err := engine.Research(context.Background(), "system", "question"); err != nil {
		t.Fatalf("Research() error = %v", err)
	}

	history, _ := sessions.GetMessages(context.Background(), "default")
	if len(history) != 2 {
		t.Errorf("history length under default thread = %d, want 2", len(history))
	}
}
