package reasoning

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/biomedmcp/biomed/pkg/llms"
	"github.com/biomedmcp/biomed/pkg/protocol"
)

// tokenLimitedProvider fails with a token limit error until the prompt
// shrinks below maxPromptChars.
type tokenLimitedProvider struct {
	maxPromptChars int
	calls          int
}

func (p *tokenLimitedProvider) Generate(_ context.Context, messages []*protocol.Message, _ []llms.ToolDefinition) (string, []*protocol.ToolCall, int, error) {
	p.calls++
	total := 0
	for _, msg := range messages {
		total += len(msg.Content)
	}
	if total > p.maxPromptChars {
		return "", nil, 0, &llms.TokenLimitError{Model: "gpt-4o", Message: "maximum context length exceeded"}
	}
	return "synthesized summary", nil, 20, nil
}

func (p *tokenLimitedProvider) GetModelName() string { return "gpt-4o" }
func (p *tokenLimitedProvider) GetMaxTokens() int    { return 4096 }
func (p *tokenLimitedProvider) Close() error         { return nil }

func TestSummarizer_NoFindings(t *testing.T) {
	s := NewSummarizer(&tokenLimitedProvider{maxPromptChars: 1 << 20}, "test research", 3)

	summary, degraded := s.Summarize(context.Background(), "query", nil)
	if !degraded {
		t.Error("expected degraded summary with no findings")
	}
	if summary == "" {
		t.Error("expected a fallback summary")
	}
}

func TestSummarizer_TruncatesOnTokenLimit(t *testing.T) {
	provider := &tokenLimitedProvider{maxPromptChars: 5000}
	s := NewSummarizer(provider, "test research", 3)

	findings := make([]string, 10)
	for i := range findings {
		findings[i] = strings.Repeat("observation text ", 40)
	}

	summary, degraded := s.Summarize(context.Background(), "query", findings)
	if degraded {
		t.Fatal("expected truncation to recover within the retry budget")
	}
	if summary != "synthesized summary" {
		t.Errorf("summary = %q", summary)
	}
	if provider.calls < 2 {
		t.Errorf("expected at least one truncation retry, got %d calls", provider.calls)
	}
}

func TestSummarizer_EmptyResponseFallsBackWithReason(t *testing.T) {
	// A provider that succeeds with empty text must exhaust the retry
	// budget and name the failure instead of reporting a nil error.
	provider := &scriptedProvider{responses: []scriptedResponse{
		{text: ""},
	}}
	s := NewSummarizer(provider, "test research", 2)

	summary, degraded := s.Summarize(context.Background(), "query", []string{"one finding"})
	if !degraded {
		t.Error("expected degraded summary after empty responses")
	}
	if strings.Contains(summary, "<nil>") {
		t.Errorf("fallback summary carries a nil error: %q", summary)
	}
	if !strings.Contains(summary, "empty summary") {
		t.Errorf("fallback summary missing the empty-response reason: %q", summary)
	}
	if provider.calls != 2 {
		t.Errorf("provider calls = %d, want 2", provider.calls)
	}
}

func TestSummarizer_RetryBudgetBounded(t *testing.T) {
	// Always failing provider: the summarizer must stop at the retry
	// budget and fall back instead of looping.
	provider := &scriptedProvider{responses: []scriptedResponse{
		{err: errors.New("service unavailable")},
	}}
	s := NewSummarizer(provider, "test research", 3)

	summary, degraded := s.Summarize(context.Background(), "query", []string{"one finding"})
	if !degraded {
		t.Error("expected degraded summary after exhausting retries")
	}
	if !strings.Contains(summary, "1 data points") {
		t.Errorf("fallback summary missing data point count: %q", summary)
	}
	if provider.calls != 3 {
		t.Errorf("provider calls = %d, want 3", provider.calls)
	}
}
