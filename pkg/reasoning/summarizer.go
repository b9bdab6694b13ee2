package reasoning

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/biomedmcp/biomed/pkg/llms"
	"github.com/biomedmcp/biomed/pkg/protocol"
	"github.com/biomedmcp/biomed/pkg/utils"
)

// summaryTokenBudget bounds the findings material in the summary
// prompt, leaving headroom in the model context for the response.
const summaryTokenBudget = 60000

const summaryPromptTemplate = `You are a %s expert conducting a comprehensive analysis.

ORIGINAL RESEARCH QUERY: %s

RESEARCH FINDINGS TO SYNTHESIZE:
%s

Please provide a comprehensive summary that includes:

1. **Executive Summary**: Brief overview of key findings
2. **Sources Identified**: List key sources with identifiers and brief descriptions
3. **Research Trends**: Important patterns and trends
4. **Methodologies**: Study designs and approaches used
5. **Key Findings**: Important discoveries and insights
6. **Clinical Implications**: What these findings mean for clinical practice/research
7. **Research Gaps**: Areas needing further investigation
8. **Recommendations**: Future research directions and applications

Format your response as a structured review. Be thorough but concise.`

const summarizerSystemPrompt = "You are an expert biomedical researcher. Provide comprehensive, evidence-based reviews."

// Summarizer condenses collected observations into a final research
// summary. On token limit errors it drops the oldest observations and
// retries; after the retry budget it returns a degraded summary rather
// than failing the research call.
type Summarizer struct {
	provider   llms.Provider
	counter    *utils.TokenCounter
	domain     string
	maxRetries int
	logger     *slog.Logger
}

func NewSummarizer(provider llms.Provider, domain string, maxRetries int) *Summarizer {
	if maxRetries <= 0 {
		maxRetries = 3
	}
	// A nil counter falls back to character-based estimation.
	counter, err := utils.NewTokenCounter(provider.GetModelName())
	if err != nil {
		counter = nil
	}
	return &Summarizer{
		provider:   provider,
		counter:    counter,
		domain:     domain,
		maxRetries: maxRetries,
		logger:     slog.Default().With("component", "summarizer"),
	}
}

func (s *Summarizer) countTokens(text string) int {
	if s.counter != nil {
		return s.counter.Count(text)
	}
	return utils.EstimateTokens(text)
}

// trimToBudget drops the oldest findings until the joined material
// fits the summary token budget.
func (s *Summarizer) trimToBudget(findings []string) []string {
	for len(findings) > 1 && s.countTokens(strings.Join(findings, "\n")) > summaryTokenBudget {
		findings = findings[1:]
	}
	return findings
}

// Summarize synthesizes the findings gathered for the query. The
// returned bool reports whether the summary is degraded.
func (s *Summarizer) Summarize(ctx context.Context, query string, findings []string) (string, bool) {
	if len(findings) == 0 {
		return fmt.Sprintf("Research completed for query: %s. No findings were collected.", query), true
	}

	working := s.trimToBudget(findings)
	var lastErr error

	for attempt := 0; attempt < s.maxRetries; attempt++ {
		prompt := fmt.Sprintf(summaryPromptTemplate, s.domain, query, strings.Join(working, "\n"))
		messages := []*protocol.Message{
			protocol.NewSystemMessage(summarizerSystemPrompt),
			protocol.NewUserMessage(prompt),
		}

		text, _, _, err := s.provider.Generate(ctx, messages, nil)
		if err == nil {
			if text != "" {
				return text, false
			}
			lastErr = fmt.Errorf("model returned an empty summary")
			s.logger.Warn("Summary generation returned empty text", "attempt", attempt+1)
			time.Sleep(time.Duration(attempt+1) * 500 * time.Millisecond)
			continue
		}
		lastErr = err

		if llms.IsTokenLimitError(err) && len(working) > 1 {
			// Drop the oldest observations and retry with roughly 70%
			// of the material.
			drop := len(working) * 3 / 10
			if drop < 1 {
				drop = 1
			}
			working = working[drop:]
			s.logger.Warn("Summary prompt over token limit, dropping oldest findings",
				"dropped", drop, "remaining", len(working), "attempt", attempt+1)
			continue
		}

		if err != nil {
			s.logger.Warn("Summary generation failed", "attempt", attempt+1, "error", err)
			if ctx.Err() != nil {
				break
			}
			time.Sleep(time.Duration(attempt+1) * 500 * time.Millisecond)
		}
	}

	s.logger.Error("Falling back to degraded summary", "findings", len(findings), "error", lastErr)
	return fmt.Sprintf("Research completed with %d data points collected. Unable to generate detailed summary due to: %v",
		len(findings), lastErr), true
}
