// Package agent holds the two research agents: literature research
// over PubMed and trial research over ClinicalTrials.gov. Each agent
// owns its tool set and turns a high-level request into a reasoning
// loop run.
package agent

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/biomedmcp/biomed/pkg/config"
	"github.com/biomedmcp/biomed/pkg/llms"
	"github.com/biomedmcp/biomed/pkg/memory"
	"github.com/biomedmcp/biomed/pkg/observability"
	"github.com/biomedmcp/biomed/pkg/protocol"
	"github.com/biomedmcp/biomed/pkg/pubmed"
	"github.com/biomedmcp/biomed/pkg/reasoning"
	"github.com/biomedmcp/biomed/pkg/tools"
)

// PubMedAgent researches biomedical literature.
type PubMedAgent struct {
	engine *reasoning.Engine
	logger *slog.Logger
}

func NewPubMedAgent(
	provider llms.Provider,
	client *pubmed.Client,
	sessions memory.SessionService,
	cfg *config.ResearchConfig,
	metrics *observability.Metrics,
) (*PubMedAgent, error) {
	registry := tools.NewRegistry()
	for _, tool := range []tools.Tool{
		tools.NewPubMedSearchTool(client),
		tools.NewPubMedFullTextTool(client),
		tools.NewResearchCompleteTool(),
	} {
		if err := registry.RegisterTool(tool); err != nil {
			return nil, fmt.Errorf("failed to register tool: %w", err)
		}
	}

	summarizer := reasoning.NewSummarizer(provider, "biomedical literature research", cfg.SummaryRetries)
	engine := reasoning.NewEngine(provider, registry, sessions, summarizer, cfg, metrics)

	return &PubMedAgent{
		engine: engine,
		logger: slog.Default().With("agent", "pubmed"),
	}, nil
}

// SearchLiterature researches a topic across PubMed and synthesizes
// the findings. The research thread is the session ID carried by ctx.
func (a *PubMedAgent) SearchLiterature(ctx context.Context, query string, maxPapers int, includeFulltext bool) (*reasoning.Result, error) {
	var prompt strings.Builder
	fmt.Fprintf(&prompt, `Please help me research the following topic in biomedical literature:

Query: %s

Requirements:
- Search for up to %d relevant papers
- Provide a comprehensive summary of findings
- Include key insights and recent developments
`, query, maxPapers)
	if includeFulltext {
		prompt.WriteString("- Attempt to retrieve full text for the most relevant papers\n")
	}
	prompt.WriteString(`- Cite PMIDs and DOIs for reference

IMPORTANT: After searching and gathering the literature, provide a comprehensive analysis and summary. Do NOT continue searching for more papers unless the initial search returns insufficient results. Aim to complete your analysis in 2-3 tool calls maximum.

Please be thorough in your search and analysis.`)

	a.logger.Info("Starting literature search", "thread_id", protocol.SessionIDFromContext(ctx), "query", query, "max_papers", maxPapers)
	return a.engine.Research(ctx, pubmedSystemPrompt, prompt.String())
}

// PaperInsights analyzes one paper in depth by PMID.
func (a *PubMedAgent) PaperInsights(ctx context.Context, pmid string) (*reasoning.Result, error) {
	prompt := fmt.Sprintf(`Please analyze this specific paper in detail:

PMID: %s

Please:
1. Retrieve the full text if available
2. Provide a comprehensive summary of the paper
3. Extract key findings and conclusions
4. Identify the methodology used
5. Note any limitations or future research directions mentioned

IMPORTANT: Focus on analyzing the specific paper. After retrieving the paper information, provide a comprehensive analysis. Complete your analysis in 1-2 tool calls maximum.

Be thorough in your analysis.`, pmid)

	a.logger.Info("Starting paper analysis", "thread_id", protocol.SessionIDFromContext(ctx), "pmid", pmid)
	return a.engine.Research(ctx, pubmedSystemPrompt, prompt)
}
