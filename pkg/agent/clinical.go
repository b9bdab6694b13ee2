package agent

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/biomedmcp/biomed/pkg/clinicaltrials"
	"github.com/biomedmcp/biomed/pkg/config"
	"github.com/biomedmcp/biomed/pkg/llms"
	"github.com/biomedmcp/biomed/pkg/memory"
	"github.com/biomedmcp/biomed/pkg/observability"
	"github.com/biomedmcp/biomed/pkg/protocol"
	"github.com/biomedmcp/biomed/pkg/reasoning"
	"github.com/biomedmcp/biomed/pkg/tools"
)

// ClinicalTrialsAgent researches the trial registry.
type ClinicalTrialsAgent struct {
	engine *reasoning.Engine
	logger *slog.Logger
}

func NewClinicalTrialsAgent(
	provider llms.Provider,
	client *clinicaltrials.Client,
	sessions memory.SessionService,
	cfg *config.ResearchConfig,
	metrics *observability.Metrics,
) (*ClinicalTrialsAgent, error) {
	registry := tools.NewRegistry()
	for _, tool := range []tools.Tool{
		tools.NewClinicalSearchTool(client),
		tools.NewClinicalDetailsTool(client),
		tools.NewClinicalAnalyzeTool(client),
		tools.NewResearchCompleteTool(),
	} {
		if err := registry.RegisterTool(tool); err != nil {
			return nil, fmt.Errorf("failed to register tool: %w", err)
		}
	}

	summarizer := reasoning.NewSummarizer(provider, "clinical research", cfg.SummaryRetries)
	engine := reasoning.NewEngine(provider, registry, sessions, summarizer, cfg, metrics)

	return &ClinicalTrialsAgent{
		engine: engine,
		logger: slog.Default().With("agent", "clinicaltrials"),
	}, nil
}

// ResearchCondition surveys the trial landscape for a condition. The
// research thread is the session ID carried by ctx.
func (a *ClinicalTrialsAgent) ResearchCondition(ctx context.Context, condition string, maxStudies int, analyzePatterns bool) (*reasoning.Result, error) {
	var prompt strings.Builder
	fmt.Fprintf(&prompt, `Please help me research clinical trials for the following condition:

Condition: %s

Requirements:
- Search for up to %d relevant clinical trials
- Provide analysis of current trial landscape
- Identify key research trends and patterns
- Highlight important ongoing and completed studies
`, condition, maxStudies)
	if analyzePatterns {
		prompt.WriteString("- Analyze patterns in study phases, status, and interventions\n")
	}
	prompt.WriteString(`- Include NCT IDs for reference

IMPORTANT: After gathering the clinical trial data, provide a comprehensive summary and analysis. Do NOT continue searching for more data unless the initial search returns insufficient results. Aim to complete your analysis in 2-3 tool calls maximum.`)

	a.logger.Info("Starting condition research", "thread_id", protocol.SessionIDFromContext(ctx), "condition", condition, "max_studies", maxStudies)
	return a.engine.Research(ctx, clinicalSystemPrompt, prompt.String())
}

// AnalyzeTrial analyzes a single trial in depth by NCT ID.
func (a *ClinicalTrialsAgent) AnalyzeTrial(ctx context.Context, nctID string) (*reasoning.Result, error) {
	prompt := fmt.Sprintf(`Please provide a detailed analysis of this clinical trial:

NCT ID: %s

Please:
1. Get comprehensive trial details
2. Analyze the study design and methodology
3. Evaluate eligibility criteria and target population
4. Assess primary and secondary outcomes
5. Identify the current status and timeline
6. Note any unique aspects or innovations
7. Assess potential clinical impact

IMPORTANT: Focus on analyzing the specific trial details. After retrieving the trial information, provide a comprehensive analysis. Complete your analysis in 1-2 tool calls maximum.

Be thorough and provide clinical insights.`, nctID)

	a.logger.Info("Starting trial analysis", "thread_id", protocol.SessionIDFromContext(ctx), "nct_id", nctID)
	return a.engine.Research(ctx, clinicalSystemPrompt, prompt)
}

// CompareInterventions contrasts the trial evidence for two
// interventions in the same condition.
func (a *ClinicalTrialsAgent) CompareInterventions(ctx context.Context, interventionA, interventionB, condition string) (*reasoning.Result, error) {
	prompt := fmt.Sprintf(`Please compare these two interventions for %s:

Intervention A: %s
Intervention B: %s
Condition: %s

Please:
1. Search for trials involving each intervention
2. Analyze trial phases and progression for each
3. Compare study designs and methodologies
4. Evaluate patient populations and eligibility
5. Assess outcome measures and endpoints
6. Identify any head-to-head comparison studies
7. Provide insights on current research trends

IMPORTANT: Focus on gathering trial data for both interventions efficiently. After collecting the data, provide a comprehensive comparison. Complete your analysis in 2-3 tool calls maximum.

Be analytical and provide evidence-based comparisons.`, condition, interventionA, interventionB, condition)

	a.logger.Info("Starting intervention comparison", "thread_id", protocol.SessionIDFromContext(ctx),
		"intervention_a", interventionA, "intervention_b", interventionB, "condition", condition)
	return a.engine.Research(ctx, clinicalSystemPrompt, prompt)
}
