// Package server exposes the research agents as MCP tools over stdio
// or streamable HTTP.
package server

import (
	"context"
	"fmt"
	"hash/fnv"
	"log/slog"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/biomedmcp/biomed/pkg/agent"
	"github.com/biomedmcp/biomed/pkg/clinicaltrials"
	"github.com/biomedmcp/biomed/pkg/config"
	"github.com/biomedmcp/biomed/pkg/llms"
	"github.com/biomedmcp/biomed/pkg/memory"
	"github.com/biomedmcp/biomed/pkg/observability"
	"github.com/biomedmcp/biomed/pkg/pubmed"
	"github.com/biomedmcp/biomed/version"
)

const (
	maxPapersLimit  = 20
	maxStudiesLimit = 25
)

// Server wires the agents, memory and metrics behind an MCP server.
type Server struct {
	cfg           *config.Config
	mcpServer     *server.MCPServer
	pubmedAgent   *agent.PubMedAgent
	clinicalAgent *agent.ClinicalTrialsAgent
	sessions      memory.SessionService
	metrics       *observability.Metrics
	logger        *slog.Logger
}

func New(cfg *config.Config) (*Server, error) {
	metrics := observability.NewMetrics()

	provider, err := llms.NewProviderFromConfig(&cfg.LLM, metrics)
	if err != nil {
		return nil, fmt.Errorf("failed to create LLM provider: %w", err)
	}

	sessions, err := memory.NewSessionService(&cfg.Memory)
	if err != nil {
		return nil, fmt.Errorf("failed to create session service: %w", err)
	}

	pubmedAgent, err := agent.NewPubMedAgent(provider, pubmed.NewClient(&cfg.PubMed), sessions, &cfg.Research, metrics)
	if err != nil {
		return nil, fmt.Errorf("failed to create pubmed agent: %w", err)
	}

	clinicalAgent, err := agent.NewClinicalTrialsAgent(provider, clinicaltrials.NewClient(&cfg.ClinicalTrials), sessions, &cfg.Research, metrics)
	if err != nil {
		return nil, fmt.Errorf("failed to create clinical trials agent: %w", err)
	}

	s := &Server{
		cfg: cfg,
		mcpServer: server.NewMCPServer(
			cfg.Name,
			version.Version,
			server.WithToolCapabilities(true),
			server.WithResourceCapabilities(false, false),
			server.WithRecovery(),
		),
		pubmedAgent:   pubmedAgent,
		clinicalAgent: clinicalAgent,
		sessions:      sessions,
		metrics:       metrics,
		logger:        slog.Default().With("component", "server"),
	}

	s.registerTools()
	s.registerHealthResource()

	return s, nil
}

// Run serves until ctx is cancelled. Stdio mode serves a single client
// over stdin/stdout; HTTP mode serves streamable MCP plus health and
// metrics endpoints.
func (s *Server) Run(ctx context.Context) error {
	defer s.sessions.Close()

	if missing := s.cfg.MissingRequired(); len(missing) > 0 {
		s.logger.Warn("Starting with missing required configuration; research tools will fail until it is provided",
			"missing", strings.Join(missing, ", "))
	}

	switch s.cfg.Server.Transport {
	case "", "stdio":
		s.logger.Info("Serving MCP over stdio", "name", s.cfg.Name)
		return server.ServeStdio(s.mcpServer)
	case "http":
		return s.serveHTTP(ctx)
	default:
		return fmt.Errorf("unknown transport: %s", s.cfg.Server.Transport)
	}
}

func (s *Server) registerTools() {
	s.mcpServer.AddTool(mcp.NewTool("biomedical_literature_search",
		mcp.WithDescription("Advanced literature research using an AI agent that can search PubMed, "+
			"retrieve full-text papers, and provide comprehensive analysis."),
		mcp.WithString("query", mcp.Required(), mcp.Description("Research question or topic to investigate")),
		mcp.WithNumber("max_papers", mcp.Description("Maximum number of papers to analyze (1-20)"), mcp.DefaultNumber(10)),
		mcp.WithBoolean("include_fulltext", mcp.Description("Whether to attempt full-text retrieval for key papers"), mcp.DefaultBool(false)),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithOpenWorldHintAnnotation(true),
	), s.handleLiteratureSearch)

	s.mcpServer.AddTool(mcp.NewTool("clinical_trials_research",
		mcp.WithDescription("Advanced clinical trials research using an AI agent that can search "+
			"ClinicalTrials.gov, analyze patterns, and provide comprehensive insights."),
		mcp.WithString("condition", mcp.Required(), mcp.Description("Medical condition or intervention to research")),
		mcp.WithString("study_phase", mcp.Description("Optional filter for study phase (e.g., \"Phase 2\", \"Phase 3\")")),
		mcp.WithNumber("max_studies", mcp.Description("Maximum number of studies to analyze (1-25)"), mcp.DefaultNumber(15)),
		mcp.WithBoolean("analyze_trends", mcp.Description("Whether to perform pattern analysis across trials"), mcp.DefaultBool(true)),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithOpenWorldHintAnnotation(true),
	), s.handleTrialsResearch)

	s.mcpServer.AddTool(mcp.NewTool("analyze_clinical_trial",
		mcp.WithDescription("Detailed analysis of a specific clinical trial using its NCT identifier."),
		mcp.WithString("nct_id", mcp.Required(), mcp.Description("NCT identifier of the trial (e.g., NCT04280705)")),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithOpenWorldHintAnnotation(true),
	), s.handleTrialAnalysis)

	s.mcpServer.AddTool(mcp.NewTool("analyze_research_paper",
		mcp.WithDescription("Detailed analysis of a specific research paper using its PubMed ID."),
		mcp.WithString("pmid", mcp.Required(), mcp.Description("PubMed ID of the paper")),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithOpenWorldHintAnnotation(true),
	), s.handlePaperAnalysis)

	s.mcpServer.AddTool(mcp.NewTool("compare_interventions",
		mcp.WithDescription("Compare the clinical trial evidence for two interventions in the same condition."),
		mcp.WithString("intervention_a", mcp.Required(), mcp.Description("First intervention to compare")),
		mcp.WithString("intervention_b", mcp.Required(), mcp.Description("Second intervention to compare")),
		mcp.WithString("condition", mcp.Required(), mcp.Description("Medical condition context")),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithOpenWorldHintAnnotation(true),
	), s.handleCompareInterventions)
}

func (s *Server) registerHealthResource() {
	resource := mcp.NewResource("biomed://health_check", "health_check",
		mcp.WithResourceDescription("Health check for the biomed MCP server"),
		mcp.WithMIMEType("text/plain"),
	)
	s.mcpServer.AddResource(resource, func(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		return []mcp.ResourceContents{
			mcp.TextResourceContents{
				URI:      request.Params.URI,
				MIMEType: "text/plain",
				Text:     s.healthStatus(),
			},
		}, nil
	})
}

// healthStatus reports readiness: healthy when all required
// configuration is present, otherwise it names what is missing.
func (s *Server) healthStatus() string {
	if missing := s.cfg.MissingRequired(); len(missing) > 0 {
		return fmt.Sprintf("Missing required configuration: %s", strings.Join(missing, ", "))
	}
	return "Biomed MCP server is healthy and ready"
}

// threadHash buckets a query into a stable thread ID suffix so
// repeated identical queries share a thread.
func threadHash(s string) uint32 {
	h := fnv.New32a()
	h.Write([]byte(s))
	return h.Sum32() % 100000
}

func clampInt(v, min, max int) int {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}
