package server

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/mark3labs/mcp-go/mcp"

	"github.com/biomedmcp/biomed/pkg/protocol"
	"github.com/biomedmcp/biomed/pkg/reasoning"
	"github.com/biomedmcp/biomed/pkg/tools"
)

// researchResponse is the JSON payload every research tool returns:
// the synthesized answer plus its source records and any degradation
// notes, so callers always get a traceable, best-effort result.
type researchResponse struct {
	Summary    string               `json:"summary"`
	Sources    []tools.SourceRecord `json:"sources"`
	Notes      []string             `json:"notes,omitempty"`
	Iterations int                  `json:"iterations"`
	TokensUsed int                  `json:"tokens_used"`
	DurationMS int64                `json:"duration_ms"`
	RequestID  string               `json:"request_id"`
}

func researchResult(requestID string, result *reasoning.Result) *mcp.CallToolResult {
	resp := researchResponse{
		Summary:    result.Summary,
		Sources:    result.Sources,
		Notes:      result.Notes,
		Iterations: result.Iterations,
		TokensUsed: result.TokensUsed,
		DurationMS: result.Duration.Milliseconds(),
		RequestID:  requestID,
	}
	if resp.Sources == nil {
		resp.Sources = []tools.SourceRecord{}
	}

	data, err := json.MarshalIndent(resp, "", "  ")
	if err != nil {
		return mcp.NewToolResultText(result.Summary)
	}
	return mcp.NewToolResultText(string(data))
}

func (s *Server) handleLiteratureSearch(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := request.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	maxPapers := clampInt(request.GetInt("max_papers", 10), 1, maxPapersLimit)
	includeFulltext := request.GetBool("include_fulltext", false)

	requestID := uuid.NewString()
	ctx = protocol.WithSessionID(ctx, fmt.Sprintf("lit_search_%d", threadHash(query)))

	s.logger.Info("Starting literature search", "request_id", requestID, "query", query)
	result, err := s.pubmedAgent.SearchLiterature(ctx, query, maxPapers, includeFulltext)
	s.metrics.RecordResearchRequest("biomedical_literature_search", err)
	if err != nil {
		s.logger.Error("Literature search failed", "request_id", requestID, "error", err)
		return mcp.NewToolResultError(fmt.Sprintf("Error performing literature search: %v", err)), nil
	}

	s.logger.Info("Literature search completed", "request_id", requestID,
		"iterations", result.Iterations, "tokens", result.TokensUsed, "duration", result.Duration)
	return researchResult(requestID, result), nil
}

func (s *Server) handleTrialsResearch(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	condition, err := request.RequireString("condition")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	maxStudies := clampInt(request.GetInt("max_studies", 15), 1, maxStudiesLimit)
	analyzeTrends := request.GetBool("analyze_trends", true)

	// A phase filter narrows the search expression itself.
	searchCondition := condition
	if phase := request.GetString("study_phase", ""); phase != "" {
		searchCondition = fmt.Sprintf("%s AND %s", condition, phase)
	}

	requestID := uuid.NewString()
	ctx = protocol.WithSessionID(ctx, fmt.Sprintf("ct_research_%d", threadHash(searchCondition)))

	s.logger.Info("Starting clinical trials research", "request_id", requestID, "condition", searchCondition)
	result, err := s.clinicalAgent.ResearchCondition(ctx, searchCondition, maxStudies, analyzeTrends)
	s.metrics.RecordResearchRequest("clinical_trials_research", err)
	if err != nil {
		s.logger.Error("Clinical trials research failed", "request_id", requestID, "error", err)
		return mcp.NewToolResultError(fmt.Sprintf("Error performing clinical trials research: %v", err)), nil
	}

	s.logger.Info("Clinical trials research completed", "request_id", requestID,
		"iterations", result.Iterations, "tokens", result.TokensUsed, "duration", result.Duration)
	return researchResult(requestID, result), nil
}

func (s *Server) handleTrialAnalysis(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	nctID, err := request.RequireString("nct_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	requestID := uuid.NewString()
	ctx = protocol.WithSessionID(ctx, fmt.Sprintf("ct_analysis_%s", nctID))

	s.logger.Info("Starting trial analysis", "request_id", requestID, "nct_id", nctID)
	result, err := s.clinicalAgent.AnalyzeTrial(ctx, nctID)
	s.metrics.RecordResearchRequest("analyze_clinical_trial", err)
	if err != nil {
		s.logger.Error("Trial analysis failed", "request_id", requestID, "error", err)
		return mcp.NewToolResultError(fmt.Sprintf("Error analyzing clinical trial %s: %v", nctID, err)), nil
	}

	return researchResult(requestID, result), nil
}

func (s *Server) handlePaperAnalysis(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	pmid, err := request.RequireString("pmid")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	requestID := uuid.NewString()
	ctx = protocol.WithSessionID(ctx, fmt.Sprintf("paper_analysis_%s", pmid))

	s.logger.Info("Starting paper analysis", "request_id", requestID, "pmid", pmid)
	result, err := s.pubmedAgent.PaperInsights(ctx, pmid)
	s.metrics.RecordResearchRequest("analyze_research_paper", err)
	if err != nil {
		s.logger.Error("Paper analysis failed", "request_id", requestID, "error", err)
		return mcp.NewToolResultError(fmt.Sprintf("Error analyzing research paper %s: %v", pmid, err)), nil
	}

	return researchResult(requestID, result), nil
}

func (s *Server) handleCompareInterventions(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	interventionA, err := request.RequireString("intervention_a")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	interventionB, err := request.RequireString("intervention_b")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	condition, err := request.RequireString("condition")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	requestID := uuid.NewString()
	ctx = protocol.WithSessionID(ctx, fmt.Sprintf("ct_compare_%d", threadHash(interventionA+"|"+interventionB+"|"+condition)))

	s.logger.Info("Starting intervention comparison", "request_id", requestID,
		"intervention_a", interventionA, "intervention_b", interventionB)
	result, err := s.clinicalAgent.CompareInterventions(ctx, interventionA, interventionB, condition)
	s.metrics.RecordResearchRequest("compare_interventions", err)
	if err != nil {
		s.logger.Error("Intervention comparison failed", "request_id", requestID, "error", err)
		return mcp.NewToolResultError(fmt.Sprintf("Error comparing interventions: %v", err)), nil
	}

	return researchResult(requestID, result), nil
}
