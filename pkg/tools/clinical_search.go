package tools

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/biomedmcp/biomed/pkg/clinicaltrials"
)

const (
	searchResultsMaxChars = 5000
	conditionsMaxChars    = 100
	summaryMaxChars       = 200
)

// ClinicalSearchTool searches ClinicalTrials.gov by condition or
// keyword expression.
type ClinicalSearchTool struct {
	client *clinicaltrials.Client
}

func NewClinicalSearchTool(client *clinicaltrials.Client) *ClinicalSearchTool {
	return &ClinicalSearchTool{client: client}
}

func (t *ClinicalSearchTool) GetName() string {
	return "search_clinical_trials"
}

func (t *ClinicalSearchTool) GetDescription() string {
	return "Search ClinicalTrials.gov for clinical trials by condition or keywords. " +
		"Supports medical conditions (\"diabetes\", \"COVID-19\"), treatment types " +
		"(\"gene therapy\", \"immunotherapy\") and combined searches (\"diabetes AND metformin\")."
}

func (t *ClinicalSearchTool) GetInfo() ToolInfo {
	return ToolInfo{
		Name:        t.GetName(),
		Description: t.GetDescription(),
		Parameters: []ToolParameter{
			{Name: "search_expr", Type: "string", Description: "Search expression or condition name", Required: true},
			{Name: "max_studies", Type: "integer", Description: "Maximum number of studies to return", Default: 10},
		},
	}
}

func (t *ClinicalSearchTool) Execute(ctx context.Context, args map[string]interface{}) (ToolResult, error) {
	start := time.Now()

	searchExpr, err := stringArg(args, "search_expr")
	if err != nil {
		return errorResult(t.GetName(), err.Error(), time.Since(start)), nil
	}
	maxStudies := clampInt(intArg(args, "max_studies", 10), 1, maxSearchResults)

	studies, err := t.client.SearchStudies(ctx, searchExpr, maxStudies)
	if err != nil {
		return errorResult(t.GetName(), fmt.Sprintf("Error searching clinical trials: %v", err), time.Since(start)), nil
	}

	if len(studies) == 0 {
		return successResult(t.GetName(), fmt.Sprintf("No clinical trials found for search: %s", searchExpr), time.Since(start)), nil
	}

	content := fmt.Sprintf("Clinical trials search results for '%s':\n\n%s", searchExpr, formatStudyList(studies))
	result := successResult(t.GetName(), content, time.Since(start))
	result.Sources = studySources(studies)
	return result, nil
}

func formatStudyList(studies []*clinicaltrials.Study) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Found %d clinical trials:\n\n", len(studies))

	for i, study := range studies {
		var entry strings.Builder
		title := study.Title
		if title == "" {
			title = "Untitled Study"
		}
		fmt.Fprintf(&entry, "%d. %s\n", i+1, title)
		fmt.Fprintf(&entry, "   NCT ID: %s\n", valueOrNA(study.NCTID))
		fmt.Fprintf(&entry, "   Conditions: %s\n", truncateText(valueOrNA(strings.Join(study.Conditions, ", ")), conditionsMaxChars, "..."))
		if study.BriefSummary != "" {
			fmt.Fprintf(&entry, "   Summary: %s\n", truncateText(study.BriefSummary, summaryMaxChars, "..."))
		}
		entry.WriteString("\n")

		sb.WriteString(entry.String())
		if sb.Len() > searchResultsMaxChars {
			return sb.String()[:searchResultsMaxChars] + "\n\n[Results truncated for length...]"
		}
	}

	return sb.String()
}

func studySources(studies []*clinicaltrials.Study) []SourceRecord {
	sources := make([]SourceRecord, 0, len(studies))
	for _, study := range studies {
		if study.NCTID == "" {
			continue
		}
		sources = append(sources, SourceRecord{ID: study.NCTID, Source: "clinicaltrials", Title: study.Title})
	}
	return sources
}

func valueOrNA(s string) string {
	if s == "" {
		return "N/A"
	}
	return s
}
