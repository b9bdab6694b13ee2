package tools

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/biomedmcp/biomed/pkg/clinicaltrials"
)

const topDistributionEntries = 5

// ClinicalAnalyzeTool computes phase, status and study type
// distributions over a trial search.
type ClinicalAnalyzeTool struct {
	client *clinicaltrials.Client
}

func NewClinicalAnalyzeTool(client *clinicaltrials.Client) *ClinicalAnalyzeTool {
	return &ClinicalAnalyzeTool{client: client}
}

func (t *ClinicalAnalyzeTool) GetName() string {
	return "analyze_clinical_trials_patterns"
}

func (t *ClinicalAnalyzeTool) GetDescription() string {
	return "Analyze patterns and trends in clinical trials for a given condition or intervention. " +
		"Provides statistical insights including study phases, statuses and study types."
}

func (t *ClinicalAnalyzeTool) GetInfo() ToolInfo {
	return ToolInfo{
		Name:        t.GetName(),
		Description: t.GetDescription(),
		Parameters: []ToolParameter{
			{Name: "search_expr", Type: "string", Description: "Search expression or condition name", Required: true},
			{Name: "max_studies", Type: "integer", Description: "Maximum number of studies to analyze", Default: 20},
		},
	}
}

func (t *ClinicalAnalyzeTool) Execute(ctx context.Context, args map[string]interface{}) (ToolResult, error) {
	start := time.Now()

	searchExpr, err := stringArg(args, "search_expr")
	if err != nil {
		return errorResult(t.GetName(), err.Error(), time.Since(start)), nil
	}
	maxStudies := clampInt(intArg(args, "max_studies", 20), 1, maxSearchResults)

	studies, err := t.client.SearchStudies(ctx, searchExpr, maxStudies)
	if err != nil {
		return errorResult(t.GetName(), fmt.Sprintf("Error analyzing clinical trials patterns: %v", err), time.Since(start)), nil
	}

	if len(studies) == 0 {
		return successResult(t.GetName(), fmt.Sprintf("No clinical trials found for analysis: %s", searchExpr), time.Since(start)), nil
	}

	phases := distribution(studies, func(s *clinicaltrials.Study) string { return s.Phase() })
	statuses := distribution(studies, func(s *clinicaltrials.Study) string { return valueOrNA(s.Status) })
	types := distribution(studies, func(s *clinicaltrials.Study) string { return valueOrNA(s.StudyType) })

	var sb strings.Builder
	fmt.Fprintf(&sb, "Clinical Trials Pattern Analysis for '%s':\n\n", searchExpr)
	fmt.Fprintf(&sb, "Total Studies Analyzed: %d\n\n", len(studies))

	writeDistribution(&sb, "Study Phase Distribution", phases)
	writeDistribution(&sb, "Study Status Distribution", statuses)
	writeDistribution(&sb, "Study Type Distribution", types)

	sb.WriteString("Key Insights:\n")
	fmt.Fprintf(&sb, "- Most common phase: %s\n", topEntry(phases))
	fmt.Fprintf(&sb, "- Most common status: %s\n", topEntry(statuses))
	fmt.Fprintf(&sb, "- Primary study type: %s\n", topEntry(types))

	result := successResult(t.GetName(), sb.String(), time.Since(start))
	result.Sources = studySources(studies)
	return result, nil
}

type distEntry struct {
	value string
	count int
}

// distribution counts the extracted value per study and orders entries
// by descending count, breaking ties alphabetically for stable output.
func distribution(studies []*clinicaltrials.Study, extract func(*clinicaltrials.Study) string) []distEntry {
	counts := make(map[string]int)
	for _, s := range studies {
		counts[extract(s)]++
	}

	entries := make([]distEntry, 0, len(counts))
	for value, count := range counts {
		entries = append(entries, distEntry{value: value, count: count})
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].count != entries[j].count {
			return entries[i].count > entries[j].count
		}
		return entries[i].value < entries[j].value
	})
	return entries
}

func writeDistribution(sb *strings.Builder, title string, entries []distEntry) {
	sb.WriteString(title + ":\n")
	for i, entry := range entries {
		if i >= topDistributionEntries {
			break
		}
		fmt.Fprintf(sb, "  %s: %d\n", entry.value, entry.count)
	}
	sb.WriteString("\n")
}

func topEntry(entries []distEntry) string {
	if len(entries) == 0 {
		return "N/A"
	}
	return entries[0].value
}
