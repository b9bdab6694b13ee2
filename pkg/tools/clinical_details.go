package tools

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/biomedmcp/biomed/pkg/clinicaltrials"
)

const (
	descriptionMaxChars = 2000
	eligibilityMaxChars = 1000
)

// ClinicalDetailsTool fetches the full record for a single trial.
type ClinicalDetailsTool struct {
	client *clinicaltrials.Client
}

func NewClinicalDetailsTool(client *clinicaltrials.Client) *ClinicalDetailsTool {
	return &ClinicalDetailsTool{client: client}
}

func (t *ClinicalDetailsTool) GetName() string {
	return "get_clinical_trial_details"
}

func (t *ClinicalDetailsTool) GetDescription() string {
	return "Get detailed information about a specific clinical trial using its NCT ID. " +
		"Returns study design, eligibility criteria and outcome measures."
}

func (t *ClinicalDetailsTool) GetInfo() ToolInfo {
	return ToolInfo{
		Name:        t.GetName(),
		Description: t.GetDescription(),
		Parameters: []ToolParameter{
			{Name: "nct_id", Type: "string", Description: "NCT ID of the clinical trial (e.g., NCT04280705)", Required: true},
		},
	}
}

func (t *ClinicalDetailsTool) Execute(ctx context.Context, args map[string]interface{}) (ToolResult, error) {
	start := time.Now()

	nctID, err := stringArg(args, "nct_id")
	if err != nil {
		return errorResult(t.GetName(), err.Error(), time.Since(start)), nil
	}

	study, err := t.client.GetStudy(ctx, nctID)
	if err != nil {
		return errorResult(t.GetName(), fmt.Sprintf("Error retrieving details for NCT ID %s: %v", nctID, err), time.Since(start)), nil
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Clinical Trial Details for %s:\n\n", nctID)
	fmt.Fprintf(&sb, "Title: %s\n", valueOrNA(study.Title))
	fmt.Fprintf(&sb, "NCT Number: %s\n", valueOrNA(study.NCTID))
	fmt.Fprintf(&sb, "Study Type: %s\n", valueOrNA(study.StudyType))
	fmt.Fprintf(&sb, "Study Phase: %s\n", study.Phase())
	fmt.Fprintf(&sb, "Study Status: %s\n", valueOrNA(study.Status))
	fmt.Fprintf(&sb, "Conditions: %s\n", valueOrNA(strings.Join(study.Conditions, ", ")))
	fmt.Fprintf(&sb, "Interventions: %s\n", valueOrNA(strings.Join(study.Interventions, ", ")))

	if study.BriefSummary != "" {
		fmt.Fprintf(&sb, "\nBrief Summary:\n%s\n", study.BriefSummary)
	}
	if study.DetailedDescription != "" && study.DetailedDescription != study.BriefSummary {
		fmt.Fprintf(&sb, "\nDetailed Description:\n%s\n", truncateText(study.DetailedDescription, descriptionMaxChars, "..."))
	}
	if study.EligibilityCriteria != "" {
		fmt.Fprintf(&sb, "\nEligibility Criteria:\n%s\n", truncateText(study.EligibilityCriteria, eligibilityMaxChars, "..."))
	}
	if len(study.PrimaryOutcomes) > 0 {
		fmt.Fprintf(&sb, "\nPrimary Outcome Measures:\n%s\n", strings.Join(study.PrimaryOutcomes, "; "))
	}

	result := successResult(t.GetName(), sb.String(), time.Since(start))
	result.Sources = []SourceRecord{{ID: study.NCTID, Source: "clinicaltrials", Title: study.Title}}
	return result, nil
}
