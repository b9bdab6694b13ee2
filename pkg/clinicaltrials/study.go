package clinicaltrials

import "strings"

// Study is a flattened view of a ClinicalTrials.gov v2 study record.
type Study struct {
	NCTID               string   `json:"nct_id"`
	Title               string   `json:"title"`
	Status              string   `json:"status"`
	StudyType           string   `json:"study_type"`
	Phases              []string `json:"phases"`
	Conditions          []string `json:"conditions"`
	Interventions       []string `json:"interventions"`
	BriefSummary        string   `json:"brief_summary"`
	DetailedDescription string   `json:"detailed_description,omitempty"`
	EligibilityCriteria string   `json:"eligibility_criteria,omitempty"`
	PrimaryOutcomes     []string `json:"primary_outcomes,omitempty"`
}

// Phase joins the study's phase list, or "N/A" when the registry has
// none recorded.
func (s *Study) Phase() string {
	if len(s.Phases) == 0 {
		return "N/A"
	}
	return strings.Join(s.Phases, ", ")
}

// The v2 API response schema, reduced to the modules we surface.

type studiesResponse struct {
	Studies       []studyRecord `json:"studies"`
	NextPageToken string        `json:"nextPageToken"`
	TotalCount    int           `json:"totalCount"`
}

type studyRecord struct {
	ProtocolSection struct {
		IdentificationModule struct {
			NCTID      string `json:"nctId"`
			BriefTitle string `json:"briefTitle"`
		} `json:"identificationModule"`
		StatusModule struct {
			OverallStatus string `json:"overallStatus"`
		} `json:"statusModule"`
		DesignModule struct {
			StudyType string   `json:"studyType"`
			Phases    []string `json:"phases"`
		} `json:"designModule"`
		ConditionsModule struct {
			Conditions []string `json:"conditions"`
		} `json:"conditionsModule"`
		ArmsInterventionsModule struct {
			Interventions []struct {
				Type string `json:"type"`
				Name string `json:"name"`
			} `json:"interventions"`
		} `json:"armsInterventionsModule"`
		DescriptionModule struct {
			BriefSummary        string `json:"briefSummary"`
			DetailedDescription string `json:"detailedDescription"`
		} `json:"descriptionModule"`
		EligibilityModule struct {
			EligibilityCriteria string `json:"eligibilityCriteria"`
		} `json:"eligibilityModule"`
		OutcomesModule struct {
			PrimaryOutcomes []struct {
				Measure string `json:"measure"`
			} `json:"primaryOutcomes"`
		} `json:"outcomesModule"`
	} `json:"protocolSection"`
}

func (r studyRecord) flatten() *Study {
	p := r.ProtocolSection

	interventions := make([]string, 0, len(p.ArmsInterventionsModule.Interventions))
	for _, iv := range p.ArmsInterventionsModule.Interventions {
		if iv.Type != "" {
			interventions = append(interventions, iv.Type+": "+iv.Name)
		} else {
			interventions = append(interventions, iv.Name)
		}
	}

	outcomes := make([]string, 0, len(p.OutcomesModule.PrimaryOutcomes))
	for _, o := range p.OutcomesModule.PrimaryOutcomes {
		if o.Measure != "" {
			outcomes = append(outcomes, o.Measure)
		}
	}

	return &Study{
		NCTID:               p.IdentificationModule.NCTID,
		Title:               p.IdentificationModule.BriefTitle,
		Status:              p.StatusModule.OverallStatus,
		StudyType:           p.DesignModule.StudyType,
		Phases:              p.DesignModule.Phases,
		Conditions:          p.ConditionsModule.Conditions,
		Interventions:       interventions,
		BriefSummary:        p.DescriptionModule.BriefSummary,
		DetailedDescription: p.DescriptionModule.DetailedDescription,
		EligibilityCriteria: p.EligibilityModule.EligibilityCriteria,
		PrimaryOutcomes:     outcomes,
	}
}
