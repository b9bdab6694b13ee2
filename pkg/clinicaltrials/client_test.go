package clinicaltrials

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/biomedmcp/biomed/pkg/config"
)

const sampleStudy = `{
	"protocolSection": {
		"identificationModule": {"nctId": "NCT04280705", "briefTitle": "Adaptive COVID-19 Treatment Trial"},
		"statusModule": {"overallStatus": "COMPLETED"},
		"designModule": {"studyType": "INTERVENTIONAL", "phases": ["PHASE3"]},
		"conditionsModule": {"conditions": ["COVID-19"]},
		"armsInterventionsModule": {"interventions": [{"type": "DRUG", "name": "Remdesivir"}]},
		"descriptionModule": {"briefSummary": "ACTT evaluated remdesivir.", "detailedDescription": "Longer description."},
		"eligibilityModule": {"eligibilityCriteria": "Adults hospitalized with COVID-19."},
		"outcomesModule": {"primaryOutcomes": [{"measure": "Time to recovery"}]}
	}
}`

func newTestClient(handler http.HandlerFunc) (*Client, *httptest.Server) {
	server := httptest.NewServer(handler)
	return NewClient(&config.ClinicalTrialsConfig{BaseURL: server.URL, Timeout: 5}), server
}

func TestSearchStudies_PassesSearchExpression(t *testing.T) {
	var gotQuery, gotPageSize string
	client, server := newTestClient(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query().Get("query.cond")
		gotPageSize = r.URL.Query().Get("pageSize")
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"studies": []json.RawMessage{json.RawMessage(sampleStudy)},
		})
	})
	defer server.Close()

	studies, err := client.SearchStudies(context.Background(), "COVID-19 AND Phase 3", 15)
	if err != nil {
		t.Fatalf("SearchStudies() error = %v", err)
	}

	// The phase filter travels inside the search expression itself.
	if gotQuery != "COVID-19 AND Phase 3" {
		t.Errorf("query.cond = %q", gotQuery)
	}
	if gotPageSize != "15" {
		t.Errorf("pageSize = %q", gotPageSize)
	}
	if len(studies) != 1 {
		t.Fatalf("expected 1 study, got %d", len(studies))
	}
	if studies[0].NCTID != "NCT04280705" {
		t.Errorf("NCTID = %q", studies[0].NCTID)
	}
	if studies[0].Phase() != "PHASE3" {
		t.Errorf("Phase() = %q", studies[0].Phase())
	}
	if studies[0].Interventions[0] != "DRUG: Remdesivir" {
		t.Errorf("Interventions[0] = %q", studies[0].Interventions[0])
	}
}

func TestGetStudy_FlattensRecord(t *testing.T) {
	client, server := newTestClient(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/studies/NCT04280705" {
			t.Errorf("path = %q", r.URL.Path)
		}
		_, _ = w.Write([]byte(sampleStudy))
	})
	defer server.Close()

	study, err := client.GetStudy(context.Background(), "nct04280705")
	if err != nil {
		t.Fatalf("GetStudy() error = %v", err)
	}
	if study.Title != "Adaptive COVID-19 Treatment Trial" {
		t.Errorf("Title = %q", study.Title)
	}
	if study.EligibilityCriteria != "Adults hospitalized with COVID-19." {
		t.Errorf("EligibilityCriteria = %q", study.EligibilityCriteria)
	}
	if len(study.PrimaryOutcomes) != 1 || study.PrimaryOutcomes[0] != "Time to recovery" {
		t.Errorf("PrimaryOutcomes = %v", study.PrimaryOutcomes)
	}
}

func TestGetStudy_RejectsInvalidID(t *testing.T) {
	client := NewClient(&config.ClinicalTrialsConfig{BaseURL: "http://localhost:1", Timeout: 1})
	if _, err := client.GetStudy(context.Background(), "not-an-id"); err == nil {
		t.Fatal("expected error for invalid NCT ID")
	}
}

func TestGetStudy_NotFound(t *testing.T) {
	client, server := newTestClient(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	})
	defer server.Close()

	if _, err := client.GetStudy(context.Background(), "NCT00000000"); err == nil {
		t.Fatal("expected error for missing study")
	}
}
