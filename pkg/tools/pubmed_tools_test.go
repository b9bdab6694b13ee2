package tools

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/biomedmcp/biomed/pkg/config"
	"github.com/biomedmcp/biomed/pkg/llms"
	"github.com/biomedmcp/biomed/pkg/pubmed"
)

var toolTestEFetch = `<?xml version="1.0"?>
<PubmedArticleSet>
  <PubmedArticle>
    <MedlineCitation>
      <PMID>11112222</PMID>
      <Article>
        <Journal><Title>The Lancet</Title><JournalIssue><PubDate><Year>2023</Year></PubDate></JournalIssue></Journal>
        <ArticleTitle>Metformin and cardiovascular outcomes</ArticleTitle>
        <ELocationID EIdType="doi">10.1000/lancet.23</ELocationID>
        <Abstract><AbstractText>` + longAbstract + `</AbstractText></Abstract>
        <AuthorList>
          <Author><LastName>Lee</LastName><ForeName>Ana</ForeName></Author>
          <Author><LastName>Chen</LastName><ForeName>Bo</ForeName></Author>
          <Author><LastName>Diaz</LastName><ForeName>Carla</ForeName></Author>
          <Author><LastName>Evans</LastName><ForeName>Dan</ForeName></Author>
        </AuthorList>
      </Article>
    </MedlineCitation>
  </PubmedArticle>
</PubmedArticleSet>`

var longAbstract = strings.Repeat("Cardiovascular outcomes improved with treatment. ", 20)

func newPubMedToolServer(t *testing.T) (*pubmed.Client, func()) {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case strings.HasPrefix(r.URL.Path, "/esearch.fcgi"):
			_, _ = w.Write([]byte(`{"esearchresult": {"count": "1", "idlist": ["11112222"]}}`))
		case strings.HasPrefix(r.URL.Path, "/efetch.fcgi"):
			_, _ = w.Write([]byte(toolTestEFetch))
		case strings.HasPrefix(r.URL.Path, "/elink.fcgi"):
			_, _ = w.Write([]byte(`{"linksets": [{}]}`))
		}
	}))
	client := pubmed.NewClient(&config.PubMedConfig{
		Email: "test@example.org", Tool: "biomed-mcp", BaseURL: server.URL, Timeout: 5,
	})
	return client, server.Close
}

func TestPubMedSearchTool_FormatsResults(t *testing.T) {
	client, closeServer := newPubMedToolServer(t)
	defer closeServer()

	tool := NewPubMedSearchTool(client)
	result, err := tool.Execute(context.Background(), map[string]interface{}{
		"query":       "metformin cardiovascular",
		"max_results": float64(10),
	})
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if !result.Success {
		t.Fatalf("Execute() failed: %s", result.Error)
	}

	content := result.Content
	if !strings.Contains(content, "PMID: 11112222") {
		t.Errorf("missing PMID: %q", content)
	}
	// Only the first three authors are listed.
	if !strings.Contains(content, "Ana Lee, Bo Chen, Carla Diaz...") {
		t.Errorf("author list not truncated: %q", content)
	}
	if strings.Contains(content, "Dan Evans") {
		t.Errorf("fourth author should be elided: %q", content)
	}
	// The abstract preview is capped.
	if !strings.Contains(content, "...") {
		t.Errorf("long abstract not truncated: %q", content)
	}

	if len(result.Sources) != 1 {
		t.Fatalf("Sources = %v, want one record", result.Sources)
	}
	if result.Sources[0].ID != "11112222" || result.Sources[0].Source != "pubmed" {
		t.Errorf("Sources[0] = %+v", result.Sources[0])
	}
}

func TestPubMedFullTextTool_FallsBackToAlternatives(t *testing.T) {
	client, closeServer := newPubMedToolServer(t)
	defer closeServer()

	tool := NewPubMedFullTextTool(client)
	result, err := tool.Execute(context.Background(), map[string]interface{}{"pmid": "11112222"})
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if !result.Success {
		t.Fatalf("Execute() failed: %s", result.Error)
	}

	content := result.Content
	if !strings.Contains(content, "not available in PubMed Central") {
		t.Errorf("missing availability notice: %q", content)
	}
	if !strings.Contains(content, "https://pubmed.ncbi.nlm.nih.gov/11112222/") {
		t.Errorf("missing PubMed link: %q", content)
	}
	if !strings.Contains(content, "https://doi.org/10.1000/lancet.23") {
		t.Errorf("missing DOI link: %q", content)
	}
}

func TestRegistry_Definitions(t *testing.T) {
	client, closeServer := newPubMedToolServer(t)
	defer closeServer()

	registry := NewRegistry()
	if err := registry.RegisterTool(NewPubMedSearchTool(client)); err != nil {
		t.Fatalf("RegisterTool() error = %v", err)
	}
	if err := registry.RegisterTool(NewResearchCompleteTool()); err != nil {
		t.Fatalf("RegisterTool() error = %v", err)
	}

	defs := registry.Definitions()
	if len(defs) != 2 {
		t.Fatalf("expected 2 definitions, got %d", len(defs))
	}

	var searchDef *llms.ToolDefinition
	for i := range defs {
		if defs[i].Name == "search_pubmed_articles" {
			searchDef = &defs[i]
		}
	}
	if searchDef == nil {
		t.Fatal("search_pubmed_articles definition missing")
	}

	props, ok := searchDef.Parameters["properties"].(map[string]interface{})
	if !ok {
		t.Fatalf("properties not a map: %T", searchDef.Parameters["properties"])
	}
	if _, ok := props["query"]; !ok {
		t.Error("query property missing from schema")
	}
	required, _ := searchDef.Parameters["required"].([]string)
	if len(required) != 1 || required[0] != "query" {
		t.Errorf("required = %v", required)
	}
}

func TestRegistry_DuplicateRejected(t *testing.T) {
	registry := NewRegistry()
	if err := registry.RegisterTool(NewResearchCompleteTool()); err != nil {
		t.Fatalf("RegisterTool() error = %v", err)
	}
	if err := registry.RegisterTool(NewResearchCompleteTool()); err == nil {
		t.Error("expected duplicate registration to fail")
	}
}
