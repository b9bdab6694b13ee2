package tools

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/biomedmcp/biomed/pkg/pubmed"
)

const fullTextMaxChars = 10000

// PubMedFullTextTool retrieves the PubMed Central full text for an
// article, or alternative access routes when PMC has no record.
type PubMedFullTextTool struct {
	client *pubmed.Client
}

func NewPubMedFullTextTool(client *pubmed.Client) *PubMedFullTextTool {
	return &PubMedFullTextTool{client: client}
}

func (t *PubMedFullTextTool) GetName() string {
	return "get_pubmed_fulltext"
}

func (t *PubMedFullTextTool) GetDescription() string {
	return "Retrieve full text of a PubMed article if available through PubMed Central. " +
		"Returns the complete text if available, otherwise provides alternative access methods."
}

func (t *PubMedFullTextTool) GetInfo() ToolInfo {
	return ToolInfo{
		Name:        t.GetName(),
		Description: t.GetDescription(),
		Parameters: []ToolParameter{
			{Name: "pmid", Type: "string", Description: "PubMed ID of the article", Required: true},
		},
	}
}

func (t *PubMedFullTextTool) Execute(ctx context.Context, args map[string]interface{}) (ToolResult, error) {
	start := time.Now()

	pmid, err := stringArg(args, "pmid")
	if err != nil {
		return errorResult(t.GetName(), err.Error(), time.Since(start)), nil
	}

	fullText, err := t.client.GetFullText(ctx, pmid)
	if err != nil {
		return errorResult(t.GetName(), fmt.Sprintf("Error retrieving full text for PMID %s: %v", pmid, err), time.Since(start)), nil
	}

	if fullText != "" {
		fullText = truncateText(fullText, fullTextMaxChars, "\n\n[Text truncated for length...]")
		result := successResult(t.GetName(), fmt.Sprintf("Full text for PMID %s:\n\n%s", pmid, fullText), time.Since(start))
		result.Sources = []SourceRecord{{ID: pmid, Source: "pubmed"}}
		return result, nil
	}

	// No PMC record: point at the PubMed page and publisher instead.
	article, err := t.client.GetArticleDetails(ctx, pmid)
	if err != nil {
		return errorResult(t.GetName(), fmt.Sprintf("Error retrieving full text for PMID %s: %v", pmid, err), time.Since(start)), nil
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Full text for PMID %s is not available in PubMed Central.\n\n", pmid)
	sb.WriteString("Alternative access methods:\n")
	fmt.Fprintf(&sb, "- PubMed page: https://pubmed.ncbi.nlm.nih.gov/%s/\n", pmid)
	if article.DOI != "" {
		fmt.Fprintf(&sb, "- Publisher's site: https://doi.org/%s\n", article.DOI)
	}
	if article.Abstract != "" {
		fmt.Fprintf(&sb, "\nAbstract:\n%s", article.Abstract)
	}

	result := successResult(t.GetName(), sb.String(), time.Since(start))
	result.Sources = []SourceRecord{{ID: pmid, Source: "pubmed", Title: article.Title}}
	return result, nil
}
