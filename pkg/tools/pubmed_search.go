package tools

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/biomedmcp/biomed/pkg/pubmed"
)

const (
	maxSearchResults     = 50
	abstractPreviewChars = 500
)

// PubMedSearchTool searches PubMed and formats article metadata for
// agent consumption.
type PubMedSearchTool struct {
	client *pubmed.Client
}

func NewPubMedSearchTool(client *pubmed.Client) *PubMedSearchTool {
	return &PubMedSearchTool{client: client}
}

func (t *PubMedSearchTool) GetName() string {
	return "search_pubmed_articles"
}

func (t *PubMedSearchTool) GetDescription() string {
	return "Search PubMed for medical and life sciences research articles. " +
		"Supports keyword search, field tags like \"breast cancer\"[Title], " +
		"date ranges like \"2020:2024[Date - Publication]\" and boolean operators (AND, OR, NOT)."
}

func (t *PubMedSearchTool) GetInfo() ToolInfo {
	return ToolInfo{
		Name:        t.GetName(),
		Description: t.GetDescription(),
		Parameters: []ToolParameter{
			{Name: "query", Type: "string", Description: "Search query for PubMed articles", Required: true},
			{Name: "max_results", Type: "integer", Description: "Maximum number of results (1-50)", Default: 10},
		},
	}
}

func (t *PubMedSearchTool) Execute(ctx context.Context, args map[string]interface{}) (ToolResult, error) {
	start := time.Now()

	query, err := stringArg(args, "query")
	if err != nil {
		return errorResult(t.GetName(), err.Error(), time.Since(start)), nil
	}
	maxResults := clampInt(intArg(args, "max_results", 10), 1, maxSearchResults)

	articles, err := t.client.SearchArticles(ctx, query, maxResults)
	if err != nil {
		return errorResult(t.GetName(), fmt.Sprintf("Error searching PubMed: %v", err), time.Since(start)), nil
	}

	if len(articles) == 0 {
		return successResult(t.GetName(), fmt.Sprintf("No articles found for query: %s", query), time.Since(start)), nil
	}

	var sb strings.Builder
	sources := make([]SourceRecord, 0, len(articles))
	fmt.Fprintf(&sb, "Found %d articles for query '%s':\n\n", len(articles), query)
	for i, article := range articles {
		fmt.Fprintf(&sb, "%d. %s\n", i+1, article.Title)
		fmt.Fprintf(&sb, "   PMID: %s\n", article.PMID)
		fmt.Fprintf(&sb, "   Authors: %s\n", formatAuthors(article.Authors))
		fmt.Fprintf(&sb, "   Journal: %s\n", article.Journal)
		if article.Abstract != "" {
			fmt.Fprintf(&sb, "   Abstract: %s\n", truncateText(article.Abstract, abstractPreviewChars, "..."))
		}
		sb.WriteString("\n")
		sources = append(sources, SourceRecord{ID: article.PMID, Source: "pubmed", Title: article.Title})
	}

	result := successResult(t.GetName(), sb.String(), time.Since(start))
	result.Sources = sources
	return result, nil
}

// formatAuthors lists the first three authors, appending an ellipsis
// when more exist.
func formatAuthors(authors []string) string {
	if len(authors) == 0 {
		return "N/A"
	}
	if len(authors) > 3 {
		return strings.Join(authors[:3], ", ") + "..."
	}
	return strings.Join(authors, ", ")
}
