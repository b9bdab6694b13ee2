// Package pubmed is a client for the NCBI E-utilities API. It covers
// article search (esearch), metadata retrieval (efetch), PMC linkage
// (elink) and PMC full text.
package pubmed

import (
	"context"
	"encoding/json"
	"encoding/xml"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/biomedmcp/biomed/pkg/config"
	"github.com/biomedmcp/biomed/pkg/httpclient"
)

// Client talks to the E-utilities endpoints. NCBI requires an email and
// tool name on every request; an API key raises the rate limit from 3
// to 10 requests per second.
type Client struct {
	httpClient *httpclient.Client
	baseURL    string
	email      string
	tool       string
	apiKey     string
	logger     *slog.Logger
}

func NewClient(cfg *config.PubMedConfig) *Client {
	return &Client{
		httpClient: httpclient.New(
			httpclient.WithHTTPClient(&http.Client{Timeout: time.Duration(cfg.Timeout) * time.Second}),
			httpclient.WithHeaderParser(httpclient.ParseNCBIHeaders),
		),
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		email:   cfg.Email,
		tool:    cfg.Tool,
		apiKey:  cfg.APIKey,
		logger:  slog.Default().With("component", "pubmed"),
	}
}

// SearchArticles runs an esearch for the query and fetches metadata for
// the matching PMIDs. Supports the full PubMed query syntax, including
// field tags ("[Title]"), date ranges and boolean operators.
func (c *Client) SearchArticles(ctx context.Context, query string, maxResults int) ([]*Article, error) {
	params := url.Values{}
	params.Set("db", "pubmed")
	params.Set("term", query)
	params.Set("retmax", fmt.Sprintf("%d", maxResults))
	params.Set("retmode", "json")
	params.Set("sort", "relevance")

	body, err := c.get(ctx, "esearch.fcgi", params)
	if err != nil {
		return nil, fmt.Errorf("pubmed search failed: %w", err)
	}

	var search esearchResponse
	if err := json.Unmarshal(body, &search); err != nil {
		return nil, fmt.Errorf("failed to parse search response: %w", err)
	}

	if len(search.ESearchResult.IDList) == 0 {
		c.logger.Debug("No articles found", "query", query)
		return nil, nil
	}

	return c.FetchArticles(ctx, search.ESearchResult.IDList)
}

// FetchArticles retrieves metadata for the given PMIDs in one efetch
// call.
func (c *Client) FetchArticles(ctx context.Context, pmids []string) ([]*Article, error) {
	params := url.Values{}
	params.Set("db", "pubmed")
	params.Set("id", strings.Join(pmids, ","))
	params.Set("retmode", "xml")

	body, err := c.get(ctx, "efetch.fcgi", params)
	if err != nil {
		return nil, fmt.Errorf("pubmed fetch failed: %w", err)
	}

	var set pubmedArticleSet
	if err := xml.Unmarshal(body, &set); err != nil {
		return nil, fmt.Errorf("failed to parse article XML: %w", err)
	}

	articles := make([]*Article, 0, len(set.Articles))
	for _, raw := range set.Articles {
		articles = append(articles, convertArticle(raw))
	}
	return articles, nil
}

// GetArticleDetails retrieves metadata for a single PMID.
func (c *Client) GetArticleDetails(ctx context.Context, pmid string) (*Article, error) {
	articles, err := c.FetchArticles(ctx, []string{pmid})
	if err != nil {
		return nil, err
	}
	if len(articles) == 0 {
		return nil, fmt.Errorf("article %s not found", pmid)
	}
	return articles[0], nil
}

// CheckFullTextAvailability asks elink whether the article has a PMC
// record. Returns the PMC ID when it does.
func (c *Client) CheckFullTextAvailability(ctx context.Context, pmid string) (bool, string, error) {
	params := url.Values{}
	params.Set("dbfrom", "pubmed")
	params.Set("db", "pmc")
	params.Set("id", pmid)
	params.Set("retmode", "json")

	body, err := c.get(ctx, "elink.fcgi", params)
	if err != nil {
		return false, "", fmt.Errorf("pmc link check failed: %w", err)
	}

	var link elinkResponse
	if err := json.Unmarshal(body, &link); err != nil {
		return false, "", fmt.Errorf("failed to parse link response: %w", err)
	}

	for _, set := range link.LinkSets {
		for _, db := range set.LinkSetDBs {
			if db.DBTo == "pmc" && len(db.Links) > 0 {
				return true, "PMC" + db.Links[0], nil
			}
		}
	}
	return false, "", nil
}

// GetFullText fetches the PMC record for the article and extracts the
// body text. Returns an empty string when no PMC record exists.
func (c *Client) GetFullText(ctx context.Context, pmid string) (string, error) {
	available, pmcID, err := c.CheckFullTextAvailability(ctx, pmid)
	if err != nil {
		return "", err
	}
	if !available {
		return "", nil
	}

	params := url.Values{}
	params.Set("db", "pmc")
	params.Set("id", pmcID)
	params.Set("retmode", "xml")

	body, err := c.get(ctx, "efetch.fcgi", params)
	if err != nil {
		return "", fmt.Errorf("pmc fetch failed: %w", err)
	}

	text := extractBodyText(body)
	if text == "" {
		c.logger.Debug("PMC record has no extractable body", "pmid", pmid, "pmc_id", pmcID)
	}
	return text, nil
}

func (c *Client) get(ctx context.Context, endpoint string, params url.Values) ([]byte, error) {
	params.Set("email", c.email)
	params.Set("tool", c.tool)
	if c.apiKey != "" {
		params.Set("api_key", c.apiKey)
	}

	reqURL := fmt.Sprintf("%s/%s?%s", c.baseURL, endpoint, params.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("NCBI returned status %d: %s", resp.StatusCode, truncate(string(body), 200))
	}

	return io.ReadAll(resp.Body)
}

func convertArticle(raw pubmedArticle) *Article {
	cit := raw.Citation

	authors := make([]string, 0, len(cit.Article.AuthorList.Authors))
	for _, a := range cit.Article.AuthorList.Authors {
		switch {
		case a.Collective != "":
			authors = append(authors, a.Collective)
		case a.ForeName != "":
			authors = append(authors, a.ForeName+" "+a.LastName)
		case a.LastName != "":
			authors = append(authors, a.LastName)
		}
	}

	var abstract strings.Builder
	for _, part := range cit.Article.Abstract.Texts {
		if abstract.Len() > 0 {
			abstract.WriteString("\n")
		}
		if part.Label != "" {
			abstract.WriteString(part.Label + ": ")
		}
		abstract.WriteString(strings.TrimSpace(part.Text))
	}

	doi := ""
	for _, loc := range cit.Article.ELocationIDs {
		if loc.Type == "doi" {
			doi = strings.TrimSpace(loc.Value)
		}
	}
	if doi == "" {
		for _, id := range raw.Data.ArticleIDs {
			if id.Type == "doi" {
				doi = strings.TrimSpace(id.Value)
			}
		}
	}

	date := cit.Article.Journal.Issue.PubDate.Year
	if m := cit.Article.Journal.Issue.PubDate.Month; m != "" {
		date += " " + m
	}
	if d := cit.Article.Journal.Issue.PubDate.Day; d != "" {
		date += " " + d
	}

	return &Article{
		PMID:            strings.TrimSpace(cit.PMID),
		Title:           strings.TrimSpace(cit.Article.Title),
		Authors:         authors,
		Journal:         strings.TrimSpace(cit.Article.Journal.Title),
		PublicationDate: strings.TrimSpace(date),
		Abstract:        abstract.String(),
		DOI:             doi,
		Keywords:        cit.KeywordList.Keywords,
	}
}

// extractBodyText walks the PMC article XML and concatenates the text
// inside the <body> element, skipping tables and references.
func extractBodyText(data []byte) string {
	decoder := xml.NewDecoder(strings.NewReader(string(data)))

	var out strings.Builder
	inBody := false
	skipDepth := 0

	for {
		tok, err := decoder.Token()
		if err != nil {
			break
		}

		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "body":
				inBody = true
			case "table-wrap", "ref-list", "fig":
				if inBody {
					skipDepth++
				}
			case "p", "title", "sec":
				if inBody && skipDepth == 0 && out.Len() > 0 {
					out.WriteString("\n")
				}
			}
		case xml.EndElement:
			switch t.Name.Local {
			case "body":
				inBody = false
			case "table-wrap", "ref-list", "fig":
				if inBody && skipDepth > 0 {
					skipDepth--
				}
			}
		case xml.CharData:
			if inBody && skipDepth == 0 {
				text := strings.TrimSpace(string(t))
				if text != "" {
					if out.Len() > 0 && !strings.HasSuffix(out.String(), "\n") {
						out.WriteString(" ")
					}
					out.WriteString(text)
				}
			}
		}
	}

	return strings.TrimSpace(out.String())
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}
