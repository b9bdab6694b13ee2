// Package clinicaltrials is a client for the ClinicalTrials.gov v2 API.
package clinicaltrials

import (
	"context"
	"encoding/json"
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

type Client struct {
	httpClient *httpclient.Client
	baseURL    string
	logger     *slog.Logger
}

func NewClient(cfg *config.ClinicalTrialsConfig) *Client {
	return &Client{
		httpClient: httpclient.New(
			httpclient.WithHTTPClient(&http.Client{Timeout: time.Duration(cfg.Timeout) * time.Second}),
		),
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		logger:  slog.Default().With("component", "clinicaltrials"),
	}
}

// SearchStudies queries the registry by condition or keyword expression
// and returns up to maxStudies flattened records.
func (c *Client) SearchStudies(ctx context.Context, searchExpr string, maxStudies int) ([]*Study, error) {
	params := url.Values{}
	params.Set("query.cond", searchExpr)
	params.Set("pageSize", fmt.Sprintf("%d", maxStudies))
	params.Set("format", "json")

	body, err := c.get(ctx, "/studies", params)
	if err != nil {
		return nil, fmt.Errorf("clinical trials search failed: %w", err)
	}

	var resp studiesResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("failed to parse studies response: %w", err)
	}

	studies := make([]*Study, 0, len(resp.Studies))
	for _, raw := range resp.Studies {
		studies = append(studies, raw.flatten())
	}

	c.logger.Debug("Studies search completed", "query", searchExpr, "returned", len(studies))
	return studies, nil
}

// GetStudy fetches a single study by its NCT ID.
func (c *Client) GetStudy(ctx context.Context, nctID string) (*Study, error) {
	nctID = strings.ToUpper(strings.TrimSpace(nctID))
	if !strings.HasPrefix(nctID, "NCT") {
		return nil, fmt.Errorf("invalid NCT ID: %q", nctID)
	}

	params := url.Values{}
	params.Set("format", "json")

	body, err := c.get(ctx, "/studies/"+nctID, params)
	if err != nil {
		return nil, fmt.Errorf("clinical trial lookup failed: %w", err)
	}

	var record studyRecord
	if err := json.Unmarshal(body, &record); err != nil {
		return nil, fmt.Errorf("failed to parse study response: %w", err)
	}

	study := record.flatten()
	if study.NCTID == "" {
		return nil, fmt.Errorf("study %s not found", nctID)
	}
	return study, nil
}

func (c *Client) get(ctx context.Context, path string, params url.Values) ([]byte, error) {
	reqURL := fmt.Sprintf("%s%s?%s", c.baseURL, path, params.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, fmt.Errorf("not found: %s", path)
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("registry returned status %d: %s", resp.StatusCode, truncate(string(body), 200))
	}

	return io.ReadAll(resp.Body)
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}
