// Package tools defines the tool abstraction the reasoning engine
// dispatches on, plus the biomedical tool adapters over the PubMed and
// ClinicalTrials.gov clients.
package tools

import (
	"context"
	"time"
)

type ToolInfo struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Parameters  []ToolParameter `json:"parameters,omitempty"`
}

type ToolParameter struct {
	Name        string      `json:"name"`
	Type        string      `json:"type"`
	Description string      `json:"description"`
	Required    bool        `json:"required"`
	Default     interface{} `json:"default,omitempty"`
}

// SourceRecord identifies one external record an observation drew on,
// so callers can trace a summary back to its PMIDs and NCT IDs.
type SourceRecord struct {
	ID     string `json:"id"`
	Source string `json:"source"`
	Title  string `json:"title,omitempty"`
}

type ToolResult struct {
	Success       bool           `json:"success"`
	Content       string         `json:"content,omitempty"`
	Error         string         `json:"error,omitempty"`
	Sources       []SourceRecord `json:"sources,omitempty"`
	ToolName      string         `json:"tool_name"`
	ExecutionTime time.Duration  `json:"execution_time,omitempty"`
}

type Tool interface {
	GetInfo() ToolInfo

	Execute(ctx context.Context, args map[string]interface{}) (ToolResult, error)

	GetName() string

	GetDescription() string
}

func successResult(toolName, content string, elapsed time.Duration) ToolResult {
	return ToolResult{
		Success:       true,
		Content:       content,
		ToolName:      toolName,
		ExecutionTime: elapsed,
	}
}

func errorResult(toolName, errorMsg string, elapsed time.Duration) ToolResult {
	return ToolResult{
		Success:       false,
		Error:         errorMsg,
		ToolName:      toolName,
		ExecutionTime: elapsed,
	}
}
