package tools

import (
	"context"
	"time"
)

// ResearchCompleteName is the completion signal the reasoning engine
// watches for. The tool performs no work; calling it ends the research
// loop.
const ResearchCompleteName = "research_complete"

type ResearchCompleteTool struct{}

func NewResearchCompleteTool() *ResearchCompleteTool {
	return &ResearchCompleteTool{}
}

func (t *ResearchCompleteTool) GetName() string {
	return ResearchCompleteName
}

func (t *ResearchCompleteTool) GetDescription() string {
	return "Signal that research is complete. Call this with your summary, key findings " +
		"and recommendations when you have gathered sufficient information."
}

func (t *ResearchCompleteTool) GetInfo() ToolInfo {
	return ToolInfo{
		Name:        t.GetName(),
		Description: t.GetDescription(),
		Parameters: []ToolParameter{
			{Name: "summary", Type: "string", Description: "Comprehensive summary of research findings", Required: true},
			{Name: "key_findings", Type: "string", Description: "Key findings from the research", Required: false},
			{Name: "recommendations", Type: "string", Description: "Research implications and recommendations", Required: false},
		},
	}
}

func (t *ResearchCompleteTool) Execute(ctx context.Context, args map[string]interface{}) (ToolResult, error) {
	start := time.Now()
	return successResult(t.GetName(), "Research completed successfully. Proceeding to final summary.", time.Since(start)), nil
}
