package tools

import (
	"fmt"

	"github.com/biomedmcp/biomed/pkg/llms"
	"github.com/biomedmcp/biomed/pkg/registry"
)

// Registry holds the tools available to a reasoning engine.
type Registry struct {
	*registry.BaseRegistry[Tool]
}

func NewRegistry() *Registry {
	return &Registry{
		BaseRegistry: registry.NewBaseRegistry[Tool](),
	}
}

func (r *Registry) RegisterTool(tool Tool) error {
	if tool == nil {
		return fmt.Errorf("tool cannot be nil")
	}
	return r.Register(tool.GetName(), tool)
}

func (r *Registry) GetTool(name string) (Tool, bool) {
	return r.Get(name)
}

// Definitions converts the registered tools into the function schema
// the chat completions API expects.
func (r *Registry) Definitions() []llms.ToolDefinition {
	names := r.Names()
	defs := make([]llms.ToolDefinition, 0, len(names))

	for _, name := range names {
		tool, ok := r.Get(name)
		if !ok {
			continue
		}
		info := tool.GetInfo()

		properties := make(map[string]interface{}, len(info.Parameters))
		required := make([]string, 0, len(info.Parameters))
		for _, p := range info.Parameters {
			prop := map[string]interface{}{
				"type":        p.Type,
				"description": p.Description,
			}
			if p.Default != nil {
				prop["default"] = p.Default
			}
			properties[p.Name] = prop
			if p.Required {
				required = append(required, p.Name)
			}
		}

		defs = append(defs, llms.ToolDefinition{
			Name:        info.Name,
			Description: info.Description,
			Parameters: map[string]interface{}{
				"type":       "object",
				"properties": properties,
				"required":   required,
			},
		})
	}

	return defs
}
