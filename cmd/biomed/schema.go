package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/invopop/jsonschema"

	"github.com/biomedmcp/biomed/pkg/config"
)

// SchemaCmd generates a JSON Schema from the config structs. Output is
// written to stdout so it can be redirected.
type SchemaCmd struct {
	Compact bool `short:"c" help:"Compact JSON output (no indentation)."`
}

func (c *SchemaCmd) Run(cli *CLI) error {
	reflector := &jsonschema.Reflector{
		AllowAdditionalProperties: false,
		DoNotReference:            true,
	}

	schema := reflector.Reflect(&config.Config{})
	schema.Title = "Biomed MCP Configuration Schema"
	schema.Description = "Configuration schema for the biomedical research MCP server"
	schema.Version = "http://json-schema.org/draft-07/schema#"

	var out []byte
	var err error
	if c.Compact {
		out, err = json.Marshal(schema)
	} else {
		out, err = json.MarshalIndent(schema, "", "  ")
	}
	if err != nil {
		return fmt.Errorf("failed to marshal schema: %w", err)
	}

	fmt.Fprintln(os.Stdout, string(out))
	return nil
}
