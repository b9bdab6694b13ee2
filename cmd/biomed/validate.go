package main

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/biomedmcp/biomed/pkg/config"
)

// ValidateCmd validates a configuration file.
type ValidateCmd struct {
	Config string `arg:"" name:"config" help:"Configuration file path." placeholder:"PATH"`

	PrintConfig bool `short:"p" name:"print-config" help:"Print the expanded configuration (with defaults applied and env vars resolved)."`
}

func (c *ValidateCmd) Run(cli *CLI) error {
	config.LoadDotEnv()

	cfg, err := config.Load(c.Config)
	if err != nil {
		fmt.Fprintf(os.Stderr, "✗ %s: %v\n", c.Config, err)
		os.Exit(1)
	}

	fmt.Printf("✓ %s is valid\n", c.Config)

	if missing := cfg.MissingRequired(); len(missing) > 0 {
		fmt.Printf("  warning: missing required settings: %v\n", missing)
	}

	if c.PrintConfig {
		out, err := yaml.Marshal(cfg)
		if err != nil {
			return fmt.Errorf("failed to marshal config: %w", err)
		}
		fmt.Println(string(out))
	}

	return nil
}
