// Command biomed runs the biomedical research MCP server.
//
// Usage:
//
//	biomed serve --config config.yaml
//	biomed serve --transport http --port 8080
//	biomed validate config.yaml
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/alecthomas/kong"

	"github.com/biomedmcp/biomed/pkg/config"
	"github.com/biomedmcp/biomed/pkg/logger"
	"github.com/biomedmcp/biomed/version"
)

// CLI defines the command-line interface.
type CLI struct {
	Version  VersionCmd  `cmd:"" help:"Show version information."`
	Serve    ServeCmd    `cmd:"" help:"Start the MCP server."`
	Validate ValidateCmd `cmd:"" help:"Validate configuration file."`
	Schema   SchemaCmd   `cmd:"" help:"Generate JSON Schema for the configuration."`

	Config    string `short:"c" help:"Path to config file." type:"path"`
	LogLevel  string `help:"Log level (debug, info, warn, error)."`
	LogFormat string `help:"Log format (simple, verbose, json)."`
}

// VersionCmd shows version information.
type VersionCmd struct{}

func (c *VersionCmd) Run() error {
	fmt.Println(version.GetVersion().String())
	return nil
}

// loadConfig reads the config file when one is given, otherwise builds
// a zero-config setup from environment variables.
func loadConfig(path string) (*config.Config, error) {
	config.LoadDotEnv()

	if path != "" {
		return config.Load(path)
	}
	return config.Default()
}

// initLogging installs the process logger. Output goes to stderr; the
// stdio transport owns stdout.
func initLogging(cli *CLI, cfg *config.Config) {
	// An explicit flag wins over the config file.
	levelStr := cfg.Logger.Level
	if cli.LogLevel != "" {
		levelStr = cli.LogLevel
	}
	format := cfg.Logger.Format
	if cli.LogFormat != "" {
		format = cli.LogFormat
	}

	level, _ := logger.ParseLevel(levelStr)
	logger.Init(level, os.Stderr, format)
}

func main() {
	cli := &CLI{}
	ctx := kong.Parse(cli,
		kong.Name("biomed"),
		kong.Description("Biomedical research assistant MCP server over PubMed and ClinicalTrials.gov."),
		kong.UsageOnError(),
	)

	if err := ctx.Run(cli); err != nil {
		slog.Error("Command failed", "error", err)
		os.Exit(1)
	}
}
