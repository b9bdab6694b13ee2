package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/biomedmcp/biomed/pkg/config"
	"github.com/biomedmcp/biomed/pkg/server"
)

// ServeCmd starts the MCP server.
type ServeCmd struct {
	Transport string `help:"MCP transport (stdio, http). Overrides config." enum:",stdio,http" default:""`
	Host      string `help:"Bind host for HTTP mode. Overrides config."`
	Port      int    `help:"Bind port for HTTP mode. Overrides config." default:"0"`
}

func (c *ServeCmd) Run(cli *CLI) error {
	cfg, err := loadConfig(cli.Config)
	if err != nil {
		return err
	}

	if c.Transport != "" {
		cfg.Server.Transport = config.ServerTransport(c.Transport)
	}
	if c.Host != "" {
		cfg.Server.Host = c.Host
	}
	if c.Port != 0 {
		cfg.Server.Port = c.Port
	}

	initLogging(cli, cfg)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		slog.Info("Shutting down...")
		cancel()
	}()

	srv, err := server.New(cfg)
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}

	return srv.Run(ctx)
}
