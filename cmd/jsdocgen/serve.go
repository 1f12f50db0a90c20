package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/gnana997/jsdocgen/pkg/config"
	"github.com/gnana997/jsdocgen/pkg/generator"
	mcpserver "github.com/gnana997/jsdocgen/pkg/mcp"
	"github.com/gnana997/jsdocgen/pkg/mcplog"
)

func newServeCommand(flags *globalFlags) *cobra.Command {
	var logPath string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Scan the project and serve its documentation over MCP on stdio",
		Long: `serve scans the project once, keeps the result in memory and answers MCP
tool calls on stdin/stdout. Logs go to stderr. No HTML page is written.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			p, err := loadProject(cmd, flags)
			if err != nil {
				return err
			}
			if logPath != "" {
				abs, err := filepath.Abs(logPath)
				if err != nil {
					return fmt.Errorf("failed to resolve mcp log path: %w", err)
				}
				p.config.MCPLogPath = abs
			}

			g := generator.New(p.generator, p.logger)
			defer g.Close()

			run, err := g.Run(cmd.Context(), p.root, p.runOptions)
			if err != nil {
				return err
			}

			callLog, err := mcplog.NewLogger(config.ResolvePath(p.root, p.config.MCPLogPath))
			if err != nil {
				return err
			}
			if callLog != nil {
				defer callLog.Close()
			}

			p.logger.Info("Serving MCP on stdio",
				"files", run.Totals.FilesTotal,
				"entries", run.Totals.Entries,
				"call_log", p.config.MCPLogPath)
			return mcpserver.NewServer(g.Index(), g.Cache(), callLog).ServeStdio()
		},
	}
	cmd.Flags().StringVar(&logPath, "mcp-log", "", "Append a JSONL record of every tool call to this file")
	return cmd
}
