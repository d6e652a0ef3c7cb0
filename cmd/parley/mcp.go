package main

import (
	"fmt"
	"log"
	"log/slog"
	"os"

	"github.com/aretw0/parley"
	"github.com/aretw0/parley/internal/config"
	"github.com/aretw0/parley/internal/logging"
	mcpAdapter "github.com/aretw0/parley/pkg/adapters/mcp"
	"github.com/aretw0/parley/pkg/adapters/sqlite"
	"github.com/spf13/cobra"
)

// mcpCmd represents the mcp command
var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Run the Model Context Protocol (MCP) server",
	Long: `Starts the intent pipeline as an MCP Server over stdio.
This allows MCP-capable agent hosts to schedule appointments through the same
validated, idempotent pipeline the realtime bridge uses.`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := config.Load()
		if err != nil {
			fmt.Printf("Error loading configuration: %v\n", err)
			os.Exit(1)
		}

		// Ensure logs don't corrupt JSON-RPC on Stdout.
		log.SetOutput(os.Stderr)
		logger := logging.New(logging.ParseLevel(cfg.LogLevel))
		slog.SetDefault(logger)

		opts := []parley.Option{
			parley.WithLogger(logger),
			parley.WithWebhookAPIKey(cfg.WebhookAPIKey),
		}
		if cfg.DBPath != "" {
			store, err := sqlite.New(cfg.DBPath)
			if err != nil {
				fmt.Printf("Error opening appointment store: %v\n", err)
				os.Exit(1)
			}
			opts = append(opts, parley.WithAppointmentStore(store))
		}

		pipeline := parley.New(cfg.WebhookURL, opts...)
		defer pipeline.Close()

		srv := mcpAdapter.NewServer(pipeline.Orchestrator())

		slog.Info("Starting Parley MCP Server (Stdio)...")
		if err := srv.ServeStdio(); err != nil {
			slog.Error("MCP Server execution failed", "error", err)
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(mcpCmd)
}
