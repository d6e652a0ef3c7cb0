package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aretw0/parley"
	httpAdapter "github.com/aretw0/parley/internal/adapters/http"
	"github.com/aretw0/parley/internal/config"
	"github.com/aretw0/parley/internal/logging"
	redisAdapter "github.com/aretw0/parley/pkg/adapters/redis"
	"github.com/aretw0/parley/pkg/adapters/sqlite"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the tool-call bridge HTTP server",
	Long:  `Starts the intent pipeline behind a JSON API, the endpoint the realtime frontend posts tool calls to.`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := config.Load()
		if err != nil {
			fmt.Printf("Error loading configuration: %v\n", err)
			os.Exit(1)
		}
		if port, _ := cmd.Flags().GetString("port"); port != "" {
			cfg.Port = port
		}

		logger := logging.New(logging.ParseLevel(cfg.LogLevel))
		registry := prometheus.NewRegistry()

		opts := []parley.Option{
			parley.WithLogger(logger),
			parley.WithWebhookAPIKey(cfg.WebhookAPIKey),
			parley.WithMetrics(registry),
		}
		if cfg.UseRedis {
			logger.Info("using redis call state backend", "addr", cfg.RedisAddr)
			opts = append(opts, parley.WithStateStore(
				redisAdapter.New(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB,
					redisAdapter.WithTTL(cfg.StateTTL)),
			))
		}
		if cfg.DBPath != "" {
			store, err := sqlite.New(cfg.DBPath)
			if err != nil {
				fmt.Printf("Error opening appointment store: %v\n", err)
				os.Exit(1)
			}
			opts = append(opts, parley.WithAppointmentStore(store))
		}
		if cfg.WebhookURL == "" {
			logger.Warn("WEBHOOK_URL not configured, executions will fail as retryable")
		}

		pipeline := parley.New(cfg.WebhookURL, opts...)
		defer pipeline.Close()

		handler := httpAdapter.NewHandler(pipeline.Orchestrator(), logger, registry)

		srv := &http.Server{
			Addr:    ":" + cfg.Port,
			Handler: handler,
		}

		// Channel to listen for errors coming from the listener.
		serverErrors := make(chan error, 1)

		go func() {
			fmt.Printf("Starting Parley Server on %s\n", srv.Addr)
			serverErrors <- srv.ListenAndServe()
		}()

		// Channel to listen for interrupt or terminate signals.
		shutdown := make(chan os.Signal, 1)
		signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

		// Blocking main and waiting for shutdown.
		select {
		case err := <-serverErrors:
			fmt.Printf("Server error: %v\n", err)
			os.Exit(1)

		case sig := <-shutdown:
			fmt.Printf("\nStart shutdown... Signal: %v\n", sig)

			// Give outstanding requests a deadline for completion.
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()

			if err := srv.Shutdown(ctx); err != nil {
				fmt.Printf("Graceful shutdown did not complete in %v: %v\n", 5*time.Second, err)
				if err := srv.Close(); err != nil {
					fmt.Printf("Error killing server: %v\n", err)
				}
			}
			fmt.Println("Parley Server stopped gracefully")
		}
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringP("port", "p", "", "Port to listen on (overrides PORT)")
}
