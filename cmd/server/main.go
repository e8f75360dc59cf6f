/*
main.go - Application entry point

PURPOSE:
  Command-line entry for the booking engine: runs the HTTP server, applies
  the schema, or seeds a demo scenario. Handles configuration, dependency
  injection, and graceful shutdown.

COMMANDS:
  serve              Start the HTTP server
  migrate            Create or update the SQLite schema, then exit
  scenario <id>      Reset the database and load a demo scenario

FLAGS (override the environment):
  --port    HTTP server port (serve only)
  --db      SQLite database path. Use ":memory:" for a throwaway database

ENVIRONMENT:
  Read from .env and the process environment, see package config.

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop accepting new connections
  2. Wait for active requests to complete (30s timeout)
  3. Close database connection
  4. Exit

EXAMPLES:
  ./booking-engine serve --db=./data/booking.db
  ./booking-engine migrate --db=./data/booking.db
  ./booking-engine scenario calendar-conflict --db=./data/booking.db

SEE ALSO:
  - api/server.go: Router configuration
  - config/config.go: Environment variables
  - store/sqlite/sqlite.go: Database implementation
*/
package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/trevio/booking-engine/api"
	"github.com/trevio/booking-engine/booking"
	"github.com/trevio/booking-engine/config"
	"github.com/trevio/booking-engine/store/sqlite"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	rootCmd := &cobra.Command{
		Use:   "booking-engine",
		Short: "Rental booking lifecycle engine",
	}
	rootCmd.PersistentFlags().StringVar(&cfg.DBPath, "db", cfg.DBPath, "SQLite database path")

	rootCmd.AddCommand(
		serveCmd(&cfg),
		migrateCmd(&cfg),
		scenarioCmd(&cfg),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func serveCmd(cfg *config.Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := cfg.Validate(); err != nil {
				return err
			}
			return serve(*cfg)
		},
	}
	cmd.Flags().IntVar(&cfg.Port, "port", cfg.Port, "HTTP server port")
	return cmd
}

func migrateCmd(cfg *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := sqlite.New(cfg.DBPath)
			if err != nil {
				return fmt.Errorf("failed to migrate %s: %w", cfg.DBPath, err)
			}
			defer store.Close()
			log.Printf("[Server] schema up to date: %s", cfg.DBPath)
			return nil
		},
	}
}

func scenarioCmd(cfg *config.Config) *cobra.Command {
	var ids []string
	for _, s := range api.Scenarios() {
		ids = append(ids, s.ID)
	}
	return &cobra.Command{
		Use:       "scenario <id>",
		Short:     "Reset the database and load a demo scenario",
		Args:      cobra.ExactArgs(1),
		ValidArgs: ids,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := sqlite.New(cfg.DBPath)
			if err != nil {
				return fmt.Errorf("failed to open %s: %w", cfg.DBPath, err)
			}
			defer store.Close()

			handler := newHandler(store, *cfg)
			if err := handler.SeedScenario(cmd.Context(), args[0]); err != nil {
				return err
			}
			log.Printf("[Server] scenario %q loaded into %s", args[0], cfg.DBPath)
			return nil
		},
	}
}

func newHandler(store api.Store, cfg config.Config) *api.Handler {
	tokens := booking.NewHashTokenGenerator(cfg.TokenSecret)
	tokens.Length = cfg.TokenLength
	return api.NewHandler(store, tokens, cfg.GuestBaseURL)
}

func serve(cfg config.Config) error {
	// Initialize store
	store, err := sqlite.New(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer store.Close()

	router := api.NewRouter(newHandler(store, cfg), api.RouterOptions{
		AllowedOrigins: cfg.CORSOrigins,
		TrustProxy:     cfg.TrustProxy,
	})

	server := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Printf("[Server] listening on http://localhost:%d/api", cfg.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err := <-errCh:
		return fmt.Errorf("server failed: %w", err)
	case <-quit:
	}

	log.Println("[Server] shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	log.Println("[Server] stopped")
	return nil
}
