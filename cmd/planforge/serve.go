package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/spf13/cobra"

	"github.com/ShayCichocki/planforge/internal/analyst"
	"github.com/ShayCichocki/planforge/internal/config"
	"github.com/ShayCichocki/planforge/internal/gateway"
	"github.com/ShayCichocki/planforge/internal/lifecycle"
	"github.com/ShayCichocki/planforge/internal/orchestrator"
	"github.com/ShayCichocki/planforge/internal/planning"
	"github.com/ShayCichocki/planforge/internal/saga"
	"github.com/ShayCichocki/planforge/internal/store"
)

var (
	serveConfigPath string
	servePort       int
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the orchestrator server",
	Long: `Start the planforge orchestrator HTTP server.

The orchestrator owns the project lifecycle: creation, conversational
refinement, finalization, and task dispatch. Planning tools run in-process
unless collaborators.planning_url points at a separate planning service.

Configuration is loaded from ~/.config/planforge/config.yaml, overridden
by a .planforge.yaml in the working directory, then environment variables.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveConfigPath, "config", "", "Path to config file (overrides discovery)")
	serveCmd.Flags().IntVar(&servePort, "port", 0, "Listen port (overrides config)")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadServeConfig()
	if err != nil {
		return err
	}
	if servePort != 0 {
		cfg.Server.Port = servePort
	}

	dbPath := cfg.Database.Path
	if dbPath == "" {
		dbPath = store.DefaultDBPath()
	}
	db, err := store.Open(dbPath)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()
	if err := db.Migrate(); err != nil {
		return fmt.Errorf("migrate database: %w", err)
	}

	debug, err := orchestrator.NewDebugLogger(cfg.Debug.LogPath)
	if err != nil {
		return fmt.Errorf("open debug log: %w", err)
	}
	defer debug.Close()

	claude, err := analyst.NewClaude(analyst.ClaudeConfig{
		Model:         anthropic.Model(cfg.Anthropic.Model),
		APIKey:        cfg.Anthropic.APIKey,
		UseAWSBedrock: cfg.Anthropic.UseBedrock,
		AWSRegion:     cfg.Anthropic.AWSRegion,
		AWSProfile:    cfg.Anthropic.AWSProfile,
	})
	if err != nil {
		return fmt.Errorf("create analyst client: %w", err)
	}

	timeout := cfg.Collaborators.CallTimeout

	var planningInvoker gateway.Invoker
	if cfg.Collaborators.PlanningURL == "" {
		planningInvoker = gateway.NewLocal(planning.ServiceName, planning.NewRegistry(db))
		log.Printf("planning tools running in-process")
	} else {
		planningInvoker = gateway.NewClient("planning", cfg.Collaborators.PlanningURL, timeout)
		log.Printf("planning tools at %s", cfg.Collaborators.PlanningURL)
	}
	hosting := gateway.NewClient("hosting", cfg.Collaborators.HostingURL, timeout)
	sandbox := gateway.NewClient("sandbox", cfg.Collaborators.SandboxURL, timeout)

	srv := orchestrator.NewServer(orchestrator.Deps{
		DB:        db,
		Lifecycle: lifecycle.NewManager(db, claude),
		Finalizer: saga.NewFinalizer(db, claude, planningInvoker, hosting, sandbox),
		Planning:  planningInvoker,
		Hosting:   hosting,
		Sandbox:   sandbox,
		Debug:     debug,
	})

	log.Printf("orchestrator listening on %s (db=%s)", cfg.Addr(), dbPath)
	return serveHTTP(cfg.Addr(), srv.Handler())
}

func loadServeConfig() (*config.Config, error) {
	if serveConfigPath != "" {
		cfg, err := config.LoadFromPath(serveConfigPath)
		if err != nil {
			return nil, fmt.Errorf("load config: %w", err)
		}
		return cfg, nil
	}
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}

// serveHTTP runs an HTTP server until SIGINT/SIGTERM, then drains in-flight
// requests before returning.
func serveHTTP(addr string, handler http.Handler) error {
	httpServer := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       120 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	signalCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("listen failed: %w", err)
		}
		return nil
	case <-signalCtx.Done():
		log.Printf("shutdown signal received, draining in-flight requests")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			if closeErr := httpServer.Close(); closeErr != nil {
				return fmt.Errorf("force close after shutdown timeout: %w", closeErr)
			}
			log.Printf("shutdown timed out, forced close")
		} else {
			return fmt.Errorf("shutdown failed: %w", err)
		}
	}

	if err := <-errCh; err != nil {
		return fmt.Errorf("listen failed during shutdown: %w", err)
	}
	log.Printf("shutdown complete")
	return nil
}
