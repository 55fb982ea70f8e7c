package main

import (
	"fmt"
	"log"

	"github.com/spf13/cobra"

	"github.com/ShayCichocki/planforge/internal/gateway"
	"github.com/ShayCichocki/planforge/internal/planning"
	"github.com/ShayCichocki/planforge/internal/store"
)

var (
	planningPort int
	planningDB   string
)

var planningCmd = &cobra.Command{
	Use:   "planning",
	Short: "Run the planning tool service standalone",
	Long: `Start the planning tool service as its own HTTP server.

Exposes the planning tool catalog (project, epic, story, and task CRUD,
plan queries, markdown export) over the standard tool endpoints:
GET /health, GET /tools, and POST /call_tool.

The orchestrator runs these tools in-process by default; run this command
when the planning service should live on a separate host, and point
collaborators.planning_url at it.`,
	RunE: runPlanning,
}

func init() {
	planningCmd.Flags().IntVar(&planningPort, "port", 8002, "Listen port")
	planningCmd.Flags().StringVar(&planningDB, "db", "", "SQLite database path (defaults to the XDG data path)")
}

func runPlanning(cmd *cobra.Command, args []string) error {
	dbPath := planningDB
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

	srv := gateway.NewServer(planning.ServiceName, planning.NewRegistry(db))
	addr := fmt.Sprintf("0.0.0.0:%d", planningPort)
	log.Printf("planning service listening on %s (db=%s)", addr, dbPath)
	return serveHTTP(addr, srv.Handler())
}
