/*
main.go - Application entry point

PURPOSE:
  Initializes and starts the Project Allocation Engine server.
  Handles configuration, dependency injection, and graceful shutdown.

STARTUP SEQUENCE:
  1. Parse command-line flags
  2. Initialize SQLite store
  3. Wire the lifecycle service, availability service, and handler
  4. Configure HTTP router and housekeeping scheduler
  5. Start server with graceful shutdown

COMMAND-LINE FLAGS:
  -port      HTTP server port (default: 8080)
  -db        SQLite database path (default: allocations.db)
             Use ":memory:" for an in-memory database
  -approver  Actor ID granted the approver role (repeatable via comma)

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop the housekeeping scheduler
  2. Stop accepting new connections
  3. Wait for active requests to complete (30s timeout)
  4. Close database connection
  5. Exit

EXAMPLES:
  # Run with file database
  ./server -db="./data/allocations.db" -approver=cgo@example.com

  # Run with in-memory database
  ./server -db=":memory:"

SEE ALSO:
  - api/server.go: Router configuration
  - api/handlers.go: HTTP handlers
  - store/sqlite/sqlite.go: Database implementation
*/
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/warp/allocation-engine/allocation"
	"github.com/warp/allocation-engine/api"
	"github.com/warp/allocation-engine/store/sqlite"
)

func main() {
	// Flags
	port := flag.Int("port", 8080, "HTTP server port")
	dbPath := flag.String("db", "allocations.db", "SQLite database path")
	approvers := flag.String("approver", "", "comma-separated actor IDs granted the approver role")
	flag.Parse()

	// Initialize store
	store, err := sqlite.New(*dbPath)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer store.Close()

	// Role table from flags. The store doubles as the notification log.
	roles := make(map[string][]allocation.Role)
	for _, actor := range strings.Split(*approvers, ",") {
		if actor = strings.TrimSpace(actor); actor != "" {
			roles[actor] = []allocation.Role{allocation.RoleApprover}
		}
	}
	authorizer := &allocation.StaticAuthorizer{Roles: roles}

	service := allocation.NewService(store, store, authorizer, store)
	handler := api.NewHandler(service, store, store)

	// Housekeeping: complete ended assignments, send reminders
	scheduler := api.NewHousekeepingScheduler(store, store)
	scheduler.Start()
	defer scheduler.Stop()

	// Create router
	router := api.NewRouter(handler)

	// Create server
	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", *port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.Printf("Server starting on http://localhost:%d", *port)
		log.Printf("API available at http://localhost:%d/api", *port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Println("Server stopped")
}
