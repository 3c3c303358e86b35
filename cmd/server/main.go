/*
main.go - Application entry point

PURPOSE:
  Initializes and starts the shift marketplace engine server.
  Handles configuration, dependency injection, and graceful shutdown.

STARTUP SEQUENCE:
  1. Load .env (optional) and parse command-line flags
  2. Initialize SQLite session store
  3. Construct the upstream marketplace client
  4. Create API handler with dependencies
  5. Start server with graceful shutdown

COMMAND-LINE FLAGS:
  -port      HTTP server port (default: 8080)
  -db        SQLite database path (default: sessions.db)
             Use ":memory:" for an in-memory database
  -upstream  Marketplace backend base URL (overrides UPSTREAM_URL)

ENVIRONMENT (.env supported):
  UPSTREAM_URL      Marketplace backend base URL
  UPSTREAM_API_KEY  Bearer token for the backend

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop accepting new connections
  2. Wait for active requests to complete (30s timeout)
  3. Close the session store
  4. Exit

SEE ALSO:
  - api/server.go: Router configuration
  - api/handlers.go: HTTP handlers
  - store/sqlite/sqlite.go: Session store implementation
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
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/warp/shift-engine/api"
	"github.com/warp/shift-engine/store/sqlite"
	"github.com/warp/shift-engine/upstream"
)

func main() {
	// .env is optional; real deployments inject environment directly.
	_ = godotenv.Load()

	port := flag.Int("port", 8080, "HTTP server port")
	dbPath := flag.String("db", "sessions.db", "SQLite database path")
	upstreamURL := flag.String("upstream", os.Getenv("UPSTREAM_URL"), "Marketplace backend base URL")
	flag.Parse()

	if *upstreamURL == "" {
		log.Fatal("Upstream URL required: set -upstream or UPSTREAM_URL")
	}

	// Initialize session store
	store, err := sqlite.New(*dbPath)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer store.Close()

	// Upstream marketplace client: listing, preferences, address
	// lookup and the apply/reject/counter transport.
	client := upstream.New(*upstreamURL, os.Getenv("UPSTREAM_API_KEY"))

	handler := api.NewHandler(store, client, client, client)
	handler.Addresses = client
	router := api.NewRouter(handler)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", *port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("Server starting on http://localhost:%d", *port)
		log.Printf("API available at http://localhost:%d/api", *port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed: %v", err)
		}
	}()

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
