/*
main.go - Application entry point

PURPOSE:
  Initializes and starts the working-time tracking server. Handles
  configuration, dependency injection, and graceful shutdown.

STARTUP SEQUENCE:
  1. Load .env (if present) and read configuration
  2. Initialize SQLite store
  3. Create API handler with holiday calendar
  4. Configure HTTP router
  5. Start server with graceful shutdown

CONFIGURATION:
  Environment variables (flags override the first two):
    PORT           HTTP server port (default: 8080)
    DATABASE_PATH  SQLite database path (default: track.db, ":memory:" works)
    CORS_ORIGINS   Comma-separated allowed origins
    AUTH_TOKENS    Comma-separated token=owner pairs
    LOG_LEVEL      logrus level (default: info)

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop accepting new connections
  2. Wait for active requests to complete (30s timeout)
  3. Close database connection
  4. Exit

EXAMPLES:
  # Run with file database
  AUTH_TOKENS="s3cret=alice" ./server -db="./data/track.db"

  # Run with in-memory database
  AUTH_TOKENS="s3cret=alice" ./server -db=":memory:"

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
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/tracklite/track-engine/api"
	"github.com/tracklite/track-engine/holiday"
	"github.com/tracklite/track-engine/store/sqlite"
)

// version is set at build time via -ldflags "-X main.version=...".
var version = "dev"

func main() {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	log := logrus.New()
	log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	if level, err := logrus.ParseLevel(envOr("LOG_LEVEL", "info")); err == nil {
		log.SetLevel(level)
	}

	// Flags override the environment.
	port := flag.Int("port", envInt("PORT", 8080), "HTTP server port")
	dbPath := flag.String("db", envOr("DATABASE_PATH", "track.db"), "SQLite database path")
	flag.Parse()

	tokens, err := parseTokens(os.Getenv("AUTH_TOKENS"))
	if err != nil {
		log.WithError(err).Fatal("Invalid AUTH_TOKENS")
	}
	if len(tokens) == 0 {
		log.Warn("AUTH_TOKENS is empty, every request will be rejected")
	}

	origins := splitList(envOr("CORS_ORIGINS", "http://localhost:5173,http://localhost:8080"))

	// Initialize store
	store, err := sqlite.New(*dbPath)
	if err != nil {
		log.WithError(err).Fatal("Failed to initialize database")
	}
	defer store.Close()

	// Initialize handler and router
	handler := api.NewHandler(store, holiday.New(), log, version)
	router := api.NewRouter(handler, api.RouterConfig{
		AllowedOrigins: origins,
		Tokens:         tokens,
	})

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", *port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.WithFields(logrus.Fields{
			"port":    *port,
			"db":      *dbPath,
			"version": version,
		}).Info("Server starting")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.WithError(err).Fatal("Server failed")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.WithError(err).Fatal("Server forced to shutdown")
	}

	log.Info("Server stopped")
}

// parseTokens reads "token=owner,token=owner" into a lookup table.
func parseTokens(raw string) (map[string]string, error) {
	tokens := make(map[string]string)
	for _, pair := range splitList(raw) {
		token, owner, ok := strings.Cut(pair, "=")
		if !ok || token == "" || owner == "" {
			return nil, fmt.Errorf("expected token=owner, got %q", pair)
		}
		tokens[token] = owner
	}
	return tokens, nil
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}
