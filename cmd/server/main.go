/*
main.go - Application entry point

PURPOSE:
  Initializes and starts the booking engine server. Handles
  configuration, dependency injection, and graceful shutdown.

STARTUP SEQUENCE:
  1. Load .env (if present) and configuration
  2. Parse command-line flags (flags win over env)
  3. Initialize SQLite store
  4. Build the notifier for the configured mode
  5. Wrap it in the outbox when enabled, start the delivery worker
  6. Configure HTTP router and start with graceful shutdown

COMMAND-LINE FLAGS:
  -port    HTTP server port (overrides SERVER_PORT)
  -db      SQLite database path (overrides DB_PATH)
           Use ":memory:" for an in-memory database

NOTIFY MODES:
  log      write confirmations to the process log (default)
  smtp     send mail through SMTP_* settings
  amqp     publish confirmation events to AMQP_URL

EXAMPLES:
  # Run with file database
  ./server -db="./data/booking.db"

  # In-memory, queue confirmations through the outbox
  OUTBOX_ENABLED=true ./server -db=":memory:"

SEE ALSO:
  - config/config.go: configuration keys
  - api/server.go: Router configuration
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
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/aegisops/booking-engine/api"
	"github.com/aegisops/booking-engine/booking"
	"github.com/aegisops/booking-engine/config"
	"github.com/aegisops/booking-engine/notify"
	"github.com/aegisops/booking-engine/outbox"
	"github.com/aegisops/booking-engine/store/sqlite"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Flags win over env
	port := flag.String("port", cfg.ServerPort, "HTTP server port")
	dbPath := flag.String("db", cfg.DBPath, "SQLite database path")
	flag.Parse()

	// Initialize store
	store, err := sqlite.New(*dbPath)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer store.Close()

	// Build the delivery notifier
	notifier, cleanup, err := buildNotifier(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize notifier (%s): %v", cfg.NotifyMode, err)
	}
	defer cleanup()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// With the outbox enabled the machine only enqueues; the worker
	// owns delivery and retries.
	machineNotifier := notifier
	if cfg.OutboxEnabled {
		machineNotifier = &outbox.Queue{Store: store}
		worker := outbox.NewWorker(store, notifier)
		worker.Interval = cfg.OutboxInterval
		go worker.Run(ctx)
		log.Printf("Outbox worker started (interval %s)", cfg.OutboxInterval)
	}

	machine := booking.NewMachine(store, machineNotifier)
	machine.NotifyTimeout = cfg.NotifyTimeout

	handler := api.NewHandler(store, machine)
	router := api.NewRouter(handler)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%s", *port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("Server starting on http://localhost:%s", *port)
		log.Printf("API available at http://localhost:%s/api", *port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Println("Server stopped")
}

// buildNotifier constructs the configured delivery backend. The cleanup
// func is a no-op for modes without a connection to close.
func buildNotifier(cfg config.Config) (booking.Notifier, func(), error) {
	switch cfg.NotifyMode {
	case "", "log":
		return notify.NewLog(), func() {}, nil
	case "smtp":
		return &notify.SMTP{
			Host:     cfg.SMTPHost,
			Port:     cfg.SMTPPort,
			Username: cfg.SMTPUsername,
			Password: cfg.SMTPPassword,
			From:     cfg.SMTPFrom,
		}, func() {}, nil
	case "amqp":
		pub, err := outbox.NewPublisher(cfg.AMQPURL)
		if err != nil {
			return nil, nil, err
		}
		return pub, pub.Close, nil
	default:
		return nil, nil, fmt.Errorf("unknown notify mode %q", cfg.NotifyMode)
	}
}
