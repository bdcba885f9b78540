package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/workautomate224-lang/agentverse-sub002/internal/branching"
	"github.com/workautomate224-lang/agentverse-sub002/internal/config"
	"github.com/workautomate224-lang/agentverse-sub002/internal/observability"
	"github.com/workautomate224-lang/agentverse-sub002/internal/policy"
	"github.com/workautomate224-lang/agentverse-sub002/internal/repository"
	"github.com/workautomate224-lang/agentverse-sub002/internal/service"
	transport "github.com/workautomate224-lang/agentverse-sub002/internal/transport/http"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	log.Printf("Starting trust core...")
	log.Printf("External HTTP Port: %d", cfg.HTTPPort)
	log.Printf("Internal HTTP Port: %d", cfg.InternalPort)
	log.Printf("Database: %s", cfg.DatabaseURL)

	// Initialize store
	db, err := repository.NewSQLiteStore(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to initialize store: %v", err)
	}
	defer db.Close()

	// Initialize patch admission policy
	ctx := context.Background()
	admission, err := policy.NewEngine(ctx, policy.DefaultPolicy)
	if err != nil {
		log.Fatalf("Failed to initialize admission policy: %v", err)
	}

	// Initialize branching graph manager
	graph := branching.NewManager(db, admission, cfg.NormalizeTolerance, cfg.NormalizeMaxRetries)

	// Initialize metrics
	registry := prometheus.NewRegistry()
	metrics := observability.New(registry)

	// Initialize service
	svc := service.New(db, cfg, graph, metrics)

	// Create servers
	externalServer := transport.NewExternalServer(svc, registry)
	internalServer := transport.NewInternalServer(svc)

	// Start external server
	go func() {
		addr := fmt.Sprintf(":%d", cfg.HTTPPort)
		if err := externalServer.Start(addr); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start external server: %v", err)
		}
	}()

	// Start internal server
	go func() {
		addr := fmt.Sprintf(":%d", cfg.InternalPort)
		if err := internalServer.Start(addr); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start internal server: %v", err)
		}
	}()

	log.Printf("External API started on port %d", cfg.HTTPPort)
	log.Printf("Internal API started on port %d", cfg.InternalPort)

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down trust core...")

	// Graceful shutdown
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := externalServer.Shutdown(shutdownCtx); err != nil {
		log.Printf("Failed to shutdown external server gracefully: %v", err)
	}
	if err := internalServer.Shutdown(shutdownCtx); err != nil {
		log.Printf("Failed to shutdown internal server gracefully: %v", err)
	}

	log.Println("Trust core stopped")
}
