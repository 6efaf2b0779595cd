package main

import (
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/agentfs/agentfs/internal/infrastructure/config"
	"github.com/agentfs/agentfs/internal/server"
)

func main() {
	// Environment first, flags override.
	cfg := config.LoadOrDefault()

	port := flag.String("port", cfg.Server.Port, "Server port")
	storeBackend := flag.String("store", cfg.Store.Backend, "Store backend (memory|remote)")
	storeAddr := flag.String("store-addr", cfg.Store.Address, "Remote store base URL")
	flag.Parse()

	cfg.Server.Port = *port
	cfg.Store.Backend = *storeBackend
	cfg.Store.Address = *storeAddr

	srv, err := server.NewServer(cfg)
	if err != nil {
		log.Fatalf("Failed to create server: %v", err)
	}

	// Handle graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	errChan := make(chan error, 1)
	go func() {
		if err := srv.Run(); err != nil {
			errChan <- err
		}
	}()

	select {
	case <-sigChan:
		log.Println("Shutting down gracefully...")
		if err := srv.Close(); err != nil {
			log.Printf("Error during shutdown: %v", err)
		}
	case err := <-errChan:
		log.Fatalf("Server error: %v", err)
	}
}
