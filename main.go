package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"qcalab/internal/config"
	"qcalab/internal/container"
)

func main() {
	appConfig, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	appContainer, err := container.New(appConfig)
	if err != nil {
		log.Fatalf("Failed to create application container: %v", err)
	}
	defer appContainer.Shutdown(context.Background())
	logger := appContainer.Logger

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Run storage is optional; without it analyses are not persisted
	if appConfig.Database.URL != "" {
		if err := appContainer.InitWithDatabase(ctx, true); err != nil {
			logger.Error("Failed to initialize database: %v", err)
			os.Exit(1)
		}
	} else {
		logger.Warn("DATABASE_URL not set; runs will not be persisted")
	}

	server := &http.Server{
		Addr:              ":" + appConfig.Server.Port,
		Handler:           appContainer.APIServer().Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Warn("Server shutdown: %v", err)
		}
	}()

	logger.Info("Starting qcalab API on port %s", appConfig.Server.Port)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Server failed: %v", err)
		os.Exit(1)
	}
}
