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

	"luca-backend/internal/config"
	"luca-backend/internal/gateway"
	"luca-backend/internal/handler"
	"luca-backend/internal/imaging"
	"luca-backend/internal/service"
	"luca-backend/internal/storage"
	"luca-backend/pkg/logger"

	"github.com/gin-gonic/gin"
)

func main() {
	var configPath string
	flag.StringVar(&configPath, "config", "./configs/config.yaml", "path to the YAML config file")
	flag.Parse()

	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	if err := logger.Init(cfg.Log.Level, cfg.Log.Format); err != nil {
		log.Fatalf("Failed to init logger: %v", err)
	}

	gw, err := gateway.New(cfg.Model)
	if err != nil {
		logger.Fatalf("Failed to create AI gateway: %v", err)
	}
	if cfg.Model.APIKey == "" {
		logger.Warn("No API key configured; conversations will report a configuration error")
	}

	registry := service.NewRegistry(gw, imaging.NewEncoder(cfg.Conversation.MaxImageBytes), cfg)
	if err := registry.StartCleanup(); err != nil {
		logger.Fatalf("Failed to schedule conversation cleanup: %v", err)
	}

	prefs := storage.New(cfg.Storage)

	var archive handler.Archiver
	if cfg.Archive.Enabled {
		a, err := storage.NewArchive(cfg.Archive)
		if err != nil {
			logger.Fatalf("Failed to create export archive: %v", err)
		}
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		err = a.Init(ctx)
		cancel()
		if err != nil {
			logger.Errorf("Export archive unavailable, continuing without it: %v", err)
		} else {
			archive = a
		}
	}

	chatHandler := handler.NewChatHandler(registry, archive, cfg.Conversation.MaxImageBytes)
	prefsHandler := handler.NewPreferencesHandler(prefs)

	gin.SetMode(gin.ReleaseMode)
	router := handler.NewRouter(cfg, chatHandler, prefsHandler)

	server := &http.Server{
		Addr:           fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:        router,
		ReadTimeout:    cfg.Server.ReadTimeout,
		WriteTimeout:   cfg.Server.WriteTimeout,
		MaxHeaderBytes: cfg.Server.MaxHeaderBytes,
	}

	go func() {
		logger.Infof("Server listening on port %d (provider=%s)", cfg.Server.Port, cfg.Model.Provider)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatalf("Server failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		logger.Errorf("Server shutdown failed: %v", err)
	}
	registry.Close()
	if err := prefs.Close(); err != nil {
		logger.Errorf("Failed to close storage: %v", err)
	}
	logger.Info("Server stopped")
}
