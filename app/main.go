package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/roboticshub/newsfeed/app/api"
	"github.com/roboticshub/newsfeed/app/cfg"
	"github.com/roboticshub/newsfeed/app/database"
	"github.com/roboticshub/newsfeed/app/feed"
	"github.com/roboticshub/newsfeed/app/ingest"
	"github.com/roboticshub/newsfeed/app/sources"
	"github.com/roboticshub/newsfeed/app/tasks"
	"github.com/roboticshub/newsfeed/app/youtube"
)

func main() {
	appCfg, err := cfg.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Configuration error: %v\n", err)
		os.Exit(1)
	}
	if appCfg == nil {
		// Help was shown, exit gracefully
		return
	}

	logLevel := slog.LevelInfo
	if appCfg.Debug {
		logLevel = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel})))

	slog.Info("Starting Robotics Hub news feed server", "version", appCfg.Version)

	db, err := database.NewConnection(appCfg.DBPath)
	if err != nil {
		slog.Error("Failed to open database", "path", appCfg.DBPath, "error", err)
		os.Exit(1)
	}
	defer db.Close()

	version, dirty, err := database.RunMigrations(db)
	if err != nil {
		slog.Error("Failed to run migrations", "error", err)
		os.Exit(1)
	}
	slog.Info("Database ready", "path", appCfg.DBPath, "schema_version", version, "dirty", dirty)

	sourceRepo := database.NewSourceRepository(db)
	itemRepo := database.NewItemRepository(db)

	// Register configured sources
	registry, err := sources.Load(appCfg.SourcesFile)
	if err != nil {
		slog.Error("Failed to load source registry", "file", appCfg.SourcesFile, "error", err)
		os.Exit(1)
	}

	registered := 0
	for _, source := range registry {
		if err := sourceRepo.UpsertSource(source); err != nil {
			slog.Warn("Failed to register source", "source", source.Name, "error", err)
			continue
		}
		slog.Info("Registered source", "id", source.ID, "name", source.Name,
			"type", source.Type, "program", source.Program, "enabled", source.Enabled)
		registered++
	}
	slog.Info("Source registration complete", "registered", registered, "configured", len(registry))

	// YouTube client is optional: without an API key, YouTube sources are
	// skipped during ingestion rather than failing the sweep.
	var videos ingest.VideoSource
	if appCfg.YouTubeAPIKey != "" {
		client, err := youtube.NewClient(context.Background(), appCfg.YouTubeAPIKey)
		if err != nil {
			slog.Error("Failed to initialize YouTube client", "error", err)
			os.Exit(1)
		}
		videos = client
		slog.Info("YouTube client initialized")
	} else {
		slog.Info("YouTube API key not set, YouTube sources will be skipped")
	}

	ingestor := ingest.NewIngestor(
		&http.Client{},
		feed.NewParser(),
		feed.NewContentExtractor(),
		videos,
		sourceRepo,
		itemRepo,
		appCfg.UserAgent,
		time.Duration(appCfg.FetchTimeout)*time.Second,
	)

	scheduler := tasks.NewScheduler(ingestor, time.Duration(appCfg.IngestInterval)*time.Second)
	scheduler.Start()
	defer scheduler.Stop()

	apiHandler := api.NewHandler(sourceRepo, itemRepo, ingestor)
	server := api.NewServer(apiHandler, appCfg.APIAccessKey, appCfg.Version)

	httpServer := &http.Server{
		Addr:         ":" + appCfg.Port,
		Handler:      server,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	serverErrChan := make(chan error, 1)
	go func() {
		slog.Info("HTTP server listening", "port", appCfg.Port, "base_url", appCfg.BaseUrl)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErrChan <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		slog.Info("Received signal", "signal", sig.String())
	case err := <-serverErrChan:
		slog.Error("Server error", "error", err)
	}

	slog.Info("Shutting down gracefully")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("HTTP server shutdown error", "error", err)
	} else {
		slog.Info("HTTP server stopped")
	}
}
