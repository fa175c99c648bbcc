package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dgallion1/doxnav/internal/api"
	"github.com/dgallion1/doxnav/internal/config"
	"github.com/dgallion1/doxnav/internal/pipeline"
	"github.com/dgallion1/doxnav/internal/store"
)

func main() {
	log := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	cfg := config.Load()
	if err := cfg.LoadSitesFile(); err != nil {
		log.Error("invalid configuration", "error", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		log.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	idx, err := store.Open(cfg.IndexDBPath)
	if err != nil {
		log.Error("open search index", "error", err, "path", cfg.IndexDBPath)
		os.Exit(1)
	}

	// Load sites before serving so lookups never see an empty catalog.
	catalog := pipeline.NewCatalog(cfg.Sites, idx, cfg.LoadWorkers, log)
	if err := catalog.LoadAll(ctx); err != nil {
		log.Error("no sites available", "error", err)
		os.Exit(1)
	}

	orch := pipeline.NewOrchestrator(cfg, catalog, log)
	orch.Start(ctx)

	srv := api.NewServer(orch, log, cfg)

	httpServer := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      srv,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown.
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		log.Info("shutting down...")

		orch.Stop()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		httpServer.Shutdown(shutdownCtx)

		idx.Close()
	}()

	log.Info("starting doxnav", "port", cfg.Port, "sites", len(cfg.Sites), "reload_interval", cfg.ReloadInterval.String())
	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Error("server error", "error", err)
		os.Exit(1)
	}
}
