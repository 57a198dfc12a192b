package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/cesargomez89/downpour/internal/app"
	"github.com/cesargomez89/downpour/internal/config"
	"github.com/cesargomez89/downpour/internal/downloader"
	"github.com/cesargomez89/downpour/internal/history"
	httpapp "github.com/cesargomez89/downpour/internal/http"
	"github.com/cesargomez89/downpour/internal/httpclient"
	"github.com/cesargomez89/downpour/internal/logger"
	"github.com/cesargomez89/downpour/internal/queue"
	"github.com/cesargomez89/downpour/internal/storage"
	"github.com/cesargomez89/downpour/internal/store"
	"github.com/cesargomez89/downpour/internal/tagging"
)

func main() {
	cfg := config.Load()

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Configuration error: %v", err)
	}

	// Initialize Logger
	appLogger := logger.New(logger.Config{
		Level:  cfg.LogLevel,
		Format: cfg.LogFormat,
	})

	// Initialize DB
	db, err := store.NewSQLiteDB(cfg.DBPath)
	if err != nil {
		appLogger.Error("Failed to init DB", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	// Saved settings override config defaults.
	settingsRepo := store.NewSettingsRepo(db)
	outputFormat := cfg.OutputFormat
	if saved, err := settingsRepo.Get(store.SettingOutputFormat); err == nil && saved != "" {
		outputFormat = saved
	}
	playlistFolders := cfg.PlaylistFolders
	if saved, err := settingsRepo.Get(store.SettingPlaylistFolders); err == nil && saved != "" {
		playlistFolders = saved == "true"
	}

	// Initialize stores
	tasks := queue.NewStore()
	hist := history.NewStore(db, appLogger)
	if err := hist.Load(); err != nil {
		appLogger.Error("Failed to load history", "error", err)
		os.Exit(1)
	}

	paths := storage.NewResolver(cfg.DownloadsDir, outputFormat, playlistFolders)
	if err := storage.EnsureDir(cfg.DownloadsDir); err != nil {
		appLogger.Error("Failed to create downloads dir", "error", err)
		os.Exit(1)
	}

	engine := app.NewEngine(tasks, hist, paths, appLogger)
	// Reconcile whatever a dirty shutdown left behind.
	engine.RewriteHistory()

	// Initialize Worker Pool
	ytdlp := downloader.NewYTDLP(cfg.YTDLPPath, paths, appLogger)
	thumbs := httpclient.NewClient(nil, 100*time.Millisecond)
	pool := downloader.NewPool(tasks, engine, ytdlp, ytdlp, thumbs, tagging.TagFile, cfg.MaxConcurrent, appLogger)
	pool.Start()

	// Initialize Router
	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	h := httpapp.NewHandler(engine, hist, settingsRepo, downloader.DefaultRegistry(), paths, appLogger)
	h.RegisterRoutes(r)

	// Start Server
	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: r,
	}

	go func() {
		log.Printf("Server listening on %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	// Graceful Shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	pool.Stop()
	engine.Flush()
	if err := hist.Persist(); err != nil {
		appLogger.Error("Failed to persist history on shutdown", "error", err)
	}

	log.Println("Server exiting")
}
