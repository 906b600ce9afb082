package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"ocrweb/internal/config"
	"ocrweb/internal/logger"
	"ocrweb/internal/repository"
	"ocrweb/internal/repository/memory"
	"ocrweb/internal/repository/sqlite"
	"ocrweb/internal/route"
	"ocrweb/internal/service"
	"ocrweb/internal/service/ocr"
	"ocrweb/internal/service/results"
	"ocrweb/internal/service/storage"
	"ocrweb/internal/service/websocket"
)

const shutdownTimeout = 10 * time.Second

type App struct {
	config     *config.Config
	logger     *logger.Logger
	db         *sqlite.DB
	images     *storage.ImageIndex
	results    *results.Store
	hubService *websocket.HubService
	manager    *service.Manager
}

// NewApp wires every service from cfg using the Tesseract detection backend.
func NewApp(cfg *config.Config) (*App, error) {
	log := logger.NewLogger(cfg)
	return newApp(cfg, log, ocr.NewTesseractBackend(cfg.OCRLanguage, cfg.OCRPreprocess, log))
}

func newApp(cfg *config.Config, log *logger.Logger, backend ocr.Backend) (*App, error) {
	local, err := storage.NewLocalStorage(cfg.ImageDirectory)
	if err != nil {
		return nil, err
	}
	images, err := storage.NewImageIndex(local, log)
	if err != nil {
		return nil, err
	}
	store, err := results.NewStore(cfg.ResultsDirectory, images, log)
	if err != nil {
		return nil, err
	}

	a := &App{config: cfg, logger: log, images: images, results: store}

	jobs, err := a.jobRepository()
	if err != nil {
		return nil, err
	}

	a.hubService = websocket.NewHubService(log)
	a.manager = service.NewManager(images, store, backend, jobs, a.hubService, cfg, log)
	return a, nil
}

func (a *App) jobRepository() (repository.JobRepository, error) {
	switch a.config.JobStore {
	case "sqlite":
		if err := os.MkdirAll(a.config.DataDirectory, 0755); err != nil {
			return nil, fmt.Errorf("failed to create data directory: %w", err)
		}
		db, err := sqlite.New(a.config.DatabasePath)
		if err != nil {
			return nil, err
		}
		a.db = db
		a.logger.Info("Job store: sqlite (%s)", a.config.DatabasePath)
		return sqlite.NewJobRepository(db), nil
	case "memory", "":
		a.logger.Info("Job store: memory")
		return memory.NewJobRepository(), nil
	default:
		return nil, fmt.Errorf("unknown JOB_STORE %q", a.config.JobStore)
	}
}

// Handler returns the HTTP handler of the application.
func (a *App) Handler() http.Handler {
	return route.SetupRoutes(route.Dependencies{
		Config:  a.config,
		Logger:  a.logger,
		Images:  a.images,
		Results: a.results,
		Manager: a.manager,
		Hub:     a.hubService,
	})
}

// Run serves HTTP until SIGINT or SIGTERM, then drains the job queue.
func (a *App) Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go a.hubService.Run(ctx)

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", a.config.Port),
		Handler:           a.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	fmt.Printf("🚀 OCR Server\n")
	fmt.Printf("📍 URL: http://localhost:%d\n", a.config.Port)
	fmt.Printf("📁 Images: %s\n", a.config.ImageDirectory)
	fmt.Printf("📄 Results: %s\n", a.config.ResultsDirectory)
	fmt.Printf("🔤 OCR language: %s\n", a.config.OCRLanguage)

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.ListenAndServe()
	}()

	var serveErr error
	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			serveErr = err
		}
	case <-ctx.Done():
		a.logger.Info("Shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		if err := server.Shutdown(shutdownCtx); err != nil {
			a.logger.Error("HTTP shutdown failed: %v", err)
		}
		cancel()
	}

	a.Close()
	return serveErr
}

// Close stops the workers after the queue is drained and releases resources.
func (a *App) Close() {
	a.manager.Stop()
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			a.logger.Error("Failed to close database: %v", err)
		}
	}
	a.logger.Close()
}
