package route

import (
	"net/http"

	"ocrweb/internal/config"
	"ocrweb/internal/handler"
	"ocrweb/internal/logger"
	"ocrweb/internal/middleware"
	"ocrweb/internal/service"
	"ocrweb/internal/service/results"
	"ocrweb/internal/service/storage"
	"ocrweb/internal/service/websocket"
)

// Dependencies bundles the services the routes are served by.
type Dependencies struct {
	Config  *config.Config
	Logger  *logger.Logger
	Images  *storage.ImageIndex
	Results *results.Store
	Manager *service.Manager
	Hub     *websocket.HubService
}

// SetupRoutes registers health, API, log and static routes and wraps the mux
// with request logging and panic recovery.
func SetupRoutes(deps Dependencies) http.Handler {
	mux := http.NewServeMux()
	cfg, log := deps.Config, deps.Logger

	mux.HandleFunc("GET /health", handler.HealthHandler(log))

	// Images
	mux.HandleFunc("GET /api/images", handler.ListImagesHandler(deps.Images, deps.Results, log))
	mux.HandleFunc("POST /api/images/upload", handler.UploadImageHandler(deps.Images, cfg, log))
	mux.HandleFunc("POST /api/images/upload/batch", handler.UploadBatchHandler(deps.Images, cfg, log))
	mux.HandleFunc("GET /api/images/file", handler.ImageFileHandler(deps.Images, log))
	mux.HandleFunc("POST /api/images/delete", handler.DeleteImageHandler(deps.Images, deps.Results, log))

	// Jobs
	mux.HandleFunc("POST /api/jobs/submit", handler.SubmitJobHandler(deps.Manager, log))
	mux.HandleFunc("POST /api/jobs/batch", handler.SubmitBatchHandler(deps.Manager, log))
	mux.HandleFunc("GET /api/jobs/status", handler.JobStatusHandler(deps.Manager, log))
	mux.HandleFunc("GET /api/jobs", handler.ListJobsHandler(deps.Manager, log))
	if deps.Hub != nil {
		mux.HandleFunc("GET /api/jobs/ws", handler.JobEventsHandler(deps.Hub, log))
	}

	// Results
	mux.HandleFunc("GET /api/results", handler.GetResultsHandler(deps.Results, log))
	mux.HandleFunc("POST /api/results/patch", handler.PatchResultHandler(deps.Results, log))
	mux.HandleFunc("POST /api/results/remove", handler.RemoveResultHandler(deps.Results, log))
	mux.HandleFunc("POST /api/results/clean", handler.CleanResultsHandler(deps.Results, log))
	mux.HandleFunc("GET /api/results/export.csv", handler.ExportCSVHandler(deps.Results, log))
	mux.HandleFunc("GET /api/results/crop", handler.CropPreviewHandler(deps.Results, deps.Images, log))
	mux.HandleFunc("GET /api/exports/results.zip", handler.ExportArchiveHandler(deps.Results, log))

	// Log endpoints
	mux.HandleFunc("GET /logs/{level}", handler.ShowLogsHandler(log))
	mux.HandleFunc("POST /logs/{level}/clear", handler.ClearLogsHandler(log))

	// Static UI
	mux.Handle("GET /", http.FileServer(http.Dir(cfg.StaticDirectory)))

	// Apply middleware
	return middleware.RecoverMiddleware(log, middleware.LoggingMiddleware(log, mux))
}
