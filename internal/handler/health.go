package handler

import (
	"net/http"

	"ocrweb/internal/logger"
)

// HealthHandler reports that the server is up.
func HealthHandler(logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"}, logger)
	}
}
