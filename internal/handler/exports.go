package handler

import (
	"bytes"
	"fmt"
	"net/http"

	"ocrweb/internal/logger"
	"ocrweb/internal/service/export"
	"ocrweb/internal/service/results"
)

// ExportArchiveHandler downloads all tabular result files as one zip archive.
func ExportArchiveHandler(store *results.Store, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var buf bytes.Buffer
		count, err := export.WriteArchive(&buf, store.Dir())
		if err != nil {
			writeError(w, err, logger)
			return
		}

		logger.Info("📦 Exported %d tabular file(s)", count)
		w.Header().Set("Content-Type", "application/zip")
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", export.ArchiveName))
		w.Write(buf.Bytes())
	}
}
