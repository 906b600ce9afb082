package handler

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"ocrweb/internal/dto"
	"ocrweb/internal/logger"
	"ocrweb/internal/model"
	"ocrweb/internal/service/preview"
	"ocrweb/internal/service/results"
	"ocrweb/internal/service/storage"
)

// GetResultsHandler returns the result set of image_id.
func GetResultsHandler(store *results.Store, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		imageID, err := imageIDParam(r)
		if err != nil {
			writeError(w, err, logger)
			return
		}

		set, err := store.Load(imageID)
		if err != nil {
			writeError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, dto.NewResultsData(imageID, set, model.DefaultLowConfidence), logger)
	}
}

// PatchResultHandler applies a JSON {name?, status?} body to one entry.
func PatchResultHandler(store *results.Store, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		imageID, err := imageIDParam(r)
		if err != nil {
			writeError(w, err, logger)
			return
		}
		index, err := indexParam(r)
		if err != nil {
			writeError(w, err, logger)
			return
		}

		var patch model.EntryPatch
		if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
			writeError(w, fmt.Errorf("invalid request body: %v: %w", err, model.ErrInvalidInput), logger)
			return
		}

		entry, err := store.Patch(imageID, index, patch)
		if err != nil {
			writeError(w, err, logger)
			return
		}

		logger.Info("Patched entry %d of %s", index, imageID)
		writeJSON(w, http.StatusOK, dto.EntryView{
			Index:         index,
			ResultEntry:   entry,
			LowConfidence: entry.IsActive() && entry.IsLowConfidence(model.DefaultLowConfidence),
		}, logger)
	}
}

// RemoveResultHandler marks one entry as removed.
func RemoveResultHandler(store *results.Store, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		imageID, err := imageIDParam(r)
		if err != nil {
			writeError(w, err, logger)
			return
		}
		index, err := indexParam(r)
		if err != nil {
			writeError(w, err, logger)
			return
		}

		if err := store.Remove(imageID, index); err != nil {
			writeError(w, err, logger)
			return
		}

		logger.Info("Removed entry %d of %s", index, imageID)
		writeJSON(w, http.StatusOK, map[string]any{"status": "removed", "image_id": imageID, "index": index}, logger)
	}
}

// CleanResultsHandler replaces the entries of image_id with their cleaned form.
func CleanResultsHandler(store *results.Store, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		imageID, err := imageIDParam(r)
		if err != nil {
			writeError(w, err, logger)
			return
		}

		set, err := store.Clean(imageID)
		if err != nil {
			writeError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, dto.NewResultsData(imageID, set, model.DefaultLowConfidence), logger)
	}
}

// ExportCSVHandler regenerates and downloads the tabular file of image_id.
func ExportCSVHandler(store *results.Store, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		imageID, err := imageIDParam(r)
		if err != nil {
			writeError(w, err, logger)
			return
		}

		name, data, err := store.ExportTabular(imageID)
		if err != nil {
			writeError(w, err, logger)
			return
		}

		w.Header().Set("Content-Type", "text/csv; charset=utf-8")
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
		w.Header().Set("Content-Length", strconv.Itoa(len(data)))
		w.Write(data)
	}
}

// CropPreviewHandler renders the image region of entry index as JPEG.
func CropPreviewHandler(store *results.Store, index *storage.ImageIndex, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		imageID, err := imageIDParam(r)
		if err != nil {
			writeError(w, err, logger)
			return
		}
		entryIndex, err := indexParam(r)
		if err != nil {
			writeError(w, err, logger)
			return
		}

		set, err := store.Load(imageID)
		if err != nil {
			writeError(w, err, logger)
			return
		}
		if entryIndex < 0 || entryIndex >= len(set.Items) {
			writeError(w, fmt.Errorf("entry %d: %w", entryIndex, model.ErrOutOfRange), logger)
			return
		}

		stored, err := index.Resolve(imageID)
		if err != nil {
			writeError(w, err, logger)
			return
		}

		var buf bytes.Buffer
		if err := preview.Crop(&buf, index.Path(stored), set.Items[entryIndex].BBox, preview.DefaultPadding); err != nil {
			writeError(w, err, logger)
			return
		}

		w.Header().Set("Content-Type", "image/jpeg")
		w.Header().Set("Cache-Control", "no-cache")
		w.Write(buf.Bytes())
	}
}
