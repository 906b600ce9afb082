package handler

import (
	"fmt"
	"io"
	"mime/multipart"
	"net/http"

	"ocrweb/internal/config"
	"ocrweb/internal/dto"
	"ocrweb/internal/logger"
	"ocrweb/internal/model"
	"ocrweb/internal/service/results"
	"ocrweb/internal/service/storage"
)

// ListImagesHandler returns every registered image and whether it has results.
func ListImagesHandler(index *storage.ImageIndex, store *results.Store, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		withResults := make(map[string]bool)
		ids, err := store.ImageIDs()
		if err != nil {
			logger.Error("Error listing results: %v", err)
		}
		for _, id := range ids {
			withResults[id] = true
		}

		images := index.List()
		data := dto.ImagesData{Images: make([]dto.ImageInfo, 0, len(images)), Length: len(images)}
		for _, img := range images {
			data.Images = append(data.Images, dto.ImageInfo{
				ImageID:    img.ID,
				Filename:   img.StoredFilename,
				HasResults: withResults[img.ID],
			})
		}

		writeJSON(w, http.StatusOK, data, logger)
	}
}

// UploadImageHandler stores the multipart field "file" under a new image id.
func UploadImageHandler(index *storage.ImageIndex, cfg *config.Config, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := parseUpload(w, r, cfg.MaxUploadSize); err != nil {
			writeError(w, err, logger)
			return
		}

		headers := r.MultipartForm.File["file"]
		if len(headers) == 0 {
			writeError(w, fmt.Errorf("file field is required: %w", model.ErrInvalidInput), logger)
			return
		}

		img, err := storeUpload(index, headers[0])
		if err != nil {
			writeError(w, err, logger)
			return
		}

		writeJSON(w, http.StatusCreated, dto.ImageInfo{ImageID: img.ID, Filename: img.StoredFilename}, logger)
	}
}

// UploadBatchHandler stores every multipart field "files". Rejected files are
// reported without failing the others.
func UploadBatchHandler(index *storage.ImageIndex, cfg *config.Config, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := parseUpload(w, r, cfg.MaxUploadSize); err != nil {
			writeError(w, err, logger)
			return
		}

		headers := r.MultipartForm.File["files"]
		if len(headers) == 0 {
			writeError(w, fmt.Errorf("files field is required: %w", model.ErrInvalidInput), logger)
			return
		}

		resp := dto.UploadBatchResponse{Images: []dto.ImageInfo{}, Errors: []dto.UploadError{}}
		for _, header := range headers {
			img, err := storeUpload(index, header)
			if err != nil {
				logger.Warning("Rejected upload %s: %v", header.Filename, err)
				resp.Errors = append(resp.Errors, dto.UploadError{Filename: header.Filename, Error: err.Error()})
				continue
			}
			resp.Images = append(resp.Images, dto.ImageInfo{ImageID: img.ID, Filename: img.StoredFilename})
		}

		status := http.StatusCreated
		if len(resp.Images) == 0 {
			status = http.StatusBadRequest
		}
		writeJSON(w, status, resp, logger)
	}
}

// ImageFileHandler serves the stored file of image_id.
func ImageFileHandler(index *storage.ImageIndex, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		imageID, err := imageIDParam(r)
		if err != nil {
			writeError(w, err, logger)
			return
		}
		stored, err := index.Resolve(imageID)
		if err != nil {
			writeError(w, err, logger)
			return
		}
		http.ServeFile(w, r, index.Path(stored))
	}
}

// DeleteImageHandler removes an image; with results=true its results go too.
func DeleteImageHandler(index *storage.ImageIndex, store *results.Store, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		imageID, err := imageIDParam(r)
		if err != nil {
			writeError(w, err, logger)
			return
		}

		var purger storage.ResultPurger
		if r.URL.Query().Get("results") == "true" {
			purger = store
		}
		if err := index.Delete(imageID, purger); err != nil {
			writeError(w, err, logger)
			return
		}

		writeJSON(w, http.StatusOK, map[string]string{"status": "deleted", "image_id": imageID}, logger)
	}
}

func parseUpload(w http.ResponseWriter, r *http.Request, limit int64) error {
	r.Body = http.MaxBytesReader(w, r.Body, limit)
	if err := r.ParseMultipartForm(limit); err != nil {
		return fmt.Errorf("invalid upload: %v: %w", err, model.ErrInvalidInput)
	}
	return nil
}

func storeUpload(index *storage.ImageIndex, header *multipart.FileHeader) (model.Image, error) {
	f, err := header.Open()
	if err != nil {
		return model.Image{}, fmt.Errorf("failed to open upload: %w", err)
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return model.Image{}, fmt.Errorf("failed to read upload: %w", err)
	}
	return index.Add(header.Filename, data)
}
