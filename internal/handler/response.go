package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"ocrweb/internal/dto"
	"ocrweb/internal/logger"
	"ocrweb/internal/model"
)

// writeJSON encodes v as the response body.
func writeJSON(w http.ResponseWriter, status int, v any, logger *logger.Logger) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Error("Error encoding JSON response: %v", err)
	}
}

// writeError maps err onto an HTTP status: not-found and out-of-range become 404,
// invalid input 400, anything else 500.
func writeError(w http.ResponseWriter, err error, logger *logger.Logger) {
	status := statusFor(err)
	message := err.Error()
	if status == http.StatusInternalServerError {
		logger.Error("Request failed: %v", err)
		message = "Internal Server Error"
	}
	writeJSON(w, status, dto.ErrorResponse{Error: message}, logger)
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, model.ErrNotFound), errors.Is(err, model.ErrOutOfRange):
		return http.StatusNotFound
	case errors.Is(err, model.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, model.ErrQueueClosed):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// requiredParam returns a non-empty query parameter.
func requiredParam(r *http.Request, name string) (string, error) {
	v := r.URL.Query().Get(name)
	if v == "" {
		return "", fmt.Errorf("%s parameter is required: %w", name, model.ErrInvalidInput)
	}
	return v, nil
}

// imageIDParam returns the "image_id" query parameter after validating it.
func imageIDParam(r *http.Request) (string, error) {
	imageID, err := requiredParam(r, "image_id")
	if err != nil {
		return "", err
	}
	if err := model.ValidateImageID(imageID); err != nil {
		return "", err
	}
	return imageID, nil
}

// indexParam parses the "index" query parameter. Negative values are passed on
// and reported as out of range by the store.
func indexParam(r *http.Request) (int, error) {
	raw, err := requiredParam(r, "index")
	if err != nil {
		return 0, err
	}
	index, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("index %q: %w", raw, model.ErrInvalidInput)
	}
	return index, nil
}
