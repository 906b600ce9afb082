package handler

import (
	"encoding/json"
	"fmt"
	"net/http"

	"ocrweb/internal/dto"
	"ocrweb/internal/logger"
	"ocrweb/internal/model"
	"ocrweb/internal/service"
)

// SubmitJobHandler queues a detection job for image_id.
func SubmitJobHandler(manager *service.Manager, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		imageID, err := imageIDParam(r)
		if err != nil {
			writeError(w, err, logger)
			return
		}

		job, err := manager.Submit(imageID)
		if err != nil {
			writeError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusAccepted, job, logger)
	}
}

// SubmitBatchHandler queues one job per requested image, or per known image when
// the list is empty. Images that cannot be submitted are reported as skipped.
func SubmitBatchHandler(manager *service.Manager, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req dto.BatchSubmitRequest
		if r.ContentLength != 0 {
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				writeError(w, fmt.Errorf("invalid request body: %v: %w", err, model.ErrInvalidInput), logger)
				return
			}
		}

		resp := dto.BatchSubmitResponse{Jobs: []model.Job{}, Skipped: []dto.SkippedImage{}}
		for _, res := range manager.SubmitBatch(req.ImageIDs) {
			if res.Err != nil {
				resp.Skipped = append(resp.Skipped, dto.SkippedImage{ImageID: res.ImageID, Error: res.Err.Error()})
				continue
			}
			resp.Jobs = append(resp.Jobs, res.Job)
		}

		writeJSON(w, http.StatusAccepted, resp, logger)
	}
}

// JobStatusHandler reports the state of job_id; unknown ids report "unknown".
func JobStatusHandler(manager *service.Manager, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		jobID, err := requiredParam(r, "job_id")
		if err != nil {
			writeError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, manager.Poll(jobID), logger)
	}
}

// ListJobsHandler returns every recorded job.
func ListJobsHandler(manager *service.Manager, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		jobs, err := manager.Jobs()
		if err != nil {
			writeError(w, err, logger)
			return
		}
		if jobs == nil {
			jobs = []model.Job{}
		}
		writeJSON(w, http.StatusOK, dto.JobsData{Jobs: jobs, Length: len(jobs)}, logger)
	}
}
