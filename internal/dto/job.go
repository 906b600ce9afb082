package dto

import "ocrweb/internal/model"

// BatchSubmitRequest selects the images of a batch; an empty list means all.
type BatchSubmitRequest struct {
	ImageIDs []string `json:"image_ids"`
}

// SkippedImage is an image a batch could not submit.
type SkippedImage struct {
	ImageID string `json:"image_id"`
	Error   string `json:"error"`
}

type BatchSubmitResponse struct {
	Jobs    []model.Job    `json:"jobs"`
	Skipped []SkippedImage `json:"skipped"`
}

type JobsData struct {
	Jobs   []model.Job `json:"jobs"`
	Length int         `json:"length"`
}
