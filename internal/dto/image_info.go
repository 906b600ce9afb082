package dto

// ImageInfo describes one registered image.
type ImageInfo struct {
	ImageID    string `json:"image_id"`
	Filename   string `json:"filename"`
	HasResults bool   `json:"has_results"`
}

// UploadError reports a file of a batch upload that was rejected.
type UploadError struct {
	Filename string `json:"filename"`
	Error    string `json:"error"`
}

// UploadBatchResponse lists the stored and the rejected files of a batch upload.
type UploadBatchResponse struct {
	Images []ImageInfo   `json:"images"`
	Errors []UploadError `json:"errors"`
}
