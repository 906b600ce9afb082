package dto

import "ocrweb/internal/model"

// EntryView is a result entry together with its position and review flag.
type EntryView struct {
	Index int `json:"index"`
	model.ResultEntry
	LowConfidence bool `json:"low_confidence"`
}

// ResultsSummary counts the entries of a result set.
type ResultsSummary struct {
	Total         int `json:"total"`
	Active        int `json:"active"`
	Removed       int `json:"removed"`
	LowConfidence int `json:"low_confidence"`
}

type ResultsData struct {
	ImageID       string         `json:"image_id"`
	ImageFilename string         `json:"image_filename"`
	Items         []EntryView    `json:"items"`
	Summary       ResultsSummary `json:"summary"`
}

// NewResultsData builds the response for set, flagging active entries whose
// confidence lies below threshold.
func NewResultsData(imageID string, set *model.ResultSet, threshold float64) ResultsData {
	data := ResultsData{
		ImageID:       imageID,
		ImageFilename: set.ImageFilename,
		Items:         make([]EntryView, 0, len(set.Items)),
	}

	for i, e := range set.Items {
		low := e.IsActive() && e.IsLowConfidence(threshold)
		data.Items = append(data.Items, EntryView{Index: i, ResultEntry: e, LowConfidence: low})

		data.Summary.Total++
		if e.IsActive() {
			data.Summary.Active++
		} else {
			data.Summary.Removed++
		}
		if low {
			data.Summary.LowConfidence++
		}
	}
	return data
}
