// Package ocr adapts text-recognition engines to detection records.
package ocr

import (
	"context"
	"image"
	"strings"

	"ocrweb/internal/model"
)

// Backend maps an image file to the text regions found in it.
type Backend interface {
	Detect(ctx context.Context, imagePath string) ([]model.DetectionRecord, error)
}

// BackendFunc adapts a plain function to Backend.
type BackendFunc func(ctx context.Context, imagePath string) ([]model.DetectionRecord, error)

// Detect calls f.
func (f BackendFunc) Detect(ctx context.Context, imagePath string) ([]model.DetectionRecord, error) {
	return f(ctx, imagePath)
}

// Region is one raw region reported by an engine. Confidence may be a fraction or
// a percentage.
type Region struct {
	Box        image.Rectangle
	Text       string
	Confidence float64
}

// ToRecords converts raw regions into detection records. Boxes are normalized and,
// when size is known, clipped to the image. Blank text becomes an absent name and
// an unusable confidence becomes an absent confidence.
func ToRecords(regions []Region, size image.Point) []model.DetectionRecord {
	records := make([]model.DetectionRecord, 0, len(regions))
	for _, r := range regions {
		box := model.NewBBox(r.Box.Min.X, r.Box.Min.Y, r.Box.Max.X, r.Box.Max.Y)
		if size.X > 0 && size.Y > 0 {
			box = box.Clip(size.X, size.Y)
		}

		var text *string
		if t := strings.TrimSpace(r.Text); t != "" {
			text = model.StringPtr(t)
		}

		records = append(records, model.DetectionRecord{
			BBox:       box,
			Text:       text,
			Confidence: model.ConfidencePtr(r.Confidence),
		})
	}
	return records
}
