package ocr

import (
	"context"
	"fmt"
	"image"

	"ocrweb/internal/logger"
	"ocrweb/internal/model"

	"github.com/otiai10/gosseract/v2"
)

// TesseractBackend recognizes text lines with Tesseract. A new client is created
// for every call, so one backend may serve several workers.
type TesseractBackend struct {
	language   string
	preprocess bool
	logger     *logger.Logger
}

// NewTesseractBackend creates a backend for language (e.g. "deu"). With preprocess
// set, images are binarized before recognition.
func NewTesseractBackend(language string, preprocess bool, logger *logger.Logger) *TesseractBackend {
	return &TesseractBackend{language: language, preprocess: preprocess, logger: logger}
}

// Detect returns one record per recognized text line.
func (b *TesseractBackend) Detect(ctx context.Context, imagePath string) ([]model.DetectionRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	client := gosseract.NewClient()
	defer client.Close()

	if b.language != "" {
		if err := client.SetLanguage(b.language); err != nil {
			return nil, fmt.Errorf("failed to set language: %w", err)
		}
	}

	size, err := b.setImage(client, imagePath)
	if err != nil {
		return nil, err
	}

	boxes, err := client.GetBoundingBoxes(gosseract.RIL_TEXTLINE)
	if err != nil {
		return nil, fmt.Errorf("OCR failed: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	regions := make([]Region, 0, len(boxes))
	for _, box := range boxes {
		regions = append(regions, Region{
			Box:        box.Box,
			Text:       box.Word,
			Confidence: box.Confidence / 100.0,
		})
	}

	b.logger.Info("🔎 Recognized %d text lines in %s", len(regions), imagePath)
	return ToRecords(regions, size), nil
}

func (b *TesseractBackend) setImage(client *gosseract.Client, imagePath string) (image.Point, error) {
	if b.preprocess {
		prepared, err := Preprocess(imagePath)
		if err == nil {
			if err := client.SetImageFromBytes(prepared.PNG); err != nil {
				return image.Point{}, fmt.Errorf("failed to set image: %w", err)
			}
			return prepared.Size, nil
		}
		b.logger.Warning("Preprocessing %s failed, using original: %v", imagePath, err)
	}

	if err := client.SetImage(imagePath); err != nil {
		return image.Point{}, fmt.Errorf("failed to set image: %w", err)
	}

	size, err := Size(imagePath)
	if err != nil {
		b.logger.Warning("Could not read size of %s, boxes left unclipped: %v", imagePath, err)
		return image.Point{}, nil
	}
	return size, nil
}
