// Package preview renders the image region of a result entry.
package preview

import (
	"fmt"
	"image"
	"io"

	"ocrweb/internal/model"

	"github.com/disintegration/imaging"
)

// DefaultPadding is the margin in pixels added around a box.
const DefaultPadding = 4

// Crop writes the region of the image at path covered by box, grown by padding
// on every side, to w as JPEG. The region is clamped to the image.
func Crop(w io.Writer, path string, box model.BBox, padding int) error {
	img, err := imaging.Open(path, imaging.AutoOrientation(true))
	if err != nil {
		return fmt.Errorf("failed to open image: %w", err)
	}

	rect, err := Region(img.Bounds(), box, padding)
	if err != nil {
		return err
	}

	cropped := imaging.Crop(img, rect)
	if err := imaging.Encode(w, cropped, imaging.JPEG, imaging.JPEGQuality(90)); err != nil {
		return fmt.Errorf("failed to encode preview: %w", err)
	}
	return nil
}

// Region converts an inclusive box into the padded rectangle to crop. Boxes
// entirely outside bounds fail with model.ErrInvalidInput.
func Region(bounds image.Rectangle, box model.BBox, padding int) (image.Rectangle, error) {
	box = box.Normalize()
	padding = max(0, padding)

	rect := image.Rect(box.X1-padding, box.Y1-padding, box.X2+1+padding, box.Y2+1+padding).Intersect(bounds)
	if rect.Empty() {
		return image.Rectangle{}, fmt.Errorf("box %v outside image %v: %w", box.List(), bounds.Size(), model.ErrInvalidInput)
	}
	return rect, nil
}
