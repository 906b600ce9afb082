package ocr

import (
	"fmt"
	"image"

	"gocv.io/x/gocv"
)

// Prepared is an image ready for recognition.
type Prepared struct {
	PNG  []byte
	Size image.Point
}

// Preprocess reads the image at path, converts it to grayscale and binarizes it
// with Otsu's threshold. The result is PNG encoded.
func Preprocess(path string) (*Prepared, error) {
	mat := gocv.IMRead(path, gocv.IMReadColor)
	if mat.Empty() {
		return nil, fmt.Errorf("failed to decode image %s", path)
	}
	defer mat.Close()

	gray := gocv.NewMat()
	defer gray.Close()
	if err := gocv.CvtColor(mat, &gray, gocv.ColorBGRToGray); err != nil {
		return nil, fmt.Errorf("failed to convert image to grayscale: %v", err)
	}

	binary := gocv.NewMat()
	defer binary.Close()
	gocv.Threshold(gray, &binary, 0, 255, gocv.ThresholdBinary|gocv.ThresholdOtsu)

	buf, err := gocv.IMEncode(gocv.PNGFileExt, binary)
	if err != nil {
		return nil, fmt.Errorf("failed to encode image: %v", err)
	}
	defer buf.Close()

	data := make([]byte, len(buf.GetBytes()))
	copy(data, buf.GetBytes())

	return &Prepared{PNG: data, Size: image.Pt(mat.Cols(), mat.Rows())}, nil
}

// Size returns the pixel dimensions of the image at path.
func Size(path string) (image.Point, error) {
	mat := gocv.IMRead(path, gocv.IMReadUnchanged)
	if mat.Empty() {
		return image.Point{}, fmt.Errorf("failed to decode image %s", path)
	}
	defer mat.Close()
	return image.Pt(mat.Cols(), mat.Rows()), nil
}
