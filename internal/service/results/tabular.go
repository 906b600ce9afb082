package results

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"strings"

	"ocrweb/internal/model"
)

// Header is the column layout of a tabular result file.
var Header = []string{"bbox", "Namen", "Confidence Level", "Bildname"}

// WriteTabular writes the active entries with a header row. Confidence is written
// as a rounded percentage, e.g. "87%", or left empty when absent.
func WriteTabular(w io.Writer, entries []model.ResultEntry, filename string) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Header); err != nil {
		return err
	}

	for _, e := range entries {
		if !e.IsActive() {
			continue
		}
		bbox, err := json.Marshal(e.BBox.List())
		if err != nil {
			return err
		}
		if err := cw.Write([]string{string(bbox), e.Text(), formatConfidence(e.Confidence), filename}); err != nil {
			return err
		}
	}

	cw.Flush()
	return cw.Error()
}

// ReadTabular parses a tabular result file. Rows whose bbox cell cannot be parsed
// are skipped. The returned filename is the first non-empty Bildname cell.
func ReadTabular(r io.Reader) ([]model.ResultEntry, string, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, "", nil
	}
	if err != nil {
		return nil, "", fmt.Errorf("failed to read header: %w", err)
	}

	cols := columnIndex(header)
	bboxCol := column(cols, "bbox")
	if bboxCol < 0 {
		return nil, "", fmt.Errorf("missing bbox column: %w", model.ErrInvalidInput)
	}

	var (
		entries  []model.ResultEntry
		filename string
	)
	for {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, "", fmt.Errorf("failed to read row: %w", err)
		}

		bbox, ok := ParseBBoxCell(cell(row, bboxCol))
		if !ok {
			continue
		}

		e := model.ResultEntry{BBox: bbox, Status: model.StatusActive}
		if i := column(cols, "namen"); i >= 0 && i < len(row) && row[i] != "" {
			e.Name = model.StringPtr(row[i])
		}
		if conf := cell(row, column(cols, "confidence level")); conf != "" {
			e.Confidence = model.ConfidencePtr(conf)
		}
		if filename == "" {
			filename = cell(row, column(cols, "bildname"))
		}
		entries = append(entries, e)
	}

	return entries, filename, nil
}

// ParseBBoxCell accepts an xyxy list "[x1, y1, x2, y2]", a 4-point quad
// "[[x0,y0],[x1,y1],[x2,y2],[x3,y3]]" or an object {"x1":..,"y1":..,"x2":..,"y2":..}.
func ParseBBoxCell(raw string) (model.BBox, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return model.BBox{}, false
	}

	var list []json.RawMessage
	if err := json.Unmarshal([]byte(raw), &list); err == nil {
		if len(list) != 4 {
			return model.BBox{}, false
		}

		var xyxy [4]float64
		flat := true
		for i, v := range list {
			if err := json.Unmarshal(v, &xyxy[i]); err != nil {
				flat = false
				break
			}
		}
		if flat {
			return model.NewBBox(roundInt(xyxy[0]), roundInt(xyxy[1]), roundInt(xyxy[2]), roundInt(xyxy[3])), true
		}

		var quad [4][2]float64
		for i, v := range list {
			var pt []float64
			if err := json.Unmarshal(v, &pt); err != nil || len(pt) != 2 {
				return model.BBox{}, false
			}
			quad[i] = [2]float64{pt[0], pt[1]}
		}
		return model.BBoxFromQuad(quad), true
	}

	var obj map[string]float64
	if err := json.Unmarshal([]byte(raw), &obj); err == nil {
		x1, ok1 := obj["x1"]
		y1, ok2 := obj["y1"]
		x2, ok3 := obj["x2"]
		y2, ok4 := obj["y2"]
		if ok1 && ok2 && ok3 && ok4 {
			return model.NewBBox(roundInt(x1), roundInt(y1), roundInt(x2), roundInt(y2)), true
		}
	}
	return model.BBox{}, false
}

func formatConfidence(c *float64) string {
	if c == nil {
		return ""
	}
	return fmt.Sprintf("%d%%", int(math.Round(*c*100)))
}

func roundInt(f float64) int {
	return int(math.Round(f))
}

func columnIndex(header []string) map[string]int {
	cols := make(map[string]int, len(header))
	for i, h := range header {
		h = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))
		if _, dup := cols[h]; !dup {
			cols[h] = i
		}
	}
	return cols
}

// column returns the index of a header name, or -1.
func column(cols map[string]int, name string) int {
	if i, ok := cols[name]; ok {
		return i
	}
	return -1
}

func cell(row []string, i int) string {
	if i < 0 || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}
