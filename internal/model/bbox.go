package model

import (
	"encoding/json"
	"math"
)

// BBox is an axis-aligned bounding box in pixel coordinates, (X1,Y1) top-left and
// (X2,Y2) bottom-right. Values are inclusive; zero-area boxes are legal.
type BBox struct {
	X1 int `json:"x1"`
	Y1 int `json:"y1"`
	X2 int `json:"x2"`
	Y2 int `json:"y2"`
}

// NewBBox builds a normalized box, swapping inverted coordinates.
func NewBBox(x1, y1, x2, y2 int) BBox {
	return BBox{X1: x1, Y1: y1, X2: x2, Y2: y2}.Normalize()
}

// BBoxFromQuad builds the enclosing box of a 4-point polygon such as
// [[x0,y0],[x1,y1],[x2,y2],[x3,y3]].
func BBoxFromQuad(quad [4][2]float64) BBox {
	b := BBox{X1: math.MaxInt, Y1: math.MaxInt, X2: math.MinInt, Y2: math.MinInt}
	for _, p := range quad {
		x := int(math.Round(p[0]))
		y := int(math.Round(p[1]))
		b.X1 = min(b.X1, x)
		b.Y1 = min(b.Y1, y)
		b.X2 = max(b.X2, x)
		b.Y2 = max(b.Y2, y)
	}
	return b
}

// Normalize returns a copy with X1<=X2 and Y1<=Y2.
func (b BBox) Normalize() BBox {
	if b.X1 > b.X2 {
		b.X1, b.X2 = b.X2, b.X1
	}
	if b.Y1 > b.Y2 {
		b.Y1, b.Y2 = b.Y2, b.Y1
	}
	return b
}

func (b BBox) Width() int {
	return max(0, b.X2-b.X1)
}

func (b BBox) Height() int {
	return max(0, b.Y2-b.Y1)
}

// Area is the pixel area, 0 for degenerate boxes.
func (b BBox) Area() int {
	return b.Width() * b.Height()
}

// ContainsPoint reports whether (x,y) lies inside the box, edges included.
func (b BBox) ContainsPoint(x, y int) bool {
	return b.X1 <= x && x <= b.X2 && b.Y1 <= y && y <= b.Y2
}

// Intersect returns the overlapping box. Touching edges do not overlap.
func (b BBox) Intersect(o BBox) (BBox, bool) {
	x1 := max(b.X1, o.X1)
	y1 := max(b.Y1, o.Y1)
	x2 := min(b.X2, o.X2)
	y2 := min(b.Y2, o.Y2)
	if x2 <= x1 || y2 <= y1 {
		return BBox{}, false
	}
	return BBox{X1: x1, Y1: y1, X2: x2, Y2: y2}, true
}

// IoU is intersection-over-union in [0,1]; 0 when the union is empty.
func (b BBox) IoU(o BBox) float64 {
	inter, ok := b.Intersect(o)
	if !ok {
		return 0.0
	}
	ai := inter.Area()
	union := b.Area() + o.Area() - ai
	if union <= 0 {
		return 0.0
	}
	return float64(ai) / float64(union)
}

// Scale multiplies every coordinate around the origin and rounds.
func (b BBox) Scale(sx, sy float64) BBox {
	return NewBBox(
		int(math.Round(float64(b.X1)*sx)),
		int(math.Round(float64(b.Y1)*sy)),
		int(math.Round(float64(b.X2)*sx)),
		int(math.Round(float64(b.Y2)*sy)),
	)
}

func (b BBox) Translate(dx, dy int) BBox {
	return BBox{X1: b.X1 + dx, Y1: b.Y1 + dy, X2: b.X2 + dx, Y2: b.Y2 + dy}
}

// Clip clamps the box into [0,width-1]x[0,height-1]. The result is normalized even
// when the receiver is not.
func (b BBox) Clip(width, height int) BBox {
	maxX := max(0, width-1)
	maxY := max(0, height-1)
	x1 := min(max(b.X1, 0), maxX)
	y1 := min(max(b.Y1, 0), maxY)
	x2 := min(max(b.X2, 0), maxX)
	y2 := min(max(b.Y2, 0), maxY)
	return NewBBox(x1, y1, x2, y2)
}

// List returns the box as [x1, y1, x2, y2].
func (b BBox) List() [4]int {
	return [4]int{b.X1, b.Y1, b.X2, b.Y2}
}

// UnmarshalJSON normalizes boxes read from persisted files.
func (b *BBox) UnmarshalJSON(data []byte) error {
	type alias BBox
	var raw alias
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*b = BBox(raw).Normalize()
	return nil
}
