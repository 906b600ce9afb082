package model

import (
	"math"
	"strconv"
	"strings"
)

// ParseConfidence normalizes a confidence value into [0,1].
//
// Accepted forms are a percentage string ("87%"), a number above 1 which is read as a
// percentage (87), and a fraction (0.87), either as a number or a numeric string.
// Anything else, including nil, reports ok=false.
func ParseConfidence(v any) (value float64, ok bool) {
	var f float64
	switch t := v.(type) {
	case nil:
		return 0, false
	case float64:
		f = t
	case float32:
		f = float64(t)
	case int:
		f = float64(t)
	case int32:
		f = float64(t)
	case int64:
		f = float64(t)
	case uint8:
		f = float64(t)
	case *float64:
		if t == nil {
			return 0, false
		}
		f = *t
	case string:
		s := strings.TrimSpace(t)
		if strings.HasSuffix(s, "%") {
			p, err := strconv.ParseFloat(strings.TrimSpace(strings.TrimSuffix(s, "%")), 64)
			if err != nil || !finite(p) {
				return 0, false
			}
			return clip01(p / 100.0), true
		}
		p, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, false
		}
		f = p
	default:
		return 0, false
	}

	if !finite(f) {
		return 0, false
	}
	if f > 1.0 {
		return clip01(f / 100.0), true
	}
	return clip01(f), true
}

// ConfidencePtr is ParseConfidence returning nil for an absent value.
func ConfidencePtr(v any) *float64 {
	f, ok := ParseConfidence(v)
	if !ok {
		return nil
	}
	return &f
}

func clip01(f float64) float64 {
	if f < 0 {
		return 0
	}
	if f > 1 {
		return 1
	}
	return f
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
