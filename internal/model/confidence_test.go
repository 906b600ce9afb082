package model

import (
	"math"
	"testing"
)

func TestParseConfidence_Valid(t *testing.T) {
	tests := []struct {
		input    any
		expected float64
	}{
		{"87%", 0.87},
		{" 87 % ", 0.87},
		{87, 0.87},
		{0.5, 0.5},
		{"0.25", 0.25},
		{"150%", 1.0},
		{250, 1.0},
		{-0.3, 0.0},
		{"-20%", 0.0},
		{float32(0.75), 0.75},
		{int64(1), 1.0},
		{0, 0.0},
	}

	for _, tt := range tests {
		got, ok := ParseConfidence(tt.input)
		if !ok {
			t.Errorf("ParseConfidence(%v) reported absent", tt.input)
			continue
		}
		if math.Abs(got-tt.expected) > 1e-9 {
			t.Errorf("ParseConfidence(%v) = %f, expected %f", tt.input, got, tt.expected)
		}
	}
}

func TestParseConfidence_Invalid(t *testing.T) {
	inputs := []any{nil, "abc", "", "%", "12x%", math.NaN(), math.Inf(1), []int{1}, struct{}{}}

	for _, in := range inputs {
		if _, ok := ParseConfidence(in); ok {
			t.Errorf("Expected ParseConfidence(%v) to be absent", in)
		}
		if p := ConfidencePtr(in); p != nil {
			t.Errorf("Expected ConfidencePtr(%v) to be nil, got %f", in, *p)
		}
	}
}

func TestParseConfidence_ExactExamples(t *testing.T) {
	if got, _ := ParseConfidence("87%"); got != 0.87 {
		t.Errorf("Expected 0.87, got %v", got)
	}
	if got, _ := ParseConfidence(87); got != 0.87 {
		t.Errorf("Expected 0.87, got %v", got)
	}
	if got, _ := ParseConfidence(0.5); got != 0.5 {
		t.Errorf("Expected 0.5, got %v", got)
	}
}
