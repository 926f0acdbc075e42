package units

import (
	"math"
	"testing"
)

func TestConvertSpeed(t *testing.T) {
	tests := []struct {
		name     string
		speedMPS float64
		unit     string
		expected float64
	}{
		{"10 m/s to kmph", 10.0, KMPH, 36.0},
		{"10 m/s to kph", 10.0, KPH, 36.0},
		{"10 m/s to mph", 10.0, MPH, 22.3694},
		{"10 m/s to mps", 10.0, MPS, 10.0},
		{"unknown unit stays mps", 10.0, "furlong", 10.0},
		{"sustained 0.1 m/s to kmph", 0.1, KMPH, 0.36},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ConvertSpeed(tt.speedMPS, tt.unit)
			if math.Abs(got-tt.expected) > 1e-3 {
				t.Errorf("ConvertSpeed(%f, %s) = %f, want %f", tt.speedMPS, tt.unit, got, tt.expected)
			}
		})
	}
}

func TestIsValid(t *testing.T) {
	tests := []struct {
		unit     string
		expected bool
	}{
		{MPS, true},
		{KMPH, true},
		{KPH, true},
		{MPH, true},
		{"", false},
		{"MPH", false},
	}
	for _, tt := range tests {
		if got := IsValid(tt.unit); got != tt.expected {
			t.Errorf("IsValid(%q) = %v, want %v", tt.unit, got, tt.expected)
		}
	}
}

func TestFormatSpeed(t *testing.T) {
	if got := FormatSpeed(2, KMPH); got != "7.20 km/h" {
		t.Errorf("FormatSpeed(2, kmph) = %q", got)
	}
	if got := FormatSpeed(2, "bogus"); got != "2.00 m/s" {
		t.Errorf("FormatSpeed(2, bogus) = %q", got)
	}
	if got := ValidUnitsString(); got != "mps, kmph, kph, mph" {
		t.Errorf("ValidUnitsString() = %q", got)
	}
}
