// Package units converts track speeds, which are stored in metres per
// second, for reporting.
package units

import (
	"fmt"
	"slices"
	"strings"
)

// Speed units.
const (
	MPS  = "mps"
	KMPH = "kmph"
	KPH  = "kph"
	MPH  = "mph"
)

// ValidUnits lists the accepted unit names.
var ValidUnits = []string{MPS, KMPH, KPH, MPH}

var symbols = map[string]string{
	MPS:  "m/s",
	KMPH: "km/h",
	KPH:  "km/h",
	MPH:  "mph",
}

// IsValid reports whether unit is one of ValidUnits.
func IsValid(unit string) bool {
	return slices.Contains(ValidUnits, unit)
}

// ValidUnitsString returns the accepted units for error messages.
func ValidUnitsString() string {
	return strings.Join(ValidUnits, ", ")
}

// ConvertSpeed converts a speed in m/s to unit. Unknown units are left in m/s.
func ConvertSpeed(speedMPS float64, unit string) float64 {
	switch unit {
	case KMPH, KPH:
		return speedMPS * 3.6
	case MPH:
		return speedMPS * 2.23694
	default:
		return speedMPS
	}
}

// FormatSpeed renders a speed in m/s converted to unit.
func FormatSpeed(speedMPS float64, unit string) string {
	sym, ok := symbols[unit]
	if !ok {
		sym = symbols[MPS]
	}
	return fmt.Sprintf("%.2f %s", ConvertSpeed(speedMPS, unit), sym)
}
