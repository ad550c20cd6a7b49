// Package units holds the numeric conversions between upstream metric
// values and the imperial units of the unified document. Every result
// is rounded to two decimals at the point of conversion; nothing
// downstream rounds again.
package units

import "math"

// Round2 rounds to two decimal places.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// CToF converts Celsius to Fahrenheit.
func CToF(c float64) float64 {
	return Round2(c*9/5 + 32)
}

// MpsToMph converts meters per second to miles per hour.
func MpsToMph(v float64) float64 {
	return Round2(v * 2.23694)
}

// PaToHPa converts Pascals to hectopascals.
func PaToHPa(v float64) float64 {
	return Round2(v / 100)
}

// MetersToMiles converts meters to statute miles.
func MetersToMiles(v float64) float64 {
	return Round2(v / 1609.34)
}

// MmToInches converts millimeters to inches.
func MmToInches(v float64) float64 {
	return Round2(v / 25.4)
}

// PercentToFraction converts a 0-100 percentage to a 0-1 fraction.
// Upstream values that are already fractional must not pass through
// here; the unified document stores humidity, cloud cover and
// precipitation probability as fractions.
func PercentToFraction(v float64) float64 {
	return Round2(v / 100)
}

// WholeDegrees rounds a compass bearing to the nearest whole degree.
func WholeDegrees(v float64) float64 {
	return math.Round(v)
}
