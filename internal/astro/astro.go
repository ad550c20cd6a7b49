// Package astro computes the astronomical fields of the daily series:
// sunrise, sunset, and the moon phase expressed as a lunation fraction.
package astro

import (
	"math"
	"time"

	"github.com/nathan-osman/go-sunrise"

	"darksky-relay/internal/units"
)

// A synodic month, in days.
const lunarCycle = 29.53

// Reference new moon: January 6, 2000 18:14 UTC.
var newMoonRef = time.Date(2000, 1, 6, 18, 14, 0, 0, time.UTC)

// SunTimes returns sunrise and sunset for the given coordinates on the
// UTC calendar day of t.
func SunTimes(lat, lon float64, t time.Time) (time.Time, time.Time) {
	u := t.UTC()
	return sunrise.SunriseSunset(lat, lon, u.Year(), u.Month(), u.Day())
}

// MoonPhase returns the fraction of the lunation cycle at t: 0.0 is a
// new moon, 0.5 a full moon, approaching 1.0 just before the next new
// moon. Rounded to two decimals like every other derived quantity.
func MoonPhase(t time.Time) float64 {
	days := t.Sub(newMoonRef).Hours() / 24
	pos := math.Mod(days, lunarCycle)
	if pos < 0 {
		pos += lunarCycle
	}
	return units.Round2(pos / lunarCycle)
}
