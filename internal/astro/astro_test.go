package astro

import (
	"testing"
	"time"
)

func TestMoonPhase(t *testing.T) {
	// Reference instant is a new moon.
	if got := MoonPhase(time.Date(2000, 1, 6, 18, 14, 0, 0, time.UTC)); got != 0 {
		t.Errorf("MoonPhase at reference new moon = %v, want 0", got)
	}

	// Half a cycle later should be (approximately) full.
	halfCycle := time.Date(2000, 1, 6, 18, 14, 0, 0, time.UTC).Add(time.Duration(29.53 * 12 * float64(time.Hour)))
	if got := MoonPhase(halfCycle); got < 0.48 || got > 0.52 {
		t.Errorf("MoonPhase half a cycle after new moon = %v, want ~0.5", got)
	}

	// Always within the lunation fraction domain.
	for i := 0; i < 60; i++ {
		ts := time.Date(2020, 4, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, i)
		got := MoonPhase(ts)
		if got < 0 || got >= 1 {
			t.Fatalf("MoonPhase(%s) = %v, outside [0, 1)", ts, got)
		}
	}

	// Dates before the reference epoch still normalize into range.
	if got := MoonPhase(time.Date(1980, 6, 1, 0, 0, 0, 0, time.UTC)); got < 0 || got >= 1 {
		t.Errorf("MoonPhase before reference = %v, outside [0, 1)", got)
	}
}

func TestSunTimes(t *testing.T) {
	// Boston, midsummer: the sun must rise before it sets, and both
	// must land on the requested day.
	day := time.Date(2020, 6, 21, 12, 0, 0, 0, time.UTC)
	rise, set := SunTimes(42.36, -71.06, day)

	if !rise.Before(set) {
		t.Fatalf("sunrise %s not before sunset %s", rise, set)
	}
	if rise.UTC().Day() != 21 || set.UTC().Day() != 21 {
		t.Errorf("sun times landed on the wrong day: rise=%s set=%s", rise, set)
	}
	if span := set.Sub(rise); span < 14*time.Hour || span > 16*time.Hour {
		t.Errorf("midsummer day length = %s, want roughly 15h", span)
	}
}
