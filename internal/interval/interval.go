// Package interval parses the ISO8601 time strings used by the upstream
// forecast feeds. NOAA grid values carry a validity range such as
// "2020-04-10T16:00:00+00:00/P6DT22H"; point observations carry a bare
// instant. Unlike field extraction, malformed input here is a hard
// error: a feed emitting garbage timestamps is broken, not sparse.
package interval

import (
	"fmt"
	"strings"
	"time"

	"github.com/senseyeio/duration"
)

// Interval is a start instant and an optional end, both Unix seconds
// UTC. End is zero when the source string had no duration suffix.
type Interval struct {
	Start int64
	End   int64
}

// Parse parses "<RFC3339 instant>[/<ISO8601 duration>]".
func Parse(s string) (Interval, error) {
	instant, durPart, hasDur := strings.Cut(s, "/")
	start, err := time.Parse(time.RFC3339, instant)
	if err != nil {
		return Interval{}, fmt.Errorf("parse instant %q: %w", instant, err)
	}
	iv := Interval{Start: start.Unix()}
	if hasDur {
		d, err := duration.ParseISO8601(durPart)
		if err != nil {
			return Interval{}, fmt.Errorf("parse duration %q: %w", durPart, err)
		}
		iv.End = d.Shift(start).Unix()
	}
	return iv, nil
}

// Contains reports whether ts falls inside the half-open range
// [Start, End).
func (iv Interval) Contains(ts int64) bool {
	return ts >= iv.Start && ts < iv.End
}

// Hours returns the span of the interval in hours.
func (iv Interval) Hours() float64 {
	return float64(iv.End-iv.Start) / 3600
}

// Clamp returns a copy of iv limited to [start, end].
func (iv Interval) Clamp(start, end int64) Interval {
	out := iv
	if out.Start < start {
		out.Start = start
	}
	if out.End > end {
		out.End = end
	}
	return out
}

// Overlaps reports whether iv intersects the window (start, end).
func (iv Interval) Overlaps(start, end int64) bool {
	return iv.End > start && iv.Start <= end
}
