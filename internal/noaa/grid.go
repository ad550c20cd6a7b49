package noaa

import (
	"fmt"

	"github.com/tidwall/gjson"

	"darksky-relay/internal/interval"
	"darksky-relay/internal/keypath"
)

// gridSample is one entry of a gridpoint quantity: a metric value that
// holds over a time interval.
type gridSample struct {
	iv    interval.Interval
	value float64
}

// gridSeries holds the per-quantity sample lists extracted from a
// gridpoints document. A quantity missing from the document is simply
// an empty slice.
type gridSeries struct {
	precip      []gridSample
	snowfall    []gridSample
	precipProb  []gridSample
	temperature []gridSample
	apparent    []gridSample
	dewpoint    []gridSample
	humidity    []gridSample
	windSpeed   []gridSample
	windGust    []gridSample
	windDir     []gridSample
	skyCover    []gridSample
	visibility  []gridSample
}

func extractGridSeries(props gjson.Result) (*gridSeries, error) {
	var (
		gs  gridSeries
		err error
	)
	for _, q := range []struct {
		name string
		dst  *[]gridSample
	}{
		{"quantitativePrecipitation", &gs.precip},
		{"snowfallAmount", &gs.snowfall},
		{"probabilityOfPrecipitation", &gs.precipProb},
		{"temperature", &gs.temperature},
		{"apparentTemperature", &gs.apparent},
		{"dewpoint", &gs.dewpoint},
		{"relativeHumidity", &gs.humidity},
		{"windSpeed", &gs.windSpeed},
		{"windGust", &gs.windGust},
		{"windDirection", &gs.windDir},
		{"skyCover", &gs.skyCover},
		{"visibility", &gs.visibility},
	} {
		*q.dst, err = gridValues(props, q.name)
		if err != nil {
			return nil, err
		}
	}
	return &gs, nil
}

func gridValues(props gjson.Result, quantity string) ([]gridSample, error) {
	values := keypath.Walk(props, quantity, "values")
	var out []gridSample
	for _, v := range values.Array() {
		validTime := keypath.Text(v, "validTime")
		if validTime == "" {
			continue
		}
		iv, err := interval.Parse(validTime)
		if err != nil {
			return nil, fmt.Errorf("grid quantity %s: %w", quantity, err)
		}
		num := keypath.Number(v, nil, "value")
		if num == nil {
			continue
		}
		out = append(out, gridSample{iv: iv, value: *num})
	}
	return out, nil
}

// sampleAt holds a converted grid value together with the start of the
// interval it came from.
type sampleAt struct {
	value float64
	ts    int64
}

// extremesInDay scans samples starting inside [start, end) and returns
// the minimum and maximum converted values with their timestamps.
func extremesInDay(samples []gridSample, start, end int64, convert func(float64) float64) (min, max sampleAt, ok bool) {
	for _, s := range samples {
		if s.iv.Start < start || s.iv.Start >= end {
			continue
		}
		v := convert(s.value)
		if !ok {
			min, max, ok = sampleAt{v, s.iv.Start}, sampleAt{v, s.iv.Start}, true
			continue
		}
		if v < min.value {
			min = sampleAt{v, s.iv.Start}
		}
		if v > max.value {
			max = sampleAt{v, s.iv.Start}
		}
	}
	return min, max, ok
}

// maxInDay is extremesInDay reduced to the maximum only.
func maxInDay(samples []gridSample, start, end int64, convert func(float64) float64) (sampleAt, bool) {
	_, max, ok := extremesInDay(samples, start, end, convert)
	return max, ok
}

// weightedAverage averages the samples overlapping [start, end),
// weighting each raw value by the number of hours its interval
// actually spends inside the day.
func weightedAverage(samples []gridSample, start, end int64) (float64, bool) {
	var total, hours float64
	for _, s := range samples {
		if !s.iv.Overlaps(start, end) {
			continue
		}
		h := s.iv.Clamp(start, end).Hours()
		if h <= 0 {
			continue
		}
		total += s.value * h
		hours += h
	}
	if hours == 0 {
		return 0, false
	}
	return total / hours, true
}
