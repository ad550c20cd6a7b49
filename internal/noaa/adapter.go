package noaa

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"sync"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/tidwall/gjson"
	"github.com/umahmood/haversine"

	"darksky-relay/internal/astro"
	"darksky-relay/internal/darksky"
	"darksky-relay/internal/icons"
	"darksky-relay/internal/interval"
	"darksky-relay/internal/keypath"
	"darksky-relay/internal/units"
)

// ErrUnavailable reports that one of the mandatory NOAA fetches failed
// or returned an unusable payload. Alerts and area-name lookups are
// optional and never trigger it.
var ErrUnavailable = errors.New("noaa data unavailable")

const (
	SourceName = "noaa"

	maxHourlyPeriods = 48
	secondsPerDay    = 86400
)

var whitespacePattern = regexp.MustCompile(`\s+`)

// Adapter builds a unified forecast document from the NOAA API.
type Adapter struct {
	client *Client
	logger *slog.Logger
	now    func() time.Time
}

func NewAdapter(client *Client, logger *slog.Logger) *Adapter {
	return &Adapter{client: client, logger: logger, now: time.Now}
}

type fetchResult struct {
	doc gjson.Result
	err error
}

// Build resolves the coordinate to its NOAA grid, fans out the
// upstream fetches, and assembles the full document: currently,
// hourly, daily, and alerts.
func (a *Adapter) Build(ctx context.Context, lat, lon float64) (*darksky.Forecast, error) {
	points, err := a.client.Points(ctx, lat, lon)
	if err != nil {
		return nil, fmt.Errorf("%w: points lookup: %v", ErrUnavailable, err)
	}

	tzName := keypath.Text(points, "properties", "timeZone")
	loc, err := time.LoadLocation(tzName)
	if err != nil {
		a.logger.Warn("unknown timezone in points document, falling back to UTC",
			"timezone", tzName, "error", err)
		loc = time.UTC
	}
	now := a.now()
	_, offsetSec := now.In(loc).Zone()

	doc := &darksky.Forecast{
		Latitude:  lat,
		Longitude: lon,
		Timezone:  tzName,
		Offset:    float64(offsetSec) / 3600,
		Flags:     darksky.Flags{Units: "us"},
	}

	stationURL, stationMiles, err := a.nearestStation(ctx, points, lat, lon)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	doc.Flags.NearestStation = darksky.Float(units.Round2(stationMiles))

	state := keypath.Text(points, "properties", "relativeLocation", "properties", "state")

	var current, hourly, grid, daily, alerts, counties, zones fetchResult
	fetches := []struct {
		dst      *fetchResult
		endpoint string
		url      string
	}{
		{&current, "observation", stationURL + "/observations/latest"},
		{&hourly, "forecast_hourly", keypath.Text(points, "properties", "forecastHourly")},
		{&grid, "gridpoints", keypath.Text(points, "properties", "forecastGridData")},
		{&daily, "forecast_daily", keypath.Text(points, "properties", "forecast")},
		{&alerts, "alerts", a.client.alertsURL(lat, lon)},
		{&counties, "zones_county", a.client.zonesURL("county", state)},
		{&zones, "zones_forecast", a.client.zonesURL("forecast", state)},
	}
	var wg sync.WaitGroup
	for _, f := range fetches {
		wg.Add(1)
		go func(dst *fetchResult, endpoint, url string) {
			defer wg.Done()
			dst.doc, dst.err = a.client.Get(ctx, endpoint, url)
		}(f.dst, f.endpoint, f.url)
	}
	wg.Wait()

	for _, mandatory := range []struct {
		name string
		res  *fetchResult
	}{
		{"station observation", &current},
		{"hourly forecast", &hourly},
		{"grid forecast", &grid},
		{"daily forecast", &daily},
	} {
		if mandatory.res.err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrUnavailable, mandatory.name, mandatory.res.err)
		}
	}
	for _, optional := range []struct {
		name string
		res  *fetchResult
	}{
		{"alerts", &alerts},
		{"county names", &counties},
		{"zone names", &zones},
	} {
		if optional.res.err != nil {
			a.logger.Warn("optional noaa fetch failed, alerts degraded",
				"endpoint", optional.name, "error", optional.res.err)
		}
	}

	if err := a.assembleCurrently(doc, current.doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	series, err := extractGridSeries(keypath.Walk(grid.doc, "properties"))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if err := a.assembleHourly(doc, hourly.doc, series, now.Unix()); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	a.assembleDaily(doc, daily.doc, series, lat, lon, now, loc)
	a.assembleAlerts(doc, alerts.doc, counties.doc, zones.doc, now.Unix())

	doc.AddSource(SourceName)
	return doc, nil
}

// nearestStation scans the point's station list and keeps the one with
// the smallest great-circle distance. Returns the station URL and the
// distance in miles.
func (a *Adapter) nearestStation(ctx context.Context, points gjson.Result, lat, lon float64) (string, float64, error) {
	listURL := keypath.Text(points, "properties", "observationStations")
	stations, err := a.client.Get(ctx, "stations", listURL)
	if err != nil {
		return "", 0, fmt.Errorf("station list: %w", err)
	}

	var (
		bestURL   string
		bestMiles float64
	)
	for _, feature := range keypath.Walk(stations, "features").Array() {
		coords := keypath.Walk(feature, "geometry", "coordinates")
		stationLon := keypath.Number(coords, nil, 0)
		stationLat := keypath.Number(coords, nil, 1)
		id := keypath.Text(feature, "id")
		if stationLon == nil || stationLat == nil || id == "" {
			continue
		}
		miles, _ := haversine.Distance(
			haversine.Coord{Lat: lat, Lon: lon},
			haversine.Coord{Lat: *stationLat, Lon: *stationLon})
		if bestURL == "" || miles < bestMiles {
			bestURL, bestMiles = id, miles
		}
	}
	if bestURL == "" {
		return "", 0, errors.New("no observation stations for point")
	}
	return bestURL, bestMiles, nil
}

func (a *Adapter) assembleCurrently(doc *darksky.Forecast, observation gjson.Result) error {
	props := keypath.Walk(observation, "properties")
	if !props.Exists() {
		return errors.New("station observation has no properties")
	}
	iv, err := interval.Parse(keypath.Text(props, "timestamp"))
	if err != nil {
		return fmt.Errorf("observation timestamp: %w", err)
	}

	cur := &darksky.DataPoint{
		Time:    iv.Start,
		Summary: capitalize(keypath.Text(props, "textDescription")),
		Icon:    a.mapIcon(keypath.Text(props, "icon")),
		PrecipIntensity: keypath.Number(props, func(v float64) float64 {
			return units.Round2(v / 39.37014)
		}, "precipitationLastHour", "value"),
		Temperature: keypath.Number(props, units.CToF, "temperature", "value"),
		DewPoint:    keypath.Number(props, units.CToF, "dewpoint", "value"),
		Pressure:    keypath.Number(props, units.PaToHPa, "barometricPressure", "value"),
		WindSpeed:   keypath.Number(props, units.MpsToMph, "windSpeed", "value"),
		WindGust:    keypath.Number(props, units.MpsToMph, "windGust", "value"),
		WindBearing: keypath.Number(props, nil, "windDirection", "value"),
		Visibility:  keypath.Number(props, units.MetersToMiles, "visibility", "value"),
	}
	cur.ApparentTemperature = keypath.Number(props, units.CToF, "windChill", "value")
	if cur.ApparentTemperature == nil {
		cur.ApparentTemperature = keypath.Number(props, units.CToF, "heatIndex", "value")
	}
	// Magnus-free spread approximation, as a fraction of 1.
	tempC := keypath.Number(props, nil, "temperature", "value")
	dewC := keypath.Number(props, nil, "dewpoint", "value")
	if tempC != nil && dewC != nil {
		cur.Humidity = darksky.Float(units.Round2((100 - 5*(*tempC - *dewC)) / 100))
	}

	doc.Currently = cur
	return nil
}

// assembleHourly builds up to 48 future hourly slots from the periodic
// forecast, then overlays every grid quantity onto them. Each grid
// interval generally covers several slots at the same value.
func (a *Adapter) assembleHourly(doc *darksky.Forecast, hourly gjson.Result, series *gridSeries, nowUnix int64) error {
	var data []*darksky.DataPoint
	for _, period := range keypath.Walk(hourly, "properties", "periods").Array() {
		if len(data) >= maxHourlyPeriods {
			break
		}
		end, err := interval.Parse(keypath.Text(period, "endTime"))
		if err != nil {
			return fmt.Errorf("hourly period endTime: %w", err)
		}
		if end.Start <= nowUnix {
			continue
		}
		start, err := interval.Parse(keypath.Text(period, "startTime"))
		if err != nil {
			return fmt.Errorf("hourly period startTime: %w", err)
		}
		data = append(data, &darksky.DataPoint{
			Time:    start.Start,
			Summary: capitalize(keypath.Text(period, "shortForecast")),
			Icon:    a.mapIcon(keypath.Text(period, "icon")),
		})
	}
	if len(data) == 0 {
		return nil
	}

	overlaySamples := func(samples []gridSample, set func(*darksky.DataPoint, gridSample)) {
		for _, s := range samples {
			for _, slot := range data {
				if s.iv.Contains(slot.Time) {
					set(slot, s)
				}
			}
		}
	}
	overlay := func(samples []gridSample, set func(*darksky.DataPoint, float64)) {
		overlaySamples(samples, func(p *darksky.DataPoint, s gridSample) {
			set(p, s.value)
		})
	}

	// Precipitation totals span the whole reporting interval; spread
	// them out to a per-hour rate.
	perHourRate := func(s gridSample) float64 {
		hours := s.iv.Hours()
		if hours <= 0 {
			hours = 1
		}
		return units.Round2(units.MmToInches(s.value) / hours)
	}
	overlaySamples(series.precip, func(p *darksky.DataPoint, s gridSample) {
		p.PrecipIntensity = darksky.Float(perHourRate(s))
	})
	overlaySamples(series.snowfall, func(p *darksky.DataPoint, s gridSample) {
		rate := perHourRate(s)
		if p.PrecipIntensity == nil || rate > *p.PrecipIntensity {
			p.PrecipIntensity = darksky.Float(rate)
		}
	})
	overlay(series.precipProb, func(p *darksky.DataPoint, v float64) {
		p.PrecipProbability = darksky.Float(units.PercentToFraction(v))
	})
	overlay(series.temperature, func(p *darksky.DataPoint, v float64) {
		p.Temperature = darksky.Float(units.CToF(v))
	})
	overlay(series.apparent, func(p *darksky.DataPoint, v float64) {
		p.ApparentTemperature = darksky.Float(units.CToF(v))
	})
	overlay(series.dewpoint, func(p *darksky.DataPoint, v float64) {
		p.DewPoint = darksky.Float(units.CToF(v))
	})
	overlay(series.humidity, func(p *darksky.DataPoint, v float64) {
		p.Humidity = darksky.Float(units.PercentToFraction(v))
	})
	overlay(series.windSpeed, func(p *darksky.DataPoint, v float64) {
		p.WindSpeed = darksky.Float(units.MpsToMph(v))
	})
	overlay(series.windGust, func(p *darksky.DataPoint, v float64) {
		p.WindGust = darksky.Float(units.MpsToMph(v))
	})
	overlay(series.windDir, func(p *darksky.DataPoint, v float64) {
		p.WindBearing = darksky.Float(units.WholeDegrees(v))
	})
	overlay(series.skyCover, func(p *darksky.DataPoint, v float64) {
		p.CloudCover = darksky.Float(units.PercentToFraction(v))
	})
	overlay(series.visibility, func(p *darksky.DataPoint, v float64) {
		p.Visibility = darksky.Float(units.MetersToMiles(v))
	})

	doc.Hourly = &darksky.DataBlock{
		Summary: data[0].Summary,
		Icon:    data[0].Icon,
		Data:    data,
	}
	return nil
}

// assembleDaily creates one entry per calendar day at local midnight,
// seeded from the daytime periods of the daily forecast, then
// aggregates the grid quantities over each day's 24-hour window.
func (a *Adapter) assembleDaily(doc *darksky.Forecast, daily gjson.Result, series *gridSeries, lat, lon float64, now time.Time, loc *time.Location) {
	nowLocal := now.In(loc)
	expected := time.Date(nowLocal.Year(), nowLocal.Month(), nowLocal.Day(), 0, 0, 0, 0, loc).Unix()

	var data []*darksky.DailyPoint
	for _, period := range keypath.Walk(daily, "properties", "periods").Array() {
		start, err := time.Parse(time.RFC3339, keypath.Text(period, "startTime"))
		if err != nil {
			a.logger.Warn("skipping daily period with bad startTime",
				"startTime", keypath.Text(period, "startTime"), "error", err)
			continue
		}
		startLocal := start.In(loc)
		midnight := time.Date(startLocal.Year(), startLocal.Month(), startLocal.Day(), 0, 0, 0, 0, loc).Unix()
		// Daytime and nighttime periods share a calendar date; only the
		// first period of each expected day seeds an entry.
		if midnight != expected {
			continue
		}
		day := time.Unix(expected, 0).In(loc)
		rise, set := astro.SunTimes(lat, lon, day)
		data = append(data, &darksky.DailyPoint{
			Time:        expected,
			Summary:     capitalize(keypath.Text(period, "shortForecast")),
			Icon:        a.mapIcon(keypath.Text(period, "icon")),
			SunriseTime: darksky.Int(rise.Unix()),
			SunsetTime:  darksky.Int(set.Unix()),
			MoonPhase:   darksky.Float(astro.MoonPhase(day)),
		})
		expected += secondsPerDay
	}
	if len(data) == 0 {
		return
	}

	for _, day := range data {
		start, end := day.Time, day.Time+secondsPerDay

		if min, max, ok := extremesInDay(series.temperature, start, end, units.CToF); ok {
			day.TemperatureHigh = darksky.Float(max.value)
			day.TemperatureHighTime = darksky.Int(max.ts)
			day.TemperatureLow = darksky.Float(min.value)
			day.TemperatureLowTime = darksky.Int(min.ts)
			day.TemperatureMax = darksky.Float(max.value)
			day.TemperatureMaxTime = darksky.Int(max.ts)
			day.TemperatureMin = darksky.Float(min.value)
			day.TemperatureMinTime = darksky.Int(min.ts)
		}
		if min, max, ok := extremesInDay(series.apparent, start, end, units.CToF); ok {
			day.ApparentTemperatureHigh = darksky.Float(max.value)
			day.ApparentTemperatureHighTime = darksky.Int(max.ts)
			day.ApparentTemperatureLow = darksky.Float(min.value)
			day.ApparentTemperatureLowTime = darksky.Int(min.ts)
			day.ApparentTemperatureMax = darksky.Float(max.value)
			day.ApparentTemperatureMaxTime = darksky.Int(max.ts)
			day.ApparentTemperatureMin = darksky.Float(min.value)
			day.ApparentTemperatureMinTime = darksky.Int(min.ts)
		}
		if avg, ok := weightedAverage(series.dewpoint, start, end); ok {
			day.DewPoint = darksky.Float(units.CToF(avg))
		}
		if avg, ok := weightedAverage(series.humidity, start, end); ok {
			day.Humidity = darksky.Float(units.PercentToFraction(avg))
		}
		if avg, ok := weightedAverage(series.skyCover, start, end); ok {
			day.CloudCover = darksky.Float(units.PercentToFraction(avg))
		}
		if avg, ok := weightedAverage(series.windDir, start, end); ok {
			day.WindBearing = darksky.Float(units.WholeDegrees(avg))
		}
		if avg, ok := weightedAverage(series.windSpeed, start, end); ok {
			day.WindSpeed = darksky.Float(units.MpsToMph(avg))
		}
		if avg, ok := weightedAverage(series.precipProb, start, end); ok {
			day.PrecipProbability = darksky.Float(units.PercentToFraction(avg))
		}
		if avg, ok := weightedAverage(series.visibility, start, end); ok {
			day.Visibility = darksky.Float(units.MetersToMiles(avg))
		}
		if gust, ok := maxInDay(series.windGust, start, end, units.MpsToMph); ok {
			day.WindGust = darksky.Float(gust.value)
			day.WindGustTime = darksky.Int(gust.ts)
		}
		if precip, ok := maxInDay(series.precip, start, end, units.MmToInches); ok {
			day.PrecipIntensityMax = darksky.Float(precip.value)
			day.PrecipIntensityMaxTime = darksky.Int(precip.ts)
		}
	}

	doc.Daily = &darksky.DailyBlock{
		Summary: data[0].Summary,
		Icon:    data[0].Icon,
		Data:    data,
	}
}

// assembleAlerts keeps the active alerts and resolves their area codes
// through the combined county and zone lookup tables. Lookup failures
// leave the raw code in place.
func (a *Adapter) assembleAlerts(doc *darksky.Forecast, alerts, counties, zones gjson.Result, nowUnix int64) {
	areaNames := map[string]string{}
	for _, table := range []gjson.Result{counties, zones} {
		for _, feature := range keypath.Walk(table, "features").Array() {
			id := keypath.Text(feature, "properties", "id")
			name := keypath.Text(feature, "properties", "name")
			if id != "" && name != "" {
				areaNames[id] = name
			}
		}
	}

	out := []darksky.Alert{}
	for _, feature := range keypath.Walk(alerts, "features").Array() {
		props := keypath.Walk(feature, "properties")
		expires, err := interval.Parse(keypath.Text(props, "expires"))
		if err != nil {
			a.logger.Warn("skipping alert with bad expires time",
				"expires", keypath.Text(props, "expires"), "error", err)
			continue
		}
		if expires.Start <= nowUnix {
			continue
		}
		var onset int64
		if t, err := interval.Parse(keypath.Text(props, "onset")); err == nil {
			onset = t.Start
		}
		var regions []string
		for _, code := range keypath.Walk(props, "geocode", "UGC").Array() {
			name, ok := areaNames[code.String()]
			if !ok {
				name = code.String()
			}
			regions = append(regions, name)
		}
		out = append(out, darksky.Alert{
			Title:       keypath.Text(props, "event"),
			Regions:     regions,
			Severity:    keypath.Text(props, "severity"),
			Time:        onset,
			Expires:     expires.Start,
			Description: whitespacePattern.ReplaceAllString(keypath.Text(props, "description"), " "),
			URL:         keypath.Text(props, "@id"),
		})
	}
	doc.Alerts = out
}

func (a *Adapter) mapIcon(url string) string {
	if url == "" {
		return ""
	}
	return icons.FromNOAAIconURL(a.logger, url)
}

// capitalize lowercases the text and uppercases the first rune, the
// presentation style the unified schema uses for summaries.
func capitalize(s string) string {
	if s == "" {
		return s
	}
	lower := strings.ToLower(s)
	r, size := utf8.DecodeRuneInString(lower)
	return string(unicode.ToUpper(r)) + lower[size:]
}
