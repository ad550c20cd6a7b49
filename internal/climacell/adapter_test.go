package climacell

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"darksky-relay/internal/darksky"
)

var fixtureNow = time.Date(2026, time.January, 10, 12, 0, 0, 0, time.UTC)

type fixtureServer struct {
	srv *httptest.Server

	dailyStatus int
}

func newFixtureServer(t *testing.T) *fixtureServer {
	t.Helper()
	fs := &fixtureServer{dailyStatus: http.StatusOK}
	mux := http.NewServeMux()
	fs.srv = httptest.NewServer(mux)
	t.Cleanup(fs.srv.Close)

	mux.HandleFunc("/realtime", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("apikey") == "" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		fmt.Fprint(w, `{
			"observation_time": {"value": "2026-01-10T11:58:00.000Z"},
			"weather_code": {"value": "mostly_cloudy"},
			"temp": {"value": 43.2},
			"feels_like": {"value": 39.1},
			"dewpoint": {"value": 30},
			"humidity": {"value": 62},
			"baro_pressure": {"value": 1015.3},
			"wind_speed": {"value": 8.5},
			"wind_direction": {"value": 220},
			"cloud_cover": {"value": 85},
			"visibility": {"value": 9.5},
			"precipitation": {"value": 0},
			"precipitation_type": {"value": "none"},
			"o3": {"value": 31.2}
		}`)
	})

	mux.HandleFunc("/nowcast", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `[
			{"observation_time": {"value": "2026-01-10T12:01:00.000Z"},
			 "precipitation": {"value": 0}, "precipitation_type": {"value": "none"}},
			{"observation_time": {"value": "2026-01-10T12:02:00.000Z"},
			 "precipitation": {"value": 0.01}, "precipitation_type": {"value": "rain"}}
		]`)
	})

	mux.HandleFunc("/forecast/hourly", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `[
			{"observation_time": {"value": "2026-01-10T12:00:00.000Z"},
			 "weather_code": {"value": "clear"},
			 "temp": {"value": 44}, "humidity": {"value": 80},
			 "precipitation_probability": {"value": 20},
			 "precipitation_type": {"value": "none"}},
			{"observation_time": {"value": "2026-01-10T13:00:00.000Z"},
			 "weather_code": {"value": "rain_light"},
			 "temp": {"value": 45}, "humidity": {"value": 85},
			 "precipitation_probability": {"value": 60},
			 "precipitation_type": {"value": "rain"}}
		]`)
	})

	mux.HandleFunc("/forecast/daily", func(w http.ResponseWriter, r *http.Request) {
		if fs.dailyStatus != http.StatusOK {
			w.WriteHeader(fs.dailyStatus)
			return
		}
		fmt.Fprint(w, `[
			{"observation_time": {"value": "2026-01-09"},
			 "weather_code": {"value": "clear"},
			 "temp": [], "feels_like": [], "humidity": [], "baro_pressure": [], "wind_speed": []},
			{"observation_time": {"value": "2026-01-10"},
			 "weather_code": {"value": "snow_light"},
			 "sunrise": {"value": "2026-01-10T12:20:00.000Z"},
			 "sunset": {"value": "2026-01-10T21:45:00.000Z"},
			 "precipitation": [
				{"observation_time": "2026-01-10T16:00:00Z", "max": {"value": 0.3}}
			 ],
			 "precipitation_probability": {"value": 40},
			 "temp": [
				{"observation_time": "2026-01-10T07:00:00Z", "min": {"value": 28.4}},
				{"observation_time": "2026-01-10T15:00:00Z", "max": {"value": 41}}
			 ],
			 "feels_like": [
				{"observation_time": "2026-01-10T07:00:00Z", "min": {"value": 24}},
				{"observation_time": "2026-01-10T15:00:00Z", "max": {"value": 38}}
			 ],
			 "humidity": [
				{"observation_time": "2026-01-10T07:00:00Z", "min": {"value": 60}},
				{"observation_time": "2026-01-10T15:00:00Z", "max": {"value": 80}}
			 ],
			 "baro_pressure": [
				{"observation_time": "2026-01-10T07:00:00Z", "min": {"value": 1010}},
				{"observation_time": "2026-01-10T15:00:00Z", "max": {"value": 1020}}
			 ],
			 "wind_speed": [
				{"observation_time": "2026-01-10T07:00:00Z", "min": {"value": 3}},
				{"observation_time": "2026-01-10T15:00:00Z", "max": {"value": 22}}
			 ]},
			{"observation_time": {"value": "2026-01-11"},
			 "weather_code": {"value": "clear"},
			 "temp": [], "feels_like": [], "humidity": [], "baro_pressure": [], "wind_speed": []}
		]`)
	})

	return fs
}

func newTestAdapter(fs *fixtureServer) *Adapter {
	client := NewClient(fs.srv.URL, fs.srv.Client())
	a := NewAdapter(client, slog.New(slog.NewTextHandler(io.Discard, nil)))
	a.now = func() time.Time { return fixtureNow }
	return a
}

// skeletonDoc builds the document a primary fetch would have produced:
// two hourly slots and one daily entry, with the fields ClimaCell
// cannot supply populated.
func skeletonDoc() *darksky.Forecast {
	day0 := time.Date(2026, time.January, 10, 0, 0, 0, 0, time.UTC).Unix()
	return &darksky.Forecast{
		Latitude:  40.0,
		Longitude: -75.1,
		Timezone:  "America/New_York",
		Flags:     darksky.Flags{Sources: []string{"noaa"}, Units: "us"},
		Hourly: &darksky.DataBlock{
			Data: []*darksky.DataPoint{
				{Time: fixtureNow.Unix(), Temperature: darksky.Float(50), WindSpeed: darksky.Float(11.18)},
				{Time: fixtureNow.Add(time.Hour).Unix(), Temperature: darksky.Float(50)},
			},
		},
		Daily: &darksky.DailyBlock{
			Data: []*darksky.DailyPoint{
				{
					Time:        day0,
					WindSpeed:   darksky.Float(9.3),
					WindBearing: darksky.Float(200),
					CloudCover:  darksky.Float(0.4),
					Visibility:  darksky.Float(10),
				},
			},
		},
	}
}

func TestEnrichCurrently(t *testing.T) {
	fs := newFixtureServer(t)
	doc := skeletonDoc()
	if err := newTestAdapter(fs).Enrich(context.Background(), doc, "k"); err != nil {
		t.Fatalf("Enrich: %v", err)
	}

	cur := doc.Currently
	if cur == nil {
		t.Fatal("currently missing")
	}
	if cur.Summary != "Mostly Cloudy" || cur.Icon != "cloudy" {
		t.Errorf("summary/icon = %q/%q", cur.Summary, cur.Icon)
	}
	if cur.Temperature == nil || *cur.Temperature != 43.2 {
		t.Errorf("temperature = %v, want 43.2", cur.Temperature)
	}
	if cur.Humidity == nil || *cur.Humidity != 0.62 {
		t.Errorf("humidity = %v, want 0.62", cur.Humidity)
	}
	if cur.CloudCover == nil || *cur.CloudCover != 0.85 {
		t.Errorf("cloudCover = %v, want 0.85", cur.CloudCover)
	}
	if cur.PrecipIntensity == nil || *cur.PrecipIntensity != 0 {
		t.Errorf("precipIntensity = %v, want present 0", cur.PrecipIntensity)
	}
	if cur.PrecipType != nil {
		t.Errorf(`precipType = %q, want absent for "none"`, *cur.PrecipType)
	}
	if cur.Ozone == nil || *cur.Ozone != 31.2 {
		t.Errorf("ozone = %v, want 31.2", cur.Ozone)
	}

	want := []string{"noaa", "climacell"}
	if len(doc.Flags.Sources) != 2 || doc.Flags.Sources[0] != want[0] || doc.Flags.Sources[1] != want[1] {
		t.Errorf("sources = %v, want %v", doc.Flags.Sources, want)
	}
}

func TestEnrichMinutely(t *testing.T) {
	fs := newFixtureServer(t)
	doc := skeletonDoc()
	if err := newTestAdapter(fs).Enrich(context.Background(), doc, "k"); err != nil {
		t.Fatalf("Enrich: %v", err)
	}

	if doc.Minutely == nil {
		t.Fatal("minutely missing")
	}
	data := doc.Minutely.Data
	if len(data) != 2 {
		t.Fatalf("minutely len = %d, want 2", len(data))
	}
	if data[0].PrecipType != nil {
		t.Error("minute 0 precipType should be absent")
	}
	if data[1].PrecipType == nil || *data[1].PrecipType != "rain" {
		t.Errorf("minute 1 precipType = %v, want rain", data[1].PrecipType)
	}
	// The minutely block borrows summary and icon from the first hour.
	if doc.Minutely.Summary != "Clear" || doc.Minutely.Icon != "clear-day" {
		t.Errorf("minutely summary/icon = %q/%q", doc.Minutely.Summary, doc.Minutely.Icon)
	}
}

func TestEnrichKeepsExistingMinutely(t *testing.T) {
	fs := newFixtureServer(t)
	doc := skeletonDoc()
	existing := &darksky.DataPoint{Time: 123, PrecipIntensity: darksky.Float(0.5)}
	doc.Minutely = &darksky.DataBlock{Data: []*darksky.DataPoint{existing}}

	if err := newTestAdapter(fs).Enrich(context.Background(), doc, "k"); err != nil {
		t.Fatalf("Enrich: %v", err)
	}
	if len(doc.Minutely.Data) != 1 || doc.Minutely.Data[0] != existing {
		t.Error("existing minutely data should never be overwritten")
	}
}

func TestEnrichHourly(t *testing.T) {
	fs := newFixtureServer(t)
	doc := skeletonDoc()
	if err := newTestAdapter(fs).Enrich(context.Background(), doc, "k"); err != nil {
		t.Fatalf("Enrich: %v", err)
	}

	data := doc.Hourly.Data
	if len(data) != 2 {
		t.Fatalf("hourly len = %d, want 2", len(data))
	}
	if data[0].Temperature == nil || *data[0].Temperature != 44 {
		t.Errorf("slot 0 temperature = %v, want overwritten to 44", data[0].Temperature)
	}
	if data[0].WindSpeed != nil {
		t.Errorf("slot 0 windSpeed = %v, want dropped by overwrite", *data[0].WindSpeed)
	}
	if data[0].PrecipProbability == nil || *data[0].PrecipProbability != 0.2 {
		t.Errorf("slot 0 precipProbability = %v, want 0.2", data[0].PrecipProbability)
	}
	if data[1].Summary != "Light Rain" || data[1].Icon != "rain" {
		t.Errorf("slot 1 summary/icon = %q/%q", data[1].Summary, data[1].Icon)
	}
	if doc.Hourly.Summary != "Clear" || doc.Hourly.Icon != "clear-day" {
		t.Errorf("hourly block summary/icon = %q/%q", doc.Hourly.Summary, doc.Hourly.Icon)
	}
}

func TestEnrichHourlySynthesizesSkeleton(t *testing.T) {
	fs := newFixtureServer(t)
	doc := skeletonDoc()
	doc.Hourly = nil

	if err := newTestAdapter(fs).Enrich(context.Background(), doc, "k"); err != nil {
		t.Fatalf("Enrich: %v", err)
	}
	if doc.Hourly == nil {
		t.Fatal("hourly missing")
	}
	data := doc.Hourly.Data
	if len(data) != 48 {
		t.Fatalf("hourly len = %d, want 48 synthesized slots", len(data))
	}
	if data[0].Time != fixtureNow.Truncate(time.Hour).Unix() {
		t.Errorf("slot 0 time = %d, want top of the current hour", data[0].Time)
	}
	if data[0].Temperature == nil || *data[0].Temperature != 44 {
		t.Errorf("slot 0 temperature = %v, want 44", data[0].Temperature)
	}
	if data[2].Temperature != nil {
		t.Error("slot 2 has no matching sample, should stay timestamp-only")
	}
}

func TestEnrichDaily(t *testing.T) {
	fs := newFixtureServer(t)
	doc := skeletonDoc()
	if err := newTestAdapter(fs).Enrich(context.Background(), doc, "k"); err != nil {
		t.Fatalf("Enrich: %v", err)
	}

	data := doc.Daily.Data
	if len(data) != 8 {
		t.Fatalf("daily len = %d, want padded to 8", len(data))
	}
	for i := 1; i < len(data); i++ {
		if data[i].Time != data[i-1].Time+86400 {
			t.Fatalf("daily times not 24h apart at %d", i)
		}
	}

	// The 2026-01-09 sample predates the skeleton and must be skipped.
	day := data[0]
	if day.Summary != "Light Snow" || day.Icon != "snow" {
		t.Errorf("day 0 summary/icon = %q/%q, want the 01-10 sample", day.Summary, day.Icon)
	}
	if day.TemperatureLow == nil || *day.TemperatureLow != 28.4 {
		t.Errorf("temperatureLow = %v, want 28.4", day.TemperatureLow)
	}
	if day.TemperatureHigh == nil || *day.TemperatureHigh != 41 {
		t.Errorf("temperatureHigh = %v, want 41", day.TemperatureHigh)
	}
	if day.ApparentTemperatureHigh == nil || *day.ApparentTemperatureHigh != 38 {
		t.Errorf("apparentTemperatureHigh = %v, want 38", day.ApparentTemperatureHigh)
	}
	if day.Humidity == nil || *day.Humidity != 0.7 {
		t.Errorf("humidity = %v, want mean 0.7", day.Humidity)
	}
	if day.Pressure == nil || *day.Pressure != 1015 {
		t.Errorf("pressure = %v, want mean 1015", day.Pressure)
	}
	if day.WindGust == nil || *day.WindGust != 22 {
		t.Errorf("windGust = %v, want max wind speed 22", day.WindGust)
	}
	if day.PrecipIntensityMax == nil || *day.PrecipIntensityMax != 0.3 {
		t.Errorf("precipIntensityMax = %v, want 0.3", day.PrecipIntensityMax)
	}
	if day.PrecipProbability == nil || *day.PrecipProbability != 0.4 {
		t.Errorf("precipProbability = %v, want 0.4", day.PrecipProbability)
	}
	if day.MoonPhase == nil || *day.MoonPhase < 0 || *day.MoonPhase >= 1 {
		t.Errorf("moonPhase = %v, want [0,1)", day.MoonPhase)
	}

	// Fields ClimaCell lacks carry forward from the skeleton entry.
	if day.WindSpeed == nil || *day.WindSpeed != 9.3 {
		t.Errorf("windSpeed = %v, want carried-forward 9.3", day.WindSpeed)
	}
	if day.CloudCover == nil || *day.CloudCover != 0.4 {
		t.Errorf("cloudCover = %v, want carried-forward 0.4", day.CloudCover)
	}
	if day.Visibility == nil || *day.Visibility != 10 {
		t.Errorf("visibility = %v, want carried-forward 10", day.Visibility)
	}

	// Padded days have no matching sample and stay timestamp-only.
	if data[2].Summary != "" || data[2].TemperatureHigh != nil {
		t.Error("day 2 should stay timestamp-only")
	}
	if doc.Daily.Summary != "Light Snow" {
		t.Errorf("daily block summary = %q", doc.Daily.Summary)
	}
}

func TestEnrichDailyLocalMidnightSkeleton(t *testing.T) {
	fs := newFixtureServer(t)
	doc := skeletonDoc()
	loc, err := time.LoadLocation("America/New_York")
	if err != nil {
		t.Fatal(err)
	}
	doc.Daily.Data[0].Time = time.Date(2026, time.January, 10, 0, 0, 0, 0, loc).Unix()

	if err := newTestAdapter(fs).Enrich(context.Background(), doc, "k"); err != nil {
		t.Fatalf("Enrich: %v", err)
	}

	// Sample dates resolve to midnight in the document's timezone, so
	// against a local-midnight skeleton only the 2026-01-09 sample is
	// skipped and each remaining sample lands on its own day.
	data := doc.Daily.Data
	if data[0].Summary != "Light Snow" || data[0].Icon != "snow" {
		t.Errorf("day 0 summary/icon = %q/%q, want the 01-10 sample", data[0].Summary, data[0].Icon)
	}
	if data[1].Summary != "Clear" {
		t.Errorf("day 1 summary = %q, want the 01-11 sample", data[1].Summary)
	}
}

func TestEnrichFetchFailureLeavesDocUntouched(t *testing.T) {
	fs := newFixtureServer(t)
	fs.dailyStatus = http.StatusNotFound

	doc := skeletonDoc()
	err := newTestAdapter(fs).Enrich(context.Background(), doc, "k")
	if !errors.Is(err, ErrUnavailable) {
		t.Fatalf("err = %v, want ErrUnavailable", err)
	}
	if doc.Currently != nil {
		t.Error("currently should not be populated on failure")
	}
	if len(doc.Daily.Data) != 1 {
		t.Error("daily skeleton should be untouched on failure")
	}
	if len(doc.Flags.Sources) != 1 {
		t.Errorf("sources = %v, want unchanged", doc.Flags.Sources)
	}
}
