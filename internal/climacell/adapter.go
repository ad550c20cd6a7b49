package climacell

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/tidwall/gjson"

	"darksky-relay/internal/astro"
	"darksky-relay/internal/darksky"
	"darksky-relay/internal/icons"
	"darksky-relay/internal/interval"
	"darksky-relay/internal/keypath"
	"darksky-relay/internal/units"
)

// ErrUnavailable reports that one of the four ClimaCell fetches
// failed. Enrichment is best-effort: the caller keeps the document it
// passed in.
var ErrUnavailable = errors.New("climacell data unavailable")

const (
	SourceName = "climacell"

	dailyDays         = 8
	hourlySlots       = 48
	secondsPerDay     = 86400
	ccDailyDateLayout = "2006-01-02"
)

// Adapter overlays ClimaCell data onto an existing forecast document.
type Adapter struct {
	client *Client
	logger *slog.Logger
	now    func() time.Time
}

func NewAdapter(client *Client, logger *slog.Logger) *Adapter {
	return &Adapter{client: client, logger: logger, now: time.Now}
}

// Enrich fetches the four ClimaCell products concurrently and merges
// them into doc. If any fetch fails, doc is left untouched and
// ErrUnavailable is returned. ClimaCell has no timezone or alert data;
// those sections pass through from the primary source.
func (a *Adapter) Enrich(ctx context.Context, doc *darksky.Forecast, apikey string) error {
	now := a.now()
	lat, lon := doc.Latitude, doc.Longitude

	var realtime, nowcast, hourly, daily gjson.Result
	var rtErr, ncErr, hrErr, dayErr error
	var wg sync.WaitGroup
	wg.Add(4)
	go func() {
		defer wg.Done()
		realtime, rtErr = a.client.Realtime(ctx, apikey, lat, lon)
	}()
	go func() {
		defer wg.Done()
		nowcast, ncErr = a.client.Nowcast(ctx, apikey, lat, lon, now)
	}()
	go func() {
		defer wg.Done()
		hourly, hrErr = a.client.Hourly(ctx, apikey, lat, lon)
	}()
	go func() {
		defer wg.Done()
		daily, dayErr = a.client.Daily(ctx, apikey, lat, lon)
	}()
	wg.Wait()

	for _, e := range []error{rtErr, ncErr, hrErr, dayErr} {
		if e != nil {
			return fmt.Errorf("%w: %v", ErrUnavailable, e)
		}
	}

	a.mergeCurrently(doc, realtime)
	a.mergeMinutely(doc, nowcast)
	a.mergeHourly(doc, hourly, now)
	a.mergeDaily(doc, daily, now)

	doc.AddSource(SourceName)
	return nil
}

// mergeCurrently replaces the current conditions wholesale. ClimaCell
// realtime data is fresher than a station observation.
func (a *Adapter) mergeCurrently(doc *darksky.Forecast, realtime gjson.Result) {
	code := keypath.Text(realtime, "weather_code", "value")
	cur := &darksky.DataPoint{
		Summary:             icons.SummaryFromClimacellCode(a.logger, code),
		Icon:                icons.FromClimacellCode(a.logger, code),
		PrecipIntensity:     keypath.Number(realtime, nil, "precipitation", "value"),
		PrecipType:          precipType(realtime),
		Temperature:         keypath.Number(realtime, nil, "temp", "value"),
		ApparentTemperature: keypath.Number(realtime, nil, "feels_like", "value"),
		DewPoint:            keypath.Number(realtime, nil, "dewpoint", "value"),
		Humidity:            keypath.Number(realtime, units.PercentToFraction, "humidity", "value"),
		Pressure:            keypath.Number(realtime, nil, "baro_pressure", "value"),
		WindSpeed:           keypath.Number(realtime, nil, "wind_speed", "value"),
		WindGust:            keypath.Number(realtime, nil, "wind_gust", "value"),
		WindBearing:         keypath.Number(realtime, nil, "wind_direction", "value"),
		CloudCover:          keypath.Number(realtime, units.PercentToFraction, "cloud_cover", "value"),
		Visibility:          keypath.Number(realtime, nil, "visibility", "value"),
		Ozone:               keypath.Number(realtime, nil, "o3", "value"),
	}
	if iv, err := interval.Parse(keypath.Text(realtime, "observation_time", "value")); err == nil {
		cur.Time = iv.Start
	}
	doc.Currently = cur
}

// mergeMinutely fills the minutely section from the nowcast, but only
// when no minute data exists yet. Existing minute data is never
// overwritten.
func (a *Adapter) mergeMinutely(doc *darksky.Forecast, nowcast gjson.Result) {
	if doc.Minutely != nil && len(doc.Minutely.Data) > 0 {
		return
	}
	var data []*darksky.DataPoint
	for _, minute := range nowcast.Array() {
		iv, err := interval.Parse(keypath.Text(minute, "observation_time", "value"))
		if err != nil {
			a.logger.Warn("skipping nowcast entry with bad observation time", "error", err)
			continue
		}
		data = append(data, &darksky.DataPoint{
			Time:            iv.Start,
			PrecipIntensity: keypath.Number(minute, nil, "precipitation", "value"),
			PrecipType:      precipType(minute),
		})
	}
	if len(data) == 0 {
		return
	}
	doc.Minutely = &darksky.DataBlock{Data: data}
}

// mergeHourly aligns the ClimaCell hourly samples to the existing
// hourly skeleton by timestamp and overwrites each matched slot. With
// no skeleton in place it synthesizes 48 hourly slots from the top of
// the current hour.
func (a *Adapter) mergeHourly(doc *darksky.Forecast, hourly gjson.Result, now time.Time) {
	if doc.Hourly == nil || len(doc.Hourly.Data) == 0 {
		start := now.UTC().Truncate(time.Hour).Unix()
		data := make([]*darksky.DataPoint, 0, hourlySlots)
		for i := int64(0); i < hourlySlots; i++ {
			data = append(data, &darksky.DataPoint{Time: start + i*3600})
		}
		doc.Hourly = &darksky.DataBlock{Data: data}
	}
	data := doc.Hourly.Data

	samples := hourly.Array()
	for i, slot := range data {
		if i >= len(samples) {
			break
		}
		sample := samples[i]
		iv, err := interval.Parse(keypath.Text(sample, "observation_time", "value"))
		if err != nil || iv.Start != slot.Time {
			continue
		}
		code := keypath.Text(sample, "weather_code", "value")
		data[i] = &darksky.DataPoint{
			Time:                slot.Time,
			Summary:             icons.SummaryFromClimacellCode(a.logger, code),
			Icon:                icons.FromClimacellCode(a.logger, code),
			PrecipIntensity:     keypath.Number(sample, nil, "precipitation", "value"),
			PrecipProbability:   keypath.Number(sample, units.PercentToFraction, "precipitation_probability", "value"),
			PrecipType:          precipType(sample),
			Temperature:         keypath.Number(sample, nil, "temp", "value"),
			ApparentTemperature: keypath.Number(sample, nil, "feels_like", "value"),
			DewPoint:            keypath.Number(sample, nil, "dewpoint", "value"),
			Humidity:            keypath.Number(sample, units.PercentToFraction, "humidity", "value"),
			Pressure:            keypath.Number(sample, nil, "baro_pressure", "value"),
			WindSpeed:           keypath.Number(sample, nil, "wind_speed", "value"),
			WindGust:            keypath.Number(sample, nil, "wind_gust", "value"),
			WindBearing:         keypath.Number(sample, nil, "wind_direction", "value"),
			CloudCover:          keypath.Number(sample, units.PercentToFraction, "cloud_cover", "value"),
			Visibility:          keypath.Number(sample, nil, "visibility", "value"),
			Ozone:               keypath.Number(sample, nil, "o3", "value"),
		}
	}

	doc.Hourly.Summary = data[0].Summary
	doc.Hourly.Icon = data[0].Icon
	if doc.Minutely != nil {
		doc.Minutely.Summary = data[0].Summary
		doc.Minutely.Icon = data[0].Icon
	}
}

// mergeDaily overwrites the daily skeleton with ClimaCell data,
// carrying forward the handful of fields ClimaCell's daily product
// does not supply.
func (a *Adapter) mergeDaily(doc *darksky.Forecast, daily gjson.Result, now time.Time) {
	if doc.Daily == nil || len(doc.Daily.Data) == 0 {
		utc := now.UTC()
		start := time.Date(utc.Year(), utc.Month(), utc.Day(), 0, 0, 0, 0, time.UTC).Unix()
		data := make([]*darksky.DailyPoint, 0, dailyDays)
		for i := int64(0); i < dailyDays; i++ {
			data = append(data, &darksky.DailyPoint{Time: start + i*secondsPerDay})
		}
		doc.Daily = &darksky.DailyBlock{Data: data}
	}
	data := doc.Daily.Data

	// Pad short skeletons out to 8 days, timestamp only.
	for len(data) < dailyDays {
		data = append(data, &darksky.DailyPoint{
			Time: data[len(data)-1].Time + secondsPerDay,
		})
	}

	// Skip leading ClimaCell days that predate the skeleton's first
	// day. Sample dates carry no zone, so they resolve to midnight in
	// the document's timezone, matching the skeleton's slot times.
	loc, err := time.LoadLocation(doc.Timezone)
	if err != nil {
		loc = time.UTC
	}
	samples := daily.Array()
	offset := 0
	for offset < len(samples) {
		ts, err := a.dailySampleTime(samples[offset], loc)
		if err != nil || ts >= data[0].Time {
			break
		}
		offset++
	}

	for i, day := range data {
		if offset+i >= len(samples) {
			break
		}
		data[i] = a.buildDay(day, samples[offset+i])
	}

	doc.Daily.Data = data
	doc.Daily.Summary = data[0].Summary
	doc.Daily.Icon = data[0].Icon
}

func (a *Adapter) dailySampleTime(sample gjson.Result, loc *time.Location) (int64, error) {
	t, err := time.ParseInLocation(ccDailyDateLayout, keypath.Text(sample, "observation_time", "value"), loc)
	if err != nil {
		return 0, err
	}
	return t.Unix(), nil
}

// buildDay creates the merged entry for one day. prev is the skeleton
// entry being replaced; its windSpeed, windBearing, cloudCover, and
// visibility carry forward because ClimaCell's daily product lacks
// point values for them.
func (a *Adapter) buildDay(prev *darksky.DailyPoint, sample gjson.Result) *darksky.DailyPoint {
	code := keypath.Text(sample, "weather_code", "value")
	day := &darksky.DailyPoint{
		Time:                   prev.Time,
		Summary:                icons.SummaryFromClimacellCode(a.logger, code),
		Icon:                   icons.FromClimacellCode(a.logger, code),
		MoonPhase:              darksky.Float(astro.MoonPhase(time.Unix(prev.Time, 0).UTC())),
		PrecipIntensity:        keypath.Number(sample, nil, "precipitation", 0, "max", "value"),
		PrecipIntensityMax:     keypath.Number(sample, nil, "precipitation", 0, "max", "value"),
		PrecipProbability:      keypath.Number(sample, units.PercentToFraction, "precipitation_probability", "value"),
		WindSpeed:              prev.WindSpeed,
		WindBearing:            prev.WindBearing,
		CloudCover:             prev.CloudCover,
		Visibility:             prev.Visibility,
	}
	if iv, err := interval.Parse(keypath.Text(sample, "sunrise", "value")); err == nil {
		day.SunriseTime = darksky.Int(iv.Start)
	}
	if iv, err := interval.Parse(keypath.Text(sample, "sunset", "value")); err == nil {
		day.SunsetTime = darksky.Int(iv.Start)
	}
	if iv, err := interval.Parse(keypath.Text(sample, "precipitation", 0, "observation_time")); err == nil {
		day.PrecipIntensityMaxTime = darksky.Int(iv.Start)
	}

	// temp and feels_like arrive as a sample list holding one min and
	// one max entry, each with its own timestamp.
	for _, t := range keypath.Walk(sample, "temp").Array() {
		ts := a.sampleTimestamp(t)
		if v := keypath.Number(t, nil, "min", "value"); v != nil {
			day.TemperatureLow, day.TemperatureLowTime = v, ts
			day.TemperatureMin, day.TemperatureMinTime = v, ts
		}
		if v := keypath.Number(t, nil, "max", "value"); v != nil {
			day.TemperatureHigh, day.TemperatureHighTime = v, ts
			day.TemperatureMax, day.TemperatureMaxTime = v, ts
		}
	}
	for _, t := range keypath.Walk(sample, "feels_like").Array() {
		ts := a.sampleTimestamp(t)
		if v := keypath.Number(t, nil, "min", "value"); v != nil {
			day.ApparentTemperatureLow, day.ApparentTemperatureLowTime = v, ts
			day.ApparentTemperatureMin, day.ApparentTemperatureMinTime = v, ts
		}
		if v := keypath.Number(t, nil, "max", "value"); v != nil {
			day.ApparentTemperatureHigh, day.ApparentTemperatureHighTime = v, ts
			day.ApparentTemperatureMax, day.ApparentTemperatureMaxTime = v, ts
		}
	}

	// Daily humidity and pressure are the mean of the day's min and max.
	if avg, ok := minMaxMean(sample, "humidity"); ok {
		day.Humidity = darksky.Float(units.PercentToFraction(avg))
	}
	if avg, ok := minMaxMean(sample, "baro_pressure"); ok {
		day.Pressure = darksky.Float(units.Round2(avg))
	}

	// The day's max wind speed stands in for the gust.
	for _, t := range keypath.Walk(sample, "wind_speed").Array() {
		if v := keypath.Number(t, nil, "max", "value"); v != nil {
			day.WindGust = v
			day.WindGustTime = a.sampleTimestamp(t)
		}
	}

	return day
}

func (a *Adapter) sampleTimestamp(sample gjson.Result) *int64 {
	iv, err := interval.Parse(keypath.Text(sample, "observation_time"))
	if err != nil {
		return nil
	}
	return darksky.Int(iv.Start)
}

func minMaxMean(sample gjson.Result, field string) (float64, bool) {
	var total float64
	var count int
	for _, t := range keypath.Walk(sample, field).Array() {
		if v := keypath.Number(t, nil, "min", "value"); v != nil {
			total += *v
			count++
		}
		if v := keypath.Number(t, nil, "max", "value"); v != nil {
			total += *v
			count++
		}
	}
	if count == 0 {
		return 0, false
	}
	return total / float64(count), true
}

// precipType returns the precipitation type, treating the literal
// string "none" as absent.
func precipType(sample gjson.Result) *string {
	s := keypath.String(sample, nil, "precipitation_type", "value")
	if s == nil || *s == "none" {
		return nil
	}
	return s
}
