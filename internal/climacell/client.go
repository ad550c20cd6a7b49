// Package climacell is the secondary provider: the ClimaCell v3
// weather API. Its data overwrites and extends what the primary
// provider produced.
package climacell

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/tidwall/gjson"
	"golang.org/x/time/rate"

	"darksky-relay/internal/httputil"
)

const DefaultBaseURL = "https://api.climacell.co/v3/weather"

// Field lists per product. The free tier rejects requests naming
// fields outside these sets.
var (
	realtimeFields = []string{
		"precipitation", "precipitation:in/hr", "precipitation_type",
		"temp", "feels_like", "dewpoint", "wind_speed", "wind_gust",
		"baro_pressure:hPa", "visibility", "humidity", "wind_direction",
		"cloud_cover", "weather_code", "o3",
	}
	nowcastFields = []string{"precipitation:in/hr", "precipitation_type"}
	hourlyFields  = append(realtimeFields, "precipitation_probability")
	dailyFields   = []string{
		"temp", "feels_like", "wind_speed", "wind_direction",
		"baro_pressure:hPa", "precipitation", "precipitation:in/hr",
		"precipitation_probability", "visibility", "humidity",
		"sunrise", "sunset", "weather_code",
	}
)

// Client performs raw requests against the ClimaCell API. A shared
// limiter keeps the per-request fan-out inside the free-tier request
// budget.
type Client struct {
	baseURL string
	fetcher *httputil.Fetcher
	limiter *rate.Limiter
}

func NewClient(baseURL string, client *http.Client) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		fetcher: httputil.NewFetcher("climacell", client),
		limiter: rate.NewLimiter(rate.Every(time.Second), 4),
	}
}

func (c *Client) get(ctx context.Context, endpoint, path, apikey string, extra url.Values, fields []string) (gjson.Result, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return gjson.Result{}, fmt.Errorf("climacell rate limit: %w", err)
	}
	q := url.Values{}
	for k, vs := range extra {
		q[k] = vs
	}
	q.Set("unit_system", "us")
	q.Set("fields", strings.Join(fields, ","))
	headers := map[string]string{
		"Accept": "application/json",
		"apikey": apikey,
	}
	return c.fetcher.GetJSON(ctx, endpoint, c.baseURL+path+"?"+q.Encode(), headers)
}

func coordValues(lat, lon float64) url.Values {
	return url.Values{
		"lat": {strconv.FormatFloat(lat, 'f', -1, 64)},
		"lon": {strconv.FormatFloat(lon, 'f', -1, 64)},
	}
}

// Realtime fetches the current conditions.
func (c *Client) Realtime(ctx context.Context, apikey string, lat, lon float64) (gjson.Result, error) {
	return c.get(ctx, "realtime", "/realtime", apikey, coordValues(lat, lon), realtimeFields)
}

// Nowcast fetches the minute-by-minute precipitation forecast for the
// next hour, starting one minute from now.
func (c *Client) Nowcast(ctx context.Context, apikey string, lat, lon float64, now time.Time) (gjson.Result, error) {
	q := coordValues(lat, lon)
	q.Set("start_time", now.UTC().Add(time.Minute).Format("2006-01-02T15:04:05.000Z"))
	q.Set("end_time", now.UTC().Add(61*time.Minute).Format("2006-01-02T15:04:05.000Z"))
	q.Set("timestep", "1")
	return c.get(ctx, "nowcast", "/nowcast", apikey, q, nowcastFields)
}

// Hourly fetches the hourly forecast starting now.
func (c *Client) Hourly(ctx context.Context, apikey string, lat, lon float64) (gjson.Result, error) {
	q := coordValues(lat, lon)
	q.Set("start_time", "now")
	return c.get(ctx, "forecast_hourly", "/forecast/hourly", apikey, q, hourlyFields)
}

// Daily fetches the multi-day forecast starting now.
func (c *Client) Daily(ctx context.Context, apikey string, lat, lon float64) (gjson.Result, error) {
	q := coordValues(lat, lon)
	q.Set("start_time", "now")
	return c.get(ctx, "forecast_daily", "/forecast/daily", apikey, q, dailyFields)
}
