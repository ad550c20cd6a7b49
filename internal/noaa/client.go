// Package noaa is the primary provider: the api.weather.gov forecast
// service. The client fetches the raw documents; the adapter in this
// package reshapes them into the unified forecast format.
package noaa

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/tidwall/gjson"

	"darksky-relay/internal/httputil"
)

const DefaultBaseURL = "https://api.weather.gov"

// Client performs raw requests against the NOAA API. weather.gov
// requires a contact string in the User-Agent header of every call.
type Client struct {
	baseURL   string
	userAgent string
	fetcher   *httputil.Fetcher
}

func NewClient(baseURL, userAgent string, client *http.Client) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		baseURL:   strings.TrimSuffix(baseURL, "/"),
		userAgent: userAgent,
		fetcher:   httputil.NewFetcher("noaa", client),
	}
}

func (c *Client) headers() map[string]string {
	return map[string]string{
		"User-Agent": c.userAgent,
		"Accept":     "application/geo+json",
	}
}

// Points resolves a coordinate to its grid descriptor: timezone,
// forecast endpoint URLs, and the region the point falls in.
func (c *Client) Points(ctx context.Context, lat, lon float64) (gjson.Result, error) {
	url := fmt.Sprintf("%s/points/%v,%v", c.baseURL, lat, lon)
	return c.fetcher.GetJSON(ctx, "points", url, c.headers())
}

// Get follows one of the URLs embedded in a points or stations
// document. The endpoint name is only a metrics label.
func (c *Client) Get(ctx context.Context, endpoint, url string) (gjson.Result, error) {
	if url == "" {
		return gjson.Result{}, fmt.Errorf("no %s URL in points document", endpoint)
	}
	return c.fetcher.GetJSON(ctx, endpoint, url, c.headers())
}

func (c *Client) alertsURL(lat, lon float64) string {
	return fmt.Sprintf("%s/alerts?point=%v,%v", c.baseURL, lat, lon)
}

func (c *Client) zonesURL(zoneType, area string) string {
	return fmt.Sprintf("%s/zones?type=%s&area=%s", c.baseURL, zoneType, area)
}
