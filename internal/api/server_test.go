package api

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"darksky-relay/internal/darksky"
	"darksky-relay/internal/relay"
)

type fakeService struct {
	doc   *darksky.Forecast
	err   error
	calls int
}

func (f *fakeService) Forecast(ctx context.Context, apikey string, lat, lon float64) (*darksky.Forecast, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.doc, nil
}

func newTestServer(svc *fakeService) *httptest.Server {
	s := NewServer(svc, slog.New(slog.NewTextHandler(io.Discard, nil)), "0")
	return httptest.NewServer(s.Handler())
}

func TestForecastHandler(t *testing.T) {
	svc := &fakeService{doc: &darksky.Forecast{
		Latitude:  40.0,
		Longitude: -75.1,
		Timezone:  "America/New_York",
		Flags:     darksky.Flags{Sources: []string{"noaa"}, Units: "us"},
	}}
	srv := newTestServer(svc)
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/forecast/testkey/40,-75.1")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "application/json" {
		t.Errorf("content-type = %q", ct)
	}
	if resp.Header.Get("X-Response-Time") == "" {
		t.Error("X-Response-Time header missing")
	}

	body, _ := io.ReadAll(resp.Body)
	var doc darksky.Forecast
	if err := json.Unmarshal(body, &doc); err != nil {
		t.Fatalf("body is not valid JSON: %v", err)
	}
	if doc.Timezone != "America/New_York" {
		t.Errorf("timezone = %q", doc.Timezone)
	}
	// Pretty-printed output has indentation.
	if !strings.Contains(string(body), "\n  ") {
		t.Error("body should be pretty-printed")
	}
	if svc.calls != 1 {
		t.Errorf("service calls = %d, want 1", svc.calls)
	}
}

func TestForecastHandlerRejectsBadRequests(t *testing.T) {
	tests := []struct {
		name string
		path string
	}{
		{"missing coordinates", "/forecast/testkey"},
		{"malformed coordinates", "/forecast/testkey/abc,def"},
		{"single coordinate", "/forecast/testkey/40"},
		{"latitude below range", "/forecast/testkey/18.99,-75.1"},
		{"latitude above range", "/forecast/testkey/65.01,-75.1"},
		{"longitude below range", "/forecast/testkey/40,-162.01"},
		{"longitude above range", "/forecast/testkey/40,-66.99"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &fakeService{doc: &darksky.Forecast{}}
			srv := newTestServer(svc)
			defer srv.Close()

			resp, err := http.Get(srv.URL + tt.path)
			if err != nil {
				t.Fatal(err)
			}
			resp.Body.Close()
			if resp.StatusCode != http.StatusBadRequest {
				t.Errorf("status = %d, want 400", resp.StatusCode)
			}
			if svc.calls != 0 {
				t.Errorf("service calls = %d, rejection must happen before any upstream work", svc.calls)
			}
		})
	}
}

func TestForecastHandlerNoData(t *testing.T) {
	svc := &fakeService{err: relay.ErrNoData}
	srv := newTestServer(svc)
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/forecast/testkey/40,-75.1")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadGateway {
		t.Errorf("status = %d, want 502", resp.StatusCode)
	}
}

func TestForecastHandlerMethodNotAllowed(t *testing.T) {
	srv := newTestServer(&fakeService{doc: &darksky.Forecast{}})
	defer srv.Close()

	resp, err := http.Post(srv.URL+"/forecast/testkey/40,-75.1", "application/json", nil)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusMethodNotAllowed {
		t.Errorf("status = %d, want 405", resp.StatusCode)
	}
}

func TestHealthHandler(t *testing.T) {
	srv := newTestServer(&fakeService{doc: &darksky.Forecast{}})
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/health")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want 200", resp.StatusCode)
	}
}
