// Package api serves the DarkSky-compatible HTTP surface:
// GET /forecast/{apikey}/{lat},{lon}.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"darksky-relay/internal/darksky"
	"darksky-relay/internal/relay"
)

// Coordinates outside the continental-US-plus-margin bounding box are
// rejected before any upstream call; the primary provider only covers
// US territory.
const (
	minLatitude  = 19.0
	maxLatitude  = 65.0
	minLongitude = -162.0
	maxLongitude = -67.0
)

// ForecastService assembles the forecast document for a coordinate.
type ForecastService interface {
	Forecast(ctx context.Context, apikey string, lat, lon float64) (*darksky.Forecast, error)
}

type Server struct {
	forecasts ForecastService
	logger    *slog.Logger
	port      string
}

func NewServer(forecasts ForecastService, logger *slog.Logger, port string) *Server {
	return &Server{forecasts: forecasts, logger: logger, port: port}
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/forecast/", s.handleForecast)
	mux.HandleFunc("/health", s.handleHealth)
	mux.Handle("/metrics", promhttp.Handler())
	return mux
}

func (s *Server) Run(ctx context.Context) error {
	server := &http.Server{
		Addr:    ":" + s.port,
		Handler: s.Handler(),
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		server.Shutdown(shutdownCtx)
	}()

	s.logger.Info("listening", "port", s.port)
	if err := server.ListenAndServe(); err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

// handleForecast serves GET /forecast/{apikey}/{lat},{lon}. The apikey
// path segment is the caller's ClimaCell key, passed through to the
// secondary provider the way the retired DarkSky URL scheme carried
// its key.
func (s *Server) handleForecast(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	apikey, lat, lon, err := parseForecastPath(r.URL.Path)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	started := time.Now()
	doc, err := s.forecasts.Forecast(r.Context(), apikey, lat, lon)
	if err != nil {
		if errors.Is(err, relay.ErrNoData) {
			http.Error(w, "no forecast data available", http.StatusBadGateway)
			return
		}
		s.logger.Error("forecast request failed", "lat", lat, "lon", lon, "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	body, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		s.logger.Error("could not serialize forecast document", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("X-Response-Time", time.Since(started).String())
	w.Write(body)
}

// parseForecastPath splits "/forecast/{apikey}/{lat},{lon}" and
// validates the coordinates.
func parseForecastPath(path string) (apikey string, lat, lon float64, err error) {
	rest := strings.TrimPrefix(path, "/forecast/")
	parts := strings.Split(rest, "/")
	if len(parts) != 2 || parts[0] == "" {
		return "", 0, 0, errors.New("expected /forecast/{apikey}/{latitude},{longitude}")
	}
	apikey = parts[0]

	coords := strings.Split(parts[1], ",")
	if len(coords) != 2 {
		return "", 0, 0, errors.New("coordinates must be {latitude},{longitude}")
	}
	lat, err = strconv.ParseFloat(coords[0], 64)
	if err != nil {
		return "", 0, 0, fmt.Errorf("invalid latitude %q", coords[0])
	}
	lon, err = strconv.ParseFloat(coords[1], 64)
	if err != nil {
		return "", 0, 0, fmt.Errorf("invalid longitude %q", coords[1])
	}
	if lat < minLatitude || lat > maxLatitude {
		return "", 0, 0, fmt.Errorf("latitude %v out of range [%v, %v]", lat, minLatitude, maxLatitude)
	}
	if lon < minLongitude || lon > maxLongitude {
		return "", 0, 0, fmt.Errorf("longitude %v out of range [%v, %v]", lon, minLongitude, maxLongitude)
	}
	return apikey, lat, lon, nil
}
