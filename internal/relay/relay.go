// Package relay aggregates the two upstream providers into one
// forecast document. The primary provider builds the skeleton, the
// secondary enriches it, and the finished document is persisted as the
// last-good snapshot for the location.
package relay

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"darksky-relay/internal/darksky"
	"darksky-relay/internal/metrics"
)

// ErrNoData reports that the primary provider failed and no snapshot
// exists for the location. The HTTP layer turns this into a 502.
var ErrNoData = errors.New("no forecast data available")

// PrimarySource builds a complete forecast document for a coordinate.
type PrimarySource interface {
	Build(ctx context.Context, lat, lon float64) (*darksky.Forecast, error)
}

// SecondarySource overlays additional data onto an existing document.
// A failed enrichment leaves the document untouched.
type SecondarySource interface {
	Enrich(ctx context.Context, doc *darksky.Forecast, apikey string) error
}

// SnapshotStore persists the last successfully assembled document per
// location.
type SnapshotStore interface {
	SaveSnapshot(lat, lon float64, document []byte) error
	LatestSnapshot(lat, lon float64) ([]byte, error)
}

type Service struct {
	primary   PrimarySource
	secondary SecondarySource
	snapshots SnapshotStore
	logger    *slog.Logger
}

func NewService(primary PrimarySource, secondary SecondarySource, snapshots SnapshotStore, logger *slog.Logger) *Service {
	return &Service{
		primary:   primary,
		secondary: secondary,
		snapshots: snapshots,
		logger:    logger,
	}
}

// Forecast assembles the document for a coordinate. The primary
// provider is mandatory: if it fails, the last-good snapshot is served
// when one exists and ErrNoData returned otherwise. Secondary
// enrichment is best-effort.
func (s *Service) Forecast(ctx context.Context, apikey string, lat, lon float64) (*darksky.Forecast, error) {
	doc, err := s.primary.Build(ctx, lat, lon)
	if err != nil {
		s.logger.Error("primary provider failed", "lat", lat, "lon", lon, "error", err)
		return s.fromSnapshot(lat, lon)
	}

	if err := s.secondary.Enrich(ctx, doc, apikey); err != nil {
		s.logger.Warn("secondary enrichment failed, serving primary data only",
			"lat", lat, "lon", lon, "error", err)
	}

	if len(doc.Alerts) == 0 {
		doc.Alerts = nil
	}

	if payload, err := json.Marshal(doc); err != nil {
		s.logger.Error("could not serialize document for snapshot", "error", err)
	} else if err := s.snapshots.SaveSnapshot(lat, lon, payload); err != nil {
		s.logger.Error("could not persist snapshot", "lat", lat, "lon", lon, "error", err)
	}

	metrics.ForecastRequestsTotal.WithLabelValues("ok").Inc()
	return doc, nil
}

// fromSnapshot serves the last-good document for the location, stale
// but better than nothing.
func (s *Service) fromSnapshot(lat, lon float64) (*darksky.Forecast, error) {
	raw, err := s.snapshots.LatestSnapshot(lat, lon)
	if err != nil {
		s.logger.Error("snapshot lookup failed", "lat", lat, "lon", lon, "error", err)
		metrics.ForecastRequestsTotal.WithLabelValues("error").Inc()
		return nil, ErrNoData
	}
	if raw == nil {
		metrics.ForecastRequestsTotal.WithLabelValues("error").Inc()
		return nil, ErrNoData
	}

	var doc darksky.Forecast
	if err := json.Unmarshal(raw, &doc); err != nil {
		metrics.ForecastRequestsTotal.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("%w: corrupt snapshot: %v", ErrNoData, err)
	}

	s.logger.Info("serving stale snapshot after upstream failure", "lat", lat, "lon", lon)
	metrics.SnapshotFallbacksTotal.Inc()
	metrics.ForecastRequestsTotal.WithLabelValues("stale").Inc()
	return &doc, nil
}
