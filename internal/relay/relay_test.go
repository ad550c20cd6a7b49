package relay

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"

	"darksky-relay/internal/darksky"
)

type fakePrimary struct {
	doc *darksky.Forecast
	err error
}

func (f *fakePrimary) Build(ctx context.Context, lat, lon float64) (*darksky.Forecast, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.doc, nil
}

type fakeSecondary struct {
	err    error
	called bool
}

func (f *fakeSecondary) Enrich(ctx context.Context, doc *darksky.Forecast, apikey string) error {
	f.called = true
	if f.err != nil {
		return f.err
	}
	doc.AddSource("climacell")
	return nil
}

type fakeSnapshots struct {
	saved   []byte
	stored  []byte
	loadErr error
}

func (f *fakeSnapshots) SaveSnapshot(lat, lon float64, document []byte) error {
	f.saved = document
	return nil
}

func (f *fakeSnapshots) LatestSnapshot(lat, lon float64) ([]byte, error) {
	return f.stored, f.loadErr
}

func primaryDoc() *darksky.Forecast {
	return &darksky.Forecast{
		Latitude:  40.0,
		Longitude: -75.1,
		Timezone:  "America/New_York",
		Flags:     darksky.Flags{Sources: []string{"noaa"}, Units: "us"},
	}
}

func newTestService(p *fakePrimary, sec *fakeSecondary, snaps *fakeSnapshots) *Service {
	return NewService(p, sec, snaps, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestForecastHappyPath(t *testing.T) {
	snaps := &fakeSnapshots{}
	sec := &fakeSecondary{}
	svc := newTestService(&fakePrimary{doc: primaryDoc()}, sec, snaps)

	doc, err := svc.Forecast(context.Background(), "k", 40.0, -75.1)
	if err != nil {
		t.Fatalf("Forecast: %v", err)
	}
	if !sec.called {
		t.Error("secondary adapter was not invoked")
	}
	if len(doc.Flags.Sources) != 2 {
		t.Errorf("sources = %v, want both providers", doc.Flags.Sources)
	}
	if snaps.saved == nil {
		t.Fatal("snapshot was not persisted")
	}
	var persisted darksky.Forecast
	if err := json.Unmarshal(snaps.saved, &persisted); err != nil {
		t.Fatalf("persisted snapshot is not valid JSON: %v", err)
	}
	if persisted.Timezone != "America/New_York" {
		t.Errorf("persisted timezone = %q", persisted.Timezone)
	}
}

func TestForecastSecondaryFailureIsBestEffort(t *testing.T) {
	snaps := &fakeSnapshots{}
	svc := newTestService(
		&fakePrimary{doc: primaryDoc()},
		&fakeSecondary{err: errors.New("climacell down")},
		snaps)

	doc, err := svc.Forecast(context.Background(), "k", 40.0, -75.1)
	if err != nil {
		t.Fatalf("Forecast: %v", err)
	}
	if len(doc.Flags.Sources) != 1 || doc.Flags.Sources[0] != "noaa" {
		t.Errorf("sources = %v, want primary only", doc.Flags.Sources)
	}
	if snaps.saved == nil {
		t.Error("primary-only document should still be snapshotted")
	}
}

func TestForecastEmptyAlertsDropped(t *testing.T) {
	doc := primaryDoc()
	doc.Alerts = []darksky.Alert{}
	svc := newTestService(&fakePrimary{doc: doc}, &fakeSecondary{}, &fakeSnapshots{})

	got, err := svc.Forecast(context.Background(), "k", 40.0, -75.1)
	if err != nil {
		t.Fatal(err)
	}
	if got.Alerts != nil {
		t.Error("empty alerts slice should be dropped before serialization")
	}
}

func TestForecastPrimaryFailureServesSnapshot(t *testing.T) {
	stored, _ := json.Marshal(primaryDoc())
	sec := &fakeSecondary{}
	svc := newTestService(
		&fakePrimary{err: errors.New("noaa down")},
		sec,
		&fakeSnapshots{stored: stored})

	doc, err := svc.Forecast(context.Background(), "k", 40.0, -75.1)
	if err != nil {
		t.Fatalf("Forecast: %v", err)
	}
	if doc.Timezone != "America/New_York" {
		t.Errorf("timezone = %q, want the snapshot document", doc.Timezone)
	}
	if sec.called {
		t.Error("secondary adapter must not run on the snapshot path")
	}
}

func TestForecastPrimaryFailureNoSnapshot(t *testing.T) {
	svc := newTestService(
		&fakePrimary{err: errors.New("noaa down")},
		&fakeSecondary{},
		&fakeSnapshots{})

	_, err := svc.Forecast(context.Background(), "k", 40.0, -75.1)
	if !errors.Is(err, ErrNoData) {
		t.Fatalf("err = %v, want ErrNoData", err)
	}
}

func TestForecastCorruptSnapshot(t *testing.T) {
	svc := newTestService(
		&fakePrimary{err: errors.New("noaa down")},
		&fakeSecondary{},
		&fakeSnapshots{stored: []byte("{not json")})

	_, err := svc.Forecast(context.Background(), "k", 40.0, -75.1)
	if !errors.Is(err, ErrNoData) {
		t.Fatalf("err = %v, want ErrNoData", err)
	}
}
