// Package store persists the last successfully assembled forecast
// document per location. When both upstream providers are down, the
// snapshot is served instead of an error.
package store

import (
	"database/sql"
	"fmt"
	"time"
)

type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// locationKey collapses a coordinate to four decimal places (~11m), so
// that repeated requests for the same place hit the same row.
func locationKey(lat, lon float64) string {
	return fmt.Sprintf("%.4f,%.4f", lat, lon)
}

// SaveSnapshot stores the serialized document for a location,
// replacing any previous snapshot. Concurrent writers race and the
// last one wins; snapshots are best-effort by design.
func (s *Store) SaveSnapshot(lat, lon float64, document []byte) error {
	_, err := s.db.Exec(`
		INSERT INTO snapshots (location, document, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT(location) DO UPDATE SET
			document = excluded.document,
			updated_at = excluded.updated_at
	`, locationKey(lat, lon), string(document), time.Now().UTC())
	return err
}

// LatestSnapshot returns the stored document for a location, or
// (nil, nil) when no snapshot exists.
func (s *Store) LatestSnapshot(lat, lon float64) ([]byte, error) {
	var document string
	err := s.db.QueryRow(`
		SELECT document FROM snapshots WHERE location = ?
	`, locationKey(lat, lon)).Scan(&document)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return []byte(document), nil
}

// PruneSnapshots deletes snapshots older than the cutoff and reports
// how many were removed.
func (s *Store) PruneSnapshots(olderThan time.Time) (int64, error) {
	res, err := s.db.Exec(`DELETE FROM snapshots WHERE updated_at < ?`, olderThan.UTC())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
