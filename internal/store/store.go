// Package store durably records per-cycle statistics in SQLite so
// operators can see cycle history across process restarts. This is
// operational telemetry, not aircraft history — it never stores a
// Plane or Observation.
package store

import (
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/hangarwatch/aerofuse/pkg/logger"
)

// maxRows bounds the cycle_stats table; Record periodically trims
// anything beyond the most recent maxRows entries.
const maxRows = 500

// Store is a SQLite-backed append-only log of cycle statistics.
type Store struct {
	db     *sql.DB
	logger *logger.Logger
}

// Open opens (and if needed creates) the stats database at dbPath.
func Open(dbPath string, log *logger.Logger) (*Store, error) {
	storeLogger := log.Named("store")

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open stats database: %w", err)
	}

	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA busy_timeout=5000",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to set pragma %q: %w", pragma, err)
		}
	}

	if err := initSchema(db); err != nil {
		db.Close()
		return nil, err
	}

	return &Store{db: db, logger: storeLogger}, nil
}

func initSchema(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS cycle_stats (
			id              INTEGER PRIMARY KEY AUTOINCREMENT,
			runs            INTEGER NOT NULL,
			successful_publishes INTEGER NOT NULL,
			errors          INTEGER NOT NULL,
			aircraft_count  INTEGER NOT NULL,
			nearest_hex     TEXT,
			recorded_at     TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create cycle_stats table: %w", err)
	}
	return nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// CycleRecord is one row of cycle history.
type CycleRecord struct {
	Runs                int64
	SuccessfulPublishes int64
	Errors              int64
	AircraftCount       int
	NearestHex          string
	RecordedAt          time.Time
}

// Record appends one cycle's counters and trims the table back to
// maxRows if it has grown past that.
func (s *Store) Record(rec CycleRecord) error {
	_, err := s.db.Exec(
		`INSERT INTO cycle_stats (runs, successful_publishes, errors, aircraft_count, nearest_hex) VALUES (?, ?, ?, ?, ?)`,
		rec.Runs, rec.SuccessfulPublishes, rec.Errors, rec.AircraftCount, rec.NearestHex,
	)
	if err != nil {
		return fmt.Errorf("failed to record cycle stats: %w", err)
	}

	if _, err := s.db.Exec(`
		DELETE FROM cycle_stats WHERE id NOT IN (
			SELECT id FROM cycle_stats ORDER BY id DESC LIMIT ?
		)`, maxRows); err != nil {
		s.logger.Warn("failed to trim cycle_stats", logger.Error(err))
	}

	return nil
}

// Recent returns up to limit of the most recently recorded cycles,
// newest first.
func (s *Store) Recent(limit int) ([]CycleRecord, error) {
	rows, err := s.db.Query(
		`SELECT runs, successful_publishes, errors, aircraft_count, nearest_hex, recorded_at
		 FROM cycle_stats ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query cycle_stats: %w", err)
	}
	defer rows.Close()

	var out []CycleRecord
	for rows.Next() {
		var r CycleRecord
		var nearestHex sql.NullString
		if err := rows.Scan(&r.Runs, &r.SuccessfulPublishes, &r.Errors, &r.AircraftCount, &nearestHex, &r.RecordedAt); err != nil {
			return nil, fmt.Errorf("failed to scan cycle_stats row: %w", err)
		}
		r.NearestHex = nearestHex.String
		out = append(out, r)
	}
	return out, rows.Err()
}
