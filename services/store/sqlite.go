package store

import (
	"database/sql"

	_ "modernc.org/sqlite"

	"jmorrell/tyrescraper/internal/scraper"
	"jmorrell/tyrescraper/logger"
	"jmorrell/tyrescraper/pkg/errors"
)

const schema = `
CREATE TABLE IF NOT EXISTS tyres (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    website_name TEXT,
    tyre_brand TEXT,
    tyre_pattern TEXT DEFAULT 'unknown',
    tyre_size TEXT,
    seasonality TEXT DEFAULT 'unknown',
    price TEXT
)`

const insertObservation = `
INSERT INTO tyres (website_name, tyre_brand, tyre_pattern, tyre_size, seasonality, price)
VALUES (?, ?, ?, ?, ?, ?)`

// SQLiteStore appends observations to a sqlite database.
type SQLiteStore struct {
	db  *sql.DB
	log *logger.Logger
}

var _ Store = (*SQLiteStore)(nil)

// NewSQLiteStore opens the database at path and creates the tyres table
// idempotently.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, errors.NewStore("failed to open database", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, errors.NewStore("failed to create schema", err)
	}
	return &SQLiteStore{db: db, log: logger.ForStore()}, nil
}

// Record appends one observation row and logs it. Identical tuples from
// different branches are intentionally distinct rows.
func (s *SQLiteStore) Record(obs scraper.Observation) error {
	s.log.Info().
		Str("website", string(obs.Source)).
		Str("brand", obs.Brand).
		Str("pattern", obs.Pattern).
		Str("size", obs.Size).
		Str("season", obs.Season).
		Str("price", obs.Price).
		Msg("Recording observation")

	_, err := s.db.Exec(insertObservation,
		string(obs.Source), obs.Brand, obs.Pattern, obs.Size, obs.Season, obs.Price)
	if err != nil {
		return errors.NewStore("failed to insert observation", err)
	}
	return nil
}

// Close closes the underlying database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
