package repository

import (
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

type SQLiteDB struct {
	db *sql.DB
}

func NewSQLiteDB(path string) (*SQLiteDB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("error opening database: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("error while pinging database: %w", err)
	}

	// Single writer: sqlite serializes writes anyway, and a capped pool keeps
	// the CAS update from tripping over SQLITE_BUSY under claim storms.
	db.SetMaxOpenConns(1)

	s := &SQLiteDB{
		db: db,
	}
	if err := s.migrate(); err != nil {
		return nil, fmt.Errorf("error while migrating database: %w", err)
	}

	return s, nil
}

func (s *SQLiteDB) migrate() error {
	schema := `
		CREATE TABLE IF NOT EXISTS donations (
			id TEXT PRIMARY KEY,
			donor_id TEXT NOT NULL,
			title TEXT NOT NULL,
			quantity INTEGER NOT NULL,
			food_category TEXT NOT NULL,
			storage_req TEXT,
			perishability TEXT,
			allergens TEXT,
			dietary_tags TEXT,
			latitude REAL NOT NULL,
			longitude REAL NOT NULL,
			pickup_address TEXT,
			expiry_date DATETIME NOT NULL,
			window_start DATETIME NOT NULL,
			window_end DATETIME NOT NULL,
			status TEXT NOT NULL,
			delivery_status TEXT NOT NULL DEFAULT '',
			claimed_by TEXT NOT NULL DEFAULT '',
			ngo_latitude REAL NOT NULL DEFAULT 0,
			ngo_longitude REAL NOT NULL DEFAULT 0,
			ngo_address TEXT NOT NULL DEFAULT '',
			volunteer_id TEXT NOT NULL DEFAULT '',
			pickup_photo TEXT NOT NULL DEFAULT '',
			delivery_photo TEXT NOT NULL DEFAULT '',
			delivery_notes TEXT NOT NULL DEFAULT '',
			rejection_reason TEXT NOT NULL DEFAULT '',
			rating INTEGER NOT NULL DEFAULT 0,
			rating_comment TEXT NOT NULL DEFAULT '',
			version INTEGER NOT NULL DEFAULT 1,
			created_at DATETIME NOT NULL,
			updated_at DATETIME NOT NULL
		);

		CREATE TABLE IF NOT EXISTS custody_records (
			id TEXT PRIMARY KEY,
			donation_id TEXT NOT NULL,
			checkpoint TEXT NOT NULL,
			photo_url TEXT NOT NULL,
			notes TEXT NOT NULL DEFAULT '',
			actor_id TEXT NOT NULL,
			recorded_at DATETIME NOT NULL,
			FOREIGN KEY (donation_id) REFERENCES donations(id)
		);

		CREATE TABLE IF NOT EXISTS mission_cancellations (
			id TEXT PRIMARY KEY,
			donation_id TEXT NOT NULL,
			volunteer_id TEXT NOT NULL,
			reason TEXT NOT NULL,
			created_at DATETIME NOT NULL,
			FOREIGN KEY (donation_id) REFERENCES donations(id)
		);

		CREATE TABLE IF NOT EXISTS ngo_profiles (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL DEFAULT '',
			daily_capacity INTEGER NOT NULL,
			storage_facilities TEXT,
			is_urgent_need INTEGER NOT NULL DEFAULT 0,
			latitude REAL NOT NULL DEFAULT 0,
			longitude REAL NOT NULL DEFAULT 0,
			address TEXT NOT NULL DEFAULT ''
		);

		CREATE TABLE IF NOT EXISTS volunteer_profiles (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL DEFAULT '',
			vehicle_type TEXT NOT NULL DEFAULT '',
			max_weight INTEGER NOT NULL,
			completed_missions INTEGER NOT NULL DEFAULT 0,
			latitude REAL NOT NULL DEFAULT 0,
			longitude REAL NOT NULL DEFAULT 0
		);

		CREATE INDEX IF NOT EXISTS idx_donations_status ON donations(status);
		CREATE INDEX IF NOT EXISTS idx_donations_expiry ON donations(expiry_date);
		CREATE INDEX IF NOT EXISTS idx_donations_donor ON donations(donor_id);
		CREATE INDEX IF NOT EXISTS idx_donations_claimed_by ON donations(claimed_by);
		CREATE INDEX IF NOT EXISTS idx_custody_donation ON custody_records(donation_id);
		CREATE INDEX IF NOT EXISTS idx_cancellations_donation ON mission_cancellations(donation_id);
	`

	_, err := s.db.Exec(schema)
	return err
}

func (s *SQLiteDB) Close() error {
	return s.db.Close()
}
