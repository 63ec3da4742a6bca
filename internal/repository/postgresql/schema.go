package postgresql

import (
	"database/sql"
	"fmt"
)

var schema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id SERIAL PRIMARY KEY,
		username TEXT UNIQUE NOT NULL,
		email TEXT UNIQUE,
		password_hash TEXT NOT NULL,
		role TEXT NOT NULL DEFAULT 'user',
		created_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE TABLE IF NOT EXISTS parking_lots (
		id SERIAL PRIMARY KEY,
		name TEXT NOT NULL,
		price_per_hour NUMERIC(10,2) NOT NULL CHECK (price_per_hour > 0),
		address TEXT,
		pin_code TEXT,
		total_spots INTEGER NOT NULL CHECK (total_spots > 0),
		created_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE TABLE IF NOT EXISTS parking_spots (
		id SERIAL PRIMARY KEY,
		lot_id INTEGER NOT NULL REFERENCES parking_lots (id) ON DELETE CASCADE,
		status TEXT NOT NULL DEFAULT 'A' CHECK (status IN ('A', 'O'))
	)`,
	`CREATE INDEX IF NOT EXISTS idx_parking_spots_lot_status ON parking_spots (lot_id, status)`,
	// spot_id carries no foreign key: reservations are append-only history
	// and must survive deletion of the lot (and its spots).
	`CREATE TABLE IF NOT EXISTS reservations (
		id SERIAL PRIMARY KEY,
		spot_id INTEGER NOT NULL,
		user_id INTEGER NOT NULL REFERENCES users (id),
		vehicle_number TEXT NOT NULL,
		parked_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
		left_at TIMESTAMPTZ,
		cost DOUBLE PRECISION NOT NULL DEFAULT 0
	)`,
	`CREATE INDEX IF NOT EXISTS idx_reservations_user ON reservations (user_id, parked_at)`,
	`CREATE TABLE IF NOT EXISTS export_jobs (
		id SERIAL PRIMARY KEY,
		user_id INTEGER NOT NULL REFERENCES users (id),
		status TEXT NOT NULL DEFAULT 'queued',
		file_path TEXT,
		created_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
		completed_at TIMESTAMPTZ
	)`,
}

// Migrate applies the schema. Statements are idempotent, so running it on
// every startup is safe.
func Migrate(db *sql.DB) error {
	for _, stmt := range schema {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("applying schema: %w", err)
		}
	}
	return nil
}
