package db

import (
	"fmt"

	"gorm.io/gorm"
)

var migrationStatements = []string{
	// plate_records - locally captured plate observations with their
	// send state and hot sheet enrichment
	`CREATE TABLE IF NOT EXISTS plate_records (
		id              BIGSERIAL PRIMARY KEY,
		full_image      TEXT NOT NULL,
		plate_image     TEXT NOT NULL,
		plate_text      TEXT NOT NULL,
		source_type     TEXT NOT NULL,
		send_state      TEXT NOT NULL DEFAULT 'unsent',
		created_at      TIMESTAMPTZ NOT NULL DEFAULT now(),

		is_hot          BOOLEAN NOT NULL DEFAULT false,
		hot_fetched_at  TIMESTAMPTZ,
		raw_hot         JSONB,
		make            TEXT,
		model           TEXT,
		color           TEXT,
		flags           JSONB,
		notes           TEXT
	);`,
	`CREATE INDEX IF NOT EXISTS idx_plate_records_created_at ON plate_records(created_at DESC);`,
	`CREATE INDEX IF NOT EXISTS idx_plate_records_send_state ON plate_records(send_state);`,
	`CREATE INDEX IF NOT EXISTS idx_plate_records_plate_text ON plate_records(plate_text);`,

	// hot_sheet - the watchlist snapshot. Replaced wholesale on refresh,
	// never merged; entries have no stable identity across fetches.
	`CREATE TABLE IF NOT EXISTS hot_sheet (
		id          BIGSERIAL PRIMARY KEY,
		plate_text  TEXT NOT NULL,
		listed_at   TIMESTAMPTZ NOT NULL DEFAULT now()
	);`,
	`CREATE INDEX IF NOT EXISTS idx_hot_sheet_plate_text ON hot_sheet(plate_text);`,

	// Normalization helper mirroring utils.NormalizePlate, usable in
	// ad-hoc queries against the captured records.
	`CREATE OR REPLACE FUNCTION normalize_plate_text(plate TEXT)
	RETURNS TEXT AS $$
	BEGIN
		RETURN REGEXP_REPLACE(UPPER(plate), '[^A-Z0-9]', '', 'g');
	END;
	$$ LANGUAGE plpgsql IMMUTABLE;`,
	`CREATE INDEX IF NOT EXISTS idx_plate_records_plate_text_norm
		ON plate_records (normalize_plate_text(plate_text));`,
	`CREATE INDEX IF NOT EXISTS idx_hot_sheet_plate_text_norm
		ON hot_sheet (normalize_plate_text(plate_text));`,
}

func runMigrations(db *gorm.DB) error {
	for i, stmt := range migrationStatements {
		if err := db.Exec(stmt).Error; err != nil {
			return fmt.Errorf("migration %d failed: %w", i+1, err)
		}
	}
	return nil
}
