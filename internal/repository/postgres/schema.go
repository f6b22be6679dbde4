package postgres

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// Bootstrap creates the schema if it does not exist. The unique index on
// (doctor_id, slot_date, slot_time) is what keeps concurrent materialization
// and booking safe; nothing in the write path works without it.
func Bootstrap(ctx context.Context, db *sqlx.DB) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS patients (
			id UUID PRIMARY KEY,
			name TEXT NOT NULL,
			email TEXT NOT NULL UNIQUE,
			phone TEXT,
			date_of_birth TEXT,
			address TEXT,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE TABLE IF NOT EXISTS doctors (
			id UUID PRIMARY KEY,
			name TEXT NOT NULL,
			email TEXT NOT NULL UNIQUE,
			phone TEXT,
			specialization TEXT NOT NULL DEFAULT '',
			experience_years INT NOT NULL DEFAULT 0,
			availability JSONB,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE TABLE IF NOT EXISTS appointments (
			id UUID PRIMARY KEY,
			patient_id UUID REFERENCES patients (id) ON DELETE CASCADE,
			doctor_id UUID NOT NULL REFERENCES doctors (id) ON DELETE CASCADE,
			slot_date TEXT NOT NULL,
			slot_time TEXT NOT NULL,
			status TEXT NOT NULL DEFAULT 'free'
				CHECK (status IN ('free', 'held', 'cancelled', 'completed')),
			notes TEXT,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			UNIQUE (doctor_id, slot_date, slot_time)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_appointments_patient_slot
			ON appointments (patient_id, slot_date, slot_time)`,
		`CREATE TABLE IF NOT EXISTS outbox_events (
			id UUID PRIMARY KEY,
			event_type TEXT NOT NULL,
			payload JSONB NOT NULL,
			status TEXT NOT NULL DEFAULT 'pending',
			retries INT NOT NULL DEFAULT 0,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			processed_at TIMESTAMPTZ
		)`,
	}

	for _, stmt := range statements {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to bootstrap schema: %w", err)
		}
	}
	return nil
}
