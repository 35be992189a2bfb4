package db

import (
	"database/sql"
	"fmt"
)

const patientColumns = `id, name, timezone, COALESCE(caregiver_webhook,''), COALESCE(discord_user_id,''), created_at, updated_at`

// EnsurePatient creates a bare patient row in timezone if none exists for id.
// An existing patient is left untouched.
func (d *DB) EnsurePatient(id, timezone string) error {
	if timezone == "" {
		timezone = "UTC"
	}
	_, err := d.conn.Exec("INSERT OR IGNORE INTO patients (id, timezone) VALUES (?, ?)", id, timezone)
	if err != nil {
		return fmt.Errorf("ensuring patient: %w", err)
	}
	return nil
}

// UpsertPatient creates the patient or replaces its profile fields.
func (d *DB) UpsertPatient(p Patient) error {
	if p.Timezone == "" {
		p.Timezone = "UTC"
	}
	_, err := d.conn.Exec(
		`INSERT INTO patients (id, name, timezone, caregiver_webhook, discord_user_id) VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			timezone = excluded.timezone,
			caregiver_webhook = excluded.caregiver_webhook,
			discord_user_id = excluded.discord_user_id,
			updated_at = datetime('now')`,
		p.ID, p.Name, p.Timezone, nullStr(p.CaregiverWebhook), nullStr(p.DiscordUserID),
	)
	if err != nil {
		return fmt.Errorf("upserting patient: %w", err)
	}
	return nil
}

// UpdatePatient changes selected profile fields.
func (d *DB) UpdatePatient(id string, fields map[string]any) error {
	return d.updateRow("patients", id, fields)
}

// GetPatient returns the patient, or nil if there is none.
func (d *DB) GetPatient(id string) (*Patient, error) {
	row := d.conn.QueryRow("SELECT "+patientColumns+" FROM patients WHERE id = ?", id)
	p, err := scanPatient(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting patient: %w", err)
	}
	return p, nil
}

// ListPatients returns every patient ordered by ID.
func (d *DB) ListPatients() ([]Patient, error) {
	rows, err := d.conn.Query("SELECT " + patientColumns + " FROM patients ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("listing patients: %w", err)
	}
	defer rows.Close()
	var out []Patient
	for rows.Next() {
		p, err := scanPatient(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning patient: %w", err)
		}
		out = append(out, *p)
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanPatient(s scanner) (*Patient, error) {
	var p Patient
	var created, updated string
	if err := s.Scan(&p.ID, &p.Name, &p.Timezone, &p.CaregiverWebhook, &p.DiscordUserID, &created, &updated); err != nil {
		return nil, err
	}
	p.CreatedAt = parseTime(created)
	p.UpdatedAt = parseTime(updated)
	return &p, nil
}
