package db

import (
	"fmt"
	"time"
)

// CreateAlert records an emergency alert for a patient.
func (d *DB) CreateAlert(patientID, reason string) (int64, error) {
	res, err := d.conn.Exec("INSERT INTO emergency_alerts (patient_id, reason) VALUES (?, ?)", patientID, reason)
	if err != nil {
		return 0, fmt.Errorf("creating alert: %w", err)
	}
	return res.LastInsertId()
}

// ListAlerts returns a patient's alerts, newest first, optionally filtered by status.
func (d *DB) ListAlerts(patientID, status string) ([]Alert, error) {
	q := "SELECT id, patient_id, reason, status, created_at, COALESCE(acknowledged_at,'') FROM emergency_alerts WHERE patient_id = ?"
	args := []any{patientID}
	if status != "" {
		q += " AND status = ?"
		args = append(args, status)
	}
	q += " ORDER BY created_at DESC, id DESC"

	rows, err := d.conn.Query(q, args...)
	if err != nil {
		return nil, fmt.Errorf("listing alerts: %w", err)
	}
	defer rows.Close()
	var out []Alert
	for rows.Next() {
		var a Alert
		var created, acked string
		if err := rows.Scan(&a.ID, &a.PatientID, &a.Reason, &a.Status, &created, &acked); err != nil {
			return nil, fmt.Errorf("scanning alert: %w", err)
		}
		a.CreatedAt = parseTime(created)
		a.AcknowledgedAt = parseTimePtr(acked)
		out = append(out, a)
	}
	return out, rows.Err()
}

// AcknowledgeAlert marks a pending alert as seen by the caregiver.
func (d *DB) AcknowledgeAlert(id int64, at time.Time) error {
	res, err := d.conn.Exec(
		"UPDATE emergency_alerts SET status = 'acknowledged', acknowledged_at = ? WHERE id = ? AND status = 'pending'",
		formatTime(at), id,
	)
	if err != nil {
		return fmt.Errorf("acknowledging alert: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("pending alert %d: %w", id, ErrNotFound)
	}
	return nil
}
