package db

import (
	"database/sql"
	"fmt"
	"time"
)

const reminderColumns = `id, patient_id, title, due_at, status, confidence, COALESCE(source_text,''), created_at, COALESCE(fired_at,'')`

// CreateReminder stores a pending reminder and returns its ID.
func (d *DB) CreateReminder(r NewReminder) (int64, error) {
	if r.Confidence == "" {
		r.Confidence = "exact"
	}
	res, err := d.conn.Exec(
		"INSERT INTO reminders (patient_id, title, due_at, confidence, source_text) VALUES (?, ?, ?, ?, ?)",
		r.PatientID, r.Title, formatTime(r.DueAt), r.Confidence, nullStr(r.SourceText),
	)
	if err != nil {
		return 0, fmt.Errorf("creating reminder: %w", err)
	}
	return res.LastInsertId()
}

// GetReminder returns a reminder by ID, or nil if there is none.
func (d *DB) GetReminder(id int64) (*Reminder, error) {
	rows, err := d.conn.Query("SELECT "+reminderColumns+" FROM reminders WHERE id = ?", id)
	if err != nil {
		return nil, fmt.Errorf("getting reminder: %w", err)
	}
	defer rows.Close()
	out, err := scanReminders(rows)
	if err != nil || len(out) == 0 {
		return nil, err
	}
	return &out[0], nil
}

// ListUpcomingReminders returns a patient's pending reminders due at or after now.
func (d *DB) ListUpcomingReminders(patientID string, now time.Time) ([]Reminder, error) {
	return d.queryReminders(
		"SELECT "+reminderColumns+" FROM reminders WHERE patient_id = ? AND status = 'pending' AND due_at >= ? ORDER BY due_at ASC",
		patientID, formatTime(now),
	)
}

// ListRemindersBetween returns a patient's pending reminders due in [from, to).
func (d *DB) ListRemindersBetween(patientID string, from, to time.Time) ([]Reminder, error) {
	return d.queryReminders(
		"SELECT "+reminderColumns+" FROM reminders WHERE patient_id = ? AND status = 'pending' AND due_at >= ? AND due_at < ? ORDER BY due_at ASC",
		patientID, formatTime(from), formatTime(to),
	)
}

// ListReminders returns every reminder for a patient regardless of status.
func (d *DB) ListReminders(patientID string) ([]Reminder, error) {
	return d.queryReminders(
		"SELECT "+reminderColumns+" FROM reminders WHERE patient_id = ? ORDER BY due_at ASC",
		patientID,
	)
}

// ListDueReminders returns pending reminders for all patients whose due_at is now or past.
func (d *DB) ListDueReminders(now time.Time) ([]Reminder, error) {
	return d.queryReminders(
		"SELECT "+reminderColumns+" FROM reminders WHERE status = 'pending' AND due_at <= ? ORDER BY due_at ASC",
		formatTime(now),
	)
}

// FindPendingReminders returns a patient's pending reminders whose title
// contains query, case-insensitively.
func (d *DB) FindPendingReminders(patientID, query string) ([]Reminder, error) {
	return d.queryReminders(
		"SELECT "+reminderColumns+" FROM reminders WHERE patient_id = ? AND status = 'pending' AND instr(lower(title), lower(?)) > 0 ORDER BY due_at ASC",
		patientID, query,
	)
}

// CancelReminder moves a pending reminder to cancelled.
func (d *DB) CancelReminder(id int64) error {
	res, err := d.conn.Exec("UPDATE reminders SET status = 'cancelled' WHERE id = ? AND status = 'pending'", id)
	if err != nil {
		return fmt.Errorf("cancelling reminder: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("pending reminder %d: %w", id, ErrNotFound)
	}
	return nil
}

// MarkReminderFired marks a reminder as fired.
func (d *DB) MarkReminderFired(id int64, at time.Time) error {
	_, err := d.conn.Exec("UPDATE reminders SET status = 'fired', fired_at = ? WHERE id = ? AND status = 'pending'", formatTime(at), id)
	if err != nil {
		return fmt.Errorf("marking reminder fired: %w", err)
	}
	return nil
}

func (d *DB) queryReminders(query string, args ...any) ([]Reminder, error) {
	rows, err := d.conn.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing reminders: %w", err)
	}
	defer rows.Close()
	return scanReminders(rows)
}

func scanReminders(rows *sql.Rows) ([]Reminder, error) {
	var out []Reminder
	for rows.Next() {
		var r Reminder
		var due, created, fired string
		if err := rows.Scan(&r.ID, &r.PatientID, &r.Title, &due, &r.Status, &r.Confidence, &r.SourceText, &created, &fired); err != nil {
			return nil, fmt.Errorf("scanning reminder: %w", err)
		}
		r.DueAt = parseTime(due)
		r.CreatedAt = parseTime(created)
		r.FiredAt = parseTimePtr(fired)
		out = append(out, r)
	}
	return out, rows.Err()
}
