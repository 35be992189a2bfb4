package db

import (
	"errors"
	"testing"
	"time"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	d, err := Open(":memory:")
	if err != nil {
		t.Fatalf("opening test db: %v", err)
	}
	t.Cleanup(func() { d.Close() })
	return d
}

var now = time.Date(2024, 12, 25, 10, 0, 0, 0, time.UTC)

func mustCreateReminder(t *testing.T, d *DB, patientID, title string, due time.Time) int64 {
	t.Helper()
	id, err := d.CreateReminder(NewReminder{PatientID: patientID, Title: title, DueAt: due, Confidence: "exact"})
	if err != nil {
		t.Fatalf("CreateReminder: %v", err)
	}
	return id
}

// --- Patients ---

func TestEnsurePatient_Idempotent(t *testing.T) {
	d := openTestDB(t)

	if err := d.EnsurePatient("p1", ""); err != nil {
		t.Fatalf("EnsurePatient: %v", err)
	}
	if err := d.EnsurePatient("p1", "Europe/London"); err != nil {
		t.Fatalf("EnsurePatient again: %v", err)
	}

	patients, err := d.ListPatients()
	if err != nil {
		t.Fatalf("ListPatients: %v", err)
	}
	if len(patients) != 1 {
		t.Fatalf("expected 1 patient, got %d", len(patients))
	}
	if patients[0].Timezone != "UTC" {
		t.Errorf("expected default timezone UTC, got %q", patients[0].Timezone)
	}
}

func TestUpsertAndGetPatient(t *testing.T) {
	d := openTestDB(t)

	err := d.UpsertPatient(Patient{ID: "p1", Name: "Rose", Timezone: "Europe/London", CaregiverWebhook: "https://example.com/hook"})
	if err != nil {
		t.Fatalf("UpsertPatient: %v", err)
	}
	err = d.UpsertPatient(Patient{ID: "p1", Name: "Rose B", Timezone: "Europe/London"})
	if err != nil {
		t.Fatalf("UpsertPatient update: %v", err)
	}

	p, err := d.GetPatient("p1")
	if err != nil {
		t.Fatalf("GetPatient: %v", err)
	}
	if p == nil {
		t.Fatal("expected patient, got nil")
	}
	if p.Name != "Rose B" {
		t.Errorf("expected name %q, got %q", "Rose B", p.Name)
	}
	if p.CaregiverWebhook != "" {
		t.Errorf("expected webhook cleared, got %q", p.CaregiverWebhook)
	}
}

func TestGetPatient_Missing(t *testing.T) {
	d := openTestDB(t)
	p, err := d.GetPatient("nobody")
	if err != nil {
		t.Fatalf("GetPatient: %v", err)
	}
	if p != nil {
		t.Errorf("expected nil, got %+v", p)
	}
}

func TestUpdatePatient(t *testing.T) {
	d := openTestDB(t)
	d.EnsurePatient("p1", "UTC")

	if err := d.UpdatePatient("p1", map[string]any{"discord_user_id": "42"}); err != nil {
		t.Fatalf("UpdatePatient: %v", err)
	}
	p, _ := d.GetPatient("p1")
	if p.DiscordUserID != "42" {
		t.Errorf("expected discord user 42, got %q", p.DiscordUserID)
	}

	err := d.UpdatePatient("p1", map[string]any{"id": "p2"})
	if err == nil {
		t.Error("expected error for disallowed column")
	}
	err = d.UpdatePatient("missing", map[string]any{"name": "x"})
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestPatientLocation(t *testing.T) {
	tests := []struct {
		tz   string
		want string
	}{
		{"", "UTC"},
		{"Not/AZone", "UTC"},
		{"UTC", "UTC"},
	}
	for _, tt := range tests {
		p := &Patient{Timezone: tt.tz}
		if got := p.Location().String(); got != tt.want {
			t.Errorf("Location(%q) = %q, want %q", tt.tz, got, tt.want)
		}
	}
	var nilPatient *Patient
	if nilPatient.Location() != time.UTC {
		t.Error("nil patient should use UTC")
	}
}

// --- Reminders ---

func TestCreateAndGetReminder(t *testing.T) {
	d := openTestDB(t)

	due := time.Date(2024, 12, 25, 20, 0, 0, 0, time.FixedZone("EST", -5*3600))
	id, err := d.CreateReminder(NewReminder{PatientID: "p1", Title: "Take medicine", DueAt: due, Confidence: "inferred", SourceText: "take medicine at 8pm"})
	if err != nil {
		t.Fatalf("CreateReminder: %v", err)
	}

	r, err := d.GetReminder(id)
	if err != nil {
		t.Fatalf("GetReminder: %v", err)
	}
	if r == nil {
		t.Fatal("expected reminder, got nil")
	}
	if !r.DueAt.Equal(due) {
		t.Errorf("expected due %s, got %s", due, r.DueAt)
	}
	if r.Status != StatusPending {
		t.Errorf("expected status pending, got %q", r.Status)
	}
	if r.Confidence != "inferred" || r.SourceText != "take medicine at 8pm" {
		t.Errorf("unexpected audit fields: %+v", r)
	}
	if r.FiredAt != nil {
		t.Errorf("expected no fired_at, got %v", r.FiredAt)
	}
}

func TestGetReminder_Missing(t *testing.T) {
	d := openTestDB(t)
	r, err := d.GetReminder(99)
	if err != nil {
		t.Fatalf("GetReminder: %v", err)
	}
	if r != nil {
		t.Errorf("expected nil, got %+v", r)
	}
}

func TestListUpcomingReminders(t *testing.T) {
	d := openTestDB(t)

	mustCreateReminder(t, d, "p1", "later", now.Add(2*time.Hour))
	mustCreateReminder(t, d, "p1", "sooner", now.Add(time.Hour))
	mustCreateReminder(t, d, "p1", "past", now.Add(-time.Hour))
	mustCreateReminder(t, d, "p2", "someone else", now.Add(time.Hour))
	cancelled := mustCreateReminder(t, d, "p1", "cancelled", now.Add(time.Hour))
	d.CancelReminder(cancelled)

	got, err := d.ListUpcomingReminders("p1", now)
	if err != nil {
		t.Fatalf("ListUpcomingReminders: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 upcoming reminders, got %d", len(got))
	}
	if got[0].Title != "sooner" || got[1].Title != "later" {
		t.Errorf("expected [sooner later], got [%s %s]", got[0].Title, got[1].Title)
	}

	all, err := d.ListReminders("p1")
	if err != nil {
		t.Fatalf("ListReminders: %v", err)
	}
	if len(all) != 4 {
		t.Errorf("expected 4 reminders for p1, got %d", len(all))
	}
}

func TestListRemindersBetween(t *testing.T) {
	d := openTestDB(t)

	mustCreateReminder(t, d, "p1", "morning", now.Add(time.Hour))
	mustCreateReminder(t, d, "p1", "tomorrow", now.Add(26*time.Hour))

	got, err := d.ListRemindersBetween("p1", now, now.Add(24*time.Hour))
	if err != nil {
		t.Fatalf("ListRemindersBetween: %v", err)
	}
	if len(got) != 1 || got[0].Title != "morning" {
		t.Errorf("expected only 'morning', got %+v", got)
	}
}

func TestListDueAndMarkFired(t *testing.T) {
	d := openTestDB(t)

	due := mustCreateReminder(t, d, "p1", "due", now.Add(-time.Minute))
	mustCreateReminder(t, d, "p2", "exactly now", now)
	mustCreateReminder(t, d, "p1", "not yet", now.Add(time.Minute))

	pending, err := d.ListDueReminders(now)
	if err != nil {
		t.Fatalf("ListDueReminders: %v", err)
	}
	if len(pending) != 2 {
		t.Fatalf("expected 2 due reminders, got %d", len(pending))
	}

	if err := d.MarkReminderFired(due, now); err != nil {
		t.Fatalf("MarkReminderFired: %v", err)
	}
	pending, _ = d.ListDueReminders(now)
	if len(pending) != 1 || pending[0].Title != "exactly now" {
		t.Errorf("expected only 'exactly now' left, got %+v", pending)
	}

	r, _ := d.GetReminder(due)
	if r.Status != StatusFired {
		t.Errorf("expected status fired, got %q", r.Status)
	}
	if r.FiredAt == nil || !r.FiredAt.Equal(now) {
		t.Errorf("expected fired_at %s, got %v", now, r.FiredAt)
	}
}

func TestFindPendingReminders_CaseInsensitive(t *testing.T) {
	d := openTestDB(t)

	mustCreateReminder(t, d, "p1", "Take Medicine", now.Add(time.Hour))
	mustCreateReminder(t, d, "p1", "Doctor appointment", now.Add(time.Hour))
	mustCreateReminder(t, d, "p2", "Take medicine", now.Add(time.Hour))

	got, err := d.FindPendingReminders("p1", "medicine")
	if err != nil {
		t.Fatalf("FindPendingReminders: %v", err)
	}
	if len(got) != 1 || got[0].Title != "Take Medicine" {
		t.Errorf("expected one match 'Take Medicine', got %+v", got)
	}

	got, _ = d.FindPendingReminders("p1", "100%")
	if len(got) != 0 {
		t.Errorf("expected no match for literal %%, got %d", len(got))
	}
}

func TestCancelReminder(t *testing.T) {
	d := openTestDB(t)
	id := mustCreateReminder(t, d, "p1", "walk", now.Add(time.Hour))

	if err := d.CancelReminder(id); err != nil {
		t.Fatalf("CancelReminder: %v", err)
	}
	r, _ := d.GetReminder(id)
	if r.Status != StatusCancelled {
		t.Errorf("expected cancelled, got %q", r.Status)
	}

	if err := d.CancelReminder(id); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound cancelling twice, got %v", err)
	}
}

// --- Alerts ---

func TestAlerts(t *testing.T) {
	d := openTestDB(t)

	id, err := d.CreateAlert("p1", "I fell")
	if err != nil {
		t.Fatalf("CreateAlert: %v", err)
	}
	d.CreateAlert("p1", "chest pain")
	d.CreateAlert("p2", "lost")

	alerts, err := d.ListAlerts("p1", "")
	if err != nil {
		t.Fatalf("ListAlerts: %v", err)
	}
	if len(alerts) != 2 {
		t.Fatalf("expected 2 alerts, got %d", len(alerts))
	}
	if alerts[0].Reason != "chest pain" {
		t.Errorf("expected newest first, got %q", alerts[0].Reason)
	}

	if err := d.AcknowledgeAlert(id, now); err != nil {
		t.Fatalf("AcknowledgeAlert: %v", err)
	}
	pending, _ := d.ListAlerts("p1", AlertPending)
	if len(pending) != 1 {
		t.Errorf("expected 1 pending alert, got %d", len(pending))
	}
	acked, _ := d.ListAlerts("p1", AlertAcknowledged)
	if len(acked) != 1 || acked[0].AcknowledgedAt == nil {
		t.Errorf("expected 1 acknowledged alert with timestamp, got %+v", acked)
	}

	if err := d.AcknowledgeAlert(id, now); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound acknowledging twice, got %v", err)
	}
}
