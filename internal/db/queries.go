package db

import (
	"time"
)

// Reminder statuses.
const (
	StatusPending   = "pending"
	StatusFired     = "fired"
	StatusCancelled = "cancelled"
)

// Alert statuses.
const (
	AlertPending      = "pending"
	AlertAcknowledged = "acknowledged"
)

type Patient struct {
	ID               string    `json:"id"`
	Name             string    `json:"name,omitempty"`
	Timezone         string    `json:"timezone"`
	CaregiverWebhook string    `json:"caregiver_webhook,omitempty"`
	DiscordUserID    string    `json:"discord_user_id,omitempty"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// Location returns the patient's time zone, falling back to UTC when the
// stored name is empty or unknown.
func (p *Patient) Location() *time.Location {
	if p == nil || p.Timezone == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(p.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

type Reminder struct {
	ID         int64      `json:"id"`
	PatientID  string     `json:"patient_id"`
	Title      string     `json:"title"`
	DueAt      time.Time  `json:"due_at"`
	Status     string     `json:"status"`
	Confidence string     `json:"confidence"`
	SourceText string     `json:"source_text,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
	FiredAt    *time.Time `json:"fired_at,omitempty"`
}

// NewReminder holds the fields the caller supplies when creating a reminder.
type NewReminder struct {
	PatientID  string
	Title      string
	DueAt      time.Time
	Confidence string
	SourceText string
}

type Alert struct {
	ID             int64      `json:"id"`
	PatientID      string     `json:"patient_id"`
	Reason         string     `json:"reason"`
	Status         string     `json:"status"`
	CreatedAt      time.Time  `json:"created_at"`
	AcknowledgedAt *time.Time `json:"acknowledged_at,omitempty"`
}
