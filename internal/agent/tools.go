package agent

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/chris/anchor/internal/db"
	"github.com/chris/anchor/internal/llm"
	"github.com/chris/anchor/internal/metrics"
	"github.com/chris/anchor/internal/reminder"
)

// Questions put back to the patient when a reminder can't be made.
const (
	askWhat  = "What would you like me to remind you about?"
	askAgain = "I didn't quite catch that. Could you tell me again what to remind you about, and when?"
	askWhen  = "That time has already passed. When would you like me to remind you?"
)

// ReminderError carries a question for the patient alongside the cause.
type ReminderError struct {
	Question string
	Err      error
}

func (e *ReminderError) Error() string { return e.Err.Error() }
func (e *ReminderError) Unwrap() error { return e.Err }

// ErrPastDue is returned when an explicit date and time are already over.
var ErrPastDue = errors.New("reminder: due time has passed")

// ParseReminder resolves text against the patient's clock without storing
// anything.
func (a *Agent) ParseReminder(p *db.Patient, text string) (reminder.Parsed, error) {
	parsed, err := reminder.Parse(text, a.clock(p))
	switch {
	case errors.Is(err, reminder.ErrEmptyInput):
		metrics.ParseFailuresTotal.WithLabelValues("empty").Inc()
		return parsed, &ReminderError{Question: askWhat, Err: err}
	case errors.Is(err, reminder.ErrUnparseableTitle):
		metrics.ParseFailuresTotal.WithLabelValues("no_title").Inc()
		return parsed, &ReminderError{Question: askWhat, Err: err}
	case err != nil:
		metrics.ParseFailuresTotal.WithLabelValues("other").Inc()
		return parsed, &ReminderError{Question: askAgain, Err: err}
	}
	return parsed, nil
}

// AddReminder parses text and stores the reminder. A non-empty title
// replaces the parsed one.
func (a *Agent) AddReminder(p *db.Patient, text, title string) (*db.Reminder, error) {
	title = strings.TrimSpace(title)
	parsed, err := a.ParseReminder(p, text)
	if err != nil && title != "" && errors.Is(err, reminder.ErrUnparseableTitle) {
		// Only the time was given; the title comes from the caller.
		parsed, err = a.ParseReminder(p, title+" "+text)
	}
	if err != nil {
		return nil, err
	}
	if title != "" {
		parsed.Title = title
	}
	return a.storeReminder(p, parsed, text)
}

// AddReminderAt stores a reminder for an explicit date ("02 Jan 2006") and
// time ("03:04 PM") in the patient's zone.
func (a *Agent) AddReminderAt(p *db.Patient, text, title, date, clock string) (*db.Reminder, error) {
	now := a.clock(p)
	due, err := time.ParseInLocation(llm.ToolDateLayout+" "+llm.ToolTimeLayout, date+" "+clock, now.Location())
	if err != nil {
		metrics.ParseFailuresTotal.WithLabelValues("bad_datetime").Inc()
		return nil, &ReminderError{Question: askAgain, Err: fmt.Errorf("parsing date/time: %w", err)}
	}
	if due.Before(now) {
		return nil, &ReminderError{Question: askWhen, Err: ErrPastDue}
	}

	title = strings.TrimSpace(title)
	if title == "" {
		parsed, err := a.ParseReminder(p, text)
		if err != nil {
			return nil, err
		}
		title = parsed.Title
	}
	return a.storeReminder(p, reminder.Parsed{Title: title, DueAt: due, Confidence: reminder.ConfidenceExact}, text)
}

func (a *Agent) storeReminder(p *db.Patient, parsed reminder.Parsed, source string) (*db.Reminder, error) {
	id, err := a.db.CreateReminder(db.NewReminder{
		PatientID:  p.ID,
		Title:      parsed.Title,
		DueAt:      parsed.DueAt,
		Confidence: string(parsed.Confidence),
		SourceText: source,
	})
	if err != nil {
		return nil, err
	}
	metrics.RemindersCreatedTotal.WithLabelValues(string(parsed.Confidence)).Inc()
	log.Info().Str("patient_id", p.ID).Int64("reminder_id", id).
		Time("due_at", parsed.DueAt).Str("confidence", string(parsed.Confidence)).Msg("reminder created")

	r, err := a.db.GetReminder(id)
	if err != nil {
		return nil, err
	}
	if r == nil {
		return nil, fmt.Errorf("reminder %d: %w", id, db.ErrNotFound)
	}
	return r, nil
}

func (a *Agent) toolCreateReminder(p *db.Patient, params map[string]any) (any, error) {
	text, _ := getString(params, "text")
	title, _ := getString(params, "title")
	date, _ := getString(params, "date")
	clock, _ := getString(params, "time")

	var r *db.Reminder
	var err error
	if date != "" && clock != "" {
		r, err = a.AddReminderAt(p, text, title, date, clock)
	} else {
		r, err = a.AddReminder(p, text, title)
	}

	var rerr *ReminderError
	if errors.As(err, &rerr) {
		return map[string]any{"error": rerr.Error(), "question": rerr.Question}, nil
	}
	if err != nil {
		return nil, err
	}

	when := describeDue(r.DueAt, a.clock(p))
	return map[string]any{
		"id":         r.ID,
		"title":      r.Title,
		"due_at":     r.DueAt.In(p.Location()).Format(time.RFC3339),
		"confidence": r.Confidence,
		"message":    fmt.Sprintf("I'll remind you: %s, %s.", r.Title, when),
	}, nil
}

func (a *Agent) toolListReminders(p *db.Patient) (any, error) {
	now := a.clock(p)
	reminders, err := a.db.ListUpcomingReminders(p.ID, now)
	if err != nil {
		return nil, err
	}
	if len(reminders) == 0 {
		return map[string]any{"reminders": []any{}, "message": "You don't have any reminders coming up."}, nil
	}

	items := make([]map[string]any, len(reminders))
	for i, r := range reminders {
		items[i] = map[string]any{
			"id":     r.ID,
			"title":  r.Title,
			"due_at": r.DueAt.In(now.Location()).Format(time.RFC3339),
			"when":   describeDue(r.DueAt, now),
		}
	}
	return map[string]any{
		"reminders": items,
		"message":   formatReminderList(reminders, now),
	}, nil
}

func (a *Agent) toolDeleteReminder(p *db.Patient, params map[string]any) (any, error) {
	query, _ := getString(params, "reminder_title")
	query = strings.TrimSpace(query)
	if query == "" {
		return map[string]any{"question": "Which reminder would you like me to cancel?"}, nil
	}

	matches, err := a.db.FindPendingReminders(p.ID, query)
	if err != nil {
		return nil, err
	}
	switch len(matches) {
	case 0:
		return map[string]any{
			"message": fmt.Sprintf("I couldn't find a reminder matching '%s'.", query),
		}, nil
	case 1:
		r := matches[0]
		if err := a.db.CancelReminder(r.ID); err != nil {
			return nil, err
		}
		return map[string]any{
			"id":      r.ID,
			"status":  db.StatusCancelled,
			"message": fmt.Sprintf("I've cancelled the reminder '%s' for %s.", r.Title, describeDue(r.DueAt, a.clock(p))),
		}, nil
	}

	titles := make([]string, len(matches))
	for i, r := range matches {
		titles[i] = r.Title
	}
	return map[string]any{
		"matches":  titles,
		"question": fmt.Sprintf("I found a few reminders matching '%s': %s. Which one did you mean?", query, strings.Join(titles, ", ")),
	}, nil
}

// SendEmergencyAlert records the alert and tells the caregiver. Failures are
// logged; the patient always gets a calm answer.
func (a *Agent) SendEmergencyAlert(ctx context.Context, p *db.Patient, reason string) map[string]any {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		reason = "The patient asked for help."
	}
	logger := log.With().Str("patient_id", p.ID).Str("reason", reason).Logger()
	logger.Warn().Msg("emergency alert")
	metrics.EmergencyAlertsTotal.Inc()

	result := map[string]any{}
	id, err := a.db.CreateAlert(p.ID, reason)
	if err != nil {
		logger.Error().Err(err).Msg("could not save emergency alert")
	} else {
		result["alert_id"] = id
	}

	name := p.Name
	if name == "" {
		name = p.ID
	}
	notifyErr := a.notify.ToCaregiver(ctx, p, fmt.Sprintf("🚨 Emergency alert from %s: %s", name, reason))
	if notifyErr != nil {
		logger.Error().Err(notifyErr).Msg("could not notify caregiver")
	}

	if err != nil && notifyErr != nil {
		result["message"] = "I'm here with you. Let me help you feel safe."
		return result
	}
	result["message"] = "I've let your caregiver know. Help is on the way. Please stay calm, I'm here with you."
	return result
}

func toolGetTime(now time.Time) map[string]any {
	return map[string]any{
		"local":    now.Format(time.RFC3339),
		"date":     now.Format("2006-01-02"),
		"day":      now.Weekday().String(),
		"timezone": now.Location().String(),
		"message":  fmt.Sprintf("It's %s, %s.", now.Format("Monday 2 January"), now.Format("3:04 PM")),
	}
}
