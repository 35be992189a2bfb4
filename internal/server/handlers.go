package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"github.com/chris/anchor/internal/agent"
	"github.com/chris/anchor/internal/db"
	"github.com/chris/anchor/internal/history"
	"github.com/chris/anchor/internal/reminder"
)

// fallbackReply is sent when the agent fails, so the patient is never left
// without an answer.
const fallbackReply = "I'm having some trouble right now, but I'm here with you. How can I help?"

type chatRequest struct {
	PatientID string `json:"patient_id" validate:"required,max=128"`
	Message   string `json:"message" validate:"required,max=4000"`
}

type chatResponse struct {
	Reply string `json:"reply"`
}

type patientRequest struct {
	Name             string `json:"name" validate:"max=200"`
	Timezone         string `json:"timezone" validate:"omitempty,timezone"`
	CaregiverWebhook string `json:"caregiver_webhook" validate:"omitempty,url"`
	DiscordUserID    string `json:"discord_user_id" validate:"omitempty,numeric"`
}

type reminderRequest struct {
	Text  string `json:"text" validate:"required,max=1000"`
	Title string `json:"title" validate:"max=200"`
}

type parseRequest struct {
	Text     string `json:"text" validate:"required,max=1000"`
	Timezone string `json:"timezone" validate:"omitempty,timezone"`
}

// decode reads a JSON body into v and validates it.
func (s *Server) decode(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return ErrBadRequest
	}
	if err := s.validate.Struct(v); err != nil {
		return NewValidationError(err.Error())
	}
	return nil
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	health := map[string]string{"status": "healthy", "database": "healthy"}
	status := http.StatusOK
	if err := s.db.Ping(); err != nil {
		health["status"] = "degraded"
		health["database"] = "unhealthy"
		status = http.StatusServiceUnavailable
	}
	JSON(w, status, health)
}

func (s *Server) chat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := s.decode(r, &req); err != nil {
		HandleError(w, err)
		return
	}

	unlock := s.locks.Lock(req.PatientID)
	defer unlock()

	ctx := r.Context()
	logger := log.With().Str("request_id", RequestIDFromContext(ctx)).Str("patient_id", req.PatientID).Logger()

	turns, err := s.history.Load(ctx, req.PatientID)
	if err != nil {
		logger.Warn().Err(err).Msg("loading history")
		turns = nil
	}

	reply, err := s.agent.Run(ctx, req.PatientID, turns, req.Message)
	if err != nil {
		logger.Error().Err(err).Msg("agent run failed")
		JSON(w, http.StatusOK, chatResponse{Reply: fallbackReply})
		return
	}

	if err := s.history.Append(ctx, req.PatientID,
		history.Turn{Role: "user", Content: req.Message},
		history.Turn{Role: "assistant", Content: reply},
	); err != nil {
		logger.Warn().Err(err).Msg("saving history")
	}
	JSON(w, http.StatusOK, chatResponse{Reply: reply})
}

func (s *Server) getHistory(w http.ResponseWriter, r *http.Request) {
	turns, err := s.history.Load(r.Context(), chi.URLParam(r, "patientID"))
	if err != nil {
		log.Error().Err(err).Msg("loading history")
		HandleError(w, ErrInternalServer)
		return
	}
	if turns == nil {
		turns = []history.Turn{}
	}
	JSON(w, http.StatusOK, turns)
}

func (s *Server) clearHistory(w http.ResponseWriter, r *http.Request) {
	if err := s.history.Clear(r.Context(), chi.URLParam(r, "patientID")); err != nil {
		log.Error().Err(err).Msg("clearing history")
		HandleError(w, ErrInternalServer)
		return
	}
	JSONMessage(w, http.StatusOK, "history cleared")
}

func (s *Server) getPatient(w http.ResponseWriter, r *http.Request) {
	p, err := s.db.GetPatient(chi.URLParam(r, "patientID"))
	if err != nil {
		log.Error().Err(err).Msg("getting patient")
		HandleError(w, ErrInternalServer)
		return
	}
	if p == nil {
		HandleError(w, NewNotFoundError("patient not found"))
		return
	}
	JSON(w, http.StatusOK, p)
}

func (s *Server) putPatient(w http.ResponseWriter, r *http.Request) {
	var req patientRequest
	if err := s.decode(r, &req); err != nil {
		HandleError(w, err)
		return
	}

	id := chi.URLParam(r, "patientID")
	err := s.db.UpsertPatient(db.Patient{
		ID:               id,
		Name:             strings.TrimSpace(req.Name),
		Timezone:         req.Timezone,
		CaregiverWebhook: req.CaregiverWebhook,
		DiscordUserID:    req.DiscordUserID,
	})
	if err != nil {
		log.Error().Err(err).Str("patient_id", id).Msg("upserting patient")
		HandleError(w, ErrInternalServer)
		return
	}
	p, err := s.db.GetPatient(id)
	if err != nil || p == nil {
		HandleError(w, ErrInternalServer)
		return
	}
	JSON(w, http.StatusOK, p)
}

func (s *Server) listReminders(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "patientID")

	var reminders []db.Reminder
	var err error
	if all, _ := strconv.ParseBool(r.URL.Query().Get("all")); all {
		reminders, err = s.db.ListReminders(id)
	} else {
		reminders, err = s.db.ListUpcomingReminders(id, s.Now())
	}
	if err != nil {
		log.Error().Err(err).Str("patient_id", id).Msg("listing reminders")
		HandleError(w, ErrInternalServer)
		return
	}
	if reminders == nil {
		reminders = []db.Reminder{}
	}
	JSON(w, http.StatusOK, reminders)
}

func (s *Server) createReminder(w http.ResponseWriter, r *http.Request) {
	var req reminderRequest
	if err := s.decode(r, &req); err != nil {
		HandleError(w, err)
		return
	}

	p, err := s.agent.Patient(chi.URLParam(r, "patientID"))
	if err != nil {
		log.Error().Err(err).Msg("loading patient")
		HandleError(w, ErrInternalServer)
		return
	}

	rem, err := s.agent.AddReminder(p, req.Text, req.Title)
	var rerr *agent.ReminderError
	switch {
	case errors.As(err, &rerr):
		HandleError(w, NewUnparseableError(rerr.Error(), rerr.Question))
		return
	case err != nil:
		log.Error().Err(err).Str("patient_id", p.ID).Msg("creating reminder")
		HandleError(w, ErrInternalServer)
		return
	}
	JSON(w, http.StatusCreated, rem)
}

func (s *Server) cancelReminder(w http.ResponseWriter, r *http.Request) {
	patientID := chi.URLParam(r, "patientID")
	id, err := strconv.ParseInt(chi.URLParam(r, "reminderID"), 10, 64)
	if err != nil {
		HandleError(w, NewBadRequestError("invalid reminder id"))
		return
	}

	rem, err := s.db.GetReminder(id)
	if err != nil {
		log.Error().Err(err).Int64("reminder_id", id).Msg("getting reminder")
		HandleError(w, ErrInternalServer)
		return
	}
	if rem == nil || rem.PatientID != patientID {
		HandleError(w, NewNotFoundError("reminder not found"))
		return
	}

	if err := s.db.CancelReminder(id); err != nil {
		if errors.Is(err, db.ErrNotFound) {
			HandleError(w, NewConflictError("reminder is already "+rem.Status))
			return
		}
		log.Error().Err(err).Int64("reminder_id", id).Msg("cancelling reminder")
		HandleError(w, ErrInternalServer)
		return
	}
	JSONMessage(w, http.StatusOK, "reminder cancelled")
}

func (s *Server) parseReminder(w http.ResponseWriter, r *http.Request) {
	var req parseRequest
	if err := s.decode(r, &req); err != nil {
		HandleError(w, err)
		return
	}

	loc := s.defaultLoc
	if req.Timezone != "" {
		l, err := time.LoadLocation(req.Timezone)
		if err != nil {
			HandleError(w, NewValidationError("unknown timezone "+req.Timezone))
			return
		}
		loc = l
	}

	parsed, err := reminder.Parse(req.Text, s.Now().In(loc))
	switch {
	case errors.Is(err, reminder.ErrEmptyInput), errors.Is(err, reminder.ErrUnparseableTitle):
		HandleError(w, NewUnparseableError(err.Error(), ""))
		return
	case err != nil:
		HandleError(w, ErrInternalServer)
		return
	}
	JSON(w, http.StatusOK, parsed)
}

func (s *Server) listAlerts(w http.ResponseWriter, r *http.Request) {
	status := r.URL.Query().Get("status")
	if status != "" && status != db.AlertPending && status != db.AlertAcknowledged {
		HandleError(w, NewBadRequestError("status must be pending or acknowledged"))
		return
	}
	alerts, err := s.db.ListAlerts(chi.URLParam(r, "patientID"), status)
	if err != nil {
		log.Error().Err(err).Msg("listing alerts")
		HandleError(w, ErrInternalServer)
		return
	}
	if alerts == nil {
		alerts = []db.Alert{}
	}
	JSON(w, http.StatusOK, alerts)
}

func (s *Server) acknowledgeAlert(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "alertID"), 10, 64)
	if err != nil {
		HandleError(w, NewBadRequestError("invalid alert id"))
		return
	}
	if err := s.db.AcknowledgeAlert(id, s.Now()); err != nil {
		if errors.Is(err, db.ErrNotFound) {
			HandleError(w, NewNotFoundError("no pending alert with that id"))
			return
		}
		log.Error().Err(err).Int64("alert_id", id).Msg("acknowledging alert")
		HandleError(w, ErrInternalServer)
		return
	}
	JSONMessage(w, http.StatusOK, "alert acknowledged")
}
