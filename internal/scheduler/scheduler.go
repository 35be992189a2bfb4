package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"

	"github.com/chris/anchor/internal/agent"
	"github.com/chris/anchor/internal/db"
	"github.com/chris/anchor/internal/metrics"
)

const jobTimeout = 2 * time.Minute

type Scheduler struct {
	cron         *cron.Cron
	db           *db.DB
	agent        *agent.Agent
	notify       agent.Notifier
	reminderSpec string
	digestSpec   string
	Now          func() time.Time
}

// New builds a scheduler that checks for due reminders on reminderSpec and
// sends daily digests on digestSpec, both read in loc. An empty digestSpec
// disables digests.
func New(database *db.DB, ag *agent.Agent, n agent.Notifier, reminderSpec, digestSpec string, loc *time.Location) *Scheduler {
	if loc == nil {
		loc = time.Local
	}
	return &Scheduler{
		cron: cron.New(
			cron.WithLocation(loc),
			cron.WithChain(cron.Recover(cron.DefaultLogger), cron.SkipIfStillRunning(cron.DefaultLogger)),
		),
		db:           database,
		agent:        ag,
		notify:       n,
		reminderSpec: reminderSpec,
		digestSpec:   digestSpec,
		Now:          time.Now,
	}
}

func (s *Scheduler) Start() error {
	if _, err := s.cron.AddFunc(s.reminderSpec, func() { s.run("reminders", s.FireDue) }); err != nil {
		return fmt.Errorf("invalid reminder schedule %q: %w", s.reminderSpec, err)
	}
	if s.digestSpec != "" {
		if _, err := s.cron.AddFunc(s.digestSpec, func() { s.run("digest", s.SendDigests) }); err != nil {
			return fmt.Errorf("invalid digest schedule %q: %w", s.digestSpec, err)
		}
	}
	s.cron.Start()
	log.Info().Str("reminders", s.reminderSpec).Str("digest", s.digestSpec).Msg("scheduler started")
	return nil
}

// Stop halts the cron and waits for running jobs to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
}

func (s *Scheduler) run(job string, fn func(context.Context) (int, error)) {
	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()
	n, err := fn(ctx)
	if err != nil {
		log.Error().Err(err).Str("job", job).Msg("scheduler job failed")
		return
	}
	if n > 0 {
		log.Info().Str("job", job).Int("sent", n).Msg("scheduler job done")
	}
}

// FireDue delivers every pending reminder whose time has come and marks it
// fired. A reminder is marked fired even when delivery fails, so a broken
// route does not repeat it every minute.
func (s *Scheduler) FireDue(ctx context.Context) (int, error) {
	now := s.Now()
	due, err := s.db.ListDueReminders(now)
	if err != nil {
		return 0, fmt.Errorf("listing due reminders: %w", err)
	}

	patients := map[string]*db.Patient{}
	fired := 0
	for _, r := range due {
		p, ok := patients[r.PatientID]
		if !ok {
			if p, err = s.db.GetPatient(r.PatientID); err != nil {
				log.Error().Err(err).Str("patient_id", r.PatientID).Msg("loading patient")
			}
			if p == nil {
				p = &db.Patient{ID: r.PatientID}
			}
			patients[r.PatientID] = p
		}

		logger := log.With().Int64("reminder_id", r.ID).Str("patient_id", r.PatientID).Logger()
		if err := s.notify.ToPatient(ctx, p, "Reminder: "+r.Title); err != nil {
			logger.Warn().Err(err).Msg("reminder delivery failed")
		}
		if err := s.db.MarkReminderFired(r.ID, now); err != nil {
			logger.Error().Err(err).Msg("marking reminder fired")
			continue
		}
		metrics.RemindersFiredTotal.Inc()
		fired++
	}
	return fired, nil
}

// SendDigests sends each patient the rest of their day's reminders.
func (s *Scheduler) SendDigests(ctx context.Context) (int, error) {
	patients, err := s.db.ListPatients()
	if err != nil {
		return 0, fmt.Errorf("listing patients: %w", err)
	}
	sent := 0
	for i := range patients {
		p := &patients[i]
		msg, err := s.agent.Digest(p)
		if err != nil {
			log.Error().Err(err).Str("patient_id", p.ID).Msg("building digest")
			continue
		}
		if msg == "" {
			continue
		}
		if err := s.notify.ToPatient(ctx, p, msg); err != nil {
			log.Warn().Err(err).Str("patient_id", p.ID).Msg("digest delivery failed")
			continue
		}
		sent++
	}
	return sent, nil
}
