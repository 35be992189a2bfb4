// Package server exposes the agent, reminders, patients and alerts over a
// JSON HTTP API.
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"

	"github.com/chris/anchor/internal/agent"
	"github.com/chris/anchor/internal/db"
	"github.com/chris/anchor/internal/history"
)

const shutdownTimeout = 10 * time.Second

type Options struct {
	CORSAllowedOrigins []string
	// DefaultLocation is used by the parse endpoint when no timezone is given.
	DefaultLocation *time.Location
	// Locks is shared with other transports so one patient's turns never
	// interleave. Nil gets a private Locker.
	Locks *history.Locker
}

type Server struct {
	db         *db.DB
	agent      *agent.Agent
	history    history.Store
	locks      *history.Locker
	validate   *validator.Validate
	origins    []string
	defaultLoc *time.Location
	Now        func() time.Time
}

func New(database *db.DB, ag *agent.Agent, store history.Store, opts Options) *Server {
	if opts.DefaultLocation == nil {
		opts.DefaultLocation = time.UTC
	}
	if opts.Locks == nil {
		opts.Locks = history.NewLocker()
	}
	return &Server{
		db:         database,
		agent:      ag,
		history:    store,
		locks:      opts.Locks,
		validate:   validator.New(),
		origins:    opts.CORSAllowedOrigins,
		defaultLoc: opts.DefaultLocation,
		Now:        time.Now,
	}
}

// Handler builds the router.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	r.Use(RequestID)
	r.Use(Logging)
	r.Use(Recovery)
	r.Use(Metrics)
	r.Use(cors.Handler(corsOptions(s.origins)))

	r.Get("/health", s.health)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Route("/agent", func(r chi.Router) {
			r.Post("/chat", s.chat)
			r.Get("/history/{patientID}", s.getHistory)
			r.Delete("/history/{patientID}", s.clearHistory)
		})

		r.Route("/patients/{patientID}", func(r chi.Router) {
			r.Get("/", s.getPatient)
			r.Put("/", s.putPatient)
			r.Get("/reminders", s.listReminders)
			r.Post("/reminders", s.createReminder)
			r.Delete("/reminders/{reminderID}", s.cancelReminder)
			r.Get("/alerts", s.listAlerts)
		})

		r.Post("/reminders/parse", s.parseReminder)
		r.Post("/alerts/{alertID}/acknowledge", s.acknowledgeAlert)
	})

	return r
}

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", addr).Msg("http server listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	log.Info().Msg("http server stopped")
	return nil
}
