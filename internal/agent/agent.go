package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/chris/anchor/internal/db"
	"github.com/chris/anchor/internal/history"
	"github.com/chris/anchor/internal/llm"
	"github.com/chris/anchor/internal/metrics"
)

const maxToolRounds = 10

// Notifier delivers messages on the agent's behalf.
type Notifier interface {
	ToPatient(ctx context.Context, p *db.Patient, content string) error
	ToCaregiver(ctx context.Context, p *db.Patient, content string) error
}

type Agent struct {
	db               *db.DB
	client           llm.Client
	notify           Notifier
	MaxContextTokens int
	// DefaultLocation is given to patients seen for the first time.
	DefaultLocation *time.Location
	Now             func() time.Time
}

func New(database *db.DB, client llm.Client, notifier Notifier, maxContextTokens int) *Agent {
	return &Agent{
		db:               database,
		client:           client,
		notify:           notifier,
		MaxContextTokens: maxContextTokens,
		DefaultLocation:  time.UTC,
		Now:              time.Now,
	}
}

// Patient returns the patient, creating a bare record on first contact.
func (a *Agent) Patient(id string) (*db.Patient, error) {
	if err := a.db.EnsurePatient(id, a.DefaultLocation.String()); err != nil {
		return nil, err
	}
	p, err := a.db.GetPatient(id)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, fmt.Errorf("patient %s: %w", id, db.ErrNotFound)
	}
	return p, nil
}

// clock returns now in the patient's time zone.
func (a *Agent) clock(p *db.Patient) time.Time {
	return a.Now().In(p.Location())
}

// Run answers one patient message. turns is the recent conversation, oldest
// first; the caller appends the exchange to it afterwards.
func (a *Agent) Run(ctx context.Context, patientID string, turns []history.Turn, userMessage string) (string, error) {
	p, err := a.Patient(patientID)
	if err != nil {
		return "", fmt.Errorf("loading patient: %w", err)
	}

	messages := make([]llm.Message, 0, len(turns)+1)
	for _, t := range turns {
		messages = append(messages, llm.Message{Role: t.Role, Content: t.Content})
	}
	messages = append(messages, llm.Message{Role: "user", Content: userMessage})

	prompt := llm.PromptFor(p.Name, a.clock(p))
	budget := llm.MessageBudget(a.MaxContextTokens, prompt, llm.AgentTools)
	logger := log.With().Str("patient_id", p.ID).Str("provider", a.client.Name()).Logger()

	for i := 0; i < maxToolRounds; i++ {
		trimmed := llm.TrimMessages(messages, budget)
		if len(trimmed) < len(messages) {
			logger.Debug().Int("from", len(messages)).Int("to", len(trimmed)).Msg("context trimmed")
		}

		start := time.Now()
		resp, err := a.client.Chat(ctx, prompt, trimmed, llm.AgentTools)
		metrics.LLMRequestDuration.WithLabelValues(a.client.Name()).Observe(time.Since(start).Seconds())
		metrics.LLMRequestsTotal.WithLabelValues(a.client.Name(), metrics.Status(err)).Inc()
		if err != nil {
			return "", fmt.Errorf("llm chat: %w", err)
		}

		if len(resp.ToolCalls) == 0 {
			return resp.Content, nil
		}

		messages = append(messages, llm.Message{Role: "assistant", Content: resp.Content, ToolCalls: resp.ToolCalls})
		for _, tc := range resp.ToolCalls {
			result := a.executeTool(ctx, p, tc.Name, tc.Params)
			logger.Info().Str("tool", tc.Name).Str("result", truncate(result, 200)).Msg("tool call")
			messages = append(messages, llm.Message{Role: "user", Content: result, ToolCallID: tc.ID})
		}
	}

	logger.Warn().Int("rounds", maxToolRounds).Msg("tool round limit reached")
	return "I'm sorry, I got a little muddled there. Could you say that again?", nil
}

func (a *Agent) executeTool(ctx context.Context, p *db.Patient, name string, params map[string]any) string {
	var result any
	var err error

	switch name {
	case "create_reminder":
		result, err = a.toolCreateReminder(p, params)
	case "list_reminders":
		result, err = a.toolListReminders(p)
	case "delete_reminder":
		result, err = a.toolDeleteReminder(p, params)
	case "send_emergency_alert":
		reason, _ := getString(params, "reason")
		result = a.SendEmergencyAlert(ctx, p, reason)
	case "get_time":
		result = toolGetTime(a.clock(p))
	default:
		err = fmt.Errorf("unknown tool: %s", name)
	}

	metrics.ToolCallsTotal.WithLabelValues(name, metrics.Status(err)).Inc()
	if err != nil {
		log.Error().Err(err).Str("patient_id", p.ID).Str("tool", name).Msg("tool failed")
		result = map[string]any{"error": err.Error()}
	}

	b, _ := json.Marshal(result) // results are plain maps and slices
	return string(b)
}

func getString(params map[string]any, key string) (string, bool) {
	v, ok := params[key]
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
