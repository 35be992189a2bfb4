// Package notify delivers messages to patients and their caregivers.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/chris/anchor/internal/db"
	"github.com/chris/anchor/internal/metrics"
)

// ErrNoRoute is returned when neither a DM nor a webhook is available.
var ErrNoRoute = errors.New("no delivery method available")

// DMSender sends a direct message to a chat user.
type DMSender interface {
	SendDM(ctx context.Context, userID, content string) error
}

// Dispatcher tries a direct message first and falls back to a webhook.
type Dispatcher struct {
	mu              sync.RWMutex
	dm              DMSender
	fallbackWebhook string
	http            *http.Client
}

func New(fallbackWebhook string) *Dispatcher {
	return &Dispatcher{
		fallbackWebhook: fallbackWebhook,
		http:            &http.Client{Timeout: 10 * time.Second},
	}
}

// SetDM installs the DM transport once it is connected.
func (d *Dispatcher) SetDM(dm DMSender) {
	d.mu.Lock()
	d.dm = dm
	d.mu.Unlock()
}

func (d *Dispatcher) dmSender() DMSender {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.dm
}

// ToPatient messages the patient directly, falling back to the caregiver's
// webhook so that someone still sees it.
func (d *Dispatcher) ToPatient(ctx context.Context, p *db.Patient, content string) error {
	if dm := d.dmSender(); dm != nil && p != nil && p.DiscordUserID != "" {
		err := dm.SendDM(ctx, p.DiscordUserID, content)
		metrics.DeliveriesTotal.WithLabelValues("dm", metrics.Status(err)).Inc()
		if err == nil {
			return nil
		}
		log.Warn().Err(err).Str("patient_id", p.ID).Msg("DM send failed, falling back to webhook")
	}
	return d.webhook(ctx, p, forPatient(p, content))
}

// ToCaregiver posts to the patient's caregiver webhook, or the fallback.
func (d *Dispatcher) ToCaregiver(ctx context.Context, p *db.Patient, content string) error {
	return d.webhook(ctx, p, content)
}

func (d *Dispatcher) webhook(ctx context.Context, p *db.Patient, content string) error {
	url := d.fallbackWebhook
	if p != nil && p.CaregiverWebhook != "" {
		url = p.CaregiverWebhook
	}
	if url == "" {
		metrics.DeliveriesTotal.WithLabelValues("none", "error").Inc()
		return ErrNoRoute
	}
	err := PostWebhook(ctx, d.http, url, content)
	metrics.DeliveriesTotal.WithLabelValues("webhook", metrics.Status(err)).Inc()
	return err
}

func forPatient(p *db.Patient, content string) string {
	if p == nil {
		return content
	}
	name := p.Name
	if name == "" {
		name = p.ID
	}
	return fmt.Sprintf("For %s: %s", name, content)
}

// PostWebhook sends content as a Discord-compatible webhook payload.
func PostWebhook(ctx context.Context, client *http.Client, url, content string) error {
	body, _ := json.Marshal(map[string]string{"content": content})
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("creating webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("posting webhook: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		return fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}
	return nil
}
