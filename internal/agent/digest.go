package agent

import (
	"fmt"
	"strings"
	"time"

	"github.com/chris/anchor/internal/db"
)

// Digest lists the patient's reminders for the rest of their day. It
// returns "" when nothing is left, so callers can skip sending.
func (a *Agent) Digest(p *db.Patient) (string, error) {
	now := a.clock(p)
	y, m, d := now.Date()
	endOfDay := time.Date(y, m, d+1, 0, 0, 0, 0, now.Location())

	reminders, err := a.db.ListRemindersBetween(p.ID, now, endOfDay)
	if err != nil {
		return "", fmt.Errorf("building digest: %w", err)
	}
	if len(reminders) == 0 {
		return "", nil
	}

	var b strings.Builder
	if p.Name != "" {
		fmt.Fprintf(&b, "Good morning, %s! ", p.Name)
	} else {
		b.WriteString("Good morning! ")
	}
	fmt.Fprintf(&b, "Here's your day, %s:", now.Format("Monday 2 January"))
	for _, r := range reminders {
		fmt.Fprintf(&b, "\n- %s: %s", r.DueAt.In(now.Location()).Format("3:04 PM"), r.Title)
	}
	return b.String(), nil
}
