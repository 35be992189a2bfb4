package agent

import (
	"fmt"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/chris/anchor/internal/db"
)

// describeDue phrases due relative to now's calendar day: "today at 8:00 PM",
// "tomorrow at 9:00 AM", "on Friday at 2:30 PM", "on Sunday 5 January at 2:30 PM".
func describeDue(due, now time.Time) string {
	due = due.In(now.Location())
	clock := due.Format("3:04 PM")
	switch days := calendarDays(now, due); {
	case days == 0:
		return "today at " + clock
	case days == 1:
		return "tomorrow at " + clock
	case days > 1 && days < 7:
		return "on " + due.Format("Monday") + " at " + clock
	default:
		return "on " + due.Format("Monday 2 January") + " at " + clock
	}
}

// calendarDays counts midnights between a and b in a's zone.
func calendarDays(a, b time.Time) int {
	y, m, d := a.Date()
	start := time.Date(y, m, d, 0, 0, 0, 0, a.Location())
	y, m, d = b.In(a.Location()).Date()
	end := time.Date(y, m, d, 0, 0, 0, 0, a.Location())
	return int(end.Sub(start).Round(24*time.Hour) / (24 * time.Hour))
}

func formatReminderList(reminders []db.Reminder, now time.Time) string {
	var b strings.Builder
	if len(reminders) == 1 {
		b.WriteString("You have 1 upcoming reminder:")
	} else {
		fmt.Fprintf(&b, "You have %d upcoming reminders:", len(reminders))
	}
	for i, r := range reminders {
		fmt.Fprintf(&b, "\n%d. %s, %s (%s)", i+1, r.Title, describeDue(r.DueAt, now),
			humanize.RelTime(r.DueAt, now, "ago", "from now"))
	}
	return b.String()
}
