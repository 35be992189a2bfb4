// Package reminder turns a patient's free-text request ("remind me to take my
// medicine at 8pm today") into a reminder title and an absolute due time.
//
// Parse is a pure function of its input text and the supplied "now". All
// calendar arithmetic happens in now.Location(), so callers pass a clock that
// is already in the patient's time zone.
package reminder

import (
	"errors"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"
)

// Confidence describes how directly the text specified the due time.
type Confidence string

const (
	// ConfidenceExact means the text named the time outright: an offset
	// ("in 20 minutes"), or a clock time that needed no rollover.
	ConfidenceExact Confidence = "exact"
	// ConfidenceInferred means a day marker, part of day, rollover or
	// am/pm bias filled in part of the timestamp.
	ConfidenceInferred Confidence = "inferred"
	// ConfidenceDefault means no temporal cue was found at all.
	ConfidenceDefault Confidence = "default"
)

const (
	// DefaultHour is used when a day is named without a time ("tomorrow").
	DefaultHour = 9
	// TonightHour is used for "tonight" without a time.
	TonightHour = 20
	// DefaultOffset is added to now when no usable time is found.
	DefaultOffset = time.Hour
)

var (
	// ErrEmptyInput is returned for empty or whitespace-only text.
	ErrEmptyInput = errors.New("reminder: empty input")
	// ErrUnparseableTitle is returned when removing the time phrase leaves
	// nothing to remind about.
	ErrUnparseableTitle = errors.New("reminder: nothing left to remind about")
)

// Parsed is the result of a single Parse call.
type Parsed struct {
	Title      string     `json:"title"`
	DueAt      time.Time  `json:"due_at"`
	Confidence Confidence `json:"confidence"`
}

// Parse extracts a title and due time from text, resolving relative
// expressions against now. It never returns a due time before now.
func Parse(text string, now time.Time) (Parsed, error) {
	if strings.TrimSpace(text) == "" {
		return Parsed{}, ErrEmptyInput
	}

	c := extract(text)

	title := cleanTitle(c.rest)
	if title == "" {
		return Parsed{}, ErrUnparseableTitle
	}

	due, conf := c.resolve(now)
	return Parsed{Title: title, DueAt: due, Confidence: conf}, nil
}

// resolve turns the extracted cues into an absolute time.
func (c cues) resolve(now time.Time) (time.Time, Confidence) {
	if c.offset != nil {
		return c.offset.apply(now), ConfidenceExact
	}
	if c.clock == nil && c.day == nil && c.part == partNone {
		return now.Add(DefaultOffset), ConfidenceDefault
	}

	hour, minute, certain, hasTime := c.timeOfDay()

	day := c.day
	if day != nil && day.kind == dayDate {
		day = day.normalizeDate(now)
	}

	y, m, d := now.Date()
	loc := now.Location()
	at := func(offsetDays int) time.Time {
		return time.Date(y, m, d+offsetDays, hour, minute, 0, 0, loc)
	}

	kind := dayNone
	if day != nil {
		kind = day.kind
	}

	switch kind {
	case dayTomorrow:
		if !hasTime {
			hour, minute = DefaultHour, 0
		}
		return at(1), confidence(certain && hasTime, false)

	case dayWeekday:
		if !hasTime {
			hour, minute = DefaultHour, 0
		}
		delta := (int(day.weekday) - int(now.Weekday()) + 7) % 7
		if delta == 0 && day.next {
			delta = 7
		}
		due := at(delta)
		if due.Before(now) {
			due = at(delta + 7)
		}
		return due, confidence(certain && hasTime, false)

	case dayDate:
		if !hasTime {
			hour, minute = DefaultHour, 0
		}
		due := time.Date(day.year, day.month, day.dayOfMonth, hour, minute, 0, 0, loc)
		return due, confidence(certain && hasTime, false)

	case dayToday, dayTonight:
		if !hasTime {
			hour, minute = DefaultHour, 0
			if kind == dayTonight {
				hour = TonightHour
			}
			due := at(0)
			if due.Before(now) {
				return now.Add(DefaultOffset), ConfidenceInferred
			}
			return due, ConfidenceInferred
		}
	}

	// A clock time (or part of day) on its own, or qualified by today/tonight:
	// today unless that has already passed.
	due := at(0)
	rolled := false
	if due.Before(now) {
		due = at(1)
		rolled = true
	}
	return due, confidence(certain, rolled)
}

func confidence(certain, rolled bool) Confidence {
	if certain && !rolled {
		return ConfidenceExact
	}
	return ConfidenceInferred
}

// timeOfDay resolves the chosen clock time against any am/pm bias from a
// day marker or part of day. certain reports whether the hour needed no
// guessing. Hour may be 24 for "tonight at 12", which time.Date carries into
// the next day.
func (c cues) timeOfDay() (hour, minute int, certain, ok bool) {
	pm := c.part == partAfternoon || c.part == partEvening || c.part == partNight ||
		(c.day != nil && c.day.kind == dayTonight)
	am := c.part == partMorning

	if c.clock == nil {
		if c.part == partNone {
			return 0, 0, false, false
		}
		return c.part.hour(), 0, false, true
	}

	k := c.clock
	if k.explicit {
		return k.hour, k.minute, true, true
	}

	h := k.hour
	switch {
	case pm:
		if h < 12 {
			h += 12
		} else if c.part != partAfternoon {
			h = 24 // "tonight at 12" is midnight
		}
		return h, k.minute, true, true
	case am:
		if h == 12 {
			h = 0
		}
		return h, k.minute, true, true
	}

	// No cue at all: 1-7 reads as afternoon/evening, 8-11 as morning, 12 as noon.
	if h >= 1 && h <= 7 {
		h += 12
	}
	return h, k.minute, false, true
}

// cleanTitle strips leading filler from what is left once the temporal
// phrases are removed, then capitalizes the first letter. Words are never
// trimmed from the end: connectors next to a time phrase were already claimed
// by the scanner.
func cleanTitle(rest string) string {
	var words []string
	for _, w := range strings.Fields(rest) {
		if strings.TrimFunc(w, isPunct) == "" {
			continue
		}
		words = append(words, w)
	}

	s := strings.Join(words, " ")
	for {
		before := s
		s = strings.TrimSpace(politeRe.ReplaceAllString(s, ""))
		s = strings.TrimSpace(fillerRe.ReplaceAllString(s, ""))
		if s == before {
			break
		}
	}

	s = strings.TrimLeft(s, ",.;:!?-– ")
	s = strings.TrimRight(s, ",.;:!?-– ")
	if s == "" {
		return ""
	}
	r, size := utf8.DecodeRuneInString(s)
	return string(unicode.ToUpper(r)) + s[size:]
}

func isPunct(r rune) bool {
	return unicode.IsPunct(r) || unicode.IsSymbol(r)
}
