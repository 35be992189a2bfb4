package reminder

import (
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"
)

type dayKind int

const (
	dayNone dayKind = iota
	dayToday
	dayTonight
	dayTomorrow
	dayWeekday
	dayDate
)

type partOfDay int

const (
	partNone partOfDay = iota
	partMorning
	partAfternoon
	partEvening
	partNight
)

func (p partOfDay) hour() int {
	switch p {
	case partMorning:
		return 9
	case partAfternoon:
		return 15
	case partEvening:
		return 18
	case partNight:
		return TonightHour
	}
	return DefaultHour
}

type clockTime struct {
	hour, minute int
	explicit     bool // am/pm, 24-hour form, noon or midnight
	specificity  int
	pos          int
}

type dayMarker struct {
	kind    dayKind
	weekday time.Weekday
	next    bool
	pos     int

	year       int // 0 when the text gave none
	month      time.Month
	dayOfMonth int
}

// normalizeDate picks the year for a calendar date and turns today's date
// into a plain "today" marker so the rollover rules apply to it.
func (d *dayMarker) normalizeDate(now time.Time) *dayMarker {
	y, m, day := now.Date()
	year := d.year
	if year == 0 || year < y {
		year = y
	}
	if year == y && (d.month < m || (d.month == m && d.dayOfMonth < day)) {
		year++
	}
	if year == y && d.month == m && d.dayOfMonth == day {
		return &dayMarker{kind: dayToday, pos: d.pos}
	}
	out := *d
	out.year = year
	return &out
}

type offsetExpr struct {
	n    int
	half bool
	unit string // minute, hour, day, week
}

func (o offsetExpr) apply(now time.Time) time.Time {
	var unit time.Duration
	switch o.unit {
	case "minute":
		unit = time.Minute
	case "hour":
		unit = time.Hour
	case "day":
		unit = 24 * time.Hour
	case "week":
		unit = 7 * 24 * time.Hour
	}
	if o.half {
		return now.Add(unit / 2)
	}
	switch o.unit {
	case "day":
		return now.AddDate(0, 0, o.n)
	case "week":
		return now.AddDate(0, 0, 7*o.n)
	}
	return now.Add(time.Duration(o.n) * unit)
}

// cues holds every temporal expression found in the text and the text that
// remains once they are cut out.
type cues struct {
	offset *offsetExpr
	clock  *clockTime
	day    *dayMarker
	part   partOfDay
	rest   string
}

const numberWords = `\d+|an?|one|two|three|four|five|six|seven|eight|nine|ten|eleven|twelve|half\s+an?`

var (
	offsetRe = regexp.MustCompile(`(?i)\b(?:in|after)\s+(` + numberWords + `)\s*(minutes?|mins?|hours?|hrs?|days?|weeks?)\b`)

	months = `jan(?:uary)?|feb(?:ruary)?|mar(?:ch)?|apr(?:il)?|may|june?|july?|aug(?:ust)?|sep(?:t(?:ember)?)?|oct(?:ober)?|nov(?:ember)?|dec(?:ember)?`

	// "25 Dec", "on the 5th of January 2025"
	dayMonthRe = regexp.MustCompile(`(?i)\b(?:on\s+)?(?:the\s+)?(\d{1,2})(?:st|nd|rd|th)?\s+(?:of\s+)?(` + months + `)\b\.?(?:,?\s+(\d{4})\b)?`)
	// "December 25th", "on Jan 5, 2025"
	monthDayRe = regexp.MustCompile(`(?i)\b(?:on\s+)?(` + months + `)\.?\s+(?:the\s+)?(\d{1,2})(?:st|nd|rd|th)?\b(?:,?\s+(\d{4})\b)?`)

	meridiemRe = regexp.MustCompile(`(?i)\b(?:(?:at|by|around)\s+)?(\d{1,2})(?::([0-5]\d))?\s*([ap])\.?\s?m\b\.?`)
	colonRe    = regexp.MustCompile(`(?i)\b(?:(?:at|by|around)\s+)?(\d{1,2}):([0-5]\d)\b`)
	noonRe     = regexp.MustCompile(`(?i)\b(?:(?:at|by|around)\s+)?(noon|midday|midnight)\b`)
	atHourRe   = regexp.MustCompile(`(?i)\b(?:at|by|around)\s+(\d{1,2})(?:\s*o['’]?clock)?\b|\b(\d{1,2})\s*o['’]?clock\b`)

	dayRe  = regexp.MustCompile(`(?i)\b(?:(on|this|next|coming|this\s+coming)\s+)?(today|tonight|tomorrow|tomorow|tmrw|monday|tuesday|wednesday|thursday|friday|saturday|sunday)\b`)
	partRe = regexp.MustCompile(`(?i)\b(?:(?:this|in\s+the|at|during\s+the)\s+)?(morning|afternoon|evening|night)\b`)

	politeRe = regexp.MustCompile(`(?i)^(?:(?:hey|hi|hello|ok|okay|please|pls|kindly|can\s+you|could\s+you|would\s+you|will\s+you)\b[\s,]*)+`)
	fillerRe = regexp.MustCompile(`(?i)^(?:remind\s+me|set\s+(?:up\s+)?(?:a\s+)?reminder|create\s+(?:a\s+)?reminder|add\s+(?:a\s+)?reminder|make\s+(?:a\s+)?reminder|don'?t\s+let\s+me\s+forget|make\s+sure\s+(?:that\s+)?i|help\s+me\s+remember|i\s+need\s+to\s+remember)\b(?:\s+(?:to|about|that|for|of)\b)?`)
)

// connectors are cut from the title only when a temporal phrase follows them.
var connectors = map[string]bool{
	"by": true, "for": true, "before": true, "after": true, "until": true,
	"till": true, "from": true, "around": true,
}

var spanLeads = map[string]bool{
	"at": true, "by": true, "around": true, "on": true, "in": true, "after": true,
	"this": true, "next": true, "coming": true, "during": true,
}

// Lowercase "may" and "mar" are usually verbs ("take 2 may pills"), so they
// only name a month with an ordinal, "of", a leading "on" or a year.
var dateCueRe = regexp.MustCompile(`(?i)^on\s|\d(?:st|nd|rd|th)\b|\bof\s|\d{4}$`)

func verbMonth(match, month string) bool {
	if month != "may" && month != "mar" {
		return false
	}
	return !dateCueRe.MatchString(match)
}

// maxOffset bounds "in N <unit>" to roughly ten years.
var maxOffset = map[string]int{
	"minute": 10 * 365 * 24 * 60,
	"hour":   10 * 365 * 24,
	"day":    10 * 365,
	"week":   10 * 52,
}

var wordNumbers = map[string]int{
	"a": 1, "an": 1, "one": 1, "two": 2, "three": 3, "four": 4, "five": 5, "six": 6,
	"seven": 7, "eight": 8, "nine": 9, "ten": 10, "eleven": 11, "twelve": 12,
}

var weekdays = map[string]time.Weekday{
	"sunday": time.Sunday, "monday": time.Monday, "tuesday": time.Tuesday,
	"wednesday": time.Wednesday, "thursday": time.Thursday, "friday": time.Friday,
	"saturday": time.Saturday,
}

var monthPrefixes = map[string]time.Month{
	"jan": time.January, "feb": time.February, "mar": time.March, "apr": time.April,
	"may": time.May, "jun": time.June, "jul": time.July, "aug": time.August,
	"sep": time.September, "oct": time.October, "nov": time.November, "dec": time.December,
}

// scanner walks the regexes in priority order, recording which bytes have
// been claimed so a later, looser pattern never re-reads an earlier match.
type scanner struct {
	text string
	used []bool
}

func (s *scanner) each(re *regexp.Regexp, accept func(m []int) bool) {
	for _, m := range re.FindAllStringSubmatchIndex(s.text, -1) {
		if s.claimed(m[0], m[1]) {
			continue
		}
		if accept(m) {
			for i := m[0]; i < m[1]; i++ {
				s.used[i] = true
			}
		}
	}
}

func (s *scanner) claimed(from, to int) bool {
	for i := from; i < to; i++ {
		if s.used[i] {
			return true
		}
	}
	return false
}

func (s *scanner) group(m []int, i int) string {
	if m[2*i] < 0 {
		return ""
	}
	return s.text[m[2*i]:m[2*i+1]]
}

// claimConnectors extends each claimed span backwards over one connector
// word ("pay the bills by friday"), unless the span already opens with a
// preposition of its own ("stop by at 4pm").
func (s *scanner) claimConnectors() {
	for i := 1; i < len(s.text); i++ {
		if !s.used[i] || s.used[i-1] {
			continue
		}
		if spanLeads[strings.ToLower(wordAt(s.text, i))] {
			continue
		}
		j := i
		for j > 0 && (s.text[j-1] == ' ' || s.text[j-1] == '\t') {
			j--
		}
		k := j
		for k > 0 && isASCIILetter(s.text[k-1]) {
			k--
		}
		if j == i || k == j || (k > 0 && s.text[k-1] >= utf8.RuneSelf) {
			continue
		}
		if connectors[strings.ToLower(s.text[k:j])] {
			for x := k; x < i; x++ {
				s.used[x] = true
			}
		}
	}
}

func wordAt(text string, i int) string {
	j := i
	for j < len(text) && isASCIILetter(text[j]) {
		j++
	}
	return text[i:j]
}

func isASCIILetter(b byte) bool {
	return (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z')
}

func (s *scanner) rest() string {
	b := []byte(s.text)
	for i := range b {
		if s.used[i] {
			b[i] = ' '
		}
	}
	return string(b)
}

func extract(text string) cues {
	s := &scanner{text: text, used: make([]bool, len(text))}
	var c cues

	s.each(offsetRe, func(m []int) bool {
		o, ok := parseOffset(s.group(m, 1), s.group(m, 2))
		if !ok {
			return false
		}
		if c.offset == nil {
			c.offset = &o
		}
		return true
	})

	var days []*dayMarker
	var clocks []*clockTime

	s.each(dayMonthRe, func(m []int) bool {
		if verbMonth(s.text[m[0]:m[1]], s.group(m, 2)) {
			return false
		}
		d, ok := dateMarker(s.group(m, 1), s.group(m, 2), s.group(m, 3), m[0])
		if ok {
			days = append(days, d)
		}
		return ok
	})
	s.each(monthDayRe, func(m []int) bool {
		if verbMonth(s.text[m[0]:m[1]], s.group(m, 1)) {
			return false
		}
		d, ok := dateMarker(s.group(m, 2), s.group(m, 1), s.group(m, 3), m[0])
		if ok {
			days = append(days, d)
		}
		return ok
	})

	s.each(meridiemRe, func(m []int) bool {
		h, _ := strconv.Atoi(s.group(m, 1))
		if h < 1 || h > 12 {
			return false
		}
		minute, hasMin := atoiOpt(s.group(m, 2))
		if strings.EqualFold(s.group(m, 3), "p") {
			h = h%12 + 12
		} else {
			h = h % 12
		}
		clocks = append(clocks, &clockTime{hour: h, minute: minute, explicit: true, specificity: 2 + b2i(hasMin), pos: m[0]})
		return true
	})
	s.each(colonRe, func(m []int) bool {
		hs := s.group(m, 1)
		h, _ := strconv.Atoi(hs)
		if h > 23 {
			return false
		}
		minute, _ := strconv.Atoi(s.group(m, 2))
		// 24-hour when the hour cannot be a 12-hour value or is zero-padded.
		explicit := h == 0 || h > 12 || (len(hs) == 2 && hs[0] == '0')
		clocks = append(clocks, &clockTime{hour: h, minute: minute, explicit: explicit, specificity: 1 + 2*b2i(explicit), pos: m[0]})
		return true
	})
	s.each(noonRe, func(m []int) bool {
		h := 12
		if strings.EqualFold(s.group(m, 1), "midnight") {
			h = 0
		}
		clocks = append(clocks, &clockTime{hour: h, explicit: true, specificity: 2, pos: m[0]})
		return true
	})
	s.each(atHourRe, func(m []int) bool {
		hs := s.group(m, 1)
		if hs == "" {
			hs = s.group(m, 2)
		}
		h, _ := strconv.Atoi(hs)
		if h > 23 {
			return false
		}
		explicit := h == 0 || h > 12
		clocks = append(clocks, &clockTime{hour: h, explicit: explicit, specificity: 2 * b2i(explicit), pos: m[0]})
		return true
	})

	s.each(dayRe, func(m []int) bool {
		word := strings.ToLower(s.group(m, 2))
		d := &dayMarker{pos: m[0]}
		switch word {
		case "today":
			d.kind = dayToday
		case "tonight":
			d.kind = dayTonight
		case "tomorrow", "tomorow", "tmrw":
			d.kind = dayTomorrow
		default:
			d.kind = dayWeekday
			d.weekday = weekdays[word]
			d.next = strings.EqualFold(s.group(m, 1), "next")
		}
		days = append(days, d)
		return true
	})

	s.each(partRe, func(m []int) bool {
		if c.part != partNone {
			return true
		}
		switch strings.ToLower(s.group(m, 1)) {
		case "morning":
			c.part = partMorning
		case "afternoon":
			c.part = partAfternoon
		case "evening":
			c.part = partEvening
		case "night":
			c.part = partNight
		}
		return true
	})

	s.claimConnectors()

	c.clock = mostSpecific(clocks)
	c.day = earliest(days)
	c.rest = s.rest()
	return c
}

func parseOffset(num, unit string) (offsetExpr, bool) {
	var o offsetExpr
	num = strings.ToLower(strings.Join(strings.Fields(num), " "))
	switch {
	case strings.HasPrefix(num, "half"):
		o.half = true
	case wordNumbers[num] > 0:
		o.n = wordNumbers[num]
	default:
		n, err := strconv.Atoi(num)
		if err != nil || n <= 0 {
			return o, false
		}
		o.n = n
	}

	switch u := strings.ToLower(unit); {
	case strings.HasPrefix(u, "min"):
		o.unit = "minute"
	case strings.HasPrefix(u, "h"):
		o.unit = "hour"
	case strings.HasPrefix(u, "d"):
		o.unit = "day"
	case strings.HasPrefix(u, "w"):
		o.unit = "week"
	}
	if o.n > maxOffset[o.unit] {
		return o, false
	}
	return o, true
}

func dateMarker(dayStr, monthStr, yearStr string, pos int) (*dayMarker, bool) {
	dom, _ := strconv.Atoi(dayStr)
	month, ok := monthPrefixes[strings.ToLower(monthStr)[:3]]
	if !ok || dom < 1 || dom > 31 {
		return nil, false
	}
	// Reject dates that do not exist, e.g. 31 Feb.
	probe := time.Date(2000, month, dom, 0, 0, 0, 0, time.UTC)
	if probe.Month() != month {
		return nil, false
	}
	year, _ := atoiOpt(yearStr)
	return &dayMarker{kind: dayDate, month: month, dayOfMonth: dom, year: year, pos: pos}, true
}

// mostSpecific prefers am/pm or 24-hour forms over bare hours and times with
// minutes over those without; the earliest one wins a tie.
func mostSpecific(clocks []*clockTime) *clockTime {
	var best *clockTime
	for _, k := range clocks {
		if best == nil || k.specificity > best.specificity ||
			(k.specificity == best.specificity && k.pos < best.pos) {
			best = k
		}
	}
	return best
}

func earliest(days []*dayMarker) *dayMarker {
	var first *dayMarker
	for _, d := range days {
		if first == nil || d.pos < first.pos {
			first = d
		}
	}
	return first
}

func atoiOpt(s string) (int, bool) {
	if s == "" {
		return 0, false
	}
	n, err := strconv.Atoi(s)
	return n, err == nil
}

func b2i(b bool) int {
	if b {
		return 1
	}
	return 0
}
