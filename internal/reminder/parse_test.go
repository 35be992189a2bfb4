package reminder

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Wednesday, 10:00.
var christmas = time.Date(2024, 12, 25, 10, 0, 0, 0, time.UTC)

func at(y int, m time.Month, d, h, min int) time.Time {
	return time.Date(y, m, d, h, min, 0, 0, time.UTC)
}

func TestParse_Examples(t *testing.T) {
	tests := []struct {
		name  string
		text  string
		title string
		due   time.Time
		conf  Confidence
	}{
		{"clock and today", "remind me to take medicine at 8pm today", "Take medicine", at(2024, 12, 25, 20, 0), ConfidenceExact},
		{"tomorrow only", "remind me to call mom tomorrow", "Call mom", at(2024, 12, 26, DefaultHour, 0), ConfidenceInferred},
		{"no cue", "take out the trash", "Take out the trash", christmas.Add(time.Hour), ConfidenceDefault},
		{"filler without cue", "please remind me to water the plants", "Water the plants", christmas.Add(time.Hour), ConfidenceDefault},
		{"numbers in title", "remind me to take 2 pills at 8pm", "Take 2 pills", at(2024, 12, 25, 20, 0), ConfidenceExact},
		{"tonight bias", "take my pills tonight at 8", "Take my pills", at(2024, 12, 25, 20, 0), ConfidenceExact},
		{"tonight only", "lock the door tonight", "Lock the door", at(2024, 12, 25, TonightHour, 0), ConfidenceInferred},
		{"bare hour pm bias", "call Sam at 3", "Call Sam", at(2024, 12, 25, 15, 0), ConfidenceInferred},
		{"bare hour am bias", "water the garden at 11", "Water the garden", at(2024, 12, 25, 11, 0), ConfidenceInferred},
		{"bare hour passed", "feed the cat at 9", "Feed the cat", at(2024, 12, 26, 9, 0), ConfidenceInferred},
		{"bare 12 is noon", "call mum at 12", "Call mum", at(2024, 12, 25, 12, 0), ConfidenceInferred},
		{"noon", "lunch with Bob at noon", "Lunch with Bob", at(2024, 12, 25, 12, 0), ConfidenceExact},
		{"midnight rolls", "take the sleeping pill at midnight", "Take the sleeping pill", at(2024, 12, 26, 0, 0), ConfidenceInferred},
		{"tonight at 12", "check the doors tonight at 12", "Check the doors", at(2024, 12, 26, 0, 0), ConfidenceExact},
		{"24 hour clock", "bingo at 14:30", "Bingo", at(2024, 12, 25, 14, 30), ConfidenceExact},
		{"weekday with time", "doctor appointment on friday at 2:30pm", "Doctor appointment", at(2024, 12, 27, 14, 30), ConfidenceExact},
		{"same weekday later today", "choir on wednesday at 4pm", "Choir", at(2024, 12, 25, 16, 0), ConfidenceExact},
		{"same weekday passed", "call the bank on wednesday", "Call the bank", at(2025, 1, 1, DefaultHour, 0), ConfidenceInferred},
		{"next weekday", "choir next wednesday at 4pm", "Choir", at(2025, 1, 1, 16, 0), ConfidenceExact},
		{"part of day with tomorrow", "walk the dog tomorrow morning", "Walk the dog", at(2024, 12, 26, 9, 0), ConfidenceInferred},
		{"part of day alone", "take vitamins in the evening", "Take vitamins", at(2024, 12, 25, 18, 0), ConfidenceInferred},
		{"evening biases hour", "call Jo at 7 in the evening", "Call Jo", at(2024, 12, 25, 19, 0), ConfidenceExact},
		{"month date next year", "set a reminder for my doctor appointment on January 5th at 2:30 PM", "My doctor appointment", at(2025, 1, 5, 14, 30), ConfidenceExact},
		{"day month today", "open presents on 25 Dec at 6pm", "Open presents", at(2024, 12, 25, 18, 0), ConfidenceExact},
		{"date only", "renew my passport on 3 March", "Renew my passport", at(2025, 3, 3, DefaultHour, 0), ConfidenceInferred},
		{"connector before day", "pay the bills by friday", "Pay the bills", at(2024, 12, 27, DefaultHour, 0), ConfidenceInferred},
		{"connector before clock", "take pills before 8pm", "Take pills", at(2024, 12, 25, 20, 0), ConfidenceExact},
		{"particle kept before clock", "remind me to turn the heater on at 8pm", "Turn the heater on", at(2024, 12, 25, 20, 0), ConfidenceExact},
		{"phrasal verb kept", "stop by at 4pm", "Stop by", at(2024, 12, 25, 16, 0), ConfidenceExact},
		{"month after on", "dentist on may 3", "Dentist", at(2025, 5, 3, DefaultHour, 0), ConfidenceInferred},
		{"capitalized May", "dentist May 3", "Dentist", at(2025, 5, 3, DefaultHour, 0), ConfidenceInferred},
		{"ordinal may", "dentist the 3rd of may", "Dentist", at(2025, 5, 3, DefaultHour, 0), ConfidenceInferred},
		{"most specific clock", "meet Ann at 3 then lunch at 1:15pm", "Meet Ann then lunch", at(2024, 12, 25, 13, 15), ConfidenceExact},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Parse(tt.text, christmas)
			require.NoError(t, err)
			assert.Equal(t, tt.title, got.Title)
			assert.True(t, tt.due.Equal(got.DueAt), "due: want %s, got %s", tt.due, got.DueAt)
			assert.Equal(t, tt.conf, got.Confidence)
		})
	}
}

func TestParse_Offsets(t *testing.T) {
	tests := []struct {
		text  string
		title string
		due   time.Time
	}{
		{"check the oven in half an hour", "Check the oven", christmas.Add(30 * time.Minute)},
		{"in an hour call the pharmacy", "Call the pharmacy", christmas.Add(time.Hour)},
		{"in 5min turn off the stove", "Turn off the stove", christmas.Add(5 * time.Minute)},
		{"remind me to water the plants in 3 days", "Water the plants", at(2024, 12, 28, 10, 0)},
		{"in two weeks see the dentist", "See the dentist", at(2025, 1, 8, 10, 0)},
		{"call the pharmacy at 5pm in 20 minutes", "Call the pharmacy", christmas.Add(20 * time.Minute)},
		{"in 2 hours take medicine at 8am tomorrow", "Take medicine", christmas.Add(2 * time.Hour)},
	}
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			got, err := Parse(tt.text, christmas)
			require.NoError(t, err)
			assert.Equal(t, tt.title, got.Title)
			assert.True(t, tt.due.Equal(got.DueAt), "due: want %s, got %s", tt.due, got.DueAt)
			assert.Equal(t, ConfidenceExact, got.Confidence)
		})
	}
}

func TestParse_OffsetAlwaysWins(t *testing.T) {
	for n := 1; n <= 90; n += 7 {
		for _, unit := range []struct {
			word string
			d    time.Duration
		}{{"minutes", time.Minute}, {"hours", time.Hour}} {
			text := fmt.Sprintf("take my pills at 5pm tomorrow in %d %s", n, unit.word)
			got, err := Parse(text, christmas)
			require.NoError(t, err, text)
			assert.True(t, christmas.Add(time.Duration(n)*unit.d).Equal(got.DueAt), "%s: got %s", text, got.DueAt)
		}
	}
}

func TestParse_PassedClockRollsToTomorrow(t *testing.T) {
	for minutes := 0; minutes < 10*60; minutes += 37 {
		h, m := minutes/60, minutes%60
		h12 := h % 12
		if h12 == 0 {
			h12 = 12
		}
		text := fmt.Sprintf("take my medicine at %d:%02dam", h12, m)

		got, err := Parse(text, christmas)
		require.NoError(t, err, text)
		assert.True(t, at(2024, 12, 26, h, m).Equal(got.DueAt), "%s: got %s", text, got.DueAt)
		assert.Equal(t, ConfidenceInferred, got.Confidence, text)
	}
}

func TestParse_NeverInThePast(t *testing.T) {
	inputs := []string{
		"pills at 8am", "pills today", "pills tonight", "pills this morning",
		"pills on wednesday", "pills at 9", "pills on 1 Jan 2020", "pills at midnight",
	}
	late := time.Date(2024, 12, 25, 23, 30, 0, 0, time.UTC)
	for _, in := range inputs {
		got, err := Parse(in, late)
		require.NoError(t, err, in)
		assert.False(t, got.DueAt.Before(late), "%q resolved to %s", in, got.DueAt)
	}
}

func TestParse_TitleKeepsTrailingWords(t *testing.T) {
	tests := []struct {
		text  string
		title string
	}{
		{"turn the oven on", "Turn the oven on"},
		{"log in", "Log in"},
		{"remind me to read this", "Read this"},
		{"pick up the kids from school", "Pick up the kids from school"},
		{"take 2 may pills", "Take 2 may pills"},
		{"remind me I may 3 dogs", "I may 3 dogs"},
		{"please remind me to call the plumber about", "Call the plumber about"},
	}
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			got, err := Parse(tt.text, christmas)
			require.NoError(t, err)
			assert.Equal(t, tt.title, got.Title)
			assert.Equal(t, ConfidenceDefault, got.Confidence)
			assert.True(t, christmas.Add(DefaultOffset).Equal(got.DueAt))
		})
	}
}

func TestParse_HugeOffsetFallsBack(t *testing.T) {
	late := time.Date(2024, 12, 25, 23, 30, 0, 0, time.UTC)
	for _, in := range []string{
		"take pills in 3000000 hours",
		"take pills in 200000000 minutes",
		"take pills in 99999999999999999999 days",
		"take pills in 600 weeks",
	} {
		got, err := Parse(in, late)
		require.NoError(t, err, in)
		assert.False(t, got.DueAt.Before(late), "%q resolved to %s", in, got.DueAt)
		assert.Equal(t, ConfidenceDefault, got.Confidence, in)
		assert.True(t, late.Add(DefaultOffset).Equal(got.DueAt), "%q resolved to %s", in, got.DueAt)
	}

	got, err := Parse("renew the lease in 87600 hours", christmas)
	require.NoError(t, err)
	assert.True(t, christmas.Add(87600*time.Hour).Equal(got.DueAt))
	assert.Equal(t, ConfidenceExact, got.Confidence)
}

func TestParse_TodayAfterDefaultHour(t *testing.T) {
	got, err := Parse("call the nurse today", christmas)
	require.NoError(t, err)
	assert.True(t, christmas.Add(DefaultOffset).Equal(got.DueAt))
	assert.Equal(t, ConfidenceInferred, got.Confidence)
}

func TestParse_EmptyInput(t *testing.T) {
	for _, in := range []string{"", "   ", "\t\n"} {
		_, err := Parse(in, christmas)
		assert.ErrorIs(t, err, ErrEmptyInput, "%q", in)
	}
}

func TestParse_UnparseableTitle(t *testing.T) {
	for _, in := range []string{"tomorrow at 9am", "remind me at 8pm", "in 10 minutes", "please remind me tonight."} {
		_, err := Parse(in, christmas)
		assert.ErrorIs(t, err, ErrUnparseableTitle, "%q", in)
	}
}

func TestParse_UsesLocationOfNow(t *testing.T) {
	loc := time.FixedZone("EST", -5*3600)
	now := time.Date(2024, 12, 25, 10, 0, 0, 0, loc)

	got, err := Parse("take medicine at 8pm", now)
	require.NoError(t, err)
	assert.Equal(t, loc, got.DueAt.Location())
	assert.Equal(t, 20, got.DueAt.Hour())
	assert.True(t, time.Date(2024, 12, 26, 1, 0, 0, 0, time.UTC).Equal(got.DueAt))
}

func TestParse_Idempotent(t *testing.T) {
	const text = "remind me to take medicine at 8pm today"
	a, errA := Parse(text, christmas)
	b, errB := Parse(text, christmas)
	require.NoError(t, errA)
	require.NoError(t, errB)
	assert.Equal(t, a, b)
}
