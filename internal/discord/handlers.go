package discord

import (
	"context"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/bwmarrin/discordgo"
	"github.com/rs/zerolog/log"

	"github.com/chris/anchor/internal/history"
)

const (
	maxMessageLen = 2000
	replyTimeout  = 2 * time.Minute
	fallbackReply = "I'm having a little trouble right now, but I'm still here. Could you say that again in a moment?"
)

// PatientID maps a Discord user to the patient they chat as.
func PatientID(userID string) string {
	return "discord:" + userID
}

func (b *Bot) onMessage(s *discordgo.Session, m *discordgo.MessageCreate) {
	if m.Author == nil || m.Author.ID == s.State.User.ID || m.Author.Bot {
		return
	}

	// Only respond to DMs or when mentioned
	isDM := m.GuildID == ""
	isMentioned := false
	for _, u := range m.Mentions {
		if u.ID == s.State.User.ID {
			isMentioned = true
			break
		}
	}
	if !isDM && !isMentioned {
		return
	}

	content := strings.TrimSpace(stripMention(m.Content, s.State.User.ID))
	if content == "" {
		return
	}

	s.ChannelTyping(m.ChannelID)

	ctx, cancel := context.WithTimeout(context.Background(), replyTimeout)
	defer cancel()
	reply := b.reply(ctx, m.Author.ID, content, isDM)

	for _, chunk := range splitMessage(reply, maxMessageLen) {
		if _, err := s.ChannelMessageSend(m.ChannelID, chunk); err != nil {
			log.Error().Err(err).Str("channel_id", m.ChannelID).Msg("sending discord reply")
			return
		}
	}
}

// reply runs one exchange for the user and records it in their history.
// Agent failures yield a calm fallback instead of an error.
func (b *Bot) reply(ctx context.Context, userID, content string, isDM bool) string {
	patientID := PatientID(userID)
	unlock := b.locks.Lock(patientID)
	defer unlock()

	logger := log.With().Str("patient_id", patientID).Logger()
	if isDM {
		b.linkDM(patientID, userID)
	}

	turns, err := b.history.Load(ctx, patientID)
	if err != nil {
		logger.Warn().Err(err).Msg("loading history")
	}

	reply, err := b.agent.Run(ctx, patientID, turns, content)
	if err != nil {
		logger.Error().Err(err).Msg("agent run failed")
		return fallbackReply
	}

	if err := b.history.Append(ctx, patientID,
		history.Turn{Role: "user", Content: content},
		history.Turn{Role: "assistant", Content: reply},
	); err != nil {
		logger.Warn().Err(err).Msg("saving history")
	}
	return reply
}

// linkDM remembers the user's Discord ID so reminders can be sent to them.
func (b *Bot) linkDM(patientID, userID string) {
	p, err := b.agent.Patient(patientID)
	if err != nil {
		log.Warn().Err(err).Str("patient_id", patientID).Msg("loading patient")
		return
	}
	if p.DiscordUserID == userID {
		return
	}
	if err := b.db.UpdatePatient(patientID, map[string]any{"discord_user_id": userID}); err != nil {
		log.Warn().Err(err).Str("patient_id", patientID).Msg("linking discord user")
	}
}

func stripMention(s, userID string) string {
	s = strings.ReplaceAll(s, "<@"+userID+">", "")
	s = strings.ReplaceAll(s, "<@!"+userID+">", "")
	return s
}

// splitMessage cuts s into chunks of at most maxLen bytes, preferring to
// break after a newline and never inside a UTF-8 sequence.
func splitMessage(s string, maxLen int) []string {
	if len(s) <= maxLen {
		return []string{s}
	}
	var chunks []string
	for len(s) > 0 {
		end := min(maxLen, len(s))
		if end < len(s) {
			if idx := strings.LastIndex(s[:end], "\n"); idx > 0 {
				end = idx + 1
			}
			for end > 0 && !utf8.RuneStart(s[end]) {
				end--
			}
			if end == 0 {
				end = min(maxLen, len(s))
			}
		}
		chunks = append(chunks, s[:end])
		s = s[end:]
	}
	return chunks
}
