package discord

import (
	"context"
	"fmt"

	"github.com/bwmarrin/discordgo"
	"github.com/rs/zerolog/log"

	"github.com/chris/anchor/internal/agent"
	"github.com/chris/anchor/internal/db"
	"github.com/chris/anchor/internal/history"
)

type Bot struct {
	session *discordgo.Session
	agent   *agent.Agent
	db      *db.DB
	history history.Store
	locks   *history.Locker
}

// NewBot connects to Discord and starts answering patient DMs. locks should
// be shared with any other transport serving the same patients.
func NewBot(token string, ag *agent.Agent, database *db.DB, store history.Store, locks *history.Locker) (*Bot, error) {
	s, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, fmt.Errorf("creating Discord session: %w", err)
	}
	if locks == nil {
		locks = history.NewLocker()
	}

	bot := &Bot{session: s, agent: ag, db: database, history: store, locks: locks}
	s.AddHandler(bot.onMessage)
	s.Identify.Intents = discordgo.IntentsDirectMessages | discordgo.IntentsGuildMessages

	if err := s.Open(); err != nil {
		return nil, fmt.Errorf("opening Discord connection: %w", err)
	}

	log.Info().Str("user", s.State.User.Username).Msg("discord bot connected")
	return bot, nil
}

// SendDM messages a Discord user directly, splitting long content.
func (b *Bot) SendDM(ctx context.Context, userID, content string) error {
	ch, err := b.session.UserChannelCreate(userID, discordgo.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("opening DM channel: %w", err)
	}
	for _, chunk := range splitMessage(content, maxMessageLen) {
		if _, err := b.session.ChannelMessageSend(ch.ID, chunk, discordgo.WithContext(ctx)); err != nil {
			return fmt.Errorf("sending DM: %w", err)
		}
	}
	return nil
}

func (b *Bot) Close() {
	if err := b.session.Close(); err != nil {
		log.Warn().Err(err).Msg("closing discord session")
	}
}
