package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/chris/anchor/config"
	"github.com/chris/anchor/internal/agent"
	"github.com/chris/anchor/internal/db"
	"github.com/chris/anchor/internal/discord"
	"github.com/chris/anchor/internal/history"
	"github.com/chris/anchor/internal/llm"
	"github.com/chris/anchor/internal/notify"
	"github.com/chris/anchor/internal/scheduler"
	"github.com/chris/anchor/internal/server"
)

// deps are the pieces shared by serve and chat.
type deps struct {
	db       *db.DB
	agent    *agent.Agent
	dispatch *notify.Dispatcher
}

func newDeps(cfg *config.Config) (*deps, error) {
	database, err := db.Open(cfg.DatabasePath)
	if err != nil {
		return nil, err
	}

	client, err := llm.NewClient(llm.ProviderConfig{
		Provider:  cfg.LLMProvider,
		APIKey:    cfg.APIKey(),
		AuthToken: cfg.AnthropicToken,
		Model:     cfg.LLMModel,
		BaseURL:   cfg.BaseURL(),
		MaxTokens: cfg.MaxOutputTokens,
	})
	if err != nil {
		database.Close()
		return nil, fmt.Errorf("creating LLM client: %w", err)
	}

	dispatch := notify.New(cfg.CaregiverWebhook)
	ag := agent.New(database, client, dispatch, cfg.MaxContextTokens)
	ag.DefaultLocation = cfg.Location()

	log.Info().Str("provider", client.Name()).Str("database", cfg.DatabasePath).Msg("agent ready")
	return &deps{db: database, agent: ag, dispatch: dispatch}, nil
}

func newHistoryStore(ctx context.Context, cfg *config.Config) (history.Store, error) {
	switch cfg.HistoryBackend {
	case "redis":
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("parsing REDIS_URL: %w", err)
		}
		client := redis.NewClient(opts)
		if err := client.Ping(ctx).Err(); err != nil {
			client.Close()
			return nil, fmt.Errorf("connecting to redis: %w", err)
		}
		return history.NewRedisStore(client, cfg.HistoryLimit, cfg.HistoryTTL), nil
	default:
		return history.NewMemoryStore(cfg.HistoryLimit, cfg.HistoryMaxPatients)
	}
}

func runServe(ctx context.Context, cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	d, err := newDeps(cfg)
	if err != nil {
		return err
	}
	defer d.db.Close()

	store, err := newHistoryStore(ctx, cfg)
	if err != nil {
		return err
	}
	log.Info().Str("backend", cfg.HistoryBackend).Int("limit", cfg.HistoryLimit).Msg("history store ready")

	locks := history.NewLocker()

	if cfg.DiscordToken != "" {
		bot, err := discord.NewBot(cfg.DiscordToken, d.agent, d.db, store, locks)
		if err != nil {
			return err
		}
		defer bot.Close()
		d.dispatch.SetDM(bot)
	} else {
		log.Info().Msg("DISCORD_BOT_TOKEN not set, reminders go to caregiver webhooks only")
	}

	sched := scheduler.New(d.db, d.agent, d.dispatch, cfg.ReminderCron, cfg.DigestCron, cfg.Location())
	if err := sched.Start(); err != nil {
		return err
	}
	defer sched.Stop()

	srv := server.New(d.db, d.agent, store, server.Options{
		CORSAllowedOrigins: cfg.CORSOrigins,
		DefaultLocation:    cfg.Location(),
		Locks:              locks,
	})
	if err := srv.ListenAndServe(ctx, cfg.HTTPAddr); err != nil {
		return fmt.Errorf("http server: %w", err)
	}
	log.Info().Msg("shutting down")
	return nil
}
