package bot

import (
	"fmt"
	"log/slog"

	"github.com/bwmarrin/discordgo"
	"github.com/susu3304/pokediabot/internal/config"
	"github.com/susu3304/pokediabot/internal/db"
	"github.com/susu3304/pokediabot/internal/trade"
)

type Bot struct {
	session   *discordgo.Session
	db        *db.DB
	trades    *trade.Manager
	presenter *Presenter
	prefix    string
	log       *slog.Logger
}

// New wires a Discord session to a trade manager backed by database.
func New(cfg *config.Config, database *db.DB, opts trade.Options) (*Bot, error) {
	session, err := discordgo.New("Bot " + cfg.DiscordToken)
	if err != nil {
		return nil, fmt.Errorf("failed to create discord session: %w", err)
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	presenter := NewPresenter(session, cfg.CommandPrefix, logger)

	bot := &Bot{
		session:   session,
		db:        database,
		trades:    trade.NewManager(database, presenter, opts),
		presenter: presenter,
		prefix:    cfg.CommandPrefix,
		log:       logger.With("component", "bot"),
	}

	// Register event handlers
	session.AddHandler(bot.onReady)
	session.AddHandler(bot.onMessageCreate)
	session.AddHandler(bot.onInteractionCreate)

	session.Identify.Intents = discordgo.IntentsGuilds |
		discordgo.IntentsGuildMessages |
		discordgo.IntentsDirectMessages |
		discordgo.IntentMessageContent

	return bot, nil
}

// Trades exposes the manager for the web API.
func (b *Bot) Trades() *trade.Manager {
	return b.trades
}

func (b *Bot) Start() error {
	if err := b.session.Open(); err != nil {
		return fmt.Errorf("failed to open discord session: %w", err)
	}
	b.log.Info("discord bot is running", "prefix", b.prefix)
	return nil
}

func (b *Bot) Stop() error {
	return b.session.Close()
}
