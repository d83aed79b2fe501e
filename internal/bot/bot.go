package bot

import (
	"context"
	"fmt"
	"log"
	"time"

	tele "gopkg.in/telebot.v3"

	"load-shedding-monitor/internal/cache"
	"load-shedding-monitor/internal/database"
)

// Refresher requests an immediate out-of-band refresh of one area.
type Refresher interface {
	RequestRefresh(ctx context.Context, areaID string, chatID int64) error
}

// Bot wraps the Telegram bot and subscription commands.
type Bot struct {
	bot       *tele.Bot
	db        *database.DB
	cache     *cache.Cache
	refresher Refresher
}

var htmlOpts = &tele.SendOptions{ParseMode: tele.ModeHTML}

// New creates and configures the Telegram bot.
func New(token string, db *database.DB, c *cache.Cache, refresher Refresher) (*Bot, error) {
	pref := tele.Settings{
		Token:  token,
		Poller: &tele.LongPoller{Timeout: 10 * time.Second},
	}

	b, err := tele.NewBot(pref)
	if err != nil {
		return nil, fmt.Errorf("create bot: %w", err)
	}

	bot := &Bot{
		bot:       b,
		db:        db,
		cache:     c,
		refresher: refresher,
	}

	bot.registerHandlers()

	if err := b.SetCommands([]tele.Command{
		{Text: "subscribe", Description: "Subscribe to an area's outage alerts"},
		{Text: "unsubscribe", Description: "Stop alerts for an area"},
		{Text: "areas", Description: "List tracked areas"},
		{Text: "stage", Description: "Current load shedding stage per region"},
		{Text: "forecast", Description: "Outage forecast for your areas"},
		{Text: "refresh", Description: "Force a schedule refresh for an area"},
		{Text: "help", Description: "How this bot works"},
	}); err != nil {
		log.Printf("[bot] failed to set commands: %v", err)
	}

	return bot, nil
}

func (b *Bot) registerHandlers() {
	b.bot.Handle("/start", b.handleStart)
	b.bot.Handle("/help", b.handleHelp)
	b.bot.Handle("/subscribe", b.handleSubscribe)
	b.bot.Handle("/unsubscribe", b.handleUnsubscribe)
	b.bot.Handle("/areas", b.handleAreas)
	b.bot.Handle("/stage", b.handleStage)
	b.bot.Handle("/forecast", b.handleForecast)
	b.bot.Handle("/refresh", b.handleRefresh)
}

// Start runs the bot's long poller. Blocks until Stop is called.
func (b *Bot) Start() {
	b.bot.Start()
}

// Stop stops the long poller.
func (b *Bot) Stop() {
	b.bot.Stop()
}

// Send delivers a message to a chat by ID.
func (b *Bot) Send(chatID int64, msg string) error {
	_, err := b.bot.Send(&tele.Chat{ID: chatID}, msg, htmlOpts)
	return err
}
