package telegram

import (
	"errors"
	"fmt"
	"log"
	"time"

	tele "gopkg.in/telebot.v3"

	"github.com/svetlov/captchabot/internal/services/captcha"
)

// Bot represents the Telegram bot instance
type Bot struct {
	bot            *tele.Bot
	captchaService captcha.Service
	config         *Config
}

// Config holds the configuration for the bot
type Config struct {
	// Telegram bot token
	Token string

	// PollTimeout for the long poller
	PollTimeout time.Duration

	// AuthEnabled selects the captcha-gated wiring
	AuthEnabled bool

	// Captcha service
	CaptchaService captcha.Service
}

// New creates a new Telegram bot and builds its route table. Routes are
// registered here once, against this instance; there is no global
// dispatcher state.
func New(cfg *Config) (*Bot, error) {
	if cfg == nil {
		return nil, errors.New("config cannot be nil")
	}

	if cfg.Token == "" {
		return nil, errors.New("token cannot be empty")
	}

	if cfg.CaptchaService == nil {
		return nil, errors.New("captcha service cannot be nil")
	}

	pollTimeout := cfg.PollTimeout
	if pollTimeout <= 0 {
		pollTimeout = 10 * time.Second
	}

	b, err := tele.NewBot(tele.Settings{
		Token:  cfg.Token,
		Poller: &tele.LongPoller{Timeout: pollTimeout},
		OnError: func(err error, c tele.Context) {
			// A single failed update must not take the bot down
			if c != nil && c.Sender() != nil {
				log.Printf("update failed user_id=%d err=%v", c.Sender().ID, err)
				return
			}
			log.Printf("update failed err=%v", err)
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Telegram bot: %w", err)
	}

	bot := &Bot{
		bot:            b,
		captchaService: cfg.CaptchaService,
		config:         cfg,
	}

	// Both wirings are always present; the flag picks one at startup
	if cfg.AuthEnabled {
		b.Handle("/start", bot.handleStart)
		b.Handle("/help", bot.handleHelp, bot.requireAuth)
		b.Handle(tele.OnText, bot.handleText)
	} else {
		b.Handle("/start", bot.handleGreeting)
		b.Handle("/help", bot.handleHelp)
		b.Handle(tele.OnText, bot.handleEcho)
	}

	return bot, nil
}

// Start runs the long-polling loop. It blocks until Stop is called.
func (b *Bot) Start() {
	log.Println("starting Telegram long-polling loop")
	b.bot.Start()
}

// Stop terminates the long-polling loop
func (b *Bot) Stop() {
	b.bot.Stop()
	log.Println("Telegram bot stopped")
}
