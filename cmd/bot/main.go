package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"github.com/svetlov/captchabot/internal/code"
	"github.com/svetlov/captchabot/internal/common/clock"
	"github.com/svetlov/captchabot/internal/common/uuid"
	"github.com/svetlov/captchabot/internal/config"
	"github.com/svetlov/captchabot/internal/handlers/telegram"
	"github.com/svetlov/captchabot/internal/render"
	sessionRepo "github.com/svetlov/captchabot/internal/repositories/session"
	"github.com/svetlov/captchabot/internal/services/captcha"
)

func main() {
	// Best effort; the environment itself is authoritative
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	store, err := buildSessionStore(cfg)
	if err != nil {
		log.Fatalf("Failed to create session store: %v", err)
	}

	captchaSvc, err := captcha.New(&captcha.Config{
		SessionRepo:  store,
		Generator:    code.New(&code.Config{}),
		Renderer:     render.New(nil),
		Clock:        clock.New(),
		UUID:         uuid.New(),
		CodeLength:   cfg.CodeLength,
		ChallengeTTL: cfg.ChallengeTTL,
	})
	if err != nil {
		log.Fatalf("Failed to create captcha service: %v", err)
	}

	bot, err := telegram.New(&telegram.Config{
		Token:          cfg.TelegramToken,
		PollTimeout:    cfg.PollTimeout,
		AuthEnabled:    cfg.AuthEnabled,
		CaptchaService: captchaSvc,
	})
	if err != nil {
		log.Fatalf("Failed to create Telegram bot: %v", err)
	}

	go bot.Start()

	log.Println("Bot is now running. Press CTRL-C to exit.")
	sc := make(chan os.Signal, 1)
	signal.Notify(sc, syscall.SIGINT, syscall.SIGTERM, os.Interrupt)
	<-sc

	bot.Stop()

	if err := store.Close(); err != nil {
		log.Printf("Error closing session store: %v", err)
	}

	log.Println("Bot has been shut down")
}

// buildSessionStore picks the Redis repository when an address is
// configured, the in-memory one otherwise
func buildSessionStore(cfg *config.Config) (sessionRepo.Repository, error) {
	if cfg.RedisAddr == "" {
		return sessionRepo.NewMemory(&sessionRepo.MemoryConfig{})
	}

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       0,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := redisClient.Ping(ctx).Err(); err != nil {
		log.Fatalf("Failed to connect to Redis: %v", err)
	}

	return sessionRepo.NewRedis(&sessionRepo.RedisConfig{
		RedisClient: redisClient,
	})
}
