package main

import (
	"fmt"
	"log/slog"
	"os"
	"os/user"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

type config struct {
	Endpoint      string        `env:"TALKBOT_ENDPOINT" envDefault:"http://localhost:5000/api/chat"`
	Timeout       time.Duration `env:"TALKBOT_TIMEOUT" envDefault:"30s"`
	RedisAddr     string        `env:"TALKBOT_REDIS_ADDR" envDefault:"localhost:6379"`
	RedisPassword string        `env:"TALKBOT_REDIS_PASSWORD"`
	SessionSlot   string        `env:"TALKBOT_SESSION_SLOT"`
	IDToken       string        `env:"TALKBOT_ID_TOKEN"`
	Avatar        string        `env:"TALKBOT_AVATAR" envDefault:"robot"`
	SystemPrompt  string        `env:"TALKBOT_SYSTEM_PROMPT"`
	SpeechCommand string        `env:"TALKBOT_SPEECH_COMMAND" envDefault:"espeak --stdin"`
	RecordCommand string        `env:"TALKBOT_RECORD_COMMAND"`
	GeminiAPIKey  string        `env:"GEMINI_API_KEY"`
	JWTSecret     string        `env:"TALKBOT_JWT_SECRET"`
	JWTIssuer     string        `env:"TALKBOT_JWT_ISSUER"`
	JWTAudience   string        `env:"TALKBOT_JWT_AUDIENCE"`

	IdentityAPIKey   string `env:"TALKBOT_IDENTITY_API_KEY"`
	IdentityEndpoint string `env:"TALKBOT_IDENTITY_ENDPOINT"`
	Password         string `env:"TALKBOT_PASSWORD"`
}

var (
	cfg         config
	verbose     bool
	catalogPath string
)

// loadConfig reads .env (when present) and the environment before any
// command runs.
func loadConfig(_ *cobra.Command, _ []string) error {
	_ = godotenv.Load()
	if err := env.Parse(&cfg); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	if strings.TrimSpace(cfg.SessionSlot) == "" {
		cfg.SessionSlot = defaultSlot()
	}

	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
	return nil
}

func defaultSlot() string {
	if u, err := user.Current(); err == nil && u.Username != "" {
		return u.Username
	}
	return "default"
}
