package config

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/joho/godotenv"
	"go-simpler.org/env"
)

type Config struct {
	AppEnv string `env:"APP_ENV" default:"development"`
	Port   string `env:"PORT" default:"8080"`

	BotToken   string `env:"BOT_TOKEN"`
	GatewayURL string `env:"GATEWAY_URL"`
	APIBaseURL string `env:"API_BASE_URL"`

	// ConfirmCap is the number of distinct votes that pins a message.
	// 0 pins immediately on request, without opening a session.
	ConfirmCap int `env:"CONFIRM_CAP" default:"3"`

	PinCooldown   time.Duration `env:"PIN_COOLDOWN" default:"5s"`
	PinTimeout    time.Duration `env:"PIN_TIMEOUT" default:"10s"`
	SessionMaxAge time.Duration `env:"SESSION_MAX_AGE" default:"1h"`
	SweepInterval time.Duration `env:"SWEEP_INTERVAL" default:"5m"`

	GatewayWorkers int `env:"GATEWAY_WORKERS" default:"8"`

	LogLevel  string `env:"LOG_LEVEL" default:"info"`
	LogFormat string `env:"LOG_FORMAT" default:"text"`
}

// maxConfirmCap is the largest supported quorum, bounded by the count emoji
// catalog used to advertise it on the command message.
const maxConfirmCap = 10

func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		slog.Info("No .env file found, using environment variables")
	}

	var cfg Config
	if err := env.Load(&cfg, nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func validate(cfg *Config) error {
	required := map[string]string{
		"BOT_TOKEN":    cfg.BotToken,
		"GATEWAY_URL":  cfg.GatewayURL,
		"API_BASE_URL": cfg.APIBaseURL,
	}
	for name, value := range required {
		if value == "" {
			return fmt.Errorf("%s is required", name)
		}
	}

	if cfg.ConfirmCap < 0 || cfg.ConfirmCap > maxConfirmCap {
		return fmt.Errorf("CONFIRM_CAP must be between 0 and %d, got %d", maxConfirmCap, cfg.ConfirmCap)
	}

	if cfg.GatewayWorkers < 1 {
		return fmt.Errorf("GATEWAY_WORKERS must be at least 1, got %d", cfg.GatewayWorkers)
	}

	for name, d := range map[string]time.Duration{
		"PIN_COOLDOWN":    cfg.PinCooldown,
		"PIN_TIMEOUT":     cfg.PinTimeout,
		"SESSION_MAX_AGE": cfg.SessionMaxAge,
		"SWEEP_INTERVAL":  cfg.SweepInterval,
	} {
		if d <= 0 {
			return fmt.Errorf("%s must be positive", name)
		}
	}

	return nil
}
