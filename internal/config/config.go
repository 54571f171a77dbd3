package config

import (
	"fmt"

	"github.com/Netflix/go-env"
)

type Config struct {
	APIKey              string `env:"API_KEY,required=true"`
	TelegramBotToken    string `env:"TELEGRAM_BOT_TOKEN,required=true"`
	TelegramChatID      string `env:"TELEGRAM_CHAT_ID,required=true"`
	DatabaseDSN         string `env:"DATABASE_DSN,default=notifications.db"`
	RateLimitMax        int    `env:"RATE_LIMIT_MAX_REQUESTS,default=60"`
	RateLimitWindowSec  int    `env:"RATE_LIMIT_WINDOW_SEC,default=60"`
	DeliveryMaxAttempts int    `env:"DELIVERY_MAX_ATTEMPTS,default=3"`
	DeliveryBaseDelayMS int    `env:"DELIVERY_BASE_DELAY_MS,default=500"`
	TLSCertFile         string `env:"TLS_CERT_FILE"`
	TLSKeyFile          string `env:"TLS_KEY_FILE"`
	APIPort             int    `env:"API_PORT,default=5000"`
	LogLevel            string `env:"LOG_LEVEL,default=info"`
}

func Load() (*Config, error) {
	var cfg Config
	_, err := env.UnmarshalFromEnviron(&cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return &cfg, nil
}

// TLSEnabled reports whether a certificate/key pair was configured.
func (c *Config) TLSEnabled() bool {
	return c != nil && c.TLSCertFile != "" && c.TLSKeyFile != ""
}
