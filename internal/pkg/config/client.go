package config

import (
	"context"
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/sethvargo/go-envconfig"
)

const (
	SessionFile  = "file"
	SessionRedis = "redis"
)

// ClientConfig drives the terminal client.
type ClientConfig struct {
	APIBaseURL     string        `env:"API_BASE_URL,    default=http://localhost:8000/api/v1"`
	LogLevel       string        `env:"LOG_LEVEL,       default=warn"`
	RequestTimeout time.Duration `env:"REQUEST_TIMEOUT, default=10s"`
	ResendCooldown time.Duration `env:"RESEND_COOLDOWN, default=60s"`

	SessionBackend string `env:"SESSION_BACKEND, default=file"`
	SessionFile    string `env:"SESSION_FILE,    default=.otpchat-session.json"`
	SessionKey     string `env:"SESSION_KEY,     default=otpchat:session"`

	Redis RedisConfig
}

// LoadClient reads an optional .env file and then the environment.
func LoadClient() (*ClientConfig, error) {
	_ = godotenv.Load()

	var cfg ClientConfig
	if err := envconfig.Process(context.Background(), &cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	if cfg.SessionBackend != SessionFile && cfg.SessionBackend != SessionRedis {
		return nil, fmt.Errorf("config: SESSION_BACKEND must be %q or %q", SessionFile, SessionRedis)
	}
	if cfg.SessionBackend == SessionRedis && cfg.Redis.Addr == "" {
		return nil, fmt.Errorf("config: REDIS_ADDR is required for the redis session backend")
	}
	return &cfg, nil
}
