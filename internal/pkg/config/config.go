package config

import (
	"context"
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/sethvargo/go-envconfig"
)

const (
	StoreMongo  = "mongo"
	StoreMemory = "memory"
)

type Config struct {
	Port      string        `env:"PORT,       default=8000"`
	Env       string        `env:"ENV,        default=development"`
	LogLevel  string        `env:"LOG_LEVEL,  default=info"`
	JWTSecret string        `env:"JWT_SECRET"`
	JWTExpiry time.Duration `env:"JWT_EXPIRY, default=24h"`
	Store     string        `env:"STORE,      default=mongo"`

	OTP      OTPConfig
	Delivery DeliveryConfig
	Mongo    MongoConfig
	Redis    RedisConfig
}

type OTPConfig struct {
	// Mode is "hotp" (random code) or "static" (fixed code, development only).
	Mode       string        `env:"OTP_MODE,        default=hotp"`
	StaticCode string        `env:"OTP_STATIC_CODE, default=123456"`
	TTL        time.Duration `env:"OTP_TTL,         default=10m"`
}

type DeliveryConfig struct {
	Workers int `env:"DELIVERY_WORKERS, default=4"`
}

type MongoConfig struct {
	URI      string `env:"MONGO_URI, default=mongodb://localhost:27017"`
	Database string `env:"MONGO_DB,  default=otpchat"`
}

type RedisConfig struct {
	Addr     string `env:"REDIS_ADDR"`
	Password string `env:"REDIS_PASSWORD"`
	DB       int    `env:"REDIS_DB, default=0"`
}

// IsDevelopment reports whether the service runs outside production.
func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

// Validate rejects combinations that must never reach production.
func (c *Config) Validate() error {
	if c.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET must be set")
	}
	if c.Store != StoreMongo && c.Store != StoreMemory {
		return fmt.Errorf("STORE must be %q or %q, got %q", StoreMongo, StoreMemory, c.Store)
	}
	if c.OTP.Mode == "static" && !c.IsDevelopment() {
		return fmt.Errorf("OTP_MODE=static is only allowed in development")
	}
	return nil
}

// Load reads an optional .env file and then the environment using go-envconfig.
func Load() *Config {
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process(context.Background(), &cfg); err != nil {
		panic(fmt.Sprintf("config: failed to load configuration: %v", err))
	}
	if err := cfg.Validate(); err != nil {
		panic(fmt.Sprintf("config: %v", err))
	}
	return &cfg
}
