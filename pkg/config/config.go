package config

import (
	"fmt"
	"time"
	_ "time/tzdata" // fuso da loja mesmo em imagens sem zoneinfo

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	JWT      JWTConfig
	Stripe   StripeConfig
	Redis    RedisConfig
	Email    EmailConfig
	R2       R2Config
	Store    StoreConfig
	Log      LogConfig
}

type ServerConfig struct {
	Port           string   `env:"PORT" envDefault:"3000"`
	AppBaseURL     string   `env:"APP_BASE_URL" envDefault:"http://localhost:5173"`
	AllowedOrigins []string `env:"ALLOWED_ORIGINS" envSeparator:"," envDefault:"http://localhost:5173"`
}

type DatabaseConfig struct {
	URL          string `env:"DATABASE_URL,required,notEmpty"`
	MaxIdleConns int    `env:"DB_MAX_IDLE_CONNS" envDefault:"10"`
	MaxOpenConns int    `env:"DB_MAX_OPEN_CONNS" envDefault:"100"`
}

type JWTConfig struct {
	Secret string        `env:"JWT_SECRET,required,notEmpty"`
	TTL    time.Duration `env:"JWT_TTL" envDefault:"72h"`
}

type StripeConfig struct {
	SecretKey        string        `env:"STRIPE_SECRET_KEY,required,notEmpty"`
	WebhookSecret    string        `env:"STRIPE_WEBHOOK_SECRET,required,notEmpty"`
	BreakerFailures  uint32        `env:"STRIPE_BREAKER_FAILURES" envDefault:"5"`
	BreakerOpenDelay time.Duration `env:"STRIPE_BREAKER_OPEN_TIMEOUT" envDefault:"30s"`
}

type RedisConfig struct {
	URL          string        `env:"REDIS_URL" envDefault:"redis://localhost:6379/0"`
	SelectionTTL time.Duration `env:"SELECTION_TTL" envDefault:"24h"`
}

type EmailConfig struct {
	ServerToken string `env:"POSTMARK_SERVER_TOKEN"` // vazio desliga o envio
	From        string `env:"EMAIL_FROM" envDefault:"Fruitbox <contato@fruitbox.com.br>"`
}

type R2Config struct {
	AccountID       string `env:"R2_ACCOUNT_ID"`
	AccessKeyID     string `env:"R2_ACCESS_KEY_ID"`
	SecretAccessKey string `env:"R2_SECRET_ACCESS_KEY"`
	Bucket          string `env:"R2_BUCKET_NAME"`
	PublicURL       string `env:"R2_PUBLIC_URL"`
}

func (c R2Config) Enabled() bool {
	return c.AccountID != "" && c.AccessKeyID != "" && c.SecretAccessKey != "" && c.Bucket != ""
}

type StoreConfig struct {
	Timezone          string `env:"TIMEZONE" envDefault:"America/Sao_Paulo"`
	Currency          string `env:"CURRENCY" envDefault:"brl"`
	LowStockThreshold int    `env:"LOW_STOCK_THRESHOLD" envDefault:"5"`
}

// Location devolve o fuso da loja usado no cálculo das entregas
func (c StoreConfig) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid TIMEZONE %q: %w", c.Timezone, err)
	}
	return loc, nil
}

type LogConfig struct {
	Level  string `env:"LOG_LEVEL" envDefault:"info"`
	Pretty bool   `env:"LOG_PRETTY" envDefault:"false"`
}

func Load() (*Config, error) {
	_ = godotenv.Load() // .env é opcional

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}
