package main

import (
	"context"
	"time"

	"github.com/sethvargo/go-envconfig"
)

// Config holds runtime configuration for the territoryd service.
type Config struct {
	Addr           string   `env:"ADDR,default=:8080"`
	DBDSN          string   `env:"DB_DSN,required"`
	NATSURL        string   `env:"NATS_URL"`
	OTLPEndpoint   string   `env:"OTEL_EXPORTER_OTLP_ENDPOINT"`
	AllowedOrigins []string `env:"CORS_ALLOWED_ORIGINS"`
	OperatorToken  string   `env:"OPERATOR_TOKEN"`

	SessionLifetime time.Duration `env:"SESSION_LIFETIME,default=24h"`
	SweepInterval   time.Duration `env:"SWEEP_INTERVAL,default=1h"`
	CodeLength      int           `env:"JOIN_CODE_LENGTH,default=5"`
	CodeAttempts    int           `env:"JOIN_CODE_ATTEMPTS,default=5"`
}

// LoadConfig returns a Config populated from environment variables.
func LoadConfig(ctx context.Context) (Config, error) {
	var cfg Config
	if err := envconfig.Process(ctx, &cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
