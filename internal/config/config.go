package config

import (
	"fmt"
	"os"
	"time"

	"patrimonio-service/internal/MinIO"
	"patrimonio-service/pkg/database/postgres"
	"patrimonio-service/pkg/database/redis"

	"github.com/ilyakaznacheev/cleanenv"
)

type Config struct {
	HTTPPort  string `env:"HTTP_PORT" env-default:"8080"`
	JWTSecret string `env:"JWT_TOKEN"`

	// signed image links are short-lived; the app refetches on display
	SignedURLTTL  time.Duration `env:"SIGNED_URL_TTL" env-default:"60s"`
	GrantCacheTTL time.Duration `env:"GRANT_CACHE_TTL" env-default:"5m"`

	Postgres postgres.Config
	Redis    redis.Config
	MinIO    MinIO.Config
}

// New reads ./.env when present, falling back to plain environment
// variables.
func New() (*Config, error) {
	var cfg Config
	if _, err := os.Stat(".env"); err == nil {
		if err := cleanenv.ReadConfig(".env", &cfg); err != nil {
			return nil, fmt.Errorf("cannot read config: %w", err)
		}
		return &cfg, nil
	}
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("cannot read config: %w", err)
	}
	return &cfg, nil
}
