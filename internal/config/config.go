package config

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/caarlos0/env/v11"

	"github.com/playperu/scavengerbot/internal/hunt"
)

const (
	BackendMemory = "memory"
	BackendSQLite = "sqlite"
	BackendRedis  = "redis"

	ScopeFixed    = "fixed"
	ScopeSelected = "selected"
)

type Config struct {
	HTTPAddr string     `env:"HTTP_ADDR" envDefault:":8080"`
	LogLevel slog.Level `env:"LOG_LEVEL" envDefault:"INFO"`

	AppSecret       string        `env:"MESSENGER_APP_SECRET,required,notEmpty"`
	VerifyToken     string        `env:"MESSENGER_VERIFY_TOKEN" envDefault:"scavenger_bot"`
	PageAccessToken string        `env:"MESSENGER_PAGE_ACCESS_TOKEN,required,notEmpty"`
	SendAPIURL      string        `env:"MESSENGER_SEND_API_URL" envDefault:"https://graph.facebook.com/v2.6/me/messages"`
	SendTimeout     time.Duration `env:"MESSENGER_SEND_TIMEOUT" envDefault:"10s"`
	OutboxSize      int           `env:"OUTBOX_SIZE" envDefault:"256"`

	CatalogPath  string `env:"CATALOG_PATH"`
	ResolveCity  string `env:"RESOLVE_CITY" envDefault:"sanFrancisco"`
	ResolveScope string `env:"RESOLVE_SCOPE" envDefault:"fixed"`

	ProgressBackend string        `env:"PROGRESS_BACKEND" envDefault:"memory"`
	DBPath          string        `env:"DB_PATH" envDefault:"data/progress.db"`
	RedisURL        string        `env:"REDIS_URL" envDefault:"redis://localhost:6379/0"`
	ProgressTTL     time.Duration `env:"PROGRESS_TTL" envDefault:"0s"`

	AdminTokenHash string `env:"ADMIN_TOKEN_HASH"`
}

func Load() (*Config, error) {
	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return nil, fmt.Errorf("parsing environment: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the cross-field rules env tags cannot express.
func (c Config) Validate() error {
	var errs []error
	switch c.ProgressBackend {
	case BackendMemory, BackendSQLite, BackendRedis:
	default:
		errs = append(errs, fmt.Errorf("PROGRESS_BACKEND %q: want memory, sqlite or redis", c.ProgressBackend))
	}
	switch c.ResolveScope {
	case ScopeFixed, ScopeSelected:
	default:
		errs = append(errs, fmt.Errorf("RESOLVE_SCOPE %q: want fixed or selected", c.ResolveScope))
	}
	switch c.ResolveCity {
	case "":
		errs = append(errs, errors.New("RESOLVE_CITY must not be empty"))
	case string(hunt.CityOther):
		errs = append(errs, fmt.Errorf("RESOLVE_CITY %q is reserved for users outside every city", c.ResolveCity))
	}
	if c.OutboxSize < 1 {
		errs = append(errs, fmt.Errorf("OUTBOX_SIZE %d: must be positive", c.OutboxSize))
	}
	if c.SendTimeout <= 0 {
		errs = append(errs, fmt.Errorf("MESSENGER_SEND_TIMEOUT %s: must be positive", c.SendTimeout))
	}
	if c.ProgressTTL < 0 {
		errs = append(errs, fmt.Errorf("PROGRESS_TTL %s: must not be negative", c.ProgressTTL))
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}
