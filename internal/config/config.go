package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type RuntimeConfig struct {
	Dev bool
}

type LogConfig struct {
	Level    string `yaml:"level"`    // trace|debug|info|warn|error
	Format   string `yaml:"format"`   // json|console
	Sampling bool   `yaml:"sampling"` // enable sampling in prod
}

type HTTPConfig struct {
	Port int `yaml:"port"`
}

type DatabaseConfig struct {
	URL string `yaml:"url"`
}

type RedisConfig struct {
	URL      string `yaml:"url"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

type YooKassaConfig struct {
	ShopID    string `yaml:"shop_id"`
	SecretKey string `yaml:"secret_key"`
	ReturnURL string `yaml:"return_url"`
	APIURL    string `yaml:"api_url"` // override for tests/sandbox
}

type PaymentConfig struct {
	YooKassa YooKassaConfig `yaml:"yookassa"`
}

type ProvisionConfig struct {
	BaseURL string        `yaml:"base_url"`
	APIKey  string        `yaml:"api_key"`
	Timeout time.Duration `yaml:"timeout"`
}

type ReconcilerConfig struct {
	Interval   time.Duration `yaml:"interval"`
	StaleAfter time.Duration `yaml:"stale_after"`
	Batch      int           `yaml:"batch"`
}

type RateLimitConfig struct {
	PerUser int           `yaml:"per_user"` // requests per window
	Window  time.Duration `yaml:"window"`
}

type TariffConfig struct {
	ID          string `yaml:"id"`
	Days        int    `yaml:"days"`
	Price       int64  `yaml:"price"` // RUB
	Description string `yaml:"description"`
}

type Config struct {
	Log        LogConfig        `yaml:"log"`
	HTTP       HTTPConfig       `yaml:"http"`
	Database   DatabaseConfig   `yaml:"database"`
	Redis      RedisConfig      `yaml:"redis"`
	Payment    PaymentConfig    `yaml:"payment"`
	Provision  ProvisionConfig  `yaml:"provision"`
	Reconciler ReconcilerConfig `yaml:"reconciler"`
	RateLimit  RateLimitConfig  `yaml:"rate_limit"`
	Tariffs    []TariffConfig   `yaml:"tariffs"`

	Runtime RuntimeConfig `yaml:"-"`
}

func LoadConfig(path string, dev bool) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	// defaults
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "json"
	}
	if cfg.HTTP.Port <= 0 {
		cfg.HTTP.Port = 8080
	}
	if cfg.Reconciler.Interval <= 0 {
		cfg.Reconciler.Interval = time.Minute
	}
	if cfg.Reconciler.StaleAfter <= 0 {
		cfg.Reconciler.StaleAfter = 10 * time.Minute
	}
	if cfg.Reconciler.Batch <= 0 {
		cfg.Reconciler.Batch = 200
	}
	if cfg.RateLimit.PerUser <= 0 {
		cfg.RateLimit.PerUser = 30
	}
	if cfg.RateLimit.Window <= 0 {
		cfg.RateLimit.Window = time.Minute
	}
	if cfg.Provision.Timeout <= 0 {
		cfg.Provision.Timeout = 10 * time.Second
	}
	if len(cfg.Tariffs) == 0 {
		cfg.Tariffs = []TariffConfig{
			{ID: "month", Days: 30, Price: 299, Description: "VPN access, 1 month"},
			{ID: "quarter", Days: 90, Price: 799, Description: "VPN access, 3 months"},
			{ID: "year", Days: 365, Price: 2599, Description: "VPN access, 12 months"},
		}
	}

	// Minimal validation. Gateway credentials are fatal at startup, not
	// recoverable per-request; dev mode swaps in the noop gateway instead.
	if cfg.Database.URL == "" {
		return nil, errors.New("database.url is required")
	}
	if cfg.Redis.URL == "" {
		return nil, errors.New("redis.url is required")
	}
	if !dev {
		if cfg.Payment.YooKassa.ShopID == "" || cfg.Payment.YooKassa.SecretKey == "" {
			return nil, errors.New("payment.yookassa.shop_id and secret_key are required")
		}
		if cfg.Payment.YooKassa.ReturnURL == "" {
			return nil, errors.New("payment.yookassa.return_url is required")
		}
	}

	cfg.Runtime.Dev = dev
	return &cfg, nil
}
