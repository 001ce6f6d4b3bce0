package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type RuntimeConfig struct {
	Dev bool
}

type ServerConfig struct {
	Port int `yaml:"port"`
}

type LogConfig struct {
	Level    string `yaml:"level"`    // trace|debug|info|warn|error
	Format   string `yaml:"format"`   // json|console
	Sampling bool   `yaml:"sampling"` // enable sampling in prod
}

type DatabaseConfig struct {
	URL      string `yaml:"url"`
	MaxConns int    `yaml:"max_conns"`
}

type RedisConfig struct {
	URL      string        `yaml:"url"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	TTL      time.Duration `yaml:"ttl"`
}

type StripeConfig struct {
	SecretKey string `yaml:"secret_key"`
	Currency  string `yaml:"currency"`
}

type AuthConfig struct {
	JWTSecret   string `yaml:"jwt_secret"`
	AdminAPIKey string `yaml:"admin_api_key"`
}

// PolicyConfig carries the issuance/entitlement policy knobs that used to be
// inline constants: the grantable-role allow-list, the fixed prefixes per
// code type, and the batch cap.
type PolicyConfig struct {
	GrantableRoles []string `yaml:"grantable_roles"`
	InvitePrefix   string   `yaml:"invite_prefix"`
	PromoPrefix    string   `yaml:"promo_prefix"`
	MaxBatch       int      `yaml:"max_batch"`
}

type RateLimitConfig struct {
	RedeemPerMinute int `yaml:"redeem_per_minute"`
}

type SchedulerConfig struct {
	EntitlementSweepInterval time.Duration `yaml:"entitlement_sweep_interval"`
}

type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Log       LogConfig       `yaml:"log"`
	Database  DatabaseConfig  `yaml:"database"`
	Redis     RedisConfig     `yaml:"redis"`
	Stripe    StripeConfig    `yaml:"stripe"`
	Auth      AuthConfig      `yaml:"auth"`
	Policy    PolicyConfig    `yaml:"policy"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
	Scheduler SchedulerConfig `yaml:"scheduler"`

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
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "json"
	}
	if cfg.Database.MaxConns <= 0 {
		cfg.Database.MaxConns = 10
	}
	if cfg.Redis.TTL <= 0 {
		cfg.Redis.TTL = time.Hour
	}
	if cfg.Stripe.Currency == "" {
		cfg.Stripe.Currency = "brl"
	}
	if len(cfg.Policy.GrantableRoles) == 0 {
		cfg.Policy.GrantableRoles = []string{"user", "beta", "tester", "member"}
	}
	if cfg.Policy.InvitePrefix == "" {
		cfg.Policy.InvitePrefix = "LTF"
	}
	if cfg.Policy.PromoPrefix == "" {
		cfg.Policy.PromoPrefix = "CPN"
	}
	if cfg.Policy.MaxBatch <= 0 {
		cfg.Policy.MaxBatch = 500
	}
	if cfg.RateLimit.RedeemPerMinute <= 0 {
		cfg.RateLimit.RedeemPerMinute = 10
	}
	if cfg.Scheduler.EntitlementSweepInterval <= 0 {
		cfg.Scheduler.EntitlementSweepInterval = time.Hour
	}

	cfg.Runtime.Dev = dev
	return &cfg, nil
}
