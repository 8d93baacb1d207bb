package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

const EnvPrefix = "SLIDECART"

const (
	AppEnvDev  = "development"
	AppEnvProd = "production"
)

// Env var names referenced by tests and deploy tooling.
const (
	EnvAppEnv        = "SLIDECART_APP_ENV"
	EnvPort          = "SLIDECART_APP_PORT"
	EnvStorefrontURL = "SLIDECART_STOREFRONT_BASE_URL"
	EnvRedisURL      = "SLIDECART_REDIS_URL"
)

type Config struct {
	App             AppConfig
	Storefront      StorefrontConfig
	Drawer          DrawerConfig
	Recommendations RecommendationsConfig
	Cache           CacheConfig
	Redis           RedisConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.Recommendations.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"SLIDECART_APP_ENV" required:"true"`
	Port         string `envconfig:"SLIDECART_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"SLIDECART_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"SLIDECART_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

// StorefrontConfig points at the e-commerce platform storefront API.
type StorefrontConfig struct {
	BaseURL        string        `envconfig:"SLIDECART_STOREFRONT_BASE_URL" required:"true"`
	Timeout        time.Duration `envconfig:"SLIDECART_STOREFRONT_TIMEOUT" default:"10s"`
	AllowedOrigins []string      `envconfig:"SLIDECART_STOREFRONT_ALLOWED_ORIGINS"`
}

// DrawerConfig mirrors the widget configuration surface.
type DrawerConfig struct {
	Enabled                bool          `envconfig:"SLIDECART_DRAWER_ENABLED" default:"true"`
	Position               string        `envconfig:"SLIDECART_DRAWER_POSITION" default:"right"`
	Width                  int           `envconfig:"SLIDECART_DRAWER_WIDTH" default:"450"`
	AutoCloseEnabled       bool          `envconfig:"SLIDECART_DRAWER_AUTO_CLOSE_ENABLED" default:"false"`
	AutoCloseDelay         time.Duration `envconfig:"SLIDECART_DRAWER_AUTO_CLOSE_DELAY" default:"8s"`
	InteractionIdleDelay   time.Duration `envconfig:"SLIDECART_DRAWER_INTERACTION_IDLE_DELAY" default:"2s"`
	ShowToastNotifications bool          `envconfig:"SLIDECART_DRAWER_SHOW_TOASTS" default:"true"`
	ToastDuration          time.Duration `envconfig:"SLIDECART_DRAWER_TOAST_DURATION" default:"3s"`
	Currency               string        `envconfig:"SLIDECART_DRAWER_CURRENCY" default:"COP"`
	CheckoutURL            string        `envconfig:"SLIDECART_DRAWER_CHECKOUT_URL" default:"/checkout"`
	SessionTTL             time.Duration `envconfig:"SLIDECART_DRAWER_SESSION_TTL" default:"30m"`
}

// RecommendationsConfig governs the resolution and aggregation pipeline.
type RecommendationsConfig struct {
	Source string `envconfig:"SLIDECART_RECOMMENDATIONS_SOURCE" default:"hybrid"`
	Limit  int    `envconfig:"SLIDECART_RECOMMENDATIONS_LIMIT" default:"6"`
	Title  string `envconfig:"SLIDECART_RECOMMENDATIONS_TITLE" default:"También te puede interesar"`
}

func (r RecommendationsConfig) validate() error {
	switch r.Source {
	case "manual", "automatic", "hybrid":
	default:
		return fmt.Errorf("invalid recommendations source %q", r.Source)
	}
	if r.Limit <= 0 {
		return fmt.Errorf("recommendations limit must be positive, got %d", r.Limit)
	}
	return nil
}

// CacheConfig controls the lookup caches.
type CacheConfig struct {
	Backend       string        `envconfig:"SLIDECART_CACHE_BACKEND" default:"memory"`
	ClearInterval time.Duration `envconfig:"SLIDECART_CACHE_CLEAR_INTERVAL" default:"5m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"SLIDECART_REDIS_URL"`
	Address      string        `envconfig:"SLIDECART_REDIS_ADDR"`
	Password     string        `envconfig:"SLIDECART_REDIS_PASSWORD"`
	DB           int           `envconfig:"SLIDECART_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"SLIDECART_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"SLIDECART_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"SLIDECART_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"SLIDECART_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"SLIDECART_REDIS_WRITE_TIMEOUT" default:"5s"`
}
