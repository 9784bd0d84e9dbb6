package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App        AppConfig
	Service    ServiceConfig
	DB         DBConfig
	Redis      RedisConfig
	JWT        JWTConfig
	Escalation EscalationConfig
	Commission CommissionConfig
	PayOS      PayOSConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.Commission.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"DISPATCH_APP_ENV" required:"true"`
	Port         string `envconfig:"DISPATCH_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"DISPATCH_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"DISPATCH_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"DISPATCH_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"DISPATCH_DB_DSN" required:"true"`
	Driver string `envconfig:"DISPATCH_DB_DRIVER" default:"postgres"`

	MaxOpenConns    int           `envconfig:"DISPATCH_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"DISPATCH_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"DISPATCH_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"DISPATCH_DB_CONN_MAX_IDLE_TIME" default:"10m"`

	AutoMigrate bool `envconfig:"DISPATCH_DB_AUTO_MIGRATE" default:"false"`
}

type RedisConfig struct {
	URL          string        `envconfig:"DISPATCH_REDIS_URL" required:"true"`
	Address      string        `envconfig:"DISPATCH_REDIS_ADDR"`
	Password     string        `envconfig:"DISPATCH_REDIS_PASSWORD"`
	DB           int           `envconfig:"DISPATCH_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"DISPATCH_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"DISPATCH_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"DISPATCH_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"DISPATCH_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"DISPATCH_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret string `envconfig:"DISPATCH_JWT_SECRET" required:"true"`
	Issuer string `envconfig:"DISPATCH_JWT_ISSUER" required:"true"`
}

// EscalationConfig tunes the stalled-order monitor.
type EscalationConfig struct {
	PollInterval time.Duration `envconfig:"DISPATCH_ESCALATION_POLL_INTERVAL" default:"10s"`
	Threshold    time.Duration `envconfig:"DISPATCH_ESCALATION_THRESHOLD" default:"5m"`
	LockTTL      time.Duration `envconfig:"DISPATCH_ESCALATION_LOCK_TTL" default:"30s"`
}

// CommissionConfig carries the platform commission percentage.
type CommissionConfig struct {
	RatePercent int `envconfig:"DISPATCH_COMMISSION_RATE_PERCENT" default:"10"`
}

func (c CommissionConfig) validate() error {
	if c.RatePercent <= 0 || c.RatePercent >= 100 {
		return fmt.Errorf("commission rate percent must be between 1 and 99, got %d", c.RatePercent)
	}
	return nil
}

// PayOSConfig carries the payment gateway credentials and endpoint.
type PayOSConfig struct {
	ClientID       string        `envconfig:"DISPATCH_PAYOS_CLIENT_ID" required:"true"`
	APIKey         string        `envconfig:"DISPATCH_PAYOS_API_KEY" required:"true"`
	ChecksumKey    string        `envconfig:"DISPATCH_PAYOS_CHECKSUM_KEY" required:"true"`
	Endpoint       string        `envconfig:"DISPATCH_PAYOS_ENDPOINT" default:"https://api-merchant.payos.vn"`
	ReturnURL      string        `envconfig:"DISPATCH_PAYOS_RETURN_URL"`
	CancelURL      string        `envconfig:"DISPATCH_PAYOS_CANCEL_URL"`
	RequestTimeout time.Duration `envconfig:"DISPATCH_PAYOS_REQUEST_TIMEOUT" default:"10s"`
}
