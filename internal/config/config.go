package config

import (
	"strings"
	"time"
)

type PostgresConfig struct {
	DSN             string        `envconfig:"PG_DSN" required:"true"`
	MaxOpenConns    int           `envconfig:"PG_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"PG_MAX_IDLE_CONNS" default:"10"`
	ConnMaxIdleTime time.Duration `envconfig:"PG_CONN_MAX_IDLE_TIME" default:"10m"`
	ConnMaxLifetime time.Duration `envconfig:"PG_CONN_MAX_LIFETIME" default:"1h"`
}

// RedisConfig is optional; with an empty URL no per-priest lock is used.
type RedisConfig struct {
	URL      string        `envconfig:"REDIS_URL"`
	LockTTL  time.Duration `envconfig:"REDIS_LOCK_TTL" default:"30s"`
	LockWait time.Duration `envconfig:"REDIS_LOCK_WAIT" default:"5s"`
}

func (r RedisConfig) Enabled() bool {
	return strings.TrimSpace(r.URL) != ""
}

type GatewayConfig struct {
	Live          bool          `envconfig:"RAZORPAY_LIVE" default:"false"`
	KeyID         string        `envconfig:"RAZORPAY_KEY_ID"`
	KeySecret     string        `envconfig:"RAZORPAY_KEY_SECRET"`
	AccountNumber string        `envconfig:"RAZORPAY_ACCOUNT_NUMBER"`
	BaseURL       string        `envconfig:"RAZORPAY_BASE_URL" default:"https://api.razorpay.com/v1"`
	Timeout       time.Duration `envconfig:"PAYOUT_TIMEOUT" default:"15s"`
	SandboxDelay  time.Duration `envconfig:"PAYOUT_SANDBOX_DELAY" default:"200ms"`
}

// IsLive reports whether real payouts should be made: live mode must be on
// and both credentials present.
func (g GatewayConfig) IsLive() bool {
	return g.Live && g.KeyID != "" && g.KeySecret != ""
}

type LogConfig struct {
	Level  string `envconfig:"APP_LOG_LEVEL" default:"info"`
	Format string `envconfig:"APP_LOG_FORMAT" default:"json"`
}

type HTTPConfig struct {
	Addr              string        `envconfig:"HTTP_ADDR" default:":8080"`
	ReadTimeout       time.Duration `envconfig:"HTTP_READ_TIMEOUT" default:"15s"`
	ReadHeaderTimeout time.Duration `envconfig:"HTTP_READ_HEADER_TIMEOUT" default:"5s"`
	// Must exceed the payout timeout so a withdrawal can answer.
	WriteTimeout time.Duration `envconfig:"HTTP_WRITE_TIMEOUT" default:"45s"`
	IdleTimeout  time.Duration `envconfig:"HTTP_IDLE_TIMEOUT" default:"60s"`
}
