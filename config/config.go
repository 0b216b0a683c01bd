package config

import (
	"errors"
	"time"
	_ "time/tzdata"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

const devJWTSecret = "SimpleDockDevSecret"

type Config struct {
	Port            string `envconfig:"PORT" default:"8080"`
	GinMode         string `envconfig:"GIN_MODE" default:"debug"`
	CORSAllowOrigin string `envconfig:"CORS_ALLOW_ORIGIN" default:"*"`

	DBDriver    string `envconfig:"DB_DRIVER" default:"sqlite"`
	DatabaseURL string `envconfig:"DATABASE_URL" default:"simpledock.db"`

	JWTSecret    string `envconfig:"JWT_SECRET"`
	JWTExpireMin int    `envconfig:"JWT_EXPIRE_MIN" default:"30"`

	Timezone                string `envconfig:"TIMEZONE" default:"UTC"`
	SlotDurationMin         int    `envconfig:"SLOT_DURATION_MIN" default:"60"`
	StrictSlotDuration      bool   `envconfig:"STRICT_SLOT_DURATION" default:"true"`
	StrictStatusTransitions bool   `envconfig:"STRICT_STATUS_TRANSITIONS" default:"true"`
	RequireVerifiedPO       bool   `envconfig:"REQUIRE_VERIFIED_PO" default:"false"`

	OdooURL             string        `envconfig:"ODOO_URL"`
	OdooDB              string        `envconfig:"ODOO_DB"`
	OdooUser            string        `envconfig:"ODOO_USER"`
	OdooPassword        string        `envconfig:"ODOO_PASSWORD"`
	POValidationTimeout time.Duration `envconfig:"PO_VALIDATION_TIMEOUT" default:"5s"`

	RabbitURL       string `envconfig:"RABBIT_URL"`
	BookingExchange string `envconfig:"BOOKING_EXCHANGE" default:"booking.exchange"`
	NotifyQueueSize int    `envconfig:"NOTIFY_QUEUE_SIZE" default:"256"`

	LateGraceMin      int           `envconfig:"LATE_GRACE_MIN" default:"15"`
	LateCheckInterval time.Duration `envconfig:"LATE_CHECK_INTERVAL" default:"1m"`

	RateLimitRPS   float64 `envconfig:"RATE_LIMIT_RPS" default:"20"`
	RateLimitBurst int     `envconfig:"RATE_LIMIT_BURST" default:"40"`

	LogLevel  string `envconfig:"LOG_LEVEL" default:"info"`
	LogFormat string `envconfig:"LOG_FORMAT" default:"text"`
}

// Load reads an optional .env file and then the process environment.
func Load() (Config, error) {
	// .env bersifat opsional; variabel environment tetap dipakai
	_ = godotenv.Load()

	var c Config
	if err := envconfig.Process("", &c); err != nil {
		return Config{}, err
	}
	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	if c.JWTSecret == "" {
		c.JWTSecret = devJWTSecret
	}
	return c, nil
}

func (c Config) Validate() error {
	if c.GinMode == "release" && c.JWTSecret == "" {
		return errors.New("JWT_SECRET is required in release mode")
	}
	if c.SlotDurationMin <= 0 {
		return errors.New("SLOT_DURATION_MIN must be positive")
	}
	if c.JWTExpireMin <= 0 {
		return errors.New("JWT_EXPIRE_MIN must be positive")
	}
	if _, err := time.LoadLocation(c.Timezone); err != nil {
		return errors.New("TIMEZONE is not a valid IANA zone: " + c.Timezone)
	}
	return nil
}

func (c Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

func (c Config) SlotDuration() time.Duration {
	return time.Duration(c.SlotDurationMin) * time.Minute
}

func (c Config) TokenTTL() time.Duration {
	return time.Duration(c.JWTExpireMin) * time.Minute
}

func (c Config) LateGrace() time.Duration {
	return time.Duration(c.LateGraceMin) * time.Minute
}

func (c Config) OdooConfigured() bool {
	return c.OdooURL != "" && c.OdooDB != "" && c.OdooUser != "" && c.OdooPassword != ""
}
