package config

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/v2"
)

const (
	DriverPostgres = "postgres"
	DriverOracle   = "oracle"
	DriverSQLite   = "sqlite"
	DriverMemory   = "memory"
)

type Config struct {
	ServerHost       string        `env:"SERVER_HOST" validate:"required"`
	ServerPort       string        `env:"SERVER_PORT" validate:"required,numeric"`
	DBDriver         string        `env:"DB_DRIVER" validate:"oneof=postgres oracle sqlite memory"`
	DBDSN            string        `env:"DB_DSN" validate:"required_unless=DBDriver memory"`
	LogLevel         string        `env:"LOG_LEVEL" validate:"oneof=debug info warn error"`
	ShutdownTimeout  time.Duration `env:"SHUTDOWN_TIMEOUT" validate:"gt=0"`
	MigrationTimeout time.Duration `env:"MIGRATION_TIMEOUT" validate:"gt=0"`
}

// defaults maps every recognised variable to the value used when it is unset or blank.
var defaults = map[string]string{
	"SERVER_HOST":       "localhost",
	"SERVER_PORT":       "8080",
	"DB_DRIVER":         DriverPostgres,
	"DB_DSN":            "",
	"LOG_LEVEL":         "info",
	"SHUTDOWN_TIMEOUT":  "5s",
	"MIGRATION_TIMEOUT": "30s",
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		return field.Tag.Get("env")
	})
	return v
}

// Load reads the configuration from the process environment.
func Load() (*Config, error) {
	k := koanf.New(".")
	for key, value := range defaults {
		if err := k.Set(key, value); err != nil {
			return nil, fmt.Errorf("setting default %s: %w", key, err)
		}
	}

	// Unknown and blank variables are skipped so defaults stay in place.
	err := k.Load(env.ProviderWithValue("", ".", func(key, value string) (string, interface{}) {
		if _, known := defaults[key]; !known || strings.TrimSpace(value) == "" {
			return "", nil
		}
		return key, strings.TrimSpace(value)
	}), nil)
	if err != nil {
		return nil, fmt.Errorf("loading environment: %w", err)
	}

	shutdownTimeout, err := parseDuration(k, "SHUTDOWN_TIMEOUT")
	if err != nil {
		return nil, err
	}
	migrationTimeout, err := parseDuration(k, "MIGRATION_TIMEOUT")
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		ServerHost:       k.String("SERVER_HOST"),
		ServerPort:       k.String("SERVER_PORT"),
		DBDriver:         strings.ToLower(k.String("DB_DRIVER")),
		DBDSN:            k.String("DB_DSN"),
		LogLevel:         strings.ToLower(k.String("LOG_LEVEL")),
		ShutdownTimeout:  shutdownTimeout,
		MigrationTimeout: migrationTimeout,
	}

	if err := validate.Struct(cfg); err != nil {
		return nil, describe(err)
	}

	return cfg, nil
}

// Addr is the host:port pair the HTTP server listens on.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%s", c.ServerHost, c.ServerPort)
}

func parseDuration(k *koanf.Koanf, key string) (time.Duration, error) {
	d, err := time.ParseDuration(k.String(key))
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}

func describe(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		switch fe.Tag() {
		case "required", "required_unless":
			msgs = append(msgs, fmt.Sprintf("%s environment variable is required", fe.Field()))
		case "oneof":
			msgs = append(msgs, fmt.Sprintf("unsupported %s %q: must be one of %s", fe.Field(), fe.Value(), fe.Param()))
		case "gt":
			msgs = append(msgs, fmt.Sprintf("invalid %s: must be positive", fe.Field()))
		default:
			msgs = append(msgs, fmt.Sprintf("invalid %s %q", fe.Field(), fe.Value()))
		}
	}
	return errors.New(strings.Join(msgs, "; "))
}
