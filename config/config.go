// Package config reads process configuration from .env files and the environment.
package config

import (
	"errors"
	"io/fs"
	"os"
	"time"

	"github.com/fiberline/ispbill/spec"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	extErrors "github.com/pkg/errors"
	"github.com/spf13/viper"
)

// Environment is where the binary is running
type Environment string

const (
	EnvDevelopment Environment = "development"
	EnvProduction  Environment = "production"
)

// Config is shared by cmd/api and cmd/task. Keys are the environment variable names.
type Config struct {
	Env              Environment   `mapstructure:"ENV" validate:"oneof=development production"`
	ListenAddr       string        `mapstructure:"LISTEN_ADDR" validate:"required"`
	PostgresURI      string        `mapstructure:"POSTGRES_URI" validate:"required"`
	RedisURI         string        `mapstructure:"REDIS_URI"`
	RedisPassword    string        `mapstructure:"REDIS_PW"`
	AMQPURI          string        `mapstructure:"AMQP_URI"`
	JWTSigningKey    string        `mapstructure:"JWT_SIGNING_KEY" validate:"omitempty,min=16"`
	TokenTTL         time.Duration `mapstructure:"TOKEN_TTL" validate:"gt=0"`
	CORSOrigins      []string      `mapstructure:"CORS_ORIGINS"`
	SweepSchedule    string        `mapstructure:"SWEEP_SCHEDULE" validate:"required"`
	ReminderSchedule string        `mapstructure:"REMINDER_SCHEDULE" validate:"required"`
	RejectOverlap    bool          `mapstructure:"REJECT_OVERLAP"`
	SeedTenant       string        `mapstructure:"SEED_TENANT"`
	SeedPlanFile     string        `mapstructure:"SEED_PLAN_FILE"`
}

var validate = validator.New()

var defaults = map[string]interface{}{
	"ENV":               string(EnvDevelopment),
	"LISTEN_ADDR":       ":8080",
	"POSTGRES_URI":      "",
	"REDIS_URI":         "",
	"REDIS_PW":          "",
	"AMQP_URI":          "",
	"JWT_SIGNING_KEY":   "",
	"TOKEN_TTL":         "12h",
	"CORS_ORIGINS":      "*",
	"SWEEP_SCHEDULE":    spec.DefaultSweepSchedule,
	"REMINDER_SCHEDULE": spec.DefaultReminderSchedule,
	"REJECT_OVERLAP":    false,
	"SEED_TENANT":       "",
	"SEED_PLAN_FILE":    "",
}

// CurrentEnvironment reads ENV before any .env file is loaded
func CurrentEnvironment() Environment {
	if Environment(os.Getenv("ENV")) == EnvProduction {
		return EnvProduction
	}
	return EnvDevelopment
}

// DotFile returns the .env file for env
func DotFile(env Environment) string {
	return ".env." + string(env)
}

// Load reads dotFile, when it exists, into the environment and then decodes
// the environment into a Config. Variables already set win over the file.
func Load(dotFile string) (*Config, error) {
	if len(dotFile) > 0 {
		if err := godotenv.Load(dotFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, extErrors.Wrap(err, "Cannot load configurations from .env")
		}
	}

	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
		if err := v.BindEnv(key); err != nil {
			return nil, err
		}
	}

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return nil, extErrors.Wrap(err, "Cannot decode configurations")
	}
	if err := validate.Struct(&c); err != nil {
		return nil, extErrors.Wrap(err, "Invalid configurations")
	}
	return &c, nil
}

// RequireAPI checks the settings only the HTTP API needs
func (c *Config) RequireAPI() error {
	if len(c.JWTSigningKey) == 0 {
		return errors.New("JWT_SIGNING_KEY is required")
	}
	return nil
}

// RequireTask checks the settings only the task runner needs
func (c *Config) RequireTask() error {
	if len(c.RedisURI) == 0 {
		return errors.New("REDIS_URI is required")
	}
	if len(c.AMQPURI) == 0 {
		return errors.New("AMQP_URI is required")
	}
	return nil
}
