/*
Package config loads process configuration from environment variables or
a local .env file via viper.

KEYS:
  SERVER_PORT     HTTP listen port (default 8080)
  DB_PATH         SQLite database path; ":memory:" for ephemeral
  NOTIFY_MODE     confirmation delivery: "log", "smtp" or "amqp"
  NOTIFY_TIMEOUT  per-send timeout, Go duration string (default 10s)
  OUTBOX_ENABLED  queue confirmations instead of sending inline
  OUTBOX_INTERVAL outbox poll interval, Go duration string (default 15s)
  SMTP_HOST / SMTP_PORT / SMTP_USERNAME / SMTP_PASSWORD / SMTP_FROM
  AMQP_URL        broker URL when NOTIFY_MODE=amqp

SEE ALSO:
  - cmd/server/main.go: wires these into the engine
*/
package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config stores all configuration for the application. Values are read
// by viper from a .env file or environment variables.
type Config struct {
	ServerPort     string        `mapstructure:"SERVER_PORT"`
	DBPath         string        `mapstructure:"DB_PATH"`
	NotifyMode     string        `mapstructure:"NOTIFY_MODE"`
	NotifyTimeout  time.Duration `mapstructure:"NOTIFY_TIMEOUT"`
	OutboxEnabled  bool          `mapstructure:"OUTBOX_ENABLED"`
	OutboxInterval time.Duration `mapstructure:"OUTBOX_INTERVAL"`

	SMTPHost     string `mapstructure:"SMTP_HOST"`
	SMTPPort     string `mapstructure:"SMTP_PORT"`
	SMTPUsername string `mapstructure:"SMTP_USERNAME"`
	SMTPPassword string `mapstructure:"SMTP_PASSWORD"`
	SMTPFrom     string `mapstructure:"SMTP_FROM"`

	AMQPURL string `mapstructure:"AMQP_URL"`
}

// LoadConfig reads configuration from a .env file in the working
// directory or from environment variables. A missing .env file is not
// an error.
func LoadConfig() (config Config, err error) {
	viper.AddConfigPath(".")
	viper.SetConfigName(".env")
	viper.SetConfigType("env")

	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	viper.SetDefault("SERVER_PORT", "8080")
	viper.SetDefault("DB_PATH", "./data/booking.db")
	viper.SetDefault("NOTIFY_MODE", "log")
	viper.SetDefault("NOTIFY_TIMEOUT", "10s")
	viper.SetDefault("OUTBOX_ENABLED", false)
	viper.SetDefault("OUTBOX_INTERVAL", "15s")
	viper.SetDefault("SMTP_PORT", "587")

	// Bind env vars explicitly
	_ = viper.BindEnv("SERVER_PORT")
	_ = viper.BindEnv("DB_PATH")
	_ = viper.BindEnv("NOTIFY_MODE")
	_ = viper.BindEnv("NOTIFY_TIMEOUT")
	_ = viper.BindEnv("OUTBOX_ENABLED")
	_ = viper.BindEnv("OUTBOX_INTERVAL")
	_ = viper.BindEnv("SMTP_HOST")
	_ = viper.BindEnv("SMTP_PORT")
	_ = viper.BindEnv("SMTP_USERNAME")
	_ = viper.BindEnv("SMTP_PASSWORD")
	_ = viper.BindEnv("SMTP_FROM")
	_ = viper.BindEnv("AMQP_URL")

	if err = viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return Config{}, err
		}
		err = nil
	}

	if err = viper.Unmarshal(&config); err != nil {
		return Config{}, err
	}

	return
}
