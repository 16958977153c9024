// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config is the full runtime configuration, populated from the environment.
// A .env file in the working directory is loaded first when present.
type Config struct {
	BotToken string  `env:"BOT_TOKEN,required,notEmpty"`
	AdminIDs []int64 `env:"ADMIN_ID" envSeparator:","`

	MongoURI string `env:"MONGO_URI,required,notEmpty"`
	MongoDB  string `env:"MONGO_DB" envDefault:"ovoz"`

	SMTPHost  string `env:"SMTP_HOST"`
	SMTPPort  int    `env:"SMTP_PORT" envDefault:"587"`
	EmailUser string `env:"EMAIL_USER"`
	EmailPass string `env:"EMAIL_PASS"`
	EmailFrom string `env:"EMAIL_FROM"`

	SubsFile       string        `env:"SUBS_FILE" envDefault:"subs.json"`
	ReaperInterval time.Duration `env:"REAPER_INTERVAL" envDefault:"5m"`
}

// Load reads .env (if any) and the process environment, then validates.
func Load() (*Config, error) {
	// Missing .env is not an error; deployments may set real env vars.
	_ = godotenv.Load()

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse environment: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if len(c.AdminIDs) == 0 {
		return errors.New("ADMIN_ID must list at least one admin user id")
	}
	if c.ReaperInterval < time.Second {
		return fmt.Errorf("REAPER_INTERVAL %s is below the 1s minimum", c.ReaperInterval)
	}
	if c.SMTPHost != "" && c.EmailFrom == "" {
		return errors.New("EMAIL_FROM is required when SMTP_HOST is set")
	}
	return nil
}

// MailConfigured reports whether the SMTP settings are complete enough to
// send verification codes.
func (c *Config) MailConfigured() bool {
	return c.SMTPHost != "" && c.EmailUser != "" && c.EmailPass != ""
}
