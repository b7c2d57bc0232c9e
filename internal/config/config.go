// Package config loads server configuration from a YAML file and the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"

	"github.com/mmynk/settleup/internal/calculator"
	"github.com/mmynk/settleup/internal/notify"
	"github.com/mmynk/settleup/internal/scheduler"
)

// Config holds all application configuration.
type Config struct {
	Server struct {
		Port int `yaml:"port"`
	} `yaml:"server"`
	Database struct {
		Path string `yaml:"path"`
	} `yaml:"database"`
	Auth struct {
		JWTSecret string        `yaml:"jwt_secret"`
		TokenTTL  time.Duration `yaml:"token_ttl"`
	} `yaml:"auth"`
	Log struct {
		Level string `yaml:"level"`
	} `yaml:"log"`
	Reminders struct {
		Enabled     *bool         `yaml:"enabled"`
		Cron        string        `yaml:"cron"`
		Timezone    string        `yaml:"timezone"`
		RunTimeout  time.Duration `yaml:"run_timeout"`
		Concurrency int           `yaml:"concurrency"`
		// ThresholdCents is nil when unset so an explicit 0 is kept.
		ThresholdCents   *int64 `yaml:"threshold_cents"`
		StrictMembership bool   `yaml:"strict_membership"`
	} `yaml:"reminders"`
	Notifier struct {
		Driver string `yaml:"driver"`
		FCM    struct {
			ProjectID       string `yaml:"project_id"`
			CredentialsFile string `yaml:"credentials_file"`
		} `yaml:"fcm"`
		AMQP struct {
			URL      string `yaml:"url"`
			Exchange string `yaml:"exchange"`
			Queue    string `yaml:"queue"`
		} `yaml:"amqp"`
	} `yaml:"notifier"`
}

// Load reads config from a YAML file, then applies environment variable
// overrides and defaults. A missing file is not an error.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	cfg.applyDefaults()
	return cfg, nil
}

func (c *Config) applyEnv() error {
	if v := os.Getenv("PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("PORT: %w", err)
		}
		c.Server.Port = port
	}
	if v := os.Getenv("DB_PATH"); v != "" {
		c.Database.Path = v
	}
	if v := os.Getenv("JWT_SECRET"); v != "" {
		c.Auth.JWTSecret = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
	if v := os.Getenv("REMINDER_CRON"); v != "" {
		c.Reminders.Cron = v
	}
	if v := os.Getenv("REMINDER_TIMEZONE"); v != "" {
		c.Reminders.Timezone = v
	}
	if v := os.Getenv("REMINDERS_ENABLED"); v != "" {
		enabled, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("REMINDERS_ENABLED: %w", err)
		}
		c.Reminders.Enabled = &enabled
	}
	if v := os.Getenv("NOTIFIER_DRIVER"); v != "" {
		c.Notifier.Driver = v
	}
	if v := os.Getenv("FCM_PROJECT_ID"); v != "" {
		c.Notifier.FCM.ProjectID = v
	}
	if v := os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"); v != "" {
		c.Notifier.FCM.CredentialsFile = v
	}
	if v := os.Getenv("AMQP_URL"); v != "" {
		c.Notifier.AMQP.URL = v
	}
	return nil
}

func (c *Config) applyDefaults() {
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Database.Path == "" {
		c.Database.Path = "./data/settleup.db"
	}
	if c.Auth.TokenTTL == 0 {
		c.Auth.TokenTTL = 24 * time.Hour
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Reminders.Enabled == nil {
		enabled := true
		c.Reminders.Enabled = &enabled
	}
	if c.Reminders.Cron == "" {
		c.Reminders.Cron = scheduler.DefaultSpec
	}
	if c.Reminders.Timezone == "" {
		c.Reminders.Timezone = scheduler.DefaultTimezone
	}
	if c.Reminders.RunTimeout == 0 {
		c.Reminders.RunTimeout = scheduler.DefaultTimeout
	}
	if c.Reminders.Concurrency == 0 {
		c.Reminders.Concurrency = 4
	}
	if c.Reminders.ThresholdCents == nil {
		threshold := calculator.DefaultDebtThreshold
		c.Reminders.ThresholdCents = &threshold
	}
	if c.Notifier.Driver == "" {
		c.Notifier.Driver = notify.DriverLog
	}
	if c.Notifier.AMQP.Exchange == "" {
		c.Notifier.AMQP.Exchange = "settleup.reminders"
	}
	if c.Notifier.AMQP.Queue == "" {
		c.Notifier.AMQP.Queue = "settleup.push"
	}
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be between 1 and 65535, got %d", c.Server.Port)
	}
	if _, err := cron.ParseStandard(c.Reminders.Cron); err != nil {
		return fmt.Errorf("reminders.cron: %w", err)
	}
	if _, err := time.LoadLocation(c.Reminders.Timezone); err != nil {
		return fmt.Errorf("reminders.timezone: %w", err)
	}
	if c.Reminders.Concurrency < 1 {
		return errors.New("reminders.concurrency must be positive")
	}
	if c.Reminders.RunTimeout < 0 {
		return errors.New("reminders.run_timeout must not be negative")
	}

	switch c.Notifier.Driver {
	case notify.DriverLog:
	case notify.DriverFCM:
		if c.Notifier.FCM.ProjectID == "" {
			return errors.New("notifier.fcm.project_id is required for the fcm driver")
		}
	case notify.DriverAMQP:
		if c.Notifier.AMQP.URL == "" {
			return errors.New("notifier.amqp.url is required for the amqp driver")
		}
	default:
		return fmt.Errorf("notifier.driver must be one of log, fcm, amqp, got %q", c.Notifier.Driver)
	}
	return nil
}

// ValidateServer runs Validate plus the checks only the RPC server needs.
func (c *Config) ValidateServer() error {
	if err := c.Validate(); err != nil {
		return err
	}
	if c.Auth.JWTSecret == "" {
		return errors.New("auth.jwt_secret is required")
	}
	if c.Auth.TokenTTL <= 0 {
		return errors.New("auth.token_ttl must be positive")
	}
	return nil
}

// RemindersEnabled reports whether the scheduled run should be started.
func (c *Config) RemindersEnabled() bool {
	return c.Reminders.Enabled == nil || *c.Reminders.Enabled
}

// NotifyConfig returns the dispatcher settings.
func (c *Config) NotifyConfig() notify.Config {
	return notify.Config{
		Driver:             c.Notifier.Driver,
		FCMProjectID:       c.Notifier.FCM.ProjectID,
		FCMCredentialsFile: c.Notifier.FCM.CredentialsFile,
		AMQPURL:            c.Notifier.AMQP.URL,
		AMQPExchange:       c.Notifier.AMQP.Exchange,
		AMQPQueue:          c.Notifier.AMQP.Queue,
	}
}

// SchedulerConfig returns the cron settings.
func (c *Config) SchedulerConfig() scheduler.Config {
	return scheduler.Config{
		Spec:     c.Reminders.Cron,
		Timezone: c.Reminders.Timezone,
		Timeout:  c.Reminders.RunTimeout,
	}
}
