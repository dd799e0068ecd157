// Copyright (c) 2025 Darren Soothill
// Licensed under the MIT License

// Package config provides configuration management for the battery watcher.
package config

import (
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Default threshold and polling values, applied when the file or environment
// leaves a field unset.
const (
	DefaultPollInterval   = 60 * time.Second
	DefaultUrgentInterval = 5 * time.Second
	DefaultWarningLevel   = 15
	DefaultCriticalLevel  = 10
	DefaultDangerLevel    = 5
)

// Config represents the application configuration
type Config struct {
	Battery       BatteryConfig       `yaml:"battery"`
	Alerts        AlertsConfig        `yaml:"alerts"`
	Notifications NotificationsConfig `yaml:"notifications"`
	Logging       LoggingConfig       `yaml:"logging"`
}

// BatteryConfig holds watcher settings
type BatteryConfig struct {
	// SysfsRoot overrides the power-supply subsystem directory, mainly for
	// testing against a fixture tree.
	SysfsRoot string `yaml:"sysfs_root"`
	// Names pins the watched batteries; empty means auto-discover.
	Names []string `yaml:"names"`
	// PollInterval is the refresh timeout while nothing urgent is happening.
	PollInterval time.Duration `yaml:"poll_interval"`
	// UrgentInterval is the refresh timeout while discharging near a
	// threshold.
	UrgentInterval time.Duration `yaml:"urgent_poll_interval"`
	// RequiredReads makes any unreadable attribute fatal for the process.
	RequiredReads bool `yaml:"required_reads"`
}

// AlertsConfig holds charge-level alert thresholds in percent
type AlertsConfig struct {
	WarningLevel  int `yaml:"warning_level" validate:"gte=0,lte=100"`
	CriticalLevel int `yaml:"critical_level" validate:"gte=0,lte=100"`
	DangerLevel   int `yaml:"danger_level" validate:"gte=0,lte=100"`
	// DangerCommand runs via the shell when the danger level is reached.
	DangerCommand string `yaml:"danger_command"`
}

// NotificationsConfig holds alert delivery settings
type NotificationsConfig struct {
	DisableDesktop bool   `yaml:"disable_desktop"`
	Icon           string `yaml:"icon"`
	WebhookURL     string `yaml:"webhook_url" validate:"omitempty,url"`
}

// LoggingConfig holds logging settings
type LoggingConfig struct {
	Level string `yaml:"level" validate:"omitempty,oneof=debug info warn warning error fatal panic"`
}

// Default returns a configuration with all defaults applied, used when no
// config file is given. The daemon is expected to work out of the box.
func Default() *Config {
	cfg := &Config{}
	cfg.applyEnvironmentOverrides()
	cfg.setDefaults()
	return cfg
}

// Load reads configuration from a YAML file and applies environment variable
// overrides
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	err = yaml.Unmarshal(data, &cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	// Apply environment variable overrides and defaults
	cfg.applyEnvironmentOverrides()
	cfg.setDefaults()

	// Validate configuration
	err = cfg.Validate()
	if err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &cfg, nil
}

// applyEnvironmentOverrides applies environment variable overrides to the
// configuration
func (c *Config) applyEnvironmentOverrides() {
	if root := os.Getenv("BATTERY_SYSFS_ROOT"); root != "" {
		c.Battery.SysfsRoot = root
	}
	if level := os.Getenv("LOG_LEVEL"); level != "" {
		c.Logging.Level = level
	}
	if webhook := os.Getenv("BATTERY_WEBHOOK_URL"); webhook != "" {
		c.Notifications.WebhookURL = webhook
	}
	if interval := os.Getenv("BATTERY_POLL_INTERVAL"); interval != "" {
		duration, parseErr := time.ParseDuration(interval)
		if parseErr == nil {
			c.Battery.PollInterval = duration
		} else {
			fmt.Fprintf(os.Stderr, "Warning: Failed to parse BATTERY_POLL_INTERVAL '%s': %v\n", interval, parseErr)
		}
	}
}

// setDefaults sets default values for configuration fields if not provided
func (c *Config) setDefaults() {
	if c.Battery.PollInterval == 0 {
		c.Battery.PollInterval = DefaultPollInterval
	}
	if c.Battery.UrgentInterval == 0 {
		c.Battery.UrgentInterval = DefaultUrgentInterval
	}
	if c.Alerts.WarningLevel == 0 {
		c.Alerts.WarningLevel = DefaultWarningLevel
	}
	if c.Alerts.CriticalLevel == 0 {
		c.Alerts.CriticalLevel = DefaultCriticalLevel
	}
	if c.Alerts.DangerLevel == 0 {
		c.Alerts.DangerLevel = DefaultDangerLevel
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return err
	}

	if validateErr := c.validateBattery(); validateErr != nil {
		return validateErr
	}

	if validateErr := c.validateAlerts(); validateErr != nil {
		return validateErr
	}

	return c.validateNotifications()
}

// validateBattery validates the watcher configuration
func (c *Config) validateBattery() error {
	if c.Battery.PollInterval < time.Second {
		return fmt.Errorf("battery.poll_interval must be at least 1 second")
	}
	if c.Battery.PollInterval > 24*time.Hour {
		return fmt.Errorf("battery.poll_interval must not exceed 24 hours")
	}
	if c.Battery.UrgentInterval < time.Second {
		return fmt.Errorf("battery.urgent_poll_interval must be at least 1 second")
	}
	if c.Battery.UrgentInterval > c.Battery.PollInterval {
		return fmt.Errorf("battery.urgent_poll_interval must not exceed battery.poll_interval")
	}
	for _, name := range c.Battery.Names {
		if strings.ContainsAny(name, "/\x00") {
			return fmt.Errorf("battery.names entry %q must be a bare device name", name)
		}
	}
	return nil
}

// validateAlerts validates the alert threshold ordering
func (c *Config) validateAlerts() error {
	if c.Alerts.DangerLevel > c.Alerts.CriticalLevel {
		return fmt.Errorf("alerts.danger_level must not exceed alerts.critical_level")
	}
	if c.Alerts.CriticalLevel > c.Alerts.WarningLevel {
		return fmt.Errorf("alerts.critical_level must not exceed alerts.warning_level")
	}
	return nil
}

// validateNotifications validates notification delivery settings
func (c *Config) validateNotifications() error {
	if c.Notifications.WebhookURL == "" {
		return nil
	}

	parsedURL, parseErr := url.Parse(c.Notifications.WebhookURL)
	if parseErr != nil {
		return fmt.Errorf("notifications.webhook_url is not a valid URL: %w", parseErr)
	}

	// HTTP is tolerated only for local endpoints; anything else would ship
	// alerts in plaintext.
	if parsedURL.Scheme == "http" && !isLocalHostname(parsedURL.Hostname()) {
		return fmt.Errorf("notifications.webhook_url must use HTTPS for non-local endpoints (got %s)", parsedURL.Scheme)
	}
	return nil
}

func isLocalHostname(hostname string) bool {
	hostname = strings.ToLower(hostname)
	return hostname == "localhost" ||
		hostname == "127.0.0.1" ||
		hostname == "::1" ||
		strings.HasPrefix(hostname, "192.168.") ||
		strings.HasPrefix(hostname, "10.") ||
		strings.HasPrefix(hostname, "172.")
}
