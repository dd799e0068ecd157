// Copyright (c) 2025 Darren Soothill
// Licensed under the MIT License

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestValidate(t *testing.T) {
	valid := func() Config {
		return Config{
			Battery: BatteryConfig{
				PollInterval:   60 * time.Second,
				UrgentInterval: 5 * time.Second,
			},
			Alerts: AlertsConfig{
				WarningLevel:  15,
				CriticalLevel: 10,
				DangerLevel:   5,
			},
			Logging: LoggingConfig{
				Level: "info",
			},
		}
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{
			name:    "valid config",
			mutate:  func(c *Config) {},
			wantErr: false,
		},
		{
			name: "poll interval too short",
			mutate: func(c *Config) {
				c.Battery.PollInterval = 500 * time.Millisecond
			},
			wantErr: true,
		},
		{
			name: "poll interval too long",
			mutate: func(c *Config) {
				c.Battery.PollInterval = 25 * time.Hour
			},
			wantErr: true,
		},
		{
			name: "urgent interval too short",
			mutate: func(c *Config) {
				c.Battery.UrgentInterval = 100 * time.Millisecond
			},
			wantErr: true,
		},
		{
			name: "urgent interval exceeds poll interval",
			mutate: func(c *Config) {
				c.Battery.UrgentInterval = 2 * time.Minute
			},
			wantErr: true,
		},
		{
			name: "battery name with path separator",
			mutate: func(c *Config) {
				c.Battery.Names = []string{"../etc/passwd"}
			},
			wantErr: true,
		},
		{
			name: "bare battery names accepted",
			mutate: func(c *Config) {
				c.Battery.Names = []string{"BAT0", "BAT1"}
			},
			wantErr: false,
		},
		{
			name: "danger above critical",
			mutate: func(c *Config) {
				c.Alerts.DangerLevel = 20
			},
			wantErr: true,
		},
		{
			name: "critical above warning",
			mutate: func(c *Config) {
				c.Alerts.CriticalLevel = 30
			},
			wantErr: true,
		},
		{
			name: "warning level out of range",
			mutate: func(c *Config) {
				c.Alerts.WarningLevel = 150
			},
			wantErr: true,
		},
		{
			name: "invalid log level",
			mutate: func(c *Config) {
				c.Logging.Level = "verbose"
			},
			wantErr: true,
		},
		{
			name: "https webhook accepted",
			mutate: func(c *Config) {
				c.Notifications.WebhookURL = "https://alerts.example.com/hook"
			},
			wantErr: false,
		},
		{
			name: "plain http webhook rejected",
			mutate: func(c *Config) {
				c.Notifications.WebhookURL = "http://alerts.example.com/hook"
			},
			wantErr: true,
		},
		{
			name: "plain http to localhost accepted",
			mutate: func(c *Config) {
				c.Notifications.WebhookURL = "http://localhost:9000/hook"
			},
			wantErr: false,
		},
		{
			name: "plain http to private network accepted",
			mutate: func(c *Config) {
				c.Notifications.WebhookURL = "http://192.168.1.10:9000/hook"
			},
			wantErr: false,
		},
		{
			name: "webhook url not a url",
			mutate: func(c *Config) {
				c.Notifications.WebhookURL = "not a url"
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestLoad_ValidFile(t *testing.T) {
	content := `
battery:
  sysfs_root: /tmp/power_supply
  names:
    - BAT0
    - BAT1
  poll_interval: 30s
  urgent_poll_interval: 2s
  required_reads: true
alerts:
  warning_level: 20
  critical_level: 12
  danger_level: 6
  danger_command: systemctl suspend
notifications:
  disable_desktop: true
  webhook_url: https://alerts.example.com/hook
logging:
  level: debug
`
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("Failed to write temp config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Battery.SysfsRoot != "/tmp/power_supply" {
		t.Errorf("SysfsRoot = %q, want /tmp/power_supply", cfg.Battery.SysfsRoot)
	}
	if len(cfg.Battery.Names) != 2 || cfg.Battery.Names[0] != "BAT0" {
		t.Errorf("Names = %v, want [BAT0 BAT1]", cfg.Battery.Names)
	}
	if cfg.Battery.PollInterval != 30*time.Second {
		t.Errorf("PollInterval = %v, want 30s", cfg.Battery.PollInterval)
	}
	if cfg.Battery.UrgentInterval != 2*time.Second {
		t.Errorf("UrgentInterval = %v, want 2s", cfg.Battery.UrgentInterval)
	}
	if !cfg.Battery.RequiredReads {
		t.Error("RequiredReads = false, want true")
	}
	if cfg.Alerts.WarningLevel != 20 || cfg.Alerts.CriticalLevel != 12 || cfg.Alerts.DangerLevel != 6 {
		t.Errorf("thresholds = %d/%d/%d, want 20/12/6",
			cfg.Alerts.WarningLevel, cfg.Alerts.CriticalLevel, cfg.Alerts.DangerLevel)
	}
	if cfg.Alerts.DangerCommand != "systemctl suspend" {
		t.Errorf("DangerCommand = %q, want 'systemctl suspend'", cfg.Alerts.DangerCommand)
	}
	if !cfg.Notifications.DisableDesktop {
		t.Error("DisableDesktop = false, want true")
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("Level = %q, want debug", cfg.Logging.Level)
	}
}

func TestLoad_FileNotFound(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err == nil {
		t.Error("Load() with missing file should return error")
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("battery: [unclosed"), 0o600); err != nil {
		t.Fatalf("Failed to write temp config: %v", err)
	}
	_, err := Load(path)
	if err == nil {
		t.Error("Load() with invalid YAML should return error")
	}
}

func TestLoad_InvalidValues(t *testing.T) {
	content := `
alerts:
  danger_level: 50
  critical_level: 10
  warning_level: 15
`
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("Failed to write temp config: %v", err)
	}
	_, err := Load(path)
	if err == nil {
		t.Error("Load() with danger above critical should return error")
	}
}

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg.Battery.PollInterval != DefaultPollInterval {
		t.Errorf("PollInterval = %v, want %v", cfg.Battery.PollInterval, DefaultPollInterval)
	}
	if cfg.Battery.UrgentInterval != DefaultUrgentInterval {
		t.Errorf("UrgentInterval = %v, want %v", cfg.Battery.UrgentInterval, DefaultUrgentInterval)
	}
	if cfg.Alerts.WarningLevel != DefaultWarningLevel {
		t.Errorf("WarningLevel = %d, want %d", cfg.Alerts.WarningLevel, DefaultWarningLevel)
	}
	if cfg.Alerts.CriticalLevel != DefaultCriticalLevel {
		t.Errorf("CriticalLevel = %d, want %d", cfg.Alerts.CriticalLevel, DefaultCriticalLevel)
	}
	if cfg.Alerts.DangerLevel != DefaultDangerLevel {
		t.Errorf("DangerLevel = %d, want %d", cfg.Alerts.DangerLevel, DefaultDangerLevel)
	}
	if cfg.Logging.Level != "info" {
		t.Errorf("Level = %q, want info", cfg.Logging.Level)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Default() config failed validation: %v", err)
	}
}

func TestSetDefaults_PartialConfig(t *testing.T) {
	cfg := Config{
		Battery: BatteryConfig{PollInterval: 2 * time.Minute},
		Alerts:  AlertsConfig{WarningLevel: 30},
	}
	cfg.setDefaults()

	if cfg.Battery.PollInterval != 2*time.Minute {
		t.Errorf("PollInterval = %v, explicit value should survive", cfg.Battery.PollInterval)
	}
	if cfg.Battery.UrgentInterval != DefaultUrgentInterval {
		t.Errorf("UrgentInterval = %v, want default %v", cfg.Battery.UrgentInterval, DefaultUrgentInterval)
	}
	if cfg.Alerts.WarningLevel != 30 {
		t.Errorf("WarningLevel = %d, explicit value should survive", cfg.Alerts.WarningLevel)
	}
	if cfg.Alerts.CriticalLevel != DefaultCriticalLevel {
		t.Errorf("CriticalLevel = %d, want default %d", cfg.Alerts.CriticalLevel, DefaultCriticalLevel)
	}
}

func TestEnvironmentOverrides(t *testing.T) {
	t.Setenv("BATTERY_SYSFS_ROOT", "/tmp/fixture")
	t.Setenv("LOG_LEVEL", "warn")
	t.Setenv("BATTERY_WEBHOOK_URL", "https://env.example.com/hook")
	t.Setenv("BATTERY_POLL_INTERVAL", "90s")

	cfg := Default()

	if cfg.Battery.SysfsRoot != "/tmp/fixture" {
		t.Errorf("SysfsRoot = %q, want /tmp/fixture", cfg.Battery.SysfsRoot)
	}
	if cfg.Logging.Level != "warn" {
		t.Errorf("Level = %q, want warn", cfg.Logging.Level)
	}
	if cfg.Notifications.WebhookURL != "https://env.example.com/hook" {
		t.Errorf("WebhookURL = %q, want env value", cfg.Notifications.WebhookURL)
	}
	if cfg.Battery.PollInterval != 90*time.Second {
		t.Errorf("PollInterval = %v, want 90s", cfg.Battery.PollInterval)
	}
}

func TestEnvironmentOverrides_InvalidInterval(t *testing.T) {
	t.Setenv("BATTERY_POLL_INTERVAL", "soon")

	cfg := Default()
	if cfg.Battery.PollInterval != DefaultPollInterval {
		t.Errorf("PollInterval = %v, want default %v on unparseable override",
			cfg.Battery.PollInterval, DefaultPollInterval)
	}
}
