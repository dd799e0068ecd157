// Copyright (c) 2025 Darren Soothill
// Licensed under the MIT License

package main

import (
	"fmt"
	"os"

	"github.com/soothill/battery-watcher/app"
	"github.com/soothill/battery-watcher/config"
	"github.com/soothill/battery-watcher/discovery"
	"github.com/soothill/battery-watcher/monitoring"
	"github.com/soothill/battery-watcher/pkg/interfaces"
	"github.com/soothill/battery-watcher/pkg/logger"
	"github.com/soothill/battery-watcher/pkg/metrics"
	"github.com/soothill/battery-watcher/pkg/notifications"
	"github.com/urfave/cli/v2"
)

func main() {
	cliApp := &cli.App{
		Name:  "battery-watcher",
		Usage: "watch Linux battery state and alert on charge thresholds",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "path to configuration file (optional, defaults apply without one)",
			},
			&cli.StringFlag{
				Name:  "metrics-port",
				Value: "9090",
				Usage: "port for the Prometheus metrics endpoint",
			},
			&cli.StringSliceFlag{
				Name:    "battery",
				Aliases: []string{"b"},
				Usage:   "battery device name to watch (repeatable, overrides config and discovery)",
			},
			&cli.BoolFlag{
				Name:  "validate-config",
				Usage: "validate the configuration file and exit",
			},
		},
		Action: run,
	}

	if err := cliApp.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(c *cli.Context) error {
	configPath := c.String("config")

	if c.Bool("validate-config") {
		return validateConfigFile(configPath)
	}

	cfg, err := loadConfig(configPath)
	if err != nil {
		logger.Initialize("error")
		logger.Error().Err(err).Msg("Failed to load configuration")
		return err
	}

	logger.Initialize(cfg.Logging.Level)
	logger.Info().Msg("Starting battery watcher")
	logger.Info().Dur("poll_interval", cfg.Battery.PollInterval).
		Dur("urgent_poll_interval", cfg.Battery.UrgentInterval).
		Bool("required_reads", cfg.Battery.RequiredReads).
		Msg("Configuration loaded")

	scanner := discovery.NewScanner(cfg.Battery.SysfsRoot)
	names, err := resolveBatteries(c.StringSlice("battery"), cfg, scanner)
	if err != nil {
		return err
	}
	metrics.BatteriesDiscovered.Set(float64(len(names)))
	logger.Info().Strs("batteries", names).Msg("Watching batteries")

	batteries, err := monitoring.Open(scanner.Root(), names)
	if err != nil {
		return fmt.Errorf("failed to open battery set: %w", err)
	}
	if batteries.WatchedCount() < batteries.Count() {
		logger.Warn().Int("watched", batteries.WatchedCount()).Int("batteries", batteries.Count()).
			Msg("Running degraded: some batteries refresh on timeout only")
	}

	configChan := make(chan *config.Config)
	configWatcher := config.NewWatcher(configPath, configChan)

	application := app.New(cfg, c.String("metrics-port"), batteries, scanner,
		buildNotifiers(cfg), configWatcher)

	setupDebugSignalHandlers(application)

	return application.Run(configChan)
}

// loadConfig reads the config file, or falls back to defaults when none was
// given. The daemon must work without any configuration.
func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		return config.Default(), nil
	}
	return config.Load(path)
}

// resolveBatteries decides which devices to watch: explicit CLI names, then
// configured names (both validated, failing fast on the first invalid one),
// then discovery.
func resolveBatteries(cliNames []string, cfg *config.Config, scanner *discovery.Scanner) ([]string, error) {
	names := cliNames
	if len(names) == 0 {
		names = cfg.Battery.Names
	}

	if len(names) > 0 {
		if idx := scanner.Validate(names); idx >= 0 {
			return nil, fmt.Errorf("device %q is not a battery", names[idx])
		}
		return names, nil
	}

	names, err := scanner.Discover()
	if err != nil {
		return nil, fmt.Errorf("battery discovery failed: %w", err)
	}
	if len(names) == 0 {
		return nil, fmt.Errorf("no batteries found under %s", scanner.Root())
	}
	return names, nil
}

// buildNotifiers assembles the enabled notification channels.
func buildNotifiers(cfg *config.Config) []interfaces.Notifier {
	var notifiers []interfaces.Notifier

	if !cfg.Notifications.DisableDesktop {
		notifiers = append(notifiers, notifications.NewDesktopNotifier(cfg.Notifications.Icon))
	}

	webhook := notifications.NewWebhookNotifier(cfg.Notifications.WebhookURL)
	if webhook.IsEnabled() {
		logger.Info().Msg("Webhook notifications enabled")
		notifiers = append(notifiers, webhook)
	} else {
		logger.Info().Msg("Webhook notifications disabled (no URL configured)")
	}

	return notifiers
}

// validateConfigFile validates the configuration file and exits
func validateConfigFile(configPath string) error {
	logger.Initialize("info")

	if configPath == "" {
		return fmt.Errorf("--validate-config requires --config")
	}
	logger.Info().Str("path", configPath).Msg("Validating configuration file")

	if err := config.ValidateWithSchema(configPath); err != nil {
		logger.Error().Err(err).Msg("Configuration schema validation failed")
		return fmt.Errorf("configuration validation failed")
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		logger.Error().Err(err).Msg("Configuration validation failed")
		return fmt.Errorf("configuration validation failed")
	}

	fmt.Println("Configuration validation PASSED")
	fmt.Println("\nConfiguration summary:")
	fmt.Printf("  Sysfs Root: %s\n", defaultString(cfg.Battery.SysfsRoot, "/sys/class/power_supply"))
	fmt.Printf("  Batteries: %v\n", defaultNames(cfg.Battery.Names))
	fmt.Printf("  Poll Interval: %s\n", cfg.Battery.PollInterval)
	fmt.Printf("  Urgent Poll Interval: %s\n", cfg.Battery.UrgentInterval)
	fmt.Printf("  Required Reads: %t\n", cfg.Battery.RequiredReads)
	fmt.Printf("  Warning/Critical/Danger Levels: %d%%/%d%%/%d%%\n",
		cfg.Alerts.WarningLevel, cfg.Alerts.CriticalLevel, cfg.Alerts.DangerLevel)
	fmt.Printf("  Log Level: %s\n", cfg.Logging.Level)

	if cfg.Notifications.WebhookURL != "" {
		fmt.Println("  Webhook Notifications: Enabled")
	} else {
		fmt.Println("  Webhook Notifications: Disabled")
	}
	if cfg.Notifications.DisableDesktop {
		fmt.Println("  Desktop Notifications: Disabled")
	} else {
		fmt.Println("  Desktop Notifications: Enabled")
	}

	return nil
}

func defaultString(val, fallback string) string {
	if val == "" {
		return fallback
	}
	return val
}

func defaultNames(names []string) string {
	if len(names) == 0 {
		return "(auto-discover)"
	}
	return fmt.Sprintf("%v", names)
}
