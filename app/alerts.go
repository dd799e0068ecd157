// Copyright (c) 2025 Darren Soothill
// Licensed under the MIT License

package app

import (
	"context"
	"fmt"
	"os/exec"

	"github.com/soothill/battery-watcher/config"
	"github.com/soothill/battery-watcher/monitoring"
	"github.com/soothill/battery-watcher/pkg/logger"
	"github.com/soothill/battery-watcher/pkg/notifications"
)

// urgentLevelMargin widens the urgent-polling band above the warning
// threshold so the daemon tightens its refresh timeout before the first
// alert fires, not after.
const urgentLevelMargin = 5

// AlertState is the coarse battery condition derived from a snapshot.
// Notifications fire on state transitions, never on every refresh.
type AlertState int

// Alert states, ordered from calm to urgent.
const (
	StateAC AlertState = iota
	StateFull
	StateDischarging
	StateWarning
	StateCritical
	StateDanger
	StateNoData
)

func (s AlertState) String() string {
	switch s {
	case StateAC:
		return "ac"
	case StateFull:
		return "full"
	case StateDischarging:
		return "discharging"
	case StateWarning:
		return "warning"
	case StateCritical:
		return "critical"
	case StateDanger:
		return "danger"
	case StateNoData:
		return "no-data"
	default:
		return "unknown"
	}
}

// classifySnapshot maps an aggregate snapshot onto an alert state using the
// configured thresholds. Status is authoritative for full: a battery
// reporting Full counts as full even below 100 percent.
func classifySnapshot(snap *monitoring.Snapshot, alerts config.AlertsConfig) AlertState {
	switch {
	case snap.NoData:
		return StateNoData
	case snap.Full:
		return StateFull
	case !snap.Discharging:
		return StateAC
	case snap.Level <= alerts.DangerLevel:
		return StateDanger
	case snap.Level <= alerts.CriticalLevel:
		return StateCritical
	case snap.Level <= alerts.WarningLevel:
		return StateWarning
	default:
		return StateDischarging
	}
}

// evaluateAlerts compares the snapshot against the previous alert state and
// delivers notifications on transitions.
func (a *App) evaluateAlerts(ctx context.Context, snap *monitoring.Snapshot) {
	cfg := a.config()
	newState := classifySnapshot(snap, cfg.Alerts)
	if newState == a.state {
		return
	}

	logger.Info().Str("from", a.state.String()).Str("to", newState.String()).
		Int("level", snap.Level).Msg("Battery state transition")
	prev := a.state
	a.state = newState

	level, title, message, notify := alertContent(newState, snap.Level)
	// Re-entering AC or discharging from a calmer state is not newsworthy.
	if notify && !(newState == StateDischarging && prev <= StateDischarging) {
		a.sendAlert(ctx, level, title, message)
	}

	if newState == StateDanger && cfg.Alerts.DangerCommand != "" {
		a.runDangerCommand(ctx, cfg.Alerts.DangerCommand)
	}
}

// alertContent returns the notification for a state, and whether the state
// warrants one at all.
func alertContent(state AlertState, level int) (severity, title, message string, notify bool) {
	switch state {
	case StateWarning:
		return notifications.LevelWarning, "Battery low",
			fmt.Sprintf("Battery level is %d%%", level), true
	case StateCritical:
		return notifications.LevelDanger, "Battery critically low",
			fmt.Sprintf("Battery level is %d%%", level), true
	case StateDanger:
		return notifications.LevelDanger, "Battery dangerously low",
			fmt.Sprintf("Battery level is %d%%, the system may power off", level), true
	case StateFull:
		return notifications.LevelGood, "Battery full",
			"Charging complete", true
	case StateDischarging:
		return notifications.LevelGood, "Running on battery",
			fmt.Sprintf("Battery level is %d%%", level), true
	case StateNoData:
		return notifications.LevelWarning, "Battery state unavailable",
			"No battery produced readable data this cycle", true
	default:
		return "", "", "", false
	}
}

// sendAlert fans one alert out to every enabled notifier.
func (a *App) sendAlert(ctx context.Context, level, title, message string) {
	for _, notifier := range a.notifiers {
		if notifier == nil || !notifier.IsEnabled() {
			continue
		}
		alertCtx, alertCancel := context.WithTimeout(ctx, alertContextTimeout)
		if err := notifier.SendAlert(alertCtx, level, title, message); err != nil {
			logger.Error().Err(err).Str("title", title).Msg("Failed to send alert")
		}
		alertCancel()
	}
}

// runDangerCommand executes the configured danger command via the shell.
// The command runs detached from the refresh loop.
func (a *App) runDangerCommand(ctx context.Context, command string) {
	logger.Info().Str("command", command).Msg("Running danger command")
	cmd := exec.CommandContext(ctx, "/bin/sh", "-c", command) // #nosec G204 -- command is operator-configured
	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		if err := cmd.Run(); err != nil {
			logger.Error().Err(err).Str("command", command).Msg("Danger command failed")
		}
	}()
}
