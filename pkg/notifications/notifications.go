// Copyright (c) 2025 Darren Soothill
// Licensed under the MIT License

// Package notifications provides alerting capabilities via various channels.
//
// This package implements notification delivery for battery state
// transitions: entering warning, critical or danger charge levels, reaching
// full charge, and returning to AC power. Alerts let the user react before
// the host powers off.
//
// # Notification Channels
//
// Currently supported:
//   - Desktop: org.freedesktop.Notifications over the D-Bus session bus
//   - Webhook: JSON POST to a configured HTTP endpoint
//
// # Alert Severity Levels
//
// Three severity levels shared by all channels:
//   - danger: critical battery states requiring immediate attention
//   - warning: states that deserve a look (low charge, degraded watches)
//   - good: recovery and completion notices (charging, full)
//
// # Error Handling
//
// Notification failures are logged but never block the refresh loop:
//   - Failed deliveries return a NotificationError and are counted
//   - Webhook requests carry a 10 second HTTP timeout and respect context
//     cancellation
//   - Repeated webhook failures open a circuit breaker so a dead endpoint
//     cannot stall alerting
//   - A rate limiter drops floods caused by oscillating status files
//   - Disabled notifiers skip sending silently
//
// # Thread Safety
//
// All notifiers are safe for concurrent use.
package notifications

// Severity levels understood by every channel.
const (
	LevelDanger  = "danger"
	LevelWarning = "warning"
	LevelGood    = "good"
)
