// Copyright (c) 2025 Darren Soothill
// Licensed under the MIT License

// Package interfaces defines abstract interfaces for core system components.
// This package promotes loose coupling and testability by allowing
// dependency injection and easy mocking in tests.
package interfaces

import (
	"context"
	"time"

	"github.com/soothill/battery-watcher/discovery"
	"github.com/soothill/battery-watcher/monitoring"
)

// BatteryScanner defines the interface for battery discovery and validation.
type BatteryScanner interface {
	// Discover returns the names of all batteries in the power-supply
	// subsystem, in directory order. An empty result is valid.
	Discover() ([]string, error)

	// Validate returns the index of the first supplied name that is not a
	// battery, or -1 if all are valid.
	Validate(names []string) int

	// Classify determines which attribute scheme a device exposes.
	Classify(name string) discovery.AttrPair

	// IsBattery reports whether a device qualifies as a battery.
	IsBattery(name string) bool
}

// BatteryWatcher defines the interface for the concurrent battery-state
// watcher. Implementations block in WaitAndRefresh until a status change or
// the timeout, whichever comes first, then publish a fresh snapshot.
type BatteryWatcher interface {
	// WaitAndRefresh blocks for a wake or timeout, then recomputes the
	// aggregate snapshot. With required=true an unreadable attribute is
	// returned as a fatal ReadError.
	WaitAndRefresh(ctx context.Context, required bool, timeout time.Duration) error

	// Snapshot returns the most recent aggregate state, or nil before the
	// first completed refresh.
	Snapshot() *monitoring.Snapshot

	// Count returns the number of batteries in the set.
	Count() int

	// WatchedCount returns how many batteries have an active status watch.
	WatchedCount() int

	// Close tears down all watches and the notification endpoint.
	Close() error
}

// Notifier defines the interface for sending notifications.
type Notifier interface {
	// SendAlert sends a notification with the given level, title, and message.
	SendAlert(ctx context.Context, level, title, message string) error
	// IsEnabled returns true if the notifier is configured and enabled.
	IsEnabled() bool
}
