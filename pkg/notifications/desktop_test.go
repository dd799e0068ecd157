// Copyright (c) 2025 Darren Soothill
// Licensed under the MIT License

package notifications

import (
	"context"
	"testing"
)

func TestUrgencyForLevel(t *testing.T) {
	tests := []struct {
		level string
		want  byte
	}{
		{LevelDanger, urgencyCritical},
		{LevelWarning, urgencyNormal},
		{LevelGood, urgencyLow},
		{"unknown", urgencyLow},
		{"", urgencyLow},
	}

	for _, tt := range tests {
		if got := urgencyForLevel(tt.level); got != tt.want {
			t.Errorf("urgencyForLevel(%q) = %d, want %d", tt.level, got, tt.want)
		}
	}
}

func TestDesktopNotifier_Disabled(t *testing.T) {
	// A notifier without a bus connection is permanently disabled.
	n := &DesktopNotifier{}

	if n.IsEnabled() {
		t.Error("IsEnabled() = true without a bus connection")
	}
	if err := n.SendAlert(context.Background(), LevelDanger, "title", "message"); err != nil {
		t.Errorf("SendAlert() on disabled notifier error = %v, want nil", err)
	}
	if err := n.Close(); err != nil {
		t.Errorf("Close() on disabled notifier error = %v, want nil", err)
	}
}

func TestNewDesktopNotifier_HeadlessHost(t *testing.T) {
	// Without a session bus address the constructor must come back disabled
	// instead of failing.
	t.Setenv("DBUS_SESSION_BUS_ADDRESS", "unix:path=/nonexistent/bus")

	n := NewDesktopNotifier("battery")
	if n == nil {
		t.Fatal("NewDesktopNotifier() returned nil")
	}
	if n.IsEnabled() {
		t.Error("IsEnabled() = true with unreachable session bus")
	}
	if err := n.SendAlert(context.Background(), LevelWarning, "title", "message"); err != nil {
		t.Errorf("SendAlert() error = %v, want nil no-op", err)
	}
}
