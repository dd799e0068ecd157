// Copyright (c) 2025 Darren Soothill
// Licensed under the MIT License

package notifications

import (
	"context"
	"sync"

	"github.com/godbus/dbus/v5"
	apperrors "github.com/soothill/battery-watcher/pkg/errors"
	"github.com/soothill/battery-watcher/pkg/logger"
	"github.com/soothill/battery-watcher/pkg/metrics"
)

const (
	notifyInterface = "org.freedesktop.Notifications"
	notifyPath      = "/org/freedesktop/Notifications"
	notifyMethod    = "org.freedesktop.Notifications.Notify"
	appName         = "battery-watcher"
)

// Urgency values from the Desktop Notifications specification.
const (
	urgencyLow      byte = 0
	urgencyNormal   byte = 1
	urgencyCritical byte = 2
)

// DesktopNotifier delivers alerts through org.freedesktop.Notifications on
// the D-Bus session bus. On headless hosts (no session bus) it constructs in
// a disabled state and every send is a silent no-op.
type DesktopNotifier struct {
	conn    *dbus.Conn
	icon    string
	enabled bool

	mu sync.Mutex
	// lastID replaces the previous notification instead of stacking a new
	// bubble per state transition.
	lastID uint32
}

// NewDesktopNotifier connects to the session bus. A connection failure is
// not an error: the notifier comes back disabled and the caller decides
// whether that matters.
func NewDesktopNotifier(icon string) *DesktopNotifier {
	conn, err := dbus.SessionBus()
	if err != nil {
		logger.Warn().Err(err).Msg("No D-Bus session bus, desktop notifications disabled")
		return &DesktopNotifier{icon: icon}
	}
	if icon == "" {
		icon = "battery"
	}
	return &DesktopNotifier{conn: conn, icon: icon, enabled: true}
}

// IsEnabled returns true if a session bus connection is available.
func (d *DesktopNotifier) IsEnabled() bool {
	return d.enabled
}

// SendAlert shows a desktop notification. The severity level maps onto the
// notification urgency hint; danger-level notifications do not expire.
func (d *DesktopNotifier) SendAlert(ctx context.Context, level, title, message string) error {
	if !d.enabled {
		return nil
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	urgency := urgencyForLevel(level)
	expire := int32(-1) // server default
	if urgency == urgencyCritical {
		expire = 0 // never expire
	}

	obj := d.conn.Object(notifyInterface, dbus.ObjectPath(notifyPath))
	call := obj.CallWithContext(ctx, notifyMethod, 0,
		appName,
		d.lastID,
		d.icon,
		title,
		message,
		[]string{},
		map[string]dbus.Variant{"urgency": dbus.MakeVariant(urgency)},
		expire,
	)
	if call.Err != nil {
		metrics.NotificationErrors.WithLabelValues("desktop").Inc()
		return apperrors.NewNotificationError("desktop", call.Err)
	}

	if err := call.Store(&d.lastID); err != nil {
		logger.Debug().Err(err).Msg("Could not read notification id from reply")
	}
	metrics.NotificationsSent.WithLabelValues("desktop").Inc()
	return nil
}

// Close releases the session bus connection.
func (d *DesktopNotifier) Close() error {
	if d.conn == nil {
		return nil
	}
	return d.conn.Close()
}

func urgencyForLevel(level string) byte {
	switch level {
	case LevelDanger:
		return urgencyCritical
	case LevelWarning:
		return urgencyNormal
	default:
		return urgencyLow
	}
}
