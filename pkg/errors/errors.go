// Copyright (c) 2025 Darren Soothill
// Licensed under the MIT License

// Package errors provides structured error types for the battery watcher.
//
// This package defines custom error types that provide better error handling,
// inspection, and debugging capabilities compared to plain string errors.
//
// # Benefits of Structured Errors
//
//   - Type-safe error inspection with errors.As() and errors.Is()
//   - Context-rich error messages with device, attribute and path details
//   - Consistent error formatting across the application
//   - Better error wrapping and unwrapping support
//
// # Example Usage
//
//	err := errors.NewReadError("/sys/class/power_supply/BAT0/status", true, io.EOF)
//	if errors.IsReadError(err) {
//	    log.Printf("read failed: %v", err)
//	}
//
//	var readErr *errors.ReadError
//	if errors.As(err, &readErr) && readErr.Required {
//	    os.Exit(1)
//	}
package errors

import (
	"errors"
	"fmt"
)

// ProbeError represents an error while probing a power-supply device.
type ProbeError struct {
	Device string // Device name under the power-supply subsystem
	Attr   string // Attribute being probed (e.g. "type", "capacity")
	Err    error  // Underlying error
}

func (e *ProbeError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("probe %s/%s: %v", e.Device, e.Attr, e.Err)
	}
	return fmt.Sprintf("probe %s/%s failed", e.Device, e.Attr)
}

func (e *ProbeError) Unwrap() error {
	return e.Err
}

// NewProbeError creates a new probe error.
func NewProbeError(device, attr string, err error) *ProbeError {
	return &ProbeError{Device: device, Attr: attr, Err: err}
}

// IsProbeError checks if an error is a ProbeError.
func IsProbeError(err error) bool {
	var pe *ProbeError
	return errors.As(err, &pe)
}

// WatchError represents a failure to register or service a kernel watch.
type WatchError struct {
	Path string // Watched path
	Err  error  // Underlying error
}

func (e *WatchError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("watch %s: %v", e.Path, e.Err)
	}
	return fmt.Sprintf("watch: %v", e.Err)
}

func (e *WatchError) Unwrap() error {
	return e.Err
}

// NewWatchError creates a new watch error.
func NewWatchError(path string, err error) *WatchError {
	return &WatchError{Path: path, Err: err}
}

// IsWatchError checks if an error is a WatchError.
func IsWatchError(err error) bool {
	var we *WatchError
	return errors.As(err, &we)
}

// ReadError represents a failed attribute read during a refresh cycle.
// Required marks reads the caller declared mandatory; those are fatal for
// the whole refresh rather than skipped.
type ReadError struct {
	Path     string // Attribute file that could not be read
	Required bool   // Whether the caller required this read
	Err      error  // Underlying error
}

func (e *ReadError) Error() string {
	if e.Required {
		return fmt.Sprintf("required read %s: %v", e.Path, e.Err)
	}
	return fmt.Sprintf("read %s: %v", e.Path, e.Err)
}

func (e *ReadError) Unwrap() error {
	return e.Err
}

// NewReadError creates a new read error.
func NewReadError(path string, required bool, err error) *ReadError {
	return &ReadError{Path: path, Required: required, Err: err}
}

// IsReadError checks if an error is a ReadError.
func IsReadError(err error) bool {
	var re *ReadError
	return errors.As(err, &re)
}

// IsRequiredReadError reports whether err is a ReadError from a required read.
func IsRequiredReadError(err error) bool {
	var re *ReadError
	return errors.As(err, &re) && re.Required
}

// ConfigError represents a configuration error.
type ConfigError struct {
	Field string // Configuration field that caused the error
	Value string // Invalid value (optional, may be redacted for sensitive fields)
	Err   error  // Underlying error or description
}

func (e *ConfigError) Error() string {
	if e.Value != "" {
		return fmt.Sprintf("config error in field %q (value=%q): %v", e.Field, e.Value, e.Err)
	}
	if e.Err != nil {
		return fmt.Sprintf("config error in field %q: %v", e.Field, e.Err)
	}
	return fmt.Sprintf("config error in field %q", e.Field)
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}

// NewConfigError creates a new configuration error.
func NewConfigError(field string, value string, err error) *ConfigError {
	return &ConfigError{Field: field, Value: value, Err: err}
}

// IsConfigError checks if an error is a ConfigError.
func IsConfigError(err error) bool {
	var ce *ConfigError
	return errors.As(err, &ce)
}

// NotificationError represents an error sending notifications.
type NotificationError struct {
	Channel string // Notification channel (e.g. "desktop", "webhook")
	Err     error  // Underlying error
}

func (e *NotificationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("notification %s: %v", e.Channel, e.Err)
	}
	return fmt.Sprintf("notification %s failed", e.Channel)
}

func (e *NotificationError) Unwrap() error {
	return e.Err
}

// NewNotificationError creates a new notification error.
func NewNotificationError(channel string, err error) *NotificationError {
	return &NotificationError{Channel: channel, Err: err}
}

// IsNotificationError checks if an error is a NotificationError.
func IsNotificationError(err error) bool {
	var ne *NotificationError
	return errors.As(err, &ne)
}

// Sentinel errors for common conditions
var (
	// ErrNoBatteries indicates no battery devices were found or supplied
	ErrNoBatteries = errors.New("no batteries")

	// ErrNotABattery indicates a named device is not a battery
	ErrNotABattery = errors.New("not a battery")

	// ErrNoData indicates a refresh cycle produced no usable readings
	ErrNoData = errors.New("no battery data")

	// ErrClosed indicates the battery set has been torn down
	ErrClosed = errors.New("battery set closed")
)
