// Copyright (c) 2025 Darren Soothill
// Licensed under the MIT License

// Package metrics provides Prometheus metrics for the battery watcher.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// BatteriesDiscovered tracks the number of battery devices found in the
	// power-supply subsystem
	BatteriesDiscovered = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "battery_devices_discovered",
		Help: "Number of battery devices discovered in the power-supply subsystem",
	})

	// BatteriesWatched tracks the number of batteries with a live status watch
	BatteriesWatched = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "battery_devices_watched",
		Help: "Number of battery devices with an active kernel status watch",
	})

	// RefreshesTotal tracks the total number of completed refresh cycles
	RefreshesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "battery_refreshes_total",
		Help: "Total number of completed battery refresh cycles",
	})

	// WakeEventsTotal tracks kernel change notifications observed on watched
	// status files
	WakeEventsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "battery_wake_events_total",
		Help: "Total number of kernel change notifications on watched status files",
	})

	// AttrReadErrors tracks failed attribute reads during refresh cycles
	AttrReadErrors = promauto.NewCounter(prometheus.CounterOpts{
		Name: "battery_attr_read_errors_total",
		Help: "Total number of failed sysfs attribute reads during refresh cycles",
	})

	// RefreshDuration tracks how long the re-read phase of a refresh takes
	RefreshDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "battery_refresh_duration_seconds",
		Help:    "Duration of the attribute re-read phase of a refresh cycle in seconds",
		Buckets: prometheus.DefBuckets,
	})

	// AggregateLevel tracks the aggregate charge level across all batteries
	AggregateLevel = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "battery_aggregate_level_percent",
		Help: "Aggregate charge level across all batteries in percent",
	})

	// DeviceLevel tracks the charge level per battery device
	DeviceLevel = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "battery_device_level_percent",
		Help: "Charge level per battery device in percent",
	}, []string{"device"})

	// Discharging is 1 while any battery reports Discharging
	Discharging = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "battery_discharging",
		Help: "1 if any battery is currently discharging, 0 otherwise",
	})

	// NotificationsSent tracks alerts delivered per channel
	NotificationsSent = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "battery_notifications_sent_total",
		Help: "Total number of alerts delivered per notification channel",
	}, []string{"channel"})

	// NotificationErrors tracks failed alert deliveries per channel
	NotificationErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "battery_notification_errors_total",
		Help: "Total number of failed alert deliveries per notification channel",
	}, []string{"channel"})
)
