// Copyright (c) 2025 Darren Soothill
// Licensed under the MIT License

// Package monitoring provides the concurrent battery-state watcher.
//
// A BatterySet owns one kernel notification endpoint (an inotify instance
// behind fsnotify) with one watch registered per battery status file. All
// change notifications are funneled into a single coalesced wake signal; the
// caller blocks on that signal with a timeout via WaitAndRefresh and, on each
// wake or timeout, every battery is re-read and the aggregate snapshot is
// recomputed in full.
//
// # Concurrency Model
//
// One pump goroutine drains the shared event channel. Which battery changed
// is deliberately ignored: the refresh protocol only needs "something
// changed" and always re-reads current state rather than diffing, so bursts
// of events may coalesce into a single wake without loss of correctness.
//
// The snapshot is written only by WaitAndRefresh on the caller's goroutine
// and published as an immutable copy through an atomic pointer. The pump
// goroutine never touches snapshot fields, so no lock protects them.
//
// # Degraded Mode
//
// A failed watch registration costs a battery its dedicated wake source but
// not its place in the aggregate: refreshes still read it on every timeout.
// WatchedCount exposes how many of the batteries have live watches so the
// caller can surface degraded operation instead of discovering it by latency.
package monitoring

import (
	"context"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/soothill/battery-watcher/discovery"
	apperrors "github.com/soothill/battery-watcher/pkg/errors"
	"github.com/soothill/battery-watcher/pkg/logger"
	"github.com/soothill/battery-watcher/pkg/metrics"
	"github.com/soothill/battery-watcher/pkg/sysfs"
)

// Power-supply status strings defined by the kernel.
const (
	StatusDischarging = "Discharging"
	StatusFull        = "Full"
)

// capacityFullEquivalent is the full value assumed for devices that expose
// only a precomputed percentage.
const capacityFullEquivalent = 100

// Snapshot is the aggregate battery state computed by one refresh cycle.
// It is immutable once published.
type Snapshot struct {
	Discharging bool      // true if any battery reported Discharging
	Full        bool      // true only if every battery reported Full
	Level       int       // aggregate charge percent, 0-100, rounded
	EnergyNow   int64     // summed now-equivalent units this cycle
	EnergyFull  int64     // summed full-equivalent units this cycle
	NoData      bool      // true if no battery contributed this cycle
	Taken       time.Time // when the refresh completed
}

// BatterySet watches a fixed set of battery devices and aggregates their
// charge state. Create with Open, refresh with WaitAndRefresh, tear down
// with Close.
type BatterySet struct {
	root    string
	names   []string
	scanner *discovery.Scanner

	watcher *fsnotify.Watcher
	watched int

	wake     chan struct{}
	pumpDone chan struct{}
	watching atomic.Bool
	snapshot atomic.Pointer[Snapshot]

	closeOnce sync.Once
	closeErr  error
}

// Open constructs a BatterySet for a validated, non-empty device list and
// starts watching. The notification endpoint is created atomically: if the
// kernel refuses an inotify instance, Open fails rather than degrading to
// pure polling. Individual watch registrations may still fail; those devices
// lose their dedicated wake source but remain aggregated, and the failure is
// logged.
func Open(root string, names []string) (*BatterySet, error) {
	if len(names) == 0 {
		return nil, apperrors.ErrNoBatteries
	}
	if root == "" {
		root = sysfs.DefaultRoot
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, apperrors.NewWatchError("", err)
	}

	b := &BatterySet{
		root:     root,
		names:    append([]string(nil), names...),
		scanner:  discovery.NewScanner(root),
		watcher:  watcher,
		wake:     make(chan struct{}, 1),
		pumpDone: make(chan struct{}),
	}

	for _, name := range b.names {
		path := sysfs.AttrPath(root, name, "status")
		if addErr := watcher.Add(path); addErr != nil {
			logger.Warn().Err(addErr).Str("device", name).Str("path", path).
				Msg("Cannot watch status file, battery will refresh on timeout only")
			continue
		}
		b.watched++
	}
	metrics.BatteriesWatched.Set(float64(b.watched))

	b.watching.Store(true)
	go b.pump()

	logger.Info().Int("batteries", len(b.names)).Int("watched", b.watched).
		Str("root", root).Msg("Battery set opened")
	return b, nil
}

// Names returns the device names in aggregation order.
func (b *BatterySet) Names() []string {
	return append([]string(nil), b.names...)
}

// Count returns the number of batteries in the set.
func (b *BatterySet) Count() int {
	return len(b.names)
}

// WatchedCount returns how many batteries have an active status watch.
// A value below Count means degraded wake latency, not incorrect data.
func (b *BatterySet) WatchedCount() int {
	return b.watched
}

// pump drains the shared notification endpoint and coalesces every observed
// event into the wake channel. It exits when the watcher is closed.
func (b *BatterySet) pump() {
	defer close(b.pumpDone)
	for {
		select {
		case _, ok := <-b.watcher.Events:
			if !ok || !b.watching.Load() {
				return
			}
			metrics.WakeEventsTotal.Inc()
			b.signal()
		case err, ok := <-b.watcher.Errors:
			if !ok {
				return
			}
			logger.Warn().Err(err).Msg("Watcher error")
		}
	}
}

// signal delivers a coalesced wake. The channel holds at most one pending
// wake; further signals while one is pending are dropped, which is safe
// because refresh re-reads full current state.
func (b *BatterySet) signal() {
	select {
	case b.wake <- struct{}{}:
	default:
	}
}

// WaitAndRefresh blocks until a watched status file changes or the timeout
// elapses, then re-reads every battery and publishes a new snapshot. The
// caller cannot distinguish a wake from a timeout; both paths re-read.
//
// With required=true any unreadable attribute aborts the refresh with a
// ReadError; the surrounding program is expected to treat that as fatal.
// With required=false the failing device is skipped for this cycle and
// whatever it already contributed is kept.
func (b *BatterySet) WaitAndRefresh(ctx context.Context, required bool, timeout time.Duration) error {
	if !b.watching.Load() {
		return apperrors.ErrClosed
	}

	// Devices are assumed homogeneous in reporting scheme; the first
	// battery picks the attribute pair for the whole cycle.
	attrs := b.scanner.Classify(b.names[0])

	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case <-b.wake:
	case <-timer.C:
	case <-ctx.Done():
		return ctx.Err()
	}

	start := time.Now()
	snap := &Snapshot{Full: true}

	for _, name := range b.names {
		status, err := sysfs.ReadAttr(b.root, name, "status")
		if err != nil {
			metrics.AttrReadErrors.Inc()
			if required {
				return apperrors.NewReadError(sysfs.AttrPath(b.root, name, "status"), true, err)
			}
			logger.Debug().Err(err).Str("device", name).Msg("Skipping battery, status unreadable")
			continue
		}

		snap.Discharging = snap.Discharging || status == StatusDischarging
		snap.Full = snap.Full && status == StatusFull

		now, err := sysfs.ReadIntAttr(b.root, name, attrs.Now)
		if err != nil {
			metrics.AttrReadErrors.Inc()
			if required {
				return apperrors.NewReadError(sysfs.AttrPath(b.root, name, attrs.Now), true, err)
			}
			continue
		}

		var full int64 = capacityFullEquivalent
		if attrs.Full != "" {
			full, err = sysfs.ReadIntAttr(b.root, name, attrs.Full)
			if err != nil {
				metrics.AttrReadErrors.Inc()
				if required {
					return apperrors.NewReadError(sysfs.AttrPath(b.root, name, attrs.Full), true, err)
				}
				continue
			}
		}

		snap.EnergyNow += now
		snap.EnergyFull += full
		if full > 0 {
			metrics.DeviceLevel.WithLabelValues(name).Set(math.Round(100 * float64(now) / float64(full)))
		}
	}

	if snap.EnergyFull > 0 {
		snap.Level = int(math.Round(100 * float64(snap.EnergyNow) / float64(snap.EnergyFull)))
	} else {
		// Degenerate cycle: every battery failed its reads. Report an
		// explicit no-data state instead of dividing by zero.
		snap.Level = 0
		snap.NoData = true
		snap.Full = false
		logger.Warn().Msg("Refresh cycle produced no battery data")
	}
	snap.Taken = time.Now()

	b.snapshot.Store(snap)
	metrics.RefreshesTotal.Inc()
	metrics.RefreshDuration.Observe(time.Since(start).Seconds())
	metrics.AggregateLevel.Set(float64(snap.Level))
	if snap.Discharging {
		metrics.Discharging.Set(1)
	} else {
		metrics.Discharging.Set(0)
	}

	logger.Debug().Int("level", snap.Level).Bool("discharging", snap.Discharging).
		Bool("full", snap.Full).Int64("energy_now", snap.EnergyNow).
		Int64("energy_full", snap.EnergyFull).Bool("no_data", snap.NoData).
		Msg("Refreshed battery state")
	return nil
}

// Snapshot returns the most recently published aggregate state, or nil if no
// refresh cycle has completed yet.
func (b *BatterySet) Snapshot() *Snapshot {
	return b.snapshot.Load()
}

// Close tears the set down: stops the pump, closes every watch registration
// and the notification endpoint, and delivers one wake so a refresh call
// still waiting returns promptly. Safe to call more than once and safe when no
// watch registration succeeded.
func (b *BatterySet) Close() error {
	b.closeOnce.Do(func() {
		b.watching.Store(false)
		b.closeErr = b.watcher.Close()
		b.signal()
		<-b.pumpDone
		logger.Info().Msg("Battery set closed")
	})
	return b.closeErr
}
