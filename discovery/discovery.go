// Copyright (c) 2025 Darren Soothill
// Licensed under the MIT License

// Package discovery enumerates and classifies battery devices in the kernel
// power-supply subsystem.
//
// Every power supply appears as a directory of plain attribute files under
// /sys/class/power_supply. A device qualifies as a battery when its "type"
// attribute reads exactly "Battery" and its charge can be expressed as a
// ratio of a present value to a full value.
//
// # Attribute Schemes
//
// Batteries report charge in one of three schemes, probed in order:
//   - charge_now / charge_full (µAh)
//   - energy_now / energy_full (µWh)
//   - capacity (precomputed integer percent, no full attribute)
//
// Capacity-only devices are treated as if their full value were 100, so the
// aggregation math is uniform across schemes.
//
// # Example Usage
//
//	scanner := discovery.NewScanner(sysfs.DefaultRoot)
//
//	names, err := scanner.Discover()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	for _, name := range names {
//	    fmt.Printf("found battery: %s\n", name)
//	}
package discovery

import (
	"os"

	"github.com/soothill/battery-watcher/pkg/logger"
	"github.com/soothill/battery-watcher/pkg/sysfs"
)

// Attribute scheme kinds, in probe preference order.
const (
	Charge Kind = iota
	Energy
	CapacityOnly
)

// Kind identifies which attribute scheme a battery reports with.
type Kind int

func (k Kind) String() string {
	switch k {
	case Charge:
		return "charge"
	case Energy:
		return "energy"
	case CapacityOnly:
		return "capacity"
	default:
		return "unknown"
	}
}

// AttrPair names the sysfs attributes used to read a battery's charge ratio.
// Full is empty for capacity-only devices; their full-equivalent unit is 100.
type AttrPair struct {
	Kind Kind
	Now  string
	Full string
}

// Scanner probes and enumerates battery devices under a power-supply root.
// The root is parameterized so tests can point it at a fixture directory.
type Scanner struct {
	root string
}

// NewScanner creates a scanner for the given power-supply subsystem root.
func NewScanner(root string) *Scanner {
	if root == "" {
		root = sysfs.DefaultRoot
	}
	return &Scanner{root: root}
}

// Root returns the power-supply subsystem root this scanner probes.
func (s *Scanner) Root() string {
	return s.root
}

// Classify determines which attribute scheme a device exposes. Preference
// order is charge_now/charge_full, then energy_now/energy_full, then
// capacity. Classify never fails; a device with none of the attributes is
// reported as capacity-only and weeded out by IsBattery.
func (s *Scanner) Classify(name string) AttrPair {
	if sysfs.Exists(s.root, name, "charge_now") {
		return AttrPair{Kind: Charge, Now: "charge_now", Full: "charge_full"}
	}
	if sysfs.Exists(s.root, name, "energy_now") {
		return AttrPair{Kind: Energy, Now: "energy_now", Full: "energy_full"}
	}
	return AttrPair{Kind: CapacityOnly, Now: "capacity"}
}

// IsBattery reports whether a device qualifies as a battery: its type
// attribute must read exactly "Battery" and the now-equivalent attribute of
// its scheme must parse to a non-negative integer. Missing or unreadable
// files exclude the device, they are never an error at this layer.
func (s *Scanner) IsBattery(name string) bool {
	devType, err := sysfs.ReadAttr(s.root, name, "type")
	if err != nil || devType != "Battery" {
		return false
	}

	attrs := s.Classify(name)
	now, err := sysfs.ReadIntAttr(s.root, name, attrs.Now)
	if err != nil {
		return false
	}
	return now >= 0
}

// Discover lists all entries in the power-supply subsystem and returns the
// names of those that qualify as batteries, in directory order. An empty
// result is valid: a host without batteries is not an error here.
func (s *Scanner) Discover() ([]string, error) {
	entries, err := os.ReadDir(s.root)
	if err != nil {
		return nil, err
	}

	var names []string
	for _, entry := range entries {
		name := entry.Name()
		if s.IsBattery(name) {
			names = append(names, name)
			logger.Debug().Str("device", name).
				Str("scheme", s.Classify(name).Kind.String()).
				Msg("Found battery device")
		}
	}
	return names, nil
}

// Validate re-probes a caller-supplied device list and returns the index of
// the first device that is not a battery, or -1 if all are valid. Used to
// fail fast on operator-provided names before any watches are registered.
func (s *Scanner) Validate(names []string) int {
	for i, name := range names {
		if !s.IsBattery(name) {
			return i
		}
	}
	return -1
}
