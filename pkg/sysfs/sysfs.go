// Copyright (c) 2025 Darren Soothill
// Licensed under the MIT License

// Package sysfs provides small helpers for reading power-supply attribute
// files. Attribute files hold a single token followed by a newline; readers
// trim whitespace and parse in one step so callers deal only with values.
package sysfs

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// DefaultRoot is the kernel power-supply subsystem directory.
const DefaultRoot = "/sys/class/power_supply"

// AttrPath returns the path of an attribute file for a device under root.
func AttrPath(root, device, attr string) string {
	return filepath.Join(root, device, attr)
}

// ReadAttr reads a text attribute and returns its trimmed value.
func ReadAttr(root, device, attr string) (string, error) {
	data, err := os.ReadFile(AttrPath(root, device, attr)) // #nosec G304 -- path is built from a fixed root
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(data)), nil
}

// ReadIntAttr reads a numeric attribute and parses it as a base-10 integer.
func ReadIntAttr(root, device, attr string) (int64, error) {
	val, err := ReadAttr(root, device, attr)
	if err != nil {
		return 0, err
	}
	n, err := strconv.ParseInt(val, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse %s: %w", AttrPath(root, device, attr), err)
	}
	return n, nil
}

// Exists reports whether an attribute file is present for a device.
func Exists(root, device, attr string) bool {
	_, err := os.Stat(AttrPath(root, device, attr))
	return err == nil
}
