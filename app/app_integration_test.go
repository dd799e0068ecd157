// Copyright (c) 2025 Darren Soothill
// Licensed under the MIT License

package app_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/soothill/battery-watcher/config"
	"github.com/soothill/battery-watcher/discovery"
	"github.com/soothill/battery-watcher/monitoring"
	"github.com/soothill/battery-watcher/pkg/notifications"
	"github.com/stretchr/testify/suite"
)

type WatcherIntegrationTestSuite struct {
	suite.Suite
	root string
}

func TestWatcherIntegrationTestSuite(t *testing.T) {
	suite.Run(t, new(WatcherIntegrationTestSuite))
}

func (s *WatcherIntegrationTestSuite) SetupTest() {
	s.root = s.T().TempDir()
	s.writeBattery("BAT0", "Discharging", "50", "100")
	s.writeBattery("BAT1", "Full", "80", "100")
	s.writeDevice("AC", map[string]string{
		"type":   "Mains\n",
		"online": "1\n",
	})
}

func (s *WatcherIntegrationTestSuite) writeBattery(name, status, now, full string) {
	s.writeDevice(name, map[string]string{
		"type":        "Battery\n",
		"status":      status + "\n",
		"charge_now":  now + "\n",
		"charge_full": full + "\n",
	})
}

func (s *WatcherIntegrationTestSuite) writeDevice(name string, attrs map[string]string) {
	dir := filepath.Join(s.root, name)
	s.Require().NoError(os.MkdirAll(dir, 0o755))
	for attr, value := range attrs {
		s.Require().NoError(os.WriteFile(filepath.Join(dir, attr), []byte(value), 0o644))
	}
}

// TestDiscoverAndRefresh walks the full pipeline: enumerate the fixture tree,
// open the battery set, and verify the aggregate a refresh cycle publishes.
func (s *WatcherIntegrationTestSuite) TestDiscoverAndRefresh() {
	scanner := discovery.NewScanner(s.root)
	names, err := scanner.Discover()
	s.Require().NoError(err)
	s.Equal([]string{"BAT0", "BAT1"}, names)
	s.Equal(-1, scanner.Validate(names))

	batteries, err := monitoring.Open(s.root, names)
	s.Require().NoError(err)
	defer func() {
		s.NoError(batteries.Close())
	}()
	s.Equal(2, batteries.Count())
	s.Equal(2, batteries.WatchedCount())

	s.Require().NoError(batteries.WaitAndRefresh(context.Background(), true, 50*time.Millisecond))

	snap := batteries.Snapshot()
	s.Require().NotNil(snap)
	s.Equal(65, snap.Level)
	s.Equal(int64(130), snap.EnergyNow)
	s.Equal(int64(200), snap.EnergyFull)
	s.True(snap.Discharging)
	s.False(snap.Full)
	s.False(snap.NoData)
}

// TestStatusChangeWakesRefresh verifies the kernel-notification path end to
// end: a status file write wakes a blocked refresh long before its timeout.
func (s *WatcherIntegrationTestSuite) TestStatusChangeWakesRefresh() {
	batteries, err := monitoring.Open(s.root, []string{"BAT0", "BAT1"})
	s.Require().NoError(err)
	defer func() {
		s.NoError(batteries.Close())
	}()

	go func() {
		time.Sleep(50 * time.Millisecond)
		_ = os.WriteFile(filepath.Join(s.root, "BAT0", "status"), []byte("Charging\n"), 0o644)
	}()

	start := time.Now()
	s.Require().NoError(batteries.WaitAndRefresh(context.Background(), true, 30*time.Second))
	s.Less(time.Since(start), 5*time.Second)

	snap := batteries.Snapshot()
	s.Require().NotNil(snap)
	s.False(snap.Discharging)
}

// TestWebhookAlertDelivery verifies an alert flows from a snapshot through
// the notifier to an HTTP endpoint with the expected payload.
func (s *WatcherIntegrationTestSuite) TestWebhookAlertDelivery() {
	received := make(chan notifications.WebhookPayload, 1)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var payload notifications.WebhookPayload
		s.Require().NoError(json.NewDecoder(r.Body).Decode(&payload))
		received <- payload
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	notifier := notifications.NewWebhookNotifier(server.URL)
	s.Require().True(notifier.IsEnabled())

	err := notifier.SendAlert(context.Background(), notifications.LevelWarning,
		"Battery low", "Battery level is 14%")
	s.Require().NoError(err)

	select {
	case payload := <-received:
		s.Equal(notifications.LevelWarning, payload.Level)
		s.Equal("Battery low", payload.Title)
	case <-time.After(5 * time.Second):
		s.Fail("webhook endpoint never received the alert")
	}
}

// TestPartialConfigGetsDefaults loads a config file that sets only a couple
// of fields and verifies defaults fill in the rest.
func (s *WatcherIntegrationTestSuite) TestPartialConfigGetsDefaults() {
	path := filepath.Join(s.T().TempDir(), "config.yaml")
	content := `
battery:
  poll_interval: 30s
alerts:
  warning_level: 20
`
	s.Require().NoError(os.WriteFile(path, []byte(content), 0o600))

	cfg, err := config.Load(path)
	s.Require().NoError(err)
	s.Equal(30*time.Second, cfg.Battery.PollInterval)
	s.Equal(20, cfg.Alerts.WarningLevel)
	s.Equal(config.DefaultCriticalLevel, cfg.Alerts.CriticalLevel)
}
