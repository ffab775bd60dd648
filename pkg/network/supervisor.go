// Package network keeps the wireless link up and the wall clock in sync.
package network

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/ericogr/lightlog/pkg/status"
)

// Link is the host's wireless connection.
type Link interface {
	Connect(ssid, password, region string) error
	IsConnected() bool
}

// ClockSyncer resynchronises the wall clock from the network.
type ClockSyncer interface {
	SyncClock() error
}

// Blinker reports outcomes on the status LED.
type Blinker interface {
	Blink(count int)
}

type Credentials struct {
	SSID     string
	Password string
	Country  string
}

// Supervisor owns reconnection and clock resync. It never caches link state:
// every call asks the Link.
type Supervisor struct {
	link   Link
	clock  ClockSyncer
	creds  Credentials
	signal Blinker
	logger *zap.Logger
}

func NewSupervisor(link Link, clock ClockSyncer, creds Credentials, signal Blinker, logger *zap.Logger) *Supervisor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Supervisor{link: link, clock: clock, creds: creds, signal: signal, logger: logger}
}

// Setup performs the initial connect and clock sync. A connect success is
// signalled before the sync is attempted; any failure is signalled with the
// setup error pattern and returned for logging only.
func (s *Supervisor) Setup() error {
	s.logger.Info("connecting to wifi", zap.String("ssid", s.creds.SSID))
	if err := s.link.Connect(s.creds.SSID, s.creds.Password, s.creds.Country); err != nil {
		s.signal.Blink(status.SetupError)
		return fmt.Errorf("wifi connect: %w", err)
	}
	s.signal.Blink(status.ConnectOK)

	s.logger.Info("syncing time")
	if err := s.clock.SyncClock(); err != nil {
		s.signal.Blink(status.SetupError)
		return fmt.Errorf("clock sync: %w", err)
	}
	return nil
}

// EnsureConnected returns true at once when the link is up. Otherwise it
// reconnects and resyncs the clock; a failed resync does not fail the
// reconnection.
func (s *Supervisor) EnsureConnected() bool {
	if s.link.IsConnected() {
		return true
	}

	s.logger.Warn("wifi disconnected, attempting to reconnect")
	if err := s.link.Connect(s.creds.SSID, s.creds.Password, s.creds.Country); err != nil {
		s.logger.Error("reconnection failed", zap.Error(err))
		s.signal.Blink(status.ReconnectFailed)
		return false
	}
	s.logger.Info("wifi reconnected")

	if err := s.clock.SyncClock(); err != nil {
		s.logger.Warn("time resync failed", zap.Error(err))
	} else {
		s.logger.Info("time resynced")
	}
	s.signal.Blink(status.Reconnected)
	return true
}
