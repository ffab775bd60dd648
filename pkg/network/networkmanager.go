package network

import (
	"bytes"
	"fmt"
	"os/exec"
	"time"

	"github.com/Wifx/gonetworkmanager/v2"
	"go.uber.org/zap"
)

const (
	activationTimeout = 30 * time.Second
	activationPoll    = 500 * time.Millisecond
)

// Settings is a NetworkManager connection profile keyed by setting name.
type Settings map[string]map[string]interface{}

// Backend is the part of NetworkManager the link drives.
type Backend interface {
	DeviceState(iface string) (gonetworkmanager.NmDeviceState, error)
	Activate(iface string, settings Settings) error
}

// Runner executes a command and returns its combined output.
type Runner func(name string, args ...string) ([]byte, error)

func execRunner(name string, args ...string) ([]byte, error) {
	return exec.Command(name, args...).CombinedOutput()
}

// NMLink manages a WiFi interface through NetworkManager over D-Bus.
type NMLink struct {
	iface   string
	nm      Backend
	run     Runner
	sleep   func(time.Duration)
	timeout time.Duration
	logger  *zap.Logger
}

func NewNMLink(iface string, logger *zap.Logger) *NMLink {
	return newNMLink(iface, &dbusBackend{}, execRunner, time.Sleep, logger)
}

func newNMLink(iface string, nm Backend, run Runner, sleep func(time.Duration), logger *zap.Logger) *NMLink {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NMLink{iface: iface, nm: nm, run: run, sleep: sleep, timeout: activationTimeout, logger: logger}
}

// Connect activates a profile for ssid and waits until the device reports
// activated.
func (l *NMLink) Connect(ssid, password, region string) error {
	if region != "" {
		// regulatory domain is advisory; the connect still goes ahead
		if out, err := l.run("iw", "reg", "set", region); err != nil {
			l.logger.Warn("set wifi region failed", zap.String("region", region), zap.Error(err), zap.ByteString("output", bytes.TrimSpace(out)))
		}
	}
	if err := l.nm.Activate(l.iface, wirelessSettings(ssid, password)); err != nil {
		return fmt.Errorf("activate %s on %s: %w", ssid, l.iface, err)
	}
	for waited := time.Duration(0); ; waited += activationPoll {
		state, err := l.nm.DeviceState(l.iface)
		if err != nil {
			return fmt.Errorf("device %s state: %w", l.iface, err)
		}
		switch state {
		case gonetworkmanager.NmDeviceStateActivated:
			return nil
		case gonetworkmanager.NmDeviceStateFailed:
			return fmt.Errorf("%s failed to join %s", l.iface, ssid)
		}
		if waited >= l.timeout {
			return fmt.Errorf("%s not connected after joining %s (state %v)", l.iface, ssid, state)
		}
		l.sleep(activationPoll)
	}
}

func (l *NMLink) IsConnected() bool {
	state, err := l.nm.DeviceState(l.iface)
	if err != nil {
		l.logger.Debug("device state query failed", zap.String("iface", l.iface), zap.Error(err))
		return false
	}
	return state == gonetworkmanager.NmDeviceStateActivated
}

func wirelessSettings(ssid, password string) Settings {
	s := Settings{
		"connection": {
			"id":          ssid,
			"type":        "802-11-wireless",
			"autoconnect": true,
		},
		"802-11-wireless": {
			"ssid": []byte(ssid),
			"mode": "infrastructure",
		},
		"ipv4": {"method": "auto"},
		"ipv6": {"method": "auto"},
	}
	if password != "" {
		s["802-11-wireless-security"] = map[string]interface{}{
			"key-mgmt": "wpa-psk",
			"psk":      password,
		}
	}
	return s
}

// dbusBackend opens the system bus on first use, so a host booting without
// NetworkManager can still start logging.
type dbusBackend struct {
	nm gonetworkmanager.NetworkManager
}

func (b *dbusBackend) manager() (gonetworkmanager.NetworkManager, error) {
	if b.nm == nil {
		nm, err := gonetworkmanager.NewNetworkManager()
		if err != nil {
			return nil, fmt.Errorf("networkmanager: %w", err)
		}
		b.nm = nm
	}
	return b.nm, nil
}

func (b *dbusBackend) device(iface string) (gonetworkmanager.Device, error) {
	nm, err := b.manager()
	if err != nil {
		return nil, err
	}
	dev, err := nm.GetDeviceByIpIface(iface)
	if err != nil {
		return nil, fmt.Errorf("device %s: %w", iface, err)
	}
	return dev, nil
}

func (b *dbusBackend) DeviceState(iface string) (gonetworkmanager.NmDeviceState, error) {
	dev, err := b.device(iface)
	if err != nil {
		return gonetworkmanager.NmDeviceStateUnknown, err
	}
	return dev.GetPropertyState()
}

func (b *dbusBackend) Activate(iface string, settings Settings) error {
	dev, err := b.device(iface)
	if err != nil {
		return err
	}
	_, err = b.nm.AddAndActivateConnection(map[string]map[string]interface{}(settings), dev)
	return err
}

// StaticLink is a link that is always up, for wired or externally managed
// hosts.
type StaticLink struct{}

func (StaticLink) Connect(string, string, string) error { return nil }

func (StaticLink) IsConnected() bool { return true }
