package network

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/Wifx/gonetworkmanager/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeBackend struct {
	states      []gonetworkmanager.NmDeviceState
	stateErr    error
	activateErr error
	activated   []Settings
	ifaces      []string
}

func (b *fakeBackend) DeviceState(iface string) (gonetworkmanager.NmDeviceState, error) {
	b.ifaces = append(b.ifaces, iface)
	if b.stateErr != nil {
		return gonetworkmanager.NmDeviceStateUnknown, b.stateErr
	}
	s := b.states[0]
	if len(b.states) > 1 {
		b.states = b.states[1:]
	}
	return s, nil
}

func (b *fakeBackend) Activate(iface string, settings Settings) error {
	b.ifaces = append(b.ifaces, iface)
	b.activated = append(b.activated, settings)
	return b.activateErr
}

type commandLog struct {
	calls []string
	err   error
}

func (c *commandLog) run(name string, args ...string) ([]byte, error) {
	c.calls = append(c.calls, strings.Join(append([]string{name}, args...), " "))
	return nil, c.err
}

func newTestLink(b *fakeBackend, cmds *commandLog, slept *[]time.Duration) *NMLink {
	return newNMLink("wlan0", b, cmds.run, func(d time.Duration) { *slept = append(*slept, d) }, nil)
}

func TestNMLinkConnect(t *testing.T) {
	b := &fakeBackend{states: []gonetworkmanager.NmDeviceState{
		gonetworkmanager.NmDeviceStatePrepare,
		gonetworkmanager.NmDeviceStateConfig,
		gonetworkmanager.NmDeviceStateActivated,
	}}
	cmds := &commandLog{}
	var slept []time.Duration
	l := newTestLink(b, cmds, &slept)

	require.NoError(t, l.Connect("lab", "pw", "GB"))
	assert.Equal(t, []string{"iw reg set GB"}, cmds.calls)
	assert.Equal(t, []time.Duration{activationPoll, activationPoll}, slept)

	require.Len(t, b.activated, 1)
	s := b.activated[0]
	assert.Equal(t, []byte("lab"), s["802-11-wireless"]["ssid"])
	assert.Equal(t, "lab", s["connection"]["id"])
	assert.Equal(t, "wpa-psk", s["802-11-wireless-security"]["key-mgmt"])
	assert.Equal(t, "pw", s["802-11-wireless-security"]["psk"])
	for _, iface := range b.ifaces {
		assert.Equal(t, "wlan0", iface)
	}
}

func TestNMLinkConnectOpenNetworkNoRegion(t *testing.T) {
	b := &fakeBackend{states: []gonetworkmanager.NmDeviceState{gonetworkmanager.NmDeviceStateActivated}}
	cmds := &commandLog{}
	var slept []time.Duration

	require.NoError(t, newTestLink(b, cmds, &slept).Connect("cafe", "", ""))
	assert.Empty(t, cmds.calls)
	assert.Empty(t, slept)
	_, secured := b.activated[0]["802-11-wireless-security"]
	assert.False(t, secured)
}

func TestNMLinkConnectActivationError(t *testing.T) {
	b := &fakeBackend{activateErr: errors.New("No suitable device found")}
	var slept []time.Duration

	err := newTestLink(b, &commandLog{}, &slept).Connect("lab", "pw", "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "No suitable device found")
}

func TestNMLinkConnectDeviceFailed(t *testing.T) {
	b := &fakeBackend{states: []gonetworkmanager.NmDeviceState{
		gonetworkmanager.NmDeviceStateConfig,
		gonetworkmanager.NmDeviceStateFailed,
	}}
	var slept []time.Duration

	assert.Error(t, newTestLink(b, &commandLog{}, &slept).Connect("lab", "wrong", ""))
}

func TestNMLinkConnectTimesOut(t *testing.T) {
	b := &fakeBackend{states: []gonetworkmanager.NmDeviceState{gonetworkmanager.NmDeviceStateConfig}}
	var slept []time.Duration
	l := newTestLink(b, &commandLog{}, &slept)
	l.timeout = 2 * activationPoll

	assert.Error(t, l.Connect("lab", "pw", ""))
	assert.Len(t, slept, 2)
}

func TestNMLinkRegionFailureIsNotFatal(t *testing.T) {
	b := &fakeBackend{states: []gonetworkmanager.NmDeviceState{gonetworkmanager.NmDeviceStateActivated}}
	var slept []time.Duration

	assert.NoError(t, newTestLink(b, &commandLog{err: errors.New("not permitted")}, &slept).Connect("lab", "pw", "GB"))
}

func TestNMLinkIsConnected(t *testing.T) {
	var slept []time.Duration
	up := &fakeBackend{states: []gonetworkmanager.NmDeviceState{gonetworkmanager.NmDeviceStateActivated}}
	assert.True(t, newTestLink(up, &commandLog{}, &slept).IsConnected())

	down := &fakeBackend{states: []gonetworkmanager.NmDeviceState{gonetworkmanager.NmDeviceStateDisconnected}}
	assert.False(t, newTestLink(down, &commandLog{}, &slept).IsConnected())

	broken := &fakeBackend{stateErr: errors.New("no system bus")}
	assert.False(t, newTestLink(broken, &commandLog{}, &slept).IsConnected())
}

func TestStaticLink(t *testing.T) {
	var l Link = StaticLink{}
	assert.True(t, l.IsConnected())
	assert.NoError(t, l.Connect("x", "y", "z"))
}
