package sensor

import (
	"fmt"
	"time"

	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/host/v3"

	"github.com/ericogr/lightlog/pkg/config"
)

const (
	pointerConv   = 0x00
	pointerConfig = 0x01
	// largest positive single-ended conversion result
	fullScaleCount = 32767
)

// ADS1115 owns the I²C device. Each analog input is exposed as a Source via
// Input.
type ADS1115 struct {
	dev        *i2c.Dev
	bus        i2c.BusCloser
	sampleRate int
}

func NewADS1115(cfg config.ADS1115Config) (*ADS1115, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("host init: %w", err)
	}
	bus, err := i2creg.Open(cfg.I2CBus)
	if err != nil {
		return nil, fmt.Errorf("open i2c: %w", err)
	}
	dev := &i2c.Dev{Addr: uint16(cfg.I2CAddress), Bus: bus}
	return &ADS1115{dev: dev, bus: bus, sampleRate: cfg.SampleRate}, nil
}

func (a *ADS1115) Close() error {
	if a.bus != nil {
		return a.bus.Close()
	}
	return nil
}

// Input returns a Source reading the given single-ended input (0-3).
func (a *ADS1115) Input(channel int) (Source, error) {
	if _, _, err := configForChannel(channel, a.sampleRate); err != nil {
		return nil, err
	}
	return &ads1115Input{adc: a, channel: channel}, nil
}

type ads1115Input struct {
	adc     *ADS1115
	channel int
}

func (in *ads1115Input) Sample() (uint16, error) {
	raw, err := in.adc.convert(in.channel)
	if err != nil {
		return 0, err
	}
	return scaleToUint16(raw), nil
}

func (a *ADS1115) convert(channel int) (int16, error) {
	msb, lsb, err := configForChannel(channel, a.sampleRate)
	if err != nil {
		return 0, err
	}
	if err := a.dev.Tx([]byte{pointerConfig, msb, lsb}, nil); err != nil {
		return 0, fmt.Errorf("write config: %w", err)
	}
	// wait for conversion (simple sleep)
	delayMs := int(1000.0/float64(a.sampleRate)) + 2
	time.Sleep(time.Duration(delayMs) * time.Millisecond)
	readBuf := make([]byte, 2)
	if err := a.dev.Tx([]byte{pointerConv}, readBuf); err != nil {
		return 0, fmt.Errorf("read conv: %w", err)
	}
	return int16(readBuf[0])<<8 | int16(readBuf[1]), nil
}

// scaleToUint16 maps a single-ended conversion onto the 0..MaxValue range.
// Small negative results from offset error clamp to zero.
func scaleToUint16(raw int16) uint16 {
	if raw <= 0 {
		return 0
	}
	return uint16(int(raw) * MaxValue / fullScaleCount)
}

func configForChannel(channel, sampleRate int) (byte, byte, error) {
	var mux byte
	switch channel {
	case 0:
		mux = 0x4
	case 1:
		mux = 0x5
	case 2:
		mux = 0x6
	case 3:
		mux = 0x7
	default:
		return 0, 0, fmt.Errorf("invalid channel %d", channel)
	}
	// PGA: use ±4.096V -> bits 001
	pga := byte(0x1)
	var dr byte
	switch sampleRate {
	case 8:
		dr = 0x0
	case 16:
		dr = 0x1
	case 32:
		dr = 0x2
	case 64:
		dr = 0x3
	case 128:
		dr = 0x4
	case 250:
		dr = 0x5
	case 475:
		dr = 0x6
	case 860:
		dr = 0x7
	default:
		dr = 0x4
	}
	var cfg uint16 = 0x8000 // OS = 1 (start single conversion)
	cfg |= uint16(mux) << 12
	cfg |= uint16(pga) << 9
	cfg |= 1 << 8 // single-shot mode
	cfg |= uint16(dr) << 5
	// comparator disabled (bits 1:0 = 11)
	cfg |= 0x3
	return byte(cfg >> 8), byte(cfg & 0xFF), nil
}
