package status

import (
	"fmt"

	"go.uber.org/zap"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/host/v3"
)

// GPIOPin drives an LED wired to a host GPIO line.
type GPIOPin struct {
	pin gpio.PinIO
}

// NewGPIOPin opens the named pin (e.g. "GPIO17") and drives it low.
func NewGPIOPin(name string) (*GPIOPin, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("host init: %w", err)
	}
	p := gpioreg.ByName(name)
	if p == nil {
		return nil, fmt.Errorf("gpio pin %q not found", name)
	}
	if err := p.Out(gpio.Low); err != nil {
		return nil, fmt.Errorf("gpio %s out: %w", name, err)
	}
	return &GPIOPin{pin: p}, nil
}

func (g *GPIOPin) Set(on bool) error {
	return g.pin.Out(gpio.Level(on))
}

// LogPin stands in for an LED on hosts without one.
type LogPin struct {
	logger *zap.Logger
}

func NewLogPin(logger *zap.Logger) *LogPin {
	return &LogPin{logger: logger}
}

func (l *LogPin) Set(on bool) error {
	l.logger.Debug("status led", zap.Bool("on", on))
	return nil
}
