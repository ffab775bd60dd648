// Package status drives the indicator LED in blink patterns that encode
// agent outcomes.
package status

import (
	"time"

	"go.uber.org/zap"
)

// Blink counts for each reported event.
const (
	ConnectOK       = 5
	SetupError      = 2
	Reconnected     = 3
	ReconnectFailed = 2
	CycleWritten    = 1
	RunComplete     = 3
)

// DefaultOnDuration is how long the LED stays on (and then off) per blink.
const DefaultOnDuration = 100 * time.Millisecond

// Pin is a binary output.
type Pin interface {
	Set(on bool) error
}

// Signal blinks a Pin. All calls block for the whole pattern.
type Signal struct {
	pin    Pin
	on     time.Duration
	sleep  func(time.Duration)
	logger *zap.Logger
}

// NewSignal returns a Signal using time.Sleep between transitions. A zero
// onDuration falls back to DefaultOnDuration.
func NewSignal(pin Pin, onDuration time.Duration, logger *zap.Logger) *Signal {
	return NewSignalWithSleep(pin, onDuration, time.Sleep, logger)
}

func NewSignalWithSleep(pin Pin, onDuration time.Duration, sleep func(time.Duration), logger *zap.Logger) *Signal {
	if onDuration <= 0 {
		onDuration = DefaultOnDuration
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Signal{pin: pin, on: onDuration, sleep: sleep, logger: logger}
}

// Blink emits count blinks with the configured on duration.
func (s *Signal) Blink(count int) {
	s.BlinkFor(count, s.on)
}

// BlinkFor sets the pin high for on, then low for on, count times.
func (s *Signal) BlinkFor(count int, on time.Duration) {
	for i := 0; i < count; i++ {
		s.set(true)
		s.sleep(on)
		s.set(false)
		s.sleep(on)
	}
}

// output failures are not reported upward; the pattern keeps going
func (s *Signal) set(on bool) {
	if err := s.pin.Set(on); err != nil {
		s.logger.Warn("status pin write failed", zap.Bool("on", on), zap.Error(err))
	}
}
