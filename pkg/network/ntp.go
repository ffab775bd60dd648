package network

import (
	"fmt"
	"time"

	"github.com/beevik/ntp"
)

// NTPClock is a wall clock corrected by the offset measured at the last
// successful sync. The system clock itself is left alone.
type NTPClock struct {
	server  string
	timeout time.Duration
	offset  time.Duration
	query   func(host string, opt ntp.QueryOptions) (*ntp.Response, error)
	now     func() time.Time
}

func NewNTPClock(server string, timeout time.Duration) *NTPClock {
	return &NTPClock{server: server, timeout: timeout, query: ntp.QueryWithOptions, now: time.Now}
}

func (c *NTPClock) Now() time.Time {
	return c.now().Add(c.offset)
}

// Offset is the correction applied to the local clock.
func (c *NTPClock) Offset() time.Duration {
	return c.offset
}

func (c *NTPClock) SyncClock() error {
	resp, err := c.query(c.server, ntp.QueryOptions{Timeout: c.timeout})
	if err != nil {
		return fmt.Errorf("ntp query %s: %w", c.server, err)
	}
	if err := resp.Validate(); err != nil {
		return fmt.Errorf("ntp response from %s: %w", c.server, err)
	}
	c.offset = resp.ClockOffset
	return nil
}
