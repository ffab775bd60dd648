// Package scheduler runs the sampling loop: periodic connectivity checks,
// sampling both channels, durable logging and LED feedback, one cycle at a
// time until the reading budget is spent.
package scheduler

import (
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/ericogr/lightlog/pkg/output"
	"github.com/ericogr/lightlog/pkg/record"
	"github.com/ericogr/lightlog/pkg/status"
)

// BlinkOverhead is reserved from each interval for the write blink.
const BlinkOverhead = 200 * time.Millisecond

type State int

const (
	Connecting State = iota
	Running
	Completed
)

func (s State) String() string {
	switch s {
	case Connecting:
		return "connecting"
	case Running:
		return "running"
	case Completed:
		return "completed"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

type ChannelReader interface {
	Tag() string
	ReadRaw() (uint16, error)
	ReadPercentage() (float64, error)
}

type RecordWriter interface {
	WriteRecord(record.Aggregate) error
	WriteError(timestamp, message string) error
}

type Supervisor interface {
	Setup() error
	EnsureConnected() bool
}

type Blinker interface {
	Blink(count int)
}

type Clock interface {
	Now() time.Time
}

type Options struct {
	SampleInterval    time.Duration
	LEDWriteDelay     time.Duration
	WiFiCheckInterval int
	TotalReadings     int

	Sensors    [2]ChannelReader
	Writer     RecordWriter
	Outputs    []output.Output
	Supervisor Supervisor
	Signal     Blinker
	Clock      Clock
	// Sleep defaults to time.Sleep.
	Sleep  func(time.Duration)
	Logger *zap.Logger
}

// Scheduler owns the run state. It is not safe for concurrent use; Run is
// the only thread of control.
type Scheduler struct {
	opts   Options
	state  State
	taken  int
	// time spent in the output mirrors during the last cycle
	mirrorTook time.Duration
	logger     *zap.Logger
}

// TotalReadings is the number of successful cycles in a run of
// runtimeMinutes at one reading every intervalSeconds.
func TotalReadings(runtimeMinutes, intervalSeconds int) int {
	if intervalSeconds <= 0 {
		return 0
	}
	return runtimeMinutes * 60 / intervalSeconds
}

func New(opts Options) *Scheduler {
	if opts.Clock == nil {
		opts.Clock = systemClock{}
	}
	if opts.Sleep == nil {
		opts.Sleep = time.Sleep
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.WiFiCheckInterval <= 0 {
		opts.WiFiCheckInterval = 1
	}
	return &Scheduler{opts: opts, state: Connecting, logger: opts.Logger}
}

func (s *Scheduler) State() State { return s.state }

func (s *Scheduler) ReadingsTaken() int { return s.taken }

func (s *Scheduler) TotalReadings() int { return s.opts.TotalReadings }

// Run blocks until TotalReadings cycles have succeeded. Setup failures and
// cycle faults are logged and never end the run.
func (s *Scheduler) Run() {
	s.state = Connecting
	if err := s.opts.Supervisor.Setup(); err != nil {
		s.logger.Error("setup error, continuing without network", zap.Error(err))
	}

	s.state = Running
	s.logger.Info("starting data collection",
		zap.Int("total_readings", s.opts.TotalReadings),
		zap.Duration("interval", s.opts.SampleInterval),
	)

	for s.taken < s.opts.TotalReadings {
		if err := s.cycle(); err != nil {
			s.fault(err)
			continue
		}
		if rest := s.remaining(); rest > 0 {
			s.opts.Sleep(rest)
		}
	}

	s.state = Completed
	s.logger.Info("data collection complete", zap.Int("readings", s.taken))
	s.opts.Signal.Blink(status.RunComplete)
}

// cycle performs one sample-log-signal pass. The reading counter advances
// only when every step succeeded.
func (s *Scheduler) cycle() (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	s.mirrorTook = 0

	if s.taken%s.opts.WiFiCheckInterval == 0 {
		s.opts.Supervisor.EnsureConnected()
	}

	first, second := s.opts.Sensors[0], s.opts.Sensors[1]

	// raw and percentage are separate conversions per channel
	raw1, err := first.ReadRaw()
	if err != nil {
		return fmt.Errorf("read %s: %w", first.Tag(), err)
	}
	raw2, err := second.ReadRaw()
	if err != nil {
		return fmt.Errorf("read %s: %w", second.Tag(), err)
	}
	pct1, err := first.ReadPercentage()
	if err != nil {
		return fmt.Errorf("read %s percentage: %w", first.Tag(), err)
	}
	pct2, err := second.ReadPercentage()
	if err != nil {
		return fmt.Errorf("read %s percentage: %w", second.Tag(), err)
	}

	agg := record.NewAggregate(
		record.FormatTimestamp(s.opts.Clock.Now()),
		record.Reading{Tag: first.Tag(), Raw: raw1, Percentage: pct1},
		record.Reading{Tag: second.Tag(), Raw: raw2, Percentage: pct2},
	)
	if err := s.opts.Writer.WriteRecord(agg); err != nil {
		return fmt.Errorf("write record: %w", err)
	}

	mirrorStart := s.opts.Clock.Now()
	s.mirror(agg, output.Progress{Taken: s.taken + 1, Total: s.opts.TotalReadings})
	s.mirrorTook = s.opts.Clock.Now().Sub(mirrorStart)

	s.opts.Sleep(s.opts.LEDWriteDelay)
	s.opts.Signal.Blink(status.CycleWritten)

	s.taken++
	return nil
}

func (s *Scheduler) mirror(agg record.Aggregate, p output.Progress) {
	s.logger.Debug("reading written",
		zap.Int("reading", p.Taken),
		zap.Int("total", p.Total),
		zap.String("timestamp", agg.Timestamp),
		zap.Float64("pct_avg", agg.PercentageAverage),
	)
	for _, o := range s.opts.Outputs {
		if err := publish(o, agg, p); err != nil {
			s.logger.Warn("output publish failed", zap.Error(err))
		}
	}
}

// publish recovers an output panic; the record is already on disk.
func publish(o output.Output, agg record.Aggregate, p output.Progress) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("output panic: %v", r)
		}
	}()
	return o.Publish(agg, p)
}

func (s *Scheduler) fault(err error) {
	s.logger.Error("error during reading", zap.Int("readings_taken", s.taken), zap.Error(err))
	ts := record.FormatTimestamp(s.opts.Clock.Now())
	if werr := s.opts.Writer.WriteError(ts, err.Error()); werr != nil {
		s.logger.Error("write error record failed", zap.Error(werr))
	}
	s.opts.Sleep(s.opts.SampleInterval)
}

// remaining is the post-cycle sleep. Mirror time is deducted so slow outputs
// do not stretch the cycle period; a clock step (e.g. an NTP resync) that
// makes the measurement negative is ignored.
func (s *Scheduler) remaining() time.Duration {
	rest := s.opts.SampleInterval - s.opts.LEDWriteDelay - BlinkOverhead
	if s.mirrorTook > 0 {
		rest -= s.mirrorTook
	}
	return rest
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }
