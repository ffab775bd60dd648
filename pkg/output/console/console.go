package console

import (
	"fmt"
	"io"
	"os"

	"github.com/ericogr/lightlog/pkg/output"
	"github.com/ericogr/lightlog/pkg/record"
)

// ConsoleOutput prints a one-line progress summary per record.
type ConsoleOutput struct {
	w io.Writer
}

func NewConsole() output.Output { return &ConsoleOutput{w: os.Stdout} }

func (c *ConsoleOutput) Publish(a record.Aggregate, p output.Progress) error {
	_, err := fmt.Fprintf(c.w, "Reading %d/%d: %s - Avg: %s%%\n", p.Taken, p.Total, a.Timestamp, record.FormatPercentage(a.PercentageAverage))
	return err
}

func (c *ConsoleOutput) Close() error { return nil }
