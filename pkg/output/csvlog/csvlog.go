// Package csvlog appends cycle records to the readings file. Every write is
// synced before it returns, so at most the in-flight line is lost on power
// failure.
package csvlog

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/ericogr/lightlog/pkg/record"
)

// File is the subset of *os.File the logger needs.
type File interface {
	io.WriteCloser
	Sync() error
}

// Logger owns the open readings file for the lifetime of the run.
type Logger struct {
	f File
}

// Create truncates (or creates) path and writes the header line.
func Create(path string) (*Logger, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", path, err)
	}
	l := New(f)
	if err := l.WriteHeader(); err != nil {
		_ = f.Close()
		return nil, err
	}
	return l, nil
}

// New wraps an already open file. No header is written.
func New(f File) *Logger {
	return &Logger{f: f}
}

func (l *Logger) WriteHeader() error {
	return l.writeLine(record.Header)
}

func (l *Logger) WriteRecord(a record.Aggregate) error {
	return l.writeLine(strings.Join(a.Fields(), ","))
}

// WriteError records a failed cycle as "<timestamp>,ERROR,<message>". The
// message is written verbatim apart from line breaks, which would split the
// record.
func (l *Logger) WriteError(timestamp, message string) error {
	message = strings.NewReplacer("\r\n", " ", "\n", " ", "\r", " ").Replace(message)
	return l.writeLine(timestamp + "," + record.ErrorTag + "," + message)
}

func (l *Logger) Close() error {
	return l.f.Close()
}

func (l *Logger) writeLine(line string) error {
	if _, err := l.f.Write([]byte(line + "\n")); err != nil {
		return fmt.Errorf("write line: %w", err)
	}
	if err := l.f.Sync(); err != nil {
		return fmt.Errorf("sync: %w", err)
	}
	return nil
}
