package csvlog

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ericogr/lightlog/pkg/record"
)

type memFile struct {
	bytes.Buffer
	syncs    int
	writeErr error
	syncErr  error
}

func (m *memFile) Write(p []byte) (int, error) {
	if m.writeErr != nil {
		return 0, m.writeErr
	}
	return m.Buffer.Write(p)
}

func (m *memFile) Sync() error {
	m.syncs++
	return m.syncErr
}

func (m *memFile) Close() error { return nil }

var sample = record.NewAggregate("2025-09-19 14:41:54",
	record.Reading{Tag: "s1", Raw: 32768, Percentage: 50.0},
	record.Reading{Tag: "s2", Raw: 0, Percentage: 0.0},
)

func TestCreateWritesHeader(t *testing.T) {
	path := filepath.Join(t.TempDir(), "light_readings.csv")
	require.NoError(t, os.WriteFile(path, []byte("stale\n"), 0o644))

	l, err := Create(path)
	require.NoError(t, err)
	require.NoError(t, l.WriteRecord(sample))

	// visible on disk before Close
	b, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, record.Header+"\n2025-09-19 14:41:54,s1,32768,50.0,s2,0,0.0,16384,25.0\n", string(b))
	require.NoError(t, l.Close())
}

func TestCreateFailsOnMissingDir(t *testing.T) {
	_, err := Create(filepath.Join(t.TempDir(), "nope", "x.csv"))
	assert.Error(t, err)
}

func TestEveryWriteIsSynced(t *testing.T) {
	f := &memFile{}
	l := New(f)

	require.NoError(t, l.WriteHeader())
	require.NoError(t, l.WriteRecord(sample))
	require.NoError(t, l.WriteError("2025-09-19 14:46:54", "read conv: i2c nack"))

	assert.Equal(t, 3, f.syncs)
	lines := strings.Split(strings.TrimSuffix(f.String(), "\n"), "\n")
	require.Len(t, lines, 3)
	assert.Len(t, strings.Split(lines[1], ","), len(strings.Split(lines[0], ",")))
	assert.Equal(t, "2025-09-19 14:46:54,ERROR,read conv: i2c nack", lines[2])
}

func TestWriteErrorKeepsOneLine(t *testing.T) {
	f := &memFile{}
	require.NoError(t, New(f).WriteError("ts", "first\nsecond"))
	assert.Equal(t, "ts,ERROR,first second\n", f.String())
}

func TestWriteFailures(t *testing.T) {
	assert.Error(t, New(&memFile{writeErr: errors.New("disk full")}).WriteRecord(sample))
	assert.Error(t, New(&memFile{syncErr: errors.New("io")}).WriteRecord(sample))
}
