package console

import (
	"bytes"
	"io"
	"os"
	"testing"

	"github.com/ericogr/lightlog/pkg/output"
	"github.com/ericogr/lightlog/pkg/record"
)

func captureStdout(f func()) string {
	r, w, _ := os.Pipe()
	stdout := os.Stdout
	os.Stdout = w
	outC := make(chan string)
	go func() {
		var buf bytes.Buffer
		_, _ = io.Copy(&buf, r)
		outC <- buf.String()
	}()
	f()
	_ = w.Close()
	os.Stdout = stdout
	return <-outC
}

func TestConsolePublish(t *testing.T) {
	a := record.NewAggregate("2025-09-19 14:41:54",
		record.Reading{Tag: "s1", Raw: 32768, Percentage: 50.0},
		record.Reading{Tag: "s2", Raw: 0, Percentage: 0.0},
	)
	out := captureStdout(func() {
		c := NewConsole()
		_ = c.Publish(a, output.Progress{Taken: 1, Total: 168})
	})
	want := "Reading 1/168: 2025-09-19 14:41:54 - Avg: 25.0%\n"
	if out != want {
		t.Fatalf("console output mismatch:\n got: %q\nwant: %q", out, want)
	}
}
