package console

import (
	"bytes"
	"io"
	"os"
	"testing"
	"time"

	"github.com/ericogr/i2c-register-poller/pkg/sensor"
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
	ts := time.Date(2025, 9, 19, 14, 41, 54, 0, time.UTC)
	out := captureStdout(func() {
		c := NewConsole(os.Stdout)
		_ = c.Publish(sensor.Sample{Address: 0x08, Value: 42, Timestamp: ts})
		_ = c.Publish(sensor.Sample{Address: 0x08, Value: 7, Timestamp: ts})
	})
	want := "42\n7\n"
	if out != want {
		t.Fatalf("console output mismatch:\n got: %q\nwant: %q", out, want)
	}
}

func TestConsoleBounds(t *testing.T) {
	var buf bytes.Buffer
	c := NewConsole(&buf)
	for _, v := range []uint8{0, 255} {
		if err := c.Publish(sensor.Sample{Value: v}); err != nil {
			t.Fatalf("publish: %v", err)
		}
	}
	if got := buf.String(); got != "0\n255\n" {
		t.Fatalf("got %q want %q", got, "0\n255\n")
	}
}
