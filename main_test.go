package main

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/ericogr/i2c-register-poller/pkg/config"
	"github.com/ericogr/i2c-register-poller/pkg/sensor"
)

type scriptedSensor struct {
	script []int
	reads  int
	closed bool
	cancel context.CancelFunc
}

func (s *scriptedSensor) Read() (sensor.Sample, error) {
	i := s.reads
	s.reads++
	if s.reads >= len(s.script) {
		s.cancel()
	}
	if i >= len(s.script) || s.script[i] < 0 {
		return sensor.Sample{}, fmt.Errorf("%w: remote I/O error", sensor.ErrRegisterRead)
	}
	return sensor.Sample{Address: 0x08, Value: uint8(s.script[i]), Timestamp: time.Now()}, nil
}

func (s *scriptedSensor) Close() error { s.closed = true; return nil }

func testConfig() config.Config {
	cfg := config.DefaultConfig()
	cfg.IntervalMs = 1
	return cfg
}

func stderrLines(s string) []string {
	var out []string
	for _, l := range strings.Split(s, "\n") {
		if l = strings.TrimSpace(l); l != "" {
			out = append(out, l)
		}
	}
	return out
}

func TestRunOpenFailureIsFatal(t *testing.T) {
	var stdout, stderr bytes.Buffer
	opened := 0
	open := func(config.Config) (sensor.Sensor, error) {
		opened++
		return nil, fmt.Errorf("%w: no such file or directory", sensor.ErrDeviceOpen)
	}

	code := run(context.Background(), testConfig(), open, &stdout, &stderr)
	if code == 0 {
		t.Fatalf("exit code: got 0 want nonzero")
	}
	if opened != 1 {
		t.Fatalf("open attempts: got %d want 1", opened)
	}
	if stdout.Len() != 0 {
		t.Fatalf("stdout not empty: %q", stdout.String())
	}
	if got := stderrLines(stderr.String()); len(got) != 1 || got[0] != msgOpenFailed {
		t.Fatalf("stderr: want only %q, got %q", msgOpenFailed, stderr.String())
	}
	if strings.Contains(stderr.String(), "error reading data") {
		t.Fatalf("read attempted after failed open: %q", stderr.String())
	}
}

func TestRunEndToEnd(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	s := &scriptedSensor{script: []int{42, -1, 07}, cancel: cancel}
	open := func(config.Config) (sensor.Sensor, error) { return s, nil }

	var stdout, stderr bytes.Buffer
	code := run(ctx, testConfig(), open, &stdout, &stderr)
	if code != 0 {
		t.Fatalf("exit code after cancel: got %d", code)
	}
	if got := stdout.String(); got != "42\n7\n" {
		t.Fatalf("stdout: got %q want %q", got, "42\n7\n")
	}
	if got := stderrLines(stderr.String()); len(got) != 1 || got[0] != "error reading data" {
		t.Fatalf("stderr: want only one read error line, got %q", stderr.String())
	}
	if s.reads != 3 {
		t.Fatalf("reads: got %d want 3", s.reads)
	}
	if !s.closed {
		t.Fatalf("device not closed on shutdown")
	}
}

func TestRunDebugLevelKeepsCause(t *testing.T) {
	var stdout, stderr bytes.Buffer
	cfg := testConfig()
	cfg.LogLevel = "debug"
	open := func(config.Config) (sensor.Sensor, error) {
		return nil, fmt.Errorf("%w: no such file or directory", sensor.ErrDeviceOpen)
	}

	if code := run(context.Background(), cfg, open, &stdout, &stderr); code == 0 {
		t.Fatalf("exit code: got 0 want nonzero")
	}
	out := stderr.String()
	if !strings.Contains(out, msgOpenFailed) || !strings.Contains(out, "no such file or directory") || !strings.Contains(out, "DBG") {
		t.Fatalf("debug stderr missing detail: %q", out)
	}
}

func TestInitOutputs(t *testing.T) {
	var stdout bytes.Buffer
	cfg := config.Config{Outputs: []config.OutputConfig{{Type: "console"}}}
	outs, err := initOutputs(cfg, &stdout)
	if err != nil {
		t.Fatalf("initOutputs: %v", err)
	}
	if len(outs) != 1 {
		t.Fatalf("outputs len: %d", len(outs))
	}
	if err := outs[0].Publish(sensor.Sample{Value: 200}); err != nil {
		t.Fatalf("publish: %v", err)
	}
	if stdout.String() != "200\n" {
		t.Fatalf("console output: %q", stdout.String())
	}

	cfg.Outputs = append(cfg.Outputs, config.OutputConfig{Type: "printer"})
	if _, err := initOutputs(cfg, &stdout); err == nil {
		t.Fatalf("expected error for unknown output")
	}
	cfg.Outputs = []config.OutputConfig{{Type: "mqtt"}}
	if _, err := initOutputs(cfg, &stdout); err == nil {
		t.Fatalf("expected error for mqtt output without settings")
	}
}
