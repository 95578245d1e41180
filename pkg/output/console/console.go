package console

import (
	"fmt"
	"io"

	"github.com/ericogr/i2c-register-poller/pkg/output"
	"github.com/ericogr/i2c-register-poller/pkg/sensor"
)

// ConsoleOutput writes each value as a bare decimal line.
type ConsoleOutput struct {
	w io.Writer
}

func NewConsole(w io.Writer) output.Output { return &ConsoleOutput{w: w} }

func (c *ConsoleOutput) Publish(s sensor.Sample) error {
	_, err := fmt.Fprintf(c.w, "%d\n", s.Value)
	return err
}

func (c *ConsoleOutput) Close() error { return nil }
