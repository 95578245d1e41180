package poller

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/ericogr/i2c-register-poller/pkg/output"
	"github.com/ericogr/i2c-register-poller/pkg/sensor"
)

// MsgReadError is logged once per failed read.
const MsgReadError = "error reading data"

// Poller reads one register, reports it and sleeps, until its context ends.
type Poller struct {
	sensor   sensor.Sensor
	outputs  []output.Output
	interval time.Duration
	log      zerolog.Logger
}

func New(s sensor.Sensor, outputs []output.Output, interval time.Duration, log zerolog.Logger) *Poller {
	return &Poller{sensor: s, outputs: outputs, interval: interval, log: log}
}

// Run blocks until ctx is cancelled and returns ctx.Err(). Read failures are
// logged and never stop the loop.
func (p *Poller) Run(ctx context.Context) error {
	p.log.Debug().Dur("interval", p.interval).Msg("starting poller")

	timer := time.NewTimer(p.interval)
	defer timer.Stop()

	for {
		p.pollOnce()

		timer.Reset(p.interval)
		select {
		case <-ctx.Done():
			p.log.Debug().Msg("stopping poller")
			return ctx.Err()
		case <-timer.C:
		}
	}
}

func (p *Poller) pollOnce() {
	s, err := p.sensor.Read()
	if err != nil {
		p.log.Error().Msg(MsgReadError)
		p.log.Debug().Err(err).Msg("read failure")
		return
	}
	for _, o := range p.outputs {
		if err := o.Publish(s); err != nil {
			p.log.Error().Err(err).Msg("output publish error")
		}
	}
}
