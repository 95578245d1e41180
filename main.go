package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/ericogr/i2c-register-poller/pkg/config"
	"github.com/ericogr/i2c-register-poller/pkg/output"
	"github.com/ericogr/i2c-register-poller/pkg/output/console"
	"github.com/ericogr/i2c-register-poller/pkg/output/mqtt"
	"github.com/ericogr/i2c-register-poller/pkg/poller"
	"github.com/ericogr/i2c-register-poller/pkg/sensor"
)

const (
	msgOpenFailed = "Failed to open I2C device"

	exitOK      = 0
	exitFailure = 1
)

type sensorOpener func(config.Config) (sensor.Sensor, error)

func main() {
	zerolog.TimeFieldFormat = time.RFC3339
	log.Logger = newLogger(os.Stderr, "info")

	cfg, err := config.LoadFromFlags()
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(exitOK)
		}
		log.WithLevel(zerolog.FatalLevel).Msg("invalid configuration: " + err.Error())
		os.Exit(exitFailure)
	}
	log.Logger = newLogger(os.Stderr, cfg.LogLevel)

	// SIGINT/SIGTERM end the poll loop during its delay
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, cfg, sensor.Open, os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

// run opens the device and polls it until ctx is done, returning the process
// exit status.
func run(ctx context.Context, cfg config.Config, open sensorOpener, stdout, stderr io.Writer) int {
	logger := newLogger(stderr, cfg.LogLevel)

	s, err := open(cfg)
	if err != nil {
		logger.WithLevel(zerolog.FatalLevel).Msg(msgOpenFailed)
		logger.Debug().Err(err).
			Str("bus", cfg.I2C.Bus).
			Str("address", fmt.Sprintf("0x%02X", cfg.I2C.Address)).
			Msg("open failure")
		return exitFailure
	}
	defer func() {
		if err := s.Close(); err != nil {
			logger.Warn().Err(err).Msg("failed to close I2C device")
		}
	}()

	outs, err := initOutputs(cfg, stdout)
	if err != nil {
		logger.WithLevel(zerolog.FatalLevel).Err(err).Msg("failed to initialize outputs")
		return exitFailure
	}
	defer func() {
		if err := output.CloseAll(outs); err != nil {
			logger.Warn().Err(err).Msg("failed to close outputs")
		}
	}()

	logger.Debug().
		Str("sensor", cfg.SensorType).
		Str("address", fmt.Sprintf("0x%02X", cfg.I2C.Address)).
		Str("register", fmt.Sprintf("0x%02X", cfg.I2C.Register)).
		Dur("interval", cfg.Interval()).
		Msg("polling")

	_ = poller.New(s, outs, cfg.Interval(), logger).Run(ctx)

	logger.Debug().Msg("stopped")
	return exitOK
}

func initOutputs(cfg config.Config, stdout io.Writer) ([]output.Output, error) {
	outs := make([]output.Output, 0, len(cfg.Outputs))
	for _, o := range cfg.Outputs {
		switch strings.ToLower(o.Type) {
		case config.OutputConsole:
			outs = append(outs, console.NewConsole(stdout))
		case config.OutputMQTT:
			if o.MQTT == nil {
				return closeAll(outs, errors.New("mqtt output has no mqtt section"))
			}
			m, err := mqtt.NewMQTT(*o.MQTT, cfg.I2C)
			if err != nil {
				return closeAll(outs, err)
			}
			outs = append(outs, m)
		default:
			return closeAll(outs, fmt.Errorf("unknown output type %q", o.Type))
		}
	}
	return outs, nil
}

func closeAll(outs []output.Output, err error) ([]output.Output, error) {
	_ = output.CloseAll(outs)
	return nil, err
}

func newLogger(w io.Writer, level string) zerolog.Logger {
	noColor := true
	if f, ok := w.(*os.File); ok {
		noColor = !isatty.IsTerminal(f.Fd())
	}
	lvl, err := zerolog.ParseLevel(level)
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}
	cw := zerolog.ConsoleWriter{Out: w, NoColor: noColor, TimeFormat: time.RFC3339}
	if lvl > zerolog.DebugLevel {
		// bare message lines; timestamps, levels and causes only at debug
		cw.PartsOrder = []string{zerolog.MessageFieldName}
	}
	return zerolog.New(cw).
		Level(lvl).
		With().
		Timestamp().
		Logger()
}
