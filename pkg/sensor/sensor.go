package sensor

import (
	"errors"
	"time"

	"github.com/ericogr/i2c-register-poller/pkg/config"
)

var (
	// ErrDeviceOpen is fatal: the bus or device could not be opened.
	ErrDeviceOpen = errors.New("device open failed")
	// ErrRegisterRead is transient and expected to recur.
	ErrRegisterRead = errors.New("register read failed")
)

// Sample is one successful register read. Failed reads produce an error
// instead, never both.
type Sample struct {
	Address   uint16    `json:"address"`
	Register  uint8     `json:"register"`
	Value     uint8     `json:"value"`
	Timestamp time.Time `json:"timestamp"`
}

type Sensor interface {
	Read() (Sample, error)
	Close() error
}

// Open builds the sensor selected by cfg.SensorType.
func Open(cfg config.Config) (Sensor, error) {
	if cfg.SensorType == config.SensorTypeSimulation {
		return NewFakeSensor(cfg)
	}
	return NewRegisterSensor(cfg)
}
