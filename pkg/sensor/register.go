package sensor

import (
	"fmt"
	"time"

	"github.com/ericogr/i2c-register-poller/pkg/config"
	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/host/v3"
)

// RegisterSensor reads one 8-bit register from a fixed I2C address.
type RegisterSensor struct {
	dev      *i2c.Dev
	bus      i2c.BusCloser
	register uint8
}

func NewRegisterSensor(cfg config.Config) (Sensor, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("%w: host init: %v", ErrDeviceOpen, err)
	}
	bus, err := i2creg.Open(cfg.I2C.Bus)
	if err != nil {
		return nil, fmt.Errorf("%w: open i2c bus %q: %v", ErrDeviceOpen, cfg.I2C.Bus, err)
	}
	return newRegisterSensor(bus, uint16(cfg.I2C.Address), uint8(cfg.I2C.Register)), nil
}

func newRegisterSensor(bus i2c.BusCloser, addr uint16, register uint8) *RegisterSensor {
	return &RegisterSensor{dev: &i2c.Dev{Addr: addr, Bus: bus}, bus: bus, register: register}
}

func (s *RegisterSensor) Close() error {
	if s.bus != nil {
		return s.bus.Close()
	}
	return nil
}

// Read writes the register index then reads back a single byte in the same
// transaction (repeated start).
func (s *RegisterSensor) Read() (Sample, error) {
	var buf [1]byte
	if err := s.dev.Tx([]byte{s.register}, buf[:]); err != nil {
		return Sample{}, fmt.Errorf("%w: register 0x%02X at 0x%02X: %v", ErrRegisterRead, s.register, s.dev.Addr, err)
	}
	return Sample{Address: s.dev.Addr, Register: s.register, Value: buf[0], Timestamp: time.Now()}, nil
}
