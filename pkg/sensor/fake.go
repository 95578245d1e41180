package sensor

import (
	"math/rand"
	"sync"
	"time"

	"github.com/ericogr/i2c-register-poller/pkg/config"
)

// FakeSensor returns random register values for running without hardware.
type FakeSensor struct {
	addr     uint16
	register uint8
	mu       sync.Mutex
}

func NewFakeSensor(cfg config.Config) (Sensor, error) {
	return &FakeSensor{addr: uint16(cfg.I2C.Address), register: uint8(cfg.I2C.Register)}, nil
}

func (f *FakeSensor) Read() (Sample, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return Sample{Address: f.addr, Register: f.register, Value: uint8(rand.Intn(256)), Timestamp: time.Now()}, nil
}

func (f *FakeSensor) Close() error { return nil }
