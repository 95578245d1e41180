package output

import (
	"errors"

	"github.com/ericogr/i2c-register-poller/pkg/sensor"
)

// Output receives every successful sample. A publish error is reported to
// the caller and does not affect later samples.
type Output interface {
	Publish(sensor.Sample) error
	Close() error
}

// CloseAll closes every output, joining any errors.
func CloseAll(outs []Output) error {
	var errs []error
	for _, o := range outs {
		if err := o.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
