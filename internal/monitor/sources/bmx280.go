package sources

import (
	"context"
	"fmt"
	"sync"
	"time"

	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/devices/v3/bmxx80"
	"periph.io/x/host/v3"

	"github.com/i474232898/pressure-forecast/internal/monitor"
)

// environmentSensor is the subset of *bmxx80.Dev used here.
type environmentSensor interface {
	Sense(e *physic.Env) error
	Halt() error
}

// BMX280 reads pressure from a Bosch BMP280/BME280 on an I²C bus.
type BMX280 struct {
	mu  sync.Mutex
	bus i2c.BusCloser
	dev environmentSensor
}

// OpenBMX280 initializes the host drivers and opens the sensor. An empty bus
// name selects the default bus, usually /dev/i2c-1.
func OpenBMX280(busName string, addr uint16) (*BMX280, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("periph host init: %w", err)
	}

	bus, err := i2creg.Open(busName)
	if err != nil {
		return nil, fmt.Errorf("open i2c bus %q: %w", busName, err)
	}

	dev, err := bmxx80.NewI2C(bus, addr, &bmxx80.DefaultOpts)
	if err != nil {
		bus.Close()
		return nil, fmt.Errorf("bmxx80 at %#x: %w", addr, err)
	}

	return &BMX280{bus: bus, dev: dev}, nil
}

func (b *BMX280) Name() string { return "bmx280" }

func (b *BMX280) Read(ctx context.Context) (monitor.Reading, error) {
	if err := ctx.Err(); err != nil {
		return monitor.Reading{}, err
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	var env physic.Env
	if err := b.dev.Sense(&env); err != nil {
		return monitor.Reading{}, fmt.Errorf("bmx280 sense: %w", err)
	}

	return monitor.Reading{
		Source:    b.Name(),
		Timestamp: time.Now().UTC(),
		Value:     pressureToKPa(env.Pressure),
	}, nil
}

// Close halts the sensor and releases the bus.
func (b *BMX280) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	err := b.dev.Halt()
	if b.bus != nil {
		if cerr := b.bus.Close(); err == nil {
			err = cerr
		}
	}
	return err
}

// physic.Pressure is stored in nano pascals.
func pressureToKPa(p physic.Pressure) float64 {
	return float64(p) / float64(physic.KiloPascal)
}
