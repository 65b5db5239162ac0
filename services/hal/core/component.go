package core

import (
	"context"
	"log/slog"
	"time"

	"tinygo.org/x/drivers"
)

// ---- Component roles ----

// Component is one configured device instance owned by an App.
type Component interface {
	ID() string
	// Setup probes the hardware. An error marks the component failed; it is
	// never updated afterwards.
	Setup(ctx context.Context) error
	DumpConfig(log *slog.Logger)
}

// PollingComponent is updated periodically at the interval supplied when it
// was registered.
type PollingComponent interface {
	Component
	Update(ctx context.Context) error
}

// I2CDevice is a component addressed on a shared I2C bus.
type I2CDevice interface {
	Component
	SetI2CBus(busID string, bus drivers.I2C, addr uint16)
}

// IntervalAware components are told their polling interval on registration.
type IntervalAware interface {
	SetUpdateInterval(every time.Duration)
}
