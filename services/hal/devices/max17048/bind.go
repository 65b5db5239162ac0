package max17048dev

import (
	"fmt"

	"fuelgauge-go/services/hal/core"
)

// Bind drives t through the wiring of one validated gauge: create the
// component, register it for polling and on its I2C bus, then create and
// attach each configured sensor. The first failing step aborts the bind.
func Bind(cfg Config, t core.Target) error {
	if err := t.NewComponent(Platform, cfg.ID); err != nil {
		return fmt.Errorf("bind %s: %w", cfg.ID, err)
	}
	if err := t.RegisterComponent(cfg.ID, cfg.UpdateInterval); err != nil {
		return fmt.Errorf("bind %s: %w", cfg.ID, err)
	}
	if err := t.RegisterI2CDevice(cfg.ID, cfg.Bus, cfg.Address); err != nil {
		return fmt.Errorf("bind %s: %w", cfg.ID, err)
	}
	for _, k := range sensorKinds {
		spec := *cfg.slot(k.kind)
		if spec == nil {
			continue
		}
		if err := t.NewSensor(*spec); err != nil {
			return fmt.Errorf("bind %s: %s: %w", cfg.ID, k.kind, err)
		}
		if err := t.AttachSensor(cfg.ID, k.kind, spec.ID); err != nil {
			return fmt.Errorf("bind %s: %s: %w", cfg.ID, k.kind, err)
		}
	}
	return nil
}
