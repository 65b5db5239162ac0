package config

import (
	"fmt"

	"fuelgauge-go/errcode"
	"fuelgauge-go/services/codegen"
	"fuelgauge-go/services/hal/core"
	"fuelgauge-go/types"
)

// Build validates every sensor record with its platform and binds them all
// into one plan. Nothing is returned unless every record binds; references to
// buses missing from cfg.I2C are rejected when cfg declares any bus.
func Build(cfg types.BuildConfig) (codegen.Plan, error) {
	buses := map[string]bool{}
	for i, b := range cfg.I2C {
		path := fmt.Sprintf("i2c[%d].id", i)
		if b.ID == "" {
			return codegen.Plan{}, errcode.Invalid(path, "required", nil)
		}
		if buses[b.ID] {
			return codegen.Plan{}, errcode.Invalid(path, "duplicate bus id", b.ID)
		}
		buses[b.ID] = true
	}

	rec := codegen.NewRecorder()
	for i, record := range cfg.Sensor {
		prefix := fmt.Sprintf("sensor[%d]", i)
		name, _ := record[types.PlatformKey].(string)
		if name == "" {
			return codegen.Plan{}, errcode.Invalid(prefix+"."+types.PlatformKey, "required", record[types.PlatformKey])
		}
		p, ok := core.LookupPlatform(name)
		if !ok {
			return codegen.Plan{}, errcode.Invalid(prefix+"."+types.PlatformKey, "unknown platform", name)
		}
		vc, err := p.Validate(record)
		if err != nil {
			return codegen.Plan{}, fmt.Errorf("%s: %w", prefix, err)
		}
		if err := p.Bind(vc, rec); err != nil {
			return codegen.Plan{}, fmt.Errorf("%s: %w", prefix, err)
		}
	}

	plan := rec.Plan()
	if len(buses) > 0 {
		for _, c := range plan.Calls {
			if c.Op == codegen.OpRegisterI2CDevice && !buses[c.Bus] {
				return codegen.Plan{}, errcode.New(errcode.UnknownBus, "build", c.Component+" uses undeclared bus "+c.Bus)
			}
		}
	}
	return plan, nil
}

// BusIDs returns the declared bus ids, or the ids the plan uses when none
// are declared.
func BusIDs(cfg types.BuildConfig, plan codegen.Plan) []string {
	var ids []string
	seen := map[string]bool{}
	add := func(id string) {
		if !seen[id] {
			seen[id] = true
			ids = append(ids, id)
		}
	}
	for _, b := range cfg.I2C {
		add(b.ID)
	}
	if len(ids) == 0 {
		for _, c := range plan.Calls {
			if c.Op == codegen.OpRegisterI2CDevice {
				add(c.Bus)
			}
		}
	}
	return ids
}
