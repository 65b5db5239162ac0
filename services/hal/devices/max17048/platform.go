package max17048dev

import (
	"fuelgauge-go/errcode"
	"fuelgauge-go/services/hal/core"
	"fuelgauge-go/types"
)

// Platform registration.
func init() { core.RegisterPlatform(Platform, platform{}) }

type platform struct{}

func (platform) Info() core.PlatformInfo {
	setters := make(map[types.Kind]string, len(sensorKinds))
	for _, k := range sensorKinds {
		setters[k.kind] = k.setter
	}
	return core.PlatformInfo{
		ImportPath:  "fuelgauge-go/services/hal/devices/max17048",
		Package:     "max17048dev",
		Constructor: "New",
		Setters:     setters,
	}
}

func (platform) Validate(record map[string]any) (any, error) {
	return Validate(record)
}

func (platform) Bind(cfg any, t core.Target) error {
	c, ok := cfg.(Config)
	if !ok {
		if cp, ok2 := cfg.(*Config); ok2 && cp != nil {
			c = *cp
		} else {
			return errcode.InvalidParams
		}
	}
	return Bind(c, t)
}

func (platform) New(id string) core.Component { return New(id) }

func (platform) Attach(c core.Component, kind types.Kind, s *core.Sensor) error {
	d, ok := c.(*Device)
	if !ok {
		return errcode.New(errcode.InvalidParams, "attach_sensor", c.ID()+" is not a max17048")
	}
	switch kind {
	case types.KindBatteryVoltage:
		d.SetBatteryVoltageSensor(s)
	case types.KindBatteryLevel:
		d.SetBatteryLevelSensor(s)
	case types.KindBatteryChargeRate:
		d.SetBatteryChargeRateSensor(s)
	default:
		return errcode.New(errcode.Unsupported, "attach_sensor", string(kind))
	}
	return nil
}
