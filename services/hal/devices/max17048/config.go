package max17048dev

import (
	"time"

	"fuelgauge-go/drivers/max17048"
	"fuelgauge-go/services/hal/core"
	"fuelgauge-go/types"
)

// Platform is the name records use to select this driver.
const Platform = "max17048"

// Defaults applied by Validate.
const (
	DefaultAddress        = max17048.Address
	DefaultUpdateInterval = 60 * time.Second
	DefaultBus            = "i2c0"

	maxAccuracyDecimals = 8
)

// Record keys.
const (
	keyID             = "id"
	keyPlatform       = types.PlatformKey
	keyUpdateInterval = "update_interval"
	keyAddress        = "address"
	keyBus            = "i2c_id"

	keyName              = "name"
	keyAccuracyDecimals  = "accuracy_decimals"
	keyIcon              = "icon"
	keyInternal          = "internal"
	keyDisabledByDefault = "disabled_by_default"
)

// Config is a validated configuration record. Sensor fields are nil when
// the corresponding sub-config was absent.
type Config struct {
	ID             string
	Bus            string
	Address        uint16
	UpdateInterval time.Duration // 0 => never polled

	BatteryVoltage    *core.SensorSpec
	BatteryLevel      *core.SensorSpec
	BatteryChargeRate *core.SensorSpec
}

// sensorKind is the fixed metadata of one measurement stream.
type sensorKind struct {
	kind     types.Kind
	name     string
	unit     types.Unit
	decimals int
	setter   string
}

// sensorKinds is also the attach order used by Bind.
var sensorKinds = [...]sensorKind{
	{kind: types.KindBatteryVoltage, name: "Battery Voltage", unit: types.UnitVolt, decimals: 2, setter: "SetBatteryVoltageSensor"},
	{kind: types.KindBatteryLevel, name: "Battery Level", unit: types.UnitPercent, decimals: 0, setter: "SetBatteryLevelSensor"},
	{kind: types.KindBatteryChargeRate, name: "Battery Charge Rate", unit: types.UnitPercentPerHour, decimals: 0, setter: "SetBatteryChargeRateSensor"},
}

// slot returns the Config field holding the sensor of kind k.
func (c *Config) slot(k types.Kind) **core.SensorSpec {
	switch k {
	case types.KindBatteryVoltage:
		return &c.BatteryVoltage
	case types.KindBatteryLevel:
		return &c.BatteryLevel
	case types.KindBatteryChargeRate:
		return &c.BatteryChargeRate
	}
	return nil
}

// Sensors returns the configured sensor descriptors in attach order.
func (c Config) Sensors() []core.SensorSpec {
	var out []core.SensorSpec
	for _, k := range sensorKinds {
		if s := *c.slot(k.kind); s != nil {
			out = append(out, *s)
		}
	}
	return out
}
