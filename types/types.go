package types

// ---- Sensor kinds ----

// Kind names one published measurement stream of a component.
type Kind string

const (
	KindBatteryVoltage    Kind = "battery_voltage"
	KindBatteryLevel      Kind = "battery_level"
	KindBatteryChargeRate Kind = "battery_charge_rate"
)

// ---- Sensor metadata tags ----

type Unit string

const (
	UnitVolt           Unit = "V"
	UnitPercent        Unit = "%"
	UnitPercentPerHour Unit = "%/h"
)

type DeviceClass string

const (
	DeviceClassNone    DeviceClass = ""
	DeviceClassBattery DeviceClass = "battery"
	DeviceClassVoltage DeviceClass = "voltage"
)

type StateClass string

const (
	StateClassNone            StateClass = ""
	StateClassMeasurement     StateClass = "measurement"
	StateClassTotalIncreasing StateClass = "total_increasing"
)

// ---- Component status ----

// Status is the coarse health of a component after setup and updates.
type Status string

const (
	StatusOK      Status = "ok"
	StatusWarning Status = "warning"
	StatusFailed  Status = "failed"
)
