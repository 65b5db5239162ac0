package max17048dev

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"tinygo.org/x/drivers"

	"fuelgauge-go/drivers/max17048"
	"fuelgauge-go/errcode"
	"fuelgauge-go/services/hal/core"
	"fuelgauge-go/types"
	"fuelgauge-go/x/conv"
)

// Compile-time checks.
var (
	_ core.PollingComponent = (*Device)(nil)
	_ core.I2CDevice        = (*Device)(nil)
	_ core.IntervalAware    = (*Device)(nil)
)

// Device is the runtime component for one MAX17048. It is created by New,
// registered with an App, bound to a bus and then given its sensors through
// the kind-specific setters.
type Device struct {
	id       string
	busID    string
	addr     uint16
	bound    bool
	every    time.Duration
	setupErr error

	drv  max17048.Device
	info types.FuelGaugeInfo
	last types.FuelGaugeValue

	voltage *core.Sensor
	level   *core.Sensor
	rate    *core.Sensor
}

func New(id string) *Device {
	return &Device{id: id, addr: DefaultAddress}
}

func (d *Device) ID() string { return d.id }

func (d *Device) SetI2CBus(busID string, bus drivers.I2C, addr uint16) {
	d.busID = busID
	d.addr = addr
	d.drv = max17048.New(bus)
	d.drv.Address = addr
	d.bound = true
}

// SetUpdateInterval records the polling interval for DumpConfig.
func (d *Device) SetUpdateInterval(every time.Duration) { d.every = every }

func (d *Device) SetBatteryVoltageSensor(s *core.Sensor)    { d.voltage = s }
func (d *Device) SetBatteryLevelSensor(s *core.Sensor)      { d.level = s }
func (d *Device) SetBatteryChargeRateSensor(s *core.Sensor) { d.rate = s }

// Info returns what Setup learned about the part.
func (d *Device) Info() types.FuelGaugeInfo { return d.info }

// Last returns the most recent readings in fixed point. Fields of sensors
// that are not attached stay zero.
func (d *Device) Last() types.FuelGaugeValue { return d.last }

// Setup reads the IC version and chip ID; either failing marks the gauge failed.
func (d *Device) Setup(ctx context.Context) error {
	d.setupErr = d.probe()
	return d.setupErr
}

func (d *Device) probe() error {
	if !d.bound {
		return errcode.New(errcode.UnknownBus, "setup", "no i2c bus attached")
	}
	ver, err := d.drv.Version()
	if err != nil {
		return driverErr("setup", "read ic version", err)
	}
	chip, err := d.drv.ChipID()
	if err != nil {
		return driverErr("setup", "read chip id", err)
	}
	d.info = types.FuelGaugeInfo{Bus: d.busID, Addr: d.addr, ICVersion: ver, ChipID: chip}
	return nil
}

// driverErr classifies a bus or register error.
func driverErr(op, msg string, err error) error {
	return &errcode.E{C: errcode.MapDriverErr(err), Op: op, Msg: msg, Err: err}
}

// Update publishes every attached sensor. A failed read skips that sensor
// only; all read errors are returned joined.
func (d *Device) Update(ctx context.Context) error {
	var errs []error
	if d.voltage != nil {
		if uv, err := d.drv.CellMicroVolts(); err != nil {
			errs = append(errs, driverErr("update", string(types.KindBatteryVoltage), err))
		} else {
			d.last.CellMicroV = uv
			d.voltage.Publish(float64(uv) / 1e6)
		}
	}
	if d.level != nil {
		if soc, err := d.drv.StateOfChargeX100(); err != nil {
			errs = append(errs, driverErr("update", string(types.KindBatteryLevel), err))
		} else {
			d.last.SOCx100 = soc
			d.level.Publish(float64(soc) / 100)
		}
	}
	if d.rate != nil {
		if crate, err := d.drv.ChargeRateMilli(); err != nil {
			errs = append(errs, driverErr("update", string(types.KindBatteryChargeRate), err))
		} else {
			d.last.RateMilliPH = crate
			d.rate.Publish(float64(crate) / 1000)
		}
	}
	return errors.Join(errs...)
}

func (d *Device) DumpConfig(log *slog.Logger) {
	log.Info("MAX17048",
		"bus", d.busID,
		"address", conv.HexString(uint32(d.addr), 2),
		"ic_version", conv.HexString(uint32(d.info.ICVersion), 4),
		"chip_id", conv.HexString(uint32(d.info.ChipID), 2),
		"update_interval", intervalString(d.every),
	)
	if d.setupErr != nil {
		log.Error("Communication with MAX17048 failed", "err", d.setupErr)
	}
	for _, s := range []*core.Sensor{d.voltage, d.level, d.rate} {
		if s == nil {
			continue
		}
		spec := s.Spec()
		log.Info("  sensor",
			"kind", spec.Kind,
			"id", spec.ID,
			"name", spec.Name,
			"unit", spec.Unit,
			"accuracy_decimals", spec.AccuracyDecimals,
			"device_class", spec.DeviceClass,
			"state_class", spec.StateClass,
		)
	}
}

func intervalString(every time.Duration) string {
	if every <= 0 {
		return "never"
	}
	return every.String()
}
