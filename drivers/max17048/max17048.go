// Package max17048 provides a TinyGo driver for the MAX17048 single-cell
// ModelGauge fuel gauge.
//
// All registers are read and written as 16-bit words, MSB first. The driver
// offers fixed-point accessors (micro-volts, hundredths of a percent,
// thousandths of %/h) for MCU targets and float helpers for host tools.
package max17048

import (
	"errors"

	"tinygo.org/x/drivers"

	"fuelgauge-go/x/mathx"
)

var (
	// ErrResetIgnored is returned when the reset command was ACKed; the part
	// resets before ACKing, so an ACK means the command did not take effect.
	ErrResetIgnored = errors.New("max17048: reset command was acknowledged")
)

// Device wraps an I2C connection to a MAX17048.
type Device struct {
	bus     drivers.I2C
	Address uint16

	// Fixed buffers to avoid per-call heap allocations.
	w [3]byte
	r [2]byte
}

// New creates a Device on an already configured bus. It does not touch the bus.
func New(bus drivers.I2C) Device {
	return Device{bus: bus, Address: Address}
}

// Version returns the IC production version word.
func (d *Device) Version() (uint16, error) {
	return d.read16(regVersion)
}

// ChipID returns the semi-unique 8-bit ID held in the low byte of VRESET/ID.
func (d *Device) ChipID() (uint8, error) {
	v, err := d.read16(regVResetID)
	return uint8(v & 0xFF), err
}

// ConfigWord returns the raw CONFIG register.
func (d *Device) ConfigWord() (uint16, error) {
	return d.read16(regConfig)
}

// ---- Telemetry (fixed-point) ----

// CellMicroVolts returns the cell voltage in micro-volts.
func (d *Device) CellMicroVolts() (uint32, error) {
	raw, err := d.read16(regVCell)
	if err != nil {
		return 0, err
	}
	return uint32(mathx.ScaleRound(int32(raw), 625, 8)), nil
}

// StateOfChargeX100 returns the state of charge in hundredths of a percent,
// clamped to 0..10000.
func (d *Device) StateOfChargeX100() (uint16, error) {
	raw, err := d.read16(regSOC)
	if err != nil {
		return 0, err
	}
	v := mathx.ScaleRound(int32(raw), 100, 256)
	return uint16(mathx.Clamp(v, 0, 10000)), nil
}

// ChargeRateMilli returns the charge (+) or discharge (-) rate in
// thousandths of a percent per hour.
func (d *Device) ChargeRateMilli() (int32, error) {
	raw, err := d.read16(regCRate)
	if err != nil {
		return 0, err
	}
	return int32(int16(raw)) * 208, nil
}

// ---- Telemetry (float helpers) ----

// CellVoltage returns the cell voltage in volts.
func (d *Device) CellVoltage() (float32, error) {
	raw, err := d.read16(regVCell)
	if err != nil {
		return 0, err
	}
	return float32(raw) * 78.125 / 1_000_000, nil
}

// StateOfCharge returns the state of charge in percent. The register can
// report slightly above 100 while the model converges.
func (d *Device) StateOfCharge() (float32, error) {
	raw, err := d.read16(regSOC)
	if err != nil {
		return 0, err
	}
	return float32(raw) / 256, nil
}

// ChargeRate returns the charge or discharge rate in percent per hour.
func (d *Device) ChargeRate() (float32, error) {
	raw, err := d.read16(regCRate)
	if err != nil {
		return 0, err
	}
	return float32(int16(raw)) * 0.208, nil
}

// ---- Control ----

// Reset issues a power-on reset and clears the reset indicator afterwards.
func (d *Device) Reset() error {
	if err := d.write16(regCmd, cmdPowerOnReset); err == nil {
		return ErrResetIgnored
	}
	var err error
	for i := 0; i < 3; i++ {
		if err = d.ClearAlertFlags(AlertResetIndicator); err == nil {
			return nil
		}
	}
	return err
}

// AlertFlags returns the currently latched alert flags.
func (d *Device) AlertFlags() (AlertFlag, error) {
	v, err := d.read16(regStatus)
	return AlertFlag(v>>8) & alertMask, err
}

// ClearAlertFlags clears the given flags in STATUS and the ALRT bit in CONFIG.
func (d *Device) ClearAlertFlags(flags AlertFlag) error {
	st, err := d.read16(regStatus)
	if err != nil {
		return err
	}
	if err := d.write16(regStatus, st&^(uint16(flags&alertMask)<<8)); err != nil {
		return err
	}
	return d.modify(regConfig, 0, configALRT)
}

// SetQuickStart restarts fuel-gauge calculations when enable is true.
func (d *Device) SetQuickStart(enable bool) error {
	return d.modifyBit(regMode, modeQuickStart, enable)
}

// SetSleepMode enables sleep support in MODE and enters or leaves sleep.
func (d *Device) SetSleepMode(enable bool) error {
	if enable {
		if err := d.modify(regMode, modeEnSleep, 0); err != nil {
			return err
		}
	}
	return d.modifyBit(regConfig, configSleep, enable)
}

// Hibernating reports whether the part is in hibernate mode.
func (d *Device) Hibernating() (bool, error) {
	v, err := d.read16(regMode)
	return v&modeHibStat != 0, err
}

// ---- Word access ----

func (d *Device) read16(reg byte) (uint16, error) {
	d.w[0] = reg
	if err := d.bus.Tx(d.Address, d.w[:1], d.r[:2]); err != nil {
		return 0, err
	}
	return uint16(d.r[0])<<8 | uint16(d.r[1]), nil
}

func (d *Device) write16(reg byte, val uint16) error {
	d.w[0] = reg
	d.w[1] = byte(val >> 8)
	d.w[2] = byte(val)
	return d.bus.Tx(d.Address, d.w[:3], nil)
}

func (d *Device) modify(reg byte, set, clear uint16) error {
	cur, err := d.read16(reg)
	if err != nil {
		return err
	}
	next := (cur | set) &^ clear
	if next == cur {
		return nil
	}
	return d.write16(reg, next)
}

func (d *Device) modifyBit(reg byte, bit uint16, on bool) error {
	if on {
		return d.modify(reg, bit, 0)
	}
	return d.modify(reg, 0, bit)
}
