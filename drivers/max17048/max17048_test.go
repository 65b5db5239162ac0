package max17048

import (
	"errors"
	"math"
	"testing"

	"tinygo.org/x/drivers"
)

// Compile-time check.
var _ drivers.I2C = (*recI2C)(nil)

// recI2C records the last transaction and replies with a fixed word.
type recI2C struct {
	addr  uint16
	w     []byte
	reply [2]byte
}

func (f *recI2C) Tx(addr uint16, w, r []byte) error {
	f.addr = addr
	f.w = append([]byte(nil), w...)
	copy(r, f.reply[:])
	return nil
}

func TestReadIsBigEndian(t *testing.T) {
	f := &recI2C{reply: [2]byte{0x00, 0x12}}
	d := New(f)
	v, err := d.Version()
	if err != nil {
		t.Fatalf("Version: %v", err)
	}
	if v != 0x0012 {
		t.Fatalf("Version = 0x%04X, want 0x0012", v)
	}
	if f.addr != Address || len(f.w) != 1 || f.w[0] != regVersion {
		t.Fatalf("unexpected tx addr=0x%02X w=%v", f.addr, f.w)
	}
}

func TestTelemetryFixedPoint(t *testing.T) {
	s := NewSim(0)
	s.SetChargeRateRaw(-100)
	d := New(s)

	uv, err := d.CellMicroVolts()
	if err != nil || uv != 3_700_000 {
		t.Fatalf("CellMicroVolts = %d, %v; want 3700000", uv, err)
	}
	soc, err := d.StateOfChargeX100()
	if err != nil || soc != 8500 {
		t.Fatalf("StateOfChargeX100 = %d, %v; want 8500", soc, err)
	}
	rate, err := d.ChargeRateMilli()
	if err != nil || rate != -20_800 {
		t.Fatalf("ChargeRateMilli = %d, %v; want -20800", rate, err)
	}
}

func TestTelemetryFloat(t *testing.T) {
	s := NewSim(0)
	s.SetChargeRateRaw(50)
	d := New(s)

	v, _ := d.CellVoltage()
	if math.Abs(float64(v)-3.7) > 1e-4 {
		t.Fatalf("CellVoltage = %f", v)
	}
	soc, _ := d.StateOfCharge()
	if soc != 85 {
		t.Fatalf("StateOfCharge = %f", soc)
	}
	rate, _ := d.ChargeRate()
	if math.Abs(float64(rate)-10.4) > 1e-4 {
		t.Fatalf("ChargeRate = %f", rate)
	}
}

func TestStateOfChargeClamped(t *testing.T) {
	s := NewSim(0)
	s.SetStateOfChargeX256(0xFFFF)
	d := New(s)
	soc, err := d.StateOfChargeX100()
	if err != nil || soc != 10000 {
		t.Fatalf("StateOfChargeX100 = %d, %v; want 10000", soc, err)
	}
}

func TestIdentity(t *testing.T) {
	d := New(NewSim(0))
	id, err := d.ChipID()
	if err != nil || id != 0x3B {
		t.Fatalf("ChipID = 0x%02X, %v", id, err)
	}
	cfg, err := d.ConfigWord()
	if err != nil || cfg != 0x971C {
		t.Fatalf("ConfigWord = 0x%04X, %v", cfg, err)
	}
}

func TestResetClearsIndicator(t *testing.T) {
	s := NewSim(0)
	d := New(s)
	if err := d.Reset(); err != nil {
		t.Fatalf("Reset: %v", err)
	}
	if got := s.Register(regStatus); got != 0 {
		t.Fatalf("STATUS after reset = 0x%04X, want 0", got)
	}
	if got := s.Register(regVCell); got != 0 {
		t.Fatalf("VCELL after reset = 0x%04X, want power-on 0", got)
	}
}

func TestResetAckedIsError(t *testing.T) {
	d := New(&recI2C{})
	if err := d.Reset(); !errors.Is(err, ErrResetIgnored) {
		t.Fatalf("Reset err = %v, want ErrResetIgnored", err)
	}
}

func TestAlertFlags(t *testing.T) {
	s := NewSim(0)
	d := New(s)
	s.RaiseAlert(AlertSOCLow | AlertVoltageLow)

	f, err := d.AlertFlags()
	if err != nil {
		t.Fatalf("AlertFlags: %v", err)
	}
	if !f.Has(AlertSOCLow) || !f.Has(AlertVoltageLow) || !f.Has(AlertResetIndicator) {
		t.Fatalf("flags = 0x%02X", f)
	}
	if err := d.ClearAlertFlags(AlertSOCLow | AlertResetIndicator); err != nil {
		t.Fatalf("ClearAlertFlags: %v", err)
	}
	f, _ = d.AlertFlags()
	if f != AlertVoltageLow {
		t.Fatalf("flags after clear = 0x%02X, want VoltageLow only", f)
	}
	if s.Register(regConfig)&configALRT != 0 {
		t.Fatal("ALRT bit should be cleared")
	}
}

func TestModeControls(t *testing.T) {
	s := NewSim(0)
	d := New(s)

	if err := d.SetSleepMode(true); err != nil {
		t.Fatalf("SetSleepMode: %v", err)
	}
	if s.Register(regMode)&modeEnSleep == 0 || s.Register(regConfig)&configSleep == 0 {
		t.Fatalf("sleep not enabled: mode=0x%04X config=0x%04X", s.Register(regMode), s.Register(regConfig))
	}
	if err := d.SetSleepMode(false); err != nil {
		t.Fatalf("SetSleepMode(false): %v", err)
	}
	if s.Register(regConfig)&configSleep != 0 {
		t.Fatal("sleep bit should be cleared")
	}
	if err := d.SetQuickStart(true); err != nil {
		t.Fatalf("SetQuickStart: %v", err)
	}
	if s.Register(regMode)&modeQuickStart == 0 {
		t.Fatal("quick-start bit not set")
	}

	s.set(regMode, modeHibStat)
	hib, err := d.Hibernating()
	if err != nil || !hib {
		t.Fatalf("Hibernating = %v, %v", hib, err)
	}
}

func TestWrongAddressNacks(t *testing.T) {
	d := New(NewSim(0x37))
	if _, err := d.Version(); !errors.Is(err, ErrSimNack) {
		t.Fatalf("err = %v, want ErrSimNack", err)
	}
}

func TestSimDisconnected(t *testing.T) {
	s := NewSim(0)
	s.SetDisconnected(true)
	d := New(s)
	if _, err := d.CellMicroVolts(); err == nil {
		t.Fatal("expected error from disconnected sim")
	}
	if s.Transactions() != 1 {
		t.Fatalf("transactions = %d, want 1", s.Transactions())
	}
}
