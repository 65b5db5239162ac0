package max17048dev

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fuelgauge-go/errcode"
	"fuelgauge-go/types"
)

func requireInvalid(t *testing.T, err error, path string) *errcode.ValidationError {
	t.Helper()
	require.Error(t, err)
	var ve *errcode.ValidationError
	require.True(t, errors.As(err, &ve), "want ValidationError, got %T: %v", err, err)
	assert.Equal(t, path, ve.Path)
	assert.Equal(t, errcode.InvalidParams, errcode.Of(err))
	return ve
}

func TestValidateDefaults(t *testing.T) {
	cfg, err := Validate(map[string]any{"id": "gauge"})
	require.NoError(t, err)

	assert.Equal(t, "gauge", cfg.ID)
	assert.Equal(t, uint16(0x36), cfg.Address)
	assert.Equal(t, 60*time.Second, cfg.UpdateInterval)
	assert.Equal(t, "i2c0", cfg.Bus)
	assert.Nil(t, cfg.BatteryVoltage)
	assert.Nil(t, cfg.BatteryLevel)
	assert.Nil(t, cfg.BatteryChargeRate)
	assert.Empty(t, cfg.Sensors())
}

func TestValidateExplicitValues(t *testing.T) {
	cfg, err := Validate(map[string]any{
		"id":              "pack",
		"platform":        "max17048",
		"address":         "0x37",
		"update_interval": "5min",
		"i2c_id":          "i2c1",
	})
	require.NoError(t, err)
	assert.Equal(t, uint16(0x37), cfg.Address)
	assert.Equal(t, 5*time.Minute, cfg.UpdateInterval)
	assert.Equal(t, "i2c1", cfg.Bus)

	cfg, err = Validate(map[string]any{"id": "pack", "address": 0x10, "update_interval": "never"})
	require.NoError(t, err)
	assert.Equal(t, uint16(0x10), cfg.Address)
	assert.Zero(t, cfg.UpdateInterval)
}

func TestValidateIntervalForms(t *testing.T) {
	cases := map[string]time.Duration{
		"500ms": 500 * time.Millisecond,
		"60s":   time.Minute,
		"1min":  time.Minute,
		"2h":    2 * time.Hour,
		"never": 0,
	}
	for in, want := range cases {
		cfg, err := Validate(map[string]any{"id": "g", "update_interval": in})
		require.NoError(t, err, in)
		assert.Equal(t, want, cfg.UpdateInterval, in)
	}
	for _, bad := range []any{"soon", "0s", "-5s", 60, true} {
		_, err := Validate(map[string]any{"id": "g", "update_interval": bad})
		requireInvalid(t, err, "update_interval")
	}
}

func TestValidateRejectsUnknownKey(t *testing.T) {
	_, err := Validate(map[string]any{"id": "gauge", "adress": 0x36})
	ve := requireInvalid(t, err, "adress")
	assert.Contains(t, ve.Constraint, "unknown")

	_, err = Validate(map[string]any{"id": "gauge", "battery_level": map[string]any{"unit": "V"}})
	requireInvalid(t, err, "battery_level.unit")
}

func TestValidateID(t *testing.T) {
	_, err := Validate(map[string]any{})
	requireInvalid(t, err, "id")

	for _, bad := range []any{"", "1gauge", "my-gauge", "func", 7} {
		_, err := Validate(map[string]any{"id": bad})
		requireInvalid(t, err, "id")
	}
	_, err = Validate(map[string]any{"id": nil})
	requireInvalid(t, err, "id")
}

func TestValidateAddress(t *testing.T) {
	for in, want := range map[string]uint16{"0x36": 0x36, "0X7f": 0x7F, "010": 10, " 42 ": 42} {
		cfg, err := Validate(map[string]any{"id": "g", "address": in})
		require.NoError(t, err, in)
		assert.Equal(t, want, cfg.Address, in)
	}
	for _, bad := range []any{0x80, -1, "0xZZ", "thirty", 54.5, "0b101", "0o17", "1_0", "0x-1"} {
		_, err := Validate(map[string]any{"id": "g", "address": bad})
		requireInvalid(t, err, "address")
	}
}

func TestValidatePlatformMismatch(t *testing.T) {
	_, err := Validate(map[string]any{"id": "g", "platform": "ina219"})
	requireInvalid(t, err, "platform")
}

func TestValidateSensorDefaults(t *testing.T) {
	cfg, err := Validate(map[string]any{
		"id":                  "gauge",
		"battery_voltage":     nil,
		"battery_level":       map[string]any{},
		"battery_charge_rate": map[string]any{"name": "Rate", "id": "rate", "icon": "mdi:battery-charging"},
	})
	require.NoError(t, err)
	require.Len(t, cfg.Sensors(), 3)

	v := cfg.BatteryVoltage
	require.NotNil(t, v)
	assert.Equal(t, "gauge_battery_voltage", v.ID)
	assert.Equal(t, "Battery Voltage", v.Name)
	assert.Equal(t, types.UnitVolt, v.Unit)
	assert.Equal(t, 2, v.AccuracyDecimals)
	assert.Equal(t, types.DeviceClassBattery, v.DeviceClass)
	assert.Equal(t, types.StateClassMeasurement, v.StateClass)
	assert.NotEmpty(t, v.UniqueID)

	l := cfg.BatteryLevel
	require.NotNil(t, l)
	assert.Equal(t, types.UnitPercent, l.Unit)
	assert.Equal(t, 0, l.AccuracyDecimals)

	r := cfg.BatteryChargeRate
	require.NotNil(t, r)
	assert.Equal(t, "rate", r.ID)
	assert.Equal(t, "Rate", r.Name)
	assert.Equal(t, types.UnitPercentPerHour, r.Unit)
	assert.Equal(t, "mdi:battery-charging", r.Icon)

	assert.NotEqual(t, v.UniqueID, l.UniqueID)
}

func TestValidateSensorOverrides(t *testing.T) {
	cfg, err := Validate(map[string]any{
		"id": "gauge",
		"battery_voltage": map[string]any{
			"accuracy_decimals":   3,
			"internal":            true,
			"disabled_by_default": true,
		},
	})
	require.NoError(t, err)
	assert.Equal(t, 3, cfg.BatteryVoltage.AccuracyDecimals)
	assert.True(t, cfg.BatteryVoltage.Internal)
	assert.True(t, cfg.BatteryVoltage.DisabledByDefault)

	// Whole floats decode as integers (JSON and some YAML sources).
	cfg, err = Validate(map[string]any{"id": "gauge", "battery_level": map[string]any{"accuracy_decimals": 1.0}})
	require.NoError(t, err)
	assert.Equal(t, 1, cfg.BatteryLevel.AccuracyDecimals)
}

func TestValidateNonIntegerPrecision(t *testing.T) {
	_, err := Validate(map[string]any{
		"id":              "gauge",
		"battery_voltage": map[string]any{"accuracy_decimals": 1.5},
	})
	ve := requireInvalid(t, err, "battery_voltage.accuracy_decimals")
	assert.Equal(t, 1.5, ve.Value)
}

func TestValidateSensorErrors(t *testing.T) {
	cases := []struct {
		sub  map[string]any
		path string
	}{
		{map[string]any{"accuracy_decimals": 9}, "battery_level.accuracy_decimals"},
		{map[string]any{"accuracy_decimals": -1}, "battery_level.accuracy_decimals"},
		{map[string]any{"name": "  "}, "battery_level.name"},
		{map[string]any{"id": "bad id"}, "battery_level.id"},
		{map[string]any{"icon": "battery"}, "battery_level.icon"},
		{map[string]any{"internal": "yes please"}, "battery_level.internal"},
	}
	for _, tc := range cases {
		_, err := Validate(map[string]any{"id": "gauge", "battery_level": tc.sub})
		requireInvalid(t, err, tc.path)
	}

	_, err := Validate(map[string]any{"id": "gauge", "battery_level": "on"})
	requireInvalid(t, err, "battery_level")
}

func TestValidateDuplicateIDs(t *testing.T) {
	_, err := Validate(map[string]any{
		"id":            "gauge",
		"battery_level": map[string]any{"id": "gauge"},
	})
	requireInvalid(t, err, "battery_level.id")

	_, err = Validate(map[string]any{
		"id":                  "gauge",
		"battery_level":       map[string]any{"id": "pct"},
		"battery_charge_rate": map[string]any{"id": "pct"},
	})
	requireInvalid(t, err, "battery_charge_rate.id")
}

func TestValidateIsIdempotent(t *testing.T) {
	record := map[string]any{
		"id":                  "gauge",
		"address":             "0x36",
		"update_interval":     "30s",
		"battery_voltage":     nil,
		"battery_charge_rate": map[string]any{"accuracy_decimals": 1},
	}
	a, err := Validate(record)
	require.NoError(t, err)
	b, err := Validate(record)
	require.NoError(t, err)
	assert.Equal(t, a, b)

	// The record itself is untouched.
	assert.Nil(t, record["battery_voltage"])
	assert.Len(t, record, 5)
}

func TestValidateFirstErrorIsDeterministic(t *testing.T) {
	record := map[string]any{"id": "gauge", "zeta": 1, "alpha": 2, "beta": 3}
	for i := 0; i < 10; i++ {
		_, err := Validate(record)
		requireInvalid(t, err, "alpha")
	}
}
