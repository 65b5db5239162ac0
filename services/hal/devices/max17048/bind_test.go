package max17048dev

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fuelgauge-go/errcode"
	"fuelgauge-go/services/hal/core"
	"fuelgauge-go/types"
)

// callLog is a Target that records calls as strings and can fail on one.
type callLog struct {
	calls  []string
	failOn string
}

var _ core.Target = (*callLog)(nil)

func (l *callLog) add(op, s string) error {
	l.calls = append(l.calls, op+" "+s)
	if op == l.failOn {
		return errcode.New(errcode.DuplicateID, op, s)
	}
	return nil
}

func (l *callLog) NewComponent(platform, id string) error {
	return l.add("new_component", platform+"/"+id)
}

func (l *callLog) RegisterComponent(id string, every time.Duration) error {
	return l.add("register_component", fmt.Sprintf("%s every=%s", id, every))
}

func (l *callLog) RegisterI2CDevice(id, bus string, addr uint16) error {
	return l.add("register_i2c_device", fmt.Sprintf("%s %s 0x%02X", id, bus, addr))
}

func (l *callLog) NewSensor(spec core.SensorSpec) error {
	return l.add("new_sensor", spec.ID)
}

func (l *callLog) AttachSensor(componentID string, kind types.Kind, sensorID string) error {
	return l.add("attach_sensor", fmt.Sprintf("%s %s %s", componentID, kind, sensorID))
}

func (l *callLog) count(op string) int {
	n := 0
	for _, c := range l.calls {
		if len(c) > len(op) && c[:len(op)+1] == op+" " {
			n++
		}
	}
	return n
}

func mustValidate(t *testing.T, record map[string]any) Config {
	t.Helper()
	cfg, err := Validate(record)
	require.NoError(t, err)
	return cfg
}

func TestBindNoSensors(t *testing.T) {
	var l callLog
	require.NoError(t, Bind(mustValidate(t, map[string]any{"id": "gauge"}), &l))

	assert.Equal(t, []string{
		"new_component max17048/gauge",
		"register_component gauge every=1m0s",
		"register_i2c_device gauge i2c0 0x36",
	}, l.calls)
	assert.Equal(t, 1, l.count("new_component"))
	assert.Zero(t, l.count("new_sensor"))
}

func TestBindSensorCounts(t *testing.T) {
	keys := []string{"battery_voltage", "battery_level", "battery_charge_rate"}
	for k := 0; k <= len(keys); k++ {
		record := map[string]any{"id": "gauge"}
		for _, key := range keys[:k] {
			record[key] = nil
		}
		var l callLog
		require.NoError(t, Bind(mustValidate(t, record), &l))
		assert.Equal(t, 1, l.count("new_component"), "k=%d", k)
		assert.Equal(t, k, l.count("new_sensor"), "k=%d", k)
		assert.Equal(t, k, l.count("attach_sensor"), "k=%d", k)
	}
}

func TestBindOrder(t *testing.T) {
	cfg := mustValidate(t, map[string]any{
		"id":                  "pack",
		"address":             0x37,
		"update_interval":     "never",
		"i2c_id":              "i2c1",
		"battery_charge_rate": nil,
		"battery_voltage":     map[string]any{"id": "volts"},
	})
	var l callLog
	require.NoError(t, Bind(cfg, &l))
	assert.Equal(t, []string{
		"new_component max17048/pack",
		"register_component pack every=0s",
		"register_i2c_device pack i2c1 0x37",
		"new_sensor volts",
		"attach_sensor pack battery_voltage volts",
		"new_sensor pack_battery_charge_rate",
		"attach_sensor pack battery_charge_rate pack_battery_charge_rate",
	}, l.calls)
}

func TestBindStopsAtFirstError(t *testing.T) {
	cfg := mustValidate(t, map[string]any{"id": "gauge", "battery_level": nil})
	l := callLog{failOn: "register_i2c_device"}
	err := Bind(cfg, &l)
	require.Error(t, err)
	assert.Equal(t, errcode.DuplicateID, errcode.Of(err))
	assert.Contains(t, err.Error(), "bind gauge")
	assert.Len(t, l.calls, 3)
	assert.Zero(t, l.count("new_sensor"))
}

func TestPlatformRegistered(t *testing.T) {
	p, ok := core.LookupPlatform(Platform)
	require.True(t, ok)

	info := p.Info()
	assert.Equal(t, "max17048dev", info.Package)
	assert.Equal(t, "New", info.Constructor)
	assert.Equal(t, "SetBatteryLevelSensor", info.Setters[types.KindBatteryLevel])

	cfg, err := p.Validate(map[string]any{"id": "gauge"})
	require.NoError(t, err)
	var l callLog
	require.NoError(t, p.Bind(cfg, &l))
	c := cfg.(Config)
	require.NoError(t, p.Bind(&c, &l))
	assert.Equal(t, errcode.InvalidParams, errcode.Of(p.Bind("gauge", &l)))

	_, err = p.Validate(map[string]any{"id": "gauge", "nope": 1})
	var ve *errcode.ValidationError
	assert.True(t, errors.As(err, &ve))
}

func TestPlatformAttach(t *testing.T) {
	p, _ := core.LookupPlatform(Platform)
	d := p.New("gauge")
	s := core.NewSensor(core.SensorSpec{ID: "v", Kind: types.KindBatteryVoltage})
	require.NoError(t, p.Attach(d, types.KindBatteryVoltage, s))
	assert.Same(t, s, d.(*Device).voltage)

	assert.Equal(t, errcode.Unsupported, errcode.Of(p.Attach(d, types.Kind("temperature"), s)))
}
