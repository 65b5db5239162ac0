package main

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fuelgauge-go/drivers/max17048"
	"fuelgauge-go/services/config"
	"fuelgauge-go/services/hal/core"
	"fuelgauge-go/types"
)

func TestSimBusesServeEveryDevice(t *testing.T) {
	cfg := types.BuildConfig{Sensor: []map[string]any{
		{"platform": "max17048", "id": "a", "battery_level": nil},
		{"platform": "max17048", "id": "b", "address": 0x37, "battery_level": nil},
		{"platform": "max17048", "id": "c", "i2c_id": "i2c1"},
	}}
	plan, err := config.Build(cfg)
	require.NoError(t, err)

	app := core.NewApp(core.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
	sims := newSimBuses(app, cfg, plan)
	require.Len(t, sims, 3)

	st := app.Stage()
	require.NoError(t, plan.Replay(st))
	require.NoError(t, st.Commit())

	ctx := context.Background()
	require.NoError(t, app.Setup(ctx))
	sims[1].SetStateOfChargeX256(10 << 8)
	require.NoError(t, app.UpdateNow(ctx, "a"))
	require.NoError(t, app.UpdateNow(ctx, "b"))

	a, _ := app.Sensor("a_battery_level")
	b, _ := app.Sensor("b_battery_level")
	va, _ := a.State()
	vb, _ := b.State()
	assert.InDelta(t, 85.0, va, 1e-9)
	assert.InDelta(t, 10.0, vb, 1e-9)
}

func TestSimBusNacksUnknownAddress(t *testing.T) {
	b := &simBus{parts: map[uint16]*max17048.Sim{}}
	assert.ErrorIs(t, b.Tx(0x36, []byte{0x08}, make([]byte, 2)), max17048.ErrSimNack)
}
