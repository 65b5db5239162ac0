package main

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fuelgauge-go/errcode"
	"fuelgauge-go/services/codegen"
)

const board = `i2c:
  - id: i2c0
sensor:
  - platform: max17048
    id: battery
    update_interval: ${POLL}
    battery_level:
`

func quiet() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

func TestRunWritesSourceAndPlan(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "board.yaml")
	envPath := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(cfgPath, []byte(board), 0o644))
	require.NoError(t, os.WriteFile(envPath, []byte("POLL=15s\n"), 0o644))

	out := filepath.Join(dir, "gen", "gauges_gen.go")
	planPath := filepath.Join(dir, "plan.cbor")
	require.NoError(t, run(quiet(), cfgPath, envPath, out, "board", planPath))

	src, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(src), "// Code generated by max17048gen. DO NOT EDIT."))
	assert.Contains(t, string(src), "package board")
	assert.Contains(t, string(src), "app.RegisterComponent(battery, 15*time.Second)")
	assert.Contains(t, string(src), "battery.SetBatteryLevelSensor(battery_battery_level)")

	f, err := os.Open(planPath)
	require.NoError(t, err)
	defer f.Close()
	plan, err := codegen.DecodeCBOR(f)
	require.NoError(t, err)
	assert.Equal(t, 1, plan.Count(codegen.OpAttachSensor))
}

func TestRunValidationFailureWritesNothing(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "board.yaml")
	bad := strings.Replace(board, "battery_level:", "battery_level:\n      accuracy_decimals: 0.5", 1)
	require.NoError(t, os.WriteFile(cfgPath, []byte(strings.Replace(bad, "${POLL}", "10s", 1)), 0o644))

	out := filepath.Join(dir, "gauges_gen.go")
	err := run(quiet(), cfgPath, "", out, "main", "")
	require.Error(t, err)
	assert.Equal(t, errcode.InvalidParams, errcode.Of(err))
	assert.Contains(t, err.Error(), "battery_level.accuracy_decimals")
	assert.NoFileExists(t, out)
}

func TestWritePlanRejectsUnknownExtension(t *testing.T) {
	err := writePlan(filepath.Join(t.TempDir(), "plan.json"), codegen.Plan{})
	assert.Error(t, err)
}
