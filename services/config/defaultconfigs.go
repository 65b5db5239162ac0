package config

import (
	"fuelgauge-go/errcode"
	"fuelgauge-go/types"
)

// -----------------------------------------------------------------------------
// Embedded configuration
//
// Named sample boards for the simulator and for tests.
// Key: board name
// Val: raw YAML for that board
// -----------------------------------------------------------------------------

const cfgPico = `i2c:
  - id: i2c0
    sda: 4
    scl: 5
    frequency: 400000
sensor:
  - platform: max17048
    id: battery
    update_interval: 5s
    battery_voltage:
      name: Battery Voltage
    battery_level:
      name: Battery Level
    battery_charge_rate:
      name: Battery Charge Rate
`

var embeddedConfigs = map[string][]byte{
	"pico": []byte(cfgPico),
}

// EmbeddedConfigLookup allows overriding how named configs are resolved.
var EmbeddedConfigLookup = func(board string) ([]byte, bool) {
	b, ok := embeddedConfigs[board]
	return b, ok
}

// Embedded parses the named built-in board config.
func Embedded(board string, lookup Lookup) (types.BuildConfig, error) {
	raw, ok := EmbeddedConfigLookup(board)
	if !ok || len(raw) == 0 {
		return types.BuildConfig{}, errcode.New(errcode.UnknownComponent, "embedded", "no embedded config for board: "+board)
	}
	return Parse(raw, FormatYAML, lookup)
}
