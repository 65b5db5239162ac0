package types

// BuildConfig is the parsed form of a device configuration file.
// Sensor entries stay untyped; each platform validates its own record.
type BuildConfig struct {
	I2C    []I2CBus         `yaml:"i2c" toml:"i2c"`
	Sensor []map[string]any `yaml:"sensor" toml:"sensor"`
}

// I2CBus declares a named bus the generated wiring may reference.
type I2CBus struct {
	ID          string `yaml:"id" toml:"id"`
	SDA         int    `yaml:"sda,omitempty" toml:"sda,omitempty"`
	SCL         int    `yaml:"scl,omitempty" toml:"scl,omitempty"`
	FrequencyHz uint32 `yaml:"frequency,omitempty" toml:"frequency,omitempty"`
}

// PlatformKey is the record key naming the platform that owns a sensor entry.
const PlatformKey = "platform"
