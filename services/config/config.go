// Package config loads board configuration files and turns their sensor
// records into a binding plan.
package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"fuelgauge-go/errcode"
	"fuelgauge-go/types"
)

// Format selects the file syntax.
type Format string

const (
	FormatYAML Format = "yaml"
	FormatTOML Format = "toml"
)

// FormatOf picks the format from a file extension.
func FormatOf(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML, nil
	case ".toml":
		return FormatTOML, nil
	}
	return "", errcode.New(errcode.Unsupported, "load", "unknown config extension: "+path)
}

// Lookup resolves a ${NAME} reference.
type Lookup func(name string) (string, bool)

// EnvLookup resolves names from envFile (if non-empty) and then the process
// environment.
func EnvLookup(envFile string) (Lookup, error) {
	vars := map[string]string{}
	if envFile != "" {
		m, err := godotenv.Read(envFile)
		if err != nil {
			return nil, fmt.Errorf("read env file: %w", err)
		}
		vars = m
	}
	return func(name string) (string, bool) {
		if v, ok := vars[name]; ok {
			return v, true
		}
		return os.LookupEnv(name)
	}, nil
}

// Load reads path, substitutes ${NAME} references and parses it.
func Load(path, envFile string) (types.BuildConfig, error) {
	format, err := FormatOf(path)
	if err != nil {
		return types.BuildConfig{}, err
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return types.BuildConfig{}, fmt.Errorf("read config: %w", err)
	}
	lookup, err := EnvLookup(envFile)
	if err != nil {
		return types.BuildConfig{}, err
	}
	cfg, err := Parse(raw, format, lookup)
	if err != nil {
		return types.BuildConfig{}, fmt.Errorf("%s: %w", filepath.Base(path), err)
	}
	return cfg, nil
}

// Parse decodes raw and then substitutes ${NAME} references in the decoded
// string values, so references inside comments are never resolved. Unknown
// top-level keys are rejected; sensor records are checked by their platform.
func Parse(raw []byte, format Format, lookup Lookup) (types.BuildConfig, error) {
	var cfg types.BuildConfig
	switch format {
	case FormatYAML:
		dec := yaml.NewDecoder(bytes.NewReader(raw))
		dec.KnownFields(true)
		if err := dec.Decode(&cfg); err != nil {
			return types.BuildConfig{}, fmt.Errorf("parse yaml: %w", err)
		}
	case FormatTOML:
		md, err := toml.Decode(string(raw), &cfg)
		if err != nil {
			return types.BuildConfig{}, fmt.Errorf("parse toml: %w", err)
		}
		// Keys below sensor land in maps, which the decoder still lists.
		for _, k := range md.Undecoded() {
			if len(k) > 0 && k[0] == "sensor" {
				continue
			}
			return types.BuildConfig{}, errcode.Invalid(k.String(), "unknown key", nil)
		}
	default:
		return cfg, errcode.New(errcode.Unsupported, "parse", string(format))
	}
	if err := expandConfig(&cfg, lookup); err != nil {
		return types.BuildConfig{}, err
	}
	return cfg, nil
}

var refRe = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// Substitute replaces every ${NAME} in s. The first reference lookup cannot
// resolve is returned as missing.
func Substitute(s string, lookup Lookup) (out string, missing string) {
	out = refRe.ReplaceAllStringFunc(s, func(m string) string {
		name := refRe.FindStringSubmatch(m)[1]
		if lookup != nil {
			if v, ok := lookup(name); ok {
				return v
			}
		}
		if missing == "" {
			missing = name
		}
		return m
	})
	return out, missing
}

func expandConfig(cfg *types.BuildConfig, lookup Lookup) error {
	for i := range cfg.I2C {
		path := fmt.Sprintf("i2c[%d].id", i)
		v, err := expandString(path, cfg.I2C[i].ID, lookup)
		if err != nil {
			return err
		}
		id, ok := v.(string)
		if !ok {
			return errcode.Invalid(path, "must be a string", v)
		}
		cfg.I2C[i].ID = id
	}
	for i, rec := range cfg.Sensor {
		v, err := expandValue(fmt.Sprintf("sensor[%d]", i), rec, lookup)
		if err != nil {
			return err
		}
		cfg.Sensor[i] = v.(map[string]any)
	}
	return nil
}

func expandValue(path string, v any, lookup Lookup) (any, error) {
	switch x := v.(type) {
	case string:
		return expandString(path, x, lookup)
	case map[string]any:
		out := make(map[string]any, len(x))
		for k, e := range x {
			ev, err := expandValue(path+"."+k, e, lookup)
			if err != nil {
				return nil, err
			}
			out[k] = ev
		}
		return out, nil
	case []any:
		out := make([]any, len(x))
		for i, e := range x {
			ev, err := expandValue(fmt.Sprintf("%s[%d]", path, i), e, lookup)
			if err != nil {
				return nil, err
			}
			out[i] = ev
		}
		return out, nil
	}
	return v, nil
}

// expandString substitutes references in s. A value that is exactly one
// reference takes the scalar type of its replacement ("0x36" -> 54,
// "true" -> true); anything else stays a string.
func expandString(path, s string, lookup Lookup) (any, error) {
	if !refRe.MatchString(s) {
		return s, nil
	}
	out, missing := Substitute(s, lookup)
	if missing != "" {
		return nil, errcode.Invalid(path, "unresolved variable ${"+missing+"}", s)
	}
	if loc := refRe.FindStringIndex(s); loc[0] != 0 || loc[1] != len(s) {
		return out, nil
	}
	var scalar any
	if err := yaml.Unmarshal([]byte(out), &scalar); err != nil {
		return out, nil
	}
	switch scalar.(type) {
	case string, int, float64, bool:
		return scalar, nil
	}
	return out, nil
}
