package max17048dev

import (
	"go/token"
	"math"
	"reflect"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/mitchellh/mapstructure"

	"fuelgauge-go/errcode"
	"fuelgauge-go/services/hal/core"
	"fuelgauge-go/types"
	"fuelgauge-go/x/mathx"
)

var (
	identRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)
	iconRe  = regexp.MustCompile(`^mdi:[a-z0-9-]+$`)

	durationType = reflect.TypeOf(time.Duration(0))
)

const (
	cIdent    = "must be an identifier ([A-Za-z_][A-Za-z0-9_]*, not a Go keyword)"
	cInterval = "must be a positive duration such as 60s or 5min, or never"
	cAddress  = "must be a 7-bit I2C address (0x00-0x7F)"
	cDecimals = "must be an integer between 0 and 8"
)

// Validate checks a configuration record and applies defaults.
// It does not modify record; equal records give equal Configs.
func Validate(record map[string]any) (Config, error) {
	cfg := Config{
		Bus:            DefaultBus,
		Address:        DefaultAddress,
		UpdateInterval: DefaultUpdateInterval,
	}
	var (
		platform string
		addr     int64 = DefaultAddress
		subs           = map[types.Kind]map[string]any{}
	)
	fields := map[string]any{
		keyID:             &cfg.ID,
		keyPlatform:       &platform,
		keyUpdateInterval: &cfg.UpdateInterval,
		keyAddress:        &addr,
		keyBus:            &cfg.Bus,
	}
	for _, k := range sensorKinds {
		fields[string(k.kind)] = subConfig(func(m map[string]any) { subs[k.kind] = m })
	}
	if err := decodeFields("", record, fields); err != nil {
		return Config{}, err
	}

	if _, ok := record[keyID]; !ok {
		return Config{}, errcode.Invalid(keyID, "required", nil)
	}
	if !isIdent(cfg.ID) {
		return Config{}, errcode.Invalid(keyID, cIdent, cfg.ID)
	}
	if _, ok := record[keyPlatform]; ok && platform != Platform {
		return Config{}, errcode.Invalid(keyPlatform, strconv.Quote(Platform)+" expected", platform)
	}
	if !isIdent(cfg.Bus) {
		return Config{}, errcode.Invalid(keyBus, cIdent, cfg.Bus)
	}
	if !mathx.Between(addr, 0x00, 0x7F) {
		return Config{}, errcode.Invalid(keyAddress, cAddress, record[keyAddress])
	}
	cfg.Address = uint16(addr)

	seen := map[string]string{cfg.ID: keyID}
	for _, k := range sensorKinds {
		m, ok := subs[k.kind]
		if !ok {
			continue
		}
		spec, err := validateSensor(cfg.ID, k, m)
		if err != nil {
			return Config{}, err
		}
		path := string(k.kind) + "." + keyID
		if prev, dup := seen[spec.ID]; dup {
			return Config{}, errcode.Invalid(path, "duplicate id (also used by "+prev+")", spec.ID)
		}
		seen[spec.ID] = path
		*cfg.slot(k.kind) = &spec
	}
	return cfg, nil
}

func validateSensor(deviceID string, k sensorKind, m map[string]any) (core.SensorSpec, error) {
	prefix := string(k.kind)
	spec := core.SensorSpec{
		ID:          deviceID + "_" + string(k.kind),
		Name:        k.name,
		Kind:        k.kind,
		Unit:        k.unit,
		DeviceClass: types.DeviceClassBattery,
		StateClass:  types.StateClassMeasurement,
	}
	decimals := int64(k.decimals)
	fields := map[string]any{
		keyID:                &spec.ID,
		keyName:              &spec.Name,
		keyAccuracyDecimals:  &decimals,
		keyIcon:              &spec.Icon,
		keyInternal:          &spec.Internal,
		keyDisabledByDefault: &spec.DisabledByDefault,
	}
	if err := decodeFields(prefix, m, fields); err != nil {
		return core.SensorSpec{}, err
	}
	switch {
	case !isIdent(spec.ID):
		return core.SensorSpec{}, errcode.Invalid(prefix+"."+keyID, cIdent, spec.ID)
	case strings.TrimSpace(spec.Name) == "":
		return core.SensorSpec{}, errcode.Invalid(prefix+"."+keyName, "must not be empty", spec.Name)
	case !mathx.Between(decimals, 0, maxAccuracyDecimals):
		return core.SensorSpec{}, errcode.Invalid(prefix+"."+keyAccuracyDecimals, cDecimals, m[keyAccuracyDecimals])
	case spec.Icon != "" && !iconRe.MatchString(spec.Icon):
		return core.SensorSpec{}, errcode.Invalid(prefix+"."+keyIcon, "must look like mdi:<name>", spec.Icon)
	}
	spec.AccuracyDecimals = int(decimals)
	spec.UniqueID = uuid.NewSHA1(uuid.NameSpaceURL, []byte("max17048://"+deviceID+"/"+string(k.kind))).String()
	return spec, nil
}

// subConfig receives a sensor sub-config mapping. A null value enables the
// sensor with defaults.
type subConfig func(m map[string]any)

// decodeFields decodes each key of m into its destination in fields, in
// sorted key order. Unknown keys and type mismatches become ValidationErrors.
func decodeFields(prefix string, m map[string]any, fields map[string]any) error {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		path := k
		if prefix != "" {
			path = prefix + "." + k
		}
		dst, ok := fields[k]
		if !ok {
			return errcode.Invalid(path, "unknown key", nil)
		}
		v := m[k]
		if sink, ok := dst.(subConfig); ok {
			var sub map[string]any
			if v != nil {
				if err := decodeValue(v, &sub); err != nil {
					return errcode.Invalid(path, "must be a mapping", v)
				}
			}
			if sub == nil {
				sub = map[string]any{}
			}
			sink(sub)
			continue
		}
		if v == nil {
			return errcode.Invalid(path, "must not be null", nil)
		}
		if err := decodeValue(v, dst); err != nil {
			return errcode.Invalid(path, constraintFor(dst), v)
		}
	}
	return nil
}

func decodeValue(in, dst any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			durationHook,
			hexIntHook,
			integralHook,
		),
		ErrorUnused: true,
		Result:      dst,
	})
	if err != nil {
		return err
	}
	return dec.Decode(in)
}

func constraintFor(dst any) string {
	switch dst.(type) {
	case *string:
		return "must be a string"
	case *bool:
		return "must be a boolean"
	case *time.Duration:
		return cInterval
	case *int64:
		return "must be an integer"
	}
	return "has the wrong type"
}

// ---- Decode hooks ----

type errHook string

func (e errHook) Error() string { return string(e) }

func durationHook(from, to reflect.Type, data any) (any, error) {
	if to != durationType {
		return data, nil
	}
	s, ok := data.(string)
	if !ok {
		return nil, errHook("duration must be a string with a unit")
	}
	d, err := parseInterval(s)
	if err != nil {
		return nil, err
	}
	return d, nil
}

// parseInterval accepts Go durations, a "min" suffix and "never" (=> 0).
func parseInterval(s string) (time.Duration, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "never" {
		return 0, nil
	}
	if strings.HasSuffix(s, "min") {
		s = strings.TrimSuffix(s, "min") + "m"
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, err
	}
	if d <= 0 {
		return 0, errHook("duration must be positive")
	}
	return d, nil
}

// hexIntHook parses integer strings: "0x36" as hex, anything else as
// decimal ("010" is ten).
func hexIntHook(from, to reflect.Type, data any) (any, error) {
	s, ok := data.(string)
	if !ok || to.Kind() != reflect.Int64 || to == durationType {
		return data, nil
	}
	s = strings.TrimSpace(s)
	base := 10
	if digits, ok := strings.CutPrefix(strings.ToLower(s), "0x"); ok {
		s, base = digits, 16
	}
	n, err := strconv.ParseInt(s, base, 64)
	if err != nil {
		return nil, err
	}
	return n, nil
}

// integralHook rejects non-integral floats for integer targets; mapstructure
// would otherwise truncate them.
func integralHook(from, to reflect.Type, data any) (any, error) {
	if to.Kind() != reflect.Int64 || to == durationType {
		return data, nil
	}
	var f float64
	switch v := data.(type) {
	case float64:
		f = v
	case float32:
		f = float64(v)
	default:
		return data, nil
	}
	if f != math.Trunc(f) || math.Abs(f) > 1<<53 {
		return nil, errHook("not an integer")
	}
	return int64(f), nil
}

func isIdent(s string) bool {
	return identRe.MatchString(s) && !token.IsKeyword(s)
}
