package core

import (
	"math"
	"strconv"
	"sync"

	"fuelgauge-go/types"
)

// SensorSpec is the descriptor of one published measurement stream.
type SensorSpec struct {
	ID                string            `json:"id" yaml:"id"`
	Name              string            `json:"name" yaml:"name"`
	UniqueID          string            `json:"unique_id,omitempty" yaml:"unique_id,omitempty"`
	Kind              types.Kind        `json:"kind" yaml:"kind"`
	Unit              types.Unit        `json:"unit,omitempty" yaml:"unit,omitempty"`
	AccuracyDecimals  int               `json:"accuracy_decimals" yaml:"accuracy_decimals"`
	DeviceClass       types.DeviceClass `json:"device_class,omitempty" yaml:"device_class,omitempty"`
	StateClass        types.StateClass  `json:"state_class,omitempty" yaml:"state_class,omitempty"`
	Icon              string            `json:"icon,omitempty" yaml:"icon,omitempty"`
	Internal          bool              `json:"internal,omitempty" yaml:"internal,omitempty"`
	DisabledByDefault bool              `json:"disabled_by_default,omitempty" yaml:"disabled_by_default,omitempty"`
}

// Sensor holds a descriptor and the last published state.
type Sensor struct {
	spec SensorSpec

	mu    sync.Mutex
	state float64
	has   bool
	cbs   []func(s *Sensor, v float64)
}

func NewSensor(spec SensorSpec) *Sensor {
	return &Sensor{spec: spec, state: math.NaN()}
}

func (s *Sensor) Spec() SensorSpec { return s.spec }
func (s *Sensor) ID() string       { return s.spec.ID }

// OnState registers fn to be called after every Publish.
func (s *Sensor) OnState(fn func(s *Sensor, v float64)) {
	s.mu.Lock()
	s.cbs = append(s.cbs, fn)
	s.mu.Unlock()
}

// Publish stores v and notifies subscribers outside the lock.
func (s *Sensor) Publish(v float64) {
	s.mu.Lock()
	s.state = v
	s.has = true
	cbs := s.cbs
	s.mu.Unlock()
	for _, fn := range cbs {
		fn(s, v)
	}
}

// State returns the last published value; ok is false before the first Publish.
func (s *Sensor) State() (v float64, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state, s.has
}

// Format renders v with the sensor's accuracy and unit.
func (s *Sensor) Format(v float64) string {
	if math.IsNaN(v) {
		return "NaN"
	}
	out := strconv.FormatFloat(v, 'f', s.spec.AccuracyDecimals, 64)
	if s.spec.Unit != "" {
		out += " " + string(s.spec.Unit)
	}
	return out
}
