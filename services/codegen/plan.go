// Package codegen turns binding calls into artefacts: a recorded Plan that
// can be replayed or serialised, and Go source that performs the same wiring
// against a core.App at boot.
package codegen

import (
	"fmt"
	"io"
	"time"

	"github.com/fxamacker/cbor/v2"
	"gopkg.in/yaml.v3"

	"fuelgauge-go/errcode"
	"fuelgauge-go/services/hal/core"
	"fuelgauge-go/types"
)

// Op names one binding call.
type Op string

const (
	OpNewComponent      Op = "new_component"
	OpRegisterComponent Op = "register_component"
	OpRegisterI2CDevice Op = "register_i2c_device"
	OpNewSensor         Op = "new_sensor"
	OpAttachSensor      Op = "attach_sensor"
)

// Call is one recorded binding call. Only the fields relevant to Op are set.
type Call struct {
	Op        Op               `json:"op" yaml:"op"`
	Component string           `json:"component,omitempty" yaml:"component,omitempty"`
	Platform  string           `json:"platform,omitempty" yaml:"platform,omitempty"`
	Interval  time.Duration    `json:"interval,omitempty" yaml:"interval,omitempty"`
	Bus       string           `json:"bus,omitempty" yaml:"bus,omitempty"`
	Address   uint16           `json:"address,omitempty" yaml:"address,omitempty"`
	Kind      types.Kind       `json:"kind,omitempty" yaml:"kind,omitempty"`
	SensorID  string           `json:"sensor_id,omitempty" yaml:"sensor_id,omitempty"`
	Sensor    *core.SensorSpec `json:"sensor,omitempty" yaml:"sensor,omitempty"`
}

// Plan is an ordered list of binding calls.
type Plan struct {
	Calls []Call `json:"calls" yaml:"calls"`
}

// Count returns how many calls of op the plan holds.
func (p Plan) Count(op Op) int {
	n := 0
	for _, c := range p.Calls {
		if c.Op == op {
			n++
		}
	}
	return n
}

// Replay drives t with the recorded calls, stopping at the first error.
func (p Plan) Replay(t core.Target) error {
	for i, c := range p.Calls {
		var err error
		switch c.Op {
		case OpNewComponent:
			err = t.NewComponent(c.Platform, c.Component)
		case OpRegisterComponent:
			err = t.RegisterComponent(c.Component, c.Interval)
		case OpRegisterI2CDevice:
			err = t.RegisterI2CDevice(c.Component, c.Bus, c.Address)
		case OpNewSensor:
			if c.Sensor == nil {
				err = errcode.New(errcode.InvalidParams, string(c.Op), "missing sensor spec")
			} else {
				err = t.NewSensor(*c.Sensor)
			}
		case OpAttachSensor:
			err = t.AttachSensor(c.Component, c.Kind, c.SensorID)
		default:
			err = errcode.New(errcode.Unsupported, "replay", string(c.Op))
		}
		if err != nil {
			return fmt.Errorf("replay call %d (%s): %w", i, c.Op, err)
		}
	}
	return nil
}

// ---- Encoding ----

func (p Plan) EncodeCBOR(w io.Writer) error { return cbor.NewEncoder(w).Encode(p) }
func (p Plan) EncodeYAML(w io.Writer) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(p); err != nil {
		return err
	}
	return enc.Close()
}

func DecodeCBOR(r io.Reader) (Plan, error) {
	var p Plan
	err := cbor.NewDecoder(r).Decode(&p)
	return p, err
}

func DecodeYAML(r io.Reader) (Plan, error) {
	var p Plan
	err := yaml.NewDecoder(r).Decode(&p)
	return p, err
}

// ---- Recorder ----

// Compile-time check.
var _ core.Target = (*Recorder)(nil)

// Recorder is a Target that records calls after checking references: known
// platform, unique ids, and components/sensors that exist before use.
type Recorder struct {
	plan    Plan
	comps   map[string]string // id -> platform
	sensors map[string]bool
}

func NewRecorder() *Recorder {
	return &Recorder{comps: map[string]string{}, sensors: map[string]bool{}}
}

// Plan returns a copy of the recorded calls.
func (r *Recorder) Plan() Plan {
	return Plan{Calls: append([]Call(nil), r.plan.Calls...)}
}

func (r *Recorder) NewComponent(platform, id string) error {
	if _, ok := core.LookupPlatform(platform); !ok {
		return errcode.New(errcode.UnknownPlatform, string(OpNewComponent), platform)
	}
	if _, dup := r.comps[id]; dup || r.sensors[id] {
		return errcode.New(errcode.DuplicateID, string(OpNewComponent), id)
	}
	r.comps[id] = platform
	r.add(Call{Op: OpNewComponent, Platform: platform, Component: id})
	return nil
}

func (r *Recorder) RegisterComponent(id string, every time.Duration) error {
	if err := r.known(OpRegisterComponent, id); err != nil {
		return err
	}
	r.add(Call{Op: OpRegisterComponent, Component: id, Interval: every})
	return nil
}

func (r *Recorder) RegisterI2CDevice(id, bus string, addr uint16) error {
	if err := r.known(OpRegisterI2CDevice, id); err != nil {
		return err
	}
	r.add(Call{Op: OpRegisterI2CDevice, Component: id, Bus: bus, Address: addr})
	return nil
}

func (r *Recorder) NewSensor(spec core.SensorSpec) error {
	if _, dup := r.comps[spec.ID]; dup || r.sensors[spec.ID] {
		return errcode.New(errcode.DuplicateID, string(OpNewSensor), spec.ID)
	}
	r.sensors[spec.ID] = true
	s := spec
	r.add(Call{Op: OpNewSensor, SensorID: spec.ID, Sensor: &s})
	return nil
}

func (r *Recorder) AttachSensor(componentID string, kind types.Kind, sensorID string) error {
	if err := r.known(OpAttachSensor, componentID); err != nil {
		return err
	}
	if !r.sensors[sensorID] {
		return errcode.New(errcode.UnknownComponent, string(OpAttachSensor), sensorID)
	}
	r.add(Call{Op: OpAttachSensor, Component: componentID, Kind: kind, SensorID: sensorID})
	return nil
}

func (r *Recorder) known(op Op, id string) error {
	if _, ok := r.comps[id]; !ok {
		return errcode.New(errcode.UnknownComponent, string(op), id)
	}
	return nil
}

func (r *Recorder) add(c Call) { r.plan.Calls = append(r.plan.Calls, c) }
