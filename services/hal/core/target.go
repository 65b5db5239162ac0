package core

import (
	"time"

	"fuelgauge-go/errcode"
	"fuelgauge-go/types"
)

// Target receives binding calls. Implementations build objects, record the
// calls, or emit source code. Calls arrive in dependency order: a component is
// created and registered before sensors are attached to it.
type Target interface {
	NewComponent(platform, id string) error
	RegisterComponent(id string, every time.Duration) error
	RegisterI2CDevice(id, bus string, addr uint16) error
	NewSensor(spec SensorSpec) error
	AttachSensor(componentID string, kind types.Kind, sensorID string) error
}

// Compile-time check.
var _ Target = (*Staging)(nil)

type stagedComp struct {
	c          Component
	platform   Platform
	every      time.Duration
	registered bool
}

// Staging builds components and sensors for an App without exposing them.
// Nothing becomes visible in the App until Commit succeeds.
type Staging struct {
	app *App

	comps       map[string]*stagedComp
	compOrder   []string
	sensors     map[string]*Sensor
	sensorOrder []string
	closed      bool
}

// Stage opens a staging area for a.
func (a *App) Stage() *Staging {
	return &Staging{
		app:     a,
		comps:   map[string]*stagedComp{},
		sensors: map[string]*Sensor{},
	}
}

func (s *Staging) NewComponent(platform, id string) error {
	if err := s.open("new_component"); err != nil {
		return err
	}
	p, ok := LookupPlatform(platform)
	if !ok {
		return errcode.New(errcode.UnknownPlatform, "new_component", platform)
	}
	if s.compTaken(id) {
		return errcode.New(errcode.DuplicateID, "new_component", id)
	}
	s.comps[id] = &stagedComp{c: p.New(id), platform: p}
	s.compOrder = append(s.compOrder, id)
	return nil
}

func (s *Staging) RegisterComponent(id string, every time.Duration) error {
	sc, err := s.comp("register_component", id)
	if err != nil {
		return err
	}
	sc.every = every
	sc.registered = true
	return nil
}

func (s *Staging) RegisterI2CDevice(id, bus string, addr uint16) error {
	sc, err := s.comp("register_i2c_device", id)
	if err != nil {
		return err
	}
	d, ok := sc.c.(I2CDevice)
	if !ok {
		return errcode.New(errcode.NotI2CDevice, "register_i2c_device", id)
	}
	b, ok := s.app.bus(bus)
	if !ok {
		return errcode.New(errcode.UnknownBus, "register_i2c_device", bus)
	}
	d.SetI2CBus(bus, b, addr)
	return nil
}

func (s *Staging) NewSensor(spec SensorSpec) error {
	if err := s.open("new_sensor"); err != nil {
		return err
	}
	if s.sensorTaken(spec.ID) {
		return errcode.New(errcode.DuplicateID, "new_sensor", spec.ID)
	}
	s.sensors[spec.ID] = NewSensor(spec)
	s.sensorOrder = append(s.sensorOrder, spec.ID)
	return nil
}

func (s *Staging) AttachSensor(componentID string, kind types.Kind, sensorID string) error {
	sc, err := s.comp("attach_sensor", componentID)
	if err != nil {
		return err
	}
	sen, ok := s.sensors[sensorID]
	if !ok {
		return errcode.New(errcode.UnknownComponent, "attach_sensor", sensorID)
	}
	return sc.platform.Attach(sc.c, kind, sen)
}

// Commit publishes everything staged into the App atomically.
func (s *Staging) Commit() error {
	if err := s.open("commit"); err != nil {
		return err
	}
	for _, id := range s.compOrder {
		if !s.comps[id].registered {
			return errcode.New(errcode.InvalidParams, "commit", id+" was never registered")
		}
	}
	a := s.app
	a.mu.Lock()
	defer a.mu.Unlock()
	for _, id := range s.compOrder {
		if _, dup := a.byID[id]; dup {
			return errcode.New(errcode.DuplicateID, "commit", id)
		}
	}
	for _, id := range s.sensorOrder {
		if _, dup := a.sensors[id]; dup {
			return errcode.New(errcode.DuplicateID, "commit", id)
		}
	}
	for _, id := range s.compOrder {
		sc := s.comps[id]
		a.addLocked(sc.c, sc.every)
	}
	for _, id := range s.sensorOrder {
		a.addSensorLocked(s.sensors[id])
	}
	s.closed = true
	return nil
}

// Discard drops everything staged. Safe to call after Commit.
func (s *Staging) Discard() {
	s.closed = true
	s.comps = nil
	s.sensors = nil
	s.compOrder = nil
	s.sensorOrder = nil
}

func (s *Staging) open(op string) error {
	if s.closed {
		return errcode.New(errcode.Unsupported, op, "staging closed")
	}
	return nil
}

func (s *Staging) comp(op, id string) (*stagedComp, error) {
	if err := s.open(op); err != nil {
		return nil, err
	}
	sc, ok := s.comps[id]
	if !ok {
		return nil, errcode.New(errcode.UnknownComponent, op, id)
	}
	return sc, nil
}

func (s *Staging) compTaken(id string) bool {
	if _, ok := s.comps[id]; ok {
		return true
	}
	_, ok := s.app.Component(id)
	return ok
}

func (s *Staging) sensorTaken(id string) bool {
	if _, ok := s.sensors[id]; ok {
		return true
	}
	_, ok := s.app.Sensor(id)
	return ok
}
