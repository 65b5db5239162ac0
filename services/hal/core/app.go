package core

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"tinygo.org/x/drivers"

	"fuelgauge-go/errcode"
	"fuelgauge-go/types"
)

const dueQueueLen = 16

type entry struct {
	c      Component
	every  time.Duration
	status types.Status

	upd sync.Mutex // one Update at a time
}

// App owns the component graph of one firmware image: components in
// registration order, named I2C buses, sensors and the update scheduler.
type App struct {
	log    *slog.Logger
	jitter time.Duration

	mu          sync.RWMutex
	buses       map[string]drivers.I2C
	comps       []*entry
	byID        map[string]*entry
	sensors     map[string]*Sensor
	sensorOrder []string

	due   chan string
	sched *Scheduler
}

type Option func(*App)

// WithLogger sets the logger handed to components. Default slog.Default().
func WithLogger(l *slog.Logger) Option { return func(a *App) { a.log = l } }

// WithJitter spreads polling by a random [0..d] per tick.
func WithJitter(d time.Duration) Option { return func(a *App) { a.jitter = d } }

func NewApp(opts ...Option) *App {
	a := &App{
		log:     slog.Default(),
		buses:   map[string]drivers.I2C{},
		byID:    map[string]*entry{},
		sensors: map[string]*Sensor{},
		due:     make(chan string, dueQueueLen),
	}
	for _, o := range opts {
		o(a)
	}
	a.sched = NewScheduler(a.due)
	return a
}

func (a *App) Logger() *slog.Logger { return a.log }

// AddI2CBus makes a configured bus available under id.
func (a *App) AddI2CBus(id string, bus drivers.I2C) {
	a.mu.Lock()
	a.buses[id] = bus
	a.mu.Unlock()
}

func (a *App) bus(id string) (drivers.I2C, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	b, ok := a.buses[id]
	return b, ok
}

// RegisterComponent adds c to the App. A PollingComponent with every > 0 is
// scheduled once Run starts.
func (a *App) RegisterComponent(c Component, every time.Duration) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if _, dup := a.byID[c.ID()]; dup {
		return errcode.New(errcode.DuplicateID, "register_component", c.ID())
	}
	a.addLocked(c, every)
	return nil
}

func (a *App) addLocked(c Component, every time.Duration) {
	e := &entry{c: c, every: every, status: types.StatusOK}
	if ia, ok := c.(IntervalAware); ok {
		ia.SetUpdateInterval(every)
	}
	a.comps = append(a.comps, e)
	a.byID[c.ID()] = e
	if _, ok := c.(PollingComponent); ok && every > 0 {
		a.sched.Upsert(c.ID(), every, a.jitter)
	}
}

// RegisterI2CDevice attaches d to the named bus at addr.
func (a *App) RegisterI2CDevice(d I2CDevice, busID string, addr uint16) error {
	b, ok := a.bus(busID)
	if !ok {
		return errcode.New(errcode.UnknownBus, "register_i2c_device", busID)
	}
	d.SetI2CBus(busID, b, addr)
	return nil
}

// NewSensor creates and indexes a sensor.
func (a *App) NewSensor(spec SensorSpec) (*Sensor, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if _, dup := a.sensors[spec.ID]; dup {
		return nil, errcode.New(errcode.DuplicateID, "new_sensor", spec.ID)
	}
	s := NewSensor(spec)
	a.addSensorLocked(s)
	return s, nil
}

func (a *App) addSensorLocked(s *Sensor) {
	a.sensors[s.ID()] = s
	a.sensorOrder = append(a.sensorOrder, s.ID())
}

func (a *App) Component(id string) (Component, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	e, ok := a.byID[id]
	if !ok {
		return nil, false
	}
	return e.c, true
}

func (a *App) Sensor(id string) (*Sensor, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	s, ok := a.sensors[id]
	return s, ok
}

// Sensors returns sensors in creation order.
func (a *App) Sensors() []*Sensor {
	a.mu.RLock()
	defer a.mu.RUnlock()
	out := make([]*Sensor, 0, len(a.sensorOrder))
	for _, id := range a.sensorOrder {
		out = append(out, a.sensors[id])
	}
	return out
}

// Status reports the health of a component; unknown ids report failed.
func (a *App) Status(id string) types.Status {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if e, ok := a.byID[id]; ok {
		return e.status
	}
	return types.StatusFailed
}

// Interval returns the update interval a component was registered with.
func (a *App) Interval(id string) time.Duration {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if e, ok := a.byID[id]; ok {
		return e.every
	}
	return 0
}

func (a *App) snapshot() []*entry {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return append([]*entry(nil), a.comps...)
}

// Setup runs Setup on every component in registration order and logs its
// configuration. Failed components are stopped and reported in the joined error.
func (a *App) Setup(ctx context.Context) error {
	var errs []error
	for _, e := range a.snapshot() {
		id := e.c.ID()
		e.upd.Lock()
		err := e.c.Setup(ctx)
		e.upd.Unlock()
		if err != nil {
			a.setStatus(id, types.StatusFailed)
			a.sched.Stop(id)
			a.log.Error("component setup failed", "component", id, "err", err)
			errs = append(errs, &errcode.E{C: errcode.SetupFailed, Op: "setup", Msg: id, Err: err})
		}
		e.c.DumpConfig(a.log.With("component", id))
	}
	return errors.Join(errs...)
}

// Run dispatches scheduled updates until ctx is cancelled.
func (a *App) Run(ctx context.Context) error {
	go a.sched.Run(ctx)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case id := <-a.due:
			a.update(ctx, id)
		}
	}
}

// UpdateNow runs one update of id synchronously.
func (a *App) UpdateNow(ctx context.Context, id string) error {
	a.mu.RLock()
	_, ok := a.byID[id]
	a.mu.RUnlock()
	if !ok {
		return errcode.New(errcode.UnknownComponent, "update", id)
	}
	return a.update(ctx, id)
}

func (a *App) update(ctx context.Context, id string) error {
	a.mu.RLock()
	e, ok := a.byID[id]
	failed := ok && e.status == types.StatusFailed
	a.mu.RUnlock()
	if !ok || failed {
		return nil
	}
	pc, ok := e.c.(PollingComponent)
	if !ok {
		return errcode.New(errcode.Unsupported, "update", id)
	}
	e.upd.Lock()
	err := pc.Update(ctx)
	e.upd.Unlock()
	if err != nil {
		a.setStatus(id, types.StatusWarning)
		a.log.Warn("component update failed", "component", id, "err", err)
		return fmt.Errorf("update %s: %w", id, err)
	}
	a.setStatus(id, types.StatusOK)
	return nil
}

func (a *App) setStatus(id string, st types.Status) {
	a.mu.Lock()
	if e, ok := a.byID[id]; ok {
		e.status = st
	}
	a.mu.Unlock()
}
