package max17048

import (
	"errors"
	"sync"

	"tinygo.org/x/drivers"
)

// Errors returned by Sim.
var (
	ErrSimNack     = errors.New("max17048 sim: nack")
	ErrSimProtocol = errors.New("max17048 sim: unsupported transaction")
)

// Compile-time check.
var _ drivers.I2C = (*Sim)(nil)

// Sim is an in-memory MAX17048 register file that implements drivers.I2C.
// It answers word reads and writes at its address and NACKs everything else.
type Sim struct {
	mu   sync.Mutex
	addr uint16
	regs map[byte]uint16
	down bool
	txs  int
}

// NewSim returns a simulated part at addr (0 selects the default address)
// holding a 3.7 V, 85 % cell at rest.
func NewSim(addr uint16) *Sim {
	if addr == 0 {
		addr = Address
	}
	s := &Sim{addr: addr}
	s.powerOn()
	s.regs[regVCell] = 47360 // 3.700 V
	s.regs[regSOC] = 85 << 8 // 85 %
	return s
}

func (s *Sim) powerOn() {
	s.regs = map[byte]uint16{
		regVersion:  0x0012,
		regVResetID: 0x963B,
		regConfig:   0x971C,
		regMode:     0x0000,
		regHibRT:    0x8030,
		regVAlert:   0x00FF,
		regStatus:   uint16(AlertResetIndicator) << 8,
	}
}

// Tx implements drivers.I2C.
func (s *Sim) Tx(addr uint16, w, r []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.txs++
	if s.down || addr != s.addr {
		return ErrSimNack
	}
	switch {
	case len(w) == 1 && len(r) == 2:
		v := s.regs[w[0]]
		r[0] = byte(v >> 8)
		r[1] = byte(v)
		return nil
	case len(w) == 3 && len(r) == 0:
		v := uint16(w[1])<<8 | uint16(w[2])
		if w[0] == regCmd && v == cmdPowerOnReset {
			s.powerOn()
			return ErrSimNack
		}
		s.regs[w[0]] = v
		return nil
	}
	return ErrSimProtocol
}

// SetDisconnected makes every transaction fail with ErrSimNack.
func (s *Sim) SetDisconnected(down bool) {
	s.mu.Lock()
	s.down = down
	s.mu.Unlock()
}

// SetCellMicroVolts sets VCELL to the nearest register code.
func (s *Sim) SetCellMicroVolts(uv uint32) {
	s.set(regVCell, uint16((uint64(uv)*8+312)/625))
}

// SetStateOfChargeX256 sets SOC in units of 1/256 %.
func (s *Sim) SetStateOfChargeX256(v uint16) { s.set(regSOC, v) }

// SetChargeRateRaw sets CRATE in units of 0.208 %/h.
func (s *Sim) SetChargeRateRaw(v int16) { s.set(regCRate, uint16(v)) }

// RaiseAlert latches alert flags in STATUS.
func (s *Sim) RaiseAlert(flags AlertFlag) {
	s.mu.Lock()
	s.regs[regStatus] |= uint16(flags&alertMask) << 8
	s.regs[regConfig] |= configALRT
	s.mu.Unlock()
}

// Register returns the raw value of reg.
func (s *Sim) Register(reg byte) uint16 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.regs[reg]
}

// Transactions returns the number of Tx calls seen so far.
func (s *Sim) Transactions() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.txs
}

func (s *Sim) set(reg byte, v uint16) {
	s.mu.Lock()
	s.regs[reg] = v
	s.mu.Unlock()
}
