package ds1302

import (
	"sync"

	"periph.io/x/conn/v3/gpio"
)

// Frame is one CE-high transaction seen by the Simulator. Data holds the
// bytes written by the host or served to the host, in bus order.
type Frame struct {
	Command byte
	Data    []byte
}

func (f Frame) IsRead() bool {
	return isRead(f.Command)
}

type simRole int

const (
	simCLK simRole = iota
	simIO
	simCE
)

// Simulator is an in-memory DS1302 listening on three simulated lines. It
// follows the chip's wire behaviour: command and data bits are latched on
// rising CLK edges, read data is put out on falling edges, bursts walk the
// register pointer, writes are ignored while write protected and a clock
// burst is only latched once all eight bytes were received. The oscillator
// does not run; registers only change through the bus or the setters.
//
// Typical usage:
//
//	sim := NewSimulator()
//	rtc := New(sim.CLK(), sim.IO(), sim.CE(), WithHold(0))
type Simulator struct {
	mu sync.Mutex

	clock [clockBurstSize + 1]byte
	ram   [RAMSize]byte

	clkLevel gpio.Level
	ceLevel  gpio.Level
	// I/O as driven by the host and as driven by the chip
	hostIO     gpio.Level
	hostDrives bool
	chipIO     gpio.Level

	// per frame state
	shift    byte
	bits     int
	haveCmd  bool
	cmd      byte
	pointer  int
	outByte  byte
	outBit   int
	served   int
	burstBuf []byte
	current  *Frame

	frames []Frame
	lines  [3]*SimLine
}

// NewSimulator returns a chip in its power-on state: oscillator halted,
// 2000-01-01, day 1, not write protected, trickle charger disabled.
func NewSimulator() *Simulator {
	s := &Simulator{}
	s.clock[RegSeconds] = 1 << bitHalt
	s.clock[RegDayMonth] = 0x01
	s.clock[RegMonth] = 0x01
	s.clock[RegDayWeek] = 0x01
	s.clock[RegTrickleCharger] = TrickleChargerDisabled
	for i := range s.lines {
		s.lines[i] = &SimLine{sim: s, role: simRole(i)}
	}
	return s
}

func (s *Simulator) CLK() *SimLine { return s.lines[simCLK] }
func (s *Simulator) IO() *SimLine  { return s.lines[simIO] }
func (s *Simulator) CE() *SimLine  { return s.lines[simCE] }

// Register returns a clock region register, 0..8.
func (s *Simulator) Register(reg Register) byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.clock[reg]
}

func (s *Simulator) SetRegister(reg Register, value byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clock[reg] = value
}

// RAM returns a copy of the battery-backed RAM.
func (s *Simulator) RAM() []byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]byte, RAMSize)
	copy(out, s.ram[:])
	return out
}

func (s *Simulator) SetRAM(addr byte, value byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ram[addr] = value
}

// Frames returns the completed transactions since the last ResetFrames.
func (s *Simulator) Frames() []Frame {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Frame, len(s.frames))
	copy(out, s.frames)
	return out
}

func (s *Simulator) ResetFrames() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.frames = nil
}

// SimLine is one of the Simulator's lines.
type SimLine struct {
	sim  *Simulator
	role simRole
}

var _ Line = &SimLine{}

func (l *SimLine) Reset() error {
	l.sim.mu.Lock()
	defer l.sim.mu.Unlock()
	switch l.role {
	case simIO:
		l.sim.hostDrives = false
	default:
		l.sim.drive(l.role, gpio.Low)
	}
	return nil
}

func (l *SimLine) Out(level gpio.Level) error {
	l.sim.mu.Lock()
	defer l.sim.mu.Unlock()
	l.sim.drive(l.role, level)
	return nil
}

func (l *SimLine) In() error {
	l.sim.mu.Lock()
	defer l.sim.mu.Unlock()
	if l.role == simIO {
		l.sim.hostDrives = false
	}
	return nil
}

func (l *SimLine) Read() (gpio.Level, error) {
	l.sim.mu.Lock()
	defer l.sim.mu.Unlock()
	switch l.role {
	case simCLK:
		return l.sim.clkLevel, nil
	case simCE:
		return l.sim.ceLevel, nil
	}
	if l.sim.hostDrives {
		return l.sim.hostIO, nil
	}
	return l.sim.chipIO, nil
}

func (s *Simulator) drive(role simRole, level gpio.Level) {
	switch role {
	case simIO:
		s.hostIO = level
		s.hostDrives = true
	case simCE:
		if level == s.ceLevel {
			return
		}
		s.ceLevel = level
		if level == gpio.High {
			s.startFrame()
		} else {
			s.endFrame()
		}
	case simCLK:
		if level == s.clkLevel {
			return
		}
		s.clkLevel = level
		if s.ceLevel == gpio.Low {
			return
		}
		if level == gpio.High {
			s.risingEdge()
		} else {
			s.fallingEdge()
		}
	}
}

func (s *Simulator) startFrame() {
	s.shift, s.bits = 0, 0
	s.haveCmd = false
	s.cmd = 0
	s.pointer = 0
	s.served = 0
	s.outBit = 8
	s.burstBuf = s.burstBuf[:0]
	s.current = &Frame{}
}

func (s *Simulator) endFrame() {
	if s.current == nil {
		return
	}
	if s.haveCmd && s.valid() && !isRead(s.cmd) && s.isClockBurst() && len(s.burstBuf) == clockBurstSize && s.writable(RegionClock, 0) {
		copy(s.clock[:clockBurstSize], s.burstBuf)
	}
	if s.haveCmd {
		s.frames = append(s.frames, *s.current)
	}
	s.current = nil
	s.chipIO = gpio.Low
}

func (s *Simulator) risingEdge() {
	if s.haveCmd && isRead(s.cmd) {
		return
	}
	if s.hostIO == gpio.High {
		s.shift |= 1 << s.bits
	}
	s.bits++
	if s.bits < 8 {
		return
	}
	b := s.shift
	s.shift, s.bits = 0, 0
	if !s.haveCmd {
		s.haveCmd = true
		s.cmd = b
		s.current.Command = b
		if !s.isBurst() {
			s.pointer = int(b>>1) & addressMask
		}
		return
	}
	s.current.Data = append(s.current.Data, b)
	s.store(b)
}

func (s *Simulator) fallingEdge() {
	if !s.haveCmd || !isRead(s.cmd) {
		return
	}
	if s.outBit == 8 {
		if s.served > 0 {
			s.pointer++
		}
		s.outByte = s.load()
		s.current.Data = append(s.current.Data, s.outByte)
		s.served++
		s.outBit = 0
	}
	s.chipIO = gpio.Level(s.outByte>>s.outBit&0x01 != 0)
	s.outBit++
}

func (s *Simulator) valid() bool {
	return s.cmd&cmdMarker != 0
}

func (s *Simulator) region() Region {
	return Region(s.cmd & byte(RegionRAM))
}

func (s *Simulator) isBurst() bool {
	return int(s.cmd>>1)&addressMask == burstAddress
}

func (s *Simulator) isClockBurst() bool {
	return s.isBurst() && s.region() == RegionClock
}

func (s *Simulator) writable(region Region, addr int) bool {
	if s.clock[RegWriteProtect]&(1<<bitWriteProtect) == 0 {
		return true
	}
	return region == RegionClock && addr == int(RegWriteProtect)
}

func (s *Simulator) store(b byte) {
	if !s.valid() {
		return
	}
	if s.isClockBurst() {
		if len(s.burstBuf) < clockBurstSize {
			s.burstBuf = append(s.burstBuf, b)
		}
		return
	}
	if !s.isBurst() && len(s.current.Data) > 1 {
		// single register mode takes one data byte
		return
	}
	region := s.region()
	addr := s.pointer
	s.pointer++
	if !s.writable(region, addr) {
		return
	}
	switch region {
	case RegionRAM:
		if addr < RAMSize {
			s.ram[addr] = b
		}
	default:
		if addr < len(s.clock) {
			s.clock[addr] = b
		}
	}
}

func (s *Simulator) load() byte {
	if !s.valid() {
		return 0
	}
	if s.region() == RegionRAM {
		if s.pointer < RAMSize {
			return s.ram[s.pointer]
		}
		return 0
	}
	if s.isBurst() && s.pointer >= clockBurstSize {
		return 0
	}
	if s.pointer < len(s.clock) {
		return s.clock[s.pointer]
	}
	return 0
}
