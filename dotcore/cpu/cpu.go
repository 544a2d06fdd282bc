package cpu

import (
	"errors"
	"fmt"

	"github.com/valerio/dotcore/dotcore/addr"
	"github.com/valerio/dotcore/dotcore/bit"
)

// Bus provides the CPU's view of the address space.
type Bus interface {
	Read(address uint16) byte
	Write(address uint16, value byte)
	// SpeedSwitch performs an armed KEY1 speed switch, reporting whether one was armed.
	SpeedSwitch() bool
}

// Flag is one of the 4 possible flags used in the flag register (high part of AF)
type Flag uint8

const (
	zeroFlag      Flag = 0x80
	subFlag       Flag = 0x40
	halfCarryFlag Flag = 0x20
	carryFlag     Flag = 0x10
)

// ErrIllegalOpcode matches any IllegalOpcodeError.
var ErrIllegalOpcode = errors.New("illegal opcode")

// IllegalOpcodeError is reported when the CPU fetches one of the 11 unused
// opcodes. Real hardware locks up; the CPU stops advancing instead.
type IllegalOpcodeError struct {
	Opcode uint8
	PC     uint16
}

func (e *IllegalOpcodeError) Error() string {
	return fmt.Sprintf("illegal opcode 0x%02X at 0x%04X", e.Opcode, e.PC)
}

func (e *IllegalOpcodeError) Is(target error) bool {
	return target == ErrIllegalOpcode
}

type state uint8

const (
	stateFetch state = iota
	stateExecute
	stateDispatch
	stateHalted
	stateStopped
)

// Tracer observes every opcode fetch. pc is the address the opcode was read from.
type Tracer func(c *CPU, pc uint16, opcode uint8)

// CPU is the SM83 core. It is driven one machine cycle at a time: an
// instruction in flight keeps its progress in step and the z/w latches, so
// the rest of the system observes every bus access on the cycle it happens.
type CPU struct {
	// registers
	a  uint8
	f  uint8
	b  uint8
	c  uint8
	d  uint8
	e  uint8
	h  uint8
	l  uint8
	sp uint16
	pc uint16

	ime     bool
	nextIME bool // value IME takes when the current instruction completes
	halted  bool
	stopped bool
	// haltBug makes the next fetch skip the PC increment.
	haltBug bool

	state    state
	opcode   uint8
	cbOpcode uint8
	step     int
	z, w     uint8 // operand latches

	irq    addr.Interrupt // interrupt being dispatched
	vector uint16

	cycles uint64
	fault  error
	trace  Tracer

	bus Bus
}

// New returns a CPU with the register values the boot ROM leaves behind,
// ready to execute the cartridge entry point at 0x100.
func New(bus Bus) *CPU {
	cpu := &CPU{
		bus: bus,
	}

	cpu.setAF(0x01B0)
	cpu.setBC(0x0013)
	cpu.setDE(0x00D8)
	cpu.setHL(0x014D)
	cpu.sp = 0xFFFE
	cpu.pc = 0x0100

	return cpu
}

// ResetForBootROM clears all registers so execution starts at 0x0000.
func (c *CPU) ResetForBootROM() {
	c.setAF(0)
	c.setBC(0)
	c.setDE(0)
	c.setHL(0)
	c.sp = 0
	c.pc = 0
}

// SetTracer installs fn to be called on every opcode fetch. nil disables tracing.
func (c *CPU) SetTracer(fn Tracer) {
	c.trace = fn
}

// Fault returns the error that stopped the CPU, if any.
func (c *CPU) Fault() error {
	return c.fault
}

// Tick advances the CPU by one machine cycle.
func (c *CPU) Tick() {
	if c.fault != nil {
		return
	}
	c.cycles++

	switch c.state {
	case stateFetch:
		c.boundary()
	case stateExecute:
		c.step++
		c.run()
	case stateDispatch:
		c.dispatch()
	case stateHalted, stateStopped:
		if c.pendingInterrupts() == 0 {
			return
		}
		c.halted, c.stopped = false, false
		c.state = stateFetch
		c.boundary()
	}
}

// boundary runs at the start of every instruction: either an interrupt
// dispatch begins or the next opcode is fetched.
func (c *CPU) boundary() {
	if c.ime && c.pendingInterrupts() != 0 {
		c.state = stateDispatch
		c.step = 0
		c.dispatch()
		return
	}
	c.fetch()
}

func (c *CPU) fetch() {
	pc := c.pc
	c.opcode = c.bus.Read(pc)
	if c.haltBug {
		c.haltBug = false
	} else {
		c.pc++
	}

	if c.trace != nil {
		c.trace(c, pc, c.opcode)
	}

	if instructions[c.opcode].exec == nil {
		c.fault = &IllegalOpcodeError{Opcode: c.opcode, PC: pc}
		return
	}

	c.state = stateExecute
	c.step = 1
	c.run()
}

func (c *CPU) run() {
	if instructions[c.opcode].exec(c, c.step) {
		c.complete()
	}
}

func (c *CPU) complete() {
	c.ime = c.nextIME
	if c.opcode == 0xFB {
		c.nextIME = true
	}

	switch {
	case c.halted:
		c.state = stateHalted
	case c.stopped:
		c.state = stateStopped
	default:
		c.state = stateFetch
	}
}

// pendingInterrupts returns IE & IF.
func (c *CPU) pendingInterrupts() addr.Interrupt {
	return addr.Interrupt(c.bus.Read(addr.IE)&c.bus.Read(addr.IF)) & addr.InterruptMask
}

// imm reads the byte at PC and advances it.
func (c *CPU) imm() uint8 {
	n := c.bus.Read(c.pc)
	c.pc++
	return n
}

// wz is the 16 bit value assembled from the operand latches.
func (c *CPU) wz() uint16 {
	return bit.Combine(c.w, c.z)
}

func (c *CPU) setFlag(flag Flag) {
	c.f |= uint8(flag)
}

func (c *CPU) resetFlag(flag Flag) {
	c.f &= uint8(flag ^ 0xFF)
}

func (c CPU) isSetFlag(flag Flag) bool {
	return c.f&uint8(flag) != 0
}

// flagToBit will return 1 if the passed flag is set, 0 otherwise
func (c CPU) flagToBit(flag Flag) uint8 {
	if c.isSetFlag(flag) {
		return 1
	}

	return 0
}

func (c *CPU) setFlagToCondition(flag Flag, condition bool) {
	if !condition {
		c.resetFlag(flag)
		return
	}

	c.setFlag(flag)
}

// setFlags replaces all four flags at once.
func (c *CPU) setFlags(z, n, h, cy bool) {
	c.f = 0
	c.setFlagToCondition(zeroFlag, z)
	c.setFlagToCondition(subFlag, n)
	c.setFlagToCondition(halfCarryFlag, h)
	c.setFlagToCondition(carryFlag, cy)
}

func (c *CPU) setBC(value uint16) {
	c.b = bit.High(value)
	c.c = bit.Low(value)
}

func (c CPU) getBC() uint16 {
	return bit.Combine(c.b, c.c)
}

func (c *CPU) setDE(value uint16) {
	c.d = bit.High(value)
	c.e = bit.Low(value)
}

func (c CPU) getDE() uint16 {
	return bit.Combine(c.d, c.e)
}

func (c *CPU) setHL(value uint16) {
	c.h = bit.High(value)
	c.l = bit.Low(value)
}

func (c CPU) getHL() uint16 {
	return bit.Combine(c.h, c.l)
}

func (c *CPU) setAF(value uint16) {
	c.a = bit.High(value)
	// F register lower 4 bits must be 0
	c.f = bit.Low(value) & 0xF0
}

func (c CPU) getAF() uint16 {
	return bit.Combine(c.a, c.f)
}

// Debug getter methods for register display
func (c *CPU) GetA() uint8       { return c.a }
func (c *CPU) GetF() uint8       { return c.f }
func (c *CPU) GetB() uint8       { return c.b }
func (c *CPU) GetC() uint8       { return c.c }
func (c *CPU) GetD() uint8       { return c.d }
func (c *CPU) GetE() uint8       { return c.e }
func (c *CPU) GetH() uint8       { return c.h }
func (c *CPU) GetL() uint8       { return c.l }
func (c *CPU) GetSP() uint16     { return c.sp }
func (c *CPU) GetPC() uint16     { return c.pc }
func (c *CPU) GetCycles() uint64 { return c.cycles }

// Interrupt state getters
func (c *CPU) GetIME() bool    { return c.ime }
func (c *CPU) IsHalted() bool  { return c.halted }
func (c *CPU) IsStopped() bool { return c.stopped }
func (c *CPU) GetIE() uint8    { return c.bus.Read(addr.IE) }
func (c *CPU) GetIF() uint8    { return c.bus.Read(addr.IF) }

// AtBoundary reports whether the CPU sits between instructions.
func (c *CPU) AtBoundary() bool {
	return c.state == stateFetch
}

// GetFlagString returns a human-readable representation of the flag register
func (c *CPU) GetFlagString() string {
	flags := []byte("----")
	for i, f := range []struct {
		flag Flag
		name byte
	}{{zeroFlag, 'Z'}, {subFlag, 'N'}, {halfCarryFlag, 'H'}, {carryFlag, 'C'}} {
		if c.isSetFlag(f.flag) {
			flags[i] = f.name
		}
	}
	return string(flags)
}
