package cpu

import (
	"github.com/valerio/dotcore/dotcore/addr"
	"github.com/valerio/dotcore/dotcore/savestate"
)

// SaveState appends the registers and the in-flight instruction progress.
func (c *CPU) SaveState(w *savestate.Writer) {
	for _, r := range []uint8{c.a, c.f, c.b, c.c, c.d, c.e, c.h, c.l} {
		w.Uint8(r)
	}
	w.Uint16(c.sp)
	w.Uint16(c.pc)

	w.Bool(c.ime)
	w.Bool(c.nextIME)
	w.Bool(c.halted)
	w.Bool(c.stopped)
	w.Bool(c.haltBug)

	w.Uint8(uint8(c.state))
	w.Uint8(c.opcode)
	w.Uint8(c.cbOpcode)
	w.Int(c.step)
	w.Uint8(c.z)
	w.Uint8(c.w)
	w.Uint8(uint8(c.irq))
	w.Uint16(c.vector)
	w.Uint64(c.cycles)
}

// LoadState restores what SaveState wrote. A pending fault is cleared.
func (c *CPU) LoadState(r *savestate.Reader) {
	for _, reg := range []*uint8{&c.a, &c.f, &c.b, &c.c, &c.d, &c.e, &c.h, &c.l} {
		*reg = r.Uint8()
	}
	c.f &= 0xF0
	c.sp = r.Uint16()
	c.pc = r.Uint16()

	c.ime = r.Bool()
	c.nextIME = r.Bool()
	c.halted = r.Bool()
	c.stopped = r.Bool()
	c.haltBug = r.Bool()

	c.state = state(r.Uint8())
	c.opcode = r.Uint8()
	c.cbOpcode = r.Uint8()
	c.step = r.Int()
	c.z = r.Uint8()
	c.w = r.Uint8()
	c.irq = addr.Interrupt(r.Uint8())
	c.vector = r.Uint16()
	c.cycles = r.Uint64()
	c.fault = nil

	if c.state > stateStopped || c.step < 0 || c.step > 6 ||
		(c.state == stateExecute && Illegal(c.opcode)) {
		r.Fail(savestate.ErrCorrupt)
	}
}
