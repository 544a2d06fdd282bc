package cpu

import (
	"github.com/valerio/dotcore/dotcore/addr"
	"github.com/valerio/dotcore/dotcore/bit"
)

// dispatch runs one of the five machine cycles of interrupt servicing.
//
// A candidate is chosen on the first cycle, but the interrupt actually
// serviced is the highest one still enabled and requested after the high
// byte of PC has been pushed. If none remains, the dispatch is cancelled and
// execution continues at 0x0000 with IF untouched.
func (c *CPU) dispatch() {
	c.step++

	switch c.step {
	case 1:
		c.ime, c.nextIME = false, false
		c.irq = c.pendingInterrupts().Highest()
	case 2:
		c.sp--
	case 3:
		c.bus.Write(c.sp, bit.High(c.pc))
		c.sp--
		c.irq = c.pendingInterrupts().Highest()
		if c.irq != 0 {
			c.bus.Write(addr.IF, c.bus.Read(addr.IF)&^uint8(c.irq))
			c.vector = c.irq.Vector()
		} else {
			c.vector = 0
		}
	case 4:
		c.bus.Write(c.sp, bit.Low(c.pc))
	case 5:
		c.pc = c.vector
		c.state = stateFetch
	}
}

// halt enters low power mode until an interrupt is pending. With IME off
// and no EI pending, the opcode fetched after HALT is read twice; if an
// interrupt is already pending in that case the CPU does not halt at all.
func (c *CPU) halt() {
	c.haltBug = !c.ime && !c.nextIME
	c.halted = c.pendingInterrupts() == 0
}

// stop either performs an armed speed switch or enters STOP mode, which
// resets the divider and waits for any pending interrupt.
func (c *CPU) stop() {
	if c.bus.SpeedSwitch() {
		return
	}
	c.bus.Write(addr.DIV, 0)
	c.pc++
	c.stopped = true
}
