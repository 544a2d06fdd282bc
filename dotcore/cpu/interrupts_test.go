package cpu

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/valerio/dotcore/dotcore/addr"
)

func TestInterruptHandling(t *testing.T) {
	t.Run("interrupts disabled by default", func(t *testing.T) {
		c, bus := newTestCPU(0x00, 0x00)
		bus.mem[addr.IE] = 0x01
		bus.mem[addr.IF] = 0x01

		runInstruction(t, c)
		assert.Equal(t, uint16(0x101), c.GetPC())
		assert.Equal(t, byte(0x01), bus.mem[addr.IF])
	})

	t.Run("EI enables interrupts after the next instruction", func(t *testing.T) {
		c, bus := newTestCPU(0xFB, 0x00, 0x00) // EI; NOP; NOP
		bus.mem[addr.IE] = 0x01
		bus.mem[addr.IF] = 0x01
		c.sp = 0xDFF0

		runInstruction(t, c)
		assert.False(t, c.GetIME())
		runInstruction(t, c)
		assert.True(t, c.GetIME())
		assert.Equal(t, uint16(0x102), c.GetPC(), "the instruction after EI runs")

		assert.Equal(t, 5, runInstruction(t, c), "dispatch takes five cycles")
		assert.Equal(t, uint16(0x0040), c.GetPC())
		assert.False(t, c.GetIME())
		assert.Equal(t, byte(0x00), bus.mem[addr.IF])
		assert.Equal(t, byte(0x01), bus.mem[0xDFEF])
		assert.Equal(t, byte(0x02), bus.mem[0xDFEE])
	})

	t.Run("EI then DI never enables", func(t *testing.T) {
		c, bus := newTestCPU(0xFB, 0xF3, 0x00) // EI; DI; NOP
		bus.mem[addr.IE] = 0x01
		bus.mem[addr.IF] = 0x01
		for range 3 {
			runInstruction(t, c)
		}
		assert.False(t, c.GetIME())
		assert.Equal(t, uint16(0x103), c.GetPC())
	})

	t.Run("DI disables interrupts immediately", func(t *testing.T) {
		c, _ := newTestCPU(0xF3)
		c.ime, c.nextIME = true, true
		runInstruction(t, c)
		assert.False(t, c.GetIME())
	})

	t.Run("RETI enables immediately", func(t *testing.T) {
		c, bus := newTestCPU(0xD9)
		bus.mem[addr.IE] = 0x04
		bus.mem[addr.IF] = 0x04
		c.sp = 0xDFF0
		bus.mem[0xDFF0] = 0x00
		bus.mem[0xDFF1] = 0x02

		runInstruction(t, c)
		assert.True(t, c.GetIME())
		assert.Equal(t, uint16(0x0200), c.GetPC())
		runInstruction(t, c)
		assert.Equal(t, uint16(0x0050), c.GetPC())
	})
}

func TestInterruptPriority(t *testing.T) {
	tests := []struct {
		name    string
		ie, ifl byte
		vector  uint16
		left    byte
	}{
		{"vblank first", 0x1F, 0x1F, 0x40, 0x1E},
		{"stat", 0x1F, 0x02, 0x48, 0x00},
		{"timer over serial and joypad", 0x1F, 0x1C, 0x50, 0x18},
		{"disabled sources are skipped", 0x18, 0x1F, 0x58, 0x17},
		{"joypad", 0x10, 0x10, 0x60, 0x00},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, bus := newTestCPU(0x00)
			c.ime, c.nextIME = true, true
			c.sp = 0xDFF0
			bus.mem[addr.IE] = tt.ie
			bus.mem[addr.IF] = tt.ifl

			runInstruction(t, c)
			assert.Equal(t, tt.vector, c.GetPC())
			assert.Equal(t, tt.left, bus.mem[addr.IF])
		})
	}
}

func TestDispatchCancelledByIEWrite(t *testing.T) {
	c, bus := newTestCPU()
	c.pc = 0x0200
	c.sp = 0x0000 // the high byte push lands on IE
	c.ime, c.nextIME = true, true
	bus.mem[addr.IE] = 0x01
	bus.mem[addr.IF] = 0x01

	assert.Equal(t, 5, runInstruction(t, c))
	assert.Equal(t, uint16(0x0000), c.GetPC())
	assert.Equal(t, byte(0x02), bus.mem[addr.IE])
	assert.Equal(t, byte(0x01), bus.mem[addr.IF], "a cancelled request is not acknowledged")
	assert.Equal(t, byte(0x00), bus.mem[0xFFFE])
	assert.Equal(t, uint16(0xFFFE), c.GetSP())
}

func TestDispatchFallsThroughToNextPending(t *testing.T) {
	c, bus := newTestCPU()
	c.pc = 0x0200
	c.sp = 0x0000 // the high byte push disables VBlank, STAT stays enabled
	c.ime, c.nextIME = true, true
	bus.mem[addr.IE] = 0x03
	bus.mem[addr.IF] = 0x03

	assert.Equal(t, 5, runInstruction(t, c))
	assert.Equal(t, uint16(0x0048), c.GetPC())
	assert.Equal(t, byte(0x02), bus.mem[addr.IE])
	assert.Equal(t, byte(0x01), bus.mem[addr.IF], "only the serviced request is acknowledged")
	assert.Equal(t, byte(0x00), bus.mem[0xFFFE])
}

func TestDispatchCancelledByIFClear(t *testing.T) {
	c, bus := newTestCPU(0x00)
	c.ime, c.nextIME = true, true
	c.sp = 0xDFF0
	bus.mem[addr.IE] = 0x04
	bus.mem[addr.IF] = 0x04

	c.Tick()
	c.Tick()
	bus.mem[addr.IF] = 0x00 // cleared before the acknowledge cycle
	for range 3 {
		c.Tick()
	}
	assert.Equal(t, uint16(0x0000), c.GetPC())
}

func TestHalt(t *testing.T) {
	t.Run("waits for an interrupt without IME", func(t *testing.T) {
		c, bus := newTestCPU(0x76, 0x3C) // HALT; INC A
		c.a = 0
		bus.mem[addr.IE] = 0x04

		runInstruction(t, c)
		require.True(t, c.IsHalted())
		for range 20 {
			c.Tick()
		}
		assert.True(t, c.IsHalted())
		assert.Equal(t, uint16(0x101), c.GetPC())

		bus.mem[addr.IF] = 0x04
		c.Tick()
		assert.False(t, c.IsHalted())
		assert.Equal(t, uint8(1), c.GetA(), "execution resumes after HALT")
		assert.Equal(t, byte(0x04), bus.mem[addr.IF], "no dispatch without IME")

		assert.Equal(t, uint16(0x101), c.GetPC(), "the first fetch after HALT does not advance PC")
		runInstruction(t, c)
		assert.Equal(t, uint8(2), c.GetA())
		assert.Equal(t, uint16(0x102), c.GetPC())
	})

	t.Run("halt bug armed on entry without IME", func(t *testing.T) {
		c, bus := newTestCPU(0x76)
		bus.mem[addr.IE] = 0x01

		runInstruction(t, c)
		assert.True(t, c.IsHalted())
		assert.True(t, c.haltBug)
	})

	t.Run("no halt bug with EI pending", func(t *testing.T) {
		c, bus := newTestCPU(0x76)
		c.nextIME = true
		bus.mem[addr.IE] = 0x01

		runInstruction(t, c)
		assert.True(t, c.IsHalted())
		assert.False(t, c.haltBug)
	})

	t.Run("wakes into dispatch with IME", func(t *testing.T) {
		c, bus := newTestCPU(0x76, 0x00)
		c.ime, c.nextIME = true, true
		c.sp = 0xDFF0
		bus.mem[addr.IE] = 0x01

		runInstruction(t, c)
		require.True(t, c.IsHalted())

		bus.mem[addr.IF] = 0x01
		assert.Equal(t, 5, runInstruction(t, c))
		assert.Equal(t, uint16(0x40), c.GetPC())
		assert.Equal(t, byte(0x01), bus.mem[0xDFEF])
		assert.Equal(t, byte(0x01), bus.mem[0xDFEE], "return address is the instruction after HALT")
	})

	t.Run("halt bug repeats the next byte", func(t *testing.T) {
		c, bus := newTestCPU(0x76, 0x3C, 0x00) // HALT; INC A; NOP
		c.a = 0
		bus.mem[addr.IE] = 0x01
		bus.mem[addr.IF] = 0x01

		runInstruction(t, c)
		assert.False(t, c.IsHalted())
		runInstruction(t, c)
		assert.Equal(t, uint16(0x101), c.GetPC())
		runInstruction(t, c)
		assert.Equal(t, uint16(0x102), c.GetPC())
		assert.Equal(t, uint8(2), c.GetA())
	})

	t.Run("no halt bug with IME", func(t *testing.T) {
		c, bus := newTestCPU(0x76, 0x3C)
		c.ime, c.nextIME = true, true
		c.sp = 0xDFF0
		bus.mem[addr.IE] = 0x01
		bus.mem[addr.IF] = 0x01

		runInstruction(t, c)
		assert.False(t, c.IsHalted())
		runInstruction(t, c)
		assert.Equal(t, uint16(0x40), c.GetPC())
		assert.Equal(t, byte(0x01), bus.mem[0xDFEE])
	})
}

func TestStop(t *testing.T) {
	t.Run("enters stop mode and resets DIV", func(t *testing.T) {
		c, bus := newTestCPU(0x10, 0x00, 0x3C) // STOP; padding; INC A
		bus.mem[addr.DIV] = 0x55
		c.a = 0

		runInstruction(t, c)
		assert.True(t, c.IsStopped())
		assert.Equal(t, byte(0), bus.mem[addr.DIV])
		assert.Equal(t, uint16(0x102), c.GetPC())

		for range 10 {
			c.Tick()
		}
		assert.True(t, c.IsStopped())

		bus.mem[addr.IE] = 0x10
		bus.mem[addr.IF] = 0x10
		c.Tick()
		assert.False(t, c.IsStopped())
		assert.Equal(t, uint8(1), c.GetA())
	})

	t.Run("armed speed switch does not stop", func(t *testing.T) {
		c, bus := newTestCPU(0x10, 0x00)
		bus.speedArmed = true
		bus.mem[addr.DIV] = 0x55

		runInstruction(t, c)
		assert.False(t, c.IsStopped())
		assert.False(t, bus.speedArmed)
		assert.Equal(t, byte(0x55), bus.mem[addr.DIV])
		assert.Equal(t, uint16(0x101), c.GetPC())
	})
}
