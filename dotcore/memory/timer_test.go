package memory

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/valerio/dotcore/dotcore/addr"
)

func TestTimerDivider(t *testing.T) {
	var timer Timer
	for range 64 {
		timer.Tick()
	}
	assert.Equal(t, byte(1), timer.Read(addr.DIV), "DIV advances every 64 machine cycles")
	assert.Equal(t, uint16(256), timer.Counter())
}

func TestTimerFrequencies(t *testing.T) {
	tests := []struct {
		name          string
		tac           byte
		cyclesPerTick int
	}{
		{"4096 Hz", 0x04, 256},
		{"262144 Hz", 0x05, 4},
		{"65536 Hz", 0x06, 16},
		{"16384 Hz", 0x07, 64},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var timer Timer
			timer.Write(addr.TAC, tt.tac)
			for range tt.cyclesPerTick - 1 {
				timer.Tick()
			}
			assert.Equal(t, byte(0), timer.Read(addr.TIMA))
			timer.Tick()
			assert.Equal(t, byte(1), timer.Read(addr.TIMA))
		})
	}

	t.Run("disabled timer does not count", func(t *testing.T) {
		var timer Timer
		timer.Write(addr.TAC, 0x01)
		for range 100 {
			timer.Tick()
		}
		assert.Equal(t, byte(0), timer.Read(addr.TIMA))
		assert.Equal(t, byte(0xF9), timer.Read(addr.TAC))
	})
}

func TestTimerDIVWrite(t *testing.T) {
	t.Run("falling edge increments TIMA synchronously", func(t *testing.T) {
		var timer Timer
		timer.Write(addr.TAC, 0x05) // bit 3
		timer.SetCounter(0x0008)

		timer.Write(addr.DIV, 0x00)

		assert.Equal(t, byte(1), timer.Read(addr.TIMA))
		assert.Equal(t, byte(0), timer.Read(addr.DIV))
	})

	t.Run("no edge when watched bit is low", func(t *testing.T) {
		var timer Timer
		timer.Write(addr.TAC, 0x05)
		timer.SetCounter(0x0004)
		timer.Write(addr.DIV, 0x00)
		assert.Equal(t, byte(0), timer.Read(addr.TIMA))
	})

	t.Run("written value lands in the high byte", func(t *testing.T) {
		var timer Timer
		timer.Write(addr.TAC, 0x04) // bit 9
		timer.SetCounter(0x0200)
		timer.Write(addr.DIV, 0x02)
		assert.Equal(t, byte(0x02), timer.Read(addr.DIV))
		assert.Equal(t, byte(0), timer.Read(addr.TIMA), "bit 9 stays high")

		timer.Write(addr.DIV, 0x00)
		assert.Equal(t, byte(1), timer.Read(addr.TIMA))
	})

	t.Run("disabling TAC on a high bit counts as an edge", func(t *testing.T) {
		var timer Timer
		timer.Write(addr.TAC, 0x05)
		timer.SetCounter(0x0008)
		timer.Write(addr.TAC, 0x00)
		assert.Equal(t, byte(1), timer.Read(addr.TIMA))
	})
}

func TestTimerOverflowReload(t *testing.T) {
	var timer Timer
	timer.Write(addr.TMA, 0xAB)
	timer.Write(addr.TIMA, 0xFF)
	timer.Write(addr.TAC, 0x05)

	for range 4 {
		timer.Tick()
	}
	assert.Equal(t, byte(0x00), timer.Read(addr.TIMA), "reload does not land on the overflow cycle")
	assert.True(t, timer.TakeInterrupt())
	assert.False(t, timer.TakeInterrupt(), "request is cleared once taken")

	timer.Tick()
	assert.Equal(t, byte(0xAB), timer.Read(addr.TIMA), "reload lands on the following cycle")

	timer.Write(addr.TIMA, 0x10)
	assert.Equal(t, byte(0xAB), timer.Read(addr.TIMA), "TIMA writes are dropped on the reload cycle")

	timer.Tick()
	timer.Write(addr.TIMA, 0x10)
	assert.Equal(t, byte(0x10), timer.Read(addr.TIMA))
}
