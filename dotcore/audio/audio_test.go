package audio

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/valerio/dotcore/dotcore/addr"
)

func TestChannelDecode(t *testing.T) {
	var regs Registers
	regs.Set(addr.NR51, 0x21) // ch1 right, ch2 left
	regs.Set(addr.NR11, 0x80)
	regs.Set(addr.NR12, 0xF3)
	regs.Set(addr.NR13, 0x00)
	regs.Set(addr.NR14, 0xC7)
	regs.Set(addr.NR22, 0x08)
	regs.Set(addr.NR30, 0x80)
	regs.Set(addr.NR32, 0x40)
	regs.Set(addr.NR33, 0x00)
	regs.Set(addr.NR34, 0x04)
	regs.Set(addr.NR43, 0x00)

	ch1 := regs.Channel(1)
	assert.Equal(t, uint8(2), ch1.Duty)
	assert.Equal(t, uint8(15), ch1.Volume)
	assert.Equal(t, uint8(3), ch1.EnvelopePace)
	assert.False(t, ch1.EnvelopeUp)
	assert.True(t, ch1.DAC)
	assert.True(t, ch1.LengthEnabled)
	assert.Equal(t, uint16(0x700), ch1.Period)
	assert.InDelta(t, 512.0, ch1.Hz, 0.001)
	assert.True(t, ch1.Right)
	assert.False(t, ch1.Left)

	ch2 := regs.Channel(2)
	assert.True(t, ch2.DAC, "envelope increase alone powers the DAC")
	assert.True(t, ch2.EnvelopeUp)
	assert.True(t, ch2.Left)
	assert.False(t, ch2.Right)

	ch3 := regs.Channel(3)
	assert.True(t, ch3.DAC)
	assert.Equal(t, uint8(2), ch3.Volume)
	assert.InDelta(t, 64.0, ch3.Hz, 0.001)

	ch4 := regs.Channel(4)
	assert.False(t, ch4.DAC)
	assert.InDelta(t, 524288.0, ch4.Hz, 0.001)

	assert.Equal(t, Channel{}, regs.Channel(5))
}

func TestWaveRAM(t *testing.T) {
	var regs Registers
	regs.Set(addr.WaveRAMStart, 0xA5)
	regs.Set(addr.WaveRAMEnd, 0x3C)
	samples := regs.WaveRAM()
	assert.Equal(t, uint8(0xA), samples[0])
	assert.Equal(t, uint8(0x5), samples[1])
	assert.Equal(t, uint8(0x3), samples[30])
	assert.Equal(t, uint8(0xC), samples[31])
}

func TestMasterSwitchAndTrigger(t *testing.T) {
	var regs Registers
	assert.False(t, regs.Enabled())
	regs.Set(addr.NR52, 0x80)
	assert.True(t, regs.Enabled())
	assert.True(t, Triggered(0x87))
	assert.False(t, Triggered(0x47))

	regs.Set(addr.NR44, 0x80)
	assert.True(t, regs.Channel(4).Trigger)
	assert.False(t, regs.Channel(1).Trigger)
}

func TestChangeLog(t *testing.T) {
	log := NewChangeLog(2, nil)
	var regs Registers

	log.Observe(0, &regs)
	assert.Empty(t, log.Drain(), "the first snapshot only primes")

	regs.Set(addr.NR50, 0x77)
	log.Observe(1, &regs)
	log.Observe(2, &regs)
	changes := log.Drain()
	require.Len(t, changes, 1)
	assert.Equal(t, Change{Cycle: 1, Address: addr.NR50, Old: 0x00, New: 0x77}, changes[0])

	for i := range 3 {
		regs.Set(addr.NR10, byte(i+1))
		log.Observe(uint64(10+i), &regs)
	}
	changes = log.Drain()
	require.Len(t, changes, 2, "only the newest entries are kept")
	assert.Equal(t, uint64(11), changes[0].Cycle)
	assert.Equal(t, uint64(12), changes[1].Cycle)
	assert.Equal(t, byte(0x03), log.Snapshot().Get(addr.NR10))
}
