// Package audio exposes the sound register block to hosts. The core does not
// synthesize sound: every cycle the driver hands a copy of 0xFF10-0xFF3F to
// the attached Sink, which is free to turn it into samples.
package audio

import (
	"github.com/valerio/dotcore/dotcore/addr"
	"github.com/valerio/dotcore/dotcore/bit"
)

// RegisterCount is the size of the 0xFF10-0xFF3F block.
const RegisterCount = int(addr.AudioEnd-addr.AudioStart) + 1

// Channel bit positions in NR51 (right output in the low nibble) and NR52.
const (
	masterEnableBit = 7
	triggerBit      = 7
	lengthEnableBit = 6
	envelopeUpBit   = 3
	waveDACBit      = 7
)

// ControlRegisters are the per-channel NRx4 registers. Bit 7 of each starts
// its channel; the driver clears it once a snapshot has carried it, so a
// trigger shows up in exactly one snapshot.
var ControlRegisters = [4]uint16{addr.NR14, addr.NR24, addr.NR34, addr.NR44}

// Registers is a copy of the sound registers and wave RAM, indexed from
// addr.AudioStart.
type Registers [RegisterCount]byte

// Get returns the register at address, which must lie in the audio block.
func (r *Registers) Get(address uint16) byte {
	return r[address-addr.AudioStart]
}

// Set stores value at address, which must lie in the audio block.
func (r *Registers) Set(address uint16, value byte) {
	r[address-addr.AudioStart] = value
}

// Enabled reports the NR52 master switch.
func (r *Registers) Enabled() bool {
	return bit.IsSet(masterEnableBit, r.Get(addr.NR52))
}

// WaveRAM returns the 32 four-bit samples of channel 3, high nibble first.
func (r *Registers) WaveRAM() [32]uint8 {
	var samples [32]uint8
	for i := range 16 {
		b := r.Get(addr.WaveRAMStart + uint16(i))
		samples[2*i] = b >> 4
		samples[2*i+1] = b & 0x0F
	}
	return samples
}

// Channel is the decoded configuration of one sound channel.
type Channel struct {
	// DAC reports whether the channel's converter is powered.
	DAC bool
	// Duty is the square wave duty index (0-3); zero for channels 3 and 4.
	Duty uint8
	// Period is the 11-bit period value of channels 1-3.
	Period uint16
	// Volume is the initial envelope volume (0-15), or for channel 3 the
	// output level shift (0 mute, 1 full, 2 half, 3 quarter).
	Volume        uint8
	EnvelopeUp    bool
	EnvelopePace  uint8
	LengthEnabled bool
	// Trigger is set in the one snapshot taken right after the channel was
	// started.
	Trigger     bool
	Left, Right bool
	// Hz is the tone frequency for channels 1-3 and the LFSR clock for channel 4.
	Hz float64
}

// Channel decodes channel n (1-4). Other values return the zero Channel.
func (r *Registers) Channel(n int) Channel {
	panning := r.Get(addr.NR51)
	ch := Channel{
		Left:  bit.IsSet(uint8(n+3), panning),
		Right: bit.IsSet(uint8(n-1), panning),
	}

	switch n {
	case 1, 2:
		base := addr.NR11
		if n == 2 {
			base = addr.NR21
		}
		ch.Duty = r.Get(base) >> 6
		decodeEnvelope(&ch, r.Get(base+1))
		ch.Period = period(r.Get(base+2), r.Get(base+3))
		ch.LengthEnabled = bit.IsSet(lengthEnableBit, r.Get(base+3))
		ch.Hz = 131072 / float64(2048-int(ch.Period))
	case 3:
		ch.DAC = bit.IsSet(waveDACBit, r.Get(addr.NR30))
		ch.Volume = (r.Get(addr.NR32) >> 5) & 0x03
		ch.Period = period(r.Get(addr.NR33), r.Get(addr.NR34))
		ch.LengthEnabled = bit.IsSet(lengthEnableBit, r.Get(addr.NR34))
		ch.Hz = 65536 / float64(2048-int(ch.Period))
	case 4:
		decodeEnvelope(&ch, r.Get(addr.NR42))
		ch.LengthEnabled = bit.IsSet(lengthEnableBit, r.Get(addr.NR44))
		nr43 := r.Get(addr.NR43)
		divisor := float64(nr43 & 0x07)
		if divisor == 0 {
			divisor = 0.5
		}
		ch.Hz = 262144 / (divisor * float64(uint32(1)<<(nr43>>4)))
	default:
		return Channel{}
	}
	ch.Trigger = Triggered(r.Get(ControlRegisters[n-1]))
	return ch
}

// Triggered reports whether a channel control register value (NR14, NR24,
// NR34 or NR44) carries the trigger bit.
func Triggered(value byte) bool {
	return bit.IsSet(triggerBit, value)
}

func decodeEnvelope(ch *Channel, nrx2 byte) {
	ch.Volume = nrx2 >> 4
	ch.EnvelopeUp = bit.IsSet(envelopeUpBit, nrx2)
	ch.EnvelopePace = nrx2 & 0x07
	ch.DAC = nrx2&0xF8 != 0
}

func period(low, high byte) uint16 {
	return uint16(high&0x07)<<8 | uint16(low)
}
