package memory

import (
	"github.com/valerio/dotcore/dotcore/bit"
	"github.com/valerio/dotcore/dotcore/savestate"
)

// cyclesPerSecond is the number of machine cycles in one emulated second.
const cyclesPerSecond = 1 << 20

const (
	rtcSeconds = iota
	rtcMinutes
	rtcHours
	rtcDaysLow
	rtcDaysHigh
)

// RTC is the MBC3 real time clock. It counts emulated machine cycles rather
// than wall time, so a run is reproducible and the clock survives save states.
//
// Registers, selected through 0x4000-0x5FFF values 0x08-0x0C:
//
//	0x08 seconds (0-59)
//	0x09 minutes (0-59)
//	0x0A hours (0-23)
//	0x0B low 8 bits of the day counter
//	0x0C bit 0: day counter bit 8, bit 6: halt, bit 7: day counter carry
type RTC struct {
	live    [5]uint8
	latched [5]uint8
	cycles  uint32
}

// Tick advances the clock by one machine cycle unless it is halted.
func (r *RTC) Tick() {
	if bit.IsSet(6, r.live[rtcDaysHigh]) {
		return
	}
	r.cycles++
	if r.cycles < cyclesPerSecond {
		return
	}
	r.cycles = 0
	r.advanceSecond()
}

func (r *RTC) advanceSecond() {
	r.live[rtcSeconds]++
	if r.live[rtcSeconds] != 60 {
		return
	}
	r.live[rtcSeconds] = 0
	r.live[rtcMinutes]++
	if r.live[rtcMinutes] != 60 {
		return
	}
	r.live[rtcMinutes] = 0
	r.live[rtcHours]++
	if r.live[rtcHours] != 24 {
		return
	}
	r.live[rtcHours] = 0

	days := uint16(r.live[rtcDaysHigh]&0x01)<<8 | uint16(r.live[rtcDaysLow])
	days++
	if days > 0x1FF {
		days = 0
		r.live[rtcDaysHigh] = bit.Set(7, r.live[rtcDaysHigh])
	}
	r.live[rtcDaysLow] = uint8(days)
	r.live[rtcDaysHigh] = r.live[rtcDaysHigh]&0xFE | uint8(days>>8)
}

// Latch copies the live registers into the readable ones.
func (r *RTC) Latch() {
	r.latched = r.live
}

// Read returns the latched value of the register selected by sel (0x08-0x0C).
func (r *RTC) Read(sel uint8) uint8 {
	return r.latched[sel-0x08]
}

// Write sets a live register. Writing the seconds resets the sub-second counter.
func (r *RTC) Write(sel uint8, value uint8) {
	reg := sel - 0x08
	switch reg {
	case rtcSeconds:
		value &= 0x3F
		r.cycles = 0
	case rtcMinutes:
		value &= 0x3F
	case rtcHours:
		value &= 0x1F
	case rtcDaysHigh:
		value &= 0xC1
	}
	r.live[reg] = value
}

func (r *RTC) SaveState(w *savestate.Writer) {
	w.Bytes(r.live[:])
	w.Bytes(r.latched[:])
	w.Uint32(r.cycles)
}

func (r *RTC) LoadState(sr *savestate.Reader) {
	sr.Bytes(r.live[:])
	sr.Bytes(r.latched[:])
	r.cycles = sr.Uint32()
}
