package memory

import (
	"github.com/valerio/dotcore/dotcore/addr"
	"github.com/valerio/dotcore/dotcore/bit"
	"github.com/valerio/dotcore/dotcore/savestate"
)

// tacLookup maps TAC input clock select (bits 1–0) to the bit position
// of the 16‑bit internal counter used as the timer's clock source.
//
//	00 -> bit 9  (4096 Hz)
//	01 -> bit 3  (262144 Hz)
//	10 -> bit 5  (65536 Hz)
//	11 -> bit 7  (16384 Hz)
var tacLookup = [4]uint16{9, 3, 5, 7}

// Timer encapsulates the DIV/TIMA/TMA/TAC behavior.
//
// TIMA increments on a falling edge of (TAC enable AND selected counter bit).
// Every mutation of the counter or TAC goes through that same edge check,
// which covers the DIV write and TAC write quirks.
type Timer struct {
	counter uint16 // DIV is the upper 8 bits

	tima byte
	tma  byte
	tac  byte

	// reloadPending is armed by an overflow and consumed by the next Tick.
	reloadPending bool
	// reloading is set for the cycle in which TIMA was reloaded; TIMA writes
	// during that cycle are dropped.
	reloading bool
	interrupt bool
}

// SetCounter sets the internal counter without edge checks, used for post-boot state.
func (t *Timer) SetCounter(value uint16) {
	t.counter = value
}

// Counter returns the full 16 bit counter.
func (t *Timer) Counter() uint16 {
	return t.counter
}

func (t *Timer) signal() bool {
	return bit.IsSet(2, t.tac) && bit.IsSet16(tacLookup[t.tac&0x03], t.counter)
}

// Tick advances the timer by one machine cycle (four counter steps).
func (t *Timer) Tick() {
	t.reloading = false
	if t.reloadPending {
		t.tima = t.tma
		t.reloadPending = false
		t.reloading = true
	}

	before := t.signal()
	t.counter += 4
	if before && !t.signal() {
		t.incrementTIMA()
	}
}

func (t *Timer) incrementTIMA() {
	t.tima++
	if t.tima == 0 {
		t.interrupt = true
		t.reloadPending = true
	}
}

// TakeInterrupt reports and clears the pending timer request.
func (t *Timer) TakeInterrupt() bool {
	pending := t.interrupt
	t.interrupt = false
	return pending
}

func (t *Timer) Read(address uint16) byte {
	switch address {
	case addr.DIV:
		return byte(t.counter >> 8)
	case addr.TIMA:
		return t.tima
	case addr.TMA:
		return t.tma
	case addr.TAC:
		return t.tac | 0xF8
	default:
		return 0xFF
	}
}

func (t *Timer) Write(address uint16, value byte) {
	before := t.signal()
	switch address {
	case addr.DIV:
		t.counter = uint16(value) << 8
	case addr.TIMA:
		if t.reloading {
			return
		}
		t.tima = value
		return
	case addr.TMA:
		t.tma = value
		return
	case addr.TAC:
		t.tac = value & 0x07
	}
	if before && !t.signal() {
		t.incrementTIMA()
	}
}

func (t *Timer) SaveState(w *savestate.Writer) {
	w.Uint16(t.counter)
	w.Uint8(t.tima)
	w.Uint8(t.tma)
	w.Uint8(t.tac)
	w.Bool(t.reloadPending)
	w.Bool(t.reloading)
}

func (t *Timer) LoadState(r *savestate.Reader) {
	t.counter = r.Uint16()
	t.tima = r.Uint8()
	t.tma = r.Uint8()
	t.tac = r.Uint8()
	t.reloadPending = r.Bool()
	t.reloading = r.Bool()
}

// SaveInterruptState and LoadInterruptState persist the pending request, which
// the save record keeps apart from the register state.
func (t *Timer) SaveInterruptState(w *savestate.Writer) {
	w.Bool(t.interrupt)
}

func (t *Timer) LoadInterruptState(r *savestate.Reader) {
	t.interrupt = r.Bool()
}
