package memory

import (
	"github.com/valerio/dotcore/dotcore/addr"
	"github.com/valerio/dotcore/dotcore/bit"
)

// Button is a bit in the host button mask. A set bit means pressed.
type Button uint8

const (
	ButtonRight Button = 1 << iota
	ButtonLeft
	ButtonUp
	ButtonDown
	ButtonA
	ButtonB
	ButtonSelect
	ButtonStart
)

// SetButtons replaces the host button mask. Any newly pressed button raises
// the joypad request.
func (m *MMU) SetButtons(mask uint8) {
	pressed := mask &^ m.buttons
	m.buttons = mask
	if pressed != 0 {
		m.pending |= addr.JoypadInterrupt
	}
}

// Buttons returns the current host button mask.
func (m *MMU) Buttons() uint8 {
	return m.buttons
}

// readJoypad multiplexes the button mask through the P1 select bits.
// Bit 4 low selects the directions, bit 5 low the action buttons; the low
// nibble is active-low.
func (m *MMU) readJoypad() byte {
	sel := m.high[addr.P1-addr.HighPage] & 0x30
	result := 0xC0 | sel | 0x0F
	if !bit.IsSet(4, sel) {
		result &^= m.buttons & 0x0F
	}
	if !bit.IsSet(5, sel) {
		result &^= m.buttons >> 4
	}
	return result
}
