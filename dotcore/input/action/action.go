package action

import "github.com/valerio/dotcore/dotcore/memory"

// Action represents input actions that can be performed in the emulator
type Action int

const (
	// Game Boy hardware controls
	GBButtonA Action = iota
	GBButtonB
	GBButtonStart
	GBButtonSelect
	GBDPadUp
	GBDPadDown
	GBDPadLeft
	GBDPadRight

	// Emulator features
	EmulatorPauseToggle
	EmulatorStepFrame
	EmulatorSnapshot
	EmulatorSaveState
	EmulatorLoadState
	EmulatorQuit
)

var buttons = map[Action]memory.Button{
	GBButtonA:      memory.ButtonA,
	GBButtonB:      memory.ButtonB,
	GBButtonStart:  memory.ButtonStart,
	GBButtonSelect: memory.ButtonSelect,
	GBDPadUp:       memory.ButtonUp,
	GBDPadDown:     memory.ButtonDown,
	GBDPadLeft:     memory.ButtonLeft,
	GBDPadRight:    memory.ButtonRight,
}

// Button returns the joypad button behind a Game Boy control.
func (a Action) Button() (memory.Button, bool) {
	b, ok := buttons[a]
	return b, ok
}
