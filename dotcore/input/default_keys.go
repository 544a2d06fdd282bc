package input

import "github.com/valerio/dotcore/dotcore/input/action"

// DefaultKeyMap maps key names, as produced by the terminal presenter, to actions.
var DefaultKeyMap = map[string]action.Action{
	// Game Boy controls
	"z":         action.GBButtonA,
	"x":         action.GBButtonB,
	"Enter":     action.GBButtonStart,
	"Backspace": action.GBButtonSelect,
	"Up":        action.GBDPadUp,
	"Down":      action.GBDPadDown,
	"Left":      action.GBDPadLeft,
	"Right":     action.GBDPadRight,

	// Alternative arrow keys (WASD)
	"w": action.GBDPadUp,
	"s": action.GBDPadDown,
	"a": action.GBDPadLeft,
	"d": action.GBDPadRight,

	// Emulator controls
	"p":      action.EmulatorPauseToggle,
	"o":      action.EmulatorStepFrame,
	"F9":     action.EmulatorSnapshot,
	"F5":     action.EmulatorSaveState,
	"F7":     action.EmulatorLoadState,
	"Escape": action.EmulatorQuit,
	"q":      action.EmulatorQuit,
}

// GetDefaultMapping returns the default action for a key, if one exists
func GetDefaultMapping(key string) (action.Action, bool) {
	act, ok := DefaultKeyMap[key]
	return act, ok
}
