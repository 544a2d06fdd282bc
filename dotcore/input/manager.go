// Package input turns host key events into emulator actions and the joypad
// button mask. Events arrive on the presenter's input goroutine while the
// emulator loop reads the mask, so the mask is kept in an atomic.
package input

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/valerio/dotcore/dotcore/input/action"
)

// EventType is the kind of key event.
type EventType int

const (
	Press   EventType = iota // key pressed down (debounced for emulator actions)
	Release                  // key released (debounced for emulator actions)
	Hold                     // key repeat while pressed, never debounced
)

const (
	// debounceDuration is the minimum time between debounced events
	debounceDuration = 300 * time.Millisecond
)

// Manager handles input actions and their associated callbacks
type Manager struct {
	mu            sync.Mutex
	handlers      map[action.Action]map[EventType][]func()
	lastTriggered map[action.Action]map[EventType]time.Time
	now           func() time.Time

	buttons atomic.Uint32

	// Terminals report key presses but not releases. When holdFrames is set a
	// pressed button is released after that many frames without a repeat.
	holdFrames int
	held       [8]int
}

// Option configures a Manager.
type Option func(*Manager)

// WithAutoRelease releases buttons after frames frames without a press or hold event.
func WithAutoRelease(frames int) Option {
	return func(m *Manager) { m.holdFrames = frames }
}

func NewManager(opts ...Option) *Manager {
	m := &Manager{
		handlers:      make(map[action.Action]map[EventType][]func()),
		lastTriggered: make(map[action.Action]map[EventType]time.Time),
		now:           time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// On registers a callback for a specific action and event type
func (m *Manager) On(act action.Action, evt EventType, callback func()) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.handlers[act] == nil {
		m.handlers[act] = make(map[EventType][]func())
	}
	m.handlers[act][evt] = append(m.handlers[act][evt], callback)
}

// Trigger handles the given action and event type.
func (m *Manager) Trigger(act action.Action, evt EventType) {
	// GB controls go straight to the button mask and are never debounced.
	if button, ok := act.Button(); ok {
		m.setButton(uint8(button), evt != Release)
		return
	}

	m.mu.Lock()
	if evt == Press || evt == Release {
		now := m.now()
		if m.lastTriggered[act] == nil {
			m.lastTriggered[act] = make(map[EventType]time.Time)
		}
		if last, ok := m.lastTriggered[act][evt]; ok && now.Sub(last) < debounceDuration {
			m.mu.Unlock()
			return
		}
		m.lastTriggered[act][evt] = now
	}
	callbacks := append([]func(){}, m.handlers[act][evt]...)
	m.mu.Unlock()

	for _, callback := range callbacks {
		callback()
	}
}

func (m *Manager) setButton(button uint8, pressed bool) {
	if pressed && m.holdFrames > 0 {
		m.mu.Lock()
		for i := range m.held {
			if button&(1<<i) != 0 {
				m.held[i] = m.holdFrames
			}
		}
		m.mu.Unlock()
	}
	for {
		old := m.buttons.Load()
		next := old &^ uint32(button)
		if pressed {
			next = old | uint32(button)
		}
		if m.buttons.CompareAndSwap(old, next) {
			return
		}
	}
}

// Buttons returns the current joypad mask (see memory.Button).
func (m *Manager) Buttons() uint8 {
	return uint8(m.buttons.Load())
}

// EndFrame ages auto-released buttons. The emulator loop calls it once per frame.
func (m *Manager) EndFrame() {
	if m.holdFrames == 0 {
		return
	}
	var expired uint8
	m.mu.Lock()
	for i := range m.held {
		if m.held[i] == 0 {
			continue
		}
		m.held[i]--
		if m.held[i] == 0 {
			expired |= 1 << i
		}
	}
	m.mu.Unlock()
	if expired != 0 {
		m.setButton(expired, false)
	}
}
