// Package timing paces frame presentation to the DMG refresh rate.
package timing

import (
	"time"

	"github.com/valerio/dotcore/dotcore/video"
)

// Limiter controls frame rate timing for emulation.
type Limiter interface {
	// WaitForNextFrame blocks until it's time for the next frame.
	// Returns immediately if timing is behind schedule.
	WaitForNextFrame()

	// Reset resets the timing state, useful after pauses.
	Reset()
}

// NewNoOpLimiter returns a limiter that doesn't limit (for headless mode).
func NewNoOpLimiter() Limiter {
	return &noOpLimiter{}
}

type noOpLimiter struct{}

func (n *noOpLimiter) WaitForNextFrame() {}
func (n *noOpLimiter) Reset()            {}

// Game Boy timing, in dots (4.194304 MHz clock ticks).
const (
	CyclesPerFrame = video.FrameCycles
	CPUFrequency   = 4194304
)

// TargetFPS calculates the exact Game Boy frame rate.
func TargetFPS() float64 {
	return float64(CPUFrequency) / float64(CyclesPerFrame)
}

// FrameDuration returns the target duration of a single frame.
func FrameDuration() time.Duration {
	return time.Duration(float64(time.Second) / TargetFPS())
}

// ScaledFrameDuration returns the frame duration when running speed times
// faster than real hardware. Non-positive speeds mean real time.
func ScaledFrameDuration(speed float64) time.Duration {
	if speed <= 0 {
		speed = 1
	}
	return time.Duration(float64(FrameDuration()) / speed)
}

// New picks a limiter for the given speed multiplier. Zero disables limiting.
func New(speed float64) Limiter {
	if speed == 0 {
		return NewNoOpLimiter()
	}
	return NewAdaptiveLimiter(ScaledFrameDuration(speed))
}
