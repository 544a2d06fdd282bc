package timing

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestTargetFPS(t *testing.T) {
	assert.InDelta(t, 59.7275, TargetFPS(), 0.0001)
	assert.InDelta(t, float64(16742706*time.Nanosecond), float64(FrameDuration()), float64(time.Microsecond))
}

func TestScaledFrameDuration(t *testing.T) {
	tests := []struct {
		name  string
		speed float64
		want  time.Duration
	}{
		{"real time", 1, FrameDuration()},
		{"double speed", 2, FrameDuration() / 2},
		{"half speed", 0.5, FrameDuration() * 2},
		{"non-positive falls back", -1, FrameDuration()},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, float64(tt.want), float64(ScaledFrameDuration(tt.speed)), 2)
		})
	}
}

func TestNew(t *testing.T) {
	assert.IsType(t, &noOpLimiter{}, New(0))
	assert.IsType(t, &AdaptiveLimiter{}, New(1))
}

// fakeClock advances only when the limiter sleeps or polls.
type fakeClock struct {
	t     time.Time
	slept time.Duration
}

func (c *fakeClock) now() time.Time {
	c.t = c.t.Add(100 * time.Microsecond)
	return c.t
}

func (c *fakeClock) sleep(d time.Duration) {
	c.slept += d
	c.t = c.t.Add(d)
}

func TestAdaptiveLimiter(t *testing.T) {
	clock := &fakeClock{t: time.Unix(0, 0)}
	l := NewAdaptiveLimiter(10 * time.Millisecond)
	l.now, l.sleep = clock.now, clock.sleep
	l.Reset()

	start := clock.t
	for range 5 {
		l.WaitForNextFrame()
	}
	elapsed := clock.t.Sub(start)
	assert.GreaterOrEqual(t, elapsed, 40*time.Millisecond)
	assert.Less(t, elapsed, 45*time.Millisecond)
	assert.NotZero(t, clock.slept)

	t.Run("drops backlog when far behind", func(t *testing.T) {
		clock.t = clock.t.Add(time.Second)
		before := clock.slept
		l.WaitForNextFrame()
		assert.Equal(t, before, clock.slept, "no sleep while catching up")
		assert.True(t, l.nextFrameTime.After(clock.t))
	})
}

func TestNoOpLimiter(t *testing.T) {
	l := NewNoOpLimiter()
	l.WaitForNextFrame()
	l.Reset()
}
