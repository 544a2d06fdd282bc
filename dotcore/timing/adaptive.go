package timing

import (
	"log/slog"
	"time"
)

// AdaptiveLimiter uses precise timing with drift compensation.
// Combines sleep for efficiency with busy-waiting for accuracy.
type AdaptiveLimiter struct {
	targetFrameTime time.Duration
	nextFrameTime   time.Time
	frameCounter    int64
	now             func() time.Time
	sleep           func(time.Duration)
}

func NewAdaptiveLimiter(frameTime time.Duration) *AdaptiveLimiter {
	return &AdaptiveLimiter{
		targetFrameTime: frameTime,
		nextFrameTime:   time.Now(),
		now:             time.Now,
		sleep:           time.Sleep,
	}
}

func (a *AdaptiveLimiter) WaitForNextFrame() {
	now := a.now()
	sleepTime := a.nextFrameTime.Sub(now)

	switch {
	case sleepTime >= 2*time.Millisecond:
		a.sleep(sleepTime - time.Millisecond)
		a.spinUntil(a.nextFrameTime)
	case sleepTime > 0:
		// busy-wait for times under 2ms, higher accuracy.
		a.spinUntil(a.nextFrameTime)
	case sleepTime < -5*time.Millisecond:
		// too far behind to catch up, drop the backlog
		a.nextFrameTime = now
	}

	a.nextFrameTime = a.nextFrameTime.Add(a.targetFrameTime)
	a.frameCounter++

	if a.frameCounter%60 == 0 {
		drift := a.now().Sub(a.nextFrameTime)
		if drift.Abs() > 10*time.Millisecond {
			a.nextFrameTime = a.nextFrameTime.Add(drift / 10)
			slog.Debug("Frame timing drift correction", "drift_ms", drift.Milliseconds())
		}
	}
}

func (a *AdaptiveLimiter) spinUntil(deadline time.Time) {
	for a.now().Before(deadline) {
	}
}

func (a *AdaptiveLimiter) Reset() {
	a.nextFrameTime = a.now()
	a.frameCounter = 0
}
