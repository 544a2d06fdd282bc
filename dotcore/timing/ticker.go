package timing

import "time"

// TickerLimiter uses time.Ticker for simple, consistent frame timing.
// Less accurate than AdaptiveLimiter but simpler and good enough for most cases.
type TickerLimiter struct {
	ticker *time.Ticker
	period time.Duration
}

func NewTickerLimiter(period time.Duration) *TickerLimiter {
	return &TickerLimiter{
		ticker: time.NewTicker(period),
		period: period,
	}
}

func (t *TickerLimiter) WaitForNextFrame() {
	<-t.ticker.C
}

func (t *TickerLimiter) Reset() {
	t.ticker.Reset(t.period)
}

func (t *TickerLimiter) Stop() {
	t.ticker.Stop()
}
