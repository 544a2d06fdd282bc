package audio

import (
	"log/slog"
	"sync"

	"github.com/valerio/dotcore/dotcore/addr"
)

// Sink receives the register block once per machine cycle.
type Sink interface {
	Observe(cycle uint64, regs *Registers)
}

// Change is one register that differed from the previous snapshot.
type Change struct {
	Cycle   uint64
	Address uint16
	Old     byte
	New     byte
}

// ChangeLog is a Sink that records register changes, keeping at most the
// newest limit entries. It is safe to drain from another goroutine.
type ChangeLog struct {
	mu      sync.Mutex
	last    Registers
	primed  bool
	limit   int
	changes []Change
	logger  *slog.Logger
}

// NewChangeLog creates a ChangeLog holding up to limit changes. A nil logger
// disables per-change debug logging.
func NewChangeLog(limit int, logger *slog.Logger) *ChangeLog {
	return &ChangeLog{limit: limit, logger: logger}
}

// Observe implements Sink. The first snapshot only primes the log.
func (l *ChangeLog) Observe(cycle uint64, regs *Registers) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if !l.primed {
		l.last = *regs
		l.primed = true
		return
	}
	if l.last == *regs {
		return
	}
	for i := range regs {
		if regs[i] == l.last[i] {
			continue
		}
		c := Change{
			Cycle:   cycle,
			Address: addr.AudioStart + uint16(i),
			Old:     l.last[i],
			New:     regs[i],
		}
		l.record(c)
	}
	l.last = *regs
}

func (l *ChangeLog) record(c Change) {
	if l.logger != nil {
		l.logger.Debug("audio register", "cycle", c.Cycle, "addr", c.Address, "old", c.Old, "new", c.New)
	}
	if l.limit <= 0 {
		return
	}
	if len(l.changes) == l.limit {
		copy(l.changes, l.changes[1:])
		l.changes = l.changes[:l.limit-1]
	}
	l.changes = append(l.changes, c)
}

// Drain returns the recorded changes and empties the log.
func (l *ChangeLog) Drain() []Change {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := l.changes
	l.changes = nil
	return out
}

// Snapshot returns the most recent register block seen.
func (l *ChangeLog) Snapshot() Registers {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.last
}
