package serial

import (
	"io"
	"log/slog"

	"github.com/valerio/dotcore/dotcore/addr"
	"github.com/valerio/dotcore/dotcore/bit"
	"github.com/valerio/dotcore/dotcore/savestate"
)

// cyclesPerByte is the machine cycle cost of one byte at the internal 8192 Hz bit clock.
const cyclesPerByte = 1024

// LogSink implements a serial device with no peer that logs outgoing bytes as text.
// Test ROMs print their results this way.
type LogSink struct {
	irqHandler     func()
	sb, sc         byte
	transferActive bool
	countdown      int
	logger         *slog.Logger
	mirror         io.Writer
	mirrorFailed   bool

	immediate bool
	defaultRX byte // shifted in from the unconnected peer

	line []byte
}

type LogSinkOption func(*LogSink)

// WithFixedTiming completes transfers after the real byte duration instead of immediately.
func WithFixedTiming() LogSinkOption { return func(s *LogSink) { s.immediate = false } }

// WithLogger routes completed lines to logger instead of slog.Default().
func WithLogger(logger *slog.Logger) LogSinkOption { return func(s *LogSink) { s.logger = logger } }

// WithMirror also copies every outgoing byte to w.
func WithMirror(w io.Writer) LogSinkOption { return func(s *LogSink) { s.mirror = w } }

// NewLogSink creates a new logging serial device.
// The passed function is called when a transfer completes and should request
// the serial interrupt.
func NewLogSink(irq func(), opts ...LogSinkOption) *LogSink {
	s := &LogSink{
		irqHandler: irq,
		immediate:  true,
		defaultRX:  0xFF,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.Reset()
	return s
}

func (s *LogSink) Write(address uint16, value byte) {
	switch address {
	case addr.SB:
		s.sb = value
	case addr.SC:
		s.sc = value
		s.maybeStartTransfer()
	default:
		panic("serial.LogSink: invalid write address")
	}
}

func (s *LogSink) Read(address uint16) byte {
	switch address {
	case addr.SB:
		return s.sb
	case addr.SC:
		return s.sc | 0x7E
	default:
		panic("serial.LogSink: invalid read address")
	}
}

// Tick advances a timed transfer by the given number of machine cycles.
func (s *LogSink) Tick(cycles int) {
	if s.immediate || !s.transferActive {
		return
	}
	s.countdown -= cycles
	if s.countdown <= 0 {
		s.completeTransfer()
		s.countdown = 0
	}
}

func (s *LogSink) Reset() {
	s.sb = 0x00
	s.sc = 0x00
	s.transferActive = false
	s.countdown = 0
	s.line = s.line[:0]
}

// Flush logs a partially buffered line, if any.
func (s *LogSink) Flush() {
	if len(s.line) > 0 {
		s.logger.Info("serial", "line", string(s.line))
		s.line = s.line[:0]
	}
}

func (s *LogSink) maybeStartTransfer() {
	if s.transferActive {
		return
	}
	// only the internal clock drives a transfer without a peer
	if !bit.IsSet(7, s.sc) || !bit.IsSet(0, s.sc) {
		return
	}

	b := s.sb
	if s.mirror != nil {
		if _, err := s.mirror.Write([]byte{b}); err != nil && !s.mirrorFailed {
			s.mirrorFailed = true
			s.logger.Warn("serial mirror write failed", "error", err)
		}
	}
	if b == 0 || b == '\n' || b == '\r' {
		s.Flush()
	} else {
		s.line = append(s.line, b)
	}

	if s.immediate {
		s.completeTransfer()
		return
	}

	s.transferActive = true
	s.countdown = cyclesPerByte
}

func (s *LogSink) completeTransfer() {
	s.sb = s.defaultRX
	s.sc = bit.Clear(7, s.sc)
	s.transferActive = false
	if s.irqHandler != nil {
		s.irqHandler()
	}
}

func (s *LogSink) SaveState(w *savestate.Writer) {
	w.Uint8(s.sb)
	w.Uint8(s.sc)
	w.Bool(s.transferActive)
	w.Int(s.countdown)
}

func (s *LogSink) LoadState(r *savestate.Reader) {
	s.sb = r.Uint8()
	s.sc = r.Uint8()
	s.transferActive = r.Bool()
	s.countdown = r.Int()
}
