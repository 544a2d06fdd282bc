// Package dotcore wires the CPU, address space, pixel pipeline and timer of a
// DMG Game Boy into a single-threaded, cycle-stepped machine.
package dotcore

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/valerio/dotcore/dotcore/addr"
	"github.com/valerio/dotcore/dotcore/audio"
	"github.com/valerio/dotcore/dotcore/cpu"
	"github.com/valerio/dotcore/dotcore/disasm"
	"github.com/valerio/dotcore/dotcore/memory"
	"github.com/valerio/dotcore/dotcore/savestate"
	"github.com/valerio/dotcore/dotcore/serial"
	"github.com/valerio/dotcore/dotcore/video"
)

// ErrStateMismatch is returned when a save state was taken with a different
// cartridge than the one loaded.
var ErrStateMismatch = errors.New("save state belongs to a different cartridge")

type config struct {
	bootROM []byte
	logger  *slog.Logger
	serial  io.Writer
	trace   bool
	audio   audio.Sink
}

// Option configures an Emulator.
type Option func(*config)

// WithBootROM maps image over the start of the address space and begins
// execution at 0x0000 instead of applying the post-boot state.
func WithBootROM(image []byte) Option {
	return func(c *config) { c.bootROM = image }
}

// WithLogger sets the logger used by the emulator and the serial log sink.
func WithLogger(logger *slog.Logger) Option {
	return func(c *config) { c.logger = logger }
}

// WithSerialWriter mirrors every byte sent over the serial port to w.
func WithSerialWriter(w io.Writer) Option {
	return func(c *config) { c.serial = w }
}

// WithTrace logs every executed instruction at debug level.
func WithTrace() Option {
	return func(c *config) { c.trace = true }
}

// WithAudioSink hands the sound registers to sink once per machine cycle.
func WithAudioSink(sink audio.Sink) Option {
	return func(c *config) { c.audio = sink }
}

// Emulator is a complete machine. It is not safe for concurrent use; hosts
// drive it from one goroutine and exchange frames and input with their own.
type Emulator struct {
	rom []byte
	cfg config

	cpu *cpu.CPU
	gpu *video.GPU
	mem *memory.MMU

	frames uint64
	regs   audio.Registers
}

// New creates an emulator running the given ROM image.
func New(rom []byte, opts ...Option) (*Emulator, error) {
	cfg := config{logger: slog.Default()}
	for _, opt := range opts {
		opt(&cfg)
	}

	e, err := build(rom, cfg)
	if err != nil {
		return nil, err
	}

	h := e.mem.Cartridge().Header()
	cfg.logger.Info("cartridge loaded",
		"title", h.Title,
		"kind", e.mem.Cartridge().Kind(),
		"rom_size", h.ROMSize,
		"ram_size", h.RAMSize,
		"battery", h.HasBattery,
		"rtc", h.HasRTC,
		"header_checksum", fmt.Sprintf("0x%02X", h.HeaderChecksum))
	return e, nil
}

// NewWithFile creates an emulator running the ROM stored at path.
func NewWithFile(path string, opts ...Option) (*Emulator, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read rom: %w", err)
	}
	slog.Debug("read rom file", "path", path, "bytes", len(data))
	return New(data, opts...)
}

func build(rom []byte, cfg config) (*Emulator, error) {
	cart, err := memory.NewCartridge(rom)
	if err != nil {
		return nil, fmt.Errorf("load cartridge: %w", err)
	}

	e := &Emulator{rom: rom, cfg: cfg}
	e.mem = memory.NewWithCartridge(cart)
	e.mem.AttachSerialLog(serialOptions(cfg)...)
	e.cpu = cpu.New(e.mem)

	if len(cfg.bootROM) > 0 {
		e.mem.SetBootROM(cfg.bootROM)
		e.cpu.ResetForBootROM()
	} else {
		e.mem.ApplyPostBootState()
	}
	e.gpu = video.NewGpu(e.mem)

	if cfg.trace {
		e.cpu.SetTracer(e.traceInstruction)
	}
	return e, nil
}

func serialOptions(cfg config) []serial.LogSinkOption {
	opts := []serial.LogSinkOption{serial.WithLogger(cfg.logger)}
	if cfg.serial != nil {
		opts = append(opts, serial.WithMirror(cfg.serial))
	}
	return opts
}

func (e *Emulator) traceInstruction(c *cpu.CPU, pc uint16, _ uint8) {
	line := disasm.At(e.mem, pc)
	e.cfg.logger.Debug("exec",
		"pc", fmt.Sprintf("%04X", pc),
		"op", line.Instruction,
		"af", fmt.Sprintf("%02X%02X", c.GetA(), c.GetF()),
		"bc", fmt.Sprintf("%02X%02X", c.GetB(), c.GetC()),
		"de", fmt.Sprintf("%02X%02X", c.GetD(), c.GetE()),
		"hl", fmt.Sprintf("%02X%02X", c.GetH(), c.GetL()),
		"sp", fmt.Sprintf("%04X", c.GetSP()),
		"cycle", c.GetCycles())
}

// Step advances the machine by one M-cycle: the pixel pipeline first, then
// OAM DMA, the timer and the CPU. Interrupt requests raised during the cycle
// are latched into IF before it returns. It reports whether a frame was
// completed and returns the CPU fault once an illegal opcode has locked it.
func (e *Emulator) Step() (bool, error) {
	frame := e.gpu.Tick()
	e.mem.Tick()
	timer := e.mem.Timer()
	timer.Tick()
	e.cpu.Tick()

	irq := e.gpu.TakeInterrupts() | e.mem.TakeInterrupts()
	if timer.TakeInterrupt() {
		irq |= addr.TimerInterrupt
	}
	if irq != 0 {
		e.mem.RequestInterrupt(irq)
	}

	if e.cfg.audio != nil {
		for i := range e.regs {
			e.regs[i] = e.mem.Register(addr.AudioStart + uint16(i))
		}
		e.cfg.audio.Observe(e.cpu.GetCycles(), &e.regs)
		for _, reg := range audio.ControlRegisters {
			if v := e.mem.Register(reg); audio.Triggered(v) {
				e.mem.SetRegister(reg, v&^0x80)
			}
		}
	}

	if frame {
		e.frames++
	}
	if err := e.cpu.Fault(); err != nil {
		return frame, err
	}
	return frame, nil
}

// RunUntilFrame steps until the next frame is complete. The pixel pipeline
// reports frames even with the LCD off, so this always returns.
func (e *Emulator) RunUntilFrame() error {
	for {
		frame, err := e.Step()
		if err != nil {
			return err
		}
		if frame {
			return nil
		}
	}
}

// Frame returns the framebuffer. Its contents are stable between the end of
// RunUntilFrame and the next Step.
func (e *Emulator) Frame() *video.FrameBuffer {
	return e.gpu.GetFrameBuffer()
}

// SetButtons replaces the pressed button mask (see memory.Button).
func (e *Emulator) SetButtons(mask uint8) {
	e.mem.SetButtons(mask)
}

// Header returns the parsed cartridge header.
func (e *Emulator) Header() memory.Header {
	return e.mem.Cartridge().Header()
}

// FrameCount returns the number of frames completed since power on or the
// last loaded state.
func (e *Emulator) FrameCount() uint64 {
	return e.frames
}

// CPU exposes the processor for inspection.
func (e *Emulator) CPU() *cpu.CPU {
	return e.cpu
}

// MMU exposes the address space for inspection.
func (e *Emulator) MMU() *memory.MMU {
	return e.mem
}

// SaveState writes a versioned snapshot of the whole machine to w.
func (e *Emulator) SaveState(w io.Writer) error {
	sw := savestate.NewWriter(w)
	h := e.Header()
	sw.Uint8(h.HeaderChecksum)
	sw.Uint16(h.GlobalChecksum)

	e.gpu.SaveState(sw)
	e.mem.Timer().SaveInterruptState(sw)
	e.mem.SaveState(sw)
	e.mem.Cartridge().SaveState(sw)
	e.cpu.SaveState(sw)
	sw.Uint64(e.frames)

	if err := sw.Err(); err != nil {
		return fmt.Errorf("save state: %w", err)
	}
	return nil
}

// LoadState restores a snapshot written by SaveState. The state is decoded
// into a fresh machine first, so a failed load leaves the emulator untouched.
func (e *Emulator) LoadState(r io.Reader) error {
	sr, err := savestate.NewReader(r)
	if err != nil {
		return fmt.Errorf("load state: %w", err)
	}

	h := e.Header()
	headerChecksum := sr.Uint8()
	globalChecksum := sr.Uint16()
	if err := sr.Err(); err != nil {
		return fmt.Errorf("load state: %w", err)
	}
	if headerChecksum != h.HeaderChecksum || globalChecksum != h.GlobalChecksum {
		return ErrStateMismatch
	}

	next, err := build(e.rom, e.cfg)
	if err != nil {
		return err
	}
	next.gpu.LoadState(sr)
	next.mem.Timer().LoadInterruptState(sr)
	next.mem.LoadState(sr)
	next.mem.Cartridge().LoadState(sr)
	next.cpu.LoadState(sr)
	next.frames = sr.Uint64()
	if err := sr.Err(); err != nil {
		return fmt.Errorf("load state: %w", err)
	}

	e.cpu, e.gpu, e.mem, e.frames = next.cpu, next.gpu, next.mem, next.frames
	if e.cfg.trace {
		e.cpu.SetTracer(e.traceInstruction)
	}
	return nil
}
