package video

import (
	"github.com/valerio/dotcore/dotcore/addr"
	"github.com/valerio/dotcore/dotcore/bit"
	"github.com/valerio/dotcore/dotcore/savestate"
)

// Bus is the view of the address space the PPU renders from. Accesses through
// it bypass the CPU-side VRAM lock and register masks.
type Bus interface {
	VRAM() []byte
	OAM() []byte
	Register(address uint16) byte
	SetRegister(address uint16, value byte)
}

// Mode is the PPU mode as reported in STAT bits 1-0.
type Mode uint8

const (
	ModeHBlank Mode = iota
	ModeVBlank
	ModeOAMScan
	ModePixelTransfer
)

func (m Mode) String() string {
	switch m {
	case ModeHBlank:
		return "HBlank"
	case ModeVBlank:
		return "VBlank"
	case ModeOAMScan:
		return "OAM"
	case ModePixelTransfer:
		return "Transfer"
	}
	return "Unknown"
}

const (
	oamScanCycles       = 80
	pixelTransferCycles = 172
	hblankCycles        = 204
	scanlineCycles      = oamScanCycles + pixelTransferCycles + hblankCycles

	visibleLines = 144
	totalLines   = 154

	// FrameCycles is the number of dots in a full frame, VBlank included.
	FrameCycles = scanlineCycles * totalLines
)

// STAT interrupt source enables.
const (
	statHBlankEnable   = 3
	statVBlankEnable   = 4
	statOAMEnable      = 5
	statLYCEnable      = 6
	statCoincidenceBit = 2
)

// LCDC bits.
const (
	lcdcBGEnable      = 0
	lcdcSpriteEnable  = 1
	lcdcSpriteSize    = 2
	lcdcBGMap         = 3
	lcdcWindowEnable  = 5
	lcdcWindowMap     = 6
	lcdcDisplayEnable = 7
)

const (
	paletteBG = iota
	paletteOBP0
	paletteOBP1
)

// GPU is the DMG picture processing unit. It is driven one machine cycle at a
// time and renders each visible line in one go as it enters pixel transfer.
type GPU struct {
	bus         Bus
	framebuffer *FrameBuffer

	mode       Mode
	cycles     int // dots spent in the current mode
	line       int
	windowLine int

	lcdOff    bool
	offCycles int

	palettes [3]Palette

	vblankRequest bool
	statRequest   bool

	bgIndex  [FramebufferWidth]uint8
	sprites  [maxSpritesPerLine]Sprite
	priority SpritePriorityBuffer
}

func NewGpu(bus Bus) *GPU {
	g := &GPU{
		bus:         bus,
		framebuffer: NewFrameBuffer(),
		mode:        ModeOAMScan,
	}
	for i := range g.palettes {
		g.palettes[i] = DecodePalette(0xE4)
	}
	return g
}

func (g *GPU) GetFrameBuffer() *FrameBuffer {
	return g.framebuffer
}

func (g *GPU) Mode() Mode {
	return g.mode
}

func (g *GPU) Line() int {
	return g.line
}

func (g *GPU) WindowLine() int {
	return g.windowLine
}

// Tick advances the PPU by one machine cycle (four dots). It reports true
// when a frame has been completed.
func (g *GPU) Tick() bool {
	if !bit.IsSet(lcdcDisplayEnable, g.bus.Register(addr.LCDC)) {
		return g.tickDisabled()
	}
	if g.lcdOff {
		g.restart()
	}

	frame := false
	for range 4 {
		if g.step() {
			frame = true
		}
	}
	g.updateStat()
	return frame
}

// TakeInterrupts returns and clears the interrupts raised since the last call.
func (g *GPU) TakeInterrupts() addr.Interrupt {
	var irq addr.Interrupt
	if g.vblankRequest {
		irq |= addr.VBlankInterrupt
	}
	if g.statRequest {
		irq |= addr.LCDSTATInterrupt
	}
	g.vblankRequest, g.statRequest = false, false
	return irq
}

// tickDisabled holds the PPU at line 0 with a blank screen while LCDC bit 7 is
// clear. Frames keep being reported at the normal rate so callers pacing on
// frames do not stall.
func (g *GPU) tickDisabled() bool {
	if !g.lcdOff {
		g.lcdOff = true
		g.offCycles = 0
		g.line, g.cycles, g.windowLine = 0, 0, 0
		g.mode = ModeHBlank
		g.bus.SetRegister(addr.LY, 0)
		g.framebuffer.Fill(WhiteColor)
	}
	g.updateStat()

	g.offCycles += 4
	if g.offCycles >= FrameCycles {
		g.offCycles -= FrameCycles
		return true
	}
	return false
}

func (g *GPU) restart() {
	g.lcdOff = false
	g.offCycles = 0
	g.line, g.cycles, g.windowLine = 0, 0, 0
	g.mode = ModeOAMScan
	g.lineChanged()
}

// step advances a single dot.
func (g *GPU) step() bool {
	g.cycles++

	switch g.mode {
	case ModeOAMScan:
		if g.cycles == oamScanCycles {
			g.cycles = 0
			g.setMode(ModePixelTransfer)
			g.renderScanline()
		}
	case ModePixelTransfer:
		if g.cycles == pixelTransferCycles {
			g.cycles = 0
			g.setMode(ModeHBlank)
		}
	case ModeHBlank:
		if g.cycles == hblankCycles {
			g.cycles = 0
			g.line++
			if g.line == visibleLines {
				g.setMode(ModeVBlank)
				g.vblankRequest = true
			} else {
				g.setMode(ModeOAMScan)
			}
			g.lineChanged()
		}
	case ModeVBlank:
		if g.cycles == scanlineCycles {
			g.cycles = 0
			g.line++
			frame := false
			if g.line == totalLines {
				g.line = 0
				g.windowLine = 0
				g.setMode(ModeOAMScan)
				frame = true
			}
			g.lineChanged()
			return frame
		}
	}
	return false
}

func (g *GPU) setMode(mode Mode) {
	g.mode = mode

	var enable uint8
	switch mode {
	case ModeHBlank:
		enable = statHBlankEnable
	case ModeVBlank:
		enable = statVBlankEnable
	case ModeOAMScan:
		enable = statOAMEnable
	default:
		return
	}
	if bit.IsSet(enable, g.bus.Register(addr.STAT)) {
		g.statRequest = true
	}
}

func (g *GPU) lineChanged() {
	g.bus.SetRegister(addr.LY, uint8(g.line))
	if g.coincidence() && bit.IsSet(statLYCEnable, g.bus.Register(addr.STAT)) {
		g.statRequest = true
	}
}

func (g *GPU) coincidence() bool {
	return uint8(g.line) == g.bus.Register(addr.LYC)
}

// updateStat refreshes the read-only part of STAT: coincidence flag and mode.
func (g *GPU) updateStat() {
	stat := g.bus.Register(addr.STAT) & 0xF8
	stat = bit.SetTo(statCoincidenceBit, stat, g.coincidence())
	g.bus.SetRegister(addr.STAT, stat|uint8(g.mode))
}

// SaveState appends the mode machine and palette state.
func (g *GPU) SaveState(w *savestate.Writer) {
	w.Uint8(uint8(g.mode))
	w.Int(g.cycles)
	w.Int(g.line)
	w.Int(g.windowLine)
	w.Bool(g.lcdOff)
	w.Int(g.offCycles)
	for _, p := range g.palettes {
		for _, c := range p {
			w.Uint32(uint32(c))
		}
	}
	w.Bool(g.vblankRequest)
	w.Bool(g.statRequest)
}

// LoadState restores what SaveState wrote. The frame buffer is not part of the
// state and fills in again over the next frame.
func (g *GPU) LoadState(r *savestate.Reader) {
	g.mode = Mode(r.Uint8())
	g.cycles = r.Int()
	g.line = r.Int()
	g.windowLine = r.Int()
	g.lcdOff = r.Bool()
	g.offCycles = r.Int()
	for i := range g.palettes {
		for j := range g.palettes[i] {
			g.palettes[i][j] = GBColor(r.Uint32())
		}
	}
	g.vblankRequest = r.Bool()
	g.statRequest = r.Bool()

	if g.mode > ModePixelTransfer || g.line < 0 || g.line >= totalLines ||
		g.cycles < 0 || g.cycles >= scanlineCycles || g.windowLine < 0 || g.windowLine > visibleLines {
		r.Fail(savestate.ErrCorrupt)
	}
}
