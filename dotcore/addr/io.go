package addr

// memory map boundaries
const (
	// BootEnd is the first address past the boot overlay.
	BootEnd uint16 = 0x0100
	// ROMBank0 is the fixed ROM window, ROMBankN the switchable one.
	ROMBank0 uint16 = 0x0000
	ROMBankN uint16 = 0x4000
	// VRAMStart is the start of video RAM (8KB).
	VRAMStart uint16 = 0x8000
	// ExtRAMStart is the start of the cartridge RAM window (8KB).
	ExtRAMStart uint16 = 0xA000
	// WRAMStart is the start of work RAM (8KB), echoed up to 0xFDFF.
	WRAMStart uint16 = 0xC000
	// EchoStart is the start of the work RAM mirror.
	EchoStart uint16 = 0xE000
	// HighPage is the start of the 512 byte OAM/I/O/HRAM page.
	HighPage uint16 = 0xFE00
	// IOStart is the first I/O register; DMA never blocks addresses from here up.
	IOStart uint16 = 0xFF00
	// HRAMStart is the start of high RAM.
	HRAMStart uint16 = 0xFF80
)

// gpu registers
const (
	// LCD Control register.
	LCDC uint16 = 0xFF40
	// LCDC Status register.
	STAT uint16 = 0xFF41
	// Scroll Y (SCY) register.
	SCY uint16 = 0xFF42
	// Scroll X (SCX) register.
	SCX uint16 = 0xFF43
	// LCDC Y-Coordinate register. CPU writes reset it to zero.
	LY uint16 = 0xFF44
	// LY Compare register.
	LYC uint16 = 0xFF45
	// DMA Transfer and Start register.
	DMA uint16 = 0xFF46
	// BG Palette register.
	BGP uint16 = 0xFF47
	// Object Palette 0 register.
	OBP0 uint16 = 0xFF48
	// Object Palette 1 register.
	OBP1 uint16 = 0xFF49
	// Window Y Position register.
	WY uint16 = 0xFF4A
	// Window X Position register.
	WX uint16 = 0xFF4B
)

// system control
const (
	// KEY1 arms the speed switch performed by STOP (bit 0) and reports the speed (bit 7).
	KEY1 uint16 = 0xFF4D
	// BOOT disables the boot overlay when written with a non-zero value.
	BOOT uint16 = 0xFF50
)

// Audio/Sound registers
// Reference: https://gbdev.io/pandocs/Audio_Registers.html
const (
	AudioStart uint16 = 0xFF10
	AudioEnd   uint16 = 0xFF3F

	NR10 uint16 = 0xFF10 // Channel 1 sweep
	NR11 uint16 = 0xFF11 // Channel 1 length timer & duty cycle
	NR12 uint16 = 0xFF12 // Channel 1 volume & envelope
	NR13 uint16 = 0xFF13 // Channel 1 period low
	NR14 uint16 = 0xFF14 // Channel 1 period high & control

	NR21 uint16 = 0xFF16 // Channel 2 length timer & duty cycle
	NR22 uint16 = 0xFF17 // Channel 2 volume & envelope
	NR23 uint16 = 0xFF18 // Channel 2 period low
	NR24 uint16 = 0xFF19 // Channel 2 period high & control

	NR30 uint16 = 0xFF1A // Channel 3 DAC enable
	NR31 uint16 = 0xFF1B // Channel 3 length timer
	NR32 uint16 = 0xFF1C // Channel 3 output level
	NR33 uint16 = 0xFF1D // Channel 3 period low
	NR34 uint16 = 0xFF1E // Channel 3 period high & control

	NR41 uint16 = 0xFF20 // Channel 4 length timer
	NR42 uint16 = 0xFF21 // Channel 4 volume & envelope
	NR43 uint16 = 0xFF22 // Channel 4 frequency & randomness
	NR44 uint16 = 0xFF23 // Channel 4 control

	NR50 uint16 = 0xFF24 // Master volume & VIN panning
	NR51 uint16 = 0xFF25 // Sound panning
	NR52 uint16 = 0xFF26 // Sound on/off

	WaveRAMStart uint16 = 0xFF30
	WaveRAMEnd   uint16 = 0xFF3F
)

// OAM (Object Attribute Memory) - sprite data
const (
	// OAMStart is the start of OAM memory (40 sprites * 4 bytes each)
	OAMStart uint16 = 0xFE00
	// OAMEnd is the end of OAM memory
	OAMEnd uint16 = 0xFE9F
	// OAMSize is the number of bytes copied by an OAM DMA transfer.
	OAMSize = 0xA0
)

// tile data and tile maps
const (
	// TileData0 is the start of unsigned tile data (tiles 0-255)
	TileData0 uint16 = 0x8000
	// TileData2 is the base of the signed tile data region (tiles -128 to 127)
	TileData2 uint16 = 0x9000

	// TileMap0 is background/window tile map 0
	TileMap0 uint16 = 0x9800
	// TileMap1 is background/window tile map 1
	TileMap1 uint16 = 0x9C00
)

// interrupts
const (
	// IF is the address for the Interrupt Flags register.
	IF uint16 = 0xFF0F
	// IE is the address for the Interrupt Enable register.
	IE uint16 = 0xFFFF
)

// joypad
const (
	// P1 is used to read the Joypad state.
	P1 uint16 = 0xFF00
)

// serial I/O
const (
	// SB (Serial transfer data, 0xFF01)
	SB uint16 = 0xFF01
	// SC (Serial transfer control, 0xFF02)
	//  - Bit 7 (Start): Writing 1 starts an 8-bit transfer; hardware clears to 0 when done.
	//  - Bit 0 (Clock): 1=internal clock, 0=external clock.
	SC uint16 = 0xFF02
)

// timers
const (
	// DIV is the divider register, the top byte of the timer's 16 bit counter.
	DIV uint16 = 0xFF04
	// TIMA is the timer counter register. Generates an interrupt when it overflows.
	TIMA uint16 = 0xFF05
	// TMA is the timer modulo register. When TIMA overflows, this data will be loaded.
	TMA uint16 = 0xFF06
	// TAC is the timer control register. Used to start/stop and control the timer clock.
	TAC uint16 = 0xFF07
)

// Interrupt is a bit mask over the IE/IF registers. Values can be OR'd together.
type Interrupt uint8

const (
	// VBlankInterrupt is fired when the PPU has completed a frame.
	VBlankInterrupt Interrupt = 1
	// LCDSTATInterrupt is fired based on one of the conditions in the LCDSTAT register.
	LCDSTATInterrupt Interrupt = 1 << 1
	// TimerInterrupt is fired when the timer register (TIMA) overflows (i.e. goes from 0xFF to 0x00).
	TimerInterrupt Interrupt = 1 << 2
	// SerialInterrupt is fired when a serial transfer has completed on the game link port.
	SerialInterrupt Interrupt = 1 << 3
	// JoypadInterrupt is fired when any of the keypad inputs goes from high to low.
	JoypadInterrupt Interrupt = 1 << 4

	// InterruptMask covers the five meaningful bits of IE and IF.
	InterruptMask Interrupt = 0x1F
)

// Vector returns the dispatch address for a single interrupt bit.
func (i Interrupt) Vector() uint16 {
	switch i {
	case VBlankInterrupt:
		return 0x40
	case LCDSTATInterrupt:
		return 0x48
	case TimerInterrupt:
		return 0x50
	case SerialInterrupt:
		return 0x58
	case JoypadInterrupt:
		return 0x60
	}
	return 0x00
}

// Highest returns the highest priority interrupt set in the mask, or 0 when none is.
func (i Interrupt) Highest() Interrupt {
	i &= InterruptMask
	return i & -i
}
