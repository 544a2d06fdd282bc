package memory

import (
	"github.com/valerio/dotcore/dotcore/addr"
	"github.com/valerio/dotcore/dotcore/savestate"
	"github.com/valerio/dotcore/dotcore/serial"
)

type memRegion uint8

const (
	regionROM memRegion = iota
	regionVRAM
	regionExtRAM
	regionWRAM
	regionEcho
	regionHigh
)

// OAM DMA progress. A write to the DMA register puts the counter at
// dmaLatency; each bus tick advances it by one. Bytes are copied for counter
// values 0-159 and the bus stays blocked for one more settle cycle.
const (
	dmaLatency = -1
	dmaDone    = addr.OAMSize + 1
)

// SerialPort is the minimal interface for a serial device connected to SB/SC.
// Implementations only accept reads/writes to addr.SB and addr.SC.
type SerialPort interface {
	Write(address uint16, value byte)
	Read(address uint16) byte
	Tick(cycles int)
	Reset()
	SaveState(w *savestate.Writer)
	LoadState(r *savestate.Reader)
}

// MMU is the address space shared by the CPU and the PPU. It owns work RAM,
// video RAM, the 0xFE00-0xFFFF page (OAM, I/O registers, HRAM, IE), the timer
// and the OAM DMA controller, and routes cartridge accesses.
type MMU struct {
	cart      *Cartridge
	regionMap [256]memRegion

	boot        []byte
	bootEnabled bool

	vram [0x2000]byte
	wram [0x2000]byte
	high [0x200]byte

	buttons    uint8
	dmaCounter int

	serial  SerialPort
	timer   Timer
	pending addr.Interrupt
}

// New creates a memory unit with an empty cartridge inserted.
func New() *MMU {
	return NewWithCartridge(NewEmptyCartridge())
}

// NewWithCartridge creates a memory unit with the provided cartridge loaded.
func NewWithCartridge(cart *Cartridge) *MMU {
	m := &MMU{
		cart:       cart,
		dmaCounter: dmaDone,
	}
	m.serial = serial.NewLogSink(m.serialDone)
	initRegionMap(m)
	return m
}

func initRegionMap(m *MMU) {
	for i := 0x00; i <= 0x7F; i++ {
		m.regionMap[i] = regionROM
	}
	for i := 0x80; i <= 0x9F; i++ {
		m.regionMap[i] = regionVRAM
	}
	for i := 0xA0; i <= 0xBF; i++ {
		m.regionMap[i] = regionExtRAM
	}
	for i := 0xC0; i <= 0xDF; i++ {
		m.regionMap[i] = regionWRAM
	}
	for i := 0xE0; i <= 0xFD; i++ {
		m.regionMap[i] = regionEcho
	}
	m.regionMap[0xFE] = regionHigh
	m.regionMap[0xFF] = regionHigh
}

func (m *MMU) serialDone() {
	m.pending |= addr.SerialInterrupt
}

// AttachSerialLog replaces the serial device with a log sink built from opts.
// The sink raises the serial request through this memory unit.
func (m *MMU) AttachSerialLog(opts ...serial.LogSinkOption) *serial.LogSink {
	sink := serial.NewLogSink(m.serialDone, opts...)
	m.serial = sink
	return sink
}

// SetSerial replaces the device attached to the serial port.
func (m *MMU) SetSerial(port SerialPort) {
	m.serial = port
}

// SetBootROM maps image over 0x0000-0x00FF until the boot register is written.
func (m *MMU) SetBootROM(image []byte) {
	m.boot = make([]byte, min(len(image), int(addr.BootEnd)))
	copy(m.boot, image)
	m.bootEnabled = len(m.boot) > 0
}

// ApplyPostBootState puts the I/O registers where the boot ROM leaves them.
func (m *MMU) ApplyPostBootState() {
	m.bootEnabled = false
	m.timer.SetCounter(0xABCC)
	for _, reg := range []struct {
		address uint16
		value   byte
	}{
		{addr.P1, 0x30},
		{addr.IF, 0x01},
		{addr.NR52, 0x80},
		{addr.NR50, 0x77},
		{addr.NR51, 0xF3},
		{addr.LCDC, 0x91},
		{addr.BGP, 0xFC},
		{addr.OBP0, 0xFF},
		{addr.OBP1, 0xFF},
	} {
		m.high[reg.address-addr.HighPage] = reg.value
	}
}

// Cartridge returns the inserted cartridge.
func (m *MMU) Cartridge() *Cartridge {
	return m.cart
}

// Timer returns the timer, which the driver ticks on its own.
func (m *MMU) Timer() *Timer {
	return &m.timer
}

// BootOverlayEnabled reports whether reads below 0x100 hit the boot image.
func (m *MMU) BootOverlayEnabled() bool {
	return m.bootEnabled
}

// DMAActive reports whether an OAM DMA transfer currently holds the bus.
func (m *MMU) DMAActive() bool {
	return m.dmaCounter >= 0 && m.dmaCounter < dmaDone
}

func (m *MMU) vramLocked() bool {
	return m.high[addr.STAT-addr.HighPage]&0x03 == 3
}

// Tick advances the bus side peripherals by one machine cycle: the OAM DMA
// transfer, the cartridge clock and the serial port.
func (m *MMU) Tick() {
	if m.dmaCounter != dmaDone {
		if m.dmaCounter >= 0 && m.dmaCounter < addr.OAMSize {
			source := uint16(m.high[addr.DMA-addr.HighPage])<<8 | uint16(m.dmaCounter)
			m.high[m.dmaCounter] = m.dmaRead(source)
		}
		m.dmaCounter++
	}
	m.cart.Tick()
	m.serial.Tick(1)
}

// dmaRead reads a DMA source byte. The DMA unit sees neither the boot overlay
// nor the VRAM lock, and sources above 0xDFFF fall into work RAM.
func (m *MMU) dmaRead(address uint16) byte {
	switch {
	case address < addr.VRAMStart:
		return m.cart.Read(address)
	case address < addr.ExtRAMStart:
		return m.vram[address-addr.VRAMStart]
	case address < addr.WRAMStart:
		return m.cart.ReadExternalRAM(address - addr.ExtRAMStart)
	default:
		return m.wram[(address-addr.WRAMStart)&0x1FFF]
	}
}

// Read returns the byte the CPU sees at address.
func (m *MMU) Read(address uint16) byte {
	if address < addr.IOStart && m.DMAActive() {
		return 0xFF
	}

	switch m.regionMap[address>>8] {
	case regionROM:
		if m.bootEnabled && address < addr.BootEnd && int(address) < len(m.boot) {
			return m.boot[address]
		}
		return m.cart.Read(address)
	case regionVRAM:
		if m.vramLocked() {
			return 0xFF
		}
		return m.vram[address-addr.VRAMStart]
	case regionExtRAM:
		return m.cart.ReadExternalRAM(address - addr.ExtRAMStart)
	case regionWRAM:
		return m.wram[address-addr.WRAMStart]
	case regionEcho:
		return m.wram[address-addr.EchoStart]
	default:
		return m.readHigh(address)
	}
}

func (m *MMU) readHigh(address uint16) byte {
	switch {
	case address <= addr.OAMEnd:
		return m.high[address-addr.HighPage]
	case address < addr.IOStart:
		return 0xFF
	case address >= addr.HRAMStart:
		return m.high[address-addr.HighPage]
	}

	switch address {
	case addr.P1:
		return m.readJoypad()
	case addr.SB, addr.SC:
		return m.serial.Read(address)
	case addr.DIV, addr.TIMA, addr.TMA, addr.TAC:
		return m.timer.Read(address)
	}
	return m.high[address-addr.HighPage] | maskFor(address).readHigh
}

// Write performs a CPU write.
func (m *MMU) Write(address uint16, value byte) {
	// registers whose side effects do not depend on the bus being free
	switch address {
	case addr.DMA:
		m.high[address-addr.HighPage] = value
		m.dmaCounter = dmaLatency
		return
	case addr.LY:
		m.high[address-addr.HighPage] = 0
		return
	case addr.BOOT:
		if value != 0 {
			m.bootEnabled = false
		}
		return
	case addr.DIV, addr.TIMA:
		m.timer.Write(address, value)
		return
	}

	if address < addr.IOStart && m.DMAActive() {
		return
	}

	switch m.regionMap[address>>8] {
	case regionROM:
		m.cart.Write(address, value)
	case regionVRAM:
		if !m.vramLocked() {
			m.vram[address-addr.VRAMStart] = value
		}
	case regionExtRAM:
		if !m.cart.IsWriteProtected() {
			m.cart.WriteExternalRAM(address-addr.ExtRAMStart, value)
		}
	case regionWRAM:
		m.wram[address-addr.WRAMStart] = value
	case regionEcho:
		m.wram[address-addr.EchoStart] = value
	default:
		m.writeHigh(address, value)
	}
}

func (m *MMU) writeHigh(address uint16, value byte) {
	switch {
	case address <= addr.OAMEnd, address >= addr.HRAMStart:
		m.high[address-addr.HighPage] = value
		return
	case address < addr.IOStart:
		return
	}

	switch address {
	case addr.SB, addr.SC:
		m.serial.Write(address, value)
		return
	case addr.TMA, addr.TAC:
		m.timer.Write(address, value)
		return
	}
	mask := maskFor(address)
	reg := &m.high[address-addr.HighPage]
	*reg = *reg&^mask.writable | value&mask.writable
}

// RequestInterrupt sets the given bits in IF.
func (m *MMU) RequestInterrupt(interrupt addr.Interrupt) {
	m.high[addr.IF-addr.HighPage] |= byte(interrupt & addr.InterruptMask)
}

// TakeInterrupts returns and clears the requests raised by bus devices
// (joypad and serial) since the last call.
func (m *MMU) TakeInterrupts() addr.Interrupt {
	pending := m.pending
	m.pending = 0
	return pending
}

// SpeedSwitch performs an armed KEY1 speed switch and reports whether one was armed.
func (m *MMU) SpeedSwitch() bool {
	key1 := &m.high[addr.KEY1-addr.HighPage]
	if *key1&0x01 == 0 {
		return false
	}
	*key1 = (*key1 ^ 0x80) &^ 0x01
	return true
}

// VRAM gives the PPU direct access to video RAM, bypassing the mode 3 lock.
func (m *MMU) VRAM() []byte {
	return m.vram[:]
}

// OAM gives the PPU direct access to object attribute memory.
func (m *MMU) OAM() []byte {
	return m.high[:addr.OAMSize]
}

// Register reads an I/O register without masks or side effects.
func (m *MMU) Register(address uint16) byte {
	return m.high[address-addr.HighPage]
}

// SetRegister stores an I/O register without masks or side effects.
func (m *MMU) SetRegister(address uint16, value byte) {
	m.high[address-addr.HighPage] = value
}

// SaveState appends the address space: timer registers, boot/DMA flags, the
// RAM regions and the peripherals living on the bus.
func (m *MMU) SaveState(w *savestate.Writer) {
	m.timer.SaveState(w)
	w.Bool(m.bootEnabled)
	w.Int(m.dmaCounter)
	w.Bytes(m.vram[:])
	w.Bytes(m.wram[:])
	w.Bytes(m.high[:])
	w.Uint8(m.buttons)
	w.Uint8(uint8(m.pending))
	m.serial.SaveState(w)
}

// LoadState restores what SaveState wrote.
func (m *MMU) LoadState(r *savestate.Reader) {
	m.timer.LoadState(r)
	m.bootEnabled = r.Bool()
	m.dmaCounter = r.Int()
	if m.dmaCounter < dmaLatency || m.dmaCounter > dmaDone {
		r.Fail(savestate.ErrCorrupt)
	}
	r.Bytes(m.vram[:])
	r.Bytes(m.wram[:])
	r.Bytes(m.high[:])
	m.buttons = r.Uint8()
	m.pending = addr.Interrupt(r.Uint8())
	m.serial.LoadState(r)
}
