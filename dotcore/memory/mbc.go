package memory

import "github.com/valerio/dotcore/dotcore/savestate"

// Read reads from the two ROM windows (0x0000-0x7FFF).
func (c *Cartridge) Read(addr uint16) uint8 {
	if addr < 0x4000 {
		return c.rom[int(addr)%len(c.rom)]
	}
	offset := int(c.highBank())*romBankSize + int(addr-0x4000)
	return c.rom[offset%len(c.rom)]
}

func (c *Cartridge) highBank() uint8 {
	switch c.kind {
	case KindMBC1:
		if c.mode == 0 {
			return c.bank2<<5 | c.romBank
		}
		return c.romBank
	case KindMBC3:
		return c.romBank
	}
	return 1
}

// Write handles writes to the ROM area, which program the controller registers.
func (c *Cartridge) Write(addr uint16, value uint8) {
	switch c.kind {
	case KindROMOnly:
		// no registers
	case KindMBC1:
		switch {
		case addr < 0x2000:
			c.ramEnabled = value&0x0F == 0x0A
		case addr < 0x4000:
			c.romBank = value & 0x1F
			if c.romBank == 0 {
				c.romBank = 1
			}
		case addr < 0x6000:
			c.bank2 = value & 0x03
		default:
			c.mode = value & 0x01
		}
	case KindMBC3:
		switch {
		case addr < 0x2000:
			c.ramEnabled = value&0x0F == 0x0A
		case addr < 0x4000:
			c.romBank = value & 0x7F
			if c.romBank == 0 {
				c.romBank = 1
			}
		case addr < 0x6000:
			c.bank2 = value
		default:
			if c.lastLatch == 0x00 && value == 0x01 {
				c.rtc.Latch()
			}
			c.lastLatch = value
		}
	}
}

// IsWriteProtected reports whether external RAM currently rejects writes.
// Controllers derive it from their enable latch; ROM-only carts have no latch.
func (c *Cartridge) IsWriteProtected() bool {
	if c.kind == KindROMOnly {
		return len(c.ram) == 0
	}
	return !c.ramEnabled
}

func (c *Cartridge) rtcSelected() bool {
	return c.kind == KindMBC3 && c.header.HasRTC && c.bank2 >= 0x08 && c.bank2 <= 0x0C
}

func (c *Cartridge) ramOffset(offset uint16) int {
	var bank int
	switch c.kind {
	case KindMBC1:
		if c.mode == 1 {
			bank = int(c.bank2)
		}
	case KindMBC3:
		bank = int(c.bank2 & 0x03)
	}
	return (bank*ramBankSize + int(offset)) % len(c.ram)
}

// ReadExternalRAM reads the cartridge RAM window; offset is relative to 0xA000.
func (c *Cartridge) ReadExternalRAM(offset uint16) uint8 {
	if c.kind != KindROMOnly && !c.ramEnabled {
		return 0xFF
	}
	if c.rtcSelected() {
		return c.rtc.Read(c.bank2)
	}
	if len(c.ram) == 0 {
		return 0xFF
	}
	return c.ram[c.ramOffset(offset)]
}

// WriteExternalRAM writes the cartridge RAM window; offset is relative to 0xA000.
func (c *Cartridge) WriteExternalRAM(offset uint16, value uint8) {
	if c.IsWriteProtected() {
		return
	}
	if c.rtcSelected() {
		c.rtc.Write(c.bank2, value)
		return
	}
	if len(c.ram) == 0 {
		return
	}
	c.ram[c.ramOffset(offset)] = value
}

// SaveState appends the controller registers, clock and RAM contents.
func (c *Cartridge) SaveState(w *savestate.Writer) {
	w.Uint8(uint8(c.kind))
	w.Bool(c.ramEnabled)
	w.Uint8(c.romBank)
	w.Uint8(c.bank2)
	w.Uint8(c.mode)
	w.Uint8(c.lastLatch)
	c.rtc.SaveState(w)
	w.Blob(c.ram)
}

// LoadState restores what SaveState wrote. The controller kind and RAM size
// must match this cartridge.
func (c *Cartridge) LoadState(r *savestate.Reader) {
	if kind := Kind(r.Uint8()); kind != c.kind && r.Err() == nil {
		r.Fail(savestate.ErrCorrupt)
		return
	}
	c.ramEnabled = r.Bool()
	c.romBank = r.Uint8()
	c.bank2 = r.Uint8()
	c.mode = r.Uint8()
	c.lastLatch = r.Uint8()
	c.rtc.LoadState(r)
	r.Blob(c.ram)
}
