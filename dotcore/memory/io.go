package memory

import "github.com/valerio/dotcore/dotcore/addr"

// ioMask describes how the CPU sees one register in 0xFF00-0xFF7F.
// readHigh bits always read as 1; only writable bits change on a CPU write.
type ioMask struct {
	readHigh byte
	writable byte
}

var (
	unmapped  = ioMask{readHigh: 0xFF, writable: 0x00}
	plainReg  = ioMask{readHigh: 0x00, writable: 0xFF}
	ioMaskTab [0x80]ioMask
)

func init() {
	for i := range ioMaskTab {
		ioMaskTab[i] = unmapped
	}

	set := func(address uint16, m ioMask) { ioMaskTab[address-addr.IOStart] = m }

	set(addr.P1, ioMask{readHigh: 0xC0, writable: 0x30})
	set(addr.SB, plainReg)
	set(addr.SC, ioMask{readHigh: 0x7E, writable: 0x81})
	set(addr.DIV, plainReg)
	set(addr.TIMA, plainReg)
	set(addr.TMA, plainReg)
	set(addr.TAC, ioMask{readHigh: 0xF8, writable: 0x07})
	set(addr.IF, ioMask{readHigh: 0xE0, writable: 0x1F})

	// sound registers: write-only bits read back as 1
	sound := map[uint16]byte{
		addr.NR10: 0x80, addr.NR11: 0x3F, addr.NR12: 0x00, addr.NR13: 0xFF, addr.NR14: 0xBF,
		addr.NR21: 0x3F, addr.NR22: 0x00, addr.NR23: 0xFF, addr.NR24: 0xBF,
		addr.NR30: 0x7F, addr.NR31: 0xFF, addr.NR32: 0x9F, addr.NR33: 0xFF, addr.NR34: 0xBF,
		addr.NR41: 0xFF, addr.NR42: 0x00, addr.NR43: 0x00, addr.NR44: 0xBF,
		addr.NR50: 0x00, addr.NR51: 0x00,
	}
	for a, high := range sound {
		set(a, ioMask{readHigh: high, writable: 0xFF})
	}
	set(addr.NR52, ioMask{readHigh: 0x70, writable: 0x80})
	for a := addr.WaveRAMStart; a <= addr.WaveRAMEnd; a++ {
		set(a, plainReg)
	}

	for a := addr.LCDC; a <= addr.WX; a++ {
		set(a, plainReg)
	}
	set(addr.STAT, ioMask{readHigh: 0x80, writable: 0x78})
	set(addr.KEY1, ioMask{readHigh: 0x7E, writable: 0x01})
	set(addr.BOOT, ioMask{readHigh: 0xFF, writable: 0x00})
}

func maskFor(address uint16) ioMask {
	return ioMaskTab[address-addr.IOStart]
}
