package video

import (
	"github.com/valerio/dotcore/dotcore/addr"
	"github.com/valerio/dotcore/dotcore/bit"
)

// TileRow represents one row of a tile pattern (8 pixels).
//
// Each row uses 2 bytes in a bit-plane format:
//
//	Byte 1 (Low):  Bit plane 0 - provides bit 0 of each pixel's color
//	Byte 2 (High): Bit plane 1 - provides bit 1 of each pixel's color
//
// Bit 7 represents the leftmost pixel, bit 0 the rightmost:
//
//	Low  (0x3C): 0 0 1 1 1 1 0 0
//	High (0x7E): 0 1 1 1 1 1 1 0
//	            -----------------
//	Colors:      0 2 3 3 3 3 2 0
//
// Reference: https://gbdev.io/pandocs/Tile_Data.html
type TileRow struct {
	Low  byte
	High byte
}

// GetPixel extracts a pixel color (0-3) from the tile row.
// pixelX should be 0-7, where 0 is the leftmost pixel.
func (t TileRow) GetPixel(pixelX int) uint8 {
	return t.pixelAt(uint8(7 - pixelX))
}

// GetPixelFlipped extracts a pixel color with horizontal flip.
func (t TileRow) GetPixelFlipped(pixelX int) uint8 {
	return t.pixelAt(uint8(pixelX))
}

func (t TileRow) pixelAt(bitIndex uint8) uint8 {
	var pixel uint8
	if bit.IsSet(bitIndex, t.Low) {
		pixel |= 1
	}
	if bit.IsSet(bitIndex, t.High) {
		pixel |= 2
	}
	return pixel
}

// fetchRow reads the two bytes of a tile row at a VRAM address.
func fetchRow(vram []byte, address uint16) TileRow {
	offset := address - addr.VRAMStart
	return TileRow{Low: vram[offset], High: vram[offset+1]}
}

// tileDataAddress resolves a background/window tile index according to LCDC
// bit 4: set selects unsigned indexing from 0x8000, clear selects signed
// indexing around 0x9000.
func tileDataAddress(lcdc byte, index uint8) uint16 {
	if bit.IsSet(4, lcdc) {
		return addr.TileData0 + uint16(index)*16
	}
	return uint16(int(addr.TileData2) + int(int8(index))*16)
}

// mapPixel returns the color index at (x, y) of the 256x256 tile map at mapBase.
func mapPixel(vram []byte, lcdc byte, mapBase uint16, x, y int) uint8 {
	mapAddress := mapBase + uint16((y/8)*32+x/8)
	index := vram[mapAddress-addr.VRAMStart]
	row := fetchRow(vram, tileDataAddress(lcdc, index)+uint16((y%8)*2))
	return row.GetPixel(x % 8)
}
