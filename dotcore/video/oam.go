package video

import (
	"github.com/valerio/dotcore/dotcore/addr"
	"github.com/valerio/dotcore/dotcore/bit"
)

const (
	maxSpritesPerLine = 10
	spriteCount       = 40
	spriteBytes       = 4
)

// Sprite is a decoded OAM entry positioned in screen coordinates.
type Sprite struct {
	Y         int // screen Y of the top row (OAM Y - 16)
	X         int // screen X of the leftmost column (OAM X - 8)
	TileIndex uint8
	Flags     uint8
	OAMIndex  int

	PaletteOBP1 bool // bit 4
	FlipX       bool // bit 5
	FlipY       bool // bit 6
	BehindBG    bool // bit 7

	row TileRow
}

func parseSprite(oam []byte, index int) Sprite {
	base := index * spriteBytes
	flags := oam[base+3]
	return Sprite{
		Y:           int(oam[base]) - 16,
		X:           int(oam[base+1]) - 8,
		TileIndex:   oam[base+2],
		Flags:       flags,
		OAMIndex:    index,
		PaletteOBP1: bit.IsSet(4, flags),
		FlipX:       bit.IsSet(5, flags),
		FlipY:       bit.IsSet(6, flags),
		BehindBG:    bit.IsSet(7, flags),
	}
}

// scanOAM selects the sprites that intersect line, in OAM order, up to the
// hardware limit of 10. Only the Y coordinate is considered: a sprite that is
// horizontally off-screen still takes a slot.
func scanOAM(oam []byte, line, height int, out *[maxSpritesPerLine]Sprite) int {
	n := 0
	for i := 0; i < spriteCount && n < maxSpritesPerLine; i++ {
		top := int(oam[i*spriteBytes]) - 16
		if line < top || line >= top+height {
			continue
		}
		out[n] = parseSprite(oam, i)
		n++
	}
	return n
}

// loadRow latches the pattern row the sprite contributes to line.
func (s *Sprite) loadRow(vram []byte, line, height int) {
	y := line - s.Y
	if s.FlipY {
		y = height - 1 - y
	}
	tile := s.TileIndex
	if height == 16 {
		tile &= 0xFE
	}
	s.row = fetchRow(vram, addr.TileData0+uint16(tile)*16+uint16(y*2))
}

// pixel returns the color index of column x (0-7) of the latched row.
func (s *Sprite) pixel(x int) uint8 {
	if s.FlipX {
		return s.row.GetPixelFlipped(x)
	}
	return s.row.GetPixel(x)
}
