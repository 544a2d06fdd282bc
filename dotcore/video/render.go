package video

import (
	"github.com/valerio/dotcore/dotcore/addr"
	"github.com/valerio/dotcore/dotcore/bit"
)

// renderScanline composes the current line from background, window and
// sprites, using the register values at the start of pixel transfer.
func (g *GPU) renderScanline() {
	lcdc := g.bus.Register(addr.LCDC)
	g.palettes[paletteBG] = DecodePalette(g.bus.Register(addr.BGP))
	g.palettes[paletteOBP0] = DecodePalette(g.bus.Register(addr.OBP0))
	g.palettes[paletteOBP1] = DecodePalette(g.bus.Register(addr.OBP1))

	g.renderBackground(lcdc)
	g.renderWindow(lcdc)
	if bit.IsSet(lcdcSpriteEnable, lcdc) {
		g.renderSprites(lcdc)
	}
}

func mapBase(lcdc byte, selectBit uint8) uint16 {
	if bit.IsSet(selectBit, lcdc) {
		return addr.TileMap1
	}
	return addr.TileMap0
}

func (g *GPU) renderBackground(lcdc byte) {
	if !bit.IsSet(lcdcBGEnable, lcdc) {
		for x := range FramebufferWidth {
			g.bgIndex[x] = 0
			g.framebuffer.SetPixel(x, g.line, WhiteColor)
		}
		return
	}

	vram := g.bus.VRAM()
	base := mapBase(lcdc, lcdcBGMap)
	scx := int(g.bus.Register(addr.SCX))
	y := (int(g.bus.Register(addr.SCY)) + g.line) & 0xFF

	for x := range FramebufferWidth {
		color := mapPixel(vram, lcdc, base, (scx+x)&0xFF, y)
		g.bgIndex[x] = color
		g.framebuffer.SetPixel(x, g.line, g.palettes[paletteBG][color])
	}
}

// renderWindow draws the window over the background. The window keeps its own
// line counter, which only advances on lines where it was actually drawn.
func (g *GPU) renderWindow(lcdc byte) {
	if !bit.IsSet(lcdcWindowEnable, lcdc) || !bit.IsSet(lcdcBGEnable, lcdc) {
		return
	}
	wy := int(g.bus.Register(addr.WY))
	wx := int(g.bus.Register(addr.WX))
	if g.line < wy || wx > 166 {
		return
	}

	vram := g.bus.VRAM()
	base := mapBase(lcdc, lcdcWindowMap)
	start := wx - 7

	for x := max(start, 0); x < FramebufferWidth; x++ {
		color := mapPixel(vram, lcdc, base, x-start, g.windowLine)
		g.bgIndex[x] = color
		g.framebuffer.SetPixel(x, g.line, g.palettes[paletteBG][color])
	}
	g.windowLine++
}

func (g *GPU) renderSprites(lcdc byte) {
	height := 8
	if bit.IsSet(lcdcSpriteSize, lcdc) {
		height = 16
	}

	vram := g.bus.VRAM()
	n := scanOAM(g.bus.OAM(), g.line, height, &g.sprites)
	if n == 0 {
		return
	}

	g.priority.Clear()
	for i := range n {
		s := &g.sprites[i]
		s.loadRow(vram, g.line, height)
		for px := range 8 {
			if s.pixel(px) != 0 {
				g.priority.TryClaimPixel(s.X+px, i, s.X)
			}
		}
	}

	for x := range FramebufferWidth {
		owner := g.priority.GetOwner(x)
		if owner < 0 {
			continue
		}
		s := &g.sprites[owner]
		if s.BehindBG && g.bgIndex[x] != 0 {
			continue
		}
		palette := paletteOBP0
		if s.PaletteOBP1 {
			palette = paletteOBP1
		}
		g.framebuffer.SetPixel(x, g.line, g.palettes[palette][s.pixel(x-s.X)])
	}
}
