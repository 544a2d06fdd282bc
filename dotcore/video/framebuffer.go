package video

const (
	FramebufferWidth  = 160
	FramebufferHeight = 144
)

// GBColor is an ARGB color.
type GBColor uint32

const (
	WhiteColor     GBColor = 0xFFFFFFFF
	LightGreyColor GBColor = 0xFF989898
	DarkGreyColor  GBColor = 0xFF4C4C4C
	BlackColor     GBColor = 0xFF000000
)

// shades maps a 2 bit palette entry to its display color.
var shades = [4]GBColor{WhiteColor, LightGreyColor, DarkGreyColor, BlackColor}

// Palette is a decoded palette register: the display color of each color index.
type Palette [4]GBColor

// DecodePalette expands a BGP/OBP register into display colors.
// Bits 1-0 describe color index 0, bits 3-2 index 1, and so on.
func DecodePalette(reg byte) Palette {
	var p Palette
	for i := range p {
		p[i] = shades[(reg>>(2*i))&0x03]
	}
	return p
}

// FrameBuffer is a row-major 160x144 ARGB image.
type FrameBuffer struct {
	buffer []uint32
}

// NewFrameBuffer creates a white frame buffer.
func NewFrameBuffer() *FrameBuffer {
	fb := &FrameBuffer{buffer: make([]uint32, FramebufferWidth*FramebufferHeight)}
	fb.Fill(WhiteColor)
	return fb
}

func (fb *FrameBuffer) GetPixel(x, y int) uint32 {
	return fb.buffer[y*FramebufferWidth+x]
}

func (fb *FrameBuffer) SetPixel(x, y int, color GBColor) {
	fb.buffer[y*FramebufferWidth+x] = uint32(color)
}

// Fill sets every pixel to color.
func (fb *FrameBuffer) Fill(color GBColor) {
	for i := range fb.buffer {
		fb.buffer[i] = uint32(color)
	}
}

// ToSlice returns the backing pixels. The slice is overwritten as lines render.
func (fb *FrameBuffer) ToSlice() []uint32 {
	return fb.buffer
}
