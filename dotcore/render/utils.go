package render

import (
	"bufio"
	"fmt"
	"io"

	"github.com/valerio/dotcore/dotcore/video"
)

// PixelToShade converts a pixel value to a shade level, 0 black to 3 white.
// Unknown values count as black.
func PixelToShade(pixel uint32) int {
	switch video.GBColor(pixel) {
	case video.BlackColor:
		return 0
	case video.DarkGreyColor:
		return 1
	case video.LightGreyColor:
		return 2
	case video.WhiteColor:
		return 3
	default:
		return 0
	}
}

// GetHalfBlockChar returns the half-block character for a pair of stacked
// pixels when only two tones are available.
func GetHalfBlockChar(topShade, bottomShade int) rune {
	switch {
	case topShade == bottomShade && topShade == 3:
		return ' '
	case topShade == bottomShade:
		return '█'
	case topShade == 3:
		return '▄'
	default:
		return '▀'
	}
}

// RenderFrameToHalfBlocks converts a frame buffer to half-block text, one
// string per pair of pixel rows.
func RenderFrameToHalfBlocks(fb *video.FrameBuffer) []string {
	width, height := video.FramebufferWidth, video.FramebufferHeight
	lines := make([]string, 0, (height+1)/2)

	for y := 0; y < height; y += 2 {
		line := make([]rune, width)
		for x := 0; x < width; x++ {
			top := PixelToShade(fb.GetPixel(x, y))
			bottom := 3
			if y+1 < height {
				bottom = PixelToShade(fb.GetPixel(x, y+1))
			}
			line[x] = GetHalfBlockChar(top, bottom)
		}
		lines = append(lines, string(line))
	}
	return lines
}

// WriteSnapshot writes a text rendering of fb preceded by comment lines.
func WriteSnapshot(w io.Writer, fb *video.FrameBuffer, comments ...string) error {
	bw := bufio.NewWriter(w)
	for _, c := range comments {
		fmt.Fprintf(bw, "# %s\n", c)
	}
	fmt.Fprintf(bw, "# Resolution: %dx%d pixels\n", video.FramebufferWidth, video.FramebufferHeight)
	for _, line := range RenderFrameToHalfBlocks(fb) {
		fmt.Fprintln(bw, line)
	}
	return bw.Flush()
}
