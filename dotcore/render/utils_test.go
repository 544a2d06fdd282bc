package render

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/valerio/dotcore/dotcore/video"
)

func TestPixelToShade(t *testing.T) {
	tests := []struct {
		pixel video.GBColor
		want  int
	}{
		{video.BlackColor, 0},
		{video.DarkGreyColor, 1},
		{video.LightGreyColor, 2},
		{video.WhiteColor, 3},
		{0x12345678, 0},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, PixelToShade(uint32(tt.pixel)))
	}
}

func TestGetHalfBlockChar(t *testing.T) {
	assert.Equal(t, ' ', GetHalfBlockChar(3, 3))
	assert.Equal(t, '█', GetHalfBlockChar(0, 0))
	assert.Equal(t, '▄', GetHalfBlockChar(3, 1))
	assert.Equal(t, '▀', GetHalfBlockChar(1, 3))
	assert.Equal(t, '▀', GetHalfBlockChar(0, 2))
}

func TestRenderFrameToHalfBlocks(t *testing.T) {
	fb := video.NewFrameBuffer()
	fb.SetPixel(0, 0, video.BlackColor)
	fb.SetPixel(1, 1, video.BlackColor)
	fb.SetPixel(2, 0, video.BlackColor)
	fb.SetPixel(2, 1, video.BlackColor)

	lines := RenderFrameToHalfBlocks(fb)
	require.Len(t, lines, video.FramebufferHeight/2)
	row := []rune(lines[0])
	require.Len(t, row, video.FramebufferWidth)
	assert.Equal(t, []rune{'▀', '▄', '█', ' '}, row[:4])
	assert.Equal(t, strings.Repeat(" ", video.FramebufferWidth), lines[1])
}

func TestWriteSnapshot(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteSnapshot(&buf, video.NewFrameBuffer(), "Frame: 7"))
	lines := strings.Split(strings.TrimSuffix(buf.String(), "\n"), "\n")
	assert.Equal(t, "# Frame: 7", lines[0])
	assert.Equal(t, "# Resolution: 160x144 pixels", lines[1])
	assert.Len(t, lines, 2+72)
}
