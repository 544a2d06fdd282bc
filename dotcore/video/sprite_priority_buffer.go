package video

// SpritePriorityBuffer resolves which sprite owns each pixel of a scanline in
// DMG rendering, see https://gbdev.io/pandocs/OAM.html#drawing-priority:
//   - sprites with lower X coordinates have priority
//   - when X coordinates match, lower OAM indices win.
//
// Only opaque sprite pixels are offered to the buffer, so a transparent pixel
// of a high priority sprite lets the next sprite underneath show through.
//
//	Pixels:    10 11 12 13 14 15 16 17 18 19 20 21
//	Sprite 1:        [-----D-----]                  (X=12, OAM=1)
//	Sprite 3:        [-----C-----]                  (X=12, OAM=3)
//	Sprite 5:  [-----E-----]                        (X=10, OAM=5)
//	Result:    [-----E-----]--D--]
type SpritePriorityBuffer struct {
	// ownerIndex is the line buffer index of the owning sprite, -1 if none
	ownerIndex [FramebufferWidth]int
	ownerX     [FramebufferWidth]int
}

// Clear resets the buffer for a new scanline
func (s *SpritePriorityBuffer) Clear() {
	for i := range FramebufferWidth {
		s.ownerIndex[i] = -1
	}
}

// TryClaimPixel offers pixelX to a sprite and reports whether it took ownership.
// spriteIndex must grow with OAM order for ties to resolve correctly.
func (s *SpritePriorityBuffer) TryClaimPixel(pixelX, spriteIndex, spriteX int) bool {
	if pixelX < 0 || pixelX >= FramebufferWidth {
		return false
	}

	current := s.ownerIndex[pixelX]
	if current != -1 {
		currentX := s.ownerX[pixelX]
		if spriteX > currentX || (spriteX == currentX && spriteIndex > current) {
			return false
		}
	}

	s.ownerIndex[pixelX] = spriteIndex
	s.ownerX[pixelX] = spriteX
	return true
}

// GetOwner returns the sprite index that owns a pixel, or -1 if none
func (s *SpritePriorityBuffer) GetOwner(pixelX int) int {
	if pixelX < 0 || pixelX >= FramebufferWidth {
		return -1
	}
	return s.ownerIndex[pixelX]
}
