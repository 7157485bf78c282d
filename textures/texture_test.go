package textures

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sprite-engine/core"
)

func TestSolidFillsEveryPixel(t *testing.T) {
	pm := Solid(4, 2, core.ColorRed)
	require.Len(t, pm.Pixels, 4*2*4)
	for i := 0; i < len(pm.Pixels); i += 4 {
		assert.Equal(t, byte(255), pm.Pixels[i+0])
		assert.Equal(t, byte(0), pm.Pixels[i+1])
		assert.Equal(t, byte(0), pm.Pixels[i+2])
		assert.Equal(t, byte(255), pm.Pixels[i+3])
	}
}

func TestCheckerboardAlternatesCells(t *testing.T) {
	pm := Checkerboard(4, 4, 2, core.ColorWhite, core.ColorBlack)
	require.Len(t, pm.Pixels, 4*4*4)

	at := func(x, y int) byte { return pm.Pixels[(y*4+x)*4] }
	assert.Equal(t, byte(255), at(0, 0))
	assert.Equal(t, byte(0), at(2, 0))
	assert.Equal(t, byte(0), at(0, 2))
	assert.Equal(t, byte(255), at(2, 2))
}

func TestCheckerboardZeroCellSize(t *testing.T) {
	pm := Checkerboard(2, 2, 0, core.ColorWhite, core.ColorBlack)
	require.Len(t, pm.Pixels, 2*2*4)
	assert.Equal(t, byte(255), pm.Pixels[0])
	assert.Equal(t, byte(0), pm.Pixels[4])
}

func TestFloatByteClamps(t *testing.T) {
	assert.Equal(t, byte(0), floatByte(-1))
	assert.Equal(t, byte(255), floatByte(2))
	assert.Equal(t, byte(128), floatByte(0.5))
}
