package hal

import (
	"image"
	"image/color"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/kapitanov/chip8/internal/vm"
)

func rgba(c color.Color) color.RGBA {
	return color.RGBAModel.Convert(c).(color.RGBA)
}

func TestFrameImage(t *testing.T) {
	gfx := make([]uint8, vm.ScreenWidth*vm.ScreenHeight)
	gfx[vm.ScreenWidth*31+63] = 1

	img := FrameImage(gfx)

	assert.Equal(t, image.Rect(0, 0, vm.ScreenWidth, vm.ScreenHeight), img.Bounds())
	assert.Equal(t, fgColor, img.RGBAAt(63, 31))
	assert.Equal(t, bgColor, img.RGBAAt(0, 0))
}

func TestSavePNGMissingDirectory(t *testing.T) {
	gfx := make([]uint8, vm.ScreenWidth*vm.ScreenHeight)

	err := SavePNG(gfx, filepath.Join(t.TempDir(), "missing", "frame.png"))
	assert.Error(t, err)
}

func TestARGB(t *testing.T) {
	assert.Equal(t, uint32(0xFF000000), argb(bgColor))
	assert.Equal(t, uint32(0xFFFFD700), argb(fgColor))
}
