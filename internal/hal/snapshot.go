package hal

import (
	"fmt"
	"image"
	"image/png"
	"log/slog"
	"os"

	"github.com/kapitanov/chip8/internal/vm"
)

// FrameImage converts a framebuffer into an RGBA image using the palette.
func FrameImage(gfx []uint8) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, vm.ScreenWidth, vm.ScreenHeight))
	for i, cell := range gfx {
		img.SetRGBA(i%vm.ScreenWidth, i/vm.ScreenWidth, pixelColor(cell))
	}
	return img
}

// SavePNG writes the framebuffer to path as a 64x32 PNG.
func SavePNG(gfx []uint8, path string) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create snapshot %q: %w", path, err)
	}
	defer file.Close()

	if err := png.Encode(file, FrameImage(gfx)); err != nil {
		return fmt.Errorf("failed to encode snapshot %q: %w", path, err)
	}

	slog.Info("snapshot saved", "path", path)
	return nil
}
