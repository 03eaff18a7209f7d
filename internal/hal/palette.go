package hal

import (
	"image/color"

	"golang.org/x/image/colornames"
)

var (
	bgColor = colornames.Black
	fgColor = colornames.Gold
)

// pixelColor maps a framebuffer cell onto the palette.
func pixelColor(cell uint8) color.RGBA {
	if cell != 0 {
		return fgColor
	}
	return bgColor
}

func argb(c color.RGBA) uint32 {
	return uint32(c.A)<<24 | uint32(c.R)<<16 | uint32(c.G)<<8 | uint32(c.B)
}
