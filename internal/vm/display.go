package vm

const spriteWidth = 8

// Framebuffer returns the 64x32 row-major pixel buffer. Every cell is 0 or 1.
// The slice is owned by the machine and must not be modified.
func (vm *VM) Framebuffer() []uint8 {
	return vm.gfx
}

// Pixel reports whether the pixel at (x, y) is lit. Coordinates outside
// the 64x32 screen are never lit.
func (vm *VM) Pixel(x, y int) bool {
	if x < 0 || x >= ScreenWidth || y < 0 || y >= ScreenHeight {
		return false
	}

	return vm.gfx[y*ScreenWidth+x] != 0
}

// Dirty reports whether the framebuffer changed since the last render.
func (vm *VM) Dirty() bool {
	return vm.drawFlag
}

// ClearDirty acknowledges a render.
func (vm *VM) ClearDirty() {
	vm.drawFlag = false
}

func (vm *VM) clearScreen() {
	for i := range vm.gfx {
		vm.gfx[i] = 0
	}
	vm.drawFlag = true
}

// drawSprite XORs a height-row sprite read from I onto the screen, anchored at
// (x mod width, y mod height). Rows and columns past the edge are clipped.
// It reports whether a lit pixel was turned off.
func (vm *VM) drawSprite(x, y uint8, height uint8) bool {
	originX := int(x) % ScreenWidth
	originY := int(y) % ScreenHeight

	collision := false
	for row := 0; row < int(height); row++ {
		screenY := originY + row
		if screenY >= ScreenHeight {
			break
		}

		pixels := vm.read(vm.index + uint16(row))

		for col := 0; col < spriteWidth; col++ {
			screenX := originX + col
			if screenX >= ScreenWidth {
				break
			}

			if pixels&(0x80>>col) == 0 {
				continue
			}

			i := screenY*ScreenWidth + screenX
			if vm.gfx[i] != 0 {
				collision = true
			}
			vm.gfx[i] ^= 1
		}
	}

	vm.drawFlag = true
	return collision
}
