package vm

func (vm *VM) KeyDown(key Key) {
	vm.keypad[key&0x0F] = 1
}

func (vm *VM) KeyUp(key Key) {
	vm.keypad[key&0x0F] = 0
}

// KeyPressed reports the current state of key.
func (vm *VM) KeyPressed(key Key) bool {
	return vm.keypad[key&0x0F] != 0
}

// keyFromRegister maps a register value onto the 16-key pad. Values above 0xF
// come from a malformed ROM and are folded into range.
func (vm *VM) keyFromRegister(value uint8) Key {
	if value >= KeyCount {
		vm.warnOnce("key", "key index out of range", "key", value, "masked", value&0x0F)
	}

	return Key(value & 0x0F)
}

// lowestPressedKey returns the lowest-numbered key that is down.
func (vm *VM) lowestPressedKey() (Key, bool) {
	for i := range vm.keypad {
		if vm.keypad[i] != 0 {
			return Key(i), true
		}
	}

	return 0, false
}

func (vm *VM) pollAwaitedKey() {
	key, ok := vm.lowestPressedKey()
	if !ok {
		return
	}

	vm.registers[vm.waitRegister] = uint8(key)
	vm.waitingForKey = false
}
