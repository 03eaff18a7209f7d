package vm

import (
	"fmt"
	"log/slog"
)

// maskAddress folds addr into the 12-bit address space. Addresses above
// 0xFFF mean the ROM computed a bad pointer; the first one after a reset is
// logged.
func (vm *VM) maskAddress(addr uint16) uint16 {
	if addr > AddressMask {
		vm.warnOnce("addr", "memory access out of range",
			"addr", fmt.Sprintf("0x%04x", addr),
			"masked", fmt.Sprintf("0x%04x", addr&AddressMask),
		)
	}

	return addr & AddressMask
}

// warnOnce logs msg at Warn level the first time key is seen since the last
// reset. A runaway ROM repeats the same fault every cycle.
func (vm *VM) warnOnce(key string, msg string, args ...any) {
	if _, ok := vm.warned[key]; ok {
		return
	}

	vm.warned[key] = struct{}{}
	slog.Warn(msg, args...)
}

func (vm *VM) read(addr uint16) uint8 {
	return vm.memory[vm.maskAddress(addr)]
}

func (vm *VM) write(addr uint16, value uint8) {
	vm.memory[vm.maskAddress(addr)] = value
}

// Peek returns the byte at addr, wrapped into the 4K address space.
func (vm *VM) Peek(addr uint16) uint8 {
	return vm.read(addr)
}

// Poke stores value at addr, wrapped into the 4K address space.
func (vm *VM) Poke(addr uint16, value uint8) {
	vm.write(addr, value)
}

func (vm *VM) Register(x uint8) uint8 {
	return vm.registers[x&0x0F]
}

func (vm *VM) SetRegister(x uint8, value uint8) {
	vm.registers[x&0x0F] = value
}

func (vm *VM) Index() uint16 { return vm.index }

func (vm *VM) SetIndex(addr uint16) { vm.index = addr }

func (vm *VM) PC() uint16 { return vm.pc }

func (vm *VM) SetPC(addr uint16) { vm.pc = addr }

// StackDepth returns the number of active subroutine calls.
func (vm *VM) StackDepth() int { return int(vm.sp) }

func (vm *VM) push(addr uint16) error {
	if int(vm.sp) >= len(vm.stack) {
		return ErrStackOverflow
	}

	vm.stack[vm.sp] = addr
	vm.sp++
	return nil
}

func (vm *VM) pop() (uint16, error) {
	if vm.sp == 0 {
		return 0, ErrStackUnderflow
	}

	vm.sp--
	return vm.stack[vm.sp], nil
}
