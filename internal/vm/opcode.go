package vm

import (
	"context"
	"fmt"
	"log/slog"
)

func (vm *VM) executeOpcode(opcode uint16) error {
	instr := Decode(opcode)

	if slog.Default().Enabled(context.Background(), slog.LevelDebug) {
		slog.Debug(
			"exec",
			"pc", fmt.Sprintf("0x%04x", vm.pc-InstructionSize),
			"opcode", fmt.Sprintf("0x%04x", opcode),
			"instr", instr.String(),
		)
	}

	return vm.execute(instr)
}

// execute applies a decoded instruction. PC already points past it, so
// jumps overwrite PC and skips add one more InstructionSize.
func (vm *VM) execute(in Instruction) error {
	v := vm.registers

	switch in.Op {
	case OpCls:
		vm.clearScreen()

	case OpRts:
		addr, err := vm.pop()
		if err != nil {
			return vm.fault(in, err)
		}
		vm.pc = addr

	case OpJmp:
		if in.NNN == vm.pc-InstructionSize {
			if !vm.halted {
				slog.Info("program looped", "pc", fmt.Sprintf("0x%04x", in.NNN))
			}
			vm.halted = true
		}
		vm.pc = in.NNN

	case OpJsr:
		if err := vm.push(vm.pc); err != nil {
			return vm.fault(in, err)
		}
		vm.pc = in.NNN

	case OpSkeqImm:
		vm.skipIf(v[in.X] == in.NN)

	case OpSkneImm:
		vm.skipIf(v[in.X] != in.NN)

	case OpSkeqReg:
		vm.skipIf(v[in.X] == v[in.Y])

	case OpMovImm:
		v[in.X] = in.NN

	case OpAddImm:
		v[in.X] += in.NN

	case OpMovReg:
		v[in.X] = v[in.Y]

	case OpOr:
		v[in.X] |= v[in.Y]

	case OpAnd:
		v[in.X] &= v[in.Y]

	case OpXor:
		v[in.X] ^= v[in.Y]

	case OpAddReg:
		sum := uint16(v[in.X]) + uint16(v[in.Y])
		v[in.X] = uint8(sum)
		v[0x0F] = flag(sum > 0xFF)

	case OpSub:
		x, y := v[in.X], v[in.Y]
		v[in.X] = x - y
		v[0x0F] = flag(x >= y)

	case OpShr:
		x := v[in.X]
		v[in.X] = x >> 1
		v[0x0F] = x & 0x01

	case OpRsb:
		x, y := v[in.X], v[in.Y]
		v[in.X] = y - x
		v[0x0F] = flag(y >= x)

	case OpShl:
		x := v[in.X]
		v[in.X] = x << 1
		v[0x0F] = x >> 7

	case OpSkneReg:
		vm.skipIf(v[in.X] != v[in.Y])

	case OpMvi:
		vm.index = in.NNN

	case OpJmi:
		vm.pc = in.NNN + uint16(v[0])

	case OpRand:
		v[in.X] = uint8(vm.random.UintN(256)) & in.NN

	case OpSprite:
		collision := vm.drawSprite(v[in.X], v[in.Y], in.N)
		v[0x0F] = flag(collision)

	case OpSkpr:
		vm.skipIf(vm.KeyPressed(vm.keyFromRegister(v[in.X])))

	case OpSkup:
		vm.skipIf(!vm.KeyPressed(vm.keyFromRegister(v[in.X])))

	case OpGdelay:
		v[in.X] = vm.delayTimer

	case OpKey:
		if key, ok := vm.lowestPressedKey(); ok {
			v[in.X] = uint8(key)
			break
		}
		vm.waitingForKey = true
		vm.waitRegister = in.X

	case OpSdelay:
		vm.delayTimer = v[in.X]

	case OpSsound:
		vm.soundTimer = v[in.X]

	case OpAdi:
		vm.index += uint16(v[in.X])

	case OpFont:
		vm.index = FontStart + uint16(v[in.X])*FontGlyphSize

	case OpBcd:
		x := v[in.X]
		vm.write(vm.index, x/100)
		vm.write(vm.index+1, (x/10)%10)
		vm.write(vm.index+2, x%10)

	case OpStr:
		for i := uint16(0); i <= uint16(in.X); i++ {
			vm.write(vm.index+i, v[i])
		}

	case OpLdr:
		for i := uint16(0); i <= uint16(in.X); i++ {
			v[i] = vm.read(vm.index + i)
		}

	default:
		vm.warnOnce(fmt.Sprintf("op:%04x", in.Opcode), "unknown opcode",
			"pc", fmt.Sprintf("0x%04x", vm.pc-InstructionSize),
			"opcode", fmt.Sprintf("0x%04X", in.Opcode),
		)
	}

	return nil
}

func (vm *VM) skipIf(cond bool) {
	if cond {
		vm.pc += InstructionSize
	}
}

func (vm *VM) fault(in Instruction, err error) error {
	return fmt.Errorf("%w at 0x%04x (%s)", err, vm.pc-InstructionSize, in)
}

func flag(b bool) uint8 {
	if b {
		return 1
	}
	return 0
}
