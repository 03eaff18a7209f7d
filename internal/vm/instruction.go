package vm

import "fmt"

// Op identifies a decoded CHIP-8 instruction.
type Op uint8

const (
	OpUnknown Op = iota
	OpCls
	OpRts
	OpJmp
	OpJsr
	OpSkeqImm
	OpSkneImm
	OpSkeqReg
	OpMovImm
	OpAddImm
	OpMovReg
	OpOr
	OpAnd
	OpXor
	OpAddReg
	OpSub
	OpShr
	OpRsb
	OpShl
	OpSkneReg
	OpMvi
	OpJmi
	OpRand
	OpSprite
	OpSkpr
	OpSkup
	OpGdelay
	OpKey
	OpSdelay
	OpSsound
	OpAdi
	OpFont
	OpBcd
	OpStr
	OpLdr
)

var mnemonics = [...]string{
	OpUnknown: "unknown",
	OpCls:     "cls",
	OpRts:     "rts",
	OpJmp:     "jmp",
	OpJsr:     "jsr",
	OpSkeqImm: "skeq",
	OpSkneImm: "skne",
	OpSkeqReg: "skeq",
	OpMovImm:  "mov",
	OpAddImm:  "add",
	OpMovReg:  "mov",
	OpOr:      "or",
	OpAnd:     "and",
	OpXor:     "xor",
	OpAddReg:  "add",
	OpSub:     "sub",
	OpShr:     "shr",
	OpRsb:     "rsb",
	OpShl:     "shl",
	OpSkneReg: "skne",
	OpMvi:     "mvi",
	OpJmi:     "jmi",
	OpRand:    "rand",
	OpSprite:  "sprite",
	OpSkpr:    "skpr",
	OpSkup:    "skup",
	OpGdelay:  "gdelay",
	OpKey:     "key",
	OpSdelay:  "sdelay",
	OpSsound:  "ssound",
	OpAdi:     "adi",
	OpFont:    "font",
	OpBcd:     "bcd",
	OpStr:     "str",
	OpLdr:     "ldr",
}

func (op Op) String() string {
	if int(op) < len(mnemonics) {
		return mnemonics[op]
	}
	return mnemonics[OpUnknown]
}

// Instruction is a decoded opcode with every operand field extracted.
// Which fields are meaningful depends on Op.
type Instruction struct {
	Op     Op
	Opcode uint16

	X   uint8  // second nibble, register index
	Y   uint8  // third nibble, register index
	N   uint8  // lowest nibble
	NN  uint8  // low byte
	NNN uint16 // low 12 bits, address
}

// Decode splits opcode into its operand fields and selects the instruction.
// Opcodes outside the base CHIP-8 set decode to OpUnknown.
func Decode(opcode uint16) Instruction {
	return Instruction{
		Op:     decodeOp(opcode),
		Opcode: opcode,
		X:      uint8((opcode & 0x0F00) >> 8),
		Y:      uint8((opcode & 0x00F0) >> 4),
		N:      uint8(opcode & 0x000F),
		NN:     uint8(opcode & 0x00FF),
		NNN:    opcode & 0x0FFF,
	}
}

func decodeOp(opcode uint16) Op {
	switch opcode & 0xF000 {
	case 0x0000:
		switch opcode & 0x00FF {
		case 0x00E0:
			// 00E0 - Clear screen
			return OpCls

		case 0x00EE:
			// 00EE - Return from subroutine
			return OpRts
		}

	case 0x1000:
		// 1NNN - Jumps to address NNN
		return OpJmp

	case 0x2000:
		// 2NNN - Calls subroutine at NNN
		return OpJsr

	case 0x3000:
		// 3XNN - Skips the next instruction if VX equals NN
		return OpSkeqImm

	case 0x4000:
		// 4XNN - Skips the next instruction if VX does not equal NN
		return OpSkneImm

	case 0x5000:
		// 5XY0 - Skips the next instruction if VX equals VY
		if opcode&0x000F == 0 {
			return OpSkeqReg
		}

	case 0x6000:
		// 6XNN - Sets VX to NN
		return OpMovImm

	case 0x7000:
		// 7XNN - Adds NN to VX, no carry
		return OpAddImm

	case 0x8000:
		// 8XY_
		switch opcode & 0x000F {
		case 0x0000:
			// 8XY0 - Sets VX to the value of VY
			return OpMovReg

		case 0x0001:
			// 8XY1 - Sets VX to (VX OR VY)
			return OpOr

		case 0x0002:
			// 8XY2 - Sets VX to (VX AND VY)
			return OpAnd

		case 0x0003:
			// 8XY3 - Sets VX to (VX XOR VY)
			return OpXor

		case 0x0004:
			// 8XY4 - Adds VY to VX. VF is set to 1 when there's a carry, and to 0 when there isn't.
			return OpAddReg

		case 0x0005:
			// 8XY5 - VY is subtracted from VX. VF is set to 0 when there's a borrow, and 1 when there isn't.
			return OpSub

		case 0x0006:
			// 8XY6 - Shifts VX right by one. VF is set to the least significant bit of VX before the shift.
			return OpShr

		case 0x0007:
			// 8XY7 - Sets VX to VY minus VX. VF is set to 0 when there's a borrow, and 1 when there isn't.
			return OpRsb

		case 0x000E:
			// 8XYE - Shifts VX left by one. VF is set to the most significant bit of VX before the shift.
			return OpShl
		}

	case 0x9000:
		// 9XY0 - Skips the next instruction if VX doesn't equal VY
		if opcode&0x000F == 0 {
			return OpSkneReg
		}

	case 0xA000:
		// ANNN - Sets I to the address NNN
		return OpMvi

	case 0xB000:
		// BNNN - Jumps to the address NNN plus V0
		return OpJmi

	case 0xC000:
		// CXNN - Sets VX to a random number, masked by NN
		return OpRand

	case 0xD000:
		// DXYN - Draws an 8xN sprite read from I at (VX, VY).
		// VF is set to 1 if any lit pixel is turned off, 0 otherwise.
		return OpSprite

	case 0xE000:
		switch opcode & 0x00FF {
		case 0x009E:
			// EX9E - Skips the next instruction if the key stored in VX is pressed
			return OpSkpr

		case 0x00A1:
			// EXA1 - Skips the next instruction if the key stored in VX isn't pressed
			return OpSkup
		}

	case 0xF000:
		switch opcode & 0x00FF {
		case 0x0007:
			// FX07 - Sets VX to the value of the delay timer
			return OpGdelay

		case 0x000A:
			// FX0A - A key press is awaited, and then stored in VX
			return OpKey

		case 0x0015:
			// FX15 - Sets the delay timer to VX
			return OpSdelay

		case 0x0018:
			// FX18 - Sets the sound timer to VX
			return OpSsound

		case 0x001E:
			// FX1E - Adds VX to I, no flag
			return OpAdi

		case 0x0029:
			// FX29 - Sets I to the font glyph for the hex digit in VX
			return OpFont

		case 0x0033:
			// FX33 - Stores the decimal digits of VX at I, I+1 and I+2
			return OpBcd

		case 0x0055:
			// FX55 - Stores V0 to VX in memory starting at address I
			return OpStr

		case 0x0065:
			// FX65 - Reads memory starting at address I into V0...VX
			return OpLdr
		}
	}

	return OpUnknown
}

// String renders the instruction as assembler text, e.g. "skeq v3, 16".
func (in Instruction) String() string {
	name := in.Op.String()

	switch in.Op {
	case OpCls, OpRts:
		return name

	case OpJmp, OpJsr, OpMvi, OpJmi:
		return fmt.Sprintf("%s 0x%04x", name, in.NNN)

	case OpSkeqImm, OpSkneImm, OpMovImm, OpAddImm:
		return fmt.Sprintf("%s v%x, %d", name, in.X, in.NN)

	case OpRand:
		return fmt.Sprintf("%s v%x, 0x%02x", name, in.X, in.NN)

	case OpSkeqReg, OpSkneReg, OpMovReg, OpOr, OpAnd, OpXor, OpAddReg, OpSub, OpRsb:
		return fmt.Sprintf("%s v%x, v%x", name, in.X, in.Y)

	case OpShr, OpShl, OpSkpr, OpSkup, OpGdelay, OpKey, OpSdelay, OpSsound, OpAdi, OpFont, OpBcd:
		return fmt.Sprintf("%s v%x", name, in.X)

	case OpSprite:
		return fmt.Sprintf("%s v%x, v%x, %d", name, in.X, in.Y, in.N)

	case OpStr, OpLdr:
		return fmt.Sprintf("%s v0-v%x", name, in.X)
	}

	return fmt.Sprintf("%s 0x%04X", name, in.Opcode)
}
