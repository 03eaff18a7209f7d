package vm

import (
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
)

const (
	MemorySize    = 4096
	StackSize     = 16
	RegisterCount = 16
	ScreenWidth   = 64
	ScreenHeight  = 32
	KeyCount      = 16

	ProgramStart    = uint16(0x200)
	MaxProgramSize  = MemorySize - int(ProgramStart)
	InstructionSize = 2
	AddressMask     = uint16(0x0FFF)

	DefaultCyclesPerFrame = 10
)

var (
	ErrStackOverflow   = errors.New("stack overflow")
	ErrStackUnderflow  = errors.New("stack underflow")
	ErrProgramTooLarge = errors.New("program too large")
)

type VM struct {
	memory    []uint8 // Memory (4k)
	registers []uint8 // V registers (V0-VF)

	stack []uint16 // Stack
	sp    uint16   // Stack pointer

	pc    uint16 // Program counter
	index uint16 // Index register

	delayTimer uint8 // Delay timer
	soundTimer uint8 // Sound timer

	gfx      []uint8 // Graphics buffer
	keypad   []uint8 // Keypad
	drawFlag bool    // Indicates a draw has occurred

	waitingForKey bool  // FX0A is pending
	waitRegister  uint8 // Register receiving the FX0A key
	halted        bool  // Program jumped onto itself
	tone          bool  // Last tone state reported to the HAL

	warned map[string]struct{} // Warnings already logged since reset

	cyclesPerFrame int
	random         *rand.Rand

	program []byte
}

type Option func(*VM)

// WithCyclesPerFrame sets how many instructions Run executes between timer ticks.
func WithCyclesPerFrame(n int) Option {
	return func(vm *VM) {
		vm.cyclesPerFrame = n
	}
}

// WithRandSource replaces the random source used by CXNN.
func WithRandSource(src rand.Source) Option {
	return func(vm *VM) {
		vm.random = rand.New(src)
	}
}

// New creates a machine holding program and resets it, so it is ready to Step.
func New(program []byte, opts ...Option) (*VM, error) {
	vm := &VM{
		memory:         make([]uint8, MemorySize),
		registers:      make([]uint8, RegisterCount),
		stack:          make([]uint16, StackSize),
		gfx:            make([]uint8, ScreenWidth*ScreenHeight),
		keypad:         make([]uint8, KeyCount),
		warned:         make(map[string]struct{}),
		cyclesPerFrame: DefaultCyclesPerFrame,
	}

	for _, opt := range opts {
		opt(vm)
	}

	if vm.random == nil {
		vm.random = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}

	if err := vm.LoadProgram(program); err != nil {
		return nil, err
	}

	return vm, nil
}

// LoadProgram replaces the loaded ROM and resets the machine. On error the
// previous program and state are kept.
func (vm *VM) LoadProgram(program []byte) error {
	if len(program) > MaxProgramSize {
		return fmt.Errorf("%w: %d bytes, at most %d fit", ErrProgramTooLarge, len(program), MaxProgramSize)
	}

	vm.program = program
	vm.Reset()
	return nil
}

type HAL interface {
	ReadInput(keyDown func(Key), keyUp func(Key)) error
	Draw(gfx []byte) error
	Tone(on bool) error
	WaitForNextFrame() error
}

type Key uint8

const (
	Key0 = Key(iota)
	Key1
	Key2
	Key3
	Key4
	Key5
	Key6
	Key7
	Key8
	Key9
	KeyA
	KeyB
	KeyC
	KeyD
	KeyE
	KeyF
)

// Run resets the machine and drives it frame by frame until the HAL or the
// program returns an error.
func (vm *VM) Run(hal HAL) error {
	vm.Reset()

	for {
		if err := vm.RunFrame(hal); err != nil {
			return err
		}
	}
}

// RunFrame executes one frame: a batch of cycles, one timer tick, the tone
// update, a render if the display is dirty, then input and pacing.
func (vm *VM) RunFrame(hal HAL) error {
	if err := vm.RunCycles(vm.cyclesPerFrame); err != nil {
		return err
	}

	vm.Tick()

	if tone := vm.soundTimer > 0; tone != vm.tone {
		if err := hal.Tone(tone); err != nil {
			return err
		}
		vm.tone = tone
	}

	if vm.drawFlag {
		if err := hal.Draw(vm.gfx); err != nil {
			return err
		}
		vm.drawFlag = false
	}

	if err := hal.ReadInput(vm.KeyDown, vm.KeyUp); err != nil {
		return err
	}

	return hal.WaitForNextFrame()
}

// RunCycles executes up to n cycles, stopping early once the program halts.
func (vm *VM) RunCycles(n int) error {
	for i := 0; i < n && !vm.halted; i++ {
		if err := vm.Step(); err != nil {
			return err
		}
	}

	return nil
}

// Reset zeroes all state, installs the font and copies the program to ProgramStart.
func (vm *VM) Reset() {
	vm.pc = ProgramStart
	vm.index = 0
	vm.sp = 0

	// Clear the display
	for i := range vm.gfx {
		vm.gfx[i] = 0
	}
	vm.drawFlag = true

	// Clear the stack, keypad, and V registers
	slog.Debug("clear stack", "n", len(vm.stack))
	for i := range vm.stack {
		vm.stack[i] = 0
	}

	slog.Debug("clear keypad", "n", len(vm.keypad))
	for i := range vm.keypad {
		vm.keypad[i] = 0
	}

	slog.Debug("clear registers", "n", len(vm.registers))
	for i := range vm.registers {
		vm.registers[i] = 0
	}

	// Clear memory
	slog.Debug("clear memory", "n", len(vm.memory))
	for i := range vm.memory {
		vm.memory[i] = 0
	}

	// Load font set into memory
	slog.Debug("load font", "at", fmt.Sprintf("0x%04x", FontStart), "n", len(chip8Font))
	copy(vm.memory[FontStart:], chip8Font)

	// Load program into memory
	slog.Info("load program", "at", fmt.Sprintf("0x%04x", ProgramStart), "n", len(vm.program))
	copy(vm.memory[ProgramStart:], vm.program)

	vm.delayTimer = 0
	vm.soundTimer = 0
	vm.tone = false

	vm.waitingForKey = false
	vm.waitRegister = 0
	vm.halted = false
	clear(vm.warned)
}

// Step runs a single fetch-decode-execute cycle. While FX0A is pending the
// cycle only polls the keypad.
func (vm *VM) Step() error {
	if vm.waitingForKey {
		vm.pollAwaitedKey()
		return nil
	}

	opcode := vm.fetchOpcode()
	vm.pc += InstructionSize

	return vm.executeOpcode(opcode)
}

// Tick decrements both timers by one, stopping at zero.
func (vm *VM) Tick() {
	if vm.delayTimer > 0 {
		vm.delayTimer--
	}

	if vm.soundTimer > 0 {
		vm.soundTimer--
	}
}

func (vm *VM) fetchOpcode() uint16 {
	hi := vm.read(vm.pc)
	lo := vm.read(vm.pc + 1)

	opcode := uint16(hi)<<8 | uint16(lo) // Op code is two bytes
	return opcode
}

func (vm *VM) DelayTimer() uint8 { return vm.delayTimer }

func (vm *VM) SoundTimer() uint8 { return vm.soundTimer }

// Halted reports whether the program jumped onto its own address.
func (vm *VM) Halted() bool { return vm.halted }

// WaitingForKey reports whether an FX0A instruction is waiting for a key press.
func (vm *VM) WaitingForKey() bool { return vm.waitingForKey }
