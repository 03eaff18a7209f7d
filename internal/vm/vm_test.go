package vm

import (
	"bytes"
	"errors"
	"log/slog"
	"math/rand/v2"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestVM builds a machine whose program is the given opcodes.
func newTestVM(t *testing.T, opcodes ...uint16) *VM {
	t.Helper()

	program := make([]byte, 0, len(opcodes)*InstructionSize)
	for _, op := range opcodes {
		program = append(program, byte(op>>8), byte(op))
	}

	m, err := New(program, WithRandSource(rand.NewPCG(1, 2)))
	require.NoError(t, err)
	m.ClearDirty()
	return m
}

func step(t *testing.T, m *VM, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		require.NoError(t, m.Step())
	}
}

func TestNew(t *testing.T) {
	t.Run("installs font and program", func(t *testing.T) {
		m, err := New([]byte{0x12, 0x34})
		require.NoError(t, err)

		assert.Equal(t, ProgramStart, m.PC())
		assert.Equal(t, chip8Font, m.memory[FontStart:FontStart+uint16(len(chip8Font))])
		assert.Len(t, chip8Font, 16*FontGlyphSize)
		assert.Equal(t, uint8(0x12), m.Peek(0x200))
		assert.Equal(t, uint8(0x34), m.Peek(0x201))
		assert.True(t, m.Dirty())
		assert.Equal(t, DefaultCyclesPerFrame, m.cyclesPerFrame)
	})

	t.Run("program fills memory", func(t *testing.T) {
		program := make([]byte, MaxProgramSize)
		program[len(program)-1] = 0xAB

		m, err := New(program)
		require.NoError(t, err)
		assert.Equal(t, uint8(0xAB), m.Peek(0xFFF))
	})

	t.Run("program too large", func(t *testing.T) {
		_, err := New(make([]byte, MaxProgramSize+1))
		assert.ErrorIs(t, err, ErrProgramTooLarge)
	})

	t.Run("options", func(t *testing.T) {
		m, err := New(nil, WithCyclesPerFrame(3))
		require.NoError(t, err)
		assert.Equal(t, 3, m.cyclesPerFrame)
	})
}

func TestLoadProgram(t *testing.T) {
	t.Run("replaces program and resets", func(t *testing.T) {
		m := newTestVM(t, 0x6A42)
		step(t, m, 1)

		require.NoError(t, m.LoadProgram([]byte{0x00, 0xE0}))

		assert.Equal(t, ProgramStart, m.PC())
		assert.Equal(t, uint8(0), m.Register(0xA))
		assert.Equal(t, uint8(0x00), m.Peek(0x200))
		assert.Equal(t, uint8(0xE0), m.Peek(0x201))

		// Reset reloads the new program.
		m.Poke(0x201, 0xEE)
		m.Reset()
		assert.Equal(t, uint8(0xE0), m.Peek(0x201))
	})

	t.Run("rejects oversized program and keeps state", func(t *testing.T) {
		m := newTestVM(t, 0x6A42)
		step(t, m, 1)

		err := m.LoadProgram(make([]byte, MaxProgramSize+1))
		require.ErrorIs(t, err, ErrProgramTooLarge)

		assert.Equal(t, uint8(0x42), m.Register(0xA))
		assert.Equal(t, uint8(0x6A), m.Peek(0x200))
		assert.Equal(t, ProgramStart+InstructionSize, m.PC())
	})
}

// captureWarnings routes the default logger into a buffer for the duration of the test.
func captureWarnings(t *testing.T) *bytes.Buffer {
	t.Helper()

	buf := &bytes.Buffer{}
	prev := slog.Default()
	slog.SetDefault(slog.New(slog.NewTextHandler(buf, &slog.HandlerOptions{Level: slog.LevelWarn})))
	t.Cleanup(func() { slog.SetDefault(prev) })
	return buf
}

func TestWarningsAreLoggedOncePerReset(t *testing.T) {
	t.Run("runaway pc", func(t *testing.T) {
		buf := captureWarnings(t)
		m := newTestVM(t)
		for addr := uint16(0); addr < 40; addr++ {
			m.Poke(addr, 0x00)
		}
		m.SetPC(0x1000)

		step(t, m, 20)
		assert.Equal(t, 1, strings.Count(buf.String(), "memory access out of range"))

		m.Reset()
		m.SetPC(0x1000)
		step(t, m, 1)
		assert.Equal(t, 2, strings.Count(buf.String(), "memory access out of range"))
	})

	t.Run("unknown opcodes", func(t *testing.T) {
		buf := captureWarnings(t)
		m := newTestVM(t, 0x0123, 0x0123, 0xF4FF, 0x0123)

		step(t, m, 4)
		assert.Equal(t, 2, strings.Count(buf.String(), "unknown opcode"))
		assert.Equal(t, 1, strings.Count(buf.String(), "opcode=0xF4FF"))
	})

	t.Run("zeroed memory", func(t *testing.T) {
		buf := captureWarnings(t)
		m := newTestVM(t)

		step(t, m, 100)
		assert.Equal(t, 1, strings.Count(buf.String(), "unknown opcode"))
	})
}

func TestReset(t *testing.T) {
	m := newTestVM(t, 0x6A42, 0x2300)
	step(t, m, 2)
	m.KeyDown(Key3)
	m.delayTimer = 9
	m.soundTimer = 9
	m.Poke(0x100, 0xEE)

	m.Reset()

	assert.Equal(t, ProgramStart, m.PC())
	assert.Equal(t, uint8(0), m.Register(0xA))
	assert.Equal(t, 0, m.StackDepth())
	assert.False(t, m.KeyPressed(Key3))
	assert.Equal(t, uint8(0), m.DelayTimer())
	assert.Equal(t, uint8(0), m.SoundTimer())
	assert.Equal(t, uint8(0), m.Peek(0x100))
	assert.Equal(t, uint8(0x6A), m.Peek(0x200))
}

func TestTick(t *testing.T) {
	m := newTestVM(t)

	m.Tick()
	assert.Equal(t, uint8(0), m.DelayTimer())
	assert.Equal(t, uint8(0), m.SoundTimer())

	m.delayTimer = 2
	m.soundTimer = 1
	m.Tick()
	assert.Equal(t, uint8(1), m.DelayTimer())
	assert.Equal(t, uint8(0), m.SoundTimer())

	m.Tick()
	m.Tick()
	assert.Equal(t, uint8(0), m.DelayTimer())
	assert.Equal(t, uint8(0), m.SoundTimer())
}

func TestMemoryWrapsAt4K(t *testing.T) {
	m := newTestVM(t)

	m.Poke(0x1005, 0x77)
	assert.Equal(t, uint8(0x77), m.Peek(0x005))
	assert.Equal(t, uint8(0x77), m.Peek(0xF005))
}

var errStop = errors.New("stop")

// fakeHAL records every call the driver makes and stops after maxFrames.
type fakeHAL struct {
	maxFrames int
	frames    int
	calls     []string
	draws     [][]uint8
	tones     []bool
	press     map[int]Key // frame -> key pressed while reading input
}

func (f *fakeHAL) ReadInput(keyDown func(Key), keyUp func(Key)) error {
	f.calls = append(f.calls, "input")
	if key, ok := f.press[f.frames]; ok {
		keyDown(key)
	}
	return nil
}

func (f *fakeHAL) Draw(gfx []byte) error {
	f.calls = append(f.calls, "draw")
	f.draws = append(f.draws, append([]byte(nil), gfx...))
	return nil
}

func (f *fakeHAL) Tone(on bool) error {
	f.calls = append(f.calls, "tone")
	f.tones = append(f.tones, on)
	return nil
}

func (f *fakeHAL) WaitForNextFrame() error {
	f.calls = append(f.calls, "wait")
	f.frames++
	if f.frames >= f.maxFrames {
		return errStop
	}
	return nil
}

func TestRunFrameOrder(t *testing.T) {
	m := newTestVM(t,
		0x603C, // mov v0, 60
		0xF015, // sdelay v0
		0xF018, // ssound v0
		0x1206, // jmp 0x0206
	)
	hal := &fakeHAL{maxFrames: 100}

	require.NoError(t, m.RunFrame(hal))

	// Timers were set during the cycle batch and ticked once afterwards.
	assert.Equal(t, uint8(59), m.DelayTimer())
	assert.Equal(t, uint8(59), m.SoundTimer())
	assert.True(t, m.Halted())
	assert.Equal(t, []string{"tone", "input", "wait"}, hal.calls)
	assert.Equal(t, []bool{true}, hal.tones)
}

func TestRun(t *testing.T) {
	t.Run("renders, ticks and silences", func(t *testing.T) {
		m := newTestVM(t,
			0x6002, // mov v0, 2
			0xF018, // ssound v0
			0x00E0, // cls
			0x1206, // jmp 0x0206
		)
		hal := &fakeHAL{maxFrames: 4}

		err := m.Run(hal)
		require.ErrorIs(t, err, errStop)

		assert.Equal(t, []string{
			"tone", "draw", "input", "wait",
			"tone", "input", "wait",
			"input", "wait",
			"input", "wait",
		}, hal.calls)
		assert.Equal(t, []bool{true, false}, hal.tones)
		assert.Len(t, hal.draws, 1)
		assert.False(t, m.Dirty())
	})

	t.Run("key wait spans frames", func(t *testing.T) {
		m := newTestVM(t,
			0xF30A, // key v3
			0x1202, // jmp 0x0202
		)
		hal := &fakeHAL{maxFrames: 5, press: map[int]Key{2: KeyB}}

		err := m.Run(hal)
		require.ErrorIs(t, err, errStop)

		assert.Equal(t, uint8(0xB), m.Register(3))
		assert.False(t, m.WaitingForKey())
		assert.True(t, m.Halted())
	})

	t.Run("stack overflow is fatal", func(t *testing.T) {
		m := newTestVM(t, 0x2200) // jsr 0x0200
		hal := &fakeHAL{maxFrames: 100}

		err := m.Run(hal)
		assert.ErrorIs(t, err, ErrStackOverflow)
		assert.Equal(t, StackSize, m.StackDepth())
	})
}

func TestRunCyclesStopsWhenHalted(t *testing.T) {
	m := newTestVM(t, 0x7001, 0x1202) // add v0, 1; jmp 0x0202

	require.NoError(t, m.RunCycles(50))
	assert.True(t, m.Halted())
	assert.Equal(t, uint8(1), m.Register(0))
	assert.Equal(t, uint16(0x202), m.PC())
}
