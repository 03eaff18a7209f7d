package hal

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/veandco/go-sdl2/sdl"

	"github.com/kapitanov/chip8/internal/vm"
)

func TestRuneKey(t *testing.T) {
	key, ok := runeKey('q')
	assert.True(t, ok)
	assert.Equal(t, vm.Key4, key)

	key, ok = runeKey('V')
	assert.True(t, ok)
	assert.Equal(t, vm.KeyF, key)

	_, ok = runeKey('5')
	assert.False(t, ok)
}

func TestKeymapsCoverKeypad(t *testing.T) {
	seen := make(map[vm.Key]bool)
	for _, key := range runeKeys {
		seen[key] = true
	}
	assert.Len(t, seen, vm.KeyCount)
}

func TestScancodeKeyMatchesRuneKey(t *testing.T) {
	scancodes := map[rune]sdl.Scancode{
		'1': sdl.SCANCODE_1, '2': sdl.SCANCODE_2, '3': sdl.SCANCODE_3, '4': sdl.SCANCODE_4,
		'q': sdl.SCANCODE_Q, 'w': sdl.SCANCODE_W, 'e': sdl.SCANCODE_E, 'r': sdl.SCANCODE_R,
		'a': sdl.SCANCODE_A, 's': sdl.SCANCODE_S, 'd': sdl.SCANCODE_D, 'f': sdl.SCANCODE_F,
		'z': sdl.SCANCODE_Z, 'x': sdl.SCANCODE_X, 'c': sdl.SCANCODE_C, 'v': sdl.SCANCODE_V,
	}

	for r, code := range scancodes {
		want, ok := runeKey(r)
		assert.True(t, ok)

		got, ok := scancodeKey(code)
		assert.True(t, ok)
		assert.Equal(t, want, got, "key %q", r)
	}

	_, ok := scancodeKey(sdl.SCANCODE_5)
	assert.False(t, ok)
}

func TestSquareWave(t *testing.T) {
	samples := squareWave(8, 2, 10, 8)

	assert.Equal(t, []byte{0x8A, 0x8A, 0x76, 0x76, 0x8A, 0x8A, 0x76, 0x76}, samples)
}

func TestToneAmplitude(t *testing.T) {
	tests := []struct {
		volume int
		want   uint8
	}{
		{0, 0},
		{DefaultVolume, 38},
		{50, 63},
		{MaxVolume, 0x7F},
		{-5, 0},
		{250, 0x7F},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, toneAmplitude(tt.volume), "volume %d", tt.volume)
	}

	// Full volume spans the whole unsigned 8-bit range without wrapping.
	samples := squareWave(8, 2, toneAmplitude(MaxVolume), 4)
	assert.Equal(t, []byte{0xFF, 0xFF, 0x01, 0x01}, samples)
}

func TestToneSamplesCoverLongestSoundTimer(t *testing.T) {
	for _, fps := range []int{10, 30, 60, 120} {
		seconds := float64(toneSamples(audioSampleRate, fps)) / audioSampleRate
		assert.GreaterOrEqual(t, seconds, 255/float64(fps), "fps %d", fps)
	}

	assert.Equal(t, toneSamples(audioSampleRate, DefaultFPS), toneSamples(audioSampleRate, 0))
}

func TestMutedSDLToneQueuesNothing(t *testing.T) {
	// The device id is never opened: queuing on it would fail.
	h := &SDL{audio: 1, mute: true, tone: []byte{0x80}}

	assert.NoError(t, h.Tone(true))
	assert.NoError(t, h.Tone(false))
}
