package hal

import (
	"fmt"
	"log/slog"
	"unsafe"

	"github.com/kapitanov/chip8/internal/vm"
	"github.com/veandco/go-sdl2/sdl"
)

const (
	WindowWidth  = 1024
	WindowHeight = 512

	audioSampleRate  = 44100
	toneFrequency    = 440
	maxToneAmplitude = 0x7F
	maxSoundTicks    = 255
)

type SDL struct {
	window          *sdl.Window
	renderer        *sdl.Renderer
	texture         *sdl.Texture
	audio           sdl.AudioDeviceID
	tone            []byte
	backBuffer      []uint32
	backBufferPitch int
	limiter         *frameLimiter
	fps             int
	volume          int
	mute            bool
}

var _ Frontend = (*SDL)(nil)

func NewSDL(cfg Config) (*SDL, error) {
	if err := sdl.Init(sdl.INIT_VIDEO | sdl.INIT_AUDIO | sdl.INIT_EVENTS); err != nil {
		return nil, fmt.Errorf("failed to init sdl: %w", err)
	}

	window, err := sdl.CreateWindow("CHIP-8", sdl.WINDOWPOS_UNDEFINED, sdl.WINDOWPOS_UNDEFINED, WindowWidth, WindowHeight, sdl.WINDOW_SHOWN|sdl.WINDOW_UTILITY)
	if err != nil {
		return nil, fmt.Errorf("failed to create sdl window: %w", err)
	}
	slog.Debug("hal: create window")
	window.Show()

	renderer, err := sdl.CreateRenderer(window, -1, sdl.RENDERER_ACCELERATED)
	if err != nil {
		return nil, fmt.Errorf("failed to create sdl renderer: %w", err)
	}
	err = renderer.SetLogicalSize(WindowWidth, WindowHeight)
	if err != nil {
		return nil, fmt.Errorf("failed to resize sdl renderer: %w", err)
	}
	slog.Debug("hal: create renderer")

	texture, err := renderer.CreateTexture(sdl.PIXELFORMAT_ARGB8888, sdl.TEXTUREACCESS_STREAMING, vm.ScreenWidth, vm.ScreenHeight)
	if err != nil {
		return nil, fmt.Errorf("failed to create sdl texture: %w", err)
	}
	slog.Debug("hal: create texture")

	h := &SDL{
		window:          window,
		renderer:        renderer,
		texture:         texture,
		backBuffer:      make([]uint32, vm.ScreenWidth*vm.ScreenHeight),
		backBufferPitch: int(vm.ScreenWidth) * int(unsafe.Sizeof(uint32(0))),
		limiter:         newFrameLimiter(cfg.FPS),
		fps:             cfg.FPS,
		volume:          cfg.Volume,
		mute:            cfg.Mute,
	}

	// A missing audio device is not fatal: the machine runs silent.
	if err := h.openAudio(); err != nil {
		slog.Warn("hal: audio disabled", "err", err)
	}

	return h, nil
}

func (hal *SDL) openAudio() error {
	spec := &sdl.AudioSpec{
		Freq:     audioSampleRate,
		Format:   sdl.AUDIO_U8,
		Channels: 1,
		Samples:  512,
	}

	dev, err := sdl.OpenAudioDevice("", false, spec, nil, 0)
	if err != nil {
		return fmt.Errorf("failed to open sdl audio device: %w", err)
	}
	slog.Debug("hal: open audio device", "id", dev)

	hal.audio = dev
	hal.tone = squareWave(audioSampleRate, toneFrequency, toneAmplitude(hal.volume), toneSamples(audioSampleRate, hal.fps))
	return nil
}

// toneAmplitude maps a 0-100 volume onto the square wave amplitude.
func toneAmplitude(volume int) uint8 {
	volume = max(0, min(volume, MaxVolume))
	return uint8(volume * maxToneAmplitude / MaxVolume)
}

// toneSamples is the number of samples covering the longest sound timer
// (255 ticks) at the given frame rate, plus one tick of slack.
func toneSamples(sampleRate, fps int) int {
	if fps <= 0 {
		fps = DefaultFPS
	}
	return (maxSoundTicks + 1) * sampleRate / fps
}

// squareWave renders n unsigned 8-bit samples of a square wave centred on 0x80.
func squareWave(sampleRate, frequency int, amplitude uint8, n int) []byte {
	period := sampleRate / frequency
	samples := make([]byte, n)
	for i := range samples {
		if (i%period)*2 < period {
			samples[i] = 0x80 + amplitude
		} else {
			samples[i] = 0x80 - amplitude
		}
	}
	return samples
}

func (hal *SDL) Shutdown() {
	hal.limiter.Stop()

	if hal.audio != 0 {
		sdl.CloseAudioDevice(hal.audio)
	}

	if err := hal.texture.Destroy(); err != nil {
		slog.Error("failed to destroy sdl texture", "err", err)
	}

	if err := hal.renderer.Destroy(); err != nil {
		slog.Error("failed to destroy sdl renderer", "err", err)
	}

	if err := hal.window.Destroy(); err != nil {
		slog.Error("failed to destroy sdl window", "err", err)
	}

	sdl.Quit()
}

func (hal *SDL) ReadInput(keyDown func(vm.Key), keyUp func(vm.Key)) error {
	for e := sdl.PollEvent(); e != nil; e = sdl.PollEvent() {
		switch e.GetType() {
		case sdl.QUIT:
			slog.Debug("hal: exit requested")
			return ErrQuit
		case sdl.KEYDOWN:
			err := hal.processKeyDown(e.(*sdl.KeyboardEvent), keyDown)
			if err != nil {
				return err
			}

		case sdl.KEYUP:
			hal.processKeyUp(e.(*sdl.KeyboardEvent), keyUp)
		}
	}

	return nil
}

func (hal *SDL) processKeyDown(e *sdl.KeyboardEvent, callback func(vm.Key)) error {
	if e.Keysym.Scancode == sdl.SCANCODE_BACKSPACE {
		return ErrReboot
	}

	key, ok := scancodeKey(e.Keysym.Scancode)
	if ok {
		callback(key)
	}

	return nil
}

func (hal *SDL) processKeyUp(e *sdl.KeyboardEvent, callback func(vm.Key)) {
	key, ok := scancodeKey(e.Keysym.Scancode)
	if ok {
		callback(key)
	}
}

// scancodeKey uses the same physical layout as runeKeys.
func scancodeKey(code sdl.Scancode) (vm.Key, bool) {
	switch code {
	case sdl.SCANCODE_X:
		return vm.Key0, true
	case sdl.SCANCODE_1:
		return vm.Key1, true
	case sdl.SCANCODE_2:
		return vm.Key2, true
	case sdl.SCANCODE_3:
		return vm.Key3, true
	case sdl.SCANCODE_Q:
		return vm.Key4, true
	case sdl.SCANCODE_W:
		return vm.Key5, true
	case sdl.SCANCODE_E:
		return vm.Key6, true
	case sdl.SCANCODE_A:
		return vm.Key7, true
	case sdl.SCANCODE_S:
		return vm.Key8, true
	case sdl.SCANCODE_D:
		return vm.Key9, true
	case sdl.SCANCODE_Z:
		return vm.KeyA, true
	case sdl.SCANCODE_C:
		return vm.KeyB, true
	case sdl.SCANCODE_4:
		return vm.KeyC, true
	case sdl.SCANCODE_R:
		return vm.KeyD, true
	case sdl.SCANCODE_F:
		return vm.KeyE, true
	case sdl.SCANCODE_V:
		return vm.KeyF, true
	default:
		return 0, false
	}
}

func (hal *SDL) Draw(gfx []uint8) error {
	for i, cell := range gfx {
		hal.backBuffer[i] = argb(pixelColor(cell))
	}

	backBufferPtr := unsafe.Pointer(&hal.backBuffer[0])
	if err := hal.texture.Update(nil, backBufferPtr, hal.backBufferPitch); err != nil {
		return fmt.Errorf("failed to update sdl texture: %w", err)
	}

	if err := hal.renderer.Clear(); err != nil {
		return fmt.Errorf("failed to clear sdl renderer: %w", err)
	}

	if err := hal.renderer.Copy(hal.texture, nil, nil); err != nil {
		return fmt.Errorf("failed to copy sdl texture to renderer: %w", err)
	}

	hal.renderer.Present()
	return nil
}

func (hal *SDL) Tone(on bool) error {
	if hal.audio == 0 || hal.mute {
		return nil
	}

	if !on {
		sdl.PauseAudioDevice(hal.audio, true)
		sdl.ClearQueuedAudio(hal.audio)
		return nil
	}

	if err := sdl.QueueAudio(hal.audio, hal.tone); err != nil {
		return fmt.Errorf("failed to queue sdl audio: %w", err)
	}
	sdl.PauseAudioDevice(hal.audio, false)
	return nil
}

func (hal *SDL) WaitForNextFrame() error {
	hal.limiter.Wait()
	return nil
}
