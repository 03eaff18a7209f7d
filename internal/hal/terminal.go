package hal

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/kapitanov/chip8/internal/vm"
)

// Terminals report presses only, so a key counts as released once no
// repeat arrives within keyTimeout.
const keyTimeout = 150 * time.Millisecond

const logLines = 6

type Terminal struct {
	screen  tcell.Screen
	limiter *frameLimiter
	logs    *logBuffer
	prevLog *slog.Logger
	pressed map[vm.Key]time.Time
	tone    bool
	mute    bool
	now     func() time.Time
	lastGfx []uint8
}

var _ Frontend = (*Terminal)(nil)

func NewTerminal(cfg Config) (*Terminal, error) {
	screen, err := tcell.NewScreen()
	if err != nil {
		return nil, fmt.Errorf("failed to create terminal screen: %w", err)
	}

	return newTerminal(screen, cfg)
}

func newTerminal(screen tcell.Screen, cfg Config) (*Terminal, error) {
	if err := screen.Init(); err != nil {
		return nil, fmt.Errorf("failed to init terminal screen: %w", err)
	}

	screen.SetStyle(tcell.StyleDefault.Background(tcell.ColorBlack).Foreground(tcell.ColorWhite))
	screen.Clear()

	t := &Terminal{
		screen:  screen,
		limiter: newFrameLimiter(cfg.FPS),
		logs:    newLogBuffer(100),
		prevLog: slog.Default(),
		pressed: make(map[vm.Key]time.Time),
		mute:    cfg.Mute,
		now:     time.Now,
	}

	// The screen owns the terminal; keep log output inside the UI.
	level := slog.LevelInfo
	if t.prevLog.Enabled(context.Background(), slog.LevelDebug) {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(&logBufferHandler{buffer: t.logs, level: level}))
	slog.Info("terminal frontend initialized")

	return t, nil
}

func (t *Terminal) Shutdown() {
	t.limiter.Stop()
	t.screen.Fini()
	slog.SetDefault(t.prevLog)
}

func (t *Terminal) ReadInput(keyDown func(vm.Key), keyUp func(vm.Key)) error {
	now := t.now()

	for t.screen.HasPendingEvent() {
		switch ev := t.screen.PollEvent().(type) {
		case *tcell.EventKey:
			switch ev.Key() {
			case tcell.KeyEscape, tcell.KeyCtrlC:
				slog.Debug("hal: exit requested")
				return ErrQuit
			case tcell.KeyBackspace, tcell.KeyBackspace2:
				return ErrReboot
			case tcell.KeyRune:
				if key, ok := runeKey(ev.Rune()); ok {
					if _, down := t.pressed[key]; !down {
						keyDown(key)
					}
					t.pressed[key] = now
				}
			}

		case *tcell.EventResize:
			t.screen.Sync()
			if t.lastGfx != nil {
				t.render(t.lastGfx)
			}
		}
	}

	for key, at := range t.pressed {
		if now.Sub(at) >= keyTimeout {
			delete(t.pressed, key)
			keyUp(key)
		}
	}

	return nil
}

// Draw packs two framebuffer rows into each text row with half-block glyphs.
func (t *Terminal) Draw(gfx []uint8) error {
	if t.lastGfx == nil {
		t.lastGfx = make([]uint8, len(gfx))
	}
	copy(t.lastGfx, gfx)

	t.render(gfx)
	return nil
}

func (t *Terminal) render(gfx []uint8) {
	for y := 0; y < vm.ScreenHeight; y += 2 {
		for x := 0; x < vm.ScreenWidth; x++ {
			top := pixelColor(gfx[y*vm.ScreenWidth+x])
			bottom := pixelColor(gfx[(y+1)*vm.ScreenWidth+x])

			style := tcell.StyleDefault.
				Foreground(tcell.NewRGBColor(int32(top.R), int32(top.G), int32(top.B))).
				Background(tcell.NewRGBColor(int32(bottom.R), int32(bottom.G), int32(bottom.B)))
			t.screen.SetContent(x, y/2, '▀', nil, style)
		}
	}

	t.drawStatus()
	t.screen.Show()
}

func (t *Terminal) drawStatus() {
	row := vm.ScreenHeight/2 + 1
	width, height := t.screen.Size()

	status := " 1234/QWER/ASDF/ZXCV keypad  Backspace=reboot  Esc=quit "
	if t.tone {
		status += " [BEEP]"
	}
	t.drawLine(row, width, status, tcell.StyleDefault.Foreground(tcell.ColorYellow))

	for i, line := range t.logs.recent(logLines) {
		if row+1+i >= height {
			break
		}
		t.drawLine(row+1+i, width, line, tcell.StyleDefault)
	}
}

func (t *Terminal) drawLine(row, width int, text string, style tcell.Style) {
	x := 0
	for _, ch := range text {
		if x >= width {
			break
		}
		t.screen.SetContent(x, row, ch, nil, style)
		x++
	}
	for ; x < width; x++ {
		t.screen.SetContent(x, row, ' ', nil, style)
	}
}

// Tone shows a marker in the status line; terminals have no tone generator.
func (t *Terminal) Tone(on bool) error {
	t.tone = on
	if on && !t.mute {
		return t.screen.Beep()
	}
	return nil
}

func (t *Terminal) WaitForNextFrame() error {
	t.limiter.Wait()
	return nil
}
