package hal

import (
	"errors"
	"fmt"
	"time"

	"github.com/kapitanov/chip8/internal/vm"
)

var (
	ErrReboot = errors.New("reboot")
	ErrQuit   = errors.New("quit")
)

const (
	DefaultFPS    = 60
	DefaultVolume = 30
	MaxVolume     = 100
)

// Frontend is a vm.HAL that owns platform resources.
type Frontend interface {
	vm.HAL
	Shutdown()
}

type Kind string

const (
	KindSDL      = Kind("sdl")
	KindTerminal = Kind("terminal")
	KindHeadless = Kind("headless")
)

type Config struct {
	FPS          int    // Frame rate for paced frontends
	Frames       int    // Frames to run before a headless frontend quits
	SnapshotPath string // PNG written by a headless frontend when it quits
	Volume       int    // Tone volume, 0 to MaxVolume
	Mute         bool   // Never sound the tone
}

// New creates the frontend named by kind.
func New(kind Kind, cfg Config) (Frontend, error) {
	switch kind {
	case KindSDL:
		return NewSDL(cfg)
	case KindTerminal:
		return NewTerminal(cfg)
	case KindHeadless:
		return NewHeadless(cfg)
	default:
		return nil, fmt.Errorf("unknown frontend %q", kind)
	}
}

// frameLimiter paces frames with a ticker.
type frameLimiter struct {
	ticker *time.Ticker
}

func newFrameLimiter(fps int) *frameLimiter {
	if fps <= 0 {
		fps = DefaultFPS
	}

	return &frameLimiter{
		ticker: time.NewTicker(time.Second / time.Duration(fps)),
	}
}

func (l *frameLimiter) Wait() {
	<-l.ticker.C
}

func (l *frameLimiter) Stop() {
	l.ticker.Stop()
}
