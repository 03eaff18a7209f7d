package hal

import (
	"errors"
	"log/slog"

	"github.com/kapitanov/chip8/internal/vm"
)

// Headless runs a fixed number of frames as fast as possible, for batch runs
// and tests. It quits after Config.Frames frames.
type Headless struct {
	frames       int
	maxFrames    int
	snapshotPath string
	gfx          []uint8
	draws        int
	tone         bool
}

var _ Frontend = (*Headless)(nil)

func NewHeadless(cfg Config) (*Headless, error) {
	if cfg.Frames <= 0 {
		return nil, errors.New("headless frontend requires a positive frame count")
	}

	slog.Info("running headless", "frames", cfg.Frames, "snapshot", cfg.SnapshotPath)

	return &Headless{
		maxFrames:    cfg.Frames,
		snapshotPath: cfg.SnapshotPath,
		gfx:          make([]uint8, vm.ScreenWidth*vm.ScreenHeight),
	}, nil
}

func (h *Headless) ReadInput(_ func(vm.Key), _ func(vm.Key)) error {
	return nil
}

func (h *Headless) Draw(gfx []uint8) error {
	copy(h.gfx, gfx)
	h.draws++
	return nil
}

func (h *Headless) Tone(on bool) error {
	if on != h.tone {
		slog.Debug("hal: tone", "on", on, "frame", h.frames)
	}
	h.tone = on
	return nil
}

func (h *Headless) WaitForNextFrame() error {
	h.frames++

	if h.frames%60 == 0 {
		slog.Debug("frame progress", "completed", h.frames, "total", h.maxFrames)
	}

	if h.frames < h.maxFrames {
		return nil
	}

	if h.snapshotPath != "" {
		if err := SavePNG(h.gfx, h.snapshotPath); err != nil {
			return err
		}
	}

	slog.Info("headless execution completed", "frames", h.frames, "draws", h.draws)
	return ErrQuit
}

// Frame returns the last framebuffer handed to Draw.
func (h *Headless) Frame() []uint8 {
	return h.gfx
}

func (h *Headless) Shutdown() {}
