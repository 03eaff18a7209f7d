package main

import (
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"os"
	"path/filepath"

	"github.com/kapitanov/chip8/internal/hal"
	"github.com/kapitanov/chip8/internal/vm"
	"github.com/spf13/cobra"
)

type config struct {
	verbose  bool
	frontend string
	cycles   int
	fps      int
	frames   int
	snapshot string
	seed     uint64
	volume   int
	mute     bool
}

func (c *config) validate() error {
	if c.cycles <= 0 {
		return fmt.Errorf("--cycles must be positive, got %d", c.cycles)
	}

	if c.fps <= 0 {
		return fmt.Errorf("--fps must be positive, got %d", c.fps)
	}

	if c.volume < 0 || c.volume > hal.MaxVolume {
		return fmt.Errorf("--volume must be between 0 and %d, got %d", hal.MaxVolume, c.volume)
	}

	switch hal.Kind(c.frontend) {
	case hal.KindSDL, hal.KindTerminal:
	case hal.KindHeadless:
		if c.frames <= 0 {
			return errors.New("headless frontend requires --frames")
		}
	default:
		return fmt.Errorf("unknown frontend %q", c.frontend)
	}

	return nil
}

func (c *config) vmOptions() []vm.Option {
	opts := []vm.Option{vm.WithCyclesPerFrame(c.cycles)}
	if c.seed != 0 {
		opts = append(opts, vm.WithRandSource(rand.NewPCG(c.seed, c.seed)))
	}
	return opts
}

func main() {
	cmd := &cobra.Command{
		Use:           fmt.Sprintf("%s PATH_TO_ROM_FILE", filepath.Base(os.Args[0])),
		Short:         "Run emulator",
		Args:          cobra.ExactArgs(1),
		SilenceErrors: true,
		SilenceUsage:  true,
	}

	var cfg config
	flags := cmd.Flags()
	flags.BoolVarP(&cfg.verbose, "verbose", "v", false, "enable verbose logging")
	flags.StringVarP(&cfg.frontend, "frontend", "f", string(hal.KindSDL), "frontend to use: sdl, terminal or headless")
	flags.IntVar(&cfg.cycles, "cycles", vm.DefaultCyclesPerFrame, "instructions executed per frame")
	flags.IntVar(&cfg.fps, "fps", hal.DefaultFPS, "frames (timer ticks) per second")
	flags.IntVar(&cfg.frames, "frames", 0, "number of frames to run in headless mode")
	flags.StringVar(&cfg.snapshot, "snapshot", "", "write the final frame as PNG in headless mode")
	flags.Uint64Var(&cfg.seed, "seed", 0, "random seed for CXNN (0 = random)")
	flags.IntVar(&cfg.volume, "volume", hal.DefaultVolume, "tone volume from 0 to 100")
	flags.BoolVar(&cfg.mute, "mute", false, "disable the sound timer tone")

	cmd.RunE = func(_ *cobra.Command, args []string) error {
		loggerOpts := &slog.HandlerOptions{
			Level: slog.LevelInfo,
		}
		if cfg.verbose {
			loggerOpts.Level = slog.LevelDebug
		}

		slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, loggerOpts)))

		if err := cfg.validate(); err != nil {
			return err
		}

		path := args[0]
		bs, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("unable to load file %q: %w", path, err)
		}

		machine, err := vm.New(bs, cfg.vmOptions()...)
		if err != nil {
			return fmt.Errorf("unable to load program %q: %w", path, err)
		}

		h, err := hal.New(hal.Kind(cfg.frontend), hal.Config{
			FPS:          cfg.fps,
			Frames:       cfg.frames,
			SnapshotPath: cfg.snapshot,
			Volume:       cfg.volume,
			Mute:         cfg.mute,
		})
		if err != nil {
			return fmt.Errorf("unable to initialize hal: %w", err)
		}
		defer h.Shutdown()

		return run(machine, h)
	}

	cmd.SetArgs(os.Args[1:])
	if err := cmd.Execute(); err != nil {
		slog.Error("fatal error", "err", err)
		os.Exit(1)
	}
}

// run drives the machine until the user quits, rebooting on request.
func run(machine *vm.VM, h vm.HAL) error {
	for {
		err := machine.Run(h)

		if errors.Is(err, hal.ErrQuit) {
			return nil
		}

		if errors.Is(err, hal.ErrReboot) {
			slog.Info("reboot")
			continue
		}

		return err
	}
}
