package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/urfave/cli"
	"github.com/valerio/dotcore/dotcore"
	"github.com/valerio/dotcore/dotcore/render"
	"github.com/valerio/dotcore/dotcore/statsview"
)

var errStatsviewUnavailable = errors.New("--statsview needs a binary built with -tags statsview")

func main() {
	app := cli.NewApp()
	app.Name = "dotcore"
	app.Description = "A cycle-stepped DMG Game Boy emulator"
	app.Usage = "dotcore [options] <ROM file>"
	app.Version = "1.0.0"
	app.Flags = []cli.Flag{
		cli.StringFlag{
			Name:  "rom",
			Usage: "Path to the ROM file",
		},
		cli.StringFlag{
			Name:  "boot-rom",
			Usage: "Path to a 256 byte boot ROM; without it execution starts at 0x100",
		},
		cli.BoolFlag{
			Name:  "headless",
			Usage: "Run the emulator without a terminal display",
		},
		cli.IntFlag{
			Name:  "frames",
			Usage: "Number of frames to run in headless mode (required for headless)",
		},
		cli.Float64Flag{
			Name:  "speed",
			Usage: "Frame rate multiplier for the terminal display (0 = unthrottled)",
			Value: 1,
		},
		cli.StringFlag{
			Name:  "snapshot",
			Usage: "Write a text snapshot of the final frame to this file (headless), or the directory for snapshot keys",
		},
		cli.StringFlag{
			Name:  "load-state",
			Usage: "Load a save state before running",
		},
		cli.StringFlag{
			Name:  "save-state",
			Usage: "Save state file written after a headless run and by the save state key",
		},
		cli.BoolFlag{
			Name:  "serial",
			Usage: "Echo bytes sent over the serial port to stdout",
		},
		cli.BoolFlag{
			Name:  "trace",
			Usage: "Log every executed instruction (implies --debug)",
		},
		cli.BoolFlag{
			Name:  "debug",
			Usage: "Enable debug logging",
		},
		cli.BoolFlag{
			Name:  "statsview",
			Usage: "Serve runtime statistics over HTTP (needs the statsview build tag)",
		},
	}
	app.Action = runEmulator

	err := app.Run(os.Args)
	if err != nil {
		slog.Error("Error running emulator", "error", err)
		os.Exit(1)
	}
}

func runEmulator(c *cli.Context) error {
	romPath := c.String("rom")
	if romPath == "" {
		if c.NArg() > 0 {
			romPath = c.Args().Get(0)
		} else {
			cli.ShowAppHelp(c)
			return errors.New("no ROM path provided")
		}
	}

	level := slog.LevelInfo
	if c.Bool("debug") || c.Bool("trace") {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	if c.Bool("statsview") {
		if err := launchStatsview(); err != nil {
			return err
		}
	}

	opts := []dotcore.Option{dotcore.WithLogger(logger)}
	if path := c.String("boot-rom"); path != "" {
		boot, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("read boot rom: %w", err)
		}
		opts = append(opts, dotcore.WithBootROM(boot))
	}
	if c.Bool("serial") {
		opts = append(opts, dotcore.WithSerialWriter(os.Stdout))
	}
	if c.Bool("trace") {
		opts = append(opts, dotcore.WithTrace())
	}

	emu, err := dotcore.NewWithFile(romPath, opts...)
	if err != nil {
		return err
	}

	if path := c.String("load-state"); path != "" {
		if err := loadState(emu, path); err != nil {
			return err
		}
		slog.Info("Loaded state", "path", path, "frame", emu.FrameCount())
	}

	if c.Bool("headless") {
		return runHeadless(c, emu, romPath)
	}

	snapshotDir := c.String("snapshot")
	if snapshotDir == "" {
		snapshotDir = os.TempDir()
	}
	renderer, err := render.NewTerminalRenderer(emu, render.Options{
		Speed:       c.Float64("speed"),
		StatePath:   c.String("save-state"),
		SnapshotDir: snapshotDir,
	})
	if err != nil {
		return err
	}
	return renderer.Run()
}

func runHeadless(c *cli.Context, emu *dotcore.Emulator, romPath string) error {
	frames := c.Int("frames")
	if frames <= 0 {
		return errors.New("headless mode requires --frames option with a positive value")
	}

	slog.Info("Running headless mode", "frames", frames)
	for i := 0; i < frames; i++ {
		if err := emu.RunUntilFrame(); err != nil {
			return fmt.Errorf("frame %d: %w", emu.FrameCount(), err)
		}
		if (i+1)%60 == 0 {
			slog.Debug("Frame progress", "completed", i+1, "total", frames)
		}
	}

	if path := c.String("snapshot"); path != "" {
		romName := strings.TrimSuffix(filepath.Base(romPath), filepath.Ext(romPath))
		if err := saveSnapshot(emu, path, romName); err != nil {
			return err
		}
		slog.Info("Saved frame snapshot", "path", path)
	}
	if path := c.String("save-state"); path != "" {
		if err := saveState(emu, path); err != nil {
			return err
		}
		slog.Info("Saved state", "path", path)
	}

	slog.Info("Headless execution completed", "frames", frames)
	return nil
}

func saveSnapshot(emu *dotcore.Emulator, path, romName string) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()
	return render.WriteSnapshot(file, emu.Frame(),
		"Game Boy Frame Snapshot",
		fmt.Sprintf("ROM: %s, Frame: %d, Cycles: %d", romName, emu.FrameCount(), emu.CPU().GetCycles()))
}

func saveState(emu *dotcore.Emulator, path string) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := emu.SaveState(file); err != nil {
		file.Close()
		return err
	}
	return file.Close()
}

func loadState(emu *dotcore.Emulator, path string) error {
	file, err := os.Open(path)
	if err != nil {
		return err
	}
	defer file.Close()
	return emu.LoadState(file)
}

func launchStatsview() error {
	if !statsview.Available() {
		return errStatsviewUnavailable
	}
	statsview.Launch()
	return nil
}
