// Package render presents frames on a terminal with tcell and feeds key
// presses back into the emulator.
package render

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/valerio/dotcore/dotcore"
	"github.com/valerio/dotcore/dotcore/input"
	"github.com/valerio/dotcore/dotcore/input/action"
	"github.com/valerio/dotcore/dotcore/timing"
	"github.com/valerio/dotcore/dotcore/video"
)

// Terminals only report key presses. A button stays down for this many frames
// after the last press or repeat.
const holdFrames = 8

// Options configures the terminal presenter.
type Options struct {
	// Speed multiplies the frame rate; zero runs unthrottled.
	Speed float64
	// StatePath is where the save and load state keys write and read.
	StatePath string
	// SnapshotDir receives text snapshots of the screen.
	SnapshotDir string
}

// TerminalRenderer runs the emulator loop and draws every frame with half
// block characters, two pixel rows per terminal row.
type TerminalRenderer struct {
	screen   tcell.Screen
	emulator *dotcore.Emulator
	input    *input.Manager
	limiter  timing.Limiter
	opts     Options

	// commands run on the emulator goroutine; key callbacks run on the
	// input goroutine and must not touch the emulator directly.
	commands chan func()
	done     chan struct{}

	paused    bool
	stepFrame bool
}

func NewTerminalRenderer(emu *dotcore.Emulator, opts Options) (*TerminalRenderer, error) {
	screen, err := tcell.NewScreen()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize terminal: %w", err)
	}
	return newTerminalRenderer(screen, emu, opts)
}

func newTerminalRenderer(screen tcell.Screen, emu *dotcore.Emulator, opts Options) (*TerminalRenderer, error) {
	if err := screen.Init(); err != nil {
		return nil, fmt.Errorf("failed to initialize terminal: %w", err)
	}

	t := &TerminalRenderer{
		screen:   screen,
		emulator: emu,
		input:    input.NewManager(input.WithAutoRelease(holdFrames)),
		limiter:  timing.New(opts.Speed),
		opts:     opts,
		commands: make(chan func(), 16),
		done:     make(chan struct{}),
	}
	t.bindActions()
	return t, nil
}

func (t *TerminalRenderer) bindActions() {
	t.input.On(action.EmulatorQuit, input.Press, func() { t.enqueue(t.stop) })
	t.input.On(action.EmulatorPauseToggle, input.Press, func() {
		t.enqueue(func() {
			t.paused = !t.paused
			t.limiter.Reset()
			slog.Info("pause toggled", "paused", t.paused)
		})
	})
	t.input.On(action.EmulatorStepFrame, input.Press, func() {
		t.enqueue(func() { t.stepFrame = true })
	})
	t.input.On(action.EmulatorSnapshot, input.Press, func() { t.enqueue(t.snapshot) })
	t.input.On(action.EmulatorSaveState, input.Press, func() { t.enqueue(t.saveState) })
	t.input.On(action.EmulatorLoadState, input.Press, func() { t.enqueue(t.loadState) })
}

func (t *TerminalRenderer) enqueue(cmd func()) {
	select {
	case t.commands <- cmd:
	case <-t.done:
	}
}

func (t *TerminalRenderer) stop() {
	select {
	case <-t.done:
	default:
		close(t.done)
	}
}

// Run drives the emulator until the quit key or a termination signal.
func (t *TerminalRenderer) Run() error {
	defer func() {
		slog.Info("Finishing terminal")
		t.screen.Fini()
	}()

	t.screen.SetStyle(tcell.StyleDefault.Background(tcell.ColorBlack).Foreground(tcell.ColorWhite))
	t.screen.Clear()

	go t.handleInput()

	signals := make(chan os.Signal, 1)
	signal.Notify(signals, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(signals)

	for {
		select {
		case <-t.done:
			return nil
		case <-signals:
			slog.Info("Received signal to stop")
			return nil
		case cmd := <-t.commands:
			cmd()
			continue
		default:
		}

		if t.paused && !t.stepFrame {
			time.Sleep(timing.FrameDuration())
			continue
		}
		t.stepFrame = false

		if err := t.runFrame(); err != nil {
			return err
		}
		t.limiter.WaitForNextFrame()
	}
}

func (t *TerminalRenderer) runFrame() error {
	t.emulator.SetButtons(t.input.Buttons())
	if err := t.emulator.RunUntilFrame(); err != nil {
		return err
	}
	t.input.EndFrame()
	t.draw(t.emulator.Frame())
	t.screen.Show()
	return nil
}

func (t *TerminalRenderer) handleInput() {
	for {
		ev := t.screen.PollEvent()
		if ev == nil {
			// screen finalized
			return
		}
		switch ev := ev.(type) {
		case *tcell.EventKey:
			if act, ok := keyAction(ev); ok {
				t.trigger(act)
			}
		case *tcell.EventResize:
			t.screen.Sync()
		}
	}
}

func (t *TerminalRenderer) trigger(act action.Action) {
	// Only one direction can be held; a new one replaces the last.
	if isDirection(act) {
		for _, d := range []action.Action{action.GBDPadUp, action.GBDPadDown, action.GBDPadLeft, action.GBDPadRight} {
			if d != act {
				t.input.Trigger(d, input.Release)
			}
		}
	}
	t.input.Trigger(act, input.Press)
}

func isDirection(act action.Action) bool {
	switch act {
	case action.GBDPadUp, action.GBDPadDown, action.GBDPadLeft, action.GBDPadRight:
		return true
	}
	return false
}

// keyNames converts tcell keys to the names used by input.DefaultKeyMap.
var keyNames = map[tcell.Key]string{
	tcell.KeyEnter:      "Enter",
	tcell.KeyBackspace:  "Backspace",
	tcell.KeyBackspace2: "Backspace",
	tcell.KeyUp:         "Up",
	tcell.KeyDown:       "Down",
	tcell.KeyLeft:       "Left",
	tcell.KeyRight:      "Right",
	tcell.KeyEscape:     "Escape",
	tcell.KeyF5:         "F5",
	tcell.KeyF7:         "F7",
	tcell.KeyF9:         "F9",
}

func keyAction(ev *tcell.EventKey) (action.Action, bool) {
	if ev.Key() == tcell.KeyCtrlC {
		return action.EmulatorQuit, true
	}
	if ev.Key() == tcell.KeyRune {
		return input.GetDefaultMapping(string(ev.Rune()))
	}
	name, ok := keyNames[ev.Key()]
	if !ok {
		return 0, false
	}
	return input.GetDefaultMapping(name)
}

func shadeColor(pixel uint32) tcell.Color {
	return tcell.NewRGBColor(int32(pixel>>16&0xFF), int32(pixel>>8&0xFF), int32(pixel&0xFF))
}

// draw paints each pair of pixel rows as one terminal row of upper half
// blocks: the foreground is the top pixel, the background the bottom one.
func (t *TerminalRenderer) draw(fb *video.FrameBuffer) {
	for y := 0; y < video.FramebufferHeight; y += 2 {
		for x := 0; x < video.FramebufferWidth; x++ {
			style := tcell.StyleDefault.
				Foreground(shadeColor(fb.GetPixel(x, y))).
				Background(shadeColor(fb.GetPixel(x, y+1)))
			t.screen.SetContent(x, y/2, '▀', nil, style)
		}
	}
}

func (t *TerminalRenderer) snapshot() {
	name := fmt.Sprintf("%s_frame_%d.txt", sanitize(t.emulator.Header().Title), t.emulator.FrameCount())
	path := filepath.Join(t.opts.SnapshotDir, name)
	f, err := os.Create(path)
	if err != nil {
		slog.Error("Failed to save snapshot", "path", path, "error", err)
		return
	}
	defer f.Close()
	if err := WriteSnapshot(f, t.emulator.Frame(), fmt.Sprintf("Frame: %d", t.emulator.FrameCount())); err != nil {
		slog.Error("Failed to save snapshot", "path", path, "error", err)
		return
	}
	slog.Info("Saved frame snapshot", "path", path)
}

func (t *TerminalRenderer) saveState() {
	if t.opts.StatePath == "" {
		slog.Warn("No state file configured")
		return
	}
	f, err := os.Create(t.opts.StatePath)
	if err != nil {
		slog.Error("Failed to save state", "error", err)
		return
	}
	defer f.Close()
	if err := t.emulator.SaveState(f); err != nil {
		slog.Error("Failed to save state", "error", err)
		return
	}
	slog.Info("Saved state", "path", t.opts.StatePath)
}

func (t *TerminalRenderer) loadState() {
	if t.opts.StatePath == "" {
		slog.Warn("No state file configured")
		return
	}
	f, err := os.Open(t.opts.StatePath)
	if err != nil {
		slog.Error("Failed to load state", "error", err)
		return
	}
	defer f.Close()
	if err := t.emulator.LoadState(f); err != nil {
		slog.Error("Failed to load state", "error", err)
		return
	}
	t.limiter.Reset()
	slog.Info("Loaded state", "path", t.opts.StatePath)
}

func sanitize(title string) string {
	out := []rune(title)
	for i, r := range out {
		if !(r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9') {
			out[i] = '_'
		}
	}
	return string(out)
}
