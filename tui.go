package main

import (
	"context"
	"errors"
	"fmt"

	component "github.com/j-04/gocui-component"
	"github.com/jroimartin/gocui"
	"go.uber.org/zap"

	"audiolab/internal/analyzer"
	"audiolab/internal/synth"
)

const controlsWidth = 34

type App struct {
	log      *zap.Logger
	engine   *analyzer.Engine
	gen      *synth.Generator
	controls *Controls

	gui       *gocui.Gui
	vinfo     *gocui.View
	vscope    *gocui.View
	vspectrum *gocui.View
	vcontrols *gocui.View
	vreadout  *gocui.View
	vbutton   *gocui.View

	// owned by the gocui goroutine
	snap   *analyzer.Snapshot
	trace  []int16
	status string
}

func NewApp(g *gocui.Gui, engine *analyzer.Engine, gen *synth.Generator, controls *Controls, logger *zap.Logger) *App {
	return &App{
		log:      logger.Named("tui"),
		engine:   engine,
		gen:      gen,
		controls: controls,
		gui:      g,
	}
}

func (app *App) setView(name string, x0, y0, x1, y1 int, init func(v *gocui.View)) (*gocui.View, error) {
	v, err := app.gui.SetView(name, x0, y0, x1, y1)
	if err != nil {
		if err != gocui.ErrUnknownView {
			return nil, err
		}
		init(v)
	}
	return v, nil
}

func (app *App) Layout(g *gocui.Gui) (err error) {
	maxX, maxY := g.Size()

	bottom := maxY - 11 // controls panel: 8 lines + frame
	split := 3 + (bottom-3)/2

	app.vinfo, err = app.setView("info", 0, 0, maxX-1, 2, func(v *gocui.View) {
		v.Title = "audiolab"
	})
	if err != nil {
		return err
	}

	app.vscope, err = app.setView("scope", 0, 3, maxX-1, split, func(v *gocui.View) {
		v.Title = "Oscilloscope"
	})
	if err != nil {
		return err
	}

	app.vspectrum, err = app.setView("spectrum", 0, split+1, maxX-1, bottom, func(v *gocui.View) {
		v.Title = "Spectrum (20 Hz - Nyquist)"
	})
	if err != nil {
		return err
	}

	app.vcontrols, err = app.setView("controls", 0, bottom+1, controlsWidth, maxY-1, func(v *gocui.View) {
		v.Title = "Controls"
	})
	if err != nil {
		return err
	}

	app.vreadout, err = app.setView("readout", controlsWidth+1, bottom+1, maxX-1, maxY-5, func(v *gocui.View) {
		v.Title = "Peak"
	})
	if err != nil {
		return err
	}

	app.vbutton, err = app.setView("generator", controlsWidth+1, maxY-4, maxX-1, maxY-1, func(v *gocui.View) {
		v.Title = "Click / G"
		v.FgColor = gocui.ColorWhite | gocui.AttrBold
	})
	if err != nil {
		return err
	}

	app.draw()
	return nil
}

func (app *App) draw() {
	app.snap = app.engine.Snapshot(app.snap)
	state := app.gen.State()

	app.vinfo.Clear()
	fmt.Fprint(app.vinfo, StatusLine(app.snap, state))
	if app.status != "" {
		fmt.Fprintf(app.vinfo, "  | %s", app.status)
	}

	w, h := app.vscope.Size()
	app.trace = app.snap.Trace(app.trace)
	app.vscope.Clear()
	fmt.Fprint(app.vscope, RenderScope(app.trace, app.snap.Settings.ScopeGain, w, h))

	w, h = app.vspectrum.Size()
	app.vspectrum.Clear()
	fmt.Fprintln(app.vspectrum, RenderSpectrum(app.snap, w, h-1))
	fmt.Fprint(app.vspectrum, RenderAxis(w, app.snap.SampleRate))

	app.vcontrols.Clear()
	fmt.Fprint(app.vcontrols, RenderControls(app.snap.Settings, state))

	app.vreadout.Clear()
	fmt.Fprint(app.vreadout, RenderReadout(app.snap.Marker))

	app.vbutton.Clear()
	if state.On {
		app.vbutton.BgColor = gocui.ColorGreen
	} else {
		app.vbutton.BgColor = gocui.ColorRed
	}
	w, _ = app.vbutton.Size()
	label := RenderButton(state.On)
	fmt.Fprintf(app.vbutton, "%*s", (w+len(label))/2, label)
}

// Refresh schedules a redraw. Safe from any goroutine.
func (app *App) Refresh() {
	app.gui.Update(func(g *gocui.Gui) error {
		return nil
	})
}

var keyCommands = []struct {
	key     any
	command string
}{
	{'p', "pause"},
	{'P', "pause"},
	{gocui.KeySpace, "sweep_pause"},
	{'r', "reset_peaks"},
	{'R', "reset_peaks"},
	{'t', "trigger"},
	{'T', "trigger"},
	{'a', "timebase"},
	{'A', "timebase"},
	{'w', "scope_gain_up"},
	{'W', "scope_gain_up"},
	{'s', "scope_gain_down"},
	{'S', "scope_gain_down"},
	{gocui.KeyArrowUp, "squelch_up"},
	{gocui.KeyArrowDown, "squelch_down"},
	{gocui.KeyArrowRight, "gain_up"},
	{gocui.KeyArrowLeft, "gain_down"},
	{'1', "wave_sine"},
	{'2', "wave_square"},
	{'3', "wave_sawtooth"},
	{'4', "wave_triangle"},
	{'g', "generator"},
	{'G', "generator"},
}

func (app *App) handler(command, origin string) func(g *gocui.Gui, v *gocui.View) error {
	return func(g *gocui.Gui, v *gocui.View) error {
		status, err := app.controls.Do(command, origin)
		if err != nil {
			app.log.Warn("command", zap.Error(err))
			return nil
		}
		app.status = status
		return nil
	}
}

func (app *App) SetKeyBinding() error {

	//
	// quit application: CtrlC / CtrlQ
	//

	quit := func(g *gocui.Gui, v *gocui.View) error {
		return gocui.ErrQuit
	}

	if err := app.gui.SetKeybinding("", gocui.KeyCtrlC, gocui.ModNone, quit); err != nil {
		return err
	}
	if err := app.gui.SetKeybinding("", gocui.KeyCtrlQ, gocui.ModNone, quit); err != nil {
		return err
	}

	for _, kc := range keyCommands {
		if err := app.gui.SetKeybinding("", kc.key, gocui.ModNone, app.handler(kc.command, "key")); err != nil {
			return fmt.Errorf("bind %v: %w", kc.command, err)
		}
	}

	//
	// generator button: left click
	//

	app.gui.Mouse = true
	return app.gui.SetKeybinding("generator", gocui.MouseLeft, gocui.ModNone, app.handler("generator", "mouse"))
}

// MainLoop runs the UI until the user quits or ctx is done.
func (app *App) MainLoop(ctx context.Context) error {
	go func() {
		<-ctx.Done()
		app.gui.Update(func(g *gocui.Gui) error {
			return gocui.ErrQuit
		})
	}()

	if err := app.gui.MainLoop(); err != nil && err != gocui.ErrQuit {
		return err
	}
	return nil
}

var (
	FormSelect = errors.New("form-selected")
	FormCancel = errors.New("form-cancel")
)

// guiSelectAudio asks for an input device. It returns the device name, or
// "" if the user cancelled.
func guiSelectAudio() (string, error) {
	g, err := gocui.NewGui(gocui.OutputNormal)
	if err != nil {
		return "", err
	}
	defer g.Close()

	list, err := ListAudioDevices(AudioIn)
	if err != nil {
		return "", err
	}
	if len(list) == 0 {
		return "", fmt.Errorf("%w: no input devices", ErrDeviceUnavailable)
	}

	var device string

	form := component.NewForm(g, "Select input device", 8, len(list), 0, 0)
	sel := form.AddSelect("Device:", 8, 40).AddOptions(list...)

	form.AddButton("Select", func(g *gocui.Gui, v *gocui.View) error {
		device = sel.GetSelected()
		form.Close(g, v)
		return FormSelect
	})

	form.AddButton("Cancel", func(g *gocui.Gui, v *gocui.View) error {
		form.Close(g, v)
		return FormCancel
	})

	form.Draw()

	if err := g.MainLoop(); err != FormSelect && err != FormCancel {
		return "", err
	}

	return device, nil
}
