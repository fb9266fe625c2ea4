package main

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/jroimartin/gocui"

	"tello/pkg/protocol"
	"tello/pkg/session"
)

const helpText = `c  connect       t  takeoff      l  land
space  emergency                 x  hover
w/s  forward/back  a/d  left/right
up/down  climb/descend  q/e  yaw
v  video on/off   b  battery?   ctrl-c  quit
`

type KeyBind struct {
	viewname string
	key      interface{}
	mod      gocui.Modifier
	handler  func(*gocui.Gui, *gocui.View) error
}

func (app *App) bindings() error {
	bindings := []KeyBind{
		{"", gocui.KeyCtrlC, gocui.ModNone, app.quit},
		{"", 'c', gocui.ModNone, app.onConnect},
		{"", 't', gocui.ModNone, app.onTakeoff},
		{"", 'l', gocui.ModNone, app.onLand},
		{"", gocui.KeySpace, gocui.ModNone, app.onEmergency},
		{"", 'x', gocui.ModNone, app.onHover},
		{"", 'v', gocui.ModNone, app.onVideo},
		{"", 'b', gocui.ModNone, app.onBattery},
		{"", 'w', gocui.ModNone, app.stick(func(cb *protocol.CommandBuilder) { cb.Forward(stickStep) })},
		{"", 's', gocui.ModNone, app.stick(func(cb *protocol.CommandBuilder) { cb.Back(stickStep) })},
		{"", 'a', gocui.ModNone, app.stick(func(cb *protocol.CommandBuilder) { cb.Left(stickStep) })},
		{"", 'd', gocui.ModNone, app.stick(func(cb *protocol.CommandBuilder) { cb.Right(stickStep) })},
		{"", 'q', gocui.ModNone, app.stick(func(cb *protocol.CommandBuilder) { cb.Ccw(stickStep) })},
		{"", 'e', gocui.ModNone, app.stick(func(cb *protocol.CommandBuilder) { cb.Cw(stickStep) })},
		{"", gocui.KeyArrowUp, gocui.ModNone, app.stick(func(cb *protocol.CommandBuilder) { cb.Up(stickStep) })},
		{"", gocui.KeyArrowDown, gocui.ModNone, app.stick(func(cb *protocol.CommandBuilder) { cb.Down(stickStep) })},
	}

	for _, b := range bindings {
		if err := app.g.SetKeybinding(b.viewname, b.key, b.mod, b.handler); err != nil {
			return err
		}
	}

	return nil
}

func (app *App) quit(g *gocui.Gui, v *gocui.View) error {
	if app.cancel != nil {
		app.cancel()
	}

	return gocui.ErrQuit
}

// async runs a queued command off the UI goroutine and logs its outcome.
func (app *App) async(name string, f func(ctx context.Context) (protocol.Response, error)) {
	go func() {
		resp, err := f(app.ctx)
		switch {
		case err != nil:
			app.slogger.Error(name, slog.Any("error", err))
		case !resp.OK:
			app.slogger.Warn(name, slog.String("reply", resp.Message))
		default:
			app.slogger.Info(name + " ok")
		}
	}()
}

func (app *App) onConnect(g *gocui.Gui, v *gocui.View) error {
	if !app.drone.ConnectionState().Online() {
		go app.connect()
	}
	return nil
}

func (app *App) onTakeoff(g *gocui.Gui, v *gocui.View) error {
	app.async("takeoff", app.drone.Takeoff)
	return nil
}

func (app *App) onLand(g *gocui.Gui, v *gocui.View) error {
	app.async("land", app.drone.Land)
	return nil
}

func (app *App) onEmergency(g *gocui.Gui, v *gocui.View) error {
	if err := app.drone.Emergency(); err != nil {
		app.slogger.Error("emergency", slog.Any("error", err))
	}
	return nil
}

func (app *App) onVideo(g *gocui.Gui, v *gocui.View) error {
	if app.streaming.CompareAndSwap(true, false) {
		app.async("streamoff", app.drone.StreamOff)
	} else {
		app.streaming.Store(true)
		app.async("streamon", app.drone.StreamOn)
		app.slogger.Info("video", slog.String("url", app.drone.VideoURL()))
	}
	return nil
}

func (app *App) onBattery(g *gocui.Gui, v *gocui.View) error {
	go func() {
		b, err := app.drone.Query(app.ctx, protocol.QueryBattery)
		if err != nil {
			app.slogger.Error("battery?", slog.Any("error", err))
			return
		}
		app.slogger.Info("battery?", slog.String("reply", b))
	}()
	return nil
}

func (app *App) onHover(g *gocui.Gui, v *gocui.View) error {
	app.mx.Lock()
	app.sticks = protocol.NewCommandBuilder()
	app.mx.Unlock()

	if err := app.drone.Stop(); err != nil {
		app.slogger.Error("rc", slog.Any("error", err))
	}
	return nil
}

// stick deflects one axis and centres all sticks again shortly after the last key press.
func (app *App) stick(f func(cb *protocol.CommandBuilder)) func(*gocui.Gui, *gocui.View) error {
	return func(g *gocui.Gui, v *gocui.View) error {
		app.mx.Lock()
		f(app.sticks)
		cb := *app.sticks
		if app.release == nil {
			app.release = time.AfterFunc(stickRelease, func() { _ = app.onHover(nil, nil) })
		} else {
			app.release.Reset(stickRelease)
		}
		app.mx.Unlock()

		if err := app.drone.SendSticks(&cb); err != nil {
			app.slogger.Error("rc", slog.Any("error", err))
		}
		return nil
	}
}

func (app *App) redraw() {
	if app.g == nil {
		return
	}

	app.g.Update(func(gui *gocui.Gui) error {
		if v, err := gui.View("info"); err == nil {
			v.Clear()
			app.drawInfo(v)
		}

		if v, err := gui.View("log"); err == nil {
			v.Clear()
			_, size := v.Size()
			for _, l := range app.logger.GetLines(size) {
				fmt.Fprintln(v, l)
			}
		}

		return nil
	})
}

func (app *App) drawInfo(v *gocui.View) {
	st := app.drone.ConnectionState()
	fmt.Fprintf(v, "state: %s\n", formatState(st))

	if last := app.drone.LastUpdate(); !last.IsZero() {
		fmt.Fprintf(v, "telemetry: %s\n", humanize.Time(last))
	}

	s := app.drone.State()

	if bat, ok := s.Battery(); ok {
		fmt.Fprintf(v, "battery: %s\n", formatBattery(bat, app.drone.LowBatteryThreshold()))
	}

	if h, ok := s.Height(); ok {
		tof, _ := s.Get(protocol.TOF)
		fmt.Fprintf(v, "height: %.0fcm tof: %.0fcm\n", h, tof)
	}

	pitch, _ := s.Get(protocol.Pitch)
	roll, _ := s.Get(protocol.Roll)
	yaw, _ := s.Get(protocol.Yaw)
	fmt.Fprintf(v, "roll: %s pitch: %s yaw: %7.2f\n", formatGyro(roll), formatGyro(pitch), yaw)

	vx, _ := s.Get(protocol.SpeedX)
	vy, _ := s.Get(protocol.SpeedY)
	vz, _ := s.Get(protocol.SpeedZ)
	fmt.Fprintf(v, "speed: %.0f %.0f %.0f\n", vx, vy, vz)

	if tl, ok := s.Get(protocol.TempLow); ok {
		th, _ := s.Get(protocol.TempHigh)
		fmt.Fprintf(v, "temp: %.0f~%.0fC\n", tl, th)
	}

	if t, ok := s.Get(protocol.MotorTime); ok {
		fmt.Fprintf(v, "motor time: %s\n", formatMotorTime(t))
	}

	if id, x, y, z, ok := s.MissionPad(); ok {
		fmt.Fprintf(v, "pad m%d: %.0f %.0f %.0f\n", id, x, y, z)
	}

	if n := app.drone.VideoBytes(); n > 0 {
		fmt.Fprintf(v, "video: %s received, %s\n", humanize.Bytes(n), app.drone.VideoURL())
	}
}

func formatState(st session.ConnectionState) string {
	switch st {
	case session.Flying:
		return WithColors(st.String(), Bold, FgCyan)
	case session.Connected:
		return WithColors(st.String(), FgGreen)
	case session.Error:
		return WithColors(st.String(), Bold, FgRed)
	}
	return WithColors(st.String(), FgYellow)
}

func formatMotorTime(sec float64) string {
	if sec <= 0 || math.IsNaN(sec) {
		return "0 seconds"
	}

	var start time.Time
	return strings.TrimSpace(humanize.RelTime(start, start.Add(time.Duration(sec)*time.Second), "", ""))
}

func formatBattery(b, low float64) string {
	s := fmt.Sprintf("%.0f%%", b)
	if b <= low {
		return WithColors(s, Bold, FgRed)
	}
	if b <= low*3 {
		return WithColors(s, FgYellow)
	}
	return WithColors(s, FgGreen)
}

func formatGyro(v float64) string {
	s := fmt.Sprintf("%7.2f", v)
	if v > -5 && v < 5 {
		return WithColors(s, FgGreen)
	}

	if v > -30 && v < 30 {
		return WithColors(s, FgYellow)
	}

	return WithColors(s, Bold, FgRed)
}
