package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jroimartin/gocui"

	"tello/pkg/config"
	"tello/pkg/protocol"
	"tello/pkg/session"
)

const (
	stickStep    = 50
	stickRelease = 400 * time.Millisecond
)

type App struct {
	g *gocui.Gui

	ctx    context.Context
	cancel context.CancelFunc

	logger    *Logger
	logfile   *os.File
	slogger   *slog.Logger
	drone     *session.Session
	streaming atomic.Bool

	mx      sync.Mutex
	lowBatt bool
	sticks  *protocol.CommandBuilder
	release *time.Timer
}

func NewApp(cfg *config.File) *App {
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.Settings.LogLevel)); err != nil {
		level = slog.LevelInfo
	}

	app := &App{
		logger: NewLogger(200),
		sticks: protocol.NewCommandBuilder(),
	}
	var out io.Writer = app.logger
	if cfg.Settings.LogFile != "" {
		if f, err := os.OpenFile(cfg.Settings.LogFile, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644); err == nil {
			app.logfile = f
			out = io.MultiWriter(app.logger, f)
		} else {
			app.logger.AddLine(err.Error())
		}
	}

	app.slogger = slog.New(slog.NewTextHandler(out, &slog.HandlerOptions{Level: level}))
	app.drone = session.New(cfg.Drone, session.WithLogger(app.slogger))

	app.drone.OnStateUpdate(func(protocol.State) { app.redraw() })
	app.drone.OnConnectionStateChange(func(st session.ConnectionState) { app.redraw() })
	app.drone.OnLowBattery(func(b float64) {
		app.mx.Lock()
		first := !app.lowBatt
		app.lowBatt = true
		app.mx.Unlock()
		if first {
			app.slogger.Warn("low battery", slog.Float64("battery", b))
		}
	})

	return app
}

func (app *App) layout(g *gocui.Gui) error {
	maxX, maxY := g.Size()
	if v, err := g.SetView("info", 0, 0, maxX/2-1, maxY/2); err != nil {
		if err != gocui.ErrUnknownView {
			return err
		}
		v.Frame = true
		v.Title = "drone"
	}
	if v, err := g.SetView("help", 0, maxY/2+1, maxX/2-1, maxY-1); err != nil {
		if err != gocui.ErrUnknownView {
			return err
		}
		v.Frame = true
		v.Title = "keys"
		fmt.Fprint(v, helpText)
	}
	if v, err := g.SetView("log", maxX/2, 0, maxX-1, maxY-1); err != nil {
		if err != gocui.ErrUnknownView {
			return err
		}
		v.Frame = true
		v.Title = "log"
	}
	return nil
}

func (app *App) Run() {
	var err error

	app.g, err = gocui.NewGui(gocui.OutputNormal)
	if err != nil {
		log.Panicln(err)
	}
	defer app.g.Close()

	app.g.SetManagerFunc(app.layout)

	if err := app.bindings(); err != nil {
		log.Panicln(err)
	}

	app.logger.SetCallback(app.redraw)

	app.ctx, app.cancel = context.WithCancel(context.Background())
	defer app.cancel()

	go app.connect()
	go app.ticker()

	if err := app.g.MainLoop(); err != nil && err != gocui.ErrQuit {
		log.Panicln(err)
	}

	app.drone.Disconnect()

	if app.logfile != nil {
		app.logfile.Close()
	}
}

func (app *App) connect() {
	if err := app.drone.Connect(app.ctx); err != nil {
		app.slogger.Error("connect failed", slog.Any("error", err))
	}
}

// ticker refreshes the screen so ages and counters move without telemetry.
func (app *App) ticker() {
	t := time.NewTicker(time.Second)
	defer t.Stop()

	for {
		select {
		case <-t.C:
			app.redraw()
		case <-app.ctx.Done():
			return
		}
	}
}

func main() {
	var configPath string
	flag.StringVar(&configPath, "c", "", "Path to the configuration file")
	flag.Parse()

	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	NewApp(cfg).Run()
}
