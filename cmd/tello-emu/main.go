package main

import (
	"context"
	"flag"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"tello/pkg/protocol"
)

type App struct {
	logger    *slog.Logger
	listen    string
	statePort int
	videoPort int
	loss      float64
	conn      *net.UDPConn
	client    atomic.Pointer[net.UDPAddr]
	streaming atomic.Bool
	data      *Data
	mx        sync.RWMutex
}

type Data struct {
	sdk              bool
	inAir            bool
	battery          float64
	height           float64
	pitch, roll, yaw float64
	vx, vy, vz       float64
	speed            int
	motorTime        float64
	lastCmd          time.Time
	pad              int
	padX, padY, padZ float64
	padsOn           bool
}

func NewApp(listen string, statePort, videoPort int, battery, loss float64) *App {
	return &App{
		logger:    slog.Default(),
		listen:    listen,
		statePort: statePort,
		videoPort: videoPort,
		loss:      loss,
		data: &Data{
			battery: battery,
			speed:   100,
			pad:     protocol.NoPad,
		},
	}
}

func (app *App) WriteData(f func(d *Data)) {
	app.mx.Lock()
	defer app.mx.Unlock()
	f(app.data)
}

func (app *App) ReadData(f func(d *Data)) {
	app.mx.RLock()
	defer app.mx.RUnlock()
	f(app.data)
}

func (app *App) Run(ctx context.Context) error {
	if err := app.ResetConn(); err != nil {
		return err
	}

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		<-ctx.Done()
		return app.conn.Close()
	})
	g.Go(func() error { return app.ListenUDP(ctx) })
	g.Go(func() error { return app.Cron(ctx) })
	g.Go(func() error { return app.Video(ctx) })

	return g.Wait()
}

func main() {
	var listen string
	var statePort, videoPort int
	var battery, loss float64
	var debug bool

	flag.StringVar(&listen, "listen", "127.0.0.1:8889", "command listen address")
	flag.IntVar(&statePort, "state-port", protocol.DefaultStatePort, "client port to send telemetry to")
	flag.IntVar(&videoPort, "video-port", protocol.DefaultVideoPort, "client port to send video to")
	flag.Float64Var(&battery, "battery", 100, "initial battery percent")
	flag.Float64Var(&loss, "loss", 0, "probability of not answering a command")
	flag.BoolVar(&debug, "debug", false, "debug logging")
	flag.Parse()

	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := NewApp(listen, statePort, videoPort, battery, loss).Run(ctx); err != nil && ctx.Err() == nil {
		logger.Error(err.Error())
		os.Exit(1)
	}
}
