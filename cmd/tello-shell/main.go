package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"strings"
	"sync/atomic"

	"github.com/abiosoft/ishell/v2"

	"tello/pkg/config"
	"tello/pkg/protocol"
	"tello/pkg/session"
)

func main() {
	var configPath string
	flag.StringVar(&configPath, "c", "", "Path to the configuration file")
	flag.Parse()

	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.Settings.LogLevel)); err != nil {
		level = slog.LevelInfo
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	drone := session.New(cfg.Drone, session.WithLogger(logger))
	defer drone.Disconnect()

	warner := &batteryWarner{logger: logger}

	drone.OnConnectionStateChange(func(st session.ConnectionState) {
		logger.Info("connection", slog.String("state", st.String()))
		if st == session.Connected {
			warner.reset()
		}
	})
	drone.OnLowBattery(warner.low)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	shell := ishell.New()
	shell.Println("Tello SDK shell, type help")
	shell.SetPrompt("tello> ")
	addCommands(ctx, shell, drone)
	shell.Run()
}

// batteryWarner logs the first low battery reading of a connection only.
type batteryWarner struct {
	logger *slog.Logger
	warned atomic.Bool
}

func (w *batteryWarner) low(b float64) {
	if w.warned.CompareAndSwap(false, true) {
		w.logger.Warn("low battery", slog.Float64("battery", b))
	}
}

func (w *batteryWarner) reset() {
	w.warned.Store(false)
}

func addCommands(ctx context.Context, shell *ishell.Shell, drone *session.Session) {
	shell.AddCmd(&ishell.Cmd{
		Name: "connect",
		Help: "connect",
		Func: func(c *ishell.Context) {
			if err := drone.Connect(ctx); err != nil {
				c.Err(err)
				return
			}
			c.Println("connected")
		},
	})

	shell.AddCmd(&ishell.Cmd{
		Name: "disconnect",
		Help: "disconnect",
		Func: func(c *ishell.Context) {
			drone.Disconnect()
		},
	})

	shell.AddCmd(&ishell.Cmd{
		Name: "emergency",
		Help: "emergency",
		Func: func(c *ishell.Context) {
			if err := drone.Emergency(); err != nil {
				c.Err(err)
			}
		},
	})

	shell.AddCmd(&ishell.Cmd{
		Name: "rc",
		Help: "rc <lr> <fb> <ud> <yaw>",
		Func: func(c *ishell.Context) {
			v, err := ints(c.Args)
			if err != nil || len(v) != 4 {
				c.Println("usage: rc <lr> <fb> <ud> <yaw>")
				return
			}
			if err := drone.SendContinuousControl(float64(v[0]), float64(v[1]), float64(v[2]), float64(v[3])); err != nil {
				c.Err(err)
			}
		},
	})

	shell.AddCmd(&ishell.Cmd{
		Name: "state",
		Help: "state, print the last telemetry snapshot",
		Func: func(c *ishell.Context) {
			c.Printf("%s, last update %s\n", drone.ConnectionState(), drone.LastUpdate().Format("15:04:05.000"))
			c.Println(drone.State().String())
		},
	})

	queryNames := []string{
		protocol.QuerySDK, protocol.QuerySerial, protocol.QueryWiFi, protocol.QuerySpeed,
		protocol.QueryBattery, protocol.QueryTime, protocol.QueryHeight, protocol.QueryTemp,
		protocol.QueryAttitude, protocol.QueryBaro, protocol.QueryTOF,
	}
	sort.Strings(queryNames)

	shell.AddCmd(&ishell.Cmd{
		Name:      "query",
		Help:      "query <" + strings.Join(queryNames, "|") + ">",
		Completer: func([]string) []string { return queryNames },
		Func: func(c *ishell.Context) {
			if len(c.Args) != 1 {
				c.Println("usage: query <name>")
				return
			}
			v, err := drone.Query(ctx, c.Args[0])
			if err != nil {
				c.Err(err)
				return
			}
			c.Println(v)
		},
	})

	for _, cmd := range commands {
		shell.AddCmd(&ishell.Cmd{
			Name: cmd.name,
			Help: cmd.usage,
			Func: func(c *ishell.Context) {
				if len(c.Args) < cmd.args {
					c.Println("usage: " + cmd.usage)
					return
				}
				resp, err := cmd.run(ctx, drone, c.Args)
				if err != nil {
					c.Err(err)
					return
				}
				c.Println(resp.String())
			},
		})
	}
}
