package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"net"
	"strconv"
	"strings"
	"time"

	"tello/pkg/protocol"
)

const autoLandIdle = 15 * time.Second

func (app *App) ResetConn() error {
	addr, err := net.ResolveUDPAddr("udp", app.listen)
	if err != nil {
		return err
	}

	conn, err := net.ListenUDP("udp", addr)
	if err != nil {
		return err
	}

	app.conn = conn
	app.logger.Info("listening", slog.String("addr", conn.LocalAddr().String()))

	return nil
}

func (app *App) ListenUDP(ctx context.Context) error {
	buf := make([]byte, 2048)

	for {
		n, addr, err := app.conn.ReadFromUDP(buf)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				return nil
			}
			return fmt.Errorf("read: %w", err)
		}

		if old := app.client.Swap(addr); old == nil || old.String() != addr.String() {
			app.logger.Info("new client", slog.String("addr", addr.String()))
		}

		text := strings.TrimSpace(string(buf[:n]))
		reply, ok := app.handle(text)

		app.logger.Debug("command", slog.String("cmd", text), slog.String("reply", reply))

		if !ok {
			continue
		}

		if app.loss > 0 && rand.Float64() < app.loss {
			app.logger.Debug("reply dropped", slog.String("cmd", text))
			continue
		}

		if _, err := app.conn.WriteToUDP([]byte(reply), addr); err != nil {
			app.logger.Error("write", slog.Any("error", err))
		}
	}
}

// handle applies a command and returns the reply; ok is false for commands the drone never answers.
func (app *App) handle(text string) (string, bool) {
	fields := strings.Fields(text)
	if len(fields) == 0 {
		return protocol.ReplyError, true
	}

	app.WriteData(func(d *Data) { d.lastCmd = time.Now() })

	name, args := fields[0], fields[1:]

	if name == "command" {
		app.WriteData(func(d *Data) { d.sdk = true })
		return protocol.ReplyOK, true
	}

	var sdk bool
	app.ReadData(func(d *Data) { sdk = d.sdk })
	if !sdk {
		return protocol.ReplyError, true
	}

	if strings.HasSuffix(name, "?") {
		return app.query(strings.TrimSuffix(name, "?")), true
	}

	switch name {
	case "emergency":
		app.WriteData(func(d *Data) {
			d.inAir = false
			d.height = 0
		})
		app.logger.Warn("emergency stop")
		return "", false

	case "rc":
		if len(args) == 4 {
			app.WriteData(func(d *Data) {
				d.vy = atof(args[0]) / 10
				d.vx = atof(args[1]) / 10
				d.vz = atof(args[2]) / 10
				d.yaw += atof(args[3]) / 40
			})
		}
		return "", false

	case "takeoff", "throwfly":
		var ok bool
		app.WriteData(func(d *Data) {
			if !d.inAir && d.battery > 10 {
				d.inAir = true
				d.height = 80
				ok = true
			}
		})
		if !ok {
			return "error", true
		}
		time.Sleep(time.Second)
		return protocol.ReplyOK, true

	case "land":
		app.WriteData(func(d *Data) {
			d.inAir = false
			d.height = 0
			d.vx, d.vy, d.vz = 0, 0, 0
		})
		time.Sleep(time.Second)
		return protocol.ReplyOK, true

	case "up", "down", "left", "right", "forward", "back":
		cm, ok := intArg(args, 0, protocol.MinMove, protocol.MaxMove)
		if !ok {
			return "out of range", true
		}
		return app.inAir(func(d *Data) {
			switch name {
			case "up":
				d.height += float64(cm)
			case "down":
				d.height = max(d.height-float64(cm), 20)
			}
		}), true

	case "cw", "ccw":
		deg, ok := intArg(args, 0, protocol.MinRotate, protocol.MaxRotate)
		if !ok {
			return "out of range", true
		}
		return app.inAir(func(d *Data) {
			if name == "cw" {
				d.yaw += float64(deg)
			} else {
				d.yaw -= float64(deg)
			}
			for d.yaw > 180 {
				d.yaw -= 360
			}
			for d.yaw < -180 {
				d.yaw += 360
			}
		}), true

	case "flip", "go", "curve", "jump":
		return app.inAir(func(d *Data) {}), true

	case "speed":
		v, ok := intArg(args, 0, protocol.MinSpeed, protocol.MaxSpeed)
		if !ok {
			return "out of range", true
		}
		app.WriteData(func(d *Data) { d.speed = v })
		return protocol.ReplyOK, true

	case "mon", "moff":
		app.WriteData(func(d *Data) {
			d.padsOn = name == "mon"
			if d.padsOn {
				d.pad, d.padX, d.padY, d.padZ = 1, 0, 0, d.height
			} else {
				d.pad = protocol.NoPad
			}
		})
		return protocol.ReplyOK, true

	case "streamon":
		app.streaming.Store(true)
		return protocol.ReplyOK, true

	case "streamoff":
		app.streaming.Store(false)
		return protocol.ReplyOK, true

	case "mdirection", "setbitrate", "setresolution", "setfps", "downvision",
		"motoron", "motoroff", "wifi", "ap", "reboot", "EXT":
		return protocol.ReplyOK, true
	}

	return "unknown command: " + name, true
}

func (app *App) inAir(f func(d *Data)) string {
	reply := protocol.ReplyOK
	app.WriteData(func(d *Data) {
		if !d.inAir {
			reply = "error Not joystick"
			return
		}
		f(d)
	})
	return reply
}

func (app *App) query(name string) string {
	var res string
	app.ReadData(func(d *Data) {
		switch name {
		case protocol.QuerySDK:
			res = "30"
		case protocol.QuerySerial:
			res = "0TQZGANED0021X"
		case protocol.QueryWiFi:
			res = "90"
		case protocol.QuerySpeed:
			res = strconv.Itoa(d.speed)
		case protocol.QueryBattery:
			res = strconv.Itoa(int(d.battery))
		case protocol.QueryTime:
			res = fmt.Sprintf("%ds", int(d.motorTime))
		case protocol.QueryHeight:
			res = fmt.Sprintf("%ddm", int(d.height/10))
		case protocol.QueryTemp:
			res = "63~65C"
		case protocol.QueryAttitude:
			res = fmt.Sprintf("pitch:%d;roll:%d;yaw:%d;", int(d.pitch), int(d.roll), int(d.yaw))
		case protocol.QueryBaro:
			res = fmt.Sprintf("%.2f", 190+d.height/100)
		case protocol.QueryTOF:
			res = fmt.Sprintf("%dmm", int(d.height*10))
		default:
			res = protocol.ReplyError
		}
	})
	return res
}

func intArg(args []string, i, lo, hi int) (int, bool) {
	if i >= len(args) {
		return 0, false
	}
	v, err := strconv.Atoi(args[i])
	if err != nil || v < lo || v > hi {
		return 0, false
	}
	return v, true
}

func atof(s string) float64 {
	v, _ := strconv.ParseFloat(s, 64)
	return v
}
