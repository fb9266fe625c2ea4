package main

import (
	"context"
	"log/slog"
	"math/rand"
	"net"
	"time"

	"tello/pkg/protocol"
)

const statePeriod = 100 * time.Millisecond

func (app *App) makeState() protocol.State {
	var s protocol.State

	app.ReadData(func(d *Data) {
		s.Set(protocol.PadID, float64(d.pad))
		s.Set(protocol.PadX, d.padX)
		s.Set(protocol.PadY, d.padY)
		s.Set(protocol.PadZ, d.padZ)
		s.Set(protocol.Pitch, d.pitch)
		s.Set(protocol.Roll, d.roll)
		s.Set(protocol.Yaw, float64(int(d.yaw)))
		s.Set(protocol.SpeedX, d.vx)
		s.Set(protocol.SpeedY, d.vy)
		s.Set(protocol.SpeedZ, d.vz)
		s.Set(protocol.TempLow, 62)
		s.Set(protocol.TempHigh, 65)
		s.Set(protocol.TOF, d.height+10)
		s.Set(protocol.Height, d.height)
		s.Set(protocol.Battery, float64(int(d.battery)))
		s.Set(protocol.Baro, 190+d.height/100)
		s.Set(protocol.MotorTime, float64(int(d.motorTime)))
		s.SetAcceleration(protocol.Acceleration{X: -4, Y: 1, Z: -1000})
	})

	return s
}

// tick advances the simulation by one state period.
func (app *App) tick() {
	dt := statePeriod.Seconds()

	var landed bool
	app.WriteData(func(d *Data) {
		if !d.inAir {
			d.pitch, d.roll = 0, 0
			return
		}

		d.motorTime += dt
		d.battery = max(d.battery-dt/10, 0)
		d.height = max(d.height+d.vz*dt*10, 20)
		d.pitch = -d.vx / 2
		d.roll = d.vy / 2

		if time.Since(d.lastCmd) > autoLandIdle || d.battery < 5 {
			d.inAir = false
			d.height = 0
			landed = true
		}
	})

	if landed {
		app.logger.Warn("auto landing")
	}
}

func (app *App) Cron(ctx context.Context) error {
	ticker := time.NewTicker(statePeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}

		app.tick()

		addr := app.client.Load()
		if addr == nil {
			continue
		}

		to := &net.UDPAddr{IP: addr.IP, Port: app.statePort}
		if _, err := app.conn.WriteToUDP([]byte(app.makeState().String()+"\r\n"), to); err != nil {
			app.logger.Error("send state", slog.Any("error", err))
		}
	}
}

// Video sends random NAL units at 30 fps while streaming is on.
func (app *App) Video(ctx context.Context) error {
	ticker := time.NewTicker(33 * time.Millisecond)
	defer ticker.Stop()

	frame := make([]byte, 1460)

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}

		addr := app.client.Load()
		if addr == nil || !app.streaming.Load() {
			continue
		}

		copy(frame, []byte{0, 0, 0, 1, 0x41})
		for i := 5; i < len(frame); i++ {
			frame[i] = byte(rand.Intn(256))
		}

		to := &net.UDPAddr{IP: addr.IP, Port: app.videoPort}
		if _, err := app.conn.WriteToUDP(frame, to); err != nil {
			app.logger.Error("send video", slog.Any("error", err))
		}
	}
}
