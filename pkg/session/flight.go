package session

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"tello/pkg/protocol"
)

// Takeoff moves the session from Connected to Flying once the drone confirms.
func (s *Session) Takeoff(ctx context.Context) (protocol.Response, error) {
	resp, err := s.submit(ctx, protocol.Takeoff().WithTimeout(s.cfg.FlightTimeout))
	if err == nil && resp.OK {
		s.transition(Connected, Flying)
	}
	return resp, err
}

// ThrowTakeoff arms the motors for a hand launch. The drone is flying once thrown.
func (s *Session) ThrowTakeoff(ctx context.Context) (protocol.Response, error) {
	resp, err := s.submit(ctx, protocol.ThrowFly().WithTimeout(s.cfg.FlightTimeout))
	if err == nil && resp.OK {
		s.transition(Connected, Flying)
	}
	return resp, err
}

func (s *Session) Land(ctx context.Context) (protocol.Response, error) {
	resp, err := s.submit(ctx, protocol.Land().WithTimeout(s.cfg.FlightTimeout))
	if err == nil && resp.OK {
		s.transition(Flying, Connected)
	}
	return resp, err
}

// Emergency stops the motors at once. It skips the command queue so it is
// never stuck behind a slow command, and it leaves the tracked state alone.
func (s *Session) Emergency() error {
	cmd := protocol.Emergency()

	open, err := s.sendDirect(cmd)
	if !open {
		return ErrNotConnected
	}
	if err != nil {
		return err
	}

	s.logger.Warn("emergency stop sent")
	return nil
}

func (s *Session) Move(ctx context.Context, dir protocol.Direction, cm int) (protocol.Response, error) {
	cmd, err := protocol.Move(dir, cm)
	return s.run(ctx, cmd, err)
}

func (s *Session) Up(ctx context.Context, cm int) (protocol.Response, error) {
	return s.Move(ctx, protocol.Up, cm)
}

func (s *Session) Down(ctx context.Context, cm int) (protocol.Response, error) {
	return s.Move(ctx, protocol.Down, cm)
}

func (s *Session) Left(ctx context.Context, cm int) (protocol.Response, error) {
	return s.Move(ctx, protocol.Left, cm)
}

func (s *Session) Right(ctx context.Context, cm int) (protocol.Response, error) {
	return s.Move(ctx, protocol.Right, cm)
}

func (s *Session) Forward(ctx context.Context, cm int) (protocol.Response, error) {
	return s.Move(ctx, protocol.Forward, cm)
}

func (s *Session) Back(ctx context.Context, cm int) (protocol.Response, error) {
	return s.Move(ctx, protocol.Backward, cm)
}

func (s *Session) Rotate(ctx context.Context, r protocol.Rotation, deg int) (protocol.Response, error) {
	cmd, err := protocol.Rotate(r, deg)
	return s.run(ctx, cmd, err)
}

func (s *Session) Flip(ctx context.Context, dir protocol.FlipDirection) (protocol.Response, error) {
	cmd, err := protocol.Flip(dir)
	return s.run(ctx, cmd, err)
}

// SetSpeed sets the cruise speed in cm/s.
func (s *Session) SetSpeed(ctx context.Context, cms int) (protocol.Response, error) {
	cmd, err := protocol.Speed(cms)
	return s.run(ctx, cmd, err)
}

// Go flies to x y z relative to the current position, or to mission pad `pad` when pad is not 0.
func (s *Session) Go(ctx context.Context, x, y, z, speed, pad int) (protocol.Response, error) {
	cmd, err := protocol.Go(x, y, z, speed, pad)
	return s.run(ctx, cmd.WithTimeout(s.cfg.FlightTimeout), err)
}

func (s *Session) Curve(ctx context.Context, x1, y1, z1, x2, y2, z2, speed, pad int) (protocol.Response, error) {
	cmd, err := protocol.Curve(x1, y1, z1, x2, y2, z2, speed, pad)
	return s.run(ctx, cmd.WithTimeout(s.cfg.FlightTimeout), err)
}

func (s *Session) Jump(ctx context.Context, x, y, z, speed, yaw, pad1, pad2 int) (protocol.Response, error) {
	cmd, err := protocol.Jump(x, y, z, speed, yaw, pad1, pad2)
	return s.run(ctx, cmd.WithTimeout(s.cfg.FlightTimeout), err)
}

func (s *Session) MissionPadsOn(ctx context.Context) (protocol.Response, error) {
	return s.submit(ctx, protocol.PadsOn())
}

func (s *Session) MissionPadsOff(ctx context.Context) (protocol.Response, error) {
	return s.submit(ctx, protocol.PadsOff())
}

func (s *Session) MissionPadDirection(ctx context.Context, d int) (protocol.Response, error) {
	cmd, err := protocol.PadDirection(d)
	return s.run(ctx, cmd, err)
}

func (s *Session) SetBitrate(ctx context.Context, b int) (protocol.Response, error) {
	cmd, err := protocol.Bitrate(b)
	return s.run(ctx, cmd, err)
}

func (s *Session) SetResolution(ctx context.Context, r protocol.Resolution) (protocol.Response, error) {
	cmd, err := protocol.SetResolution(r)
	return s.run(ctx, cmd, err)
}

func (s *Session) SetFPS(ctx context.Context, f protocol.FPS) (protocol.Response, error) {
	cmd, err := protocol.SetFPS(f)
	return s.run(ctx, cmd, err)
}

func (s *Session) DownVision(ctx context.Context, v int) (protocol.Response, error) {
	cmd, err := protocol.DownVision(v)
	return s.run(ctx, cmd, err)
}

func (s *Session) MotorOn(ctx context.Context) (protocol.Response, error) {
	return s.submit(ctx, protocol.MotorOn())
}

func (s *Session) MotorOff(ctx context.Context) (protocol.Response, error) {
	return s.submit(ctx, protocol.MotorOff())
}

func (s *Session) SetWiFi(ctx context.Context, ssid, password string) (protocol.Response, error) {
	cmd, err := protocol.WiFi(ssid, password)
	return s.run(ctx, cmd, err)
}

func (s *Session) SetAP(ctx context.Context, ssid, password string) (protocol.Response, error) {
	cmd, err := protocol.AP(ssid, password)
	return s.run(ctx, cmd, err)
}

func (s *Session) Reboot(ctx context.Context) (protocol.Response, error) {
	return s.submit(ctx, protocol.Reboot())
}

// Ext passes a command through to the expansion board.
func (s *Session) Ext(ctx context.Context, sub string) (protocol.Response, error) {
	cmd, err := protocol.Ext(sub)
	return s.run(ctx, cmd, err)
}

// Query sends a read command such as "battery?" and returns the raw reply.
func (s *Session) Query(ctx context.Context, name string) (string, error) {
	cmd, err := protocol.Query(name)
	if err != nil {
		return "", err
	}

	resp, err := s.submit(ctx, cmd)
	if err != nil {
		return "", err
	}

	if resp.TimedOut() {
		return "", fmt.Errorf("%s: %w", cmd.Text, ErrTimeout)
	}

	if strings.HasPrefix(resp.Message, protocol.ReplyError) {
		s.logger.Debug("query failed", slog.String("query", cmd.Text), slog.String("reply", resp.Message))
		return "", fmt.Errorf("%s: %w: %s", cmd.Text, ErrRejected, resp.Message)
	}

	return resp.Message, nil
}

// Send submits an arbitrary command, e.g. typed by a user.
func (s *Session) Send(ctx context.Context, cmd protocol.Command) (protocol.Response, error) {
	return s.submit(ctx, cmd)
}
