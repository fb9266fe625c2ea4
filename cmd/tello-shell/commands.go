package main

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"tello/pkg/protocol"
	"tello/pkg/session"
)

type command struct {
	name  string
	usage string
	args  int
	run   func(ctx context.Context, s *session.Session, args []string) (protocol.Response, error)
}

func ints(args []string) ([]int, error) {
	res := make([]int, len(args))
	for i, a := range args {
		v, err := strconv.Atoi(a)
		if err != nil {
			return nil, fmt.Errorf("argument %d: %q is not a number", i+1, a)
		}
		res[i] = v
	}
	return res, nil
}

// padArg accepts "m3" or "3".
func padArg(s string) (int, error) {
	return strconv.Atoi(strings.TrimPrefix(s, "m"))
}

func move(dir protocol.Direction) command {
	return command{
		name:  string(dir),
		usage: string(dir) + " <cm>",
		args:  1,
		run: func(ctx context.Context, s *session.Session, args []string) (protocol.Response, error) {
			v, err := ints(args)
			if err != nil {
				return protocol.Response{}, err
			}
			return s.Move(ctx, dir, v[0])
		},
	}
}

func rotate(r protocol.Rotation) command {
	return command{
		name:  string(r),
		usage: string(r) + " <degrees>",
		args:  1,
		run: func(ctx context.Context, s *session.Session, args []string) (protocol.Response, error) {
			v, err := ints(args)
			if err != nil {
				return protocol.Response{}, err
			}
			return s.Rotate(ctx, r, v[0])
		},
	}
}

func simple(name string, f func(*session.Session, context.Context) (protocol.Response, error)) command {
	return command{
		name:  name,
		usage: name,
		run: func(ctx context.Context, s *session.Session, _ []string) (protocol.Response, error) {
			return f(s, ctx)
		},
	}
}

func number(name string, f func(*session.Session, context.Context, int) (protocol.Response, error)) command {
	return command{
		name:  name,
		usage: name + " <n>",
		args:  1,
		run: func(ctx context.Context, s *session.Session, args []string) (protocol.Response, error) {
			v, err := ints(args)
			if err != nil {
				return protocol.Response{}, err
			}
			return f(s, ctx, v[0])
		},
	}
}

func credentials(name string, f func(*session.Session, context.Context, string, string) (protocol.Response, error)) command {
	return command{
		name:  name,
		usage: name + " <ssid> <password>",
		args:  2,
		run: func(ctx context.Context, s *session.Session, args []string) (protocol.Response, error) {
			return f(s, ctx, args[0], args[1])
		},
	}
}

var commands = []command{
	simple("takeoff", (*session.Session).Takeoff),
	simple("land", (*session.Session).Land),
	simple("throwfly", (*session.Session).ThrowTakeoff),
	simple("streamon", (*session.Session).StreamOn),
	simple("streamoff", (*session.Session).StreamOff),
	simple("motoron", (*session.Session).MotorOn),
	simple("motoroff", (*session.Session).MotorOff),
	simple("mon", (*session.Session).MissionPadsOn),
	simple("moff", (*session.Session).MissionPadsOff),
	simple("reboot", (*session.Session).Reboot),
	move(protocol.Up),
	move(protocol.Down),
	move(protocol.Left),
	move(protocol.Right),
	move(protocol.Forward),
	move(protocol.Backward),
	rotate(protocol.Clockwise),
	rotate(protocol.CounterClockwise),
	number("speed", (*session.Session).SetSpeed),
	number("mdirection", (*session.Session).MissionPadDirection),
	number("setbitrate", (*session.Session).SetBitrate),
	number("downvision", (*session.Session).DownVision),
	credentials("wifi", (*session.Session).SetWiFi),
	credentials("ap", (*session.Session).SetAP),
	{
		name:  "flip",
		usage: "flip <l|r|f|b>",
		args:  1,
		run: func(ctx context.Context, s *session.Session, args []string) (protocol.Response, error) {
			return s.Flip(ctx, protocol.FlipDirection(args[0]))
		},
	},
	{
		name:  "setresolution",
		usage: "setresolution <high|low>",
		args:  1,
		run: func(ctx context.Context, s *session.Session, args []string) (protocol.Response, error) {
			return s.SetResolution(ctx, protocol.Resolution(args[0]))
		},
	},
	{
		name:  "setfps",
		usage: "setfps <high|middle|low>",
		args:  1,
		run: func(ctx context.Context, s *session.Session, args []string) (protocol.Response, error) {
			return s.SetFPS(ctx, protocol.FPS(args[0]))
		},
	},
	{
		name:  "go",
		usage: "go <x> <y> <z> <speed> [m<id>]",
		args:  4,
		run: func(ctx context.Context, s *session.Session, args []string) (protocol.Response, error) {
			v, err := ints(args[:4])
			if err != nil {
				return protocol.Response{}, err
			}
			var pad int
			if len(args) > 4 {
				if pad, err = padArg(args[4]); err != nil {
					return protocol.Response{}, err
				}
			}
			return s.Go(ctx, v[0], v[1], v[2], v[3], pad)
		},
	},
	{
		name:  "curve",
		usage: "curve <x1> <y1> <z1> <x2> <y2> <z2> <speed> [m<id>]",
		args:  7,
		run: func(ctx context.Context, s *session.Session, args []string) (protocol.Response, error) {
			v, err := ints(args[:7])
			if err != nil {
				return protocol.Response{}, err
			}
			var pad int
			if len(args) > 7 {
				if pad, err = padArg(args[7]); err != nil {
					return protocol.Response{}, err
				}
			}
			return s.Curve(ctx, v[0], v[1], v[2], v[3], v[4], v[5], v[6], pad)
		},
	},
	{
		name:  "jump",
		usage: "jump <x> <y> <z> <speed> <yaw> m<id1> m<id2>",
		args:  7,
		run: func(ctx context.Context, s *session.Session, args []string) (protocol.Response, error) {
			v, err := ints(args[:5])
			if err != nil {
				return protocol.Response{}, err
			}
			p1, err := padArg(args[5])
			if err != nil {
				return protocol.Response{}, err
			}
			p2, err := padArg(args[6])
			if err != nil {
				return protocol.Response{}, err
			}
			return s.Jump(ctx, v[0], v[1], v[2], v[3], v[4], p1, p2)
		},
	},
	{
		name:  "ext",
		usage: "ext <expansion board command>",
		args:  1,
		run: func(ctx context.Context, s *session.Session, args []string) (protocol.Response, error) {
			return s.Ext(ctx, strings.Join(args, " "))
		},
	},
	{
		name:  "send",
		usage: "send <raw command>",
		args:  1,
		run: func(ctx context.Context, s *session.Session, args []string) (protocol.Response, error) {
			return s.Send(ctx, protocol.NewCommand(strings.Join(args, " ")))
		},
	},
}
