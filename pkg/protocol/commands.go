package protocol

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrOutOfRange      = errors.New("value out of range")
	ErrInvalidArgument = errors.New("invalid argument")
)

const (
	MinMove, MaxMove             = 20, 500
	MinRotate, MaxRotate         = 1, 360
	MinSpeed, MaxSpeed           = 10, 100
	MinCoord, MaxCoord           = -500, 500
	MinCurveSpeed, MaxCurveSpeed = 10, 60
	MinPad, MaxPad               = 1, 8
	MinBitrate, MaxBitrate       = 0, 5
)

func checkRange(name string, v, lo, hi int) error {
	if v < lo || v > hi {
		return fmt.Errorf("%s %d not in [%d, %d]: %w", name, v, lo, hi, ErrOutOfRange)
	}
	return nil
}

func checkCoords(xyz ...int) error {
	for i, v := range xyz {
		if err := checkRange(string("xyz"[i%3]), v, MinCoord, MaxCoord); err != nil {
			return err
		}
	}
	return nil
}

func checkWord(name, s string) error {
	if s == "" || strings.ContainsAny(s, " \t\r\n") {
		return fmt.Errorf("%s %q: %w", name, s, ErrInvalidArgument)
	}
	return nil
}

func padArg(id int) string {
	return fmt.Sprintf("m%d", id)
}

func Enter() Command     { return NewCommand("command") }
func Takeoff() Command   { return NewCommand("takeoff").WithTimeout(FlightTimeout) }
func Land() Command      { return NewCommand("land").WithTimeout(FlightTimeout) }
func Emergency() Command { return NewCommand("emergency").NoResponse() }
func StreamOn() Command  { return NewCommand("streamon") }
func StreamOff() Command { return NewCommand("streamoff") }
func MotorOn() Command   { return NewCommand("motoron") }
func MotorOff() Command  { return NewCommand("motoroff") }
func PadsOn() Command    { return NewCommand("mon") }
func PadsOff() Command   { return NewCommand("moff") }
func Reboot() Command    { return NewCommand("reboot") }
func ThrowFly() Command  { return NewCommand("throwfly").WithTimeout(FlightTimeout) }

func Move(dir Direction, cm int) (Command, error) {
	switch dir {
	case Up, Down, Left, Right, Forward, Backward:
	default:
		return Command{}, fmt.Errorf("direction %q: %w", dir, ErrInvalidArgument)
	}
	if err := checkRange("distance", cm, MinMove, MaxMove); err != nil {
		return Command{}, err
	}
	return NewCommand(fmt.Sprintf("%s %d", dir, cm)), nil
}

func Rotate(r Rotation, deg int) (Command, error) {
	if r != Clockwise && r != CounterClockwise {
		return Command{}, fmt.Errorf("rotation %q: %w", r, ErrInvalidArgument)
	}
	if err := checkRange("angle", deg, MinRotate, MaxRotate); err != nil {
		return Command{}, err
	}
	return NewCommand(fmt.Sprintf("%s %d", r, deg)), nil
}

func Flip(dir FlipDirection) (Command, error) {
	switch dir {
	case FlipLeft, FlipRight, FlipForward, FlipBackward:
		return NewCommand("flip " + string(dir)), nil
	}
	return Command{}, fmt.Errorf("flip direction %q: %w", dir, ErrInvalidArgument)
}

func Speed(cms int) (Command, error) {
	if err := checkRange("speed", cms, MinSpeed, MaxSpeed); err != nil {
		return Command{}, err
	}
	return NewCommand(fmt.Sprintf("speed %d", cms)), nil
}

// Go flies to x y z. A non-zero pad makes the coordinates relative to that mission pad.
func Go(x, y, z, speed, pad int) (Command, error) {
	if err := checkCoords(x, y, z); err != nil {
		return Command{}, err
	}
	if err := checkRange("speed", speed, MinSpeed, MaxSpeed); err != nil {
		return Command{}, err
	}
	s := fmt.Sprintf("go %d %d %d %d", x, y, z, speed)
	if pad != 0 {
		if err := checkRange("mission pad", pad, MinPad, MaxPad); err != nil {
			return Command{}, err
		}
		s += " " + padArg(pad)
	}
	return NewCommand(s), nil
}

// Curve flies an arc through (x1 y1 z1) to (x2 y2 z2).
func Curve(x1, y1, z1, x2, y2, z2, speed, pad int) (Command, error) {
	if err := checkCoords(x1, y1, z1, x2, y2, z2); err != nil {
		return Command{}, err
	}
	if err := checkRange("curve speed", speed, MinCurveSpeed, MaxCurveSpeed); err != nil {
		return Command{}, err
	}
	s := fmt.Sprintf("curve %d %d %d %d %d %d %d", x1, y1, z1, x2, y2, z2, speed)
	if pad != 0 {
		if err := checkRange("mission pad", pad, MinPad, MaxPad); err != nil {
			return Command{}, err
		}
		s += " " + padArg(pad)
	}
	return NewCommand(s), nil
}

// Jump flies to x y z over pad1, then recognises pad2 and turns to yaw.
func Jump(x, y, z, speed, yaw, pad1, pad2 int) (Command, error) {
	if err := checkCoords(x, y, z); err != nil {
		return Command{}, err
	}
	if err := checkRange("speed", speed, MinSpeed, MaxSpeed); err != nil {
		return Command{}, err
	}
	if err := checkRange("mission pad", pad1, MinPad, MaxPad); err != nil {
		return Command{}, err
	}
	if err := checkRange("mission pad", pad2, MinPad, MaxPad); err != nil {
		return Command{}, err
	}
	return NewCommand(fmt.Sprintf("jump %d %d %d %d %d %s %s", x, y, z, speed, yaw, padArg(pad1), padArg(pad2))), nil
}

// PadDirection selects pad detection: 0 downward, 1 forward, 2 both.
func PadDirection(d int) (Command, error) {
	if err := checkRange("mission pad direction", d, 0, 2); err != nil {
		return Command{}, err
	}
	return NewCommand(fmt.Sprintf("mdirection %d", d)), nil
}

// Bitrate sets the video bitrate, 0 is auto, 1..5 are 1..5 Mbps.
func Bitrate(b int) (Command, error) {
	if err := checkRange("bitrate", b, MinBitrate, MaxBitrate); err != nil {
		return Command{}, err
	}
	return NewCommand(fmt.Sprintf("setbitrate %d", b)), nil
}

func SetResolution(r Resolution) (Command, error) {
	if r != ResolutionHigh && r != ResolutionLow {
		return Command{}, fmt.Errorf("resolution %q: %w", r, ErrInvalidArgument)
	}
	return NewCommand("setresolution " + string(r)), nil
}

func SetFPS(f FPS) (Command, error) {
	switch f {
	case FPSHigh, FPSMiddle, FPSLow:
		return NewCommand("setfps " + string(f)), nil
	}
	return Command{}, fmt.Errorf("fps %q: %w", f, ErrInvalidArgument)
}

// DownVision selects the streamed camera: 0 forward, 1 downward, 2 both.
func DownVision(v int) (Command, error) {
	if err := checkRange("downvision", v, 0, 2); err != nil {
		return Command{}, err
	}
	return NewCommand(fmt.Sprintf("downvision %d", v)), nil
}

func Query(name string) (Command, error) {
	name = strings.TrimSuffix(name, "?")
	if !queries[name] {
		return Command{}, fmt.Errorf("query %q: %w", name, ErrInvalidArgument)
	}
	return NewCommand(name + "?"), nil
}

// WiFi sets the drone's own access point credentials.
func WiFi(ssid, password string) (Command, error) {
	if err := checkWord("ssid", ssid); err != nil {
		return Command{}, err
	}
	if err := checkWord("password", password); err != nil {
		return Command{}, err
	}
	return NewCommand(fmt.Sprintf("wifi %s %s", ssid, password)), nil
}

// AP switches the drone to station mode joining the given access point.
func AP(ssid, password string) (Command, error) {
	if err := checkWord("ssid", ssid); err != nil {
		return Command{}, err
	}
	if err := checkWord("password", password); err != nil {
		return Command{}, err
	}
	return NewCommand(fmt.Sprintf("ap %s %s", ssid, password)), nil
}

// Ext sends a command to the expansion board.
func Ext(sub string) (Command, error) {
	sub = strings.TrimSpace(sub)
	if sub == "" {
		return Command{}, fmt.Errorf("empty EXT command: %w", ErrInvalidArgument)
	}
	return NewCommand("EXT " + sub), nil
}
