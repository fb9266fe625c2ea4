package protocol

import "time"

const (
	DefaultPeerAddr    = "192.168.10.1"
	DefaultCommandPort = 8889
	DefaultStatePort   = 8890
	DefaultVideoPort   = 11111

	DefaultResponseTimeout = 7 * time.Second
	FlightTimeout          = 20 * time.Second
	SettleDelay            = 100 * time.Millisecond
)

type Direction string

const (
	Up       Direction = "up"
	Down     Direction = "down"
	Left     Direction = "left"
	Right    Direction = "right"
	Forward  Direction = "forward"
	Backward Direction = "back"
)

type Rotation string

const (
	Clockwise        Rotation = "cw"
	CounterClockwise Rotation = "ccw"
)

type FlipDirection string

const (
	FlipLeft     FlipDirection = "l"
	FlipRight    FlipDirection = "r"
	FlipForward  FlipDirection = "f"
	FlipBackward FlipDirection = "b"
)

type Resolution string

const (
	ResolutionHigh Resolution = "high"
	ResolutionLow  Resolution = "low"
)

type FPS string

const (
	FPSHigh   FPS = "high"
	FPSMiddle FPS = "middle"
	FPSLow    FPS = "low"
)

// Query names accepted with the "?" suffix.
const (
	QuerySDK      = "sdk"
	QuerySerial   = "sn"
	QueryWiFi     = "wifi"
	QuerySpeed    = "speed"
	QueryBattery  = "battery"
	QueryTime     = "time"
	QueryHeight   = "height"
	QueryTemp     = "temp"
	QueryAttitude = "attitude"
	QueryBaro     = "baro"
	QueryTOF      = "tof"
)

var queries = map[string]bool{
	QuerySDK: true, QuerySerial: true, QueryWiFi: true, QuerySpeed: true,
	QueryBattery: true, QueryTime: true, QueryHeight: true, QueryTemp: true,
	QueryAttitude: true, QueryBaro: true, QueryTOF: true,
}
