package protocol

import (
	"math"
	"strconv"
	"strings"
)

// Field is one scalar value of the state line.
type Field int

const (
	Pitch Field = iota
	Roll
	Yaw
	SpeedX
	SpeedY
	SpeedZ
	TempLow
	TempHigh
	TOF
	Height
	Battery
	Baro
	MotorTime
	PadID
	PadX
	PadY
	PadZ

	numFields
)

var fieldKeys = [numFields]string{
	Pitch:     "pitch",
	Roll:      "roll",
	Yaw:       "yaw",
	SpeedX:    "vgx",
	SpeedY:    "vgy",
	SpeedZ:    "vgz",
	TempLow:   "templ",
	TempHigh:  "temph",
	TOF:       "tof",
	Height:    "h",
	Battery:   "bat",
	Baro:      "baro",
	MotorTime: "time",
	PadID:     "mid",
	PadX:      "x",
	PadY:      "y",
	PadZ:      "z",
}

var keyFields = func() map[string]Field {
	m := make(map[string]Field, numFields)
	for f, k := range fieldKeys {
		m[k] = Field(f)
	}
	return m
}()

// String returns the wire key of the field.
func (f Field) String() string {
	if f < 0 || f >= numFields {
		return "unknown"
	}
	return fieldKeys[f]
}

// NoPad is the mission pad id reported when no pad is detected.
const NoPad = -1

type Acceleration struct {
	X, Y, Z float64
}

// State is a sparse telemetry snapshot. Only keys present in the datagram it
// was parsed from are set; it is never merged with an older snapshot.
type State struct {
	values  [numFields]float64
	present uint32
	accel   *Acceleration
}

func parseNumber(v string) float64 {
	for i := len(v); i > 0; i-- {
		if f, err := strconv.ParseFloat(v[:i], 64); err == nil {
			return f
		}
	}

	return math.NaN()
}

// ParseState parses a "key:value;key:value;" state line. Unknown keys and
// malformed pairs are skipped. A value is read up to its longest numeric
// prefix ("50abc" is 50); a value with no numeric prefix is kept as NaN.
func ParseState(line string) State {
	var s State

	for _, pair := range strings.Split(strings.TrimSpace(line), ";") {
		k, v, ok := strings.Cut(pair, ":")
		if !ok || k == "" || v == "" {
			continue
		}

		val := parseNumber(strings.TrimSpace(v))

		switch k {
		case "agx", "agy", "agz":
			if s.accel == nil {
				s.accel = &Acceleration{}
			}
			switch k {
			case "agx":
				s.accel.X = val
			case "agy":
				s.accel.Y = val
			case "agz":
				s.accel.Z = val
			}
		default:
			if f, ok := keyFields[k]; ok {
				s.Set(f, val)
			}
		}
	}

	return s
}

func (s *State) Set(f Field, v float64) {
	if f < 0 || f >= numFields {
		return
	}
	s.values[f] = v
	s.present |= 1 << f
}

func (s *State) SetAcceleration(a Acceleration) {
	s.accel = &a
}

// Get returns the value of f and whether the last datagram carried it.
func (s State) Get(f Field) (float64, bool) {
	if f < 0 || f >= numFields || s.present&(1<<f) == 0 {
		return 0, false
	}
	return s.values[f], true
}

func (s State) Has(f Field) bool {
	_, ok := s.Get(f)
	return ok
}

func (s State) Acceleration() (Acceleration, bool) {
	if s.accel == nil {
		return Acceleration{}, false
	}
	return *s.accel, true
}

func (s State) Battery() (float64, bool) {
	return s.Get(Battery)
}

func (s State) Height() (float64, bool) {
	return s.Get(Height)
}

// MissionPad returns the detected pad id and the drone position relative to it.
// ok is false when no pad field is present or mid is -1.
func (s State) MissionPad() (id int, x, y, z float64, ok bool) {
	mid, has := s.Get(PadID)
	if !has || mid == NoPad || math.IsNaN(mid) {
		return NoPad, 0, 0, 0, false
	}
	x, _ = s.Get(PadX)
	y, _ = s.Get(PadY)
	z, _ = s.Get(PadZ)
	return int(mid), x, y, z, true
}

// Fields returns the present fields in wire order.
func (s State) Fields() []Field {
	res := make([]Field, 0, numFields)
	for f := Field(0); f < numFields; f++ {
		if s.Has(f) {
			res = append(res, f)
		}
	}
	return res
}

func (s State) Empty() bool {
	return s.present == 0 && s.accel == nil
}

// String encodes the snapshot back into a state line.
func (s State) String() string {
	b := strings.Builder{}
	for _, f := range s.Fields() {
		b.WriteString(f.String())
		b.WriteByte(':')
		b.WriteString(formatValue(s.values[f]))
		b.WriteByte(';')
	}
	if a, ok := s.Acceleration(); ok {
		b.WriteString("agx:" + formatValue(a.X) + ";")
		b.WriteString("agy:" + formatValue(a.Y) + ";")
		b.WriteString("agz:" + formatValue(a.Z) + ";")
	}
	return b.String()
}

func formatValue(v float64) string {
	if v == math.Trunc(v) && !math.IsInf(v, 0) {
		return strconv.FormatInt(int64(v), 10)
	}
	return strconv.FormatFloat(v, 'f', 2, 64)
}
