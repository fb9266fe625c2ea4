package main

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"tello/pkg/protocol"
)

func TestHandleRequiresSDKMode(t *testing.T) {
	app := NewApp("127.0.0.1:0", 0, 0, 100, 0)

	r, ok := app.handle("takeoff")
	assert.True(t, ok)
	assert.Equal(t, "error", r)

	r, _ = app.handle("command")
	assert.Equal(t, "ok", r)
}

func TestHandleFlight(t *testing.T) {
	app := NewApp("127.0.0.1:0", 0, 0, 100, 0)
	app.handle("command")

	r, _ := app.handle("up 50")
	assert.Equal(t, "error Not joystick", r)

	r, _ = app.handle("takeoff")
	assert.Equal(t, "ok", r)

	r, _ = app.handle("up 50")
	assert.Equal(t, "ok", r)

	r, _ = app.handle("up 600")
	assert.Equal(t, "out of range", r)

	h, _ := app.makeState().Height()
	assert.Equal(t, 130.0, h)

	_, ok := app.handle("rc 0 0 0 0")
	assert.False(t, ok)

	_, ok = app.handle("emergency")
	assert.False(t, ok)

	h, _ = app.makeState().Height()
	assert.Equal(t, 0.0, h)
}

func TestHandleQuery(t *testing.T) {
	app := NewApp("127.0.0.1:0", 0, 0, 87, 0)
	app.handle("command")

	r, _ := app.handle("battery?")
	assert.Equal(t, "87", r)

	r, _ = app.handle("speed 30")
	assert.Equal(t, "ok", r)
	r, _ = app.handle("speed?")
	assert.Equal(t, "30", r)

	r, _ = app.handle("nonsense")
	assert.Contains(t, r, "unknown command")
}

func TestMakeStateParses(t *testing.T) {
	app := NewApp("127.0.0.1:0", 0, 0, 55, 0)

	s := protocol.ParseState(app.makeState().String())
	bat, ok := s.Battery()
	assert.True(t, ok)
	assert.Equal(t, 55.0, bat)

	_, _, _, _, ok = s.MissionPad()
	assert.False(t, ok)
}
