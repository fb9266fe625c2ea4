package main

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tello/pkg/session"
)

func TestInts(t *testing.T) {
	v, err := ints([]string{"1", "-20", "300"})
	require.NoError(t, err)
	assert.Equal(t, []int{1, -20, 300}, v)

	_, err = ints([]string{"1", "x"})
	assert.Error(t, err)
}

func TestPadArg(t *testing.T) {
	v, err := padArg("m4")
	require.NoError(t, err)
	assert.Equal(t, 4, v)

	v, err = padArg("7")
	require.NoError(t, err)
	assert.Equal(t, 7, v)
}

func TestCommandNamesUnique(t *testing.T) {
	seen := make(map[string]bool)
	for _, c := range commands {
		assert.False(t, seen[c.name], c.name)
		seen[c.name] = true
		assert.NotEmpty(t, c.usage)
	}
}

func TestCommandsRejectBadNumbers(t *testing.T) {
	s := session.New(session.DefaultConfig())

	for _, c := range commands {
		if c.args == 0 || c.name == "send" || c.name == "ext" {
			continue
		}
		args := make([]string, c.args)
		for i := range args {
			args[i] = "x"
		}

		resp, err := c.run(context.Background(), s, args)
		// bad numbers fail before reaching the drone, enum typos come back as a failed response
		if err == nil {
			assert.False(t, resp.OK, c.name)
		}
	}
}

func TestBatteryWarnerOncePerConnection(t *testing.T) {
	var buf bytes.Buffer
	w := &batteryWarner{logger: slog.New(slog.NewTextHandler(&buf, nil))}

	for _, b := range []float64{9, 8, 8, 7} {
		w.low(b)
	}
	assert.Equal(t, 1, strings.Count(buf.String(), "low battery"))

	w.reset()
	w.low(6)
	assert.Equal(t, 2, strings.Count(buf.String(), "low battery"))
}
