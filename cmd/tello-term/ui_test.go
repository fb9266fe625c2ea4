package main

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFormatMotorTime(t *testing.T) {
	assert.Equal(t, "0 seconds", formatMotorTime(0))
	assert.Equal(t, "0 seconds", formatMotorTime(math.NaN()))
	assert.Equal(t, "42 seconds", formatMotorTime(42))
	assert.Equal(t, "1 minute", formatMotorTime(90))
	assert.Equal(t, "3 minutes", formatMotorTime(200))
}

func TestFormatBatteryThreshold(t *testing.T) {
	assert.Equal(t, WithColors("25%", Bold, FgRed), formatBattery(25, 30))
	assert.Equal(t, WithColors("25%", FgYellow), formatBattery(25, 10))
	assert.Equal(t, WithColors("80%", FgGreen), formatBattery(80, 10))
}
