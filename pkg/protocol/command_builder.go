package protocol

import (
	"fmt"
	"math"
)

const StickMax = 100

// CommandBuilder composes an "rc" stick command. Every axis is clamped to
// [-100, 100] and rounded to an integer.
type CommandBuilder struct {
	leftRight, forwardBack, upDown, yaw int
}

func NewCommandBuilder() *CommandBuilder {
	return &CommandBuilder{}
}

func stick(v float64) int {
	if math.IsNaN(v) {
		return 0
	}
	return int(math.Round(math.Max(-StickMax, math.Min(StickMax, v))))
}

// Sticks sets all four axes at once.
func (cb *CommandBuilder) Sticks(leftRight, forwardBack, upDown, yaw float64) *CommandBuilder {
	cb.leftRight = stick(leftRight)
	cb.forwardBack = stick(forwardBack)
	cb.upDown = stick(upDown)
	cb.yaw = stick(yaw)
	return cb
}

func (cb *CommandBuilder) Right(v float64) *CommandBuilder {
	cb.leftRight = stick(v)
	return cb
}

func (cb *CommandBuilder) Left(v float64) *CommandBuilder {
	cb.leftRight = stick(-v)
	return cb
}

func (cb *CommandBuilder) Forward(v float64) *CommandBuilder {
	cb.forwardBack = stick(v)
	return cb
}

func (cb *CommandBuilder) Back(v float64) *CommandBuilder {
	cb.forwardBack = stick(-v)
	return cb
}

func (cb *CommandBuilder) Up(v float64) *CommandBuilder {
	cb.upDown = stick(v)
	return cb
}

func (cb *CommandBuilder) Down(v float64) *CommandBuilder {
	cb.upDown = stick(-v)
	return cb
}

func (cb *CommandBuilder) Cw(v float64) *CommandBuilder {
	cb.yaw = stick(v)
	return cb
}

func (cb *CommandBuilder) Ccw(v float64) *CommandBuilder {
	cb.yaw = stick(-v)
	return cb
}

func (cb *CommandBuilder) Centered() bool {
	return cb.leftRight == 0 && cb.forwardBack == 0 && cb.upDown == 0 && cb.yaw == 0
}

// Build returns the rc command. It is fire-and-forget: no reply is awaited.
func (cb *CommandBuilder) Build() Command {
	return NewCommand(fmt.Sprintf("rc %d %d %d %d", cb.leftRight, cb.forwardBack, cb.upDown, cb.yaw)).NoResponse()
}

// RC is a shortcut for NewCommandBuilder().Sticks(...).Build().
func RC(leftRight, forwardBack, upDown, yaw float64) Command {
	return NewCommandBuilder().Sticks(leftRight, forwardBack, upDown, yaw).Build()
}
