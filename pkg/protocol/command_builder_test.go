package protocol

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRCClamp(t *testing.T) {
	cmd := RC(150, -300, 0, 0)
	assert.Equal(t, "rc 100 -100 0 0", cmd.Text)
	assert.False(t, cmd.ExpectResponse)
}

func TestRCRound(t *testing.T) {
	assert.Equal(t, "rc 13 -13 0 100", RC(12.6, -12.6, 0.4, 99.5).Text)
}

func TestCommandBuilder(t *testing.T) {
	cb := NewCommandBuilder()
	assert.True(t, cb.Centered())

	cmd := cb.Left(30).Forward(200).Down(10).Cw(5).Build()
	assert.Equal(t, "rc -30 100 -10 5", cmd.Text)
	assert.False(t, cb.Centered())

	assert.Equal(t, "rc 0 0 0 0", NewCommandBuilder().Build().Text)
}
