package session

import (
	"log/slog"

	"tello/pkg/protocol"
)

// SendContinuousControl sends an rc stick command right away, outside the
// command queue. Each axis is clamped to [-100, 100]. Without an open
// command channel the call is dropped with a warning.
func (s *Session) SendContinuousControl(leftRight, forwardBack, upDown, yaw float64) error {
	return s.SendSticks(protocol.NewCommandBuilder().Sticks(leftRight, forwardBack, upDown, yaw))
}

func (s *Session) SendSticks(cb *protocol.CommandBuilder) error {
	cmd := cb.Build()

	open, err := s.sendDirect(cmd)
	if !open {
		s.logger.Warn("command channel not open, stick command dropped", slog.String("cmd", cmd.Text))
		return nil
	}

	return err
}

// Stop centres all sticks so the drone hovers.
func (s *Session) Stop() error {
	return s.SendContinuousControl(0, 0, 0, 0)
}
