package session

import (
	"context"
	"log/slog"
	"math"
	"time"

	"tello/pkg/protocol"
)

func periodical(ctx context.Context, t time.Duration, f func()) {
	ticker := time.NewTicker(t)
	defer ticker.Stop()

	for ctx.Err() == nil {
		select {
		case <-ticker.C:
			f()
		case <-ctx.Done():
			return
		}
	}
}

// SetStaleAfter sets how long the state stream may stay silent before the link is considered lost.
func (s *Session) SetStaleAfter(t time.Duration) {
	s.mx.Lock()
	s.staleAfter = t
	s.mx.Unlock()
}

func (s *Session) SetLowBatteryThreshold(percent float64) {
	s.mx.Lock()
	s.lowBattery = percent
	s.mx.Unlock()
}

func (s *Session) SetAutoLandOnLowBattery(on bool) {
	s.mx.Lock()
	s.autoLandLowBattery = on
	s.mx.Unlock()
}

func (s *Session) checkLiveness() {
	s.mx.RLock()
	st := s.state
	idle := time.Since(s.lastUpdate)
	stale := s.staleAfter
	s.mx.RUnlock()

	if !st.Online() || idle <= stale {
		return
	}

	// a concurrent Disconnect or Land may have moved the session on
	if !s.transition(st, Error) {
		return
	}
	s.logger.Warn("no telemetry, link lost", slog.Duration("idle", idle))

	if st == Flying {
		s.autoLand("link lost")
	}
}

func (s *Session) checkBattery(st protocol.State) {
	bat, ok := st.Battery()
	if !ok || math.IsNaN(bat) {
		return
	}

	s.mx.RLock()
	threshold := s.lowBattery
	autoLand := s.autoLandLowBattery
	flying := s.state == Flying
	s.mx.RUnlock()

	if bat > threshold {
		return
	}

	s.batteryObs.notify(bat)

	if flying && autoLand {
		s.autoLand("low battery")
	}
}

// autoLand lands in the background. Only one automatic landing runs at a time
// and its errors are logged, not returned.
func (s *Session) autoLand(reason string) {
	if !s.autoLanding.CompareAndSwap(false, true) {
		return
	}

	logger := s.logger.With(slog.String("reason", reason))
	logger.Warn("automatic landing")

	go func() {
		defer s.autoLanding.Store(false)

		ctx, cancel := context.WithTimeout(context.Background(), s.cfg.FlightTimeout+time.Second)
		defer cancel()

		resp, err := s.Land(ctx)
		if err != nil {
			logger.Error("automatic landing failed", slog.Any("error", err))
			return
		}

		if !resp.OK {
			logger.Error("automatic landing refused", slog.String("reply", resp.Message))
			return
		}

		logger.Info("landed")
	}()
}
