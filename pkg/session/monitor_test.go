package session

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tello/pkg/transport"
)

func takeoff(t *testing.T, s *Session) {
	t.Helper()

	resp, err := s.Takeoff(context.Background())
	require.NoError(t, err)
	require.True(t, resp.OK)
	require.Equal(t, Flying, s.ConnectionState())
}

func TestLowBatteryAutoLand(t *testing.T) {
	s, fn := connect(t)
	takeoff(t, s)

	var alerts atomic.Int32
	s.OnLowBattery(func(float64) { alerts.Add(1) })

	// keep the landing in flight so the second reading overlaps it
	fn.setReply(func(text string) (string, bool) { return "", text != "land" })

	fn.push(transport.State, "bat:9;h:80;")
	require.Eventually(t, func() bool { return fn.count("land") == 1 }, time.Second, time.Millisecond)

	fn.push(transport.State, "bat:8;h:80;")
	time.Sleep(50 * time.Millisecond)

	assert.Equal(t, 1, fn.count("land"))
	assert.Equal(t, int32(2), alerts.Load())
}

func TestLowBatteryLandsOnce(t *testing.T) {
	s, fn := connect(t)
	takeoff(t, s)

	fn.push(transport.State, "bat:9;")
	require.Eventually(t, func() bool { return s.ConnectionState() == Connected }, time.Second, time.Millisecond)

	// grounded now, further low readings only alert
	fn.push(transport.State, "bat:8;")
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, 1, fn.count("land"))
}

func TestLowBatteryNoAutoLand(t *testing.T) {
	s, fn := connect(t)
	takeoff(t, s)
	s.SetAutoLandOnLowBattery(false)

	var alerts atomic.Int32
	s.OnLowBattery(func(float64) { alerts.Add(1) })

	fn.push(transport.State, "bat:5;")
	time.Sleep(30 * time.Millisecond)

	assert.Equal(t, 0, fn.count("land"))
	assert.Equal(t, int32(1), alerts.Load())
	assert.Equal(t, Flying, s.ConnectionState())
}

func TestLowBatteryThreshold(t *testing.T) {
	s, fn := connect(t)
	takeoff(t, s)
	s.SetLowBatteryThreshold(30)

	fn.push(transport.State, "bat:31;")
	fn.push(transport.State, "h:10;")
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, 0, fn.count("land"))

	fn.push(transport.State, "bat:30;")
	require.Eventually(t, func() bool { return fn.count("land") == 1 }, time.Second, time.Millisecond)
}

func TestLinkLostWhileFlying(t *testing.T) {
	s, fn := connect(t)
	takeoff(t, s)

	var log stateLog
	s.OnConnectionStateChange(log.add)

	s.SetStaleAfter(100 * time.Millisecond)

	require.Eventually(t, func() bool { return fn.count("land") == 1 }, time.Second, time.Millisecond)
	require.Eventually(t, func() bool { return s.ConnectionState() == Error }, time.Second, time.Millisecond)

	// the monitor keeps ticking but acts only once
	time.Sleep(150 * time.Millisecond)
	assert.Equal(t, 1, fn.count("land"))
	assert.Equal(t, Error, s.ConnectionState())
	assert.Equal(t, []ConnectionState{Error}, log.get())
}

func TestLinkLostGrounded(t *testing.T) {
	s, fn := connect(t)
	s.SetStaleAfter(100 * time.Millisecond)

	require.Eventually(t, func() bool { return s.ConnectionState() == Error }, time.Second, time.Millisecond)
	assert.Equal(t, 0, fn.count("land"))
}

func TestTelemetryKeepsLinkAlive(t *testing.T) {
	s, fn := connect(t)
	s.SetStaleAfter(100 * time.Millisecond)

	deadline := time.Now().Add(300 * time.Millisecond)
	for time.Now().Before(deadline) {
		fn.push(transport.State, "bat:80;")
		time.Sleep(20 * time.Millisecond)
	}

	assert.Equal(t, Connected, s.ConnectionState())
}

func TestMonitorStopsOnDisconnect(t *testing.T) {
	s, _ := connect(t)
	s.SetStaleAfter(50 * time.Millisecond)
	s.Disconnect()

	time.Sleep(120 * time.Millisecond)
	assert.Equal(t, Disconnected, s.ConnectionState())
}

func TestLinkLostAfterDisconnect(t *testing.T) {
	s, fn := connect(t)
	takeoff(t, s)
	s.Disconnect()

	var log stateLog
	s.OnConnectionStateChange(log.add)

	s.mx.Lock()
	s.lastUpdate = time.Now().Add(-time.Minute)
	s.mx.Unlock()

	s.checkLiveness()

	assert.Equal(t, Disconnected, s.ConnectionState())
	assert.Empty(t, log.get())
	assert.Equal(t, 0, fn.count("land"))
}

func TestLowBatteryThresholdGetter(t *testing.T) {
	s, _ := newTestSession(t)
	assert.Equal(t, 10.0, s.LowBatteryThreshold())

	s.SetLowBatteryThreshold(25)
	assert.Equal(t, 25.0, s.LowBatteryThreshold())
}
