package session

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tello/pkg/dispatcher"
	"tello/pkg/protocol"
	"tello/pkg/transport"
)

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.ResponseTimeout = 200 * time.Millisecond
	cfg.FlightTimeout = 300 * time.Millisecond
	cfg.SettleDelay = 5 * time.Millisecond
	cfg.MonitorInterval = 20 * time.Millisecond
	return cfg
}

func newTestSession(t *testing.T, options ...Option) (*Session, *fakeNet) {
	t.Helper()

	fn := newFakeNet()
	s := New(testConfig(), append([]Option{WithOpener(fn)}, options...)...)
	t.Cleanup(s.Disconnect)

	return s, fn
}

func connect(t *testing.T, options ...Option) (*Session, *fakeNet) {
	t.Helper()

	s, fn := newTestSession(t, options...)
	require.NoError(t, s.Connect(context.Background()))
	require.Equal(t, Connected, s.ConnectionState())

	return s, fn
}

type stateLog struct {
	mx     sync.Mutex
	states []ConnectionState
}

func (l *stateLog) add(st ConnectionState) {
	l.mx.Lock()
	l.states = append(l.states, st)
	l.mx.Unlock()
}

func (l *stateLog) get() []ConnectionState {
	l.mx.Lock()
	defer l.mx.Unlock()
	return append([]ConnectionState(nil), l.states...)
}

func TestConnect(t *testing.T) {
	s, fn := newTestSession(t)

	var log stateLog
	s.OnConnectionStateChange(log.add)

	require.NoError(t, s.Connect(context.Background()))

	assert.Equal(t, Connected, s.ConnectionState())
	assert.Equal(t, []string{"command"}, fn.commands())
	assert.Equal(t, []ConnectionState{Connecting, Connected}, log.get())
	assert.NotNil(t, fn.channel(transport.Command))
	assert.NotNil(t, fn.channel(transport.State))
	assert.Nil(t, fn.channel(transport.Video))

	assert.ErrorIs(t, s.Connect(context.Background()), ErrAlreadyConnected)
}

func TestConnectHandshakeRejected(t *testing.T) {
	s, fn := newTestSession(t)
	fn.setReply(func(string) (string, bool) { return "error", true })

	err := s.Connect(context.Background())
	assert.ErrorIs(t, err, ErrHandshake)
	assert.Equal(t, Error, s.ConnectionState())

	// channels stay open until the caller decides
	assert.False(t, fn.channel(transport.Command).closed.Load())
	assert.False(t, fn.channel(transport.State).closed.Load())

	s.Disconnect()
	assert.Equal(t, Disconnected, s.ConnectionState())
	assert.True(t, fn.channel(transport.Command).closed.Load())
	assert.True(t, fn.channel(transport.State).closed.Load())
}

func TestConnectHandshakeTimeoutThenRetry(t *testing.T) {
	s, fn := newTestSession(t)
	fn.setReply(func(string) (string, bool) { return "", false })

	err := s.Connect(context.Background())
	assert.ErrorIs(t, err, ErrHandshake)
	assert.Equal(t, Error, s.ConnectionState())

	first := fn.channel(transport.Command)

	fn.setReply(func(string) (string, bool) { return "ok", true })
	require.NoError(t, s.Connect(context.Background()))
	assert.Equal(t, Connected, s.ConnectionState())
	assert.True(t, first.closed.Load())
	assert.Equal(t, 2, fn.opened[transport.Command])
}

func TestConnectOpenError(t *testing.T) {
	s, fn := newTestSession(t)
	fn.openErr = errors.New("address in use")

	assert.Error(t, s.Connect(context.Background()))
	assert.Equal(t, Error, s.ConnectionState())
}

func TestDisconnectDuringHandshake(t *testing.T) {
	fn := newFakeNet()
	fn.setReply(func(string) (string, bool) { return "", false })

	cfg := testConfig()
	cfg.ResponseTimeout = 5 * time.Second
	s := New(cfg, WithOpener(fn))
	t.Cleanup(s.Disconnect)

	var log stateLog
	s.OnConnectionStateChange(log.add)

	errs := make(chan error, 1)
	go func() {
		errs <- s.Connect(context.Background())
	}()

	require.Eventually(t, func() bool { return fn.count("command") == 1 }, time.Second, time.Millisecond)
	s.Disconnect()

	select {
	case err := <-errs:
		assert.ErrorIs(t, err, ErrHandshake)
		assert.ErrorIs(t, err, dispatcher.ErrClosed)
	case <-time.After(time.Second):
		t.Fatal("connect not released by disconnect")
	}

	assert.Equal(t, Disconnected, s.ConnectionState())
	assert.Equal(t, []ConnectionState{Connecting, Disconnected}, log.get())
}

func TestNewFillsDefaults(t *testing.T) {
	fn := newFakeNet()
	s := New(Config{PeerAddr: "127.0.0.1"}, WithOpener(fn))
	t.Cleanup(s.Disconnect)

	def := DefaultConfig()
	cfg := s.Config()
	assert.Equal(t, def.CommandPort, cfg.CommandPort)
	assert.Equal(t, def.StatePort, cfg.StatePort)
	assert.Equal(t, def.VideoPort, cfg.VideoPort)
	assert.Equal(t, def.ResponseTimeout, cfg.ResponseTimeout)
	assert.Equal(t, def.FlightTimeout, cfg.FlightTimeout)
	assert.Equal(t, def.StaleAfter, cfg.StaleAfter)
	assert.Equal(t, def.MonitorInterval, cfg.MonitorInterval)
	assert.Equal(t, "127.0.0.1", cfg.PeerAddr)

	require.NoError(t, s.Connect(context.Background()))
	assert.Equal(t, Connected, s.ConnectionState())
}

func TestZeroMonitorInterval(t *testing.T) {
	fn := newFakeNet()
	cfg := testConfig()
	cfg.MonitorInterval = 0
	s := New(cfg, WithOpener(fn))
	t.Cleanup(s.Disconnect)

	assert.Equal(t, time.Second, s.Config().MonitorInterval)
	require.NoError(t, s.Connect(context.Background()))
	assert.Equal(t, Connected, s.ConnectionState())
}

func TestConnectInvalidConfig(t *testing.T) {
	fn := newFakeNet()
	cfg := testConfig()
	cfg.CommandPort = 70000
	s := New(cfg, WithOpener(fn))
	t.Cleanup(s.Disconnect)

	assert.Error(t, s.Connect(context.Background()))
	assert.Equal(t, Disconnected, s.ConnectionState())
	assert.Empty(t, fn.commands())
	assert.Nil(t, fn.channel(transport.Command))
}

func TestNotConnected(t *testing.T) {
	s, fn := newTestSession(t)

	_, err := s.Takeoff(context.Background())
	assert.ErrorIs(t, err, ErrNotConnected)

	_, err = s.StreamOn(context.Background())
	assert.ErrorIs(t, err, ErrNotConnected)

	assert.ErrorIs(t, s.Emergency(), ErrNotConnected)

	// sticks are dropped silently
	assert.NoError(t, s.SendContinuousControl(10, 0, 0, 0))
	assert.Empty(t, fn.commands())
}

func TestTakeoffLand(t *testing.T) {
	s, fn := connect(t)

	resp, err := s.Takeoff(context.Background())
	require.NoError(t, err)
	assert.True(t, resp.OK)
	assert.Equal(t, Flying, s.ConnectionState())
	assert.True(t, s.IsFlying())

	resp, err = s.Land(context.Background())
	require.NoError(t, err)
	assert.True(t, resp.OK)
	assert.Equal(t, Connected, s.ConnectionState())

	assert.Equal(t, []string{"command", "takeoff", "land"}, fn.commands())
}

func TestTakeoffFailure(t *testing.T) {
	s, fn := connect(t)
	fn.setReply(func(string) (string, bool) { return "error Motor stop", true })

	resp, err := s.Takeoff(context.Background())
	require.NoError(t, err)
	assert.False(t, resp.OK)
	assert.Equal(t, "error Motor stop", resp.Message)
	assert.Equal(t, Connected, s.ConnectionState())
}

func TestTakeoffTimeout(t *testing.T) {
	s, fn := connect(t)
	fn.setReply(func(string) (string, bool) { return "", false })

	resp, err := s.Takeoff(context.Background())
	require.NoError(t, err)
	assert.True(t, resp.TimedOut())
	assert.Equal(t, Connected, s.ConnectionState())
}

func TestEmergency(t *testing.T) {
	s, fn := connect(t)
	_, err := s.Takeoff(context.Background())
	require.NoError(t, err)

	require.NoError(t, s.Emergency())
	assert.Equal(t, 1, fn.count("emergency"))
	assert.Equal(t, Flying, s.ConnectionState())
}

func TestMoveValidation(t *testing.T) {
	s, fn := connect(t)

	resp, err := s.Move(context.Background(), protocol.Up, 50)
	require.NoError(t, err)
	assert.True(t, resp.OK)

	resp, err = s.Move(context.Background(), protocol.Up, 600)
	require.NoError(t, err)
	assert.False(t, resp.OK)
	assert.Contains(t, resp.Message, "out of range")

	resp, err = s.Curve(context.Background(), 20, 20, 20, 40, 60, 40, 80, 0)
	require.NoError(t, err)
	assert.False(t, resp.OK)

	assert.Equal(t, []string{"command", "up 50"}, fn.commands())
}

func TestTypedCommands(t *testing.T) {
	s, fn := connect(t)
	ctx := context.Background()

	calls := []func() (protocol.Response, error){
		func() (protocol.Response, error) { return s.Rotate(ctx, protocol.Clockwise, 90) },
		func() (protocol.Response, error) { return s.Flip(ctx, protocol.FlipBackward) },
		func() (protocol.Response, error) { return s.SetSpeed(ctx, 50) },
		func() (protocol.Response, error) { return s.Go(ctx, 50, 50, 50, 30, 1) },
		func() (protocol.Response, error) { return s.Jump(ctx, 100, 0, 80, 50, 0, 1, 2) },
		func() (protocol.Response, error) { return s.MissionPadsOn(ctx) },
		func() (protocol.Response, error) { return s.MissionPadDirection(ctx, 0) },
		func() (protocol.Response, error) { return s.SetBitrate(ctx, 3) },
		func() (protocol.Response, error) { return s.SetResolution(ctx, protocol.ResolutionHigh) },
		func() (protocol.Response, error) { return s.SetFPS(ctx, protocol.FPSLow) },
		func() (protocol.Response, error) { return s.DownVision(ctx, 1) },
		func() (protocol.Response, error) { return s.MotorOn(ctx) },
		func() (protocol.Response, error) { return s.MotorOff(ctx) },
		func() (protocol.Response, error) { return s.SetWiFi(ctx, "tello", "secret") },
		func() (protocol.Response, error) { return s.Ext(ctx, "led 0 0 255") },
	}

	for _, c := range calls {
		resp, err := c()
		require.NoError(t, err)
		assert.True(t, resp.OK)
	}

	assert.Equal(t, []string{
		"command", "cw 90", "flip b", "speed 50", "go 50 50 50 30 m1", "jump 100 0 80 50 0 m1 m2",
		"mon", "mdirection 0", "setbitrate 3", "setresolution high", "setfps low", "downvision 1",
		"motoron", "motoroff", "wifi tello secret", "EXT led 0 0 255",
	}, fn.commands())
}

func TestQuery(t *testing.T) {
	s, fn := connect(t)

	fn.setReply(func(string) (string, bool) { return "87\r\n", true })
	v, err := s.Query(context.Background(), protocol.QueryBattery)
	require.NoError(t, err)
	assert.Equal(t, "87", v)

	fn.setReply(func(string) (string, bool) { return "error", true })
	_, err = s.Query(context.Background(), protocol.QuerySerial)
	assert.ErrorIs(t, err, ErrRejected)

	fn.setReply(func(string) (string, bool) { return "", false })
	_, err = s.Query(context.Background(), protocol.QueryTOF)
	assert.ErrorIs(t, err, ErrTimeout)

	_, err = s.Query(context.Background(), "color")
	assert.ErrorIs(t, err, protocol.ErrInvalidArgument)

	assert.Equal(t, []string{"command", "battery?", "sn?", "tof?"}, fn.commands())
}

func TestContinuousControl(t *testing.T) {
	s, fn := connect(t)

	require.NoError(t, s.SendContinuousControl(150, -300, 0, 0))
	require.NoError(t, s.Stop())

	assert.Equal(t, []string{"command", "rc 100 -100 0 0", "rc 0 0 0 0"}, fn.commands())
}

func TestDisconnectReleasesPending(t *testing.T) {
	s, fn := connect(t)
	fn.setReply(func(string) (string, bool) { return "", false })

	errs := make(chan error, 1)
	go func() {
		_, err := s.Takeoff(context.Background())
		errs <- err
	}()

	require.Eventually(t, func() bool { return fn.count("takeoff") == 1 }, time.Second, time.Millisecond)
	s.Disconnect()

	select {
	case err := <-errs:
		assert.ErrorIs(t, err, dispatcher.ErrClosed)
	case <-time.After(time.Second):
		t.Fatal("takeoff not released by disconnect")
	}

	assert.Equal(t, Disconnected, s.ConnectionState())
	assert.True(t, fn.channel(transport.Command).closed.Load())
}

func TestTelemetrySnapshot(t *testing.T) {
	s, fn := connect(t)

	updates := make(chan protocol.State, 4)
	unsubscribe := s.OnStateUpdate(func(st protocol.State) { updates <- st })

	fn.push(transport.State, "bat:50;h:100;")
	fn.push(transport.State, "bat:48;")

	<-updates
	<-updates

	st := s.State()
	_, ok := st.Height()
	assert.False(t, ok)
	bat, ok := st.Battery()
	assert.True(t, ok)
	assert.Equal(t, 48.0, bat)
	assert.WithinDuration(t, time.Now(), s.LastUpdate(), time.Second)

	unsubscribe()
	fn.push(transport.State, "bat:47;")
	assert.Len(t, updates, 0)
}

func TestStreamOnOff(t *testing.T) {
	var mx sync.Mutex
	var frames [][]byte

	s, fn := connect(t, WithVideoSink(func(data []byte) {
		mx.Lock()
		frames = append(frames, data)
		mx.Unlock()
	}))

	resp, err := s.StreamOn(context.Background())
	require.NoError(t, err)
	assert.True(t, resp.OK)

	fn.push(transport.Video, "\x00\x00\x00\x01\x67")
	assert.Equal(t, uint64(5), s.VideoBytes())
	mx.Lock()
	assert.Len(t, frames, 1)
	mx.Unlock()

	// a second streamon reuses the bound channel
	_, err = s.StreamOn(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, fn.opened[transport.Video])

	resp, err = s.StreamOff(context.Background())
	require.NoError(t, err)
	assert.True(t, resp.OK)
	assert.True(t, fn.channel(transport.Video).closed.Load())

	assert.Equal(t, "udp://0.0.0.0:11111", s.VideoURL())
	assert.Equal(t, []string{"command", "streamon", "streamon", "streamoff"}, fn.commands())
}
