// Package session drives a Tello EDU over the SDK text protocol.
//
// A Session owns the command, state and video channels. Commands are
// serialised through a dispatcher; telemetry lines replace the current
// snapshot on arrival; a safety monitor lands the drone on telemetry loss or
// low battery.
package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"tello/pkg/dispatcher"
	"tello/pkg/protocol"
	"tello/pkg/transport"
)

var (
	ErrNotConnected     = errors.New("not connected")
	ErrAlreadyConnected = errors.New("already connected")
	ErrHandshake        = errors.New("handshake failed")
	ErrTimeout          = errors.New("no reply")
	ErrRejected         = errors.New("command rejected")
)

type Session struct {
	cfg       Config
	opener    transport.Opener
	logger    *slog.Logger
	videoSink func([]byte)

	mx         sync.RWMutex
	state      ConnectionState
	cmdCh      transport.Channel
	stateCh    transport.Channel
	videoCh    transport.Channel
	dispatcher *dispatcher.Dispatcher
	cancel     context.CancelFunc
	snapshot   protocol.State
	lastUpdate time.Time

	staleAfter         time.Duration
	lowBattery         float64
	autoLandLowBattery bool

	autoLanding atomic.Bool
	videoBytes  atomic.Uint64

	stateObs   observers[protocol.State]
	connObs    observers[ConnectionState]
	batteryObs observers[float64]
}

type Option func(s *Session)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Session) {
		s.logger = logger
	}
}

// WithOpener replaces the UDP sockets, mostly for tests.
func WithOpener(o transport.Opener) Option {
	return func(s *Session) {
		s.opener = o
	}
}

// WithVideoSink receives every raw H.264 datagram of the video channel.
func WithVideoSink(f func(data []byte)) Option {
	return func(s *Session) {
		s.videoSink = f
	}
}

func New(cfg Config, options ...Option) *Session {
	cfg = cfg.withDefaults()

	s := &Session{
		cfg:                cfg,
		logger:             slog.New(slog.NewTextHandler(io.Discard, nil)),
		staleAfter:         cfg.StaleAfter,
		lowBattery:         cfg.LowBattery,
		autoLandLowBattery: cfg.AutoLandOnLowBattery,
	}

	for _, option := range options {
		option(s)
	}

	if s.opener == nil {
		s.opener = &transport.UDP{
			Peer:             cfg.PeerAddr,
			CommandPort:      cfg.CommandPort,
			LocalCommandPort: cfg.LocalCommandPort,
			StatePort:        cfg.StatePort,
			VideoPort:        cfg.VideoPort,
			Logger:           s.logger,
		}
	}

	return s
}

// Connect opens the command and state channels and enters SDK mode. On
// failure the session is left in Error with its channels open; call Connect
// again or Disconnect. A Disconnect during the handshake wins: the session
// stays Disconnected and Connect returns the handshake error.
func (s *Session) Connect(ctx context.Context) error {
	if err := s.cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	s.mx.Lock()
	if s.state != Disconnected && s.state != Error {
		st := s.state
		s.mx.Unlock()
		return fmt.Errorf("%w: state %s", ErrAlreadyConnected, st)
	}
	closers := s.detachLocked()
	s.mx.Unlock()

	s.release(closers)
	s.setState(Connecting)

	runCtx, cancel := context.WithCancel(context.Background())

	d := dispatcher.New(senderFunc(s.sendCommandChannel),
		dispatcher.WithTimeout(s.cfg.ResponseTimeout),
		dispatcher.WithSettleDelay(s.cfg.SettleDelay),
		dispatcher.WithLogger(s.logger),
	)

	s.mx.Lock()
	s.dispatcher = d
	s.cancel = cancel
	s.mx.Unlock()

	go d.Run(runCtx)

	cmdCh, err := s.opener.Open(transport.Command, s.onReply)
	if err != nil {
		s.transition(Connecting, Error)
		return err
	}

	s.mx.Lock()
	s.cmdCh = cmdCh
	s.mx.Unlock()

	stateCh, err := s.opener.Open(transport.State, s.onState)
	if err != nil {
		s.transition(Connecting, Error)
		return err
	}

	s.mx.Lock()
	s.stateCh = stateCh
	s.mx.Unlock()

	resp, err := d.Submit(ctx, protocol.Enter())
	if err != nil {
		s.transition(Connecting, Error)
		return fmt.Errorf("%w: %w", ErrHandshake, err)
	}

	if !resp.OK {
		s.transition(Connecting, Error)
		return fmt.Errorf("%w: %s", ErrHandshake, resp.Message)
	}

	s.mx.Lock()
	if s.state != Connecting {
		s.mx.Unlock()
		return ErrNotConnected
	}
	s.lastUpdate = time.Now()
	s.mx.Unlock()

	go periodical(runCtx, s.cfg.MonitorInterval, s.checkLiveness)

	if !s.transition(Connecting, Connected) {
		return ErrNotConnected
	}
	s.logger.Info("connected", slog.String("peer", s.cfg.PeerAddr))

	return nil
}

// Disconnect stops the monitor, fails pending commands and closes every channel.
func (s *Session) Disconnect() {
	s.mx.Lock()
	closers := s.detachLocked()
	s.mx.Unlock()

	s.release(closers)
	s.setState(Disconnected)
}

type detached struct {
	cancel     context.CancelFunc
	dispatcher *dispatcher.Dispatcher
	channels   []transport.Channel
}

func (s *Session) detachLocked() detached {
	d := detached{cancel: s.cancel, dispatcher: s.dispatcher}

	for _, ch := range []transport.Channel{s.cmdCh, s.stateCh, s.videoCh} {
		if ch != nil {
			d.channels = append(d.channels, ch)
		}
	}

	s.cancel = nil
	s.dispatcher = nil
	s.cmdCh, s.stateCh, s.videoCh = nil, nil, nil

	return d
}

func (s *Session) release(d detached) {
	if d.cancel != nil {
		d.cancel()
	}

	if d.dispatcher != nil {
		d.dispatcher.Close()
	}

	for _, ch := range d.channels {
		if err := ch.Close(); err != nil {
			s.logger.Error("close channel", slog.Any("error", err))
		}
	}
}

func (s *Session) setState(st ConnectionState) {
	s.mx.Lock()
	old := s.state
	s.state = st
	s.mx.Unlock()

	if old != st {
		s.logger.Info("connection state", slog.String("from", old.String()), slog.String("to", st.String()))
		s.connObs.notify(st)
	}
}

// transition moves from one state to another only if the session is still in
// from, and reports whether it did.
func (s *Session) transition(from, to ConnectionState) bool {
	s.mx.Lock()
	if s.state != from {
		s.mx.Unlock()
		return false
	}
	s.state = to
	s.mx.Unlock()

	s.logger.Info("connection state", slog.String("from", from.String()), slog.String("to", to.String()))
	s.connObs.notify(to)

	return true
}

func (s *Session) ConnectionState() ConnectionState {
	s.mx.RLock()
	defer s.mx.RUnlock()
	return s.state
}

func (s *Session) IsFlying() bool {
	return s.ConnectionState() == Flying
}

// State returns the latest telemetry snapshot.
func (s *Session) State() protocol.State {
	s.mx.RLock()
	defer s.mx.RUnlock()
	return s.snapshot
}

func (s *Session) LastUpdate() time.Time {
	s.mx.RLock()
	defer s.mx.RUnlock()
	return s.lastUpdate
}

func (s *Session) Config() Config {
	return s.cfg
}

// LowBatteryThreshold returns the current threshold, including changes made
// with SetLowBatteryThreshold.
func (s *Session) LowBatteryThreshold() float64 {
	s.mx.RLock()
	defer s.mx.RUnlock()
	return s.lowBattery
}

// OnStateUpdate subscribes to telemetry snapshots. The returned func unsubscribes.
func (s *Session) OnStateUpdate(f func(protocol.State)) func() {
	return s.stateObs.add(f)
}

func (s *Session) OnConnectionStateChange(f func(ConnectionState)) func() {
	return s.connObs.add(f)
}

// OnLowBattery is called with the battery percentage of every snapshot at or
// below the threshold.
func (s *Session) OnLowBattery(f func(battery float64)) func() {
	return s.batteryObs.add(f)
}

func (s *Session) onReply(data []byte) {
	s.mx.RLock()
	d := s.dispatcher
	s.mx.RUnlock()

	if d != nil {
		d.Deliver(data)
	}
}

func (s *Session) onState(data []byte) {
	st := protocol.ParseState(string(data))

	s.mx.Lock()
	s.snapshot = st
	s.lastUpdate = time.Now()
	s.mx.Unlock()

	s.stateObs.notify(st)
	s.checkBattery(st)
}

type senderFunc func(data []byte) error

func (f senderFunc) Send(data []byte) error {
	return f(data)
}

func (s *Session) sendCommandChannel(data []byte) error {
	s.mx.RLock()
	ch := s.cmdCh
	s.mx.RUnlock()

	if ch == nil {
		return transport.ErrClosed
	}

	return ch.Send(data)
}

func (s *Session) submit(ctx context.Context, cmd protocol.Command) (protocol.Response, error) {
	s.mx.RLock()
	d := s.dispatcher
	s.mx.RUnlock()

	if d == nil {
		return protocol.Response{}, ErrNotConnected
	}

	return d.Submit(ctx, cmd)
}

// run submits cmd unless the encoder rejected its arguments, in which case
// the failure is returned as a Response without any I/O.
func (s *Session) run(ctx context.Context, cmd protocol.Command, err error) (protocol.Response, error) {
	if err != nil {
		s.logger.Debug("command rejected locally", slog.Any("error", err))
		return protocol.Failure(err.Error()), nil
	}

	return s.submit(ctx, cmd)
}

// sendDirect writes cmd to the command channel, bypassing the queue.
func (s *Session) sendDirect(cmd protocol.Command) (bool, error) {
	s.mx.RLock()
	ch := s.cmdCh
	s.mx.RUnlock()

	if ch == nil {
		return false, nil
	}

	if err := ch.Send(cmd.Marshal()); err != nil {
		return true, fmt.Errorf("send %q: %w", cmd.Text, err)
	}

	return true, nil
}
