// Package dispatcher serialises SDK commands over the command channel.
//
// Commands run strictly one at a time in submission order. The peer carries
// no request ids, so whatever datagram arrives next on the command channel is
// the reply of the command in flight.
package dispatcher

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"tello/pkg/protocol"
)

var ErrClosed = errors.New("dispatcher closed")

type Sender interface {
	Send(data []byte) error
}

type result struct {
	resp protocol.Response
	err  error
}

type entry struct {
	cmd protocol.Command
	res chan result
}

func (e *entry) resolve(r protocol.Response) {
	e.res <- result{resp: r}
}

func (e *entry) reject(err error) {
	e.res <- result{err: err}
}

type Dispatcher struct {
	sender   Sender
	timeout  time.Duration
	settle   time.Duration
	queue    chan *entry
	done     chan struct{}
	once     sync.Once
	mx       sync.Mutex
	waiter   chan []byte
	inFlight atomic.Bool
	logger   *slog.Logger
}

type Option func(d *Dispatcher)

// WithTimeout sets the reply timeout used by commands without their own.
func WithTimeout(t time.Duration) Option {
	return func(d *Dispatcher) {
		d.timeout = t
	}
}

// WithSettleDelay sets the pause between two consecutive commands.
func WithSettleDelay(t time.Duration) Option {
	return func(d *Dispatcher) {
		d.settle = t
	}
}

func WithQueueSize(n int) Option {
	return func(d *Dispatcher) {
		d.queue = make(chan *entry, n)
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(d *Dispatcher) {
		d.logger = logger.With(slog.String("component", "dispatcher"))
	}
}

func New(sender Sender, options ...Option) *Dispatcher {
	d := &Dispatcher{
		sender:  sender,
		timeout: protocol.DefaultResponseTimeout,
		settle:  protocol.SettleDelay,
		queue:   make(chan *entry, 50),
		done:    make(chan struct{}),
		logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
	}

	for _, option := range options {
		option(d)
	}

	return d
}

// Submit queues cmd and waits for its outcome. Timeouts and non-"ok" replies
// come back as a failed Response; the error is reserved for send failures,
// shutdown and ctx cancellation.
func (d *Dispatcher) Submit(ctx context.Context, cmd protocol.Command) (protocol.Response, error) {
	if cmd.Empty() {
		return protocol.Failure("empty command"), nil
	}

	e := &entry{cmd: cmd, res: make(chan result, 1)}

	select {
	case <-d.done:
		return protocol.Response{}, ErrClosed
	default:
	}

	select {
	case d.queue <- e:
	case <-d.done:
		return protocol.Response{}, ErrClosed
	case <-ctx.Done():
		return protocol.Response{}, ctx.Err()
	}

	select {
	case r := <-e.res:
		return r.resp, r.err
	case <-d.done:
		select {
		case r := <-e.res:
			return r.resp, r.err
		default:
			return protocol.Response{}, ErrClosed
		}
	case <-ctx.Done():
		return protocol.Response{}, ctx.Err()
	}
}

// Deliver hands a datagram read from the command channel to the command in
// flight. Datagrams nobody waits for are dropped.
func (d *Dispatcher) Deliver(data []byte) {
	d.mx.Lock()
	w := d.waiter
	d.waiter = nil
	d.mx.Unlock()

	if w == nil {
		d.logger.Debug("unsolicited reply dropped", slog.String("reply", string(data)))
		return
	}

	w <- data
}

// Busy reports whether a command is in flight.
func (d *Dispatcher) Busy() bool {
	return d.inFlight.Load()
}

// Pending returns the number of queued commands, not counting the one in flight.
func (d *Dispatcher) Pending() int {
	return len(d.queue)
}

// Close stops the worker. Queued and in-flight commands fail with ErrClosed.
func (d *Dispatcher) Close() {
	d.once.Do(func() {
		close(d.done)
	})
}

// Run drains the queue until ctx is done or Close is called.
func (d *Dispatcher) Run(ctx context.Context) {
	defer d.drain()

	var last time.Time

	for {
		select {
		case e := <-d.queue:
			if !last.IsZero() {
				if wait := d.settle - time.Since(last); wait > 0 {
					if !d.sleep(ctx, wait) {
						e.reject(ErrClosed)
						return
					}
				}
			}

			d.process(e)
			last = time.Now()

		case <-ctx.Done():
			d.Close()
			return

		case <-d.done:
			return
		}
	}
}

func (d *Dispatcher) sleep(ctx context.Context, t time.Duration) bool {
	timer := time.NewTimer(t)
	defer timer.Stop()

	select {
	case <-timer.C:
		return true
	case <-ctx.Done():
		d.Close()
		return false
	case <-d.done:
		return false
	}
}

func (d *Dispatcher) drain() {
	for {
		select {
		case e := <-d.queue:
			e.reject(ErrClosed)
		default:
			return
		}
	}
}

func (d *Dispatcher) process(e *entry) {
	d.inFlight.Store(true)
	defer d.inFlight.Store(false)

	logger := d.logger.With(slog.String("cmd", e.cmd.Text))

	if !e.cmd.ExpectResponse {
		if err := d.sender.Send(e.cmd.Marshal()); err != nil {
			logger.Error("send failed", slog.Any("error", err))
			e.reject(fmt.Errorf("send %q: %w", e.cmd.Text, err))
			return
		}
		logger.Debug("sent without reply")
		e.resolve(protocol.Success())
		return
	}

	timeout := e.cmd.Timeout
	if timeout <= 0 {
		timeout = d.timeout
	}

	replies := make(chan []byte, 1)
	d.setWaiter(replies)
	defer d.clearWaiter(replies)

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	start := time.Now()

	if err := d.sender.Send(e.cmd.Marshal()); err != nil {
		logger.Error("send failed", slog.Any("error", err))
		e.reject(fmt.Errorf("send %q: %w", e.cmd.Text, err))
		return
	}

	select {
	case data := <-replies:
		resp := protocol.NewResponse(data)
		logger.Debug("reply", slog.String("reply", resp.Message), slog.Duration("took", time.Since(start)))
		e.resolve(resp)

	case <-timer.C:
		logger.Warn("no reply", slog.Duration("timeout", timeout))
		e.resolve(protocol.Failure(protocol.TimeoutMessage))

	case <-d.done:
		e.reject(ErrClosed)
	}
}

func (d *Dispatcher) setWaiter(w chan []byte) {
	d.mx.Lock()
	d.waiter = w
	d.mx.Unlock()
}

func (d *Dispatcher) clearWaiter(w chan []byte) {
	d.mx.Lock()
	if d.waiter == w {
		d.waiter = nil
	}
	d.mx.Unlock()
}
