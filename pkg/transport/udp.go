package transport

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"strconv"
	"sync"
	"sync/atomic"
)

type Kind int

const (
	Command Kind = iota
	State
	Video
)

func (k Kind) String() string {
	switch k {
	case Command:
		return "command"
	case State:
		return "state"
	case Video:
		return "video"
	}
	return "unknown"
}

var ErrClosed = errors.New("channel closed")

// Handler receives a copy of every datagram read from a channel.
type Handler func(data []byte)

// Channel is one bound datagram socket.
type Channel interface {
	Send(data []byte) error
	Close() error
	LocalAddr() net.Addr
}

// Opener binds channels. The returned channel delivers datagrams to h until closed.
type Opener interface {
	Open(kind Kind, h Handler) (Channel, error)
}

// UDP opens real sockets. Command sends go to Peer:CommandPort; state and
// video channels only listen on their local ports.
type UDP struct {
	Peer             string
	CommandPort      int
	LocalCommandPort int
	StatePort        int
	VideoPort        int
	Logger           *slog.Logger
}

func (u *UDP) Open(kind Kind, h Handler) (Channel, error) {
	var local string
	var remote *net.UDPAddr

	switch kind {
	case Command:
		a, err := net.ResolveUDPAddr("udp", net.JoinHostPort(u.Peer, strconv.Itoa(u.CommandPort)))
		if err != nil {
			return nil, err
		}
		remote = a
		local = ":" + strconv.Itoa(u.LocalCommandPort)
	case State:
		local = ":" + strconv.Itoa(u.StatePort)
	case Video:
		local = ":" + strconv.Itoa(u.VideoPort)
	default:
		return nil, fmt.Errorf("unknown channel kind %d", kind)
	}

	conn, err := listen(local)
	if err != nil {
		return nil, fmt.Errorf("bind %s channel: %w", kind, err)
	}

	logger := u.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	c := &udpChannel{
		kind:   kind,
		conn:   conn,
		remote: remote,
		logger: logger.With(slog.String("channel", kind.String())),
	}

	c.wg.Add(1)
	go c.reader(h)

	return c, nil
}

func listen(addr string) (*net.UDPConn, error) {
	a, err := net.ResolveUDPAddr("udp", addr)
	if err != nil {
		return nil, err
	}

	return net.ListenUDP("udp", a)
}

type udpChannel struct {
	kind   Kind
	conn   *net.UDPConn
	remote *net.UDPAddr
	closed atomic.Bool
	wg     sync.WaitGroup
	logger *slog.Logger
}

func (c *udpChannel) Send(data []byte) error {
	if c.closed.Load() {
		return ErrClosed
	}

	if c.remote == nil {
		return fmt.Errorf("%s channel is receive only", c.kind)
	}

	_, err := c.conn.WriteToUDP(data, c.remote)
	return err
}

func (c *udpChannel) LocalAddr() net.Addr {
	return c.conn.LocalAddr()
}

func (c *udpChannel) Close() error {
	if !c.closed.CompareAndSwap(false, true) {
		return nil
	}

	err := c.conn.Close()
	c.wg.Wait()

	return err
}

func (c *udpChannel) reader(h Handler) {
	defer c.wg.Done()

	buf := make([]byte, 65535)

	for {
		n, _, err := c.conn.ReadFromUDP(buf)

		if err != nil {
			if c.closed.Load() || errors.Is(err, net.ErrClosed) {
				return
			}
			c.logger.Error("read error", slog.Any("error", err))
			continue
		}

		msg := make([]byte, n)
		copy(msg, buf[:n])

		if h != nil {
			h(msg)
		}
	}
}
