package session

import (
	"net"
	"sync"
	"sync/atomic"
	"time"

	"tello/pkg/transport"
)

type fakeChannel struct {
	kind   transport.Kind
	net    *fakeNet
	h      transport.Handler
	closed atomic.Bool
}

func (c *fakeChannel) Send(data []byte) error {
	if c.closed.Load() {
		return transport.ErrClosed
	}

	c.net.sendCommand(c, string(data))
	return nil
}

func (c *fakeChannel) Close() error {
	c.closed.Store(true)
	return nil
}

func (c *fakeChannel) LocalAddr() net.Addr {
	return &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1)}
}

// fakeNet is an in-memory peer. reply decides the answer to each command;
// returning false leaves the command unanswered.
type fakeNet struct {
	mx       sync.Mutex
	sent     []string
	channels map[transport.Kind]*fakeChannel
	opened   map[transport.Kind]int
	reply    func(text string) (string, bool)
	delay    time.Duration
	openErr  error
}

func newFakeNet() *fakeNet {
	return &fakeNet{
		channels: make(map[transport.Kind]*fakeChannel),
		opened:   make(map[transport.Kind]int),
		reply: func(text string) (string, bool) {
			return "ok", true
		},
		delay: 2 * time.Millisecond,
	}
}

func (n *fakeNet) Open(kind transport.Kind, h transport.Handler) (transport.Channel, error) {
	n.mx.Lock()
	defer n.mx.Unlock()

	if n.openErr != nil {
		return nil, n.openErr
	}

	c := &fakeChannel{kind: kind, net: n, h: h}
	n.channels[kind] = c
	n.opened[kind]++

	return c, nil
}

func (n *fakeNet) sendCommand(c *fakeChannel, text string) {
	n.mx.Lock()
	n.sent = append(n.sent, text)
	reply := n.reply
	delay := n.delay
	n.mx.Unlock()

	if r, ok := reply(text); ok {
		go func() {
			time.Sleep(delay)
			if !c.closed.Load() {
				c.h([]byte(r))
			}
		}()
	}
}

func (n *fakeNet) setReply(f func(text string) (string, bool)) {
	n.mx.Lock()
	n.reply = f
	n.mx.Unlock()
}

func (n *fakeNet) commands() []string {
	n.mx.Lock()
	defer n.mx.Unlock()

	res := make([]string, len(n.sent))
	copy(res, n.sent)
	return res
}

func (n *fakeNet) count(text string) int {
	var c int
	for _, s := range n.commands() {
		if s == text {
			c++
		}
	}
	return c
}

func (n *fakeNet) channel(kind transport.Kind) *fakeChannel {
	n.mx.Lock()
	defer n.mx.Unlock()
	return n.channels[kind]
}

// push delivers a datagram on a listening channel as if the drone sent it.
func (n *fakeNet) push(kind transport.Kind, data string) {
	if c := n.channel(kind); c != nil && !c.closed.Load() {
		c.h([]byte(data))
	}
}
