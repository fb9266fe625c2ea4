package session

// ConnectionState is the lifecycle state of a Session.
type ConnectionState int

const (
	Disconnected ConnectionState = iota
	Connecting
	Connected
	Flying
	Error
)

func (c ConnectionState) String() string {
	switch c {
	case Disconnected:
		return "disconnected"
	case Connecting:
		return "connecting"
	case Connected:
		return "connected"
	case Flying:
		return "flying"
	case Error:
		return "error"
	}
	return "unknown"
}

// Online reports whether the handshake succeeded and the link is considered alive.
func (c ConnectionState) Online() bool {
	return c == Connected || c == Flying
}
