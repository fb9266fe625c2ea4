package protocol

import (
	"fmt"
	"strings"
	"time"
)

const (
	ReplyOK    = "ok"
	ReplyError = "error"

	// TimeoutMessage is the message of a Response whose command got no reply in time.
	TimeoutMessage = "timeout"
)

// Command is a single SDK request. A zero Timeout means the connection default.
type Command struct {
	Text           string
	Timeout        time.Duration
	ExpectResponse bool
}

func NewCommand(text string) Command {
	return Command{Text: text, ExpectResponse: true}
}

func (c Command) WithTimeout(t time.Duration) Command {
	c.Timeout = t
	return c
}

func (c Command) NoResponse() Command {
	c.ExpectResponse = false
	return c
}

func (c Command) Empty() bool {
	return strings.TrimSpace(c.Text) == ""
}

func (c Command) Marshal() []byte {
	return []byte(c.Text)
}

func (c Command) String() string {
	if c.Timeout > 0 {
		return fmt.Sprintf("%q (timeout %s)", c.Text, c.Timeout)
	}
	return fmt.Sprintf("%q", c.Text)
}

// Response is the outcome of a completed command. OK is set only when the
// peer answered the literal "ok".
type Response struct {
	OK      bool
	Message string
}

func NewResponse(reply []byte) Response {
	msg := strings.TrimSpace(string(reply))
	return Response{OK: msg == ReplyOK, Message: msg}
}

func Success() Response {
	return Response{OK: true, Message: ReplyOK}
}

func Failure(msg string) Response {
	return Response{Message: msg}
}

func (r Response) TimedOut() bool {
	return !r.OK && r.Message == TimeoutMessage
}

func (r Response) String() string {
	if r.OK {
		return "ok"
	}
	return "failed: " + r.Message
}
