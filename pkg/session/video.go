package session

import (
	"context"
	"fmt"
	"log/slog"

	"tello/pkg/protocol"
	"tello/pkg/transport"
)

// VideoURL is the locator a video surface should open to read the raw H.264 stream.
func (s *Session) VideoURL() string {
	return fmt.Sprintf("udp://0.0.0.0:%d", s.cfg.VideoPort)
}

// VideoBytes returns the number of video bytes received since the session was created.
func (s *Session) VideoBytes() uint64 {
	return s.videoBytes.Load()
}

// StreamOn binds the video channel, if not bound yet, and asks the drone to stream.
func (s *Session) StreamOn(ctx context.Context) (protocol.Response, error) {
	s.mx.Lock()
	if s.cmdCh == nil {
		s.mx.Unlock()
		return protocol.Response{}, ErrNotConnected
	}

	if s.videoCh == nil {
		ch, err := s.opener.Open(transport.Video, s.onVideo)
		if err != nil {
			s.mx.Unlock()
			return protocol.Response{}, err
		}
		s.videoCh = ch
	}
	s.mx.Unlock()

	return s.submit(ctx, protocol.StreamOn())
}

// StreamOff asks the drone to stop streaming and closes the video channel.
func (s *Session) StreamOff(ctx context.Context) (protocol.Response, error) {
	resp, err := s.submit(ctx, protocol.StreamOff())

	s.mx.Lock()
	ch := s.videoCh
	s.videoCh = nil
	s.mx.Unlock()

	if ch != nil {
		if cerr := ch.Close(); cerr != nil {
			s.logger.Error("close video channel", slog.Any("error", cerr))
		}
	}

	return resp, err
}

func (s *Session) onVideo(data []byte) {
	s.videoBytes.Add(uint64(len(data)))

	if s.videoSink != nil {
		s.videoSink(data)
	}
}
