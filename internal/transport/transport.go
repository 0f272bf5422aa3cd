package transport

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrClosed is returned by Send after the connection ended.
var ErrClosed = errors.New("connection closed")

// FrameKind tells text frames from binary frames.
type FrameKind int

const (
	FrameText FrameKind = iota
	FrameBinary
)

func (k FrameKind) String() string {
	if k == FrameBinary {
		return "binary"
	}
	return "text"
}

// Frame is one inbound message.
type Frame struct {
	Kind FrameKind
	Data []byte
}

// Conn is an open channel session.
type Conn interface {
	// Frames yields inbound frames in arrival order and is closed when the
	// connection ends.
	Frames() <-chan Frame
	// Send queues one outbound text frame.
	Send(data []byte) error
	Close() error
}

// Dialer opens connections to one device.
type Dialer interface {
	Dial(ctx context.Context) (Conn, error)
}

const (
	KindWebSocket = "websocket"
	KindSocketIO  = "socketio"
)

// Options configures the dialer returned by New.
type Options struct {
	Kind        string
	URL         string
	DialTimeout time.Duration
}

// DefaultDialTimeout bounds connection establishment.
const DefaultDialTimeout = 15 * time.Second

// New returns the dialer for the configured transport kind.
func New(opts Options) (Dialer, error) {
	if opts.DialTimeout <= 0 {
		opts.DialTimeout = DefaultDialTimeout
	}
	switch opts.Kind {
	case "", KindWebSocket:
		return NewWebSocket(opts.URL, opts.DialTimeout), nil
	case KindSocketIO:
		return NewSocketIO(opts.URL, opts.DialTimeout)
	default:
		return nil, fmt.Errorf("unknown transport %q", opts.Kind)
	}
}
