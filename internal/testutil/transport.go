package testutil

import (
	"context"
	"errors"
	"sync"

	"github.com/vk/starmirror/internal/transport"
)

// FakeDialer hands out in-memory connections. Every successful Dial is
// announced on Dials so a test can script the device side.
type FakeDialer struct {
	Dials chan *FakeConn

	mu    sync.Mutex
	fails int
	count int
}

// NewFakeDialer creates a dialer whose first fails dials return an error.
func NewFakeDialer(fails int) *FakeDialer {
	return &FakeDialer{Dials: make(chan *FakeConn, 16), fails: fails}
}

// Dial implements transport.Dialer.
func (d *FakeDialer) Dial(ctx context.Context) (transport.Conn, error) {
	d.mu.Lock()
	d.count++
	if d.fails > 0 {
		d.fails--
		d.mu.Unlock()
		return nil, errors.New("device unreachable")
	}
	d.mu.Unlock()

	c := NewFakeConn()
	select {
	case d.Dials <- c:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	return c, nil
}

// Count returns how many dials were attempted.
func (d *FakeDialer) Count() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.count
}

// FakeConn is an in-memory transport.Conn.
type FakeConn struct {
	frames chan transport.Frame
	sent   chan []byte

	once sync.Once
	mu   sync.RWMutex
	done chan struct{}
}

// NewFakeConn creates an open connection.
func NewFakeConn() *FakeConn {
	return &FakeConn{
		frames: make(chan transport.Frame, 64),
		sent:   make(chan []byte, 64),
		done:   make(chan struct{}),
	}
}

func (c *FakeConn) Frames() <-chan transport.Frame { return c.frames }

// Push delivers a text frame as if the device sent it.
func (c *FakeConn) Push(data string) {
	c.PushFrame(transport.Frame{Kind: transport.FrameText, Data: []byte(data)})
}

// PushFrame delivers an arbitrary frame. Frames pushed after Close are
// dropped.
func (c *FakeConn) PushFrame(f transport.Frame) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	select {
	case <-c.done:
		return
	default:
	}
	c.frames <- f
}

// Sent yields every frame the mirror sent.
func (c *FakeConn) Sent() <-chan []byte { return c.sent }

func (c *FakeConn) Send(data []byte) error {
	select {
	case <-c.done:
		return transport.ErrClosed
	default:
	}
	c.sent <- append([]byte(nil), data...)
	return nil
}

func (c *FakeConn) Close() error {
	c.once.Do(func() {
		close(c.done)
		c.mu.Lock()
		close(c.frames)
		c.mu.Unlock()
	})
	return nil
}

// Closed reports whether Close was called, by either side.
func (c *FakeConn) Closed() bool {
	select {
	case <-c.done:
		return true
	default:
		return false
	}
}
