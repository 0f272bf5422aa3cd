package transport

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"
	"sync"
	"time"

	"github.com/zishang520/engine.io-client-go/transports"
	"github.com/zishang520/engine.io/v2/types"
	"github.com/zishang520/socket.io-client-go/socket"

	"github.com/vk/starmirror/internal/ctxlog"
)

const (
	// EventMessage carries text frames in both directions.
	EventMessage = "message"
	// EventPreview carries binary frames from the device.
	EventPreview = "preview"
)

// SocketIO dials a device fronted by a socket.io bridge. The URL path is the
// socket.io path; the fragment, if any, names the namespace.
type SocketIO struct {
	baseURL   string
	path      string
	namespace string
	timeout   time.Duration
}

// NewSocketIO parses the device URL into a socket.io dialer.
func NewSocketIO(rawURL string, timeout time.Duration) (*SocketIO, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse URL: %w", err)
	}
	ns := "/"
	if parsed.Fragment != "" {
		ns = "/" + parsed.Fragment
	}
	return &SocketIO{
		baseURL:   fmt.Sprintf("%s://%s", parsed.Scheme, parsed.Host),
		path:      parsed.Path,
		namespace: ns,
		timeout:   timeout,
	}, nil
}

// Dial connects and waits for the connect event.
func (d *SocketIO) Dial(ctx context.Context) (Conn, error) {
	logger := ctxlog.Component(ctx, "transport").With("url", d.baseURL, "namespace", d.namespace)
	logger.Debug("Dialing socket.io.")

	opts := socket.DefaultOptions()
	if d.path != "" {
		opts.SetPath(d.path)
	}
	opts.SetTransports(types.NewSet(transports.WebSocket))
	opts.SetReconnection(false)

	manager := socket.NewManager(d.baseURL, opts)
	io := manager.Socket(d.namespace, opts)

	c := &sioConn{
		logger: logger,
		io:     io,
		frames: make(chan Frame, frameBuffer),
		done:   make(chan struct{}),
	}
	io.On(types.EventName(EventMessage), func(args ...any) { c.deliver(FrameText, args) })
	io.On(types.EventName(EventPreview), func(args ...any) { c.deliver(FrameBinary, args) })
	io.On(types.EventName("disconnect"), func(args ...any) {
		logger.Info("Socket.io disconnected.", "reason", args)
		c.Close()
	})

	connected := make(chan error, 1)
	io.Once(types.EventName("connect"), func(...any) {
		connected <- nil
	})
	io.Once(types.EventName("connect_error"), func(errs ...any) {
		var err error = fmt.Errorf("connect error")
		if len(errs) > 0 {
			if e, ok := errs[0].(error); ok {
				err = e
			}
		}
		connected <- err
	})
	io.Connect()

	select {
	case err := <-connected:
		if err != nil {
			c.Close()
			return nil, fmt.Errorf("socket.io connection failed: %w", err)
		}
		logger.Info("Socket.io connected.", "sid", io.Id())
		return c, nil
	case <-ctx.Done():
		c.Close()
		return nil, fmt.Errorf("context cancelled while waiting for socket.io connection: %w", ctx.Err())
	case <-time.After(d.timeout):
		c.Close()
		return nil, fmt.Errorf("timed out after %v waiting for socket.io connection", d.timeout)
	}
}

type sioConn struct {
	logger *slog.Logger
	io     *socket.Socket
	frames chan Frame

	mu   sync.RWMutex
	once sync.Once
	done chan struct{}
}

func (c *sioConn) Frames() <-chan Frame { return c.frames }

// deliver forwards the first event argument as a frame. Socket.io callbacks
// run on the client's own goroutines; mu keeps Close from closing the frame
// channel under a pending delivery.
func (c *sioConn) deliver(kind FrameKind, args []any) {
	if len(args) == 0 {
		return
	}
	data, err := payloadBytes(args[0])
	if err != nil {
		c.logger.Warn("Socket.io payload dropped.", "kind", kind.String(), "error", err)
		return
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	select {
	case <-c.done:
		return
	default:
	}
	select {
	case <-c.done:
	case c.frames <- Frame{Kind: kind, Data: data}:
	}
}

func payloadBytes(arg any) ([]byte, error) {
	switch v := arg.(type) {
	case []byte:
		return v, nil
	case string:
		return []byte(v), nil
	case interface{ Bytes() []byte }:
		return v.Bytes(), nil
	default:
		return json.Marshal(v)
	}
}

func (c *sioConn) Send(data []byte) error {
	select {
	case <-c.done:
		return ErrClosed
	default:
	}
	if err := c.io.Emit(EventMessage, string(data)); err != nil {
		return fmt.Errorf("failed to emit frame: %w", err)
	}
	return nil
}

func (c *sioConn) Close() error {
	c.once.Do(func() {
		close(c.done)
		c.mu.Lock()
		close(c.frames)
		c.mu.Unlock()
		c.io.Disconnect()
	})
	return nil
}
