package transport

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/vk/starmirror/internal/ctxlog"
)

const (
	writeTimeout = 5 * time.Second
	frameBuffer  = 64
)

// WebSocket dials a plain websocket endpoint such as ws://device/ws.
type WebSocket struct {
	url    string
	dialer *websocket.Dialer
}

// NewWebSocket creates a websocket dialer.
func NewWebSocket(url string, timeout time.Duration) *WebSocket {
	return &WebSocket{
		url: url,
		dialer: &websocket.Dialer{
			Proxy:            websocket.DefaultDialer.Proxy,
			HandshakeTimeout: timeout,
		},
	}
}

// Dial connects and starts the read pump.
func (d *WebSocket) Dial(ctx context.Context) (Conn, error) {
	logger := ctxlog.Component(ctx, "transport").With("url", d.url)
	logger.Debug("Dialing websocket.")

	ws, _, err := d.dialer.DialContext(ctx, d.url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to dial %s: %w", d.url, err)
	}
	c := &wsConn{
		logger: logger,
		ws:     ws,
		frames: make(chan Frame, frameBuffer),
		done:   make(chan struct{}),
	}
	go c.readPump()
	logger.Info("Websocket connected.")
	return c, nil
}

type wsConn struct {
	logger *slog.Logger
	ws     *websocket.Conn
	frames chan Frame

	writeMu sync.Mutex
	once    sync.Once
	done    chan struct{}
}

func (c *wsConn) Frames() <-chan Frame { return c.frames }

func (c *wsConn) readPump() {
	defer close(c.frames)
	defer c.Close()
	for {
		messageType, message, err := c.ws.ReadMessage()
		if err != nil {
			select {
			case <-c.done:
				c.logger.Debug("Websocket read pump stopped.")
			default:
				c.logger.Warn("Websocket read failed.", "error", err)
			}
			return
		}
		var f Frame
		switch messageType {
		case websocket.TextMessage:
			f = Frame{Kind: FrameText, Data: message}
		case websocket.BinaryMessage:
			f = Frame{Kind: FrameBinary, Data: message}
		default:
			continue
		}
		select {
		case c.frames <- f:
		case <-c.done:
			return
		}
	}
}

func (c *wsConn) Send(data []byte) error {
	select {
	case <-c.done:
		return ErrClosed
	default:
	}
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	c.ws.SetWriteDeadline(time.Now().Add(writeTimeout))
	if err := c.ws.WriteMessage(websocket.TextMessage, data); err != nil {
		return fmt.Errorf("failed to write frame: %w", err)
	}
	return nil
}

func (c *wsConn) Close() error {
	var err error
	c.once.Do(func() {
		close(c.done)
		c.writeMu.Lock()
		c.ws.SetWriteDeadline(time.Now().Add(writeTimeout))
		_ = c.ws.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		c.writeMu.Unlock()
		err = c.ws.Close()
	})
	return err
}
