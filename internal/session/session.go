package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/vk/starmirror/internal/ctxlog"
	"github.com/vk/starmirror/internal/engine"
	"github.com/vk/starmirror/internal/outbound"
	"github.com/vk/starmirror/internal/transport"
)

// DefaultReconnectDelay is the pause between a channel failure and the next
// dial.
const DefaultReconnectDelay = 1500 * time.Millisecond

// errWatchdog ends a channel whose device stayed silent after a send.
var errWatchdog = errors.New("watchdog expired")

// Handler consumes what the event loop delivers. *engine.Engine satisfies it.
type Handler interface {
	HandleText(data []byte)
	HandleInteraction(i engine.Interaction)
	SetInteractionSink(fn func(engine.Interaction))
	SetStatus(s outbound.Status)
	// RequestOutstanding re-sends computations a previous channel session
	// left unanswered.
	RequestOutstanding()
}

// BinarySink receives binary frames untouched.
type BinarySink interface {
	HandleBinary(ctx context.Context, data []byte)
}

// Options configures a Session. Dialer is required.
type Options struct {
	Dialer         transport.Dialer
	Binary         BinarySink
	ReconnectDelay time.Duration
	Watchdog       time.Duration
	ComputeKey     string
	// OnStatus observes every connectivity change.
	OnStatus func(outbound.Status)
}

// Session is the channel to one device. Start opens a channel session,
// Reset tears it down; Run alternates the two until its context ends.
type Session struct {
	ctx    context.Context
	logger *slog.Logger
	opts   Options
	out    *outbound.Batcher

	edits    chan engine.Interaction
	timeouts chan struct{}

	status atomic.Int32

	mu      sync.Mutex
	conn    transport.Conn
	id      ulid.ULID
	handler Handler
}

// New creates a Session and its outbound batcher. The batcher is the outbox
// the engine must be built with.
func New(ctx context.Context, opts Options) *Session {
	if opts.ReconnectDelay <= 0 {
		opts.ReconnectDelay = DefaultReconnectDelay
	}
	s := &Session{
		ctx:      ctx,
		logger:   ctxlog.Component(ctx, "session"),
		opts:     opts,
		edits:    make(chan engine.Interaction, 64),
		timeouts: make(chan struct{}, 1),
	}
	s.status.Store(-1)
	s.out = outbound.NewBatcher(ctx, outbound.Options{
		Watchdog:   opts.Watchdog,
		ComputeKey: opts.ComputeKey,
		OnTimeout:  s.watchdogExpired,
		OnStatus:   s.setStatus,
	})
	return s
}

// Outbox returns the outbound batcher of the session.
func (s *Session) Outbox() *outbound.Batcher { return s.out }

// Status returns the current connectivity state.
func (s *Session) Status() outbound.Status {
	st := s.status.Load()
	if st < 0 {
		return outbound.StatusDisconnected
	}
	return outbound.Status(st)
}

// ID returns the ulid of the current channel session, or the zero ulid when
// no channel is open.
func (s *Session) ID() ulid.ULID {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.id
}

// Start dials the device and attaches the channel to the batcher. Sends are
// accepted from here on.
func (s *Session) Start(ctx context.Context) error {
	conn, err := s.opts.Dialer.Dial(ctx)
	if err != nil {
		return fmt.Errorf("failed to open channel: %w", err)
	}
	id := ulid.Make()
	s.mu.Lock()
	s.conn = conn
	s.id = id
	s.mu.Unlock()

	s.out.Attach(conn)
	s.logger.Info("Channel session started.", "session", id.String())
	return nil
}

// Reset closes the current channel, discards pending outbound state and
// shows the disconnected state.
func (s *Session) Reset() {
	s.mu.Lock()
	conn, id := s.conn, s.id
	s.conn = nil
	s.id = ulid.ULID{}
	s.mu.Unlock()

	s.out.Detach()
	if conn != nil {
		if err := conn.Close(); err != nil {
			s.logger.Debug("Channel close failed.", "error", err)
		}
		s.logger.Info("Channel session ended.", "session", id.String())
	}
	// A watchdog that fired for the old channel must not end the next one.
	select {
	case <-s.timeouts:
	default:
	}
	s.setStatus(outbound.StatusDisconnected)
}

// Run serves h until ctx ends, reconnecting after every channel failure.
// Interactions dispatched on the surface are routed through the loop so that
// the engine only ever runs on this goroutine.
func (s *Session) Run(ctx context.Context, h Handler) error {
	s.mu.Lock()
	s.handler = h
	s.mu.Unlock()
	h.SetInteractionSink(s.interact)
	defer h.SetInteractionSink(nil)
	s.setStatus(outbound.StatusDisconnected)

	for {
		if err := s.Start(ctx); err != nil {
			s.logger.Warn("Connection failed.", "error", err, "retry_in", s.opts.ReconnectDelay)
		} else {
			h.RequestOutstanding()
			err := s.serve(ctx, h)
			s.Reset()
			if ctx.Err() != nil {
				return nil
			}
			s.logger.Warn("Connection lost.", "error", err, "retry_in", s.opts.ReconnectDelay)
		}

		if !s.wait(ctx, h) {
			return nil
		}
	}
}

// serve is the event loop of one channel session.
func (s *Session) serve(ctx context.Context, h Handler) error {
	s.mu.Lock()
	conn := s.conn
	s.mu.Unlock()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case f, ok := <-conn.Frames():
			if !ok {
				return transport.ErrClosed
			}
			s.frame(ctx, h, f)
		case i := <-s.edits:
			h.HandleInteraction(i)
		case <-s.timeouts:
			return errWatchdog
		}
	}
}

// wait sleeps for the reconnect delay while still handling interactions, so
// local surface changes keep working while offline. It reports false when
// ctx ended.
func (s *Session) wait(ctx context.Context, h Handler) bool {
	timer := time.NewTimer(s.opts.ReconnectDelay)
	defer timer.Stop()
	for {
		select {
		case <-ctx.Done():
			return false
		case <-timer.C:
			return true
		case i := <-s.edits:
			h.HandleInteraction(i)
		}
	}
}

func (s *Session) frame(ctx context.Context, h Handler, f transport.Frame) {
	switch f.Kind {
	case transport.FrameBinary:
		if s.opts.Binary == nil {
			s.logger.Debug("Binary frame dropped, no sink.", "bytes", len(f.Data))
			return
		}
		s.opts.Binary.HandleBinary(ctx, f.Data)
	default:
		s.out.Received()
		s.setStatus(outbound.StatusConnected)
		h.HandleText(f.Data)
	}
}

// interact is the engine's interaction sink.
func (s *Session) interact(i engine.Interaction) {
	select {
	case s.edits <- i:
	case <-s.ctx.Done():
	}
}

func (s *Session) watchdogExpired() {
	select {
	case s.timeouts <- struct{}{}:
	default:
	}
}

func (s *Session) setStatus(st outbound.Status) {
	if s.status.Swap(int32(st)) == int32(st) {
		return
	}
	s.mu.Lock()
	h := s.handler
	s.mu.Unlock()
	if h != nil {
		h.SetStatus(st)
	}
	if s.opts.OnStatus != nil {
		s.opts.OnStatus(st)
	}
}
