package outbound

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/vk/starmirror/internal/ctxlog"
)

// ErrNotReady is returned for sends attempted before the channel handshake.
var ErrNotReady = errors.New("channel not ready")

const (
	// DefaultThreshold is the queue length that forces a compute flush.
	DefaultThreshold = 8
	// DefaultWatchdog is how long the device may stay silent after a send.
	DefaultWatchdog = 3 * time.Second
	// SizeCaution is the frame length above which a send is logged; the
	// device splits large payloads itself.
	SizeCaution = 1340
)

// Sender delivers one text frame to the device. Sends are fire-and-forget.
type Sender interface {
	Send(data []byte) error
}

// Status is the connectivity state shown to the user.
type Status int

const (
	StatusDisconnected Status = iota
	StatusPending
	StatusConnected
)

func (s Status) String() string {
	switch s {
	case StatusPending:
		return "pending"
	case StatusConnected:
		return "connected"
	default:
		return "disconnected"
	}
}

// Options configures a Batcher.
type Options struct {
	Threshold  int
	Watchdog   time.Duration
	ComputeKey string
	// OnTimeout is called, from the watchdog goroutine, when the device
	// stayed silent for the watchdog duration after a send.
	OnTimeout func()
	// OnStatus observes connectivity changes caused by sends.
	OnStatus func(Status)
}

// Batcher is the outbound half of a session.
type Batcher struct {
	logger *slog.Logger
	opts   Options

	mu       sync.Mutex
	sender   Sender
	queue    []string
	watchdog *time.Timer
}

// NewBatcher creates a Batcher with defaults filled in.
func NewBatcher(ctx context.Context, opts Options) *Batcher {
	if opts.Threshold <= 0 {
		opts.Threshold = DefaultThreshold
	}
	if opts.Watchdog <= 0 {
		opts.Watchdog = DefaultWatchdog
	}
	if opts.ComputeKey == "" {
		opts.ComputeKey = DefaultComputeKey
	}
	return &Batcher{
		logger: ctxlog.Component(ctx, "outbound"),
		opts:   opts,
	}
}

// Attach marks the handshake complete and routes sends to s.
func (b *Batcher) Attach(s Sender) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.sender = s
	b.logger.Debug("Outbound channel attached.")
}

// Detach drops the sender, disarms the watchdog and discards pending
// compute requests. The model still counts them as requested, and the next
// channel session asks for them again.
func (b *Batcher) Detach() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.sender = nil
	b.stopWatchdog()
	if len(b.queue) > 0 {
		b.logger.Debug("Discarding queued compute requests.", "count", len(b.queue))
	}
	b.queue = nil
}

// Ready reports whether sends are currently accepted.
func (b *Batcher) Ready() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.sender != nil
}

// Pending returns a copy of the queued compute requests.
func (b *Batcher) Pending() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.queue...)
}

// QueueCompute queues a deferred-compute request and flushes once the queue
// reaches the threshold. An id already waiting in the queue is not repeated.
func (b *Batcher) QueueCompute(id string) {
	b.mu.Lock()
	if slices.Contains(b.queue, id) {
		b.mu.Unlock()
		return
	}
	b.queue = append(b.queue, id)
	full := len(b.queue) >= b.opts.Threshold
	b.mu.Unlock()

	if full {
		b.Flush()
	}
}

// Flush sends every queued compute request as one command.
func (b *Batcher) Flush() {
	b.mu.Lock()
	if len(b.queue) == 0 {
		b.mu.Unlock()
		return
	}
	ids := b.queue
	b.queue = nil
	b.mu.Unlock()

	if err := b.Send(Command{b.opts.ComputeKey: ids}); err != nil {
		b.logger.Debug("Compute batch not sent.", "count", len(ids), "error", err)
	}
}

// SendValue sends a user edit of one variable.
func (b *Batcher) SendValue(id string, value any) error {
	return b.Send(Value(id, value))
}

// Send serializes a command and hands it to the channel.
func (b *Batcher) Send(cmd Command) error {
	b.status(StatusPending)

	b.mu.Lock()
	sender := b.sender
	if sender == nil {
		b.mu.Unlock()
		b.logger.Debug("Send rejected before handshake.", "command", keys(cmd))
		return ErrNotReady
	}
	b.armWatchdog()
	b.mu.Unlock()

	data, err := json.Marshal(cmd)
	if err != nil {
		return fmt.Errorf("failed to encode command: %w", err)
	}
	if len(data) > SizeCaution {
		b.logger.Warn("Outbound frame exceeds size caution.", "bytes", len(data), "caution", SizeCaution)
	}
	b.logger.Debug("Sending command.", "command", string(data))
	if err := sender.Send(data); err != nil {
		return fmt.Errorf("failed to send command: %w", err)
	}
	return nil
}

// Received disarms the watchdog; the session calls it for every inbound
// text frame.
func (b *Batcher) Received() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.stopWatchdog()
}

func (b *Batcher) armWatchdog() {
	if b.watchdog != nil {
		return
	}
	var timer *time.Timer
	timer = time.AfterFunc(b.opts.Watchdog, func() {
		b.mu.Lock()
		if b.watchdog != timer {
			b.mu.Unlock()
			return
		}
		b.watchdog = nil
		b.mu.Unlock()

		b.logger.Warn("Connection failed: no reply within watchdog.", "watchdog", b.opts.Watchdog)
		if b.opts.OnTimeout != nil {
			b.opts.OnTimeout()
		}
	})
	b.watchdog = timer
}

func (b *Batcher) stopWatchdog() {
	if b.watchdog != nil {
		b.watchdog.Stop()
		b.watchdog = nil
	}
}

func (b *Batcher) status(s Status) {
	if b.opts.OnStatus != nil {
		b.opts.OnStatus(s)
	}
}

func keys(cmd Command) []string {
	out := make([]string, 0, len(cmd))
	for k := range cmd {
		out = append(out, k)
	}
	slices.Sort(out)
	return out
}
