package app

import (
	"context"
	"sync"

	"github.com/vk/starmirror/internal/ctxlog"
)

// previewSink keeps the latest binary frame the device streamed, typically
// a LED preview. Nothing renders it; it is counted for the health report.
type previewSink struct {
	mu     sync.Mutex
	frames int
	last   []byte
}

func (p *previewSink) HandleBinary(ctx context.Context, data []byte) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.frames++
	p.last = data
	if p.frames == 1 {
		ctxlog.FromContext(ctx).Debug("First binary frame received.", "bytes", len(data))
	}
}

// Latest returns the frame count and the most recent frame.
func (p *previewSink) Latest() (int, []byte) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.frames, p.last
}
