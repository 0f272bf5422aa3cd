package session

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vk/starmirror/internal/engine"
	"github.com/vk/starmirror/internal/outbound"
	"github.com/vk/starmirror/internal/render"
	"github.com/vk/starmirror/internal/surface"
	"github.com/vk/starmirror/internal/testutil"
	"github.com/vk/starmirror/internal/transport"
	"github.com/vk/starmirror/internal/varmodel"
)

const ledsModule = `{"type":"appmod","id":"Leds","n":[
	{"id":"on","type":"checkbox","value":true},
	{"id":"bri","type":"range","value":10}
]}`

type rig struct {
	s      *surface.Surface
	model  *varmodel.Model
	e      *engine.Engine
	sess   *Session
	dialer *testutil.FakeDialer
	done   chan error
	cancel context.CancelFunc
}

type binaryRecorder struct {
	mu     sync.Mutex
	frames [][]byte
}

func (b *binaryRecorder) HandleBinary(_ context.Context, data []byte) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.frames = append(b.frames, data)
}

func (b *binaryRecorder) count() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.frames)
}

func newRig(t *testing.T, opts Options) *rig {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	if opts.Dialer == nil {
		opts.Dialer = testutil.NewFakeDialer(0)
	}
	if opts.ReconnectDelay == 0 {
		opts.ReconnectDelay = 10 * time.Millisecond
	}
	r := &rig{
		s:      surface.New(),
		model:  varmodel.New(ctx),
		dialer: opts.Dialer.(*testutil.FakeDialer),
		done:   make(chan error, 1),
		cancel: cancel,
	}
	r.sess = New(ctx, opts)
	r.e = engine.New(ctx, engine.Options{
		Renderer: r.s,
		Model:    r.model,
		Outbox:   r.sess.Outbox(),
	})
	go func() { r.done <- r.sess.Run(ctx, r.e) }()
	t.Cleanup(func() {
		cancel()
		select {
		case err := <-r.done:
			assert.NoError(t, err)
		case <-time.After(2 * time.Second):
			t.Error("session did not stop")
		}
	})
	return r
}

func (r *rig) nextConn(t *testing.T) *testutil.FakeConn {
	t.Helper()
	select {
	case c := <-r.dialer.Dials:
		return c
	case <-time.After(2 * time.Second):
		t.Fatal("no dial")
	}
	return nil
}

func (r *rig) moduleNodes() int {
	var n int
	for _, col := range r.e.Chrome().Columns {
		n += len(r.s.Children(col))
	}
	return n
}

func nextSent(t *testing.T, c *testutil.FakeConn) string {
	t.Helper()
	select {
	case data := <-c.Sent():
		return string(data)
	case <-time.After(2 * time.Second):
		t.Fatal("nothing sent")
	}
	return ""
}

func TestSession_ReconnectReplayDoesNotDuplicate(t *testing.T) {
	r := newRig(t, Options{})

	first := r.nextConn(t)
	first.Push(ledsModule)
	require.Eventually(t, func() bool { return r.model.Len() == 1 }, time.Second, 5*time.Millisecond)
	require.Eventually(t, func() bool { return r.sess.Status() == outbound.StatusConnected }, time.Second, 5*time.Millisecond)

	first.Close()

	second := r.nextConn(t)
	second.Push(ledsModule)
	second.Push(`{"bri":{"value":42}}`)

	require.Eventually(t, func() bool {
		n, ok := r.s.Query("bri")
		return ok && r.s.Attr(n, render.AttrValue) == 42.0
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, 1, r.model.Len())
	assert.Equal(t, 1, r.moduleNodes(), "replayed module must not be materialized twice")
}

func TestSession_InteractionsRunOnTheLoop(t *testing.T) {
	r := newRig(t, Options{})
	conn := r.nextConn(t)
	conn.Push(ledsModule)

	var on render.Handle
	require.Eventually(t, func() bool {
		var ok bool
		on, ok = r.s.Query("on")
		return ok
	}, time.Second, 5*time.Millisecond)

	r.s.SetAttr(on, render.AttrChecked, false)
	r.s.Dispatch(on, render.EventChange)

	assert.JSONEq(t, `{"on":false}`, nextSent(t, conn))
	require.Eventually(t, func() bool { return r.sess.Status() == outbound.StatusPending }, time.Second, 5*time.Millisecond)
	assert.Equal(t, "pending", render.String(r.s, r.e.Chrome().ConnInd, render.AttrState))
}

func TestSession_WatchdogReconnects(t *testing.T) {
	r := newRig(t, Options{Watchdog: 30 * time.Millisecond})
	first := r.nextConn(t)
	first.Push(ledsModule)

	var on render.Handle
	require.Eventually(t, func() bool {
		var ok bool
		on, ok = r.s.Query("on")
		return ok
	}, time.Second, 5*time.Millisecond)
	r.s.Dispatch(on, render.EventChange)
	nextSent(t, first)

	second := r.nextConn(t)
	assert.True(t, first.Closed(), "a silent channel is torn down")
	assert.False(t, second.Closed())
	assert.Equal(t, 2, r.dialer.Count())
}

func TestSession_DialFailuresRetry(t *testing.T) {
	r := newRig(t, Options{Dialer: testutil.NewFakeDialer(2)})

	conn := r.nextConn(t)
	assert.NotNil(t, conn)
	assert.Equal(t, 3, r.dialer.Count())
	require.Eventually(t, func() bool { return r.sess.ID().Time() > 0 }, time.Second, 5*time.Millisecond)
}

func TestSession_BinaryFramesGoToSink(t *testing.T) {
	sink := &binaryRecorder{}
	r := newRig(t, Options{Binary: sink})
	conn := r.nextConn(t)

	conn.PushFrame(transport.Frame{Kind: transport.FrameBinary, Data: []byte{1, 2}})
	conn.PushFrame(transport.Frame{Kind: transport.FrameBinary, Data: []byte{3}})
	conn.Push(ledsModule)

	require.Eventually(t, func() bool { return r.model.Len() == 1 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, 2, sink.count())
}

func TestSession_StatusAfterDisconnect(t *testing.T) {
	var mu sync.Mutex
	var seen []outbound.Status
	r := newRig(t, Options{
		ReconnectDelay: time.Hour,
		OnStatus: func(s outbound.Status) {
			mu.Lock()
			defer mu.Unlock()
			seen = append(seen, s)
		},
	})
	conn := r.nextConn(t)
	conn.Push(ledsModule)
	require.Eventually(t, func() bool { return r.sess.Status() == outbound.StatusConnected }, time.Second, 5*time.Millisecond)

	conn.Close()
	require.Eventually(t, func() bool { return r.sess.Status() == outbound.StatusDisconnected }, time.Second, 5*time.Millisecond)
	assert.Equal(t, "disconnected", render.String(r.s, r.e.Chrome().ConnInd, render.AttrState))

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []outbound.Status{outbound.StatusDisconnected, outbound.StatusConnected, outbound.StatusDisconnected}, seen)
}

func TestSession_UnansweredComputeRequestedAfterReconnect(t *testing.T) {
	const fxModule = `{"type":"appmod","id":"Fx","n":[{"id":"fx","type":"select","uiFun":0}]}`
	r := newRig(t, Options{})

	first := r.nextConn(t)
	first.Push(fxModule)
	assert.JSONEq(t, `{"uiCompute":["fx"]}`, nextSent(t, first))
	first.Close()

	second := r.nextConn(t)
	assert.JSONEq(t, `{"uiCompute":["fx"]}`, nextSent(t, second), "the lost request is sent again")

	second.Push(fxModule)
	second.Push(`{"fx":{"options":["Solid","Fire"]}}`)
	require.Eventually(t, func() bool {
		n, ok := r.s.Query("fx")
		opts, _ := r.s.Attr(n, render.AttrOptions).([]render.Option)
		return ok && len(opts) == 2
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, varmodel.ComputeFulfilled, r.model.Find("fx").Compute)
	assert.Equal(t, 1, r.model.Len())
}
