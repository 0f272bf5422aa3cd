package engine

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/sourcegraph/conc"

	"github.com/vk/starmirror/internal/ctxlog"
	"github.com/vk/starmirror/internal/nodeid"
	"github.com/vk/starmirror/internal/outbound"
	"github.com/vk/starmirror/internal/render"
	"github.com/vk/starmirror/internal/varmodel"
	"github.com/vk/starmirror/internal/viewfilter"
)

// DefaultColumns is the number of surface columns modules are spread over.
const DefaultColumns = 4

// Outbox is the outbound half the engine talks to.
type Outbox interface {
	QueueCompute(id string)
	Flush()
	Send(cmd outbound.Command) error
	SendValue(id string, value any) error
}

// SideTable stores payloads the surface cannot render.
type SideTable interface {
	SetJSON(ctx context.Context, id nodeid.ID, value any)
	SetFile(ctx context.Context, id nodeid.ID, value any)
}

// FileFetcher retrieves a named file from the device.
type FileFetcher interface {
	Fetch(ctx context.Context, name string) (any, error)
}

// Interaction is a user event on a surface node.
type Interaction struct {
	Handle render.Handle
	Event  render.Event
}

// Options configures an Engine. Renderer, Model and Outbox are required.
type Options struct {
	Renderer render.Renderer
	Model    *varmodel.Model
	Outbox   Outbox
	Side     SideTable
	Files    FileFetcher
	Prefs    viewfilter.Prefs

	Columns int
	Themes  []string
	Title   string
}

// Engine materializes and reconciles the mirrored variable tree.
type Engine struct {
	ctx    context.Context
	logger *slog.Logger

	r      render.Renderer
	model  *varmodel.Model
	out    Outbox
	side   SideTable
	files  FileFetcher
	filter *viewfilter.Filter
	chrome Chrome

	bindings   map[render.Handle]*binding
	actions    map[render.Handle]map[render.Event]func()
	nextColumn int
	modal      render.Handle

	sinkMu sync.RWMutex
	sink   func(Interaction)

	fetches conc.WaitGroup
}

// New builds the chrome on the renderer, restores persisted preferences and
// returns an engine ready for modules.
func New(ctx context.Context, opts Options) *Engine {
	if opts.Columns <= 0 {
		opts.Columns = DefaultColumns
	}
	if len(opts.Themes) == 0 {
		opts.Themes = DefaultThemes
	}
	if opts.Title == "" {
		opts.Title = "StarMod"
	}
	e := &Engine{
		ctx:      ctx,
		logger:   ctxlog.Component(ctx, "engine"),
		r:        opts.Renderer,
		model:    opts.Model,
		out:      opts.Outbox,
		side:     opts.Side,
		files:    opts.Files,
		bindings: make(map[render.Handle]*binding),
		actions:  make(map[render.Handle]map[render.Event]func()),
	}
	e.sink = e.HandleInteraction
	e.buildChrome(opts.Title, opts.Columns, opts.Themes)
	e.filter = viewfilter.New(ctx, e.r, e.chrome.Layout(), opts.Prefs)

	e.filter.LoadTheme(ctx)
	if view, ok := e.filter.SavedView(ctx); ok {
		e.filter.ApplyView(ctx, view)
	}
	return e
}

// Chrome returns the fixed chrome nodes.
func (e *Engine) Chrome() Chrome { return e.chrome }

// Filter returns the view filter the engine applies views through.
func (e *Engine) Filter() *viewfilter.Filter { return e.filter }

// Model returns the mirrored model.
func (e *Engine) Model() *varmodel.Model { return e.model }

// SetInteractionSink routes user interactions to fn instead of handling them
// inline. fn may be called from any goroutine that dispatches surface events.
func (e *Engine) SetInteractionSink(fn func(Interaction)) {
	e.sinkMu.Lock()
	defer e.sinkMu.Unlock()
	if fn == nil {
		fn = e.HandleInteraction
	}
	e.sink = fn
}

// SetStatus shows the connectivity state on the indicator. It is safe to
// call from any goroutine.
func (e *Engine) SetStatus(s outbound.Status) {
	e.r.SetAttr(e.chrome.ConnInd, render.AttrState, s.String())
}

// Wait blocks until every file fetch started by the engine has completed.
func (e *Engine) Wait() {
	e.fetches.Wait()
}

// on registers an action for a user event on a node. The renderer callback
// only emits an Interaction; the action runs when the interaction is handled.
func (e *Engine) on(h render.Handle, event render.Event, action func()) {
	if e.actions[h] == nil {
		e.actions[h] = make(map[render.Event]func())
	}
	e.actions[h][event] = action
	e.r.On(h, event, func() { e.emit(Interaction{Handle: h, Event: event}) })
}

func (e *Engine) emit(i Interaction) {
	e.sinkMu.RLock()
	sink := e.sink
	e.sinkMu.RUnlock()
	sink(i)
}

// HandleInteraction runs the action bound to a user event.
func (e *Engine) HandleInteraction(i Interaction) {
	action, ok := e.actions[i.Handle][i.Event]
	if !ok {
		e.logger.Debug("Interaction for unbound node ignored.", "handle", i.Handle, "event", i.Event)
		return
	}
	action()
}

// HandleText routes one inbound text frame: a module registration or an
// update. Malformed and unexpected frames are logged and dropped.
func (e *Engine) HandleText(data []byte) {
	trimmed := bytes.TrimSpace(data)
	if !json.Valid(trimmed) {
		e.logger.Warn("Malformed inbound message discarded.", "bytes", len(data))
		return
	}
	switch trimmed[0] {
	case '[':
		e.logger.Error("Array message not expected, ignored.", "bytes", len(data))
		return
	case '{':
	default:
		e.logger.Warn("Inbound message is not an object, discarded.", "message", string(trimmed))
		return
	}

	var head struct {
		Type varmodel.Type `json:"type"`
	}
	if err := json.Unmarshal(trimmed, &head); err == nil && head.Type.IsModule() {
		e.HandleModule(trimmed)
		return
	}
	e.ApplyUpdate(trimmed)
}

// HandleModule registers a module and materializes it the first time its id
// is seen. Repeats are no-ops, which makes a replay after reconnect harmless.
func (e *Engine) HandleModule(data []byte) bool {
	module := new(varmodel.Variable)
	if err := json.Unmarshal(data, module); err != nil {
		e.logger.Warn("Malformed module discarded.", "error", err)
		return false
	}
	if !e.model.Register(module) {
		e.logger.Debug("Module already materialized.", "id", module.ID)
		return false
	}

	column := e.chrome.Columns[e.nextColumn]
	e.nextColumn = (e.nextColumn + 1) % len(e.chrome.Columns)
	e.materialize(module, column, nodeid.NoRow, nil, false)
	e.logger.Info("Module materialized.", "id", module.ID, "type", module.Type)

	if module.ID == "System" {
		if module.View != "" {
			e.filter.ApplyView(e.ctx, module.View)
		}
		if module.Theme != "" {
			e.filter.ApplyTheme(e.ctx, module.Theme)
		}
	}
	e.filter.Reapply(e.ctx)
	e.out.Flush()
	return true
}

// RequestOutstanding asks the device again for every computation that was
// requested and never answered. The session calls it when a new channel
// session starts, since the old one took those requests with it.
func (e *Engine) RequestOutstanding() {
	ids := e.model.Outstanding()
	if len(ids) == 0 {
		return
	}
	for _, id := range ids {
		e.out.QueueCompute(id)
	}
	e.out.Flush()
	e.logger.Info("Outstanding computations requested again.", "count", len(ids))
}

// bind records a binding for its node.
func (e *Engine) bind(b *binding) {
	e.bindings[b.node] = b
}

// lookup resolves a node identifier to its binding.
func (e *Engine) lookup(id nodeid.ID) (*binding, bool) {
	h, ok := e.r.Query(id.String())
	if !ok {
		return nil, false
	}
	b, ok := e.bindings[h]
	return b, ok
}

// discard removes a node with its subtree, dropping every binding and action
// registered below it.
func (e *Engine) discard(h render.Handle) {
	e.forget(h)
	e.r.Remove(h)
}

func (e *Engine) forget(h render.Handle) {
	for _, c := range e.r.Children(h) {
		e.forget(c)
	}
	delete(e.bindings, h)
	delete(e.actions, h)
	if e.modal == h {
		e.modal = render.None
	}
}
