// Package surface is an in-memory render.Renderer: a tree of attributed
// nodes indexed by identifier. It backs the terminal viewer, the snapshot
// dump and every engine test.
package surface

import (
	"sync"

	"github.com/vk/starmirror/internal/render"
)

type node struct {
	kind     render.Kind
	attrs    map[string]any
	parent   render.Handle
	children []render.Handle
	handlers map[render.Event][]func()
}

// Surface is a thread-safe in-memory node tree.
type Surface struct {
	mu      sync.RWMutex
	next    render.Handle
	nodes   map[render.Handle]*node
	index   map[string]render.Handle
	version uint64
}

var _ render.Renderer = (*Surface)(nil)

// New creates an empty surface.
func New() *Surface {
	return &Surface{
		nodes: make(map[render.Handle]*node),
		index: make(map[string]render.Handle),
	}
}

// CreateNode creates a detached node of the given kind.
func (s *Surface) CreateNode(kind render.Kind) render.Handle {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.next++
	s.nodes[s.next] = &node{kind: kind, attrs: make(map[string]any)}
	s.version++
	return s.next
}

// Kind returns the kind of a node, or an empty kind for unknown handles.
func (s *Surface) Kind(h render.Handle) render.Kind {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if n, ok := s.nodes[h]; ok {
		return n.kind
	}
	return ""
}

// SetAttr sets an attribute. Setting the id attribute (re)indexes the node.
func (s *Surface) SetAttr(h render.Handle, name string, value any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n, ok := s.nodes[h]
	if !ok {
		return
	}
	if name == render.AttrID {
		if old, ok := n.attrs[render.AttrID].(string); ok && s.index[old] == h {
			delete(s.index, old)
		}
		if id, ok := value.(string); ok && id != "" {
			s.index[id] = h
		}
	}
	n.attrs[name] = value
	s.version++
}

// Attr returns an attribute value, or nil when it is not set.
func (s *Surface) Attr(h render.Handle, name string) any {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if n, ok := s.nodes[h]; ok {
		return n.attrs[name]
	}
	return nil
}

// AppendChild moves child to the end of parent's children.
func (s *Surface) AppendChild(parent, child render.Handle) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.nodes[parent]
	c, ok2 := s.nodes[child]
	if !ok || !ok2 {
		return
	}
	s.detach(child, c)
	c.parent = parent
	p.children = append(p.children, child)
	s.version++
}

func (s *Surface) detach(h render.Handle, n *node) {
	if n.parent == render.None {
		return
	}
	if p, ok := s.nodes[n.parent]; ok {
		for i, c := range p.children {
			if c == h {
				p.children = append(p.children[:i:i], p.children[i+1:]...)
				break
			}
		}
	}
	n.parent = render.None
}

// Children returns a copy of a node's children in order.
func (s *Surface) Children(h render.Handle) []render.Handle {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if n, ok := s.nodes[h]; ok {
		return append([]render.Handle(nil), n.children...)
	}
	return nil
}

// Parent returns a node's parent, or render.None.
func (s *Surface) Parent(h render.Handle) render.Handle {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if n, ok := s.nodes[h]; ok {
		return n.parent
	}
	return render.None
}

// On registers a handler for an event on a node.
func (s *Surface) On(h render.Handle, event render.Event, fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n, ok := s.nodes[h]
	if !ok {
		return
	}
	if n.handlers == nil {
		n.handlers = make(map[render.Event][]func())
	}
	n.handlers[event] = append(n.handlers[event], fn)
}

// Dispatch invokes the handlers registered for an event, in registration
// order, on the calling goroutine.
func (s *Surface) Dispatch(h render.Handle, event render.Event) {
	s.mu.RLock()
	var handlers []func()
	if n, ok := s.nodes[h]; ok {
		handlers = append(handlers, n.handlers[event]...)
	}
	s.mu.RUnlock()

	for _, fn := range handlers {
		fn()
	}
}

// Remove detaches a node and discards it with its whole subtree.
func (s *Surface) Remove(h render.Handle) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n, ok := s.nodes[h]
	if !ok {
		return
	}
	s.detach(h, n)
	s.drop(h)
	s.version++
}

func (s *Surface) drop(h render.Handle) {
	n, ok := s.nodes[h]
	if !ok {
		return
	}
	for _, c := range n.children {
		s.drop(c)
	}
	if id, ok := n.attrs[render.AttrID].(string); ok && s.index[id] == h {
		delete(s.index, id)
	}
	delete(s.nodes, h)
}

// Query resolves an identifier to a node.
func (s *Surface) Query(id string) (render.Handle, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	h, ok := s.index[id]
	return h, ok
}

// Version increases on every mutation; viewers use it to skip redraws.
func (s *Surface) Version() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.version
}

// Len returns the number of live nodes.
func (s *Surface) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.nodes)
}
