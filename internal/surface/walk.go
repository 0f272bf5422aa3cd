package surface

import (
	"fmt"
	"io"
	"strings"

	"github.com/gosuri/uitable"

	"github.com/vk/starmirror/internal/render"
	"github.com/vk/starmirror/internal/varmodel"
)

// Line is one node of a flattened surface.
type Line struct {
	Handle render.Handle
	Depth  int
	Kind   render.Kind
	ID     string
	Class  string
	Text   string
	Hidden bool
}

// Walk flattens the subtree under root depth-first. Nodes below a hidden
// node are reported hidden as well.
func (s *Surface) Walk(root render.Handle) []Line {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var lines []Line
	s.walk(root, 0, false, &lines)
	return lines
}

func (s *Surface) walk(h render.Handle, depth int, hidden bool, lines *[]Line) {
	n, ok := s.nodes[h]
	if !ok {
		return
	}
	if b, _ := n.attrs[render.AttrHidden].(bool); b {
		hidden = true
	}
	id, _ := n.attrs[render.AttrID].(string)
	class, _ := n.attrs[render.AttrClass].(string)
	*lines = append(*lines, Line{
		Handle: h,
		Depth:  depth,
		Kind:   n.kind,
		ID:     id,
		Class:  class,
		Text:   display(n),
		Hidden: hidden,
	})
	for _, c := range n.children {
		s.walk(c, depth+1, hidden, lines)
	}
}

// display renders the visible content of a node in one string.
func display(n *node) string {
	switch n.kind {
	case render.KindCheckbox:
		if b, _ := n.attrs[render.AttrIndeterminate].(bool); b {
			return "[-]"
		}
		if b, _ := n.attrs[render.AttrChecked].(bool); b {
			return "[x]"
		}
		return "[ ]"
	case render.KindLink:
		return fmt.Sprintf("%s %s", varmodel.FormatScalar(n.attrs[render.AttrText]), varmodel.FormatScalar(n.attrs[render.AttrHref]))
	case render.KindSelect:
		value := n.attrs[render.AttrValue]
		if opts, ok := n.attrs[render.AttrOptions].([]render.Option); ok {
			for _, o := range opts {
				if varmodel.FormatScalar(o.Value) == varmodel.FormatScalar(value) {
					return o.Text
				}
			}
		}
		return varmodel.FormatScalar(value)
	}
	if text, ok := n.attrs[render.AttrText].(string); ok && text != "" {
		if tip, ok := n.attrs[render.AttrTooltip].(string); ok && tip != "" {
			return text + " (" + tip + ")"
		}
		return text
	}
	return varmodel.FormatScalar(n.attrs[render.AttrValue])
}

// Roots returns every attached top-level node, in creation order.
func (s *Surface) Roots() []render.Handle {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var roots []render.Handle
	for h := render.Handle(1); h <= s.next; h++ {
		if n, ok := s.nodes[h]; ok && n.parent == render.None && len(n.children) > 0 {
			roots = append(roots, h)
		}
	}
	return roots
}

// Snapshot writes a table of every visible identified node under root.
func (s *Surface) Snapshot(w io.Writer, root render.Handle) error {
	table := uitable.New()
	table.MaxColWidth = 60
	table.Wrap = true
	table.AddRow("ID", "KIND", "CLASS", "SHOWS")
	for _, line := range s.Walk(root) {
		if line.ID == "" || line.Hidden {
			continue
		}
		table.AddRow(strings.Repeat("  ", line.Depth)+line.ID, string(line.Kind), line.Class, line.Text)
	}
	_, err := fmt.Fprintln(w, table)
	return err
}
