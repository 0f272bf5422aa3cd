package render

import "github.com/vk/starmirror/internal/varmodel"

// TextOf returns what a node visibly shows: its text when it has one, its
// value otherwise.
func TextOf(r Renderer, h Handle) string {
	if text, ok := r.Attr(h, AttrText).(string); ok && text != "" {
		return text
	}
	return varmodel.FormatScalar(r.Attr(h, AttrValue))
}

// Bool reads a boolean attribute, treating absence as false.
func Bool(r Renderer, h Handle, name string) bool {
	b, _ := r.Attr(h, name).(bool)
	return b
}

// String reads a string attribute, treating absence as empty.
func String(r Renderer, h Handle, name string) string {
	s, _ := r.Attr(h, name).(string)
	return s
}
