// Package tui is a terminal viewer of the mirrored surface. It polls the
// in-memory surface for changes and offers the chrome's view, theme and
// save controls as key bindings.
package tui
