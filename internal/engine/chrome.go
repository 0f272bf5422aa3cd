package engine

import (
	"strconv"

	"github.com/vk/starmirror/internal/render"
	"github.com/vk/starmirror/internal/viewfilter"
)

// Identifiers of the fixed chrome nodes.
const (
	RootID         = "root"
	InstanceNameID = "instanceName"
	ConnIndID      = "connind"
	SaveButtonID   = "bSave"
	ThemeSelectID  = "theme-select"
	ContainerID    = "mdlContainer"
	ColumnIDPrefix = "mdlColumn"
	ModalID        = "modalView"

	// ServerNameID is the variable whose value titles the surface.
	ServerNameID = "serverName"

	// HelpURL is where the help affordance of a module points.
	HelpURL = "https://ewowi.github.io/StarDocs/"
)

const (
	saveCaption      = "Save"
	saveDirtyCaption = "Save*"
)

// DefaultThemes are offered by the theme picker.
var DefaultThemes = []string{"dark", "light", "wled", "grayscale"}

// Chrome is the fixed part of the surface, built before any module arrives.
type Chrome struct {
	Root         render.Handle
	InstanceName render.Handle
	ConnInd      render.Handle
	Save         render.Handle
	ThemeSelect  render.Handle
	Container    render.Handle
	Columns      []render.Handle
	ViewButtons  map[string]render.Handle
	Modal        render.Handle
}

// Layout returns the part of the chrome the view filter works on.
func (c Chrome) Layout() viewfilter.Layout {
	return viewfilter.Layout{
		Root:        c.Root,
		Container:   c.Container,
		Columns:     c.Columns,
		ViewButtons: c.ViewButtons,
		ThemeSelect: c.ThemeSelect,
	}
}

func (e *Engine) buildChrome(title string, columns int, themes []string) {
	r := e.r
	node := func(kind render.Kind, id string, parent render.Handle) render.Handle {
		h := r.CreateNode(kind)
		r.SetAttr(h, render.AttrID, id)
		if parent != render.None {
			r.AppendChild(parent, h)
		}
		return h
	}

	c := Chrome{ViewButtons: make(map[string]render.Handle)}
	c.Root = node(render.KindRoot, RootID, render.None)

	c.InstanceName = node(render.KindHeading, InstanceNameID, c.Root)
	r.SetAttr(c.InstanceName, render.AttrText, title)

	c.ConnInd = node(render.KindIndicator, ConnIndID, c.Root)
	r.SetAttr(c.ConnInd, render.AttrState, "disconnected")

	c.Save = node(render.KindButton, SaveButtonID, c.Root)
	r.SetAttr(c.Save, render.AttrText, saveCaption)
	r.SetAttr(c.Save, render.AttrDisabled, true)
	e.on(c.Save, render.EventClick, e.saveModel)

	for _, view := range viewfilter.Views {
		btn := node(render.KindButton, view, c.Root)
		r.SetAttr(btn, render.AttrText, view[1:])
		c.ViewButtons[view] = btn
		e.on(btn, render.EventClick, func() { e.selectView(view) })
	}

	c.ThemeSelect = node(render.KindSelect, ThemeSelectID, c.Root)
	opts := make([]render.Option, 0, len(themes))
	for _, t := range themes {
		opts = append(opts, render.Option{Value: t, Text: t})
	}
	r.SetAttr(c.ThemeSelect, render.AttrOptions, opts)
	e.on(c.ThemeSelect, render.EventChange, e.selectTheme)

	c.Container = node(render.KindContainer, ContainerID, c.Root)
	for i := 0; i < columns; i++ {
		c.Columns = append(c.Columns, node(render.KindColumn, ColumnIDPrefix+strconv.Itoa(i), c.Container))
	}

	c.Modal = node(render.KindDiv, ModalID, c.Root)
	r.SetAttr(c.Modal, render.AttrHidden, true)

	e.chrome = c
}
