package engine

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vk/starmirror/internal/outbound"
	"github.com/vk/starmirror/internal/render"
)

func TestEdits_OutgoingValues(t *testing.T) {
	testCases := []struct {
		name  string
		id    string
		event render.Event
		set   func(s render.Renderer, h render.Handle)
		want  outbound.Command
	}{
		{
			name:  "numeric text becomes a number",
			id:    "fx",
			event: render.EventChange,
			set:   func(s render.Renderer, h render.Handle) { s.SetAttr(h, render.AttrValue, "2") },
			want:  outbound.Value("fx", 2.0),
		},
		{
			name:  "zero stays raw",
			id:    "fx",
			event: render.EventChange,
			set:   func(s render.Renderer, h render.Handle) { s.SetAttr(h, render.AttrValue, "0") },
			want:  outbound.Value("fx", "0"),
		},
		{
			name:  "checkbox sends its state",
			id:    "on",
			event: render.EventChange,
			set:   func(s render.Renderer, h render.Handle) { s.SetAttr(h, render.AttrChecked, true) },
			want:  outbound.Value("on", true),
		},
		{
			name:  "range sends its position",
			id:    "brightness",
			event: render.EventChange,
			set:   func(s render.Renderer, h render.Handle) { s.SetAttr(h, render.AttrValue, 128.0) },
			want:  outbound.Value("brightness", 128.0),
		},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			h := newHarness(t)
			h.send(t, fixtureModule)
			node := h.node(t, tc.id)

			tc.set(h.s, node)
			h.s.Dispatch(node, tc.event)

			assert.Equal(t, tc.want, h.out.last())
			assert.True(t, h.e.Dirty())
			assert.Equal(t, "Save*", h.text(t, SaveButtonID))
		})
	}
}

func TestEdits_CellEditAddressesRow(t *testing.T) {
	h := newHarness(t)
	h.send(t, fixtureModule)
	h.send(t, `{"tbl": {"value": [["a", 1], ["b", 2]]}}`)

	cell := h.node(t, "val#1")
	h.s.SetAttr(cell, render.AttrValue, "7")
	h.s.Dispatch(cell, render.EventChange)

	assert.Equal(t, outbound.Value("val#1", 7.0), h.out.last())
}

func TestEdits_Coord3D(t *testing.T) {
	h := newHarness(t)
	h.send(t, fixtureModule)
	h.send(t, `{"pos": {"value": {"x": 1, "y": 2, "z": 3}}}`)

	axes := h.s.Children(h.node(t, "pos"))
	h.s.SetAttr(axes[1], render.AttrValue, "5")
	h.s.Dispatch(axes[1], render.EventChange)

	assert.Equal(t, outbound.Value("pos", map[string]any{"x": 1.0, "y": 5.0, "z": 3.0}), h.out.last())
}

func TestEdits_SaveResetsDirtyState(t *testing.T) {
	h := newHarness(t)
	h.send(t, fixtureModule)

	on := h.node(t, "on")
	h.s.SetAttr(on, render.AttrChecked, true)
	h.s.Dispatch(on, render.EventChange)
	require.True(t, h.e.Dirty())

	h.s.Dispatch(h.e.Chrome().Save, render.EventClick)

	assert.Equal(t, outbound.Value(outbound.SaveModelID, "Save"), h.out.last())
	assert.False(t, h.e.Dirty())
	assert.Equal(t, "Save", h.text(t, SaveButtonID))
}

func TestEdits_ViewAndThemePickers(t *testing.T) {
	h := newHarness(t)
	h.send(t, fixtureModule)
	h.send(t, systemModule)

	h.s.Dispatch(h.node(t, "vSys"), render.EventClick)
	assert.Equal(t, outbound.View("vSys"), h.out.last())
	assert.Equal(t, "vSys", h.e.Filter().View())
	assert.True(t, render.Bool(h.s, h.node(t, "Fixture_d"), render.AttrHidden))
	assert.False(t, render.Bool(h.s, h.node(t, "System_d"), render.AttrHidden))

	sel := h.e.Chrome().ThemeSelect
	h.s.SetAttr(sel, render.AttrValue, "wled")
	h.s.Dispatch(sel, render.EventChange)
	assert.Equal(t, outbound.Theme("wled"), h.out.last())
	assert.Equal(t, "wled", render.String(h.s, h.e.Chrome().Root, render.AttrClass))
}

func TestEdits_InteractionSink(t *testing.T) {
	h := newHarness(t)
	h.send(t, fixtureModule)

	var mu sync.Mutex
	var routed []Interaction
	h.e.SetInteractionSink(func(i Interaction) {
		mu.Lock()
		defer mu.Unlock()
		routed = append(routed, i)
	})

	node := h.node(t, "fx")
	h.s.Dispatch(node, render.EventChange)

	require.Len(t, routed, 1)
	assert.Nil(t, h.out.last(), "routed interactions are not handled inline")

	h.s.SetAttr(node, render.AttrValue, "3")
	h.e.HandleInteraction(routed[0])
	assert.Equal(t, outbound.Value("fx", 3.0), h.out.last())
}

func TestEdits_ModalToggle(t *testing.T) {
	h := newHarness(t)
	h.send(t, `{"type":"appmod","id":"Preview","n":[{"id":"pview","type":"canvas"}]}`)
	canvas := h.node(t, "pview")

	h.s.Dispatch(canvas, render.EventDblClick)
	shown, ok := h.e.Modal()
	require.True(t, ok)
	assert.Equal(t, canvas, shown)
	assert.False(t, render.Bool(h.s, h.e.Chrome().Modal, render.AttrHidden))

	h.s.Dispatch(canvas, render.EventDblClick)
	_, ok = h.e.Modal()
	assert.False(t, ok)
	assert.True(t, render.Bool(h.s, h.e.Chrome().Modal, render.AttrHidden))
}

func TestLinearToLogarithm(t *testing.T) {
	h := newHarness(t)
	h.send(t, fixtureModule)
	v := h.model.Find("speed")
	require.NotNil(t, v)

	assert.Equal(t, 0.0, linearToLogarithm(v, 0))
	assert.Equal(t, 1.0, linearToLogarithm(v, 1))
	assert.Equal(t, 255.0, linearToLogarithm(v, 255))
}
