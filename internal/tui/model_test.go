package tui

import (
	"context"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vk/starmirror/internal/engine"
	"github.com/vk/starmirror/internal/outbound"
	"github.com/vk/starmirror/internal/surface"
	"github.com/vk/starmirror/internal/varmodel"
	"github.com/vk/starmirror/internal/viewfilter"
)

type sink struct{ sent []outbound.Command }

func (s *sink) QueueCompute(string) {}
func (s *sink) Flush()              {}
func (s *sink) Send(cmd outbound.Command) error {
	s.sent = append(s.sent, cmd)
	return nil
}
func (s *sink) SendValue(id string, v any) error { return s.Send(outbound.Value(id, v)) }

func newViewer(t *testing.T) (Model, *engine.Engine, *sink) {
	t.Helper()
	ctx := context.Background()
	s := surface.New()
	out := &sink{}
	e := engine.New(ctx, engine.Options{Renderer: s, Model: varmodel.New(ctx), Outbox: out})
	e.HandleText([]byte(`{"type":"appmod","id":"Leds","n":[
		{"id":"on","type":"checkbox","value":true},
		{"id":"bri","type":"range","value":128}
	]}`))
	m := New(Options{
		Surface: s,
		Chrome:  e.Chrome(),
		Filter:  e.Filter(),
		Status:  func() outbound.Status { return outbound.StatusConnected },
	})
	return m, e, out
}

func press(t *testing.T, m Model, key string) Model {
	t.Helper()
	msg := tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(key)}
	next, _ := m.Update(msg)
	return next.(Model)
}

func TestView_ShowsSurface(t *testing.T) {
	m, _, _ := newViewer(t)

	out := m.View()
	assert.Contains(t, out, "StarMod")
	assert.Contains(t, out, "connected")
	assert.Contains(t, out, "Leds")
	assert.Contains(t, out, "[x]")
	assert.Contains(t, out, "128")
}

func TestKeys(t *testing.T) {
	testCases := []struct {
		name  string
		key   string
		check func(t *testing.T, e *engine.Engine, out *sink)
	}{
		{
			name: "v cycles the view",
			key:  "v",
			check: func(t *testing.T, e *engine.Engine, out *sink) {
				assert.Equal(t, viewfilter.ViewStage, e.Filter().View())
				assert.Equal(t, outbound.View(viewfilter.ViewStage), out.sent[len(out.sent)-1])
			},
		},
		{
			name: "t cycles the theme",
			key:  "t",
			check: func(t *testing.T, e *engine.Engine, out *sink) {
				assert.Equal(t, "dark", e.Filter().Theme())
				assert.Equal(t, outbound.Theme("dark"), out.sent[len(out.sent)-1])
			},
		},
		{
			name: "s saves",
			key:  "s",
			check: func(t *testing.T, e *engine.Engine, out *sink) {
				assert.Equal(t, outbound.Value(outbound.SaveModelID, "Save"), out.sent[len(out.sent)-1])
			},
		},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			m, e, out := newViewer(t)
			press(t, m, tc.key)
			require.NotEmpty(t, out.sent)
			tc.check(t, e, out)
		})
	}
}

func TestQuit(t *testing.T) {
	m, _, _ := newViewer(t)
	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyCtrlC})
	require.NotNil(t, cmd)
	assert.Equal(t, tea.Quit(), cmd())
}

func TestTickReloadsChangedSurface(t *testing.T) {
	m, e, _ := newViewer(t)
	before := len(m.lines)

	e.HandleText([]byte(`{"type":"sysmod","id":"System","n":[{"id":"uptime","type":"text","ro":true,"value":"42s"}]}`))
	e.HandleText([]byte(`{"view":"vAll"}`))
	next, cmd := m.Update(tickMsg(time.Now()))

	assert.NotNil(t, cmd, "the tick keeps polling")
	assert.Greater(t, len(next.(Model).lines), before)
	assert.Contains(t, next.(Model).View(), "42s")
}

func TestScrollIsClamped(t *testing.T) {
	m, _, _ := newViewer(t)
	next, _ := m.Update(tea.WindowSizeMsg{Width: 80, Height: 4})
	m = next.(Model)

	for range 100 {
		m = press(t, m, "j")
	}
	assert.Equal(t, len(m.lines)-2, m.scroll)
	for range 100 {
		m = press(t, m, "k")
	}
	assert.Equal(t, 0, m.scroll)
}
