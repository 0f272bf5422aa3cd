package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/vk/starmirror/internal/engine"
	"github.com/vk/starmirror/internal/outbound"
	"github.com/vk/starmirror/internal/render"
	"github.com/vk/starmirror/internal/surface"
	"github.com/vk/starmirror/internal/viewfilter"
)

// DefaultRefresh is how often the surface is polled for changes.
const DefaultRefresh = 100 * time.Millisecond

// Options wires the viewer to a running mirror.
type Options struct {
	Surface *surface.Surface
	Chrome  engine.Chrome
	Filter  *viewfilter.Filter
	Status  func() outbound.Status
	Themes  []string
	Refresh time.Duration
}

// Model is the root bubbletea model of the viewer. It only reads the
// surface; key presses are dispatched as surface events, which the engine
// handles on its own loop.
type Model struct {
	opts Options

	lines   []surface.Line
	version uint64
	status  outbound.Status
	scroll  int
	width   int
	height  int
}

type tickMsg time.Time

// New creates a viewer model.
func New(opts Options) Model {
	if opts.Refresh <= 0 {
		opts.Refresh = DefaultRefresh
	}
	if len(opts.Themes) == 0 {
		opts.Themes = engine.DefaultThemes
	}
	if opts.Status == nil {
		opts.Status = func() outbound.Status { return outbound.StatusDisconnected }
	}
	m := Model{opts: opts}
	m.reload()
	return m
}

func (m Model) Init() tea.Cmd {
	return m.tick()
}

func (m Model) tick() tea.Cmd {
	return tea.Tick(m.opts.Refresh, func(t time.Time) tea.Msg { return tickMsg(t) })
}

func (m *Model) reload() {
	m.version = m.opts.Surface.Version()
	m.status = m.opts.Status()
	var visible []surface.Line
	for _, l := range m.opts.Surface.Walk(m.opts.Chrome.Container) {
		if l.Hidden || l.Text == "" {
			continue
		}
		visible = append(visible, l)
	}
	m.lines = visible
	m.clampScroll()
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.clampScroll()
		return m, nil

	case tickMsg:
		if m.opts.Surface.Version() != m.version || m.opts.Status() != m.status {
			m.reload()
		}
		return m, m.tick()

	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	s := m.opts.Surface
	switch msg.String() {
	case "q", "ctrl+c":
		return m, tea.Quit
	case "up", "k":
		m.scroll--
	case "down", "j":
		m.scroll++
	case "v":
		next := cycle(viewfilter.Views, m.opts.Filter.View())
		if btn, ok := m.opts.Chrome.ViewButtons[next]; ok {
			s.Dispatch(btn, render.EventClick)
		}
	case "t":
		next := cycle(m.opts.Themes, m.opts.Filter.Theme())
		s.SetAttr(m.opts.Chrome.ThemeSelect, render.AttrValue, next)
		s.Dispatch(m.opts.Chrome.ThemeSelect, render.EventChange)
	case "s":
		s.Dispatch(m.opts.Chrome.Save, render.EventClick)
	}
	m.clampScroll()
	return m, nil
}

func cycle(values []string, current string) string {
	for i, v := range values {
		if v == current {
			return values[(i+1)%len(values)]
		}
	}
	return values[0]
}

func (m *Model) clampScroll() {
	limit := len(m.lines) - m.bodyHeight()
	m.scroll = max(0, min(m.scroll, limit))
}

// bodyHeight is the number of surface lines that fit between header and
// footer. Before the first size message everything is shown.
func (m Model) bodyHeight() int {
	if m.height <= 0 {
		return len(m.lines)
	}
	return max(1, m.height-2)
}

func (m Model) View() string {
	s := m.opts.Surface
	title := render.TextOf(s, m.opts.Chrome.InstanceName)
	save := render.TextOf(s, m.opts.Chrome.Save)
	header := headerStyle.Render(fmt.Sprintf("%s  %s  %s",
		titleStyle.Render(title),
		statusStyle(m.status).Render("● "+m.status.String()),
		metaStyle.Render(fmt.Sprintf("view %s  theme %s  %s", m.opts.Filter.View(), m.opts.Filter.Theme(), save)),
	))

	var b strings.Builder
	b.WriteString(header)
	b.WriteByte('\n')
	end := min(len(m.lines), m.scroll+m.bodyHeight())
	for _, l := range m.lines[m.scroll:end] {
		b.WriteString(strings.Repeat("  ", l.Depth))
		b.WriteString(kindStyle(l.Kind).Render(l.Text))
		b.WriteByte('\n')
	}
	b.WriteString(footerStyle.Render("v view  t theme  s save  ↑/↓ scroll  q quit"))
	return b.String()
}

// Run shows the viewer until the user quits or ctx ends.
func Run(ctx context.Context, opts Options) error {
	p := tea.NewProgram(New(opts), tea.WithAltScreen(), tea.WithContext(ctx))
	if _, err := p.Run(); err != nil {
		if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
			return nil
		}
		return fmt.Errorf("viewer failed: %w", err)
	}
	return nil
}
