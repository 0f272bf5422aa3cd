package tui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/vk/starmirror/internal/outbound"
	"github.com/vk/starmirror/internal/render"
)

var (
	colorText   = lipgloss.Color("#e6edf3")
	colorDim    = lipgloss.Color("#8b949e")
	colorMuted  = lipgloss.Color("#484f58")
	colorBlue   = lipgloss.Color("#58a6ff")
	colorGreen  = lipgloss.Color("#3fb950")
	colorRed    = lipgloss.Color("#f85149")
	colorYellow = lipgloss.Color("#d29922")
	colorPurple = lipgloss.Color("#bc8cff")
	colorPanel  = lipgloss.Color("#1c2128")
)

var (
	headerStyle = lipgloss.NewStyle().
			Background(colorPanel).
			Foreground(colorText).
			Padding(0, 1)

	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(colorBlue)

	metaStyle = lipgloss.NewStyle().
			Foreground(colorDim)

	footerStyle = lipgloss.NewStyle().
			Foreground(colorMuted)

	moduleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(colorPurple)

	labelStyle = lipgloss.NewStyle().
			Foreground(colorDim)

	valueStyle = lipgloss.NewStyle().
			Foreground(colorText)
)

// statusStyle colors the connectivity indicator.
func statusStyle(s outbound.Status) lipgloss.Style {
	base := lipgloss.NewStyle().Bold(true)
	switch s {
	case outbound.StatusConnected:
		return base.Foreground(colorGreen)
	case outbound.StatusPending:
		return base.Foreground(colorYellow)
	default:
		return base.Foreground(colorRed)
	}
}

func kindStyle(k render.Kind) lipgloss.Style {
	switch k {
	case render.KindSection, render.KindHeading:
		return moduleStyle
	case render.KindLabel, render.KindComment, render.KindHeaderCell:
		return labelStyle
	default:
		return valueStyle
	}
}
