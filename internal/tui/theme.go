package tui

import "github.com/charmbracelet/lipgloss"

var (
	colorBg      = lipgloss.Color("#080e1a")
	colorBorder  = lipgloss.Color("#1e3356")
	colorIce     = lipgloss.Color("#a8d8f0")
	colorSnow    = lipgloss.Color("#deeeff")
	colorGlow    = lipgloss.Color("#4da6d6")
	colorGreen   = lipgloss.Color("#5ddba5")
	colorEmber   = lipgloss.Color("#f09060")
	colorMuted   = lipgloss.Color("#4a6a8a")
	colorDim     = lipgloss.Color("#2a4a6a")
	colorDanger  = lipgloss.Color("#e06c75")
	colorWarning = lipgloss.Color("#e5c07b")

	titleStyle = lipgloss.NewStyle().Foreground(colorSnow).Bold(true)
	labelStyle = lipgloss.NewStyle().Foreground(colorMuted)
	focusStyle = lipgloss.NewStyle().Foreground(colorIce).Bold(true)
	panelStyle = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(colorBorder).Padding(0, 1)
	statStyle  = lipgloss.NewStyle().Width(18).Align(lipgloss.Center)
	helpStyle  = lipgloss.NewStyle().Foreground(colorDim)
	timeStyle  = lipgloss.NewStyle().Foreground(colorDim)
)

func valueStyle(state string) lipgloss.Style {
	s := lipgloss.NewStyle().Bold(true)
	switch state {
	case "drop":
		return s.Foreground(colorGreen)
	case "rise":
		return s.Foreground(colorEmber)
	case "error":
		return s.Foreground(colorDanger)
	}
	return s.Foreground(colorSnow)
}

func buttonStyle(running bool) lipgloss.Style {
	bg := colorGlow
	if running {
		bg = colorEmber
	}
	return lipgloss.NewStyle().Foreground(colorBg).Background(bg).Bold(true).Padding(0, 2)
}
