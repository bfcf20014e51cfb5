package tui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/xonecas/zoea-tower/internal/core"
)

// Colors - retro tower console palette
var (
	// Brand colors
	colorBrand    = lipgloss.Color("#9D00FF") // Electric purple
	colorTeal     = lipgloss.Color("#00FFCC") // Bright teal
	colorBrandDim = lipgloss.Color("#6B00B3")

	// Agent state colors
	colorWorking    = lipgloss.Color("#00FF66")
	colorMeeting    = lipgloss.Color("#FF00CC")
	colorNetworking = lipgloss.Color("#00CCFF")
	colorMoving     = lipgloss.Color("#FFCC00")

	// Semantic colors
	colorError   = lipgloss.Color("#FF3366")
	colorSuccess = lipgloss.Color("#00FF66")
	colorMuted   = lipgloss.Color("#5555AA")

	colorBg      = lipgloss.Color("#08080F")
	colorBgAlt   = lipgloss.Color("#101018")
	colorBgPanel = lipgloss.Color("#14141F")
	colorBorder  = lipgloss.Color("#2A2A55")
)

var (
	// Header - bold brand presence, decorative lines are in the content
	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(colorBrand).
			Background(colorBgAlt).
			MarginBottom(1)

	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(colorBrand)

	statusBarStyle = lipgloss.NewStyle().
			Foreground(colorTeal).
			Background(colorBgAlt).
			Padding(0, 1)

	// Floor list - double border for that 80s terminal aesthetic
	floorListStyle = lipgloss.NewStyle().
			Border(lipgloss.DoubleBorder()).
			BorderForeground(colorBrandDim)

	floorItemStyle = lipgloss.NewStyle().
			Foreground(colorTeal).
			Padding(0, 1)

	floorItemSelectedStyle = lipgloss.NewStyle().
				Foreground(colorBg).
				Background(colorBrand).
				Bold(true).
				Padding(0, 1)

	stateWorkingStyle = lipgloss.NewStyle().
				Foreground(colorWorking).
				Bold(true)

	stateIdleStyle = lipgloss.NewStyle().
			Foreground(colorTeal)

	stateMeetingStyle = lipgloss.NewStyle().
				Foreground(colorMeeting)

	stateNetworkingStyle = lipgloss.NewStyle().
				Foreground(colorNetworking)

	stateMovingStyle = lipgloss.NewStyle().
				Foreground(colorMoving).
				Italic(true)

	// Event log
	logStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(colorBrandDim)

	eventSuccessStyle = lipgloss.NewStyle().
				Foreground(colorSuccess).
				Bold(true)

	eventFailedStyle = lipgloss.NewStyle().
				Foreground(colorError).
				Bold(true)

	eventSwarmStyle = lipgloss.NewStyle().
			Foreground(colorMeeting)

	eventInfoStyle = lipgloss.NewStyle().
			Foreground(colorNetworking)

	// Input - teal border, brand prompt
	inputStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(colorTeal).
			Padding(0, 1)

	inputPromptStyle = lipgloss.NewStyle().
				Foreground(colorBrand).
				Bold(true)

	helpStyle = lipgloss.NewStyle().
			Border(lipgloss.DoubleBorder()).
			BorderForeground(colorBrand).
			Background(colorBgPanel).
			Padding(1, 2).
			Margin(1)

	helpKeyStyle = lipgloss.NewStyle().
			Foreground(colorTeal).
			Bold(true)

	helpDescStyle = lipgloss.NewStyle().
			Foreground(colorMuted)

	panelStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(colorBorder).
			Background(colorBgPanel).
			Padding(0, 1)

	panelTitleStyle = lipgloss.NewStyle().
			Foreground(colorTeal).
			Bold(true)

	labelStyle = lipgloss.NewStyle().
			Foreground(colorMuted)

	valueStyle = lipgloss.NewStyle().
			Foreground(colorBrand).
			Bold(true)

	dimmedStyle = lipgloss.NewStyle().
			Foreground(colorMuted)

	errorStyle = lipgloss.NewStyle().
			Foreground(colorError).
			Bold(true)
)

// StateStyle returns the style for an agent state.
func StateStyle(state core.AgentState) lipgloss.Style {
	switch state {
	case core.StateWorking:
		return stateWorkingStyle
	case core.StateMeeting:
		return stateMeetingStyle
	case core.StateNetworking:
		return stateNetworkingStyle
	case core.StateMoving:
		return stateMovingStyle
	default:
		return stateIdleStyle
	}
}

// StateGlyph returns the single-cell marker drawn for an agent state.
func StateGlyph(state core.AgentState) string {
	switch state {
	case core.StateWorking:
		return "●"
	case core.StateMeeting:
		return "◆"
	case core.StateNetworking:
		return "◇"
	case core.StateMoving:
		return "→"
	default:
		return "○"
	}
}

// EventStyle returns the style for an event log line.
func EventStyle(name string) lipgloss.Style {
	switch {
	case name == core.EventTaskCompleted:
		return eventSuccessStyle
	case name == core.EventTaskFailed:
		return eventFailedStyle
	case name == core.EventTaskSwarmed,
		strings.HasSuffix(name, ":swarm-request"),
		strings.HasSuffix(name, ":swarm-response"):
		return eventSwarmStyle
	default:
		return eventInfoStyle
	}
}

// renderSectionTitle renders a section title that spans the full width.
func renderSectionTitle(title string, width int) string {
	return renderSectionTitleWithSuffix(title, "", width)
}

// renderSectionTitleWithSuffix renders a section title with an optional suffix (like scroll indicator).
func renderSectionTitleWithSuffix(title, suffix string, width int) string {
	// Format: ⬧── TITLE ──⬧ [suffix], the ⬧─ markers take 4 cells
	titleWithSpaces := " " + title + " "
	availableWidth := width - lipgloss.Width(titleWithSpaces) - 4 - lipgloss.Width(suffix)
	if availableWidth < 2 {
		availableWidth = 2
	}
	leftDashes := availableWidth / 2
	rightDashes := availableWidth - leftDashes

	line := "⬧─" + strings.Repeat("─", leftDashes) + titleWithSpaces + strings.Repeat("─", rightDashes) + "─⬧"
	if suffix != "" {
		line += suffix
	}
	return panelTitleStyle.Width(width).Render(line)
}

// truncateToWidth truncates a string to fit within maxWidth display columns.
// Uses rune-aware iteration to avoid cutting multi-byte characters.
func truncateToWidth(s string, maxWidth int) string {
	if maxWidth <= 0 {
		return ""
	}
	currentWidth := 0
	for i, r := range s {
		charWidth := lipgloss.Width(string(r))
		if currentWidth+charWidth > maxWidth {
			return s[:i]
		}
		currentWidth += charWidth
	}
	return s
}

func truncateWithEllipsis(s string, maxWidth int) string {
	if maxWidth <= 0 {
		return ""
	}
	if lipgloss.Width(s) <= maxWidth {
		return s
	}
	if maxWidth <= 3 {
		return truncateToWidth(s, maxWidth)
	}
	return truncateToWidth(s, maxWidth-3) + "..."
}
