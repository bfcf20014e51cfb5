package tui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

const (
	scrollbarThumb = "█"
	scrollbarTrack = "│"
)

var (
	scrollTrackStyle = lipgloss.NewStyle().Foreground(colorBorder)
	scrollThumbStyle = lipgloss.NewStyle().Foreground(colorBrandDim)
)

// renderScrollbar draws a one-column scrollbar for a log of totalLines shown
// height lines at a time, starting at scrollOffset.
func renderScrollbar(height, totalLines, scrollOffset int) string {
	if height <= 0 {
		return ""
	}

	thumbPos, thumbSize := 0, 0
	if totalLines > height {
		thumbSize = height * height / totalLines
		if thumbSize < 1 {
			thumbSize = 1
		}

		ratio := float64(scrollOffset) / float64(totalLines-height)
		if ratio < 0 {
			ratio = 0
		}
		if ratio > 1 {
			ratio = 1
		}
		thumbPos = int(ratio * float64(height-thumbSize))
	}

	lines := make([]string, height)
	for i := range lines {
		if i >= thumbPos && i < thumbPos+thumbSize {
			lines[i] = scrollThumbStyle.Render(scrollbarThumb)
		} else {
			lines[i] = scrollTrackStyle.Render(scrollbarTrack)
		}
	}
	return strings.Join(lines, "\n")
}
