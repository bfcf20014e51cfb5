package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/viewport"
	"github.com/charmbracelet/lipgloss"
	"github.com/xonecas/zoea-tower/internal/core"
)

// DashboardData is everything the dashboard draws in one frame.
type DashboardData struct {
	Snapshot    core.Snapshot
	SelectedIdx int
	Agents      []core.AgentView // agents of the selected floor
	Log         viewport.Model
	LogLines    int
	AutoScroll  bool
	SpinnerView string
	Activity    string
}

const (
	headerHeight = 4 // banner (3) + margin
	// header, stats, floors title and border, detail title and border,
	// log title and border, footer
	chromeHeight = headerHeight + 1 + 1 + 2 + 1 + 2 + 1 + 2 + 1
	minPanel     = 3
)

// dashboardLayout splits the rows left over after the fixed chrome between the
// selected floor detail and the event log.
func dashboardLayout(floors, height int) (detailHeight, logHeight int) {
	remaining := height - chromeHeight - floors
	detailHeight = remaining / 2
	if detailHeight < minPanel {
		detailHeight = minPanel
	}
	logHeight = remaining - detailHeight
	if logHeight < minPanel {
		logHeight = minPanel
	}
	return detailHeight, logHeight
}

// RenderDashboard renders the main dashboard view.
func RenderDashboard(d DashboardData, width, height int) string {
	var sections []string

	if width < 20 {
		width = 20
	}
	sections = append(sections, renderBanner(width))
	sections = append(sections, renderStatsBar(d.Snapshot, d.Activity, width))

	sections = append(sections, renderSectionTitle("FLOORS", width))
	contentWidth := width - 4
	if len(d.Snapshot.Floors) == 0 {
		empty := dimmedStyle.Render("No floors configured.")
		sections = append(sections, floorListStyle.Width(width-2).Render(empty))
	} else {
		var lines []string
		for i, f := range d.Snapshot.Floors {
			lines = append(lines, renderFloorLine(f, i == d.SelectedIdx, d.SpinnerView, contentWidth))
		}
		sections = append(sections, floorListStyle.Width(width-2).Render(strings.Join(lines, "\n")))
	}

	detailHeight, _ := dashboardLayout(len(d.Snapshot.Floors), height)
	if d.SelectedIdx >= 0 && d.SelectedIdx < len(d.Snapshot.Floors) {
		f := d.Snapshot.Floors[d.SelectedIdx]
		title := fmt.Sprintf("FLOOR %d · %s", f.Index, strings.ToUpper(f.Name))
		sections = append(sections, renderSectionTitle(title, width))
		sections = append(sections, renderFloorDetail(f, d.Agents, d.Snapshot.Elapsed, width, detailHeight))
	}

	scrollInfo := ""
	if !d.AutoScroll && d.LogLines > 0 {
		line := d.Log.YOffset + 1
		if line > d.LogLines {
			line = d.LogLines
		}
		scrollInfo = fmt.Sprintf("  LINE %d/%d", line, d.LogLines)
	}
	sections = append(sections, renderSectionTitleWithSuffix("EVENT LOG", scrollInfo, width))
	sections = append(sections, renderLogPanel(d.Log, d.LogLines, width))

	hint := dimmedStyle.Render("[ ? ] HELP  ·  [ n ] NEW TASK  ·  [ x ] CANCEL TASK")
	sections = append(sections, hint)

	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func renderBanner(width int) string {
	line := "◆" + strings.Repeat("═", width-2) + "◆"
	titleText := " ⬡ Z O E A   T O W E R ⬡   FLOOR CONTROL"
	titlePadding := (width - lipgloss.Width(titleText)) / 2
	if titlePadding < 0 {
		titlePadding = 0
	}
	titleLine := strings.Repeat(" ", titlePadding) + titleText
	if w := lipgloss.Width(titleLine); w < width {
		titleLine += strings.Repeat(" ", width-w)
	}
	return headerStyle.Width(width).Render(line + "\n" + titleLine + "\n" + line)
}

func renderStatsBar(snap core.Snapshot, activity string, width int) string {
	active := 0
	for _, f := range snap.Floors {
		active += len(f.ActiveTasks)
	}
	stats := renderStateCounts(snap.States) +
		fmt.Sprintf("  %s %s  %s %s  %s %s",
			labelStyle.Render("agents"), valueStyle.Render(fmt.Sprint(snap.Agents)),
			labelStyle.Render("tasks"), valueStyle.Render(fmt.Sprint(active)),
			labelStyle.Render("clock"), valueStyle.Render(formatElapsed(snap.Elapsed)))
	if activity != "" {
		stats += "  " + activity
	}
	return statusBarStyle.Width(width).Render(stats)
}

// renderStateCounts draws one glyph and count per behavioral state.
func renderStateCounts(counts map[core.AgentState]int) string {
	parts := make([]string, 0, len(core.AllStates))
	for _, s := range core.AllStates {
		parts = append(parts, fmt.Sprintf("%s %-3d", StateStyle(s).Render(StateGlyph(s)), counts[s]))
	}
	return strings.Join(parts, " ")
}

func renderFloorLine(f core.FloorSnapshot, selected bool, spinnerView string, width int) string {
	indicator := dimmedStyle.Render("⬡")
	if len(f.ActiveTasks) > 0 {
		indicator = spinnerView
	}

	name := truncateWithEllipsis(f.Name, 22)
	tasks := dimmedStyle.Render("idle")
	if n := len(f.ActiveTasks); n == 1 {
		tasks = stateWorkingStyle.Render("1 task")
	} else if n > 1 {
		tasks = stateWorkingStyle.Render(fmt.Sprintf("%d tasks", n))
	}

	line := fmt.Sprintf("%s F%-2d %-22s %3d  %s  %s", indicator, f.Index, name, f.Agents, renderStateCounts(f.States), tasks)

	if selected {
		return floorItemSelectedStyle.Width(width).Render(line)
	}
	return floorItemStyle.Width(width).Render(line)
}

// renderFloorDetail lists a floor's active tasks, then its agents, within height rows.
func renderFloorDetail(f core.FloorSnapshot, agents []core.AgentView, now time.Duration, width, height int) string {
	innerWidth := width - 4
	var lines []string

	if len(f.ActiveTasks) == 0 {
		lines = append(lines, dimmedStyle.Render(fmt.Sprintf("No active tasks. %s is waiting.", f.ManagerID)))
	}
	for _, a := range f.ActiveTasks {
		lines = append(lines, renderAssignmentLine(a, now, innerWidth))
	}

	for _, a := range agents {
		lines = append(lines, renderAgentLine(a, innerWidth))
	}

	if len(lines) > height {
		more := len(lines) - height + 1
		lines = append(lines[:height-1], dimmedStyle.Render(fmt.Sprintf("… %d more", more)))
	}
	return panelStyle.Width(width - 2).Render(strings.Join(lines, "\n"))
}

func renderAssignmentLine(a core.Assignment, now time.Duration, width int) string {
	progress := assignmentProgress(a, now)
	bar := renderProgressBar(progress, 10)
	head := fmt.Sprintf("%s %s %-6s %3d%%", valueStyle.Render("▸"), bar, string(a.Strategy), progress)
	rest := fmt.Sprintf("%s · %s", a.Task.Title, strings.Join(a.Agents, ","))
	return head + " " + truncateWithEllipsis(rest, width-lipgloss.Width(head)-1)
}

// assignmentProgress estimates completion from elapsed simulated time.
func assignmentProgress(a core.Assignment, now time.Duration) int {
	if a.Duration <= 0 {
		return 0
	}
	p := int((now - a.StartedAt) * 100 / a.Duration)
	if p < 0 {
		return 0
	}
	if p > 100 {
		return 100
	}
	return p
}

func renderProgressBar(percent, width int) string {
	filled := percent * width / 100
	return stateWorkingStyle.Render(strings.Repeat("█", filled)) + dimmedStyle.Render(strings.Repeat("░", width-filled))
}

func renderAgentLine(a core.AgentView, width int) string {
	glyph := StateStyle(a.State).Render(StateGlyph(a.State))
	state := StateStyle(a.State).Render(fmt.Sprintf("%-10s", a.State))
	division := string(a.Division)
	if division == "" {
		division = "-"
	}
	line := fmt.Sprintf("%s %-18s %s %-11s", glyph, truncateWithEllipsis(a.ID, 18), state, division)
	if len(a.Tasks) > 0 {
		ids := make([]string, len(a.Tasks))
		for i, id := range a.Tasks {
			ids[i] = shortID(id)
		}
		line += " " + labelStyle.Render("on "+strings.Join(ids, ","))
	} else if a.Title != "" {
		line += " " + dimmedStyle.Render(a.Title)
	}
	return lipgloss.NewStyle().MaxWidth(width).Render(line)
}

// renderLogPanel draws the log viewport with a scrollbar on its right edge.
func renderLogPanel(vp viewport.Model, totalLines, width int) string {
	scrollbarLines := strings.Split(renderScrollbar(vp.Height, totalLines, vp.YOffset), "\n")
	contentLines := strings.Split(vp.View(), "\n")

	combined := make([]string, vp.Height)
	for i := range combined {
		var content, bar string
		if i < len(contentLines) {
			content = contentLines[i]
		}
		if i < len(scrollbarLines) {
			bar = scrollbarLines[i]
		}
		if pad := vp.Width - lipgloss.Width(content); pad > 0 {
			content += strings.Repeat(" ", pad)
		}
		combined[i] = content + " " + bar
	}
	return logStyle.Width(width-2).Padding(0, 1).Render(strings.Join(combined, "\n"))
}

func formatElapsed(d time.Duration) string {
	d = d.Truncate(time.Second)
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	s := int(d.Seconds()) % 60
	return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
}
