package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/xonecas/zoea-tower/internal/core"
)

// LogEntry is one line of the dashboard event log.
type LogEntry struct {
	Name      string
	Floor     int
	Text      string
	Timestamp time.Time
}

// LogEntryFromEvent describes a bus event for the log. Gauge updates and
// unknown payloads are not logged.
func LogEntryFromEvent(e core.Event) (LogEntry, bool) {
	entry := LogEntry{Name: e.Name, Timestamp: e.Timestamp}

	switch d := e.Data.(type) {
	case core.DelegatedData:
		entry.Floor = d.Floor
		entry.Text = fmt.Sprintf("%s delegated to %s", shortID(d.TaskID), d.ToID)
	case core.ProgressData:
		entry.Floor = d.Floor
		entry.Text = fmt.Sprintf("%s %d%%", shortID(d.TaskID), d.Progress)
	case core.CompletedData:
		entry.Floor = d.Floor
		entry.Text = fmt.Sprintf("%s completed by %s", shortID(d.TaskID), strings.Join(d.Agents, ", "))
	case core.SwarmedData:
		entry.Floor = d.Floor
		entry.Text = fmt.Sprintf("%s swarmed %d agents across %s", shortID(d.TaskID), len(d.Agents), joinDivisions(d.Divisions))
	case core.FailedData:
		entry.Floor = d.Floor
		entry.Text = fmt.Sprintf("%s failed: %s", shortID(d.TaskID), d.Reason)
	case core.SwarmRequestData:
		entry.Floor = d.RequestingFloor
		entry.Text = fmt.Sprintf("%s asks %s for %s", shortID(d.TaskID), strings.TrimSuffix(e.Name, ":swarm-request"), joinDivisions(d.NeededDivisions))
	case core.SwarmResponseData:
		entry.Floor = d.FromFloor
		entry.Text = fmt.Sprintf("%s reinforced with %d agents", shortID(d.TaskID), len(d.Agents))
	default:
		return LogEntry{}, false
	}
	return entry, true
}

// shortID keeps log lines narrow; generated ids are uuids.
func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func joinDivisions(divs []core.Division) string {
	parts := make([]string, len(divs))
	for i, d := range divs {
		parts[i] = string(d)
	}
	return strings.Join(parts, ",")
}

// appendLog adds an entry and drops the oldest ones past limit.
func appendLog(logs []LogEntry, entry LogEntry, limit int) []LogEntry {
	logs = append(logs, entry)
	if limit > 0 && len(logs) > limit {
		logs = logs[len(logs)-limit:]
	}
	return logs
}

// renderLogLines formats entries oldest first.
func renderLogLines(logs []LogEntry, width int) string {
	if len(logs) == 0 {
		return dimmedStyle.Render("No tower activity yet.")
	}

	lines := make([]string, 0, len(logs))
	for _, e := range logs {
		ts := dimmedStyle.Render(e.Timestamp.Local().Format("15:04:05"))
		floor := labelStyle.Render(fmt.Sprintf("F%-2d", e.Floor))
		name := EventStyle(e.Name).Render(fmt.Sprintf("%-15s", eventLabel(e.Name)))
		prefix := ts + " " + floor + " " + name + " "

		text := truncateWithEllipsis(e.Text, width-lipgloss.Width(prefix))
		lines = append(lines, prefix+text)
	}
	return strings.Join(lines, "\n")
}

// eventLabel drops the floor channel from swarm traffic names.
func eventLabel(name string) string {
	if i := strings.LastIndex(name, ":swarm-"); i >= 0 {
		return name[i+1:]
	}
	return name
}
