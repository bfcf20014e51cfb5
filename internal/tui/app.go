// Package tui provides the terminal dashboard for the Zoea Tower.
package tui

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/google/uuid"
	"github.com/xonecas/zoea-tower/internal/constants"
	"github.com/xonecas/zoea-tower/internal/core"
)

// SourceID is the source recorded on tasks submitted from the dashboard.
const SourceID = "dashboard"

const refreshInterval = 250 * time.Millisecond

var errNoActiveTask = errors.New("no matching active task")

// Tower is the part of the simulation the dashboard drives.
// *core.Simulation satisfies it.
type Tower interface {
	Snapshot() core.Snapshot
	AgentsOnFloor(floor int) []core.AgentView
	Submit(floor int, req core.TaskRequest) (core.Task, error)
	Cancel(floor int, taskID string) error
	World() *core.WorldState
}

// Model is the main TUI model.
type Model struct {
	tower    Tower
	eventCh  <-chan core.Event
	onSubmit func(floor int, task core.Task)

	width       int
	height      int
	selectedIdx int
	showHelp    bool

	input      InputModel
	snap       core.Snapshot
	agents     []core.AgentView
	logs       []LogEntry
	viewport   viewport.Model
	logLines   int
	autoScroll bool
	spinner    spinner.Model
	activity   ActivityIndicator

	err error
}

// EventMsg wraps a core event for the TUI.
type EventMsg struct {
	Event core.Event
}

type refreshMsg struct{}

// New creates the dashboard. onSubmit, if set, is called after every task the
// user submits is accepted.
func New(tower Tower, eventCh <-chan core.Event, onSubmit func(floor int, task core.Task)) Model {
	sp := spinner.New()
	sp.Spinner = spinner.Spinner{
		Frames: []string{"⬡", "⬢", "⬡", "⬢", "⬦", "⬥", "⬦", "⬥"},
		FPS:    time.Second / 8,
	}
	sp.Style = lipgloss.NewStyle().Foreground(colorBrand)

	m := Model{
		tower:      tower,
		eventCh:    eventCh,
		onSubmit:   onSubmit,
		input:      NewInputModel(),
		viewport:   viewport.New(0, 0),
		autoScroll: true,
		spinner:    sp,
		activity:   NewActivityIndicator(),
	}
	m.refreshSnapshot()
	return m
}

// Init initializes the model.
func (m Model) Init() tea.Cmd {
	return tea.Batch(
		m.scheduleRefresh(),
		m.listenForEvents(),
		m.spinner.Tick,
		m.activity.Init(),
	)
}

// Update handles messages.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.input.SetWidth(msg.Width - 4)
		m.resizeLog()
		return m, nil

	case tea.KeyMsg:
		if m.input.IsActive() {
			return m.handleInputKey(msg)
		}

		if key.Matches(msg, keys.Help) {
			m.showHelp = !m.showHelp
			return m, nil
		}

		// Any key closes help
		if m.showHelp {
			m.showHelp = false
			return m, nil
		}

		if key.Matches(msg, keys.Quit) {
			return m, tea.Quit
		}
		return m.handleDashboardKey(msg)

	case EventMsg:
		m.handleEvent(msg.Event)
		return m, m.listenForEvents()

	case refreshMsg:
		m.refreshSnapshot()
		return m, m.scheduleRefresh()

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case ActivityTickMsg:
		var cmd tea.Cmd
		m.activity, cmd = m.activity.Update(msg)
		return m, cmd
	}

	return m, nil
}

// View renders the UI.
func (m Model) View() string {
	if m.width == 0 || m.height == 0 {
		return "Loading..."
	}

	var content string
	if m.showHelp {
		content = RenderHelp(m.width, m.height)
	} else {
		content = RenderDashboard(DashboardData{
			Snapshot:    m.snap,
			SelectedIdx: m.selectedIdx,
			Agents:      m.agents,
			Log:         m.viewport,
			LogLines:    m.logLines,
			AutoScroll:  m.autoScroll,
			SpinnerView: m.spinner.View(),
			Activity:    m.activity.View(),
		}, m.width, m.height-3)
	}

	if m.input.IsActive() {
		content += "\n" + m.input.View()
	}

	if m.err != nil {
		content += "\n" + errorStyle.Render(fmt.Sprintf("Error: %v", m.err))
	}

	return content
}

func (m Model) handleDashboardKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, keys.Up), key.Matches(msg, keys.ShiftTab):
		if m.selectedIdx > 0 {
			m.selectedIdx--
			m.selectFloor()
		}

	case key.Matches(msg, keys.Down), key.Matches(msg, keys.Tab):
		if m.selectedIdx < len(m.snap.Floors)-1 {
			m.selectedIdx++
			m.selectFloor()
		}

	case key.Matches(msg, keys.NewTask):
		if floor, ok := m.selectedFloor(); ok {
			m.input.SetMode(InputModeTask, floor.Index)
			return m, m.input.Focus()
		}

	case key.Matches(msg, keys.CancelTask):
		if floor, ok := m.selectedFloor(); ok {
			if len(floor.ActiveTasks) == 0 {
				m.err = fmt.Errorf("floor %d: %w", floor.Index, errNoActiveTask)
				return m, nil
			}
			m.input.SetMode(InputModeCancel, floor.Index)
			return m, m.input.Focus()
		}

	case key.Matches(msg, keys.Bottom):
		m.viewport.GotoBottom()
		m.autoScroll = true

	case key.Matches(msg, keys.PageUp), key.Matches(msg, keys.PageDown):
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		m.autoScroll = m.viewport.AtBottom()
		return m, cmd
	}

	return m, nil
}

func (m Model) handleInputKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, keys.Escape):
		m.input.Reset()
		return m, nil

	case key.Matches(msg, keys.Enter):
		value := strings.TrimSpace(m.input.Value())
		floor := m.input.Floor()

		switch m.input.Mode() {
		case InputModeTask:
			if value != "" {
				m.err = m.submitTask(floor, value)
				if m.err == nil {
					m.input.AddToHistory(value)
				}
			}

		case InputModeCancel:
			m.err = m.cancelTask(floor, value)
		}

		m.input.Reset()
		m.refreshSnapshot()
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m *Model) submitTask(floor int, value string) error {
	title, priority := ParseTaskInput(value)
	task, err := m.tower.Submit(floor, core.TaskRequest{
		ID:       uuid.New().String(),
		Title:    title,
		Priority: priority,
		Source:   SourceID,
	})
	if err != nil {
		return err
	}
	if m.onSubmit != nil {
		m.onSubmit(floor, task)
	}
	return nil
}

// cancelTask cancels the active task on floor whose id starts with prefix.
// An empty prefix picks the oldest task.
func (m *Model) cancelTask(floor int, prefix string) error {
	var candidates []core.Assignment
	for _, f := range m.snap.Floors {
		if f.Index == floor {
			candidates = f.ActiveTasks
			break
		}
	}

	var target *core.Assignment
	for i := range candidates {
		a := &candidates[i]
		if !strings.HasPrefix(a.Task.ID, prefix) {
			continue
		}
		if target == nil || a.StartedAt < target.StartedAt {
			target = a
		}
	}
	if target == nil {
		return fmt.Errorf("floor %d: %w", floor, errNoActiveTask)
	}
	return m.tower.Cancel(floor, target.Task.ID)
}

func (m *Model) handleEvent(event core.Event) {
	entry, ok := LogEntryFromEvent(event)
	if !ok {
		return
	}

	m.logs = appendLog(m.logs, entry, constants.EventLogSize)
	m.updateLogContent()

	if strings.HasPrefix(event.Name, "task:") && event.Name != core.EventTaskProgress {
		m.refreshSnapshot()
	}

	// Clear error on successful events
	if event.Name != core.EventTaskFailed {
		m.err = nil
	}
}

func (m *Model) refreshSnapshot() {
	m.snap = m.tower.Snapshot()
	if m.selectedIdx >= len(m.snap.Floors) {
		m.selectedIdx = len(m.snap.Floors) - 1
	}
	if m.selectedIdx < 0 {
		m.selectedIdx = 0
	}

	m.agents = nil
	if f, ok := m.selectedFloor(); ok {
		m.agents = m.tower.AgentsOnFloor(f.Index)
	}
	m.activity.SetActivity(ActivityOf(m.snap))
}

func (m Model) selectedFloor() (core.FloorSnapshot, bool) {
	if m.selectedIdx < 0 || m.selectedIdx >= len(m.snap.Floors) {
		return core.FloorSnapshot{}, false
	}
	return m.snap.Floors[m.selectedIdx], true
}

// selectFloor publishes the selection to the world state and reloads the floor detail.
func (m *Model) selectFloor() {
	f, ok := m.selectedFloor()
	if !ok {
		return
	}
	m.tower.World().Set(core.KeySelectedFloor, f.Index)
	m.agents = m.tower.AgentsOnFloor(f.Index)
}

func (m *Model) resizeLog() {
	_, logHeight := dashboardLayout(len(m.snap.Floors), m.height-3)
	m.viewport.Width = m.width - 6 // border, padding and scrollbar
	m.viewport.Height = logHeight
	m.updateLogContent()
}

func (m *Model) updateLogContent() {
	content := renderLogLines(m.logs, m.viewport.Width)
	m.logLines = strings.Count(content, "\n") + 1
	m.viewport.SetContent(content)
	if m.autoScroll {
		m.viewport.GotoBottom()
	}
}

func (m Model) scheduleRefresh() tea.Cmd {
	return tea.Tick(refreshInterval, func(time.Time) tea.Msg {
		return refreshMsg{}
	})
}

func (m Model) listenForEvents() tea.Cmd {
	return func() tea.Msg {
		event, ok := <-m.eventCh
		if !ok {
			return nil
		}
		return EventMsg{Event: event}
	}
}

// Key bindings
var keys = struct {
	Quit       key.Binding
	Help       key.Binding
	Escape     key.Binding
	Enter      key.Binding
	Tab        key.Binding
	ShiftTab   key.Binding
	Up         key.Binding
	Down       key.Binding
	NewTask    key.Binding
	CancelTask key.Binding
	PageUp     key.Binding
	PageDown   key.Binding
	Bottom     key.Binding
}{
	Quit:       key.NewBinding(key.WithKeys("q", "ctrl+c")),
	Help:       key.NewBinding(key.WithKeys("?")),
	Escape:     key.NewBinding(key.WithKeys("esc")),
	Enter:      key.NewBinding(key.WithKeys("enter")),
	Tab:        key.NewBinding(key.WithKeys("tab")),
	ShiftTab:   key.NewBinding(key.WithKeys("shift+tab")),
	Up:         key.NewBinding(key.WithKeys("up", "k")),
	Down:       key.NewBinding(key.WithKeys("down", "j")),
	NewTask:    key.NewBinding(key.WithKeys("n")),
	CancelTask: key.NewBinding(key.WithKeys("x")),
	PageUp:     key.NewBinding(key.WithKeys("pgup")),
	PageDown:   key.NewBinding(key.WithKeys("pgdown")),
	Bottom:     key.NewBinding(key.WithKeys("G", "end")),
}
