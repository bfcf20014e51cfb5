package tui

import (
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/xonecas/zoea-tower/internal/core"
)

// InputMode represents the current input mode.
type InputMode int

const (
	InputModeNone InputMode = iota
	InputModeTask
	InputModeCancel
)

const maxHistorySize = 100

// InputModel handles text input for task submission and cancellation.
type InputModel struct {
	textInput    textinput.Model
	mode         InputMode
	floor        int      // target floor
	history      []string // previously submitted tasks
	historyIndex int      // -1 = not browsing
	draft        string   // saved draft when browsing history
}

// NewInputModel creates a new input model.
func NewInputModel() InputModel {
	ti := textinput.New()
	ti.CharLimit = 200
	ti.Width = 60

	return InputModel{
		textInput:    ti,
		mode:         InputModeNone,
		history:      make([]string, 0, maxHistorySize),
		historyIndex: -1,
	}
}

// SetMode sets the input mode and updates the prompt.
func (m *InputModel) SetMode(mode InputMode, floor int) {
	m.mode = mode
	m.floor = floor
	m.textInput.Reset()

	switch mode {
	case InputModeTask:
		m.textInput.Placeholder = "Task title, optional !priority (e.g. Patch firewall !P1)..."
		m.textInput.Prompt = inputPromptStyle.Render("⬡ ") + " "
	case InputModeCancel:
		m.textInput.Placeholder = "Task id prefix to cancel, empty for the oldest..."
		m.textInput.Prompt = inputPromptStyle.Render("✖ ") + " "
	default:
		m.textInput.Placeholder = ""
		m.textInput.Prompt = ""
	}

	if mode != InputModeNone {
		m.textInput.Focus()
	} else {
		m.textInput.Blur()
	}
}

// Mode returns the current input mode.
func (m InputModel) Mode() InputMode {
	return m.mode
}

// Floor returns the floor the input targets.
func (m InputModel) Floor() int {
	return m.floor
}

// Value returns the current input value.
func (m InputModel) Value() string {
	return m.textInput.Value()
}

// IsActive returns true if input is active.
func (m InputModel) IsActive() bool {
	return m.mode != InputModeNone
}

// Focus returns the command to start the text input cursor.
func (m InputModel) Focus() tea.Cmd {
	return textinput.Blink
}

var historyKeys = struct {
	Up   key.Binding
	Down key.Binding
}{
	Up:   key.NewBinding(key.WithKeys("up")),
	Down: key.NewBinding(key.WithKeys("down")),
}

// Update handles input updates.
func (m InputModel) Update(msg tea.Msg) (InputModel, tea.Cmd) {
	if keyMsg, ok := msg.(tea.KeyMsg); ok && m.mode == InputModeTask {
		switch {
		case key.Matches(keyMsg, historyKeys.Up):
			m.navigateHistory(1)
			return m, nil
		case key.Matches(keyMsg, historyKeys.Down):
			m.navigateHistory(-1)
			return m, nil
		}
	}

	var cmd tea.Cmd
	m.textInput, cmd = m.textInput.Update(msg)
	return m, cmd
}

// navigateHistory moves through the history.
// direction: 1 = older (up), -1 = newer (down)
func (m *InputModel) navigateHistory(direction int) {
	if len(m.history) == 0 {
		return
	}

	if m.historyIndex == -1 && direction == 1 {
		m.draft = m.textInput.Value()
	}

	newIndex := m.historyIndex + direction
	if newIndex < -1 {
		newIndex = -1
	}
	if newIndex >= len(m.history) {
		newIndex = len(m.history) - 1
	}
	m.historyIndex = newIndex

	if m.historyIndex == -1 {
		m.textInput.SetValue(m.draft)
	} else {
		// Most recent is at the end of the slice
		m.textInput.SetValue(m.history[len(m.history)-1-m.historyIndex])
	}
	m.textInput.CursorEnd()
}

// View renders the input.
func (m InputModel) View() string {
	if m.mode == InputModeNone {
		return ""
	}
	return inputStyle.Render(m.textInput.View())
}

// Reset clears the input.
func (m *InputModel) Reset() {
	m.textInput.Reset()
	m.mode = InputModeNone
	m.floor = 0
	m.historyIndex = -1
	m.draft = ""
	m.textInput.Blur()
}

// AddToHistory adds a submitted task to the history.
func (m *InputModel) AddToHistory(entry string) {
	if entry == "" {
		return
	}
	if len(m.history) > 0 && m.history[len(m.history)-1] == entry {
		return
	}

	m.history = append(m.history, entry)
	if len(m.history) > maxHistorySize {
		m.history = m.history[len(m.history)-maxHistorySize:]
	}
}

// SetWidth sets the input width.
func (m *InputModel) SetWidth(width int) {
	m.textInput.Width = width - 4 // padding and border
}

// ParseTaskInput splits "title !priority" into its parts. A trailing token
// starting with '!' sets the priority; the default is P2.
func ParseTaskInput(value string) (string, core.Priority) {
	value = strings.TrimSpace(value)
	priority := core.Priority("P2")

	fields := strings.Fields(value)
	if n := len(fields); n > 1 && strings.HasPrefix(fields[n-1], "!") && len(fields[n-1]) > 1 {
		priority = core.Priority(strings.TrimPrefix(fields[n-1], "!"))
		value = strings.Join(fields[:n-1], " ")
	}
	return value, priority
}
