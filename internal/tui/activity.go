package tui

import (
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/xonecas/zoea-tower/internal/core"
)

// Activity is the busiest kind of work running in the tower.
type Activity int

const (
	ActivityIdle  Activity = iota
	ActivityTasks          // single or multi delegations
	ActivitySwarm          // at least one swarm
)

// ActivityIndicator is a bouncing bar showing tower activity.
type ActivityIndicator struct {
	activity  Activity
	position  int // position of the "ball" (0-width)
	direction int // 1 = right, -1 = left
	width     int
}

// ActivityTickMsg is sent to animate the indicator.
type ActivityTickMsg time.Time

// NewActivityIndicator creates an idle indicator.
func NewActivityIndicator() ActivityIndicator {
	return ActivityIndicator{
		activity:  ActivityIdle,
		direction: 1,
		width:     12,
	}
}

// ActivityOf reports the busiest activity in a snapshot.
func ActivityOf(snap core.Snapshot) Activity {
	act := ActivityIdle
	for _, f := range snap.Floors {
		for _, a := range f.ActiveTasks {
			if a.Strategy == core.StrategySwarm {
				return ActivitySwarm
			}
			act = ActivityTasks
		}
	}
	return act
}

// SetActivity sets the current activity.
func (n *ActivityIndicator) SetActivity(activity Activity) {
	n.activity = activity
}

// Activity returns the current activity.
func (n ActivityIndicator) Activity() Activity {
	return n.activity
}

// Update handles tick messages for animation.
func (n ActivityIndicator) Update(msg tea.Msg) (ActivityIndicator, tea.Cmd) {
	if _, ok := msg.(ActivityTickMsg); !ok {
		return n, nil
	}
	if n.activity != ActivityIdle {
		n.position += n.direction
		if n.position >= n.width-1 {
			n.position = n.width - 1
			n.direction = -1
		} else if n.position <= 0 {
			n.position = 0
			n.direction = 1
		}
	}
	return n, n.tick()
}

func (n ActivityIndicator) tick() tea.Cmd {
	return tea.Tick(80*time.Millisecond, func(t time.Time) tea.Msg {
		return ActivityTickMsg(t)
	})
}

// Init starts the animation.
func (n ActivityIndicator) Init() tea.Cmd {
	return n.tick()
}

// View renders the indicator.
func (n ActivityIndicator) View() string {
	const (
		barEmpty  = "░"
		barFilled = "█"
		barLeft   = "▐"
		barRight  = "▌"
	)

	var (
		style lipgloss.Style
		label string
	)
	switch n.activity {
	case ActivityIdle:
		style = lipgloss.NewStyle().Foreground(colorMuted)
		return style.Render("⬦ IDLE  " + barLeft + strings.Repeat(barEmpty, n.width) + barRight)
	case ActivityTasks:
		style = lipgloss.NewStyle().Foreground(colorTeal).Bold(true)
		label = "⬥ TASK "
	case ActivitySwarm:
		style = lipgloss.NewStyle().Foreground(colorMeeting).Bold(true)
		label = "⬥ SWARM"
	}

	var bar strings.Builder
	bar.WriteString(barLeft)
	for i := 0; i < n.width; i++ {
		// 3-cell ball
		if i >= n.position-1 && i <= n.position+1 {
			bar.WriteString(barFilled)
		} else {
			bar.WriteString(barEmpty)
		}
	}
	bar.WriteString(barRight)

	return style.Render(label + " " + bar.String())
}
