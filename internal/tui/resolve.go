package tui

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"auxdeck/internal/progress"
)

const (
	tickInterval = 150 * time.Millisecond
	barWidth     = 30
)

var spinnerFrames = []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}

// tickMsg drives the spinner animation.
type tickMsg time.Time

// ResolveModel is a bubbletea model that renders the progress of a single
// source-resolution request. Incoming events pass through a tracker so a
// reordered event never makes the bar move backwards.
type ResolveModel struct {
	requestID string
	source    string
	tracker   *progress.Tracker

	title    string
	location string
	done     bool
	err      error

	tick int
}

// NewResolveModel creates a model for the given request and source string.
func NewResolveModel(requestID, source string) ResolveModel {
	return ResolveModel{
		requestID: requestID,
		source:    source,
		tracker:   progress.NewTracker(),
	}
}

func scheduleTick() tea.Cmd {
	return tea.Tick(tickInterval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// Init satisfies the tea.Model interface.
func (m ResolveModel) Init() tea.Cmd {
	return scheduleTick()
}

// Update satisfies the tea.Model interface.
func (m ResolveModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tickMsg:
		m.tick++
		if m.done {
			return m, nil
		}
		return m, scheduleTick()

	case EventMsg:
		if msg.Event.RequestID == m.requestID {
			m.tracker.Observe(msg.Event)
		}
		return m, nil

	case DoneMsg:
		m.title = msg.Title
		m.location = msg.Location
		m.done = true
		return m, tea.Quit

	case ErrorMsg:
		m.err = msg.Err
		m.done = true
		return m, tea.Quit

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			m.done = true
			return m, tea.Quit
		}
	}
	return m, nil
}

// View satisfies the tea.Model interface.
func (m ResolveModel) View() string {
	var b strings.Builder

	b.WriteString(TitleStyle.Render("Resolving " + m.source))
	b.WriteByte('\n')

	if m.done {
		if m.err != nil {
			fmt.Fprintf(&b, "%s\n", ErrStyle.Render("Error: "+m.err.Error()))
		} else if m.location != "" {
			fmt.Fprintf(&b, "%s\n", DoneStyle.Render(fmt.Sprintf("Done: %s (%s)", m.title, m.location)))
		} else {
			fmt.Fprintf(&b, "%s\n", DoneStyle.Render("Done"))
		}
		return b.String()
	}

	spinner := spinnerFrames[m.tick%len(spinnerFrames)]
	st, ok := m.tracker.State(m.requestID)
	if !ok {
		fmt.Fprintf(&b, "%s classifying...\n", spinner)
		return b.String()
	}

	stage := StageStyle(st.Stage).Render(string(st.Stage))
	fmt.Fprintf(&b, "%s %s  %s", spinner, stage, st.Message)
	if st.Percent != progress.PercentUnset {
		fmt.Fprintf(&b, "\n  %s %3d%%", renderBar(st.Percent), st.Percent)
	}
	b.WriteByte('\n')
	return b.String()
}

// Done returns whether the model has finished.
func (m ResolveModel) Done() bool {
	return m.done
}

// Err returns any fatal error that occurred.
func (m ResolveModel) Err() error {
	return m.err
}

func renderBar(percent int) string {
	if percent < 0 {
		percent = 0
	}
	if percent > 100 {
		percent = 100
	}
	filled := percent * barWidth / 100
	return "[" + strings.Repeat("=", filled) + strings.Repeat(" ", barWidth-filled) + "]"
}
