package tui

import (
	"github.com/charmbracelet/lipgloss"

	"auxdeck/internal/progress"
)

var (
	// TitleStyle styles the banner line above the progress display.
	TitleStyle = lipgloss.NewStyle().Bold(true)

	// DoneStyle styles the final success line.
	DoneStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))

	// ErrStyle styles the final failure line.
	ErrStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("1"))

	stageStyles = map[progress.Stage]lipgloss.Style{
		progress.StagePrepare:       lipgloss.NewStyle().Faint(true),
		progress.StageInstallTool:   lipgloss.NewStyle().Foreground(lipgloss.Color("3")),
		progress.StageDownloadAudio: lipgloss.NewStyle().Foreground(lipgloss.Color("4")),
		progress.StageFinalize:      lipgloss.NewStyle().Foreground(lipgloss.Color("2")),
	}
)

// StageStyle returns the lipgloss style for a progress stage.
func StageStyle(stage progress.Stage) lipgloss.Style {
	if s, ok := stageStyles[stage]; ok {
		return s
	}
	return lipgloss.NewStyle()
}
