package tui

import "auxdeck/internal/progress"

// EventMsg carries one progress event into the model.
type EventMsg struct {
	Event progress.Event
}

// DoneMsg signals that resolution finished successfully.
type DoneMsg struct {
	Title    string
	Location string
}

// ErrorMsg signals a fatal error; the TUI should quit.
type ErrorMsg struct {
	Err error
}
