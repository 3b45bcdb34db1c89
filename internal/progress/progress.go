// Package progress defines the correlated progress events emitted during
// track-source resolution and the consumer-side merge that keeps a visible
// progress value from regressing under out-of-order delivery.
package progress

import "sync"

// Stage identifies the phase of work an event reports on.
type Stage string

const (
	StagePrepare       Stage = "prepare"
	StageInstallTool   Stage = "install-tool"
	StageDownloadAudio Stage = "download-audio"
	StageFinalize      Stage = "finalize"
)

// PercentUnset marks an event that carries no numeric progress value.
const PercentUnset = -1

// Event is a single progress report, correlated to a caller-chosen request
// identifier echoed back on every event for that request.
type Event struct {
	RequestID string
	Stage     Stage
	Message   string
	Percent   int
}

// Sink receives progress events. Delivery is best effort: the transport may
// reorder or duplicate events, which is why consumers merge through a Tracker.
type Sink interface {
	Publish(ev Event)
}

// SinkFunc adapts a function to the Sink interface.
type SinkFunc func(Event)

func (f SinkFunc) Publish(ev Event) { f(ev) }

// Nop discards all events.
type Nop struct{}

func (Nop) Publish(Event) {}

// State is the merged, consumer-visible view for one request.
type State struct {
	Stage   Stage
	Message string
	Percent int
}

// Tracker reconciles events per request id. The numeric value is a high-water
// mark: an event with a lower percent than previously observed keeps the
// higher value while still adopting the new stage and message. An event with
// no percent at all retains the previous value only while download activity
// is ongoing; any other stage change resets the value to unset.
type Tracker struct {
	mu     sync.Mutex
	states map[string]State
}

func NewTracker() *Tracker {
	return &Tracker{states: make(map[string]State)}
}

// Observe merges an event into the tracked state for its request id and
// returns the resulting view.
func (t *Tracker) Observe(ev Event) State {
	t.mu.Lock()
	defer t.mu.Unlock()

	prev, ok := t.states[ev.RequestID]
	next := State{Stage: ev.Stage, Message: ev.Message, Percent: ev.Percent}

	if ok {
		switch {
		case ev.Percent == PercentUnset && ev.Stage == StageDownloadAudio:
			next.Percent = prev.Percent
		case ev.Percent != PercentUnset && prev.Percent > ev.Percent:
			next.Percent = prev.Percent
		}
	}

	t.states[ev.RequestID] = next
	return next
}

// State returns the current merged view for a request id.
func (t *Tracker) State(requestID string) (State, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	st, ok := t.states[requestID]
	return st, ok
}

// Forget discards the tracked state for a finished request.
func (t *Tracker) Forget(requestID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.states, requestID)
}
