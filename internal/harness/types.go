package harness

import (
	"github.com/roach88/filescenario/internal/protocol"
	"github.com/roach88/filescenario/internal/store"
)

// TraceEvent is one stored read message, stripped of emitted_at.
type TraceEvent struct {
	Seq    int64                `json:"seq"`
	Type   protocol.MessageType `json:"type"`
	Stream string               `json:"stream,omitempty"`

	// Data holds the record data of a RECORD event.
	Data map[string]any `json:"data,omitempty"`

	// State holds the cursor state of a STATE event.
	State map[string]any `json:"state,omitempty"`

	// Level and Message are set on LOG events.
	Level   string `json:"level,omitempty"`
	Message string `json:"message,omitempty"`
}

// traceEvent converts a stored message into a trace event.
func traceEvent(m store.StoredMessage) TraceEvent {
	ev := TraceEvent{Seq: m.Seq, Type: m.Message.Type, Stream: m.Message.StreamName()}
	switch {
	case m.Message.Record != nil:
		ev.Data = m.Message.Record.Data
	case m.Message.State != nil:
		ev.State = m.Message.State.State
	case m.Message.Log != nil:
		ev.Level = m.Message.Log.Level
		ev.Message = m.Message.Log.Message
	}
	return ev
}

// Result is the outcome of a test scenario execution.
type Result struct {
	// Scenario is the name of the executed scenario.
	Scenario string `json:"scenario"`

	// Pass indicates overall test success.
	// True if every expectation of the scenario matched.
	Pass bool `json:"pass"`

	// RunID identifies the stored read. Empty if the read was skipped.
	RunID string `json:"run_id,omitempty"`

	// SyncMode is the mode the read ran with.
	SyncMode protocol.SyncMode `json:"sync_mode"`

	// Trace contains the read messages in emission order.
	Trace []TraceEvent `json:"trace"`

	// States contains the final state per stream of an incremental read.
	States map[string]map[string]any `json:"states,omitempty"`

	// Errors contains expectation failures.
	// Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`
}

// NewResult creates a new passing result.
// Used as the starting point for test execution.
func NewResult(scenario string, mode protocol.SyncMode) *Result {
	return &Result{
		Scenario: scenario,
		Pass:     true,
		SyncMode: mode,
		Trace:    []TraceEvent{},
		Errors:   []string{},
	}
}

// AddError adds an expectation failure and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// addErrors records every non-nil error.
func (r *Result) addErrors(errs ...error) {
	for _, err := range errs {
		if err != nil {
			r.AddError(err.Error())
		}
	}
}
