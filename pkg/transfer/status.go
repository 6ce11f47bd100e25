package transfer

import (
	"encoding/json"
	"fmt"
	"math"
)

// This file defines the lifecycle state shared by the manager's queue
// bookkeeping and the user-facing selected items.
//
// StateKind:      which lifecycle phase a transfer is in
// TransferState:  the phase plus its payload (percent or error message)
//
// The manager is the only writer. Selected items receive a copy through
// StateChange events, so queue status and displayed status never diverge.

// StateKind identifies a lifecycle phase
type StateKind int

const (
	// StatePending indicates the transfer is selected or queued but not running
	StatePending StateKind = iota
	// StateInProgress indicates the transfer is actively moving bytes
	StateInProgress
	// StatePaused indicates the transfer was stopped and can be resumed
	StatePaused
	// StateCompleted indicates the transfer finished successfully
	StateCompleted
	// StateFailed indicates the data plane reported an error
	StateFailed
	// StateCancelled indicates the user cancelled the transfer
	StateCancelled
)

// String returns the wire name of the phase
func (k StateKind) String() string {
	switch k {
	case StatePending:
		return "pending"
	case StateInProgress:
		return "in_progress"
	case StatePaused:
		return "paused"
	case StateCompleted:
		return "completed"
	case StateFailed:
		return "failed"
	case StateCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

func parseStateKind(s string) (StateKind, error) {
	switch s {
	case "pending":
		return StatePending, nil
	case "in_progress":
		return StateInProgress, nil
	case "paused":
		return StatePaused, nil
	case "completed":
		return StateCompleted, nil
	case "failed":
		return StateFailed, nil
	case "cancelled":
		return StateCancelled, nil
	default:
		return 0, fmt.Errorf("%w: unknown state kind %q", ErrInvalidState, s)
	}
}

// IsTerminal returns true if the phase is final (completed, failed, or cancelled)
func (k StateKind) IsTerminal() bool {
	return k == StateCompleted || k == StateFailed || k == StateCancelled
}

// TransferState is an immutable lifecycle value. The zero value is Pending.
type TransferState struct {
	kind    StateKind
	percent float64
	err     string
}

// Pending returns the initial state of a selected item
func Pending() TransferState { return TransferState{kind: StatePending} }

// InProgress returns a running state with the percent clamped to [0,100]
func InProgress(percent float64) TransferState {
	return TransferState{kind: StateInProgress, percent: clampPercent(percent)}
}

// Paused returns a paused state keeping the percent reached so far
func Paused(percent float64) TransferState {
	return TransferState{kind: StatePaused, percent: clampPercent(percent)}
}

// Completed returns the successful terminal state
func Completed() TransferState { return TransferState{kind: StateCompleted} }

// Failed returns the failed terminal state carrying the error message
func Failed(msg string) TransferState { return TransferState{kind: StateFailed, err: msg} }

// Cancelled returns the cancelled terminal state
func Cancelled() TransferState { return TransferState{kind: StateCancelled} }

func clampPercent(p float64) float64 {
	if math.IsNaN(p) || p < 0 {
		return 0
	}
	if p > 100 {
		return 100
	}
	return p
}

// Kind returns the lifecycle phase
func (s TransferState) Kind() StateKind { return s.kind }

// Progress returns the completion percentage: 0 for pending and failed,
// 100 for completed, the stored value for in-progress and paused.
func (s TransferState) Progress() float64 {
	switch s.kind {
	case StateInProgress, StatePaused:
		return s.percent
	case StateCompleted:
		return 100
	default:
		return 0
	}
}

func (s TransferState) IsPending() bool    { return s.kind == StatePending }
func (s TransferState) IsInProgress() bool { return s.kind == StateInProgress }
func (s TransferState) IsPaused() bool     { return s.kind == StatePaused }
func (s TransferState) IsCompleted() bool  { return s.kind == StateCompleted }
func (s TransferState) IsFailed() bool     { return s.kind == StateFailed }
func (s TransferState) IsCancelled() bool  { return s.kind == StateCancelled }

// IsTerminal returns true for completed, failed and cancelled
func (s TransferState) IsTerminal() bool { return s.kind.IsTerminal() }

// Error returns the failure message, if any
func (s TransferState) Error() (string, bool) {
	if s.kind == StateFailed {
		return s.err, true
	}
	return "", false
}

// String renders the state for display
func (s TransferState) String() string {
	switch s.kind {
	case StatePending:
		return "Pending"
	case StateInProgress:
		return fmt.Sprintf("In Progress (%.1f%%)", s.percent)
	case StatePaused:
		return fmt.Sprintf("Paused (%.1f%%)", s.percent)
	case StateCompleted:
		return "Completed"
	case StateFailed:
		return "Failed: " + s.err
	case StateCancelled:
		return "Cancelled"
	default:
		return "Unknown"
	}
}

type stateJSON struct {
	Kind    string   `json:"kind"`
	Percent *float64 `json:"percent,omitempty"`
	Error   string   `json:"error,omitempty"`
}

// MarshalJSON encodes the state as {"kind": ..., "percent": ..., "error": ...}
func (s TransferState) MarshalJSON() ([]byte, error) {
	out := stateJSON{Kind: s.kind.String()}
	switch s.kind {
	case StateInProgress, StatePaused:
		p := s.percent
		out.Percent = &p
	case StateFailed:
		out.Error = s.err
	}
	return json.Marshal(out)
}

// UnmarshalJSON decodes the format written by MarshalJSON
func (s *TransferState) UnmarshalJSON(data []byte) error {
	var in stateJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	kind, err := parseStateKind(in.Kind)
	if err != nil {
		return err
	}
	var percent float64
	if in.Percent != nil {
		percent = *in.Percent
	}
	switch kind {
	case StateInProgress:
		*s = InProgress(percent)
	case StatePaused:
		*s = Paused(percent)
	case StateFailed:
		*s = Failed(in.Error)
	default:
		*s = TransferState{kind: kind}
	}
	return nil
}
