package transfers

import (
	appevents "github.com/rescp17/s3tui/internal/app_events"
	"github.com/rescp17/s3tui/pkg/model"
	"github.com/rescp17/s3tui/pkg/transfer"
)

// --- App Events (from TUI to App) ---

// RunTransfersMsg queues every selected item that has no job yet
type RunTransfersMsg struct {
	appevents.Event
}

// PauseTransferMsg pauses the active job behind Item
type PauseTransferMsg struct {
	appevents.Event
	Item model.TransferItem
}

// ResumeTransferMsg resumes Item. A restored item that was never queued
// in this process is queued ahead of everything else.
type ResumeTransferMsg struct {
	appevents.Event
	Item model.TransferItem
}

// CancelTransferMsg cancels Item whether it is queued, paused, active or
// not queued at all.
type CancelTransferMsg struct {
	appevents.Event
	Item model.TransferItem
}

// ClearFinishedMsg drops completed, failed and cancelled items
type ClearFinishedMsg struct {
	appevents.Event
}

var (
	_ appevents.AppEvent = RunTransfersMsg{}
	_ appevents.AppEvent = PauseTransferMsg{}
	_ appevents.AppEvent = ResumeTransferMsg{}
	_ appevents.AppEvent = CancelTransferMsg{}
	_ appevents.AppEvent = ClearFinishedMsg{}
)

// --- UI Messages (from App to TUI) ---

// StateChangedMsg reports a job moving to a new state
type StateChangedMsg struct {
	appevents.UIMessage
	Change transfer.StateChange
}

// ProgressMsg reports bytes moved by an active job
type ProgressMsg struct {
	appevents.UIMessage
	Progress transfer.Progress
}

// SelectionChangedMsg reports items being added, expanded or cleared
type SelectionChangedMsg struct {
	appevents.UIMessage
}

// StatusUpdateMsg is a one line notice for the status bar
type StatusUpdateMsg struct {
	appevents.UIMessage
	Message string
}

var (
	_ appevents.AppUIMessage = StateChangedMsg{}
	_ appevents.AppUIMessage = ProgressMsg{}
	_ appevents.AppUIMessage = SelectionChangedMsg{}
	_ appevents.AppUIMessage = StatusUpdateMsg{}
)
