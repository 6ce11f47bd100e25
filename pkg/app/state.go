package app

import (
	"context"
	"log/slog"
	"time"

	"github.com/rescp17/s3tui/internal/app_events/transfers"
	"github.com/rescp17/s3tui/pkg/model"
	"github.com/rescp17/s3tui/pkg/transfer"
)

// runStateChanges copies job states onto the selected items until the
// manager closes its event channel.
func (a *App) runStateChanges() error {
	for change := range a.manager.Events() {
		a.applyState(change)
	}
	return nil
}

func (a *App) applyState(change transfer.StateChange) {
	a.mu.Lock()
	var found bool
	switch change.Direction {
	case transfer.Download:
		found = model.SetS3State(a.s3Items, change.JobID, change.State)
	case transfer.Upload:
		found = model.SetLocalState(a.localItems, change.JobID, change.State)
	}
	if change.State.IsTerminal() {
		delete(a.bytes, change.JobID)
	}
	a.mu.Unlock()

	if !found {
		slog.Debug("State change for unknown item", "job", change.JobID, "state", change.State)
		return
	}
	a.requestSave()
	a.notify(transfers.StateChangedMsg{Change: change})
}

// runProgress forwards relay events into the manager and keeps the byte
// counters shown in the table.
func (a *App) runProgress(ctx context.Context) error {
	if a.progress == nil {
		return nil
	}
	for {
		select {
		case <-ctx.Done():
			return nil
		case p := <-a.progress:
			a.applyProgress(p)
		}
	}
}

func (a *App) applyProgress(p transfer.Progress) {
	a.mu.Lock()
	entry, ok := a.bytes[p.JobID]
	if ok {
		entry.last = p
		a.bytes[p.JobID] = entry
	}
	a.mu.Unlock()
	if !ok {
		return
	}

	if p.Total > 0 {
		if err := a.manager.UpdateProgress(p.JobID, p.Percent); err != nil {
			// Late events from a job that was just paused or finished.
			slog.Debug("Progress for inactive job", "job", p.JobID, "error", err)
			return
		}
	}
	a.notify(transfers.ProgressMsg{Progress: p})
}

// requestSave marks the selection dirty. Requests made while a save is
// pending are folded into it.
func (a *App) requestSave() {
	select {
	case a.saveRequests <- struct{}{}:
	default:
	}
}

// runSaver writes the selection snapshot at most once per SaveInterval
func (a *App) runSaver(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-a.saveRequests:
		}
		if d := a.config.SaveInterval; d > 0 {
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(d):
			}
		}
		a.report("Failed to save pending transfers", a.save())
	}
}

func (a *App) save() error {
	if a.snapshots == nil {
		return nil
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.snapshots.Save(a.s3Items, a.localItems)
}
