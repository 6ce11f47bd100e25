package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/samber/lo"

	"github.com/rescp17/s3tui/internal/app_events/transfers"
	"github.com/rescp17/s3tui/pkg/model"
	"github.com/rescp17/s3tui/pkg/transfer"
)

// ErrNotQueued is returned when pausing an item that has no job
var ErrNotQueued = errors.New("transfer is not queued")

// ErrNothingToDownload marks a prefix or bucket that listed no objects
var ErrNothingToDownload = errors.New("no objects found")

// RunTransfers lists selected prefixes and buckets, then queues every
// file or object that has no job and has not finished.
func (a *App) RunTransfers(ctx context.Context) {
	a.expandS3(ctx)

	a.mu.Lock()
	queued, err := a.enqueueAllLocked()
	a.mu.Unlock()

	a.report("Failed to queue transfers", err)
	if queued > 0 {
		a.notify(transfers.StatusUpdateMsg{Message: fmt.Sprintf("Queued %d transfer(s)", queued)})
	}
	a.selectionChanged()
}

type listing struct {
	item model.S3SelectedItem
	keys []string
	err  error
}

// expandS3 replaces each unlisted prefix or bucket with its objects.
// Listing happens outside the lock.
func (a *App) expandS3(ctx context.Context) {
	a.mu.Lock()
	unlisted := lo.Filter(a.s3Items, func(item model.S3SelectedItem, _ int) bool {
		return item.NeedsListing() && !item.State.IsTerminal()
	})
	a.mu.Unlock()

	results := make([]listing, 0, len(unlisted))
	for _, item := range unlisted {
		objects, err := a.plane.ListObjects(ctx, item.Creds, item.Bucket, item.Path)
		if err == nil && len(objects) == 0 {
			err = fmt.Errorf("%w under s3://%s/%s", ErrNothingToDownload, item.Bucket, item.Path)
		}
		keys := make([]string, 0, len(objects))
		for _, obj := range objects {
			keys = append(keys, obj.Key)
		}
		results = append(results, listing{item: item, keys: keys, err: err})
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	for _, res := range results {
		for i := range a.s3Items {
			if !a.s3Items[i].Equal(res.item) || !a.s3Items[i].NeedsListing() {
				continue
			}
			if res.err != nil {
				slog.Error("Failed to list objects", "bucket", res.item.Bucket, "prefix", res.item.Path, "error", res.err)
				a.s3Items[i].State = transfer.Failed(res.err.Error())
				break
			}
			a.s3Items[i] = a.s3Items[i].WithObjects(res.keys)
			slog.Info("Listed objects", "bucket", res.item.Bucket, "prefix", res.item.Path, "count", len(res.keys))
			break
		}
	}
}

// enqueueAllLocked must be called with a.mu held so no worker can admit a
// job before its item carries the job id.
func (a *App) enqueueAllLocked() (int, error) {
	queued := 0
	var err error
	model.WalkS3(a.s3Items, func(item *model.S3SelectedItem) bool {
		if !item.IsLeaf() || item.NeedsListing() || !runnable(item.JobID, item.State) {
			return false
		}
		item.JobID, err = a.manager.Enqueue(transfer.Download, transfer.DefaultPriority)
		if err != nil {
			return true
		}
		queued++
		return false
	})
	if err != nil {
		return queued, err
	}
	model.WalkLocal(a.localItems, func(item *model.LocalSelectedItem) bool {
		if !item.IsLeaf() || !runnable(item.JobID, item.State) {
			return false
		}
		if item.IsDirectory {
			item.State = transfer.Completed() // empty directory
			return false
		}
		item.JobID, err = a.manager.Enqueue(transfer.Upload, transfer.DefaultPriority)
		if err != nil {
			return true
		}
		queued++
		return false
	})
	return queued, err
}

func runnable(id transfer.JobID, state transfer.TransferState) bool {
	return id == 0 && !state.IsTerminal()
}

// Pause pauses the active job behind row
func (a *App) Pause(row model.TransferItem) error {
	if row.JobID == 0 {
		return fmt.Errorf("%w: %s", ErrNotQueued, row.Name)
	}
	return a.manager.Pause(row.JobID)
}

// Resume resumes a paused job. A row without a job, restored from the
// last session, is queued at the front instead.
func (a *App) Resume(row model.TransferItem) error {
	if row.JobID != 0 {
		return a.manager.Resume(row.JobID)
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	enqueue := func(id *transfer.JobID, state *transfer.TransferState) error {
		if !runnable(*id, *state) {
			return fmt.Errorf("%w: %s is %s", transfer.ErrInvalidStateTransition, row.Name, state)
		}
		next, err := a.manager.Enqueue(row.Direction, transfer.MaxPriority)
		if err != nil {
			return err
		}
		*id = next
		slog.Info("Resumed restored transfer", "job", next, "name", row.Name)
		return nil
	}

	found, err := a.updateRowLocked(row, enqueue)
	if err != nil {
		return err
	}
	if !found {
		return fmt.Errorf("%w: %s", ErrItemNotFound, row.Name)
	}
	return nil
}

// Cancel cancels the job behind row. A row without a job is marked
// cancelled directly.
func (a *App) Cancel(row model.TransferItem) error {
	if row.JobID != 0 {
		return a.manager.Cancel(row.JobID)
	}

	a.mu.Lock()
	found, err := a.updateRowLocked(row, func(_ *transfer.JobID, state *transfer.TransferState) error {
		if state.IsTerminal() {
			return fmt.Errorf("%w: %s is %s", transfer.ErrInvalidStateTransition, row.Name, state)
		}
		*state = transfer.Cancelled()
		return nil
	})
	a.mu.Unlock()

	if err != nil {
		return err
	}
	if !found {
		return fmt.Errorf("%w: %s", ErrItemNotFound, row.Name)
	}
	a.selectionChanged()
	return nil
}

// updateRowLocked applies fn to the leaf item row was built from
func (a *App) updateRowLocked(row model.TransferItem, fn func(*transfer.JobID, *transfer.TransferState) error) (bool, error) {
	var err error
	var found bool
	switch row.Direction {
	case transfer.Download:
		found = model.WalkS3(a.s3Items, func(item *model.S3SelectedItem) bool {
			if !item.IsLeaf() || !row.MatchesS3(*item) {
				return false
			}
			err = fn(&item.JobID, &item.State)
			return true
		})
	case transfer.Upload:
		found = model.WalkLocal(a.localItems, func(item *model.LocalSelectedItem) bool {
			if !item.IsLeaf() || !row.MatchesLocal(*item) {
				return false
			}
			err = fn(&item.JobID, &item.State)
			return true
		})
	}
	return found, err
}

// ClearFinished drops completed, failed and cancelled items along with
// the manager's history.
func (a *App) ClearFinished() {
	a.mu.Lock()
	a.s3Items = model.Prune(a.s3Items, func(item model.S3SelectedItem) bool { return item.State.IsTerminal() })
	a.localItems = model.Prune(a.localItems, func(item model.LocalSelectedItem) bool { return item.State.IsTerminal() })
	for id := range a.bytes {
		if job, ok := a.manager.Job(id); !ok || job.Status.IsTerminal() {
			delete(a.bytes, id)
		}
	}
	a.mu.Unlock()

	a.manager.ClearHistory()
	a.selectionChanged()
}
