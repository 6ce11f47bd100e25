package model

import (
	"fmt"
	"time"

	"github.com/rescp17/s3tui/internal/util"
	"github.com/rescp17/s3tui/pkg/transfer"
)

// ProgressBarWidth is the cell width of the progress column bar
const ProgressBarWidth = 8

// TransferItem is one row of the transfers table
type TransferItem struct {
	Direction   transfer.Direction
	Bucket      string
	Name        string
	Path        string
	Destination string
	CredName    string
	State       transfer.TransferState
	JobID       transfer.JobID

	TotalBytes int64
	Bytes      int64
	StartedAt  time.Time
}

// FromS3Item builds a download row
func FromS3Item(item S3SelectedItem) TransferItem {
	return TransferItem{
		Direction:   transfer.Download,
		Bucket:      item.Bucket,
		Name:        item.Name,
		Path:        item.Key(),
		Destination: item.DestinationDir,
		CredName:    item.Creds.Name,
		State:       item.State,
		JobID:       item.JobID,
	}
}

// FromLocalItem builds an upload row
func FromLocalItem(item LocalSelectedItem) TransferItem {
	return TransferItem{
		Direction:   transfer.Upload,
		Bucket:      item.DestinationBucket,
		Name:        item.Name,
		Path:        item.Path,
		Destination: item.DestinationPath,
		CredName:    item.Creds.Name,
		State:       item.State,
		JobID:       item.JobID,
	}
}

// TransferItems flattens both selections into table rows, downloads first
func TransferItems(s3Items []S3SelectedItem, localItems []LocalSelectedItem) []TransferItem {
	var rows []TransferItem
	for _, item := range Flatten(s3Items) {
		rows = append(rows, FromS3Item(item))
	}
	for _, item := range Flatten(localItems) {
		rows = append(rows, FromLocalItem(item))
	}
	return rows
}

// WithProgress attaches byte counters from the progress relay
func (t TransferItem) WithProgress(p transfer.Progress, startedAt time.Time) TransferItem {
	t.Bytes = p.Bytes
	t.TotalBytes = p.Total
	t.StartedAt = startedAt
	return t
}

// Arrow is the direction column glyph
func (t TransferItem) Arrow() string {
	if t.Direction == transfer.Download {
		return "↓"
	}
	return "↑"
}

// ProgressText renders the progress column
func (t TransferItem) ProgressText() string {
	switch {
	case t.State.IsCancelled():
		return "Cancelled"
	case t.State.IsPaused():
		return fmt.Sprintf("Paused %5.1f%%", t.State.Progress())
	case t.State.IsCompleted():
		return "Completed"
	default:
		pct := t.State.Progress()
		return fmt.Sprintf("%s %5.1f%%", util.ProgressBar(pct, ProgressBarWidth), pct)
	}
}

// ErrorText is the failure message, empty unless the transfer failed
func (t TransferItem) ErrorText() string {
	msg, _ := t.State.Error()
	return msg
}

// Columns returns direction, bucket, name, destination, credential,
// progress and error cells.
func (t TransferItem) Columns() []string {
	return []string{
		t.Arrow(),
		t.Bucket,
		t.Name,
		t.Destination,
		t.CredName,
		t.ProgressText(),
		t.ErrorText(),
	}
}

// Speed is the average rate since StartedAt in bytes per second
func (t TransferItem) Speed(now time.Time) float64 {
	if t.StartedAt.IsZero() {
		return 0
	}
	return util.TransferSpeed(t.Bytes, now.Sub(t.StartedAt))
}

// ETA estimates the remaining time at the current average speed
func (t TransferItem) ETA(now time.Time) (time.Duration, bool) {
	return util.ETA(t.TotalBytes-t.Bytes, t.Speed(now))
}

// MatchesS3 reports whether the row was built from item
func (t TransferItem) MatchesS3(item S3SelectedItem) bool {
	return t.Direction == transfer.Download &&
		t.Bucket == item.Bucket &&
		t.Path == item.Key() &&
		t.Destination == item.DestinationDir
}

// MatchesLocal reports whether the row was built from item
func (t TransferItem) MatchesLocal(item LocalSelectedItem) bool {
	return t.Direction == transfer.Upload &&
		t.Bucket == item.DestinationBucket &&
		t.Path == item.Path &&
		t.Destination == item.DestinationPath
}
