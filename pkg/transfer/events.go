package transfer

import "time"

// StateChange is published every time the manager moves a job. Consumers
// must treat repeated identical states for the same job as a no-op.
type StateChange struct {
	JobID     JobID
	Direction Direction
	State     TransferState
	At        time.Time
}

// Progress is emitted by the progress relay for every chunk observed.
// Percent is only meaningful when Total is known (greater than zero).
type Progress struct {
	JobID   JobID
	Bytes   int64
	Total   int64
	Percent float64
}
