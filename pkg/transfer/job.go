package transfer

import (
	"fmt"
	"math"
	"sync/atomic"
)

// JobID identifies a queued unit of work for the lifetime of the process.
// It is not stable across restarts.
type JobID uint64

func (id JobID) String() string {
	return fmt.Sprintf("Job-%d", uint64(id))
}

// IDAllocator issues job identifiers. Implementations must be safe for
// concurrent use and never return the same id twice.
type IDAllocator interface {
	Next() JobID
}

// SequentialAllocator hands out monotonically increasing ids
type SequentialAllocator struct {
	next atomic.Uint64
}

// NewSequentialAllocator returns an allocator whose first id is start
func NewSequentialAllocator(start uint64) *SequentialAllocator {
	a := &SequentialAllocator{}
	a.next.Store(start)
	return a
}

func (a *SequentialAllocator) Next() JobID {
	return JobID(a.next.Add(1) - 1)
}

// Direction tells the worker which data-plane call a job needs
type Direction int

const (
	Upload Direction = iota
	Download
)

func (d Direction) String() string {
	if d == Download {
		return "download"
	}
	return "upload"
}

// Priority bounds. Resume uses MaxPriority so a resumed job is dequeued next.
const (
	DefaultPriority = 0
	MaxPriority     = math.MaxInt
)

// TransferJob is the manager's record of where a unit of work sits.
// Status uses the same TransferState as selected items: Pending stands for
// queued, InProgress for active.
type TransferJob struct {
	ID        JobID
	Direction Direction
	Status    TransferState
	Priority  int
}

func newJob(id JobID, dir Direction, priority int) TransferJob {
	return TransferJob{
		ID:        id,
		Direction: dir,
		Status:    Pending(),
		Priority:  priority,
	}
}
