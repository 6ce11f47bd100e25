package transfer

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/rescp17/s3tui/pkg/concurrency"
)

// Manager coordinates queued, active, paused and finished jobs.
//
// A job lives in exactly one of pending, active, paused or history. A
// permit is taken only on the pending to active move and given back on
// every move out of active, all under mu.
//
// State changes go into an unbounded outbox under mu and a forwarding
// goroutine delivers them in order on the events channel. Consecutive
// progress updates of one job are coalesced; lifecycle changes never are.
type Manager struct {
	mu      sync.RWMutex
	config  *TransferConfig
	ids     IDAllocator
	permits *concurrency.Permits

	pending *Queue
	active  map[JobID]*activeEntry
	paused  []TransferJob
	history []TransferJob

	acquired uint64
	released uint64

	outbox     []StateChange
	progressAt map[JobID]int // outbox index of a job's undelivered progress update
	wake       *sync.Cond

	events chan StateChange
	closed bool
	now    func() time.Time
}

type activeEntry struct {
	job    TransferJob
	cancel context.CancelCauseFunc
}

// ActiveJob is handed to the worker that runs the transfer. Ctx is cancelled
// when the job is paused or cancelled; context.Cause(Ctx) tells which.
type ActiveJob struct {
	Job TransferJob
	Ctx context.Context
}

// Stats is a consistent snapshot of the manager's collections
type Stats struct {
	Pending          int
	Active           int
	Paused           int
	History          int
	PermitsAvailable int
	PermitsAcquired  uint64
	PermitsReleased  uint64
	QueuedEvents     int
}

// ManagerOption customizes a Manager
type ManagerOption func(*Manager)

// WithIDAllocator replaces the sequential id allocator
func WithIDAllocator(ids IDAllocator) ManagerOption {
	return func(m *Manager) { m.ids = ids }
}

// WithClock replaces time.Now for event timestamps
func WithClock(now func() time.Time) ManagerOption {
	return func(m *Manager) { m.now = now }
}

// NewManager creates a manager with config.Concurrency permits
func NewManager(config *TransferConfig, opts ...ManagerOption) (*Manager, error) {
	if config == nil {
		config = DefaultTransferConfig()
	}
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfiguration, err)
	}

	m := &Manager{
		config:  config,
		ids:     NewSequentialAllocator(1),
		permits: concurrency.NewPermits(config.Concurrency),
		pending: NewQueue(),
		active:  make(map[JobID]*activeEntry),
		events:  make(chan StateChange, config.EventBufferSize),
		now:     time.Now,

		progressAt: make(map[JobID]int),
	}
	m.wake = sync.NewCond(&m.mu)
	for _, opt := range opts {
		opt(m)
	}
	go m.forward()
	return m, nil
}

// Events returns the channel of state changes. Every lifecycle change is
// delivered, in order. The channel is closed after Close once the changes
// made before it have been delivered.
func (m *Manager) Events() <-chan StateChange {
	return m.events
}

// Enqueue adds a new pending job and returns its id
func (m *Manager) Enqueue(dir Direction, priority int) (JobID, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return 0, ErrManagerClosed
	}

	job := newJob(m.ids.Next(), dir, priority)
	m.pending.Enqueue(job)
	m.emitLocked(job)
	slog.Debug("Job queued", "job", job.ID, "direction", dir, "priority", priority)
	return job.ID, nil
}

// EnqueueUpload queues an upload with default priority
func (m *Manager) EnqueueUpload() (JobID, error) {
	return m.Enqueue(Upload, DefaultPriority)
}

// EnqueueDownload queues a download with default priority
func (m *Manager) EnqueueDownload() (JobID, error) {
	return m.Enqueue(Download, DefaultPriority)
}

// TryGetNext admits the next pending job if a permit is free. It never
// blocks; false means nothing is runnable right now and nothing changed.
func (m *Manager) TryGetNext() (ActiveJob, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed || m.pending.Len() == 0 {
		return ActiveJob{}, false
	}
	if !m.permits.TryAcquire() {
		return ActiveJob{}, false
	}
	job, _ := m.pending.Dequeue()
	m.acquired++

	job.Status = InProgress(0)
	ctx, cancel := context.WithCancelCause(context.Background())
	m.active[job.ID] = &activeEntry{job: job, cancel: cancel}
	m.emitLocked(job)
	return ActiveJob{Job: job, Ctx: ctx}, true
}

// Pause stops an active job and frees its permit
func (m *Manager) Pause(id JobID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrManagerClosed
	}

	entry, ok := m.active[id]
	if !ok {
		return m.transitionErrorLocked(id, "must be active to pause")
	}
	m.leaveActiveLocked(id, ErrPaused)

	job := entry.job
	job.Status = Paused(job.Status.Progress())
	m.paused = append(m.paused, job)
	m.emitLocked(job)
	slog.Info("Job paused", "job", id, "progress", job.Status.Progress())
	return nil
}

// Resume puts a paused job at the very front of the pending queue. It does
// not take a permit; the job becomes active through TryGetNext.
func (m *Manager) Resume(id JobID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrManagerClosed
	}

	i := m.pausedIndexLocked(id)
	if i < 0 {
		return m.transitionErrorLocked(id, "must be paused to resume")
	}
	job := m.paused[i]
	m.paused = append(m.paused[:i], m.paused[i+1:]...)

	job.Status = Pending()
	job.Priority = MaxPriority
	m.pending.Enqueue(job)
	m.pending.Prioritize(job.ID)
	m.emitLocked(job)
	slog.Info("Job resumed", "job", id)
	return nil
}

// Cancel retires a pending, paused or active job, searched in that order.
// Cancelling an active job frees its permit.
func (m *Manager) Cancel(id JobID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrManagerClosed
	}

	var job TransferJob
	if j, ok := m.pending.Remove(id); ok {
		job = j
	} else if i := m.pausedIndexLocked(id); i >= 0 {
		job = m.paused[i]
		m.paused = append(m.paused[:i], m.paused[i+1:]...)
	} else if entry, ok := m.active[id]; ok {
		job = entry.job
		m.leaveActiveLocked(id, context.Canceled)
	} else {
		return m.transitionErrorLocked(id, "already finished")
	}

	job.Status = Cancelled()
	m.history = append(m.history, job)
	m.emitLocked(job)
	slog.Info("Job cancelled", "job", id)
	return nil
}

// MarkCompleted records a successful active job and frees its permit
func (m *Manager) MarkCompleted(id JobID) error {
	return m.finish(id, Completed())
}

// MarkFailed records a failed active job and frees its permit. Failed jobs
// are never retried.
func (m *Manager) MarkFailed(id JobID, msg string) error {
	return m.finish(id, Failed(msg))
}

// CompletePaused records success for a job that was paused after its
// transfer had already finished. The permit was given back by the pause.
func (m *Manager) CompletePaused(id JobID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrManagerClosed
	}

	i := m.pausedIndexLocked(id)
	if i < 0 {
		return m.transitionErrorLocked(id, "must be paused to complete a finished transfer")
	}
	job := m.paused[i]
	m.paused = append(m.paused[:i], m.paused[i+1:]...)

	job.Status = Completed()
	m.history = append(m.history, job)
	m.emitLocked(job)
	slog.Info("Job completed after pause", "job", id)
	return nil
}

func (m *Manager) finish(id JobID, state TransferState) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrManagerClosed
	}

	entry, ok := m.active[id]
	if !ok {
		return m.transitionErrorLocked(id, "must be active to finish")
	}
	m.leaveActiveLocked(id, nil)

	job := entry.job
	job.Status = state
	m.history = append(m.history, job)
	m.emitLocked(job)
	if msg, failed := state.Error(); failed {
		slog.Warn("Job failed", "job", id, "error", msg)
	} else {
		slog.Info("Job completed", "job", id)
	}
	return nil
}

// UpdateProgress records the percent reached by an active job
func (m *Manager) UpdateProgress(id JobID, percent float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrManagerClosed
	}

	entry, ok := m.active[id]
	if !ok {
		return m.transitionErrorLocked(id, "must be active to report progress")
	}
	next := InProgress(percent)
	if next == entry.job.Status {
		return nil
	}
	entry.job.Status = next
	m.emitProgressLocked(entry.job)
	return nil
}

// Job returns the current record of a job wherever it is
func (m *Manager) Job(id JobID) (TransferJob, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.findLocked(id)
}

// History returns finished jobs in the order they finished
func (m *Manager) History() []TransferJob {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]TransferJob, len(m.history))
	copy(out, m.history)
	return out
}

// Pending returns the pending jobs in dequeue order
func (m *Manager) Pending() []TransferJob {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.pending.Snapshot()
}

// ClearHistory forgets finished jobs
func (m *Manager) ClearHistory() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.history = nil
}

// Stats returns a snapshot of collection sizes and permit accounting
func (m *Manager) Stats() Stats {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return Stats{
		Pending:          m.pending.Len(),
		Active:           len(m.active),
		Paused:           len(m.paused),
		History:          len(m.history),
		PermitsAvailable: m.permits.Available(),
		PermitsAcquired:  m.acquired,
		PermitsReleased:  m.released,
		QueuedEvents:     len(m.outbox),
	}
}

// Close cancels every active job and stops accepting operations. Active
// jobs keep their permits; the manager is unusable afterwards.
func (m *Manager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return
	}
	m.closed = true
	for _, entry := range m.active {
		entry.cancel(ErrManagerClosed)
	}
	m.wake.Broadcast()
}

// leaveActiveLocked removes id from the active set, releases its permit and
// signals its context. cause nil means the job finished on its own.
func (m *Manager) leaveActiveLocked(id JobID, cause error) {
	entry := m.active[id]
	delete(m.active, id)
	if err := m.permits.Release(); err != nil {
		slog.Error("Permit accounting broken", "job", id, "error", err)
	} else {
		m.released++
	}
	if cause == nil {
		cause = context.Canceled
	}
	entry.cancel(cause)
}

func (m *Manager) pausedIndexLocked(id JobID) int {
	for i, j := range m.paused {
		if j.ID == id {
			return i
		}
	}
	return -1
}

func (m *Manager) findLocked(id JobID) (TransferJob, bool) {
	if j, ok := m.pending.Get(id); ok {
		return j, true
	}
	if entry, ok := m.active[id]; ok {
		return entry.job, true
	}
	if i := m.pausedIndexLocked(id); i >= 0 {
		return m.paused[i], true
	}
	for i := len(m.history) - 1; i >= 0; i-- {
		if m.history[i].ID == id {
			return m.history[i], true
		}
	}
	return TransferJob{}, false
}

func (m *Manager) transitionErrorLocked(id JobID, reason string) error {
	job, ok := m.findLocked(id)
	if !ok {
		return fmt.Errorf("%w: %s", ErrJobNotFound, id)
	}
	return fmt.Errorf("%w: %s is %s, %s", ErrInvalidStateTransition, id, job.Status.Kind(), reason)
}

// emitLocked queues a lifecycle change for delivery
func (m *Manager) emitLocked(job TransferJob) {
	delete(m.progressAt, job.ID)
	m.outbox = append(m.outbox, m.change(job))
	m.wake.Signal()
}

// emitProgressLocked replaces the job's undelivered progress update, if any
func (m *Manager) emitProgressLocked(job TransferJob) {
	if i, ok := m.progressAt[job.ID]; ok {
		m.outbox[i] = m.change(job)
		return
	}
	m.progressAt[job.ID] = len(m.outbox)
	m.outbox = append(m.outbox, m.change(job))
	m.wake.Signal()
}

func (m *Manager) change(job TransferJob) StateChange {
	return StateChange{JobID: job.ID, Direction: job.Direction, State: job.Status, At: m.now()}
}

// forward delivers the outbox on the events channel outside mu, so a slow
// reader never holds up the manager.
func (m *Manager) forward() {
	defer close(m.events)
	for {
		m.mu.Lock()
		for len(m.outbox) == 0 && !m.closed {
			m.wake.Wait()
		}
		batch := m.outbox
		m.outbox = nil
		clear(m.progressAt)
		m.mu.Unlock()

		if len(batch) == 0 {
			return
		}
		for _, change := range batch {
			m.events <- change
		}
	}
}
