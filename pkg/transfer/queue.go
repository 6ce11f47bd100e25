package transfer

// Queue is an ordered list of pending jobs: higher priority first, arrival
// order within a priority. It is not safe for concurrent use; the Manager
// guards it with its own mutex.
type Queue struct {
	jobs []TransferJob
}

// NewQueue returns an empty queue
func NewQueue() *Queue {
	return &Queue{}
}

// Enqueue inserts job before the first job with a lower priority
func (q *Queue) Enqueue(job TransferJob) {
	pos := len(q.jobs)
	for i, j := range q.jobs {
		if j.Priority < job.Priority {
			pos = i
			break
		}
	}
	q.jobs = append(q.jobs, TransferJob{})
	copy(q.jobs[pos+1:], q.jobs[pos:])
	q.jobs[pos] = job
}

// Dequeue removes and returns the front job
func (q *Queue) Dequeue() (TransferJob, bool) {
	if len(q.jobs) == 0 {
		return TransferJob{}, false
	}
	job := q.jobs[0]
	q.jobs[0] = TransferJob{}
	q.jobs = q.jobs[1:]
	return job, true
}

// Peek returns the front job without removing it
func (q *Queue) Peek() (TransferJob, bool) {
	if len(q.jobs) == 0 {
		return TransferJob{}, false
	}
	return q.jobs[0], true
}

// Get returns the job with the given id
func (q *Queue) Get(id JobID) (TransferJob, bool) {
	if i := q.index(id); i >= 0 {
		return q.jobs[i], true
	}
	return TransferJob{}, false
}

// Remove deletes the job with the given id. Removing an unknown id is a no-op.
func (q *Queue) Remove(id JobID) (TransferJob, bool) {
	i := q.index(id)
	if i < 0 {
		return TransferJob{}, false
	}
	job := q.jobs[i]
	q.jobs = append(q.jobs[:i], q.jobs[i+1:]...)
	return job, true
}

// Prioritize moves the job to the very front regardless of its priority
func (q *Queue) Prioritize(id JobID) bool {
	i := q.index(id)
	if i < 0 {
		return false
	}
	job := q.jobs[i]
	copy(q.jobs[1:i+1], q.jobs[:i])
	q.jobs[0] = job
	return true
}

// Len returns the number of pending jobs
func (q *Queue) Len() int {
	return len(q.jobs)
}

// Snapshot returns a copy of the jobs in dequeue order
func (q *Queue) Snapshot() []TransferJob {
	out := make([]TransferJob, len(q.jobs))
	copy(out, q.jobs)
	return out
}

func (q *Queue) index(id JobID) int {
	for i, j := range q.jobs {
		if j.ID == id {
			return i
		}
	}
	return -1
}
