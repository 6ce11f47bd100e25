package concurrency

import (
	"errors"
	"sync"
)

var ErrPermitOverRelease = errors.New("permit released more times than acquired")

// Permits is a non-blocking counting semaphore. Every successful TryAcquire
// must be paired with exactly one Release.
type Permits struct {
	mu       sync.Mutex
	capacity int
	inUse    int
}

func NewPermits(capacity int) *Permits {
	if capacity < 0 {
		capacity = 0
	}
	return &Permits{capacity: capacity}
}

// TryAcquire takes a permit if one is free
func (p *Permits) TryAcquire() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.inUse >= p.capacity {
		return false
	}
	p.inUse++
	return true
}

// Release returns a permit. Releasing with no permit held is an error and
// leaves the count unchanged.
func (p *Permits) Release() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.inUse == 0 {
		return ErrPermitOverRelease
	}
	p.inUse--
	return nil
}

func (p *Permits) Available() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.capacity - p.inUse
}

func (p *Permits) InUse() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.inUse
}

func (p *Permits) Capacity() int {
	return p.capacity
}
